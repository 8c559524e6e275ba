package audio

import "testing"

func TestDecodeMuLawSampleKnownValues(t *testing.T) {
	cases := []struct {
		in   byte
		want int16
	}{
		{0xFF, -4},    // silence byte decodes near zero
		{0x7F, 4},     // negative-side silence
		{0x80, 31612}, // loudest positive
		{0x00, -31612},
		{0xFE, 4},
	}
	for _, c := range cases {
		if got := DecodeMuLawSample(c.in); got != c.want {
			t.Errorf("DecodeMuLawSample(%#x) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestDecodeMuLawSampleSignSymmetry(t *testing.T) {
	// Flipping the sign bit of the encoded byte must negate the sample.
	for i := 0; i < 256; i++ {
		b := byte(i)
		if DecodeMuLawSample(b) != -DecodeMuLawSample(b^0x80) {
			t.Fatalf("sign symmetry broken at byte %#x", b)
		}
	}
}

func TestDecodeMuLawOutput(t *testing.T) {
	in := []byte{0x80, 0xFF}
	out := DecodeMuLaw(in)
	if len(out) != 4 {
		t.Fatalf("expected 4 bytes, got %d", len(out))
	}

	// Little-endian: 31612 = 0x7B7C
	if out[0] != 0x7C || out[1] != 0x7B {
		t.Errorf("first sample bytes = %#x %#x, want 0x7c 0x7b", out[0], out[1])
	}

	samples := DecodeMuLawSamples(in)
	if len(samples) != 2 || samples[0] != 31612 || samples[1] != -4 {
		t.Errorf("DecodeMuLawSamples = %v, want [31612 -4]", samples)
	}
}

func TestDecodeMuLawEmpty(t *testing.T) {
	if out := DecodeMuLaw(nil); len(out) != 0 {
		t.Errorf("expected empty output, got %d bytes", len(out))
	}
}
