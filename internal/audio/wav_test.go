package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestWriteWAVHeader(t *testing.T) {
	pcm := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	wav := WriteWAV(pcm, 8000, 2)

	if len(wav) != 44+len(pcm) {
		t.Fatalf("expected %d bytes, got %d", 44+len(pcm), len(wav))
	}
	if !bytes.HasPrefix(wav, []byte("RIFF")) {
		t.Error("missing RIFF prefix")
	}
	if string(wav[8:12]) != "WAVE" {
		t.Error("missing WAVE identifier")
	}

	if ch := binary.LittleEndian.Uint16(wav[22:24]); ch != 2 {
		t.Errorf("channels = %d, want 2", ch)
	}
	if rate := binary.LittleEndian.Uint32(wav[24:28]); rate != 8000 {
		t.Errorf("sample rate = %d, want 8000", rate)
	}
	// byte rate = rate * channels * 2
	if br := binary.LittleEndian.Uint32(wav[28:32]); br != 32000 {
		t.Errorf("byte rate = %d, want 32000", br)
	}
	if dataLen := binary.LittleEndian.Uint32(wav[40:44]); dataLen != uint32(len(pcm)) {
		t.Errorf("data length = %d, want %d", dataLen, len(pcm))
	}
	if !bytes.Equal(wav[44:], pcm) {
		t.Error("PCM payload mismatch")
	}
}

func TestPCMBytes(t *testing.T) {
	out := PCMBytes([]int16{0x0102, -2})
	want := []byte{0x02, 0x01, 0xFE, 0xFF}
	if !bytes.Equal(out, want) {
		t.Errorf("PCMBytes = %v, want %v", out, want)
	}
}
