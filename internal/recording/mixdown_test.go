package recording

import (
	"encoding/binary"
	"testing"
)

// stereoSample reads the left/right int16 pair for sample i out of a 44-byte
// header stereo WAV.
func stereoSample(wav []byte, i int) (left, right int16) {
	off := 44 + i*4
	left = int16(binary.LittleEndian.Uint16(wav[off : off+2]))
	right = int16(binary.LittleEndian.Uint16(wav[off+2 : off+4]))
	return left, right
}

func TestMixdownEmptyCall(t *testing.T) {
	r := NewRecorder(8000)
	if _, _, ok := r.Mixdown(5.0, DefaultGainConfig()); ok {
		t.Error("expected ok=false for a call with no audio")
	}
}

func TestMixdownBargeInTruncation(t *testing.T) {
	r := NewRecorder(8000)

	// Assistant speaks from 1s with 2s of buffered audio; caller barges in
	// at 2s. The mixdown must silence the right channel past the cutoff.
	r.AssistantStartedSpeaking(1.0)
	r.AppendAssistantAudio(muBytes(0x80, 16000), 1.0)
	r.CallerStartedSpeaking(2.0)
	r.CallerStoppedSpeaking(2.0)

	wav, duration, ok := r.Mixdown(2.0, DefaultGainConfig())
	if !ok {
		t.Fatal("expected audio")
	}
	if duration != 2.0 {
		t.Errorf("duration = %v, want 2.0", duration)
	}
	// 2s * 8000 samples * 2 channels * 2 bytes + header
	if want := 44 + 16000*4; len(wav) != want {
		t.Fatalf("wav length = %d, want %d", len(wav), want)
	}

	// Inside the assistant's slot: loud decoded sample.
	if _, right := stereoSample(wav, 12000); right != 31612 {
		t.Errorf("right channel during speech = %d, want 31612", right)
	}
	// Before the assistant started: silence.
	if _, right := stereoSample(wav, 4000); right != -4 {
		t.Errorf("right channel before speech = %d, want decoded silence", right)
	}
}

func TestMixdownPlacesCallerOnLeft(t *testing.T) {
	r := NewRecorder(8000)
	r.CallerStartedSpeaking(0)
	r.AppendCallerAudio(muBytes(0x80, 8000), 0)
	r.CallerStoppedSpeaking(1.0)

	wav, _, ok := r.Mixdown(1.0, DefaultGainConfig())
	if !ok {
		t.Fatal("expected audio")
	}
	left, _ := stereoSample(wav, 4000)
	if left != 31612 {
		t.Errorf("left channel = %d, want 31612", left)
	}
}

func TestApplyGainRescue(t *testing.T) {
	quiet := []int16{100, -100}
	applyGainRescue(quiet, DefaultGainConfig())
	if quiet[0] != 300 || quiet[1] != -300 {
		t.Errorf("quiet samples = %v, want [300 -300] (max gain 3x)", quiet)
	}

	loud := []int16{20000, -20000}
	applyGainRescue(loud, DefaultGainConfig())
	if loud[0] != 20000 || loud[1] != -20000 {
		t.Errorf("loud samples modified: %v", loud)
	}

	silence := []int16{0, 0}
	applyGainRescue(silence, DefaultGainConfig())
	if silence[0] != 0 || silence[1] != 0 {
		t.Errorf("pure silence modified: %v", silence)
	}
}

func TestPlaceSegmentsTruncatesOverrun(t *testing.T) {
	track := silentTrack(8000)
	placeSegments(track, []Segment{
		// One second of slot, two seconds of data.
		{Start: 0, End: 1.0, Data: muBytes(0x80, 16000)},
	}, 8000)

	for i, b := range track {
		if b != 0x80 {
			t.Fatalf("track[%d] = %#x, want 0x80", i, b)
		}
	}
}
