package recording

import (
	"bytes"
	"testing"
)

func muBytes(b byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}

func TestRecorderCallerSegmentLifecycle(t *testing.T) {
	r := NewRecorder(8000)
	if r.HasAudio() {
		t.Fatal("fresh recorder should have no audio")
	}

	r.CallerStartedSpeaking(0)
	r.AppendCallerAudio(muBytes(0x80, 8000), 0)
	r.CallerStoppedSpeaking(1.0)

	if !r.HasAudio() {
		t.Fatal("expected audio after caller segment")
	}
	if d := r.Duration(); d != 1.0 {
		t.Errorf("duration = %v, want 1.0", d)
	}

	caller, assistant := r.finalize(1.0)
	if len(caller) != 1 || len(assistant) != 0 {
		t.Fatalf("segments = %d caller, %d assistant; want 1, 0", len(caller), len(assistant))
	}
	seg := caller[0]
	if seg.Start != 0 || seg.End != 1.0 || len(seg.Data) != 8000 {
		t.Errorf("segment = [%v,%v] %d bytes", seg.Start, seg.End, len(seg.Data))
	}
}

func TestRecorderBargeInClosesAssistantSegment(t *testing.T) {
	r := NewRecorder(8000)

	// Assistant starts at 1s and buffers two seconds of synthesized audio.
	r.AssistantStartedSpeaking(1.0)
	r.AppendAssistantAudio(muBytes(0x80, 16000), 1.0)

	// Caller interrupts at 2s: the assistant segment must end there, not at
	// the end of its buffered audio.
	r.CallerStartedSpeaking(2.0)

	_, assistant := r.finalize(3.0)
	if len(assistant) != 1 {
		t.Fatalf("expected 1 assistant segment, got %d", len(assistant))
	}
	seg := assistant[0]
	if seg.Start != 1.0 || seg.End != 2.0 {
		t.Errorf("assistant segment = [%v,%v], want [1,2]", seg.Start, seg.End)
	}
	// The buffer keeps all appended bytes; truncation to the timeline span
	// happens at mixdown.
	if len(seg.Data) != 16000 {
		t.Errorf("segment data = %d bytes, want 16000", len(seg.Data))
	}
}

func TestRecorderIgnoresAudioAfterFinalize(t *testing.T) {
	r := NewRecorder(8000)
	r.finalize(0)
	r.AppendCallerAudio(muBytes(0x80, 100), 0)
	if r.HasAudio() {
		t.Error("audio appended after finalize should be dropped")
	}
}

func TestRecorderCallerAudioConcatenation(t *testing.T) {
	r := NewRecorder(8000)
	r.CallerStartedSpeaking(0)
	r.AppendCallerAudio([]byte{1, 2}, 0)
	r.CallerStoppedSpeaking(0.5)
	r.CallerStartedSpeaking(1.0)
	r.AppendCallerAudio([]byte{3, 4}, 1.0)

	got := r.CallerAudio()
	if !bytes.Equal(got, []byte{1, 2, 3, 4}) {
		t.Errorf("CallerAudio = %v, want [1 2 3 4]", got)
	}
}
