package relay

import "testing"

func TestTranscriptBufferFlushFinal(t *testing.T) {
	var b TranscriptBuffer
	b.AddInterim("hel")
	b.AddFinal("hello there")
	b.AddFinal("how are you")

	if got := b.FlushFinal(); got != "hello there how are you" {
		t.Errorf("FlushFinal = %q", got)
	}
	if got := b.FlushFinal(); got != "" {
		t.Errorf("second flush should be empty, got %q", got)
	}
}

func TestTranscriptBufferFlushAnyFallsBackToInterim(t *testing.T) {
	var b TranscriptBuffer
	b.AddInterim("partial words")

	if got := b.FlushAny(); got != "partial words" {
		t.Errorf("FlushAny = %q, want interim fallback", got)
	}
}

func TestTranscriptBufferFlushAnyPrefersFinals(t *testing.T) {
	var b TranscriptBuffer
	b.AddInterim("stale interim")
	b.AddFinal("the real text")

	if got := b.FlushAny(); got != "the real text" {
		t.Errorf("FlushAny = %q, want finals", got)
	}
}

func TestTranscriptBufferDoubleFlushIsNoOp(t *testing.T) {
	// speech_final and UtteranceEnd can both fire for one utterance; the
	// second path must find nothing.
	var b TranscriptBuffer
	b.AddFinal("book a table")

	if got := b.FlushFinal(); got != "book a table" {
		t.Fatalf("FlushFinal = %q", got)
	}
	if got := b.FlushAny(); got != "" {
		t.Errorf("FlushAny after FlushFinal = %q, want empty", got)
	}
}

func TestTranscriptBufferReset(t *testing.T) {
	var b TranscriptBuffer
	b.AddInterim("dropped")
	b.AddFinal("also dropped")
	b.Reset()

	if got := b.FlushAny(); got != "" {
		t.Errorf("flush after reset = %q, want empty", got)
	}
}
