package relay

import "strings"

// TranscriptBuffer accumulates STT fragments for one caller utterance.
//
// Two independent paths can flush it: a final result carrying speech_final,
// and the silence-based UtteranceEnd event. Whichever runs first wins; the
// second flush finds an empty buffer and becomes a no-op. That behavior is
// deliberate, there is no intended precedence between the two.
type TranscriptBuffer struct {
	finals      []string
	lastInterim string
}

// AddInterim records a non-final fragment, replacing the previous one.
func (b *TranscriptBuffer) AddInterim(text string) {
	b.lastInterim = text
}

// AddFinal accumulates a finalized fragment.
func (b *TranscriptBuffer) AddFinal(text string) {
	b.finals = append(b.finals, text)
}

// FlushFinal returns the accumulated final fragments and resets. Used on
// speech_final.
func (b *TranscriptBuffer) FlushFinal() string {
	text := strings.Join(b.finals, " ")
	b.Reset()
	return strings.TrimSpace(text)
}

// FlushAny returns the accumulated finals, falling back to the last interim
// fragment, and resets. Used on UtteranceEnd, where the endpointer may never
// have finalized the trailing words.
func (b *TranscriptBuffer) FlushAny() string {
	text := strings.Join(b.finals, " ")
	if strings.TrimSpace(text) == "" {
		text = b.lastInterim
	}
	b.Reset()
	return strings.TrimSpace(text)
}

// Reset drops all state. No fragment from before a reset may surface after.
func (b *TranscriptBuffer) Reset() {
	b.finals = nil
	b.lastInterim = ""
}
