package stt

import "context"

// Result is one recognition event from a live stream.
type Result struct {
	Transcript string
	// IsFinal marks a finalized interim segment.
	IsFinal bool
	// SpeechFinal marks the endpointer's end-of-utterance decision.
	SpeechFinal bool
	// UtteranceEnd is the silence-based fallback end-of-utterance signal.
	// It carries no transcript of its own.
	UtteranceEnd bool
	Err          error
}

// Stream is a live speech-to-text connection fed with telephony audio.
type Stream interface {
	// Send forwards one frame of raw mu-law audio.
	Send(audio []byte) error
	// Results yields recognition events; closed when the stream ends.
	Results() <-chan Result
	Close() error
}

// Dialer opens live recognition streams.
type Dialer interface {
	Dial(ctx context.Context, language string) (Stream, error)
}

// BatchTranscriber recognizes a complete recorded clip in one shot. Used
// after the call for user turns that ended as audio without a transcript.
type BatchTranscriber interface {
	Transcribe(ctx context.Context, audio []byte, language string) (string, error)
}
