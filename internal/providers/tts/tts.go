package tts

import "context"

// Chunk is one unit of synthesized audio from a live stream.
type Chunk struct {
	// Audio is raw mu-law 8 kHz audio, already base64-decoded.
	Audio []byte
	// Final marks the end of one synthesis generation.
	Final bool
	Err   error
}

// Stream is a live text-to-speech connection.
type Stream interface {
	// SendText submits a text fragment for synthesis.
	SendText(text string) error
	// Flush forces synthesis of any buffered text.
	Flush() error
	// Chunks yields synthesized audio; closed when the stream ends.
	Chunks() <-chan Chunk
	Close() error
}

// Dialer opens live synthesis streams for a given voice.
type Dialer interface {
	Dial(ctx context.Context, voiceID string) (Stream, error)
}
