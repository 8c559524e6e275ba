package recording

import (
	"sync"
)

// Speaker identifies one side of the call.
type Speaker string

const (
	SpeakerCaller    Speaker = "caller"
	SpeakerAssistant Speaker = "assistant"
)

// Segment is a contiguous span of one speaker's μ-law audio with call-relative
// start and end offsets in seconds. The start offset is fixed at creation and
// the end offset is fixed exactly once at close.
type Segment struct {
	Start float64
	End   float64
	Data  []byte
}

type openSegment struct {
	start float64
	data  []byte
}

// Recorder tracks per-speaker audio segments against the call timeline so the
// stereo mixdown reflects when speech actually occurred, independent of
// pipeline jitter. All timestamps are seconds from session start.
//
// A speaker has at most one open segment at a time. Closing a segment always
// uses the supplied timestamp, never an offset inferred from buffer length:
// on barge-in the assistant's buffer holds synthesized audio that was never
// delivered, and that audio must not appear past the interruption instant.
type Recorder struct {
	mu sync.Mutex

	sampleRate int
	recording  bool

	callerSegments    []Segment
	assistantSegments []Segment

	openCaller    *openSegment
	openAssistant *openSegment
}

func NewRecorder(sampleRate int) *Recorder {
	return &Recorder{sampleRate: sampleRate, recording: true}
}

// AppendCallerAudio adds caller μ-law bytes at timestamp t, opening a segment
// if none is open.
func (r *Recorder) AppendCallerAudio(data []byte, t float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording || len(data) == 0 {
		return
	}
	if r.openCaller == nil {
		r.openCaller = &openSegment{start: t}
	}
	r.openCaller.data = append(r.openCaller.data, data...)
}

// AppendAssistantAudio adds assistant μ-law bytes at timestamp t.
func (r *Recorder) AppendAssistantAudio(data []byte, t float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording || len(data) == 0 {
		return
	}
	if r.openAssistant == nil {
		r.openAssistant = &openSegment{start: t}
	}
	r.openAssistant.data = append(r.openAssistant.data, data...)
}

// CallerStartedSpeaking marks the start of a caller utterance. If the
// assistant has an open segment it is force-closed at t: this is the barge-in
// cutoff, the critical timeline correctness property.
func (r *Recorder) CallerStartedSpeaking(t float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.openCaller != nil {
		if len(r.openCaller.data) > 0 {
			r.callerSegments = append(r.callerSegments, Segment{Start: r.openCaller.start, End: t, Data: r.openCaller.data})
		}
	}
	r.openCaller = &openSegment{start: t}

	if r.openAssistant != nil {
		if len(r.openAssistant.data) > 0 {
			r.assistantSegments = append(r.assistantSegments, Segment{Start: r.openAssistant.start, End: t, Data: r.openAssistant.data})
		}
		r.openAssistant = nil
	}
}

// CallerStoppedSpeaking closes the caller's open segment at t.
func (r *Recorder) CallerStoppedSpeaking(t float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.openCaller != nil {
		if len(r.openCaller.data) > 0 {
			r.callerSegments = append(r.callerSegments, Segment{Start: r.openCaller.start, End: t, Data: r.openCaller.data})
		}
		r.openCaller = nil
	}
}

// AssistantStartedSpeaking marks the start of an assistant turn, closing any
// previous open assistant segment at t.
func (r *Recorder) AssistantStartedSpeaking(t float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.openAssistant != nil {
		if len(r.openAssistant.data) > 0 {
			r.assistantSegments = append(r.assistantSegments, Segment{Start: r.openAssistant.start, End: t, Data: r.openAssistant.data})
		}
	}
	r.openAssistant = &openSegment{start: t}
}

// AssistantStoppedSpeaking closes the assistant's open segment at t.
func (r *Recorder) AssistantStoppedSpeaking(t float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.openAssistant != nil {
		if len(r.openAssistant.data) > 0 {
			r.assistantSegments = append(r.assistantSegments, Segment{Start: r.openAssistant.start, End: t, Data: r.openAssistant.data})
		}
		r.openAssistant = nil
	}
}

// HasAudio reports whether any audio was ever captured.
func (r *Recorder) HasAudio() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.callerSegments) > 0 || len(r.assistantSegments) > 0 {
		return true
	}
	if r.openCaller != nil && len(r.openCaller.data) > 0 {
		return true
	}
	if r.openAssistant != nil && len(r.openAssistant.data) > 0 {
		return true
	}
	return false
}

// CallerAudio returns the captured caller audio concatenated in timeline
// order, including any still-open segment. Used for fallback transcription
// when the live recognizer produced no text.
func (r *Recorder) CallerAudio() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []byte
	for _, s := range r.callerSegments {
		out = append(out, s.Data...)
	}
	if r.openCaller != nil {
		out = append(out, r.openCaller.data...)
	}
	return out
}

// finalize closes any open segments at now and returns snapshots of both
// segment lists. Recording stops.
func (r *Recorder) finalize(now float64) (caller, assistant []Segment) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.recording = false
	if r.openCaller != nil {
		if len(r.openCaller.data) > 0 {
			r.callerSegments = append(r.callerSegments, Segment{Start: r.openCaller.start, End: now, Data: r.openCaller.data})
		}
		r.openCaller = nil
	}
	if r.openAssistant != nil {
		if len(r.openAssistant.data) > 0 {
			r.assistantSegments = append(r.assistantSegments, Segment{Start: r.openAssistant.start, End: now, Data: r.openAssistant.data})
		}
		r.openAssistant = nil
	}
	return r.callerSegments, r.assistantSegments
}

// Duration returns the recording length in seconds: the latest end offset of
// any closed segment.
func (r *Recorder) Duration() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var max float64
	for _, s := range r.callerSegments {
		if s.End > max {
			max = s.End
		}
	}
	for _, s := range r.assistantSegments {
		if s.End > max {
			max = s.End
		}
	}
	return max
}
