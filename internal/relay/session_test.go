package relay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/MKA06/luron-voice/internal/events"
	"github.com/MKA06/luron-voice/internal/models"
	"github.com/MKA06/luron-voice/internal/providers/llm"
	"github.com/MKA06/luron-voice/internal/providers/stt"
	"github.com/MKA06/luron-voice/internal/providers/tts"
	"github.com/MKA06/luron-voice/internal/telephony"
	"github.com/MKA06/luron-voice/internal/tools"
)

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// fakeConn scripts the telephony leg: the test pushes frames and observes
// outbound audio and clear messages.
type fakeConn struct {
	frames chan *telephony.Frame

	mu     sync.Mutex
	sent   [][]byte
	clears int
	sid    string

	audioSent chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		frames:    make(chan *telephony.Frame, 8),
		audioSent: make(chan struct{}, 8),
		closed:    make(chan struct{}),
	}
}

func (c *fakeConn) ReadFrame() (*telephony.Frame, error) {
	select {
	case f := <-c.frames:
		return f, nil
	case <-c.closed:
		return nil, errors.New("connection closed")
	}
}

func (c *fakeConn) SendAudio(audio []byte) error {
	c.mu.Lock()
	c.sent = append(c.sent, audio)
	c.mu.Unlock()
	select {
	case c.audioSent <- struct{}{}:
	default:
	}
	return nil
}

func (c *fakeConn) SendClear() error {
	c.mu.Lock()
	c.clears++
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) SetStreamSid(sid string) { c.mu.Lock(); c.sid = sid; c.mu.Unlock() }
func (c *fakeConn) StreamSid() string       { c.mu.Lock(); defer c.mu.Unlock(); return c.sid }

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) clearCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clears
}

func (c *fakeConn) sentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

type fakeSTTStream struct {
	results   chan stt.Result
	closeOnce sync.Once
}

func (s *fakeSTTStream) Send([]byte) error          { return nil }
func (s *fakeSTTStream) Results() <-chan stt.Result { return s.results }

func (s *fakeSTTStream) Close() error {
	s.closeOnce.Do(func() { close(s.results) })
	return nil
}

type fakeSTTDialer struct{ stream *fakeSTTStream }

func (d *fakeSTTDialer) Dial(context.Context, string) (stt.Stream, error) { return d.stream, nil }

// fakeTTSStream echoes each text fragment back as one fixed-size audio chunk
// and answers Flush with a Final chunk.
type fakeTTSStream struct {
	mu     sync.Mutex
	chunks chan tts.Chunk
	texts  []string
	closed bool
}

func newFakeTTSStream() *fakeTTSStream {
	return &fakeTTSStream{chunks: make(chan tts.Chunk, 32)}
}

func (s *fakeTTSStream) SendText(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("stream closed")
	}
	s.texts = append(s.texts, text)
	s.chunks <- tts.Chunk{Audio: make([]byte, 160)}
	return nil
}

func (s *fakeTTSStream) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("stream closed")
	}
	s.chunks <- tts.Chunk{Final: true}
	return nil
}

func (s *fakeTTSStream) Chunks() <-chan tts.Chunk { return s.chunks }

func (s *fakeTTSStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.chunks)
	}
	return nil
}

func (s *fakeTTSStream) sentTexts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.texts))
	copy(out, s.texts)
	return out
}

type fakeTTSDialer struct{ stream *fakeTTSStream }

func (d *fakeTTSDialer) Dial(context.Context, string) (tts.Stream, error) { return d.stream, nil }

// fakeLLM streams a scripted response for every turn.
type fakeLLM struct {
	deltas []string
}

func (f *fakeLLM) Name() string { return "fake" }

func (f *fakeLLM) StreamTurn(ctx context.Context, _ []llm.Message, _ []llm.ToolDefinition) <-chan llm.Event {
	ch := make(chan llm.Event)
	go func() {
		defer close(ch)
		for _, d := range f.deltas {
			select {
			case ch <- llm.Event{TextDelta: d}:
			case <-ctx.Done():
				return
			}
		}
		select {
		case ch <- llm.Event{Done: true}:
		case <-ctx.Done():
		}
	}()
	return ch
}

func testDeps(sttStream *fakeSTTStream, ttsStream *fakeTTSStream, provider llm.Provider) Deps {
	return Deps{
		Log:       testLog(),
		STT:       &fakeSTTDialer{stream: sttStream},
		TTS:       &fakeTTSDialer{stream: ttsStream},
		LLM:       provider,
		Tools:     tools.NewRegistry(),
		Publisher: events.NewPublisher(nil),
	}
}

func testCallAgent() (*models.Call, *models.Agent) {
	call := &models.Call{ID: "call-1", TwilioCallSid: "CA123", FromNumber: "+15550100", UserID: "user-1"}
	agent := &models.Agent{ID: "agent-1", UserID: "user-1", Prompt: "You answer phones.", WelcomeMessage: "Hello!"}
	return call, agent
}

func TestSessionEndToEndTurn(t *testing.T) {
	sttStream := &fakeSTTStream{results: make(chan stt.Result, 8)}
	ttsStream := newFakeTTSStream()
	conn := newFakeConn()
	call, agent := testCallAgent()

	s := NewSession(call, agent, conn, testDeps(sttStream, ttsStream, &fakeLLM{deltas: []string{"Hi ", "there."}}))

	outcomeCh := make(chan *Outcome, 1)
	go func() {
		out, err := s.Run(context.Background())
		if err != nil {
			t.Errorf("Run: %v", err)
		}
		outcomeCh <- out
	}()

	// A finalized caller utterance triggers one model turn.
	sttStream.results <- stt.Result{Transcript: "What are your hours", IsFinal: true, SpeechFinal: true}

	select {
	case <-conn.audioSent:
	case <-time.After(3 * time.Second):
		t.Fatal("no audio reached the caller")
	}

	conn.frames <- &telephony.Frame{Event: telephony.EventStop}

	var out *Outcome
	select {
	case out = <-outcomeCh:
	case <-time.After(5 * time.Second):
		t.Fatal("session did not finish")
	}

	wantTurns := []TranscriptTurn{
		{Role: "assistant", Text: "Hello!"},
		{Role: "user", Text: "What are your hours"},
		{Role: "assistant", Text: "Hi there."},
	}
	if !reflect.DeepEqual(out.Turns, wantTurns) {
		t.Errorf("turns = %+v, want %+v", out.Turns, wantTurns)
	}
	if out.EndedByTool {
		t.Error("call should not be marked tool-ended")
	}

	texts := ttsStream.sentTexts()
	if len(texts) != 1 || texts[0] != "Hi there." {
		t.Errorf("tts texts = %v, want [Hi there.]", texts)
	}
	if conn.clearCount() != 0 {
		t.Error("clear sent without a barge-in")
	}
}

func TestBargeInSequence(t *testing.T) {
	sttStream := &fakeSTTStream{results: make(chan stt.Result, 8)}
	ttsStream := newFakeTTSStream()
	conn := newFakeConn()
	call, agent := testCallAgent()

	s := NewSession(call, agent, conn, testDeps(sttStream, ttsStream, &fakeLLM{}))
	s.assistantSpeaking.Store(true)
	oldGen := s.generation.Load()
	s.ttsQueue <- ttsUnit{gen: oldGen, text: "stale sentence"}

	s.bargeIn()

	if got := s.generation.Load(); got != oldGen+1 {
		t.Errorf("generation = %d, want %d", got, oldGen+1)
	}
	if !s.cancelRequested.Load() {
		t.Error("cancel not requested")
	}
	if s.assistantSpeaking.Load() {
		t.Error("assistant still marked speaking")
	}
	if conn.clearCount() != 1 {
		t.Errorf("clear count = %d, want 1", conn.clearCount())
	}
	select {
	case u := <-s.ttsQueue:
		t.Errorf("queue not drained, found %q", u.text)
	default:
	}
	select {
	case <-s.flushTTS:
	default:
		t.Error("flush not signaled")
	}
}

func TestStaleAudioDroppedAfterBargeIn(t *testing.T) {
	sttStream := &fakeSTTStream{results: make(chan stt.Result, 8)}
	ttsStream := newFakeTTSStream()
	conn := newFakeConn()
	call, agent := testCallAgent()

	s := NewSession(call, agent, conn, testDeps(sttStream, ttsStream, &fakeLLM{deltas: []string{"A long answer."}}))

	outcomeCh := make(chan *Outcome, 1)
	go func() {
		out, err := s.Run(context.Background())
		if err != nil {
			t.Errorf("Run: %v", err)
		}
		outcomeCh <- out
	}()

	sttStream.results <- stt.Result{Transcript: "Tell me everything", IsFinal: true, SpeechFinal: true}

	select {
	case <-conn.audioSent:
	case <-time.After(3 * time.Second):
		t.Fatal("no audio reached the caller before the barge-in")
	}
	before := conn.sentCount()

	s.bargeIn()

	// Synthesis already in flight keeps producing after the interruption.
	// Its output carries the superseded generation and must never reach
	// the telephony leg.
	ttsStream.chunks <- tts.Chunk{Audio: make([]byte, 160)}

	select {
	case <-conn.audioSent:
		t.Fatal("stale audio reached the telephony leg")
	case <-time.After(200 * time.Millisecond):
	}
	if got := conn.sentCount(); got != before {
		t.Errorf("sent chunks = %d, want %d", got, before)
	}

	conn.frames <- &telephony.Frame{Event: telephony.EventStop}
	select {
	case <-outcomeCh:
	case <-time.After(5 * time.Second):
		t.Fatal("session did not finish")
	}
}

func TestSplitSentences(t *testing.T) {
	cases := []struct {
		in       string
		complete []string
		rest     string
	}{
		{"Hello there. How are", []string{"Hello there."}, "How are"},
		{"One! Two? Three", []string{"One!", "Two?"}, "Three"},
		{"Done.", []string{"Done."}, ""},
		{"no boundary yet", nil, "no boundary yet"},
		{"", nil, ""},
	}
	for _, c := range cases {
		complete, rest := splitSentences(c.in)
		if !reflect.DeepEqual(complete, c.complete) || rest != c.rest {
			t.Errorf("splitSentences(%q) = %v, %q; want %v, %q", c.in, complete, rest, c.complete, c.rest)
		}
	}
}

func TestInjectCallContext(t *testing.T) {
	call, agent := testCallAgent()
	s := &Session{call: call, agent: agent}

	out := s.injectCallContext(json.RawMessage(`{"days_ahead":3,"user_id":"spoofed"}`))

	var args map[string]any
	if err := json.Unmarshal(out, &args); err != nil {
		t.Fatalf("output not JSON: %v", err)
	}
	if args["user_id"] != "user-1" {
		t.Errorf("user_id = %v, model-supplied value must be overridden", args["user_id"])
	}
	if args["caller_number"] != "+15550100" {
		t.Errorf("caller_number = %v", args["caller_number"])
	}
	if args["days_ahead"] != float64(3) {
		t.Errorf("days_ahead = %v, original arguments must survive", args["days_ahead"])
	}
}
