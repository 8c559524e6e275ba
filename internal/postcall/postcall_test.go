package postcall

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/MKA06/luron-voice/internal/models"
	"github.com/MKA06/luron-voice/internal/recording"
	"github.com/MKA06/luron-voice/internal/relay"
)

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

type fakeAnalyzer struct {
	out string
	err error
}

func (f *fakeAnalyzer) Complete(context.Context, string, string) (string, error) {
	return f.out, f.err
}

func TestAssembleTranscriptRendersRoles(t *testing.T) {
	p := &Processor{log: testLog()}
	out := &relay.Outcome{
		Call:     &models.Call{ID: "c1"},
		Recorder: recording.NewRecorder(8000),
		Turns: []relay.TranscriptTurn{
			{Role: "assistant", Text: "Hello!"},
			{Role: "user", Text: "Hi, I need an appointment."},
			{Role: "tool", Text: `{"availability":"..."}`, ToolName: "get_availability"},
			{Role: "assistant", Text: "Sure, when works for you?"},
		},
	}

	transcript := p.assembleTranscript(context.Background(), out, p.log)

	want := "Assistant: Hello!\nUser: Hi, I need an appointment.\nAssistant: Sure, when works for you?"
	if transcript != want {
		t.Errorf("transcript = %q, want %q", transcript, want)
	}
	if strings.Contains(transcript, "get_availability") {
		t.Error("tool turns must not leak into the transcript")
	}
}

func TestDeriveDispositionHeuristic(t *testing.T) {
	p := &Processor{log: testLog()}
	ctx := context.Background()

	if got := p.deriveDisposition(ctx, "User: hi\nAssistant: hello", p.log); got != models.DispositionSuccess {
		t.Errorf("two-sided transcript = %q, want success", got)
	}
	if got := p.deriveDisposition(ctx, "Assistant: hello", p.log); got != models.DispositionFailed {
		t.Errorf("one-sided transcript = %q, want failed", got)
	}
	if got := p.deriveDisposition(ctx, "", p.log); got != models.DispositionFailed {
		t.Errorf("empty transcript = %q, want failed", got)
	}
}

func TestDeriveDispositionAnalyzer(t *testing.T) {
	ctx := context.Background()

	p := &Processor{log: testLog(), analyzer: &fakeAnalyzer{out: " SUCCESS \n"}}
	if got := p.deriveDisposition(ctx, "Assistant: hello", p.log); got != models.DispositionSuccess {
		t.Errorf("analyzer verdict = %q, want success", got)
	}

	// Nonsense labels fall back to the heuristic.
	p = &Processor{log: testLog(), analyzer: &fakeAnalyzer{out: "maybe?"}}
	if got := p.deriveDisposition(ctx, "User: hi\nAssistant: hello", p.log); got != models.DispositionSuccess {
		t.Errorf("fallback = %q, want success", got)
	}

	// Analyzer failure also falls back.
	p = &Processor{log: testLog(), analyzer: &fakeAnalyzer{err: errors.New("quota")}}
	if got := p.deriveDisposition(ctx, "Assistant: hello", p.log); got != models.DispositionFailed {
		t.Errorf("error fallback = %q, want failed", got)
	}
}

func TestDeriveIntent(t *testing.T) {
	ctx := context.Background()

	p := &Processor{log: testLog(), analyzer: &fakeAnalyzer{out: " Appointment scheduling \n"}}
	if got := p.deriveIntent(ctx, "User: book me in", p.log); got != "Appointment scheduling" {
		t.Errorf("intent = %q", got)
	}

	if got := p.deriveIntent(ctx, "", p.log); got != "" {
		t.Errorf("empty transcript intent = %q, want empty", got)
	}

	p = &Processor{log: testLog()}
	if got := p.deriveIntent(ctx, "User: hello", p.log); got != "" {
		t.Errorf("nil analyzer intent = %q, want empty", got)
	}
}
