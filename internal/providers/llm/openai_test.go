package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func sseServer(deltas int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for i := 0; i < deltas; i++ {
			fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"word "}}]}`+"\n\n")
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
}

func TestStreamTurnDeliversDeltasAndDone(t *testing.T) {
	srv := sseServer(3)
	defer srv.Close()

	p := &OpenAIProvider{apiKey: "k", url: srv.URL, model: "m", client: srv.Client()}
	ch := p.StreamTurn(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil)

	var text strings.Builder
	sawDone := false
	for ev := range ch {
		if ev.Err != nil {
			t.Fatalf("stream error: %v", ev.Err)
		}
		if ev.Done {
			sawDone = true
			continue
		}
		text.WriteString(ev.TextDelta)
	}
	if !sawDone {
		t.Error("no done event")
	}
	if text.String() != "word word word " {
		t.Errorf("text = %q", text.String())
	}
}

func TestStreamTurnCancelReleasesProducer(t *testing.T) {
	// Exactly enough deltas to fill the event buffer, so the producer
	// reaches the trailing done send with no room left.
	srv := sseServer(32)
	defer srv.Close()

	p := &OpenAIProvider{apiKey: "k", url: srv.URL, model: "m", client: srv.Client()}
	ctx, cancel := context.WithCancel(context.Background())
	ch := p.StreamTurn(ctx, []Message{{Role: "user", Content: "hi"}}, nil)

	// Read nothing, as an abandoned turn would, then cancel.
	time.Sleep(50 * time.Millisecond)
	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("event channel never closed after cancel")
		}
	}
}
