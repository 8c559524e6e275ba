package tools

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

type stubTool struct {
	name    string
	delay   time.Duration
	result  any
	err     error
	started chan string
}

func (t *stubTool) Name() string               { return t.name }
func (t *stubTool) Description() string        { return "stub" }
func (t *stubTool) Parameters() map[string]any { return map[string]any{"type": "object"} }

func (t *stubTool) Execute(ctx context.Context, _ json.RawMessage) (any, error) {
	if t.started != nil {
		t.started <- t.name
	}
	if t.delay > 0 {
		select {
		case <-time.After(t.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return t.result, t.err
}

type resultCollector struct {
	mu   sync.Mutex
	jobs []*Job
	ch   chan *Job
}

func newResultCollector() *resultCollector {
	return &resultCollector{ch: make(chan *Job, 64)}
}

func (c *resultCollector) onResult(job *Job) {
	c.mu.Lock()
	c.jobs = append(c.jobs, job)
	c.mu.Unlock()
	c.ch <- job
}

func (c *resultCollector) wait(t *testing.T, n int) []*Job {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-c.ch:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for result %d of %d", i+1, n)
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Job, len(c.jobs))
	copy(out, c.jobs)
	return out
}

func TestDispatcherUnknownTool(t *testing.T) {
	reg := NewRegistry()
	col := newResultCollector()
	d := NewDispatcher(reg, col.onResult, testLog())
	d.Start(context.Background())
	defer d.Close(time.Second)

	d.Enqueue(&Job{ID: "1", Name: "nope"})

	jobs := col.wait(t, 1)
	if jobs[0].Status != StatusError {
		t.Errorf("status = %q, want error", jobs[0].Status)
	}
	if !strings.Contains(string(jobs[0].Result), "unknown tool") {
		t.Errorf("result = %s, want unknown tool error", jobs[0].Result)
	}
}

func TestDispatcherFIFOOrder(t *testing.T) {
	reg := NewRegistry(
		&stubTool{name: "slow", delay: 50 * time.Millisecond, result: map[string]string{"v": "first"}},
		&stubTool{name: "fast", result: map[string]string{"v": "second"}},
	)
	col := newResultCollector()
	d := NewDispatcher(reg, col.onResult, testLog())
	d.Start(context.Background())
	defer d.Close(time.Second)

	// Both queued before either runs; the single worker must preserve order.
	d.Enqueue(&Job{ID: "1", Name: "slow"})
	d.Enqueue(&Job{ID: "2", Name: "fast"})

	jobs := col.wait(t, 2)
	if jobs[0].Name != "slow" || jobs[1].Name != "fast" {
		t.Errorf("completion order = %s, %s; want slow, fast", jobs[0].Name, jobs[1].Name)
	}
}

func TestDispatcherFailingToolReportsError(t *testing.T) {
	reg := NewRegistry(&stubTool{name: "boom", err: errors.New("backend down")})
	col := newResultCollector()
	d := NewDispatcher(reg, col.onResult, testLog())
	d.Start(context.Background())
	defer d.Close(time.Second)

	d.Enqueue(&Job{ID: "1", Name: "boom"})

	jobs := col.wait(t, 1)
	if jobs[0].Status != StatusError {
		t.Errorf("status = %q, want error", jobs[0].Status)
	}
	var payload map[string]string
	if err := json.Unmarshal(jobs[0].Result, &payload); err != nil {
		t.Fatalf("result not JSON: %v", err)
	}
	if !strings.Contains(payload["error"], "backend down") {
		t.Errorf("error payload = %q", payload["error"])
	}
}

func TestDispatcherCloseDrainsQueued(t *testing.T) {
	reg := NewRegistry(&stubTool{name: "ok", result: map[string]string{"v": "done"}})
	col := newResultCollector()
	d := NewDispatcher(reg, col.onResult, testLog())
	d.Start(context.Background())

	d.Enqueue(&Job{ID: "1", Name: "ok"})
	d.Enqueue(&Job{ID: "2", Name: "ok"})
	d.Close(2 * time.Second)

	jobs := col.wait(t, 2)
	if len(jobs) != 2 {
		t.Fatalf("expected 2 drained jobs, got %d", len(jobs))
	}
	if d.Enqueue(&Job{ID: "3", Name: "ok"}) {
		t.Error("enqueue after close should fail")
	}
}

func TestDispatcherCloseWithBlockedEnqueue(t *testing.T) {
	started := make(chan string, 1)
	reg := NewRegistry(
		&stubTool{name: "slow", delay: 100 * time.Millisecond, started: started},
		&stubTool{name: "fast", result: map[string]string{"v": "ok"}},
	)
	col := newResultCollector()
	d := NewDispatcher(reg, col.onResult, testLog())
	d.Start(context.Background())

	// Occupy the worker, then fill the queue so the next Enqueue parks on
	// the send.
	d.Enqueue(&Job{ID: "0", Name: "slow"})
	<-started
	for i := 0; i < dispatcherQueueDepth; i++ {
		if !d.Enqueue(&Job{ID: "fill", Name: "fast"}) {
			t.Fatal("fill enqueue rejected")
		}
	}

	parked := make(chan bool)
	go func() { parked <- d.Enqueue(&Job{ID: "last", Name: "fast"}) }()
	time.Sleep(20 * time.Millisecond)

	// Close while the producer is parked. It must not panic; the parked
	// job is either accepted and drained or cleanly rejected.
	d.Close(5 * time.Second)

	accepted := dispatcherQueueDepth + 1
	select {
	case ok := <-parked:
		if ok {
			accepted++
		}
	case <-time.After(2 * time.Second):
		t.Fatal("parked enqueue never returned")
	}

	jobs := col.wait(t, accepted)
	if len(jobs) != accepted {
		t.Fatalf("results = %d, want %d", len(jobs), accepted)
	}
	for _, j := range jobs {
		if j.Status != StatusDone {
			t.Errorf("job %s status = %q, want done", j.ID, j.Status)
		}
	}
}

func TestRegistryDefinitions(t *testing.T) {
	reg := NewRegistry(&stubTool{name: "a"}, &stubTool{name: "b"})

	defs := reg.Definitions([]string{"a", "missing", "b"})
	if len(defs) != 2 {
		t.Fatalf("expected 2 definitions, got %d", len(defs))
	}
	if defs[0].Name != "a" || defs[1].Name != "b" {
		t.Errorf("definitions = %s, %s", defs[0].Name, defs[1].Name)
	}

	if defs := reg.Definitions(nil); len(defs) != 0 {
		t.Errorf("expected no definitions for empty selection, got %d", len(defs))
	}
}
