package tools

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Job statuses.
const (
	StatusPending = "pending"
	StatusRunning = "running"
	StatusDone    = "done"
	StatusError   = "error"
)

// Job is one model-requested tool invocation.
type Job struct {
	ID        string
	Name      string
	Arguments json.RawMessage
	Status    string
	Result    json.RawMessage
}

// Dispatcher runs a session's tool jobs on a single worker so slow external
// lookups never stall the live audio path. Jobs are dequeued FIFO; each job's
// completion independently reports a result.
//
// Every job, whether it succeeds, fails, or names an unknown tool, produces
// exactly one result callback. A failing tool must never leave the model
// waiting silently.
type Dispatcher struct {
	registry *Registry
	log      *logrus.Entry

	// onResult receives the finished job with Result populated. Called from
	// the worker goroutine, once per job.
	onResult func(job *Job)

	// mu orders Enqueue against Close: the queue is only closed while no
	// producer holds the lock, so a parked send can never hit a closed
	// channel.
	mu     sync.Mutex
	jobs   chan *Job
	done   chan struct{}
	closed bool
}

const dispatcherQueueDepth = 16

func NewDispatcher(registry *Registry, onResult func(job *Job), log *logrus.Entry) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		log:      log,
		onResult: onResult,
		jobs:     make(chan *Job, dispatcherQueueDepth),
		done:     make(chan struct{}),
	}
	return d
}

// Start launches the worker loop.
func (d *Dispatcher) Start(ctx context.Context) {
	go d.run(ctx)
}

// Enqueue queues a job. Returns false after Close. Safe to call from the
// session goroutines while Close runs on another.
func (d *Dispatcher) Enqueue(job *Job) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	job.Status = StatusPending
	select {
	case d.jobs <- job:
		return true
	case <-d.done:
		return false
	}
}

// Close signals shutdown by closing the queue, then waits for the worker to
// drain, bounded by timeout.
func (d *Dispatcher) Close(timeout time.Duration) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()

	select {
	case <-d.done:
	case <-time.After(timeout):
		d.log.Warn("tool worker did not drain before timeout")
	}
}

func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.done)
	for job := range d.jobs {
		d.execute(ctx, job)
		d.onResult(job)
	}
}

func (d *Dispatcher) execute(ctx context.Context, job *Job) {
	job.Status = StatusRunning
	log := d.log.WithFields(logrus.Fields{"tool": job.Name, "job_id": job.ID})

	tool, ok := d.registry.Get(job.Name)
	if !ok {
		log.Warn("unknown tool requested")
		job.Status = StatusError
		job.Result = mustJSON(map[string]string{"error": "unknown tool"})
		return
	}

	result, err := tool.Execute(ctx, job.Arguments)
	if err != nil {
		// Captured as a structured result so the model can recover verbally.
		log.WithError(err).Error("tool execution failed")
		job.Status = StatusError
		job.Result = mustJSON(map[string]string{"error": err.Error()})
		return
	}

	payload, err := json.Marshal(result)
	if err != nil {
		log.WithError(err).Error("tool result not serializable")
		job.Status = StatusError
		job.Result = mustJSON(map[string]string{"error": "tool result not serializable"})
		return
	}
	job.Status = StatusDone
	job.Result = payload
}

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}
