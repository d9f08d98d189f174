// Package queue is an in-process job queue for long-running render work. Jobs
// carry at-least-once semantics with a bounded retry count and are polled
// out-of-band by id, decoupling request paths from render duration.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Lewis121025/Generate-Agent/logging"
)

// Status is a job's lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// ErrUnknownJob is returned when polling an id the queue has never seen.
var ErrUnknownJob = errors.New("queue: unknown job")

// DefaultMaxAttempts bounds retries for transient provider faults.
const DefaultMaxAttempts = 3

// Job is the pollable record of one unit of work.
type Job struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Status    Status    `json:"status"`
	Attempts  int       `json:"attempts"`
	Result    any       `json:"result,omitempty"`
	Err       string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Handler executes one job payload.
type Handler func(ctx context.Context, payload any) (any, error)

type task struct {
	id      string
	payload any
}

// Queue runs registered handlers on a fixed worker pool.
type Queue struct {
	mu       sync.Mutex
	jobs     map[string]*Job
	payloads map[string]any
	handlers map[string]Handler

	tasks       chan task
	maxAttempts int
	logger      logging.Logger

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// Options configure a Queue.
type Options struct {
	Workers     int
	MaxAttempts int
	Logger      logging.Logger
}

// New starts a queue with its worker pool.
func New(optFns ...func(o *Options)) *Queue {
	opts := Options{
		Workers:     2,
		MaxAttempts: DefaultMaxAttempts,
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	q := &Queue{
		jobs:        make(map[string]*Job),
		payloads:    make(map[string]any),
		handlers:    make(map[string]Handler),
		tasks:       make(chan task, 128),
		maxAttempts: opts.MaxAttempts,
		logger:      opts.Logger,
		done:        make(chan struct{}),
	}
	for i := 0; i < opts.Workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

// RegisterHandler binds a job kind to its handler. Registration happens at
// startup, before jobs of that kind are enqueued.
func (q *Queue) RegisterHandler(kind string, h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[kind] = h
}

// Enqueue submits a job and returns its id for polling.
func (q *Queue) Enqueue(kind string, payload any) (string, error) {
	q.mu.Lock()
	if _, ok := q.handlers[kind]; !ok {
		q.mu.Unlock()
		return "", fmt.Errorf("queue: no handler registered for kind %q", kind)
	}
	id := uuid.NewString()
	now := time.Now()
	q.jobs[id] = &Job{ID: id, Kind: kind, Status: StatusPending, CreatedAt: now, UpdatedAt: now}
	q.payloads[id] = payload
	q.mu.Unlock()

	select {
	case q.tasks <- task{id: id, payload: payload}:
		return id, nil
	case <-q.done:
		return "", errors.New("queue: closed")
	}
}

// Status returns a snapshot of the job.
func (q *Queue) Status(id string) (Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[id]
	if !ok {
		return Job{}, ErrUnknownJob
	}
	return *job, nil
}

// Await polls until the job reaches a terminal status or the context expires.
func (q *Queue) Await(ctx context.Context, id string, pollInterval time.Duration) (Job, error) {
	if pollInterval <= 0 {
		pollInterval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		job, err := q.Status(id)
		if err != nil {
			return Job{}, err
		}
		if job.Status == StatusCompleted || job.Status == StatusFailed {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close stops the workers. Pending jobs are abandoned in their current state.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		close(q.done)
	})
	q.wg.Wait()
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.done:
			return
		case t := <-q.tasks:
			q.runTask(t)
		}
	}
}

func (q *Queue) runTask(t task) {
	q.mu.Lock()
	job, ok := q.jobs[t.id]
	if !ok {
		q.mu.Unlock()
		return
	}
	handler := q.handlers[job.Kind]
	job.Status = StatusRunning
	job.Attempts++
	job.UpdatedAt = time.Now()
	attempt := job.Attempts
	kind := job.Kind
	q.mu.Unlock()

	result, err := handler(context.Background(), t.payload)

	q.mu.Lock()
	job.UpdatedAt = time.Now()
	if err == nil {
		job.Status = StatusCompleted
		job.Result = result
		job.Err = ""
		q.mu.Unlock()
		return
	}
	job.Err = err.Error()
	if attempt >= q.maxAttempts {
		job.Status = StatusFailed
		q.mu.Unlock()
		q.logger.Error("job failed permanently", "kind", kind, "job", t.id, "attempts", attempt, "error", err.Error())
		return
	}
	job.Status = StatusPending
	q.mu.Unlock()
	q.logger.Warn("job attempt failed, retrying", "kind", kind, "job", t.id, "attempt", attempt, "error", err.Error())
	q.requeue(t, job)
}

// requeue re-submits a retryable task without blocking the worker. The send
// waits for channel space rather than dropping the retry under load; a
// shutdown while waiting marks the job failed instead of losing it silently.
func (q *Queue) requeue(t task, job *Job) {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		select {
		case q.tasks <- t:
		case <-q.done:
			q.mu.Lock()
			if job.Status == StatusPending {
				job.Status = StatusFailed
				job.UpdatedAt = time.Now()
			}
			q.mu.Unlock()
		}
	}()
}
