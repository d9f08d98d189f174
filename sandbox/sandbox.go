// Package sandbox isolates execution of untrusted code under wall-clock and
// output ceilings. Expected failures (timeout, resource ceiling, snippet
// error) are reported inside the Execution, never as a Go error; a Go error
// from Run means the environment itself could not be set up.
package sandbox

import (
	"context"
	"time"
)

// Status is the terminal state of a single execution.
type Status string

const (
	StatusIdle             Status = "idle"
	StatusRunning          Status = "running"
	StatusCompleted        Status = "completed"
	StatusTimedOut         Status = "timed_out"
	StatusResourceExceeded Status = "resource_exceeded"
	StatusErrored          Status = "errored"
)

// Limits bound a single execution. MaxMemoryMB is enforced by the local tier
// (allocation cap in the evaluator) and forwarded to the remote execution
// service; the process tier cannot enforce it portably and relies on the
// timeout alone.
type Limits struct {
	Timeout        time.Duration
	MaxOutputBytes int
	MaxMemoryMB    int
}

// DefaultLimits mirror the production ceilings.
func DefaultLimits() Limits {
	return Limits{
		Timeout:        30 * time.Second,
		MaxOutputBytes: 64 * 1024,
		MaxMemoryMB:    512,
	}
}

// Execution is the outcome of one sandboxed run.
type Execution struct {
	Status   Status
	Stdout   string
	Value    any
	Duration time.Duration
	// Err describes the expected failure for non-completed statuses. It is
	// informational; callers branch on Status.
	Err string
}

// Sandbox executes an untrusted snippet. A TimedOut execution guarantees the
// underlying context is reclaimed, never left running in the background.
type Sandbox interface {
	Run(ctx context.Context, code string, limits Limits) (*Execution, error)
	Name() string
}
