package sandbox

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"
)

// Process executes a command in a separate OS process, the heavier isolation
// tier. The command is placed in its own process group; on timeout the whole
// group is killed so spawned children are never left running.
//
// Limits.MaxMemoryMB is not enforced at this tier: os/exec offers no portable
// rlimit control, so memory is bounded only by the timeout and the host.
// Deployments needing a hard memory cap use the remote tier.
type Process struct {
	// Command and Args name the interpreter to run; the snippet is passed on
	// stdin.
	Command string
	Args    []string
}

// NewProcess builds a process-tier sandbox around the given command.
func NewProcess(command string, args ...string) *Process {
	return &Process{Command: command, Args: args}
}

// Name implements Sandbox.
func (p *Process) Name() string { return "process" }

// Run implements Sandbox.
func (p *Process) Run(ctx context.Context, code string, limits Limits) (*Execution, error) {
	if p.Command == "" {
		return nil, errors.New("sandbox: process tier has no command configured")
	}
	if limits.Timeout <= 0 {
		limits.Timeout = DefaultLimits().Timeout
	}
	if limits.MaxOutputBytes <= 0 {
		limits.MaxOutputBytes = DefaultLimits().MaxOutputBytes
	}

	runCtx, cancel := context.WithTimeout(ctx, limits.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, p.Command, p.Args...)
	cmd.Stdin = bytes.NewReader([]byte(code))
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &cappedWriter{buf: &stdout, max: limits.MaxOutputBytes}
	cmd.Stderr = &stderr
	configureProcess(cmd)
	cmd.Cancel = func() error {
		terminateProcess(cmd)
		return nil
	}

	start := time.Now()
	runErr := cmd.Run()
	exec := &Execution{
		Stdout:   stdout.String(),
		Duration: time.Since(start),
	}
	switch {
	case runCtx.Err() == context.DeadlineExceeded:
		exec.Status = StatusTimedOut
		exec.Err = "execution timeout exceeded"
	case errors.Is(runErr, errOutputCeiling):
		exec.Status = StatusResourceExceeded
		exec.Err = "output ceiling exceeded"
	case runErr != nil:
		exec.Status = StatusErrored
		exec.Err = firstNonEmpty(stderr.String(), runErr.Error())
	default:
		exec.Status = StatusCompleted
		exec.Value = stdout.String()
	}
	return exec, nil
}

type cappedWriter struct {
	buf *bytes.Buffer
	max int
}

func (w *cappedWriter) Write(p []byte) (int, error) {
	if w.buf.Len()+len(p) > w.max {
		room := w.max - w.buf.Len()
		if room > 0 {
			w.buf.Write(p[:room])
		}
		return len(p), errOutputCeiling
	}
	return w.buf.Write(p)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
