//go:build !windows

package sandbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessCompletes(t *testing.T) {
	p := NewProcess("sh")
	exec, err := p.Run(context.Background(), "echo hello", Limits{Timeout: 5 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, exec.Status)
	assert.Equal(t, "hello\n", exec.Stdout)
}

func TestProcessSnippetFailure(t *testing.T) {
	p := NewProcess("sh")
	exec, err := p.Run(context.Background(), "exit 3", Limits{Timeout: 5 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, StatusErrored, exec.Status)
	assert.NotEmpty(t, exec.Err)
}

func TestProcessTimeoutKillsGroup(t *testing.T) {
	p := NewProcess("sh")
	start := time.Now()
	exec, err := p.Run(context.Background(), "sleep 30", Limits{Timeout: 100 * time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, StatusTimedOut, exec.Status)
	assert.Nil(t, exec.Value)
	assert.NotEmpty(t, exec.Err)
	// the process was killed, not waited on for the full 30s
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestProcessOutputCeiling(t *testing.T) {
	p := NewProcess("sh")
	exec, err := p.Run(context.Background(), "yes | head -c 100000", Limits{Timeout: 10 * time.Second, MaxOutputBytes: 1024})
	require.NoError(t, err)
	assert.Equal(t, StatusResourceExceeded, exec.Status)
	assert.LessOrEqual(t, len(exec.Stdout), 1024)
}

func TestProcessRequiresCommand(t *testing.T) {
	_, err := (&Process{}).Run(context.Background(), "echo hi", Limits{})
	assert.Error(t, err)
}
