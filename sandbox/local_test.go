package sandbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runLocal(t *testing.T, code string, limits Limits) *Execution {
	t.Helper()
	exec, err := NewLocal("development").Run(context.Background(), code, limits)
	require.NoError(t, err)
	return exec
}

func TestLocalArithmetic(t *testing.T) {
	exec := runLocal(t, "x = 2 + 3 * 4\nx", Limits{})
	assert.Equal(t, StatusCompleted, exec.Status)
	assert.Equal(t, 14.0, exec.Value)
}

func TestLocalBuiltinsAndPrint(t *testing.T) {
	exec := runLocal(t, `
values = [3, 1, 4, 1, 5]
print("total", sum(values))
print(max(2, 9, 4))
sqrt(16)
`, Limits{})
	assert.Equal(t, StatusCompleted, exec.Status)
	assert.Equal(t, "total 14\n9\n", exec.Stdout)
	assert.Equal(t, 4.0, exec.Value)
}

func TestLocalRepeat(t *testing.T) {
	exec := runLocal(t, "x = 0\nrepeat 10 { x = x + 2 }\nx", Limits{})
	assert.Equal(t, StatusCompleted, exec.Status)
	assert.Equal(t, 20.0, exec.Value)
}

func TestLocalSnippetErrorIsReportedNotRaised(t *testing.T) {
	exec := runLocal(t, "1 / 0", Limits{})
	assert.Equal(t, StatusErrored, exec.Status)
	assert.Contains(t, exec.Err, "division by zero")
	assert.Nil(t, exec.Value)

	exec = runLocal(t, "undefined_var + 1", Limits{})
	assert.Equal(t, StatusErrored, exec.Status)
}

func TestLocalTimeout(t *testing.T) {
	start := time.Now()
	exec := runLocal(t, "sleep(30)", Limits{Timeout: 50 * time.Millisecond})
	assert.Equal(t, StatusTimedOut, exec.Status)
	assert.Nil(t, exec.Value)
	assert.NotEmpty(t, exec.Err)
	// the sleep was interrupted, not waited out
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestLocalTimeoutInLoop(t *testing.T) {
	exec := runLocal(t, "x = 0\nrepeat 100000000 { x = x + 1 }", Limits{Timeout: 50 * time.Millisecond})
	assert.Equal(t, StatusTimedOut, exec.Status)
}

func TestLocalOutputCeiling(t *testing.T) {
	exec := runLocal(t, `repeat 1000 { print("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaa") }`, Limits{MaxOutputBytes: 256})
	assert.Equal(t, StatusResourceExceeded, exec.Status)
	assert.LessOrEqual(t, len(exec.Stdout), 256)
}

func TestLocalMemoryCeiling(t *testing.T) {
	// string doubling grows geometrically; the allocation cap trips long
	// before the timeout would
	exec := runLocal(t, "s = \"xxxxxxxxxxxxxxxx\"\nrepeat 30 { s = s + s }", Limits{MaxMemoryMB: 1})
	assert.Equal(t, StatusResourceExceeded, exec.Status)
	assert.Contains(t, exec.Err, "memory ceiling")
	assert.Nil(t, exec.Value)
}

func TestLocalRefusesInProduction(t *testing.T) {
	_, err := NewLocal("production").Run(context.Background(), "1 + 1", Limits{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "production")
}

func TestLocalNoEscapeHatches(t *testing.T) {
	for _, code := range []string{`open("/etc/passwd")`, `exec("ls")`, `import("os")`} {
		exec := runLocal(t, code, Limits{})
		assert.Equal(t, StatusErrored, exec.Status, code)
	}
}
