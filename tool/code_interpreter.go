package tool

import (
	"context"
	"fmt"

	"github.com/Lewis121025/Generate-Agent/sandbox"
)

// Per-run costs by tier; the remote execution service bills per invocation.
const (
	remoteCodeCostUSD = 0.01
	localCodeCostUSD  = 0.001
)

// CodeInterpreter executes untrusted snippets through a sandbox tier.
type CodeInterpreter struct {
	Sandbox sandbox.Sandbox
	Limits  sandbox.Limits
}

// NewCodeInterpreter wraps a sandbox as a tool.
func NewCodeInterpreter(sb sandbox.Sandbox, limits sandbox.Limits) *CodeInterpreter {
	return &CodeInterpreter{Sandbox: sb, Limits: limits}
}

// Name implements Tool.
func (c *CodeInterpreter) Name() string { return "code_interpreter" }

// Description implements Tool.
func (c *CodeInterpreter) Description() string {
	return "Executes a code snippet in an isolated sandbox with time and output limits."
}

// Parameters implements Tool.
func (c *CodeInterpreter) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"code": map[string]any{
				"type":        "string",
				"description": "Code to execute.",
			},
		},
		"required": []string{"code"},
	}
}

// Run implements Tool. Expected sandbox failures (timeout, resource ceiling,
// snippet error) surface as execution errors carrying the sandbox status.
func (c *CodeInterpreter) Run(ctx context.Context, input map[string]any) (*Result, error) {
	code, _ := input["code"].(string)
	if code == "" {
		return nil, NewError(ValidationError, c.Name(), "code must be a non-empty string", nil)
	}

	exec, err := c.Sandbox.Run(ctx, code, c.Limits)
	if err != nil {
		return nil, NewError(ExecutionError, c.Name(), fmt.Sprintf("sandbox setup failed: %v", err), err)
	}

	cost := localCodeCostUSD
	if c.Sandbox.Name() == "remote" {
		cost = remoteCodeCostUSD
	}

	if exec.Status != sandbox.StatusCompleted {
		return nil, NewError(ExecutionError, c.Name(),
			fmt.Sprintf("execution %s: %s", exec.Status, exec.Err), nil)
	}

	return &Result{
		Output: map[string]any{
			"stdout": exec.Stdout,
			"value":  exec.Value,
		},
		CostUSD: cost,
		Metadata: map[string]any{
			"sandbox":     c.Sandbox.Name(),
			"duration_ms": exec.Duration.Milliseconds(),
		},
	}, nil
}
