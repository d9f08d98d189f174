// Package tool provides the capability registry and execution facade through
// which agents invoke sandboxed code, web search/scrape, video generation and
// speech synthesis. Every execution produces a Result carrying its realized
// cost.
package tool

import "context"

// Tool is the single capability contract. Implementations declare a JSON
// schema for their input and report a cost per run.
type Tool interface {
	Name() string
	Description() string
	// Parameters returns a JSON-schema subset describing the input, used for
	// validation and for advertising capabilities to the reasoning loop.
	Parameters() map[string]any
	Run(ctx context.Context, input map[string]any) (*Result, error)
}

// Request names a tool and its input payload.
type Request struct {
	Name  string
	Input map[string]any
}

// Result is the immutable outcome of one tool run.
type Result struct {
	Output   any            `json:"output"`
	CostUSD  float64        `json:"cost_usd"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ErrorCode classifies tool failures.
type ErrorCode string

const (
	// NotFound means the requested tool name is not registered.
	NotFound ErrorCode = "NOT_FOUND"
	// ValidationError means the input did not satisfy the tool's schema.
	ValidationError ErrorCode = "VALIDATION_ERROR"
	// ExecutionError means the tool ran and failed (provider fault, sandbox
	// fault, bad data).
	ExecutionError ErrorCode = "EXECUTION_ERROR"
)

// Error is the typed failure returned by the runtime.
type Error struct {
	Code    ErrorCode
	Tool    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Tool != "" {
		return string(e.Code) + ": " + e.Tool + ": " + e.Message
	}
	return string(e.Code) + ": " + e.Message
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error { return e.Cause }

// NewError builds a typed tool error.
func NewError(code ErrorCode, toolName, message string, cause error) *Error {
	return &Error{Code: code, Tool: toolName, Message: message, Cause: cause}
}
