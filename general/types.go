// Package general implements the bounded think/act/observe reasoning loop for
// goal-directed tool use, with budget enforcement and guardrail pausing.
package general

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// SessionState is a session's lifecycle state.
type SessionState string

const (
	SessionActive    SessionState = "active"
	SessionCompleted SessionState = "completed"
	SessionFailed    SessionState = "failed"
	SessionPaused    SessionState = "paused"
)

// ErrGuardrail is the distinguishable signal for policy violations. It forces
// a pause instead of being absorbed as a generic tool error.
var ErrGuardrail = errors.New("guardrail triggered")

// GuardrailError wraps ErrGuardrail with the violated policy.
type GuardrailError struct {
	Policy string
	Detail string
}

// Error implements the error interface.
func (e *GuardrailError) Error() string {
	return fmt.Sprintf("guardrail triggered: %s: %s", e.Policy, e.Detail)
}

// Unwrap makes errors.Is(err, ErrGuardrail) hold.
func (e *GuardrailError) Unwrap() error { return ErrGuardrail }

// Message is one transcript entry.
type Message struct {
	Role    string    `json:"role"` // "assistant" or "observation"
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// ToolCall logs one tool invocation with its decision path.
type ToolCall struct {
	Tool         string         `json:"tool"`
	Input        map[string]any `json:"input"`
	DecisionPath string         `json:"decision_path"` // the Thought text that chose this tool
	Output       string         `json:"output"`
	CostUSD      float64        `json:"cost_usd"`
	At           time.Time      `json:"at"`
}

// Session is one reasoning run toward a goal.
type Session struct {
	ID            string       `json:"id"`
	TenantID      string       `json:"tenant_id"`
	Goal          string       `json:"goal"`
	State         SessionState `json:"state"`
	Iterations    int          `json:"iterations"`
	MaxIterations int          `json:"max_iterations"`
	BudgetUSD     float64      `json:"budget_usd"`
	Answer        string       `json:"answer,omitempty"`
	PauseReason   string       `json:"pause_reason,omitempty"`

	Transcript []Message  `json:"transcript,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy so repository snapshots never alias caller state.
func (s *Session) Clone() *Session {
	cp := *s
	cp.Transcript = append([]Message(nil), s.Transcript...)
	cp.ToolCalls = make([]ToolCall, len(s.ToolCalls))
	for i, tc := range s.ToolCalls {
		input := make(map[string]any, len(tc.Input))
		for k, v := range tc.Input {
			input[k] = v
		}
		tc.Input = input
		cp.ToolCalls[i] = tc
	}
	return &cp
}

// CreateSpec is the caller's request to start a session.
type CreateSpec struct {
	TenantID      string  `json:"tenant_id"`
	Goal          string  `json:"goal"`
	MaxIterations int     `json:"max_iterations"`
	BudgetUSD     float64 `json:"budget_usd"`
}

// Repository is the durable storage collaborator for sessions.
type Repository interface {
	Create(ctx context.Context, s *Session) (*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	Upsert(ctx context.Context, s *Session) (*Session, error)
	ListForTenant(ctx context.Context, tenantID string) ([]*Session, error)
}
