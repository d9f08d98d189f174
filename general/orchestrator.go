package general

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Lewis121025/Generate-Agent/budget"
	"github.com/Lewis121025/Generate-Agent/logging"
	"github.com/Lewis121025/Generate-Agent/model"
	"github.com/Lewis121025/Generate-Agent/telemetry"
	"github.com/Lewis121025/Generate-Agent/tool"
)

// ErrSessionNotActive marks iteration attempts on completed, failed or paused
// sessions. Surfaced as a client error.
var ErrSessionNotActive = errors.New("session is not active")

// DefaultMaxIterations bounds a session when the caller does not.
const DefaultMaxIterations = 5

// PauseReasonBudget and PauseReasonGuardrail label forced pauses.
const (
	PauseReasonBudget    = "budget"
	PauseReasonGuardrail = "guardrail"
)

// Orchestrator drives reasoning sessions. Mutations on one session serialize;
// different sessions run in parallel.
type Orchestrator struct {
	repo     Repository
	provider model.Provider
	runtime  *tool.Runtime
	tracker  *budget.Tracker

	sink   telemetry.Sink
	logger logging.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// OrchestratorOptions configure optional collaborators.
type OrchestratorOptions struct {
	Sink   telemetry.Sink
	Logger logging.Logger
}

// NewOrchestrator wires the loop's collaborators together.
func NewOrchestrator(
	repo Repository,
	provider model.Provider,
	runtime *tool.Runtime,
	tracker *budget.Tracker,
	optFns ...func(o *OrchestratorOptions),
) *Orchestrator {
	opts := OrchestratorOptions{
		Sink:   telemetry.NopSink{},
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Sink == nil {
		opts.Sink = telemetry.NopSink{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Orchestrator{
		repo:     repo,
		provider: provider,
		runtime:  runtime,
		tracker:  tracker,
		sink:     opts.Sink,
		logger:   opts.Logger,
		locks:    make(map[string]*sync.Mutex),
	}
}

// CreateSession starts an active session and ensures its budget envelope.
func (o *Orchestrator) CreateSession(ctx context.Context, spec CreateSpec) (*Session, error) {
	now := time.Now()
	s := &Session{
		ID:            uuid.NewString(),
		TenantID:      spec.TenantID,
		Goal:          spec.Goal,
		State:         SessionActive,
		MaxIterations: spec.MaxIterations,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if s.MaxIterations <= 0 {
		s.MaxIterations = DefaultMaxIterations
	}
	env := o.tracker.Ensure(s.ID, spec.BudgetUSD)
	s.BudgetUSD = env.LimitUSD

	created, err := o.repo.Create(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("general: create session: %w", err)
	}
	o.sink.Emit("session_created", map[string]any{"session_id": created.ID, "tenant_id": created.TenantID})
	return created, nil
}

// Get loads a session.
func (o *Orchestrator) Get(ctx context.Context, id string) (*Session, error) {
	return o.repo.Get(ctx, id)
}

// ListForTenant lists a tenant's sessions.
func (o *Orchestrator) ListForTenant(ctx context.Context, tenantID string) ([]*Session, error) {
	return o.repo.ListForTenant(ctx, tenantID)
}

// Resume reactivates a paused session.
func (o *Orchestrator) Resume(ctx context.Context, id string) (*Session, error) {
	unlock := o.acquire(id)
	defer unlock()

	s, err := o.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.State != SessionPaused {
		return nil, fmt.Errorf("%w: session is %s", ErrSessionNotActive, s.State)
	}
	s.State = SessionActive
	s.PauseReason = ""
	s.UpdatedAt = time.Now()
	return o.repo.Upsert(ctx, s)
}

// RunIteration performs one think/act/observe step. A terminal answer, the
// iteration bound, budget exhaustion, or a guardrail each end or pause the
// session; the transcript always survives.
func (o *Orchestrator) RunIteration(ctx context.Context, id string) (*Session, error) {
	unlock := o.acquire(id)
	defer unlock()

	s, err := o.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.State != SessionActive {
		return nil, fmt.Errorf("%w: session is %s", ErrSessionNotActive, s.State)
	}

	if env, ok := o.tracker.Get(s.ID); ok && env.Remaining() <= 0 {
		return o.pause(ctx, s, PauseReasonBudget)
	}

	response, err := o.provider.Complete(ctx, o.buildPrompt(s), 0.0)
	if err != nil {
		return nil, fmt.Errorf("general: model call failed: %w", err)
	}
	now := time.Now()
	s.Transcript = append(s.Transcript, Message{Role: "assistant", Content: response, At: now})
	s.Iterations++

	step := parseReactStep(response)
	switch {
	case step.HasAnswer:
		s.Answer = step.FinalAnswer
		s.State = SessionCompleted
	case step.HasAction:
		if err := o.act(ctx, s, step); err != nil {
			if errors.Is(err, ErrGuardrail) {
				o.logger.Warn("guardrail triggered", "session_id", s.ID, "tool", step.Action, "error", err.Error())
				return o.pause(ctx, s, PauseReasonGuardrail)
			}
			return nil, err
		}
	default:
		// no action proposed and no terminal answer: fail open with the last
		// reasoning output instead of burning the iteration budget
		s.Answer = strings.TrimSpace(response)
		s.State = SessionCompleted
	}

	if s.State == SessionActive && s.Iterations >= s.MaxIterations {
		s.Answer = o.fallbackAnswer(s)
		s.State = SessionCompleted
	}

	s.UpdatedAt = time.Now()
	saved, err := o.repo.Upsert(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("general: persist session: %w", err)
	}
	o.sink.Emit("session_iterated", map[string]any{
		"session_id": s.ID,
		"iteration":  s.Iterations,
		"state":      string(saved.State),
	})
	return saved, nil
}

// act executes the proposed tool and appends the observation. Tool failures
// become observations, not session failures; guardrails propagate.
func (o *Orchestrator) act(ctx context.Context, s *Session, step reactStep) error {
	res, err := o.runtime.Execute(ctx, tool.Request{Name: step.Action, Input: step.ActionInput})
	now := time.Now()
	if err != nil {
		if errors.Is(err, ErrGuardrail) {
			return err
		}
		observation := fmt.Sprintf("Observation: Tool execution failed: %v", err)
		s.Transcript = append(s.Transcript, Message{Role: "observation", Content: observation, At: now})
		return nil
	}

	output := fmt.Sprintf("%v", res.Output)
	s.Transcript = append(s.Transcript, Message{
		Role:    "observation",
		Content: "Observation: " + output,
		At:      now,
	})
	s.ToolCalls = append(s.ToolCalls, ToolCall{
		Tool:         step.Action,
		Input:        step.ActionInput,
		DecisionPath: step.Thought,
		Output:       output,
		CostUSD:      res.CostUSD,
		At:           now,
	})
	if _, err := o.tracker.Record(s.ID, res.CostUSD); err != nil {
		return err
	}
	return nil
}

// buildPrompt renders the system prompt, goal and transcript into one history
// prompt.
func (o *Orchestrator) buildPrompt(s *Session) string {
	var sb strings.Builder
	sb.WriteString(reactSystemPrompt(o.runtime.Describe()))
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(s.Goal)
	sb.WriteString("\n")
	for _, msg := range s.Transcript {
		sb.WriteString(msg.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}

// fallbackAnswer derives an answer from the last reasoning output when the
// iteration bound is hit without a terminal answer.
func (o *Orchestrator) fallbackAnswer(s *Session) string {
	for i := len(s.Transcript) - 1; i >= 0; i-- {
		if s.Transcript[i].Role == "assistant" {
			if step := parseReactStep(s.Transcript[i].Content); step.Thought != "" {
				return step.Thought
			}
			return strings.TrimSpace(s.Transcript[i].Content)
		}
	}
	return "No answer could be produced within the iteration limit."
}

// pause suspends the session without losing the transcript.
func (o *Orchestrator) pause(ctx context.Context, s *Session, reason string) (*Session, error) {
	s.State = SessionPaused
	s.PauseReason = reason
	s.UpdatedAt = time.Now()
	saved, err := o.repo.Upsert(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("general: persist pause: %w", err)
	}
	o.sink.Emit("session_paused", map[string]any{"session_id": s.ID, "reason": reason})
	return saved, nil
}

func (o *Orchestrator) acquire(id string) func() {
	o.mu.Lock()
	l, ok := o.locks[id]
	if !ok {
		l = &sync.Mutex{}
		o.locks[id] = l
	}
	o.mu.Unlock()
	l.Lock()
	return l.Unlock
}
