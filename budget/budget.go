// Package budget tracks per-entity spend envelopes. One envelope per project
// or session, created lazily, mutated only through Record. The tracker's map
// lock is independent of any per-entity workflow lock held by orchestrators.
package budget

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Lewis121025/Generate-Agent/telemetry"
)

// ErrExhausted signals that an envelope has no remaining budget. Orchestrators
// translate it into an auto-pause rather than surfacing it to callers.
var ErrExhausted = errors.New("budget exhausted")

// Envelope is a spend/limit pair. SpentUSD never decreases.
type Envelope struct {
	LimitUSD float64 `json:"limit_usd"`
	SpentUSD float64 `json:"spent_usd"`
}

// Remaining reports the budget left, floored at zero.
func (e Envelope) Remaining() float64 {
	if r := e.LimitUSD - e.SpentUSD; r > 0 {
		return r
	}
	return 0
}

// Ratio reports spend as a fraction of the limit.
func (e Envelope) Ratio() float64 {
	if e.LimitUSD <= 0 {
		return 0
	}
	return e.SpentUSD / e.LimitUSD
}

// Options configure a Tracker.
type Options struct {
	// DefaultLimitUSD is used by Ensure when the caller passes limit <= 0.
	DefaultLimitUSD float64
	// AlertPercentages are the thresholds (percent of limit) that trigger a
	// cost_threshold event. Sorted ascending at construction.
	AlertPercentages []float64
	// Sink receives threshold events. Nil means no telemetry.
	Sink telemetry.Sink
}

// Tracker is a thread-safe registry of envelopes keyed by entity id.
type Tracker struct {
	mu        sync.Mutex
	envelopes map[string]*Envelope
	opts      Options
}

// NewTracker builds a tracker. An invalid default limit is a configuration
// error: accounting itself never fails, so misconfiguration must surface here.
func NewTracker(optFns ...func(o *Options)) (*Tracker, error) {
	opts := Options{
		DefaultLimitUSD:  100.0,
		AlertPercentages: []float64{50, 80, 100},
		Sink:             telemetry.NopSink{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.DefaultLimitUSD <= 0 {
		return nil, fmt.Errorf("budget: default limit must be positive, got %v", opts.DefaultLimitUSD)
	}
	if opts.Sink == nil {
		opts.Sink = telemetry.NopSink{}
	}
	sort.Float64s(opts.AlertPercentages)
	return &Tracker{envelopes: make(map[string]*Envelope), opts: opts}, nil
}

// Ensure returns the envelope for entityID, creating it on first call.
// limitUSD <= 0 falls back to the configured default. Repeat calls never
// change an existing envelope's limit.
func (t *Tracker) Ensure(entityID string, limitUSD float64) Envelope {
	t.mu.Lock()
	defer t.mu.Unlock()
	return *t.ensureLocked(entityID, limitUSD)
}

func (t *Tracker) ensureLocked(entityID string, limitUSD float64) *Envelope {
	if env, ok := t.envelopes[entityID]; ok {
		return env
	}
	if limitUSD <= 0 {
		limitUSD = t.opts.DefaultLimitUSD
	}
	env := &Envelope{LimitUSD: limitUSD}
	t.envelopes[entityID] = env
	return env
}

// Record atomically adds amount to the entity's spend, then emits at most one
// cost_threshold event for the highest alert percentage crossed by this call.
// Negative amounts are rejected; spend never decreases.
func (t *Tracker) Record(entityID string, amountUSD float64) (Envelope, error) {
	if amountUSD < 0 {
		return Envelope{}, fmt.Errorf("budget: negative amount %v for %s", amountUSD, entityID)
	}

	t.mu.Lock()
	env := t.ensureLocked(entityID, 0)
	before := env.Ratio() * 100
	env.SpentUSD += amountUSD
	after := env.Ratio() * 100
	snapshot := *env
	t.mu.Unlock()

	var crossed float64 = -1
	for _, pct := range t.opts.AlertPercentages {
		if after >= pct && before < pct {
			crossed = pct
		}
	}
	if crossed >= 0 {
		t.opts.Sink.Emit("cost_threshold", map[string]any{
			"entity_id": entityID,
			"threshold": crossed,
			"spent_usd": snapshot.SpentUSD,
			"limit_usd": snapshot.LimitUSD,
		})
	}
	return snapshot, nil
}

// Get returns the entity's envelope if one exists.
func (t *Tracker) Get(entityID string) (Envelope, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	env, ok := t.envelopes[entityID]
	if !ok {
		return Envelope{}, false
	}
	return *env, true
}

// CheckRemaining returns ErrExhausted when the entity's envelope cannot cover
// amountUSD. Entities without an envelope are treated as unconstrained until
// Ensure is called.
func (t *Tracker) CheckRemaining(entityID string, amountUSD float64) error {
	env, ok := t.Get(entityID)
	if !ok {
		return nil
	}
	if env.Remaining() < amountUSD {
		return fmt.Errorf("%w: entity %s has %.4f remaining, needs %.4f",
			ErrExhausted, entityID, env.Remaining(), amountUSD)
	}
	return nil
}
