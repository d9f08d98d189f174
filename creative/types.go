// Package creative implements the multi-stage production pipeline: a
// per-project state machine from brief through script, storyboard, render,
// preview and distribution, with budget enforcement and quality gating at
// each costed step.
package creative

import (
	"context"
	"errors"
	"time"
)

// State is a project's pipeline stage.
type State string

const (
	StateInitiated         State = "initiated"
	StateBriefPending      State = "brief_pending"
	StateScriptPending     State = "script_pending"
	StateScriptReview      State = "script_review"
	StateStoryboardPending State = "storyboard_pending"
	StateStoryboardReady   State = "storyboard_ready"
	StateRenderPending     State = "render_pending"
	StatePreviewReady      State = "preview_ready"
	StateCompleted         State = "completed"
	StateFailed            State = "failed"
	StatePaused            State = "paused"
)

// ErrInvalidTransition marks operations that are illegal in the project's
// current state. Surfaced as a client error, never retried.
var ErrInvalidTransition = errors.New("invalid state transition")

// Shot is one storyboard panel.
type Shot struct {
	Index             int    `json:"index"`
	Description       string `json:"description"`
	VisualCues        string `json:"visual_cues"`
	EstimatedDuration int    `json:"estimated_duration"`
	PanelURL          string `json:"panel_url,omitempty"`
}

// ShotRender records one rendered shot in the render manifest.
type ShotRender struct {
	ShotIndex int     `json:"shot_index"`
	MediaURL  string  `json:"media_url"`
	CostUSD   float64 `json:"cost_usd"`
}

// PreviewRecord is the preview-stage artifact.
type PreviewRecord struct {
	URL      string   `json:"url"`
	Score    float64  `json:"score"`
	Approved bool     `json:"approved"`
	Issues   []string `json:"issues,omitempty"`
	Notes    string   `json:"notes,omitempty"`
}

// DistributionEntry logs one distribution target.
type DistributionEntry struct {
	Channel string    `json:"channel"`
	URL     string    `json:"url"`
	At      time.Time `json:"at"`
}

// Project is a creative production run. Stage artifacts accumulate
// monotonically: once a stage is reached its artifact is never cleared.
type Project struct {
	ID              string  `json:"id"`
	TenantID        string  `json:"tenant_id"`
	Title           string  `json:"title"`
	Brief           string  `json:"brief"`
	Style           string  `json:"style"`
	DurationSeconds int     `json:"duration_seconds"`
	BudgetUSD       float64 `json:"budget_usd"`

	State         State  `json:"state"`
	PauseReason   string `json:"pause_reason,omitempty"`
	PrePauseState State  `json:"pre_pause_state,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`

	BriefSummary string              `json:"brief_summary,omitempty"`
	Script       string              `json:"script,omitempty"`
	Storyboard   []Shot              `json:"storyboard,omitempty"`
	Narration    string              `json:"narration_url,omitempty"`
	Renders      []ShotRender        `json:"renders,omitempty"`
	Preview      *PreviewRecord      `json:"preview,omitempty"`
	Distribution []DistributionEntry `json:"distribution,omitempty"`

	// PendingRenders maps shot index to its in-flight render job id. Entries
	// clear as completed jobs are collected into Renders.
	PendingRenders map[int]string `json:"pending_renders,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy so repository snapshots never alias caller state.
func (p *Project) Clone() *Project {
	cp := *p
	cp.Storyboard = append([]Shot(nil), p.Storyboard...)
	cp.Renders = append([]ShotRender(nil), p.Renders...)
	cp.Distribution = append([]DistributionEntry(nil), p.Distribution...)
	if p.Preview != nil {
		pv := *p.Preview
		pv.Issues = append([]string(nil), p.Preview.Issues...)
		cp.Preview = &pv
	}
	if p.PendingRenders != nil {
		cp.PendingRenders = make(map[int]string, len(p.PendingRenders))
		for idx, jobID := range p.PendingRenders {
			cp.PendingRenders[idx] = jobID
		}
	}
	return &cp
}

// CreateSpec is the caller's request to start a project.
type CreateSpec struct {
	TenantID        string  `json:"tenant_id"`
	Title           string  `json:"title"`
	Brief           string  `json:"brief"`
	Style           string  `json:"style"`
	DurationSeconds int     `json:"duration_seconds"`
	BudgetUSD       float64 `json:"budget_usd"`
}

// Repository is the durable storage collaborator for projects.
type Repository interface {
	Create(ctx context.Context, p *Project) (*Project, error)
	Get(ctx context.Context, id string) (*Project, error)
	Upsert(ctx context.Context, p *Project) (*Project, error)
	ListForTenant(ctx context.Context, tenantID string) ([]*Project, error)
}
