package creative

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Lewis121025/Generate-Agent/budget"
	"github.com/Lewis121025/Generate-Agent/logging"
	"github.com/Lewis121025/Generate-Agent/media"
	"github.com/Lewis121025/Generate-Agent/quality"
	"github.com/Lewis121025/Generate-Agent/queue"
	"github.com/Lewis121025/Generate-Agent/telemetry"
	"github.com/Lewis121025/Generate-Agent/tool"
)

// Deterministic step costs for the model-backed stages. Tool-backed stages
// (narration, render) charge the realized cost the runtime reports.
const (
	briefCostUSD      = 0.02
	scriptCostUSD     = 0.05
	storyboardCostUSD = 0.04
)

// PauseReasonBudget marks pauses forced by the spend envelope.
const PauseReasonBudget = "budget"

// renderJobKind names the queued render work.
const renderJobKind = "render_shot"

// Orchestrator drives the per-project state machine. All mutations on one
// project serialize through the lock manager; different projects run fully in
// parallel.
type Orchestrator struct {
	repo    Repository
	agent   *Agent
	gate    *quality.Gate
	tracker *budget.Tracker
	runtime *tool.Runtime

	jobs   *queue.Queue // optional render offload
	assets *media.Store // optional media reference store

	sink   telemetry.Sink
	logger logging.Logger
	locks  *lockManager

	autoPauseEnabled bool
	autoPauseRatio   float64
}

// OrchestratorOptions configure optional collaborators and policy.
type OrchestratorOptions struct {
	Jobs             *queue.Queue
	Assets           *media.Store
	Sink             telemetry.Sink
	Logger           logging.Logger
	AutoPauseEnabled bool
	AutoPauseRatio   float64
}

// NewOrchestrator wires the pipeline's collaborators together.
func NewOrchestrator(
	repo Repository,
	agent *Agent,
	gate *quality.Gate,
	tracker *budget.Tracker,
	runtime *tool.Runtime,
	optFns ...func(o *OrchestratorOptions),
) *Orchestrator {
	opts := OrchestratorOptions{
		Sink:             telemetry.NopSink{},
		Logger:           logging.NoOpLogger{},
		AutoPauseEnabled: true,
		AutoPauseRatio:   1.0,
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

	o := &Orchestrator{
		repo:             repo,
		agent:            agent,
		gate:             gate,
		tracker:          tracker,
		runtime:          runtime,
		jobs:             opts.Jobs,
		assets:           opts.Assets,
		sink:             opts.Sink,
		logger:           opts.Logger,
		locks:            newLockManager(),
		autoPauseEnabled: opts.AutoPauseEnabled,
		autoPauseRatio:   opts.AutoPauseRatio,
	}
	if o.jobs != nil {
		o.jobs.RegisterHandler(renderJobKind, o.renderJob)
	}
	return o
}

// CreateProject starts a project in initiated (brief_pending when created
// without a brief) and ensures its budget envelope.
func (o *Orchestrator) CreateProject(ctx context.Context, spec CreateSpec) (*Project, error) {
	now := time.Now()
	p := &Project{
		ID:              uuid.NewString(),
		TenantID:        spec.TenantID,
		Title:           spec.Title,
		Brief:           spec.Brief,
		Style:           spec.Style,
		DurationSeconds: spec.DurationSeconds,
		BudgetUSD:       spec.BudgetUSD,
		State:           StateInitiated,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if p.DurationSeconds <= 0 {
		p.DurationSeconds = 30
	}
	if p.Style == "" {
		p.Style = "cinematic"
	}
	env := o.tracker.Ensure(p.ID, spec.BudgetUSD)
	p.BudgetUSD = env.LimitUSD

	created, err := o.repo.Create(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("creative: create project: %w", err)
	}
	o.sink.Emit("project_created", map[string]any{"project_id": created.ID, "tenant_id": created.TenantID})
	return created, nil
}

// Get loads a project.
func (o *Orchestrator) Get(ctx context.Context, id string) (*Project, error) {
	return o.repo.Get(ctx, id)
}

// ListForTenant lists a tenant's projects.
func (o *Orchestrator) ListForTenant(ctx context.Context, tenantID string) ([]*Project, error) {
	return o.repo.ListForTenant(ctx, tenantID)
}

// Advance performs exactly the current state's work, charges its cost, and
// persists the successor state. States requiring human approval and paused or
// terminal projects fail with an invalid-transition error.
func (o *Orchestrator) Advance(ctx context.Context, id string) (*Project, error) {
	unlock := o.locks.acquire(id)
	defer unlock()

	p, err := o.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch {
	case p.State == StatePaused:
		return nil, fmt.Errorf("%w: project is paused (%s); resume first", ErrInvalidTransition, p.PauseReason)
	case terminal(p.State):
		return nil, fmt.Errorf("%w: project is %s", ErrInvalidTransition, p.State)
	case approvalStates[p.State]:
		return nil, fmt.Errorf("%w: state %s requires an explicit approval call", ErrInvalidTransition, p.State)
	}

	if paused, err := o.pauseIfOverBudget(ctx, p); err != nil || paused {
		return p, err
	}

	switch p.State {
	case StateInitiated, StateBriefPending:
		err = o.stepBrief(ctx, p)
	case StateScriptPending:
		err = o.stepScript(ctx, p)
	case StateStoryboardPending:
		err = o.stepStoryboard(ctx, p)
	case StateStoryboardReady:
		err = o.stepNarration(ctx, p)
	case StateRenderPending:
		err = o.stepRender(ctx, p)
	default:
		return nil, fmt.Errorf("%w: no advance work for state %s", ErrInvalidTransition, p.State)
	}
	if err != nil {
		return p, err
	}
	if p.State == StatePaused {
		// a budget check inside the step already persisted the pause
		return p, nil
	}

	p.UpdatedAt = time.Now()
	saved, err := o.repo.Upsert(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("creative: persist project: %w", err)
	}
	o.sink.Emit("project_advanced", map[string]any{"project_id": p.ID, "state": string(saved.State)})
	return saved, nil
}

// ApproveScript moves script_review to storyboard_pending. Legal only from
// script_review.
func (o *Orchestrator) ApproveScript(ctx context.Context, id string) (*Project, error) {
	return o.approve(ctx, id, StateScriptReview, StateStoryboardPending)
}

// ApprovePreview finalizes distribution and completes the project. Legal only
// from preview_ready.
func (o *Orchestrator) ApprovePreview(ctx context.Context, id string) (*Project, error) {
	unlock := o.locks.acquire(id)
	defer unlock()

	p, err := o.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.State == StatePaused {
		return nil, fmt.Errorf("%w: project is paused (%s); resume first", ErrInvalidTransition, p.PauseReason)
	}
	if err := ensureApproval(p.State, StatePreviewReady); err != nil {
		return nil, err
	}

	now := time.Now()
	url := ""
	if p.Preview != nil {
		url = p.Preview.URL
	}
	p.Distribution = append(p.Distribution, DistributionEntry{Channel: "library", URL: url, At: now})
	p.State = StateCompleted
	p.UpdatedAt = now

	saved, err := o.repo.Upsert(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("creative: persist project: %w", err)
	}
	o.sink.Emit("project_completed", map[string]any{"project_id": p.ID})
	return saved, nil
}

// Pause snapshots the current state and detours to paused.
func (o *Orchestrator) Pause(ctx context.Context, id, reason string) (*Project, error) {
	unlock := o.locks.acquire(id)
	defer unlock()

	p, err := o.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := o.pauseLocked(ctx, p, reason); err != nil {
		return nil, err
	}
	return p, nil
}

// Resume restores the snapshotted pre-pause state, clearing the pause fields
// atomically.
func (o *Orchestrator) Resume(ctx context.Context, id string) (*Project, error) {
	unlock := o.locks.acquire(id)
	defer unlock()

	p, err := o.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.State != StatePaused {
		return nil, fmt.Errorf("%w: project is not paused", ErrInvalidTransition)
	}
	if err := ensureTransition(p.State, p.PrePauseState); err != nil {
		return nil, err
	}
	p.State = p.PrePauseState
	p.PauseReason = ""
	p.PrePauseState = ""
	p.UpdatedAt = time.Now()

	saved, err := o.repo.Upsert(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("creative: persist project: %w", err)
	}
	o.sink.Emit("project_resumed", map[string]any{"project_id": p.ID, "state": string(saved.State)})
	return saved, nil
}

// Fail moves the project to the terminal failed state.
func (o *Orchestrator) Fail(ctx context.Context, id, reason string) (*Project, error) {
	unlock := o.locks.acquire(id)
	defer unlock()

	p, err := o.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ensureTransition(p.State, StateFailed); err != nil {
		return nil, err
	}
	p.State = StateFailed
	p.FailureReason = reason
	p.UpdatedAt = time.Now()
	return o.repo.Upsert(ctx, p)
}

func (o *Orchestrator) approve(ctx context.Context, id string, from, to State) (*Project, error) {
	unlock := o.locks.acquire(id)
	defer unlock()

	p, err := o.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.State == StatePaused {
		return nil, fmt.Errorf("%w: project is paused (%s); resume first", ErrInvalidTransition, p.PauseReason)
	}
	if err := ensureApproval(p.State, from); err != nil {
		return nil, err
	}
	p.State = to
	p.UpdatedAt = time.Now()
	saved, err := o.repo.Upsert(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("creative: persist project: %w", err)
	}
	o.sink.Emit("project_approved", map[string]any{"project_id": p.ID, "state": string(to)})
	return saved, nil
}

func ensureApproval(current, required State) error {
	if current != required {
		return fmt.Errorf("%w: approval only legal from %s, project is %s", ErrInvalidTransition, required, current)
	}
	return nil
}

// --- stage work ---

// stepBrief expands the brief. With a brief present the satisfied
// brief_pending stage is passed through in the same advance, landing in
// script_pending; without one the project waits in brief_pending.
func (o *Orchestrator) stepBrief(ctx context.Context, p *Project) error {
	if p.State == StateBriefPending && p.Brief == "" {
		return fmt.Errorf("%w: a brief is required before the project can advance", ErrInvalidTransition)
	}
	if p.State == StateInitiated {
		if err := ensureTransition(p.State, StateBriefPending); err != nil {
			return err
		}
		p.State = StateBriefPending
		if p.Brief == "" {
			return nil
		}
	}

	if p.BriefSummary == "" {
		if paused, err := o.chargeStep(ctx, p, briefCostUSD, "brief"); err != nil || paused {
			return err
		}
		summary, err := o.agent.ExpandBrief(ctx, p.Brief)
		if err != nil {
			return err
		}
		p.BriefSummary = summary
	}

	if err := ensureTransition(p.State, StateScriptPending); err != nil {
		return err
	}
	p.State = StateScriptPending
	return nil
}

func (o *Orchestrator) stepScript(ctx context.Context, p *Project) error {
	if paused, err := o.chargeStep(ctx, p, scriptCostUSD, "script"); err != nil || paused {
		return err
	}

	script, err := o.agent.WriteScript(ctx, p.Brief, p.DurationSeconds, p.Style)
	if err != nil {
		return err
	}

	qc, err := o.gate.RunWorkflow(ctx, script, "script")
	if err != nil {
		return err
	}
	o.sink.Emit("script_qc", map[string]any{
		"project_id": p.ID,
		"passed":     qc.Passed,
		"score":      qc.OverallScore,
	})
	if !qc.Passed {
		for _, rec := range qc.Recommendations {
			o.logger.Warn("script qc recommendation", "project_id", p.ID, "recommendation", rec)
		}
	}

	p.Script = script
	if err := ensureTransition(p.State, StateScriptReview); err != nil {
		return err
	}
	p.State = StateScriptReview
	return nil
}

func (o *Orchestrator) stepStoryboard(ctx context.Context, p *Project) error {
	if paused, err := o.chargeStep(ctx, p, storyboardCostUSD, "storyboard"); err != nil || paused {
		return err
	}

	shots, err := o.agent.SplitScript(ctx, p.Script, p.DurationSeconds)
	if err != nil {
		return err
	}
	for i := range shots {
		shots[i].PanelURL = o.agent.PanelVisual(shots[i].Description)
	}
	p.Storyboard = shots

	if err := ensureTransition(p.State, StateStoryboardReady); err != nil {
		return err
	}
	p.State = StateStoryboardReady
	return nil
}

func (o *Orchestrator) stepNarration(ctx context.Context, p *Project) error {
	estimate := tool.TTSCost(len(p.Script))
	if paused, err := o.ensureAffordable(ctx, p, estimate, "narration"); err != nil || paused {
		return err
	}

	res, err := o.runtime.Execute(ctx, tool.Request{
		Name:  "text_to_speech",
		Input: map[string]any{"text": p.Script},
	})
	if err != nil {
		return fmt.Errorf("creative: narration failed: %w", err)
	}
	if _, rerr := o.tracker.Record(p.ID, res.CostUSD); rerr != nil {
		return rerr
	}

	out, _ := res.Output.(map[string]any)
	url, _ := out["url"].(string)
	p.Narration = url
	if o.assets != nil {
		o.assets.Save(p.ID, "narration", media.Ref{URL: url, Kind: "audio"})
	}

	if err := ensureTransition(p.State, StateRenderPending); err != nil {
		return err
	}
	p.State = StateRenderPending
	return nil
}

// stepRender renders every storyboard shot, validates the resulting preview,
// and lands in preview_ready. With a job queue configured the shots are
// enqueued and collected across advance calls, so the request path never
// blocks on render duration and the entity lock is released between polls.
// Budget is checked before each shot; an unaffordable shot pauses the project
// with the completed shots' costs already recorded.
func (o *Orchestrator) stepRender(ctx context.Context, p *Project) error {
	if o.jobs != nil {
		return o.stepRenderQueued(ctx, p)
	}

	rendered := map[int]bool{}
	for _, r := range p.Renders {
		rendered[r.ShotIndex] = true
	}
	for _, shot := range p.Storyboard {
		if rendered[shot.Index] {
			continue
		}
		estimate := tool.VideoCost(shot.EstimatedDuration, "preview")
		if paused, err := o.ensureAffordable(ctx, p, estimate, "render"); err != nil {
			return err
		} else if paused {
			// partial manifest stays; remaining shots wait for resume
			return nil
		}

		out, err := o.renderJob(ctx, renderPayloadFor(p, shot))
		if err != nil {
			return err
		}
		render := out.(ShotRender)
		if _, rerr := o.tracker.Record(p.ID, render.CostUSD); rerr != nil {
			return rerr
		}
		o.recordRender(p, render)
	}
	return o.finishRender(ctx, p)
}

// stepRenderQueued collects finished render jobs into the manifest, then
// enqueues the shots that still need one. While jobs are in flight the
// project stays in render_pending with the job ids persisted, and a later
// advance acts as the poll.
func (o *Orchestrator) stepRenderQueued(ctx context.Context, p *Project) error {
	for _, shot := range p.Storyboard {
		jobID, ok := p.PendingRenders[shot.Index]
		if !ok {
			continue
		}
		job, err := o.jobs.Status(jobID)
		if err != nil {
			return err
		}
		switch job.Status {
		case queue.StatusCompleted:
			render, ok := job.Result.(ShotRender)
			if !ok {
				return fmt.Errorf("creative: render job returned unexpected result %T", job.Result)
			}
			if _, rerr := o.tracker.Record(p.ID, render.CostUSD); rerr != nil {
				return rerr
			}
			o.recordRender(p, render)
			delete(p.PendingRenders, shot.Index)
		case queue.StatusFailed:
			delete(p.PendingRenders, shot.Index)
			return fmt.Errorf("creative: render job for shot %d failed after %d attempts: %s",
				shot.Index, job.Attempts, job.Err)
		}
	}

	rendered := map[int]bool{}
	for _, r := range p.Renders {
		rendered[r.ShotIndex] = true
	}
	// estimates for jobs already in flight count against the envelope before
	// any new shot is admitted
	reserved := 0.0
	for _, shot := range p.Storyboard {
		if _, ok := p.PendingRenders[shot.Index]; ok {
			reserved += tool.VideoCost(shot.EstimatedDuration, "preview")
		}
	}
	for _, shot := range p.Storyboard {
		if rendered[shot.Index] {
			continue
		}
		if _, ok := p.PendingRenders[shot.Index]; ok {
			continue
		}
		estimate := tool.VideoCost(shot.EstimatedDuration, "preview")
		if paused, err := o.ensureAffordable(ctx, p, reserved+estimate, "render"); err != nil {
			return err
		} else if paused {
			// partial manifest and in-flight jobs stay; remaining shots wait
			// for resume
			return nil
		}
		jobID, err := o.jobs.Enqueue(renderJobKind, renderPayloadFor(p, shot))
		if err != nil {
			return err
		}
		if p.PendingRenders == nil {
			p.PendingRenders = map[int]string{}
		}
		p.PendingRenders[shot.Index] = jobID
		reserved += estimate
	}

	if len(p.PendingRenders) > 0 {
		// renders in flight; state stays render_pending and Advance persists
		// the markers
		return nil
	}
	return o.finishRender(ctx, p)
}

// finishRender validates the assembled preview and lands in preview_ready.
func (o *Orchestrator) finishRender(ctx context.Context, p *Project) error {
	sort.Slice(p.Renders, func(i, j int) bool { return p.Renders[i].ShotIndex < p.Renders[j].ShotIndex })

	verdict, err := o.gate.ValidatePreview(ctx, o.previewContent(p), map[string]any{
		"title": p.Title,
		"style": p.Style,
	})
	if err != nil {
		return err
	}
	previewURL := ""
	if len(p.Renders) > 0 {
		previewURL = p.Renders[0].MediaURL
	}
	p.Preview = &PreviewRecord{
		URL:      previewURL,
		Score:    verdict.Score,
		Approved: verdict.Approved,
		Issues:   verdict.Issues,
		Notes:    verdict.Notes,
	}

	if err := ensureTransition(p.State, StatePreviewReady); err != nil {
		return err
	}
	p.State = StatePreviewReady
	return nil
}

func (o *Orchestrator) recordRender(p *Project, render ShotRender) {
	p.Renders = append(p.Renders, render)
	if o.assets != nil {
		o.assets.Save(p.ID, fmt.Sprintf("shot-%d", render.ShotIndex), media.Ref{
			URL:      render.MediaURL,
			Kind:     "video",
			Metadata: map[string]any{"quality": "preview"},
		})
	}
}

func renderPayloadFor(p *Project, shot Shot) renderPayload {
	return renderPayload{
		Prompt:          fmt.Sprintf("%s. Style: %s. %s", shot.Description, p.Style, shot.VisualCues),
		DurationSeconds: shot.EstimatedDuration,
		ShotIndex:       shot.Index,
	}
}

type renderPayload struct {
	Prompt          string
	DurationSeconds int
	ShotIndex       int
}

// renderJob is the queue handler for one shot render.
func (o *Orchestrator) renderJob(ctx context.Context, payload any) (any, error) {
	req, ok := payload.(renderPayload)
	if !ok {
		return nil, fmt.Errorf("creative: bad render payload %T", payload)
	}
	res, err := o.runtime.Execute(ctx, tool.Request{
		Name: "generate_video",
		Input: map[string]any{
			"prompt":           req.Prompt,
			"duration_seconds": float64(req.DurationSeconds),
			"quality":          "preview",
		},
	})
	if err != nil {
		return nil, err
	}
	out, _ := res.Output.(map[string]any)
	url, _ := out["url"].(string)
	return ShotRender{ShotIndex: req.ShotIndex, MediaURL: url, CostUSD: res.CostUSD}, nil
}

func (o *Orchestrator) previewContent(p *Project) map[string]any {
	clips := make([]any, 0, len(p.Renders))
	for _, r := range p.Renders {
		clips = append(clips, map[string]any{"shot": r.ShotIndex, "url": r.MediaURL})
	}
	return map[string]any{
		"clips":     clips,
		"narration": p.Narration,
		"duration":  p.DurationSeconds,
	}
}

// --- budget policy ---

// chargeStep verifies affordability and records a deterministic step cost.
// Returns paused=true when the project was auto-paused instead.
func (o *Orchestrator) chargeStep(ctx context.Context, p *Project, cost float64, step string) (bool, error) {
	if paused, err := o.ensureAffordable(ctx, p, cost, step); err != nil || paused {
		return paused, err
	}
	_, err := o.tracker.Record(p.ID, cost)
	return false, err
}

// ensureAffordable pauses the project (reason "budget") when the envelope
// cannot cover the estimate, instead of overspending.
func (o *Orchestrator) ensureAffordable(ctx context.Context, p *Project, estimate float64, step string) (bool, error) {
	if err := o.tracker.CheckRemaining(p.ID, estimate); err != nil {
		o.logger.Warn("insufficient budget for step", "project_id", p.ID, "step", step, "estimate", estimate)
		if perr := o.pauseLocked(ctx, p, PauseReasonBudget); perr != nil {
			return false, perr
		}
		return true, nil
	}
	return false, nil
}

// pauseIfOverBudget applies the auto-pause policy before any stage work.
func (o *Orchestrator) pauseIfOverBudget(ctx context.Context, p *Project) (bool, error) {
	if !o.autoPauseEnabled {
		return false, nil
	}
	env, ok := o.tracker.Get(p.ID)
	if !ok || env.Ratio() < o.autoPauseRatio {
		return false, nil
	}
	if err := o.pauseLocked(ctx, p, PauseReasonBudget); err != nil {
		return false, err
	}
	return true, nil
}

// pauseLocked transitions to paused and persists. Caller holds the entity
// lock.
func (o *Orchestrator) pauseLocked(ctx context.Context, p *Project, reason string) error {
	if err := ensureTransition(p.State, StatePaused); err != nil {
		return err
	}
	p.PrePauseState = p.State
	p.State = StatePaused
	p.PauseReason = reason
	p.UpdatedAt = time.Now()

	saved, err := o.repo.Upsert(ctx, p)
	if err != nil {
		return fmt.Errorf("creative: persist pause: %w", err)
	}
	*p = *saved
	o.sink.Emit("project_paused", map[string]any{
		"project_id": p.ID,
		"reason":     reason,
		"pre_pause":  string(p.PrePauseState),
	})
	o.logger.Info("project paused", "project_id", p.ID, "reason", reason)
	return nil
}
