package creative

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lewis121025/Generate-Agent/budget"
	"github.com/Lewis121025/Generate-Agent/media"
	"github.com/Lewis121025/Generate-Agent/model"
	"github.com/Lewis121025/Generate-Agent/provider"
	"github.com/Lewis121025/Generate-Agent/quality"
	"github.com/Lewis121025/Generate-Agent/queue"
	"github.com/Lewis121025/Generate-Agent/sandbox"
	"github.com/Lewis121025/Generate-Agent/telemetry"
	"github.com/Lewis121025/Generate-Agent/tool"
)

// memRepo is a minimal in-process Repository for orchestrator tests.
type memRepo struct {
	mu       sync.Mutex
	projects map[string]*Project
}

func newMemRepo() *memRepo {
	return &memRepo{projects: make(map[string]*Project)}
}

func (m *memRepo) Create(_ context.Context, p *Project) (*Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[p.ID]; ok {
		return nil, fmt.Errorf("project %s already exists", p.ID)
	}
	m.projects[p.ID] = p.Clone()
	return p.Clone(), nil
}

func (m *memRepo) Get(_ context.Context, id string) (*Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, fmt.Errorf("project %s not found", id)
	}
	return p.Clone(), nil
}

func (m *memRepo) Upsert(_ context.Context, p *Project) (*Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[p.ID] = p.Clone()
	return p.Clone(), nil
}

func (m *memRepo) ListForTenant(_ context.Context, tenantID string) ([]*Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Project
	for _, p := range m.projects {
		if p.TenantID == tenantID {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}

const testScript = "SCENE 1: CITY - DAY\nSkyline sweep over the harbor.\n\nSCENE 2: LAB - NIGHT\nSlow push-in on the product."

type fixture struct {
	orch    *Orchestrator
	agent   *model.Mock
	judge   *model.Mock
	tracker *budget.Tracker
	repo    *memRepo
	sink    *telemetry.MemorySink
}

func newFixture(t *testing.T, optFns ...func(o *OrchestratorOptions)) *fixture {
	t.Helper()

	agentMock := model.NewMock("")
	judgeMock := model.NewMock("Score: 0.9. Looks solid.")

	sink := telemetry.NewMemorySink()
	tracker, err := budget.NewTracker(func(o *budget.Options) { o.Sink = sink })
	require.NoError(t, err)

	runtime := tool.NewRuntime()
	tool.RegisterDefaults(runtime, sandbox.NewLocal("development"), sandbox.DefaultLimits(), provider.NewRegistry())

	repo := newMemRepo()
	opts := append([]func(o *OrchestratorOptions){func(o *OrchestratorOptions) { o.Sink = sink }}, optFns...)
	orch := NewOrchestrator(repo, NewAgent(agentMock), quality.NewGate(judgeMock), tracker, runtime, opts...)

	return &fixture{orch: orch, agent: agentMock, judge: judgeMock, tracker: tracker, repo: repo, sink: sink}
}

// scriptPipeline queues the agent responses for brief expansion, script
// writing and scene splitting. The split response is not JSON, so the
// storyboard degrades to paragraph chunks.
func (f *fixture) scriptPipeline() {
	f.agent.Enqueue("A tight 30 second teaser centered on the harbor skyline.", testScript, "no structured scenes here")
}

func TestPipelineWalkthrough(t *testing.T) {
	f := newFixture(t)
	f.scriptPipeline()
	f.judge.Enqueue(
		"Score: 0.9. Strong tone.",   // content_quality
		"Score: 0.85. Complete.",     // completeness
		"Score: 0.8. Clean.",         // technical_quality
		"Score: 0.88. Ship it.",      // overall
		`{"approved": true, "score": 0.92, "issues": [], "notes": "clean preview"}`,
	)
	ctx := context.Background()

	p, err := f.orch.CreateProject(ctx, CreateSpec{
		TenantID:        "tenant-a",
		Title:           "Launch teaser",
		Brief:           "30 second teaser for the fall launch",
		Style:           "noir",
		DurationSeconds: 30,
		BudgetUSD:       50,
	})
	require.NoError(t, err)
	assert.Equal(t, StateInitiated, p.State)
	assert.Equal(t, 50.0, p.BudgetUSD)

	// initiated passes through brief_pending because the brief is present
	p, err = f.orch.Advance(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, StateScriptPending, p.State)
	assert.NotEmpty(t, p.BriefSummary)

	p, err = f.orch.Advance(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, StateScriptReview, p.State)
	assert.Equal(t, testScript, p.Script)
	require.Len(t, f.sink.Named("script_qc"), 1)
	assert.Equal(t, true, f.sink.Named("script_qc")[0].Attributes["passed"])

	// review is a human gate: advancing past it is illegal
	_, err = f.orch.Advance(ctx, p.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	p, err = f.orch.ApproveScript(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, StateStoryboardPending, p.State)

	p, err = f.orch.Advance(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, StateStoryboardReady, p.State)
	require.Len(t, p.Storyboard, 2)
	for _, shot := range p.Storyboard {
		assert.Equal(t, 15, shot.EstimatedDuration)
		assert.Contains(t, shot.PanelURL, "placehold.co")
	}

	p, err = f.orch.Advance(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, StateRenderPending, p.State)
	assert.NotEmpty(t, p.Narration)

	p, err = f.orch.Advance(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatePreviewReady, p.State)
	require.Len(t, p.Renders, 2)
	for _, r := range p.Renders {
		assert.InDelta(t, 2.25, r.CostUSD, 1e-9) // 15s preview shot
		assert.NotEmpty(t, r.MediaURL)
	}
	require.NotNil(t, p.Preview)
	assert.True(t, p.Preview.Approved)
	assert.InDelta(t, 0.92, p.Preview.Score, 1e-9)

	p, err = f.orch.ApprovePreview(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, p.State)
	require.Len(t, p.Distribution, 1)
	assert.Equal(t, "library", p.Distribution[0].Channel)
	assert.Equal(t, p.Renders[0].MediaURL, p.Distribution[0].URL)

	// completed is terminal
	_, err = f.orch.Advance(ctx, p.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	env, ok := f.tracker.Get(p.ID)
	require.True(t, ok)
	wantSpend := 0.02 + 0.05 + 0.04 + tool.TTSCost(len(testScript)) + 2*2.25
	assert.InDelta(t, wantSpend, env.SpentUSD, 1e-9)
}

func TestAdvanceWithoutBriefWaits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.orch.CreateProject(ctx, CreateSpec{TenantID: "tenant-a", Title: "Untitled"})
	require.NoError(t, err)
	assert.Equal(t, 30, p.DurationSeconds)
	assert.Equal(t, "cinematic", p.Style)

	p, err = f.orch.Advance(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, StateBriefPending, p.State)

	_, err = f.orch.Advance(ctx, p.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Contains(t, err.Error(), "brief is required")

	// no charge was taken for the empty pass
	env, ok := f.tracker.Get(p.ID)
	require.True(t, ok)
	assert.Zero(t, env.SpentUSD)
}

func TestExhaustedBudgetAutoPauses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.orch.CreateProject(ctx, CreateSpec{
		TenantID:  "tenant-a",
		Title:     "Over budget",
		Brief:     "anything",
		BudgetUSD: 10,
	})
	require.NoError(t, err)

	_, err = f.tracker.Record(p.ID, 10)
	require.NoError(t, err)

	p, err = f.orch.Advance(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatePaused, p.State)
	assert.Equal(t, PauseReasonBudget, p.PauseReason)
	assert.Equal(t, StateInitiated, p.PrePauseState)
	require.Len(t, f.sink.Named("project_paused"), 1)

	// all work is refused while paused
	_, err = f.orch.ApproveScript(ctx, p.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	p, err = f.orch.Resume(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, StateInitiated, p.State)
	assert.Empty(t, p.PauseReason)
	assert.Empty(t, p.PrePauseState)

	// the envelope is still exhausted, so the next advance pauses again
	p, err = f.orch.Advance(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatePaused, p.State)
}

func TestRenderPausesMidwayKeepingPartialManifest(t *testing.T) {
	f := newFixture(t)
	f.scriptPipeline()
	ctx := context.Background()

	// enough for everything up to and including the first 2.25 preview shot,
	// but not the second
	p, err := f.orch.CreateProject(ctx, CreateSpec{
		TenantID:        "tenant-a",
		Title:           "Tight budget",
		Brief:           "short teaser",
		DurationSeconds: 30,
		BudgetUSD:       2.7,
	})
	require.NoError(t, err)

	for _, step := range []State{StateScriptPending, StateScriptReview} {
		p, err = f.orch.Advance(ctx, p.ID)
		require.NoError(t, err)
		require.Equal(t, step, p.State)
	}
	p, err = f.orch.ApproveScript(ctx, p.ID)
	require.NoError(t, err)
	for _, step := range []State{StateStoryboardReady, StateRenderPending} {
		p, err = f.orch.Advance(ctx, p.ID)
		require.NoError(t, err)
		require.Equal(t, step, p.State)
	}

	p, err = f.orch.Advance(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatePaused, p.State)
	assert.Equal(t, PauseReasonBudget, p.PauseReason)
	assert.Equal(t, StateRenderPending, p.PrePauseState)

	// the first shot's render and cost stay on the books
	require.Len(t, p.Renders, 1)
	assert.Equal(t, 0, p.Renders[0].ShotIndex)
	env, _ := f.tracker.Get(p.ID)
	assert.Greater(t, env.SpentUSD, 2.25)
}

func TestManualPauseAndResume(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.orch.CreateProject(ctx, CreateSpec{TenantID: "tenant-a", Title: "Pausable", Brief: "b"})
	require.NoError(t, err)

	p, err = f.orch.Pause(ctx, p.ID, "client review")
	require.NoError(t, err)
	assert.Equal(t, StatePaused, p.State)
	assert.Equal(t, "client review", p.PauseReason)
	assert.Equal(t, StateInitiated, p.PrePauseState)

	// pausing a paused project is illegal
	_, err = f.orch.Pause(ctx, p.ID, "again")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.orch.Advance(ctx, p.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	p, err = f.orch.Resume(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, StateInitiated, p.State)

	_, err = f.orch.Resume(ctx, p.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestApproveFromWrongState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.orch.CreateProject(ctx, CreateSpec{TenantID: "tenant-a", Title: "Wrong gate", Brief: "b"})
	require.NoError(t, err)

	_, err = f.orch.ApproveScript(ctx, p.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = f.orch.ApprovePreview(ctx, p.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestFailIsTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.orch.CreateProject(ctx, CreateSpec{TenantID: "tenant-a", Title: "Doomed", Brief: "b"})
	require.NoError(t, err)

	p, err = f.orch.Fail(ctx, p.ID, "upstream provider outage")
	require.NoError(t, err)
	assert.Equal(t, StateFailed, p.State)
	assert.Equal(t, "upstream provider outage", p.FailureReason)

	_, err = f.orch.Advance(ctx, p.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = f.orch.Fail(ctx, p.ID, "again")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestQueueBackedRenderSavesAssets(t *testing.T) {
	jobs := queue.New()
	defer jobs.Close()
	assets := media.NewStore()

	f := newFixture(t, func(o *OrchestratorOptions) {
		o.Jobs = jobs
		o.Assets = assets
	})
	f.scriptPipeline()
	ctx := context.Background()

	p, err := f.orch.CreateProject(ctx, CreateSpec{
		TenantID:  "tenant-a",
		Title:     "Queued render",
		Brief:     "teaser",
		BudgetUSD: 50,
	})
	require.NoError(t, err)

	p, err = f.orch.Advance(ctx, p.ID) // script_pending
	require.NoError(t, err)
	p, err = f.orch.Advance(ctx, p.ID) // script_review
	require.NoError(t, err)
	p, err = f.orch.ApproveScript(ctx, p.ID)
	require.NoError(t, err)
	p, err = f.orch.Advance(ctx, p.ID) // storyboard_ready
	require.NoError(t, err)
	p, err = f.orch.Advance(ctx, p.ID) // render_pending
	require.NoError(t, err)

	// the first render advance enqueues jobs and returns without waiting on
	// them; the in-flight job ids are persisted on the project
	p, err = f.orch.Advance(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, StateRenderPending, p.State)
	assert.Len(t, p.PendingRenders, 2)

	// later advances poll, collect the finished jobs and finish the stage
	require.Eventually(t, func() bool {
		cur, aerr := f.orch.Advance(ctx, p.ID)
		if aerr != nil {
			return false
		}
		p = cur
		return p.State == StatePreviewReady
	}, 5*time.Second, 10*time.Millisecond)

	require.Len(t, p.Renders, 2)
	assert.Empty(t, p.PendingRenders)
	assert.Equal(t, 0, p.Renders[0].ShotIndex)

	narration, err := assets.Latest(p.ID, "narration")
	require.NoError(t, err)
	assert.Equal(t, "audio", narration.Kind)

	shot, err := assets.Latest(p.ID, "shot-0")
	require.NoError(t, err)
	assert.Equal(t, "video", shot.Kind)
	assert.Equal(t, p.Renders[0].MediaURL, shot.URL)
}
