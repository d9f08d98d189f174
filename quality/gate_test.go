package quality

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lewis121025/Generate-Agent/model"
)

func TestEvaluateExtractsScore(t *testing.T) {
	provider := model.NewMock("This scores 0.65 against the criteria. Needs tightening.")
	gate := NewGate(provider)

	eval, err := gate.Evaluate(context.Background(), "some script", []string{"quality"})
	require.NoError(t, err)
	assert.Equal(t, 0.65, eval.Score)
	assert.Contains(t, eval.Notes, "tightening")
}

func TestEvaluateDefaultScoreWhenUnparseable(t *testing.T) {
	provider := model.NewMock("Looks fine to me.")
	gate := NewGate(provider)

	eval, err := gate.Evaluate(context.Background(), "content", []string{"quality"})
	require.NoError(t, err)
	assert.Equal(t, 0.8, eval.Score)
}

func TestRunWorkflowPassesOverall(t *testing.T) {
	// three rule evaluations then the overall one
	provider := model.NewMock("").Enqueue(
		"Score: 0.9 strong", "Score: 0.8 coherent", "Score: 0.8 accurate", "Score: 0.85 good overall",
	)
	gate := NewGate(provider)

	res, err := gate.RunWorkflow(context.Background(), "a solid script", "script")
	require.NoError(t, err)
	assert.True(t, res.Passed)
	assert.Equal(t, 0.85, res.OverallScore)
	assert.Len(t, res.RuleResults, 3)
	assert.Empty(t, res.Recommendations)
}

func TestRunWorkflowAutoApproveShortCircuits(t *testing.T) {
	provider := model.NewMock("Score: 0.95 excellent")
	gate := NewGate(provider, func(o *GateOptions) {
		o.Rules = []Rule{
			{Name: "fast_pass", Criteria: []string{"quality"}, Threshold: 0.9, AutoApprove: true},
			{Name: "never_reached", Criteria: []string{"accuracy"}, Threshold: 0.99},
		}
	})

	res, err := gate.RunWorkflow(context.Background(), "content", "script")
	require.NoError(t, err)
	assert.True(t, res.Passed)
	require.Len(t, res.RuleResults, 1)
	assert.Equal(t, "fast_pass", res.RuleResults[0].RuleName)
	// only one model call happened
	assert.Equal(t, 1, provider.CallCount())
}

func TestRunWorkflowRecordsRecommendationsOnShortfall(t *testing.T) {
	provider := model.NewMock("Score: 0.5 weak")
	gate := NewGate(provider)

	res, err := gate.RunWorkflow(context.Background(), "thin content", "script")
	require.NoError(t, err)
	assert.False(t, res.Passed)
	assert.Equal(t, 0.5, res.OverallScore)
	// three failed rules plus the overall shortfall
	assert.Len(t, res.Recommendations, 4)
	assert.Contains(t, res.Recommendations[3], "Overall quality below threshold")
}

func TestValidatePreviewApproved(t *testing.T) {
	provider := model.NewMock(`{"approved": true, "score": 0.9, "issues": [], "notes": "clean"}`)
	gate := NewGate(provider)

	verdict, err := gate.ValidatePreview(context.Background(), map[string]any{"url": "x"}, nil)
	require.NoError(t, err)
	assert.True(t, verdict.Approved)
	assert.Equal(t, 0.9, verdict.Score)
	assert.Equal(t, "clean", verdict.Notes)
}

func TestValidatePreviewLeniencyOverride(t *testing.T) {
	provider := model.NewMock(`{"approved": false, "score": 0.45, "issues": ["pacing"], "notes": "not great"}`)
	gate := NewGate(provider)

	verdict, err := gate.ValidatePreview(context.Background(), map[string]any{"url": "x"}, nil)
	require.NoError(t, err)
	// disapproved but above the lenient floor becomes a soft pass
	assert.True(t, verdict.Approved)
	assert.Equal(t, 0.45, verdict.Score)
	assert.Contains(t, verdict.Notes, "leniency override")
	assert.Equal(t, []string{"pacing"}, verdict.Issues)
}

func TestValidatePreviewHardRejectBelowFloor(t *testing.T) {
	provider := model.NewMock(`{"approved": false, "score": 0.2, "issues": ["broken"], "notes": "bad"}`)
	gate := NewGate(provider)

	verdict, err := gate.ValidatePreview(context.Background(), map[string]any{"url": "x"}, nil)
	require.NoError(t, err)
	assert.False(t, verdict.Approved)
}

func TestValidatePreviewUnparseableApprovesWithWarning(t *testing.T) {
	provider := model.NewMock("I think it is probably fine?")
	gate := NewGate(provider)

	verdict, err := gate.ValidatePreview(context.Background(), map[string]any{"url": "x"}, nil)
	require.NoError(t, err)
	assert.True(t, verdict.Approved)
	assert.Equal(t, 0.6, verdict.Score)
	assert.Equal(t, []string{"Could not parse validation response"}, verdict.Issues)
}

func TestParseRules(t *testing.T) {
	rules, err := ParseRules([]byte(`
rules:
  - name: brand_fit
    criteria: [branding, tone]
    threshold: 0.8
    auto_approve: true
  - name: safety
    criteria: [safety]
    threshold: 0.95
`))
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "brand_fit", rules[0].Name)
	assert.True(t, rules[0].AutoApprove)
	assert.Equal(t, 0.95, rules[1].Threshold)
}

func TestParseRulesRejectsInvalid(t *testing.T) {
	_, err := ParseRules([]byte(`rules: []`))
	assert.Error(t, err)

	_, err = ParseRules([]byte("rules:\n  - name: x\n    criteria: [a]\n    threshold: 1.5\n"))
	assert.Error(t, err)
}
