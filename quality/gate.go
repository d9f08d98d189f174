// Package quality scores generated artifacts and decides whether they may
// advance. The rule engine is the strict path; preview validation is a lenient
// one-shot check that prioritizes liveness over hard gating.
package quality

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Lewis121025/Generate-Agent/internal/util"
	"github.com/Lewis121025/Generate-Agent/logging"
	"github.com/Lewis121025/Generate-Agent/model"
)

const (
	// overallPassThreshold gates the fallback evaluation when no rule
	// auto-approves.
	overallPassThreshold = 0.7
	// previewLenientFloor: a disapproved preview with a score at or above this
	// floor is overridden to approved. Low-confidence rejections are soft
	// passes.
	previewLenientFloor = 0.4
	// defaultScore is assumed when no score can be extracted from a judgment.
	defaultScore = 0.8
	// maxArtifactChars truncates evaluated content to stay within context
	// limits.
	maxArtifactChars = 2000
)

// Rule is one configurable QC check.
type Rule struct {
	Name        string   `yaml:"name" json:"name"`
	Criteria    []string `yaml:"criteria" json:"criteria"`
	Threshold   float64  `yaml:"threshold" json:"threshold"`
	AutoApprove bool     `yaml:"auto_approve" json:"auto_approve"`
}

// RuleResult records one rule's outcome.
type RuleResult struct {
	RuleName  string  `json:"rule_name"`
	Score     float64 `json:"score"`
	Threshold float64 `json:"threshold"`
	Passed    bool    `json:"passed"`
	Notes     string  `json:"notes"`
}

// WorkflowResult is the outcome of a full QC run.
type WorkflowResult struct {
	OverallScore    float64      `json:"overall_score"`
	Passed          bool         `json:"passed"`
	RuleResults     []RuleResult `json:"rule_results"`
	Recommendations []string     `json:"recommendations"`
}

// Evaluation is one scored judgment.
type Evaluation struct {
	Score    float64  `json:"score"`
	Criteria []string `json:"criteria"`
	Notes    string   `json:"notes"`
}

// PreviewVerdict is the one-shot preview approval check.
type PreviewVerdict struct {
	Approved bool     `json:"approved"`
	Score    float64  `json:"score"`
	Issues   []string `json:"issues"`
	Notes    string   `json:"notes"`
}

// Gate evaluates artifacts through a model provider against a ruleset.
type Gate struct {
	provider model.Provider
	rules    []Rule
	logger   logging.Logger
}

// DefaultRules returns the stock ruleset.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "content_quality", Criteria: []string{"quality", "relevance"}, Threshold: 0.7},
		{Name: "completeness", Criteria: []string{"completeness", "coherence"}, Threshold: 0.6},
		{Name: "technical_quality", Criteria: []string{"technical", "accuracy"}, Threshold: 0.75},
	}
}

// GateOptions configure a Gate.
type GateOptions struct {
	Rules  []Rule
	Logger logging.Logger
}

// NewGate builds a gate over the given provider. Without explicit rules the
// default ruleset applies.
func NewGate(provider model.Provider, optFns ...func(o *GateOptions)) *Gate {
	opts := GateOptions{
		Rules:  DefaultRules(),
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Gate{provider: provider, rules: opts.Rules, logger: opts.Logger}
}

// AddRule appends a rule to the gate's ruleset.
func (g *Gate) AddRule(r Rule) {
	g.rules = append(g.rules, r)
}

// Rules returns the active ruleset.
func (g *Gate) Rules() []Rule { return g.rules }

// Evaluate scores content against a criteria set. The judgment text is parsed
// with a strict-then-fallback score extraction; an unscoreable judgment keeps
// the default.
func (g *Gate) Evaluate(ctx context.Context, content string, criteria []string) (Evaluation, error) {
	if len(content) > maxArtifactChars {
		content = content[:maxArtifactChars]
	}
	prompt := fmt.Sprintf(
		"Evaluate the following text against these criteria: %s.\n"+
			"Provide a score from 0.0 to 1.0 and a brief justification.\n"+
			"Text: %s",
		strings.Join(criteria, ", "), content)

	response, err := g.provider.Complete(ctx, prompt, 0.1)
	if err != nil {
		return Evaluation{}, fmt.Errorf("quality: evaluation failed: %w", err)
	}
	return Evaluation{
		Score:    util.ExtractScore(response, defaultScore),
		Criteria: criteria,
		Notes:    strings.TrimSpace(response),
	}, nil
}

// RunWorkflow runs the rule engine over the content. A passing rule marked
// auto_approve short-circuits the overall outcome; otherwise the content must
// clear the overall evaluation at the fixed pass threshold.
func (g *Gate) RunWorkflow(ctx context.Context, content, contentType string) (WorkflowResult, error) {
	result := WorkflowResult{}

	for _, rule := range g.rules {
		eval, err := g.Evaluate(ctx, content, rule.Criteria)
		if err != nil {
			return result, err
		}
		rr := RuleResult{
			RuleName:  rule.Name,
			Score:     eval.Score,
			Threshold: rule.Threshold,
			Passed:    eval.Score >= rule.Threshold,
			Notes:     eval.Notes,
		}
		result.RuleResults = append(result.RuleResults, rr)

		if !rr.Passed {
			result.Recommendations = append(result.Recommendations,
				fmt.Sprintf("Rule '%s' failed: %s", rule.Name, eval.Notes))
		} else if rule.AutoApprove {
			result.Passed = true
			result.OverallScore = eval.Score
			g.logger.Debug("qc auto-approved", "rule", rule.Name, "content_type", contentType)
			return result, nil
		}
	}

	eval, err := g.Evaluate(ctx, content, []string{"quality", "relevance", "completeness"})
	if err != nil {
		return result, err
	}
	result.OverallScore = eval.Score
	result.Passed = eval.Score >= overallPassThreshold
	if !result.Passed {
		result.Recommendations = append(result.Recommendations,
			fmt.Sprintf("Overall quality below threshold: %s", eval.Notes))
	}
	return result, nil
}

// ValidatePreview runs the one-shot approval check on preview content. A
// disapproval with a score at or above the lenient floor is overridden to
// approved; an unparseable judgment approves with a warning so the pipeline
// stays live.
func (g *Gate) ValidatePreview(ctx context.Context, preview, projectCtx map[string]any) (PreviewVerdict, error) {
	previewJSON, _ := json.MarshalIndent(preview, "", "  ")
	ctxJSON, _ := json.MarshalIndent(projectCtx, "", "  ")

	prompt := fmt.Sprintf(
		"Validate this preview content for final approval.\n"+
			"Preview Content:\n%s\n\n"+
			"Project Context:\n%s\n\n"+
			"Check for: visual quality, consistency, completeness, brand compliance.\n"+
			"Return JSON with 'approved' (bool), 'score' (float), 'issues' (list), 'notes' (string).",
		previewJSON, ctxJSON)

	response, err := g.provider.Complete(ctx, prompt, 0.1)
	if err != nil {
		return PreviewVerdict{}, fmt.Errorf("quality: preview validation failed: %w", err)
	}

	if parsed, ok := util.ExtractJSONObject(response); ok {
		verdict := PreviewVerdict{
			Approved: boolField(parsed, "approved"),
			Score:    floatField(parsed, "score", 0.5),
			Issues:   stringList(parsed["issues"]),
			Notes:    stringField(parsed, "notes", strings.TrimSpace(response)),
		}
		if !verdict.Approved && verdict.Score >= previewLenientFloor {
			verdict.Approved = true
			verdict.Notes = strings.TrimSpace("leniency override applied. " + verdict.Notes)
			g.logger.Warn("preview disapproval overridden by leniency floor", "score", verdict.Score)
		}
		return verdict, nil
	}

	g.logger.Warn("preview judgment unparseable, approving with warning")
	return PreviewVerdict{
		Approved: true,
		Score:    0.6,
		Issues:   []string{"Could not parse validation response"},
		Notes:    strings.TrimSpace(response),
	}, nil
}

func boolField(m map[string]any, key string) bool {
	v, _ := m[key].(bool)
	return v
}

func floatField(m map[string]any, key string, fallback float64) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return fallback
	}
}

func stringField(m map[string]any, key, fallback string) string {
	if v, ok := m[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
