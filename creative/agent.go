package creative

import (
	"context"
	"fmt"
	"strings"

	"github.com/Lewis121025/Generate-Agent/internal/util"
	"github.com/Lewis121025/Generate-Agent/model"
	"github.com/Lewis121025/Generate-Agent/provider"
)

// Agent produces the pipeline's creative artifacts through a model provider.
type Agent struct {
	provider model.Provider
}

// NewAgent builds a creative agent over the given provider.
func NewAgent(p model.Provider) *Agent {
	return &Agent{provider: p}
}

// ExpandBrief turns a raw brief into an actionable summary.
func (a *Agent) ExpandBrief(ctx context.Context, brief string) (string, error) {
	out, err := a.provider.Complete(ctx,
		fmt.Sprintf("Expand the following brief for creative mode:\n%s", brief), 0.4)
	if err != nil {
		return "", fmt.Errorf("creative: expand brief: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// WriteScript drafts a scene-by-scene script from the brief.
func (a *Agent) WriteScript(ctx context.Context, brief string, durationSeconds int, style string) (string, error) {
	prompt := fmt.Sprintf(
		"You are a professional screenwriter. Create a compelling scene-by-scene script based on the brief below.\n"+
			"Structure the output clearly with Scene Headers (e.g., SCENE 1: [LOCATION] - [TIME]), Action Lines, and Dialogue.\n"+
			"Target Duration: %d seconds.\n"+
			"Style: %s.\n"+
			"Brief:\n%s\n\n"+
			"Ensure the script is paced well for the target duration.",
		durationSeconds, style, brief)
	out, err := a.provider.Complete(ctx, prompt, 0.7)
	if err != nil {
		return "", fmt.Errorf("creative: write script: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// SplitScript breaks a script into storyboard shots. The model's JSON answer
// is parsed with fence tolerance; anything unusable degrades to paragraph
// chunks with the duration spread evenly.
func (a *Agent) SplitScript(ctx context.Context, script string, totalDuration int) ([]Shot, error) {
	prompt := fmt.Sprintf(
		"Analyze the following script and split it into distinct scenes.\n"+
			"Return a JSON object with a key 'scenes', where each item is an object containing:\n"+
			"- 'description': A concise visual description of the action and setting.\n"+
			"- 'visual_cues': Specific camera or lighting notes based on the style.\n"+
			"- 'estimated_duration': Estimated duration in seconds (integer).\n\n"+
			"Script:\n%s\n\n"+
			"Ensure the total duration roughly matches the target. Return ONLY valid JSON.",
		script)
	response, err := a.provider.Complete(ctx, prompt, 0.1)
	if err != nil {
		return nil, fmt.Errorf("creative: split script: %w", err)
	}

	if obj, ok := util.ExtractJSONObject(response); ok {
		if scenes, ok := obj["scenes"].([]any); ok && len(scenes) > 0 {
			shots := make([]Shot, 0, len(scenes))
			for i, raw := range scenes {
				scene, ok := raw.(map[string]any)
				if !ok {
					continue
				}
				shot := Shot{
					Index:             i,
					Description:       strField(scene, "description"),
					VisualCues:        strField(scene, "visual_cues"),
					EstimatedDuration: intOr(scene["estimated_duration"], 5),
				}
				if shot.Description != "" {
					shots = append(shots, shot)
				}
			}
			if len(shots) > 0 {
				return shots, nil
			}
		}
	}
	return fallbackShots(script, totalDuration), nil
}

// fallbackShots chunks the script on blank lines when the model's structure
// cannot be used.
func fallbackShots(script string, totalDuration int) []Shot {
	var chunks []string
	for _, c := range strings.Split(script, "\n\n") {
		if c = strings.TrimSpace(c); c != "" {
			chunks = append(chunks, c)
		}
	}
	if len(chunks) == 0 {
		chunks = []string{strings.TrimSpace(script)}
	}
	per := totalDuration / len(chunks)
	if per < 5 {
		per = 5
	}
	shots := make([]Shot, len(chunks))
	for i, c := range chunks {
		shots[i] = Shot{
			Index:             i,
			Description:       c,
			VisualCues:        "Standard shot",
			EstimatedDuration: per,
		}
	}
	return shots
}

// PanelVisual returns a deterministic placeholder image URL for a storyboard
// panel. A real image provider can replace this per deployment.
func (a *Agent) PanelVisual(description string) string {
	return provider.PlaceholderPanelURL(description)
}

func strField(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return strings.TrimSpace(v)
}

func intOr(v any, fallback int) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return fallback
	}
}
