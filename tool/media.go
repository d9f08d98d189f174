package tool

import (
	"context"

	"github.com/Lewis121025/Generate-Agent/provider"
)

const (
	// videoBaseCostUSD is the average cost of a 5-second clip; the realized
	// cost scales with duration and a quality multiplier.
	videoBaseCostUSD       = 2.50
	videoPreviewMultiplier = 0.3
	videoFinalMultiplier   = 1.5

	// ttsCostPer1000Chars is the synthesis cost per 1000 characters.
	ttsCostPer1000Chars = 0.15
)

// VideoCost computes the deterministic cost of a clip.
func VideoCost(durationSeconds int, quality string) float64 {
	if durationSeconds <= 0 {
		durationSeconds = 5
	}
	mult := videoPreviewMultiplier
	if quality == "final" {
		mult = videoFinalMultiplier
	}
	return videoBaseCostUSD * (float64(durationSeconds) / 5) * mult
}

// TTSCost computes the deterministic cost of synthesizing text.
func TTSCost(characters int) float64 {
	return (float64(characters) / 1000) * ttsCostPer1000Chars
}

// GenerateVideo produces a clip from a text prompt through a named provider.
type GenerateVideo struct {
	Registry *provider.Registry
}

// Name implements Tool.
func (g *GenerateVideo) Name() string { return "generate_video" }

// Description implements Tool.
func (g *GenerateVideo) Description() string {
	return "Generates video from a text prompt using the configured provider."
}

// Parameters implements Tool.
func (g *GenerateVideo) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"prompt": map[string]any{
				"type":        "string",
				"description": "Text description of the video to generate.",
			},
			"duration_seconds": map[string]any{
				"type":        "integer",
				"description": "Duration in seconds (default 5).",
			},
			"aspect_ratio": map[string]any{
				"type":        "string",
				"description": "Aspect ratio (e.g. '16:9', '9:16').",
			},
			"quality": map[string]any{
				"type": "string",
				"enum": []any{"preview", "final"},
			},
			"provider": map[string]any{
				"type":        "string",
				"description": "Optional provider override.",
			},
		},
		"required": []string{"prompt"},
	}
}

// Run implements Tool.
func (g *GenerateVideo) Run(ctx context.Context, input map[string]any) (*Result, error) {
	prompt, _ := input["prompt"].(string)
	if prompt == "" {
		return nil, NewError(ValidationError, g.Name(), "prompt must be a non-empty string", nil)
	}
	duration := intField(input, "duration_seconds", 5)
	aspect, _ := input["aspect_ratio"].(string)
	if aspect == "" {
		aspect = "16:9"
	}
	quality, _ := input["quality"].(string)
	if quality == "" {
		quality = "preview"
	}
	name, _ := input["provider"].(string)

	p, err := g.Registry.Video(name)
	if err != nil {
		return nil, NewError(ExecutionError, g.Name(), err.Error(), err)
	}
	res, err := p.GenerateVideo(ctx, provider.VideoRequest{
		Prompt:          prompt,
		DurationSeconds: duration,
		AspectRatio:     aspect,
		Quality:         quality,
	})
	if err != nil {
		return nil, NewError(ExecutionError, g.Name(), err.Error(), err)
	}

	return &Result{
		Output: map[string]any{
			"url":              res.URL,
			"duration_seconds": res.DurationSeconds,
		},
		CostUSD:  VideoCost(duration, quality),
		Metadata: map[string]any{"provider": res.Provider, "quality": quality},
	}, nil
}

// TextToSpeech converts text to speech audio through a named provider.
type TextToSpeech struct {
	Registry *provider.Registry
}

// Name implements Tool.
func (t *TextToSpeech) Name() string { return "text_to_speech" }

// Description implements Tool.
func (t *TextToSpeech) Description() string {
	return "Converts text to speech audio using the configured TTS provider."
}

// Parameters implements Tool.
func (t *TextToSpeech) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": map[string]any{
				"type":        "string",
				"description": "Text to convert to speech.",
			},
			"voice": map[string]any{
				"type":        "string",
				"description": "Voice ID or name.",
			},
			"provider": map[string]any{
				"type":        "string",
				"description": "Optional provider override.",
			},
		},
		"required": []string{"text"},
	}
}

// Run implements Tool.
func (t *TextToSpeech) Run(ctx context.Context, input map[string]any) (*Result, error) {
	text, _ := input["text"].(string)
	if text == "" {
		return nil, NewError(ValidationError, t.Name(), "text must be a non-empty string", nil)
	}
	voice, _ := input["voice"].(string)
	name, _ := input["provider"].(string)

	p, err := t.Registry.TTS(name)
	if err != nil {
		return nil, NewError(ExecutionError, t.Name(), err.Error(), err)
	}
	res, err := p.Synthesize(ctx, text, voice)
	if err != nil {
		return nil, NewError(ExecutionError, t.Name(), err.Error(), err)
	}

	return &Result{
		Output:   map[string]any{"url": res.URL, "characters": res.Characters},
		CostUSD:  TTSCost(len(text)),
		Metadata: map[string]any{"provider": res.Provider},
	}, nil
}

func intField(input map[string]any, key string, fallback int) int {
	switch v := input[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}
