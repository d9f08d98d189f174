package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractScoreStrict(t *testing.T) {
	assert.Equal(t, 0.85, ExtractScore("0.85", 0.5))
	assert.Equal(t, 1.0, ExtractScore(" 1.0 ", 0.5))
}

func TestExtractScoreFallback(t *testing.T) {
	assert.Equal(t, 0.72, ExtractScore("I would rate this 0.72, solid work overall.", 0.5))
	assert.Equal(t, 0.4, ExtractScore("Score: 0.4.", 0.5))
}

func TestExtractScoreDefault(t *testing.T) {
	assert.Equal(t, 0.8, ExtractScore("no numbers here at all", 0.8))
	// out-of-range floats are ignored
	assert.Equal(t, 0.8, ExtractScore("rated 7.5 out of 10", 0.8))
}

func TestExtractJSONObjectDirect(t *testing.T) {
	obj, ok := ExtractJSONObject(`{"approved": true, "score": 0.9}`)
	require.True(t, ok)
	assert.Equal(t, true, obj["approved"])
	assert.Equal(t, 0.9, obj["score"])
}

func TestExtractJSONObjectFenced(t *testing.T) {
	obj, ok := ExtractJSONObject("```json\n{\"scenes\": []}\n```")
	require.True(t, ok)
	assert.Contains(t, obj, "scenes")
}

func TestExtractJSONObjectEmbedded(t *testing.T) {
	obj, ok := ExtractJSONObject(`Here is my verdict: {"approved": false, "notes": "weak {pacing}"} hope it helps`)
	require.True(t, ok)
	assert.Equal(t, false, obj["approved"])
	assert.Equal(t, "weak {pacing}", obj["notes"])
}

func TestExtractJSONObjectMissing(t *testing.T) {
	_, ok := ExtractJSONObject("no structure here")
	assert.False(t, ok)
}

func TestCoerceActionInput(t *testing.T) {
	obj := CoerceActionInput(`{"query": "go concurrency"}`)
	assert.Equal(t, "go concurrency", obj["query"])

	obj = CoerceActionInput("just a bare string")
	assert.Equal(t, "just a bare string", obj["input"])

	obj = CoerceActionInput("```json\n{\"url\": \"https://example.com\"}\n```")
	assert.Equal(t, "https://example.com", obj["url"])
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, "plain", StripCodeFence("plain"))
}

func TestCreateSchema(t *testing.T) {
	type params struct {
		Query string `json:"query" description:"Search query string."`
		Limit int    `json:"limit,omitempty"`
	}
	schema := CreateSchema(params{})
	assert.Equal(t, "object", schema["type"])
	props := schema["properties"].(map[string]any)
	assert.Equal(t, "string", props["query"].(map[string]any)["type"])
	assert.Equal(t, "integer", props["limit"].(map[string]any)["type"])
	assert.Equal(t, []string{"query"}, schema["required"])
}

func TestValidateParameters(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"prompt":  map[string]any{"type": "string"},
			"quality": map[string]any{"type": "string", "enum": []any{"preview", "final"}},
			"seconds": map[string]any{"type": "integer"},
		},
		"required": []string{"prompt"},
	}

	err := ValidateParameters(map[string]any{"prompt": "a dog", "seconds": float64(5)}, schema)
	require.NoError(t, err)

	err = ValidateParameters(map[string]any{}, schema)
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "prompt", verr.Field)

	err = ValidateParameters(map[string]any{"prompt": 42}, schema)
	assert.Error(t, err)

	err = ValidateParameters(map[string]any{"prompt": "x", "quality": "draft"}, schema)
	assert.Error(t, err)

	err = ValidateParameters(map[string]any{"prompt": "x", "seconds": 2.5}, schema)
	assert.Error(t, err)
}
