package creative

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lewis121025/Generate-Agent/model"
)

func TestSplitScriptParsesScenes(t *testing.T) {
	mock := model.NewMock("")
	mock.Enqueue("```json\n{\"scenes\": [" +
		"{\"description\": \"Harbor at dawn\", \"visual_cues\": \"wide drone shot\", \"estimated_duration\": 12}," +
		"{\"description\": \"Lab close-up\", \"visual_cues\": \"macro lens\", \"estimated_duration\": 18}" +
		"]}\n```")
	agent := NewAgent(mock)

	shots, err := agent.SplitScript(context.Background(), "some script", 30)
	require.NoError(t, err)
	require.Len(t, shots, 2)
	assert.Equal(t, 0, shots[0].Index)
	assert.Equal(t, "Harbor at dawn", shots[0].Description)
	assert.Equal(t, "wide drone shot", shots[0].VisualCues)
	assert.Equal(t, 12, shots[0].EstimatedDuration)
	assert.Equal(t, 18, shots[1].EstimatedDuration)
}

func TestSplitScriptFallsBackToChunks(t *testing.T) {
	mock := model.NewMock("the model rambled instead of returning JSON")
	agent := NewAgent(mock)

	script := "First beat.\n\nSecond beat.\n\nThird beat."
	shots, err := agent.SplitScript(context.Background(), script, 30)
	require.NoError(t, err)
	require.Len(t, shots, 3)
	assert.Equal(t, "First beat.", shots[0].Description)
	assert.Equal(t, 10, shots[0].EstimatedDuration)
}

func TestSplitScriptFallbackFloorsShortDurations(t *testing.T) {
	mock := model.NewMock("nope")
	agent := NewAgent(mock)

	// 3 chunks out of a 6 second target still get 5 seconds each
	shots, err := agent.SplitScript(context.Background(), "a\n\nb\n\nc", 6)
	require.NoError(t, err)
	require.Len(t, shots, 3)
	for _, s := range shots {
		assert.Equal(t, 5, s.EstimatedDuration)
	}
}

func TestSplitScriptSkipsScenesWithoutDescription(t *testing.T) {
	mock := model.NewMock("")
	mock.Enqueue(`{"scenes": [{"visual_cues": "no description"}, {"description": "kept"}]}`)
	agent := NewAgent(mock)

	shots, err := agent.SplitScript(context.Background(), "s", 10)
	require.NoError(t, err)
	require.Len(t, shots, 1)
	assert.Equal(t, "kept", shots[0].Description)
}

func TestPanelVisualIsDeterministic(t *testing.T) {
	agent := NewAgent(model.NewMock(""))
	a := agent.PanelVisual("harbor at dawn")
	b := agent.PanelVisual("harbor at dawn")
	assert.Equal(t, a, b)
	assert.Contains(t, a, "placehold.co")
	assert.NotEqual(t, a, agent.PanelVisual("lab at night"))
}
