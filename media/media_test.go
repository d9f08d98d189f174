package media

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAssignsVersions(t *testing.T) {
	s := NewStore()

	v1 := s.Save("proj-1", "shot-0", Ref{URL: "https://m/1.mp4", Kind: "video"})
	v2 := s.Save("proj-1", "shot-0", Ref{URL: "https://m/2.mp4", Kind: "video"})
	assert.Equal(t, 1, v1.Version)
	assert.Equal(t, 2, v2.Version)

	latest, err := s.Latest("proj-1", "shot-0")
	require.NoError(t, err)
	assert.Equal(t, "https://m/2.mp4", latest.URL)

	versions, err := s.Versions("proj-1", "shot-0")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, "https://m/1.mp4", versions[0].URL)
}

func TestLatestNotFound(t *testing.T) {
	s := NewStore()
	_, err := s.Latest("proj-1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNames(t *testing.T) {
	s := NewStore()
	s.Save("proj-1", "shot-0", Ref{URL: "a", Kind: "video"})
	s.Save("proj-1", "narration", Ref{URL: "b", Kind: "audio"})

	names := s.Names("proj-1")
	sort.Strings(names)
	assert.Equal(t, []string{"narration", "shot-0"}, names)
}

func TestMetadataIsCopied(t *testing.T) {
	s := NewStore()
	meta := map[string]any{"quality": "preview"}
	s.Save("proj-1", "shot-0", Ref{URL: "a", Kind: "video", Metadata: meta})
	meta["quality"] = "mutated"

	latest, err := s.Latest("proj-1", "shot-0")
	require.NoError(t, err)
	assert.Equal(t, "preview", latest.Metadata["quality"])
}
