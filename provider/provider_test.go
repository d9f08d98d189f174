package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryDefaultsToMock(t *testing.T) {
	r := NewRegistry()

	s, err := r.Search("")
	require.NoError(t, err)
	out, err := s.Search(context.Background(), "golang")
	require.NoError(t, err)
	assert.Contains(t, out, "golang")

	_, err = r.Video("does-not-exist")
	assert.Error(t, err)
}

func TestRegistryNamedOverride(t *testing.T) {
	r := NewRegistry()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"answer": "42"})
	}))
	defer srv.Close()

	tavily := NewTavilySearch("key")
	tavily.BaseURL = srv.URL
	r.RegisterSearch("tavily", tavily)

	s, err := r.Search("tavily")
	require.NoError(t, err)
	out, err := s.Search(context.Background(), "meaning of life")
	require.NoError(t, err)
	assert.Equal(t, "42", out)

	// default is still mock
	s, err = r.Search("")
	require.NoError(t, err)
	assert.Equal(t, MockSearch{}, *s.(*MockSearch))

	r.SetDefaults("tavily", "", "", "")
	s, err = r.Search("")
	require.NoError(t, err)
	assert.Same(t, tavily, s)
}

func TestMockVideoDeterministic(t *testing.T) {
	v := MockVideo{}
	a, err := v.GenerateVideo(context.Background(), VideoRequest{Prompt: "a dog on a beach", DurationSeconds: 10})
	require.NoError(t, err)
	b, err := v.GenerateVideo(context.Background(), VideoRequest{Prompt: "a dog on a beach", DurationSeconds: 10})
	require.NoError(t, err)
	assert.Equal(t, a.URL, b.URL)
	assert.Equal(t, 10, a.DurationSeconds)

	c, err := v.GenerateVideo(context.Background(), VideoRequest{Prompt: "a cat on a roof", DurationSeconds: 10})
	require.NoError(t, err)
	assert.NotEqual(t, a.URL, c.URL)
}

func TestMockTTSCountsCharacters(t *testing.T) {
	res, err := MockTTS{}.Synthesize(context.Background(), "hello world", "")
	require.NoError(t, err)
	assert.Equal(t, 11, res.Characters)
	assert.Contains(t, res.URL, "default")
}

func TestFirecrawlScrape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "Bearer fc-key", req.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"markdown": "# Title"}})
	}))
	defer srv.Close()

	f := NewFirecrawlScrape("fc-key")
	f.BaseURL = srv.URL
	out, err := f.Scrape(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, "# Title", out)
}

func TestHTTPErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	r := NewRunwayVideo("key")
	r.BaseURL = srv.URL
	_, err := r.GenerateVideo(context.Background(), VideoRequest{Prompt: "x"})
	assert.Error(t, err)
}
