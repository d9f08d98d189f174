// Package provider defines the external media/content collaborators consumed
// by the tool runtime: web search, web scraping, video generation, and speech
// synthesis. Providers are selected by name through a registry with a default
// per kind.
package provider

import (
	"context"
	"fmt"
	"sync"
)

// Search queries a web search API and returns a summarized result.
type Search interface {
	Search(ctx context.Context, query string) (string, error)
}

// Scrape extracts page content as markdown.
type Scrape interface {
	Scrape(ctx context.Context, url string) (string, error)
}

// VideoRequest describes one clip to generate.
type VideoRequest struct {
	Prompt          string
	DurationSeconds int
	AspectRatio     string
	Quality         string // "preview" or "final"
}

// VideoResult is the provider's answer for a clip.
type VideoResult struct {
	URL             string
	DurationSeconds int
	Provider        string
}

// Video generates a clip from a text prompt.
type Video interface {
	GenerateVideo(ctx context.Context, req VideoRequest) (VideoResult, error)
}

// AudioResult is a synthesized speech asset.
type AudioResult struct {
	URL        string
	Characters int
	Provider   string
}

// TTS converts text to speech.
type TTS interface {
	Synthesize(ctx context.Context, text, voice string) (AudioResult, error)
}

// Registry resolves providers by name, with a configurable default per kind.
// Registration happens at startup; lookups are concurrent-safe.
type Registry struct {
	mu sync.RWMutex

	search map[string]Search
	scrape map[string]Scrape
	video  map[string]Video
	tts    map[string]TTS

	defaultSearch string
	defaultScrape string
	defaultVideo  string
	defaultTTS    string
}

// NewRegistry returns a registry with mock providers preregistered under
// "mock" and set as defaults, so the whole pipeline runs offline until real
// providers are configured.
func NewRegistry() *Registry {
	r := &Registry{
		search: map[string]Search{},
		scrape: map[string]Scrape{},
		video:  map[string]Video{},
		tts:    map[string]TTS{},
	}
	r.RegisterSearch("mock", &MockSearch{})
	r.RegisterScrape("mock", &MockScrape{})
	r.RegisterVideo("mock", &MockVideo{})
	r.RegisterTTS("mock", &MockTTS{})
	r.defaultSearch, r.defaultScrape, r.defaultVideo, r.defaultTTS = "mock", "mock", "mock", "mock"
	return r
}

// RegisterSearch adds a named search provider.
func (r *Registry) RegisterSearch(name string, p Search) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.search[name] = p
}

// RegisterScrape adds a named scrape provider.
func (r *Registry) RegisterScrape(name string, p Scrape) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scrape[name] = p
}

// RegisterVideo adds a named video provider.
func (r *Registry) RegisterVideo(name string, p Video) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.video[name] = p
}

// RegisterTTS adds a named TTS provider.
func (r *Registry) RegisterTTS(name string, p TTS) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tts[name] = p
}

// SetDefaults configures the default provider name per kind. Empty strings
// leave the current default untouched.
func (r *Registry) SetDefaults(search, scrape, video, tts string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if search != "" {
		r.defaultSearch = search
	}
	if scrape != "" {
		r.defaultScrape = scrape
	}
	if video != "" {
		r.defaultVideo = video
	}
	if tts != "" {
		r.defaultTTS = tts
	}
}

// Search resolves a search provider; empty name means the default.
func (r *Registry) Search(name string) (Search, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name == "" {
		name = r.defaultSearch
	}
	p, ok := r.search[name]
	if !ok {
		return nil, fmt.Errorf("provider: unknown search provider %q", name)
	}
	return p, nil
}

// Scrape resolves a scrape provider; empty name means the default.
func (r *Registry) Scrape(name string) (Scrape, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name == "" {
		name = r.defaultScrape
	}
	p, ok := r.scrape[name]
	if !ok {
		return nil, fmt.Errorf("provider: unknown scrape provider %q", name)
	}
	return p, nil
}

// Video resolves a video provider; empty name means the default.
func (r *Registry) Video(name string) (Video, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name == "" {
		name = r.defaultVideo
	}
	p, ok := r.video[name]
	if !ok {
		return nil, fmt.Errorf("provider: unknown video provider %q", name)
	}
	return p, nil
}

// TTS resolves a TTS provider; empty name means the default.
func (r *Registry) TTS(name string) (TTS, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name == "" {
		name = r.defaultTTS
	}
	p, ok := r.tts[name]
	if !ok {
		return nil, fmt.Errorf("provider: unknown tts provider %q", name)
	}
	return p, nil
}
