package provider

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// digest returns a short stable hash used to make placeholder asset URLs
// deterministic per input.
func digest(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])[:8]
}

// MockSearch returns a canned summary embedding the query.
type MockSearch struct{}

// Search implements Search.
func (MockSearch) Search(ctx context.Context, query string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return fmt.Sprintf("Mock search results for %q: three relevant articles found.", query), nil
}

// MockScrape returns placeholder markdown for the URL.
type MockScrape struct{}

// Scrape implements Scrape.
func (MockScrape) Scrape(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return fmt.Sprintf("# Mock content\n\nExtracted from %s.", url), nil
}

// MockVideo returns a deterministic placeholder clip URL derived from the
// prompt digest.
type MockVideo struct{}

// GenerateVideo implements Video.
func (MockVideo) GenerateVideo(ctx context.Context, req VideoRequest) (VideoResult, error) {
	if err := ctx.Err(); err != nil {
		return VideoResult{}, err
	}
	dur := req.DurationSeconds
	if dur <= 0 {
		dur = 5
	}
	return VideoResult{
		URL:             fmt.Sprintf("https://media.invalid/video/%s-%ds.mp4", digest(req.Prompt), dur),
		DurationSeconds: dur,
		Provider:        "mock",
	}, nil
}

// MockTTS returns a deterministic placeholder audio URL derived from the text
// digest.
type MockTTS struct{}

// Synthesize implements TTS.
func (MockTTS) Synthesize(ctx context.Context, text, voice string) (AudioResult, error) {
	if err := ctx.Err(); err != nil {
		return AudioResult{}, err
	}
	if voice == "" {
		voice = "default"
	}
	return AudioResult{
		URL:        fmt.Sprintf("https://media.invalid/audio/%s-%s.mp3", digest(text), voice),
		Characters: len(text),
		Provider:   "mock",
	}, nil
}

// PlaceholderPanelURL builds a deterministic storyboard panel image URL from a
// shot description. Used when no image provider is configured.
func PlaceholderPanelURL(description string) string {
	return fmt.Sprintf("https://placehold.co/1024x576?text=%s", digest(description))
}
