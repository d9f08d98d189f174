package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

func defaultClient() *http.Client {
	return &http.Client{Timeout: 60 * time.Second}
}

func postJSON(ctx context.Context, client *http.Client, url, apiKey string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("provider: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("provider: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("provider: request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("provider: %s returned %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("provider: decode response: %w", err)
	}
	return nil
}

// TavilySearch queries the Tavily search API.
type TavilySearch struct {
	APIKey  string
	BaseURL string
	Client  *http.Client
}

// NewTavilySearch builds a Tavily-backed search provider.
func NewTavilySearch(apiKey string) *TavilySearch {
	return &TavilySearch{APIKey: apiKey, BaseURL: "https://api.tavily.com", Client: defaultClient()}
}

// Search implements Search.
func (t *TavilySearch) Search(ctx context.Context, query string) (string, error) {
	var out struct {
		Answer  string `json:"answer"`
		Results []struct {
			Title   string `json:"title"`
			Content string `json:"content"`
		} `json:"results"`
	}
	payload := map[string]any{"api_key": t.APIKey, "query": query, "include_answer": true}
	if err := postJSON(ctx, t.Client, t.BaseURL+"/search", "", payload, &out); err != nil {
		return "", err
	}
	if out.Answer != "" {
		return out.Answer, nil
	}
	var sb strings.Builder
	for _, r := range out.Results {
		fmt.Fprintf(&sb, "%s: %s\n", r.Title, r.Content)
	}
	return sb.String(), nil
}

// FirecrawlScrape extracts page content through the Firecrawl API.
type FirecrawlScrape struct {
	APIKey  string
	BaseURL string
	Client  *http.Client
}

// NewFirecrawlScrape builds a Firecrawl-backed scrape provider.
func NewFirecrawlScrape(apiKey string) *FirecrawlScrape {
	return &FirecrawlScrape{APIKey: apiKey, BaseURL: "https://api.firecrawl.dev/v1", Client: defaultClient()}
}

// Scrape implements Scrape.
func (f *FirecrawlScrape) Scrape(ctx context.Context, url string) (string, error) {
	var out struct {
		Data struct {
			Markdown string `json:"markdown"`
		} `json:"data"`
	}
	payload := map[string]any{"url": url, "formats": []string{"markdown"}}
	if err := postJSON(ctx, f.Client, f.BaseURL+"/scrape", f.APIKey, payload, &out); err != nil {
		return "", err
	}
	return out.Data.Markdown, nil
}

// RunwayVideo generates clips through a Runway-style generation API.
type RunwayVideo struct {
	APIKey  string
	BaseURL string
	Client  *http.Client
}

// NewRunwayVideo builds a Runway-backed video provider.
func NewRunwayVideo(apiKey string) *RunwayVideo {
	return &RunwayVideo{APIKey: apiKey, BaseURL: "https://api.runwayml.com/v1", Client: defaultClient()}
}

// GenerateVideo implements Video.
func (r *RunwayVideo) GenerateVideo(ctx context.Context, req VideoRequest) (VideoResult, error) {
	dur := req.DurationSeconds
	if dur <= 0 {
		dur = 5
	}
	var out struct {
		URL string `json:"url"`
	}
	payload := map[string]any{
		"prompt":       req.Prompt,
		"duration":     dur,
		"aspect_ratio": req.AspectRatio,
		"quality":      req.Quality,
	}
	if err := postJSON(ctx, r.Client, r.BaseURL+"/generate", r.APIKey, payload, &out); err != nil {
		return VideoResult{}, err
	}
	return VideoResult{URL: out.URL, DurationSeconds: dur, Provider: "runway"}, nil
}

// ElevenLabsTTS synthesizes speech through the ElevenLabs API.
type ElevenLabsTTS struct {
	APIKey  string
	BaseURL string
	Client  *http.Client
}

// NewElevenLabsTTS builds an ElevenLabs-backed TTS provider.
func NewElevenLabsTTS(apiKey string) *ElevenLabsTTS {
	return &ElevenLabsTTS{APIKey: apiKey, BaseURL: "https://api.elevenlabs.io/v1", Client: defaultClient()}
}

// Synthesize implements TTS.
func (e *ElevenLabsTTS) Synthesize(ctx context.Context, text, voice string) (AudioResult, error) {
	if voice == "" {
		voice = "default"
	}
	var out struct {
		URL string `json:"audio_url"`
	}
	payload := map[string]any{"text": text, "voice": voice}
	if err := postJSON(ctx, e.Client, e.BaseURL+"/text-to-speech", e.APIKey, payload, &out); err != nil {
		return AudioResult{}, err
	}
	return AudioResult{URL: out.URL, Characters: len(text), Provider: "elevenlabs"}, nil
}
