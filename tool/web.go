package tool

import (
	"context"

	"github.com/Lewis121025/Generate-Agent/provider"
)

const (
	searchCostUSD   = 0.01
	scrapeCostUSD   = 0.005
	maxScrapedChars = 5000
)

// WebSearch queries a search provider resolved by name through the registry.
type WebSearch struct {
	Registry *provider.Registry
}

// Name implements Tool.
func (w *WebSearch) Name() string { return "web_search" }

// Description implements Tool.
func (w *WebSearch) Description() string {
	return "Queries a web search API and returns summarized results."
}

// Parameters implements Tool.
func (w *WebSearch) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Search query string.",
			},
			"provider": map[string]any{
				"type":        "string",
				"description": "Optional provider override (e.g. 'tavily', 'mock').",
			},
		},
		"required": []string{"query"},
	}
}

// Run implements Tool.
func (w *WebSearch) Run(ctx context.Context, input map[string]any) (*Result, error) {
	query, _ := input["query"].(string)
	if query == "" {
		return nil, NewError(ValidationError, w.Name(), "query must be a non-empty string", nil)
	}
	name, _ := input["provider"].(string)
	p, err := w.Registry.Search(name)
	if err != nil {
		return nil, NewError(ExecutionError, w.Name(), err.Error(), err)
	}
	out, err := p.Search(ctx, query)
	if err != nil {
		return nil, NewError(ExecutionError, w.Name(), err.Error(), err)
	}
	return &Result{
		Output:  map[string]any{"query": query, "result": out},
		CostUSD: searchCostUSD,
	}, nil
}

// WebScrape extracts content from a URL as markdown.
type WebScrape struct {
	Registry *provider.Registry
}

// Name implements Tool.
func (w *WebScrape) Name() string { return "web_scrape" }

// Description implements Tool.
func (w *WebScrape) Description() string {
	return "Extracts content from a URL as markdown."
}

// Parameters implements Tool.
func (w *WebScrape) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "URL to scrape content from.",
			},
			"provider": map[string]any{
				"type":        "string",
				"description": "Optional provider override (e.g. 'firecrawl', 'mock').",
			},
		},
		"required": []string{"url"},
	}
}

// Run implements Tool. Scraped content is truncated to a fixed ceiling so a
// single page cannot flood a transcript.
func (w *WebScrape) Run(ctx context.Context, input map[string]any) (*Result, error) {
	url, _ := input["url"].(string)
	if url == "" {
		return nil, NewError(ValidationError, w.Name(), "url must be a non-empty string", nil)
	}
	name, _ := input["provider"].(string)
	p, err := w.Registry.Scrape(name)
	if err != nil {
		return nil, NewError(ExecutionError, w.Name(), err.Error(), err)
	}
	content, err := p.Scrape(ctx, url)
	if err != nil {
		return nil, NewError(ExecutionError, w.Name(), err.Error(), err)
	}
	if len(content) > maxScrapedChars {
		content = content[:maxScrapedChars]
	}
	return &Result{
		Output:  map[string]any{"url": url, "content": content},
		CostUSD: scrapeCostUSD,
	}, nil
}
