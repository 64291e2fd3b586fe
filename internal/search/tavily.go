// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/pdiddy/research-orchestrator/internal/httputil"
	"github.com/pdiddy/research-orchestrator/pkg/types"
)

// tavilyAPIURL is the Tavily search endpoint. Declared as a var so tests
// can substitute an httptest server.
var tavilyAPIURL = "https://api.tavily.com/search"

// TavilyBackend queries the Tavily web search API.
type TavilyBackend struct {
	Client *http.Client
	APIKey string
	Logger *zap.Logger

	// Limiter is acquired before every HTTP attempt. Nil disables it.
	Limiter httputil.Acquirer
}

// Name returns the backend identifier.
func (b *TavilyBackend) Name() string { return "tavily" }

type tavilyRequest struct {
	APIKey        string `json:"api_key"`
	Query         string `json:"query"`
	SearchDepth   string `json:"search_depth"`
	IncludeImages bool   `json:"include_images"`
	IncludeAnswer bool   `json:"include_answer"`
	MaxResults    int    `json:"max_results"`
}

type tavilyResponse struct {
	Answer  string          `json:"answer"`
	Results []tavilyResult `json:"results"`
}

type tavilyResult struct {
	URL           string  `json:"url"`
	Title         string  `json:"title"`
	Content       string  `json:"content"`
	Author        string  `json:"author"`
	PublishedDate string  `json:"published_date"`
	Score         float64 `json:"score"`
}

// Search posts the query to Tavily. A non-2xx status or a body without
// results is zero results, not an error.
func (b *TavilyBackend) Search(ctx context.Context, text string, cfg types.SearchConfig) ([]types.SearchResult, error) {
	logger := b.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}
	body, err := json.Marshal(tavilyRequest{
		APIKey:        b.APIKey,
		Query:         text,
		SearchDepth:   "advanced",
		IncludeAnswer: true,
		MaxResults:    maxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tavilyAPIURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.UserAgent != "" {
		req.Header.Set("User-Agent", cfg.UserAgent)
	}

	resp, err := httputil.Do(ctx, b.Client, req, httputil.Policy{Limiter: b.Limiter})
	if err != nil {
		return nil, fmt.Errorf("Tavily API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		logger.Warn("Tavily API returned non-2xx status, treating as no results",
			zap.Int("status", resp.StatusCode))
		return nil, nil
	}

	var tr tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("parsing Tavily response: %w", err)
	}

	results := make([]types.SearchResult, 0, len(tr.Results))
	for _, r := range tr.Results {
		results = append(results, types.SearchResult{
			URL:           r.URL,
			Title:         r.Title,
			Content:       r.Content,
			Author:        r.Author,
			PublishedDate: r.PublishedDate,
			Score:         r.Score,
			Backend:       b.Name(),
		})
	}
	return results, nil
}
