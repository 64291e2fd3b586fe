// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pdiddy/research-orchestrator/internal/httputil"
	"github.com/pdiddy/research-orchestrator/pkg/types"
)

// semanticAPIBase is the Semantic Scholar paper search endpoint. Declared
// as a var so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1/paper/search"

const semanticFields = "title,abstract,authors,url,year,publicationDate"

// semanticPaperURL is the public page for a paper id, used when the API
// omits url.
const semanticPaperURL = "https://www.semanticscholar.org/paper/"

// SemanticScholarBackend adds academic papers to web results. The abstract
// becomes the result content so papers without one are dropped later by
// the research agent.
type SemanticScholarBackend struct {
	Client *http.Client
	APIKey string

	// Limiter is acquired before every HTTP attempt. Nil disables it.
	Limiter httputil.Acquirer
}

// Name returns the backend identifier.
func (b *SemanticScholarBackend) Name() string { return "semantic_scholar" }

// Search queries the Semantic Scholar API.
func (b *SemanticScholarBackend) Search(ctx context.Context, text string, cfg types.SearchConfig) ([]types.SearchResult, error) {
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}

	params := url.Values{
		"query":  {text},
		"limit":  {strconv.Itoa(maxResults)},
		"fields": {semanticFields},
	}
	reqURL := semanticAPIBase + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if cfg.UserAgent != "" {
		req.Header.Set("User-Agent", cfg.UserAgent)
	}
	if b.APIKey != "" {
		req.Header.Set("x-api-key", b.APIKey)
	}

	resp, err := httputil.Do(ctx, b.Client, req, httputil.Policy{Limiter: b.Limiter})
	if err != nil {
		return nil, fmt.Errorf("Semantic Scholar API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Semantic Scholar API returned HTTP %d", resp.StatusCode)
	}

	var sr semanticResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing Semantic Scholar response: %w", err)
	}

	total := len(sr.Data)
	results := make([]types.SearchResult, 0, total)
	for i, paper := range sr.Data {
		r := types.SearchResult{
			URL:     paper.URL,
			Title:   paper.Title,
			Content: paper.Abstract,
			Backend: b.Name(),
		}
		if r.URL == "" && paper.PaperID != "" {
			r.URL = semanticPaperURL + paper.PaperID
		}
		if len(paper.Authors) > 0 {
			r.Author = paper.Authors[0].Name
		}
		switch {
		case paper.PublicationDate != "":
			r.PublishedDate = paper.PublicationDate
		case paper.Year > 0:
			r.PublishedDate = strconv.Itoa(paper.Year)
		}

		// Position-based relevance score.
		if total > 1 {
			r.Score = 1.0 - float64(i)/float64(total-1)*0.9
		} else {
			r.Score = 1.0
		}

		results = append(results, r)
	}
	return results, nil
}

// Semantic Scholar API JSON structures.
type semanticResponse struct {
	Total  int             `json:"total"`
	Offset int             `json:"offset"`
	Data   []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID         string           `json:"paperId"`
	URL             string           `json:"url"`
	Title           string           `json:"title"`
	Abstract        string           `json:"abstract"`
	Year            int              `json:"year"`
	PublicationDate string           `json:"publicationDate"`
	Authors         []semanticAuthor `json:"authors"`
}

type semanticAuthor struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}
