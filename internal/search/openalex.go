// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/research-orchestrator/internal/httputil"
	"github.com/pdiddy/research-orchestrator/pkg/types"
)

// openAlexSearchBase is the OpenAlex Works search endpoint. Declared as a
// var so tests can substitute an httptest server.
var openAlexSearchBase = "https://api.openalex.org/works"

// OpenAlexBackend queries the OpenAlex API. No key is needed.
type OpenAlexBackend struct {
	Client *http.Client
	// Email is sent as mailto parameter for polite pool access.
	Email string

	// Limiter is acquired before every HTTP attempt. Nil disables it.
	Limiter httputil.Acquirer
}

// Name returns the backend identifier.
func (b *OpenAlexBackend) Name() string { return "openalex" }

// Search queries the OpenAlex API. Works are linked through their DOI when
// they have one, otherwise through the OpenAlex id.
func (b *OpenAlexBackend) Search(ctx context.Context, text string, cfg types.SearchConfig) ([]types.SearchResult, error) {
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}
	if maxResults > 200 {
		maxResults = 200
	}

	params := url.Values{
		"search":   {text},
		"per_page": {strconv.Itoa(maxResults)},
		"page":     {"1"},
	}
	if b.Email != "" {
		params.Set("mailto", b.Email)
	}
	reqURL := openAlexSearchBase + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if cfg.UserAgent != "" {
		req.Header.Set("User-Agent", cfg.UserAgent)
	}

	resp, err := httputil.Do(ctx, b.Client, req, httputil.Policy{Limiter: b.Limiter})
	if err != nil {
		return nil, fmt.Errorf("OpenAlex API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenAlex API returned HTTP %d", resp.StatusCode)
	}

	var oar openAlexResponse
	if err := json.NewDecoder(resp.Body).Decode(&oar); err != nil {
		return nil, fmt.Errorf("parsing OpenAlex response: %w", err)
	}

	total := len(oar.Results)
	results := make([]types.SearchResult, 0, total)
	for i, work := range oar.Results {
		r := types.SearchResult{
			Title:   work.Title,
			Content: reconstructAbstract(work.AbstractInvertedIndex),
			Backend: b.Name(),
		}

		switch {
		case work.DOI != "":
			r.URL = work.DOI
		case work.OpenAccess.OAURL != "":
			r.URL = work.OpenAccess.OAURL
		default:
			r.URL = work.ID
		}

		for _, authorship := range work.Authorships {
			if authorship.Author.DisplayName != "" {
				r.Author = authorship.Author.DisplayName
				break
			}
		}

		switch {
		case work.PublicationDate != "":
			r.PublishedDate = work.PublicationDate
		case work.PublicationYear > 0:
			r.PublishedDate = strconv.Itoa(work.PublicationYear)
		}

		// Position-based relevance score. OpenAlex returns results
		// sorted by relevance by default.
		if total > 1 {
			r.Score = 1.0 - float64(i)/float64(total-1)*0.9
		} else {
			r.Score = 1.0
		}

		results = append(results, r)
	}
	return results, nil
}

// reconstructAbstract converts OpenAlex's abstract_inverted_index back to
// plain text. The inverted index maps each word to a list of positions
// where that word appears.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].pos < pairs[j].pos
	})

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Results []openAlexWork `json:"results"`
}

type openAlexWork struct {
	ID                    string               `json:"id"`
	Title                 string               `json:"title"`
	DOI                   string               `json:"doi"`
	PublicationDate       string               `json:"publication_date"`
	PublicationYear       int                  `json:"publication_year"`
	Authorships           []openAlexAuthorship `json:"authorships"`
	AbstractInvertedIndex map[string][]int     `json:"abstract_inverted_index"`
	OpenAccess            openAlexOpenAccess   `json:"open_access"`
}

type openAlexAuthorship struct {
	Author struct {
		DisplayName string `json:"display_name"`
	} `json:"author"`
}

type openAlexOpenAccess struct {
	OAURL string `json:"oa_url"`
}
