// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search queries web and academic search services and returns
// unified, deduplicated results for one query string.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"sync"
	"unicode"

	"go.uber.org/zap"

	"github.com/pdiddy/research-orchestrator/internal/metrics"
	"github.com/pdiddy/research-orchestrator/pkg/types"
)

// Client is what the research agents call.
type Client interface {
	Search(ctx context.Context, text string) (Response, error)
}

// Backend searches a single service. Each backend (Tavily, Semantic
// Scholar) implements this interface.
type Backend interface {
	Name() string
	Search(ctx context.Context, text string, cfg types.SearchConfig) ([]types.SearchResult, error)
}

// Response holds the merged results and dedup statistics.
type Response struct {
	Results       []types.SearchResult `json:"results"`
	DupsRemoved   int                  `json:"dups_removed"`
	BackendErrors []string             `json:"backend_errors,omitempty"`
}

// Engine fans a query out to every backend and merges the results.
type Engine struct {
	backends []Backend
	cfg      types.SearchConfig
	logger   *zap.Logger
}

// NewEngine returns an Engine over backends.
func NewEngine(cfg types.SearchConfig, logger *zap.Logger, backends ...Backend) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{backends: backends, cfg: cfg, logger: logger.Named("search")}
}

// Search queries all backends concurrently, deduplicates results, ranks
// them by score, and returns the top MaxResults. A failing backend is
// logged and skipped; the call only fails when there is nothing to ask.
func (e *Engine) Search(ctx context.Context, text string) (Response, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Response{}, fmt.Errorf("search query is empty")
	}
	if len(e.backends) == 0 {
		return Response{}, fmt.Errorf("no search backends configured")
	}

	type backendResult struct {
		results []types.SearchResult
		err     error
		name    string
	}

	ch := make(chan backendResult, len(e.backends))
	var wg sync.WaitGroup
	for _, b := range e.backends {
		wg.Add(1)
		go func(b Backend) {
			defer wg.Done()
			results, err := b.Search(ctx, text, e.cfg)
			ch <- backendResult{results: results, err: err, name: b.Name()}
		}(b)
	}
	go func() {
		wg.Wait()
		close(ch)
	}()

	var all []types.SearchResult
	var backendErrors []string
	for br := range ch {
		if br.err != nil {
			metrics.SearchCalls.WithLabelValues(br.name, "error").Inc()
			backendErrors = append(backendErrors, fmt.Sprintf("%s: %v", br.name, br.err))
			e.logger.Warn("search backend failed", zap.String("backend", br.name), zap.Error(br.err))
			continue
		}
		metrics.SearchCalls.WithLabelValues(br.name, "ok").Inc()
		for i := range br.results {
			if br.results[i].Backend == "" {
				br.results[i].Backend = br.name
			}
		}
		all = append(all, br.results...)
	}

	deduped, removed := deduplicate(all)

	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].Score > deduped[j].Score
	})

	if e.cfg.MaxResults > 0 && len(deduped) > e.cfg.MaxResults {
		deduped = deduped[:e.cfg.MaxResults]
	}

	return Response{
		Results:       deduped,
		DupsRemoved:   removed,
		BackendErrors: backendErrors,
	}, nil
}

// deduplicate merges results that share a normalized URL or title.
func deduplicate(results []types.SearchResult) ([]types.SearchResult, int) {
	seen := make(map[string]int) // dedup key -> index in deduped
	var deduped []types.SearchResult
	removed := 0

	for _, r := range results {
		urlKey := ""
		if u := normalizeURL(r.URL); u != "" {
			urlKey = "url:" + u
		}
		titleKey := ""
		if t := normalizeTitle(r.Title); t != "" {
			titleKey = "title:" + t
		}

		if idx, ok := lookup(seen, urlKey, titleKey); ok {
			mergeInto(&deduped[idx], r)
			removed++
			continue
		}

		idx := len(deduped)
		deduped = append(deduped, r)
		if urlKey != "" {
			seen[urlKey] = idx
		}
		if titleKey != "" {
			seen[titleKey] = idx
		}
	}
	return deduped, removed
}

func lookup(seen map[string]int, keys ...string) (int, bool) {
	for _, k := range keys {
		if k == "" {
			continue
		}
		if idx, ok := seen[k]; ok {
			return idx, true
		}
	}
	return 0, false
}

// mergeInto fills empty fields of dst from src and keeps the higher score.
func mergeInto(dst *types.SearchResult, src types.SearchResult) {
	if dst.URL == "" {
		dst.URL = src.URL
	}
	if dst.Title == "" {
		dst.Title = src.Title
	}
	if dst.Content == "" {
		dst.Content = src.Content
	}
	if dst.Author == "" {
		dst.Author = src.Author
	}
	if dst.PublishedDate == "" {
		dst.PublishedDate = src.PublishedDate
	}
	if src.Score > dst.Score {
		dst.Score = src.Score
	}
	if src.Backend != "" && !strings.Contains(dst.Backend, src.Backend) {
		if dst.Backend == "" {
			dst.Backend = src.Backend
		} else {
			dst.Backend = dst.Backend + "," + src.Backend
		}
	}
}

// normalizeURL lowercases scheme and host and drops the fragment, a
// leading "www." and any trailing slash.
func normalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimSuffix(strings.ToLower(raw), "/")
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	path := strings.TrimSuffix(u.EscapedPath(), "/")
	s := host + path
	if u.RawQuery != "" {
		s += "?" + u.RawQuery
	}
	return s
}

// normalizeTitle returns a lowercased, punctuation-stripped version of the title.
func normalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// FormatTable writes results as a human-readable table to w.
func FormatTable(resp Response, w io.Writer) {
	if len(resp.Results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-50s  %-20s  %-10s  %-6s  %s\n",
		"Rank", "Title", "Author", "Date", "Score", "Backend")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for i, r := range resp.Results {
		fmt.Fprintf(w, "%-4d  %-50s  %-20s  %-10s  %-6.2f  %s\n",
			i+1, truncate(r.Title, 50), truncate(r.Author, 20), truncate(r.PublishedDate, 10), r.Score, r.Backend)
		fmt.Fprintf(w, "      %s\n", r.URL)
	}

	fmt.Fprintf(w, "\n%d results", len(resp.Results))
	if resp.DupsRemoved > 0 {
		fmt.Fprintf(w, " (%d duplicates removed)", resp.DupsRemoved)
	}
	fmt.Fprintln(w)
}

// FormatJSON writes results as indented JSON to w.
func FormatJSON(resp Response, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp.Results)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
