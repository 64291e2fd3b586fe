// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func semanticTestServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(h)
	old := semanticAPIBase
	semanticAPIBase = ts.URL
	t.Cleanup(func() {
		semanticAPIBase = old
		ts.Close()
	})
	return ts
}

// --- Request construction (URL params, headers) ---

func TestSemanticSearchRequestParams(t *testing.T) {
	var capturedReq *http.Request
	ts := semanticTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		capturedReq = r
		fmt.Fprint(w, `{"total":0,"offset":0,"data":[]}`)
	})

	cfg := testCfg()
	cfg.MaxResults = 15

	b := &SemanticScholarBackend{Client: ts.Client()}
	if _, err := b.Search(context.Background(), "attention", cfg); err != nil {
		t.Fatalf("Search: %v", err)
	}

	q := capturedReq.URL.Query()
	if got := q.Get("query"); got != "attention" {
		t.Errorf("query param = %q, want %q", got, "attention")
	}
	if got := q.Get("limit"); got != "15" {
		t.Errorf("limit param = %q, want %q", got, "15")
	}
	fields := q.Get("fields")
	for _, f := range []string{"title", "abstract", "authors", "url", "publicationDate"} {
		if !strings.Contains(fields, f) {
			t.Errorf("fields param %q missing %q", fields, f)
		}
	}
	if got := capturedReq.Header.Get("User-Agent"); got != "test/0.1" {
		t.Errorf("User-Agent = %q", got)
	}
}

func TestSemanticSearchAPIKeyHeader(t *testing.T) {
	tests := []struct {
		name   string
		apiKey string
	}{
		{"with API key", "test-key-123"},
		{"without API key", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			ts := semanticTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				got = r.Header.Get("x-api-key")
				fmt.Fprint(w, `{"data":[]}`)
			})

			b := &SemanticScholarBackend{Client: ts.Client(), APIKey: tt.apiKey}
			if _, err := b.Search(context.Background(), "q", testCfg()); err != nil {
				t.Fatalf("Search: %v", err)
			}
			if got != tt.apiKey {
				t.Errorf("x-api-key = %q, want %q", got, tt.apiKey)
			}
		})
	}
}

// --- Response parsing ---

const sampleSemanticJSON = `{
  "total": 3,
  "data": [
    {"paperId": "p1", "url": "https://www.semanticscholar.org/paper/p1", "title": "First", "abstract": "abstract one",
     "year": 2021, "publicationDate": "2021-03-04", "authors": [{"name": "Ada Lovelace"}, {"name": "Charles Babbage"}]},
    {"paperId": "p2", "title": "Second", "abstract": "", "year": 2019, "authors": []},
    {"paperId": "p3", "title": "Third", "abstract": "abstract three"}
  ]
}`

func TestSemanticSearchParsesResults(t *testing.T) {
	ts := semanticTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, sampleSemanticJSON)
	})

	b := &SemanticScholarBackend{Client: ts.Client()}
	results, err := b.Search(context.Background(), "q", testCfg())
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("len = %d, want 3", len(results))
	}

	first := results[0]
	if first.Author != "Ada Lovelace" || first.Content != "abstract one" || first.PublishedDate != "2021-03-04" {
		t.Errorf("first = %+v", first)
	}
	if first.Score != 1.0 {
		t.Errorf("first score = %v, want 1.0", first.Score)
	}

	second := results[1]
	if second.URL != semanticPaperURL+"p2" {
		t.Errorf("fallback URL = %q", second.URL)
	}
	if second.PublishedDate != "2019" {
		t.Errorf("year fallback = %q", second.PublishedDate)
	}
	if math.Abs(second.Score-0.55) > 1e-9 {
		t.Errorf("second score = %v, want 0.55", second.Score)
	}
	if math.Abs(results[2].Score-0.1) > 1e-9 {
		t.Errorf("last score = %v, want 0.1", results[2].Score)
	}
}

func TestSemanticSearchHTTPError(t *testing.T) {
	ts := semanticTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	b := &SemanticScholarBackend{Client: ts.Client()}
	if _, err := b.Search(context.Background(), "q", testCfg()); err == nil {
		t.Error("expected error for HTTP 400")
	}
}
