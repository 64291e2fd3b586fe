// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/research-orchestrator/internal/genai"
	"github.com/pdiddy/research-orchestrator/internal/search"
	"github.com/pdiddy/research-orchestrator/pkg/types"
)

// Canned finding text for the two recoverable outcomes.
const (
	NoSourcesContent     = "No valid sources found for this query."
	AnalysisErrorContent = "Error generating analysis."
)

var analysisPromptTmpl = template.Must(template.New("analysis").Parse(`Analyze these web search results for the query: {{.Query}}

Results: {{.Results}}

Provide analysis in the following exact JSON format:
{
  "content": "main findings with source references",
  "sources": ["source_id1", "source_id2"],
  "urls": ["url1", "url2"],
  "confidence": 0.8,
  "metadata": {
    "source_credibility": "evaluation of source reliability and authority"
  }
}

Ensure the response maintains this exact JSON structure.
The confidence score must be between 0 and 1.
Include source references in the content using URLs where relevant.
`))

// Registrar stores a source and returns the id it is known by.
type Registrar interface {
	Register(src types.Source) string
}

// WebResearchConfig holds the search-side limits of a WebResearchAgent.
// Rate limiting happens in the search backends, per HTTP attempt.
type WebResearchConfig struct {
	// SearchTimeout bounds one search call. Zero disables it.
	SearchTimeout time.Duration
}

// WebResearchAgent answers one query from web search results.
type WebResearchAgent struct {
	base
	client   search.Client
	registry Registrar
	cfg      WebResearchConfig
}

// NewWebResearchAgent returns an agent that searches with client and
// registers every usable result in reg.
func NewWebResearchAgent(gen genai.Generator, client search.Client, reg Registrar, cfg WebResearchConfig, logger *zap.Logger) *WebResearchAgent {
	return &WebResearchAgent{
		base:     newBase(types.RoleWebExpert, "web_research", gen, logger),
		client:   client,
		registry: reg,
		cfg:      cfg,
	}
}

// Search runs q against the search service, registers each result with a
// URL and content, and asks the generation service to analyse them. The
// finding's sources are always the ids registered by this call. A query
// with no usable results yields an empty finding with confidence 0.
func (a *WebResearchAgent) Search(ctx context.Context, q types.ResearchQuery) types.Finding {
	log := a.logger.With(zap.String("query", q.Text))

	results, err := a.search(ctx, q.Text)
	if err != nil {
		log.Warn("search failed", zap.Error(err))
	}

	var (
		ids  []string
		urls []string
		used []types.SearchResult
	)
	for _, r := range results {
		if strings.TrimSpace(r.URL) == "" || strings.TrimSpace(r.Content) == "" {
			continue
		}
		title := r.Title
		if title == "" {
			title = "Untitled"
		}
		id := a.registry.Register(types.Source{
			URL:              r.URL,
			Title:            title,
			Content:          r.Content,
			Author:           r.Author,
			PublishedDate:    r.PublishedDate,
			CredibilityScore: clamp(r.Score, 0, 1),
		})
		ids = append(ids, id)
		urls = append(urls, r.URL)
		used = append(used, r)
	}

	if len(ids) == 0 {
		reason := "No valid sources found"
		if err != nil {
			reason = err.Error()
		}
		a.fellBack("no valid sources", err)
		return types.Finding{
			Query:      q,
			Content:    NoSourcesContent,
			Sources:    []string{},
			URLs:       []string{},
			Confidence: 0,
			Agent:      a.role,
			Metadata: map[string]any{
				"error":              reason,
				"source_credibility": "No sources to evaluate",
			},
		}
	}

	finding := types.Finding{
		Query:   q,
		Sources: ids,
		URLs:    urls,
		Agent:   a.role,
	}

	payload, err := a.analyse(ctx, q, used)
	if err != nil {
		a.fellBack("analysis failed", err)
		finding.Content = AnalysisErrorContent
		finding.Metadata = map[string]any{
			"error":              err.Error(),
			"source_credibility": "Error during analysis",
		}
		return finding
	}

	finding.Content = payload.Content
	finding.Confidence = payload.Confidence
	finding.Metadata = payload.Metadata
	log.Debug("finding ready", zap.Int("sources", len(ids)), zap.Float64("confidence", finding.Confidence))
	return finding
}

func (a *WebResearchAgent) search(ctx context.Context, text string) ([]types.SearchResult, error) {
	if a.cfg.SearchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.SearchTimeout)
		defer cancel()
	}
	resp, err := a.client.Search(ctx, text)
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (a *WebResearchAgent) analyse(ctx context.Context, q types.ResearchQuery, results []types.SearchResult) (findingPayload, error) {
	raw, err := json.Marshal(struct {
		Results []types.SearchResult `json:"results"`
	}{results})
	if err != nil {
		return findingPayload{}, fmt.Errorf("encoding results: %w", err)
	}
	prompt, err := render(analysisPromptTmpl, struct {
		Query   string
		Results string
	}{q.Text, string(raw)})
	if err != nil {
		return findingPayload{}, err
	}
	out, err := a.generate(ctx, prompt)
	if err != nil {
		return findingPayload{}, fmt.Errorf("generating analysis: %w", err)
	}
	return parseFindingPayload(out)
}

// findingPayload is the validated part of an analysis reply. The sources
// and urls the reply names are checked for presence only.
type findingPayload struct {
	Content    string
	Confidence float64
	Metadata   map[string]any
}

// parseFindingPayload requires all five payload keys, a string content, a
// numeric confidence (clamped to [0,1]) and an object metadata.
func parseFindingPayload(text string) (findingPayload, error) {
	m, err := genai.DecodeObject(text)
	if err != nil {
		return findingPayload{}, err
	}
	if missing := missingKeys(m, "content", "sources", "urls", "confidence", "metadata"); len(missing) > 0 {
		return findingPayload{}, fmt.Errorf("missing required fields %s", strings.Join(missing, ", "))
	}
	content, ok := asString(m["content"])
	if !ok {
		return findingPayload{}, fmt.Errorf("content is %T, want string", m["content"])
	}
	confidence, ok := asFloat(m["confidence"])
	if !ok {
		return findingPayload{}, fmt.Errorf("confidence %v is not a number", m["confidence"])
	}
	meta, ok := m["metadata"].(map[string]any)
	if !ok {
		return findingPayload{}, fmt.Errorf("metadata is %T, want object", m["metadata"])
	}
	return findingPayload{
		Content:    content,
		Confidence: clamp(confidence, 0, 1),
		Metadata:   meta,
	}, nil
}
