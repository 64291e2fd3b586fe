// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"text/template"

	"go.uber.org/zap"

	"github.com/pdiddy/research-orchestrator/internal/genai"
	"github.com/pdiddy/research-orchestrator/pkg/types"
)

var synthesisPromptTmpl = template.Must(template.New("synthesis").Parse(`Based on this thinking: {{.Thinking}}

Synthesize the following research materials into a comprehensive report.
Content plan: {{.Plan}}
Number of findings: {{.Count}}
Findings: {{.Findings}}

Focus on:
1. Integrating findings coherently
2. Highlighting key insights
3. Supporting claims with evidence
4. Maintaining a logical flow
5. Ensuring clarity and readability
6. Proper citation of sources

Return a JSON object matching exactly this structure:
{{.Schema}}

Ensure all JSON fields are properly formatted and escaped.
`))

// SynthesisAgent merges verified findings into a report document.
type SynthesisAgent struct {
	base
}

// NewSynthesisAgent returns a SynthesisAgent that calls gen.
func NewSynthesisAgent(gen genai.Generator, logger *zap.Logger) *SynthesisAgent {
	return &SynthesisAgent{base: newBase(types.RoleSynthesisExpert, "synthesis", gen, logger)}
}

// Synthesize returns a document holding every template key at the top
// level and one level down. When no document can be obtained it returns
// the empty template with the failure in executive_summary.abstract.
func (a *SynthesisAgent) Synthesize(ctx context.Context, findings []types.Finding, plan string) types.Document {
	thinking := a.think(ctx, fmt.Sprintf("Synthesizing %d findings for: %s", len(findings), plan))

	doc, err := a.synthesize(ctx, findings, plan, thinking)
	if err != nil {
		a.fellBack("synthesis failed", err)
		return ErrorDocument(err)
	}
	return types.MergeTemplate(doc)
}

func (a *SynthesisAgent) synthesize(ctx context.Context, findings []types.Finding, plan, thinking string) (types.Document, error) {
	findingsJSON, err := json.Marshal(summarizeFindings(findings))
	if err != nil {
		return nil, fmt.Errorf("encoding findings: %w", err)
	}
	schema, err := json.MarshalIndent(types.NewTemplate(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding schema: %w", err)
	}
	prompt, err := render(synthesisPromptTmpl, struct {
		Thinking string
		Plan     string
		Count    int
		Findings string
		Schema   string
	}{thinking, plan, len(findings), string(findingsJSON), string(schema)})
	if err != nil {
		return nil, err
	}
	out, err := a.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	m, err := genai.DecodeObject(out)
	if err != nil {
		return nil, err
	}
	return types.Document(m), nil
}

// ErrorDocument is the full template with the error recorded as the
// abstract.
func ErrorDocument(err error) types.Document {
	doc := types.NewTemplate()
	doc.SetString(types.SectionExecutiveSummary, "abstract", fmt.Sprintf("Error synthesizing findings: %v", err))
	return doc
}

// findingSummary is the part of a finding worth sending back to the model.
type findingSummary struct {
	Query      string   `json:"query"`
	Content    string   `json:"content"`
	URLs       []string `json:"urls"`
	Confidence float64  `json:"confidence"`
}

func summarizeFindings(findings []types.Finding) []findingSummary {
	out := make([]findingSummary, 0, len(findings))
	for _, f := range findings {
		out = append(out, findingSummary{
			Query:      f.Query.Text,
			Content:    f.Content,
			URLs:       f.URLs,
			Confidence: f.Confidence,
		})
	}
	return out
}
