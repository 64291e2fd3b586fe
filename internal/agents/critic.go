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

// NoItemsPlaceholder replaces a critique list that would otherwise be empty.
const NoItemsPlaceholder = "No items provided"

var critiquePromptTmpl = template.Must(template.New("critique").Parse(`Critically analyze this research:
Synthesis: {{.Synthesis}}
Findings: {{.Findings}}

Evaluate:
1. Comprehensiveness of coverage
2. Quality of evidence
3. Logical consistency
4. Potential biases
5. Methodological soundness

Provide constructive criticism and suggestions for improvement.

Return your analysis in the following exact JSON structure:
{
  "strengths": ["strength1", "strength2"],
  "weaknesses": ["weakness1", "weakness2"],
  "suggestions": ["suggestion1", "suggestion2"],
  "overall_quality": 8
}

Ensure your response is valid JSON with proper escaping of special characters.
`))

// CriticAgent scores a synthesis.
type CriticAgent struct {
	base
}

// NewCriticAgent returns a CriticAgent that calls gen.
func NewCriticAgent(gen genai.Generator, logger *zap.Logger) *CriticAgent {
	return &CriticAgent{base: newBase(types.RoleCritic, "critic", gen, logger)}
}

// Critique scores doc against the findings it was built from. Every list
// in the result is non-empty and the quality is in [1,10].
func (a *CriticAgent) Critique(ctx context.Context, doc types.Document, findings []types.Finding) types.Critique {
	c, err := a.critique(ctx, doc, findings)
	if err != nil {
		a.fellBack("critique failed", err)
		return FallbackCritique()
	}
	a.logger.Info("critique ready", zap.Float64("quality", c.OverallQuality))
	return c
}

func (a *CriticAgent) critique(ctx context.Context, doc types.Document, findings []types.Finding) (types.Critique, error) {
	docJSON, err := json.Marshal(doc)
	if err != nil {
		return types.Critique{}, fmt.Errorf("encoding synthesis: %w", err)
	}
	findingsJSON, err := json.Marshal(summarizeFindings(findings))
	if err != nil {
		return types.Critique{}, fmt.Errorf("encoding findings: %w", err)
	}
	prompt, err := render(critiquePromptTmpl, struct {
		Synthesis string
		Findings  string
	}{string(docJSON), string(findingsJSON)})
	if err != nil {
		return types.Critique{}, err
	}
	out, err := a.generate(ctx, prompt)
	if err != nil {
		return types.Critique{}, err
	}
	return parseCritique(out)
}

// FallbackCritique is the neutral critique used when scoring fails.
func FallbackCritique() types.Critique {
	return types.Critique{
		Strengths:      []string{"Unable to analyze strengths due to processing error"},
		Weaknesses:     []string{"Analysis failed - please review raw data"},
		Suggestions:    []string{"Retry analysis", "Verify input data format"},
		OverallQuality: types.DefaultQuality,
	}
}

// parseCritique decodes a critique object. Lists that are missing, of the
// wrong type, or empty become the placeholder; a missing or non-numeric
// quality becomes the default. It fails only when text holds no object.
func parseCritique(text string) (types.Critique, error) {
	m, err := genai.DecodeObject(text)
	if err != nil {
		return types.Critique{}, err
	}
	quality, ok := asFloat(m["overall_quality"])
	if !ok {
		quality = types.DefaultQuality
	}
	return types.Critique{
		Strengths:      nonEmptyList(m["strengths"]),
		Weaknesses:     nonEmptyList(m["weaknesses"]),
		Suggestions:    nonEmptyList(m["suggestions"]),
		OverallQuality: clamp(quality, types.MinQuality, types.MaxQuality),
	}, nil
}

func nonEmptyList(v any) []string {
	items, _ := stringList(v)
	if len(items) == 0 {
		return []string{NoItemsPlaceholder}
	}
	return items
}
