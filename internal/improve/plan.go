// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package improve

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"text/template"

	"github.com/pdiddy/research-orchestrator/internal/genai"
	"github.com/pdiddy/research-orchestrator/pkg/types"
)

// defaultGapPriority is used for research gaps without a usable priority.
const defaultGapPriority = 4

var planPromptTmpl = template.Must(template.New("plan").Parse(`Create an improvement plan for this research synthesis.

Critique:
{{.Critique}}

Current synthesis:
{{.Synthesis}}

Identify what additional research, restructuring and verification would
address the critique. Return a JSON object with exactly this structure:
{
  "research_gaps": [
    {"topic": "topic needing evidence", "reason": "why", "suggested_queries": ["query1", "query2"], "priority": 4}
  ],
  "narrative_gaps": [
    {"section": "section name", "issue": "what is weak", "suggestion": "how to fix it"}
  ],
  "synthesis_improvements": [
    {"section": "section name", "improvement": "what to change"}
  ],
  "verification_needs": [
    {"claim": "claim to check", "reason": "why it is doubtful"}
  ]
}

Priorities range from 1 (low) to 5 (most urgent). Do not include any text outside the JSON object.
`))

// plan asks for an improvement plan. Any failure yields the fallback plan.
func (im *Improver) plan(ctx context.Context, critique types.Critique, doc types.Document) types.ImprovementPlan {
	critiqueJSON, err := json.MarshalIndent(critique, "", "  ")
	if err != nil {
		im.planFallback(err)
		return types.FallbackPlan()
	}
	docJSON, err := json.Marshal(doc)
	if err != nil {
		im.planFallback(err)
		return types.FallbackPlan()
	}
	var buf strings.Builder
	if err := planPromptTmpl.Execute(&buf, struct {
		Critique  string
		Synthesis string
	}{string(critiqueJSON), string(docJSON)}); err != nil {
		im.planFallback(err)
		return types.FallbackPlan()
	}
	out, err := im.gen.Generate(ctx, buf.String())
	if err != nil {
		im.planFallback(err)
		return types.FallbackPlan()
	}
	p, err := parsePlan(out)
	if err != nil {
		im.planFallback(err)
		return types.FallbackPlan()
	}
	return p
}

// parsePlan decodes an improvement plan. A list that is missing or not an
// array becomes empty, and records with no usable fields are skipped. It
// fails only when text holds no JSON object.
func parsePlan(text string) (types.ImprovementPlan, error) {
	m, err := genai.DecodeObject(text)
	if err != nil {
		return types.ImprovementPlan{}, err
	}
	p := types.ImprovementPlan{
		ResearchGaps:          []types.ResearchGap{},
		NarrativeGaps:         []types.NarrativeGap{},
		SynthesisImprovements: []types.SynthesisImprovement{},
		VerificationNeeds:     []types.VerificationNeed{},
	}
	for _, rec := range records(m["research_gaps"]) {
		gap := types.ResearchGap{
			Topic:            str(rec["topic"]),
			Reason:           str(rec["reason"]),
			SuggestedQueries: strs(rec["suggested_queries"]),
			Priority:         gapPriority(rec["priority"]),
		}
		if gap.Topic == "" && len(gap.SuggestedQueries) == 0 {
			continue
		}
		p.ResearchGaps = append(p.ResearchGaps, gap)
	}
	for _, rec := range records(m["narrative_gaps"]) {
		gap := types.NarrativeGap{Section: str(rec["section"]), Issue: str(rec["issue"]), Suggestion: str(rec["suggestion"])}
		if gap.Issue == "" && gap.Suggestion == "" {
			continue
		}
		p.NarrativeGaps = append(p.NarrativeGaps, gap)
	}
	for _, rec := range records(m["synthesis_improvements"]) {
		imp := types.SynthesisImprovement{Section: str(rec["section"]), Improvement: str(rec["improvement"])}
		if imp.Improvement == "" {
			continue
		}
		p.SynthesisImprovements = append(p.SynthesisImprovements, imp)
	}
	for _, rec := range records(m["verification_needs"]) {
		need := types.VerificationNeed{Claim: str(rec["claim"]), Reason: str(rec["reason"])}
		if need.Claim == "" {
			continue
		}
		p.VerificationNeeds = append(p.VerificationNeeds, need)
	}
	return p, nil
}

// records returns the object elements of a JSON array. Anything else is
// empty.
func records(v any) []map[string]any {
	items, _ := v.([]any)
	var out []map[string]any
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func str(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func strs(v any) []string {
	items, _ := v.([]any)
	var out []string
	for _, item := range items {
		if s := str(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// gapPriority reads a whole-number priority and clamps it to the query
// range.
func gapPriority(v any) int {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return defaultGapPriority
		}
		f = parsed
	default:
		return defaultGapPriority
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return defaultGapPriority
	}
	return int(math.Max(types.MinPriority, math.Min(types.MaxPriority, f)))
}

// gapQueries turns research gaps into deep-dive queries, most urgent
// first. A gap without suggested queries is searched by its topic.
func gapQueries(gaps []types.ResearchGap) []types.ResearchQuery {
	var out []types.ResearchQuery
	for _, gap := range gaps {
		texts := gap.SuggestedQueries
		if len(texts) == 0 {
			texts = []string{gap.Topic}
		}
		for _, text := range texts {
			out = append(out, types.ResearchQuery{
				Text:     text,
				Type:     types.QueryDeepDive,
				Priority: clampPriority(gap.Priority),
				Agent:    types.RoleWebExpert,
				Context:  gap.Topic,
			})
		}
	}
	types.SortByPriority(out)
	return out
}

func clampPriority(p int) int {
	switch {
	case p == 0:
		return defaultGapPriority
	case p < types.MinPriority:
		return types.MinPriority
	case p > types.MaxPriority:
		return types.MaxPriority
	}
	return p
}

func (im *Improver) planFallback(err error) {
	im.fallback("planner", fmt.Errorf("improvement plan: %w", err))
}
