// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"github.com/pdiddy/research-orchestrator/internal/genai"
	"github.com/pdiddy/research-orchestrator/pkg/types"
)

var queryPromptTmpl = template.Must(template.New("queries").Parse(`Based on this thinking:
{{.Thinking}}

Generate a diverse set of research queries for this content plan:
{{.Plan}}

Return a JSON array. Each element must be an object with exactly these fields:
- "text": the query to search for
- "type": one of "web", "fact-check", "deep-dive"
- "priority": an integer from 1 (low) to 5 (most urgent)
- "agent": one of {{range $i, $r := .Roles}}{{if $i}}, {{end}}"{{$r}}"{{end}}

Do not include any text outside the JSON array.
`))

// QueryAgent expands a content plan into typed, prioritised queries.
type QueryAgent struct {
	base
}

// NewQueryAgent returns a QueryAgent that calls gen.
func NewQueryAgent(gen genai.Generator, logger *zap.Logger) *QueryAgent {
	return &QueryAgent{base: newBase(types.RoleQuerySpecialist, "query", gen, logger)}
}

// GenerateQueries thinks about plan, then asks for a query list. Items
// that fail validation are logged and skipped. The result is empty, never
// nil, when nothing usable comes back. Every query carries plan as its
// context.
func (a *QueryAgent) GenerateQueries(ctx context.Context, plan string) []types.ResearchQuery {
	thinking := a.think(ctx, plan)

	roles := make([]string, 0, len(types.AllRoles()))
	for _, r := range types.AllRoles() {
		roles = append(roles, r.String())
	}
	prompt, err := render(queryPromptTmpl, struct {
		Thinking string
		Plan     string
		Roles    []string
	}{thinking, plan, roles})
	if err != nil {
		a.fellBack("rendering prompt", err)
		return []types.ResearchQuery{}
	}

	out, err := a.generate(ctx, prompt)
	if err != nil {
		a.fellBack("generation failed", err)
		return []types.ResearchQuery{}
	}

	queries, rejected, err := parseQueries(out)
	if err != nil {
		a.fellBack("reply is not a query list", err)
		return []types.ResearchQuery{}
	}
	for _, r := range rejected {
		a.logger.Warn("rejected query", zap.Error(r))
	}
	if len(queries) == 0 {
		a.fellBack("every query rejected", nil)
		return []types.ResearchQuery{}
	}

	for i := range queries {
		queries[i].Context = plan
	}
	a.logger.Info("generated queries", zap.Int("accepted", len(queries)), zap.Int("rejected", len(rejected)))
	return queries
}

// parseQueries decodes a JSON array of query objects. It fails only when
// text holds no array; rejected items are reported individually.
func parseQueries(text string) ([]types.ResearchQuery, []error, error) {
	items, err := genai.DecodeArray(text)
	if err != nil {
		return nil, nil, err
	}
	var (
		queries  []types.ResearchQuery
		rejected []error
	)
	for i, item := range items {
		q, err := parseQuery(item)
		if err != nil {
			rejected = append(rejected, fmt.Errorf("item %d: %w", i, err))
			continue
		}
		queries = append(queries, q)
	}
	return queries, rejected, nil
}

var errNotObject = errors.New("not a JSON object")

func parseQuery(item any) (types.ResearchQuery, error) {
	m, ok := item.(map[string]any)
	if !ok {
		return types.ResearchQuery{}, errNotObject
	}
	if missing := missingKeys(m, "text", "type", "priority", "agent"); len(missing) > 0 {
		return types.ResearchQuery{}, fmt.Errorf("missing fields %s", strings.Join(missing, ", "))
	}

	text, ok := asString(m["text"])
	if !ok || strings.TrimSpace(text) == "" {
		return types.ResearchQuery{}, fmt.Errorf("empty or non-string text %v", m["text"])
	}

	typeStr, _ := asString(m["type"])
	qt := types.QueryType(typeStr)
	if !qt.Valid() {
		return types.ResearchQuery{}, fmt.Errorf("invalid type %v", m["type"])
	}

	priority, ok := asInt(m["priority"])
	if !ok || priority < types.MinPriority || priority > types.MaxPriority {
		return types.ResearchQuery{}, fmt.Errorf("priority %v outside [%d,%d]", m["priority"], types.MinPriority, types.MaxPriority)
	}

	agentStr, _ := asString(m["agent"])
	role, ok := types.ParseAgentRole(agentStr)
	if !ok {
		return types.ResearchQuery{}, fmt.Errorf("unknown agent %v", m["agent"])
	}

	return types.ResearchQuery{
		Text:     strings.TrimSpace(text),
		Type:     qt,
		Priority: priority,
		Agent:    role,
	}, nil
}
