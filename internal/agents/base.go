// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package agents holds the role-specialised workers of a research run.
// Each agent turns one request into one generation call (two for agents
// that think first), parses the reply with an explicit parse-then-validate
// helper, and falls back to a fixed value when the reply is unusable.
// Agent methods never return errors; failures are logged and counted.
package agents

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"go.uber.org/zap"

	"github.com/pdiddy/research-orchestrator/internal/genai"
	"github.com/pdiddy/research-orchestrator/internal/logging"
	"github.com/pdiddy/research-orchestrator/internal/metrics"
	"github.com/pdiddy/research-orchestrator/pkg/types"
)

// excerptLen bounds prompt and reply excerpts in debug logs.
const excerptLen = 300

var thinkPromptTmpl = template.Must(template.New("think").Parse(`As a {{.Role}}, analyze this content plan:
{{.Context}}

Think step by step about:
1. What are the key aspects to consider?
2. What potential challenges might arise?
3. What approach would be most effective?

Respond in first person, as if you are actively thinking this through.
`))

// base carries what every agent needs. name labels the fallback metric.
type base struct {
	role   types.AgentRole
	name   string
	gen    genai.Generator
	logger *zap.Logger
}

func newBase(role types.AgentRole, name string, gen genai.Generator, logger *zap.Logger) base {
	if logger == nil {
		logger = zap.NewNop()
	}
	return base{
		role:   role,
		name:   name,
		gen:    gen,
		logger: logger.With(zap.String("agent", role.String())),
	}
}

// Role returns the agent's role.
func (b base) Role() types.AgentRole { return b.role }

// think asks the generation service to reason about subject before the
// real request. A failed thinking pass yields "" so the caller proceeds
// without it.
func (b base) think(ctx context.Context, subject string) string {
	prompt, err := render(thinkPromptTmpl, struct {
		Role    string
		Context string
	}{b.role.String(), subject})
	if err != nil {
		b.logger.Error("rendering think prompt", zap.Error(err))
		return ""
	}
	out, err := b.generate(ctx, prompt)
	if err != nil {
		b.logger.Warn("thinking pass failed", zap.Error(err))
		return ""
	}
	return out
}

// generate issues one call and logs excerpts at debug level.
func (b base) generate(ctx context.Context, prompt string) (string, error) {
	b.logger.Debug("generation request", zap.String("prompt", logging.Excerpt(prompt, excerptLen)))
	out, err := b.gen.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	b.logger.Debug("generation reply", zap.String("reply", logging.Excerpt(out, excerptLen)))
	return out, nil
}

// fellBack records that the agent returned its fallback value.
func (b base) fellBack(reason string, err error) {
	metrics.AgentFallbacks.WithLabelValues(b.name).Inc()
	b.logger.Warn("using fallback", zap.String("reason", reason), zap.Error(err))
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing %s template: %w", t.Name(), err)
	}
	return buf.String(), nil
}
