// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agents

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"github.com/pdiddy/research-orchestrator/internal/genai"
	"github.com/pdiddy/research-orchestrator/pkg/types"
)

var answerPromptTmpl = template.Must(template.New("answer").Parse(`Answer this question using the research finding below.

Question: {{.Question}}

Finding: {{.Content}}
Sources: {{.Sources}}
Verification: {{.Status}}

Return a JSON object with this exact format:
{
  "answer": "concise answer with markdown links to sources",
  "confidence": 0.0,
  "key_points": ["point 1", "point 2"],
  "limitations": ["limitation 1"]
}
`))

// AnswerDraft is the generated part of an answer.
type AnswerDraft struct {
	Answer      string
	KeyPoints   []string
	Limitations []string
}

// AnswerAgent writes a direct answer from one verified finding.
type AnswerAgent struct {
	base
}

// NewAnswerAgent returns an AnswerAgent that calls gen.
func NewAnswerAgent(gen genai.Generator, logger *zap.Logger) *AnswerAgent {
	return &AnswerAgent{base: newBase(types.RoleSynthesisExpert, "answer", gen, logger)}
}

// Answer drafts an answer to question from f. When generation fails or
// the reply has no answer text, the finding content is the answer.
func (a *AnswerAgent) Answer(ctx context.Context, question string, f types.Finding, v types.VerificationResult) AnswerDraft {
	prompt, err := render(answerPromptTmpl, struct {
		Question, Content, Sources string
		Status                     types.VerificationStatus
	}{question, f.Content, strings.Join(f.URLs, ", "), v.Status})
	if err != nil {
		a.fellBack("rendering prompt", err)
		return fallbackAnswer(f)
	}
	out, err := a.generate(ctx, prompt)
	if err != nil {
		a.fellBack("generation failed", err)
		return fallbackAnswer(f)
	}
	d, err := parseAnswer(out)
	if err != nil {
		a.fellBack("malformed answer", err)
		return fallbackAnswer(f)
	}
	return d
}

func fallbackAnswer(f types.Finding) AnswerDraft {
	return AnswerDraft{Answer: f.Content, KeyPoints: []string{}, Limitations: []string{}}
}

// parseAnswer requires a non-empty answer string. The lists default to
// empty. The reply's own confidence is ignored.
func parseAnswer(text string) (AnswerDraft, error) {
	m, err := genai.DecodeObject(text)
	if err != nil {
		return AnswerDraft{}, err
	}
	answer, ok := asString(m["answer"])
	if !ok || strings.TrimSpace(answer) == "" {
		return AnswerDraft{}, fmt.Errorf("answer missing or not a string")
	}
	points, _ := stringList(m["key_points"])
	limits, _ := stringList(m["limitations"])
	return AnswerDraft{Answer: answer, KeyPoints: points, Limitations: limits}, nil
}
