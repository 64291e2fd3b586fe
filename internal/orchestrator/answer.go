// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrator

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/research-orchestrator/pkg/types"
)

// AnswerQuestion answers question from a single high-priority fact-check
// search. The confidence is the lower of the finding's confidence and the
// verification score.
func (o *Orchestrator) AnswerQuestion(ctx context.Context, question string) (ans *types.Answer, err error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	started := o.cfg.Now()
	defer o.observe("answer", started, &err)

	r := o.newRun()
	q := types.ResearchQuery{
		Text:     question,
		Type:     types.QueryFactCheck,
		Priority: types.MaxPriority,
		Agent:    types.RoleFactChecker,
		Context:  question,
	}
	f := r.web.Search(ctx, q)
	v := r.verifier.Verify(ctx, f)
	draft := o.answer.Answer(ctx, question, f, v)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("answer interrupted: %w", err)
	}

	sources := append([]string{}, f.URLs...)
	ans = &types.Answer{
		Question:           question,
		Answer:             draft.Answer,
		Sources:            sources,
		Confidence:         math.Min(f.Confidence, v.ConfidenceScore),
		VerificationStatus: v.Status,
		KeyPoints:          draft.KeyPoints,
		Limitations:        draft.Limitations,
	}
	o.logger.Info("question answered",
		zap.String("status", string(v.Status)),
		zap.Float64("confidence", ans.Confidence),
		zap.Int("sources", len(sources)))
	return ans, nil
}
