// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package improve runs the critique-driven improvement loop: plan what is
// missing, research it, revise the synthesis, and critique again until the
// quality threshold is met or the iteration budget runs out.
package improve

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"github.com/pdiddy/research-orchestrator/internal/fanout"
	"github.com/pdiddy/research-orchestrator/internal/genai"
	"github.com/pdiddy/research-orchestrator/internal/metrics"
	"github.com/pdiddy/research-orchestrator/pkg/types"
)

// Phase is a state of the improvement loop.
type Phase int

const (
	Evaluating Phase = iota
	Improving
	Researching
	Synthesizing
	ReCritiquing
	Done
)

var phaseNames = [...]string{"evaluating", "improving", "researching", "synthesizing", "re-critiquing", "done"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return phaseNames[p]
}

// Researcher answers one query.
type Researcher interface {
	Search(ctx context.Context, q types.ResearchQuery) types.Finding
}

// Verifier fact-checks one finding.
type Verifier interface {
	Verify(ctx context.Context, f types.Finding) types.VerificationResult
}

// Critic scores a synthesis.
type Critic interface {
	Critique(ctx context.Context, doc types.Document, findings []types.Finding) types.Critique
}

// Config bounds the loop.
type Config struct {
	// QualityThreshold ends the loop once a critique reaches it.
	QualityThreshold float64

	// MaxIterations bounds the number of loop bodies. Zero disables
	// improvement.
	MaxIterations int

	// MaxConcurrent caps in-flight research and verification calls.
	MaxConcurrent int
}

// Input is the state the loop starts from.
type Input struct {
	ContentPlan string
	Synthesis   types.Document
	Critique    types.Critique
	Findings    []types.Finding
}

// Outcome is the last complete synthesis and critique pair, the grown
// finding set, and one record per completed iteration.
type Outcome struct {
	Synthesis  types.Document
	Critique   types.Critique
	Findings   []types.Finding
	Iterations []types.IterationRecord
	Converged  bool
}

// Improver runs the loop. It is safe to reuse across runs; per-run state
// lives in Improve.
type Improver struct {
	cfg        Config
	gen        genai.Generator
	researcher Researcher
	verifier   Verifier
	critic     Critic
	logger     *zap.Logger
}

// New returns an Improver. gen serves the planning and revision calls.
func New(cfg Config, gen genai.Generator, researcher Researcher, verifier Verifier, critic Critic, logger *zap.Logger) *Improver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Improver{
		cfg:        cfg,
		gen:        gen,
		researcher: researcher,
		verifier:   verifier,
		critic:     critic,
		logger:     logger.Named("improver"),
	}
}

// Improve iterates until the critique reaches the threshold or
// MaxIterations bodies have run. A cancelled context stops the loop at
// the next phase boundary; the pair from the last completed iteration is
// returned. Prior findings are never removed.
func (im *Improver) Improve(ctx context.Context, in Input) Outcome {
	out := Outcome{
		Synthesis:  in.Synthesis,
		Critique:   in.Critique,
		Findings:   append([]types.Finding(nil), in.Findings...),
		Iterations: []types.IterationRecord{},
	}
	defer func() {
		im.enter(Done, len(out.Iterations), out.Critique.OverallQuality)
		metrics.ImprovementIterations.Observe(float64(len(out.Iterations)))
		metrics.SynthesisQuality.Set(out.Critique.OverallQuality)
	}()

	for iter := 1; ; iter++ {
		im.enter(Evaluating, iter-1, out.Critique.OverallQuality)
		if out.Critique.OverallQuality >= im.cfg.QualityThreshold {
			out.Converged = true
			return out
		}
		if iter > im.cfg.MaxIterations || ctx.Err() != nil {
			return out
		}

		rec, next, ok := im.iterate(ctx, iter, in.ContentPlan, out)
		if !ok {
			im.logger.Warn("iteration abandoned", zap.Int("iteration", iter), zap.Error(ctx.Err()))
			return out
		}
		out = next
		out.Iterations = append(out.Iterations, rec)
	}
}

// iterate runs one loop body. ok is false when ctx ended before the body
// completed; cur is then still the state to return.
func (im *Improver) iterate(ctx context.Context, iter int, contentPlan string, cur Outcome) (types.IterationRecord, Outcome, bool) {
	rec := types.IterationRecord{Iteration: iter, QualityBefore: cur.Critique.OverallQuality}

	im.enter(Improving, iter, cur.Critique.OverallQuality)
	plan := im.plan(ctx, cur.Critique, cur.Synthesis)
	rec.ResearchGaps = len(plan.ResearchGaps)
	if ctx.Err() != nil {
		return rec, cur, false
	}

	im.enter(Researching, iter, cur.Critique.OverallQuality)
	queries := gapQueries(plan.ResearchGaps)
	added, err := im.research(ctx, queries)
	if err != nil {
		return rec, cur, false
	}
	rec.QueriesRun = len(queries)
	rec.FindingsAdded = len(added)
	findings := append(append([]types.Finding(nil), cur.Findings...), added...)

	im.enter(Synthesizing, iter, cur.Critique.OverallQuality)
	revised, applied := im.revise(ctx, contentPlan, cur.Synthesis, plan, findings)
	if ctx.Err() != nil {
		return rec, cur, false
	}
	rec.RevisionApplied = applied

	im.enter(ReCritiquing, iter, cur.Critique.OverallQuality)
	critique := im.critic.Critique(ctx, revised, findings)
	if ctx.Err() != nil {
		return rec, cur, false
	}
	rec.QualityAfter = critique.OverallQuality

	return rec, Outcome{
		Synthesis:  revised,
		Critique:   critique,
		Findings:   findings,
		Iterations: cur.Iterations,
	}, true
}

// research runs queries concurrently, most urgent first, then fact-checks
// the new findings concurrently and keeps the verified and partially
// verified ones in query order.
func (im *Improver) research(ctx context.Context, queries []types.ResearchQuery) ([]types.Finding, error) {
	if len(queries) == 0 {
		return nil, nil
	}
	found, err := fanout.Map(ctx, im.cfg.MaxConcurrent, queries, im.researcher.Search)
	if err != nil {
		return nil, err
	}
	verdicts, err := fanout.Map(ctx, im.cfg.MaxConcurrent, found, im.verifier.Verify)
	if err != nil {
		return nil, err
	}
	var kept []types.Finding
	for i, f := range found {
		if verdicts[i].Status.Kept() {
			kept = append(kept, f)
		}
	}
	im.logger.Info("gap research complete",
		zap.Int("queries", len(queries)),
		zap.Int("findings", len(found)),
		zap.Int("kept", len(kept)))
	return kept, nil
}

var revisePromptTmpl = template.Must(template.New("revise").Parse(`Revise this research synthesis using the improvement plan and the findings below.

Content plan: {{.Plan}}

Current synthesis:
{{.Synthesis}}

Improvement plan:
{{.Improvements}}

Findings ({{.Count}}):
{{.Findings}}

Return the complete revised synthesis as a JSON object with the same
structure as the current synthesis. Do not include any text outside the JSON object.
`))

// revise asks for a revised synthesis. The reply replaces the current
// document as it is, without filling template keys. A reply that is not a
// JSON object keeps the current document; applied reports which happened.
func (im *Improver) revise(ctx context.Context, contentPlan string, doc types.Document, plan types.ImprovementPlan, findings []types.Finding) (types.Document, bool) {
	prompt, err := revisePrompt(contentPlan, doc, plan, findings)
	if err != nil {
		im.fallback("reviser", err)
		return doc, false
	}
	reply, err := im.gen.Generate(ctx, prompt)
	if err != nil {
		im.fallback("reviser", fmt.Errorf("generating revision: %w", err))
		return doc, false
	}
	revised, err := genai.DecodeObject(reply)
	if err != nil {
		im.fallback("reviser", fmt.Errorf("decoding revision: %w", err))
		return doc, false
	}
	return types.Document(revised), true
}

func revisePrompt(contentPlan string, doc types.Document, plan types.ImprovementPlan, findings []types.Finding) (string, error) {
	docJSON, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding synthesis: %w", err)
	}
	planJSON, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding plan: %w", err)
	}
	type summary struct {
		Query      string   `json:"query"`
		Content    string   `json:"content"`
		URLs       []string `json:"urls"`
		Confidence float64  `json:"confidence"`
	}
	sums := make([]summary, 0, len(findings))
	for _, f := range findings {
		sums = append(sums, summary{f.Query.Text, f.Content, f.URLs, f.Confidence})
	}
	findingsJSON, err := json.Marshal(sums)
	if err != nil {
		return "", fmt.Errorf("encoding findings: %w", err)
	}
	var buf strings.Builder
	err = revisePromptTmpl.Execute(&buf, struct {
		Plan         string
		Synthesis    string
		Improvements string
		Count        int
		Findings     string
	}{contentPlan, string(docJSON), string(planJSON), len(findings), string(findingsJSON)})
	if err != nil {
		return "", fmt.Errorf("executing revise template: %w", err)
	}
	return buf.String(), nil
}

func (im *Improver) enter(p Phase, iter int, quality float64) {
	im.logger.Info("phase", zap.Stringer("phase", p), zap.Int("iteration", iter), zap.Float64("quality", quality))
}

func (im *Improver) fallback(step string, err error) {
	metrics.AgentFallbacks.WithLabelValues(step).Inc()
	im.logger.Warn("using fallback", zap.String("step", step), zap.Error(err))
}
