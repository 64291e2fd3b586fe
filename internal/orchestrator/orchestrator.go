// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package orchestrator drives a research run end to end: query planning,
// concurrent search and fact-checking, synthesis, critique, the
// improvement loop, and report assembly. It also answers single questions
// on a lighter path.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/research-orchestrator/internal/agents"
	"github.com/pdiddy/research-orchestrator/internal/cache"
	"github.com/pdiddy/research-orchestrator/internal/fanout"
	"github.com/pdiddy/research-orchestrator/internal/genai"
	"github.com/pdiddy/research-orchestrator/internal/improve"
	"github.com/pdiddy/research-orchestrator/internal/metrics"
	"github.com/pdiddy/research-orchestrator/internal/registry"
	"github.com/pdiddy/research-orchestrator/internal/report"
	"github.com/pdiddy/research-orchestrator/internal/search"
	"github.com/pdiddy/research-orchestrator/pkg/types"
)

var (
	// ErrEmptyPlan is returned when ConductResearch gets a blank content plan.
	ErrEmptyPlan = errors.New("content plan is empty")

	// ErrEmptyQuestion is returned when AnswerQuestion gets a blank question.
	ErrEmptyQuestion = errors.New("question is empty")
)

// Deps are the collaborators an Orchestrator calls out to.
type Deps struct {
	// Generator serves every agent. Rate limiting and credential rotation
	// are expected to be layered in already.
	Generator genai.Generator

	Search search.Client

	// Cache holds finished results. Nil disables caching.
	Cache cache.Cache

	Logger *zap.Logger
}

// Config tunes a run.
type Config struct {
	Improver      improve.Config
	MaxConcurrent int
	SearchTimeout time.Duration
	Author        string
	Model         string

	// Now stamps run metadata. Defaults to time.Now.
	Now func() time.Time
}

// ConfigFrom maps the process configuration onto a run Config.
func ConfigFrom(c types.Config) Config {
	return Config{
		Improver: improve.Config{
			QualityThreshold: c.Improver.QualityThreshold,
			MaxIterations:    c.Improver.MaxIterations,
			MaxConcurrent:    c.Orchestrator.MaxConcurrent,
		},
		MaxConcurrent: c.Orchestrator.MaxConcurrent,
		SearchTimeout: c.Search.CallTimeout,
		Author:        c.Report.Author,
		Model:         c.Generation.Model,
	}
}

// Orchestrator runs research. The agents that hold no per-run state are
// shared; each run gets its own source registry. Safe for concurrent use.
type Orchestrator struct {
	deps   Deps
	cfg    Config
	logger *zap.Logger

	queries   *agents.QueryAgent
	factCheck *agents.FactCheckAgent
	synthesis *agents.SynthesisAgent
	critic    *agents.CriticAgent
	answer    *agents.AnswerAgent
}

// New returns an Orchestrator.
func New(deps Deps, cfg Config) *Orchestrator {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Cache == nil {
		deps.Cache = cache.Nop{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	if cfg.Improver.MaxConcurrent <= 0 {
		cfg.Improver.MaxConcurrent = cfg.MaxConcurrent
	}
	logger := deps.Logger.Named("orchestrator")
	return &Orchestrator{
		deps:      deps,
		cfg:       cfg,
		logger:    logger,
		queries:   agents.NewQueryAgent(deps.Generator, deps.Logger),
		factCheck: agents.NewFactCheckAgent(deps.Generator, deps.Logger),
		synthesis: agents.NewSynthesisAgent(deps.Generator, deps.Logger),
		critic:    agents.NewCriticAgent(deps.Generator, deps.Logger),
		answer:    agents.NewAnswerAgent(deps.Generator, deps.Logger),
	}
}

// run is the per-run state: a fresh registry and the agents bound to it.
type run struct {
	reg      *registry.Registry
	web      *agents.WebResearchAgent
	verifier *recordingVerifier
}

func (o *Orchestrator) newRun() *run {
	reg := registry.New()
	return &run{
		reg: reg,
		web: agents.NewWebResearchAgent(o.deps.Generator, o.deps.Search, reg, agents.WebResearchConfig{
			SearchTimeout: o.cfg.SearchTimeout,
		}, o.deps.Logger),
		verifier: &recordingVerifier{next: o.factCheck, reg: reg},
	}
}

// ConductResearch researches plan and returns the structured report with
// its Markdown rendering. A cached result for the same plan is returned
// without running the pipeline. Errors come only from outside the agents:
// a blank plan, a cancelled context, or report rendering.
func (o *Orchestrator) ConductResearch(ctx context.Context, plan string) (res *types.Result, err error) {
	if strings.TrimSpace(plan) == "" {
		return nil, ErrEmptyPlan
	}
	started := o.cfg.Now()
	defer o.observe("research", started, &err)

	key := cache.TopicKey(plan)
	if hit := o.lookup(ctx, key); hit != nil {
		o.logger.Info("serving cached report", zap.String("topic_hash", key))
		return hit, nil
	}

	r := o.newRun()
	o.logger.Info("research started", zap.String("plan", plan))

	queries := o.queries.GenerateQueries(ctx, plan)
	types.SortByPriority(queries)
	o.logger.Info("queries generated", zap.Int("count", len(queries)))

	findings, err := fanout.Map(ctx, o.cfg.MaxConcurrent, queries, r.web.Search)
	if err != nil {
		return nil, fmt.Errorf("researching queries: %w", err)
	}
	kept, err := o.verify(ctx, r, findings)
	if err != nil {
		return nil, err
	}
	o.logger.Info("findings verified", zap.Int("collected", len(findings)), zap.Int("kept", len(kept)))

	doc := o.synthesis.Synthesize(ctx, kept, plan)
	initial := o.critic.Critique(ctx, doc, kept)

	improver := improve.New(o.cfg.Improver, o.deps.Generator, r.web, r.verifier, o.critic, o.deps.Logger)
	outcome := improver.Improve(ctx, improve.Input{
		ContentPlan: plan,
		Synthesis:   doc,
		Critique:    initial,
		Findings:    kept,
	})
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("research interrupted: %w", err)
	}

	completed := o.cfg.Now()
	rep := &types.Report{
		ContentPlan:        plan,
		Synthesis:          outcome.Synthesis,
		Critique:           outcome.Critique,
		ImprovementHistory: history(initial, outcome),
		Metadata: types.RunMetadata{
			StartedAt:         started,
			CompletedAt:       completed,
			Duration:          completed.Sub(started),
			QueriesGenerated:  len(queries),
			FindingsCollected: len(findings),
			FindingsKept:      len(outcome.Findings),
			SourcesRegistered: r.reg.Len(),
			Model:             o.cfg.Model,
		},
		Sources: citedSources(r.reg, outcome),
	}

	md, err := report.FormatMarkdown(rep, report.Options{Author: o.cfg.Author, Now: completed})
	if err != nil {
		return nil, fmt.Errorf("rendering report: %w", err)
	}
	res = &types.Result{Report: rep, Markdown: md}

	if err := o.deps.Cache.Put(ctx, key, res); err != nil {
		o.logger.Warn("caching report failed", zap.String("topic_hash", key), zap.Error(err))
	}
	o.logger.Info("research complete",
		zap.Float64("quality", outcome.Critique.OverallQuality),
		zap.Int("iterations", len(outcome.Iterations)),
		zap.Int("sources", len(rep.Sources)),
		zap.Duration("duration", rep.Metadata.Duration))
	return res, nil
}

// verify fact-checks findings concurrently and keeps, in input order, the
// ones whose verdict survives filtering.
func (o *Orchestrator) verify(ctx context.Context, r *run, findings []types.Finding) ([]types.Finding, error) {
	verdicts, err := fanout.Map(ctx, o.cfg.MaxConcurrent, findings, r.verifier.Verify)
	if err != nil {
		return nil, fmt.Errorf("verifying findings: %w", err)
	}
	kept := make([]types.Finding, 0, len(findings))
	for i, v := range verdicts {
		if v.Status.Kept() {
			kept = append(kept, findings[i])
		}
	}
	return kept, nil
}

func (o *Orchestrator) lookup(ctx context.Context, key string) *types.Result {
	res, ok, err := o.deps.Cache.Get(ctx, key)
	switch {
	case err != nil:
		metrics.CacheLookups.WithLabelValues("error").Inc()
		o.logger.Warn("cache lookup failed", zap.String("topic_hash", key), zap.Error(err))
		return nil
	case !ok || res == nil || res.Report == nil:
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil
	}
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	res.Report.Metadata.FromCache = true
	return res
}

func (o *Orchestrator) observe(operation string, started time.Time, err *error) {
	outcome := "success"
	if *err != nil {
		outcome = "error"
		o.logger.Error(operation+" failed", zap.Error(*err))
	}
	metrics.Runs.WithLabelValues(operation, outcome).Inc()
	metrics.RunDuration.WithLabelValues(operation).Observe(o.cfg.Now().Sub(started).Seconds())
}

// recordingVerifier stores each verdict on the sources the finding cites.
// The registry keeps the strongest verdict per source.
type recordingVerifier struct {
	next improve.Verifier
	reg  *registry.Registry
}

func (v *recordingVerifier) Verify(ctx context.Context, f types.Finding) types.VerificationResult {
	res := v.next.Verify(ctx, f)
	for _, id := range f.Sources {
		v.reg.SetVerification(id, res.Status)
	}
	return res
}

// citedSources marks every passage of the final synthesis that mentions a
// kept finding's source, then resolves those sources in first-cited order.
func citedSources(reg *registry.Registry, outcome improve.Outcome) []types.Source {
	var ids []string
	for _, f := range outcome.Findings {
		ids = append(ids, f.Sources...)
	}
	for _, id := range ids {
		src, ok := reg.Get(id)
		if !ok {
			continue
		}
		for _, passage := range report.CitedPassages(outcome.Synthesis, src) {
			reg.MarkUsed(id, passage)
		}
	}
	sources := reg.Resolve(ids)
	if sources == nil {
		sources = []types.Source{}
	}
	return sources
}

func history(initial types.Critique, outcome improve.Outcome) types.ImprovementHistory {
	had := make(map[string]bool, len(initial.Strengths))
	for _, s := range initial.Strengths {
		had[s] = true
	}
	gained := []string{}
	for _, s := range outcome.Critique.Strengths {
		if !had[s] {
			gained = append(gained, s)
		}
	}
	return types.ImprovementHistory{
		InitialQuality: initial.OverallQuality,
		FinalQuality:   outcome.Critique.OverallQuality,
		QualityGain:    outcome.Critique.OverallQuality - initial.OverallQuality,
		Converged:      outcome.Converged,
		NewStrengths:   gained,
		Iterations:     outcome.Iterations,
	}
}
