// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Report is the structured output of one research run.
type Report struct {
	// ContentPlan is the topic description the run started from.
	ContentPlan string `json:"content_plan" yaml:"content_plan"`

	// Synthesis is the final (possibly improved) document.
	Synthesis Document `json:"synthesis" yaml:"synthesis"`

	// Critique is the critique of Synthesis.
	Critique Critique `json:"critique" yaml:"critique"`

	// ImprovementHistory compares the initial and final critique.
	ImprovementHistory ImprovementHistory `json:"improvement_history" yaml:"improvement_history"`

	// Metadata records counts and timing for the run.
	Metadata RunMetadata `json:"metadata" yaml:"metadata"`

	// Sources are the resolved records for every source id cited by a kept
	// finding, in first-cited order.
	Sources []Source `json:"sources" yaml:"sources"`
}

// ImprovementHistory summarises what the improvement loop achieved.
type ImprovementHistory struct {
	InitialQuality float64           `json:"initial_quality" yaml:"initial_quality"`
	FinalQuality   float64           `json:"final_quality" yaml:"final_quality"`
	QualityGain    float64           `json:"quality_gain" yaml:"quality_gain"`
	Converged      bool              `json:"converged" yaml:"converged"`
	NewStrengths   []string          `json:"new_strengths" yaml:"new_strengths"`
	Iterations     []IterationRecord `json:"iterations" yaml:"iterations"`
}

// IterationRecord is one pass of the improvement loop.
type IterationRecord struct {
	Iteration       int     `json:"iteration" yaml:"iteration"`
	QualityBefore   float64 `json:"quality_before" yaml:"quality_before"`
	QualityAfter    float64 `json:"quality_after" yaml:"quality_after"`
	ResearchGaps    int     `json:"research_gaps" yaml:"research_gaps"`
	QueriesRun      int     `json:"queries_run" yaml:"queries_run"`
	FindingsAdded   int     `json:"findings_added" yaml:"findings_added"`
	RevisionApplied bool    `json:"revision_applied" yaml:"revision_applied"`
}

// RunMetadata records counts and timing for one run.
type RunMetadata struct {
	StartedAt         time.Time     `json:"started_at" yaml:"started_at"`
	CompletedAt       time.Time     `json:"completed_at" yaml:"completed_at"`
	Duration          time.Duration `json:"duration" yaml:"duration"`
	QueriesGenerated  int           `json:"queries_generated" yaml:"queries_generated"`
	FindingsCollected int           `json:"findings_collected" yaml:"findings_collected"`
	FindingsKept      int           `json:"findings_kept" yaml:"findings_kept"`
	SourcesRegistered int           `json:"sources_registered" yaml:"sources_registered"`
	Model             string        `json:"model,omitempty" yaml:"model,omitempty"`
	FromCache         bool          `json:"from_cache" yaml:"from_cache"`
}

// Result pairs the structured report with its rendered Markdown.
type Result struct {
	Report   *Report `json:"report" yaml:"report"`
	Markdown string  `json:"markdown" yaml:"markdown"`
}
