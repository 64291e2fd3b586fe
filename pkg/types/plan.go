// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ImprovementPlan lists the gaps the improver targets in one iteration.
// Every list may be empty; none is ever nil after parsing.
type ImprovementPlan struct {
	ResearchGaps          []ResearchGap          `json:"research_gaps" yaml:"research_gaps"`
	NarrativeGaps         []NarrativeGap         `json:"narrative_gaps" yaml:"narrative_gaps"`
	SynthesisImprovements []SynthesisImprovement `json:"synthesis_improvements" yaml:"synthesis_improvements"`
	VerificationNeeds     []VerificationNeed     `json:"verification_needs" yaml:"verification_needs"`
}

// ResearchGap is a topic that needs more evidence. SuggestedQueries become
// deep-dive queries.
type ResearchGap struct {
	Topic            string   `json:"topic" yaml:"topic"`
	Reason           string   `json:"reason" yaml:"reason"`
	SuggestedQueries []string `json:"suggested_queries" yaml:"suggested_queries"`
	Priority         int      `json:"priority" yaml:"priority"`
}

// NarrativeGap is a structural weakness in a section.
type NarrativeGap struct {
	Section    string `json:"section" yaml:"section"`
	Issue      string `json:"issue" yaml:"issue"`
	Suggestion string `json:"suggestion" yaml:"suggestion"`
}

// SynthesisImprovement names a section and what to change in it.
type SynthesisImprovement struct {
	Section     string `json:"section" yaml:"section"`
	Improvement string `json:"improvement" yaml:"improvement"`
}

// VerificationNeed is a claim that needs checking before it stays.
type VerificationNeed struct {
	Claim  string `json:"claim" yaml:"claim"`
	Reason string `json:"reason" yaml:"reason"`
}

// Empty reports whether the plan has nothing to act on.
func (p ImprovementPlan) Empty() bool {
	return len(p.ResearchGaps) == 0 && len(p.NarrativeGaps) == 0 &&
		len(p.SynthesisImprovements) == 0 && len(p.VerificationNeeds) == 0
}

// FallbackPlan is used when the generation service's plan is unusable.
func FallbackPlan() ImprovementPlan {
	return ImprovementPlan{
		ResearchGaps:  []ResearchGap{},
		NarrativeGaps: []NarrativeGap{},
		SynthesisImprovements: []SynthesisImprovement{{
			Section:     "all",
			Improvement: "Address the critique's weaknesses and strengthen supporting evidence",
		}},
		VerificationNeeds: []VerificationNeed{{
			Claim:  "Key claims in the current synthesis",
			Reason: "Improvement plan could not be generated",
		}},
	}
}
