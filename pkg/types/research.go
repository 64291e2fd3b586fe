// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types holds the records shared across the research pipeline:
// queries, sources, findings, verdicts, critiques and the final report.
package types

import (
	"fmt"
	"sort"
	"strings"
)

// AgentRole identifies a specialised worker. The display string is what
// prompts carry and what the generation service is asked to echo back.
type AgentRole int

const (
	RoleQuerySpecialist AgentRole = iota + 1
	RoleSearchExpert
	RoleFactChecker
	RoleSynthesisExpert
	RoleWebExpert
	RoleCritic
	RoleStoryteller
)

var roleNames = map[AgentRole]string{
	RoleQuerySpecialist: "Query Generation Specialist",
	RoleSearchExpert:    "Search Operations Expert",
	RoleFactChecker:     "Fact Verification Specialist",
	RoleSynthesisExpert: "Information Synthesis Expert",
	RoleWebExpert:       "Web Research Specialist",
	RoleCritic:          "Critical Analysis Specialist",
	RoleStoryteller:     "Narrative Specialist",
}

// AllRoles lists every role in declaration order.
func AllRoles() []AgentRole {
	return []AgentRole{
		RoleQuerySpecialist,
		RoleSearchExpert,
		RoleFactChecker,
		RoleSynthesisExpert,
		RoleWebExpert,
		RoleCritic,
		RoleStoryteller,
	}
}

// String returns the role's display name.
func (r AgentRole) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("AgentRole(%d)", int(r))
}

// ParseAgentRole maps a display name back to its role. Matching is exact
// after trimming surrounding whitespace.
func ParseAgentRole(display string) (AgentRole, bool) {
	display = strings.TrimSpace(display)
	for role, name := range roleNames {
		if name == display {
			return role, true
		}
	}
	return 0, false
}

// MarshalText encodes the role as its display name for JSON and YAML. The
// zero role encodes as the empty string.
func (r AgentRole) MarshalText() ([]byte, error) {
	if r == 0 {
		return []byte{}, nil
	}
	if _, ok := roleNames[r]; !ok {
		return nil, fmt.Errorf("unknown agent role %d", int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText decodes a display name.
func (r *AgentRole) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*r = 0
		return nil
	}
	role, ok := ParseAgentRole(string(text))
	if !ok {
		return fmt.Errorf("unknown agent role %q", string(text))
	}
	*r = role
	return nil
}

// QueryType classifies a research query.
type QueryType string

const (
	QueryWeb       QueryType = "web"
	QueryFactCheck QueryType = "fact-check"
	QueryDeepDive  QueryType = "deep-dive"
)

// Valid reports whether t is one of the three accepted query types.
func (t QueryType) Valid() bool {
	switch t {
	case QueryWeb, QueryFactCheck, QueryDeepDive:
		return true
	}
	return false
}

// Priority bounds for ResearchQuery. 5 is the most urgent.
const (
	MinPriority = 1
	MaxPriority = 5
)

// ResearchQuery is one unit of research work. Immutable once created.
type ResearchQuery struct {
	Text     string    `json:"text" yaml:"text"`
	Type     QueryType `json:"type" yaml:"type"`
	Priority int       `json:"priority" yaml:"priority"`
	Agent    AgentRole `json:"agent" yaml:"agent"`
	Context  string    `json:"context,omitempty" yaml:"context,omitempty"`
}

// SortByPriority orders queries most urgent first. Queries of equal
// priority keep their relative order.
func SortByPriority(qs []ResearchQuery) {
	sort.SliceStable(qs, func(i, j int) bool {
		return qs[i].Priority > qs[j].Priority
	})
}

// Source is a web document discovered during research. Once registered the
// registry owns it; everything else refers to it by ID.
type Source struct {
	ID                 string             `json:"id" yaml:"id"`
	URL                string             `json:"url" yaml:"url"`
	Title              string             `json:"title" yaml:"title"`
	Content            string             `json:"content,omitempty" yaml:"content,omitempty"`
	Author             string             `json:"author,omitempty" yaml:"author,omitempty"`
	PublishedDate      string             `json:"published_date,omitempty" yaml:"published_date,omitempty"`
	UsedSections       []string           `json:"used_sections" yaml:"used_sections"`
	CredibilityScore   float64            `json:"credibility_score" yaml:"credibility_score"`
	VerificationStatus VerificationStatus `json:"verification_status,omitempty" yaml:"verification_status,omitempty"`
}

// AddUsedSection appends section unless it is empty or already recorded.
func (s *Source) AddUsedSection(section string) {
	if section == "" {
		return
	}
	for _, existing := range s.UsedSections {
		if existing == section {
			return
		}
	}
	s.UsedSections = append(s.UsedSections, section)
}

// Finding is one agent's answer to one query. Sources holds registry IDs.
type Finding struct {
	Query      ResearchQuery  `json:"query" yaml:"query"`
	Content    string         `json:"content" yaml:"content"`
	Sources    []string       `json:"sources" yaml:"sources"`
	URLs       []string       `json:"urls" yaml:"urls"`
	Confidence float64        `json:"confidence" yaml:"confidence"`
	Agent      AgentRole      `json:"agent" yaml:"agent"`
	Metadata   map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// VerificationStatus is the fact-check verdict vocabulary.
type VerificationStatus string

const (
	StatusVerified          VerificationStatus = "verified"
	StatusPartiallyVerified VerificationStatus = "partially_verified"
	StatusUnverified        VerificationStatus = "unverified"
)

// Valid reports whether s is in the three-value vocabulary.
func (s VerificationStatus) Valid() bool {
	switch s {
	case StatusVerified, StatusPartiallyVerified, StatusUnverified:
		return true
	}
	return false
}

// Kept reports whether a finding with this verdict survives filtering.
func (s VerificationStatus) Kept() bool {
	return s == StatusVerified || s == StatusPartiallyVerified
}

// Rank orders verdicts from weakest (0) to strongest (3).
func (s VerificationStatus) Rank() int {
	switch s {
	case StatusVerified:
		return 3
	case StatusPartiallyVerified:
		return 2
	case StatusUnverified:
		return 1
	}
	return 0
}

// VerificationResult is a normalized fact-check verdict.
type VerificationResult struct {
	Status          VerificationStatus `json:"verification_status" yaml:"verification_status"`
	ConfidenceScore float64            `json:"confidence_score" yaml:"confidence_score"`
	IssuesFound     []string           `json:"issues_found" yaml:"issues_found"`
	Suggestions     []string           `json:"suggestions" yaml:"suggestions"`
}

// Critique is a scored assessment of a synthesis.
type Critique struct {
	Strengths      []string `json:"strengths" yaml:"strengths"`
	Weaknesses     []string `json:"weaknesses" yaml:"weaknesses"`
	Suggestions    []string `json:"suggestions" yaml:"suggestions"`
	OverallQuality float64  `json:"overall_quality" yaml:"overall_quality"`
}

// Quality bounds for Critique.OverallQuality.
const (
	MinQuality     = 1.0
	MaxQuality     = 10.0
	DefaultQuality = 5.0
)

// Answer is the result of the one-shot question path.
type Answer struct {
	Question           string             `json:"question" yaml:"question"`
	Answer             string             `json:"answer" yaml:"answer"`
	Sources            []string           `json:"sources" yaml:"sources"`
	Confidence         float64            `json:"confidence" yaml:"confidence"`
	VerificationStatus VerificationStatus `json:"verification_status" yaml:"verification_status"`
	KeyPoints          []string           `json:"key_points" yaml:"key_points"`
	Limitations        []string           `json:"limitations" yaml:"limitations"`
}

// SearchResult is one ranked hit returned by the search service.
type SearchResult struct {
	URL           string  `json:"url" yaml:"url"`
	Title         string  `json:"title" yaml:"title"`
	Content       string  `json:"content" yaml:"content"`
	Author        string  `json:"author,omitempty" yaml:"author,omitempty"`
	PublishedDate string  `json:"published_date,omitempty" yaml:"published_date,omitempty"`
	Score         float64 `json:"score" yaml:"score"`
	Backend       string  `json:"backend,omitempty" yaml:"backend,omitempty"`
}
