// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Document is a synthesized research report: top-level sections mapping to
// named fields whose values are strings, lists, or nested mappings. It keeps
// the shape the generation service returns (decoded JSON objects).
type Document map[string]any

// Top-level section names of the report schema.
const (
	SectionFrontMatter      = "front_matter"
	SectionExecutiveSummary = "executive_summary"
	SectionIntroduction     = "introduction"
	SectionLiteratureReview = "literature_review"
	SectionMethodology      = "methodology"
	SectionFindings         = "findings"
	SectionDiscussion       = "discussion"
	SectionConclusion       = "conclusion"
	SectionReferences       = "references"
	SectionAppendices       = "appendices"
)

// SectionOrder is the canonical order of top-level sections.
var SectionOrder = []string{
	SectionFrontMatter,
	SectionExecutiveSummary,
	SectionIntroduction,
	SectionLiteratureReview,
	SectionMethodology,
	SectionFindings,
	SectionDiscussion,
	SectionConclusion,
	SectionReferences,
	SectionAppendices,
}

// SubsectionOrder lists each section's sub-keys in schema order.
var SubsectionOrder = map[string][]string{
	SectionFrontMatter:      {"title", "authors", "date", "keywords"},
	SectionExecutiveSummary: {"abstract", "key_findings", "significance"},
	SectionIntroduction:     {"background", "objectives", "scope", "research_questions"},
	SectionLiteratureReview: {"theoretical_framework", "previous_research", "gaps_identified"},
	SectionMethodology:      {"research_design", "data_collection", "analysis_approach"},
	SectionFindings:         {"primary_results", "thematic_analysis", "case_studies", "data_visualization_notes"},
	SectionDiscussion:       {"interpretation", "implications", "limitations", "future_directions"},
	SectionConclusion:       {"summary", "recommendations", "closing_thoughts"},
	SectionReferences:       {"citations", "additional_resources"},
	SectionAppendices:       {"supplementary_data", "methodological_details", "additional_analyses"},
}

// NewTemplate returns a fresh copy of the empty report schema. Callers may
// mutate the result freely.
func NewTemplate() Document {
	return Document{
		SectionFrontMatter: map[string]any{
			"title":    "",
			"authors":  []any{},
			"date":     "",
			"keywords": []any{},
		},
		SectionExecutiveSummary: map[string]any{
			"abstract":     "",
			"key_findings": []any{},
			"significance": "",
		},
		SectionIntroduction: map[string]any{
			"background":         "",
			"objectives":         []any{},
			"scope":              "",
			"research_questions": []any{},
		},
		SectionLiteratureReview: map[string]any{
			"theoretical_framework": "",
			"previous_research":     []any{},
			"gaps_identified":       []any{},
		},
		SectionMethodology: map[string]any{
			"research_design": "",
			"data_collection": map[string]any{
				"methods":     []any{},
				"sources":     []any{},
				"limitations": []any{},
			},
			"analysis_approach": "",
		},
		SectionFindings: map[string]any{
			"primary_results": []any{},
			"thematic_analysis": map[string]any{
				"major_themes":        []any{},
				"supporting_evidence": []any{},
			},
			"case_studies":             []any{},
			"data_visualization_notes": []any{},
		},
		SectionDiscussion: map[string]any{
			"interpretation":    "",
			"implications":      []any{},
			"limitations":       []any{},
			"future_directions": []any{},
		},
		SectionConclusion: map[string]any{
			"summary":          "",
			"recommendations":  []any{},
			"closing_thoughts": "",
		},
		SectionReferences: map[string]any{
			"citations":            []any{},
			"additional_resources": []any{},
		},
		SectionAppendices: map[string]any{
			"supplementary_data":     []any{},
			"methodological_details": []any{},
			"additional_analyses":    []any{},
		},
	}
}

// MergeTemplate fills every template key missing from candidate, at the top
// level and one level down. Values already in candidate win. A section that
// the template defines as a mapping but candidate holds as some other type
// is replaced by the template default so the nested keys always exist.
// candidate is modified in place and returned; a nil candidate yields a
// fresh template.
func MergeTemplate(candidate Document) Document {
	tmpl := NewTemplate()
	if candidate == nil {
		return tmpl
	}
	for section, defVal := range tmpl {
		have, ok := candidate[section]
		if !ok {
			candidate[section] = defVal
			continue
		}
		defMap, isMap := defVal.(map[string]any)
		if !isMap {
			continue
		}
		haveMap, ok := have.(map[string]any)
		if !ok {
			candidate[section] = defMap
			continue
		}
		for key, sub := range defMap {
			if _, ok := haveMap[key]; !ok {
				haveMap[key] = sub
			}
		}
	}
	return candidate
}

// Section returns the named section as a mapping, or nil when it is absent
// or not a mapping.
func (d Document) Section(name string) map[string]any {
	m, _ := d[name].(map[string]any)
	return m
}

// String returns the string value at section.key, or "".
func (d Document) String(section, key string) string {
	s, _ := d.Section(section)[key].(string)
	return s
}

// SetString sets section.key, creating the section mapping if needed.
func (d Document) SetString(section, key, value string) {
	m := d.Section(section)
	if m == nil {
		m = map[string]any{}
		d[section] = m
	}
	m[key] = value
}
