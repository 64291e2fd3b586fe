// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/research-orchestrator/pkg/types"
)

func TestFormatCitation(t *testing.T) {
	tests := []struct {
		name string
		src  types.Source
		want string
	}{
		{
			name: "full",
			src:  types.Source{Author: "John Doe", PublishedDate: "2024-01-20", Title: "A Sample Research Paper", URL: "https://example.com/paper"},
			want: "John Doe (2024). A Sample Research Paper. Retrieved from https://example.com/paper",
		},
		{
			name: "no author or date",
			src:  types.Source{Title: "Untitled Notes.", URL: "https://example.com/notes"},
			want: "No author (n.d.). Untitled Notes. Retrieved from https://example.com/notes",
		},
		{
			name: "no url",
			src:  types.Source{Author: "Roe, Jane", PublishedDate: "2019", Title: "Offline"},
			want: "Roe, Jane (2019). Offline",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatCitation(tt.src))
		})
	}
}

func TestInTextCitation(t *testing.T) {
	tests := []struct {
		author, date, want string
	}{
		{"John Doe", "2024-01-20", "(Doe, 2024)"},
		{"Roe, Jane", "2019-07", "(Roe, 2019)"},
		{"Plato", "", "(Plato, n.d.)"},
		{"", "2020", "(No author, 2020)"},
	}
	for _, tt := range tests {
		got := InTextCitation(types.Source{Author: tt.author, PublishedDate: tt.date})
		assert.Equal(t, tt.want, got, "author %q", tt.author)
	}
}

func TestAddInTextCitations(t *testing.T) {
	doe := types.Source{Author: "John Doe", PublishedDate: "2024-01-20",
		UsedSections: []string{"Solar adoption doubled.", "Costs fell sharply."}}
	roe := types.Source{Author: "Jane Roe", PublishedDate: "2021",
		UsedSections: []string{"Grid storage lags", "not in the text."}}

	text := "Solar adoption doubled. Costs fell sharply. Grid storage lags behind."
	got := AddInTextCitations(text, []types.Source{doe, roe})

	assert.Equal(t, "Solar adoption doubled (Doe, 2024). Costs fell sharply. Grid storage lags (Roe, 2021) behind.", got)
	assert.Equal(t, 1, strings.Count(got, "(Doe, 2024)"), "cited once per source")

	assert.Equal(t, "", AddInTextCitations("", []types.Source{doe}))
	assert.Equal(t, text, AddInTextCitations(text, nil))
}

func TestSentences(t *testing.T) {
	got := Sentences("First one. See https://a.example/x.html for more! Really? yes")
	assert.Equal(t, []string{"First one.", "See https://a.example/x.html for more!", "Really?", "yes"}, got)
	assert.Empty(t, Sentences("   "))
}

func TestCitedPassages(t *testing.T) {
	doc := types.NewTemplate()
	doc.SetString(types.SectionExecutiveSummary, "abstract",
		"Adoption rose per https://a.example/report. Unrelated sentence. The Solar Outlook 2024 survey agrees.")
	doc.Section(types.SectionFindings)["primary_results"] = []any{"Costs fell (https://a.example/report).", "Other."}

	src := types.Source{URL: "https://a.example/report", Title: "Solar Outlook 2024"}
	got := CitedPassages(doc, src)
	assert.Equal(t, []string{
		"Adoption rose per https://a.example/report.",
		"The Solar Outlook 2024 survey agrees.",
		"Costs fell (https://a.example/report).",
	}, got)

	assert.Empty(t, CitedPassages(doc, types.Source{Title: "Short"}), "short titles are not matched")
}

func testReport() *types.Report {
	doc := types.NewTemplate()
	doc.SetString(types.SectionFrontMatter, "title", "Solar Power Today")
	doc.Section(types.SectionFrontMatter)["keywords"] = []any{"solar", "energy"}
	doc.SetString(types.SectionExecutiveSummary, "abstract", "Solar adoption doubled.")
	doc.Section(types.SectionExecutiveSummary)["key_findings"] = []any{"Costs fell", "", nil}
	doc.SetString(types.SectionIntroduction, "background", "Panels are cheap.")
	doc.Section(types.SectionFindings)["thematic_analysis"] = map[string]any{
		"major_themes":        []any{"cost"},
		"supporting_evidence": []any{},
	}
	doc["zeta_extra"] = map[string]any{"note": "extra section"}

	return &types.Report{
		ContentPlan: "Solar",
		Synthesis:   doc,
		Critique:    types.Critique{OverallQuality: 9},
		Sources: []types.Source{
			{ID: "b", Title: "Zed Paper", URL: "https://z.example", PublishedDate: "2023-01-01", Author: "Ann Zed"},
			{ID: "a", Title: "Alpha Paper", URL: "https://a.example", Author: "John Doe", PublishedDate: "2024-01-20",
				UsedSections: []string{"Solar adoption doubled."}},
			{ID: "c", Title: "Undated", URL: "https://u.example"},
		},
	}
}

func TestFormatMarkdown(t *testing.T) {
	now := time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC)
	md, err := FormatMarkdown(testReport(), Options{Author: "Research Orchestrator", Now: now})
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(md, "---\n"))
	end := strings.Index(md[4:], "---\n")
	require.Positive(t, end)
	var fm frontMatter
	require.NoError(t, yaml.Unmarshal([]byte(md[4:4+end]), &fm))
	assert.Equal(t, frontMatter{Title: "Solar Power Today", Author: "Research Orchestrator", Date: "March 4, 2026", Keywords: []string{"solar", "energy"}}, fm)

	for _, want := range []string{
		"# Executive Summary\n\nSolar adoption doubled (Doe, 2024).\n",
		"## Key Findings\n\n- Costs fell\n",
		"# Introduction\n\n## Background\n\nPanels are cheap.\n",
		"# Literature Review\n",
		"## Thematic Analysis\n\n### Major Themes\n\n- cost\n",
		"# Zeta Extra\n\n## Note\n\nextra section\n",
	} {
		assert.Contains(t, md, want)
	}
	assert.NotContains(t, md, "# Front Matter")
	assert.NotContains(t, md, "### Supporting Evidence", "empty nested values are skipped")

	// Section order follows the template, extras last.
	assert.Less(t, strings.Index(md, "# Introduction"), strings.Index(md, "# Methodology"))
	assert.Less(t, strings.Index(md, "# Appendices"), strings.Index(md, "# Zeta Extra"))

	refs := md[strings.Index(md, "# References"):]
	assert.Equal(t, "# References\n\n"+
		"- Ann Zed (2023). Zed Paper. Retrieved from https://z.example\n"+
		"- John Doe (2024). Alpha Paper. Retrieved from https://a.example\n"+
		"- No author (n.d.). Undated. Retrieved from https://u.example\n", refs)
}

func TestFormatMarkdownDefaultTitle(t *testing.T) {
	md, err := FormatMarkdown(&types.Report{Synthesis: types.Document{}}, Options{})
	require.NoError(t, err)
	assert.Contains(t, md, "title: "+DefaultTitle)
	assert.Contains(t, md, "# Executive Summary")
	assert.Contains(t, md, "# References")

	_, err = FormatMarkdown(nil, Options{})
	assert.Error(t, err)
}

func TestExport(t *testing.T) {
	r := testReport()

	var yb bytes.Buffer
	require.NoError(t, Export(&yb, r, "yaml"))
	var fromYAML map[string]any
	require.NoError(t, yaml.Unmarshal(yb.Bytes(), &fromYAML))
	assert.Equal(t, "Solar", fromYAML["content_plan"])

	var jb bytes.Buffer
	require.NoError(t, Export(&jb, r, "JSON"))
	var fromJSON types.Report
	require.NoError(t, json.Unmarshal(jb.Bytes(), &fromJSON))
	assert.Equal(t, "Solar", fromJSON.ContentPlan)
	assert.Len(t, fromJSON.Sources, 3)

	assert.Error(t, Export(&bytes.Buffer{}, r, "xml"))
}
