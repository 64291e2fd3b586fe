// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pdiddy/research-orchestrator/pkg/types"
)

// DefaultTitle is used when the synthesis has no front_matter.title.
const DefaultTitle = "Research Report"

// Options controls Markdown rendering.
type Options struct {
	// Author is written to the front matter.
	Author string

	// Now dates the report. Zero means time.Now().
	Now time.Time
}

type frontMatter struct {
	Title    string   `yaml:"title"`
	Author   string   `yaml:"author"`
	Date     string   `yaml:"date"`
	Keywords []string `yaml:"keywords,omitempty"`
}

// FormatMarkdown renders r as Markdown: YAML front matter, an Executive
// Summary, one "#" heading per remaining synthesis section and one "##"
// per field, and a References list sorted by date then title. Every
// passage a source was used for gets its in-text citation.
func FormatMarkdown(r *types.Report, opts Options) (string, error) {
	if r == nil {
		return "", fmt.Errorf("nil report")
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	doc := r.Synthesis

	title := strings.TrimSpace(doc.String(types.SectionFrontMatter, "title"))
	if title == "" {
		title = DefaultTitle
	}
	fm, err := yaml.Marshal(frontMatter{
		Title:    title,
		Author:   opts.Author,
		Date:     now.Format("January 2, 2006"),
		Keywords: listStrings(doc.Section(types.SectionFrontMatter)["keywords"]),
	})
	if err != nil {
		return "", fmt.Errorf("marshaling front matter: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(fm)
	b.WriteString("---\n\n")

	cite := func(s string) string { return AddInTextCitations(s, r.Sources) }

	b.WriteString("# Executive Summary\n\n")
	summary := doc.Section(types.SectionExecutiveSummary)
	if abstract := doc.String(types.SectionExecutiveSummary, "abstract"); abstract != "" {
		b.WriteString(cite(abstract) + "\n\n")
	}
	for _, key := range orderedKeys(types.SectionExecutiveSummary, summary) {
		if key == "abstract" {
			continue
		}
		writeField(&b, key, summary[key], cite)
	}

	for _, section := range sectionKeys(doc) {
		if section == types.SectionFrontMatter || section == types.SectionExecutiveSummary {
			continue
		}
		fields, ok := doc[section].(map[string]any)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "# %s\n\n", heading(section))
		for _, key := range orderedKeys(section, fields) {
			writeField(&b, key, fields[key], cite)
		}
	}

	b.WriteString("# References\n\n")
	for _, src := range sortedSources(r.Sources) {
		fmt.Fprintf(&b, "- %s\n", FormatCitation(src))
	}
	return b.String(), nil
}

func writeField(b *strings.Builder, key string, v any, cite func(string) string) {
	fmt.Fprintf(b, "## %s\n\n", heading(key))
	switch x := v.(type) {
	case map[string]any:
		for _, k := range sortedKeys(x) {
			if isEmpty(x[k]) {
				continue
			}
			fmt.Fprintf(b, "### %s\n\n", heading(k))
			writeValue(b, x[k], cite)
		}
	default:
		writeValue(b, v, cite)
	}
}

func writeValue(b *strings.Builder, v any, cite func(string) string) {
	if items, ok := v.([]any); ok {
		for _, item := range items {
			if isEmpty(item) {
				continue
			}
			fmt.Fprintf(b, "- %s\n", cite(text(item)))
		}
		b.WriteString("\n")
		return
	}
	if s := text(v); s != "" {
		b.WriteString(cite(s) + "\n\n")
	}
}

// sectionKeys lists the template sections in order, then any extra
// sections sorted by name.
func sectionKeys(doc types.Document) []string {
	known := make(map[string]bool, len(types.SectionOrder))
	var keys []string
	for _, s := range types.SectionOrder {
		known[s] = true
		if _, ok := doc[s]; ok {
			keys = append(keys, s)
		}
	}
	var extra []string
	for s := range doc {
		if !known[s] {
			extra = append(extra, s)
		}
	}
	sort.Strings(extra)
	return append(keys, extra...)
}

// orderedKeys lists a section's fields in schema order, then extra fields
// sorted by name.
func orderedKeys(section string, fields map[string]any) []string {
	known := map[string]bool{}
	var keys []string
	for _, k := range types.SubsectionOrder[section] {
		known[k] = true
		if _, ok := fields[k]; ok {
			keys = append(keys, k)
		}
	}
	var extra []string
	for k := range fields {
		if !known[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return append(keys, extra...)
}

// sortedSources orders by (published date, title); an undated source
// sorts as "n.d.".
func sortedSources(sources []types.Source) []types.Source {
	out := append([]types.Source(nil), sources...)
	sort.SliceStable(out, func(i, j int) bool {
		di, dj := dateKey(out[i]), dateKey(out[j])
		if di != dj {
			return di < dj
		}
		return out[i].Title < out[j].Title
	})
	return out
}

func dateKey(s types.Source) string {
	if s.PublishedDate == "" {
		return noDate
	}
	return s.PublishedDate
}

// heading turns a schema key into a title. Casers are stateful, so each
// call gets its own.
func heading(key string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(key, "_", " "))
}

// text renders a scalar as is and anything structured as compact JSON.
func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case map[string]any, []any:
		raw, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(raw)
	default:
		return fmt.Sprint(x)
	}
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case []any:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	case bool:
		return !x
	}
	return false
}

func listStrings(v any) []string {
	items, _ := v.([]any)
	var out []string
	for _, item := range items {
		if s := text(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}
