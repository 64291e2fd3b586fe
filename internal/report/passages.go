// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"sort"
	"strings"
	"unicode"

	"github.com/pdiddy/research-orchestrator/pkg/types"
)

// minTitleMatch is the shortest title matched against synthesis text.
// Shorter titles match too much prose to mean a citation.
const minTitleMatch = 8

// CitedPassages returns the sentences of doc that mention src by URL or
// by title, in document order without repeats. These are the passages
// AddInTextCitations annotates.
func CitedPassages(doc types.Document, src types.Source) []string {
	url := strings.TrimSpace(src.URL)
	title := strings.ToLower(strings.TrimSpace(src.Title))
	if len(title) < minTitleMatch {
		title = ""
	}
	if url == "" && title == "" {
		return nil
	}

	seen := map[string]bool{}
	var out []string
	for _, section := range sectionKeys(doc) {
		walkStrings(doc[section], func(s string) {
			for _, sentence := range Sentences(s) {
				if seen[sentence] {
					continue
				}
				if (url != "" && strings.Contains(sentence, url)) ||
					(title != "" && strings.Contains(strings.ToLower(sentence), title)) {
					seen[sentence] = true
					out = append(out, sentence)
				}
			}
		})
	}
	return out
}

// walkStrings calls fn for every string in v, descending into lists and
// mappings. Mapping keys are visited in sorted order.
func walkStrings(v any, fn func(string)) {
	switch x := v.(type) {
	case string:
		fn(x)
	case []any:
		for _, item := range x {
			walkStrings(item, fn)
		}
	case map[string]any:
		for _, k := range sortedKeys(x) {
			walkStrings(x[k], fn)
		}
	}
}

// Sentences splits text at '.', '!' or '?' followed by whitespace or the
// end of text. Terminators stay with their sentence; surrounding space is
// trimmed.
func Sentences(text string) []string {
	var out []string
	runes := []rune(text)
	start := 0
	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			out = append(out, s)
		}
		start = i + 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
