// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders a research report as cited Markdown and exports
// the structured report as YAML or JSON.
package report

import (
	"fmt"
	"strings"

	"github.com/pdiddy/research-orchestrator/pkg/types"
)

const (
	noAuthor = "No author"
	noDate   = "n.d."
)

// FormatCitation returns an APA-style reference for src:
//
//	Author (Year). Title. Retrieved from URL
//
// A missing author becomes "No author" and a missing date "n.d.". The
// URL clause is omitted when there is no URL.
func FormatCitation(src types.Source) string {
	citation := fmt.Sprintf("%s (%s). %s", author(src), year(src.PublishedDate), strings.TrimRight(strings.TrimSpace(src.Title), "."))
	if src.URL != "" {
		citation += ". Retrieved from " + src.URL
	}
	return citation
}

// InTextCitation returns "(LastName, Year)" for src.
func InTextCitation(src types.Source) string {
	return fmt.Sprintf("(%s, %s)", lastName(author(src)), year(src.PublishedDate))
}

// AddInTextCitations inserts each source's in-text citation after the
// first occurrence in text of any passage the source was used for. The
// citation goes before the passage's closing period and is added at most
// once per source.
func AddInTextCitations(text string, sources []types.Source) string {
	if text == "" {
		return ""
	}
	for _, src := range sources {
		citation := InTextCitation(src)
		for _, passage := range src.UsedSections {
			if strings.Contains(text, citation) {
				break
			}
			if passage == "" {
				continue
			}
			idx := strings.Index(text, passage)
			if idx < 0 {
				continue
			}
			cited := strings.TrimSuffix(passage, ".") + " " + citation
			if strings.HasSuffix(passage, ".") {
				cited += "."
			}
			text = text[:idx] + cited + text[idx+len(passage):]
		}
	}
	return text
}

func author(src types.Source) string {
	if a := strings.TrimSpace(src.Author); a != "" {
		return a
	}
	return noAuthor
}

// year takes the leading component of an ISO-style date.
func year(date string) string {
	date = strings.TrimSpace(date)
	if date == "" {
		return noDate
	}
	y, _, _ := strings.Cut(date, "-")
	return y
}

// lastName handles "Family, Given" and "Given Family" forms. A single
// token is returned as is.
func lastName(name string) string {
	if name == noAuthor {
		return name
	}
	if family, _, ok := strings.Cut(name, ","); ok {
		return strings.TrimSpace(family)
	}
	idx := strings.LastIndex(name, " ")
	if idx < 0 {
		return name
	}
	return name[idx+1:]
}
