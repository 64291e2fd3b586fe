//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// slug turns a topic into a file name stem.
func slug(s string) string {
	s = strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
	if len(s) > 60 {
		s = strings.TrimRight(s[:60], "-")
	}
	if s == "" {
		s = "report"
	}
	return s
}

// Research produces a report for plan under output/reports/.
func Research(plan string) error {
	mg.Deps(Init, Build)
	stem := filepath.Join("output", "reports", slug(plan))
	if err := sh.RunV(binPath(), "research", plan,
		"--output", stem+".md",
		"--json-output", stem+".yaml"); err != nil {
		return err
	}
	fmt.Printf("Report: %s.md\n", stem)
	return nil
}

// Answer answers a single question and saves it under output/answers/.
func Answer(question string) error {
	mg.Deps(Init, Build)
	out, err := sh.Output(binPath(), "answer", "--json", question)
	if err != nil {
		return err
	}
	path := filepath.Join("output", "answers", slug(question)+".json")
	if err := writeText(path, out+"\n"); err != nil {
		return err
	}
	fmt.Println(out)
	fmt.Printf("Saved: %s\n", path)
	return nil
}

func writeText(path, text string) error {
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
