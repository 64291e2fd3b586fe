// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-orchestrator/internal/report"
)

var researchCmd = &cobra.Command{
	Use:   "research [plan...]",
	Short: "Produce a cited research report for a content plan",
	Long: `Research runs the full pipeline for a content plan: query generation,
concurrent web research, fact-checking, synthesis, critique, and the
improvement loop. The Markdown report goes to stdout or --output; the
structured report can be exported with --json-output.

The plan is taken from the arguments or from --plan-file. Reports for a
plan seen before are served from the cache unless --no-cache is set.`,
	RunE: runResearch,
}

func init() {
	researchCmd.Flags().String("plan-file", "", "read the content plan from a file")
	researchCmd.Flags().String("output", "", "write the Markdown report to this file (default stdout)")
	researchCmd.Flags().String("json-output", "", "write the structured report to this file")
	researchCmd.Flags().String("format", "yaml", "structured report format: yaml or json")
	researchCmd.Flags().Bool("no-cache", false, "bypass the report cache")

	rootCmd.AddCommand(researchCmd)
}

func runResearch(cmd *cobra.Command, args []string) error {
	plan, err := planFromFlags(cmd, args)
	if err != nil {
		return err
	}
	noCache, _ := cmd.Flags().GetBool("no-cache")

	a, err := newApp(noCache)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Fprintf(os.Stderr, "Researching: %s\n", firstLine(plan))
	res, err := a.orch.ConductResearch(cmd.Context(), plan)
	if err != nil {
		return err
	}
	meta := res.Report.Metadata
	if meta.FromCache {
		fmt.Fprintln(os.Stderr, "Served from cache.")
	} else {
		fmt.Fprintf(os.Stderr, "Done in %s: %d queries, %d/%d findings kept, %d sources, quality %.1f\n",
			meta.Duration.Round(time.Second), meta.QueriesGenerated, meta.FindingsKept, meta.FindingsCollected,
			len(res.Report.Sources), res.Report.Critique.OverallQuality)
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		fmt.Fprint(cmd.OutOrStdout(), res.Markdown)
	} else {
		if err := writeFile(output, []byte(res.Markdown)); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Report written to %s\n", output)
	}

	jsonOutput, _ := cmd.Flags().GetString("json-output")
	if jsonOutput == "" {
		return nil
	}
	format, _ := cmd.Flags().GetString("format")
	f, err := createFile(jsonOutput)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := report.Export(f, res.Report, format); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Structured report written to %s\n", jsonOutput)
	return nil
}

func planFromFlags(cmd *cobra.Command, args []string) (string, error) {
	planFile, _ := cmd.Flags().GetString("plan-file")
	if planFile != "" {
		data, err := os.ReadFile(planFile)
		if err != nil {
			return "", fmt.Errorf("reading plan file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	plan := strings.TrimSpace(strings.Join(args, " "))
	if plan == "" {
		return "", fmt.Errorf("provide a content plan as arguments or with --plan-file")
	}
	return plan, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + "..."
	}
	return s
}

func createFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating directory for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	return f, nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
