// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-orchestrator/internal/logging"
	"github.com/pdiddy/research-orchestrator/internal/ratelimit"
	"github.com/pdiddy/research-orchestrator/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search [query...]",
	Short: "Run one query against the configured search backends",
	Long: `Search sends a query to every enabled backend (Tavily, Semantic Scholar,
OpenAlex) and prints the merged, deduplicated results. It makes no
generation calls and is useful for checking keys and backend coverage.`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().Int("max-results", 0, "maximum number of results (default from config)")
	searchCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		return fmt.Errorf("provide a search query")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if n, _ := cmd.Flags().GetInt("max-results"); n > 0 {
		cfg.Search.MaxResults = n
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer logger.Sync()

	limiter := ratelimit.New(cfg.RateLimit.MaxCalls, cfg.RateLimit.Period)
	engine, err := newSearchEngine(cfg, limiter, logger)
	if err != nil {
		return err
	}
	resp, err := engine.Search(cmd.Context(), query)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		return search.FormatJSON(resp, cmd.OutOrStdout())
	}
	search.FormatTable(resp, cmd.OutOrStdout())
	return nil
}
