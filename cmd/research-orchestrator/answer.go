// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-orchestrator/pkg/types"
)

var answerCmd = &cobra.Command{
	Use:   "answer [question...]",
	Short: "Answer a single question from one verified search",
	Long: `Answer runs one high-priority fact-check search for the question,
verifies the finding, and asks for a direct answer. The confidence is the
lower of the finding's confidence and the verification score.`,
	RunE: runAnswer,
}

func init() {
	answerCmd.Flags().Bool("json", false, "output the answer as JSON")

	rootCmd.AddCommand(answerCmd)
}

func runAnswer(cmd *cobra.Command, args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("provide a question")
	}

	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	ans, err := a.orch.AnswerQuestion(cmd.Context(), question)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(ans)
	}
	formatAnswer(cmd.OutOrStdout(), ans)
	return nil
}

func formatAnswer(w io.Writer, ans *types.Answer) {
	fmt.Fprintln(w, ans.Answer)
	if len(ans.KeyPoints) > 0 {
		fmt.Fprintln(w, "\nKey points:")
		for _, p := range ans.KeyPoints {
			fmt.Fprintf(w, "  - %s\n", p)
		}
	}
	if len(ans.Limitations) > 0 {
		fmt.Fprintln(w, "\nLimitations:")
		for _, l := range ans.Limitations {
			fmt.Fprintf(w, "  - %s\n", l)
		}
	}
	if len(ans.Sources) > 0 {
		fmt.Fprintln(w, "\nSources:")
		for _, s := range ans.Sources {
			fmt.Fprintf(w, "  %s\n", s)
		}
	}
	fmt.Fprintf(w, "\nConfidence: %.2f (%s)\n", ans.Confidence, ans.VerificationStatus)
}
