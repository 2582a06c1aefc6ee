// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pdiddy/idea-engine/internal/pipeline"
	"github.com/pdiddy/idea-engine/pkg/types"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <idea-id>",
	Short: "Run one evaluation stage for an idea",
	Long: `Run a single evaluation stage (2-6) for an idea and apply its gate
decision. The idea must have reached the stage and the earlier stages it
depends on must have results.

Re-running a stage records a new evaluation; the latest one is
authoritative.`,
	Args: cobra.ExactArgs(1),
	RunE: runEvaluate,
}

func init() {
	evaluateCmd.Flags().IntP("stage", "s", 0, "stage number to run (2-6, default: the idea's current stage)")
	evaluateCmd.Flags().Bool("json", false, "output as JSON")
	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	stage, _ := cmd.Flags().GetInt("stage")

	o, cleanup, err := newOrchestrator(ctx, true)
	if err != nil {
		return err
	}
	defer cleanup()

	if stage == 0 {
		idea, err := o.Store().GetIdea(ctx, args[0])
		if err != nil {
			return err
		}
		stage = max(idea.CurrentStage, types.FirstEvaluatedStage)
	}

	ev, err := o.RunStage(ctx, args[0], stage)
	if ev == nil {
		return err
	}

	w := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		if jerr := writeJSON(w, ev); jerr != nil {
			return jerr
		}
		return pendingHint(err)
	}

	fmt.Fprintf(w, "Evaluation %s\n", ev.ID)
	printEvaluation(w, *ev)
	printNarrative(w, *ev)
	return pendingHint(err)
}

// pendingHint annotates an advance that was saved but not applied.
func pendingHint(err error) error {
	if errors.Is(err, pipeline.ErrAdvancePending) {
		return fmt.Errorf("%w (run \"idea-engine reconcile\" to apply it)", err)
	}
	return err
}

func printNarrative(w io.Writer, ev types.Evaluation) {
	section := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(w, "\n%s:\n", title)
		for _, s := range items {
			fmt.Fprintf(w, "  - %s\n", s)
		}
	}
	section("Strengths", ev.Strengths)
	section("Concerns", ev.Concerns)
	section("Recommendations", ev.Recommendations)
	section("Pivot suggestions", ev.PivotSuggestions)
	section("Sources", ev.Sources)
}
