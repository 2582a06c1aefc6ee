// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/idea-engine/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run <idea-id>",
	Short: "Run the remaining stages for an idea until it is held or ready for voting",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func init() {
	runCmd.Flags().Bool("json", false, "output as JSON")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	o, cleanup, err := newOrchestrator(ctx, true)
	if err != nil {
		return err
	}
	defer cleanup()

	evals, runErr := o.RunPipeline(ctx, args[0])

	w := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		if err := writeJSON(w, evals); err != nil {
			return err
		}
		return pendingHint(runErr)
	}

	for _, ev := range evals {
		printEvaluation(w, ev)
	}
	if runErr != nil {
		return pendingHint(runErr)
	}

	idea, err := o.Store().GetIdea(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\nIdea is at stage %d (%s), status %s\n",
		idea.CurrentStage, types.StageName(idea.CurrentStage), idea.Status)
	return nil
}
