// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset <idea-id>",
	Short: "Discard problem validation results and return an idea to stage 1",
	Long: `Reset an idea for re-evaluation. Every problem validation evaluation
is deleted and the idea returns to stage 1 with status active. Evaluations
of later stages are kept for the record but no longer count toward gates.

The deletion cannot be undone, so --yes is required.`,
	Args: cobra.ExactArgs(1),
	RunE: runReset,
}

func init() {
	resetCmd.Flags().Bool("yes", false, "confirm deletion of problem validation results")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		return fmt.Errorf("reset deletes evaluations; re-run with --yes to confirm")
	}

	o, cleanup, err := newOrchestrator(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := o.ResetForReEvaluation(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if !res.HadEvaluation {
		fmt.Fprintf(w, "Idea %s has no problem validation results; nothing to reset\n", args[0])
		return nil
	}
	fmt.Fprintf(w, "Deleted %d evaluation(s); idea %s is back at stage %d (%s)\n",
		res.Deleted, res.Idea.ID, res.Idea.CurrentStage, res.Idea.Status)
	return nil
}
