// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/idea-engine/internal/store"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile [idea-id]",
	Short: "Apply stage decisions that were saved but not applied",
	Long: `Reconcile re-applies the latest evaluation's gate decision to an idea
whose stage pointer did not move, and completes interrupted resets.
With --all every idea in the store is checked.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().Bool("all", false, "reconcile every idea")
	rootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	all, _ := cmd.Flags().GetBool("all")
	if all == (len(args) == 1) {
		return fmt.Errorf("pass exactly one of <idea-id> or --all")
	}

	o, cleanup, err := newOrchestrator(ctx, false)
	if err != nil {
		return err
	}
	defer cleanup()

	ids := args
	if all {
		ideas, err := o.ListIdeas(ctx, store.ListOptions{})
		if err != nil {
			return err
		}
		ids = make([]string, len(ideas))
		for i, idea := range ideas {
			ids[i] = idea.ID
		}
	}

	w := cmd.OutOrStdout()
	var fixed, failed int
	for _, id := range ids {
		changed, err := o.Reconcile(ctx, id)
		if err != nil {
			log.WithError(err).WithField("idea_id", id).Error("reconcile.failed")
			failed++
			continue
		}
		if changed {
			fixed++
			fmt.Fprintf(w, "Reconciled %s\n", id)
		}
	}

	fmt.Fprintf(w, "%d idea(s) checked, %d reconciled\n", len(ids), fixed)
	if failed > 0 {
		return fmt.Errorf("%d idea(s) could not be reconciled", failed)
	}
	return nil
}
