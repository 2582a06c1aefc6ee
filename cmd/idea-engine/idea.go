// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/idea-engine/internal/store"
	"github.com/pdiddy/idea-engine/pkg/types"
)

var ideaCmd = &cobra.Command{
	Use:   "idea",
	Short: "Submit, inspect and edit ideas",
}

var ideaSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a new idea at stage 1",
	Long: `Submit a new idea. Fields can be given as flags or read from a YAML
file with --file; flags override values from the file.

Required: title, problem statement and target users.`,
	RunE: runIdeaSubmit,
}

var ideaShowCmd = &cobra.Command{
	Use:   "show <idea-id>",
	Short: "Show an idea with its latest evaluations and recent activity",
	Args:  cobra.ExactArgs(1),
	RunE:  runIdeaShow,
}

var ideaListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ideas, most recently updated first",
	RunE:  runIdeaList,
}

var ideaEditCmd = &cobra.Command{
	Use:   "edit <idea-id>",
	Short: "Edit an idea's submitted fields",
	Long: `Edit the submitter-provided fields of an idea. Only flags that are
given change the idea. If problem validation has already run, the idea is
reset to stage 1 and its problem validation results are discarded.`,
	Args: cobra.ExactArgs(1),
	RunE: runIdeaEdit,
}

// ideaFieldFlags maps flag names to the draft fields they set.
var ideaFieldFlags = []struct {
	flag  string
	usage string
	draft func(*types.IdeaDraft) *string
	edit  func(*types.IdeaEdit) **string
}{
	{"title", "idea title", func(d *types.IdeaDraft) *string { return &d.Title }, func(e *types.IdeaEdit) **string { return &e.Title }},
	{"problem", "problem statement", func(d *types.IdeaDraft) *string { return &d.ProblemStatement }, func(e *types.IdeaEdit) **string { return &e.ProblemStatement }},
	{"solution", "proposed solution", func(d *types.IdeaDraft) *string { return &d.ProposedSolution }, func(e *types.IdeaEdit) **string { return &e.ProposedSolution }},
	{"users", "target users", func(d *types.IdeaDraft) *string { return &d.TargetUsers }, func(e *types.IdeaEdit) **string { return &e.TargetUsers }},
	{"why-now", "why now", func(d *types.IdeaDraft) *string { return &d.WhyNow }, func(e *types.IdeaEdit) **string { return &e.WhyNow }},
	{"industry", "industry category", func(d *types.IdeaDraft) *string { return &d.IndustryCategory }, func(e *types.IdeaEdit) **string { return &e.IndustryCategory }},
}

func init() {
	for _, f := range ideaFieldFlags {
		ideaSubmitCmd.Flags().String(f.flag, "", f.usage)
		ideaEditCmd.Flags().String(f.flag, "", f.usage)
	}
	ideaSubmitCmd.Flags().StringP("file", "f", "", "YAML file with the idea fields")
	ideaSubmitCmd.Flags().Bool("json", false, "output as JSON")

	ideaShowCmd.Flags().Int("activity", 10, "number of recent activity entries to show")
	ideaShowCmd.Flags().Bool("json", false, "output as JSON")

	ideaListCmd.Flags().String("status", "", "filter by status (active, under_evaluation, ready_for_voting, approved, declined, on_hold)")
	ideaListCmd.Flags().Int("stage", 0, "filter by current stage")
	ideaListCmd.Flags().Int("limit", 0, "maximum number of ideas (0 = all)")
	ideaListCmd.Flags().Bool("json", false, "output as JSON")

	ideaEditCmd.Flags().Bool("json", false, "output as JSON")

	ideaCmd.AddCommand(ideaSubmitCmd, ideaShowCmd, ideaListCmd, ideaEditCmd)
	rootCmd.AddCommand(ideaCmd)
}

// readDraft loads an idea draft from a YAML file.
func readDraft(path string) (types.IdeaDraft, error) {
	var d types.IdeaDraft
	data, err := os.ReadFile(path)
	if err != nil {
		return d, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &d); err != nil {
		return d, fmt.Errorf("parsing %s: %w", path, err)
	}
	return d, nil
}

func runIdeaSubmit(cmd *cobra.Command, args []string) error {
	var draft types.IdeaDraft
	if path, _ := cmd.Flags().GetString("file"); path != "" {
		d, err := readDraft(path)
		if err != nil {
			return err
		}
		draft = d
	}
	for _, f := range ideaFieldFlags {
		if cmd.Flags().Changed(f.flag) {
			v, _ := cmd.Flags().GetString(f.flag)
			*f.draft(&draft) = v
		}
	}

	o, cleanup, err := newOrchestrator(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer cleanup()

	idea, err := o.SubmitIdea(cmd.Context(), draft)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(cmd.OutOrStdout(), idea)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Submitted idea %s\n", idea.ID)
	return nil
}

func runIdeaShow(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("activity")

	o, cleanup, err := newOrchestrator(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer cleanup()

	view, err := o.Status(cmd.Context(), args[0], limit)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(w, view)
	}

	printIdea(w, view.Idea)
	if len(view.Latest) > 0 {
		fmt.Fprintln(w, "\nEvaluations:")
		for _, s := range types.SortedStages(view.Latest) {
			printEvaluation(w, view.Latest[s])
		}
	}
	if len(view.Activity) > 0 {
		fmt.Fprintln(w, "\nActivity:")
		for _, a := range view.Activity {
			fmt.Fprintf(w, "  %s  %-18s %s\n", a.CreatedAt.Format("2006-01-02 15:04:05"), a.Kind, a.Message)
		}
	}
	return nil
}

func runIdeaList(cmd *cobra.Command, args []string) error {
	status, _ := cmd.Flags().GetString("status")
	stage, _ := cmd.Flags().GetInt("stage")
	limit, _ := cmd.Flags().GetInt("limit")

	opts := store.ListOptions{Status: types.IdeaStatus(status), Stage: stage, Limit: limit}
	if status != "" && !opts.Status.Valid() {
		return fmt.Errorf("unknown status %q", status)
	}

	o, cleanup, err := newOrchestrator(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer cleanup()

	ideas, err := o.ListIdeas(cmd.Context(), opts)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(w, ideas)
	}
	if len(ideas) == 0 {
		fmt.Fprintln(w, "No ideas found.")
		return nil
	}

	fmt.Fprintf(w, "%-36s  %-5s  %-16s  %s\n", "ID", "STAGE", "STATUS", "TITLE")
	fmt.Fprintf(w, "%-36s  %-5s  %-16s  %s\n", strings.Repeat("-", 36), "-----", strings.Repeat("-", 16), "-----")
	for _, idea := range ideas {
		fmt.Fprintf(w, "%-36s  %-5d  %-16s  %s\n", idea.ID, idea.CurrentStage, idea.Status, idea.Title)
	}
	return nil
}

func runIdeaEdit(cmd *cobra.Command, args []string) error {
	var edit types.IdeaEdit
	for _, f := range ideaFieldFlags {
		if cmd.Flags().Changed(f.flag) {
			v, _ := cmd.Flags().GetString(f.flag)
			*f.edit(&edit) = &v
		}
	}
	if edit.IsEmpty() {
		return fmt.Errorf("nothing to edit: pass at least one of --title, --problem, --solution, --users, --why-now, --industry")
	}

	o, cleanup, err := newOrchestrator(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := o.EditIdea(cmd.Context(), args[0], edit)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(w, res)
	}
	printIdea(w, res.Idea)
	if res.Reset {
		fmt.Fprintln(w, "\nProblem validation results were discarded; the idea is back at stage 1.")
	}
	return nil
}
