// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/pdiddy/idea-engine/internal/pipeline"
	"github.com/pdiddy/idea-engine/internal/store"
	"github.com/pdiddy/idea-engine/pkg/types"
)

// --- idea_submit ---

// SubmitTool handles the idea_submit MCP tool.
type SubmitTool struct{ p Pipeline }

// NewSubmitTool creates a SubmitTool.
func NewSubmitTool(p Pipeline) *SubmitTool { return &SubmitTool{p: p} }

// Definition returns the MCP tool definition for idea_submit.
func (t *SubmitTool) Definition() mcp.Tool {
	return mcp.NewTool("idea_submit",
		mcp.WithDescription("Submit a new business idea. It starts at stage 1 and is ready for problem validation."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Short name of the idea")),
		mcp.WithString("problem_statement", mcp.Required(), mcp.Description("The problem the idea solves")),
		mcp.WithString("target_users", mcp.Required(), mcp.Description("Who has the problem")),
		mcp.WithString("proposed_solution", mcp.Description("How the idea solves it")),
		mcp.WithString("why_now", mcp.Description("Why this is the right time")),
		mcp.WithString("industry_category", mcp.Description("Industry or sector")),
	)
}

// Handle processes the idea_submit tool call.
func (t *SubmitTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	idea, err := t.p.SubmitIdea(ctx, types.IdeaDraft{
		Title:            req.GetString("title", ""),
		ProblemStatement: req.GetString("problem_statement", ""),
		TargetUsers:      req.GetString("target_users", ""),
		ProposedSolution: req.GetString("proposed_solution", ""),
		WhyNow:           req.GetString("why_now", ""),
		IndustryCategory: req.GetString("industry_category", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("submit failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Submitted **%s** as `%s` (stage %d, %s).", idea.Title, idea.ID, idea.CurrentStage, idea.Status)), nil
}

// --- idea_list ---

// ListTool handles the idea_list MCP tool.
type ListTool struct{ p Pipeline }

// NewListTool creates a ListTool.
func NewListTool(p Pipeline) *ListTool { return &ListTool{p: p} }

// Definition returns the MCP tool definition for idea_list.
func (t *ListTool) Definition() mcp.Tool {
	return mcp.NewTool("idea_list",
		mcp.WithDescription("List ideas, optionally filtered by status or stage."),
		mcp.WithString("status", mcp.Description("active, under_evaluation, ready_for_voting, approved, declined or on_hold")),
		mcp.WithNumber("stage", mcp.Description("Current stage number (1-7)")),
		mcp.WithNumber("limit", mcp.Description("Max results (default: 20)")),
	)
}

// Handle processes the idea_list tool call.
func (t *ListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status := types.IdeaStatus(req.GetString("status", ""))
	if status != "" && !status.Valid() {
		return mcp.NewToolResultError(fmt.Sprintf("unknown status %q", status)), nil
	}
	ideas, err := t.p.ListIdeas(ctx, store.ListOptions{
		Status: status,
		Stage:  intArg(req, "stage", 0),
		Limit:  intArg(req, "limit", 20),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
	}
	if len(ideas) == 0 {
		return mcp.NewToolResultText("No ideas found."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d ideas:\n\n", len(ideas))
	for _, idea := range ideas {
		fmt.Fprintf(&b, "- `%s` **%s** (stage %d, %s)\n", idea.ID, idea.Title, idea.CurrentStage, idea.Status)
	}
	return mcp.NewToolResultText(b.String()), nil
}

// --- idea_run_stage ---

// RunStageTool handles the idea_run_stage MCP tool.
type RunStageTool struct{ p Pipeline }

// NewRunStageTool creates a RunStageTool.
func NewRunStageTool(p Pipeline) *RunStageTool { return &RunStageTool{p: p} }

// Definition returns the MCP tool definition for idea_run_stage.
func (t *RunStageTool) Definition() mcp.Tool {
	return mcp.NewTool("idea_run_stage",
		mcp.WithDescription("Run one evaluation stage (2-6) for an idea and apply its gate decision."),
		mcp.WithString("idea_id", mcp.Required(), mcp.Description("Idea identifier")),
		mcp.WithNumber("stage", mcp.Required(), mcp.Description("Stage number: 2 problem, 3 market, 4 impact, 5 feasibility, 6 pitch deck")),
	)
}

// Handle processes the idea_run_stage tool call.
func (t *RunStageTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("idea_id", "")
	if id == "" {
		return mcp.NewToolResultError("'idea_id' is required"), nil
	}
	stage := intArg(req, "stage", 0)

	ev, err := t.p.RunStage(ctx, id, stage)
	if err != nil {
		return stageError(ev, err), nil
	}
	return mcp.NewToolResultText(describeEvaluation(*ev)), nil
}

// --- idea_run_pipeline ---

// RunPipelineTool handles the idea_run_pipeline MCP tool.
type RunPipelineTool struct{ p Pipeline }

// NewRunPipelineTool creates a RunPipelineTool.
func NewRunPipelineTool(p Pipeline) *RunPipelineTool { return &RunPipelineTool{p: p} }

// Definition returns the MCP tool definition for idea_run_pipeline.
func (t *RunPipelineTool) Definition() mcp.Tool {
	return mcp.NewTool("idea_run_pipeline",
		mcp.WithDescription("Run stages from the idea's current stage until a gate holds, a stage fails, or the idea is ready for voting."),
		mcp.WithString("idea_id", mcp.Required(), mcp.Description("Idea identifier")),
	)
}

// Handle processes the idea_run_pipeline tool call.
func (t *RunPipelineTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("idea_id", "")
	if id == "" {
		return mcp.NewToolResultError("'idea_id' is required"), nil
	}

	evals, err := t.p.RunPipeline(ctx, id)
	var b strings.Builder
	for _, ev := range evals {
		b.WriteString(describeEvaluation(ev))
		b.WriteString("\n")
	}
	if err != nil {
		fmt.Fprintf(&b, "Stopped: %v\n", err)
		return mcp.NewToolResultError(b.String()), nil
	}
	if len(evals) == 0 {
		return mcp.NewToolResultText("Nothing to run: the idea is past the last automated stage."), nil
	}
	return mcp.NewToolResultText(b.String()), nil
}

// --- idea_status ---

// StatusTool handles the idea_status MCP tool.
type StatusTool struct{ p Pipeline }

// NewStatusTool creates a StatusTool.
func NewStatusTool(p Pipeline) *StatusTool { return &StatusTool{p: p} }

// Definition returns the MCP tool definition for idea_status.
func (t *StatusTool) Definition() mcp.Tool {
	return mcp.NewTool("idea_status",
		mcp.WithDescription("Show an idea's stage, status, the latest result of every stage and recent activity."),
		mcp.WithString("idea_id", mcp.Required(), mcp.Description("Idea identifier")),
		mcp.WithNumber("activity", mcp.Description("Activity entries to include (default: 5)")),
	)
}

// Handle processes the idea_status tool call.
func (t *StatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("idea_id", "")
	if id == "" {
		return mcp.NewToolResultError("'idea_id' is required"), nil
	}
	view, err := t.p.Status(ctx, id, intArg(req, "activity", 5))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("status failed: %v", err)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", view.Idea.Title)
	fmt.Fprintf(&b, "- **ID**: `%s`\n", view.Idea.ID)
	fmt.Fprintf(&b, "- **Stage**: %d (%s)\n", view.Idea.CurrentStage, types.StageName(view.Idea.CurrentStage))
	fmt.Fprintf(&b, "- **Status**: %s\n", view.Idea.Status)

	if len(view.Latest) > 0 {
		b.WriteString("\n### Stages\n\n")
		for _, s := range types.SortedStages(view.Latest) {
			b.WriteString(describeEvaluation(view.Latest[s]))
		}
	}
	if len(view.Activity) > 0 {
		b.WriteString("\n### Activity\n\n")
		for _, a := range view.Activity {
			fmt.Fprintf(&b, "- %s %s: %s\n", a.CreatedAt.Format("2006-01-02 15:04"), a.Kind, a.Message)
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

// --- idea_reset ---

// ResetTool handles the idea_reset MCP tool.
type ResetTool struct{ p Pipeline }

// NewResetTool creates a ResetTool.
func NewResetTool(p Pipeline) *ResetTool { return &ResetTool{p: p} }

// Definition returns the MCP tool definition for idea_reset.
func (t *ResetTool) Definition() mcp.Tool {
	return mcp.NewTool("idea_reset",
		mcp.WithDescription("Delete the idea's problem-validation evaluation and send it back to stage 1. Irreversible."),
		mcp.WithString("idea_id", mcp.Required(), mcp.Description("Idea identifier")),
	)
}

// Handle processes the idea_reset tool call.
func (t *ResetTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("idea_id", "")
	if id == "" {
		return mcp.NewToolResultError("'idea_id' is required"), nil
	}
	res, err := t.p.ResetForReEvaluation(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("reset failed: %v", err)), nil
	}
	if !res.HadEvaluation {
		return mcp.NewToolResultText("No problem-validation evaluation exists; nothing was reset."), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted %d evaluation(s); idea is back at stage %d.", res.Deleted, res.Idea.CurrentStage)), nil
}

// --- idea_reconcile ---

// ReconcileTool handles the idea_reconcile MCP tool.
type ReconcileTool struct{ p Pipeline }

// NewReconcileTool creates a ReconcileTool.
func NewReconcileTool(p Pipeline) *ReconcileTool { return &ReconcileTool{p: p} }

// Definition returns the MCP tool definition for idea_reconcile.
func (t *ReconcileTool) Definition() mcp.Tool {
	return mcp.NewTool("idea_reconcile",
		mcp.WithDescription("Re-apply the latest saved stage decision to an idea whose stage update failed."),
		mcp.WithString("idea_id", mcp.Required(), mcp.Description("Idea identifier")),
	)
}

// Handle processes the idea_reconcile tool call.
func (t *ReconcileTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("idea_id", "")
	if id == "" {
		return mcp.NewToolResultError("'idea_id' is required"), nil
	}
	changed, err := t.p.Reconcile(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("reconcile failed: %v", err)), nil
	}
	if !changed {
		return mcp.NewToolResultText("Idea is consistent with its evaluations; nothing changed."), nil
	}
	return mcp.NewToolResultText("Idea updated from its latest evaluation."), nil
}

// --- helpers ---

func describeEvaluation(ev types.Evaluation) string {
	var b strings.Builder
	gate := "passed"
	if !ev.Passed() {
		gate = "held"
	}
	fmt.Fprintf(&b, "- **Stage %d (%s)**: %s, %s", ev.StageNumber, types.StageName(ev.StageNumber), gate, ev.Recommendation)
	if r, err := ev.Result(); err == nil {
		fmt.Fprintf(&b, ", score %.1f", r.CompositeScore)
		if r.Summary != "" {
			fmt.Fprintf(&b, "\n  %s", r.Summary)
		}
	}
	b.WriteString("\n")
	return b.String()
}

func stageError(ev *types.Evaluation, err error) *mcp.CallToolResult {
	if errors.Is(err, pipeline.ErrAdvancePending) && ev != nil {
		return mcp.NewToolResultError(describeEvaluation(*ev) +
			fmt.Sprintf("\nThe evaluation was saved but the idea was not updated (%v). Run idea_reconcile.", err))
	}
	return mcp.NewToolResultError(fmt.Sprintf("stage run failed: %v", err))
}

// intArg extracts a numeric argument as an int.
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	return int(req.GetFloat(key, float64(defaultVal)))
}
