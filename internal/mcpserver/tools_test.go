// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/idea-engine/internal/pipeline"
	"github.com/pdiddy/idea-engine/internal/store"
	"github.com/pdiddy/idea-engine/pkg/types"
)

// --- fake pipeline ---

type fakePipeline struct {
	submitted types.IdeaDraft
	listOpts  store.ListOptions
	ideas     []types.Idea
	runStage  int
	eval      *types.Evaluation
	evals     []types.Evaluation
	view      pipeline.StatusView
	reset     pipeline.ResetResult
	changed   bool
	err       error
}

func (f *fakePipeline) SubmitIdea(_ context.Context, d types.IdeaDraft) (types.Idea, error) {
	f.submitted = d
	if f.err != nil {
		return types.Idea{}, f.err
	}
	return types.Idea{ID: "idea-1", Title: d.Title, CurrentStage: 1, Status: types.StatusActive}, nil
}

func (f *fakePipeline) ListIdeas(_ context.Context, opts store.ListOptions) ([]types.Idea, error) {
	f.listOpts = opts
	return f.ideas, f.err
}

func (f *fakePipeline) RunStage(_ context.Context, _ string, stage int) (*types.Evaluation, error) {
	f.runStage = stage
	return f.eval, f.err
}

func (f *fakePipeline) RunPipeline(context.Context, string) ([]types.Evaluation, error) {
	return f.evals, f.err
}

func (f *fakePipeline) Status(context.Context, string, int) (pipeline.StatusView, error) {
	return f.view, f.err
}

func (f *fakePipeline) ResetForReEvaluation(context.Context, string) (pipeline.ResetResult, error) {
	return f.reset, f.err
}

func (f *fakePipeline) Reconcile(context.Context, string) (bool, error) {
	return f.changed, f.err
}

// --- helpers ---

func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(r *mcp.CallToolResult) string {
	if r == nil {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func evaluation(t *testing.T, stage int, passed bool, rec types.Recommendation, composite float64) types.Evaluation {
	t.Helper()
	typ, _ := types.EvaluationTypeForStage(stage)
	data, err := json.Marshal(types.StageResult{
		Type:           typ,
		CompositeScore: composite,
		GatePassed:     passed,
		Recommendation: rec,
		Summary:        "summary text",
		Detail:         &types.ProblemValidationDetail{},
	})
	require.NoError(t, err)
	return types.Evaluation{
		ID:             fmt.Sprintf("eval-%d", stage),
		StageNumber:    stage,
		Type:           typ,
		PassFail:       types.PassFailOf(passed),
		Recommendation: rec,
		ResultData:     data,
	}
}

// --- tests ---

func TestToolDefinitions(t *testing.T) {
	want := map[string][]string{
		"idea_submit":       {"title", "problem_statement", "target_users"},
		"idea_list":         nil,
		"idea_run_stage":    {"idea_id", "stage"},
		"idea_run_pipeline": {"idea_id"},
		"idea_status":       {"idea_id"},
		"idea_reset":        {"idea_id"},
		"idea_reconcile":    {"idea_id"},
	}

	tools := Tools(&fakePipeline{})
	require.Len(t, tools, len(want))
	for _, tl := range tools {
		def := tl.Definition()
		required, ok := want[def.Name]
		require.True(t, ok, "unexpected tool %s", def.Name)
		assert.NotEmpty(t, def.Description)
		for _, r := range required {
			assert.Contains(t, def.InputSchema.Required, r, def.Name)
			assert.Contains(t, def.InputSchema.Properties, r, def.Name)
		}
	}
}

func TestNewRegistersTools(t *testing.T) {
	s := New(&fakePipeline{}, "test")
	require.NotNil(t, s)
}

func TestSubmitTool(t *testing.T) {
	fp := &fakePipeline{}
	res, err := NewSubmitTool(fp).Handle(context.Background(), makeReq(map[string]interface{}{
		"title":             "Clinic triage",
		"problem_statement": "Intake is slow.",
		"target_users":      "Nurses",
		"why_now":           "Cheap models",
	}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, resultText(res), "idea-1")
	assert.Equal(t, "Cheap models", fp.submitted.WhyNow)

	fp.err = pipeline.ErrInvalidIdea
	res, err = NewSubmitTool(fp).Handle(context.Background(), makeReq(map[string]interface{}{"title": "x"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(res), "invalid idea")
}

func TestListTool(t *testing.T) {
	fp := &fakePipeline{ideas: []types.Idea{{ID: "a", Title: "Alpha", CurrentStage: 3, Status: types.StatusUnderEvaluation}}}
	tool := NewListTool(fp)

	res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{"status": "under_evaluation", "stage": float64(3)}))
	require.NoError(t, err)
	assert.Contains(t, resultText(res), "Alpha")
	assert.Equal(t, types.StatusUnderEvaluation, fp.listOpts.Status)
	assert.Equal(t, 3, fp.listOpts.Stage)
	assert.Equal(t, 20, fp.listOpts.Limit)

	res, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{"status": "lost"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	fp.ideas = nil
	res, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	require.NoError(t, err)
	assert.Equal(t, "No ideas found.", resultText(res))
}

func TestRunStageTool(t *testing.T) {
	ev := evaluation(t, 2, true, types.RecommendAdvance, 400)
	fp := &fakePipeline{eval: &ev}
	tool := NewRunStageTool(fp)

	res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{"idea_id": "idea-1", "stage": float64(2)}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, 2, fp.runStage)
	text := resultText(res)
	assert.Contains(t, text, "passed")
	assert.Contains(t, text, "400.0")

	res, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{"stage": float64(2)}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestRunStageToolAdvancePending(t *testing.T) {
	ev := evaluation(t, 2, true, types.RecommendAdvance, 400)
	fp := &fakePipeline{eval: &ev, err: fmt.Errorf("x: %w", pipeline.ErrAdvancePending)}

	res, err := NewRunStageTool(fp).Handle(context.Background(), makeReq(map[string]interface{}{"idea_id": "idea-1", "stage": float64(2)}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(res), "idea_reconcile")
	assert.Contains(t, resultText(res), "Stage 2")
}

func TestRunPipelineTool(t *testing.T) {
	fp := &fakePipeline{evals: []types.Evaluation{
		evaluation(t, 2, true, types.RecommendAdvance, 400),
		evaluation(t, 3, false, types.RecommendPivot, 12),
	}}
	res, err := NewRunPipelineTool(fp).Handle(context.Background(), makeReq(map[string]interface{}{"idea_id": "idea-1"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, resultText(res), "held, pivot")

	fp.err = errors.New("provider down")
	res, err = NewRunPipelineTool(fp).Handle(context.Background(), makeReq(map[string]interface{}{"idea_id": "idea-1"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(res), "provider down")
}

func TestStatusTool(t *testing.T) {
	fp := &fakePipeline{view: pipeline.StatusView{
		Idea:   types.Idea{ID: "idea-1", Title: "Clinic triage", CurrentStage: 3, Status: types.StatusUnderEvaluation},
		Latest: map[int]types.Evaluation{2: evaluation(t, 2, true, types.RecommendAdvance, 400)},
		Activity: []types.Activity{
			{Kind: types.ActivityStagePassed, Message: "problem validation: advance", CreatedAt: time.Now()},
		},
	}}
	res, err := NewStatusTool(fp).Handle(context.Background(), makeReq(map[string]interface{}{"idea_id": "idea-1"}))
	require.NoError(t, err)
	text := resultText(res)
	assert.Contains(t, text, "## Clinic triage")
	assert.Contains(t, text, "market sizing")
	assert.Contains(t, text, "stage_passed")
}

func TestResetTool(t *testing.T) {
	fp := &fakePipeline{}
	tool := NewResetTool(fp)

	res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{"idea_id": "idea-1"}))
	require.NoError(t, err)
	assert.Contains(t, resultText(res), "nothing was reset")

	fp.reset = pipeline.ResetResult{HadEvaluation: true, Deleted: 1, Idea: types.Idea{CurrentStage: 1}}
	res, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{"idea_id": "idea-1"}))
	require.NoError(t, err)
	assert.Contains(t, resultText(res), "Deleted 1")
}

func TestReconcileTool(t *testing.T) {
	fp := &fakePipeline{changed: true}
	res, err := NewReconcileTool(fp).Handle(context.Background(), makeReq(map[string]interface{}{"idea_id": "idea-1"}))
	require.NoError(t, err)
	assert.Contains(t, resultText(res), "updated")

	fp.err = store.ErrNotFound
	res, err = NewReconcileTool(fp).Handle(context.Background(), makeReq(map[string]interface{}{"idea_id": "nope"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
