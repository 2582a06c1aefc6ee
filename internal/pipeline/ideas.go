// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/idea-engine/internal/store"
	"github.com/pdiddy/idea-engine/pkg/types"
)

// ResetResult reports the outcome of ResetForReEvaluation.
type ResetResult struct {
	// HadEvaluation is false when the idea had no stage-2 evaluation and
	// nothing was reset.
	HadEvaluation bool       `json:"had_evaluation"`
	Deleted       int64      `json:"deleted"`
	Idea          types.Idea `json:"idea"`
}

// EditResult reports the outcome of EditIdea.
type EditResult struct {
	Idea  types.Idea `json:"idea"`
	Reset bool       `json:"reset"`
}

// StatusView is a read-only view of an idea and its latest stage results.
type StatusView struct {
	Idea     types.Idea               `json:"idea"`
	Latest   map[int]types.Evaluation `json:"latest"`
	Activity []types.Activity         `json:"activity"`
}

// SubmitIdea creates a new idea at stage 1.
func (o *Orchestrator) SubmitIdea(ctx context.Context, draft types.IdeaDraft) (types.Idea, error) {
	idea := draft.Idea()
	if missing := idea.MissingFields(); len(missing) > 0 {
		return types.Idea{}, fmt.Errorf("%w: missing %s", ErrInvalidIdea, strings.Join(missing, ", "))
	}

	created, err := o.store.CreateIdea(ctx, idea)
	if err != nil {
		return types.Idea{}, err
	}
	o.log.WithField("idea_id", created.ID).Info("pipeline.idea.submitted")
	o.logActivity(ctx, types.Activity{
		IdeaID:  created.ID,
		Kind:    types.ActivityIdeaSubmitted,
		Stage:   types.StageSubmitted,
		Message: created.Title,
	})
	return created, nil
}

// EditIdea applies a submitter edit. When the idea already has a stage-2
// evaluation the idea is reset for re-evaluation.
func (o *Orchestrator) EditIdea(ctx context.Context, ideaID string, edit types.IdeaEdit) (EditResult, error) {
	unlock := o.locks.Lock(ideaID)
	defer unlock()

	idea, err := o.store.GetIdea(ctx, ideaID)
	if err != nil {
		return EditResult{}, err
	}
	if edit.IsEmpty() {
		return EditResult{Idea: idea}, nil
	}

	edit = edit.Trimmed()
	if missing := edit.Apply(idea).MissingFields(); len(missing) > 0 {
		return EditResult{}, fmt.Errorf("%w: blank %s", ErrInvalidIdea, strings.Join(missing, ", "))
	}

	edited, err := o.store.UpdateIdea(ctx, ideaID, idea.Version, store.FromEdit(edit))
	if err != nil {
		return EditResult{}, err
	}
	o.logActivity(ctx, types.Activity{
		IdeaID:  ideaID,
		Kind:    types.ActivityIdeaEdited,
		Stage:   edited.CurrentStage,
		Message: "submitter fields edited",
	})

	res, err := o.reset(ctx, ideaID)
	if err != nil {
		return EditResult{Idea: edited}, err
	}
	if !res.HadEvaluation {
		return EditResult{Idea: edited}, nil
	}
	return EditResult{Idea: res.Idea, Reset: true}, nil
}

// ResetForReEvaluation deletes the idea's stage-2 evaluations and moves it
// back to stage 1 so it re-enters the pipeline. The deletion happens first
// and is irreversible. Without a stage-2 evaluation nothing changes and
// HadEvaluation is false.
func (o *Orchestrator) ResetForReEvaluation(ctx context.Context, ideaID string) (ResetResult, error) {
	unlock := o.locks.Lock(ideaID)
	defer unlock()
	return o.reset(ctx, ideaID)
}

func (o *Orchestrator) reset(ctx context.Context, ideaID string) (ResetResult, error) {
	evals, err := o.store.ListEvaluations(ctx, ideaID, store.EvaluationFilter{Stage: types.StageProblemValidation})
	if err != nil {
		return ResetResult{}, err
	}
	if len(evals) == 0 {
		idea, err := o.store.GetIdea(ctx, ideaID)
		if err != nil {
			return ResetResult{}, err
		}
		return ResetResult{Idea: idea}, nil
	}

	deleted, err := o.store.DeleteEvaluations(ctx, ideaID, types.StageProblemValidation)
	if err != nil {
		return ResetResult{}, fmt.Errorf("deleting stage %d evaluations: %w", types.StageProblemValidation, err)
	}

	idea, err := o.update(ctx, ideaID, o.resetUpdate)
	if err != nil {
		o.log.WithField("idea_id", ideaID).WithError(err).Error("pipeline.reset.pending")
		return ResetResult{HadEvaluation: true, Deleted: deleted},
			fmt.Errorf("stage %d evaluations deleted but idea %s not reset: %w", types.StageProblemValidation, ideaID, err)
	}

	o.log.WithFields(logrus.Fields{"idea_id": ideaID, "deleted": deleted}).Info("pipeline.reset.ok")
	o.logActivity(ctx, types.Activity{
		IdeaID:  ideaID,
		Kind:    types.ActivityIdeaReset,
		Stage:   types.StageSubmitted,
		Message: fmt.Sprintf("deleted %d %s evaluation(s); back to stage %d", deleted, types.StageName(types.StageProblemValidation), types.StageSubmitted),
	})
	return ResetResult{HadEvaluation: true, Deleted: deleted, Idea: idea}, nil
}

func (o *Orchestrator) resetUpdate(idea types.Idea) (store.IdeaUpdate, bool) {
	if idea.CurrentStage == types.StageSubmitted && idea.Status == types.StatusActive {
		return store.IdeaUpdate{}, false
	}
	stage := types.StageSubmitted
	status := types.StatusActive
	now := o.now()
	return store.IdeaUpdate{CurrentStage: &stage, Status: &status, StageEnteredAt: &now}, true
}

// finishReset completes a reset whose stage-2 evaluations were deleted but
// whose idea update failed. An idea past stage 1 always has a stage-2
// evaluation otherwise.
func (o *Orchestrator) finishReset(ctx context.Context, idea types.Idea) (bool, error) {
	evals, err := o.store.ListEvaluations(ctx, idea.ID, store.EvaluationFilter{Stage: types.StageProblemValidation})
	if err != nil || len(evals) > 0 {
		return false, err
	}
	if _, err := o.update(ctx, idea.ID, o.resetUpdate); err != nil {
		return false, err
	}
	o.log.WithField("idea_id", idea.ID).Info("pipeline.reconcile.reset")
	o.logActivity(ctx, types.Activity{
		IdeaID:  idea.ID,
		Kind:    types.ActivityAdvanceReconciled,
		Stage:   types.StageSubmitted,
		Message: fmt.Sprintf("completed interrupted reset from stage %d", idea.CurrentStage),
	})
	return true, nil
}

// Status returns the idea, the latest evaluation per stage and its most
// recent activity.
func (o *Orchestrator) Status(ctx context.Context, ideaID string, activityLimit int) (StatusView, error) {
	idea, err := o.store.GetIdea(ctx, ideaID)
	if err != nil {
		return StatusView{}, err
	}
	evals, err := o.store.ListEvaluations(ctx, ideaID, store.EvaluationFilter{})
	if err != nil {
		return StatusView{}, err
	}
	activity, err := o.store.ListActivity(ctx, ideaID, activityLimit)
	if err != nil {
		return StatusView{}, err
	}
	return StatusView{Idea: idea, Latest: types.CurrentByStage(evals), Activity: activity}, nil
}

// ListIdeas lists ideas matching opts.
func (o *Orchestrator) ListIdeas(ctx context.Context, opts store.ListOptions) ([]types.Idea, error) {
	return o.store.ListIdeas(ctx, opts)
}
