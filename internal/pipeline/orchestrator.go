// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline owns an idea's stage pointer. It dispatches stage runs
// to the evaluators, persists every decided evaluation and advances or
// holds the idea according to the gate.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/idea-engine/internal/stages"
	"github.com/pdiddy/idea-engine/internal/store"
	"github.com/pdiddy/idea-engine/pkg/types"
)

var (
	// ErrUnknownStage is returned for stage numbers without an evaluator.
	ErrUnknownStage = errors.New("unknown stage")

	// ErrStageNotReached is returned when the idea has not reached the
	// requested stage.
	ErrStageNotReached = errors.New("idea has not reached stage")

	// ErrMissingPrior is returned when a stage's required prior evaluation
	// does not exist.
	ErrMissingPrior = errors.New("missing prior evaluation")

	// ErrAdvancePending is returned when an evaluation was saved but the
	// idea could not be updated. Reconcile repairs the idea.
	ErrAdvancePending = errors.New("stage advancement pending")

	// ErrInvalidIdea is returned for submissions or edits that leave a
	// required field blank.
	ErrInvalidIdea = errors.New("invalid idea")
)

const defaultAdvanceRetries = 3

// advanceBackoff is the base delay between advancement attempts.
var advanceBackoff = 200 * time.Millisecond

// Orchestrator runs stages for ideas held in a store.
type Orchestrator struct {
	store   store.Store
	stages  stages.Set
	log     logrus.FieldLogger
	retries int
	locks   *keyedMutex
	now     func() time.Time
}

// New creates an Orchestrator.
func New(st store.Store, set stages.Set, cfg types.PipelineConfig, log logrus.FieldLogger) *Orchestrator {
	retries := cfg.AdvanceRetries
	if retries <= 0 {
		retries = defaultAdvanceRetries
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Orchestrator{
		store:   st,
		stages:  set,
		log:     log,
		retries: retries,
		locks:   newKeyedMutex(),
		now:     time.Now,
	}
}

// Store returns the underlying store.
func (o *Orchestrator) Store() store.Store { return o.store }

// reachable reports whether an idea at current may run stage. Stage 2 is
// the entry point from submission.
func reachable(current, stage int) bool {
	return current >= stage || (stage == types.StageProblemValidation && current == types.StageSubmitted)
}

// RunStage evaluates one stage for an idea. A stage failure (provider,
// parse or validation) leaves the idea and the evaluations untouched and is
// returned as is. When the evaluation is saved but the idea cannot be
// updated, the saved evaluation is returned with an error wrapping
// ErrAdvancePending.
func (o *Orchestrator) RunStage(ctx context.Context, ideaID string, stage int) (*types.Evaluation, error) {
	evaluator, ok := o.stages.Get(stage)
	if !ok {
		return nil, fmt.Errorf("stage %d: %w", stage, ErrUnknownStage)
	}

	unlock := o.locks.Lock(ideaID)
	defer unlock()

	idea, err := o.store.GetIdea(ctx, ideaID)
	if err != nil {
		return nil, err
	}
	if !reachable(idea.CurrentStage, stage) {
		return nil, fmt.Errorf("idea %s is at stage %d: %w %d", ideaID, idea.CurrentStage, ErrStageNotReached, stage)
	}

	priors, err := o.loadPriors(ctx, ideaID, evaluator)
	if err != nil {
		return nil, err
	}

	log := o.log.WithFields(logrus.Fields{"idea_id": ideaID, "stage": stage})
	log.Info("pipeline.stage.start")
	start := time.Now()

	out, err := evaluator.Evaluate(ctx, idea, priors)
	if err != nil {
		log.WithError(err).Error("pipeline.stage.failed")
		detail, _ := stages.RawResponse(err)
		o.logActivity(ctx, types.Activity{
			IdeaID:  ideaID,
			Kind:    types.ActivityStageFailed,
			Stage:   stage,
			Message: err.Error(),
			Detail:  detail,
		})
		return nil, err
	}

	record, err := newEvaluation(ideaID, evaluator, out)
	if err != nil {
		return nil, err
	}
	saved, err := o.store.InsertEvaluation(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("saving stage %d evaluation: %w", stage, err)
	}

	log.WithFields(logrus.Fields{
		"composite":      out.Result.CompositeScore,
		"gate_passed":    out.Result.GatePassed,
		"recommendation": out.Result.Recommendation,
		"elapsed_ms":     time.Since(start).Milliseconds(),
	}).Info("pipeline.stage.done")

	kind := types.ActivityStagePassed
	if !saved.Passed() {
		kind = types.ActivityStageHeld
	}
	o.logActivity(ctx, types.Activity{
		IdeaID:  ideaID,
		Kind:    kind,
		Stage:   stage,
		Message: fmt.Sprintf("%s: %s (score %.1f)", types.StageName(stage), saved.Recommendation, out.Result.CompositeScore),
	})

	if _, err := o.advance(ctx, ideaID, saved); err != nil {
		return &saved, err
	}
	return &saved, nil
}

func (o *Orchestrator) loadPriors(ctx context.Context, ideaID string, evaluator stages.Evaluator) (stages.Priors, error) {
	requires := evaluator.Requires()
	if len(requires) == 0 {
		return stages.Priors{}, nil
	}
	evals, err := o.store.ListEvaluations(ctx, ideaID, store.EvaluationFilter{})
	if err != nil {
		return nil, err
	}
	latest := types.CurrentByStage(evals)

	priors := stages.Priors{}
	for _, s := range requires {
		ev, ok := latest[s]
		if !ok {
			return nil, fmt.Errorf("stage %d needs stage %d: %w", evaluator.Stage(), s, ErrMissingPrior)
		}
		priors[s] = ev
	}
	return priors, nil
}

func newEvaluation(ideaID string, evaluator stages.Evaluator, out *stages.Outcome) (types.Evaluation, error) {
	data, err := json.Marshal(out.Result)
	if err != nil {
		return types.Evaluation{}, fmt.Errorf("encoding stage %d result: %w", evaluator.Stage(), err)
	}
	r := out.Result
	return types.Evaluation{
		IdeaID:           ideaID,
		StageNumber:      evaluator.Stage(),
		Type:             evaluator.Type(),
		ModelUsed:        out.ModelUsed,
		ConfidenceScore:  out.ConfidenceScore,
		PassFail:         types.PassFailOf(r.GatePassed),
		Recommendation:   r.Recommendation,
		Strengths:        r.Strengths,
		Concerns:         r.Concerns,
		Recommendations:  r.Recommendations,
		PivotSuggestions: r.PivotSuggestions,
		Sources:          out.Sources,
		ResultData:       data,
		RawResponse:      out.RawResponse,
	}, nil
}

// advance applies the decision of ev to the idea.
func (o *Orchestrator) advance(ctx context.Context, ideaID string, ev types.Evaluation) (types.Idea, error) {
	log := o.log.WithFields(logrus.Fields{"idea_id": ideaID, "stage": ev.StageNumber, "evaluation_id": ev.ID})

	idea, err := o.update(ctx, ideaID, func(idea types.Idea) (store.IdeaUpdate, bool) {
		return transition(idea, ev.StageNumber, ev.Passed(), ev.Recommendation, o.now())
	})
	if err != nil {
		log.WithError(err).Error("pipeline.advance.pending")
		return types.Idea{}, fmt.Errorf("evaluation %s saved but idea %s not updated: %w: %w", ev.ID, ideaID, ErrAdvancePending, err)
	}
	log.WithFields(logrus.Fields{
		"current_stage": idea.CurrentStage,
		"status":        idea.Status,
	}).Debug("pipeline.advance.ok")
	return idea, nil
}

// update applies the change decide computes from the freshest copy of the
// idea. Every attempt re-reads the idea, so a version conflict with a
// concurrent writer is retried rather than lost.
func (o *Orchestrator) update(ctx context.Context, ideaID string, decide func(types.Idea) (store.IdeaUpdate, bool)) (types.Idea, error) {
	var lastErr error
	for attempt := 1; ; attempt++ {
		idea, err := o.store.GetIdea(ctx, ideaID)
		if err == nil {
			upd, changed := decide(idea)
			if !changed {
				return idea, nil
			}
			idea, err = o.store.UpdateIdea(ctx, ideaID, idea.Version, upd)
			if err == nil {
				return idea, nil
			}
		}
		lastErr = err
		if errors.Is(err, store.ErrNotFound) || attempt >= o.retries {
			return types.Idea{}, lastErr
		}
		o.log.WithFields(logrus.Fields{"idea_id": ideaID, "attempt": attempt}).WithError(err).Warn("pipeline.update.retry")

		select {
		case <-ctx.Done():
			return types.Idea{}, fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr)
		case <-time.After(advanceBackoff * time.Duration(attempt)):
		}
	}
}

// RunPipeline runs stages from the idea's current stage until a gate holds,
// a stage fails or the idea reaches voting. It returns the evaluations it
// recorded.
func (o *Orchestrator) RunPipeline(ctx context.Context, ideaID string) ([]types.Evaluation, error) {
	var done []types.Evaluation
	for range types.LastEvaluatedStage {
		idea, err := o.store.GetIdea(ctx, ideaID)
		if err != nil {
			return done, err
		}
		stage := max(idea.CurrentStage, types.FirstEvaluatedStage)
		if stage > types.LastEvaluatedStage {
			return done, nil
		}

		ev, err := o.RunStage(ctx, ideaID, stage)
		if ev != nil {
			done = append(done, *ev)
		}
		if err != nil {
			return done, err
		}
		if !ev.Passed() {
			return done, nil
		}
	}
	return done, nil
}

// Reconcile re-applies the latest persisted decision for the idea's current
// stage. It repairs ideas left behind by ErrAdvancePending, finishes a reset
// whose idea update failed after the deletion, and reports whether the idea
// changed.
func (o *Orchestrator) Reconcile(ctx context.Context, ideaID string) (bool, error) {
	unlock := o.locks.Lock(ideaID)
	defer unlock()

	idea, err := o.store.GetIdea(ctx, ideaID)
	if err != nil {
		return false, err
	}
	if idea.CurrentStage > types.StageSubmitted {
		reset, err := o.finishReset(ctx, idea)
		if reset || err != nil {
			return reset, err
		}
	}

	stage := max(idea.CurrentStage, types.FirstEvaluatedStage)
	if stage > types.LastEvaluatedStage {
		return false, nil
	}

	evals, err := o.store.ListEvaluations(ctx, ideaID, store.EvaluationFilter{})
	if err != nil {
		return false, err
	}
	ev, ok := types.CurrentByStage(evals)[stage]
	if !ok {
		return false, nil
	}
	if _, changed := transition(idea, ev.StageNumber, ev.Passed(), ev.Recommendation, o.now()); !changed {
		return false, nil
	}

	updated, err := o.advance(ctx, ideaID, ev)
	if err != nil {
		return false, err
	}
	o.log.WithFields(logrus.Fields{"idea_id": ideaID, "stage": stage}).Info("pipeline.reconcile.ok")
	o.logActivity(ctx, types.Activity{
		IdeaID:  ideaID,
		Kind:    types.ActivityAdvanceReconciled,
		Stage:   stage,
		Message: fmt.Sprintf("re-applied %s decision: now at stage %d (%s)", types.StageName(stage), updated.CurrentStage, updated.Status),
	})
	return true, nil
}

// logActivity writes a secondary audit entry. A failure is logged and never
// aborts the caller.
func (o *Orchestrator) logActivity(ctx context.Context, a types.Activity) {
	if err := o.store.LogActivity(ctx, a); err != nil {
		o.log.WithFields(logrus.Fields{"idea_id": a.IdeaID, "kind": a.Kind}).WithError(err).Warn("pipeline.activity.failed")
	}
}
