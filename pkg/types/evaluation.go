// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// EvaluationType tags which stage produced an evaluation.
type EvaluationType string

const (
	EvalProblemValidation EvaluationType = "ai_evaluation"
	EvalMarketSizing      EvaluationType = "market_sizing"
	EvalImpactAssessment  EvaluationType = "impact_assessment"
	EvalFeasibility       EvaluationType = "feasibility"
	EvalPitchDeck         EvaluationType = "pitch_deck"
)

// EvaluationTypeForStage maps a stage number to its evaluation type.
func EvaluationTypeForStage(stage int) (EvaluationType, bool) {
	switch stage {
	case StageProblemValidation:
		return EvalProblemValidation, true
	case StageMarketSizing:
		return EvalMarketSizing, true
	case StageImpactAssessment:
		return EvalImpactAssessment, true
	case StageFeasibility:
		return EvalFeasibility, true
	case StagePitchDeck:
		return EvalPitchDeck, true
	}
	return "", false
}

// PassFail is the persisted gate decision.
type PassFail string

const (
	Pass PassFail = "pass"
	Fail PassFail = "fail"
)

// PassFailOf converts a gate decision to its persisted form.
func PassFailOf(passed bool) PassFail {
	if passed {
		return Pass
	}
	return Fail
}

// Recommendation is the follow-up guidance attached to every stage result.
type Recommendation string

const (
	RecommendAdvance Recommendation = "advance"
	RecommendIterate Recommendation = "iterate"
	RecommendPivot   Recommendation = "pivot"
	RecommendDecline Recommendation = "decline"
)

// Evaluation is the durable, append-only record of one stage run.
type Evaluation struct {
	ID               string          `json:"id" yaml:"id"`
	IdeaID           string          `json:"idea_id" yaml:"idea_id"`
	StageNumber      int             `json:"stage_number" yaml:"stage_number"`
	Type             EvaluationType  `json:"evaluation_type" yaml:"evaluation_type"`
	ModelUsed        string          `json:"model_used" yaml:"model_used"`
	ConfidenceScore  float64         `json:"confidence_score" yaml:"confidence_score"`
	PassFail         PassFail        `json:"pass_fail" yaml:"pass_fail"`
	Recommendation   Recommendation  `json:"recommendation" yaml:"recommendation"`
	Strengths        []string        `json:"strengths" yaml:"strengths"`
	Concerns         []string        `json:"concerns" yaml:"concerns"`
	Recommendations  []string        `json:"recommendations" yaml:"recommendations"`
	PivotSuggestions []string        `json:"pivot_suggestions" yaml:"pivot_suggestions"`
	Sources          []string        `json:"sources,omitempty" yaml:"sources,omitempty"`
	ResultData       json.RawMessage `json:"result_data" yaml:"-"`
	RawResponse      string          `json:"raw_response" yaml:"-"`
	CreatedAt        time.Time       `json:"created_at" yaml:"created_at"`
}

// Passed reports whether the evaluation's gate passed.
func (e Evaluation) Passed() bool {
	return e.PassFail == Pass
}

// Result decodes the structured stage result stored in ResultData.
func (e Evaluation) Result() (*StageResult, error) {
	if len(e.ResultData) == 0 {
		return nil, fmt.Errorf("evaluation %s has no result data", e.ID)
	}
	var r StageResult
	if err := json.Unmarshal(e.ResultData, &r); err != nil {
		return nil, fmt.Errorf("decoding result data of evaluation %s: %w", e.ID, err)
	}
	return &r, nil
}

// LatestByStage returns the most recent evaluation for each stage.
// Earlier records of the same stage are superseded.
func LatestByStage(evals []Evaluation) map[int]Evaluation {
	latest := make(map[int]Evaluation, len(evals))
	for _, e := range evals {
		cur, ok := latest[e.StageNumber]
		if !ok || e.CreatedAt.After(cur.CreatedAt) || (e.CreatedAt.Equal(cur.CreatedAt) && e.ID > cur.ID) {
			latest[e.StageNumber] = e
		}
	}
	return latest
}

// CurrentByStage is LatestByStage restricted to evaluations still in
// effect. A reset deletes every problem validation record, so a later-stage
// evaluation older than the oldest remaining problem validation belongs to
// an earlier pass through the pipeline and is ignored.
func CurrentByStage(evals []Evaluation) map[int]Evaluation {
	var epoch time.Time
	found := false
	for _, e := range evals {
		if e.StageNumber == StageProblemValidation && (!found || e.CreatedAt.Before(epoch)) {
			epoch, found = e.CreatedAt, true
		}
	}

	current := make([]Evaluation, 0, len(evals))
	for _, e := range evals {
		if e.StageNumber > StageProblemValidation && (!found || e.CreatedAt.Before(epoch)) {
			continue
		}
		current = append(current, e)
	}
	return LatestByStage(current)
}

// SortedStages returns the stage numbers of m in ascending order.
func SortedStages(m map[int]Evaluation) []int {
	stages := make([]int, 0, len(m))
	for s := range m {
		stages = append(stages, s)
	}
	sort.Ints(stages)
	return stages
}
