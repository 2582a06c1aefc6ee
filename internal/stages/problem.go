// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package stages

import (
	"context"

	"github.com/pdiddy/idea-engine/internal/parse"
	"github.com/pdiddy/idea-engine/internal/reasoning"
	"github.com/pdiddy/idea-engine/pkg/types"
)

// Problem validation dimensions, each scored 0-100.
const (
	DimProblemClarity  = "problem_clarity"
	DimMarketNeed      = "market_need"
	DimTargetAudience  = "target_audience"
	DimUrgencyTiming   = "urgency_timing"
	DimDifferentiation = "differentiation"
)

var problemDimensions = []string{
	DimProblemClarity, DimMarketNeed, DimTargetAudience, DimUrgencyTiming, DimDifferentiation,
}

// Problem validation bands on the 0-500 composite.
const (
	problemPassScore    = 350
	problemIterateScore = 280
	problemPivotScore   = 200
)

const problemSystem = `You are a venture analyst who validates business problems before any money is spent on them. Be candid and specific.`

var problemPrompt = newPrompt("problem-validation", `Evaluate how well the following idea defines a real, urgent problem.

{{template "idea" .}}
Score each dimension from 0 to 100:
- problem_clarity: how precisely the problem is stated
- market_need: evidence that people actively need this solved
- target_audience: how well defined and reachable the users are
- urgency_timing: why this must be solved now
- differentiation: how the approach differs from what exists

Return a JSON object with:
- "scores": an object with the five dimensions above
- "rationale": an object with one sentence per dimension
- "composite_score": the sum of the five scores
`+narrativeInstructions)

var problemSchema = parse.MustCompileSchema("problem-validation", objectSchema(
	[]string{"scores"},
	map[string]any{
		"scores":          scoresSchema(problemDimensions, 0, 100),
		"rationale":       map[string]any{"type": "object", "additionalProperties": map[string]any{"type": "string"}},
		"composite_score": map[string]any{"type": "number"},
	},
))

type problemPayload struct {
	Scores         map[string]float64 `json:"scores"`
	Rationale      map[string]string  `json:"rationale"`
	CompositeScore float64            `json:"composite_score"`
	narrative
}

// ScoreProblemValidation sums the five dimension scores and applies the
// problem validation bands. Missing dimensions count as zero.
func ScoreProblemValidation(scores map[string]float64) (float64, bool, types.Recommendation) {
	var composite float64
	for _, d := range problemDimensions {
		composite += scores[d]
	}

	switch {
	case composite >= problemPassScore:
		return composite, true, types.RecommendAdvance
	case composite >= problemIterateScore:
		return composite, false, types.RecommendIterate
	case composite >= problemPivotScore:
		return composite, false, types.RecommendPivot
	default:
		return composite, false, types.RecommendDecline
	}
}

// ProblemValidation is stage 2. It uses the fast provider with constrained
// JSON output.
type ProblemValidation struct {
	client Completer
}

func (*ProblemValidation) Stage() int                 { return types.StageProblemValidation }
func (*ProblemValidation) Type() types.EvaluationType { return types.EvalProblemValidation }
func (*ProblemValidation) Requires() []int            { return nil }

func (s *ProblemValidation) Evaluate(ctx context.Context, idea types.Idea, _ Priors) (*Outcome, error) {
	prompt, err := render(problemPrompt, promptData{Idea: idea})
	if err != nil {
		return nil, err
	}

	var p problemPayload
	comp, err := complete(ctx, s.client, s.Stage(), reasoning.ProviderFast,
		reasoning.Options{Temperature: 0.7, MaxTokens: 2048, JSONOutput: true},
		problemSystem, prompt, problemSchema, &p)
	if err != nil {
		return nil, err
	}

	composite, passed, rec := ScoreProblemValidation(p.Scores)
	result := p.narrative.result(s.Type())
	result.Dimensions = pick(p.Scores, problemDimensions)
	result.CompositeScore = composite
	result.GatePassed = passed
	result.Recommendation = rec
	result.Detail = &types.ProblemValidationDetail{
		Rationale:         p.Rationale,
		ProviderComposite: p.CompositeScore,
	}

	return &Outcome{
		Result:          result,
		ConfidenceScore: composite,
		RawResponse:     comp.Text,
		ModelUsed:       comp.Model,
	}, nil
}

// pick copies the known dimensions out of scores.
func pick(scores map[string]float64, dims []string) map[string]float64 {
	out := make(map[string]float64, len(dims))
	for _, d := range dims {
		out[d] = scores[d]
	}
	return out
}
