// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package stages

import (
	"context"
	"math"

	"github.com/pdiddy/idea-engine/internal/parse"
	"github.com/pdiddy/idea-engine/internal/reasoning"
	"github.com/pdiddy/idea-engine/pkg/types"
)

// Impact dimensions, each scored 1-10.
const (
	DimLivesImpacted        = "lives_impacted"
	DimProblemSeverity      = "problem_severity"
	DimExponentialPotential = "exponential_potential"
	DimUnderservedReach     = "underserved_reach"
	DimStrategicAlignment   = "strategic_alignment"
	DimSustainability       = "sustainability"
)

type weightedDimension struct {
	name    string
	percent int
}

// impactDimensions are ordered by weight; the weights sum to 100 percent.
var impactDimensions = []weightedDimension{
	{DimLivesImpacted, 25},
	{DimProblemSeverity, 20},
	{DimExponentialPotential, 20},
	{DimUnderservedReach, 15},
	{DimStrategicAlignment, 10},
	{DimSustainability, 10},
}

const (
	impactSpikeScore   = 8
	impactPassScore    = 6.5
	impactIterateScore = 5.5
	impactPassSpikes   = 2
)

const impactSystem = `You are an impact investor assessing how much good an idea can do at scale. Score strictly; reserve 8 and above for exceptional cases.`

var impactPrompt = newPrompt("impact-assessment", `Assess the impact potential of the following idea.

{{template "idea" .}}
Earlier evaluation results:
{{.Priors}}
Score each dimension from 1 to 10:
- lives_impacted: how many people benefit
- problem_severity: how painful the problem is for them
- exponential_potential: ability to scale without linear cost
- underserved_reach: benefit to people existing solutions ignore
- strategic_alignment: fit with a focus on applied AI for social and economic good
- sustainability: ability to keep delivering impact long term

Return a JSON object with:
- "scores": an object with the six dimensions above
- "rationale": an object with one sentence per dimension
- "composite_score": your weighted overall score
`+narrativeInstructions)

func impactDimensionNames() []string {
	names := make([]string, len(impactDimensions))
	for i, d := range impactDimensions {
		names[i] = d.name
	}
	return names
}

var impactSchema = parse.MustCompileSchema("impact-assessment", objectSchema(
	[]string{"scores"},
	map[string]any{
		"scores":          scoresSchema(impactDimensionNames(), 1, 10),
		"rationale":       map[string]any{"type": "object", "additionalProperties": map[string]any{"type": "string"}},
		"composite_score": map[string]any{"type": "number"},
	},
))

type impactPayload struct {
	Scores         map[string]float64 `json:"scores"`
	Rationale      map[string]string  `json:"rationale"`
	CompositeScore float64            `json:"composite_score"`
	narrative
}

// ImpactScore is the locally computed stage 4 score.
type ImpactScore struct {
	Composite      float64
	Spikes         []string
	Passed         bool
	Recommendation types.Recommendation
}

// ScoreImpact computes the weighted composite rounded half up to one
// decimal, the spike dimensions (score of 8 or more) and the gate. Two
// spikes pass the gate whatever the composite.
func ScoreImpact(scores map[string]float64) ImpactScore {
	// Weighted sum in hundredths of a point, exact for integer scores.
	var hundredths float64
	spikes := []string{}
	for _, d := range impactDimensions {
		v := scores[d.name]
		hundredths += v * float64(d.percent)
		if v >= impactSpikeScore {
			spikes = append(spikes, d.name)
		}
	}

	s := ImpactScore{Composite: math.Floor(hundredths/10+0.5) / 10, Spikes: spikes}
	switch {
	case s.Composite >= impactPassScore || len(spikes) >= impactPassSpikes:
		s.Passed, s.Recommendation = true, types.RecommendAdvance
	case s.Composite >= impactIterateScore:
		s.Recommendation = types.RecommendIterate
	case len(spikes) >= 1:
		s.Recommendation = types.RecommendPivot
	default:
		s.Recommendation = types.RecommendDecline
	}
	return s
}

// ImpactAssessment is stage 4. It uses the deep provider.
type ImpactAssessment struct {
	client Completer
}

func (*ImpactAssessment) Stage() int                 { return types.StageImpactAssessment }
func (*ImpactAssessment) Type() types.EvaluationType { return types.EvalImpactAssessment }
func (*ImpactAssessment) Requires() []int {
	return []int{types.StageProblemValidation, types.StageMarketSizing}
}

func (s *ImpactAssessment) Evaluate(ctx context.Context, idea types.Idea, priors Priors) (*Outcome, error) {
	summary, err := summarizePriors(priors, s.Requires())
	if err != nil {
		return nil, err
	}
	prompt, err := render(impactPrompt, promptData{Idea: idea, Priors: summary})
	if err != nil {
		return nil, err
	}

	var p impactPayload
	comp, err := complete(ctx, s.client, s.Stage(), reasoning.ProviderDeep,
		reasoning.Options{Temperature: 0.7, MaxTokens: 4096},
		impactSystem, prompt, impactSchema, &p)
	if err != nil {
		return nil, err
	}

	score := ScoreImpact(p.Scores)
	result := p.narrative.result(s.Type())
	result.Dimensions = pick(p.Scores, impactDimensionNames())
	result.CompositeScore = score.Composite
	result.GatePassed = score.Passed
	result.Recommendation = score.Recommendation
	result.Detail = &types.ImpactDetail{
		SpikeDimensions:   score.Spikes,
		Rationale:         p.Rationale,
		ProviderComposite: p.CompositeScore,
	}

	return &Outcome{
		Result:          result,
		ConfidenceScore: score.Composite,
		RawResponse:     comp.Text,
		ModelUsed:       comp.Model,
	}, nil
}
