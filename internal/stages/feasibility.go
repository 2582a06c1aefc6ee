// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package stages

import (
	"context"
	"errors"

	"github.com/pdiddy/idea-engine/internal/parse"
	"github.com/pdiddy/idea-engine/internal/reasoning"
	"github.com/pdiddy/idea-engine/pkg/types"
)

// Feasibility dimensions, each scored 0-100 where higher is more feasible.
const (
	DimTechnologyReadiness = "technology_readiness"
	DimBuildSimplicity     = "build_simplicity"
	DimDataAvailability    = "data_availability"
	DimIntegrationEase     = "integration_ease"
	DimScalability         = "scalability"
)

var feasibilityDimensions = []string{
	DimTechnologyReadiness, DimBuildSimplicity, DimDataAvailability, DimIntegrationEase, DimScalability,
}

// Iterate and pivot bands as fractions of the configured threshold.
const (
	feasibilityIterateRatio = 0.8
	feasibilityPivotRatio   = 0.6
)

// ErrThresholdUnset is returned by the feasibility stage when no
// pipeline.feasibility_threshold is configured.
var ErrThresholdUnset = errors.New("feasibility threshold is not configured")

const feasibilitySystem = `You are a principal engineer estimating what it takes to ship a first version of a product. Be concrete about scope, staffing and risk.`

var feasibilityPrompt = newPrompt("feasibility", `Assess the technical feasibility of building an MVP for the following idea.

{{template "idea" .}}
Earlier evaluation results:
{{.Priors}}
Score each dimension from 0 to 100, higher meaning easier to deliver:
- technology_readiness: maturity of the technology the idea depends on
- build_simplicity: how little novel engineering the MVP requires
- data_availability: access to the data the product needs
- integration_ease: effort to fit into users' existing tools
- scalability: ability to grow without a rebuild

Return a JSON object with:
- "scores": an object with the five dimensions above
- "rationale": an object with one sentence per dimension
- "mvp_timeline_weeks": integer estimate to a usable MVP
- "mvp_timeline": a short phase-by-phase description
- "resources": an object with "team_size" (integer), "roles" (array of strings), "budget_usd" (number) and "notes"
- "tech_stack": array of suggested technologies
- "risks": array of short strings
`+narrativeInstructions)

var feasibilitySchema = parse.MustCompileSchema("feasibility", objectSchema(
	[]string{"scores", "mvp_timeline_weeks", "resources", "tech_stack"},
	map[string]any{
		"scores":             scoresSchema(feasibilityDimensions, 0, 100),
		"rationale":          map[string]any{"type": "object", "additionalProperties": map[string]any{"type": "string"}},
		"mvp_timeline_weeks": map[string]any{"type": "integer", "minimum": 1},
		"mvp_timeline":       map[string]any{"type": "string"},
		"resources": map[string]any{
			"type":     "object",
			"required": []any{"team_size", "budget_usd"},
			"properties": map[string]any{
				"team_size":  map[string]any{"type": "integer", "minimum": 1},
				"roles":      stringArray,
				"budget_usd": map[string]any{"type": "number", "minimum": 0},
				"notes":      map[string]any{"type": "string"},
			},
		},
		"tech_stack": stringArray,
		"risks":      stringArray,
	},
))

type feasibilityPayload struct {
	Scores           map[string]float64     `json:"scores"`
	Rationale        map[string]string      `json:"rationale"`
	MVPTimelineWeeks int                    `json:"mvp_timeline_weeks"`
	MVPTimeline      string                 `json:"mvp_timeline"`
	Resources        types.ResourceEstimate `json:"resources"`
	TechStack        []string               `json:"tech_stack"`
	Risks            []string               `json:"risks"`
	narrative
}

// ScoreFeasibility averages the five dimensions into technical_score, rounded
// to one decimal, and gates it against threshold. Iterate and pivot bands sit
// at 80% and 60% of the threshold.
func ScoreFeasibility(scores map[string]float64, threshold float64) (float64, bool, types.Recommendation) {
	var sum float64
	for _, d := range feasibilityDimensions {
		sum += scores[d]
	}
	technical := round1(sum / float64(len(feasibilityDimensions)))

	switch {
	case technical >= threshold:
		return technical, true, types.RecommendAdvance
	case technical >= round1(threshold*feasibilityIterateRatio):
		return technical, false, types.RecommendIterate
	case technical >= round1(threshold*feasibilityPivotRatio):
		return technical, false, types.RecommendPivot
	default:
		return technical, false, types.RecommendDecline
	}
}

// Feasibility is stage 5. It uses the deep provider and a configured
// technical_score threshold.
type Feasibility struct {
	client    Completer
	threshold float64
}

func (*Feasibility) Stage() int                 { return types.StageFeasibility }
func (*Feasibility) Type() types.EvaluationType { return types.EvalFeasibility }
func (*Feasibility) Requires() []int {
	return []int{types.StageProblemValidation, types.StageMarketSizing, types.StageImpactAssessment}
}

func (s *Feasibility) Evaluate(ctx context.Context, idea types.Idea, priors Priors) (*Outcome, error) {
	if s.threshold <= 0 {
		return nil, ErrThresholdUnset
	}

	summary, err := summarizePriors(priors, s.Requires())
	if err != nil {
		return nil, err
	}
	prompt, err := render(feasibilityPrompt, promptData{Idea: idea, Priors: summary})
	if err != nil {
		return nil, err
	}

	var p feasibilityPayload
	comp, err := complete(ctx, s.client, s.Stage(), reasoning.ProviderDeep,
		reasoning.Options{Temperature: 0.7, MaxTokens: 4096},
		feasibilitySystem, prompt, feasibilitySchema, &p)
	if err != nil {
		return nil, err
	}

	technical, passed, rec := ScoreFeasibility(p.Scores, s.threshold)
	result := p.narrative.result(s.Type())
	result.Dimensions = pick(p.Scores, feasibilityDimensions)
	result.CompositeScore = technical
	result.GatePassed = passed
	result.Recommendation = rec
	result.Detail = &types.FeasibilityDetail{
		TechnicalScore:   technical,
		Threshold:        s.threshold,
		MVPTimelineWeeks: p.MVPTimelineWeeks,
		MVPTimeline:      p.MVPTimeline,
		Resources:        p.Resources,
		TechStack:        nonNil(p.TechStack),
		Risks:            p.Risks,
		Rationale:        p.Rationale,
	}

	return &Outcome{
		Result:          result,
		ConfidenceScore: technical,
		RawResponse:     comp.Text,
		ModelUsed:       comp.Model,
	}, nil
}
