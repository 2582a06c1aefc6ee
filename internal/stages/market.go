// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package stages

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/idea-engine/internal/parse"
	"github.com/pdiddy/idea-engine/internal/reasoning"
	"github.com/pdiddy/idea-engine/pkg/types"
)

// Market sizing thresholds on TAM, in millions of the reported currency.
const (
	marketPassTAM        = 100
	marketIterateTAM     = 50
	marketPivotTAM       = 20
	marketMinCompetitors = 3
)

const marketSystem = `You are a market research analyst. Use current web sources, cite them, and prefer conservative, defensible figures.`

var marketPrompt = newPrompt("market-sizing", `Size the market for the following idea.

{{template "idea" .}}
{{- if .Priors}}
Earlier evaluation results:
{{.Priors}}
{{end}}
Return a JSON object with:
- "tam", "sam", "som": each an object with "value" (number), "currency" (ISO code), "unit" ("thousands", "millions", "billions" or "trillions"), "year" (integer), "confidence" ("high", "medium" or "low") and "rationale"
- "cagr": compound annual growth rate in percent
- "trend": "growing", "stable" or "declining"
- "competitors": array of objects with "name", "description" and "url"
- "drivers" and "barriers": arrays of short strings
- "citations": array of source URLs
`+narrativeInstructions)

var estimateSchema = map[string]any{
	"type":     "object",
	"required": []any{"value", "unit"},
	"properties": map[string]any{
		"value":      map[string]any{"type": "number", "minimum": 0},
		"currency":   map[string]any{"type": "string"},
		"unit":       map[string]any{"type": "string"},
		"year":       map[string]any{"type": "integer"},
		"confidence": map[string]any{"enum": []any{"high", "medium", "low"}},
		"rationale":  map[string]any{"type": "string"},
	},
}

var marketSchema = parse.MustCompileSchema("market-sizing", objectSchema(
	[]string{"tam", "trend", "competitors"},
	map[string]any{
		"tam":   estimateSchema,
		"sam":   estimateSchema,
		"som":   estimateSchema,
		"cagr":  map[string]any{"type": "number"},
		"trend": map[string]any{"enum": []any{"growing", "stable", "declining"}},
		"competitors": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":       "object",
				"required":   []any{"name"},
				"properties": map[string]any{"name": map[string]any{"type": "string", "minLength": 1}},
			},
		},
		"drivers":   stringArray,
		"barriers":  stringArray,
		"citations": stringArray,
	},
))

type marketPayload struct {
	TAM         types.MarketEstimate `json:"tam"`
	SAM         types.MarketEstimate `json:"sam"`
	SOM         types.MarketEstimate `json:"som"`
	CAGR        float64              `json:"cagr"`
	Trend       types.MarketTrend    `json:"trend"`
	Competitors []types.Competitor   `json:"competitors"`
	Drivers     []string             `json:"drivers"`
	Barriers    []string             `json:"barriers"`
	Citations   []string             `json:"citations"`
	narrative
}

// ToMillions normalizes a market value to millions. An empty unit is read as
// millions.
func ToMillions(value float64, unit string) (float64, error) {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "", "m", "mm", "million", "millions":
		return value, nil
	case "b", "bn", "billion", "billions":
		return value * 1e3, nil
	case "t", "tn", "trillion", "trillions":
		return value * 1e6, nil
	case "k", "thousand", "thousands":
		return value / 1e3, nil
	case "unit", "units", "one", "ones":
		return value / 1e6, nil
	}
	return 0, fmt.Errorf("unknown market unit %q", unit)
}

// GateMarketSizing applies the market sizing gate: TAM of at least 100
// million, a trend that is not declining and at least three competitors.
// The conditions are both necessary and sufficient for a pass.
func GateMarketSizing(tamMillions float64, trend types.MarketTrend, competitors int) (bool, types.Recommendation) {
	declining := trend == types.TrendDeclining
	switch {
	case tamMillions >= marketPassTAM && !declining && competitors >= marketMinCompetitors:
		return true, types.RecommendAdvance
	case tamMillions >= marketIterateTAM && !declining:
		return false, types.RecommendIterate
	case tamMillions >= marketPivotTAM:
		return false, types.RecommendPivot
	default:
		return false, types.RecommendDecline
	}
}

// MarketSizing is stage 3. It uses the web-research provider at a low
// temperature and keeps the provider's citations as the evaluation sources.
type MarketSizing struct {
	client Completer
}

func (*MarketSizing) Stage() int                 { return types.StageMarketSizing }
func (*MarketSizing) Type() types.EvaluationType { return types.EvalMarketSizing }
func (*MarketSizing) Requires() []int            { return []int{types.StageProblemValidation} }

func (s *MarketSizing) Evaluate(ctx context.Context, idea types.Idea, priors Priors) (*Outcome, error) {
	summary, err := summarizePriors(priors, s.Requires())
	if err != nil {
		return nil, err
	}
	prompt, err := render(marketPrompt, promptData{Idea: idea, Priors: summary})
	if err != nil {
		return nil, err
	}

	var p marketPayload
	comp, err := complete(ctx, s.client, s.Stage(), reasoning.ProviderResearch,
		reasoning.Options{Temperature: 0.2, MaxTokens: 4096},
		marketSystem, prompt, marketSchema, &p)
	if err != nil {
		return nil, err
	}

	tam, err := ToMillions(p.TAM.Value, p.TAM.Unit)
	if err != nil {
		return nil, &ValidationError{Stage: s.Stage(), Problems: []string{"/tam/unit: " + err.Error()}, Raw: comp.Text}
	}

	passed, rec := GateMarketSizing(tam, p.Trend, len(p.Competitors))
	sources := mergeSources(comp.Citations, p.Citations)

	result := p.narrative.result(s.Type())
	result.CompositeScore = tam
	result.GatePassed = passed
	result.Recommendation = rec
	result.Detail = &types.MarketSizingDetail{
		TAM:         p.TAM,
		SAM:         p.SAM,
		SOM:         p.SOM,
		TAMMillions: tam,
		CAGR:        p.CAGR,
		Trend:       p.Trend,
		Competitors: p.Competitors,
		Drivers:     p.Drivers,
		Barriers:    p.Barriers,
		Citations:   sources,
	}

	return &Outcome{
		Result:          result,
		ConfidenceScore: p.TAM.Confidence.Score(),
		RawResponse:     comp.Text,
		ModelUsed:       comp.Model,
		Sources:         sources,
	}, nil
}

// mergeSources concatenates citation lists, dropping blanks and duplicates.
func mergeSources(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, l := range lists {
		for _, s := range l {
			s = strings.TrimSpace(s)
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
