// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"fmt"
)

// StageResult is the structured output of one stage run. Detail carries the
// stage-specific payload and always matches Type.
type StageResult struct {
	Type EvaluationType `json:"evaluation_type" yaml:"evaluation_type"`

	// Dimensions holds the per-dimension scores as returned by the provider.
	Dimensions map[string]float64 `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`

	// CompositeScore is recomputed locally from Dimensions; a composite
	// asserted by the provider is never used.
	CompositeScore float64        `json:"composite_score" yaml:"composite_score"`
	GatePassed     bool           `json:"gate_passed" yaml:"gate_passed"`
	Recommendation Recommendation `json:"recommendation" yaml:"recommendation"`

	Summary          string   `json:"summary,omitempty" yaml:"summary,omitempty"`
	Strengths        []string `json:"strengths" yaml:"strengths"`
	Concerns         []string `json:"concerns" yaml:"concerns"`
	Recommendations  []string `json:"recommendations" yaml:"recommendations"`
	PivotSuggestions []string `json:"pivot_suggestions" yaml:"pivot_suggestions"`

	Detail StageDetail `json:"detail" yaml:"detail"`
}

// StageDetail is implemented by each stage's typed payload.
type StageDetail interface {
	EvaluationType() EvaluationType
}

// UnmarshalJSON decodes Detail into the concrete type selected by Type.
func (r *StageResult) UnmarshalJSON(data []byte) error {
	type plain StageResult
	var aux struct {
		plain
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = StageResult(aux.plain)

	detail, err := newDetail(r.Type)
	if err != nil {
		return err
	}
	if len(aux.Detail) > 0 && string(aux.Detail) != "null" {
		if err := json.Unmarshal(aux.Detail, detail); err != nil {
			return fmt.Errorf("decoding %s detail: %w", r.Type, err)
		}
	}
	r.Detail = detail
	return nil
}

func newDetail(t EvaluationType) (StageDetail, error) {
	switch t {
	case EvalProblemValidation:
		return &ProblemValidationDetail{}, nil
	case EvalMarketSizing:
		return &MarketSizingDetail{}, nil
	case EvalImpactAssessment:
		return &ImpactDetail{}, nil
	case EvalFeasibility:
		return &FeasibilityDetail{}, nil
	case EvalPitchDeck:
		return &PitchDeckDetail{}, nil
	}
	return nil, fmt.Errorf("unknown evaluation type %q", t)
}

// --- problem validation ---

// ProblemValidationDetail is the stage 2 payload.
type ProblemValidationDetail struct {
	Rationale map[string]string `json:"rationale,omitempty" yaml:"rationale,omitempty"`

	// ProviderComposite is the total the provider claimed, kept for audit.
	ProviderComposite float64 `json:"provider_composite,omitempty" yaml:"provider_composite,omitempty"`
}

func (*ProblemValidationDetail) EvaluationType() EvaluationType { return EvalProblemValidation }

// --- market sizing ---

// MarketTrend is the direction of a market.
type MarketTrend string

const (
	TrendGrowing   MarketTrend = "growing"
	TrendStable    MarketTrend = "stable"
	TrendDeclining MarketTrend = "declining"
)

// ConfidenceTier grades how reliable a market estimate is.
type ConfidenceTier string

const (
	ConfidenceHigh   ConfidenceTier = "high"
	ConfidenceMedium ConfidenceTier = "medium"
	ConfidenceLow    ConfidenceTier = "low"
)

// Score maps a tier onto [0,1].
func (c ConfidenceTier) Score() float64 {
	switch c {
	case ConfidenceHigh:
		return 0.9
	case ConfidenceMedium:
		return 0.6
	case ConfidenceLow:
		return 0.3
	}
	return 0
}

// MarketEstimate is one of the TAM / SAM / SOM figures.
type MarketEstimate struct {
	Value      float64        `json:"value" yaml:"value"`
	Currency   string         `json:"currency" yaml:"currency"`
	Unit       string         `json:"unit" yaml:"unit"`
	Year       int            `json:"year" yaml:"year"`
	Confidence ConfidenceTier `json:"confidence" yaml:"confidence"`
	Rationale  string         `json:"rationale,omitempty" yaml:"rationale,omitempty"`
}

// Competitor is a company already serving the market.
type Competitor struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	URL         string `json:"url,omitempty" yaml:"url,omitempty"`
}

// MarketSizingDetail is the stage 3 payload.
type MarketSizingDetail struct {
	TAM MarketEstimate `json:"tam" yaml:"tam"`
	SAM MarketEstimate `json:"sam" yaml:"sam"`
	SOM MarketEstimate `json:"som" yaml:"som"`

	// TAMMillions is TAM.Value normalized to millions of TAM.Currency.
	TAMMillions float64 `json:"tam_millions" yaml:"tam_millions"`

	CAGR        float64      `json:"cagr" yaml:"cagr"`
	Trend       MarketTrend  `json:"trend" yaml:"trend"`
	Competitors []Competitor `json:"competitors" yaml:"competitors"`
	Drivers     []string     `json:"drivers,omitempty" yaml:"drivers,omitempty"`
	Barriers    []string     `json:"barriers,omitempty" yaml:"barriers,omitempty"`
	Citations   []string     `json:"citations,omitempty" yaml:"citations,omitempty"`
}

func (*MarketSizingDetail) EvaluationType() EvaluationType { return EvalMarketSizing }

// --- impact assessment ---

// ImpactDetail is the stage 4 payload.
type ImpactDetail struct {
	// SpikeDimensions lists the dimensions scoring 8 or more.
	SpikeDimensions   []string          `json:"spike_dimensions" yaml:"spike_dimensions"`
	Rationale         map[string]string `json:"rationale,omitempty" yaml:"rationale,omitempty"`
	ProviderComposite float64           `json:"provider_composite,omitempty" yaml:"provider_composite,omitempty"`
}

func (*ImpactDetail) EvaluationType() EvaluationType { return EvalImpactAssessment }

// --- feasibility ---

// ResourceEstimate sizes the team and budget for an MVP.
type ResourceEstimate struct {
	TeamSize  int      `json:"team_size" yaml:"team_size"`
	Roles     []string `json:"roles,omitempty" yaml:"roles,omitempty"`
	BudgetUSD float64  `json:"budget_usd" yaml:"budget_usd"`
	Notes     string   `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// FeasibilityDetail is the stage 5 payload.
type FeasibilityDetail struct {
	TechnicalScore   float64           `json:"technical_score" yaml:"technical_score"`
	Threshold        float64           `json:"threshold" yaml:"threshold"`
	MVPTimelineWeeks int               `json:"mvp_timeline_weeks" yaml:"mvp_timeline_weeks"`
	MVPTimeline      string            `json:"mvp_timeline,omitempty" yaml:"mvp_timeline,omitempty"`
	Resources        ResourceEstimate  `json:"resources" yaml:"resources"`
	TechStack        []string          `json:"tech_stack" yaml:"tech_stack"`
	Risks            []string          `json:"risks,omitempty" yaml:"risks,omitempty"`
	Rationale        map[string]string `json:"rationale,omitempty" yaml:"rationale,omitempty"`
}

func (*FeasibilityDetail) EvaluationType() EvaluationType { return EvalFeasibility }

// --- pitch deck ---

// Slide is one slide of a generated pitch deck.
type Slide struct {
	Number           int      `json:"number" yaml:"number"`
	Title            string   `json:"title" yaml:"title"`
	Content          []string `json:"content" yaml:"content"`
	Notes            string   `json:"notes" yaml:"notes"`
	VisualSuggestion string   `json:"visual_suggestion" yaml:"visual_suggestion"`
}

// PitchDeckDetail is the stage 6 payload.
type PitchDeckDetail struct {
	Slides           []Slide  `json:"slides" yaml:"slides"`
	ExecutiveSummary string   `json:"executive_summary" yaml:"executive_summary"`
	OneLinePitch     string   `json:"one_line_pitch" yaml:"one_line_pitch"`
	ElevatorPitch    string   `json:"elevator_pitch" yaml:"elevator_pitch"`
	KeyMetrics       []string `json:"key_metrics" yaml:"key_metrics"`
	CallToAction     string   `json:"call_to_action" yaml:"call_to_action"`
}

func (*PitchDeckDetail) EvaluationType() EvaluationType { return EvalPitchDeck }
