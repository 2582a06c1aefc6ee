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

// MinSlides is the smallest usable pitch deck.
const MinSlides = 8

const pitchDeckSystem = `You are a startup pitch coach who turns validated ideas into investor-ready decks. Write crisp slide copy grounded in the evaluation results provided.`

var pitchDeckPrompt = newPrompt("pitch-deck", `Write a pitch deck for the following idea.

{{template "idea" .}}
Evaluation results so far:
{{.Priors}}
Return a JSON object with:
- "slides": an array of at least 8 slides, each with "number" (starting at 1), "title", "content" (array of bullet strings), "notes" (presenter notes) and "visual_suggestion"
- "executive_summary": one paragraph
- "one_line_pitch": a single sentence
- "elevator_pitch": about 30 seconds of spoken text
- "key_metrics": array of the metrics that prove traction
- "call_to_action": what you ask of the audience
`+narrativeInstructions)

var pitchDeckSchema = parse.MustCompileSchema("pitch-deck", objectSchema(
	[]string{"slides", "executive_summary", "one_line_pitch", "elevator_pitch", "call_to_action"},
	map[string]any{
		"slides":            map[string]any{"type": "array", "items": map[string]any{"type": "object"}},
		"executive_summary": map[string]any{"type": "string"},
		"one_line_pitch":    map[string]any{"type": "string"},
		"elevator_pitch":    map[string]any{"type": "string"},
		"key_metrics":       stringArray,
		"call_to_action":    map[string]any{"type": "string"},
	},
))

type pitchDeckPayload struct {
	types.PitchDeckDetail
	narrative
}

// WellFormed reports whether a slide has a number, title, bullet content,
// presenter notes and a visual suggestion.
func WellFormed(s types.Slide) bool {
	if s.Number <= 0 || strings.TrimSpace(s.Title) == "" ||
		strings.TrimSpace(s.Notes) == "" || strings.TrimSpace(s.VisualSuggestion) == "" {
		return false
	}
	for _, c := range s.Content {
		if strings.TrimSpace(c) != "" {
			return true
		}
	}
	return false
}

// ValidateDeck keeps the well-formed slides of deck and reports problems
// when fewer than MinSlides remain.
func ValidateDeck(deck types.PitchDeckDetail) ([]types.Slide, []string) {
	var good []types.Slide
	var problems []string
	for i, s := range deck.Slides {
		if WellFormed(s) {
			good = append(good, s)
			continue
		}
		problems = append(problems, fmt.Sprintf("/slides/%d: incomplete slide %q", i, s.Title))
	}
	if len(good) < MinSlides {
		return good, append([]string{fmt.Sprintf("/slides: %d well-formed slides, need at least %d", len(good), MinSlides)}, problems...)
	}
	return good, nil
}

// PitchDeck is stage 6. It has no qualitative gate: a structurally valid
// deck always advances the idea to voting.
type PitchDeck struct {
	client Completer
}

func (*PitchDeck) Stage() int                 { return types.StagePitchDeck }
func (*PitchDeck) Type() types.EvaluationType { return types.EvalPitchDeck }
func (*PitchDeck) Requires() []int {
	return []int{types.StageProblemValidation, types.StageMarketSizing, types.StageImpactAssessment, types.StageFeasibility}
}

func (s *PitchDeck) Evaluate(ctx context.Context, idea types.Idea, priors Priors) (*Outcome, error) {
	summary, err := summarizePriors(priors, s.Requires())
	if err != nil {
		return nil, err
	}
	prompt, err := render(pitchDeckPrompt, promptData{Idea: idea, Priors: summary})
	if err != nil {
		return nil, err
	}

	var p pitchDeckPayload
	comp, err := complete(ctx, s.client, s.Stage(), reasoning.ProviderDeep,
		reasoning.Options{Temperature: 0.7, MaxTokens: 8192},
		pitchDeckSystem, prompt, pitchDeckSchema, &p)
	if err != nil {
		return nil, err
	}

	slides, problems := ValidateDeck(p.PitchDeckDetail)
	if len(problems) > 0 {
		return nil, &ValidationError{Stage: s.Stage(), Problems: problems, Raw: comp.Text}
	}

	deck := p.PitchDeckDetail
	deck.Slides = slides
	deck.KeyMetrics = nonNil(deck.KeyMetrics)

	result := p.narrative.result(s.Type())
	result.CompositeScore = float64(len(slides))
	result.GatePassed = true
	result.Recommendation = types.RecommendAdvance
	result.Detail = &deck

	return &Outcome{
		Result:          result,
		ConfidenceScore: 1.0,
		RawResponse:     comp.Text,
		ModelUsed:       comp.Model,
	}, nil
}
