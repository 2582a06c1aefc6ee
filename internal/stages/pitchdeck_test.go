// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package stages

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/idea-engine/internal/reasoning"
	"github.com/pdiddy/idea-engine/pkg/types"
)

func goodSlide(n int) types.Slide {
	return types.Slide{
		Number:           n,
		Title:            fmt.Sprintf("Slide %d", n),
		Content:          []string{"point one", "point two"},
		Notes:            "say this",
		VisualSuggestion: "a chart",
	}
}

func deckReply(t *testing.T, slides []types.Slide) string {
	t.Helper()
	deck := map[string]any{
		"slides":            slides,
		"executive_summary": "We triage intake for rural clinics.",
		"one_line_pitch":    "Triage in seconds.",
		"elevator_pitch":    "Nurses spend hours on intake...",
		"key_metrics":       []string{"minutes saved per patient"},
		"call_to_action":    "Fund a three-clinic pilot.",
		"summary":           "Deck ready.",
	}
	b, err := json.Marshal(deck)
	require.NoError(t, err)
	return "```json\n" + string(b) + "\n```"
}

func slides(n int) []types.Slide {
	out := make([]types.Slide, n)
	for i := range out {
		out[i] = goodSlide(i + 1)
	}
	return out
}

func TestWellFormed(t *testing.T) {
	assert.True(t, WellFormed(goodSlide(1)))

	broken := []func(*types.Slide){
		func(s *types.Slide) { s.Number = 0 },
		func(s *types.Slide) { s.Title = " " },
		func(s *types.Slide) { s.Content = nil },
		func(s *types.Slide) { s.Content = []string{"", "  "} },
		func(s *types.Slide) { s.Notes = "" },
		func(s *types.Slide) { s.VisualSuggestion = "" },
	}
	for i, mutate := range broken {
		s := goodSlide(1)
		mutate(&s)
		assert.False(t, WellFormed(s), "case %d", i)
	}
}

func TestPitchDeckEvaluate(t *testing.T) {
	fc := &fakeCompleter{text: deckReply(t, slides(10)), model: "deep-1"}
	out, err := (&PitchDeck{client: fc}).Evaluate(context.Background(), testIdea(), passedPriors(t, 2, 3, 4, 5))
	require.NoError(t, err)

	require.Len(t, fc.calls, 1)
	assert.Equal(t, reasoning.ProviderDeep, fc.calls[0].provider)
	assert.Contains(t, fc.calls[0].user, "feasibility")

	r := out.Result
	assert.True(t, r.GatePassed)
	assert.Equal(t, types.RecommendAdvance, r.Recommendation)
	assert.Equal(t, 1.0, out.ConfidenceScore)

	deck, ok := r.Detail.(*types.PitchDeckDetail)
	require.True(t, ok)
	assert.Len(t, deck.Slides, 10)
	assert.Equal(t, "Triage in seconds.", deck.OneLinePitch)
	assert.Equal(t, "Fund a three-clinic pilot.", deck.CallToAction)
	assert.Equal(t, []string{"minutes saved per patient"}, deck.KeyMetrics)
}

func TestPitchDeckEvaluateDropsIncompleteSlides(t *testing.T) {
	s := slides(9)
	s[4].Notes = ""
	out, err := (&PitchDeck{client: &fakeCompleter{text: deckReply(t, s)}}).Evaluate(context.Background(), testIdea(), nil)
	require.NoError(t, err)

	deck := out.Result.Detail.(*types.PitchDeckDetail)
	assert.Len(t, deck.Slides, 8)
}

func TestPitchDeckEvaluateShortDeck(t *testing.T) {
	tests := []struct {
		name   string
		slides []types.Slide
	}{
		{"seven slides", slides(7)},
		{"eight slides one incomplete", func() []types.Slide {
			s := slides(8)
			s[0].VisualSuggestion = ""
			return s
		}()},
		{"no slides", []types.Slide{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := deckReply(t, tt.slides)
			_, err := (&PitchDeck{client: &fakeCompleter{text: reply}}).Evaluate(context.Background(), testIdea(), nil)

			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, types.StagePitchDeck, ve.Stage)
			assert.Contains(t, ve.Problems[0], "need at least 8")
			assert.Equal(t, reply, ve.Raw)
		})
	}
}
