// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/idea-engine/pkg/types"
)

func TestTransition(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		current    int
		status     types.IdeaStatus
		stage      int
		passed     bool
		rec        types.Recommendation
		wantChange bool
		wantStage  int
		wantStatus types.IdeaStatus
	}{
		{"submitted idea passes stage 2", 1, types.StatusActive, 2, true, types.RecommendAdvance, true, 3, types.StatusUnderEvaluation},
		{"submitted idea held at stage 2", 1, types.StatusActive, 2, false, types.RecommendPivot, true, 2, types.StatusOnHold},
		{"iterate holds", 3, types.StatusUnderEvaluation, 3, false, types.RecommendIterate, true, 3, types.StatusOnHold},
		{"decline declines", 4, types.StatusUnderEvaluation, 4, false, types.RecommendDecline, true, 4, types.StatusDeclined},
		{"held idea passes on retry", 3, types.StatusOnHold, 3, true, types.RecommendAdvance, true, 4, types.StatusUnderEvaluation},
		{"pitch deck reaches voting", 6, types.StatusUnderEvaluation, 6, true, types.RecommendAdvance, true, 7, types.StatusReadyForVoting},
		{"earlier stage pass ignored", 5, types.StatusUnderEvaluation, 2, true, types.RecommendAdvance, false, 5, types.StatusUnderEvaluation},
		{"earlier stage hold ignored", 5, types.StatusUnderEvaluation, 3, false, types.RecommendDecline, false, 5, types.StatusUnderEvaluation},
		{"voting idea keeps status", 7, types.StatusReadyForVoting, 6, true, types.RecommendAdvance, false, 7, types.StatusReadyForVoting},
		{"repeat hold is a no-op", 2, types.StatusOnHold, 2, false, types.RecommendPivot, false, 2, types.StatusOnHold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idea := types.Idea{CurrentStage: tt.current, Status: tt.status}
			upd, changed := transition(idea, tt.stage, tt.passed, tt.rec, now)
			assert.Equal(t, tt.wantChange, changed)

			stage, status := idea.CurrentStage, idea.Status
			if upd.CurrentStage != nil {
				stage = *upd.CurrentStage
				require.NotNil(t, upd.StageEnteredAt)
				assert.Equal(t, now, *upd.StageEnteredAt)
			} else {
				assert.Nil(t, upd.StageEnteredAt)
			}
			if upd.Status != nil {
				status = *upd.Status
			}
			assert.Equal(t, tt.wantStage, stage)
			assert.Equal(t, tt.wantStatus, status)
			assert.GreaterOrEqual(t, stage, tt.current)
		})
	}
}
