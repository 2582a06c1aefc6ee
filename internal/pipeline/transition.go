// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"time"

	"github.com/pdiddy/idea-engine/internal/store"
	"github.com/pdiddy/idea-engine/pkg/types"
)

// transition computes the idea update implied by a stage decision. A pass
// moves the pointer past the stage; a hold parks the idea at the stage.
// Decisions on stages behind the pointer leave the idea alone, so the
// pointer never moves backwards here. ok is false when nothing changes.
func transition(idea types.Idea, stage int, passed bool, rec types.Recommendation, now time.Time) (store.IdeaUpdate, bool) {
	if stage < idea.CurrentStage {
		return store.IdeaUpdate{}, false
	}

	next := stage
	status := types.StatusOnHold
	switch {
	case passed:
		next = stage + 1
		status = types.StatusUnderEvaluation
		if next >= types.StageVoting {
			status = types.StatusReadyForVoting
		}
	case rec == types.RecommendDecline:
		status = types.StatusDeclined
	}

	var upd store.IdeaUpdate
	changed := false
	if next != idea.CurrentStage {
		upd.CurrentStage = &next
		upd.StageEnteredAt = &now
		changed = true
	}
	if status != idea.Status {
		upd.Status = &status
		changed = true
	}
	return upd, changed
}
