// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr(s string) *string { return &s }

func TestDraftIdea(t *testing.T) {
	idea := IdeaDraft{
		Title:            "  Shift swap  ",
		ProblemStatement: "Nurses cannot trade shifts\n",
		TargetUsers:      "hospital nurses",
	}.Idea()

	assert.Equal(t, "Shift swap", idea.Title)
	assert.Equal(t, "Nurses cannot trade shifts", idea.ProblemStatement)
	assert.Equal(t, StageSubmitted, idea.CurrentStage)
	assert.Equal(t, StatusActive, idea.Status)
	assert.Empty(t, idea.MissingFields())
}

func TestMissingFields(t *testing.T) {
	idea := Idea{Title: " ", ProblemStatement: "p"}
	assert.Equal(t, []string{"title", "target_users"}, idea.MissingFields())
}

func TestIdeaEdit(t *testing.T) {
	base := Idea{Title: "Old", ProblemStatement: "P", TargetUsers: "U", WhyNow: "now"}

	edit := IdeaEdit{Title: ptr("  New  "), WhyNow: ptr("")}
	assert.False(t, edit.IsEmpty())
	assert.True(t, IdeaEdit{}.IsEmpty())

	got := edit.Apply(base)
	assert.Equal(t, "New", got.Title)
	assert.Equal(t, "", got.WhyNow)
	assert.Equal(t, "P", got.ProblemStatement)
	assert.Equal(t, "U", got.TargetUsers)

	trimmed := edit.Trimmed()
	assert.Equal(t, "New", *trimmed.Title)
	assert.Nil(t, trimmed.ProblemStatement)
	assert.Equal(t, "  New  ", *edit.Title, "Trimmed must not modify the receiver")
}

func TestIdeaStatusValid(t *testing.T) {
	for _, s := range []IdeaStatus{StatusActive, StatusUnderEvaluation, StatusReadyForVoting, StatusApproved, StatusDeclined, StatusOnHold} {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, IdeaStatus("archived").Valid())
	assert.False(t, IdeaStatus("").Valid())
}

func TestStageName(t *testing.T) {
	assert.Equal(t, "problem validation", StageName(StageProblemValidation))
	assert.Equal(t, "voting", StageName(StageVoting))
	assert.Equal(t, "unknown", StageName(9))
}
