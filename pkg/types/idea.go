// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the data structures shared across the idea pipeline:
// ideas, evaluations, stage results and configuration.
package types

import (
	"strings"
	"time"
)

// Stage numbers of the idea lifecycle. Stage 1 is submission and stage 7 is
// human voting; the automated pipeline covers stages 2 through 6.
const (
	StageSubmitted         = 1
	StageProblemValidation = 2
	StageMarketSizing      = 3
	StageImpactAssessment  = 4
	StageFeasibility       = 5
	StagePitchDeck         = 6
	StageVoting            = 7
)

// FirstEvaluatedStage and LastEvaluatedStage bound the stages that have an
// automated evaluator.
const (
	FirstEvaluatedStage = StageProblemValidation
	LastEvaluatedStage  = StagePitchDeck
)

// StageName returns a human-readable label for a stage number.
func StageName(stage int) string {
	switch stage {
	case StageSubmitted:
		return "submitted"
	case StageProblemValidation:
		return "problem validation"
	case StageMarketSizing:
		return "market sizing"
	case StageImpactAssessment:
		return "impact assessment"
	case StageFeasibility:
		return "feasibility"
	case StagePitchDeck:
		return "pitch deck"
	case StageVoting:
		return "voting"
	default:
		return "unknown"
	}
}

// IdeaStatus is the workflow status of an idea.
type IdeaStatus string

const (
	StatusActive          IdeaStatus = "active"
	StatusUnderEvaluation IdeaStatus = "under_evaluation"
	StatusReadyForVoting  IdeaStatus = "ready_for_voting"
	StatusApproved        IdeaStatus = "approved"
	StatusDeclined        IdeaStatus = "declined"
	StatusOnHold          IdeaStatus = "on_hold"
)

// Valid reports whether s is a known status.
func (s IdeaStatus) Valid() bool {
	switch s {
	case StatusActive, StatusUnderEvaluation, StatusReadyForVoting,
		StatusApproved, StatusDeclined, StatusOnHold:
		return true
	}
	return false
}

// Idea is a submitted business concept moving through the evaluation stages.
type Idea struct {
	ID               string `json:"id" yaml:"id"`
	Title            string `json:"title" yaml:"title"`
	ProblemStatement string `json:"problem_statement" yaml:"problem_statement"`
	ProposedSolution string `json:"proposed_solution,omitempty" yaml:"proposed_solution,omitempty"`
	TargetUsers      string `json:"target_users" yaml:"target_users"`
	WhyNow           string `json:"why_now,omitempty" yaml:"why_now,omitempty"`
	IndustryCategory string `json:"industry_category,omitempty" yaml:"industry_category,omitempty"`

	// CurrentStage starts at 1 and only increases, except through an
	// explicit reset for re-evaluation.
	CurrentStage   int        `json:"current_stage" yaml:"current_stage"`
	Status         IdeaStatus `json:"status" yaml:"status"`
	StageEnteredAt time.Time  `json:"stage_entered_at" yaml:"stage_entered_at"`

	// Version is bumped on every update and used for optimistic
	// concurrency checks.
	Version int64 `json:"version" yaml:"version"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// MissingFields lists the required submitter fields that are blank.
func (i Idea) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(i.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(i.ProblemStatement) == "" {
		missing = append(missing, "problem_statement")
	}
	if strings.TrimSpace(i.TargetUsers) == "" {
		missing = append(missing, "target_users")
	}
	return missing
}

// IdeaDraft holds the submitter-provided fields of a new idea.
type IdeaDraft struct {
	Title            string `json:"title" yaml:"title"`
	ProblemStatement string `json:"problem_statement" yaml:"problem_statement"`
	ProposedSolution string `json:"proposed_solution,omitempty" yaml:"proposed_solution,omitempty"`
	TargetUsers      string `json:"target_users" yaml:"target_users"`
	WhyNow           string `json:"why_now,omitempty" yaml:"why_now,omitempty"`
	IndustryCategory string `json:"industry_category,omitempty" yaml:"industry_category,omitempty"`
}

// IdeaEdit is a partial edit of the submitter-provided fields. Nil fields
// are left unchanged.
type IdeaEdit struct {
	Title            *string
	ProblemStatement *string
	ProposedSolution *string
	TargetUsers      *string
	WhyNow           *string
	IndustryCategory *string
}

// Idea converts the draft into a new idea at stage 1.
func (d IdeaDraft) Idea() Idea {
	return Idea{
		Title:            strings.TrimSpace(d.Title),
		ProblemStatement: strings.TrimSpace(d.ProblemStatement),
		ProposedSolution: strings.TrimSpace(d.ProposedSolution),
		TargetUsers:      strings.TrimSpace(d.TargetUsers),
		WhyNow:           strings.TrimSpace(d.WhyNow),
		IndustryCategory: strings.TrimSpace(d.IndustryCategory),
		CurrentStage:     StageSubmitted,
		Status:           StatusActive,
	}
}

// Trimmed returns a copy of the edit with surrounding whitespace removed
// from every set field.
func (e IdeaEdit) Trimmed() IdeaEdit {
	trim := func(v *string) *string {
		if v == nil {
			return nil
		}
		t := strings.TrimSpace(*v)
		return &t
	}
	return IdeaEdit{
		Title:            trim(e.Title),
		ProblemStatement: trim(e.ProblemStatement),
		ProposedSolution: trim(e.ProposedSolution),
		TargetUsers:      trim(e.TargetUsers),
		WhyNow:           trim(e.WhyNow),
		IndustryCategory: trim(e.IndustryCategory),
	}
}

// Apply returns idea with the edit's non-nil fields set.
func (e IdeaEdit) Apply(idea Idea) Idea {
	e = e.Trimmed()
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&idea.Title, e.Title)
	set(&idea.ProblemStatement, e.ProblemStatement)
	set(&idea.ProposedSolution, e.ProposedSolution)
	set(&idea.TargetUsers, e.TargetUsers)
	set(&idea.WhyNow, e.WhyNow)
	set(&idea.IndustryCategory, e.IndustryCategory)
	return idea
}

// IsEmpty reports whether the edit changes nothing.
func (e IdeaEdit) IsEmpty() bool {
	return e.Title == nil && e.ProblemStatement == nil && e.ProposedSolution == nil &&
		e.TargetUsers == nil && e.WhyNow == nil && e.IndustryCategory == nil
}

// ActivityKind classifies an activity log entry.
type ActivityKind string

const (
	ActivityIdeaSubmitted     ActivityKind = "idea_submitted"
	ActivityIdeaEdited        ActivityKind = "idea_edited"
	ActivityStagePassed       ActivityKind = "stage_passed"
	ActivityStageHeld         ActivityKind = "stage_held"
	ActivityStageFailed       ActivityKind = "stage_failed"
	ActivityIdeaReset         ActivityKind = "idea_reset"
	ActivityAdvanceReconciled ActivityKind = "advance_reconciled"
)

// Activity is a secondary audit record attached to an idea. Losing one is
// never fatal to the operation that produced it.
type Activity struct {
	ID        int64        `json:"id" yaml:"id"`
	IdeaID    string       `json:"idea_id" yaml:"idea_id"`
	Kind      ActivityKind `json:"kind" yaml:"kind"`
	Stage     int          `json:"stage,omitempty" yaml:"stage,omitempty"`
	Message   string       `json:"message" yaml:"message"`
	Detail    string       `json:"detail,omitempty" yaml:"detail,omitempty"`
	CreatedAt time.Time    `json:"created_at" yaml:"created_at"`
}
