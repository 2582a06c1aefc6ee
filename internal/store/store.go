// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists ideas, their stage evaluations and the activity
// log. SQLite is the default backend; PostgreSQL is available for shared
// deployments.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/idea-engine/pkg/types"
)

var (
	// ErrNotFound is returned when an idea does not exist.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict is returned by UpdateIdea when the idea changed
	// since it was read.
	ErrVersionConflict = errors.New("version conflict")
)

// StoreError wraps a failure of the underlying database.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }

func wrap(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrVersionConflict) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// ListOptions filters ListIdeas. Zero values match everything.
type ListOptions struct {
	Status types.IdeaStatus
	Stage  int
	Limit  int
}

// EvaluationFilter filters ListEvaluations. Stage 0 matches every stage.
type EvaluationFilter struct {
	Stage int
}

// IdeaUpdate is a partial update of an idea row. Nil fields are unchanged.
type IdeaUpdate struct {
	Title            *string
	ProblemStatement *string
	ProposedSolution *string
	TargetUsers      *string
	WhyNow           *string
	IndustryCategory *string
	CurrentStage     *int
	Status           *types.IdeaStatus
	StageEnteredAt   *time.Time
}

// FromEdit converts a submitter edit into a store update.
func FromEdit(e types.IdeaEdit) IdeaUpdate {
	return IdeaUpdate{
		Title:            e.Title,
		ProblemStatement: e.ProblemStatement,
		ProposedSolution: e.ProposedSolution,
		TargetUsers:      e.TargetUsers,
		WhyNow:           e.WhyNow,
		IndustryCategory: e.IndustryCategory,
	}
}

// column is one assignment of an UPDATE statement.
type column struct {
	name  string
	value any
}

func (u IdeaUpdate) columns() []column {
	var cols []column
	add := func(name string, v any) { cols = append(cols, column{name, v}) }
	if u.Title != nil {
		add("title", *u.Title)
	}
	if u.ProblemStatement != nil {
		add("problem_statement", *u.ProblemStatement)
	}
	if u.ProposedSolution != nil {
		add("proposed_solution", *u.ProposedSolution)
	}
	if u.TargetUsers != nil {
		add("target_users", *u.TargetUsers)
	}
	if u.WhyNow != nil {
		add("why_now", *u.WhyNow)
	}
	if u.IndustryCategory != nil {
		add("industry_category", *u.IndustryCategory)
	}
	if u.CurrentStage != nil {
		add("current_stage", *u.CurrentStage)
	}
	if u.Status != nil {
		add("status", string(*u.Status))
	}
	if u.StageEnteredAt != nil {
		add("stage_entered_at", *u.StageEnteredAt)
	}
	return cols
}

// Store is the persistence boundary of the pipeline.
type Store interface {
	CreateIdea(ctx context.Context, idea types.Idea) (types.Idea, error)
	GetIdea(ctx context.Context, id string) (types.Idea, error)
	ListIdeas(ctx context.Context, opts ListOptions) ([]types.Idea, error)

	// UpdateIdea applies upd only if the idea is still at expectedVersion,
	// and returns the updated idea.
	UpdateIdea(ctx context.Context, id string, expectedVersion int64, upd IdeaUpdate) (types.Idea, error)

	InsertEvaluation(ctx context.Context, ev types.Evaluation) (types.Evaluation, error)

	// ListEvaluations returns evaluations ordered by stage, then creation.
	ListEvaluations(ctx context.Context, ideaID string, filter EvaluationFilter) ([]types.Evaluation, error)
	DeleteEvaluations(ctx context.Context, ideaID string, stage int) (int64, error)

	LogActivity(ctx context.Context, a types.Activity) error
	// ListActivity returns the newest entries first.
	ListActivity(ctx context.Context, ideaID string, limit int) ([]types.Activity, error)

	Close() error
}

var (
	_ Store = (*SQLite)(nil)
	_ Store = (*Postgres)(nil)
)

// Open connects to the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg types.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "", types.DriverSQLite:
		return NewSQLite(cfg.Path)
	case types.DriverPostgres:
		return NewPostgres(ctx, cfg.DSN)
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

// newID returns a time-ordered identifier.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// prepareIdea fills the server-assigned fields of a new idea.
func prepareIdea(idea types.Idea, now time.Time) types.Idea {
	now = normalizeTime(now)
	if idea.ID == "" {
		idea.ID = newID()
	}
	if idea.CurrentStage == 0 {
		idea.CurrentStage = types.StageSubmitted
	}
	if idea.Status == "" {
		idea.Status = types.StatusActive
	}
	if idea.StageEnteredAt.IsZero() {
		idea.StageEnteredAt = now
	}
	idea.Version = 1
	idea.CreatedAt = now
	idea.UpdatedAt = now
	return idea
}

func prepareEvaluation(ev types.Evaluation, now time.Time) types.Evaluation {
	now = normalizeTime(now)
	if ev.ID == "" {
		ev.ID = newID()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = now
	}
	if len(ev.ResultData) == 0 {
		ev.ResultData = []byte("{}")
	}
	return ev
}

// normalizeTime drops the monotonic reading and sub-microsecond precision,
// which PostgreSQL does not keep.
func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func validateIdea(idea types.Idea) error {
	if missing := idea.MissingFields(); len(missing) > 0 {
		return fmt.Errorf("idea is missing %s", strings.Join(missing, ", "))
	}
	return nil
}
