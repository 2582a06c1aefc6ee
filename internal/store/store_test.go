// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/idea-engine/pkg/types"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "db", "ideas.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore(t *testing.T) {
	runStoreContract(t, newTestSQLite)
}

// TestPostgresStore runs the same contract against PostgreSQL when
// IDEA_ENGINE_TEST_PG_DSN points at a scratch database.
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("IDEA_ENGINE_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("IDEA_ENGINE_TEST_PG_DSN not set")
	}
	runStoreContract(t, func(t *testing.T) Store {
		s, err := NewPostgres(context.Background(), dsn)
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func sampleIdea() types.Idea {
	return types.Idea{
		Title:            "Clinic triage assistant",
		ProblemStatement: "Manual intake triage wastes nurse time.",
		TargetUsers:      "Rural clinic nurses",
		IndustryCategory: "healthcare",
	}
}

func runStoreContract(t *testing.T, open func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("create and get idea", func(t *testing.T) {
		s := open(t)
		created, err := s.CreateIdea(ctx, sampleIdea())
		require.NoError(t, err)

		assert.NotEmpty(t, created.ID)
		assert.Equal(t, types.StageSubmitted, created.CurrentStage)
		assert.Equal(t, types.StatusActive, created.Status)
		assert.Equal(t, int64(1), created.Version)
		assert.False(t, created.StageEnteredAt.IsZero())

		got, err := s.GetIdea(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created, got)
	})

	t.Run("create rejects missing fields", func(t *testing.T) {
		s := open(t)
		_, err := s.CreateIdea(ctx, types.Idea{Title: "only a title"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "problem_statement")
		assert.Contains(t, err.Error(), "target_users")
	})

	t.Run("get missing idea", func(t *testing.T) {
		s := open(t)
		_, err := s.GetIdea(ctx, "nope")
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("update with version check", func(t *testing.T) {
		s := open(t)
		idea, err := s.CreateIdea(ctx, sampleIdea())
		require.NoError(t, err)

		stage := types.StageMarketSizing
		status := types.StatusUnderEvaluation
		entered := time.Now().Add(time.Minute)
		updated, err := s.UpdateIdea(ctx, idea.ID, idea.Version, IdeaUpdate{
			CurrentStage:   &stage,
			Status:         &status,
			StageEnteredAt: &entered,
		})
		require.NoError(t, err)
		assert.Equal(t, stage, updated.CurrentStage)
		assert.Equal(t, status, updated.Status)
		assert.Equal(t, idea.Version+1, updated.Version)
		assert.WithinDuration(t, entered, updated.StageEnteredAt, time.Millisecond)
		assert.Equal(t, idea.Title, updated.Title, "untouched fields are kept")

		_, err = s.UpdateIdea(ctx, idea.ID, idea.Version, IdeaUpdate{CurrentStage: &stage})
		assert.True(t, errors.Is(err, ErrVersionConflict))

		_, err = s.UpdateIdea(ctx, "nope", 1, IdeaUpdate{CurrentStage: &stage})
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("list ideas filters", func(t *testing.T) {
		s := open(t)
		a, err := s.CreateIdea(ctx, sampleIdea())
		require.NoError(t, err)
		_, err = s.CreateIdea(ctx, sampleIdea())
		require.NoError(t, err)

		ready := types.StatusReadyForVoting
		voting := types.StageVoting
		_, err = s.UpdateIdea(ctx, a.ID, a.Version, IdeaUpdate{Status: &ready, CurrentStage: &voting})
		require.NoError(t, err)

		all, err := s.ListIdeas(ctx, ListOptions{})
		require.NoError(t, err)
		assert.Len(t, all, 2)

		byStatus, err := s.ListIdeas(ctx, ListOptions{Status: types.StatusReadyForVoting})
		require.NoError(t, err)
		require.Len(t, byStatus, 1)
		assert.Equal(t, a.ID, byStatus[0].ID)

		byStage, err := s.ListIdeas(ctx, ListOptions{Stage: types.StageSubmitted})
		require.NoError(t, err)
		assert.Len(t, byStage, 1)

		limited, err := s.ListIdeas(ctx, ListOptions{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, limited, 1)
	})

	t.Run("evaluations round trip and ordering", func(t *testing.T) {
		s := open(t)
		idea, err := s.CreateIdea(ctx, sampleIdea())
		require.NoError(t, err)

		base := time.Now().UTC()
		insert := func(stage int, at time.Time, rec types.Recommendation) types.Evaluation {
			typ, _ := types.EvaluationTypeForStage(stage)
			ev, err := s.InsertEvaluation(ctx, types.Evaluation{
				IdeaID:          idea.ID,
				StageNumber:     stage,
				Type:            typ,
				ModelUsed:       "m",
				ConfidenceScore: 400,
				PassFail:        types.Pass,
				Recommendation:  rec,
				Strengths:       []string{"a", "b"},
				Sources:         []string{"https://x.example"},
				ResultData:      json.RawMessage(`{"evaluation_type":"` + string(typ) + `"}`),
				RawResponse:     "raw",
				CreatedAt:       at,
			})
			require.NoError(t, err)
			return ev
		}
		insert(3, base, types.RecommendAdvance)
		first := insert(2, base.Add(-time.Hour), types.RecommendIterate)
		second := insert(2, base, types.RecommendAdvance)

		evals, err := s.ListEvaluations(ctx, idea.ID, EvaluationFilter{})
		require.NoError(t, err)
		require.Len(t, evals, 3)
		assert.Equal(t, []int{2, 2, 3}, []int{evals[0].StageNumber, evals[1].StageNumber, evals[2].StageNumber})
		assert.Equal(t, first.ID, evals[0].ID)
		assert.Equal(t, second.ID, evals[1].ID)

		got := evals[1]
		assert.Equal(t, []string{"a", "b"}, got.Strengths)
		assert.Equal(t, []string{}, got.Concerns)
		assert.Equal(t, []string{"https://x.example"}, got.Sources)
		assert.JSONEq(t, `{"evaluation_type":"ai_evaluation"}`, string(got.ResultData))
		assert.Equal(t, "raw", got.RawResponse)
		assert.Equal(t, types.RecommendAdvance, got.Recommendation)

		stage2, err := s.ListEvaluations(ctx, idea.ID, EvaluationFilter{Stage: 2})
		require.NoError(t, err)
		assert.Len(t, stage2, 2)
		assert.Equal(t, second.ID, types.LatestByStage(stage2)[2].ID)

		n, err := s.DeleteEvaluations(ctx, idea.ID, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		evals, err = s.ListEvaluations(ctx, idea.ID, EvaluationFilter{})
		require.NoError(t, err)
		require.Len(t, evals, 1)
		assert.Equal(t, 3, evals[0].StageNumber)
	})

	t.Run("evaluation requires an existing idea", func(t *testing.T) {
		s := open(t)
		_, err := s.InsertEvaluation(ctx, types.Evaluation{IdeaID: "nope", StageNumber: 2, Type: types.EvalProblemValidation, PassFail: types.Fail})
		require.Error(t, err)
		var se *StoreError
		assert.True(t, errors.As(err, &se))
	})

	t.Run("activity newest first", func(t *testing.T) {
		s := open(t)
		for i, kind := range []types.ActivityKind{types.ActivityIdeaSubmitted, types.ActivityStagePassed, types.ActivityStageFailed} {
			require.NoError(t, s.LogActivity(ctx, types.Activity{IdeaID: "idea-1", Kind: kind, Stage: i + 1, Message: string(kind)}))
		}
		require.NoError(t, s.LogActivity(ctx, types.Activity{IdeaID: "other", Kind: types.ActivityIdeaSubmitted}))

		got, err := s.ListActivity(ctx, "idea-1", 0)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, types.ActivityStageFailed, got[0].Kind)
		assert.Equal(t, 3, got[0].Stage)

		got, err = s.ListActivity(ctx, "idea-1", 2)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})
}

func TestOpen(t *testing.T) {
	s, err := Open(context.Background(), types.StoreConfig{Path: filepath.Join(t.TempDir(), "x.db")})
	require.NoError(t, err)
	defer s.Close()
	_, ok := s.(*SQLite)
	assert.True(t, ok)

	_, err = Open(context.Background(), types.StoreConfig{Driver: "mysql"})
	assert.Error(t, err)

	_, err = Open(context.Background(), types.StoreConfig{Driver: types.DriverPostgres})
	assert.Error(t, err)
}

func TestFromEdit(t *testing.T) {
	title := "New title"
	upd := FromEdit(types.IdeaEdit{Title: &title})
	cols := upd.columns()
	require.Len(t, cols, 1)
	assert.Equal(t, "title", cols[0].name)
	assert.Equal(t, "New title", cols[0].value)
}
