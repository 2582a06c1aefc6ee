// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pdiddy/idea-engine/pkg/types"
)

const pgDialTimeout = 10 * time.Second

// Postgres is the PostgreSQL-backed Store.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to dsn and creates the schema if needed.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if dsn == "" {
		return nil, errors.New("postgres store requires store.dsn")
	}
	pc, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing dsn: %w", err)
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "idea-engine"

	dialCtx, cancel := context.WithTimeout(ctx, pgDialTimeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(dialCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := &Postgres{pool: pool}
	if err := s.createSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the connection pool.
func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}

func (s *Postgres) createSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS ideas (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			problem_statement TEXT NOT NULL,
			proposed_solution TEXT NOT NULL DEFAULT '',
			target_users TEXT NOT NULL,
			why_now TEXT NOT NULL DEFAULT '',
			industry_category TEXT NOT NULL DEFAULT '',
			current_stage INTEGER NOT NULL,
			status TEXT NOT NULL,
			stage_entered_at TIMESTAMPTZ NOT NULL,
			version BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ideas_status ON ideas(status)`,
		`CREATE TABLE IF NOT EXISTS evaluations (
			seq BIGSERIAL UNIQUE,
			id TEXT PRIMARY KEY,
			idea_id TEXT NOT NULL REFERENCES ideas(id) ON DELETE CASCADE,
			stage_number INTEGER NOT NULL,
			evaluation_type TEXT NOT NULL,
			model_used TEXT NOT NULL DEFAULT '',
			confidence_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			pass_fail TEXT NOT NULL,
			recommendation TEXT NOT NULL DEFAULT '',
			strengths TEXT[] NOT NULL DEFAULT '{}',
			concerns TEXT[] NOT NULL DEFAULT '{}',
			recommendations TEXT[] NOT NULL DEFAULT '{}',
			pivot_suggestions TEXT[] NOT NULL DEFAULT '{}',
			sources TEXT[] NOT NULL DEFAULT '{}',
			result_data JSONB NOT NULL,
			raw_response TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_evaluations_idea_stage ON evaluations(idea_id, stage_number)`,
		`CREATE TABLE IF NOT EXISTS activity (
			id BIGSERIAL PRIMARY KEY,
			idea_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			stage INTEGER NOT NULL DEFAULT 0,
			message TEXT NOT NULL DEFAULT '',
			detail TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_activity_idea ON activity(idea_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

func pgIdea(row pgx.Row) (types.Idea, error) {
	var idea types.Idea
	var status string
	err := row.Scan(&idea.ID, &idea.Title, &idea.ProblemStatement, &idea.ProposedSolution,
		&idea.TargetUsers, &idea.WhyNow, &idea.IndustryCategory, &idea.CurrentStage, &status,
		&idea.StageEnteredAt, &idea.Version, &idea.CreatedAt, &idea.UpdatedAt)
	if err != nil {
		return types.Idea{}, err
	}
	idea.Status = types.IdeaStatus(status)
	idea.StageEnteredAt = idea.StageEnteredAt.UTC()
	idea.CreatedAt = idea.CreatedAt.UTC()
	idea.UpdatedAt = idea.UpdatedAt.UTC()
	return idea, nil
}

// CreateIdea inserts a new idea at stage 1.
func (s *Postgres) CreateIdea(ctx context.Context, idea types.Idea) (types.Idea, error) {
	if err := validateIdea(idea); err != nil {
		return types.Idea{}, err
	}
	idea = prepareIdea(idea, time.Now())

	_, err := s.pool.Exec(ctx,
		`INSERT INTO ideas (`+ideaColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		idea.ID, idea.Title, idea.ProblemStatement, idea.ProposedSolution, idea.TargetUsers, idea.WhyNow,
		idea.IndustryCategory, idea.CurrentStage, string(idea.Status), idea.StageEnteredAt,
		idea.Version, idea.CreatedAt, idea.UpdatedAt,
	)
	if err != nil {
		return types.Idea{}, wrap("create idea", err)
	}
	return idea, nil
}

// GetIdea returns the idea with id or ErrNotFound.
func (s *Postgres) GetIdea(ctx context.Context, id string) (types.Idea, error) {
	idea, err := pgIdea(s.pool.QueryRow(ctx, `SELECT `+ideaColumns+` FROM ideas WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return types.Idea{}, fmt.Errorf("idea %s: %w", id, ErrNotFound)
	}
	return idea, wrap("get idea", err)
}

// ListIdeas returns ideas in submission order.
func (s *Postgres) ListIdeas(ctx context.Context, opts ListOptions) ([]types.Idea, error) {
	var where []string
	var args []any
	if opts.Status != "" {
		args = append(args, string(opts.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if opts.Stage > 0 {
		args = append(args, opts.Stage)
		where = append(where, fmt.Sprintf("current_stage = $%d", len(args)))
	}

	q := `SELECT ` + ideaColumns + ` FROM ideas`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at, id"
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, wrap("list ideas", err)
	}
	defer rows.Close()

	var ideas []types.Idea
	for rows.Next() {
		idea, err := pgIdea(rows)
		if err != nil {
			return nil, wrap("list ideas", err)
		}
		ideas = append(ideas, idea)
	}
	return ideas, wrap("list ideas", rows.Err())
}

// UpdateIdea applies upd when the stored version equals expectedVersion.
func (s *Postgres) UpdateIdea(ctx context.Context, id string, expectedVersion int64, upd IdeaUpdate) (types.Idea, error) {
	cols := upd.columns()
	sets := make([]string, 0, len(cols)+2)
	args := make([]any, 0, len(cols)+3)
	for _, c := range cols {
		if t, ok := c.value.(time.Time); ok {
			c.value = normalizeTime(t)
		}
		args = append(args, c.value)
		sets = append(sets, fmt.Sprintf("%s = $%d", c.name, len(args)))
	}
	args = append(args, normalizeTime(time.Now()))
	sets = append(sets, "version = version + 1", fmt.Sprintf("updated_at = $%d", len(args)))
	args = append(args, id, expectedVersion)

	tag, err := s.pool.Exec(ctx,
		`UPDATE ideas SET `+strings.Join(sets, ", ")+fmt.Sprintf(` WHERE id = $%d AND version = $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return types.Idea{}, wrap("update idea", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetIdea(ctx, id); err != nil {
			return types.Idea{}, err
		}
		return types.Idea{}, fmt.Errorf("idea %s at version %d: %w", id, expectedVersion, ErrVersionConflict)
	}
	return s.GetIdea(ctx, id)
}

// InsertEvaluation appends an evaluation record.
func (s *Postgres) InsertEvaluation(ctx context.Context, ev types.Evaluation) (types.Evaluation, error) {
	ev = prepareEvaluation(ev, time.Now())
	_, err := s.pool.Exec(ctx,
		`INSERT INTO evaluations (id, idea_id, stage_number, evaluation_type, model_used, confidence_score,
			pass_fail, recommendation, strengths, concerns, recommendations, pivot_suggestions, sources,
			result_data, raw_response, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		ev.ID, ev.IdeaID, ev.StageNumber, string(ev.Type), ev.ModelUsed, ev.ConfidenceScore,
		string(ev.PassFail), string(ev.Recommendation), nonNilList(ev.Strengths), nonNilList(ev.Concerns),
		nonNilList(ev.Recommendations), nonNilList(ev.PivotSuggestions), nonNilList(ev.Sources),
		string(ev.ResultData), ev.RawResponse, ev.CreatedAt,
	)
	if err != nil {
		return types.Evaluation{}, wrap("insert evaluation", err)
	}
	return ev, nil
}

func nonNilList(l []string) []string {
	if l == nil {
		return []string{}
	}
	return l
}

// ListEvaluations returns an idea's evaluations ordered by stage, then age.
func (s *Postgres) ListEvaluations(ctx context.Context, ideaID string, filter EvaluationFilter) ([]types.Evaluation, error) {
	q := `SELECT id, idea_id, stage_number, evaluation_type, model_used, confidence_score, pass_fail,
		recommendation, strengths, concerns, recommendations, pivot_suggestions, sources, result_data,
		raw_response, created_at
		FROM evaluations WHERE idea_id = $1`
	args := []any{ideaID}
	if filter.Stage > 0 {
		q += " AND stage_number = $2"
		args = append(args, filter.Stage)
	}
	q += " ORDER BY stage_number, created_at, seq"

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, wrap("list evaluations", err)
	}
	defer rows.Close()

	var evals []types.Evaluation
	for rows.Next() {
		var ev types.Evaluation
		var evType, passFail, rec string
		var resultData []byte
		if err := rows.Scan(&ev.ID, &ev.IdeaID, &ev.StageNumber, &evType, &ev.ModelUsed, &ev.ConfidenceScore,
			&passFail, &rec, &ev.Strengths, &ev.Concerns, &ev.Recommendations, &ev.PivotSuggestions,
			&ev.Sources, &resultData, &ev.RawResponse, &ev.CreatedAt); err != nil {
			return nil, wrap("list evaluations", err)
		}
		ev.Type = types.EvaluationType(evType)
		ev.PassFail = types.PassFail(passFail)
		ev.Recommendation = types.Recommendation(rec)
		ev.ResultData = json.RawMessage(resultData)
		ev.CreatedAt = ev.CreatedAt.UTC()
		evals = append(evals, ev)
	}
	return evals, wrap("list evaluations", rows.Err())
}

// DeleteEvaluations removes every evaluation of ideaID at stage.
func (s *Postgres) DeleteEvaluations(ctx context.Context, ideaID string, stage int) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM evaluations WHERE idea_id = $1 AND stage_number = $2`, ideaID, stage)
	if err != nil {
		return 0, wrap("delete evaluations", err)
	}
	return tag.RowsAffected(), nil
}

// LogActivity appends an activity entry.
func (s *Postgres) LogActivity(ctx context.Context, a types.Activity) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO activity (idea_id, kind, stage, message, detail, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		a.IdeaID, string(a.Kind), a.Stage, a.Message, a.Detail, normalizeTime(a.CreatedAt))
	return wrap("log activity", err)
}

// ListActivity returns up to limit entries for ideaID, newest first.
func (s *Postgres) ListActivity(ctx context.Context, ideaID string, limit int) ([]types.Activity, error) {
	q := `SELECT id, idea_id, kind, stage, message, detail, created_at FROM activity
		WHERE idea_id = $1 ORDER BY id DESC`
	args := []any{ideaID}
	if limit > 0 {
		q += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, wrap("list activity", err)
	}
	defer rows.Close()

	var out []types.Activity
	for rows.Next() {
		var a types.Activity
		var kind string
		if err := rows.Scan(&a.ID, &a.IdeaID, &kind, &a.Stage, &a.Message, &a.Detail, &a.CreatedAt); err != nil {
			return nil, wrap("list activity", err)
		}
		a.Kind = types.ActivityKind(kind)
		a.CreatedAt = a.CreatedAt.UTC()
		out = append(out, a)
	}
	return out, wrap("list activity", rows.Err())
}
