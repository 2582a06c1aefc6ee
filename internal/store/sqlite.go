// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/idea-engine/pkg/types"
)

const defaultSQLitePath = "data/ideas.db"

// timeLayout is fixed-width so that stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLite is the SQLite-backed Store.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens or creates the database at path and its schema.
func NewSQLite(path string) (*SQLite, error) {
	if path == "" {
		path = defaultSQLitePath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) createSchema() error {
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
			stage_entered_at TEXT NOT NULL,
			version INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ideas_status ON ideas(status)`,
		`CREATE TABLE IF NOT EXISTS evaluations (
			id TEXT PRIMARY KEY,
			idea_id TEXT NOT NULL REFERENCES ideas(id) ON DELETE CASCADE,
			stage_number INTEGER NOT NULL,
			evaluation_type TEXT NOT NULL,
			model_used TEXT,
			confidence_score REAL,
			pass_fail TEXT NOT NULL,
			recommendation TEXT,
			strengths TEXT,
			concerns TEXT,
			recommendations TEXT,
			pivot_suggestions TEXT,
			sources TEXT,
			result_data TEXT NOT NULL,
			raw_response TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_evaluations_idea_stage ON evaluations(idea_id, stage_number)`,
		`CREATE TABLE IF NOT EXISTS activity (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			idea_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			stage INTEGER,
			message TEXT,
			detail TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_activity_idea ON activity(idea_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	return normalizeTime(t).Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func encodeList(l []string) (string, error) {
	if l == nil {
		l = []string{}
	}
	b, err := json.Marshal(l)
	return string(b), err
}

func decodeList(s sql.NullString) ([]string, error) {
	if !s.Valid || s.String == "" {
		return []string{}, nil
	}
	var l []string
	if err := json.Unmarshal([]byte(s.String), &l); err != nil {
		return nil, err
	}
	return l, nil
}

const ideaColumns = `id, title, problem_statement, proposed_solution, target_users, why_now,
	industry_category, current_stage, status, stage_entered_at, version, created_at, updated_at`

// CreateIdea inserts a new idea at stage 1.
func (s *SQLite) CreateIdea(ctx context.Context, idea types.Idea) (types.Idea, error) {
	if err := validateIdea(idea); err != nil {
		return types.Idea{}, err
	}
	idea = prepareIdea(idea, time.Now())

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ideas (`+ideaColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		idea.ID, idea.Title, idea.ProblemStatement, idea.ProposedSolution, idea.TargetUsers, idea.WhyNow,
		idea.IndustryCategory, idea.CurrentStage, string(idea.Status), formatTime(idea.StageEnteredAt),
		idea.Version, formatTime(idea.CreatedAt), formatTime(idea.UpdatedAt),
	)
	if err != nil {
		return types.Idea{}, wrap("create idea", err)
	}
	return idea, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdea(row rowScanner) (types.Idea, error) {
	var idea types.Idea
	var status, entered, created, updated string
	err := row.Scan(&idea.ID, &idea.Title, &idea.ProblemStatement, &idea.ProposedSolution,
		&idea.TargetUsers, &idea.WhyNow, &idea.IndustryCategory, &idea.CurrentStage, &status,
		&entered, &idea.Version, &created, &updated)
	if err != nil {
		return types.Idea{}, err
	}
	idea.Status = types.IdeaStatus(status)
	if idea.StageEnteredAt, err = parseTime(entered); err != nil {
		return types.Idea{}, err
	}
	if idea.CreatedAt, err = parseTime(created); err != nil {
		return types.Idea{}, err
	}
	if idea.UpdatedAt, err = parseTime(updated); err != nil {
		return types.Idea{}, err
	}
	return idea, nil
}

// GetIdea returns the idea with id or ErrNotFound.
func (s *SQLite) GetIdea(ctx context.Context, id string) (types.Idea, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+ideaColumns+` FROM ideas WHERE id = ?`, id)
	idea, err := scanIdea(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Idea{}, fmt.Errorf("idea %s: %w", id, ErrNotFound)
	}
	return idea, wrap("get idea", err)
}

// ListIdeas returns ideas in submission order.
func (s *SQLite) ListIdeas(ctx context.Context, opts ListOptions) ([]types.Idea, error) {
	var where []string
	var args []any
	if opts.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(opts.Status))
	}
	if opts.Stage > 0 {
		where = append(where, "current_stage = ?")
		args = append(args, opts.Stage)
	}

	q := `SELECT ` + ideaColumns + ` FROM ideas`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at, id"
	if opts.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, wrap("list ideas", err)
	}
	defer rows.Close()

	var ideas []types.Idea
	for rows.Next() {
		idea, err := scanIdea(rows)
		if err != nil {
			return nil, wrap("list ideas", err)
		}
		ideas = append(ideas, idea)
	}
	return ideas, wrap("list ideas", rows.Err())
}

// UpdateIdea applies upd when the stored version equals expectedVersion.
func (s *SQLite) UpdateIdea(ctx context.Context, id string, expectedVersion int64, upd IdeaUpdate) (types.Idea, error) {
	cols := upd.columns()
	sets := make([]string, 0, len(cols)+2)
	args := make([]any, 0, len(cols)+4)
	for _, c := range cols {
		sets = append(sets, c.name+" = ?")
		if t, ok := c.value.(time.Time); ok {
			args = append(args, formatTime(t))
			continue
		}
		args = append(args, c.value)
	}
	sets = append(sets, "version = version + 1", "updated_at = ?")
	args = append(args, formatTime(time.Now()), id, expectedVersion)

	res, err := s.db.ExecContext(ctx,
		`UPDATE ideas SET `+strings.Join(sets, ", ")+` WHERE id = ? AND version = ?`, args...)
	if err != nil {
		return types.Idea{}, wrap("update idea", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return types.Idea{}, wrap("update idea", err)
	}
	if n == 0 {
		if _, err := s.GetIdea(ctx, id); err != nil {
			return types.Idea{}, err
		}
		return types.Idea{}, fmt.Errorf("idea %s at version %d: %w", id, expectedVersion, ErrVersionConflict)
	}
	return s.GetIdea(ctx, id)
}

// InsertEvaluation appends an evaluation record.
func (s *SQLite) InsertEvaluation(ctx context.Context, ev types.Evaluation) (types.Evaluation, error) {
	ev = prepareEvaluation(ev, time.Now())

	lists := make([]string, 5)
	for i, l := range [][]string{ev.Strengths, ev.Concerns, ev.Recommendations, ev.PivotSuggestions, ev.Sources} {
		enc, err := encodeList(l)
		if err != nil {
			return types.Evaluation{}, fmt.Errorf("encoding evaluation lists: %w", err)
		}
		lists[i] = enc
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO evaluations (id, idea_id, stage_number, evaluation_type, model_used, confidence_score,
			pass_fail, recommendation, strengths, concerns, recommendations, pivot_suggestions, sources,
			result_data, raw_response, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.IdeaID, ev.StageNumber, string(ev.Type), ev.ModelUsed, ev.ConfidenceScore,
		string(ev.PassFail), string(ev.Recommendation), lists[0], lists[1], lists[2], lists[3], lists[4],
		string(ev.ResultData), ev.RawResponse, formatTime(ev.CreatedAt),
	)
	if err != nil {
		return types.Evaluation{}, wrap("insert evaluation", err)
	}
	return ev, nil
}

// ListEvaluations returns an idea's evaluations ordered by stage, then age.
func (s *SQLite) ListEvaluations(ctx context.Context, ideaID string, filter EvaluationFilter) ([]types.Evaluation, error) {
	q := `SELECT id, idea_id, stage_number, evaluation_type, model_used, confidence_score, pass_fail,
		recommendation, strengths, concerns, recommendations, pivot_suggestions, sources, result_data,
		raw_response, created_at
		FROM evaluations WHERE idea_id = ?`
	args := []any{ideaID}
	if filter.Stage > 0 {
		q += " AND stage_number = ?"
		args = append(args, filter.Stage)
	}
	q += " ORDER BY stage_number, created_at, rowid"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, wrap("list evaluations", err)
	}
	defer rows.Close()

	var evals []types.Evaluation
	for rows.Next() {
		var ev types.Evaluation
		var evType, passFail, created, resultData string
		var model, rec, raw sql.NullString
		var confidence sql.NullFloat64
		var strengths, concerns, recs, pivots, sources sql.NullString
		if err := rows.Scan(&ev.ID, &ev.IdeaID, &ev.StageNumber, &evType, &model, &confidence, &passFail,
			&rec, &strengths, &concerns, &recs, &pivots, &sources, &resultData, &raw, &created); err != nil {
			return nil, wrap("list evaluations", err)
		}
		ev.Type = types.EvaluationType(evType)
		ev.ModelUsed = model.String
		ev.ConfidenceScore = confidence.Float64
		ev.PassFail = types.PassFail(passFail)
		ev.Recommendation = types.Recommendation(rec.String)
		ev.ResultData = json.RawMessage(resultData)
		ev.RawResponse = raw.String

		for dst, src := range map[*[]string]sql.NullString{
			&ev.Strengths: strengths, &ev.Concerns: concerns, &ev.Recommendations: recs,
			&ev.PivotSuggestions: pivots, &ev.Sources: sources,
		} {
			l, err := decodeList(src)
			if err != nil {
				return nil, wrap("list evaluations", fmt.Errorf("decoding lists of %s: %w", ev.ID, err))
			}
			*dst = l
		}
		if ev.CreatedAt, err = parseTime(created); err != nil {
			return nil, wrap("list evaluations", err)
		}
		evals = append(evals, ev)
	}
	return evals, wrap("list evaluations", rows.Err())
}

// DeleteEvaluations removes every evaluation of ideaID at stage.
func (s *SQLite) DeleteEvaluations(ctx context.Context, ideaID string, stage int) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM evaluations WHERE idea_id = ? AND stage_number = ?`, ideaID, stage)
	if err != nil {
		return 0, wrap("delete evaluations", err)
	}
	n, err := res.RowsAffected()
	return n, wrap("delete evaluations", err)
}

// LogActivity appends an activity entry.
func (s *SQLite) LogActivity(ctx context.Context, a types.Activity) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO activity (idea_id, kind, stage, message, detail, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		a.IdeaID, string(a.Kind), a.Stage, a.Message, a.Detail, formatTime(a.CreatedAt))
	return wrap("log activity", err)
}

// ListActivity returns up to limit entries for ideaID, newest first. A
// non-positive limit returns everything.
func (s *SQLite) ListActivity(ctx context.Context, ideaID string, limit int) ([]types.Activity, error) {
	q := `SELECT id, idea_id, kind, stage, message, detail, created_at FROM activity
		WHERE idea_id = ? ORDER BY id DESC`
	args := []any{ideaID}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, wrap("list activity", err)
	}
	defer rows.Close()

	var out []types.Activity
	for rows.Next() {
		var a types.Activity
		var kind, created string
		var stage sql.NullInt64
		var msg, detail sql.NullString
		if err := rows.Scan(&a.ID, &a.IdeaID, &kind, &stage, &msg, &detail, &created); err != nil {
			return nil, wrap("list activity", err)
		}
		a.Kind = types.ActivityKind(kind)
		a.Stage = int(stage.Int64)
		a.Message = msg.String
		a.Detail = detail.String
		if a.CreatedAt, err = parseTime(created); err != nil {
			return nil, wrap("list activity", err)
		}
		out = append(out, a)
	}
	return out, wrap("list activity", rows.Err())
}
