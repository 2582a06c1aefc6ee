// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/idea-engine/internal/reasoning"
	"github.com/pdiddy/idea-engine/internal/stages"
	"github.com/pdiddy/idea-engine/internal/store"
	"github.com/pdiddy/idea-engine/pkg/types"
)

func init() {
	advanceBackoff = time.Millisecond
}

// --- scripted completer ---

type reply struct {
	text string
	err  error
}

type scriptedCompleter struct {
	mu        sync.Mutex
	replies   []reply
	providers []reasoning.Provider
}

func (s *scriptedCompleter) Complete(_ context.Context, p reasoning.Provider, _, _ string, _ reasoning.Options) (reasoning.Completion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers = append(s.providers, p)
	if len(s.replies) == 0 {
		return reasoning.Completion{}, errors.New("no scripted reply")
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	if r.err != nil {
		return reasoning.Completion{}, r.err
	}
	return reasoning.Completion{Text: r.text, Model: "model-" + string(p)}, nil
}

func (s *scriptedCompleter) push(texts ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range texts {
		s.replies = append(s.replies, reply{text: t})
	}
}

func (s *scriptedCompleter) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, reply{err: err})
}

// --- store wrapper with injectable failures ---

type flakyStore struct {
	store.Store

	mu             sync.Mutex
	updateFailures int
	failActivity   bool
	updates        int
}

var errInjected = errors.New("injected store failure")

func (f *flakyStore) UpdateIdea(ctx context.Context, id string, expectedVersion int64, upd store.IdeaUpdate) (types.Idea, error) {
	f.mu.Lock()
	f.updates++
	if f.updateFailures > 0 {
		f.updateFailures--
		f.mu.Unlock()
		return types.Idea{}, &store.StoreError{Op: "update idea", Err: errInjected}
	}
	f.mu.Unlock()
	return f.Store.UpdateIdea(ctx, id, expectedVersion, upd)
}

func (f *flakyStore) LogActivity(ctx context.Context, a types.Activity) error {
	if f.failActivity {
		return &store.StoreError{Op: "log activity", Err: errInjected}
	}
	return f.Store.LogActivity(ctx, a)
}

func (f *flakyStore) failUpdates(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateFailures = n
}

// --- harness ---

type harness struct {
	orch  *Orchestrator
	store *flakyStore
	llm   *scriptedCompleter
	hook  *logtest.Hook
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := store.NewSQLite(filepath.Join(t.TempDir(), "ideas.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	fs := &flakyStore{Store: db}
	llm := &scriptedCompleter{}
	log, hook := logtest.NewNullLogger()
	cfg := types.PipelineConfig{FeasibilityThreshold: 70, AdvanceRetries: 2}
	return &harness{
		orch:  New(fs, stages.NewSet(llm, cfg), cfg, log),
		store: fs,
		llm:   llm,
		hook:  hook,
	}
}

func (h *harness) submit(t *testing.T) types.Idea {
	t.Helper()
	idea, err := h.orch.SubmitIdea(context.Background(), types.IdeaDraft{
		Title:            "Clinic triage assistant",
		ProblemStatement: "Rural clinics lose hours a day to manual intake triage.",
		TargetUsers:      "Nurses in rural clinics",
		WhyNow:           "Speech models run on a tablet now.",
	})
	require.NoError(t, err)
	return idea
}

func (h *harness) idea(t *testing.T, id string) types.Idea {
	t.Helper()
	idea, err := h.store.GetIdea(context.Background(), id)
	require.NoError(t, err)
	return idea
}

func (h *harness) evaluations(t *testing.T, id string, stage int) []types.Evaluation {
	t.Helper()
	evals, err := h.store.ListEvaluations(context.Background(), id, store.EvaluationFilter{Stage: stage})
	require.NoError(t, err)
	return evals
}

func (h *harness) activityKinds(t *testing.T, id string) []types.ActivityKind {
	t.Helper()
	acts, err := h.store.ListActivity(context.Background(), id, 0)
	require.NoError(t, err)
	kinds := make([]types.ActivityKind, len(acts))
	for i, a := range acts {
		kinds[i] = a.Kind
	}
	return kinds
}

// --- provider replies ---

func problemReply(a, b, c, d, e int) string {
	return fmt.Sprintf(`{"scores": {"problem_clarity": %d, "market_need": %d, "target_audience": %d, "urgency_timing": %d, "differentiation": %d},
  "summary": "Problem check.", "strengths": ["clear pain"], "concerns": [], "recommendations": [], "pivot_suggestions": []}`, a, b, c, d, e)
}

// strongProblem scores a composite of 400.
var strongProblem = "```json\n" + problemReply(90, 85, 80, 75, 70) + "\n```"

// weakProblem scores a composite of 260.
var weakProblem = problemReply(60, 55, 50, 50, 45)

func marketReply(tam float64, trend string, competitors int) string {
	comps := make([]map[string]string, competitors)
	for i := range comps {
		comps[i] = map[string]string{"name": fmt.Sprintf("Competitor %d", i+1)}
	}
	b, _ := json.Marshal(map[string]any{
		"tam":         map[string]any{"value": tam, "unit": "millions", "confidence": "medium"},
		"trend":       trend,
		"competitors": comps,
		"citations":   []string{"https://report.example"},
		"summary":     "Market view.",
	})
	return string(b)
}

const impactReply = `{
  "scores": {"lives_impacted": 8, "problem_severity": 9, "exponential_potential": 7, "underserved_reach": 8, "strategic_alignment": 6, "sustainability": 5},
  "summary": "High impact.", "strengths": [], "concerns": [], "recommendations": [], "pivot_suggestions": []
}`

const feasibilityReply = `{
  "scores": {"technology_readiness": 90, "build_simplicity": 70, "data_availability": 60, "integration_ease": 80, "scalability": 75},
  "mvp_timeline_weeks": 12,
  "resources": {"team_size": 4, "roles": ["backend", "ml"], "budget_usd": 250000},
  "tech_stack": ["Go", "PostgreSQL"],
  "summary": "Buildable."
}`

func deckReply(n int) string {
	slides := make([]types.Slide, n)
	for i := range slides {
		slides[i] = types.Slide{
			Number:           i + 1,
			Title:            fmt.Sprintf("Slide %d", i+1),
			Content:          []string{"point"},
			Notes:            "notes",
			VisualSuggestion: "chart",
		}
	}
	b, _ := json.Marshal(map[string]any{
		"slides":            slides,
		"executive_summary": "Triage intake for rural clinics.",
		"one_line_pitch":    "Triage in seconds.",
		"elevator_pitch":    "Nurses spend hours on intake.",
		"call_to_action":    "Fund a pilot.",
	})
	return string(b)
}

// fullRun is one reply per stage that carries an idea to voting.
func fullRun() []string {
	return []string{strongProblem, marketReply(120, "growing", 4), impactReply, feasibilityReply, deckReply(10)}
}
