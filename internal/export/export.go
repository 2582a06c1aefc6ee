// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export writes the voting hand-off: every idea that finished the
// pipeline together with its stage results and pitch deck.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/idea-engine/internal/store"
	"github.com/pdiddy/idea-engine/pkg/types"
)

// Format selects the output encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts a format name or a file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(s), ".") {
	case "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	case "xlsx":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unknown export format %q (want yaml, json or xlsx)", s)
}

// Entry is one idea in the voting hand-off.
type Entry struct {
	Idea   types.Idea             `json:"idea" yaml:"idea"`
	Stages []StageScore           `json:"stages" yaml:"stages"`
	Deck   *types.PitchDeckDetail `json:"pitch_deck,omitempty" yaml:"pitch_deck,omitempty"`
}

// StageScore summarizes the latest evaluation of one stage.
type StageScore struct {
	Stage          int                  `json:"stage" yaml:"stage"`
	Name           string               `json:"name" yaml:"name"`
	EvaluationID   string               `json:"evaluation_id" yaml:"evaluation_id"`
	CompositeScore float64              `json:"composite_score" yaml:"composite_score"`
	Confidence     float64              `json:"confidence" yaml:"confidence"`
	Recommendation types.Recommendation `json:"recommendation" yaml:"recommendation"`
	Summary        string               `json:"summary,omitempty" yaml:"summary,omitempty"`
}

// Score returns the composite of stage, or false when the stage has no
// evaluation.
func (e Entry) Score(stage int) (float64, bool) {
	for _, s := range e.Stages {
		if s.Stage == stage {
			return s.CompositeScore, true
		}
	}
	return 0, false
}

// Exporter reads the hand-off view from a store.
type Exporter struct {
	store store.Store
	log   logrus.FieldLogger
}

// New creates an Exporter.
func New(st store.Store, log logrus.FieldLogger) *Exporter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Exporter{store: st, log: log}
}

// Entries lists the ideas matching opts with their latest stage results. A
// zero Status selects ideas ready for voting. Ready ideas without a stage 6
// evaluation are skipped and logged.
func (x *Exporter) Entries(ctx context.Context, opts store.ListOptions) ([]Entry, error) {
	start := time.Now()
	if opts.Status == "" {
		opts.Status = types.StatusReadyForVoting
	}

	ideas, err := x.store.ListIdeas(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("listing ideas for export: %w", err)
	}

	entries := make([]Entry, 0, len(ideas))
	for _, idea := range ideas {
		entry, err := x.entry(ctx, idea)
		if err != nil {
			return nil, err
		}
		if idea.Status == types.StatusReadyForVoting && entry.Deck == nil {
			x.log.WithField("idea_id", idea.ID).Warn("export.idea.no_deck")
			continue
		}
		entries = append(entries, entry)
	}

	x.log.WithFields(logrus.Fields{
		"status":     opts.Status,
		"ideas":      len(entries),
		"elapsed_ms": time.Since(start).Milliseconds(),
	}).Info("export.entries.ok")
	return entries, nil
}

func (x *Exporter) entry(ctx context.Context, idea types.Idea) (Entry, error) {
	evals, err := x.store.ListEvaluations(ctx, idea.ID, store.EvaluationFilter{})
	if err != nil {
		return Entry{}, fmt.Errorf("listing evaluations of %s: %w", idea.ID, err)
	}
	latest := types.CurrentByStage(evals)

	entry := Entry{Idea: idea, Stages: []StageScore{}}
	for _, stage := range types.SortedStages(latest) {
		ev := latest[stage]
		r, err := ev.Result()
		if err != nil {
			return Entry{}, err
		}
		entry.Stages = append(entry.Stages, StageScore{
			Stage:          stage,
			Name:           types.StageName(stage),
			EvaluationID:   ev.ID,
			CompositeScore: r.CompositeScore,
			Confidence:     ev.ConfidenceScore,
			Recommendation: r.Recommendation,
			Summary:        r.Summary,
		})
		if deck, ok := r.Detail.(*types.PitchDeckDetail); ok && ev.Passed() {
			entry.Deck = deck
		}
	}
	return entry, nil
}

// Write encodes entries to w in format.
func Write(w io.Writer, format Format, entries []Entry) error {
	switch format {
	case FormatYAML:
		return WriteYAML(w, entries)
	case FormatJSON:
		return WriteJSON(w, entries)
	case FormatXLSX:
		return WriteXLSX(w, entries)
	}
	return fmt.Errorf("unknown export format %q", format)
}

// WriteYAML encodes entries as a YAML sequence.
func WriteYAML(w io.Writer, entries []Entry) error {
	data, err := yaml.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// WriteJSON encodes entries as an indented JSON array.
func WriteJSON(w io.Writer, entries []Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
