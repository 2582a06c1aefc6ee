// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pdiddy/idea-engine/internal/pipeline"
	"github.com/pdiddy/idea-engine/internal/reasoning"
	"github.com/pdiddy/idea-engine/internal/stages"
	"github.com/pdiddy/idea-engine/internal/store"
	"github.com/pdiddy/idea-engine/pkg/types"
)

func openStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, appConfig.Store)
}

// newOrchestrator opens the store and wires the pipeline. Provider backends
// are only built when withProviders is set, so commands that never call a
// model work without API keys. The returned func closes the store.
func newOrchestrator(ctx context.Context, withProviders bool) (*pipeline.Orchestrator, func(), error) {
	st, err := openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := st.Close(); err != nil {
			log.WithError(err).Warn("store.close.failed")
		}
	}

	client := reasoning.NewClient(appConfig.Reasoning, log)
	if withProviders {
		client, err = reasoning.Build(ctx, appConfig.Reasoning, log)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
	}

	set := stages.NewSet(client, appConfig.Pipeline)
	return pipeline.New(st, set, appConfig.Pipeline, log), cleanup, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printIdea writes a short summary of an idea.
func printIdea(w io.Writer, idea types.Idea) {
	fmt.Fprintf(w, "ID:       %s\n", idea.ID)
	fmt.Fprintf(w, "Title:    %s\n", idea.Title)
	fmt.Fprintf(w, "Stage:    %d (%s)\n", idea.CurrentStage, types.StageName(idea.CurrentStage))
	fmt.Fprintf(w, "Status:   %s\n", idea.Status)
	if idea.IndustryCategory != "" {
		fmt.Fprintf(w, "Industry: %s\n", idea.IndustryCategory)
	}
	fmt.Fprintf(w, "Updated:  %s\n", idea.UpdatedAt.Format("2006-01-02 15:04:05"))
}

// printEvaluation writes one line describing an evaluation.
func printEvaluation(w io.Writer, ev types.Evaluation) {
	score := "-"
	if r, err := ev.Result(); err == nil {
		score = fmt.Sprintf("%.1f", r.CompositeScore)
	}
	fmt.Fprintf(w, "  stage %d %-20s %-4s %-8s score=%s confidence=%.2f model=%s\n",
		ev.StageNumber, types.StageName(ev.StageNumber), ev.PassFail, ev.Recommendation,
		score, ev.ConfidenceScore, ev.ModelUsed)
}
