// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package stages implements the five automated evaluation stages of the idea
// pipeline. Each stage builds a prompt from the idea and prior results,
// calls one reasoning provider, validates the structured reply and
// recomputes its score and gate decision locally.
package stages

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"text/template"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/idea-engine/internal/parse"
	"github.com/pdiddy/idea-engine/internal/reasoning"
	"github.com/pdiddy/idea-engine/pkg/types"
)

// Completer is the subset of the reasoning client the stages need.
type Completer interface {
	Complete(ctx context.Context, p reasoning.Provider, systemPrompt, userPrompt string, opts reasoning.Options) (reasoning.Completion, error)
}

// Priors maps a stage number to the latest evaluation of that stage.
type Priors map[int]types.Evaluation

// Outcome is a successful stage run, ready to be persisted.
type Outcome struct {
	Result          types.StageResult
	ConfidenceScore float64
	RawResponse     string
	ModelUsed       string
	Sources         []string
}

// Evaluator runs one pipeline stage.
type Evaluator interface {
	Stage() int
	Type() types.EvaluationType
	// Requires lists the stages whose latest evaluations must exist before
	// this stage can run.
	Requires() []int
	Evaluate(ctx context.Context, idea types.Idea, priors Priors) (*Outcome, error)
}

// ValidationError is a structurally unusable provider reply: required
// fields absent, values out of range, or a pitch deck that is too short.
// It is a hard failure, distinct from a low-scoring decline.
type ValidationError struct {
	Stage    int
	Problems []string
	Raw      string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("stage %d validation failed: %s", e.Stage, strings.Join(e.Problems, "; "))
}

// RawResponse returns the provider completion carried by a stage failure,
// if any.
func RawResponse(err error) (string, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) && ve.Raw != "" {
		return ve.Raw, true
	}
	var pe *parse.ParseError
	if errors.As(err, &pe) && pe.Raw != "" {
		return pe.Raw, true
	}
	return "", false
}

// Set indexes the evaluators by stage number.
type Set map[int]Evaluator

// NewSet creates the evaluators for stages 2 through 6.
func NewSet(c Completer, cfg types.PipelineConfig) Set {
	set := Set{}
	for _, e := range []Evaluator{
		&ProblemValidation{client: c},
		&MarketSizing{client: c},
		&ImpactAssessment{client: c},
		&Feasibility{client: c, threshold: cfg.FeasibilityThreshold},
		&PitchDeck{client: c},
	} {
		set[e.Stage()] = e
	}
	return set
}

// Get returns the evaluator for stage.
func (s Set) Get(stage int) (Evaluator, bool) {
	e, ok := s[stage]
	return e, ok
}

// --- shared prompt plumbing ---

// ideaBlock renders the submitter's fields; every stage prompt embeds it.
const ideaBlock = `{{define "idea"}}Idea title: {{.Idea.Title}}
Problem statement: {{.Idea.ProblemStatement}}
{{- if .Idea.ProposedSolution}}
Proposed solution: {{.Idea.ProposedSolution}}{{end}}
Target users: {{.Idea.TargetUsers}}
{{- if .Idea.WhyNow}}
Why now: {{.Idea.WhyNow}}{{end}}
{{- if .Idea.IndustryCategory}}
Industry: {{.Idea.IndustryCategory}}{{end}}
{{end}}`

// narrativeInstructions is appended to every stage's output contract.
const narrativeInstructions = `Also include:
- "summary": two or three sentences
- "strengths", "concerns", "recommendations", "pivot_suggestions": arrays of short strings

Respond with a single JSON object and nothing else.`

func newPrompt(name, body string) *template.Template {
	return template.Must(template.Must(template.New(name).Parse(ideaBlock)).Parse(body))
}

type promptData struct {
	Idea   types.Idea
	Priors string
}

func render(t *template.Template, data promptData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", t.Name(), err)
	}
	return buf.String(), nil
}

// priorView is the slice of a prior evaluation shown to later stages.
type priorView struct {
	Stage          int                  `yaml:"stage"`
	Name           string               `yaml:"name"`
	Recommendation types.Recommendation `yaml:"recommendation"`
	GatePassed     bool                 `yaml:"gate_passed"`
	Composite      float64              `yaml:"composite_score"`
	Summary        string               `yaml:"summary,omitempty"`
	Strengths      []string             `yaml:"strengths,omitempty"`
	Concerns       []string             `yaml:"concerns,omitempty"`
	Detail         types.StageDetail    `yaml:"detail,omitempty"`
}

// summarizePriors renders the latest evaluations of the given stages as YAML
// for inclusion in a prompt.
func summarizePriors(priors Priors, stages []int) (string, error) {
	var views []priorView
	for _, s := range stages {
		ev, ok := priors[s]
		if !ok {
			continue
		}
		r, err := ev.Result()
		if err != nil {
			return "", err
		}
		views = append(views, priorView{
			Stage:          s,
			Name:           types.StageName(s),
			Recommendation: r.Recommendation,
			GatePassed:     r.GatePassed,
			Composite:      r.CompositeScore,
			Summary:        r.Summary,
			Strengths:      r.Strengths,
			Concerns:       r.Concerns,
			Detail:         r.Detail,
		})
	}
	if len(views) == 0 {
		return "", nil
	}
	out, err := yaml.Marshal(views)
	if err != nil {
		return "", fmt.Errorf("summarizing prior evaluations: %w", err)
	}
	return string(out), nil
}

// --- shared payload handling ---

// narrative holds the qualitative arrays every stage returns.
type narrative struct {
	Summary          string   `json:"summary"`
	Strengths        []string `json:"strengths"`
	Concerns         []string `json:"concerns"`
	Recommendations  []string `json:"recommendations"`
	PivotSuggestions []string `json:"pivot_suggestions"`
}

func (n narrative) result(t types.EvaluationType) types.StageResult {
	return types.StageResult{
		Type:             t,
		Summary:          n.Summary,
		Strengths:        nonNil(n.Strengths),
		Concerns:         nonNil(n.Concerns),
		Recommendations:  nonNil(n.Recommendations),
		PivotSuggestions: nonNil(n.PivotSuggestions),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

var stringArray = map[string]any{"type": "array", "items": map[string]any{"type": "string"}}

// objectSchema builds a JSON Schema object with the narrative properties
// merged into props.
func objectSchema(required []string, props map[string]any) map[string]any {
	all := map[string]any{
		"summary":           map[string]any{"type": "string"},
		"strengths":         stringArray,
		"concerns":          stringArray,
		"recommendations":   stringArray,
		"pivot_suggestions": stringArray,
	}
	for k, v := range props {
		all[k] = v
	}
	req := make([]any, len(required))
	for i, r := range required {
		req[i] = r
	}
	return map[string]any{"type": "object", "required": req, "properties": all}
}

// scoresSchema requires every dimension as a number in [min, max].
func scoresSchema(dims []string, min, max float64) map[string]any {
	props := make(map[string]any, len(dims))
	req := make([]any, len(dims))
	for i, d := range dims {
		props[d] = map[string]any{"type": "number", "minimum": min, "maximum": max}
		req[i] = d
	}
	return map[string]any{"type": "object", "required": req, "properties": props}
}

// complete runs the provider call and decodes its reply into v.
func complete(ctx context.Context, c Completer, stage int, p reasoning.Provider, opts reasoning.Options,
	system, user string, schema *parse.Schema, v any) (reasoning.Completion, error) {
	comp, err := c.Complete(ctx, p, system, user, opts)
	if err != nil {
		return reasoning.Completion{}, fmt.Errorf("stage %d: %w", stage, err)
	}
	if err := parse.Decode(comp.Text, schema, v); err != nil {
		var se *parse.SchemaError
		if errors.As(err, &se) {
			return comp, &ValidationError{Stage: stage, Problems: se.Problems, Raw: comp.Text}
		}
		return comp, fmt.Errorf("stage %d: %w", stage, err)
	}
	return comp, nil
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
