// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package reasoning routes prompts to the external reasoning providers
// (fast, deep and web-research) and normalizes their failures.
package reasoning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/pdiddy/idea-engine/internal/httputil"
	"github.com/pdiddy/idea-engine/pkg/types"
)

// Provider selects one of the external reasoning services.
type Provider string

const (
	ProviderFast     Provider = "fast"
	ProviderDeep     Provider = "deep"
	ProviderResearch Provider = "research"
)

const (
	defaultTimeout           = 90 * time.Second
	defaultRequestsPerMinute = 30
)

// ErrNoBackend is returned when no backend is registered for a provider.
var ErrNoBackend = errors.New("no backend registered")

// Options tune a single completion request.
type Options struct {
	// Temperature 0 leaves the provider's default temperature in place.
	Temperature float64
	// MaxTokens 0 falls back to the provider's configured max_tokens.
	MaxTokens int

	// JSONOutput asks providers that support it for constrained JSON.
	JSONOutput bool
}

// Completion is a provider's answer to one prompt.
type Completion struct {
	Text      string
	Citations []string
	Model     string
}

// Backend is one provider implementation. Implementations make exactly one
// outbound call per Complete and never retry.
type Backend interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, opts Options) (Completion, error)
}

// BackendFunc adapts a function to the Backend interface.
type BackendFunc func(ctx context.Context, systemPrompt, userPrompt string, opts Options) (Completion, error)

func (f BackendFunc) Complete(ctx context.Context, systemPrompt, userPrompt string, opts Options) (Completion, error) {
	return f(ctx, systemPrompt, userPrompt, opts)
}

// ProviderError reports a failed provider call: transport failure, non-2xx
// status, timeout, or an unusable response body.
type ProviderError struct {
	Provider   Provider
	StatusCode int
	Body       string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s provider returned %d: %s", e.Provider, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s provider: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Timeout reports whether the call was aborted by the request deadline.
func (e *ProviderError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// Client dispatches completions to registered backends, bounding each call
// with a timeout and pacing calls with a shared rate limiter.
type Client struct {
	backends map[Provider]Backend
	timeout  time.Duration
	limiter  *rate.Limiter
	log      logrus.FieldLogger
}

// NewClient creates a Client without backends. A zero Timeout or
// RequestsPerMinute selects the defaults; a negative RequestsPerMinute
// disables pacing.
func NewClient(cfg types.ReasoningConfig, log logrus.FieldLogger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	rpm := cfg.RequestsPerMinute
	if rpm == 0 {
		rpm = defaultRequestsPerMinute
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if rpm > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1+rpm/60)
	}

	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Client{
		backends: make(map[Provider]Backend),
		timeout:  timeout,
		limiter:  limiter,
		log:      log,
	}
}

// Register installs the backend serving provider p.
func (c *Client) Register(p Provider, b Backend) {
	c.backends[p] = b
}

// Complete sends one prompt to provider p and waits for the full completion.
// Every failure, including a timeout, is returned as a *ProviderError.
func (c *Client) Complete(ctx context.Context, p Provider, systemPrompt, userPrompt string, opts Options) (Completion, error) {
	backend, ok := c.backends[p]
	if !ok {
		return Completion{}, &ProviderError{Provider: p, Err: ErrNoBackend}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return Completion{}, &ProviderError{Provider: p, Err: err}
	}

	reqID := uuid.NewString()
	log := c.log.WithFields(logrus.Fields{"req_id": reqID, "provider": p})
	log.WithFields(logrus.Fields{
		"temperature": opts.Temperature,
		"max_tokens":  opts.MaxTokens,
		"prompt_len":  len(systemPrompt) + len(userPrompt),
	}).Debug("reasoning.call.start")

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	comp, err := backend.Complete(callCtx, systemPrompt, userPrompt, opts)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		perr := toProviderError(p, err)
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && !perr.Timeout() {
			perr.Err = fmt.Errorf("%w after %s: %v", context.DeadlineExceeded, c.timeout, perr.Err)
		}
		log.WithFields(logrus.Fields{
			"status":     perr.StatusCode,
			"timeout":    perr.Timeout(),
			"elapsed_ms": elapsed,
		}).WithError(err).Error("reasoning.call.error")
		return Completion{}, perr
	}

	log.WithFields(logrus.Fields{
		"model":      comp.Model,
		"text_len":   len(comp.Text),
		"citations":  len(comp.Citations),
		"elapsed_ms": elapsed,
	}).Info("reasoning.call.ok")
	return comp, nil
}

func toProviderError(p Provider, err error) *ProviderError {
	var perr *ProviderError
	if errors.As(err, &perr) {
		out := *perr
		out.Provider = p
		return &out
	}
	var se *httputil.StatusError
	if errors.As(err, &se) {
		return &ProviderError{Provider: p, StatusCode: se.StatusCode, Body: se.Body, Err: err}
	}
	return &ProviderError{Provider: p, Err: err}
}
