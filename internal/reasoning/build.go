// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reasoning

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/idea-engine/pkg/types"
)

// Build creates a Client with all three provider backends configured from
// cfg. Providers without a model are left unregistered; calls to them fail
// with ErrNoBackend.
func Build(ctx context.Context, cfg types.ReasoningConfig, log logrus.FieldLogger) (*Client, error) {
	c := NewClient(cfg, log)
	httpClient := &http.Client{}

	if cfg.Fast.Model != "" {
		fast, err := NewOpenAIBackend(ctx, cfg.Fast)
		if err != nil {
			return nil, fmt.Errorf("fast provider: %w", err)
		}
		c.Register(ProviderFast, fast)
	}

	if cfg.Deep.Model != "" {
		c.Register(ProviderDeep, &AnthropicBackend{
			APIKey:    cfg.Deep.APIKey,
			Model:     cfg.Deep.Model,
			BaseURL:   cfg.Deep.BaseURL,
			MaxTokens: cfg.Deep.MaxTokens,
			Client:    httpClient,
		})
	}

	if cfg.Research.Model != "" {
		c.Register(ProviderResearch, &ResearchBackend{
			APIKey:    cfg.Research.APIKey,
			Model:     cfg.Research.Model,
			BaseURL:   cfg.Research.BaseURL,
			MaxTokens: cfg.Research.MaxTokens,
			Client:    httpClient,
		})
	}

	return c, nil
}
