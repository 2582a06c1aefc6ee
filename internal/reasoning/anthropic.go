// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reasoning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/pdiddy/idea-engine/internal/httputil"
)

// anthropicAPIURL is the Messages API endpoint. Package-level var for test substitution.
var anthropicAPIURL = "https://api.anthropic.com/v1/messages"

const anthropicDefaultMaxTokens = 4096

// AnthropicBackend serves the deep-reasoning provider through the Claude
// Messages API. The call shape has no system/user split: the system prompt
// is prepended to a single user message.
type AnthropicBackend struct {
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
	Client    *http.Client
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float64           `json:"temperature,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Model   string             `json:"model"`
	Content []anthropicContent `json:"content"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Complete sends the combined prompt and returns the first text block.
func (b *AnthropicBackend) Complete(ctx context.Context, systemPrompt, userPrompt string, opts Options) (Completion, error) {
	prompt := userPrompt
	if systemPrompt != "" {
		prompt = systemPrompt + "\n\n" + userPrompt
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = b.MaxTokens
	}
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}

	reqBody := anthropicRequest{
		Model:     b.Model,
		MaxTokens: maxTokens,
		Messages:  []anthropicMessage{{Role: "user", Content: prompt}},
	}
	if opts.Temperature > 0 {
		t := opts.Temperature
		reqBody.Temperature = &t
	}

	url := anthropicAPIURL
	if b.BaseURL != "" {
		url = strings.TrimRight(b.BaseURL, "/") + "/v1/messages"
	}

	data, err := httputil.PostJSON(ctx, b.Client, url, map[string]string{
		"x-api-key":         b.APIKey,
		"anthropic-version": "2023-06-01",
	}, reqBody)
	if err != nil {
		return Completion{}, fmt.Errorf("calling Claude API: %w", err)
	}

	var resp anthropicResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return Completion{}, fmt.Errorf("decoding Claude response: %w", err)
	}

	for _, block := range resp.Content {
		if block.Type != "text" {
			continue
		}
		model := resp.Model
		if model == "" {
			model = b.Model
		}
		return Completion{Text: block.Text, Model: model}, nil
	}
	return Completion{}, errors.New("no text content in Claude API response")
}
