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

// researchAPIURL is the web-research chat completions endpoint.
var researchAPIURL = "https://api.perplexity.ai/chat/completions"

// ResearchBackend serves the web-research provider: an OpenAI-compatible
// chat completions API that searches the web and returns citations next to
// the completion.
type ResearchBackend struct {
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
	Client    *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type researchRequest struct {
	Model           string        `json:"model"`
	Messages        []chatMessage `json:"messages"`
	Temperature     float64       `json:"temperature"`
	MaxTokens       int           `json:"max_tokens,omitempty"`
	ReturnCitations bool          `json:"return_citations"`
}

type researchResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Citations     []string `json:"citations"`
	SearchResults []struct {
		URL string `json:"url"`
	} `json:"search_results"`
}

// Complete runs one research completion and collects its citations.
func (b *ResearchBackend) Complete(ctx context.Context, systemPrompt, userPrompt string, opts Options) (Completion, error) {
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = b.MaxTokens
	}

	reqBody := researchRequest{
		Model: b.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature:     opts.Temperature,
		MaxTokens:       maxTokens,
		ReturnCitations: true,
	}

	url := researchAPIURL
	if b.BaseURL != "" {
		url = strings.TrimRight(b.BaseURL, "/") + "/chat/completions"
	}

	data, err := httputil.PostJSON(ctx, b.Client, url, map[string]string{
		"Authorization": "Bearer " + b.APIKey,
	}, reqBody)
	if err != nil {
		return Completion{}, fmt.Errorf("calling research API: %w", err)
	}

	var resp researchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return Completion{}, fmt.Errorf("decoding research response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Completion{}, errors.New("no choices in research response")
	}

	citations := resp.Citations
	if len(citations) == 0 {
		for _, r := range resp.SearchResults {
			if r.URL != "" {
				citations = append(citations, r.URL)
			}
		}
	}

	model := resp.Model
	if model == "" {
		model = b.Model
	}
	return Completion{
		Text:      resp.Choices[0].Message.Content,
		Citations: citations,
		Model:     model,
	}, nil
}
