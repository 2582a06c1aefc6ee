// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reasoning

import (
	"context"
	"errors"
	"fmt"

	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	acl "github.com/cloudwego/eino-ext/libs/acl/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	goopenai "github.com/meguminnnnnnnnn/go-openai"

	"github.com/pdiddy/idea-engine/internal/httputil"
	"github.com/pdiddy/idea-engine/pkg/types"
)

// OpenAIBackend serves the fast-reasoning provider through eino chat models
// speaking the OpenAI chat completions protocol. Calls with JSONOutput set
// go to a model constrained to emit a single JSON object.
type OpenAIBackend struct {
	chat      model.BaseChatModel
	jsonChat  model.BaseChatModel
	model     string
	maxTokens int
}

// NewOpenAIBackend builds the plain and the JSON-constrained chat models
// from cfg.
func NewOpenAIBackend(ctx context.Context, cfg types.ProviderConfig) (*OpenAIBackend, error) {
	newChat := func(format *acl.ChatCompletionResponseFormat) (model.BaseChatModel, error) {
		chat, err := einoopenai.NewChatModel(ctx, &einoopenai.ChatModelConfig{
			APIKey:         cfg.APIKey,
			BaseURL:        cfg.BaseURL,
			Model:          cfg.Model,
			ResponseFormat: format,
		})
		if err != nil {
			return nil, fmt.Errorf("initializing chat model %s: %w", cfg.Model, err)
		}
		return chat, nil
	}

	chat, err := newChat(nil)
	if err != nil {
		return nil, err
	}
	jsonChat, err := newChat(&acl.ChatCompletionResponseFormat{
		Type: acl.ChatCompletionResponseFormatTypeJSONObject,
	})
	if err != nil {
		return nil, err
	}

	b := NewOpenAIBackendWithModel(chat, cfg.Model, cfg.MaxTokens)
	b.jsonChat = jsonChat
	return b, nil
}

// NewOpenAIBackendWithModel wraps an existing chat model, used for every
// call whatever its JSONOutput setting.
func NewOpenAIBackendWithModel(chat model.BaseChatModel, modelName string, maxTokens int) *OpenAIBackend {
	return &OpenAIBackend{chat: chat, jsonChat: chat, model: modelName, maxTokens: maxTokens}
}

// Complete sends a system and a user message and returns the reply content.
// An HTTP failure is returned as a *httputil.StatusError.
func (b *OpenAIBackend) Complete(ctx context.Context, systemPrompt, userPrompt string, opts Options) (Completion, error) {
	msgs := []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(userPrompt),
	}

	var callOpts []model.Option
	if opts.Temperature > 0 {
		callOpts = append(callOpts, model.WithTemperature(float32(opts.Temperature)))
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = b.maxTokens
	}
	if maxTokens > 0 {
		callOpts = append(callOpts, model.WithMaxTokens(maxTokens))
	}

	chat := b.chat
	if opts.JSONOutput {
		chat = b.jsonChat
	}

	resp, err := chat.Generate(ctx, msgs, callOpts...)
	if err != nil {
		return Completion{}, fmt.Errorf("generating completion: %w", statusError(err))
	}
	if resp == nil {
		return Completion{}, errors.New("empty chat completion")
	}
	return Completion{Text: resp.Content, Model: b.model}, nil
}

// statusError converts an HTTP failure reported by the OpenAI client into
// a *httputil.StatusError. Other errors are returned unchanged.
func statusError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return httputil.NewStatusError(apiErr.HTTPStatusCode, []byte(apiErr.Message))
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return httputil.NewStatusError(reqErr.HTTPStatusCode, reqErr.Body)
	}
	return err
}
