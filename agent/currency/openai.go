// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package currency

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/go-a2a/a2a-engine"
)

// OpenAIPlanner plans with the OpenAI Chat Completions API.
type OpenAIPlanner struct {
	client *openai.Client
	model  string
}

var _ Planner = (*OpenAIPlanner)(nil)

// NewOpenAIPlanner returns a planner using model. Extra opts are passed to the SDK client,
// e.g. [option.WithBaseURL] for a compatible endpoint.
func NewOpenAIPlanner(apiKey, model string, opts ...option.RequestOption) *OpenAIPlanner {
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &OpenAIPlanner{client: &client, model: model}
}

// Plan implements [Planner].
func (p *OpenAIPlanner) Plan(ctx context.Context, conversation []*a2a.Message) (*Plan, error) {
	messages := []openai.ChatCompletionMessageParamUnion{openai.SystemMessage(systemInstruction)}
	for _, m := range conversation {
		text := m.Text()
		if text == "" {
			continue
		}
		if m.Role == a2a.RoleAgent {
			messages = append(messages, openai.AssistantMessage(text))
		} else {
			messages = append(messages, openai.UserMessage(text))
		}
	}

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       p.model,
		Messages:    messages,
		Temperature: openai.Float(0),
	})
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai returned no choices")
	}
	return decodePlan(resp.Choices[0].Message.Content)
}
