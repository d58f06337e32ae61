// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package currency

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/go-a2a/a2a-engine"
)

// AnthropicPlanner plans with the Anthropic Messages API.
type AnthropicPlanner struct {
	client    *anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

var _ Planner = (*AnthropicPlanner)(nil)

// NewAnthropicPlanner returns a planner using model. Extra opts are passed to the SDK
// client.
func NewAnthropicPlanner(apiKey, model string, opts ...option.RequestOption) *AnthropicPlanner {
	m := anthropic.Model(model)
	if model == "" {
		m = anthropic.ModelClaude3_5Sonnet20241022
	}
	client := anthropic.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &AnthropicPlanner{client: &client, model: m, maxTokens: 1024}
}

// Plan implements [Planner].
func (p *AnthropicPlanner) Plan(ctx context.Context, conversation []*a2a.Message) (*Plan, error) {
	var messages []anthropic.MessageParam
	for _, m := range conversation {
		text := m.Text()
		if text == "" {
			continue
		}
		if m.Role == a2a.RoleAgent {
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(text)))
		} else {
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(text)))
		}
	}
	if len(messages) == 0 {
		return nil, errors.New("conversation has no text")
	}

	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: p.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: systemInstruction}},
		Messages:  messages,
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic api error: %w", err)
	}

	var reply strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			reply.WriteString(block.AsText().Text)
		}
	}
	if reply.Len() == 0 {
		return nil, errors.New("anthropic returned no text")
	}
	return decodePlan(reply.String())
}
