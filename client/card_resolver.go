// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/go-a2a/a2a-engine"
)

// CardResolver fetches the agent card an agent publishes under its base URL.
type CardResolver struct {
	hc            *http.Client
	baseURL       string
	agentCardPath string
}

// NewCardResolver returns a resolver for the agent at baseURL. A nil hc uses
// [http.DefaultClient].
func NewCardResolver(baseURL string, hc *http.Client) *CardResolver {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &CardResolver{
		hc:            hc,
		baseURL:       strings.TrimRight(baseURL, "/"),
		agentCardPath: strings.TrimLeft(a2a.AgentCardPath, "/"),
	}
}

// GetAgentCard fetches an agent card from a path relative to the base URL. An empty
// relativeCardPath fetches the well-known card.
func (r *CardResolver) GetAgentCard(ctx context.Context, relativeCardPath string) (*a2a.AgentCard, error) {
	if relativeCardPath == "" {
		relativeCardPath = r.agentCardPath
	} else {
		relativeCardPath = strings.TrimLeft(relativeCardPath, "/")
	}
	targetURL := fmt.Sprintf("%s/%s", r.baseURL, relativeCardPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch agent card: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch agent card from %s: %s", targetURL, resp.Status)
	}

	var agentCard a2a.AgentCard
	dec := jsontext.NewDecoder(resp.Body)
	if err := json.UnmarshalDecode(dec, &agentCard); err != nil {
		return nil, fmt.Errorf("decode agent card: %w", err)
	}
	if err := agentCard.Validate(); err != nil {
		return nil, fmt.Errorf("invalid agent card from %s: %w", targetURL, err)
	}
	return &agentCard, nil
}
