// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package hello implements the smallest useful agent: it answers every message with a
// greeting.
package hello

import (
	"context"

	"github.com/go-a2a/a2a-engine"
	"github.com/go-a2a/a2a-engine/server/agent_execution"
)

// Greeting is the reply of the agent.
const Greeting = "Hello welcome to the beautiful world"

// Executor replies with [Greeting].
type Executor struct{}

var _ agent_execution.AgentExecutor = Executor{}

// Execute implements [agent_execution.AgentExecutor].
func (Executor) Execute(ctx context.Context, rc *agent_execution.RequestContext, queue agent_execution.EventQueue) error {
	return queue.EnqueueEvent(ctx, a2a.NewAgentTextMessage(rc.TaskID, rc.ContextID, Greeting))
}

// Cancel implements [agent_execution.AgentExecutor].
func (Executor) Cancel(context.Context, *agent_execution.RequestContext, agent_execution.EventQueue) error {
	return a2a.NewUnsupportedOperationError("cancel")
}

// Card returns the agent card of a hello agent served at url.
func Card(url string) *a2a.AgentCard {
	return &a2a.AgentCard{
		Name:               "Hello World Agent",
		Description:        "Just a hello world agent",
		URL:                url,
		Version:            "1.0.0",
		DefaultInputModes:  []string{"text"},
		DefaultOutputModes: []string{"text"},
		Skills: []a2a.AgentSkill{{
			ID:          "hello_world",
			Name:        "Returns hello world",
			Description: "just returns hello world",
			Tags:        []string{"hello world"},
			Examples:    []string{"hi", "hello world"},
		}},
	}
}
