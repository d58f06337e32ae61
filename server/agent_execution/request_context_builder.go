// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package agent_execution

import (
	"context"

	"github.com/go-a2a/a2a-engine"
)

// RequestContextBuilder builds the [RequestContext] handed to an [AgentExecutor].
type RequestContextBuilder interface {
	// Build creates the context for a turn of task triggered by params. params is nil for
	// a cancel request.
	Build(ctx context.Context, params *a2a.MessageSendParams, task *a2a.Task) (*RequestContext, error)
}
