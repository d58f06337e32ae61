// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package agent_execution

import (
	"context"
	"fmt"

	"github.com/go-a2a/a2a-engine"
)

// ContextLister lists the tasks of a context. task.TaskStore satisfies it.
type ContextLister interface {
	ListByContext(ctx context.Context, contextID string) ([]*a2a.Task, error)
}

// SimpleRequestContextBuilder is the default [RequestContextBuilder]. With a lister it
// populates RelatedTasks from the tasks of the same context.
type SimpleRequestContextBuilder struct {
	lister ContextLister
}

var _ RequestContextBuilder = (*SimpleRequestContextBuilder)(nil)

// NewSimpleRequestContextBuilder returns a builder. A nil lister leaves RelatedTasks empty.
func NewSimpleRequestContextBuilder(lister ContextLister) *SimpleRequestContextBuilder {
	return &SimpleRequestContextBuilder{lister: lister}
}

// Build implements [RequestContextBuilder].
func (b *SimpleRequestContextBuilder) Build(ctx context.Context, params *a2a.MessageSendParams, task *a2a.Task) (*RequestContext, error) {
	if task == nil {
		return nil, a2a.NewInvalidParamsError("request context requires a task")
	}

	rc := &RequestContext{
		TaskID:    task.ID,
		ContextID: task.ContextID,
		Task:      task,
	}
	if params != nil {
		rc.Message = params.Message
		rc.Metadata = params.Metadata
	}

	if b.lister != nil {
		tasks, err := b.lister.ListByContext(ctx, task.ContextID)
		if err != nil {
			return nil, fmt.Errorf("list related tasks of context %s: %w", task.ContextID, err)
		}
		for _, t := range tasks {
			if t.ID != task.ID {
				rc.RelatedTasks = append(rc.RelatedTasks, t)
			}
		}
	}

	if err := rc.Validate(); err != nil {
		return nil, err
	}
	return rc, nil
}
