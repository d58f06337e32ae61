// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package agent_execution

import (
	"github.com/go-a2a/a2a-engine"
)

// RequestContext carries everything an executor needs to serve one turn of a task.
//
// Task is a snapshot taken when the turn started, with the triggering message already in
// its history. RelatedTasks are the other tasks of the same context in creation order,
// which is the conversation state an agent keys its memory on.
type RequestContext struct {
	TaskID       string
	ContextID    string
	Message      *a2a.Message
	Task         *a2a.Task
	RelatedTasks []*a2a.Task
	Metadata     map[string]any
}

// UserInput returns the text of the triggering message.
func (rc *RequestContext) UserInput() string {
	if rc.Message == nil {
		return ""
	}
	return rc.Message.Text()
}

// Conversation returns the messages of the context in order: the history of every
// related task followed by the current task's history.
func (rc *RequestContext) Conversation() []*a2a.Message {
	var msgs []*a2a.Message
	for _, t := range rc.RelatedTasks {
		msgs = append(msgs, t.History...)
	}
	if rc.Task != nil {
		msgs = append(msgs, rc.Task.History...)
	} else if rc.Message != nil {
		msgs = append(msgs, rc.Message)
	}
	return msgs
}

// Validate checks the ids are set and consistent with the snapshot.
func (rc *RequestContext) Validate() error {
	if rc.TaskID == "" || rc.ContextID == "" {
		return a2a.NewInvalidParamsError("request context requires task id and context id")
	}
	if rc.Task != nil && (rc.Task.ID != rc.TaskID || rc.Task.ContextID != rc.ContextID) {
		return a2a.NewInvalidParamsError("request context ids do not match task %s", rc.Task.ID)
	}
	return nil
}
