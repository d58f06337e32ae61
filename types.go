// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"errors"
	"fmt"
	"net/url"
)

// AgentCapabilities lists optional protocol features an agent supports.
type AgentCapabilities struct {
	Streaming              bool `json:"streaming,omitzero"`
	PushNotifications      bool `json:"pushNotifications,omitzero"`
	StateTransitionHistory bool `json:"stateTransitionHistory,omitzero"`
}

// AgentSkill describes one capability advertised on an [AgentCard].
type AgentSkill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitzero"`
	Tags        []string `json:"tags,omitzero"`
	Examples    []string `json:"examples,omitzero"`
}

// AgentCard is the self-description an agent publishes at [AgentCardPath].
type AgentCard struct {
	Name               string            `json:"name"`
	Description        string            `json:"description,omitzero"`
	URL                string            `json:"url"`
	Version            string            `json:"version"`
	ProtocolVersion    string            `json:"protocolVersion,omitzero"`
	DefaultInputModes  []string          `json:"defaultInputModes"`
	DefaultOutputModes []string          `json:"defaultOutputModes"`
	Capabilities       AgentCapabilities `json:"capabilities"`
	Skills             []AgentSkill      `json:"skills"`
}

// Validate checks the required card fields.
func (c *AgentCard) Validate() error {
	var errs []error
	if c.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if c.Version == "" {
		errs = append(errs, errors.New("version is required"))
	}
	if _, err := url.ParseRequestURI(c.URL); err != nil {
		errs = append(errs, fmt.Errorf("url: %w", err))
	}
	for i, s := range c.Skills {
		if s.ID == "" || s.Name == "" {
			errs = append(errs, fmt.Errorf("skill %d requires id and name", i))
		}
	}
	return errors.Join(errs...)
}

// PushNotificationConfig is a client-registered webhook that receives task status changes.
type PushNotificationConfig struct {
	ID    string `json:"id,omitzero"`
	URL   string `json:"url"`
	Token string `json:"token,omitzero"`
}

// Validate checks the webhook url is absolute http(s).
func (c *PushNotificationConfig) Validate() error {
	u, err := url.Parse(c.URL)
	if err != nil {
		return NewInvalidParamsError("push notification url: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return NewInvalidParamsError("push notification url %q must be absolute http(s)", c.URL)
	}
	return nil
}

// TaskPushNotificationConfig binds a [PushNotificationConfig] to a task.
type TaskPushNotificationConfig struct {
	TaskID                 string                 `json:"taskId"`
	PushNotificationConfig PushNotificationConfig `json:"pushNotificationConfig"`
}

// MessageSendConfiguration tunes a message send.
type MessageSendConfiguration struct {
	// Blocking, when explicitly false, returns as soon as the execution has started.
	Blocking               *bool                   `json:"blocking,omitzero"`
	HistoryLength          int                     `json:"historyLength,omitzero"`
	AcceptedOutputModes    []string                `json:"acceptedOutputModes,omitzero"`
	PushNotificationConfig *PushNotificationConfig `json:"pushNotificationConfig,omitzero"`
}

// MessageSendParams are the params of message/send and message/stream.
type MessageSendParams struct {
	Message       *Message                  `json:"message"`
	Configuration *MessageSendConfiguration `json:"configuration,omitzero"`
	Metadata      map[string]any            `json:"metadata,omitzero"`
}

// IsBlocking reports whether the caller waits for the execution to finish.
func (p *MessageSendParams) IsBlocking() bool {
	if p.Configuration == nil || p.Configuration.Blocking == nil {
		return true
	}
	return *p.Configuration.Blocking
}

// HistoryLength returns the requested history length, zero meaning all.
func (p *MessageSendParams) HistoryLength() int {
	if p.Configuration == nil {
		return 0
	}
	return p.Configuration.HistoryLength
}

// TaskQueryParams are the params of tasks/get.
type TaskQueryParams struct {
	ID            string `json:"id"`
	HistoryLength int    `json:"historyLength,omitzero"`
}

// TaskIDParams are the params of tasks/cancel, tasks/resubscribe and
// tasks/pushNotificationConfig/get.
type TaskIDParams struct {
	ID string `json:"id"`
}
