// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"errors"
	"fmt"
	"maps"
	"strings"
)

// Role identifies the author of a message.
type Role string

const (
	// RoleUser is a message sent by the client.
	RoleUser Role = "user"
	// RoleAgent is a message produced by the agent.
	RoleAgent Role = "agent"
)

// PartKind discriminates the content carried by a [Part].
type PartKind string

const (
	PartKindText PartKind = "text"
	PartKindData PartKind = "data"
	PartKindFile PartKind = "file"
)

// FileContent is an inline or referenced file carried by a file part.
type FileContent struct {
	Name     string `json:"name,omitzero"`
	MIMEType string `json:"mimeType,omitzero"`
	Bytes    string `json:"bytes,omitzero"`
	URI      string `json:"uri,omitzero"`
}

// Part is one piece of message or artifact content.
type Part struct {
	Kind     PartKind       `json:"kind"`
	Text     string         `json:"text,omitzero"`
	Data     map[string]any `json:"data,omitzero"`
	File     *FileContent   `json:"file,omitzero"`
	Metadata map[string]any `json:"metadata,omitzero"`
}

// NewTextPart returns a text part.
func NewTextPart(text string) Part {
	return Part{Kind: PartKindText, Text: text}
}

// NewDataPart returns a structured data part.
func NewDataPart(data map[string]any) Part {
	return Part{Kind: PartKindData, Data: data}
}

// Validate reports whether the part carries content matching its kind.
func (p Part) Validate() error {
	switch p.Kind {
	case PartKindText:
		if p.Text == "" {
			return errors.New("text part requires text")
		}
	case PartKindData:
		if p.Data == nil {
			return errors.New("data part requires data")
		}
	case PartKindFile:
		if p.File == nil || (p.File.Bytes == "" && p.File.URI == "") {
			return errors.New("file part requires bytes or uri")
		}
	default:
		return fmt.Errorf("unknown part kind %q", p.Kind)
	}
	return nil
}

func (p Part) clone() Part {
	p.Data = maps.Clone(p.Data)
	p.Metadata = maps.Clone(p.Metadata)
	if p.File != nil {
		f := *p.File
		p.File = &f
	}
	return p
}

func cloneParts(parts []Part) []Part {
	if parts == nil {
		return nil
	}
	out := make([]Part, len(parts))
	for i, p := range parts {
		out[i] = p.clone()
	}
	return out
}

// Message is a single turn of communication between a client and an agent.
type Message struct {
	Kind             EventKind      `json:"kind"`
	MessageID        string         `json:"messageId"`
	Role             Role           `json:"role"`
	Parts            []Part         `json:"parts"`
	TaskID           string         `json:"taskId,omitzero"`
	ContextID        string         `json:"contextId,omitzero"`
	ReferenceTaskIDs []string       `json:"referenceTaskIds,omitzero"`
	Metadata         map[string]any `json:"metadata,omitzero"`
}

var _ Event = (*Message)(nil)

// NewUserTextMessage returns a user message with a single text part and a fresh message id.
func NewUserTextMessage(text string) *Message {
	return &Message{
		Kind:      KindMessage,
		MessageID: NewID(),
		Role:      RoleUser,
		Parts:     []Part{NewTextPart(text)},
	}
}

// NewAgentTextMessage returns an agent message bound to the given task and context.
func NewAgentTextMessage(taskID, contextID, text string) *Message {
	return NewAgentPartsMessage(taskID, contextID, NewTextPart(text))
}

// NewAgentPartsMessage returns an agent message with the given parts.
func NewAgentPartsMessage(taskID, contextID string, parts ...Part) *Message {
	return &Message{
		Kind:      KindMessage,
		MessageID: NewID(),
		Role:      RoleAgent,
		Parts:     parts,
		TaskID:    taskID,
		ContextID: contextID,
	}
}

// GetEventKind implements [Event].
func (m *Message) GetEventKind() EventKind { return KindMessage }

// GetTaskID implements [Event].
func (m *Message) GetTaskID() string { return m.TaskID }

// Text joins the text parts of the message with newlines.
func (m *Message) Text() string {
	if m == nil {
		return ""
	}
	return PartsText(m.Parts)
}

// PartsText joins the text parts with newlines, skipping other kinds.
func PartsText(parts []Part) string {
	var texts []string
	for _, p := range parts {
		if p.Kind == PartKindText {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// Validate checks the message carries a role and at least one valid part.
func (m *Message) Validate() error {
	if m == nil {
		return errors.New("message is required")
	}
	switch m.Role {
	case RoleUser, RoleAgent:
	default:
		return fmt.Errorf("invalid message role %q", m.Role)
	}
	if len(m.Parts) == 0 {
		return errors.New("message must have at least one part")
	}
	for i, p := range m.Parts {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("part %d: %w", i, err)
		}
	}
	return nil
}

// Clone returns a deep copy of the message.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	c := *m
	c.Parts = cloneParts(m.Parts)
	if m.ReferenceTaskIDs != nil {
		c.ReferenceTaskIDs = append([]string(nil), m.ReferenceTaskIDs...)
	}
	c.Metadata = maps.Clone(m.Metadata)
	return &c
}
