// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package a2a defines the data model of the Agent-to-Agent (A2A) protocol used by the
// task-lifecycle engine: messages, tasks and their state machine, artifacts, the events
// exchanged between an agent execution and its callers, and the agent card.
//
// The server side lives under server/, the JSON-RPC transport under transport/ and a
// client under client/.
package a2a

import "github.com/google/uuid"

// Version is the version of this module's A2A implementation.
const Version = "0.2.0"

// ProtocolVersion is the A2A protocol version spoken on the wire.
const ProtocolVersion = "0.2.5"

// NewID returns a new random identifier for tasks, contexts, messages and artifacts.
func NewID() string {
	return uuid.NewString()
}
