// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

// JSON-RPC method names.
const (
	MethodMessageSend   = "message/send"
	MethodMessageStream = "message/stream"
	MethodTasksGet      = "tasks/get"
	MethodTasksCancel   = "tasks/cancel"
	MethodTasksResub    = "tasks/resubscribe"
	MethodPushConfigSet = "tasks/pushNotificationConfig/set"
	MethodPushConfigGet = "tasks/pushNotificationConfig/get"
)

// Well-known HTTP paths.
const (
	AgentCardPath = "/.well-known/agent.json"
	JWKSPath      = "/.well-known/jwks.json"
)
