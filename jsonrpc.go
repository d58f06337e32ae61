// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"errors"
	"fmt"

	"github.com/go-json-experiment/json/jsontext"
)

// JSONRPCVersion is the value of the jsonrpc member of every message.
const JSONRPCVersion = "2.0"

// Standard JSON-RPC 2.0 error codes.
const (
	// JSONParseErrorCode indicates invalid JSON payload.
	JSONParseErrorCode = -32700
	// InvalidRequestErrorCode indicates request payload validation error.
	InvalidRequestErrorCode = -32600
	// MethodNotFoundErrorCode indicates the method does not exist.
	MethodNotFoundErrorCode = -32601
	// InvalidParamsErrorCode indicates invalid method parameters.
	InvalidParamsErrorCode = -32602
	// InternalErrorCode indicates an internal server error.
	InternalErrorCode = -32603
)

// A2A specific error codes.
const (
	// TaskNotFoundErrorCode indicates the specified task ID was not found.
	TaskNotFoundErrorCode = -32001
	// TaskNotCancelableErrorCode indicates the task is in a final state and cannot be canceled.
	TaskNotCancelableErrorCode = -32002
	// PushNotificationNotSupportedErrorCode indicates the agent does not support push notifications.
	PushNotificationNotSupportedErrorCode = -32003
	// UnsupportedOperationErrorCode indicates the requested operation is not supported.
	UnsupportedOperationErrorCode = -32004
	// TaskBusyErrorCode indicates the task already has an active execution.
	TaskBusyErrorCode = -32010
	// InvalidStateTransitionErrorCode indicates the task state does not allow the request.
	InvalidStateTransitionErrorCode = -32011
)

// JSONRPCRequest represents a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	// JSONRPC version, always "2.0".
	JSONRPC string `json:"jsonrpc"`
	// ID is a string, number or null. It is absent for notifications.
	ID jsontext.Value `json:"id,omitzero"`
	// Method identifies the operation to perform.
	Method string `json:"method"`
	// Params contains parameters for the method.
	Params jsontext.Value `json:"params,omitzero"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response. Exactly one of Result and Error
// is set.
type JSONRPCResponse struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      jsontext.Value `json:"id"`
	Result  jsontext.Value `json:"result,omitzero"`
	Error   *JSONRPCError  `json:"error,omitzero"`
}

// NullID is the id of a response to a request whose id could not be read.
var NullID = jsontext.Value("null")

// JSONRPCError represents a JSON-RPC 2.0 error.
type JSONRPCError struct {
	// Code is the error code.
	Code int `json:"code"`
	// Message is a short description of the error.
	Message string `json:"message"`
	// Data contains optional additional error details.
	Data any `json:"data,omitzero"`
}

var _ error = (*JSONRPCError)(nil)

// Error implements error.
func (e *JSONRPCError) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("rpc error: code = %d, message = %s, data = %v", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error: code = %d, message = %s", e.Code, e.Message)
}

// Is maps the A2A error codes back to the sentinel errors of this package, so a client
// can match a remote failure with [errors.Is].
func (e *JSONRPCError) Is(target error) bool {
	switch e.Code {
	case TaskNotFoundErrorCode:
		return target == ErrTaskNotFound
	case TaskNotCancelableErrorCode, InvalidStateTransitionErrorCode:
		return target == ErrInvalidStateTransition
	case PushNotificationNotSupportedErrorCode:
		return target == ErrPushNotificationNotSupported
	case UnsupportedOperationErrorCode:
		return target == ErrUnsupportedOperation
	case TaskBusyErrorCode:
		return target == ErrTaskBusy
	case InvalidParamsErrorCode:
		return target == ErrInvalidParams
	}
	return false
}

// NewJSONRPCError returns the error with the given code.
func NewJSONRPCError(code int, message string) *JSONRPCError {
	return &JSONRPCError{Code: code, Message: message}
}

// JSONRPCErrorFor converts an error returned while serving method into the wire error.
// A request to cancel a task whose state forbids it is reported as not cancelable.
// Unknown errors become internal errors.
func JSONRPCErrorFor(method string, err error) *JSONRPCError {
	var rpcErr *JSONRPCError
	if errors.As(err, &rpcErr) {
		return rpcErr
	}

	code := InternalErrorCode
	switch {
	case errors.Is(err, ErrTaskNotFound):
		code = TaskNotFoundErrorCode
	case errors.Is(err, ErrInvalidStateTransition):
		code = InvalidStateTransitionErrorCode
		if method == MethodTasksCancel {
			code = TaskNotCancelableErrorCode
		}
	case errors.Is(err, ErrPushNotificationNotSupported):
		code = PushNotificationNotSupportedErrorCode
	case errors.Is(err, ErrUnsupportedOperation):
		code = UnsupportedOperationErrorCode
	case errors.Is(err, ErrTaskBusy):
		code = TaskBusyErrorCode
	case errors.Is(err, ErrInvalidParams):
		code = InvalidParamsErrorCode
	}
	return &JSONRPCError{Code: code, Message: err.Error()}
}
