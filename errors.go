// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"errors"
	"fmt"
)

// Sentinel errors matched with [errors.Is] against the typed errors below.
var (
	ErrTaskNotFound           = errors.New("task not found")
	ErrDuplicateTask          = errors.New("task already exists")
	ErrTaskBusy               = errors.New("task has an active execution")
	ErrInvalidStateTransition = errors.New("invalid task state transition")
	ErrUnsupportedOperation   = errors.New("this operation is not supported")
	ErrInvalidParams          = errors.New("invalid params")
	ErrExecution              = errors.New("agent execution failed")

	// ErrPushNotificationNotSupported is returned when no push config store is wired.
	ErrPushNotificationNotSupported = errors.New("push notifications are not supported")
)

// TaskNotFoundError is returned when a task id is unknown to the store.
type TaskNotFoundError struct {
	TaskID string
}

// NewTaskNotFoundError creates a new TaskNotFoundError.
func NewTaskNotFoundError(taskID string) TaskNotFoundError {
	return TaskNotFoundError{TaskID: taskID}
}

// Error returns the error message.
func (e TaskNotFoundError) Error() string {
	return fmt.Sprintf("task %s not found", e.TaskID)
}

// Is reports whether target is [ErrTaskNotFound].
func (e TaskNotFoundError) Is(target error) bool { return target == ErrTaskNotFound }

// DuplicateTaskError is returned when creating a task whose id already exists.
type DuplicateTaskError struct {
	TaskID string
}

// NewDuplicateTaskError creates a new DuplicateTaskError.
func NewDuplicateTaskError(taskID string) DuplicateTaskError {
	return DuplicateTaskError{TaskID: taskID}
}

// Error returns the error message.
func (e DuplicateTaskError) Error() string {
	return fmt.Sprintf("task %s already exists", e.TaskID)
}

// Is reports whether target is [ErrDuplicateTask].
func (e DuplicateTaskError) Is(target error) bool { return target == ErrDuplicateTask }

// TaskBusyError is returned when a message targets a task that already has an active
// execution.
type TaskBusyError struct {
	TaskID string
}

// NewTaskBusyError creates a new TaskBusyError.
func NewTaskBusyError(taskID string) TaskBusyError {
	return TaskBusyError{TaskID: taskID}
}

// Error returns the error message.
func (e TaskBusyError) Error() string {
	return fmt.Sprintf("task %s has an active execution", e.TaskID)
}

// Is reports whether target is [ErrTaskBusy].
func (e TaskBusyError) Is(target error) bool { return target == ErrTaskBusy }

// InvalidStateTransitionError is returned for a transition the task state machine forbids.
type InvalidStateTransitionError struct {
	TaskID string
	From   TaskState
	To     TaskState
}

// NewInvalidStateTransitionError creates a new InvalidStateTransitionError.
func NewInvalidStateTransitionError(taskID string, from, to TaskState) InvalidStateTransitionError {
	return InvalidStateTransitionError{TaskID: taskID, From: from, To: to}
}

// Error returns the error message.
func (e InvalidStateTransitionError) Error() string {
	if e.To == "" {
		return fmt.Sprintf("task %s is %s and accepts no further transitions", e.TaskID, e.From)
	}
	return fmt.Sprintf("task %s cannot move from %s to %s", e.TaskID, e.From, e.To)
}

// Is reports whether target is [ErrInvalidStateTransition].
func (e InvalidStateTransitionError) Is(target error) bool {
	return target == ErrInvalidStateTransition
}

// UnsupportedOperationError is returned by executors that do not implement an operation.
type UnsupportedOperationError struct {
	Operation string
}

// NewUnsupportedOperationError creates a new UnsupportedOperationError.
func NewUnsupportedOperationError(operation string) UnsupportedOperationError {
	return UnsupportedOperationError{Operation: operation}
}

// Error returns the error message.
func (e UnsupportedOperationError) Error() string {
	return fmt.Sprintf("%s is not supported", e.Operation)
}

// Is reports whether target is [ErrUnsupportedOperation].
func (e UnsupportedOperationError) Is(target error) bool {
	return target == ErrUnsupportedOperation
}

// InvalidParamsError is returned for malformed requests.
type InvalidParamsError struct {
	Reason string
}

// NewInvalidParamsError creates a new InvalidParamsError.
func NewInvalidParamsError(format string, args ...any) InvalidParamsError {
	return InvalidParamsError{Reason: fmt.Sprintf(format, args...)}
}

// Error returns the error message.
func (e InvalidParamsError) Error() string {
	return "invalid params: " + e.Reason
}

// Is reports whether target is [ErrInvalidParams].
func (e InvalidParamsError) Is(target error) bool { return target == ErrInvalidParams }

// ExecutionError wraps a failure raised by an agent execution. It is recorded as the
// failed status of the task and never returned to the caller of a send.
type ExecutionError struct {
	TaskID string
	Err    error
}

// NewExecutionError creates a new ExecutionError.
func NewExecutionError(taskID string, err error) ExecutionError {
	return ExecutionError{TaskID: taskID, Err: err}
}

// Error returns the error message.
func (e ExecutionError) Error() string {
	return fmt.Sprintf("execution of task %s failed: %v", e.TaskID, e.Err)
}

// Unwrap returns the underlying error.
func (e ExecutionError) Unwrap() error { return e.Err }

// Is reports whether target is [ErrExecution].
func (e ExecutionError) Is(target error) bool { return target == ErrExecution }
