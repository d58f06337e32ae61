// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import "fmt"

// TaskStoreError represents a backend failure of a task store.
type TaskStoreError struct {
	Operation string
	TaskID    string
	Err       error
}

// NewTaskStoreError creates a new TaskStoreError.
func NewTaskStoreError(operation, taskID string, err error) TaskStoreError {
	return TaskStoreError{
		Operation: operation,
		TaskID:    taskID,
		Err:       err,
	}
}

// Error returns the error message.
func (e TaskStoreError) Error() string {
	return fmt.Sprintf("task store %s operation failed for task %s: %v", e.Operation, e.TaskID, e.Err)
}

// Unwrap returns the underlying error.
func (e TaskStoreError) Unwrap() error {
	return e.Err
}

// TaskUpdaterError represents a failure to publish an update for a task.
type TaskUpdaterError struct {
	Operation string
	TaskID    string
	Err       error
}

// NewTaskUpdaterError creates a new TaskUpdaterError.
func NewTaskUpdaterError(operation, taskID string, err error) TaskUpdaterError {
	return TaskUpdaterError{
		Operation: operation,
		TaskID:    taskID,
		Err:       err,
	}
}

// Error returns the error message.
func (e TaskUpdaterError) Error() string {
	return fmt.Sprintf("task updater %s operation failed for task %s: %v", e.Operation, e.TaskID, e.Err)
}

// Unwrap returns the underlying error.
func (e TaskUpdaterError) Unwrap() error {
	return e.Err
}
