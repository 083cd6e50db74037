/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package types

import (
	"errors"
	"fmt"
)

// Error codes for task and comparison failures. Admission-control codes are
// returned synchronously; execution codes end up on the task record.
const (
	CodeBackendUnavailable  = "BACKEND_UNAVAILABLE"
	CodeBackendExecution    = "BACKEND_EXECUTION_ERROR"
	CodeCancelled           = "CANCELLED"
	CodeRepositoryNotFound  = "REPOSITORY_NOT_FOUND"
	CodeTooManyCompareTasks = "TOO_MANY_COMPARE_TASKS"
	CodeWorkspaceAllocation = "WORKSPACE_ALLOCATION"
)

// TaskError provides structured error information for task records and API
// responses.
type TaskError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewTaskError creates a new structured task error
func NewTaskError(code string, message string, details map[string]interface{}) *TaskError {
	return &TaskError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// WrapError converts an arbitrary error into a TaskError, preserving an
// existing one unchanged.
func WrapError(code string, err error) *TaskError {
	if err == nil {
		return nil
	}
	var te *TaskError
	if errors.As(err, &te) {
		return te
	}
	return &TaskError{Code: code, Message: err.Error()}
}

// IsCode reports whether err is a TaskError with the given code.
func IsCode(err error, code string) bool {
	var te *TaskError
	return errors.As(err, &te) && te.Code == code
}
