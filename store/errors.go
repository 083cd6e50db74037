package store

import "errors"

// ErrTaskNotFound is returned when a task id has no record.
var ErrTaskNotFound = errors.New("task not found")
