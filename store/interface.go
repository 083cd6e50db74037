package store

import "github.com/josephgoksu/AgentWing/models"

// TaskRepository defines the persistence contract the queue and progress
// pipeline depend on. Task status is authoritative state: callers must not
// swallow errors from Save or UpdateStatus. UpdateProgressData is
// best-effort by design.
type TaskRepository interface {
	// Save persists a new or updated task record in full.
	Save(task models.Task) error

	// UpdateStatus transitions a task's status, optionally recording a
	// structured error for failed tasks. It returns an error if the task
	// does not exist or the write fails.
	UpdateStatus(id string, status models.TaskStatus, taskErr error) error

	// UpdateResult stores the opaque success payload for a task.
	UpdateResult(id string, result string) error

	// UpdateProgressData replaces the task's accumulated progress snapshot.
	UpdateProgressData(id string, data *models.ProgressData) error

	// GetTask retrieves a task by its unique identifier.
	GetTask(id string) (models.Task, error)

	// ListTasks retrieves all tasks, optionally filtered.
	// If filterFn is nil, all tasks are returned.
	ListTasks(filterFn func(models.Task) bool) ([]models.Task, error)

	// FindPending returns all tasks still in the pending state, used to
	// rehydrate the queue after a restart.
	FindPending() ([]models.Task, error)

	// Close releases any resources held by the store, such as file handles
	// or database connections.
	Close() error
}
