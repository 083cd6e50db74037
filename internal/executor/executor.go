package executor

import (
	"context"
	"sync"

	"github.com/josephgoksu/AgentWing/models"
)

// Executor is the adapter contract over one execution backend. Start returns
// a stream of canonical events; the returned channel is closed after the
// terminal event. Cancel is a no-op returning true when the task is unknown
// or already terminal.
type Executor interface {
	// Kind identifies the backend this adapter drives.
	Kind() models.Backend

	// IsAvailable reports whether credentials/config are present. It never
	// returns an error: a missing key just makes the backend unavailable.
	IsAvailable() bool

	// Start begins executing the task and returns its event stream. The
	// context carries cancellation and timeout; the adapter propagates it
	// to the backend session and terminates the stream with a Failed
	// (cancelled) event within a bounded time.
	Start(ctx context.Context, task *models.Task) (<-chan Event, error)

	// Cancel requests cooperative cancellation of a running task.
	Cancel(taskID string) bool
}

// CancelRegistry is the single arena mapping task id to cancellation handle.
// The queue owns it and hands it to every adapter at construction, so
// cancellation lookup has one source of truth instead of one map per
// backend.
type CancelRegistry struct {
	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewCancelRegistry creates an empty registry.
func NewCancelRegistry() *CancelRegistry {
	return &CancelRegistry{cancels: make(map[string]context.CancelFunc)}
}

// Register stores the cancellation handle for a task about to run.
func (r *CancelRegistry) Register(taskID string, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancels[taskID] = cancel
}

// Cancel fires and removes the handle for taskID. It returns true even when
// the task is unknown: cancelling a finished task is a successful no-op.
func (r *CancelRegistry) Cancel(taskID string) bool {
	r.mu.Lock()
	cancel, ok := r.cancels[taskID]
	delete(r.cancels, taskID)
	r.mu.Unlock()
	if ok {
		cancel()
	}
	return true
}

// Remove drops the handle without firing it, called when a task reaches a
// terminal state on its own.
func (r *CancelRegistry) Remove(taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cancels, taskID)
}

// Active returns the number of registered handles.
func (r *CancelRegistry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cancels)
}
