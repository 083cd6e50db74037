package store

import (
	"fmt"
	"sync"

	"github.com/josephgoksu/AgentWing/models"
	"github.com/josephgoksu/AgentWing/types"
)

// MemoryStore is a map-backed TaskRepository. It is the default store for
// embedded use and the workhorse of the test suites.
type MemoryStore struct {
	mu       sync.RWMutex
	tasks    map[string]models.Task
	progress map[string]*models.ProgressData
}

// NewMemoryStore creates an empty in-memory repository.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tasks: make(map[string]models.Task)}
}

func (s *MemoryStore) Save(task models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = task
	return nil
}

func (s *MemoryStore) UpdateStatus(id string, status models.TaskStatus, taskErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("update status %s: %w", id, ErrTaskNotFound)
	}
	t.Status = status
	if taskErr != nil {
		t.Error = types.WrapError(types.CodeBackendExecution, taskErr)
	}
	s.tasks[id] = t
	return nil
}

func (s *MemoryStore) UpdateResult(id string, result string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("update result %s: %w", id, ErrTaskNotFound)
	}
	t.Result = result
	s.tasks[id] = t
	return nil
}

func (s *MemoryStore) UpdateProgressData(id string, data *models.ProgressData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return fmt.Errorf("update progress %s: %w", id, ErrTaskNotFound)
	}
	// Progress is stored alongside the task record; the memory store keeps
	// it in a side map keyed by task id.
	if s.progress == nil {
		s.progress = make(map[string]*models.ProgressData)
	}
	s.progress[id] = data
	return nil
}

func (s *MemoryStore) GetTask(id string) (models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return models.Task{}, fmt.Errorf("get task %s: %w", id, ErrTaskNotFound)
	}
	return t, nil
}

func (s *MemoryStore) ListTasks(filterFn func(models.Task) bool) ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if filterFn == nil || filterFn(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *MemoryStore) FindPending() ([]models.Task, error) {
	return s.ListTasks(func(t models.Task) bool { return t.Status == models.StatusPending })
}

func (s *MemoryStore) Close() error { return nil }

// GetProgress returns the last persisted progress snapshot for a task, or
// nil if none was written. Used by tests and the CLI.
func (s *MemoryStore) GetProgress(id string) *models.ProgressData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.progress[id]
}
