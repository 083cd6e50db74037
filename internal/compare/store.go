package compare

import (
	"fmt"
	"sort"
	"sync"

	"github.com/josephgoksu/AgentWing/models"
	"github.com/josephgoksu/AgentWing/store"
)

// Store persists comparison records. Narrower than the task repository; an
// in-memory implementation is provided and an HTTP layer can bring its own.
type Store interface {
	Save(ct models.CompareTask) error
	Get(id string) (models.CompareTask, error)
	List() ([]models.CompareTask, error)
}

// MemoryStore is a mutex-guarded in-memory Store.
type MemoryStore struct {
	mu    sync.RWMutex
	tasks map[string]models.CompareTask
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tasks: make(map[string]models.CompareTask)}
}

// Save inserts or replaces the record.
func (s *MemoryStore) Save(ct models.CompareTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[ct.ID] = ct
	return nil
}

// Get returns the record by id.
func (s *MemoryStore) Get(id string) (models.CompareTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ct, ok := s.tasks[id]
	if !ok {
		return models.CompareTask{}, fmt.Errorf("get compare task %s: %w", id, store.ErrTaskNotFound)
	}
	return ct, nil
}

// List returns all records, newest first.
func (s *MemoryStore) List() ([]models.CompareTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.CompareTask, 0, len(s.tasks))
	for _, ct := range s.tasks {
		out = append(out, ct)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
