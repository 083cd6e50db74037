package executor

import (
	"github.com/josephgoksu/AgentWing/models"
	"github.com/josephgoksu/AgentWing/types"
)

// Registry maps backend ids to their executor adapters and resolves the
// default backend for tasks that do not pin one.
type Registry struct {
	executors      map[models.Backend]Executor
	defaultBackend models.Backend
}

// NewRegistry builds the three stock adapters from backend config. Tests
// swap adapters in with Register.
func NewRegistry(cfg types.BackendsConfig, defaultBackend models.Backend, cancels *CancelRegistry) *Registry {
	r := &Registry{
		executors:      make(map[models.Backend]Executor, 3),
		defaultBackend: defaultBackend,
	}
	r.Register(NewClaudeExecutor(cfg.Claude, cancels))
	r.Register(NewCodexExecutor(cfg.Codex, cancels))
	r.Register(NewGeminiExecutor(cfg.Gemini, cancels))
	return r
}

// NewEmptyRegistry creates a registry with no adapters, for tests.
func NewEmptyRegistry(defaultBackend models.Backend) *Registry {
	return &Registry{
		executors:      make(map[models.Backend]Executor),
		defaultBackend: defaultBackend,
	}
}

// Register adds or replaces the adapter for its backend.
func (r *Registry) Register(e Executor) {
	r.executors[e.Kind()] = e
}

// Get returns the adapter for a backend.
func (r *Registry) Get(b models.Backend) (Executor, bool) {
	e, ok := r.executors[b]
	return e, ok
}

// ForTask resolves the adapter for a task, falling back to the default
// backend when options do not pin one.
func (r *Registry) ForTask(t *models.Task) (Executor, bool) {
	b := t.Options.Backend
	if b == "" {
		b = r.defaultBackend
	}
	return r.Get(b)
}

// Available returns the backends whose adapters report credentials present,
// in canonical order.
func (r *Registry) Available() []models.Backend {
	var out []models.Backend
	for _, b := range models.AllBackends {
		if e, ok := r.executors[b]; ok && e.IsAvailable() {
			out = append(out, b)
		}
	}
	return out
}
