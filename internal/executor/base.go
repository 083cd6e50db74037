package executor

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/components/model"

	"github.com/josephgoksu/AgentWing/models"
	"github.com/josephgoksu/AgentWing/types"
)

// base carries the state and behavior shared by all adapters: lazy session
// construction, availability, and the Start/Cancel plumbing. Each concrete
// adapter owns exactly one backend session; at most one execution per task
// id is running at any time (enforced by the queue).
type base struct {
	kind         models.Backend
	cfg          types.BackendConfig
	cancels      *CancelRegistry
	systemPrompt string

	mu      sync.Mutex
	session model.BaseChatModel
}

func (b *base) Kind() models.Backend { return b.kind }

// IsAvailable reads the externally supplied backend config. A missing
// credential makes the backend unavailable but never errors.
func (b *base) IsAvailable() bool { return b.cfg.APIKey != "" }

// Cancel delegates to the shared cancellation arena.
func (b *base) Cancel(taskID string) bool { return b.cancels.Cancel(taskID) }

// chatModel returns the memoized backend session, constructing it on first
// use. Construction errors are not memoized so a transient failure does not
// poison the adapter.
func (b *base) chatModel(ctx context.Context) (model.BaseChatModel, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session != nil {
		return b.session, nil
	}
	cm, err := newChatModel(ctx, b.kind, b.cfg)
	if err != nil {
		return nil, err
	}
	b.session = cm
	return cm, nil
}

// Start launches the translation goroutine and returns its event stream.
func (b *base) Start(ctx context.Context, task *models.Task) (<-chan Event, error) {
	if !b.IsAvailable() {
		return nil, types.NewTaskError(types.CodeBackendUnavailable,
			fmt.Sprintf("%s backend is not configured", b.kind), nil)
	}
	events := make(chan Event, 64)
	go b.run(ctx, task, events)
	return events, nil
}
