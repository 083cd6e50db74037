// Package progress folds the canonical event stream of each task into its
// durable ProgressData and replicates every update outward.
package progress

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/josephgoksu/AgentWing/internal/broadcast"
	"github.com/josephgoksu/AgentWing/internal/executor"
	"github.com/josephgoksu/AgentWing/models"
	"github.com/josephgoksu/AgentWing/store"
)

// Pipeline consumes events one at a time per task, in emission order, and
// keeps one ProgressData accumulator per task id. Persistence and broadcast
// are best-effort side effects of each fold step; a repository error never
// interrupts event processing.
type Pipeline struct {
	mu      sync.Mutex
	folds   map[string]*fold
	repo    store.TaskRepository
	bus     broadcast.Broadcaster
	maxTurn int
}

// fold is the per-task accumulator plus its private pending-tool list.
// Nothing outside one task's event stream touches it, so it needs no lock of
// its own.
type fold struct {
	data *models.ProgressData
	// pending holds indices into data.ToolExecutions for tool starts whose
	// end has not arrived yet, in arrival order.
	pending []int
}

// New creates a pipeline writing through repo and broadcasting on bus. A nil
// bus disables broadcasting.
func New(repo store.TaskRepository, bus broadcast.Broadcaster) *Pipeline {
	if bus == nil {
		bus = broadcast.Nop{}
	}
	return &Pipeline{
		folds: make(map[string]*fold),
		repo:  repo,
		bus:   bus,
	}
}

// Get returns a deep-enough copy of the accumulator for a task, or nil when
// the task has produced no events.
func (p *Pipeline) Get(taskID string) *models.ProgressData {
	p.mu.Lock()
	defer p.mu.Unlock()
	f, ok := p.folds[taskID]
	if !ok {
		return nil
	}
	return snapshot(f.data)
}

// Forget drops the accumulator for a task whose record was deleted.
func (p *Pipeline) Forget(taskID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.folds, taskID)
}

// Consume applies one event to the task's accumulator. Called once per event
// in emission order; missing fields degrade to zero values instead of
// failing the fold.
func (p *Pipeline) Consume(taskID string, ev executor.Event) {
	p.mu.Lock()
	f, ok := p.folds[taskID]
	if !ok {
		f = &fold{data: models.NewProgressData()}
		p.folds[taskID] = f
	}

	line := p.apply(f, ev)
	if line != "" {
		f.data.Log = append(f.data.Log, line)
	}
	f.data.UpdatedAt = time.Now()
	data := snapshot(f.data)
	p.mu.Unlock()

	// Progress durability is best-effort, not transactional with execution.
	if err := p.repo.UpdateProgressData(taskID, data); err != nil {
		slog.Warn("persist progress", "task", taskID, "error", err)
	}
	p.bus.Publish(taskID, string(ev.Type), payloadFor(ev, data))
}

// apply mutates the accumulator per the event variant and returns the
// formatted log line for plain-text consumers.
func (p *Pipeline) apply(f *fold, ev executor.Event) string {
	d := f.data
	switch ev.Type {
	case executor.EventStart:
		return fmt.Sprintf("[start] backend=%s", orUnknown(string(ev.Backend)))

	case executor.EventProgress:
		if ev.Message == "" {
			return ""
		}
		return fmt.Sprintf("[progress] %s", ev.Message)

	case executor.EventToolStart:
		if d.ToolUsage == nil {
			d.ToolUsage = make(map[string]int)
		}
		d.ToolUsage[ev.Tool]++
		d.ToolExecutions = append(d.ToolExecutions, models.ToolExecution{
			Tool:      ev.Tool,
			ToolID:    ev.ToolID,
			Input:     ev.Input,
			StartedAt: ev.Timestamp,
		})
		f.pending = append(f.pending, len(d.ToolExecutions)-1)
		return fmt.Sprintf("[tool] %s started", orUnknown(ev.Tool))

	case executor.EventToolEnd:
		idx, ok := f.resolvePending(ev)
		if ok {
			rec := &d.ToolExecutions[idx]
			rec.Output = ev.Output
			rec.Error = ev.ToolError
			rec.Success = ev.Success
			rec.Completed = true
			rec.DurationMs = ev.DurationMs
			if rec.ToolID == "" {
				rec.ToolID = ev.ToolID
			}
		} else {
			// End without a matching start (replay or an adapter that only
			// reports completions): append a standalone completed record.
			d.ToolExecutions = append(d.ToolExecutions, models.ToolExecution{
				Tool:       ev.Tool,
				ToolID:     ev.ToolID,
				Output:     ev.Output,
				Error:      ev.ToolError,
				Success:    ev.Success,
				Completed:  true,
				StartedAt:  ev.Timestamp,
				DurationMs: ev.DurationMs,
			})
		}
		outcome := "ok"
		if !ev.Success {
			outcome = "error"
		}
		return fmt.Sprintf("[tool] %s finished (%s, %dms)", orUnknown(ev.Tool), outcome, ev.DurationMs)

	case executor.EventResponse:
		d.Responses = append(d.Responses, models.ResponseEntry{
			Text:       ev.Text,
			TurnNumber: ev.TurnNumber,
			At:         ev.Timestamp,
		})
		if ev.TurnNumber > 0 {
			d.CurrentTurn++
		}
		return fmt.Sprintf("[response] turn=%d %s", ev.TurnNumber, truncate(ev.Text, 120))

	case executor.EventStatistics:
		mergeStats(d, ev.Stats)
		return fmt.Sprintf("[stats] turns=%d toolCalls=%d", d.Stats.TotalTurns, d.Stats.TotalToolCalls)

	case executor.EventCompleted:
		return fmt.Sprintf("[completed] %dms", ev.DurationMs)

	case executor.EventFailed:
		msg := "unknown"
		if ev.Err != nil {
			msg = ev.Err.Message
		}
		return fmt.Sprintf("[failed] %s", msg)
	}
	return ""
}

// resolvePending finds the pending tool record matched by a ToolEnd: by
// toolId when the adapter supplies one, else the oldest pending record with
// the same tool name. The matched index is removed from the pending list.
func (f *fold) resolvePending(ev executor.Event) (int, bool) {
	for i, idx := range f.pending {
		rec := f.data.ToolExecutions[idx]
		if ev.ToolID != "" && rec.ToolID == ev.ToolID {
			f.pending = append(f.pending[:i], f.pending[i+1:]...)
			return idx, true
		}
	}
	if ev.ToolID != "" {
		return 0, false
	}
	for i, idx := range f.pending {
		if f.data.ToolExecutions[idx].Tool == ev.Tool {
			f.pending = append(f.pending[:i], f.pending[i+1:]...)
			return idx, true
		}
	}
	return 0, false
}

// mergeStats overwrites the running snapshot field-wise; zero fields in the
// incoming snapshot leave the running value alone.
func mergeStats(d *models.ProgressData, s *executor.Statistics) {
	if s == nil {
		return
	}
	if s.TotalTurns > 0 {
		d.Stats.TotalTurns = s.TotalTurns
	}
	if s.TotalToolCalls > 0 {
		d.Stats.TotalToolCalls = s.TotalToolCalls
	}
	if s.TokenUsage != nil {
		d.Stats.TokenUsage = &models.TokenUsage{
			PromptTokens:     s.TokenUsage.PromptTokens,
			CompletionTokens: s.TokenUsage.CompletionTokens,
			TotalTokens:      s.TokenUsage.TotalTokens,
		}
	}
	for tool, n := range s.ToolStats {
		if d.ToolUsage == nil {
			d.ToolUsage = make(map[string]int)
		}
		if n > d.ToolUsage[tool] {
			d.ToolUsage[tool] = n
		}
	}
}

// payloadFor builds the self-contained broadcast payload: the incremental
// fact of this event plus the updated accumulator.
func payloadFor(ev executor.Event, data *models.ProgressData) map[string]any {
	payload := map[string]any{
		"type":      string(ev.Type),
		"timestamp": ev.Timestamp,
		"progress":  data,
	}
	switch ev.Type {
	case executor.EventStart:
		payload["backend"] = string(ev.Backend)
	case executor.EventProgress:
		payload["message"] = ev.Message
	case executor.EventToolStart:
		payload["tool"] = ev.Tool
		payload["toolId"] = ev.ToolID
	case executor.EventToolEnd:
		payload["tool"] = ev.Tool
		payload["toolId"] = ev.ToolID
		payload["success"] = ev.Success
		payload["output"] = ev.Output
	case executor.EventResponse:
		payload["text"] = ev.Text
		payload["turn"] = ev.TurnNumber
	case executor.EventCompleted:
		payload["result"] = ev.Result
	case executor.EventFailed:
		if ev.Err != nil {
			payload["error"] = ev.Err
		}
	}
	return payload
}

func snapshot(d *models.ProgressData) *models.ProgressData {
	cp := *d
	cp.ToolUsage = make(map[string]int, len(d.ToolUsage))
	for k, v := range d.ToolUsage {
		cp.ToolUsage[k] = v
	}
	cp.ToolExecutions = append([]models.ToolExecution(nil), d.ToolExecutions...)
	cp.Responses = append([]models.ResponseEntry(nil), d.Responses...)
	cp.Todos = append([]models.TodoItem(nil), d.Todos...)
	cp.Log = append([]string(nil), d.Log...)
	if d.Stats.TokenUsage != nil {
		usage := *d.Stats.TokenUsage
		cp.Stats.TokenUsage = &usage
	}
	return &cp
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
