package progress

import (
	"sync"
	"testing"

	"github.com/josephgoksu/AgentWing/internal/broadcast"
	"github.com/josephgoksu/AgentWing/internal/executor"
	"github.com/josephgoksu/AgentWing/models"
	"github.com/josephgoksu/AgentWing/store"
	"github.com/josephgoksu/AgentWing/types"
)

// recordingBus captures published notifications.
type recordingBus struct {
	mu        sync.Mutex
	published []broadcast.Notification
}

func (b *recordingBus) Publish(channelID, eventName string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, broadcast.Notification{
		ChannelID: channelID,
		Event:     eventName,
		Payload:   payload,
	})
}

func (b *recordingBus) all() []broadcast.Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]broadcast.Notification, len(b.published))
	copy(out, b.published)
	return out
}

func newPipelineFixture() (*Pipeline, *store.MemoryStore, *recordingBus) {
	repo := store.NewMemoryStore()
	bus := &recordingBus{}
	return New(repo, bus), repo, bus
}

func TestPipelineToolPairingByID(t *testing.T) {
	p, _, _ := newPipelineFixture()
	const id = "task-1"

	p.Consume(id, executor.StartEvent(models.BackendClaude))
	p.Consume(id, executor.ToolStartEvent("read_file", "call_1", `{"path":"a.go"}`))
	p.Consume(id, executor.ToolStartEvent("read_file", "call_2", `{"path":"b.go"}`))
	p.Consume(id, executor.ToolEndEvent("read_file", "call_2", "contents of b", "", 40, true))

	data := p.Get(id)
	if data == nil {
		t.Fatal("no progress data")
	}
	if len(data.ToolExecutions) != 2 {
		t.Fatalf("tool executions = %d, want 2", len(data.ToolExecutions))
	}
	if data.ToolExecutions[0].Completed {
		t.Error("call_1 resolved by call_2's end event")
	}
	second := data.ToolExecutions[1]
	if !second.Completed || second.Output != "contents of b" || second.DurationMs != 40 {
		t.Fatalf("call_2 record = %+v", second)
	}
	if data.ToolUsage["read_file"] != 2 {
		t.Fatalf("toolUsage[read_file] = %d, want 2", data.ToolUsage["read_file"])
	}
}

func TestPipelineToolPairingFallsBackToOldestByName(t *testing.T) {
	p, _, _ := newPipelineFixture()
	const id = "task-1"

	// Adapter without stable tool-call ids.
	p.Consume(id, executor.ToolStartEvent("grep", "", "first"))
	p.Consume(id, executor.ToolStartEvent("grep", "", "second"))
	p.Consume(id, executor.ToolEndEvent("grep", "", "hit", "", 10, true))

	data := p.Get(id)
	if !data.ToolExecutions[0].Completed {
		t.Error("oldest pending grep not resolved")
	}
	if data.ToolExecutions[1].Completed {
		t.Error("newer pending grep resolved out of order")
	}
}

func TestPipelineToolEndWithoutStartAppendsRecord(t *testing.T) {
	p, _, _ := newPipelineFixture()
	const id = "task-1"

	end := executor.ToolEndEvent("write_file", "call_9", "ok", "", 15, true)
	p.Consume(id, end)
	p.Consume(id, end) // replay: at-least-once delivery

	data := p.Get(id)
	if len(data.ToolExecutions) != 2 {
		t.Fatalf("tool executions = %d, want 2 standalone records", len(data.ToolExecutions))
	}
	// Replay appends records but never drifts the statistics counter.
	if data.Stats.TotalToolCalls != 0 {
		t.Fatalf("totalToolCalls = %d, want 0 without a statistics event", data.Stats.TotalToolCalls)
	}
}

func TestPipelineResponsesAndTurns(t *testing.T) {
	p, _, _ := newPipelineFixture()
	const id = "task-1"

	p.Consume(id, executor.ResponseEvent("thinking about it", 1))
	p.Consume(id, executor.ResponseEvent("here is the answer", 2))
	p.Consume(id, executor.ResponseEvent("unnumbered aside", 0))

	data := p.Get(id)
	if len(data.Responses) != 3 {
		t.Fatalf("responses = %d, want 3", len(data.Responses))
	}
	if data.CurrentTurn != 2 {
		t.Fatalf("currentTurn = %d, want 2 (unnumbered response does not count)", data.CurrentTurn)
	}
}

func TestPipelineStatisticsMerge(t *testing.T) {
	p, _, _ := newPipelineFixture()
	const id = "task-1"

	p.Consume(id, executor.StatisticsEvent(&executor.Statistics{
		TotalTurns: 2,
		TokenUsage: &models.TokenUsage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150},
	}))
	// Partial snapshot: zero fields must not clobber earlier values.
	p.Consume(id, executor.StatisticsEvent(&executor.Statistics{TotalToolCalls: 7}))

	data := p.Get(id)
	if data.Stats.TotalTurns != 2 {
		t.Fatalf("totalTurns = %d, want 2", data.Stats.TotalTurns)
	}
	if data.Stats.TotalToolCalls != 7 {
		t.Fatalf("totalToolCalls = %d, want 7", data.Stats.TotalToolCalls)
	}
	if data.Stats.TokenUsage == nil || data.Stats.TokenUsage.TotalTokens != 150 {
		t.Fatalf("tokenUsage = %+v, want 150 total", data.Stats.TokenUsage)
	}
}

func TestPipelinePersistsAndBroadcastsEveryEvent(t *testing.T) {
	p, repo, bus := newPipelineFixture()
	task := models.NewTask("x", models.TaskOptions{Backend: models.BackendClaude})
	if err := repo.Save(*task); err != nil {
		t.Fatalf("Save: %v", err)
	}
	id := task.ID

	events := []executor.Event{
		executor.StartEvent(models.BackendClaude),
		executor.ToolStartEvent("bash", "c1", "ls"),
		executor.ToolEndEvent("bash", "c1", "files", "", 5, true),
		executor.CompletedEvent("done", "sess", 100),
	}
	for _, ev := range events {
		p.Consume(id, ev)
	}

	published := bus.all()
	if len(published) != len(events) {
		t.Fatalf("published %d notifications, want %d", len(published), len(events))
	}
	for i, ev := range events {
		if published[i].ChannelID != id {
			t.Fatalf("notification %d channel = %s", i, published[i].ChannelID)
		}
		if published[i].Event != string(ev.Type) {
			t.Fatalf("notification %d event = %s, want %s", i, published[i].Event, ev.Type)
		}
	}
	if len(p.Get(id).Log) != len(events) {
		t.Fatalf("log lines = %d, want %d", len(p.Get(id).Log), len(events))
	}
	persisted := repo.GetProgress(id)
	if persisted == nil || len(persisted.ToolExecutions) != 1 {
		t.Fatalf("persisted progress = %+v, want 1 tool execution", persisted)
	}
}

func TestPipelinePersistenceErrorDoesNotInterrupt(t *testing.T) {
	// UpdateProgressData on an unknown task errors in the memory store;
	// consumption must carry on regardless.
	p, _, bus := newPipelineFixture()
	const id = "ghost-task"

	p.Consume(id, executor.StartEvent(models.BackendGemini))
	p.Consume(id, executor.FailedEvent(types.NewTaskError(types.CodeBackendExecution, "boom", nil)))

	if got := p.Get(id); got == nil || len(got.Log) != 2 {
		t.Fatalf("fold interrupted by persistence error: %+v", got)
	}
	if len(bus.all()) != 2 {
		t.Fatalf("broadcasts = %d, want 2", len(bus.all()))
	}
}

func TestPipelineForget(t *testing.T) {
	p, _, _ := newPipelineFixture()
	p.Consume("task-1", executor.StartEvent(models.BackendCodex))
	p.Forget("task-1")
	if p.Get("task-1") != nil {
		t.Fatal("accumulator survived Forget")
	}
}
