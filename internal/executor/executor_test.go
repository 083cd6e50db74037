package executor

import (
	"context"
	"testing"

	"github.com/josephgoksu/AgentWing/models"
	"github.com/josephgoksu/AgentWing/types"
)

func TestEventIsTerminal(t *testing.T) {
	tests := []struct {
		ev   Event
		want bool
	}{
		{StartEvent(models.BackendClaude), false},
		{ProgressEvent("working", nil), false},
		{ToolStartEvent("bash", "c1", "ls"), false},
		{ToolEndEvent("bash", "c1", "out", "", 3, true), false},
		{ResponseEvent("text", 1), false},
		{StatisticsEvent(&Statistics{TotalTurns: 1}), false},
		{CompletedEvent("done", "s", 10), true},
		{FailedEvent(types.NewTaskError(types.CodeCancelled, "cancelled", nil)), true},
	}
	for _, tt := range tests {
		if got := tt.ev.IsTerminal(); got != tt.want {
			t.Errorf("IsTerminal(%s) = %v, want %v", tt.ev.Type, got, tt.want)
		}
	}
}

func TestCancelRegistry(t *testing.T) {
	r := NewCancelRegistry()

	fired := false
	r.Register("t1", func() { fired = true })
	if r.Active() != 1 {
		t.Fatalf("active = %d, want 1", r.Active())
	}

	if !r.Cancel("t1") {
		t.Fatal("Cancel returned false for registered task")
	}
	if !fired {
		t.Fatal("cancel func did not fire")
	}
	if r.Active() != 0 {
		t.Fatalf("active = %d after cancel, want 0", r.Active())
	}

	// Unknown id: successful no-op.
	if !r.Cancel("t1") {
		t.Fatal("Cancel of unknown id must report success")
	}
}

func TestCancelRegistryRemoveDoesNotFire(t *testing.T) {
	r := NewCancelRegistry()
	fired := false
	r.Register("t1", func() { fired = true })
	r.Remove("t1")
	if fired {
		t.Fatal("Remove fired the cancel func")
	}
	if r.Active() != 0 {
		t.Fatalf("active = %d, want 0", r.Active())
	}
}

func TestRegistryDefaultFallback(t *testing.T) {
	cancels := NewCancelRegistry()
	registry := NewEmptyRegistry(models.BackendGemini)
	registry.Register(NewGeminiExecutor(types.BackendConfig{APIKey: "k"}, cancels))
	registry.Register(NewClaudeExecutor(types.BackendConfig{}, cancels))

	task := models.NewTask("x", models.TaskOptions{})
	exec, ok := registry.ForTask(task)
	if !ok {
		t.Fatal("no executor for default backend")
	}
	if exec.Kind() != models.BackendGemini {
		t.Fatalf("default executor = %s, want gemini", exec.Kind())
	}

	task.Options.Backend = models.BackendClaude
	exec, ok = registry.ForTask(task)
	if !ok || exec.Kind() != models.BackendClaude {
		t.Fatal("pinned backend not honored")
	}
}

func TestRegistryAvailableOrder(t *testing.T) {
	cancels := NewCancelRegistry()
	registry := NewEmptyRegistry(models.BackendClaude)
	registry.Register(NewGeminiExecutor(types.BackendConfig{APIKey: "g"}, cancels))
	registry.Register(NewClaudeExecutor(types.BackendConfig{APIKey: "c"}, cancels))
	registry.Register(NewCodexExecutor(types.BackendConfig{}, cancels))

	got := registry.Available()
	if len(got) != 2 {
		t.Fatalf("available = %v, want 2 backends", got)
	}
	// Canonical order regardless of registration order.
	if got[0] != models.BackendClaude || got[1] != models.BackendGemini {
		t.Fatalf("available = %v, want [claude gemini]", got)
	}
}

func TestIsAvailableReflectsAPIKey(t *testing.T) {
	cancels := NewCancelRegistry()
	if NewClaudeExecutor(types.BackendConfig{}, cancels).IsAvailable() {
		t.Fatal("adapter without API key reports available")
	}
	if !NewClaudeExecutor(types.BackendConfig{APIKey: "k"}, cancels).IsAvailable() {
		t.Fatal("adapter with API key reports unavailable")
	}
}

func TestStartEmitsStartThenFailedWithoutSession(t *testing.T) {
	// No real credentials: the lazy session construction fails and the
	// stream must still be well formed, one Start then one terminal Failed.
	cancels := NewCancelRegistry()
	exec := NewCodexExecutor(types.BackendConfig{APIKey: "not-a-real-key", BaseURL: "http://127.0.0.1:0"}, cancels)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	task := models.NewTask("hi", models.TaskOptions{Backend: models.BackendCodex})

	events, err := exec.Start(ctx, task)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	var seen []Event
	for ev := range events {
		seen = append(seen, ev)
	}
	if len(seen) < 2 {
		t.Fatalf("stream = %d events, want at least start + terminal", len(seen))
	}
	if seen[0].Type != EventStart {
		t.Fatalf("first event = %s, want start", seen[0].Type)
	}
	last := seen[len(seen)-1]
	if !last.IsTerminal() {
		t.Fatalf("last event = %s, want terminal", last.Type)
	}
	for _, ev := range seen[:len(seen)-1] {
		if ev.IsTerminal() {
			t.Fatal("terminal event emitted before the end of the stream")
		}
	}
}
