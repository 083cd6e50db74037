package store

import (
	"errors"
	"testing"

	"github.com/josephgoksu/AgentWing/models"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	s := NewMemoryStore()

	task := models.NewTask("hello", models.TaskOptions{Backend: models.BackendGemini})
	if err := s.Save(*task); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.UpdateStatus(task.ID, models.StatusCompleted, nil); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if err := s.UpdateResult(task.ID, "hi"); err != nil {
		t.Fatalf("UpdateResult: %v", err)
	}

	got, err := s.GetTask(task.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Status != models.StatusCompleted || got.Result != "hi" {
		t.Fatalf("task = %s/%q", got.Status, got.Result)
	}
}

func TestMemoryStoreFindPending(t *testing.T) {
	s := NewMemoryStore()

	pending := models.NewTask("a", models.TaskOptions{})
	failed := models.NewTask("b", models.TaskOptions{})
	failed.Status = models.StatusFailed
	for _, task := range []*models.Task{pending, failed} {
		if err := s.Save(*task); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	found, err := s.FindPending()
	if err != nil {
		t.Fatalf("FindPending: %v", err)
	}
	if len(found) != 1 || found[0].ID != pending.ID {
		t.Fatalf("FindPending = %+v", found)
	}
}

func TestMemoryStoreUnknownTask(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.GetTask("ghost"); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("error = %v, want ErrTaskNotFound", err)
	}
}
