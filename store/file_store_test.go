package store

import (
	"errors"
	"testing"

	"github.com/spf13/afero"

	"github.com/josephgoksu/AgentWing/models"
)

func newFileStore(t *testing.T, fs afero.Fs, config map[string]string) *FileTaskStore {
	t.Helper()
	s := NewFileTaskStoreWithFs(fs)
	if err := s.Initialize(config); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return s
}

func TestFileStoreLifecycle(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := newFileStore(t, fs, map[string]string{"dataFile": "/data/tasks.json"})

	task := models.NewTask("index the repo", models.TaskOptions{Backend: models.BackendClaude})
	if err := s.Save(*task); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := s.UpdateStatus(task.ID, models.StatusRunning, nil); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if err := s.UpdateResult(task.ID, "indexed 42 files"); err != nil {
		t.Fatalf("UpdateResult: %v", err)
	}
	progress := models.NewProgressData()
	progress.CurrentTurn = 3
	if err := s.UpdateProgressData(task.ID, progress); err != nil {
		t.Fatalf("UpdateProgressData: %v", err)
	}

	got, err := s.GetTask(task.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Status != models.StatusRunning || got.Result != "indexed 42 files" {
		t.Fatalf("task = %s/%q", got.Status, got.Result)
	}
}

func TestFileStoreSurvivesReload(t *testing.T) {
	fs := afero.NewMemMapFs()
	config := map[string]string{"dataFile": "/data/tasks.json"}

	s := newFileStore(t, fs, config)
	pending := models.NewTask("still waiting", models.TaskOptions{})
	done := models.NewTask("already done", models.TaskOptions{})
	done.Status = models.StatusCompleted
	for _, task := range []*models.Task{pending, done} {
		if err := s.Save(*task); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	// A fresh store over the same file sees the snapshot.
	s2 := newFileStore(t, fs, config)
	found, err := s2.FindPending()
	if err != nil {
		t.Fatalf("FindPending: %v", err)
	}
	if len(found) != 1 || found[0].ID != pending.ID {
		t.Fatalf("FindPending = %+v, want only the pending task", found)
	}
	got, err := s2.GetTask(done.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Status != models.StatusCompleted {
		t.Fatalf("reloaded status = %s, want completed", got.Status)
	}
}

func TestFileStoreYAMLFormat(t *testing.T) {
	fs := afero.NewMemMapFs()
	config := map[string]string{"dataFile": "/data/tasks.yaml", "dataFileFormat": "yaml"}

	s := newFileStore(t, fs, config)
	task := models.NewTask("yaml flavored", models.TaskOptions{})
	if err := s.Save(*task); err != nil {
		t.Fatalf("Save: %v", err)
	}

	s2 := newFileStore(t, fs, config)
	if _, err := s2.GetTask(task.ID); err != nil {
		t.Fatalf("GetTask after yaml reload: %v", err)
	}
}

func TestFileStoreRejectsUnknownFormat(t *testing.T) {
	s := NewFileTaskStoreWithFs(afero.NewMemMapFs())
	if err := s.Initialize(map[string]string{"dataFileFormat": "toml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestFileStoreUnknownTask(t *testing.T) {
	s := newFileStore(t, afero.NewMemMapFs(), nil)

	if _, err := s.GetTask("ghost"); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("GetTask error = %v, want ErrTaskNotFound", err)
	}
	if err := s.UpdateStatus("ghost", models.StatusFailed, nil); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("UpdateStatus error = %v, want ErrTaskNotFound", err)
	}
}
