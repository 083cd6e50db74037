package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/josephgoksu/AgentWing/models"
	"github.com/josephgoksu/AgentWing/types"
	"github.com/spf13/afero"
	yaml "gopkg.in/yaml.v3"
)

const (
	defaultDataFile   = "tasks.json"
	defaultDataFormat = "json"
	formatJSON        = "json"
	formatYAML        = "yaml"
)

// fileSnapshot is the on-disk document: tasks plus per-task progress.
type fileSnapshot struct {
	Tasks    []models.Task                   `json:"tasks" yaml:"tasks"`
	Progress map[string]*models.ProgressData `json:"progress,omitempty" yaml:"progress,omitempty"`
}

// FileTaskStore implements TaskRepository on a single JSON or YAML file.
// The filesystem is abstracted through afero so tests run against a
// MemMapFs. Single-process semantics: the store serializes access with an
// in-process mutex and rewrites the whole snapshot on every mutation.
type FileTaskStore struct {
	mu       sync.Mutex
	fs       afero.Fs
	filePath string
	format   string
	tasks    map[string]models.Task
	progress map[string]*models.ProgressData
}

// NewFileTaskStore creates a store over the OS filesystem. Initialize must
// be called before use.
func NewFileTaskStore() *FileTaskStore {
	return NewFileTaskStoreWithFs(afero.NewOsFs())
}

// NewFileTaskStoreWithFs creates a store over the given filesystem.
func NewFileTaskStoreWithFs(fs afero.Fs) *FileTaskStore {
	return &FileTaskStore{
		fs:       fs,
		tasks:    make(map[string]models.Task),
		progress: make(map[string]*models.ProgressData),
	}
}

// Initialize configures the store. Recognized keys: "dataFile" (path, default
// tasks.json) and "dataFileFormat" (json or yaml, default json). Existing
// data is loaded eagerly.
func (s *FileTaskStore) Initialize(config map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if val, ok := config["dataFile"]; ok && val != "" {
		s.filePath = val
	} else {
		s.filePath = defaultDataFile
	}

	if val, ok := config["dataFileFormat"]; ok && val != "" {
		switch strings.ToLower(val) {
		case formatJSON, formatYAML:
			s.format = strings.ToLower(val)
		default:
			return fmt.Errorf("unsupported dataFileFormat: %s. Supported formats are json, yaml", val)
		}
	} else {
		s.format = defaultDataFormat
	}

	if dir := filepath.Dir(s.filePath); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}
	return s.load()
}

func (s *FileTaskStore) load() error {
	data, err := afero.ReadFile(s.fs, s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", s.filePath, err)
	}
	if len(data) == 0 {
		return nil
	}

	var snap fileSnapshot
	switch s.format {
	case formatYAML:
		err = yaml.Unmarshal(data, &snap)
	default:
		err = json.Unmarshal(data, &snap)
	}
	if err != nil {
		return fmt.Errorf("decode %s: %w", s.filePath, err)
	}

	for _, t := range snap.Tasks {
		s.tasks[t.ID] = t
	}
	if snap.Progress != nil {
		s.progress = snap.Progress
	}
	return nil
}

// flush rewrites the snapshot. Caller holds the mutex.
func (s *FileTaskStore) flush() error {
	snap := fileSnapshot{
		Tasks:    make([]models.Task, 0, len(s.tasks)),
		Progress: s.progress,
	}
	for _, t := range s.tasks {
		snap.Tasks = append(snap.Tasks, t)
	}

	var data []byte
	var err error
	switch s.format {
	case formatYAML:
		data, err = yaml.Marshal(&snap)
	default:
		data, err = json.MarshalIndent(&snap, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := afero.WriteFile(s.fs, s.filePath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", s.filePath, err)
	}
	return nil
}

func (s *FileTaskStore) Save(task models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = task
	return s.flush()
}

func (s *FileTaskStore) UpdateStatus(id string, status models.TaskStatus, taskErr error) error {
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
	return s.flush()
}

func (s *FileTaskStore) UpdateResult(id string, result string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("update result %s: %w", id, ErrTaskNotFound)
	}
	t.Result = result
	s.tasks[id] = t
	return s.flush()
}

func (s *FileTaskStore) UpdateProgressData(id string, data *models.ProgressData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return fmt.Errorf("update progress %s: %w", id, ErrTaskNotFound)
	}
	s.progress[id] = data
	return s.flush()
}

func (s *FileTaskStore) GetTask(id string) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return models.Task{}, fmt.Errorf("get task %s: %w", id, ErrTaskNotFound)
	}
	return t, nil
}

func (s *FileTaskStore) ListTasks(filterFn func(models.Task) bool) ([]models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if filterFn == nil || filterFn(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *FileTaskStore) FindPending() ([]models.Task, error) {
	return s.ListTasks(func(t models.Task) bool { return t.Status == models.StatusPending })
}

func (s *FileTaskStore) Close() error { return nil }
