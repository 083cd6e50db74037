// Package compare runs one instruction against several backends under
// directly comparable conditions and reports a single aggregate outcome.
package compare

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/josephgoksu/AgentWing/internal/git"
	"github.com/josephgoksu/AgentWing/internal/telemetry"
	"github.com/josephgoksu/AgentWing/internal/workspace"
	"github.com/josephgoksu/AgentWing/models"
	"github.com/josephgoksu/AgentWing/types"
)

// RepositoryResolver maps a repository id to a source location on disk.
type RepositoryResolver interface {
	Resolve(repositoryID string) (string, error)
}

// TaskService is the slice of the queue the orchestrator needs.
type TaskService interface {
	Add(task *models.Task) (string, error)
	Get(taskID string) (*models.Task, bool)
	Cancel(taskID string) error
}

// BackendLister reports which backends currently have credentials.
type BackendLister interface {
	Available() []models.Backend
}

// SnapshotFunc captures the snapshot id of a source location; the default
// resolves the repository's HEAD commit.
type SnapshotFunc func(path string) (string, error)

// Options configures an Orchestrator.
type Options struct {
	Resolver   RepositoryResolver
	Tasks      TaskService
	Backends   BackendLister
	Workspaces workspace.Provider
	Store      Store
	// Ceiling is the maximum number of concurrently non-terminal
	// comparisons. Zero means the config default is applied by the caller.
	Ceiling   int
	Snapshot  SnapshotFunc
	Telemetry telemetry.Client
}

// Orchestrator implements comparison runs: admission control, base snapshot
// capture, per-backend workspace and task fan-out, and aggregate status.
type Orchestrator struct {
	resolver   RepositoryResolver
	tasks      TaskService
	backends   BackendLister
	workspaces workspace.Provider
	store      Store
	ceiling    int
	snapshot   SnapshotFunc
	telemetry  telemetry.Client
}

// New creates an orchestrator.
func New(opts Options) *Orchestrator {
	snap := opts.Snapshot
	if snap == nil {
		snap = func(path string) (string, error) {
			return git.NewClient(path).HeadCommit()
		}
	}
	ceiling := opts.Ceiling
	if ceiling <= 0 {
		ceiling = 3
	}
	tel := opts.Telemetry
	if tel == nil {
		tel = telemetry.Noop()
	}
	return &Orchestrator{
		resolver:   opts.Resolver,
		tasks:      opts.Tasks,
		backends:   opts.Backends,
		workspaces: opts.Workspaces,
		store:      opts.Store,
		ceiling:    ceiling,
		snapshot:   snap,
		telemetry:  tel,
	}
}

// Create submits one comparison: the instruction runs once per available
// backend, each in an isolated workspace branched from the identical
// snapshot. It returns as soon as the children are queued; execution
// proceeds asynchronously.
func (o *Orchestrator) Create(ctx context.Context, instruction, repositoryID string) (models.CompareTask, error) {
	repoPath, err := o.resolver.Resolve(repositoryID)
	if err != nil {
		return models.CompareTask{}, types.NewTaskError(types.CodeRepositoryNotFound,
			fmt.Sprintf("repository %q not found", repositoryID),
			map[string]any{"cause": err.Error()})
	}

	backends := o.backends.Available()
	if len(backends) == 0 {
		// A comparison with no children could never resolve; reject it
		// before it consumes an admission slot.
		return models.CompareTask{}, types.NewTaskError(types.CodeBackendUnavailable,
			"no backend has credentials configured", nil)
	}

	// Admission control, not queue capacity: each comparison fans out up to
	// one workspace per backend.
	if n, err := o.countNonTerminal(); err != nil {
		return models.CompareTask{}, err
	} else if n >= o.ceiling {
		return models.CompareTask{}, types.NewTaskError(types.CodeTooManyCompareTasks,
			fmt.Sprintf("at most %d comparisons may run at once", o.ceiling), nil)
	}

	baseCommit, err := o.snapshot(repoPath)
	if err != nil {
		return models.CompareTask{}, types.WrapError(types.CodeWorkspaceAllocation, err)
	}

	ct := models.CompareTask{
		ID:           uuid.NewString(),
		Instruction:  instruction,
		RepositoryID: repositoryID,
		BaseCommit:   baseCommit,
		Status:       models.CompareRunning,
		CreatedAt:    time.Now(),
	}

	var allocated []workspace.Handle
	for _, backend := range backends {
		ws, err := o.workspaces.Allocate(baseCommit)
		if err != nil {
			// An allocation failure aborts this comparison only: siblings
			// already queued are cancelled so they never run against a
			// discarded working directory, and their workspaces are
			// returned to the provider.
			for b, taskID := range ct.RecordedTaskIDs() {
				if cerr := o.tasks.Cancel(taskID); cerr != nil {
					slog.Warn("cancel compare child", "backend", b, "task", taskID, "error", cerr)
				}
			}
			for _, h := range allocated {
				if derr := o.workspaces.Discard(h); derr != nil {
					slog.Warn("discard workspace", "workspace", h.ID, "error", derr)
				}
			}
			return models.CompareTask{}, types.WrapError(types.CodeWorkspaceAllocation, err)
		}
		allocated = append(allocated, ws)

		task := models.NewTask(instruction, models.TaskOptions{Backend: backend})
		task.Context = &models.TaskContext{
			WorkingDir:   ws.Path,
			RepositoryID: repositoryID,
		}
		task.CompareID = ct.ID

		taskID, err := o.tasks.Add(task)
		if err != nil {
			// One backend failing to enqueue never aborts the siblings.
			slog.Warn("submit compare child", "backend", backend, "error", err)
			continue
		}
		ct.SetTaskID(backend, taskID)
	}

	if err := o.store.Save(ct); err != nil {
		return models.CompareTask{}, fmt.Errorf("persist compare task: %w", err)
	}
	o.telemetry.Track(telemetry.EventCompareCreated, telemetry.Properties{
		"children": len(ct.RecordedTaskIDs()),
	})
	return ct, nil
}

// Get returns the comparison with its status recomputed from the current
// child task states.
func (o *Orchestrator) Get(compareID string) (models.CompareTask, error) {
	ct, err := o.store.Get(compareID)
	if err != nil {
		return models.CompareTask{}, err
	}
	return o.refresh(ct), nil
}

// List returns all comparisons, statuses recomputed, newest first.
func (o *Orchestrator) List() ([]models.CompareTask, error) {
	cts, err := o.store.List()
	if err != nil {
		return nil, err
	}
	for i := range cts {
		cts[i] = o.refresh(cts[i])
	}
	return cts, nil
}

// Cancel transitions the comparison to cancelling, issues a best-effort
// cancel to every recorded child, then marks it cancelled. It does not wait
// for children to actually terminate.
func (o *Orchestrator) Cancel(compareID string) error {
	ct, err := o.store.Get(compareID)
	if err != nil {
		return err
	}
	if ct.Status.IsTerminal() {
		return nil
	}

	ct.Status = models.CompareCancelling
	if err := o.store.Save(ct); err != nil {
		return fmt.Errorf("persist compare task: %w", err)
	}

	for backend, taskID := range ct.RecordedTaskIDs() {
		if err := o.tasks.Cancel(taskID); err != nil {
			// One child's failure must not block cancelling the others.
			slog.Warn("cancel compare child", "backend", backend, "task", taskID, "error", err)
		}
	}

	now := time.Now()
	ct.Status = models.CompareCancelled
	ct.CompletedAt = &now
	if err := o.store.Save(ct); err != nil {
		return fmt.Errorf("persist compare task: %w", err)
	}
	return nil
}

// refresh recomputes the aggregate status from child task states and
// persists a transition when one happened.
func (o *Orchestrator) refresh(ct models.CompareTask) models.CompareTask {
	if ct.Status.IsTerminal() || ct.Status == models.CompareCancelling {
		return ct
	}

	var succeeded, failed, open int
	for _, taskID := range ct.RecordedTaskIDs() {
		child, ok := o.tasks.Get(taskID)
		if !ok {
			open++
			continue
		}
		switch child.Status {
		case models.StatusCompleted:
			succeeded++
		case models.StatusFailed, models.StatusCancelled:
			failed++
		default:
			open++
		}
	}

	if open > 0 || succeeded+failed == 0 {
		return ct
	}

	switch {
	case failed == 0:
		ct.Status = models.CompareCompleted
	case succeeded == 0:
		ct.Status = models.CompareFailed
	default:
		ct.Status = models.ComparePartialSuccess
	}
	now := time.Now()
	ct.CompletedAt = &now
	if err := o.store.Save(ct); err != nil {
		slog.Warn("persist compare status", "compare", ct.ID, "error", err)
	}
	o.telemetry.Track(telemetry.EventCompareResolved, telemetry.Properties{
		"status": string(ct.Status),
	})
	return ct
}

func (o *Orchestrator) countNonTerminal() (int, error) {
	cts, err := o.store.List()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, ct := range cts {
		if !o.refresh(ct).Status.IsTerminal() {
			n++
		}
	}
	return n, nil
}
