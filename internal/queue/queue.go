package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/josephgoksu/AgentWing/internal/executor"
	"github.com/josephgoksu/AgentWing/internal/telemetry"
	"github.com/josephgoksu/AgentWing/models"
	"github.com/josephgoksu/AgentWing/store"
	"github.com/josephgoksu/AgentWing/types"
)

// Sink consumes the canonical event stream of every dispatched task, in
// emission order. The progress pipeline implements it.
type Sink interface {
	Consume(taskID string, ev executor.Event)
}

// Handler observes a task reaching a terminal state. A panic inside a
// handler is caught and logged; it never disturbs the scheduling loop or
// other tasks.
type Handler func(task *models.Task)

// Options configures a Queue.
type Options struct {
	// Concurrency is the number of simultaneously running tasks.
	// Zero means the config default.
	Concurrency int
	// DefaultPolicy applies to tasks without their own retry config.
	DefaultPolicy RetryPolicy
	// Repo persists task state. Required.
	Repo store.TaskRepository
	// Registry resolves executor adapters. Required.
	Registry *executor.Registry
	// Cancels is the shared cancellation arena. Required.
	Cancels *executor.CancelRegistry
	// Sink receives every canonical event. Optional.
	Sink Sink
	// Telemetry tracks lifecycle events. Optional.
	Telemetry telemetry.Client
}

// Queue accepts tasks, holds them until a concurrency slot is free,
// dispatches them to executor adapters, and applies the retry policy on
// failure. It starts paused; call Start to begin scheduling.
type Queue struct {
	mu          sync.Mutex
	tasks       map[string]*models.Task
	running     map[string]struct{}
	concurrency int
	paused      bool
	stopped     bool
	idleWaiters []chan struct{}
	onComplete  []Handler
	onError     []Handler

	wake   chan struct{}
	stopCh chan struct{}

	repo          store.TaskRepository
	registry      *executor.Registry
	cancels       *executor.CancelRegistry
	sink          Sink
	telemetry     telemetry.Client
	defaultPolicy RetryPolicy
}

// New creates a paused queue and starts its scheduling loop.
func New(opts Options) *Queue {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	tel := opts.Telemetry
	if tel == nil {
		tel = telemetry.Noop()
	}
	q := &Queue{
		tasks:         make(map[string]*models.Task),
		running:       make(map[string]struct{}),
		concurrency:   concurrency,
		paused:        true,
		wake:          make(chan struct{}, 1),
		stopCh:        make(chan struct{}),
		repo:          opts.Repo,
		registry:      opts.Registry,
		cancels:       opts.Cancels,
		sink:          opts.Sink,
		telemetry:     tel,
		defaultPolicy: opts.DefaultPolicy,
	}
	if q.defaultPolicy.Policy == "" {
		q.defaultPolicy = DefaultRetryPolicy()
	}
	go q.loop()
	return q
}

// Rehydrate reloads pending tasks from the repository after a restart.
func (q *Queue) Rehydrate() error {
	pending, err := q.repo.FindPending()
	if err != nil {
		return fmt.Errorf("rehydrate queue: %w", err)
	}
	q.mu.Lock()
	for i := range pending {
		t := pending[i]
		if _, exists := q.tasks[t.ID]; !exists {
			q.tasks[t.ID] = &t
		}
	}
	q.mu.Unlock()
	q.kick()
	return nil
}

// Add persists the task to the pending set and returns its id. It never
// invokes a backend itself; a persistence error is surfaced because task
// status is authoritative state.
func (q *Queue) Add(task *models.Task) (string, error) {
	if task == nil {
		return "", fmt.Errorf("add: nil task")
	}
	if err := models.ValidateStruct(task); err != nil {
		return "", fmt.Errorf("add: %w", err)
	}
	if err := q.repo.Save(*task); err != nil {
		return "", fmt.Errorf("add: %w", err)
	}

	q.mu.Lock()
	q.tasks[task.ID] = task
	q.mu.Unlock()
	q.telemetry.Track(telemetry.EventTaskSubmitted, telemetry.Properties{
		"backend":  string(task.Options.Backend),
		"priority": task.Priority,
	})
	q.kick()
	return task.ID, nil
}

// Get returns a copy of the task, if known.
func (q *Queue) Get(taskID string) (*models.Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.tasks[taskID]
	if !ok {
		return nil, false
	}
	cp := *t
	return &cp, true
}

// GetAll returns all tasks sorted for display: running before pending before
// terminal, then priority descending, then submission order.
func (q *Queue) GetAll() []*models.Task {
	q.mu.Lock()
	out := make([]*models.Task, 0, len(q.tasks))
	for _, t := range q.tasks {
		cp := *t
		out = append(out, &cp)
	}
	q.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := statusRank(out[i].Status), statusRank(out[j].Status)
		if ri != rj {
			return ri < rj
		}
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func statusRank(s models.TaskStatus) int {
	switch s {
	case models.StatusRunning:
		return 0
	case models.StatusPending:
		return 1
	default:
		return 2
	}
}

// Start lets the scheduler pick up pending tasks.
func (q *Queue) Start() {
	q.mu.Lock()
	q.paused = false
	q.mu.Unlock()
	q.kick()
}

// Pause stops the scheduler from picking up new tasks. Tasks already
// running are not affected.
func (q *Queue) Pause() {
	q.mu.Lock()
	q.paused = true
	q.mu.Unlock()
}

// SetConcurrency changes the budget of simultaneously running tasks. It
// takes effect on the next scheduling tick and never preempts a running
// task.
func (q *Queue) SetConcurrency(n int) {
	if n < 1 {
		n = 1
	}
	q.mu.Lock()
	q.concurrency = n
	q.mu.Unlock()
	q.kick()
}

// Cancel requests cancellation of a task. Unknown or already-terminal ids
// are a successful no-op. Cancel does not block waiting for the adapter to
// acknowledge.
func (q *Queue) Cancel(taskID string) error {
	q.mu.Lock()
	t, ok := q.tasks[taskID]
	if !ok || t.Status.IsTerminal() {
		q.mu.Unlock()
		return nil
	}
	if t.Status == models.StatusPending {
		now := time.Now()
		taskErr := types.NewTaskError(types.CodeCancelled, "task cancelled", nil)
		t.Status = models.StatusCancelled
		t.CompletedAt = &now
		t.Error = taskErr
		backend := string(t.Options.Backend)
		q.notifyIdleLocked()
		q.mu.Unlock()
		q.telemetry.Track(telemetry.EventTaskCancelled, telemetry.Properties{
			"backend": backend,
		})
		q.kick()
		// Caller-triggered transition: a persistence failure surfaces here
		// instead of being logged like an async one.
		if err := q.repo.UpdateStatus(taskID, models.StatusCancelled, taskErr); err != nil {
			return fmt.Errorf("cancel: %w", err)
		}
		return nil
	}
	q.mu.Unlock()

	// Running: the adapter observes the context, terminates its stream with
	// a Failed(cancelled) event, and the terminal handling marks the task.
	q.cancels.Cancel(taskID)
	return nil
}

// Clear cancels every non-terminal task; used at shutdown.
func (q *Queue) Clear() {
	q.mu.Lock()
	var runningIDs []string
	for _, t := range q.tasks {
		switch t.Status {
		case models.StatusPending:
			q.markTerminalLocked(t, models.StatusCancelled,
				types.NewTaskError(types.CodeCancelled, "queue cleared", nil))
		case models.StatusRunning:
			runningIDs = append(runningIDs, t.ID)
		}
	}
	q.mu.Unlock()

	for _, id := range runningIDs {
		q.cancels.Cancel(id)
	}
	q.kick()
}

// WaitForIdle blocks until no task is pending or running, or the context is
// done.
func (q *Queue) WaitForIdle(ctx context.Context) error {
	for {
		q.mu.Lock()
		if q.idleLocked() {
			q.mu.Unlock()
			return nil
		}
		ch := make(chan struct{})
		q.idleWaiters = append(q.idleWaiters, ch)
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}

// OnComplete registers a handler fired when a task completes successfully.
func (q *Queue) OnComplete(h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onComplete = append(q.onComplete, h)
}

// OnError registers a handler fired when a task fails terminally.
func (q *Queue) OnError(h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onError = append(q.onError, h)
}

// Stats is a point-in-time snapshot of queue occupancy.
type Stats struct {
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
}

// GetStats returns current per-status counts.
func (q *Queue) GetStats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	var s Stats
	for _, t := range q.tasks {
		switch t.Status {
		case models.StatusPending:
			s.Pending++
		case models.StatusRunning:
			s.Running++
		case models.StatusCompleted:
			s.Completed++
		case models.StatusFailed:
			s.Failed++
		case models.StatusCancelled:
			s.Cancelled++
		}
	}
	return s
}

// Stop shuts the queue down: cancels all non-terminal tasks and stops the
// scheduling loop.
func (q *Queue) Stop() {
	q.Clear()
	q.mu.Lock()
	if !q.stopped {
		q.stopped = true
		close(q.stopCh)
	}
	q.mu.Unlock()
}

// kick wakes the scheduling loop without blocking.
func (q *Queue) kick() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) loop() {
	for {
		select {
		case <-q.stopCh:
			return
		case <-q.wake:
		}
		q.schedule()
	}
}

// schedule fills free concurrency slots with the highest-priority pending
// tasks. "Decrement running count and pick the next task" both happen under
// the queue mutex, so a completion racing a dispatch can never oversubscribe
// the budget.
func (q *Queue) schedule() {
	for {
		q.mu.Lock()
		if q.paused || q.stopped || len(q.running) >= q.concurrency {
			q.mu.Unlock()
			return
		}
		t := q.nextPendingLocked()
		if t == nil {
			q.mu.Unlock()
			return
		}

		now := time.Now()
		t.Status = models.StatusRunning
		if t.StartedAt == nil {
			t.StartedAt = &now
		}
		q.running[t.ID] = struct{}{}
		q.mu.Unlock()

		q.persistStatus(t.ID, models.StatusRunning, nil)
		q.dispatch(t)
	}
}

// nextPendingLocked pops the dispatchable pending task with the highest
// priority, ties broken by submission order. Tasks waiting out a retry
// delay are skipped until their NextRetryAt has passed.
func (q *Queue) nextPendingLocked() *models.Task {
	now := time.Now()
	var best *models.Task
	for _, t := range q.tasks {
		if t.Status != models.StatusPending {
			continue
		}
		if t.Retry != nil && t.Retry.NextRetryAt != nil && t.Retry.NextRetryAt.After(now) {
			continue
		}
		if best == nil ||
			t.Priority > best.Priority ||
			(t.Priority == best.Priority && t.CreatedAt.Before(best.CreatedAt)) {
			best = t
		}
	}
	return best
}

// dispatch hands the task to its adapter and consumes the event stream on a
// dedicated goroutine. Adapter-boundary errors surface as Failed events,
// never as raw errors.
func (q *Queue) dispatch(t *models.Task) {
	exec, ok := q.registry.ForTask(t)
	if !ok || !exec.IsAvailable() {
		backend := t.Options.Backend
		q.finish(t.ID, executor.FailedEvent(types.NewTaskError(types.CodeBackendUnavailable,
			fmt.Sprintf("backend %q is not available", backend), nil)))
		return
	}

	var ctx context.Context
	var cancel context.CancelFunc
	if t.Options.Timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), t.Options.Timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	q.cancels.Register(t.ID, cancel)

	events, err := exec.Start(ctx, t)
	if err != nil {
		cancel()
		q.cancels.Remove(t.ID)
		q.finish(t.ID, executor.FailedEvent(types.WrapError(types.CodeBackendUnavailable, err)))
		return
	}

	go func() {
		defer cancel()
		var terminal executor.Event
		seenTerminal := false
		for ev := range events {
			if q.sink != nil {
				q.sink.Consume(t.ID, ev)
			}
			if ev.IsTerminal() {
				terminal = ev
				seenTerminal = true
			}
		}
		if !seenTerminal {
			terminal = executor.FailedEvent(types.NewTaskError(types.CodeBackendExecution,
				"backend stream ended without a terminal event", nil))
		}
		q.finish(t.ID, terminal)
	}()
}

// finish interprets the terminal event for a task and either resolves it or
// schedules a retry.
func (q *Queue) finish(taskID string, terminal executor.Event) {
	q.mu.Lock()
	t, ok := q.tasks[taskID]
	if !ok {
		q.mu.Unlock()
		return
	}
	delete(q.running, taskID)
	q.cancels.Remove(taskID)

	var fire []Handler
	var fireTask models.Task

	switch terminal.Type {
	case executor.EventCompleted:
		t.Result = terminal.Result
		if terminal.SessionID != "" {
			t.SessionID = terminal.SessionID
		}
		q.markTerminalLocked(t, models.StatusCompleted, nil)
		fire = append(fire, q.onComplete...)
		fireTask = *t
		q.mu.Unlock()

		if err := q.repo.UpdateResult(taskID, terminal.Result); err != nil {
			slog.Error("persist task result", "task", taskID, "error", err)
		}
		q.telemetry.Track(telemetry.EventTaskCompleted, telemetry.Properties{
			"backend":     string(fireTask.Options.Backend),
			"duration_ms": terminal.DurationMs,
		})

	case executor.EventFailed:
		taskErr := terminal.Err
		if taskErr == nil {
			taskErr = types.NewTaskError(types.CodeBackendExecution, "unknown failure", nil)
		}

		if taskErr.Code == types.CodeCancelled {
			q.markTerminalLocked(t, models.StatusCancelled, taskErr)
			backend := string(t.Options.Backend)
			q.mu.Unlock()
			q.telemetry.Track(telemetry.EventTaskCancelled, telemetry.Properties{
				"backend": backend,
			})
			break
		}

		attempts := 0
		if t.Retry != nil {
			attempts = t.Retry.Attempts
		}
		retry, delay := q.policyFor(t).Decide(attempts, taskErr)

		if retry && taskErr.Code != types.CodeBackendUnavailable {
			next := time.Now().Add(delay)
			t.Status = models.StatusPending
			t.Retry = &models.RetryMetadata{
				Attempts:    attempts + 1,
				LastError:   taskErr.Message,
				NextRetryAt: &next,
			}
			snapshot := *t
			q.mu.Unlock()

			if err := q.repo.Save(snapshot); err != nil {
				slog.Error("persist retry state", "task", taskID, "error", err)
			}
			q.telemetry.Track(telemetry.EventTaskRetried, telemetry.Properties{
				"backend":  string(snapshot.Options.Backend),
				"attempt":  attempts + 1,
				"delay_ms": delay.Milliseconds(),
			})
			// Scheduled suspension: the loop keeps dispatching other tasks
			// during this task's backoff.
			time.AfterFunc(delay, q.kick)
			return
		}

		q.markTerminalLocked(t, models.StatusFailed, taskErr)
		fire = append(fire, q.onError...)
		fireTask = *t
		q.mu.Unlock()

		q.telemetry.Track(telemetry.EventTaskFailed, telemetry.Properties{
			"backend": string(fireTask.Options.Backend),
			"code":    taskErr.Code,
		})

	default:
		q.mu.Unlock()
	}

	for _, h := range fire {
		runHandler(h, &fireTask)
	}
	q.kick()
}

// markTerminalLocked transitions a task to a terminal state and persists it.
// Caller holds the mutex.
func (q *Queue) markTerminalLocked(t *models.Task, status models.TaskStatus, taskErr *types.TaskError) {
	now := time.Now()
	t.Status = status
	t.CompletedAt = &now
	if taskErr != nil {
		t.Error = taskErr
	}
	go q.persistStatus(t.ID, status, taskErr)
	q.notifyIdleLocked()
}

func (q *Queue) persistStatus(id string, status models.TaskStatus, taskErr *types.TaskError) {
	var err error
	if taskErr != nil {
		err = q.repo.UpdateStatus(id, status, taskErr)
	} else {
		err = q.repo.UpdateStatus(id, status, nil)
	}
	if err != nil {
		// Authoritative state failed to persist; loud, not swallowed.
		slog.Error("persist task status", "task", id, "status", status, "error", err)
	}
}

func (q *Queue) policyFor(t *models.Task) RetryPolicy {
	if t.Options.Retry != nil {
		return PolicyFromConfig(t.Options.Retry)
	}
	return q.defaultPolicy
}

func (q *Queue) idleLocked() bool {
	if len(q.running) > 0 {
		return false
	}
	for _, t := range q.tasks {
		if t.Status == models.StatusPending || t.Status == models.StatusRunning {
			return false
		}
	}
	return true
}

func (q *Queue) notifyIdleLocked() {
	if !q.idleLocked() {
		return
	}
	for _, ch := range q.idleWaiters {
		close(ch)
	}
	q.idleWaiters = nil
}

// runHandler isolates a completion handler: a panic is logged, never
// propagated into the scheduling loop.
func runHandler(h Handler, t *models.Task) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("task handler panicked", "task", t.ID, "panic", r)
		}
	}()
	h(t)
}
