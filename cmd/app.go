/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"fmt"
	"time"

	"github.com/josephgoksu/AgentWing/internal/broadcast"
	"github.com/josephgoksu/AgentWing/internal/compare"
	"github.com/josephgoksu/AgentWing/internal/executor"
	"github.com/josephgoksu/AgentWing/internal/progress"
	"github.com/josephgoksu/AgentWing/internal/queue"
	"github.com/josephgoksu/AgentWing/internal/telemetry"
	"github.com/josephgoksu/AgentWing/internal/workspace"
	"github.com/josephgoksu/AgentWing/models"
	"github.com/josephgoksu/AgentWing/store"
	"github.com/josephgoksu/AgentWing/types"
)

// app bundles the wired application components for one CLI invocation.
type app struct {
	repo      store.TaskRepository
	queue     *queue.Queue
	hub       *broadcast.Hub
	pipeline  *progress.Pipeline
	compares  *compare.Orchestrator
	telemetry telemetry.Client
}

// buildApp wires the repository, executor registry, queue, progress pipeline
// and comparison orchestrator from the loaded configuration.
func buildApp() (*app, error) {
	cfg := GetConfig()

	repo, err := buildRepository(cfg.Data)
	if err != nil {
		return nil, err
	}

	tel, err := telemetry.New(cfg.Telemetry, version)
	if err != nil {
		tel = telemetry.Noop()
	}

	cancels := executor.NewCancelRegistry()
	registry := executor.NewRegistry(cfg.Backends, models.Backend(cfg.Queue.DefaultBackend), cancels)

	hub := broadcast.NewHub(0)
	pipeline := progress.New(repo, hub)

	q := queue.New(queue.Options{
		Concurrency:   cfg.Queue.Concurrency,
		DefaultPolicy: queue.PolicyFromConfig(&cfg.Retry),
		Repo:          repo,
		Registry:      registry,
		Cancels:       cancels,
		Sink:          pipeline,
		Telemetry:     tel,
	})
	if cfg.Queue.Rehydrate {
		if err := q.Rehydrate(); err != nil {
			_ = repo.Close()
			return nil, err
		}
	}

	compares := compare.New(compare.Options{
		Resolver:   compare.NewPathResolver(nil),
		Tasks:      q,
		Backends:   registry,
		Workspaces: workspace.NewGitProvider(".", ""),
		Store:      compare.NewMemoryStore(),
		Ceiling:    cfg.Compare.MaxConcurrent,
		Telemetry:  tel,
	})

	return &app{
		repo:      repo,
		queue:     q,
		hub:       hub,
		pipeline:  pipeline,
		compares:  compares,
		telemetry: tel,
	}, nil
}

func buildRepository(cfg types.DataConfig) (store.TaskRepository, error) {
	switch cfg.Store {
	case "memory":
		return store.NewMemoryStore(), nil
	case "sqlite":
		return store.NewSQLiteStore(cfg.File)
	case "file", "":
		s := store.NewFileTaskStore()
		err := s.Initialize(map[string]string{
			"dataFile":       cfg.File,
			"dataFileFormat": cfg.Format,
		})
		if err != nil {
			return nil, fmt.Errorf("initialize store at %s: %w", cfg.File, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown data store %q", cfg.Store)
	}
}

// close shuts the queue down and flushes telemetry.
func (a *app) close() {
	a.queue.Stop()
	_ = a.telemetry.Close()
	_ = a.repo.Close()
}

// watchTask prints every progress log line for a task until it resolves.
func (a *app) watchTask(taskID string, out func(string)) {
	a.hub.Subscribe(taskID, func(n broadcast.Notification) {
		payload, ok := n.Payload.(map[string]any)
		if !ok {
			return
		}
		data, ok := payload["progress"].(*models.ProgressData)
		if !ok || len(data.Log) == 0 {
			return
		}
		out(fmt.Sprintf("%s %s", n.Timestamp.Format(time.TimeOnly), data.Log[len(data.Log)-1]))
	})
}
