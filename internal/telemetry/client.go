// Package telemetry sends anonymous usage events for the task runner.
// Disabled unless explicitly enabled in configuration.
package telemetry

import (
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/posthog/posthog-go"

	"github.com/josephgoksu/AgentWing/types"
)

// Client is the interface for telemetry clients.
// This abstraction allows for mocking in tests and swapping implementations.
type Client interface {
	// Track sends an event asynchronously. Returns immediately without blocking.
	// If telemetry is disabled, this is a no-op.
	Track(event string, properties map[string]any)

	// Close flushes pending events and closes the client.
	Close() error
}

// Properties is a type alias for event properties.
type Properties = map[string]any

// Common event names.
const (
	EventTaskSubmitted   = "task_submitted"
	EventTaskCompleted   = "task_completed"
	EventTaskFailed      = "task_failed"
	EventTaskRetried     = "task_retried"
	EventTaskCancelled   = "task_cancelled"
	EventCompareCreated  = "compare_created"
	EventCompareResolved = "compare_resolved"
)

// enqueuer is an internal interface for the PostHog client methods we use.
// This allows us to mock the client for testing.
type enqueuer interface {
	io.Closer
	Enqueue(msg posthog.Message) error
}

// PostHogClient wraps the PostHog SDK for async telemetry.
type PostHogClient struct {
	client      enqueuer
	distinctID  string
	version     string
	mu          sync.RWMutex
	initialized bool
}

// New builds a telemetry client from configuration. Returns a no-op client
// when telemetry is disabled or no API key is set.
func New(cfg types.TelemetryConfig, version string) (Client, error) {
	if !cfg.Enabled || cfg.APIKey == "" {
		return Noop(), nil
	}

	phConfig := posthog.Config{
		// Small batches; a runner process does not send many events.
		BatchSize: 10,
		Interval:  1 * time.Second,
		// Telemetry must never pollute normal output with transport warnings.
		Logger: quietPostHogLogger{},
	}
	if cfg.Host != "" {
		phConfig.Endpoint = cfg.Host
	}

	client, err := posthog.NewWithConfig(cfg.APIKey, phConfig)
	if err != nil {
		return nil, err
	}

	return &PostHogClient{
		client:      client,
		distinctID:  uuid.NewString(),
		version:     version,
		initialized: true,
	}, nil
}

// newPostHogClientWithEnqueuer creates a client with a custom enqueuer (for testing).
func newPostHogClientWithEnqueuer(enq enqueuer, version string) *PostHogClient {
	return &PostHogClient{
		client:      enq,
		distinctID:  uuid.NewString(),
		version:     version,
		initialized: true,
	}
}

// Track sends an event asynchronously.
// No-op if the client is not initialized.
func (c *PostHogClient) Track(event string, properties map[string]any) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.initialized {
		return
	}

	props := posthog.NewProperties()
	for k, v := range properties {
		props.Set(k, v)
	}

	props.Set("os", runtime.GOOS)
	props.Set("arch", runtime.GOARCH)
	props.Set("runner_version", c.version)

	// No person profiles; events stay anonymous.
	props.Set("$process_person_profile", false)

	_ = c.client.Enqueue(posthog.Capture{
		DistinctId: c.distinctID,
		Event:      event,
		Properties: props,
	})
}

// Close flushes pending events. The SDK applies its own timeouts.
func (c *PostHogClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// NoopClient is a telemetry client that does nothing.
type NoopClient struct{}

// Track is a no-op.
func (c *NoopClient) Track(event string, properties map[string]any) {}

// Close is a no-op.
func (c *NoopClient) Close() error { return nil }

// Noop returns a client that does nothing.
func Noop() *NoopClient {
	return &NoopClient{}
}

// quietPostHogLogger suppresses PostHog client logs in normal output.
type quietPostHogLogger struct{}

func (quietPostHogLogger) Debugf(string, ...interface{}) {}
func (quietPostHogLogger) Logf(string, ...interface{})   {}
func (quietPostHogLogger) Warnf(string, ...interface{})  {}
func (quietPostHogLogger) Errorf(string, ...interface{}) {}
