package telemetry

import (
	"runtime"
	"sync"
	"testing"

	"github.com/posthog/posthog-go"

	"github.com/josephgoksu/AgentWing/types"
)

// mockEnqueuer captures events for testing.
type mockEnqueuer struct {
	mu     sync.Mutex
	events []posthog.Capture
	closed bool
}

func (m *mockEnqueuer) Enqueue(msg posthog.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if capture, ok := msg.(posthog.Capture); ok {
		m.events = append(m.events, capture)
	}
	return nil
}

func (m *mockEnqueuer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockEnqueuer) getEvents() []posthog.Capture {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]posthog.Capture, len(m.events))
	copy(result, m.events)
	return result
}

func (m *mockEnqueuer) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func newTestClient(version string) (*PostHogClient, *mockEnqueuer) {
	mock := &mockEnqueuer{}
	client := newPostHogClientWithEnqueuer(mock, version)
	return client, mock
}

func TestPostHogClientTrack(t *testing.T) {
	client, mock := newTestClient("1.2.3")

	client.Track(EventTaskCompleted, Properties{
		"backend":     "claude",
		"duration_ms": int64(1500),
	})

	events := mock.getEvents()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	event := events[0]

	if event.Event != EventTaskCompleted {
		t.Errorf("event name = %q, want %q", event.Event, EventTaskCompleted)
	}
	if event.DistinctId == "" {
		t.Error("distinct_id is empty")
	}
	if event.Properties["backend"] != "claude" {
		t.Errorf("backend = %v, want %q", event.Properties["backend"], "claude")
	}

	// Standard properties are always attached.
	if event.Properties["os"] != runtime.GOOS {
		t.Errorf("os = %v, want %q", event.Properties["os"], runtime.GOOS)
	}
	if event.Properties["arch"] != runtime.GOARCH {
		t.Errorf("arch = %v, want %q", event.Properties["arch"], runtime.GOARCH)
	}
	if event.Properties["runner_version"] != "1.2.3" {
		t.Errorf("runner_version = %v, want %q", event.Properties["runner_version"], "1.2.3")
	}
	if event.Properties["$process_person_profile"] != false {
		t.Error("person profile processing must be disabled")
	}
}

func TestPostHogClientClose(t *testing.T) {
	client, mock := newTestClient("1.2.3")
	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !mock.isClosed() {
		t.Error("underlying client was not closed")
	}
}

func TestNewReturnsNoopWhenDisabled(t *testing.T) {
	tests := []struct {
		name string
		cfg  types.TelemetryConfig
	}{
		{"disabled", types.TelemetryConfig{Enabled: false, APIKey: "phc_x"}},
		{"no api key", types.TelemetryConfig{Enabled: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.cfg, "1.0.0")
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if _, ok := client.(*NoopClient); !ok {
				t.Fatalf("expected NoopClient, got %T", client)
			}
		})
	}
}

func TestNoopClient(t *testing.T) {
	c := Noop()
	c.Track("anything", Properties{"k": "v"})
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}
