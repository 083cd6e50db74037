/*
Package executor defines the canonical execution-event model and the adapter
abstraction over heterogeneous agent backends. Adapters translate
backend-native streaming items into Events at the boundary; everything
downstream (queue, progress pipeline) depends only on the canonical type.
*/
package executor

import (
	"time"

	"github.com/josephgoksu/AgentWing/models"
	"github.com/josephgoksu/AgentWing/types"
)

// EventType identifies the variant of a canonical execution event.
type EventType string

const (
	EventStart      EventType = "start"
	EventProgress   EventType = "progress"
	EventToolStart  EventType = "tool_start"
	EventToolEnd    EventType = "tool_end"
	EventResponse   EventType = "response"
	EventStatistics EventType = "statistics"
	EventCompleted  EventType = "completed"
	EventFailed     EventType = "failed"
)

// Event is the canonical execution event, a tagged union: only the fields of
// the active variant are populated. For a given task, exactly one Start is
// the first event and exactly one of Completed/Failed is the last; nothing
// is emitted after the terminal event.
type Event struct {
	Type      EventType
	Timestamp time.Time

	// Start
	Backend models.Backend

	// Progress
	Message string
	Data    map[string]any

	// ToolStart / ToolEnd
	Tool       string
	ToolID     string
	Input      string
	Output     string
	ToolError  string
	DurationMs int64
	Success    bool

	// Response
	Text       string
	TurnNumber int

	// Statistics
	Stats *Statistics

	// Completed
	Result    string
	SessionID string

	// Failed
	Err *types.TaskError
}

// Statistics is the payload of a Statistics event. Fields merge field-wise
// into the running snapshot kept by the progress pipeline.
type Statistics struct {
	TotalTurns     int
	TotalToolCalls int
	ToolStats      map[string]int
	TokenUsage     *models.TokenUsage
}

// IsTerminal reports whether the event ends the stream.
func (e Event) IsTerminal() bool {
	return e.Type == EventCompleted || e.Type == EventFailed
}

func newEvent(t EventType) Event {
	return Event{Type: t, Timestamp: time.Now()}
}

// StartEvent marks the beginning of execution on a backend.
func StartEvent(backend models.Backend) Event {
	ev := newEvent(EventStart)
	ev.Backend = backend
	return ev
}

// ProgressEvent carries an incremental human-readable update.
func ProgressEvent(message string, data map[string]any) Event {
	ev := newEvent(EventProgress)
	ev.Message = message
	ev.Data = data
	return ev
}

// ToolStartEvent marks a tool invocation. toolID may be empty for backends
// without stable tool-call ids.
func ToolStartEvent(tool, toolID, input string) Event {
	ev := newEvent(EventToolStart)
	ev.Tool = tool
	ev.ToolID = toolID
	ev.Input = input
	return ev
}

// ToolEndEvent resolves a prior ToolStart.
func ToolEndEvent(tool, toolID, output, toolErr string, durationMs int64, success bool) Event {
	ev := newEvent(EventToolEnd)
	ev.Tool = tool
	ev.ToolID = toolID
	ev.Output = output
	ev.ToolError = toolErr
	ev.DurationMs = durationMs
	ev.Success = success
	return ev
}

// ResponseEvent carries one backend textual response. turnNumber 0 means the
// backend did not number its turns.
func ResponseEvent(text string, turnNumber int) Event {
	ev := newEvent(EventResponse)
	ev.Text = text
	ev.TurnNumber = turnNumber
	return ev
}

// StatisticsEvent carries a running-statistics snapshot.
func StatisticsEvent(stats *Statistics) Event {
	ev := newEvent(EventStatistics)
	ev.Stats = stats
	return ev
}

// CompletedEvent terminates the stream on success.
func CompletedEvent(result, sessionID string, durationMs int64) Event {
	ev := newEvent(EventCompleted)
	ev.Result = result
	ev.SessionID = sessionID
	ev.DurationMs = durationMs
	return ev
}

// FailedEvent terminates the stream on failure, including cancellation.
func FailedEvent(err *types.TaskError) Event {
	ev := newEvent(EventFailed)
	ev.Err = err
	return ev
}
