package models

import "time"

// ProgressData is the durable per-task accumulator derived by folding the
// canonical event stream. It is mutated only by the progress pipeline.
type ProgressData struct {
	CurrentTurn    int             `json:"currentTurn"`
	MaxTurns       int             `json:"maxTurns,omitempty"`
	Stats          ExecutionStats  `json:"stats"`
	ToolUsage      map[string]int  `json:"toolUsage,omitempty"`
	ToolExecutions []ToolExecution `json:"toolExecutions,omitempty"`
	Responses      []ResponseEntry `json:"responses,omitempty"`
	Todos          []TodoItem      `json:"todos,omitempty"`
	Log            []string        `json:"log,omitempty"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// ExecutionStats holds running counters merged from Statistics events.
type ExecutionStats struct {
	TotalTurns     int         `json:"totalTurns"`
	TotalToolCalls int         `json:"totalToolCalls"`
	FilesProcessed int         `json:"filesProcessed"`
	FilesCreated   int         `json:"filesCreated"`
	FilesModified  int         `json:"filesModified"`
	TokenUsage     *TokenUsage `json:"tokenUsage,omitempty"`
}

// TokenUsage tracks token consumption for a task.
type TokenUsage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// ToolExecution records one tool invocation, paired from ToolStart and
// ToolEnd events. Completed is false while the end event is outstanding.
type ToolExecution struct {
	Tool       string    `json:"tool"`
	ToolID     string    `json:"toolId,omitempty"`
	Input      string    `json:"input,omitempty"`
	Output     string    `json:"output,omitempty"`
	Error      string    `json:"error,omitempty"`
	Success    bool      `json:"success"`
	Completed  bool      `json:"completed"`
	StartedAt  time.Time `json:"startedAt"`
	DurationMs int64     `json:"durationMs,omitempty"`
}

// ResponseEntry records one backend textual response.
type ResponseEntry struct {
	Text       string    `json:"text"`
	TurnNumber int       `json:"turnNumber,omitempty"`
	At         time.Time `json:"at"`
}

// TodoItem is one entry of the latest checklist snapshot reported by a
// backend.
type TodoItem struct {
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// NewProgressData returns an empty accumulator.
func NewProgressData() *ProgressData {
	return &ProgressData{
		ToolUsage: make(map[string]int),
	}
}
