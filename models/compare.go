package models

import "time"

// CompareStatus represents the aggregate state of a comparison run.
type CompareStatus string

const (
	CompareRunning        CompareStatus = "running"
	CompareCancelling     CompareStatus = "cancelling"
	CompareCompleted      CompareStatus = "completed"
	ComparePartialSuccess CompareStatus = "partial_success"
	CompareFailed         CompareStatus = "failed"
	CompareCancelled      CompareStatus = "cancelled"
)

// IsTerminal reports whether the comparison has reached a final state.
func (s CompareStatus) IsTerminal() bool {
	switch s {
	case CompareCompleted, ComparePartialSuccess, CompareFailed, CompareCancelled:
		return true
	}
	return false
}

// CompareTask groups one task per backend, all submitted against the same
// instruction and the same base snapshot of a source tree. A nil child task
// id means the backend was unavailable at submission.
type CompareTask struct {
	ID           string        `json:"id" validate:"required,uuid4"`
	Instruction  string        `json:"instruction" validate:"required,min=1"`
	RepositoryID string        `json:"repositoryId" validate:"required"`
	BaseCommit   string        `json:"baseCommit"`
	ClaudeTaskID *string       `json:"claudeTaskId,omitempty"`
	CodexTaskID  *string       `json:"codexTaskId,omitempty"`
	GeminiTaskID *string       `json:"geminiTaskId,omitempty"`
	Status       CompareStatus `json:"status"`
	CreatedAt    time.Time     `json:"createdAt"`
	CompletedAt  *time.Time    `json:"completedAt,omitempty"`
}

// RecordedTaskIDs returns the non-nil child task ids keyed by backend.
func (c *CompareTask) RecordedTaskIDs() map[Backend]string {
	ids := make(map[Backend]string, 3)
	if c.ClaudeTaskID != nil {
		ids[BackendClaude] = *c.ClaudeTaskID
	}
	if c.CodexTaskID != nil {
		ids[BackendCodex] = *c.CodexTaskID
	}
	if c.GeminiTaskID != nil {
		ids[BackendGemini] = *c.GeminiTaskID
	}
	return ids
}

// SetTaskID records a child task id for the given backend.
func (c *CompareTask) SetTaskID(b Backend, taskID string) {
	id := taskID
	switch b {
	case BackendClaude:
		c.ClaudeTaskID = &id
	case BackendCodex:
		c.CodexTaskID = &id
	case BackendGemini:
		c.GeminiTaskID = &id
	}
}
