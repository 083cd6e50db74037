package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/josephgoksu/AgentWing/types"
)

// Backend identifies an execution backend.
type Backend string

const (
	BackendClaude Backend = "claude"
	BackendCodex  Backend = "codex"
	BackendGemini Backend = "gemini"
)

// AllBackends lists the supported backends in their canonical order.
var AllBackends = []Backend{BackendClaude, BackendCodex, BackendGemini}

// TaskStatus represents the possible statuses of a task.
type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusRunning   TaskStatus = "running"
	StatusCompleted TaskStatus = "completed"
	StatusFailed    TaskStatus = "failed"
	StatusCancelled TaskStatus = "cancelled"
)

// IsTerminal reports whether the status is final.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Task represents a unit of work submitted to the queue.
type Task struct {
	ID          string           `json:"id" validate:"required,uuid4"`
	Instruction string           `json:"instruction" validate:"required,min=1"`
	Context     *TaskContext     `json:"context,omitempty"`
	Options     TaskOptions      `json:"options"`
	Priority    int              `json:"priority"`
	Status      TaskStatus       `json:"status" validate:"required,oneof=pending running completed failed cancelled"`
	Result      string           `json:"result,omitempty"`
	Error       *types.TaskError `json:"error,omitempty"`
	Retry       *RetryMetadata   `json:"retry,omitempty"`
	CompareID   string           `json:"compareId,omitempty"`
	CreatedAt   time.Time        `json:"createdAt" validate:"required"`
	StartedAt   *time.Time       `json:"startedAt,omitempty"`
	CompletedAt *time.Time       `json:"completedAt,omitempty"`
	SessionID   string           `json:"sessionId,omitempty"`
}

// TaskContext carries optional working-directory and repository hints. The
// queue and executors treat it as opaque routing information.
type TaskContext struct {
	WorkingDir   string `json:"workingDir,omitempty"`
	RepositoryID string `json:"repositoryId,omitempty"`
	Branch       string `json:"branch,omitempty"`
}

// TaskOptions selects the backend and tunes execution.
type TaskOptions struct {
	Backend   Backend            `json:"backend,omitempty" validate:"omitempty,oneof=claude codex gemini"`
	Model     string             `json:"model,omitempty"`
	MaxTokens int                `json:"maxTokens,omitempty" validate:"omitempty,min=1"`
	Timeout   time.Duration      `json:"timeout,omitempty"`
	Retry     *types.RetryConfig `json:"retry,omitempty"`
}

// RetryMetadata tracks retry bookkeeping across attempts.
type RetryMetadata struct {
	Attempts    int        `json:"attempts"`
	LastError   string     `json:"lastError,omitempty"`
	NextRetryAt *time.Time `json:"nextRetryAt,omitempty"`
}

// global validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// ValidateStruct performs validation on any struct that has validation tags.
func ValidateStruct(s interface{}) error {
	if validate == nil {
		validate = validator.New()
	}
	err := validate.Struct(s)
	if err != nil {
		validationErrors := err.(validator.ValidationErrors)
		var errorMessages []string
		for _, e := range validationErrors {
			errorMessages = append(errorMessages, fmt.Sprintf("Validation failed on field '%s': rule '%s' (value: '%v')", e.StructNamespace(), e.Tag(), e.Value()))
		}
		return fmt.Errorf("%s", strings.Join(errorMessages, "; "))
	}
	return nil
}

// NewTask creates a pending task with a fresh id and default timestamps.
func NewTask(instruction string, opts TaskOptions) *Task {
	return &Task{
		ID:          uuid.NewString(),
		Instruction: instruction,
		Options:     opts,
		Status:      StatusPending,
		CreatedAt:   time.Now(),
	}
}
