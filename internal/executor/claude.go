package executor

import (
	"github.com/josephgoksu/AgentWing/models"
	"github.com/josephgoksu/AgentWing/types"
)

const claudeSystemPrompt = "You are Claude acting as an autonomous coding agent. " +
	"Carry out the task end to end, using tools when they are offered, and finish " +
	"with a concise summary of every change you made."

// ClaudeExecutor adapts the Anthropic Claude backend. The underlying
// session is an eino claude chat model, built lazily on first Start.
type ClaudeExecutor struct {
	base
}

// NewClaudeExecutor creates the adapter. cancels is the queue-owned
// cancellation arena shared across all backends.
func NewClaudeExecutor(cfg types.BackendConfig, cancels *CancelRegistry) *ClaudeExecutor {
	return &ClaudeExecutor{base: base{
		kind:         models.BackendClaude,
		cfg:          cfg,
		cancels:      cancels,
		systemPrompt: claudeSystemPrompt,
	}}
}
