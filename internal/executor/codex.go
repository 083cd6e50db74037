package executor

import (
	"github.com/josephgoksu/AgentWing/models"
	"github.com/josephgoksu/AgentWing/types"
)

const codexSystemPrompt = "You are Codex, an autonomous software engineering agent. " +
	"Complete the task, then report the files you touched and why."

// CodexExecutor adapts the OpenAI Codex backend. Codex rides the OpenAI
// chat-model client; a custom BaseURL in the backend config routes to
// compatible deployments.
type CodexExecutor struct {
	base
}

// NewCodexExecutor creates the adapter.
func NewCodexExecutor(cfg types.BackendConfig, cancels *CancelRegistry) *CodexExecutor {
	return &CodexExecutor{base: base{
		kind:         models.BackendCodex,
		cfg:          cfg,
		cancels:      cancels,
		systemPrompt: codexSystemPrompt,
	}}
}
