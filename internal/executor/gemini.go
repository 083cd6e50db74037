package executor

import (
	"github.com/josephgoksu/AgentWing/models"
	"github.com/josephgoksu/AgentWing/types"
)

const geminiSystemPrompt = "You are Gemini working as an autonomous coding agent. " +
	"Plan briefly, execute the task, and end with a summary of the changes."

// GeminiExecutor adapts the Google Gemini backend. The session wraps a genai
// client behind the eino gemini chat model.
type GeminiExecutor struct {
	base
}

// NewGeminiExecutor creates the adapter.
func NewGeminiExecutor(cfg types.BackendConfig, cancels *CancelRegistry) *GeminiExecutor {
	return &GeminiExecutor{base: base{
		kind:         models.BackendGemini,
		cfg:          cfg,
		cancels:      cancels,
		systemPrompt: geminiSystemPrompt,
	}}
}
