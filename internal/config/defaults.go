// Package config provides centralized configuration constants for AgentWing.
// All default values should be defined here to ensure a single source of truth.
package config

// Backend identifiers as used in configuration files and task options.
const (
	// DefaultBackend is used when a task does not pin a backend.
	DefaultBackend = "claude"

	// BackendClaude represents the Anthropic Claude backend
	BackendClaude = "claude"

	// BackendCodex represents the OpenAI Codex backend
	BackendCodex = "codex"

	// BackendGemini represents the Google Gemini backend
	BackendGemini = "gemini"
)

// Default model constants for each backend
const (
	// DefaultClaudeModel is the default model for the Claude backend
	DefaultClaudeModel = "claude-sonnet-4-20250514"

	// DefaultCodexModel is the default model for the Codex backend
	DefaultCodexModel = "gpt-5-codex"

	// DefaultGeminiModel is the default model for the Gemini backend
	DefaultGeminiModel = "gemini-2.5-pro"
)

// Environment variable names read when a config file supplies no key.
const (
	EnvClaudeAPIKey = "ANTHROPIC_API_KEY"
	EnvCodexAPIKey  = "OPENAI_API_KEY"
	EnvGeminiAPIKey = "GEMINI_API_KEY"
)

// Queue defaults.
const (
	// DefaultConcurrency is the number of simultaneously running tasks.
	DefaultConcurrency = 2

	// DefaultMaxTokens is the per-request output-token budget.
	DefaultMaxTokens = 8192
)

// Retry policy defaults.
const (
	DefaultRetryPolicy       = "exponential"
	DefaultMaxRetries        = 3
	DefaultInitialDelayMs    = 1000
	DefaultMaxDelayMs        = 60000
	DefaultBackoffMultiplier = 2.0
)

// DefaultCompareCeiling bounds concurrently running comparisons. Each
// comparison allocates up to one workspace per backend.
const DefaultCompareCeiling = 3

// DefaultModelForBackend returns the default model for a given backend string.
func DefaultModelForBackend(backend string) string {
	switch backend {
	case BackendClaude:
		return DefaultClaudeModel
	case BackendCodex:
		return DefaultCodexModel
	case BackendGemini:
		return DefaultGeminiModel
	default:
		return ""
	}
}

// EnvKeyForBackend returns the environment variable holding the API key for
// a backend.
func EnvKeyForBackend(backend string) string {
	switch backend {
	case BackendClaude:
		return EnvClaudeAPIKey
	case BackendCodex:
		return EnvCodexAPIKey
	case BackendGemini:
		return EnvGeminiAPIKey
	default:
		return ""
	}
}
