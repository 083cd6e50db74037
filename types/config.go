/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package types

// AppConfig represents the complete application configuration
type AppConfig struct {
	Verbose   bool            `mapstructure:"verbose"`
	Config    string          `mapstructure:"config"`
	Queue     QueueConfig     `mapstructure:"queue" validate:"required"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Compare   CompareConfig   `mapstructure:"compare"`
	Backends  BackendsConfig  `mapstructure:"backends"`
	Data      DataConfig      `mapstructure:"data" validate:"required"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// QueueConfig holds task queue settings.
type QueueConfig struct {
	// Concurrency is the number of tasks allowed to run simultaneously.
	Concurrency int `mapstructure:"concurrency" validate:"omitempty,min=1,max=64"`
	// DefaultBackend is used when a task does not pin one.
	DefaultBackend string `mapstructure:"defaultBackend" validate:"omitempty,oneof=claude codex gemini"`
	// Rehydrate reloads pending tasks from the store on startup.
	Rehydrate bool `mapstructure:"rehydrate"`
}

// RetryConfig holds the retry policy applied to failed tasks.
// Delays are in milliseconds to keep config files unit-free.
type RetryConfig struct {
	Policy            string   `mapstructure:"policy" validate:"omitempty,oneof=none linear exponential"`
	MaxRetries        int      `mapstructure:"maxRetries" validate:"omitempty,min=0,max=20"`
	InitialDelayMs    int      `mapstructure:"initialDelayMs" validate:"omitempty,min=1"`
	MaxDelayMs        int      `mapstructure:"maxDelayMs" validate:"omitempty,min=1"`
	BackoffMultiplier float64  `mapstructure:"backoffMultiplier" validate:"omitempty,min=1"`
	RetryableErrors   []string `mapstructure:"retryableErrors"`
}

// CompareConfig holds comparison orchestrator settings.
type CompareConfig struct {
	// MaxConcurrent bounds the number of non-terminal comparisons; each one
	// can fan out up to one workspace per backend.
	MaxConcurrent int `mapstructure:"maxConcurrent" validate:"omitempty,min=1,max=16"`
}

// BackendsConfig holds per-backend credentials and model selection.
type BackendsConfig struct {
	Claude BackendConfig `mapstructure:"claude"`
	Codex  BackendConfig `mapstructure:"codex"`
	Gemini BackendConfig `mapstructure:"gemini"`
}

// BackendConfig configures a single execution backend. An empty APIKey makes
// the backend unavailable; it never causes an error at load time.
type BackendConfig struct {
	APIKey    string `mapstructure:"apiKey"`
	Model     string `mapstructure:"model"`
	BaseURL   string `mapstructure:"baseUrl"`
	MaxTokens int    `mapstructure:"maxTokens" validate:"omitempty,min=1"`
}

// DataConfig holds task persistence configuration.
type DataConfig struct {
	// Store selects the repository backend.
	Store string `mapstructure:"store" validate:"required,oneof=memory file sqlite"`
	// File is the data file path for the file and sqlite stores.
	File string `mapstructure:"file"`
	// Format applies to the file store only.
	Format string `mapstructure:"format" validate:"omitempty,oneof=json yaml"`
}

// TelemetryConfig controls anonymous usage analytics.
type TelemetryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"apiKey"`
	Host    string `mapstructure:"host"`
}
