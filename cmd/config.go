/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	appconfig "github.com/josephgoksu/AgentWing/internal/config"
	"github.com/josephgoksu/AgentWing/models"
	"github.com/josephgoksu/AgentWing/types"
)

const (
	configName = ".agentwing"
	envPrefix  = "AGENTWING"
)

// GlobalAppConfig holds the global application configuration instance.
var GlobalAppConfig types.AppConfig

// InitConfig reads in config file and ENV variables if set.
func InitConfig() {
	// Load .env file first if present. It's okay if it doesn't exist.
	_ = godotenv.Load()

	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if cfgFileFlag := viper.GetString("config"); cfgFileFlag != "" {
		viper.SetConfigFile(cfgFileFlag)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(configName)
	}

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	} else if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
		fmt.Fprintln(os.Stderr, "Error reading config file:", viper.ConfigFileUsed(), "-", err)
	}

	setDefaults()

	if err := viper.Unmarshal(&GlobalAppConfig); err != nil {
		fmt.Fprintln(os.Stderr, "Error unmarshaling config:", err)
		os.Exit(1)
	}

	applyBackendEnvFallbacks(&GlobalAppConfig)

	if err := models.ValidateStruct(&GlobalAppConfig); err != nil {
		fmt.Fprintln(os.Stderr, "Invalid configuration:", err)
		os.Exit(1)
	}
}

func setDefaults() {
	viper.SetDefault("queue.concurrency", appconfig.DefaultConcurrency)
	viper.SetDefault("queue.defaultBackend", appconfig.DefaultBackend)
	viper.SetDefault("queue.rehydrate", true)

	viper.SetDefault("retry.policy", appconfig.DefaultRetryPolicy)
	viper.SetDefault("retry.maxRetries", appconfig.DefaultMaxRetries)
	viper.SetDefault("retry.initialDelayMs", appconfig.DefaultInitialDelayMs)
	viper.SetDefault("retry.maxDelayMs", appconfig.DefaultMaxDelayMs)
	viper.SetDefault("retry.backoffMultiplier", appconfig.DefaultBackoffMultiplier)

	viper.SetDefault("compare.maxConcurrent", appconfig.DefaultCompareCeiling)

	viper.SetDefault("backends.claude.model", appconfig.DefaultClaudeModel)
	viper.SetDefault("backends.codex.model", appconfig.DefaultCodexModel)
	viper.SetDefault("backends.gemini.model", appconfig.DefaultGeminiModel)
	viper.SetDefault("backends.claude.maxTokens", appconfig.DefaultMaxTokens)
	viper.SetDefault("backends.codex.maxTokens", appconfig.DefaultMaxTokens)
	viper.SetDefault("backends.gemini.maxTokens", appconfig.DefaultMaxTokens)

	viper.SetDefault("data.store", "file")
	viper.SetDefault("data.file", "agentwing-tasks.json")
	viper.SetDefault("data.format", "json")

	viper.SetDefault("telemetry.enabled", false)
}

// applyBackendEnvFallbacks fills empty API keys from the conventional vendor
// environment variables. An absent key leaves the backend unavailable; it is
// never an error.
func applyBackendEnvFallbacks(cfg *types.AppConfig) {
	fill := func(bc *types.BackendConfig, backend string) {
		if bc.APIKey == "" {
			bc.APIKey = os.Getenv(appconfig.EnvKeyForBackend(backend))
		}
	}
	fill(&cfg.Backends.Claude, appconfig.BackendClaude)
	fill(&cfg.Backends.Codex, appconfig.BackendCodex)
	fill(&cfg.Backends.Gemini, appconfig.BackendGemini)
}

// GetConfig returns the loaded application configuration.
func GetConfig() *types.AppConfig {
	return &GlobalAppConfig
}
