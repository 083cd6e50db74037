package executor

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	appcfg "github.com/josephgoksu/AgentWing/internal/config"
	"github.com/josephgoksu/AgentWing/models"
	"github.com/josephgoksu/AgentWing/types"
)

// newChatModel constructs the backend session object for an adapter. Client
// libraries are expensive to initialize, so adapters call this lazily on
// first use and memoize the result (see base.session).
func newChatModel(ctx context.Context, backend models.Backend, cfg types.BackendConfig) (model.BaseChatModel, error) {
	modelName := cfg.Model
	if modelName == "" {
		modelName = appcfg.DefaultModelForBackend(string(backend))
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = appcfg.DefaultMaxTokens
	}

	switch backend {
	case models.BackendClaude:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("claude API key is required")
		}
		return claude.NewChatModel(ctx, &claude.Config{
			APIKey:    cfg.APIKey,
			Model:     modelName,
			MaxTokens: maxTokens,
		})

	case models.BackendCodex:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("codex API key is required")
		}
		conf := &openai.ChatModelConfig{
			Model:  modelName,
			APIKey: cfg.APIKey,
		}
		if cfg.BaseURL != "" {
			conf.BaseURL = cfg.BaseURL
		}
		return openai.NewChatModel(ctx, conf)

	case models.BackendGemini:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("gemini API key is required")
		}
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("create genai client: %w", err)
		}
		return gemini.NewChatModel(ctx, &gemini.Config{
			Client: client,
			Model:  modelName,
		})

	default:
		return nil, fmt.Errorf("unsupported backend: %s (supported: claude, codex, gemini)", backend)
	}
}
