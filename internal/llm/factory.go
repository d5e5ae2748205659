package llm

import (
	"context"
	"fmt"
	"mysql_practice_backend/internal/config"

	"go.uber.org/zap"
)

// NewProvider 根据配置创建模型客户端，外层依次包裹重试和日志
// 调用顺序: retry -> logging -> provider
func NewProvider(ctx context.Context, cfg config.AIConfig, log *zap.Logger) (Provider, error) {
	var base Provider
	var err error

	switch cfg.Provider {
	case "openai", "deepseek":
		baseURL := cfg.BaseURL
		if cfg.Provider == "deepseek" && baseURL == "" {
			baseURL = DeepSeekBaseURL
		}
		base, err = NewOpenAIProvider(OpenAIConfig{APIKey: cfg.APIKey, BaseURL: baseURL, Model: cfg.Model})
	case "anthropic":
		base, err = NewAnthropicProvider(AnthropicConfig{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Model: cfg.Model})
	case "gemini":
		base, err = NewGeminiProvider(ctx, GeminiConfig{APIKey: cfg.APIKey, Model: cfg.Model})
	case "mock":
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	logged := WithLogging(base, log)
	return WithRetry(logged, RetryConfig{
		MaxAttempts: cfg.Retry.MaxAttempts,
		InitialWait: cfg.Retry.InitialWait,
		MaxWait:     cfg.Retry.MaxWait,
		Multiplier:  cfg.Retry.Multiplier,
	}), nil
}
