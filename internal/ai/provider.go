package ai

import (
	"context"
	"fmt"

	"clariox/config"
)

// New builds the generator selected by AI_PROVIDER.
func New(ctx context.Context, cfg config.AIConfig) (Generator, error) {
	switch cfg.Provider {
	case "", "groq":
		return NewGroqGenerator(GroqConfig{
			APIKey:  cfg.GroqAPIKey,
			BaseURL: cfg.GroqBaseURL,
			Model:   cfg.GroqModel,
			Timeout: cfg.Timeout,
		}), nil
	case "gemini":
		return NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}
