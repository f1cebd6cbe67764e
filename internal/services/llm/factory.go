package llm

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/oratio/internal/common"
	"github.com/ternarybob/oratio/internal/interfaces"
)

// NewProvider creates the generation provider selected by configuration.
func NewProvider(ctx context.Context, cfg *common.Config, kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) (interfaces.GenerationProvider, error) {
	logger.Info().Str("provider", string(cfg.LLM.Provider)).Msg("Initializing generation provider")

	switch cfg.LLM.Provider {
	case common.LLMProviderClaude:
		return NewClaudeProvider(ctx, &cfg.LLM.Claude, kvStorage, logger)

	case common.LLMProviderGemini:
		return NewGeminiProvider(ctx, &cfg.LLM.Gemini, kvStorage, logger)

	case common.LLMProviderOpenAI:
		return NewOpenAIProvider(ctx, &cfg.LLM.OpenAI, kvStorage, logger)

	case common.LLMProviderOllama:
		return NewOllamaProvider(&cfg.LLM.Ollama, logger)

	default:
		return nil, fmt.Errorf("unsupported llm provider %q: must be one of claude, gemini, openai, ollama", cfg.LLM.Provider)
	}
}
