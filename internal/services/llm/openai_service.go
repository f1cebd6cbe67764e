package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/oratio/internal/common"
	"github.com/ternarybob/oratio/internal/interfaces"
)

// OpenAIProvider generates text using the OpenAI Chat Completions API.
type OpenAIProvider struct {
	config  *common.OpenAIConfig
	logger  arbor.ILogger
	client  openai.Client
	limiter *rate.Limiter
	timeout time.Duration
}

// NewOpenAIProvider creates an OpenAI-backed generation provider. The API
// key is resolved from the environment, the key/value store, or config,
// in that order.
func NewOpenAIProvider(ctx context.Context, config *common.OpenAIConfig, kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) (*OpenAIProvider, error) {
	if config == nil {
		return nil, fmt.Errorf("openai config is nil")
	}

	apiKey, err := common.ResolveAPIKey(ctx, kvStorage, "openai_api_key", config.APIKey)
	if err != nil {
		return nil, fmt.Errorf("resolving openai api key: %w", err)
	}

	timeout, err := time.ParseDuration(config.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid openai timeout %q: %w", config.Timeout, err)
	}

	limiter, err := newRequestLimiter(config.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("invalid openai rate_limit %q: %w", config.RateLimit, err)
	}

	logger.Info().
		Str("model", config.Model).
		Str("rate_limit", config.RateLimit).
		Msg("OpenAI provider initialized")

	return &OpenAIProvider{
		config:  config,
		logger:  logger,
		client:  openai.NewClient(option.WithAPIKey(apiKey)),
		limiter: limiter,
		timeout: timeout,
	}, nil
}

func (p *OpenAIProvider) Name() string {
	return string(common.LLMProviderOpenAI)
}

func (p *OpenAIProvider) Model() string {
	return p.config.Model
}

// Generate sends a single-turn prompt and returns the full response text.
func (p *OpenAIProvider) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := p.buildParams(prompt, maxTokens, temperature)

	var text string
	err := withRetry(ctx, p.logger, "openai.generate", func() error {
		resp, err := p.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return err
		}

		if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
			return fmt.Errorf("openai returned no text content")
		}
		text = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("openai generate: %w", err)
	}

	return text, nil
}

// GenerateStream sends a single-turn prompt and delivers response text
// incrementally through onChunk. A non-nil error from onChunk aborts the
// stream.
func (p *OpenAIProvider) GenerateStream(ctx context.Context, prompt string, maxTokens int, temperature float64, onChunk func(chunk string) error) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := p.buildParams(prompt, maxTokens, temperature)

	stream := p.client.Chat.Completions.NewStreaming(ctx, params)
	received := false
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		received = true
		if err := onChunk(delta); err != nil {
			return err
		}
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("openai stream: %w", err)
	}
	if !received {
		return fmt.Errorf("openai stream returned no text content")
	}

	return nil
}

// HealthCheck verifies the API key and model with a minimal request.
func (p *OpenAIProvider) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := p.Generate(ctx, "ping", 16, 0); err != nil {
		return fmt.Errorf("openai health check: %w", err)
	}
	return nil
}

func (p *OpenAIProvider) Close() error {
	return nil
}

func (p *OpenAIProvider) buildParams(prompt string, maxTokens int, temperature float64) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.config.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxTokens: openai.Int(int64(maxTokens)),
	}
	if temperature > 0 {
		params.Temperature = openai.Float(temperature)
	}
	return params
}

var _ interfaces.GenerationProvider = (*OpenAIProvider)(nil)
