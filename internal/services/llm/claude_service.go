package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/oratio/internal/common"
	"github.com/ternarybob/oratio/internal/interfaces"
)

// ClaudeProvider generates text using the Anthropic Messages API.
type ClaudeProvider struct {
	config  *common.ClaudeConfig
	logger  arbor.ILogger
	client  anthropic.Client
	limiter *rate.Limiter
	timeout time.Duration
}

// NewClaudeProvider creates a Claude-backed generation provider. The API
// key is resolved from the environment, the key/value store, or config,
// in that order.
func NewClaudeProvider(ctx context.Context, config *common.ClaudeConfig, kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) (*ClaudeProvider, error) {
	if config == nil {
		return nil, fmt.Errorf("claude config is nil")
	}

	apiKey, err := common.ResolveAPIKey(ctx, kvStorage, "anthropic_api_key", config.APIKey)
	if err != nil {
		return nil, fmt.Errorf("resolving anthropic api key: %w", err)
	}

	timeout, err := time.ParseDuration(config.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid claude timeout %q: %w", config.Timeout, err)
	}

	limiter, err := newRequestLimiter(config.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("invalid claude rate_limit %q: %w", config.RateLimit, err)
	}

	logger.Info().
		Str("model", config.Model).
		Str("rate_limit", config.RateLimit).
		Msg("Claude provider initialized")

	return &ClaudeProvider{
		config:  config,
		logger:  logger,
		client:  anthropic.NewClient(option.WithAPIKey(apiKey)),
		limiter: limiter,
		timeout: timeout,
	}, nil
}

func (p *ClaudeProvider) Name() string {
	return string(common.LLMProviderClaude)
}

func (p *ClaudeProvider) Model() string {
	return p.config.Model
}

// Generate sends a single-turn prompt and returns the full response text.
func (p *ClaudeProvider) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := p.buildParams(prompt, maxTokens, temperature)

	var text string
	err := withRetry(ctx, p.logger, "claude.generate", func() error {
		resp, err := p.client.Messages.New(ctx, params)
		if err != nil {
			return err
		}

		text = ""
		for _, block := range resp.Content {
			if block.Type == "text" {
				text += block.Text
			}
		}
		if text == "" {
			return fmt.Errorf("claude returned no text content")
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("claude generate: %w", err)
	}

	return text, nil
}

// GenerateStream sends a single-turn prompt and delivers response text
// incrementally through onChunk. A non-nil error from onChunk aborts the
// stream.
func (p *ClaudeProvider) GenerateStream(ctx context.Context, prompt string, maxTokens int, temperature float64, onChunk func(chunk string) error) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := p.buildParams(prompt, maxTokens, temperature)

	stream := p.client.Messages.NewStreaming(ctx, params)
	received := false
	for stream.Next() {
		event := stream.Current()
		switch ev := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			switch d := ev.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if d.Text == "" {
					continue
				}
				received = true
				if err := onChunk(d.Text); err != nil {
					return err
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("claude stream: %w", err)
	}
	if !received {
		return fmt.Errorf("claude stream returned no text content")
	}

	return nil
}

// HealthCheck verifies the API key and model with a minimal request.
func (p *ClaudeProvider) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := p.Generate(ctx, "ping", 16, 0); err != nil {
		return fmt.Errorf("claude health check: %w", err)
	}
	return nil
}

func (p *ClaudeProvider) Close() error {
	return nil
}

func (p *ClaudeProvider) buildParams(prompt string, maxTokens int, temperature float64) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.config.Model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if temperature > 0 {
		params.Temperature = anthropic.Float(temperature)
	}
	return params
}

var _ interfaces.GenerationProvider = (*ClaudeProvider)(nil)
