package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/ternarybob/oratio/internal/common"
	"github.com/ternarybob/oratio/internal/interfaces"
)

// GeminiProvider generates text using the Gemini API.
type GeminiProvider struct {
	config  *common.GeminiConfig
	logger  arbor.ILogger
	client  *genai.Client
	limiter *rate.Limiter
	timeout time.Duration
}

// NewGeminiProvider creates a Gemini-backed generation provider. The API
// key is resolved from the environment, the key/value store, or config,
// in that order.
func NewGeminiProvider(ctx context.Context, config *common.GeminiConfig, kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) (*GeminiProvider, error) {
	if config == nil {
		return nil, fmt.Errorf("gemini config is nil")
	}

	apiKey, err := common.ResolveAPIKey(ctx, kvStorage, "gemini_api_key", config.APIKey)
	if err != nil {
		return nil, fmt.Errorf("resolving gemini api key: %w", err)
	}

	timeout, err := time.ParseDuration(config.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid gemini timeout %q: %w", config.Timeout, err)
	}

	limiter, err := newRequestLimiter(config.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("invalid gemini rate_limit %q: %w", config.RateLimit, err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	logger.Info().
		Str("model", config.Model).
		Str("rate_limit", config.RateLimit).
		Msg("Gemini provider initialized")

	return &GeminiProvider{
		config:  config,
		logger:  logger,
		client:  client,
		limiter: limiter,
		timeout: timeout,
	}, nil
}

func (p *GeminiProvider) Name() string {
	return string(common.LLMProviderGemini)
}

func (p *GeminiProvider) Model() string {
	return p.config.Model
}

// Generate sends a single-turn prompt and returns the full response text.
func (p *GeminiProvider) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	contents := promptContents(prompt)
	config := p.buildConfig(maxTokens, temperature)

	var text string
	err := withRetry(ctx, p.logger, "gemini.generate", func() error {
		resp, err := p.client.Models.GenerateContent(ctx, p.config.Model, contents, config)
		if err != nil {
			return err
		}

		text = extractCandidateText(resp)
		if text == "" {
			return fmt.Errorf("gemini returned no text content")
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	return text, nil
}

// GenerateStream sends a single-turn prompt and delivers response text
// incrementally through onChunk. A non-nil error from onChunk aborts the
// stream.
func (p *GeminiProvider) GenerateStream(ctx context.Context, prompt string, maxTokens int, temperature float64, onChunk func(chunk string) error) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	contents := promptContents(prompt)
	config := p.buildConfig(maxTokens, temperature)

	received := false
	for resp, err := range p.client.Models.GenerateContentStream(ctx, p.config.Model, contents, config) {
		if err != nil {
			return fmt.Errorf("gemini stream: %w", err)
		}

		chunk := extractCandidateText(resp)
		if chunk == "" {
			continue
		}
		received = true
		if err := onChunk(chunk); err != nil {
			return err
		}
	}
	if !received {
		return fmt.Errorf("gemini stream returned no text content")
	}

	return nil
}

// HealthCheck verifies the API key and model with a minimal request.
func (p *GeminiProvider) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := p.Generate(ctx, "ping", 16, 0); err != nil {
		return fmt.Errorf("gemini health check: %w", err)
	}
	return nil
}

// Close releases the client reference. The genai client holds no
// connections that need explicit shutdown.
func (p *GeminiProvider) Close() error {
	p.client = nil
	return nil
}

func (p *GeminiProvider) buildConfig(maxTokens int, temperature float64) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxTokens),
	}
	if temperature > 0 {
		config.Temperature = genai.Ptr(float32(temperature))
	}
	return config
}

func promptContents(prompt string) []*genai.Content {
	return []*genai.Content{
		{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{genai.NewPartFromText(prompt)},
		},
	}
}

// extractCandidateText walks response candidates until one yields
// non-empty text.
func extractCandidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var text strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				text.WriteString(part.Text)
			}
		}
		if text.Len() > 0 {
			break
		}
	}

	return text.String()
}

var _ interfaces.GenerationProvider = (*GeminiProvider)(nil)
