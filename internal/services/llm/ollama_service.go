package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/oratio/internal/common"
	"github.com/ternarybob/oratio/internal/interfaces"
)

// OllamaProvider generates text using a local Ollama server. No API key
// is required; the server is expected to be reachable at BaseURL.
type OllamaProvider struct {
	config  *common.OllamaConfig
	logger  arbor.ILogger
	client  *http.Client
	baseURL string
}

// ollamaGenerateRequest is the request body for /api/generate.
type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// ollamaGenerateResponse is one /api/generate response object. With
// streaming enabled the server sends one JSON object per line.
type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// NewOllamaProvider creates an Ollama-backed generation provider.
func NewOllamaProvider(config *common.OllamaConfig, logger arbor.ILogger) (*OllamaProvider, error) {
	if config == nil {
		return nil, fmt.Errorf("ollama config is nil")
	}

	timeout, err := time.ParseDuration(config.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama timeout %q: %w", config.Timeout, err)
	}

	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	logger.Info().
		Str("model", config.Model).
		Str("base_url", baseURL).
		Msg("Ollama provider initialized")

	return &OllamaProvider{
		config:  config,
		logger:  logger,
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}, nil
}

func (p *OllamaProvider) Name() string {
	return string(common.LLMProviderOllama)
}

func (p *OllamaProvider) Model() string {
	return p.config.Model
}

// Generate sends a single-turn prompt and returns the full response text.
func (p *OllamaProvider) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	body, err := p.post(ctx, p.buildRequest(prompt, maxTokens, temperature, false))
	if err != nil {
		return "", err
	}
	defer body.Close()

	bodyBytes, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("reading ollama response: %w", err)
	}

	var genResp ollamaGenerateResponse
	if err := json.Unmarshal(bodyBytes, &genResp); err != nil {
		return "", fmt.Errorf("parsing ollama response: %w", err)
	}
	if genResp.Error != "" {
		return "", fmt.Errorf("ollama error: %s", genResp.Error)
	}
	if genResp.Response == "" {
		return "", fmt.Errorf("ollama returned no text content")
	}

	return genResp.Response, nil
}

// GenerateStream sends a single-turn prompt and delivers response text
// incrementally through onChunk. Ollama streams one JSON object per
// line until a final object with done=true.
func (p *OllamaProvider) GenerateStream(ctx context.Context, prompt string, maxTokens int, temperature float64, onChunk func(chunk string) error) error {
	body, err := p.post(ctx, p.buildRequest(prompt, maxTokens, temperature, true))
	if err != nil {
		return err
	}
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	received := false
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var genResp ollamaGenerateResponse
		if err := json.Unmarshal(line, &genResp); err != nil {
			return fmt.Errorf("parsing ollama stream line: %w", err)
		}
		if genResp.Error != "" {
			return fmt.Errorf("ollama error: %s", genResp.Error)
		}

		if genResp.Response != "" {
			received = true
			if err := onChunk(genResp.Response); err != nil {
				return err
			}
		}
		if genResp.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading ollama stream: %w", err)
	}
	if !received {
		return fmt.Errorf("ollama stream returned no text content")
	}

	return nil
}

// HealthCheck verifies the server is reachable via the tags endpoint.
func (p *OllamaProvider) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("creating ollama health request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama server unreachable at %s: %w", p.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama health check returned status %d", resp.StatusCode)
	}
	return nil
}

func (p *OllamaProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

func (p *OllamaProvider) buildRequest(prompt string, maxTokens int, temperature float64, stream bool) ollamaGenerateRequest {
	return ollamaGenerateRequest{
		Model:  p.config.Model,
		Prompt: prompt,
		Stream: stream,
		Options: ollamaOptions{
			NumPredict:  maxTokens,
			Temperature: temperature,
		},
	}
}

func (p *OllamaProvider) post(ctx context.Context, reqBody ollamaGenerateRequest) (io.ReadCloser, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/generate", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("creating ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(body))
	}

	return resp.Body, nil
}

var _ interfaces.GenerationProvider = (*OllamaProvider)(nil)
