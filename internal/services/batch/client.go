package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/oratio/internal/common"
	"github.com/ternarybob/oratio/internal/interfaces"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// APIError describes a non-2xx response from the batch API.
type APIError struct {
	StatusCode int
	Endpoint   string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("batch api %s returned %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

// GeminiClient drives the Gemini batch generation lifecycle over REST:
// upload a JSONL request file, start a batch job against it, poll the
// job resource, and download the keyed results file.
type GeminiClient struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	model       string
	displayName string
	temperature float64
	limiter     *rate.Limiter
	logger      arbor.ILogger
}

// NewGeminiClient creates a batch client. The API key is resolved from
// the environment, the key/value store, or config, in that order.
func NewGeminiClient(ctx context.Context, cfg *common.Config, kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) (*GeminiClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	apiKey, err := common.ResolveAPIKey(ctx, kvStorage, "gemini_api_key", cfg.LLM.Gemini.APIKey)
	if err != nil {
		return nil, fmt.Errorf("resolving gemini api key: %w", err)
	}

	limiter := rate.NewLimiter(rate.Every(time.Second), 1)

	logger.Info().
		Str("model", cfg.LLM.Gemini.Model).
		Str("display_name", cfg.Batch.DisplayNamePrefix).
		Msg("Gemini batch client initialized")

	return &GeminiClient{
		httpClient:  &http.Client{Timeout: 5 * time.Minute},
		baseURL:     defaultBaseURL,
		apiKey:      apiKey,
		model:       cfg.LLM.Gemini.Model,
		displayName: cfg.Batch.DisplayNamePrefix,
		temperature: cfg.Summaries.Temperature,
		limiter:     limiter,
		logger:      logger,
	}, nil
}

// SetBaseURL overrides the API endpoint. Used by tests.
func (c *GeminiClient) SetBaseURL(url string) {
	c.baseURL = strings.TrimRight(url, "/")
}

// Submit uploads the items as a JSONL file and starts a batch job over
// it, returning the job resource name.
func (c *GeminiClient) Submit(ctx context.Context, items []interfaces.BatchItem) (string, error) {
	if len(items) == 0 {
		return "", fmt.Errorf("no items to submit")
	}

	payload, err := EncodeRequests(items, c.temperature)
	if err != nil {
		return "", fmt.Errorf("encoding batch requests: %w", err)
	}

	fileName, err := c.uploadFile(ctx, payload)
	if err != nil {
		return "", err
	}

	c.logger.Info().
		Str("file", fileName).
		Int("items", len(items)).
		Msg("Batch request file uploaded")

	jobName, err := c.createJob(ctx, fileName)
	if err != nil {
		return "", err
	}

	c.logger.Info().
		Str("job", jobName).
		Msg("Batch job started")

	return jobName, nil
}

// Poll reports the current state of a batch job.
func (c *GeminiClient) Poll(ctx context.Context, jobID string) (*interfaces.BatchJobStatus, error) {
	endpoint := fmt.Sprintf("%s/v1beta/%s", c.baseURL, jobID)

	body, err := c.doJSON(ctx, http.MethodGet, endpoint, nil, "")
	if err != nil {
		return nil, err
	}

	var job struct {
		Metadata struct {
			State  string `json:"state"`
			Output struct {
				ResponsesFile string `json:"responsesFile"`
			} `json:"output"`
		} `json:"metadata"`
		Response struct {
			ResponsesFile string `json:"responsesFile"`
		} `json:"response"`
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, fmt.Errorf("decoding job status: %w", err)
	}

	switch job.Metadata.State {
	case "BATCH_STATE_SUCCEEDED":
		resultURI := job.Metadata.Output.ResponsesFile
		if resultURI == "" {
			resultURI = job.Response.ResponsesFile
		}
		if resultURI == "" {
			return nil, fmt.Errorf("job %s succeeded without a responses file", jobID)
		}
		return &interfaces.BatchJobStatus{State: interfaces.BatchStateSucceeded, ResultURI: resultURI}, nil

	case "BATCH_STATE_FAILED", "BATCH_STATE_CANCELLED", "BATCH_STATE_EXPIRED":
		reason := job.Error.Message
		if reason == "" {
			reason = job.Metadata.State
		}
		return &interfaces.BatchJobStatus{State: interfaces.BatchStateFailed, Reason: reason}, nil

	case "BATCH_STATE_PENDING", "BATCH_STATE_RUNNING", "BATCH_STATE_SUCCEEDING":
		return &interfaces.BatchJobStatus{State: interfaces.BatchStatePending}, nil

	default:
		return &interfaces.BatchJobStatus{State: interfaces.BatchStateUnknown, Reason: job.Metadata.State}, nil
	}
}

// Fetch downloads and decodes the results file of a succeeded job.
func (c *GeminiClient) Fetch(ctx context.Context, resultURI string) (map[string]string, error) {
	endpoint := fmt.Sprintf("%s/download/v1beta/%s:download?alt=media", c.baseURL, resultURI)

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading results: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readAPIError(resp, "download")
	}

	results, err := DecodeResults(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decoding results: %w", err)
	}

	c.logger.Info().
		Int("results", len(results)).
		Msg("Batch results downloaded")

	return results, nil
}

// uploadFile sends the JSONL payload as a multipart upload and returns
// the created file resource name.
func (c *GeminiClient) uploadFile(ctx context.Context, payload []byte) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Type", "application/json; charset=UTF-8")
	metaPart, err := writer.CreatePart(metaHeader)
	if err != nil {
		return "", err
	}
	meta := map[string]any{
		"file": map[string]any{
			"display_name": fmt.Sprintf("%s-%d", c.displayName, time.Now().Unix()),
		},
	}
	if err := json.NewEncoder(metaPart).Encode(meta); err != nil {
		return "", err
	}

	fileHeader := textproto.MIMEHeader{}
	fileHeader.Set("Content-Type", "application/jsonl")
	filePart, err := writer.CreatePart(fileHeader)
	if err != nil {
		return "", err
	}
	if _, err := filePart.Write(payload); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	endpoint := c.baseURL + "/upload/v1beta/files"

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "multipart/related; boundary="+writer.Boundary())
	req.Header.Set("X-Goog-Upload-Protocol", "multipart")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("uploading batch file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", readAPIError(resp, "upload")
	}

	var uploaded struct {
		File struct {
			Name string `json:"name"`
		} `json:"file"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		return "", fmt.Errorf("decoding upload response: %w", err)
	}
	if uploaded.File.Name == "" {
		return "", fmt.Errorf("upload response carried no file name")
	}

	return uploaded.File.Name, nil
}

// createJob starts a batch generation job over an uploaded request file.
func (c *GeminiClient) createJob(ctx context.Context, fileName string) (string, error) {
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:batchGenerateContent", c.baseURL, c.model)

	payload := map[string]any{
		"batch": map[string]any{
			"display_name": fmt.Sprintf("%s-%d", c.displayName, time.Now().Unix()),
			"input_config": map[string]any{
				"file_name": fileName,
			},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	respBody, err := c.doJSON(ctx, http.MethodPost, endpoint, body, "application/json")
	if err != nil {
		return "", err
	}

	var job struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(respBody, &job); err != nil {
		return "", fmt.Errorf("decoding job response: %w", err)
	}
	if job.Name == "" {
		return "", fmt.Errorf("job response carried no name")
	}

	return job.Name, nil
}

func (c *GeminiClient) doJSON(ctx context.Context, method, endpoint string, body []byte, contentType string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readAPIError(resp, endpoint)
	}

	return io.ReadAll(resp.Body)
}

func readAPIError(resp *http.Response, endpoint string) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	message := strings.TrimSpace(string(raw))
	var apiErr struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
		message = apiErr.Error.Message
	}

	return &APIError{StatusCode: resp.StatusCode, Endpoint: endpoint, Message: message}
}
