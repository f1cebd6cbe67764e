package interfaces

import "context"

// GenerationProvider is the uniform contract over text-generation
// backends. Failure is always an error, never a silent partial result:
// an empty completion from a provider is reported as an error.
type GenerationProvider interface {
	// Name returns the provider identifier (claude, openai, gemini, ollama).
	Name() string

	// Model returns the configured model identifier.
	Model() string

	// Generate performs one synchronous completion.
	Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)

	// GenerateStream performs one streamed completion, delivering text
	// chunks in order to onChunk. The stream is finite and not
	// restartable; a non-nil error from onChunk aborts the stream.
	GenerateStream(ctx context.Context, prompt string, maxTokens int, temperature float64, onChunk func(chunk string) error) error

	// HealthCheck verifies the backend accepts requests.
	HealthCheck(ctx context.Context) error

	// Close releases the underlying client.
	Close() error
}

// BatchItem is one unit of work submitted to an asynchronous batch job.
type BatchItem struct {
	Key    string `json:"key"`
	Prompt string `json:"prompt"`
}

// BatchState is the lifecycle state reported for a batch job.
type BatchState string

const (
	BatchStatePending   BatchState = "pending"
	BatchStateSucceeded BatchState = "succeeded"
	BatchStateFailed    BatchState = "failed"
	BatchStateUnknown   BatchState = "unknown"
)

// BatchJobStatus is a point-in-time poll result for a batch job.
type BatchJobStatus struct {
	State     BatchState `json:"state"`
	ResultURI string     `json:"result_uri,omitempty"`
	Reason    string     `json:"reason,omitempty"`
}

// BatchClient wraps an asynchronous bulk-generation facility:
// upload items, poll until terminal, download keyed results.
type BatchClient interface {
	// Submit uploads the items and starts a batch job, returning its id.
	Submit(ctx context.Context, items []BatchItem) (string, error)

	// Poll reports the job's current state.
	Poll(ctx context.Context, jobID string) (*BatchJobStatus, error)

	// Fetch downloads the results of a succeeded job as a map from item
	// key to response text.
	Fetch(ctx context.Context, resultURI string) (map[string]string, error)
}
