package common

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"

	"github.com/ternarybob/oratio/internal/interfaces"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	LLM         LLMConfig       `toml:"llm"`
	Profiler    ProfilerConfig  `toml:"profiler"`
	Batch       BatchConfig     `toml:"batch"`
	Summaries   SummariesConfig `toml:"summaries"`
	Translate   TranslateConfig `toml:"translate"`
	Pipeline    PipelineConfig  `toml:"pipeline"`
}

type StorageConfig struct {
	SQLite SQLiteConfig `toml:"sqlite"`
	Badger BadgerConfig `toml:"badger"`
}

// SQLiteConfig holds the relational store settings. The SQLite database
// carries politicians, sessions, speeches, profiles and summaries.
type SQLiteConfig struct {
	Path          string `toml:"path" validate:"required"` // Database file path
	CacheSizeMB   int    `toml:"cache_size_mb"`            // Page cache size in MB (default: 64)
	BusyTimeoutMS int    `toml:"busy_timeout_ms"`          // Lock wait before SQLITE_BUSY (default: 5000)
	WALMode       bool   `toml:"wal_mode"`                 // Enable write-ahead logging (default: true)
}

// BadgerConfig holds the key/value store settings. Badger carries API keys
// and batch-job resume state.
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"` // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"`         // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level      string   `toml:"level" validate:"oneof=debug info warn error"` // "debug", "info", "warn", "error"
	Format     string   `toml:"format"`                                       // "json" or "text"
	Output     []string `toml:"output"`                                       // "stdout", "file"
	TimeFormat string   `toml:"time_format"`                                  // Time format for logs (default: "15:04:05")
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderOpenAI uses OpenAI API
	LLMProviderOpenAI LLMProvider = "openai"
	// LLMProviderOllama uses a local Ollama server
	LLMProviderOllama LLMProvider = "ollama"
)

// LLMConfig contains unified configuration for all AI providers
type LLMConfig struct {
	Provider LLMProvider  `toml:"provider" validate:"oneof=claude gemini openai ollama"` // Active provider (default: "gemini")
	Claude   ClaudeConfig `toml:"claude"`
	Gemini   GeminiConfig `toml:"gemini"`
	OpenAI   OpenAIConfig `toml:"openai"`
	Ollama   OllamaConfig `toml:"ollama"`
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey    string `toml:"api_key"`    // Anthropic API key (ANTHROPIC_API_KEY or config)
	Model     string `toml:"model"`      // Model for generation (default: "claude-haiku-3-5-20241022")
	Timeout   string `toml:"timeout"`    // Operation timeout as duration string (default: "5m")
	RateLimit string `toml:"rate_limit"` // Rate limit duration string (default: "1s")
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey    string `toml:"api_key"`    // Google Gemini API key
	Model     string `toml:"model"`      // Model for generation (default: "gemini-2.5-flash")
	Timeout   string `toml:"timeout"`    // Operation timeout as duration string (default: "5m")
	RateLimit string `toml:"rate_limit"` // Rate limit duration string (default: "4s" for 15 RPM)
}

// OpenAIConfig contains OpenAI API configuration
type OpenAIConfig struct {
	APIKey    string `toml:"api_key"`    // OpenAI API key (OPENAI_API_KEY or config)
	Model     string `toml:"model"`      // Model for generation (default: "gpt-4o-mini")
	Timeout   string `toml:"timeout"`    // Operation timeout as duration string (default: "5m")
	RateLimit string `toml:"rate_limit"` // Rate limit duration string (default: "1s")
}

// OllamaConfig contains local Ollama server configuration
type OllamaConfig struct {
	BaseURL string `toml:"base_url"` // Server URL (default: "http://localhost:11434")
	Model   string `toml:"model"`    // Model for generation (default: "llama3.1")
	Timeout string `toml:"timeout"`  // Operation timeout as duration string (default: "10m")
}

// ProfilerConfig contains configuration for profile generation
type ProfilerConfig struct {
	Workers     int     `toml:"workers" validate:"min=1"`     // Concurrent generation workers (default: 4)
	BatchSize   int     `toml:"batch_size" validate:"min=1"`  // Profiles requested per prompt (default: 10)
	MaxRetries  int     `toml:"max_retries" validate:"min=1"` // Full passes before giving up (default: 3)
	MaxTokens   int     `toml:"max_tokens"`                   // Maximum tokens in response (default: 8000)
	Temperature float64 `toml:"temperature"`                  // Completion temperature (default: 0.3)
	Streaming   bool    `toml:"streaming"`                    // Parse profiles incrementally from the stream
}

// BatchConfig contains configuration for asynchronous batch generation.
// Batch mode submits prompt files to the provider batch API instead of
// issuing synchronous calls.
type BatchConfig struct {
	Enabled             bool          `toml:"enabled"`               // Use batch API for profile generation
	ChunkSize           int           `toml:"chunk_size"`            // Items per submitted job, floor 100 (default: 100)
	PollInterval        time.Duration `toml:"poll_interval"`         // Job status poll cadence (default: 30s)
	Timeout             time.Duration `toml:"timeout"`               // Per-job completion deadline (default: 1h)
	UnknownStateTimeout time.Duration `toml:"unknown_state_timeout"` // Abort after this long in an unknown state (default: 5m)
	DisplayNamePrefix   string        `toml:"display_name_prefix"`   // Job display name prefix (default: "oratio")
}

// SummariesConfig contains configuration for agenda and speech summaries
type SummariesConfig struct {
	MaxTokens   int     `toml:"max_tokens"`                   // Maximum tokens in response (default: 8000)
	Temperature float64 `toml:"temperature"`                  // Completion temperature (default: 0.3)
	MaxRetries  int     `toml:"max_retries" validate:"min=1"` // Full passes before giving up (default: 10)
	BatchSize   int     `toml:"batch_size" validate:"min=1"`  // Speeches summarized per prompt (default: 10)
}

// TranslateConfig contains configuration for EN/RU translation passes
type TranslateConfig struct {
	MaxTokens   int     `toml:"max_tokens"`  // Maximum tokens in response (default: 8000)
	Temperature float64 `toml:"temperature"` // Completion temperature (default: 0.2)
}

// PipelineConfig contains configuration for the daily routine
type PipelineConfig struct {
	Schedule  string   `toml:"schedule"`   // Cron schedule for the routine (default: "0 3 * * *")
	SkipSteps []string `toml:"skip_steps"` // Step names to skip (see pipeline.StepNames)
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in oratio.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Storage: StorageConfig{
			SQLite: SQLiteConfig{
				Path:          "./data/oratio.db",
				CacheSizeMB:   64,
				BusyTimeoutMS: 5000,
				WALMode:       true,
			},
			Badger: BadgerConfig{
				Path: "./data/kv",
			},
		},
		Logging: LoggingConfig{
			Level:      "info",                     // Info level for production (debug|info|warn|error)
			Format:     "text",                     // Human-readable text format (text|json)
			Output:     []string{"stdout", "file"}, // Log to both console and file
			TimeFormat: "15:04:05",
		},
		LLM: LLMConfig{
			Provider: LLMProviderGemini,
			Claude: ClaudeConfig{
				APIKey:    "", // User must provide API key (ANTHROPIC_API_KEY or config)
				Model:     "claude-haiku-3-5-20241022",
				Timeout:   "5m",
				RateLimit: "1s",
			},
			Gemini: GeminiConfig{
				APIKey:    "", // User must provide API key (no fallback)
				Model:     "gemini-2.5-flash",
				Timeout:   "5m",
				RateLimit: "4s", // Default to 4s (15 RPM) for free tier
			},
			OpenAI: OpenAIConfig{
				APIKey:    "", // User must provide API key (OPENAI_API_KEY or config)
				Model:     "gpt-4o-mini",
				Timeout:   "5m",
				RateLimit: "1s",
			},
			Ollama: OllamaConfig{
				BaseURL: "http://localhost:11434",
				Model:   "llama3.1",
				Timeout: "10m", // Local models are slow; allow long generations
			},
		},
		Profiler: ProfilerConfig{
			Workers:     4,
			BatchSize:   10,
			MaxRetries:  3,
			MaxTokens:   8000,
			Temperature: 0.3,
			Streaming:   true,
		},
		Batch: BatchConfig{
			Enabled:             false, // Synchronous generation by default
			ChunkSize:           100,
			PollInterval:        30 * time.Second,
			Timeout:             time.Hour,
			UnknownStateTimeout: 5 * time.Minute,
			DisplayNamePrefix:   "oratio",
		},
		Summaries: SummariesConfig{
			MaxTokens:   8000,
			Temperature: 0.3,
			MaxRetries:  10,
			BatchSize:   10,
		},
		Translate: TranslateConfig{
			MaxTokens:   8000,
			Temperature: 0.2,
		},
		Pipeline: PipelineConfig{
			Schedule:  "0 3 * * *", // 03:00 daily
			SkipSteps: []string{},
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env -> CLI
// Priority system: CLI flags > Environment variables > Config file > Defaults
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// default -> file1 -> file2 -> ... -> env. Later files override earlier files.
// Example: LoadFromFiles("base.toml", "override.toml") - override.toml settings
// take precedence over base.toml.
func LoadFromFiles(paths ...string) (*Config, error) {
	// Start with defaults
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier files)
	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Unmarshal into config (merges with existing values, later values override)
		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	// Apply environment variables (overrides all file configs)
	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	// Environment configuration (highest priority: ORATIO_ENV, fallback: GO_ENV)
	if env := os.Getenv("ORATIO_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Storage configuration
	if sqlitePath := os.Getenv("ORATIO_SQLITE_PATH"); sqlitePath != "" {
		config.Storage.SQLite.Path = sqlitePath
	}
	if badgerPath := os.Getenv("ORATIO_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Logging configuration
	if level := os.Getenv("ORATIO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("ORATIO_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("ORATIO_LOG_OUTPUT"); output != "" {
		// Split comma-separated output types
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// LLM provider configuration
	if provider := os.Getenv("ORATIO_LLM_PROVIDER"); provider != "" {
		config.LLM.Provider = LLMProvider(provider)
	}

	// Claude configuration
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.LLM.Claude.APIKey = apiKey
	}
	if apiKey := os.Getenv("ORATIO_CLAUDE_API_KEY"); apiKey != "" {
		config.LLM.Claude.APIKey = apiKey // ORATIO_ prefix takes priority
	}
	if model := os.Getenv("ORATIO_CLAUDE_MODEL"); model != "" {
		config.LLM.Claude.Model = model
	}
	if rateLimit := os.Getenv("ORATIO_CLAUDE_RATE_LIMIT"); rateLimit != "" {
		config.LLM.Claude.RateLimit = rateLimit
	}

	// Gemini configuration
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.LLM.Gemini.APIKey = apiKey
	}
	if apiKey := os.Getenv("ORATIO_GEMINI_API_KEY"); apiKey != "" {
		config.LLM.Gemini.APIKey = apiKey // ORATIO_ prefix takes priority
	}
	if model := os.Getenv("ORATIO_GEMINI_MODEL"); model != "" {
		config.LLM.Gemini.Model = model
	}
	if rateLimit := os.Getenv("ORATIO_GEMINI_RATE_LIMIT"); rateLimit != "" {
		config.LLM.Gemini.RateLimit = rateLimit
	}

	// OpenAI configuration
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.LLM.OpenAI.APIKey = apiKey
	}
	if apiKey := os.Getenv("ORATIO_OPENAI_API_KEY"); apiKey != "" {
		config.LLM.OpenAI.APIKey = apiKey // ORATIO_ prefix takes priority
	}
	if model := os.Getenv("ORATIO_OPENAI_MODEL"); model != "" {
		config.LLM.OpenAI.Model = model
	}

	// Ollama configuration
	if baseURL := os.Getenv("ORATIO_OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.Ollama.BaseURL = baseURL
	}
	if model := os.Getenv("ORATIO_OLLAMA_MODEL"); model != "" {
		config.LLM.Ollama.Model = model
	}

	// Profiler configuration
	if workers := os.Getenv("ORATIO_PROFILER_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil {
			config.Profiler.Workers = w
		}
	}
	if batchSize := os.Getenv("ORATIO_PROFILER_BATCH_SIZE"); batchSize != "" {
		if bs, err := strconv.Atoi(batchSize); err == nil {
			config.Profiler.BatchSize = bs
		}
	}
	if maxRetries := os.Getenv("ORATIO_PROFILER_MAX_RETRIES"); maxRetries != "" {
		if mr, err := strconv.Atoi(maxRetries); err == nil {
			config.Profiler.MaxRetries = mr
		}
	}
	if streaming := os.Getenv("ORATIO_PROFILER_STREAMING"); streaming != "" {
		if s, err := strconv.ParseBool(streaming); err == nil {
			config.Profiler.Streaming = s
		}
	}

	// Batch configuration
	if enabled := os.Getenv("ORATIO_BATCH_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Batch.Enabled = e
		}
	}
	if chunkSize := os.Getenv("ORATIO_BATCH_CHUNK_SIZE"); chunkSize != "" {
		if cs, err := strconv.Atoi(chunkSize); err == nil {
			config.Batch.ChunkSize = cs
		}
	}
	if pollInterval := os.Getenv("ORATIO_BATCH_POLL_INTERVAL"); pollInterval != "" {
		if pi, err := time.ParseDuration(pollInterval); err == nil {
			config.Batch.PollInterval = pi
		}
	}
	if timeout := os.Getenv("ORATIO_BATCH_TIMEOUT"); timeout != "" {
		if t, err := time.ParseDuration(timeout); err == nil {
			config.Batch.Timeout = t
		}
	}

	// Pipeline configuration
	if schedule := os.Getenv("ORATIO_PIPELINE_SCHEDULE"); schedule != "" {
		config.Pipeline.Schedule = schedule
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config.
// Command-line flags have highest priority.
func ApplyFlagOverrides(config *Config, provider string, logLevel string) {
	if provider != "" {
		config.LLM.Provider = LLMProvider(provider)
	}
	if logLevel != "" {
		config.Logging.Level = logLevel
	}
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Batch.ChunkSize < 1 {
		return fmt.Errorf("invalid configuration: batch chunk_size must be positive, got %d", c.Batch.ChunkSize)
	}
	return nil
}

// ResolveAPIKey resolves an API key by name with environment variable priority.
// Resolution order: environment variables → KV store → config fallback → error.
// This ensures ORATIO_* environment variables always take precedence.
func ResolveAPIKey(ctx context.Context, kvStorage interfaces.KeyValueStorage, name string, configFallback string) (string, error) {
	// Map of KV store key names to environment variable names.
	// Environment variables have highest priority; ORATIO_ names first,
	// then the provider's conventional variable.
	keyToEnvMapping := map[string][]string{
		"gemini_api_key":    {"ORATIO_GEMINI_API_KEY", "GEMINI_API_KEY"},
		"google_api_key":    {"ORATIO_GEMINI_API_KEY", "GEMINI_API_KEY"}, // Legacy KV store key
		"anthropic_api_key": {"ORATIO_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"},
		"claude_api_key":    {"ORATIO_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"},
		"openai_api_key":    {"ORATIO_OPENAI_API_KEY", "OPENAI_API_KEY"},
	}

	// Check environment variables (highest priority, try ORATIO_ names first)
	if envVarNames, hasMappedEnv := keyToEnvMapping[name]; hasMappedEnv {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	// Try to resolve from KV store (medium priority - stored keys)
	if kvStorage != nil {
		apiKey, err := kvStorage.Get(ctx, name)
		if err == nil && apiKey != "" {
			return apiKey, nil
		}
	}

	// Fallback to config value (lowest priority)
	if configFallback != "" {
		return configFallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment, KV store, or config", name)
}

// ValidateSchedule validates a cron schedule expression and ensures a
// minimum 5-minute interval so a misconfigured routine cannot hammer the
// LLM provider.
func ValidateSchedule(schedule string) error {
	// Parse the cron expression
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	_, err := parser.Parse(schedule)
	if err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	parts := strings.Fields(schedule)
	if len(parts) < 5 {
		return fmt.Errorf("invalid cron format: expected 5 fields")
	}

	minuteField := parts[0]

	if minuteField == "*" {
		return fmt.Errorf("schedule must have minimum 5-minute interval (every minute is not allowed)")
	}

	// Check for */n patterns where n < 5
	if strings.HasPrefix(minuteField, "*/") {
		intervalStr := strings.TrimPrefix(minuteField, "*/")
		interval, err := strconv.Atoi(intervalStr)
		if err == nil && interval < 5 {
			return fmt.Errorf("schedule interval must be at least 5 minutes, got %d", interval)
		}
	}

	return nil
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
