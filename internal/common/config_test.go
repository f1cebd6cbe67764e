package common

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ternarybob/oratio/internal/interfaces"
)

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	if config.LLM.Provider != LLMProviderGemini {
		t.Errorf("expected default provider gemini, got %s", config.LLM.Provider)
	}
	if config.Profiler.Workers != 4 {
		t.Errorf("expected 4 profiler workers, got %d", config.Profiler.Workers)
	}
	if config.Profiler.MaxRetries != 3 {
		t.Errorf("expected 3 profiler retries, got %d", config.Profiler.MaxRetries)
	}
	if config.Batch.ChunkSize != 100 {
		t.Errorf("expected batch chunk size 100, got %d", config.Batch.ChunkSize)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFromFiles(t *testing.T) {
	dir := t.TempDir()

	base := filepath.Join(dir, "base.toml")
	if err := os.WriteFile(base, []byte(`
[llm]
provider = "claude"

[profiler]
workers = 8
`), 0644); err != nil {
		t.Fatalf("failed to write base config: %v", err)
	}

	override := filepath.Join(dir, "override.toml")
	if err := os.WriteFile(override, []byte(`
[profiler]
workers = 2
`), 0644); err != nil {
		t.Fatalf("failed to write override config: %v", err)
	}

	config, err := LoadFromFiles(base, override)
	if err != nil {
		t.Fatalf("LoadFromFiles failed: %v", err)
	}

	if config.LLM.Provider != LLMProviderClaude {
		t.Errorf("expected provider claude from base file, got %s", config.LLM.Provider)
	}
	if config.Profiler.Workers != 2 {
		t.Errorf("expected override workers 2, got %d", config.Profiler.Workers)
	}
	// Untouched values keep defaults
	if config.Profiler.BatchSize != 10 {
		t.Errorf("expected default batch size 10, got %d", config.Profiler.BatchSize)
	}
}

func TestLoadFromFilesMissingFile(t *testing.T) {
	_, err := LoadFromFiles("/nonexistent/oratio.toml")
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("ORATIO_LLM_PROVIDER", "ollama")
	t.Setenv("ORATIO_PROFILER_WORKERS", "16")
	t.Setenv("ORATIO_LOG_OUTPUT", "stdout, file")

	config := NewDefaultConfig()
	applyEnvOverrides(config)

	if config.LLM.Provider != LLMProviderOllama {
		t.Errorf("expected provider ollama from env, got %s", config.LLM.Provider)
	}
	if config.Profiler.Workers != 16 {
		t.Errorf("expected 16 workers from env, got %d", config.Profiler.Workers)
	}
	if len(config.Logging.Output) != 2 || config.Logging.Output[1] != "file" {
		t.Errorf("expected trimmed output list [stdout file], got %v", config.Logging.Output)
	}
}

func TestValidateRejectsUnknownProvider(t *testing.T) {
	config := NewDefaultConfig()
	config.LLM.Provider = "grok"

	if err := config.Validate(); err == nil {
		t.Error("expected validation error for unknown provider")
	}
}

// fakeKV is a minimal in-memory KeyValueStorage for resolution tests.
type fakeKV struct {
	values map[string]string
}

func (f *fakeKV) Get(ctx context.Context, key string) (string, error) {
	if v, ok := f.values[key]; ok {
		return v, nil
	}
	return "", interfaces.ErrKeyNotFound
}

func (f *fakeKV) Set(ctx context.Context, key, value, description string) error {
	f.values[key] = value
	return nil
}

func (f *fakeKV) Delete(ctx context.Context, key string) error {
	delete(f.values, key)
	return nil
}

func (f *fakeKV) List(ctx context.Context) ([]interfaces.KeyValuePair, error) {
	return nil, nil
}

func (f *fakeKV) ListByPrefix(ctx context.Context, prefix string) ([]interfaces.KeyValuePair, error) {
	return nil, nil
}

func TestResolveAPIKey(t *testing.T) {
	ctx := context.Background()

	t.Run("environment wins over KV and config", func(t *testing.T) {
		t.Setenv("ORATIO_GEMINI_API_KEY", "env-key")
		kv := &fakeKV{values: map[string]string{"gemini_api_key": "kv-key"}}

		key, err := ResolveAPIKey(ctx, kv, "gemini_api_key", "config-key")
		if err != nil {
			t.Fatalf("ResolveAPIKey failed: %v", err)
		}
		if key != "env-key" {
			t.Errorf("expected env-key, got %s", key)
		}
	})

	t.Run("KV wins over config", func(t *testing.T) {
		kv := &fakeKV{values: map[string]string{"gemini_api_key": "kv-key"}}

		key, err := ResolveAPIKey(ctx, kv, "gemini_api_key", "config-key")
		if err != nil {
			t.Fatalf("ResolveAPIKey failed: %v", err)
		}
		if key != "kv-key" {
			t.Errorf("expected kv-key, got %s", key)
		}
	})

	t.Run("config fallback", func(t *testing.T) {
		kv := &fakeKV{values: map[string]string{}}

		key, err := ResolveAPIKey(ctx, kv, "openai_api_key", "config-key")
		if err != nil {
			t.Fatalf("ResolveAPIKey failed: %v", err)
		}
		if key != "config-key" {
			t.Errorf("expected config-key, got %s", key)
		}
	})

	t.Run("missing everywhere", func(t *testing.T) {
		kv := &fakeKV{values: map[string]string{}}

		if _, err := ResolveAPIKey(ctx, kv, "anthropic_api_key", ""); err == nil {
			t.Error("expected error when key is missing everywhere")
		}
	})
}

func TestValidateSchedule(t *testing.T) {
	tests := []struct {
		name     string
		schedule string
		wantErr  bool
	}{
		{"daily at 3am", "0 3 * * *", false},
		{"every 10 minutes", "*/10 * * * *", false},
		{"every minute", "* * * * *", true},
		{"every 2 minutes", "*/2 * * * *", true},
		{"garbage", "not a cron", true},
		{"too few fields", "0 3", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSchedule(tt.schedule)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSchedule(%q) error = %v, wantErr %v", tt.schedule, err, tt.wantErr)
			}
		})
	}
}
