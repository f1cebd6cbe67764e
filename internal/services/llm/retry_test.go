package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestIsRateLimitError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"429 status", errors.New("Error 429, Message: quota exceeded"), true},
		{"resource exhausted", errors.New("rpc error: code = ResourceExhausted desc = RESOURCE_EXHAUSTED"), true},
		{"quota message", errors.New("quota exceeded for metric"), true},
		{"plain failure", errors.New("connection refused"), false},
		{"server error", errors.New("Error 500, Message: internal"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRateLimitError(tt.err))
		})
	}
}

func TestExtractRetryDelay(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected time.Duration
	}{
		{
			name:     "gemini please retry format",
			err:      errors.New("Error 429, Message: You exceeded your current quota. Please retry in 45.387061394s., Status: RESOURCE_EXHAUSTED"),
			expected: time.Duration(45.387061394 * float64(time.Second)),
		},
		{
			name:     "retryDelay field format",
			err:      errors.New("retryDelay: 30s"),
			expected: 30 * time.Second,
		},
		{
			name:     "no delay in message",
			err:      errors.New("Error 429, Message: quota exceeded"),
			expected: 0,
		},
		{
			name:     "nil error",
			err:      nil,
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractRetryDelay(tt.err))
		})
	}
}

func TestCalculateBackoff(t *testing.T) {
	config := NewDefaultRetryConfig()

	// 1. First attempt without an API hint uses the initial backoff
	assert.Equal(t, DefaultInitialBackoff, config.CalculateBackoff(0, 0))

	// 2. Later attempts grow by the multiplier until the cap
	second := config.CalculateBackoff(1, 0)
	assert.Greater(t, second, DefaultInitialBackoff)
	assert.LessOrEqual(t, second, DefaultMaxBackoff)

	// 3. High attempt counts are capped at the maximum
	assert.Equal(t, DefaultMaxBackoff, config.CalculateBackoff(10, 0))

	// 4. An API-provided delay replaces the base and gains a small buffer
	withHint := config.CalculateBackoff(0, 20*time.Second)
	assert.Equal(t, 25*time.Second, withHint)
}

func TestNewRequestLimiter(t *testing.T) {
	// 1. A valid interval produces a limiter that delays the second request
	limiter, err := newRequestLimiter("10ms")
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, limiter.Wait(ctx))

	start := time.Now()
	require.NoError(t, limiter.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)

	// 2. Empty interval means unlimited
	unlimited, err := newRequestLimiter("")
	require.NoError(t, err)
	require.NoError(t, unlimited.Wait(ctx))
	require.NoError(t, unlimited.Wait(ctx))

	// 3. Garbage is rejected
	_, err = newRequestLimiter("not-a-duration")
	assert.Error(t, err)
}

func TestWithRetrySuccessSkipsBackoff(t *testing.T) {
	logger := arbor.NewLogger()

	calls := 0
	start := time.Now()
	err := withRetry(context.Background(), logger, "test.call", func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Less(t, time.Since(start), time.Second)
}

func TestWithRetryStopsOnContextCancel(t *testing.T) {
	logger := arbor.NewLogger()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := withRetry(ctx, logger, "test.call", func() error {
		calls++
		return fmt.Errorf("transient failure")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
