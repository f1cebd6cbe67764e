package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/oratio/internal/models"
)

func TestCalculateMetricsBase(t *testing.T) {
	speeches := []*models.Speech{
		testSpeech(1, time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC), "Esimene."),
		testSpeech(2, time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC), "Teine."),
	}

	metrics := CalculateMetrics(models.CategoryPoliticalPosition, speeches)

	assert.Equal(t, 2, metrics.SpeechesCount)
	assert.Equal(t, "2024-03-05", metrics.DateRangeStart)
	assert.Equal(t, "2024-03-20", metrics.DateRangeEnd)
	assert.Nil(t, metrics.MonthlyDistribution)
	assert.Zero(t, metrics.AvgSpeechLength)
}

func TestCalculateMetricsActivityPatterns(t *testing.T) {
	speeches := []*models.Speech{
		testSpeech(1, time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC), "Kõne."),
		testSpeech(2, time.Date(2024, 3, 19, 12, 0, 0, 0, time.UTC), "Kõne."),
		testSpeech(3, time.Date(2024, 4, 2, 12, 0, 0, 0, time.UTC), "Kõne."),
	}

	metrics := CalculateMetrics(models.CategoryActivityPatterns, speeches)

	require.NotNil(t, metrics.MonthlyDistribution)
	assert.Equal(t, 2, metrics.MonthlyDistribution["2024-03"])
	assert.Equal(t, 1, metrics.MonthlyDistribution["2024-04"])
}

func TestCalculateMetricsRhetoricalStyle(t *testing.T) {
	speeches := []*models.Speech{
		testSpeech(1, time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC), "abcd"),
		testSpeech(2, time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC), "abcdefgh"),
		testSpeech(3, time.Date(2024, 3, 7, 12, 0, 0, 0, time.UTC), "  "), // no usable text
	}

	metrics := CalculateMetrics(models.CategoryRhetoricalStyle, speeches)

	assert.Equal(t, 3, metrics.SpeechesCount)
	assert.Equal(t, 4, metrics.MinSpeechLength)
	assert.Equal(t, 8, metrics.MaxSpeechLength)
	assert.Equal(t, 6, metrics.AvgSpeechLength)
}

func TestCalculateMetricsEmpty(t *testing.T) {
	metrics := CalculateMetrics(models.CategoryPoliticalPosition, nil)

	assert.Zero(t, metrics.SpeechesCount)
	assert.Empty(t, metrics.DateRangeStart)
	assert.Empty(t, metrics.DateRangeEnd)
}

func TestDateRange(t *testing.T) {
	speeches := []*models.Speech{
		testSpeech(1, time.Date(2024, 5, 10, 23, 50, 0, 0, time.UTC), "a"),
		testSpeech(2, time.Date(2024, 2, 1, 0, 5, 0, 0, time.UTC), "b"),
		testSpeech(3, time.Date(2024, 11, 30, 8, 0, 0, 0, time.UTC), "c"),
	}

	start, end := DateRange(speeches)
	require.NotNil(t, start)
	require.NotNil(t, end)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), *start)
	assert.Equal(t, time.Date(2024, 11, 30, 0, 0, 0, 0, time.UTC), *end)

	start, end = DateRange(nil)
	assert.Nil(t, start)
	assert.Nil(t, end)
}

func TestAnyIncomplete(t *testing.T) {
	complete := testSpeech(1, time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC), "Valmis.")
	pending := testSpeech(2, time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC), "Koostamisel.")
	pending.IsIncomplete = true

	assert.False(t, AnyIncomplete([]*models.Speech{complete}))
	assert.True(t, AnyIncomplete([]*models.Speech{complete, pending}))
	assert.False(t, AnyIncomplete(nil))
}
