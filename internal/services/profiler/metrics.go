package profiler

import (
	"time"

	"github.com/ternarybob/oratio/internal/models"
)

// CalculateMetrics builds the quantitative block stored with a part.
// Every category gets the speech count and date range; ACTIVITY_PATTERNS
// adds a monthly distribution and RHETORICAL_STYLE adds character-length
// statistics over speeches that carry text.
func CalculateMetrics(category models.ProfileCategory, speeches []*models.Speech) models.ProfileMetrics {
	metrics := models.ProfileMetrics{
		SpeechesCount: len(speeches),
	}
	if len(speeches) == 0 {
		return metrics
	}

	start, end := DateRange(speeches)
	if start != nil {
		metrics.DateRangeStart = start.Format("2006-01-02")
	}
	if end != nil {
		metrics.DateRangeEnd = end.Format("2006-01-02")
	}

	switch category {
	case models.CategoryActivityPatterns:
		distribution := make(map[string]int)
		for _, speech := range speeches {
			distribution[speech.Date.Format("2006-01")]++
		}
		metrics.MonthlyDistribution = distribution

	case models.CategoryRhetoricalStyle:
		var total, count int
		for _, speech := range speeches {
			if !speech.HasText() {
				continue
			}
			length := len(speech.Text)
			total += length
			count++
			if metrics.MinSpeechLength == 0 || length < metrics.MinSpeechLength {
				metrics.MinSpeechLength = length
			}
			if length > metrics.MaxSpeechLength {
				metrics.MaxSpeechLength = length
			}
		}
		if count > 0 {
			metrics.AvgSpeechLength = total / count
		}
	}

	return metrics
}

// DateRange returns the earliest and latest speech dates, truncated to
// the day. Both are nil for an empty collection.
func DateRange(speeches []*models.Speech) (start, end *time.Time) {
	for _, speech := range speeches {
		day := dayOf(speech.Date)
		if start == nil || day.Before(*start) {
			d := day
			start = &d
		}
		if end == nil || day.After(*end) {
			d := day
			end = &d
		}
	}
	return start, end
}

// AnyIncomplete reports whether any speech in the collection still
// carries the live-stenogram incompleteness flag.
func AnyIncomplete(speeches []*models.Speech) bool {
	for _, speech := range speeches {
		if speech.IsIncomplete {
			return true
		}
	}
	return false
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
