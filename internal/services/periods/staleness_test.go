package periods

import (
	"testing"
	"time"

	"github.com/ternarybob/oratio/internal/models"
)

func partGeneratedAt(generatedAt time.Time, incomplete bool) *models.ProfilePart {
	return &models.ProfilePart{
		ID:           1,
		PoliticianID: 7,
		Category:     models.CategoryRhetoricalStyle,
		PeriodType:   models.PeriodMonth,
		IsIncomplete: incomplete,
		GeneratedAt:  &generatedAt,
	}
}

func TestStaleWhenSpeechParsedAfterGeneration(t *testing.T) {
	generated := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	part := partGeneratedAt(generated, false)

	speech := speechOn(1, 101, generated.Add(-time.Hour))
	later := generated.Add(time.Hour)
	speech.ParsedAt = &later

	result := CheckPartStaleness(part, []*models.Speech{speech})
	if !result.IsStale {
		t.Errorf("expected stale after newer parse, got fresh: %s", result.Reason)
	}
}

func TestIncompleteSpeechSuppressesStaleness(t *testing.T) {
	generated := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	part := partGeneratedAt(generated, false)

	speech := speechOn(1, 101, generated.Add(-time.Hour))
	later := generated.Add(time.Hour)
	speech.ParsedAt = &later
	speech.IsIncomplete = true

	result := CheckPartStaleness(part, []*models.Speech{speech})
	if result.IsStale {
		t.Errorf("incomplete stenogram should suppress staleness: %s", result.Reason)
	}
}

func TestStaleOnCompletionTransition(t *testing.T) {
	generated := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	// Part was generated while speeches were still incomplete
	part := partGeneratedAt(generated, true)

	// The speech has since been finalized, parsed before generation
	speech := speechOn(1, 101, generated.Add(-2*time.Hour))
	earlier := generated.Add(-time.Hour)
	speech.ParsedAt = &earlier

	result := CheckPartStaleness(part, []*models.Speech{speech})
	if !result.IsStale {
		t.Errorf("completion transition should mark stale, got fresh: %s", result.Reason)
	}
}

func TestFreshWhenNothingChanged(t *testing.T) {
	generated := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	part := partGeneratedAt(generated, false)

	speech := speechOn(1, 101, generated.Add(-2*time.Hour))
	earlier := generated.Add(-time.Hour)
	speech.ParsedAt = &earlier

	result := CheckPartStaleness(part, []*models.Speech{speech})
	if result.IsStale {
		t.Errorf("expected fresh, got stale: %s", result.Reason)
	}
}

func TestStaleWhenGenerationTimeUnknown(t *testing.T) {
	part := &models.ProfilePart{
		ID:           1,
		PoliticianID: 7,
		Category:     models.CategoryRhetoricalStyle,
		PeriodType:   models.PeriodMonth,
	}

	speech := speechOn(1, 101, time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC))

	result := CheckPartStaleness(part, []*models.Speech{speech})
	if !result.IsStale {
		t.Errorf("part without generation time should be stale: %s", result.Reason)
	}
}

func TestFreshWithNoContributingSpeeches(t *testing.T) {
	generated := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	part := partGeneratedAt(generated, false)

	result := CheckPartStaleness(part, nil)
	if result.IsStale {
		t.Errorf("no contributing speeches should not be stale: %s", result.Reason)
	}
}
