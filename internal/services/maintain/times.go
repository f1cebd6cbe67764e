package maintain

import (
	"context"
	"fmt"
	"sort"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/oratio/internal/interfaces"
	"github.com/ternarybob/oratio/internal/models"
)

// Interval caps for estimated speaking time. The gap between two
// consecutive speeches by the same politician stands in for the first
// speech's duration; the caps keep breaks and interjections from
// skewing the estimate.
const (
	minSpeakingSeconds = 10
	maxSpeakingSeconds = 1800
	lastSpeechEstimate = 30
	loneSpeechEstimate = 30
)

// TimesReport tallies one duration sync.
type TimesReport struct {
	AgendasChecked     int
	AgendasUpdated     int
	PoliticiansChecked int
	PoliticiansUpdated int
	DryRun             bool
}

// TimesSync derives agenda durations and politician speaking times from
// speech timestamps. Only changed values are written.
type TimesSync struct {
	politicians interfaces.PoliticianStorage
	sessions    interfaces.SessionStorage
	speeches    interfaces.SpeechStorage
	logger      arbor.ILogger
}

func NewTimesSync(politicians interfaces.PoliticianStorage, sessions interfaces.SessionStorage, speeches interfaces.SpeechStorage, logger arbor.ILogger) *TimesSync {
	return &TimesSync{
		politicians: politicians,
		sessions:    sessions,
		speeches:    speeches,
		logger:      logger,
	}
}

// Run recomputes every agenda duration and politician speaking time.
func (t *TimesSync) Run(ctx context.Context, dryRun bool) (*TimesReport, error) {
	report := &TimesReport{DryRun: dryRun}

	speeches, err := t.speeches.ListSpeeches(ctx, interfaces.SpeechFilter{EventType: models.EventTypeSpeech})
	if err != nil {
		return nil, fmt.Errorf("listing speeches: %w", err)
	}

	byAgenda := make(map[int64][]*models.Speech)
	byPolitician := make(map[int64][]*models.Speech)
	for _, speech := range speeches {
		byAgenda[speech.AgendaItemID] = append(byAgenda[speech.AgendaItemID], speech)
		if speech.PoliticianID != nil {
			byPolitician[*speech.PoliticianID] = append(byPolitician[*speech.PoliticianID], speech)
		}
	}

	agendas, err := t.sessions.ListAgendaItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing agenda items: %w", err)
	}
	for _, agenda := range agendas {
		report.AgendasChecked++

		duration, ok := AgendaDuration(byAgenda[agenda.ID])
		if !ok {
			continue
		}
		if agenda.TotalTimeSeconds != nil && *agenda.TotalTimeSeconds == duration {
			continue
		}

		report.AgendasUpdated++
		if dryRun {
			continue
		}
		if err := t.sessions.UpdateAgendaTotalTime(ctx, agenda.ID, duration); err != nil {
			return report, fmt.Errorf("updating agenda %d duration: %w", agenda.ID, err)
		}
	}

	politicians, err := t.politicians.ListPoliticians(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing politicians: %w", err)
	}
	for _, politician := range politicians {
		report.PoliticiansChecked++

		speeches := byPolitician[politician.ID]
		if len(speeches) == 0 {
			continue
		}
		total := SpeakingTime(speeches)
		if total == politician.TotalTimeSeconds {
			continue
		}

		report.PoliticiansUpdated++
		if dryRun {
			continue
		}
		if err := t.politicians.UpdateTotalTime(ctx, politician.ID, total); err != nil {
			return report, fmt.Errorf("updating politician %d total time: %w", politician.ID, err)
		}
	}

	t.logger.Info().
		Int("agendas_updated", report.AgendasUpdated).
		Int("politicians_updated", report.PoliticiansUpdated).
		Bool("dry_run", dryRun).
		Msg("Duration sync finished")

	return report, nil
}

// AgendaDuration is the wall-clock span from the first to the last
// speech. Below two speeches there is no span to measure.
func AgendaDuration(speeches []*models.Speech) (int64, bool) {
	if len(speeches) < 2 {
		return 0, false
	}
	sorted := sortedByDate(speeches)
	first, last := sorted[0], sorted[len(sorted)-1]
	return int64(last.Date.Sub(first.Date).Seconds()), true
}

// SpeakingTime estimates a politician's total speaking seconds. Within
// each agenda the gap to the politician's next speech counts as
// speaking time, clamped to the interval caps; the last speech of each
// agenda and lone speeches get a flat estimate.
func SpeakingTime(speeches []*models.Speech) int64 {
	byAgenda := make(map[int64][]*models.Speech)
	for _, speech := range speeches {
		byAgenda[speech.AgendaItemID] = append(byAgenda[speech.AgendaItemID], speech)
	}

	var total int64
	for _, group := range byAgenda {
		if len(group) < 2 {
			total += loneSpeechEstimate * int64(len(group))
			continue
		}

		sorted := sortedByDate(group)
		for i := 0; i < len(sorted)-1; i++ {
			interval := int64(sorted[i+1].Date.Sub(sorted[i].Date).Seconds())
			if interval > maxSpeakingSeconds {
				interval = maxSpeakingSeconds
			} else if interval < minSpeakingSeconds {
				interval = minSpeakingSeconds
			}
			total += interval
		}
		total += lastSpeechEstimate
	}
	return total
}

func sortedByDate(speeches []*models.Speech) []*models.Speech {
	sorted := make([]*models.Speech, len(speeches))
	copy(sorted, speeches)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].ID < sorted[j].ID
		}
		return sorted[i].Date.Before(sorted[j].Date)
	})
	return sorted
}
