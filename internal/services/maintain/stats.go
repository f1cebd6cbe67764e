package maintain

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/oratio/internal/interfaces"
	"github.com/ternarybob/oratio/internal/models"
)

// StatsReport tallies one stats snapshot.
type StatsReport struct {
	Computed int
	DryRun   bool
}

// StatsSync snapshots content and translation coverage into the named
// metrics table. Every run recomputes the full set.
type StatsSync struct {
	storage interfaces.StorageManager
	logger  arbor.ILogger
}

func NewStatsSync(storage interfaces.StorageManager, logger arbor.ILogger) *StatsSync {
	return &StatsSync{storage: storage, logger: logger}
}

// Run computes and stores every metric.
func (s *StatsSync) Run(ctx context.Context, dryRun bool) (*StatsReport, error) {
	entries, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}

	report := &StatsReport{Computed: len(entries), DryRun: dryRun}
	if dryRun {
		for _, entry := range entries {
			s.logger.Info().
				Str("key", entry.Key).
				Int64("value", entry.Value).
				Msg("Dry run: would store metric")
		}
		return report, nil
	}

	for _, entry := range entries {
		if err := s.storage.Stats().UpsertStat(ctx, entry); err != nil {
			return report, fmt.Errorf("storing metric %s: %w", entry.Key, err)
		}
	}

	s.logger.Info().
		Int("metrics", report.Computed).
		Msg("Stats sync finished")

	return report, nil
}

func (s *StatsSync) compute(ctx context.Context) ([]*models.StatEntry, error) {
	now := time.Now()

	speeches, err := s.storage.Speeches().ListSpeeches(ctx, interfaces.SpeechFilter{EventType: models.EventTypeSpeech})
	if err != nil {
		return nil, fmt.Errorf("listing speeches: %w", err)
	}
	agendas, err := s.storage.Sessions().ListAgendaItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing agenda items: %w", err)
	}
	sessionCount, err := s.storage.Sessions().CountSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting sessions: %w", err)
	}
	summaries, err := s.storage.Summaries().ListSummariesNeedingTranslation(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("listing summaries: %w", err)
	}
	decisions, err := s.storage.Summaries().ListDecisionsNeedingTranslation(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("listing decisions: %w", err)
	}
	actives, err := s.storage.Summaries().ListActivesNeedingTranslation(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("listing active politicians: %w", err)
	}
	parts, err := s.storage.Profiles().ListAllProfileParts(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing profile parts: %w", err)
	}
	politicians, err := s.storage.Politicians().ListPoliticians(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing politicians: %w", err)
	}

	totalSpeeches := len(speeches)
	totalAgendas := len(agendas)

	var speechSummaries, speechSummariesEN, speechSummariesRU int
	for _, speech := range speeches {
		if speech.AISummary == nil {
			continue
		}
		speechSummaries++
		if speech.AISummaryEN != nil {
			speechSummariesEN++
		}
		if speech.AISummaryRU != nil {
			speechSummariesRU++
		}
	}

	var agendaTitlesEN, agendaTitlesRU int
	for _, agenda := range agendas {
		if agenda.TitleEN != nil {
			agendaTitlesEN++
		}
		if agenda.TitleRU != nil {
			agendaTitlesRU++
		}
	}

	var summariesEN, summariesRU int
	for _, summary := range summaries {
		if summary.SummaryEN != nil {
			summariesEN++
		}
		if summary.SummaryRU != nil {
			summariesRU++
		}
	}

	agendasWithDecisions := make(map[int64]bool)
	var decisionsEN, decisionsRU int
	for _, decision := range decisions {
		agendasWithDecisions[decision.AgendaItemID] = true
		if decision.TextEN != nil {
			decisionsEN++
		}
		if decision.TextRU != nil {
			decisionsRU++
		}
	}

	var activesEN, activesRU int
	for _, active := range actives {
		if active.DescriptionEN != nil {
			activesEN++
		}
		if active.DescriptionRU != nil {
			activesRU++
		}
	}

	var partsEN, partsRU int
	for _, part := range parts {
		if part.AnalysisEN != nil {
			partsEN++
		}
		if part.AnalysisRU != nil {
			partsRU++
		}
	}

	var profilesRequired int
	for _, politician := range politicians {
		profilesRequired += politician.ProfilesRequired
	}

	entry := func(key, label string, value int, pct *float64, description string) *models.StatEntry {
		return &models.StatEntry{
			Key:         key,
			Label:       label,
			Value:       int64(value),
			Percentage:  pct,
			ComputedAt:  now,
			Description: description,
		}
	}

	return []*models.StatEntry{
		entry("total_speeches", "Kõned kokku", totalSpeeches, nil, "Total Speeches"),
		entry("total_agenda_items", "Päevakorrapunktid kokku", totalAgendas, nil, "Total Agenda Items"),
		entry("plenary_sessions", "Istungjärgud", sessionCount, nil, "Plenary Sessions"),
		entry("speech_summaries", "Kõnede AI kokkuvõtted", speechSummaries,
			percentage(speechSummaries, totalSpeeches), "Speech AI Summaries"),
		entry("agenda_summaries", "Struktureeritud päevakorra kokkuvõtted", len(summaries),
			percentage(len(summaries), totalAgendas), "Structured Agenda Summaries"),
		entry("agenda_decisions", "Päevakorra otsused", len(agendasWithDecisions),
			percentage(len(agendasWithDecisions), totalAgendas), "Agenda Decisions"),
		entry("active_politicians", "Aktiivsed poliitikud päevakorras", len(actives),
			percentage(len(actives), totalAgendas), "Active Politicians in Agendas"),
		entry("profiles_available", "Struktureeritud poliitiku profiilid saadaval", len(parts),
			percentage(len(parts), profilesRequired), "Structured Politician Profiles Available"),
		entry("profiles_required", "Struktureeritud poliitiku profiilid kokku vaja", profilesRequired,
			nil, "Structured Politician Profiles Total Required"),
		entry("agenda_titles_en", "Päevakorra pealkirjad inglise keeles", agendaTitlesEN,
			percentage(agendaTitlesEN, totalAgendas), "Agenda Titles in English"),
		entry("agenda_titles_ru", "Päevakorra pealkirjad vene keeles", agendaTitlesRU,
			percentage(agendaTitlesRU, totalAgendas), "Agenda Titles in Russian"),
		entry("agenda_summaries_en", "Päevakorra AI kokkuvõtted inglise keeles", summariesEN,
			percentage(summariesEN, len(summaries)), "Agenda AI Summaries in English"),
		entry("agenda_summaries_ru", "Päevakorra AI kokkuvõtted vene keeles", summariesRU,
			percentage(summariesRU, len(summaries)), "Agenda AI Summaries in Russian"),
		entry("speech_summaries_en", "Kõnede AI kokkuvõtted inglise keeles", speechSummariesEN,
			percentage(speechSummariesEN, speechSummaries), "Speech AI Summaries in English"),
		entry("speech_summaries_ru", "Kõnede AI kokkuvõtted vene keeles", speechSummariesRU,
			percentage(speechSummariesRU, speechSummaries), "Speech AI Summaries in Russian"),
		entry("agenda_decisions_en", "Päevakorra otsused inglise keeles", decisionsEN,
			percentage(decisionsEN, len(decisions)), "Agenda Decisions in English"),
		entry("agenda_decisions_ru", "Päevakorra otsused vene keeles", decisionsRU,
			percentage(decisionsRU, len(decisions)), "Agenda Decisions in Russian"),
		entry("active_descriptions_en", "Aktiivsed poliitikud kirjeldused inglise keeles", activesEN,
			percentage(activesEN, len(actives)), "Active Politicians Descriptions in English"),
		entry("active_descriptions_ru", "Aktiivsed poliitikud kirjeldused vene keeles", activesRU,
			percentage(activesRU, len(actives)), "Active Politicians Descriptions in Russian"),
		entry("profiles_en", "Struktureeritud poliitiku profiilid inglise keeles", partsEN,
			percentage(partsEN, len(parts)), "Structured Politician Profiles in English"),
		entry("profiles_ru", "Struktureeritud poliitiku profiilid vene keeles", partsRU,
			percentage(partsRU, len(parts)), "Structured Politician Profiles in Russian"),
	}, nil
}

// percentage rounds count/total to one decimal; a zero total yields 0.
func percentage(count, total int) *float64 {
	pct := 0.0
	if total > 0 {
		pct = math.Round(float64(count)/float64(total)*1000) / 10
	}
	return &pct
}
