package maintain

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/oratio/internal/interfaces"
	"github.com/ternarybob/oratio/internal/models"
	"github.com/ternarybob/oratio/internal/services/periods"
)

// Flag entity selectors accepted by FlagsSync.Run.
const (
	FlagsSpeeches  = "speeches"
	FlagsSessions  = "sessions"
	FlagsAgendas   = "agendas"
	FlagsSummaries = "summaries"
	FlagsProfiles  = "profiles"
	FlagsAll       = "all"
)

// FlagCount tallies one entity kind within a flags reconciliation.
type FlagCount struct {
	Checked  int
	Fixed    int
	SetTrue  int
	SetFalse int
}

func (c *FlagCount) record(incomplete bool) {
	c.Fixed++
	if incomplete {
		c.SetTrue++
	} else {
		c.SetFalse++
	}
}

// FlagsReport summarizes a flags reconciliation run.
type FlagsReport struct {
	Speeches  FlagCount
	Agendas   FlagCount
	Sessions  FlagCount
	Summaries FlagCount
	Profiles  FlagCount
	DryRun    bool
}

// Total returns the fixed count across all entity kinds.
func (r *FlagsReport) Total() int {
	return r.Speeches.Fixed + r.Agendas.Fixed + r.Sessions.Fixed +
		r.Summaries.Fixed + r.Profiles.Fixed
}

// FlagsSync reconciles the is_incomplete flags across the whole entity
// graph. A speech is incomplete when its transcript is missing or still
// the stenogram placeholder; everything above it derives from that:
// agenda items and sessions from their speeches, summary artifacts from
// their agenda's speeches, profile parts from the speeches inside their
// scope.
type FlagsSync struct {
	storage interfaces.StorageManager
	logger  arbor.ILogger
}

func NewFlagsSync(storage interfaces.StorageManager, logger arbor.ILogger) *FlagsSync {
	return &FlagsSync{storage: storage, logger: logger}
}

// ValidFlagsEntity reports whether entity names a known selector.
func ValidFlagsEntity(entity string) bool {
	switch entity {
	case FlagsSpeeches, FlagsSessions, FlagsAgendas, FlagsSummaries, FlagsProfiles, FlagsAll:
		return true
	}
	return false
}

// Run reconciles flags for the selected entity kind ("all" covers every
// kind, bottom-up so derived flags see the corrected speech state).
func (s *FlagsSync) Run(ctx context.Context, entity string, dryRun bool) (*FlagsReport, error) {
	if !ValidFlagsEntity(entity) {
		return nil, fmt.Errorf("unknown entity %q", entity)
	}

	report := &FlagsReport{DryRun: dryRun}

	speeches, err := s.storage.Speeches().ListSpeeches(ctx, interfaces.SpeechFilter{EventType: models.EventTypeSpeech})
	if err != nil {
		return nil, fmt.Errorf("listing speeches: %w", err)
	}

	if entity == FlagsSpeeches || entity == FlagsAll {
		if err := s.fixSpeeches(ctx, speeches, dryRun, &report.Speeches); err != nil {
			return report, err
		}
	}

	// Derived flags work from the corrected speech state even on a dry
	// run, where the corrections exist only in memory.
	incompleteByAgenda := make(map[int64]bool)
	incompleteByPolitician := make(map[int64][]*models.Speech)
	for _, speech := range speeches {
		if !speechIncomplete(speech) {
			continue
		}
		incompleteByAgenda[speech.AgendaItemID] = true
		if speech.PoliticianID != nil {
			incompleteByPolitician[*speech.PoliticianID] = append(incompleteByPolitician[*speech.PoliticianID], speech)
		}
	}

	if entity == FlagsAgendas || entity == FlagsSessions || entity == FlagsSummaries || entity == FlagsAll {
		if err := s.fixAgendas(ctx, incompleteByAgenda, entity, dryRun, report); err != nil {
			return report, err
		}
	}

	if entity == FlagsProfiles || entity == FlagsAll {
		if err := s.fixProfiles(ctx, incompleteByPolitician, dryRun, &report.Profiles); err != nil {
			return report, err
		}
	}

	s.logger.Info().
		Str("entity", entity).
		Int("fixed", report.Total()).
		Bool("dry_run", dryRun).
		Msg("Flags reconciliation finished")

	return report, nil
}

// speechIncomplete is the ground truth the rest of the graph derives
// from: no usable text, or the stenogram-pending placeholder.
func speechIncomplete(speech *models.Speech) bool {
	return !speech.HasText() || strings.TrimSpace(speech.Text) == models.StenogramPendingText
}

func (s *FlagsSync) fixSpeeches(ctx context.Context, speeches []*models.Speech, dryRun bool, count *FlagCount) error {
	for _, speech := range speeches {
		count.Checked++
		want := speechIncomplete(speech)
		if speech.IsIncomplete == want {
			continue
		}
		count.record(want)
		if dryRun {
			speech.IsIncomplete = want
			continue
		}
		if err := s.storage.Speeches().SetSpeechIncomplete(ctx, speech.ID, want); err != nil {
			return fmt.Errorf("updating speech %d: %w", speech.ID, err)
		}
		speech.IsIncomplete = want
	}
	return nil
}

func (s *FlagsSync) fixAgendas(ctx context.Context, incompleteByAgenda map[int64]bool, entity string, dryRun bool, report *FlagsReport) error {
	agendas, err := s.storage.Sessions().ListAgendaItems(ctx)
	if err != nil {
		return fmt.Errorf("listing agenda items: %w", err)
	}

	incompleteBySession := make(map[int64]bool)
	for _, agenda := range agendas {
		want := incompleteByAgenda[agenda.ID]
		if want {
			incompleteBySession[agenda.PlenarySessionID] = true
		}

		if entity == FlagsAgendas || entity == FlagsAll {
			report.Agendas.Checked++
			if agenda.IsIncomplete != want {
				report.Agendas.record(want)
				if !dryRun {
					if err := s.storage.Sessions().SetAgendaIncomplete(ctx, agenda.ID, want); err != nil {
						return fmt.Errorf("updating agenda %d: %w", agenda.ID, err)
					}
				}
			}
		}
	}

	if entity == FlagsSessions || entity == FlagsAll {
		sessions, err := s.storage.Sessions().ListSessions(ctx)
		if err != nil {
			return fmt.Errorf("listing sessions: %w", err)
		}
		for _, session := range sessions {
			report.Sessions.Checked++
			want := incompleteBySession[session.ID]
			if session.IsIncomplete == want {
				continue
			}
			report.Sessions.record(want)
			if !dryRun {
				if err := s.storage.Sessions().SetSessionIncomplete(ctx, session.ID, want); err != nil {
					return fmt.Errorf("updating session %d: %w", session.ID, err)
				}
			}
		}
	}

	if entity == FlagsSummaries || entity == FlagsAll {
		// One call per agenda covers its summary, decision and
		// active-politician rows together.
		summaries, err := s.storage.Summaries().ListSummariesNeedingTranslation(ctx, true)
		if err != nil {
			return fmt.Errorf("listing summaries: %w", err)
		}
		for _, summary := range summaries {
			report.Summaries.Checked++
			want := incompleteByAgenda[summary.AgendaItemID]
			if summary.IsIncomplete == want {
				continue
			}
			report.Summaries.record(want)
			if !dryRun {
				if err := s.storage.Summaries().SetSummaryIncomplete(ctx, summary.AgendaItemID, want); err != nil {
					return fmt.Errorf("updating summary for agenda %d: %w", summary.AgendaItemID, err)
				}
			}
		}
	}

	return nil
}

func (s *FlagsSync) fixProfiles(ctx context.Context, incompleteByPolitician map[int64][]*models.Speech, dryRun bool, count *FlagCount) error {
	parts, err := s.storage.Profiles().ListAllProfileParts(ctx)
	if err != nil {
		return fmt.Errorf("listing profile parts: %w", err)
	}

	sessionByAgenda, err := agendaSessionMap(ctx, s.storage.Sessions())
	if err != nil {
		return err
	}

	for _, part := range parts {
		count.Checked++
		incomplete := incompleteByPolitician[part.PoliticianID]
		want := len(periods.FilterByScope(incomplete, part.Scope(), sessionByAgenda)) > 0
		if part.IsIncomplete == want {
			continue
		}
		count.record(want)
		if !dryRun {
			if err := s.storage.Profiles().SetProfileIncomplete(ctx, part.ID, want); err != nil {
				return fmt.Errorf("updating profile part %d: %w", part.ID, err)
			}
		}
	}
	return nil
}
