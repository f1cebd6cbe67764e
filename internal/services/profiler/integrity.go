package profiler

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/oratio/internal/models"
	"github.com/ternarybob/oratio/internal/services/periods"
)

// IntegrityReport summarizes one cleanup pass.
type IntegrityReport struct {
	PoliticianID int64
	Checked      int
	Removed      int
	ByReason     map[string]int
	DryRun       bool
}

// RunIntegrityCheck removes profile parts that no longer belong to the
// politician's speech-derived scopes, carry inconsistent discriminators,
// name an unknown category, duplicate an ALL row, or were saved with an
// unparsed analysis body. Dry-run reports removals without deleting.
func (o *Orchestrator) RunIntegrityCheck(ctx context.Context, politician *models.Politician, dryRun bool) (*IntegrityReport, error) {
	speeches, err := o.speeches.ListSpeechesByPolitician(ctx, politician.ID)
	if err != nil {
		return nil, fmt.Errorf("loading speeches for politician %d: %w", politician.ID, err)
	}

	_, _, sessionByAgenda, err := o.loadPeriodContext(ctx, speeches)
	if err != nil {
		return nil, err
	}
	valid := periods.Partition(speeches, sessionByAgenda)

	validAgendas := make(map[int64]bool, len(valid.Agendas))
	for _, id := range valid.Agendas {
		validAgendas[id] = true
	}
	validSessions := make(map[int64]bool, len(valid.Sessions))
	for _, id := range valid.Sessions {
		validSessions[id] = true
	}
	validMonths := make(map[string]bool, len(valid.Months))
	for _, key := range valid.Months {
		validMonths[key] = true
	}
	validYears := make(map[int]bool, len(valid.Years))
	for _, year := range valid.Years {
		validYears[year] = true
	}

	parts, err := o.profiles.ListProfileParts(ctx, politician.ID)
	if err != nil {
		return nil, fmt.Errorf("listing profile parts for politician %d: %w", politician.ID, err)
	}

	report := &IntegrityReport{
		PoliticianID: politician.ID,
		Checked:      len(parts),
		ByReason:     make(map[string]int),
		DryRun:       dryRun,
	}

	o.logger.Info().
		Int64("politician_id", politician.ID).
		Str("politician", politician.FullName).
		Int("parts", len(parts)).
		Bool("dry_run", dryRun).
		Msg("Starting profile integrity check")

	// Newest ALL row per category survives; earlier duplicates go.
	newestAll := make(map[models.ProfileCategory]int64)
	for _, part := range parts {
		if part.PeriodType != models.PeriodAll || part.Scope().Validate() != nil {
			continue
		}
		if part.ID > newestAll[part.Category] {
			newestAll[part.Category] = part.ID
		}
	}

	for _, part := range parts {
		reason := o.partRemovalReason(part, validAgendas, validSessions, validMonths, validYears, newestAll)
		if reason == "" {
			continue
		}

		report.Removed++
		report.ByReason[reason]++
		o.logger.Info().
			Int64("part_id", part.ID).
			Str("category", string(part.Category)).
			Str("scope", part.Scope().Key()).
			Str("reason", reason).
			Bool("dry_run", dryRun).
			Msg("Removing invalid profile part")

		if dryRun {
			continue
		}
		if err := o.profiles.DeleteProfilePart(ctx, part.ID); err != nil {
			return report, fmt.Errorf("deleting profile part %d: %w", part.ID, err)
		}
	}

	o.logger.Info().
		Int64("politician_id", politician.ID).
		Int("checked", report.Checked).
		Int("removed", report.Removed).
		Str("by_reason", fmt.Sprintf("%v", report.ByReason)).
		Msg("Profile integrity check finished")
	return report, nil
}

func (o *Orchestrator) partRemovalReason(part *models.ProfilePart, validAgendas map[int64]bool, validSessions map[int64]bool, validMonths map[string]bool, validYears map[int]bool, newestAll map[models.ProfileCategory]int64) string {
	if !models.IsValidCategory(string(part.Category)) {
		return "unknown category"
	}
	if err := part.Scope().Validate(); err != nil {
		return "inconsistent scope discriminators"
	}
	if strings.HasPrefix(strings.TrimSpace(part.Analysis), "<analysis>") {
		return "unparsed analysis body"
	}

	switch part.PeriodType {
	case models.PeriodAgenda:
		if !validAgendas[*part.AgendaItemID] {
			return "agenda item no longer has speeches"
		}
	case models.PeriodPlenarySession:
		if !validSessions[*part.PlenarySessionID] {
			return "plenary session no longer has speeches"
		}
	case models.PeriodMonth:
		if !validMonths[*part.Month] {
			return "month no longer has speeches"
		}
	case models.PeriodYear:
		if !validYears[*part.Year] {
			return "year no longer has speeches"
		}
	case models.PeriodAll:
		if newestAll[part.Category] != part.ID {
			return "duplicate ALL row"
		}
	}
	return ""
}
