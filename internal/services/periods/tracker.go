package periods

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/oratio/internal/interfaces"
	"github.com/ternarybob/oratio/internal/models"
)

// Cell is one unit of profiling work: a category applied to a scope.
type Cell struct {
	Category models.ProfileCategory
	Scope    models.Scope
}

// Key returns a stable identifier for logging and deduplication.
func (c Cell) Key() string {
	return string(c.Category) + "|" + c.Scope.Key()
}

// PhaseReport is a strict existence report over [category × scope]
// cells. It ignores staleness; freshness is re-derived on every call.
type PhaseReport struct {
	IsComplete    bool
	MissingCount  int
	MissingByKind map[models.PeriodType]int
}

// Tracker computes which profile cells are missing or stale for one
// politician. Every call re-reads storage so long-running pipeline
// passes always act on live state.
type Tracker struct {
	profiles interfaces.ProfileStorage
	logger   arbor.ILogger
}

func NewTracker(profiles interfaces.ProfileStorage, logger arbor.ILogger) *Tracker {
	return &Tracker{
		profiles: profiles,
		logger:   logger,
	}
}

// MissingCells returns the [category × scope] pairs with no stored
// profile part, in deterministic scope-major order.
func (t *Tracker) MissingCells(ctx context.Context, politicianID int64, categories []models.ProfileCategory, scopes []models.Scope) ([]Cell, error) {
	index, err := t.loadPartIndex(ctx, politicianID)
	if err != nil {
		return nil, err
	}

	var missing []Cell
	for _, scope := range scopes {
		for _, category := range categories {
			cell := Cell{Category: category, Scope: scope}
			if _, ok := index[cell.Key()]; !ok {
				missing = append(missing, cell)
			}
		}
	}
	return missing, nil
}

// StaleCells returns the pairs whose stored part fails the staleness
// check against the politician's current speeches.
func (t *Tracker) StaleCells(ctx context.Context, politicianID int64, categories []models.ProfileCategory, scopes []models.Scope, speeches []*models.Speech, sessionByAgenda map[int64]int64) ([]Cell, error) {
	index, err := t.loadPartIndex(ctx, politicianID)
	if err != nil {
		return nil, err
	}

	// Contributing speeches depend only on the scope, not the category.
	contributing := make(map[string][]*models.Speech, len(scopes))
	for _, scope := range scopes {
		contributing[scope.Key()] = FilterByScope(speeches, scope, sessionByAgenda)
	}

	var stale []Cell
	for _, scope := range scopes {
		for _, category := range categories {
			cell := Cell{Category: category, Scope: scope}
			part, ok := index[cell.Key()]
			if !ok {
				continue // missing, not stale
			}

			result := CheckPartStaleness(part, contributing[scope.Key()])
			if result.IsStale {
				t.logger.Debug().
					Int64("politician_id", politicianID).
					Str("cell", cell.Key()).
					Str("reason", result.Reason).
					Msg("Profile part is stale")
				stale = append(stale, cell)
			}
		}
	}
	return stale, nil
}

// PhaseComplete reports whether every [category × scope] pair has a
// stored part. It never triggers regeneration.
func (t *Tracker) PhaseComplete(ctx context.Context, politicianID int64, categories []models.ProfileCategory, scopes []models.Scope) (*PhaseReport, error) {
	index, err := t.loadPartIndex(ctx, politicianID)
	if err != nil {
		return nil, err
	}

	report := &PhaseReport{
		MissingByKind: make(map[models.PeriodType]int),
	}
	for _, scope := range scopes {
		for _, category := range categories {
			cell := Cell{Category: category, Scope: scope}
			if _, ok := index[cell.Key()]; !ok {
				report.MissingCount++
				report.MissingByKind[scope.Type]++
			}
		}
	}
	report.IsComplete = report.MissingCount == 0

	return report, nil
}

func (t *Tracker) loadPartIndex(ctx context.Context, politicianID int64) (map[string]*models.ProfilePart, error) {
	parts, err := t.profiles.ListProfileParts(ctx, politicianID)
	if err != nil {
		return nil, fmt.Errorf("listing profile parts for politician %d: %w", politicianID, err)
	}

	index := make(map[string]*models.ProfilePart, len(parts))
	for _, part := range parts {
		index[string(part.Category)+"|"+part.Scope().Key()] = part
	}
	return index, nil
}
