package maintain

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/oratio/internal/interfaces"
)

// SyncReport aggregates the full maintenance sweep.
type SyncReport struct {
	Times  *TimesReport
	Counts *CountsReport
	Stats  *StatsReport
}

// Sync bundles the maintenance passes that keep derived data current.
// The full sweep orders them so later passes see earlier results: times
// feed nothing downstream but are cheapest to redo, counts feed the
// profiles_required metric, stats snapshot everything last.
type Sync struct {
	times  *TimesSync
	counts *CountsSync
	stats  *StatsSync
	logger arbor.ILogger
}

func NewSync(storage interfaces.StorageManager, logger arbor.ILogger) *Sync {
	return &Sync{
		times:  NewTimesSync(storage.Politicians(), storage.Sessions(), storage.Speeches(), logger),
		counts: NewCountsSync(storage.Politicians(), storage.Sessions(), storage.Speeches(), storage.Profiles(), logger),
		stats:  NewStatsSync(storage, logger),
		logger: logger,
	}
}

func (s *Sync) Times() *TimesSync   { return s.times }
func (s *Sync) Counts() *CountsSync { return s.counts }
func (s *Sync) Stats() *StatsSync   { return s.stats }

// RunAll executes times, counts and stats in order, stopping on the
// first failure.
func (s *Sync) RunAll(ctx context.Context, dryRun bool) (*SyncReport, error) {
	report := &SyncReport{}
	var err error

	if report.Times, err = s.times.Run(ctx, dryRun); err != nil {
		return report, fmt.Errorf("times sync: %w", err)
	}
	if report.Counts, err = s.counts.Run(ctx, dryRun); err != nil {
		return report, fmt.Errorf("counts sync: %w", err)
	}
	if report.Stats, err = s.stats.Run(ctx, dryRun); err != nil {
		return report, fmt.Errorf("stats sync: %w", err)
	}

	s.logger.Info().
		Int("agendas_updated", report.Times.AgendasUpdated).
		Int("politicians_updated", report.Times.PoliticiansUpdated).
		Int("counts_updated", report.Counts.Updated).
		Int("metrics", report.Stats.Computed).
		Msg("Full maintenance sync finished")

	return report, nil
}
