package maintain

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/oratio/internal/interfaces"
)

// ErrNotConfirmed is returned when a destructive clear runs without the
// confirm flag.
var ErrNotConfirmed = errors.New("destructive operation requires confirmation")

// ClearReport describes one clear operation.
type ClearReport struct {
	Found   int
	Deleted int64
	DryRun  bool
}

// Clearer handles the destructive maintenance operations. Every clear
// refuses to run unless explicitly confirmed; dry runs only count.
type Clearer struct {
	speeches  interfaces.SpeechStorage
	summaries interfaces.SummaryStorage
	logger    arbor.ILogger
}

func NewClearer(speeches interfaces.SpeechStorage, summaries interfaces.SummaryStorage, logger arbor.ILogger) *Clearer {
	return &Clearer{speeches: speeches, summaries: summaries, logger: logger}
}

// ClearSpeeches deletes every speech row. Politicians, sessions and
// agenda items are kept.
func (c *Clearer) ClearSpeeches(ctx context.Context, confirm, dryRun bool) (*ClearReport, error) {
	count, err := c.speeches.CountSpeeches(ctx, interfaces.SpeechFilter{})
	if err != nil {
		return nil, fmt.Errorf("counting speeches: %w", err)
	}

	report := &ClearReport{Found: count, DryRun: dryRun}
	if count == 0 || dryRun {
		return report, nil
	}
	if !confirm {
		return report, ErrNotConfirmed
	}

	deleted, err := c.speeches.DeleteAllSpeeches(ctx)
	if err != nil {
		return report, fmt.Errorf("deleting speeches: %w", err)
	}
	report.Deleted = deleted

	c.logger.Warn().
		Int64("deleted", deleted).
		Msg("All speeches deleted")

	return report, nil
}

// ClearSummaries deletes every structured agenda summary along with its
// decision and active-politician rows.
func (c *Clearer) ClearSummaries(ctx context.Context, confirm, dryRun bool) (*ClearReport, error) {
	count, err := c.summaries.CountSummaries(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting summaries: %w", err)
	}

	report := &ClearReport{Found: count, DryRun: dryRun}
	if count == 0 || dryRun {
		return report, nil
	}
	if !confirm {
		return report, ErrNotConfirmed
	}

	deleted, err := c.summaries.DeleteAllSummaries(ctx)
	if err != nil {
		return report, fmt.Errorf("deleting summaries: %w", err)
	}
	report.Deleted = deleted

	c.logger.Warn().
		Int64("deleted", deleted).
		Msg("All agenda summaries deleted")

	return report, nil
}
