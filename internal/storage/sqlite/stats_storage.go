package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/oratio/internal/interfaces"
	"github.com/ternarybob/oratio/internal/models"
)

// StatsStorage implements interfaces.StatsStorage on the sync_stats
// table
type StatsStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
}

// NewStatsStorage creates a new stats storage instance
func NewStatsStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.StatsStorage {
	return &StatsStorage{
		db:     db,
		logger: logger,
	}
}

// UpsertStat creates or replaces a named coverage metric
func (s *StatsStorage) UpsertStat(ctx context.Context, stat *models.StatEntry) error {
	query := `
		INSERT INTO sync_stats (key, label, value, percentage, description, computed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			label = excluded.label,
			value = excluded.value,
			percentage = excluded.percentage,
			description = excluded.description,
			computed_at = excluded.computed_at
	`

	var percentage interface{}
	if stat.Percentage != nil {
		percentage = *stat.Percentage
	}
	var description interface{}
	if stat.Description != "" {
		description = stat.Description
	}

	computedAt := stat.ComputedAt
	if computedAt.IsZero() {
		computedAt = time.Now()
	}

	_, err := s.db.db.ExecContext(ctx, query,
		stat.Key, stat.Label, stat.Value, percentage, description, computedAt.Unix())
	return err
}

// ListStats returns all stored metrics ordered by key
func (s *StatsStorage) ListStats(ctx context.Context) ([]*models.StatEntry, error) {
	rows, err := s.db.db.QueryContext(ctx, `
		SELECT key, label, value, percentage, description, computed_at
		FROM sync_stats ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make([]*models.StatEntry, 0)
	for rows.Next() {
		var stat models.StatEntry
		var percentage sql.NullFloat64
		var description sql.NullString
		var computedAt int64

		err := rows.Scan(&stat.Key, &stat.Label, &stat.Value, &percentage, &description, &computedAt)
		if err != nil {
			return nil, err
		}

		if percentage.Valid {
			stat.Percentage = &percentage.Float64
		}
		stat.Description = description.String
		stat.ComputedAt = time.Unix(computedAt, 0)

		stats = append(stats, &stat)
	}

	return stats, rows.Err()
}
