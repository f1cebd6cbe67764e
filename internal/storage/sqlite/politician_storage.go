package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/oratio/internal/interfaces"
	"github.com/ternarybob/oratio/internal/models"
)

// PoliticianStorage implements interfaces.PoliticianStorage
type PoliticianStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
}

// NewPoliticianStorage creates a new politician storage instance
func NewPoliticianStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.PoliticianStorage {
	return &PoliticianStorage{
		db:     db,
		logger: logger,
	}
}

// SavePolitician inserts or updates a politician. Identity fields are
// replaced on conflict; the aggregate columns maintained by the sync
// passes are left alone.
func (p *PoliticianStorage) SavePolitician(ctx context.Context, politician *models.Politician) error {
	now := time.Now().Unix()

	query := `
		INSERT INTO politicians (
			id, uuid, full_name, active,
			total_time_seconds, profiles_required, profiles_generated,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			uuid = excluded.uuid,
			full_name = excluded.full_name,
			active = excluded.active,
			updated_at = excluded.updated_at
	`

	_, err := p.db.db.ExecContext(ctx, query,
		politician.ID,
		politician.UUID,
		politician.FullName,
		boolToInt(politician.Active),
		politician.TotalTimeSeconds,
		politician.ProfilesRequired,
		politician.ProfilesGenerated,
		now,
		now,
	)

	return err
}

// GetPolitician retrieves a politician by ID
func (p *PoliticianStorage) GetPolitician(ctx context.Context, id int64) (*models.Politician, error) {
	row := p.db.db.QueryRowContext(ctx, selectPoliticianSQL+" WHERE id = ?", id)
	return scanPolitician(row)
}

// GetPoliticianByUUID retrieves a politician by UUID
func (p *PoliticianStorage) GetPoliticianByUUID(ctx context.Context, uuid string) (*models.Politician, error) {
	row := p.db.db.QueryRowContext(ctx, selectPoliticianSQL+" WHERE uuid = ?", uuid)
	return scanPolitician(row)
}

// ListPoliticians lists all politicians ordered by name
func (p *PoliticianStorage) ListPoliticians(ctx context.Context) ([]*models.Politician, error) {
	rows, err := p.db.db.QueryContext(ctx, selectPoliticianSQL+" ORDER BY full_name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPoliticians(rows)
}

// ListPoliticiansWithSpeeches returns politicians with at least one
// SPEECH event, ordered by id
func (p *PoliticianStorage) ListPoliticiansWithSpeeches(ctx context.Context) ([]*models.Politician, error) {
	query := selectPoliticianSQL + `
		WHERE EXISTS (
			SELECT 1 FROM speeches s
			WHERE s.politician_id = politicians.id AND s.event_type = ?
		)
		ORDER BY id
	`

	rows, err := p.db.db.QueryContext(ctx, query, models.EventTypeSpeech)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPoliticians(rows)
}

// UpdateProfilingCounts stores the required/generated profile counters
func (p *PoliticianStorage) UpdateProfilingCounts(ctx context.Context, id int64, required, generated int) error {
	result, err := p.db.db.ExecContext(ctx,
		"UPDATE politicians SET profiles_required = ?, profiles_generated = ?, updated_at = ? WHERE id = ?",
		required, generated, time.Now().Unix(), id)
	if err != nil {
		return err
	}
	return requireRow(result, id)
}

// UpdateTotalTime stores the accumulated speaking time in seconds
func (p *PoliticianStorage) UpdateTotalTime(ctx context.Context, id int64, seconds int64) error {
	result, err := p.db.db.ExecContext(ctx,
		"UPDATE politicians SET total_time_seconds = ?, updated_at = ? WHERE id = ?",
		seconds, time.Now().Unix(), id)
	if err != nil {
		return err
	}
	return requireRow(result, id)
}

// CountPoliticians returns the total politician count
func (p *PoliticianStorage) CountPoliticians(ctx context.Context) (int, error) {
	var count int
	err := p.db.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM politicians").Scan(&count)
	return count, err
}

const selectPoliticianSQL = `
	SELECT id, uuid, full_name, active,
		   total_time_seconds, profiles_required, profiles_generated,
		   created_at, updated_at
	FROM politicians`

func scanPolitician(row *sql.Row) (*models.Politician, error) {
	var pol models.Politician
	var active int
	var createdAt, updatedAt int64

	err := row.Scan(
		&pol.ID,
		&pol.UUID,
		&pol.FullName,
		&active,
		&pol.TotalTimeSeconds,
		&pol.ProfilesRequired,
		&pol.ProfilesGenerated,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	pol.Active = active != 0
	pol.CreatedAt = time.Unix(createdAt, 0)
	pol.UpdatedAt = time.Unix(updatedAt, 0)

	return &pol, nil
}

func scanPoliticians(rows *sql.Rows) ([]*models.Politician, error) {
	politicians := make([]*models.Politician, 0)

	for rows.Next() {
		var pol models.Politician
		var active int
		var createdAt, updatedAt int64

		err := rows.Scan(
			&pol.ID,
			&pol.UUID,
			&pol.FullName,
			&active,
			&pol.TotalTimeSeconds,
			&pol.ProfilesRequired,
			&pol.ProfilesGenerated,
			&createdAt,
			&updatedAt,
		)
		if err != nil {
			return nil, err
		}

		pol.Active = active != 0
		pol.CreatedAt = time.Unix(createdAt, 0)
		pol.UpdatedAt = time.Unix(updatedAt, 0)

		politicians = append(politicians, &pol)
	}

	return politicians, rows.Err()
}

// Shared row helpers

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func requireRow(result sql.Result, id int64) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("row %d: %w", id, interfaces.ErrNotFound)
	}
	return nil
}

// nullableString converts a *string to a driver-friendly value
func nullableString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

// nullableInt64 converts a *int64 to a driver-friendly value
func nullableInt64(i *int64) interface{} {
	if i == nil {
		return nil
	}
	return *i
}

// nullableUnix converts a *time.Time to a nullable Unix timestamp
func nullableUnix(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Unix()
}

// stringPtr returns a *string for a valid NullString
func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// int64Ptr returns a *int64 for a valid NullInt64
func int64Ptr(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}

// timePtr returns a *time.Time for a valid NullInt64 Unix timestamp
func timePtr(ni sql.NullInt64) *time.Time {
	if !ni.Valid {
		return nil
	}
	t := time.Unix(ni.Int64, 0)
	return &t
}
