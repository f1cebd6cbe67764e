package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/oratio/internal/interfaces"
	"github.com/ternarybob/oratio/internal/models"
)

// ProfileStorage implements interfaces.ProfileStorage
type ProfileStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
}

// NewProfileStorage creates a new profile storage instance
func NewProfileStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.ProfileStorage {
	return &ProfileStorage{
		db:     db,
		logger: logger,
	}
}

// scopeWhereSQL matches a part by its full identity. IS instead of =
// makes the null discriminators of broader scopes match, so the all-null
// tuple selects exactly the ALL row.
const scopeWhereSQL = ` WHERE politician_id = ? AND category = ? AND period_type = ?
	AND agenda_item_id IS ? AND plenary_session_id IS ? AND month IS ? AND year IS ?`

func scopeArgs(politicianID int64, category models.ProfileCategory, scope models.Scope) []interface{} {
	return []interface{}{
		politicianID,
		string(category),
		string(scope.Type),
		nullableInt64(scope.AgendaID),
		nullableInt64(scope.SessionID),
		nullableString(scope.Month),
		nullableIntFromPtr(scope.Year),
	}
}

// UpsertProfilePart creates or replaces the part stored for its scope
// key. When the analysis text changes, stored translations are cleared.
// If legacy duplicate rows exist for the key, the newest is updated.
func (p *ProfileStorage) UpsertProfilePart(ctx context.Context, part *models.ProfilePart) error {
	if err := part.Validate(); err != nil {
		return fmt.Errorf("invalid profile part: %w", err)
	}

	metricsJSON, err := json.Marshal(part.Metrics)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	tx, err := p.db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	scope := part.Scope()
	now := time.Now().Unix()

	var existingID int64
	var existingAnalysis string
	err = tx.QueryRowContext(ctx,
		"SELECT id, analysis FROM profile_parts"+scopeWhereSQL+" ORDER BY updated_at DESC, id DESC LIMIT 1",
		scopeArgs(part.PoliticianID, part.Category, scope)...,
	).Scan(&existingID, &existingAnalysis)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		result, err := tx.ExecContext(ctx, `
			INSERT INTO profile_parts (
				politician_id, category, period_type,
				agenda_item_id, plenary_session_id, month, year,
				analysis, analysis_en, analysis_ru, metrics,
				speeches_analyzed, date_range_start, date_range_end,
				is_incomplete, generated_at, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			part.PoliticianID,
			string(part.Category),
			string(part.PeriodType),
			nullableInt64(part.AgendaItemID),
			nullableInt64(part.PlenarySessionID),
			nullableString(part.Month),
			nullableIntFromPtr(part.Year),
			part.Analysis,
			nullableString(part.AnalysisEN),
			nullableString(part.AnalysisRU),
			string(metricsJSON),
			part.SpeechesAnalyzed,
			nullableUnix(part.DateRangeStart),
			nullableUnix(part.DateRangeEnd),
			boolToInt(part.IsIncomplete),
			nullableUnix(part.GeneratedAt),
			now,
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert profile part: %w", err)
		}
		if part.ID, err = result.LastInsertId(); err != nil {
			return err
		}

	case err != nil:
		return err

	default:
		clearTranslations := existingAnalysis != part.Analysis
		query := `
			UPDATE profile_parts SET
				analysis = ?, metrics = ?,
				speeches_analyzed = ?, date_range_start = ?, date_range_end = ?,
				is_incomplete = ?, generated_at = ?, updated_at = ?`
		args := []interface{}{
			part.Analysis,
			string(metricsJSON),
			part.SpeechesAnalyzed,
			nullableUnix(part.DateRangeStart),
			nullableUnix(part.DateRangeEnd),
			boolToInt(part.IsIncomplete),
			nullableUnix(part.GeneratedAt),
			now,
		}
		if clearTranslations {
			query += ", analysis_en = NULL, analysis_ru = NULL"
		}
		query += " WHERE id = ?"
		args = append(args, existingID)

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to update profile part: %w", err)
		}
		part.ID = existingID
	}

	return tx.Commit()
}

// GetProfilePart returns the part for the exact scope key
func (p *ProfileStorage) GetProfilePart(ctx context.Context, politicianID int64, category models.ProfileCategory, scope models.Scope) (*models.ProfilePart, error) {
	row := p.db.db.QueryRowContext(ctx,
		selectProfilePartSQL+scopeWhereSQL+" ORDER BY updated_at DESC, id DESC LIMIT 1",
		scopeArgs(politicianID, category, scope)...)

	part, err := scanProfilePartColumns(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, interfaces.ErrNotFound
	}
	return part, err
}

// ListProfileParts lists the parts of one politician
func (p *ProfileStorage) ListProfileParts(ctx context.Context, politicianID int64) ([]*models.ProfilePart, error) {
	return p.listParts(ctx,
		selectProfilePartSQL+" WHERE politician_id = ? ORDER BY category, period_type, id", politicianID)
}

// ListProfilePartsByPeriod lists one politician's parts of a period type
func (p *ProfileStorage) ListProfilePartsByPeriod(ctx context.Context, politicianID int64, periodType models.PeriodType) ([]*models.ProfilePart, error) {
	return p.listParts(ctx,
		selectProfilePartSQL+" WHERE politician_id = ? AND period_type = ? ORDER BY category, id",
		politicianID, string(periodType))
}

// ListAllProfileParts lists every stored part
func (p *ProfileStorage) ListAllProfileParts(ctx context.Context) ([]*models.ProfilePart, error) {
	return p.listParts(ctx, selectProfilePartSQL+" ORDER BY politician_id, category, period_type, id")
}

// ListProfilePartsNeedingTranslation lists parts missing a translation,
// or every part when overwrite is set
func (p *ProfileStorage) ListProfilePartsNeedingTranslation(ctx context.Context, overwrite bool) ([]*models.ProfilePart, error) {
	query := selectProfilePartSQL
	if !overwrite {
		query += " WHERE analysis_en IS NULL OR analysis_ru IS NULL"
	}
	query += " ORDER BY politician_id, id"
	return p.listParts(ctx, query)
}

func (p *ProfileStorage) listParts(ctx context.Context, query string, args ...interface{}) ([]*models.ProfilePart, error) {
	rows, err := p.db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	parts := make([]*models.ProfilePart, 0)
	for rows.Next() {
		part, err := scanProfilePartColumns(rows.Scan)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}

	return parts, rows.Err()
}

// UpdateProfileTranslations stores translated analysis text
func (p *ProfileStorage) UpdateProfileTranslations(ctx context.Context, id int64, en, ru *string) error {
	result, err := p.db.db.ExecContext(ctx,
		"UPDATE profile_parts SET analysis_en = ?, analysis_ru = ?, updated_at = ? WHERE id = ?",
		nullableString(en), nullableString(ru), time.Now().Unix(), id)
	if err != nil {
		return err
	}
	return requireRow(result, id)
}

// SetProfileIncomplete updates the part incomplete flag
func (p *ProfileStorage) SetProfileIncomplete(ctx context.Context, id int64, incomplete bool) error {
	result, err := p.db.db.ExecContext(ctx,
		"UPDATE profile_parts SET is_incomplete = ?, updated_at = ? WHERE id = ?",
		boolToInt(incomplete), time.Now().Unix(), id)
	if err != nil {
		return err
	}
	return requireRow(result, id)
}

// DeleteProfilePart removes one part by row ID
func (p *ProfileStorage) DeleteProfilePart(ctx context.Context, id int64) error {
	_, err := p.db.db.ExecContext(ctx, "DELETE FROM profile_parts WHERE id = ?", id)
	return err
}

// CountProfileParts returns the total part count
func (p *ProfileStorage) CountProfileParts(ctx context.Context) (int, error) {
	var count int
	err := p.db.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM profile_parts").Scan(&count)
	return count, err
}

// CountProfilePartsByPolitician returns one politician's part count
func (p *ProfileStorage) CountProfilePartsByPolitician(ctx context.Context, politicianID int64) (int, error) {
	var count int
	err := p.db.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM profile_parts WHERE politician_id = ?", politicianID).Scan(&count)
	return count, err
}

const selectProfilePartSQL = `
	SELECT id, politician_id, category, period_type,
		   agenda_item_id, plenary_session_id, month, year,
		   analysis, analysis_en, analysis_ru, metrics,
		   speeches_analyzed, date_range_start, date_range_end,
		   is_incomplete, generated_at, created_at, updated_at
	FROM profile_parts`

func scanProfilePartColumns(scan func(...interface{}) error) (*models.ProfilePart, error) {
	var part models.ProfilePart
	var category, periodType string
	var agendaID, sessionID sql.NullInt64
	var month sql.NullString
	var year sql.NullInt64
	var analysisEN, analysisRU, metricsJSON sql.NullString
	var rangeStart, rangeEnd, generatedAt sql.NullInt64
	var incomplete int
	var createdAt, updatedAt int64

	err := scan(
		&part.ID,
		&part.PoliticianID,
		&category,
		&periodType,
		&agendaID,
		&sessionID,
		&month,
		&year,
		&part.Analysis,
		&analysisEN,
		&analysisRU,
		&metricsJSON,
		&part.SpeechesAnalyzed,
		&rangeStart,
		&rangeEnd,
		&incomplete,
		&generatedAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	part.Category = models.ProfileCategory(category)
	part.PeriodType = models.PeriodType(periodType)
	part.AgendaItemID = int64Ptr(agendaID)
	part.PlenarySessionID = int64Ptr(sessionID)
	part.Month = stringPtr(month)
	if year.Valid {
		y := int(year.Int64)
		part.Year = &y
	}
	part.AnalysisEN = stringPtr(analysisEN)
	part.AnalysisRU = stringPtr(analysisRU)
	if metricsJSON.Valid && metricsJSON.String != "" {
		if err := json.Unmarshal([]byte(metricsJSON.String), &part.Metrics); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metrics for part %d: %w", part.ID, err)
		}
	}
	part.DateRangeStart = timePtr(rangeStart)
	part.DateRangeEnd = timePtr(rangeEnd)
	part.IsIncomplete = incomplete != 0
	part.GeneratedAt = timePtr(generatedAt)
	part.CreatedAt = time.Unix(createdAt, 0)
	part.UpdatedAt = time.Unix(updatedAt, 0)

	return &part, nil
}

// nullableIntFromPtr converts a *int to a driver value
func nullableIntFromPtr(i *int) interface{} {
	if i == nil {
		return nil
	}
	return *i
}
