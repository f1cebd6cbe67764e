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

// SummaryStorage implements interfaces.SummaryStorage for agenda
// summaries, decisions and active-politician rows
type SummaryStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
}

// NewSummaryStorage creates a new summary storage instance
func NewSummaryStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.SummaryStorage {
	return &SummaryStorage{
		db:     db,
		logger: logger,
	}
}

// GetAgendaSummary retrieves the summary row of one agenda item
func (s *SummaryStorage) GetAgendaSummary(ctx context.Context, agendaItemID int64) (*models.AgendaSummary, error) {
	row := s.db.db.QueryRowContext(ctx, `
		SELECT id, agenda_item_id, summary_text, summary_text_en, summary_text_ru,
			   is_incomplete, generated_at, created_at, updated_at
		FROM agenda_summaries WHERE agenda_item_id = ?`, agendaItemID)

	var summary models.AgendaSummary
	var summaryEN, summaryRU sql.NullString
	var incomplete int
	var generatedAt sql.NullInt64
	var createdAt, updatedAt int64

	err := row.Scan(
		&summary.ID,
		&summary.AgendaItemID,
		&summary.SummaryText,
		&summaryEN,
		&summaryRU,
		&incomplete,
		&generatedAt,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	summary.SummaryEN = stringPtr(summaryEN)
	summary.SummaryRU = stringPtr(summaryRU)
	summary.IsIncomplete = incomplete != 0
	summary.GeneratedAt = timePtr(generatedAt)
	summary.CreatedAt = time.Unix(createdAt, 0)
	summary.UpdatedAt = time.Unix(updatedAt, 0)

	return &summary, nil
}

// UpsertAgendaSummary creates or replaces the one summary row per agenda
// item. Stored translations survive only when the text is unchanged.
func (s *SummaryStorage) UpsertAgendaSummary(ctx context.Context, summary *models.AgendaSummary) error {
	now := time.Now().Unix()

	query := `
		INSERT INTO agenda_summaries (
			agenda_item_id, summary_text, summary_text_en, summary_text_ru,
			is_incomplete, generated_at, created_at, updated_at
		) VALUES (?, ?, NULL, NULL, ?, ?, ?, ?)
		ON CONFLICT(agenda_item_id) DO UPDATE SET
			summary_text_en = CASE WHEN agenda_summaries.summary_text = excluded.summary_text
				THEN agenda_summaries.summary_text_en ELSE NULL END,
			summary_text_ru = CASE WHEN agenda_summaries.summary_text = excluded.summary_text
				THEN agenda_summaries.summary_text_ru ELSE NULL END,
			summary_text = excluded.summary_text,
			is_incomplete = excluded.is_incomplete,
			generated_at = excluded.generated_at,
			updated_at = excluded.updated_at
	`

	_, err := s.db.db.ExecContext(ctx, query,
		summary.AgendaItemID,
		summary.SummaryText,
		boolToInt(summary.IsIncomplete),
		nullableUnix(summary.GeneratedAt),
		now,
		now,
	)

	return err
}

// ReplaceDecisions deletes the agenda's decision rows and writes the
// given set in one transaction
func (s *SummaryStorage) ReplaceDecisions(ctx context.Context, agendaItemID int64, decisions []*models.AgendaDecision) error {
	tx, err := s.db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM agenda_decisions WHERE agenda_item_id = ?", agendaItemID); err != nil {
		return err
	}

	now := time.Now().Unix()
	for _, decision := range decisions {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO agenda_decisions (
				agenda_item_id, politician_id, decision_text,
				decision_text_en, decision_text_ru,
				is_incomplete, generated_at, created_at, updated_at
			) VALUES (?, ?, ?, NULL, NULL, ?, ?, ?, ?)`,
			agendaItemID,
			nullableInt64(decision.PoliticianID),
			decision.Text,
			boolToInt(decision.IsIncomplete),
			nullableUnix(decision.GeneratedAt),
			now,
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert decision: %w", err)
		}
		if decision.ID, err = result.LastInsertId(); err != nil {
			return err
		}
		decision.AgendaItemID = agendaItemID
	}

	return tx.Commit()
}

// ListDecisions lists the decision rows of one agenda item
func (s *SummaryStorage) ListDecisions(ctx context.Context, agendaItemID int64) ([]*models.AgendaDecision, error) {
	return s.listDecisions(ctx,
		selectDecisionSQL+" WHERE agenda_item_id = ? ORDER BY id", agendaItemID)
}

// ReplaceActivePolitician deletes and rewrites the agenda's
// active-politician row. A nil active deletes without rewriting.
func (s *SummaryStorage) ReplaceActivePolitician(ctx context.Context, agendaItemID int64, active *models.AgendaActivePolitician) error {
	tx, err := s.db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM agenda_active_politicians WHERE agenda_item_id = ?", agendaItemID); err != nil {
		return err
	}

	if active != nil {
		now := time.Now().Unix()
		result, err := tx.ExecContext(ctx, `
			INSERT INTO agenda_active_politicians (
				agenda_item_id, politician_id, activity_description,
				activity_description_en, activity_description_ru,
				is_incomplete, generated_at, created_at, updated_at
			) VALUES (?, ?, ?, NULL, NULL, ?, ?, ?, ?)`,
			agendaItemID,
			nullableInt64(active.PoliticianID),
			active.Description,
			boolToInt(active.IsIncomplete),
			nullableUnix(active.GeneratedAt),
			now,
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert active politician: %w", err)
		}
		if active.ID, err = result.LastInsertId(); err != nil {
			return err
		}
		active.AgendaItemID = agendaItemID
	}

	return tx.Commit()
}

// GetActivePolitician retrieves the active-politician row of one agenda
// item
func (s *SummaryStorage) GetActivePolitician(ctx context.Context, agendaItemID int64) (*models.AgendaActivePolitician, error) {
	row := s.db.db.QueryRowContext(ctx,
		selectActiveSQL+" WHERE agenda_item_id = ?", agendaItemID)

	active, err := scanActiveColumns(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, interfaces.ErrNotFound
	}
	return active, err
}

// ListAgendaItemsNeedingSummary returns agenda items with summarizable
// speeches whose summary artifacts are missing or stale. Stale means
// some speech was parsed after the stored summary was generated and no
// speech of the agenda is still incomplete.
func (s *SummaryStorage) ListAgendaItemsNeedingSummary(ctx context.Context) ([]*models.AgendaItem, error) {
	query := selectAgendaItemSQL + `
		WHERE EXISTS (
			SELECT 1 FROM speeches sp
			WHERE sp.agenda_item_id = agenda_items.id
			  AND sp.event_type = ? AND sp.is_incomplete = 0 AND sp.text != ''
		)
		AND (
			NOT EXISTS (SELECT 1 FROM agenda_summaries sm WHERE sm.agenda_item_id = agenda_items.id)
			OR NOT EXISTS (SELECT 1 FROM agenda_decisions d WHERE d.agenda_item_id = agenda_items.id)
			OR NOT EXISTS (SELECT 1 FROM agenda_active_politicians ap WHERE ap.agenda_item_id = agenda_items.id)
			OR EXISTS (
				SELECT 1 FROM agenda_summaries sm
				WHERE sm.agenda_item_id = agenda_items.id
				  AND sm.generated_at IS NOT NULL
				  AND EXISTS (
					SELECT 1 FROM speeches sp2
					WHERE sp2.agenda_item_id = agenda_items.id
					  AND sp2.parsed_at IS NOT NULL AND sp2.parsed_at > sm.generated_at
				  )
				  AND NOT EXISTS (
					SELECT 1 FROM speeches sp3
					WHERE sp3.agenda_item_id = agenda_items.id AND sp3.is_incomplete = 1
				  )
			)
		)
		ORDER BY date, id
	`

	rows, err := s.db.db.QueryContext(ctx, query, models.EventTypeSpeech)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*models.AgendaItem, 0)
	for rows.Next() {
		item, err := scanAgendaItemRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// ListSummariesNeedingTranslation lists summaries missing a translation,
// or every summary when overwrite is set
func (s *SummaryStorage) ListSummariesNeedingTranslation(ctx context.Context, overwrite bool) ([]*models.AgendaSummary, error) {
	query := `
		SELECT id, agenda_item_id, summary_text, summary_text_en, summary_text_ru,
			   is_incomplete, generated_at, created_at, updated_at
		FROM agenda_summaries`
	if !overwrite {
		query += " WHERE summary_text_en IS NULL OR summary_text_ru IS NULL"
	}
	query += " ORDER BY agenda_item_id"

	rows, err := s.db.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]*models.AgendaSummary, 0)
	for rows.Next() {
		var summary models.AgendaSummary
		var summaryEN, summaryRU sql.NullString
		var incomplete int
		var generatedAt sql.NullInt64
		var createdAt, updatedAt int64

		err := rows.Scan(
			&summary.ID,
			&summary.AgendaItemID,
			&summary.SummaryText,
			&summaryEN,
			&summaryRU,
			&incomplete,
			&generatedAt,
			&createdAt,
			&updatedAt,
		)
		if err != nil {
			return nil, err
		}

		summary.SummaryEN = stringPtr(summaryEN)
		summary.SummaryRU = stringPtr(summaryRU)
		summary.IsIncomplete = incomplete != 0
		summary.GeneratedAt = timePtr(generatedAt)
		summary.CreatedAt = time.Unix(createdAt, 0)
		summary.UpdatedAt = time.Unix(updatedAt, 0)

		summaries = append(summaries, &summary)
	}

	return summaries, rows.Err()
}

// ListDecisionsNeedingTranslation lists decisions missing a translation
func (s *SummaryStorage) ListDecisionsNeedingTranslation(ctx context.Context, overwrite bool) ([]*models.AgendaDecision, error) {
	query := selectDecisionSQL
	if !overwrite {
		query += " WHERE decision_text_en IS NULL OR decision_text_ru IS NULL"
	}
	query += " ORDER BY agenda_item_id, id"
	return s.listDecisions(ctx, query)
}

// ListActivesNeedingTranslation lists active-politician rows missing a
// translation
func (s *SummaryStorage) ListActivesNeedingTranslation(ctx context.Context, overwrite bool) ([]*models.AgendaActivePolitician, error) {
	query := selectActiveSQL
	if !overwrite {
		query += " WHERE activity_description_en IS NULL OR activity_description_ru IS NULL"
	}
	query += " ORDER BY agenda_item_id"

	rows, err := s.db.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	actives := make([]*models.AgendaActivePolitician, 0)
	for rows.Next() {
		active, err := scanActiveColumns(rows.Scan)
		if err != nil {
			return nil, err
		}
		actives = append(actives, active)
	}

	return actives, rows.Err()
}

// UpdateSummaryTranslations stores translated summary text by row ID
func (s *SummaryStorage) UpdateSummaryTranslations(ctx context.Context, id int64, en, ru *string) error {
	result, err := s.db.db.ExecContext(ctx,
		"UPDATE agenda_summaries SET summary_text_en = ?, summary_text_ru = ?, updated_at = ? WHERE id = ?",
		nullableString(en), nullableString(ru), time.Now().Unix(), id)
	if err != nil {
		return err
	}
	return requireRow(result, id)
}

// UpdateDecisionTranslations stores translated decision text by row ID
func (s *SummaryStorage) UpdateDecisionTranslations(ctx context.Context, id int64, en, ru *string) error {
	result, err := s.db.db.ExecContext(ctx,
		"UPDATE agenda_decisions SET decision_text_en = ?, decision_text_ru = ?, updated_at = ? WHERE id = ?",
		nullableString(en), nullableString(ru), time.Now().Unix(), id)
	if err != nil {
		return err
	}
	return requireRow(result, id)
}

// UpdateActiveTranslations stores translated activity descriptions by
// row ID
func (s *SummaryStorage) UpdateActiveTranslations(ctx context.Context, id int64, en, ru *string) error {
	result, err := s.db.db.ExecContext(ctx,
		"UPDATE agenda_active_politicians SET activity_description_en = ?, activity_description_ru = ?, updated_at = ? WHERE id = ?",
		nullableString(en), nullableString(ru), time.Now().Unix(), id)
	if err != nil {
		return err
	}
	return requireRow(result, id)
}

// SetSummaryIncomplete updates the incomplete flag across the agenda's
// summary, decision and active-politician rows in one transaction
func (s *SummaryStorage) SetSummaryIncomplete(ctx context.Context, agendaItemID int64, incomplete bool) error {
	tx, err := s.db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	flag := boolToInt(incomplete)

	updates := []string{
		"UPDATE agenda_summaries SET is_incomplete = ?, updated_at = ? WHERE agenda_item_id = ?",
		"UPDATE agenda_decisions SET is_incomplete = ?, updated_at = ? WHERE agenda_item_id = ?",
		"UPDATE agenda_active_politicians SET is_incomplete = ?, updated_at = ? WHERE agenda_item_id = ?",
	}
	for _, query := range updates {
		if _, err := tx.ExecContext(ctx, query, flag, now, agendaItemID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// CountSummaries returns the total agenda summary count
func (s *SummaryStorage) CountSummaries(ctx context.Context) (int, error) {
	var count int
	err := s.db.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM agenda_summaries").Scan(&count)
	return count, err
}

// DeleteAllSummaries removes every summary, decision and
// active-politician row, returning the total rows deleted
func (s *SummaryStorage) DeleteAllSummaries(ctx context.Context) (int64, error) {
	tx, err := s.db.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var total int64
	for _, table := range []string{"agenda_summaries", "agenda_decisions", "agenda_active_politicians"} {
		result, err := tx.ExecContext(ctx, "DELETE FROM "+table)
		if err != nil {
			return 0, err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return 0, err
		}
		total += affected
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return total, nil
}

const selectDecisionSQL = `
	SELECT id, agenda_item_id, politician_id, decision_text,
		   decision_text_en, decision_text_ru,
		   is_incomplete, generated_at, created_at, updated_at
	FROM agenda_decisions`

func (s *SummaryStorage) listDecisions(ctx context.Context, query string, args ...interface{}) ([]*models.AgendaDecision, error) {
	rows, err := s.db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	decisions := make([]*models.AgendaDecision, 0)
	for rows.Next() {
		var decision models.AgendaDecision
		var politicianID sql.NullInt64
		var textEN, textRU sql.NullString
		var incomplete int
		var generatedAt sql.NullInt64
		var createdAt, updatedAt int64

		err := rows.Scan(
			&decision.ID,
			&decision.AgendaItemID,
			&politicianID,
			&decision.Text,
			&textEN,
			&textRU,
			&incomplete,
			&generatedAt,
			&createdAt,
			&updatedAt,
		)
		if err != nil {
			return nil, err
		}

		decision.PoliticianID = int64Ptr(politicianID)
		decision.TextEN = stringPtr(textEN)
		decision.TextRU = stringPtr(textRU)
		decision.IsIncomplete = incomplete != 0
		decision.GeneratedAt = timePtr(generatedAt)
		decision.CreatedAt = time.Unix(createdAt, 0)
		decision.UpdatedAt = time.Unix(updatedAt, 0)

		decisions = append(decisions, &decision)
	}

	return decisions, rows.Err()
}

const selectActiveSQL = `
	SELECT id, agenda_item_id, politician_id, activity_description,
		   activity_description_en, activity_description_ru,
		   is_incomplete, generated_at, created_at, updated_at
	FROM agenda_active_politicians`

func scanActiveColumns(scan func(...interface{}) error) (*models.AgendaActivePolitician, error) {
	var active models.AgendaActivePolitician
	var politicianID sql.NullInt64
	var descEN, descRU sql.NullString
	var incomplete int
	var generatedAt sql.NullInt64
	var createdAt, updatedAt int64

	err := scan(
		&active.ID,
		&active.AgendaItemID,
		&politicianID,
		&active.Description,
		&descEN,
		&descRU,
		&incomplete,
		&generatedAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	active.PoliticianID = int64Ptr(politicianID)
	active.DescriptionEN = stringPtr(descEN)
	active.DescriptionRU = stringPtr(descRU)
	active.IsIncomplete = incomplete != 0
	active.GeneratedAt = timePtr(generatedAt)
	active.CreatedAt = time.Unix(createdAt, 0)
	active.UpdatedAt = time.Unix(updatedAt, 0)

	return &active, nil
}
