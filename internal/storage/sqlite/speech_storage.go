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

// SpeechStorage implements interfaces.SpeechStorage
type SpeechStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
}

// NewSpeechStorage creates a new speech storage instance
func NewSpeechStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.SpeechStorage {
	return &SpeechStorage{
		db:     db,
		logger: logger,
	}
}

const insertSpeechSQL = `
	INSERT INTO speeches (
		id, uuid, agenda_item_id, politician_id, event_type, date,
		speaker, text, link, is_incomplete, parsed_at, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		uuid = excluded.uuid,
		agenda_item_id = excluded.agenda_item_id,
		politician_id = excluded.politician_id,
		event_type = excluded.event_type,
		date = excluded.date,
		speaker = excluded.speaker,
		text = excluded.text,
		link = excluded.link,
		is_incomplete = excluded.is_incomplete,
		parsed_at = excluded.parsed_at,
		updated_at = excluded.updated_at
`

// SaveSpeech inserts or updates a speech
func (s *SpeechStorage) SaveSpeech(ctx context.Context, speech *models.Speech) error {
	now := time.Now().Unix()

	_, err := s.db.db.ExecContext(ctx, insertSpeechSQL,
		speech.ID,
		speech.UUID,
		speech.AgendaItemID,
		nullableInt64(speech.PoliticianID),
		speech.EventType,
		speech.Date.Unix(),
		speech.Speaker,
		speech.Text,
		nullableString(speech.Link),
		boolToInt(speech.IsIncomplete),
		nullableUnix(speech.ParsedAt),
		now,
		now,
	)

	return err
}

// SaveSpeeches saves multiple speeches in one transaction and returns the
// number written
func (s *SpeechStorage) SaveSpeeches(ctx context.Context, speeches []*models.Speech) (int, error) {
	tx, err := s.db.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertSpeechSQL)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	saved := 0
	for _, speech := range speeches {
		_, err = stmt.ExecContext(ctx,
			speech.ID,
			speech.UUID,
			speech.AgendaItemID,
			nullableInt64(speech.PoliticianID),
			speech.EventType,
			speech.Date.Unix(),
			speech.Speaker,
			speech.Text,
			nullableString(speech.Link),
			boolToInt(speech.IsIncomplete),
			nullableUnix(speech.ParsedAt),
			now,
			now,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to save speech %d: %w", speech.ID, err)
		}
		saved++
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return saved, nil
}

// GetSpeech retrieves a speech by ID
func (s *SpeechStorage) GetSpeech(ctx context.Context, id int64) (*models.Speech, error) {
	row := s.db.db.QueryRowContext(ctx, selectSpeechSQL+" WHERE id = ?", id)

	speech, err := scanSpeechColumns(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, interfaces.ErrNotFound
	}
	return speech, err
}

// ListSpeeches lists speeches matching the filter, ordered by date
func (s *SpeechStorage) ListSpeeches(ctx context.Context, filter interfaces.SpeechFilter) ([]*models.Speech, error) {
	where, args := buildSpeechFilter(filter)

	rows, err := s.db.db.QueryContext(ctx, selectSpeechSQL+where+" ORDER BY date, id", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	speeches := make([]*models.Speech, 0)
	for rows.Next() {
		speech, err := scanSpeechColumns(rows.Scan)
		if err != nil {
			return nil, err
		}
		speeches = append(speeches, speech)
	}

	return speeches, rows.Err()
}

// ListSpeechesByPolitician returns the politician's SPEECH events ordered
// by date. This is the input the period partitioner consumes.
func (s *SpeechStorage) ListSpeechesByPolitician(ctx context.Context, politicianID int64) ([]*models.Speech, error) {
	return s.ListSpeeches(ctx, interfaces.SpeechFilter{
		PoliticianID: politicianID,
		EventType:    models.EventTypeSpeech,
	})
}

// UpdateSpeechText replaces the speaker and text columns. Used by the
// HTML cleanup pass; summaries are left alone since cleanup does not
// change meaning.
func (s *SpeechStorage) UpdateSpeechText(ctx context.Context, id int64, speaker, text string) error {
	result, err := s.db.db.ExecContext(ctx,
		"UPDATE speeches SET speaker = ?, text = ?, updated_at = ? WHERE id = ?",
		speaker, text, time.Now().Unix(), id)
	if err != nil {
		return err
	}
	return requireRow(result, id)
}

// UpdateSpeechSummary stores a generated summary. Stored translations
// are kept only when the summary text is unchanged.
func (s *SpeechStorage) UpdateSpeechSummary(ctx context.Context, id int64, summary string, generatedAt time.Time) error {
	query := `
		UPDATE speeches SET
			ai_summary_en = CASE WHEN ai_summary IS ? THEN ai_summary_en ELSE NULL END,
			ai_summary_ru = CASE WHEN ai_summary IS ? THEN ai_summary_ru ELSE NULL END,
			ai_summary = ?,
			ai_summary_generated_at = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.db.ExecContext(ctx, query,
		summary, summary, summary, generatedAt.Unix(), time.Now().Unix(), id)
	if err != nil {
		return err
	}
	return requireRow(result, id)
}

// UpdateSpeechSummaryTranslations stores translated speech summaries
func (s *SpeechStorage) UpdateSpeechSummaryTranslations(ctx context.Context, id int64, en, ru *string) error {
	result, err := s.db.db.ExecContext(ctx,
		"UPDATE speeches SET ai_summary_en = ?, ai_summary_ru = ?, updated_at = ? WHERE id = ?",
		nullableString(en), nullableString(ru), time.Now().Unix(), id)
	if err != nil {
		return err
	}
	return requireRow(result, id)
}

// SetSpeechIncomplete updates the speech incomplete flag
func (s *SpeechStorage) SetSpeechIncomplete(ctx context.Context, id int64, incomplete bool) error {
	result, err := s.db.db.ExecContext(ctx,
		"UPDATE speeches SET is_incomplete = ?, updated_at = ? WHERE id = ?",
		boolToInt(incomplete), time.Now().Unix(), id)
	if err != nil {
		return err
	}
	return requireRow(result, id)
}

// CountSpeeches counts speeches matching the filter
func (s *SpeechStorage) CountSpeeches(ctx context.Context, filter interfaces.SpeechFilter) (int, error) {
	where, args := buildSpeechFilter(filter)

	var count int
	err := s.db.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM speeches"+where, args...).Scan(&count)
	return count, err
}

// DeleteAllSpeeches removes every speech row and returns the count
func (s *SpeechStorage) DeleteAllSpeeches(ctx context.Context) (int64, error) {
	result, err := s.db.db.ExecContext(ctx, "DELETE FROM speeches")
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// buildSpeechFilter assembles the WHERE clause for a SpeechFilter
func buildSpeechFilter(filter interfaces.SpeechFilter) (string, []interface{}) {
	conditions := []string{}
	args := []interface{}{}

	if filter.SpeechID != 0 {
		conditions = append(conditions, "id = ?")
		args = append(args, filter.SpeechID)
	}
	if filter.AgendaItemID != 0 {
		conditions = append(conditions, "agenda_item_id = ?")
		args = append(args, filter.AgendaItemID)
	}
	if filter.PlenarySessionID != 0 {
		conditions = append(conditions, "agenda_item_id IN (SELECT id FROM agenda_items WHERE plenary_session_id = ?)")
		args = append(args, filter.PlenarySessionID)
	}
	if filter.PoliticianID != 0 {
		conditions = append(conditions, "politician_id = ?")
		args = append(args, filter.PoliticianID)
	}
	if filter.EventType != "" {
		conditions = append(conditions, "event_type = ?")
		args = append(args, filter.EventType)
	}
	if filter.ExcludeIncomplete {
		conditions = append(conditions, "is_incomplete = 0")
	}
	if filter.MissingSummaryOnly {
		conditions = append(conditions, "(ai_summary IS NULL OR ai_summary = '')")
	}

	if len(conditions) == 0 {
		return "", args
	}

	where := " WHERE " + conditions[0]
	for _, c := range conditions[1:] {
		where += " AND " + c
	}
	return where, args
}

const selectSpeechSQL = `
	SELECT id, uuid, agenda_item_id, politician_id, event_type, date,
		   speaker, text, link, is_incomplete, parsed_at,
		   ai_summary, ai_summary_en, ai_summary_ru, ai_summary_generated_at,
		   created_at, updated_at
	FROM speeches`

// scanSpeechColumns reads one speech row via the given scan function,
// which lets it serve both sql.Row and sql.Rows.
func scanSpeechColumns(scan func(...interface{}) error) (*models.Speech, error) {
	var speech models.Speech
	var politicianID sql.NullInt64
	var date, createdAt, updatedAt int64
	var incomplete int
	var link, aiSummary, aiSummaryEN, aiSummaryRU sql.NullString
	var parsedAt, summaryGeneratedAt sql.NullInt64

	err := scan(
		&speech.ID,
		&speech.UUID,
		&speech.AgendaItemID,
		&politicianID,
		&speech.EventType,
		&date,
		&speech.Speaker,
		&speech.Text,
		&link,
		&incomplete,
		&parsedAt,
		&aiSummary,
		&aiSummaryEN,
		&aiSummaryRU,
		&summaryGeneratedAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	speech.PoliticianID = int64Ptr(politicianID)
	speech.Date = time.Unix(date, 0)
	speech.Link = stringPtr(link)
	speech.IsIncomplete = incomplete != 0
	speech.ParsedAt = timePtr(parsedAt)
	speech.AISummary = stringPtr(aiSummary)
	speech.AISummaryEN = stringPtr(aiSummaryEN)
	speech.AISummaryRU = stringPtr(aiSummaryRU)
	speech.AISummaryGeneratedAt = timePtr(summaryGeneratedAt)
	speech.CreatedAt = time.Unix(createdAt, 0)
	speech.UpdatedAt = time.Unix(updatedAt, 0)

	return &speech, nil
}
