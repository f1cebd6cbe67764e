package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/oratio/internal/interfaces"
	"github.com/ternarybob/oratio/internal/models"
)

// SessionStorage implements interfaces.SessionStorage for plenary
// sessions and their agenda items
type SessionStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
}

// NewSessionStorage creates a new session storage instance
func NewSessionStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.SessionStorage {
	return &SessionStorage{
		db:     db,
		logger: logger,
	}
}

// SaveSession inserts or updates a plenary session
func (s *SessionStorage) SaveSession(ctx context.Context, session *models.PlenarySession) error {
	now := time.Now().Unix()

	query := `
		INSERT INTO plenary_sessions (
			id, membership, session_number, date, title, title_en, title_ru,
			is_incomplete, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			membership = excluded.membership,
			session_number = excluded.session_number,
			date = excluded.date,
			title = excluded.title,
			is_incomplete = excluded.is_incomplete,
			updated_at = excluded.updated_at
	`

	_, err := s.db.db.ExecContext(ctx, query,
		session.ID,
		session.Membership,
		session.SessionNumber,
		session.Date.Unix(),
		session.Title,
		nullableString(session.TitleEN),
		nullableString(session.TitleRU),
		boolToInt(session.IsIncomplete),
		now,
		now,
	)

	return err
}

// GetSession retrieves a plenary session by ID
func (s *SessionStorage) GetSession(ctx context.Context, id int64) (*models.PlenarySession, error) {
	row := s.db.db.QueryRowContext(ctx, selectSessionSQL+" WHERE id = ?", id)
	return scanSession(row)
}

// ListSessions lists all plenary sessions ordered by date
func (s *SessionStorage) ListSessions(ctx context.Context) ([]*models.PlenarySession, error) {
	rows, err := s.db.db.QueryContext(ctx, selectSessionSQL+" ORDER BY date")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]*models.PlenarySession, 0)
	for rows.Next() {
		session, err := scanSessionRow(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}

	return sessions, rows.Err()
}

// SessionExists reports whether a plenary session row exists
func (s *SessionStorage) SessionExists(ctx context.Context, id int64) (bool, error) {
	var count int
	err := s.db.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM plenary_sessions WHERE id = ?", id).Scan(&count)
	return count > 0, err
}

// UpdateSessionTitle replaces the session title and clears stored
// translations, which no longer match the new text
func (s *SessionStorage) UpdateSessionTitle(ctx context.Context, id int64, title string) error {
	result, err := s.db.db.ExecContext(ctx,
		"UPDATE plenary_sessions SET title = ?, title_en = NULL, title_ru = NULL, updated_at = ? WHERE id = ?",
		title, time.Now().Unix(), id)
	if err != nil {
		return err
	}
	return requireRow(result, id)
}

// UpdateSessionTitleTranslations stores translated session titles
func (s *SessionStorage) UpdateSessionTitleTranslations(ctx context.Context, id int64, en, ru *string) error {
	result, err := s.db.db.ExecContext(ctx,
		"UPDATE plenary_sessions SET title_en = ?, title_ru = ?, updated_at = ? WHERE id = ?",
		nullableString(en), nullableString(ru), time.Now().Unix(), id)
	if err != nil {
		return err
	}
	return requireRow(result, id)
}

// SetSessionIncomplete updates the session incomplete flag
func (s *SessionStorage) SetSessionIncomplete(ctx context.Context, id int64, incomplete bool) error {
	result, err := s.db.db.ExecContext(ctx,
		"UPDATE plenary_sessions SET is_incomplete = ?, updated_at = ? WHERE id = ?",
		boolToInt(incomplete), time.Now().Unix(), id)
	if err != nil {
		return err
	}
	return requireRow(result, id)
}

// CountSessions returns the total plenary session count
func (s *SessionStorage) CountSessions(ctx context.Context) (int, error) {
	var count int
	err := s.db.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM plenary_sessions").Scan(&count)
	return count, err
}

// SaveAgendaItem inserts or updates an agenda item
func (s *SessionStorage) SaveAgendaItem(ctx context.Context, item *models.AgendaItem) error {
	now := time.Now().Unix()

	query := `
		INSERT INTO agenda_items (
			id, uuid, plenary_session_id, date, title, title_en, title_ru,
			total_time_seconds, is_incomplete, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			uuid = excluded.uuid,
			plenary_session_id = excluded.plenary_session_id,
			date = excluded.date,
			title = excluded.title,
			is_incomplete = excluded.is_incomplete,
			updated_at = excluded.updated_at
	`

	_, err := s.db.db.ExecContext(ctx, query,
		item.ID,
		item.UUID,
		item.PlenarySessionID,
		item.Date.Unix(),
		item.Title,
		nullableString(item.TitleEN),
		nullableString(item.TitleRU),
		nullableInt64(item.TotalTimeSeconds),
		boolToInt(item.IsIncomplete),
		now,
		now,
	)

	return err
}

// GetAgendaItem retrieves an agenda item by ID
func (s *SessionStorage) GetAgendaItem(ctx context.Context, id int64) (*models.AgendaItem, error) {
	row := s.db.db.QueryRowContext(ctx, selectAgendaItemSQL+" WHERE id = ?", id)
	return scanAgendaItem(row)
}

// ListAgendaItems lists all agenda items ordered by date
func (s *SessionStorage) ListAgendaItems(ctx context.Context) ([]*models.AgendaItem, error) {
	return s.listAgendaItems(ctx, selectAgendaItemSQL+" ORDER BY date, id")
}

// ListAgendaItemsBySession lists the agenda items of one session
func (s *SessionStorage) ListAgendaItemsBySession(ctx context.Context, sessionID int64) ([]*models.AgendaItem, error) {
	return s.listAgendaItems(ctx,
		selectAgendaItemSQL+" WHERE plenary_session_id = ? ORDER BY id", sessionID)
}

func (s *SessionStorage) listAgendaItems(ctx context.Context, query string, args ...interface{}) ([]*models.AgendaItem, error) {
	rows, err := s.db.db.QueryContext(ctx, query, args...)
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

// AgendaItemExists reports whether an agenda item row exists
func (s *SessionStorage) AgendaItemExists(ctx context.Context, id int64) (bool, error) {
	var count int
	err := s.db.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM agenda_items WHERE id = ?", id).Scan(&count)
	return count > 0, err
}

// UpdateAgendaTitle replaces the agenda title and clears stored
// translations
func (s *SessionStorage) UpdateAgendaTitle(ctx context.Context, id int64, title string) error {
	result, err := s.db.db.ExecContext(ctx,
		"UPDATE agenda_items SET title = ?, title_en = NULL, title_ru = NULL, updated_at = ? WHERE id = ?",
		title, time.Now().Unix(), id)
	if err != nil {
		return err
	}
	return requireRow(result, id)
}

// UpdateAgendaTitleTranslations stores translated agenda titles
func (s *SessionStorage) UpdateAgendaTitleTranslations(ctx context.Context, id int64, en, ru *string) error {
	result, err := s.db.db.ExecContext(ctx,
		"UPDATE agenda_items SET title_en = ?, title_ru = ?, updated_at = ? WHERE id = ?",
		nullableString(en), nullableString(ru), time.Now().Unix(), id)
	if err != nil {
		return err
	}
	return requireRow(result, id)
}

// UpdateAgendaTotalTime stores the accumulated discussion time in seconds
func (s *SessionStorage) UpdateAgendaTotalTime(ctx context.Context, id int64, seconds int64) error {
	result, err := s.db.db.ExecContext(ctx,
		"UPDATE agenda_items SET total_time_seconds = ?, updated_at = ? WHERE id = ?",
		seconds, time.Now().Unix(), id)
	if err != nil {
		return err
	}
	return requireRow(result, id)
}

// SetAgendaIncomplete updates the agenda item incomplete flag
func (s *SessionStorage) SetAgendaIncomplete(ctx context.Context, id int64, incomplete bool) error {
	result, err := s.db.db.ExecContext(ctx,
		"UPDATE agenda_items SET is_incomplete = ?, updated_at = ? WHERE id = ?",
		boolToInt(incomplete), time.Now().Unix(), id)
	if err != nil {
		return err
	}
	return requireRow(result, id)
}

// CountAgendaItems returns the total agenda item count
func (s *SessionStorage) CountAgendaItems(ctx context.Context) (int, error) {
	var count int
	err := s.db.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM agenda_items").Scan(&count)
	return count, err
}

const selectSessionSQL = `
	SELECT id, membership, session_number, date, title, title_en, title_ru,
		   is_incomplete, created_at, updated_at
	FROM plenary_sessions`

func scanSession(row *sql.Row) (*models.PlenarySession, error) {
	var session models.PlenarySession
	var date, createdAt, updatedAt int64
	var incomplete int
	var titleEN, titleRU sql.NullString

	err := row.Scan(
		&session.ID,
		&session.Membership,
		&session.SessionNumber,
		&date,
		&session.Title,
		&titleEN,
		&titleRU,
		&incomplete,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	session.Date = time.Unix(date, 0)
	session.TitleEN = stringPtr(titleEN)
	session.TitleRU = stringPtr(titleRU)
	session.IsIncomplete = incomplete != 0
	session.CreatedAt = time.Unix(createdAt, 0)
	session.UpdatedAt = time.Unix(updatedAt, 0)

	return &session, nil
}

func scanSessionRow(rows *sql.Rows) (*models.PlenarySession, error) {
	var session models.PlenarySession
	var date, createdAt, updatedAt int64
	var incomplete int
	var titleEN, titleRU sql.NullString

	err := rows.Scan(
		&session.ID,
		&session.Membership,
		&session.SessionNumber,
		&date,
		&session.Title,
		&titleEN,
		&titleRU,
		&incomplete,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	session.Date = time.Unix(date, 0)
	session.TitleEN = stringPtr(titleEN)
	session.TitleRU = stringPtr(titleRU)
	session.IsIncomplete = incomplete != 0
	session.CreatedAt = time.Unix(createdAt, 0)
	session.UpdatedAt = time.Unix(updatedAt, 0)

	return &session, nil
}

const selectAgendaItemSQL = `
	SELECT id, uuid, plenary_session_id, date, title, title_en, title_ru,
		   total_time_seconds, is_incomplete, created_at, updated_at
	FROM agenda_items`

func scanAgendaItem(row *sql.Row) (*models.AgendaItem, error) {
	var item models.AgendaItem
	var date, createdAt, updatedAt int64
	var incomplete int
	var titleEN, titleRU sql.NullString
	var totalTime sql.NullInt64

	err := row.Scan(
		&item.ID,
		&item.UUID,
		&item.PlenarySessionID,
		&date,
		&item.Title,
		&titleEN,
		&titleRU,
		&totalTime,
		&incomplete,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	item.Date = time.Unix(date, 0)
	item.TitleEN = stringPtr(titleEN)
	item.TitleRU = stringPtr(titleRU)
	item.TotalTimeSeconds = int64Ptr(totalTime)
	item.IsIncomplete = incomplete != 0
	item.CreatedAt = time.Unix(createdAt, 0)
	item.UpdatedAt = time.Unix(updatedAt, 0)

	return &item, nil
}

func scanAgendaItemRow(rows *sql.Rows) (*models.AgendaItem, error) {
	var item models.AgendaItem
	var date, createdAt, updatedAt int64
	var incomplete int
	var titleEN, titleRU sql.NullString
	var totalTime sql.NullInt64

	err := rows.Scan(
		&item.ID,
		&item.UUID,
		&item.PlenarySessionID,
		&date,
		&item.Title,
		&titleEN,
		&titleRU,
		&totalTime,
		&incomplete,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.Date = time.Unix(date, 0)
	item.TitleEN = stringPtr(titleEN)
	item.TitleRU = stringPtr(titleRU)
	item.TotalTimeSeconds = int64Ptr(totalTime)
	item.IsIncomplete = incomplete != 0
	item.CreatedAt = time.Unix(createdAt, 0)
	item.UpdatedAt = time.Unix(updatedAt, 0)

	return &item, nil
}
