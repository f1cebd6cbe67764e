package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migrate runs database migrations
func (s *SQLiteDB) migrate() error {
	ctx := context.Background()

	// Create migrations table
	if err := s.createMigrationsTable(ctx); err != nil {
		return err
	}

	// Run migrations
	migrations := []migration{
		{version: 1, name: "parliament_schema", up: migrateV1},
		{version: 2, name: "profile_parts", up: migrateV2},
		{version: 3, name: "agenda_summaries", up: migrateV3},
		{version: 4, name: "speech_summaries", up: migrateV4},
		{version: 5, name: "sync_stats", up: migrateV5},
	}

	for _, m := range migrations {
		if err := s.runMigration(ctx, m); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", m.version, m.name, err)
		}
	}

	return nil
}

type migration struct {
	version int
	name    string
	up      func(context.Context, *sql.Tx) error
}

func (s *SQLiteDB) createMigrationsTable(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at INTEGER NOT NULL
	)`
	_, err := s.db.ExecContext(ctx, query)
	return err
}

func (s *SQLiteDB) runMigration(ctx context.Context, m migration) error {
	// Check if migration already applied
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM schema_migrations WHERE version = ?", m.version).Scan(&count)
	if err != nil {
		return err
	}

	if count > 0 {
		return nil // Already applied
	}

	// Start transaction
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Run migration
	if err := m.up(ctx, tx); err != nil {
		return err
	}

	// Record migration
	_, err = tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, strftime('%s', 'now'))",
		m.version, m.name)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// migrateV1 creates the parliament entity tables. Entity IDs come from the
// upstream parliament data, so they are plain INTEGER primary keys rather
// than autoincrement.
func migrateV1(ctx context.Context, tx *sql.Tx) error {
	queries := []string{
		// Politicians
		`CREATE TABLE IF NOT EXISTS politicians (
			id INTEGER PRIMARY KEY,
			uuid TEXT NOT NULL,
			full_name TEXT NOT NULL,
			active INTEGER NOT NULL DEFAULT 1,
			total_time_seconds INTEGER NOT NULL DEFAULT 0,
			profiles_required INTEGER NOT NULL DEFAULT 0,
			profiles_generated INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,

		// Plenary Sessions
		`CREATE TABLE IF NOT EXISTS plenary_sessions (
			id INTEGER PRIMARY KEY,
			membership INTEGER NOT NULL,
			session_number INTEGER NOT NULL,
			date INTEGER NOT NULL,
			title TEXT NOT NULL,
			title_en TEXT,
			title_ru TEXT,
			is_incomplete INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,

		// Agenda Items
		`CREATE TABLE IF NOT EXISTS agenda_items (
			id INTEGER PRIMARY KEY,
			uuid TEXT NOT NULL,
			plenary_session_id INTEGER NOT NULL,
			date INTEGER NOT NULL,
			title TEXT NOT NULL,
			title_en TEXT,
			title_ru TEXT,
			total_time_seconds INTEGER,
			is_incomplete INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			FOREIGN KEY (plenary_session_id) REFERENCES plenary_sessions(id) ON DELETE CASCADE
		)`,

		// Speeches
		`CREATE TABLE IF NOT EXISTS speeches (
			id INTEGER PRIMARY KEY,
			uuid TEXT NOT NULL,
			agenda_item_id INTEGER NOT NULL,
			politician_id INTEGER,
			event_type TEXT NOT NULL,
			date INTEGER NOT NULL,
			speaker TEXT NOT NULL DEFAULT '',
			text TEXT NOT NULL DEFAULT '',
			link TEXT,
			is_incomplete INTEGER NOT NULL DEFAULT 0,
			parsed_at INTEGER,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			FOREIGN KEY (agenda_item_id) REFERENCES agenda_items(id) ON DELETE CASCADE
		)`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_agenda_items_session ON agenda_items(plenary_session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_speeches_agenda ON speeches(agenda_item_id)`,
		`CREATE INDEX IF NOT EXISTS idx_speeches_politician ON speeches(politician_id, event_type)`,
		`CREATE INDEX IF NOT EXISTS idx_speeches_date ON speeches(date)`,
	}

	for _, query := range queries {
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w\nQuery: %s", err, query)
		}
	}

	return nil
}

// migrateV2 creates the profile_parts table. Scope discriminator columns
// are plain integers/text without foreign keys: the database is shared
// with the ingestion side, and orphan detection is the integrity
// command's job rather than the write path's.
func migrateV2(ctx context.Context, tx *sql.Tx) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS profile_parts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			politician_id INTEGER NOT NULL,
			category TEXT NOT NULL,
			period_type TEXT NOT NULL,
			agenda_item_id INTEGER,
			plenary_session_id INTEGER,
			month TEXT,
			year INTEGER,
			analysis TEXT NOT NULL,
			analysis_en TEXT,
			analysis_ru TEXT,
			metrics TEXT,
			speeches_analyzed INTEGER NOT NULL DEFAULT 0,
			date_range_start INTEGER,
			date_range_end INTEGER,
			is_incomplete INTEGER NOT NULL DEFAULT 0,
			generated_at INTEGER,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_profile_parts_politician ON profile_parts(politician_id, category)`,
		`CREATE INDEX IF NOT EXISTS idx_profile_parts_period ON profile_parts(politician_id, period_type)`,
		`CREATE INDEX IF NOT EXISTS idx_profile_parts_month ON profile_parts(politician_id, month) WHERE month IS NOT NULL`,
	}

	for _, query := range queries {
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w\nQuery: %s", err, query)
		}
	}

	return nil
}

// migrateV3 creates the agenda summary tables
func migrateV3(ctx context.Context, tx *sql.Tx) error {
	queries := []string{
		// One summary row per agenda item
		`CREATE TABLE IF NOT EXISTS agenda_summaries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			agenda_item_id INTEGER NOT NULL UNIQUE,
			summary_text TEXT NOT NULL,
			summary_text_en TEXT,
			summary_text_ru TEXT,
			is_incomplete INTEGER NOT NULL DEFAULT 0,
			generated_at INTEGER,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			FOREIGN KEY (agenda_item_id) REFERENCES agenda_items(id) ON DELETE CASCADE
		)`,

		// Decisions extracted per agenda item; politician_id is null for
		// collective decisions
		`CREATE TABLE IF NOT EXISTS agenda_decisions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			agenda_item_id INTEGER NOT NULL,
			politician_id INTEGER,
			decision_text TEXT NOT NULL,
			decision_text_en TEXT,
			decision_text_ru TEXT,
			is_incomplete INTEGER NOT NULL DEFAULT 0,
			generated_at INTEGER,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			FOREIGN KEY (agenda_item_id) REFERENCES agenda_items(id) ON DELETE CASCADE
		)`,

		// Most active speaker per agenda item; politician_id is null when
		// nobody stood out, the row itself marks a completed analysis
		`CREATE TABLE IF NOT EXISTS agenda_active_politicians (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			agenda_item_id INTEGER NOT NULL UNIQUE,
			politician_id INTEGER,
			activity_description TEXT NOT NULL,
			activity_description_en TEXT,
			activity_description_ru TEXT,
			is_incomplete INTEGER NOT NULL DEFAULT 0,
			generated_at INTEGER,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			FOREIGN KEY (agenda_item_id) REFERENCES agenda_items(id) ON DELETE CASCADE
		)`,

		`CREATE INDEX IF NOT EXISTS idx_agenda_decisions_item ON agenda_decisions(agenda_item_id)`,
	}

	for _, query := range queries {
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w\nQuery: %s", err, query)
		}
	}

	return nil
}

// migrateV4 adds per-speech AI summary fields
func migrateV4(ctx context.Context, tx *sql.Tx) error {
	queries := []string{
		`ALTER TABLE speeches ADD COLUMN ai_summary TEXT`,
		`ALTER TABLE speeches ADD COLUMN ai_summary_en TEXT`,
		`ALTER TABLE speeches ADD COLUMN ai_summary_ru TEXT`,
		`ALTER TABLE speeches ADD COLUMN ai_summary_generated_at INTEGER`,
		`CREATE INDEX IF NOT EXISTS idx_speeches_missing_summary ON speeches(event_type) WHERE ai_summary IS NULL`,
	}

	for _, query := range queries {
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w\nQuery: %s", err, query)
		}
	}

	return nil
}

// migrateV5 creates the sync_stats table for named coverage metrics
func migrateV5(ctx context.Context, tx *sql.Tx) error {
	query := `
	CREATE TABLE IF NOT EXISTS sync_stats (
		key TEXT PRIMARY KEY,
		label TEXT NOT NULL,
		value INTEGER NOT NULL,
		percentage REAL,
		description TEXT,
		computed_at INTEGER NOT NULL
	)`

	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create sync_stats table: %w", err)
	}

	return nil
}
