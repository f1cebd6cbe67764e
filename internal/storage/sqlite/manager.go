package sqlite

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/oratio/internal/common"
	"github.com/ternarybob/oratio/internal/interfaces"
)

// Manager bundles the SQLite-backed entity stores. The key/value store
// runs on Badger and is attached by the storage factory.
type Manager struct {
	db          *SQLiteDB
	politicians interfaces.PoliticianStorage
	sessions    interfaces.SessionStorage
	speeches    interfaces.SpeechStorage
	profiles    interfaces.ProfileStorage
	summaries   interfaces.SummaryStorage
	stats       interfaces.StatsStorage
	logger      arbor.ILogger
}

// NewManager creates a new SQLite storage manager
func NewManager(logger arbor.ILogger, config *common.SQLiteConfig) (*Manager, error) {
	db, err := NewSQLiteDB(logger, config)
	if err != nil {
		return nil, err
	}

	return &Manager{
		db:          db,
		politicians: NewPoliticianStorage(db, logger),
		sessions:    NewSessionStorage(db, logger),
		speeches:    NewSpeechStorage(db, logger),
		profiles:    NewProfileStorage(db, logger),
		summaries:   NewSummaryStorage(db, logger),
		stats:       NewStatsStorage(db, logger),
		logger:      logger,
	}, nil
}

// Politicians returns the politician storage interface
func (m *Manager) Politicians() interfaces.PoliticianStorage {
	return m.politicians
}

// Sessions returns the plenary session storage interface
func (m *Manager) Sessions() interfaces.SessionStorage {
	return m.sessions
}

// Speeches returns the speech storage interface
func (m *Manager) Speeches() interfaces.SpeechStorage {
	return m.speeches
}

// Profiles returns the profile storage interface
func (m *Manager) Profiles() interfaces.ProfileStorage {
	return m.profiles
}

// Summaries returns the agenda summary storage interface
func (m *Manager) Summaries() interfaces.SummaryStorage {
	return m.summaries
}

// Stats returns the stats storage interface
func (m *Manager) Stats() interfaces.StatsStorage {
	return m.stats
}

// DB returns the underlying database connection
func (m *Manager) DB() interface{} {
	if m.db != nil {
		return m.db.DB()
	}
	return nil
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
