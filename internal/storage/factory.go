package storage

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/oratio/internal/common"
	"github.com/ternarybob/oratio/internal/interfaces"
	"github.com/ternarybob/oratio/internal/storage/badger"
	"github.com/ternarybob/oratio/internal/storage/sqlite"
)

// manager pairs the SQLite entity stores with the Badger key/value
// store and implements interfaces.StorageManager
type manager struct {
	sql    *sqlite.Manager
	kvDB   *badger.DB
	kv     interfaces.KeyValueStorage
	logger arbor.ILogger
}

// NewStorageManager opens both storage engines from config: SQLite for
// parliament data and profiles, Badger for keys and runtime state
func NewStorageManager(logger arbor.ILogger, config *common.Config) (interfaces.StorageManager, error) {
	sqlManager, err := sqlite.NewManager(logger, &config.Storage.SQLite)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite storage: %w", err)
	}

	kvDB, err := badger.Open(logger, &config.Storage.Badger)
	if err != nil {
		sqlManager.Close()
		return nil, fmt.Errorf("failed to open badger storage: %w", err)
	}

	return &manager{
		sql:    sqlManager,
		kvDB:   kvDB,
		kv:     badger.NewKVStorage(kvDB, logger),
		logger: logger,
	}, nil
}

func (m *manager) Politicians() interfaces.PoliticianStorage {
	return m.sql.Politicians()
}

func (m *manager) Sessions() interfaces.SessionStorage {
	return m.sql.Sessions()
}

func (m *manager) Speeches() interfaces.SpeechStorage {
	return m.sql.Speeches()
}

func (m *manager) Profiles() interfaces.ProfileStorage {
	return m.sql.Profiles()
}

func (m *manager) Summaries() interfaces.SummaryStorage {
	return m.sql.Summaries()
}

func (m *manager) Stats() interfaces.StatsStorage {
	return m.sql.Stats()
}

func (m *manager) KeyValue() interfaces.KeyValueStorage {
	return m.kv
}

// Close closes both engines, reporting the first error
func (m *manager) Close() error {
	var firstErr error
	if err := m.sql.Close(); err != nil {
		firstErr = err
	}
	if err := m.kvDB.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

var _ interfaces.StorageManager = (*manager)(nil)
