package badger

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/oratio/internal/common"
)

// DB wraps the badgerhold store backing the key/value layer: provider
// API keys and batch-job resume records.
type DB struct {
	store  *badgerhold.Store
	logger arbor.ILogger
}

// Open opens the store at the configured path, creating parent
// directories as needed. With reset_on_startup the existing store is
// wiped first.
func Open(logger arbor.ILogger, config *common.BadgerConfig) (*DB, error) {
	if config.ResetOnStartup {
		if err := os.RemoveAll(config.Path); err != nil {
			return nil, fmt.Errorf("resetting key/value store at %s: %w", config.Path, err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
		return nil, fmt.Errorf("creating key/value store directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = config.Path
	options.ValueDir = config.Path
	options.Logger = nil // badger's own logger is noisy; arbor reports instead

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("opening key/value store at %s: %w", config.Path, err)
	}

	logger.Debug().Str("path", config.Path).Msg("Key/value store opened")
	return &DB{store: store, logger: logger}, nil
}

// Store returns the underlying badgerhold store.
func (d *DB) Store() *badgerhold.Store { return d.store }

func (d *DB) Close() error {
	if d.store == nil {
		return nil
	}
	return d.store.Close()
}
