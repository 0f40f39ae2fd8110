package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mikey/cancellation-tracker/internal/adapters/store"
	"github.com/mikey/cancellation-tracker/internal/config"
	"github.com/mikey/cancellation-tracker/internal/core"
	"go.uber.org/zap"
)

// StoreFactory creates result stores based on configuration
type StoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStoreFactory creates a new store factory
func NewStoreFactory(cfg *config.Config, logger *zap.Logger) *StoreFactory {
	return &StoreFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateResultStore creates a result store based on the configuration
func (f *StoreFactory) CreateResultStore() (core.ResultStore, error) {
	storeCfg, err := f.cfg.GetStore()
	if err != nil {
		return nil, err
	}

	switch storeCfg.Type {
	case "memory":
		return store.NewMemoryStore(f.logger, storeCfg.Retention), nil
	case "sqlite":
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(storeCfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return store.NewSQLiteStore(storeCfg.SQLitePath, f.logger, storeCfg.Retention)
	case "mysql":
		return store.NewMySQLStore(storeCfg.MySQLDSN, f.logger, storeCfg.Retention)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", storeCfg.Type)
	}
}
