package factory

import (
	"fmt"

	"github.com/lsmadison/clinic-forms/internal/adapters/store"
	"github.com/lsmadison/clinic-forms/internal/config"
	"github.com/lsmadison/clinic-forms/internal/core"
	"go.uber.org/zap"
)

// StoreFactory creates submission stores
type StoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStoreFactory creates a new submission store factory
func NewStoreFactory(cfg *config.Config, logger *zap.Logger) *StoreFactory {
	return &StoreFactory{cfg: cfg, logger: logger}
}

// CreateSubmissionStore creates a new submission store based on the configuration
func (f *StoreFactory) CreateSubmissionStore() (core.SubmissionStore, error) {
	switch storeType := f.cfg.GetString("store.type"); storeType {
	case "sqlite":
		return store.NewSQLiteStore(f.cfg.GetString("store.sqlite_path"), f.logger)
	case "mysql":
		return store.NewMySQLStore(f.cfg.GetString("store.mysql_dsn"), f.logger)
	case "memory":
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported submission store type: %s", storeType)
	}
}
