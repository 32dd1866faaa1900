package repository

import (
	"fmt"

	"bookathing/internal/config"
	"bookathing/internal/database"

	"github.com/rs/zerolog"
)

// Open builds the store selected by configuration. When a fallback is
// enabled the primary is wrapped in a FailoverStore backed by memory.
func Open(cfg *config.Config, logger *zerolog.Logger) (BookingStore, error) {
	primary, err := openBackend(cfg, logger)
	if err != nil {
		return nil, err
	}

	if !cfg.Storage.Fallback || cfg.Storage.Backend == config.BackendMemory {
		return primary, nil
	}
	return NewFailoverStore(primary, NewMemoryStore(), logger,
		WithRecoveryInterval(cfg.RecoveryInterval())), nil
}

func openBackend(cfg *config.Config, logger *zerolog.Logger) (BookingStore, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return NewMemoryStore(), nil
	case config.BackendFile:
		return NewFileStore(cfg.Storage.FilePath)
	case config.BackendSQLite:
		db, err := database.NewDB(cfg.Storage.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		return NewSQLiteStore(db), nil
	case config.BackendPostgres:
		db, err := database.NewGormDB(cfg.Storage.Postgres)
		if err != nil {
			return nil, err
		}
		return NewGormStore(db)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
