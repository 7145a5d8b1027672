package app

import (
	"context"
	"fmt"

	"workspace/internal/config"
	"workspace/internal/domain"
	"workspace/internal/secret"
	"workspace/internal/service"
	"workspace/internal/storage"
)

// persistence is the board store and the settings store, which always
// share one connection.
type persistence struct {
	boards   domain.BoardStore
	settings service.SettingsStore
}

func (p persistence) Close() error {
	if p.boards == nil {
		return nil
	}
	return p.boards.Close()
}

// openStores connects to the backend selected by cfg.Storage. ${secret:key}
// references in the DSN or Mongo URI are resolved through secrets.
func openStores(ctx context.Context, cfg config.Config, secrets secret.SecretStore) (persistence, error) {
	if cfg.Storage.Driver == "mongo" {
		uri, err := secret.Expand(ctx, cfg.Storage.MongoURI, secrets)
		if err != nil {
			return persistence{}, fmt.Errorf("storage.mongo_uri: %w", err)
		}
		store, err := storage.OpenMongo(ctx, uri)
		if err != nil {
			return persistence{}, err
		}
		return persistence{boards: store, settings: store}, nil
	}

	dialect, err := storage.ParseDialect(cfg.Storage.Driver)
	if err != nil {
		return persistence{}, err
	}
	dsn := cfg.Storage.DSN
	if dsn == "" {
		if dialect != storage.DialectSQLite {
			return persistence{}, fmt.Errorf("storage.dsn is required for %s", dialect)
		}
		dsn = cfg.DatabasePath()
	} else if dsn, err = secret.Expand(ctx, dsn, secrets); err != nil {
		return persistence{}, fmt.Errorf("storage.dsn: %w", err)
	}
	db, err := storage.Open(dialect, dsn)
	if err != nil {
		return persistence{}, fmt.Errorf("open database: %w", err)
	}
	return persistence{boards: storage.NewSQLBoardStore(db), settings: db}, nil
}
