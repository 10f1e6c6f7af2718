package main

import (
	"context"
	"fmt"

	"github.com/01moynul/orderdesk/internal/config"
	"github.com/01moynul/orderdesk/internal/database"
	"github.com/01moynul/orderdesk/internal/logging"
	"github.com/01moynul/orderdesk/internal/store"
	"go.uber.org/zap"
)

// loadConfig reads the configuration and runs validate on it.
func loadConfig(validate func(*config.Config) error) (*config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return logger, nil
}

// openStore connects the backend named by DB_DRIVER.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.DBDriver {
	case config.DriverMongo:
		client, err := database.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		s := store.NewMongoStore(client, cfg.MongoDatabase)
		if err := s.EnsureIndexes(ctx); err != nil {
			_ = s.Close(ctx)
			return nil, err
		}
		return s, nil
	default:
		db, err := database.OpenDB(ctx, cfg.DBDSN)
		if err != nil {
			return nil, err
		}
		return store.NewSQLStore(db), nil
	}
}
