package main

import (
	"context"
	"fmt"

	"github.com/01moynul/orderdesk/internal/config"
	"github.com/01moynul/orderdesk/internal/database"
	"github.com/01moynul/orderdesk/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create tables (MySQL) or indexes (MongoDB)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig((*config.Config).ValidateStorage)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()
			ctx := context.Background()

			s, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			// Mongo indexes are created by openStore.
			if sqlStore, ok := s.(*store.SQLStore); ok {
				if err := database.Migrate(ctx, sqlStore.DB, database.MySQL); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
			}
			logger.Info("migration complete", zap.String("driver", cfg.DBDriver))
			return nil
		},
	}
}
