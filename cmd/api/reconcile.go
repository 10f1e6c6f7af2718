package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/01moynul/orderdesk/internal/config"
	"github.com/01moynul/orderdesk/internal/handlers"
	"github.com/01moynul/orderdesk/internal/paypal"
	"github.com/spf13/cobra"
)

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Mark paid every capture_pending order the provider reports as completed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig((*config.Config).Validate)
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

			r := handlers.NewReconciler(s, paypal.NewClient(cfg.PayPal, nil, logger), logger)
			report, err := r.Run(ctx)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
}
