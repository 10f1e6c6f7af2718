package main

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/01moynul/orderdesk/internal/config"
	"github.com/01moynul/orderdesk/internal/models"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func seedAdminCmd() *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create or update an administrator account",
		Long: `Create or update an administrator account.

The password may come from --password or ADMIN_PASSWORD.

Examples:
  orderdesk seed-admin --email admin@example.com --name "Admin User"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("ADMIN_PASSWORD")
			}
			email = strings.ToLower(strings.TrimSpace(email))
			if email == "" || len(password) < 6 {
				return errors.New("--email and a password of at least 6 characters are required")
			}

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

			var pw models.Password
			if err := pw.Set(password); err != nil {
				return err
			}
			user := &models.User{Name: name, Email: email, PasswordHash: pw.Hash, IsAdmin: true}
			if err := s.SaveUser(ctx, user); err != nil {
				return err
			}

			logger.Info("admin saved", zap.String("user_id", user.ID.Hex()), zap.String("email", user.Email))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "Admin User", "display name")
	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().StringVar(&password, "password", "", "login password (defaults to $ADMIN_PASSWORD)")
	return cmd
}
