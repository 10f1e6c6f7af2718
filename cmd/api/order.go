package main

import (
	"context"
	"errors"
	"os"

	"github.com/01moynul/orderdesk/internal/client"
	"github.com/01moynul/orderdesk/internal/orderview"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// orderCmd talks to a running API as a logged-in user, the way the order
// detail page does.
func orderCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("orderdesk")
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "order",
		Short: "Inspect or act on an order through the API",
	}
	cmd.PersistentFlags().String("api-url", "http://localhost:5000/api", "API base URL ($ORDERDESK_API_URL)")
	cmd.PersistentFlags().String("email", "", "login email ($ORDERDESK_EMAIL)")
	cmd.PersistentFlags().String("password", "", "login password ($ORDERDESK_PASSWORD)")
	for _, key := range []string{"api-url", "email", "password"} {
		_ = v.BindPFlag(key, cmd.PersistentFlags().Lookup(key))
	}
	_ = v.BindEnv("api-url", "ORDERDESK_API_URL")

	open := func(ctx context.Context, id string) (*orderview.View, error) {
		email, password := v.GetString("email"), v.GetString("password")
		if email == "" || password == "" {
			return nil, errors.New("--email and --password (or ORDERDESK_EMAIL / ORDERDESK_PASSWORD) are required")
		}

		logger, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}

		api := client.New(v.GetString("api-url"), "", nil)
		session, err := api.Login(ctx, email, password)
		if err != nil {
			return nil, err
		}

		view := orderview.New(api, orderview.LogNotifier{Logger: logger}, id, session.User.IsAdmin)
		if err := view.Load(ctx); err != nil {
			return nil, err
		}
		return view, nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Print the order detail page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return view.Render(os.Stdout)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "deliver <id>",
		Short: "Mark a paid order as delivered (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := view.Deliver(cmd.Context()); err != nil {
				return err
			}
			return view.Render(os.Stdout)
		},
	})

	return cmd
}
