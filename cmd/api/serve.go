package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/01moynul/orderdesk/internal/auth"
	"github.com/01moynul/orderdesk/internal/config"
	"github.com/01moynul/orderdesk/internal/handlers"
	"github.com/01moynul/orderdesk/internal/paypal"
	"github.com/01moynul/orderdesk/internal/routes"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API (default command)",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig((*config.Config).Validate)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. --- Database Connection ---
	s, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open store", zap.String("driver", cfg.DBDriver), zap.Error(err))
		return err
	}
	defer s.Close(context.Background())

	// 2. --- Application Setup ---
	gateway := paypal.NewClient(cfg.PayPal, nil, logger)
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL)
	app := handlers.New(s, gateway, tokens, logger)

	// 3. --- Background Worker ---
	// Settles orders whose capture went through but were never marked paid.
	if cfg.ReconcileInterval > 0 {
		go runReconcileLoop(ctx, app.Reconciler, cfg.ReconcileInterval, logger)
	}

	// 4. --- Router Setup ---
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := routes.SetupRouter(app, routes.Options{
		CORSOrigin:       cfg.CORSOrigin,
		PaymentRateRPS:   cfg.PaymentRateRPS,
		PaymentRateBurst: cfg.PaymentRateBurst,
		Logger:           logger,
	})

	// 5. --- Start Server ---
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting API server", zap.String("addr", cfg.HTTPAddr), zap.String("env", cfg.Env))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runReconcileLoop(ctx context.Context, r *handlers.Reconciler, every time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	logger.Info("reconcile worker started", zap.Duration("interval", every))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := r.Run(ctx)
			if err != nil {
				logger.Warn("reconcile pass failed", zap.Error(err))
				continue
			}
			if report.Checked > 0 {
				logger.Info("reconcile pass",
					zap.Int("checked", report.Checked),
					zap.Int("marked_paid", len(report.MarkedPaid)),
					zap.Int("failed", len(report.Failed)),
				)
			}
		}
	}
}
