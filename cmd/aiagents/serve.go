package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"aiagents/config"
	"aiagents/internal/app"
	"aiagents/internal/logging"
	"aiagents/internal/version"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			logger, closer, err := logging.New(logging.Config{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
				File:   cfg.Logging.File,
			})
			if err != nil {
				return err
			}
			defer closer.Close()
			slog.SetDefault(logger)

			logger.Info("starting aiagents",
				"version", version.Version,
				"commit", version.Commit,
				"build_date", version.Date,
			)

			application, err := app.New(app.Config{AppConfig: cfg, Logger: logger})
			if err != nil {
				return err
			}

			if addr == "" {
				addr = cfg.Server.Addr()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runUntilStopped(ctx, application, addr, logger)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: API_HOST:API_PORT)")
	return cmd
}

// lifecycle is the part of app.App that runUntilStopped drives.
type lifecycle interface {
	Start(addr string) error
	Shutdown(ctx context.Context) error
}

// runUntilStopped serves on addr until ctx is cancelled, then shuts down and
// returns only after Shutdown has drained in-flight requests.
func runUntilStopped(ctx context.Context, srv lifecycle, addr string, logger *slog.Logger) error {
	startErr := make(chan error, 1)
	go func() {
		startErr <- srv.Start(addr)
	}()

	select {
	case err := <-startErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		return err
	}
	return <-startErr
}
