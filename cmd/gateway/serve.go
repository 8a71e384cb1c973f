package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/DanielPopoola/paytoday-gateway/internal/app"
	"github.com/DanielPopoola/paytoday-gateway/internal/config"
	"github.com/DanielPopoola/paytoday-gateway/internal/infrastructure/telemetry"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the poll scheduler and the outbox relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			logger.Info("starting gateway service",
				"port", cfg.Server.Port,
				"store", cfg.Store.Driver,
				"environment", cfg.PayToday.Environment,
				"log_level", cfg.Logger.Level,
			)

			shutdownTracing, err := telemetry.InitTracing(ctx, cfg.Telemetry, logger)
			if err != nil {
				return fmt.Errorf("init tracing: %w", err)
			}
			defer func() {
				if err := shutdownTracing(context.Background()); err != nil {
					logger.Error("failed to flush traces", "error", err)
				}
			}()

			gw, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer gw.Close()

			return gw.Serve(ctx)
		},
	}
}

func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)
	return cfg, logger, nil
}
