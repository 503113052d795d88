package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/wiremsg/internal/app"
	"github.com/vovakirdan/wiremsg/internal/config"
	"github.com/vovakirdan/wiremsg/internal/log"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Long:  `Load configuration, open the database and serve the API until SIGINT or SIGTERM.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "HTTP listen address (overrides config)")
	serveCmd.Flags().Duration("read-header-timeout", 0, "HTTP read header timeout (overrides config)")
	serveCmd.Flags().Duration("shutdown-timeout", 0, "graceful shutdown timeout (overrides config)")
	serveCmd.Flags().String("log-level", "", "log level: debug, info, warn, error (overrides config)")
}

// loadConfig resolves configuration and applies command-line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, *zerolog.Logger, error) {
	bootstrap := log.New("info")

	path, _ := cmd.Flags().GetString("config")
	cfg, resolved, err := config.Load(bootstrap, path)
	if err != nil {
		return nil, nil, err
	}

	var overrides config.Config
	if cmd.Flags().Lookup("addr") != nil {
		overrides.Addr, _ = cmd.Flags().GetString("addr")
		overrides.ReadHeaderTimeout, _ = cmd.Flags().GetDuration("read-header-timeout")
		overrides.ShutdownTimeout, _ = cmd.Flags().GetDuration("shutdown-timeout")
		overrides.LogLevel, _ = cmd.Flags().GetString("log-level")
	}
	cfg.UpdateFrom(overrides)

	logger := log.New(cfg.LogLevel)
	logger.Debug().Str("path", resolved).Msg("configuration loaded")
	return &cfg, logger, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}

	if err := application.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("server exited with error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
