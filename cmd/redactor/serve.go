package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/raaihank/pii-redactor/internal/config"
	"github.com/raaihank/pii-redactor/internal/metrics"
	"github.com/raaihank/pii-redactor/internal/server"
)

var servePort int

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Listen port (overrides config)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP redaction service",
	Long:  "Serves POST /v1/redact and /v1/redact/batch, live detection events on the websocket\nendpoint and Prometheus metrics on /metrics. The privacy policy reloads when the config file changes.",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadRuntime()
	if err != nil {
		return err
	}
	defer log.Sync()

	if cmd.Flags().Changed("port") {
		cfg.Server.Port = servePort
	}

	log.Info("Starting pii-redactor",
		zap.String("version", server.Version),
		zap.Int("port", cfg.Server.Port))

	srv, err := server.New(cfg, log, metrics.New("redactor"))
	if err != nil {
		return err
	}

	err = config.Watch(configPath,
		func(c *config.Config) {
			if err := srv.Reload(c); err != nil {
				log.Error("Config reload rejected", zap.Error(err))
			}
		},
		func(err error) {
			log.Error("Config reload failed", zap.Error(err))
		})
	if err != nil {
		log.Debug("Config hot reload disabled", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		log.Error("Server error", zap.Error(err))
		return err
	}

	log.Info("Server shutdown complete")
	return nil
}
