package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raaihank/pii-redactor/internal/config"
	"github.com/raaihank/pii-redactor/internal/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "redactor",
	Short:         "Detect and mask PII in tabular records with embedded JSON",
	Long:          "Masks standalone identifiers (phone, aadhar, passport, UPI) and co-occurring quasi-identifiers\n(name, email, address, IP, device id) in the JSON payload column of CSV, JSONL or Parquet datasets.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
}

// loadRuntime loads configuration and builds the logger every command uses
func loadRuntime() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	loggerConfig := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}
	if cfg.Logging.File.Enabled {
		loggerConfig.File = &logger.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		}
	}

	log, err := logger.New(loggerConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return cfg, log, nil
}
