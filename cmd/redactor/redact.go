package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/raaihank/pii-redactor/internal/cache"
	"github.com/raaihank/pii-redactor/internal/config"
	"github.com/raaihank/pii-redactor/internal/etl"
	"github.com/raaihank/pii-redactor/internal/logger"
	"github.com/raaihank/pii-redactor/internal/privacy"
	"github.com/raaihank/pii-redactor/internal/store"
)

var redactOpts struct {
	input     string
	output    string
	workers   int
	batchSize int
	sink      string
	runID     string
	dryRun    bool
}

func init() {
	rootCmd.AddCommand(redactCmd)

	f := redactCmd.Flags()
	f.StringVarP(&redactOpts.input, "input", "i", "", "Input dataset (CSV, JSONL or Parquet)")
	f.StringVarP(&redactOpts.output, "output", "o", "", "Output file (default redacted_<input>.<sink>)")
	f.IntVarP(&redactOpts.workers, "workers", "w", 0, "Number of worker goroutines (overrides config)")
	f.IntVarP(&redactOpts.batchSize, "batch-size", "b", 0, "Rows per batch (overrides config)")
	f.StringVar(&redactOpts.sink, "sink", "", "Output sink: csv, jsonl, parquet or postgres (overrides config)")
	f.StringVar(&redactOpts.runID, "run-id", "", "Run identifier stored with postgres output (default random)")
	f.BoolVar(&redactOpts.dryRun, "dry-run", false, "Process without writing output")
	redactCmd.MarkFlagRequired("input")
}

var redactCmd = &cobra.Command{
	Use:   "redact",
	Short: "Redact a dataset file",
	Example: `  redactor redact --input records.csv
  redactor redact -i records.parquet --sink parquet --workers 8
  redactor redact -i records.jsonl --sink postgres --run-id nightly-2024-06-01`,
	Args: cobra.NoArgs,
	RunE: runRedact,
}

func runRedact(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadRuntime()
	if err != nil {
		return err
	}
	defer log.Sync()

	applyRedactFlags(cmd, cfg)

	if _, err := os.Stat(redactOpts.input); err != nil {
		return fmt.Errorf("input file: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	detector, err := privacy.New(cfg.Privacy, log.WithComponent("privacy"))
	if err != nil {
		return fmt.Errorf("failed to create privacy detector: %w", err)
	}

	runID := redactOpts.runID
	if runID == "" {
		runID = uuid.NewString()
	}

	var resultCache etl.ResultCache
	if cfg.Cache.Enabled {
		rc, err := cache.NewResultCache(&cache.Config{
			RedisURL:       cfg.Cache.RedisURL,
			MaxConnections: cfg.Cache.MaxConnections,
			MinIdleConns:   cfg.Cache.MinIdleConns,
			DefaultTTL:     cfg.Cache.DefaultTTL,
			KeyPrefix:      cfg.Cache.KeyPrefix,
		}, log.WithComponent("cache").Logger)
		if err != nil {
			log.Warn("Result cache unavailable, continuing without it", zap.Error(err))
		} else {
			defer rc.Close()
			resultCache = rc
		}
	}

	sink, outputPath, cleanup, err := openSink(cfg, runID, log)
	if err != nil {
		return err
	}
	defer cleanup()

	pipeline := etl.NewPipeline(detector, resultCache, nil, &etl.Config{
		RunID:          runID,
		BatchSize:      cfg.Pipeline.BatchSize,
		WorkerCount:    cfg.Pipeline.WorkerCount,
		ProgressReport: cfg.Pipeline.ProgressReport,
		IDColumn:       cfg.Pipeline.IDColumn,
		DataColumn:     cfg.Pipeline.DataColumn,
		Timeout:        cfg.Pipeline.Timeout,
		DryRun:         redactOpts.dryRun,
	}, log.WithComponent("pipeline").Logger)

	result, err := pipeline.ProcessFile(ctx, redactOpts.input, sink)
	if sink != nil {
		if closeErr := sink.Close(); closeErr != nil && err == nil {
			return fmt.Errorf("failed to finalize output: %w", closeErr)
		}
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("Redaction interrupted", zap.String("run_id", runID))
		}
		return fmt.Errorf("pipeline processing failed: %w", err)
	}

	log.Info("Dataset processing completed",
		zap.String("run_id", runID),
		zap.Int64("total_records", result.TotalRecords),
		zap.Int64("pii_records", result.PIIRecords),
		zap.Int64("malformed_payloads", result.MalformedPayloads),
		zap.Int64("skipped_rows", result.SkippedRows),
		zap.Any("categories", result.Categories),
		zap.Float64("records_per_second", float64(result.TotalRecords)/result.Duration.Seconds()))

	if len(result.Errors) > 0 {
		log.Warn("Processing completed with errors", zap.Strings("errors", result.Errors))
	}

	if !redactOpts.dryRun {
		msg := fmt.Sprintf("Redacted %s saved to %s", strings.ToUpper(cfg.Pipeline.Sink), outputPath)
		log.Info(msg)
		fmt.Fprintln(cmd.OutOrStdout(), msg)
	}

	return nil
}

// applyRedactFlags lets explicit flags win over file and environment config
func applyRedactFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("workers") {
		cfg.Pipeline.WorkerCount = redactOpts.workers
	}
	if flags.Changed("batch-size") {
		cfg.Pipeline.BatchSize = redactOpts.batchSize
	}
	if flags.Changed("sink") {
		cfg.Pipeline.Sink = strings.ToLower(redactOpts.sink)
	}
}

// openSink builds the configured output. The returned path names where
// the output went, for the completion message.
func openSink(cfg *config.Config, runID string, log *logger.Logger) (etl.Sink, string, func(), error) {
	noop := func() {}
	if redactOpts.dryRun {
		return nil, "", noop, nil
	}

	if cfg.Pipeline.Sink == "postgres" {
		if !cfg.Store.Enabled {
			return nil, "", noop, errors.New("postgres sink requires store.enabled")
		}
		rs, err := store.NewResultStore(&store.Config{
			DatabaseURL:     cfg.Store.DatabaseURL,
			MaxOpenConns:    cfg.Store.MaxOpenConns,
			MaxIdleConns:    cfg.Store.MaxIdleConns,
			ConnMaxLifetime: cfg.Store.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Store.ConnMaxIdleTime,
		}, log.WithComponent("store").Logger)
		if err != nil {
			return nil, "", noop, fmt.Errorf("failed to initialize result store: %w", err)
		}
		return rs.RunSink(runID), "redaction_results (run " + runID + ")", func() { rs.Close() }, nil
	}

	format := etl.FileFormat(cfg.Pipeline.Sink)
	outputPath := redactOpts.output
	if outputPath == "" {
		outputPath = etl.DefaultOutputPath(redactOpts.input, format)
	}

	sink, err := etl.NewFileSink(format, outputPath)
	if err != nil {
		return nil, "", noop, err
	}
	return sink, outputPath, noop, nil
}
