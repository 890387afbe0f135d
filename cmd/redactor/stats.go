package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/raaihank/pii-redactor/internal/cache"
	"github.com/raaihank/pii-redactor/internal/store"
)

var (
	statsRun        string
	statsLimit      int
	statsClearCache bool
)

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().StringVar(&statsRun, "run", "", "show the stored rows of a run")
	statsCmd.Flags().IntVar(&statsLimit, "limit", 20, "maximum rows to show with --run")
	statsCmd.Flags().BoolVar(&statsClearCache, "clear-cache", false, "remove all cached results")
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show result store and cache statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadRuntime()
	if err != nil {
		return err
	}
	defer log.Sync()

	if !cfg.Store.Enabled && !cfg.Cache.Enabled {
		return fmt.Errorf("neither store nor cache is enabled in the configuration")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	out := cmd.OutOrStdout()

	if cfg.Store.Enabled {
		rs, err := store.NewResultStore(&store.Config{
			DatabaseURL:     cfg.Store.DatabaseURL,
			MaxOpenConns:    cfg.Store.MaxOpenConns,
			MaxIdleConns:    cfg.Store.MaxIdleConns,
			ConnMaxLifetime: cfg.Store.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Store.ConnMaxIdleTime,
		}, log.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize result store: %w", err)
		}
		defer rs.Close()

		stats, err := rs.GetStats(ctx)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "\n=== Result Store Statistics ===\n")
		fmt.Fprintf(out, "Runs:               %d\n", stats.Runs)
		fmt.Fprintf(out, "Total Rows:         %d\n", stats.TotalRows)
		fmt.Fprintf(out, "PII Rows:           %d (%.1f%%)\n", stats.PIIRows, percent(stats.PIIRows, stats.TotalRows))
		fmt.Fprintf(out, "Clean Rows:         %d (%.1f%%)\n", stats.CleanRows, percent(stats.CleanRows, stats.TotalRows))

		if statsRun != "" {
			rows, err := rs.GetRun(ctx, statsRun, statsLimit)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "\n=== Run %s ===\n", statsRun)
			for _, row := range rows {
				fmt.Fprintf(out, "%-20s pii=%-5t %s\n", row.RecordID, row.IsPII, row.RedactedDataJSON)
			}
		}
	}

	if cfg.Cache.Enabled {
		rc, err := cache.NewResultCache(&cache.Config{
			RedisURL:       cfg.Cache.RedisURL,
			MaxConnections: cfg.Cache.MaxConnections,
			MinIdleConns:   cfg.Cache.MinIdleConns,
			DefaultTTL:     cfg.Cache.DefaultTTL,
			KeyPrefix:      cfg.Cache.KeyPrefix,
		}, log.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize result cache: %w", err)
		}
		defer rc.Close()

		if statsClearCache {
			if err := rc.Clear(ctx); err != nil {
				return err
			}
			fmt.Fprintf(out, "Cache cleared\n")
		}

		stats, err := rc.GetStats(ctx)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "\n=== Cache Statistics ===\n")
		fmt.Fprintf(out, "Total Keys:         %d\n", stats.TotalKeys)
		fmt.Fprintf(out, "Memory Usage:       %.2f MB\n", float64(stats.MemoryUsage)/1024/1024)
	}

	return nil
}

func percent(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
