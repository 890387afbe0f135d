package store

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/raaihank/pii-redactor/internal/etl"
)

const schema = `
CREATE TABLE IF NOT EXISTS redaction_results (
	run_id             TEXT        NOT NULL,
	row_num            BIGINT      NOT NULL,
	record_id          TEXT        NOT NULL,
	redacted_data_json TEXT        NOT NULL,
	is_pii             BOOLEAN     NOT NULL,
	payload_hash       TEXT        NOT NULL,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (run_id, row_num)
);
CREATE INDEX IF NOT EXISTS idx_redaction_results_payload_hash ON redaction_results (payload_hash);
`

// Postgres caps bind parameters at 65535 per statement
const (
	maxRowsPerStatement = 1000
	columnsPerRow       = 6
)

// ResultStore persists redacted rows in PostgreSQL
type ResultStore struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewResultStore connects, configures the pool and ensures the schema
func NewResultStore(config *Config, logger *zap.Logger) (*ResultStore, error) {
	db, err := sqlx.Connect("postgres", config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	store := &ResultStore{
		db:     db,
		logger: logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := store.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	logger.Info("Result store initialized successfully",
		zap.String("database_url", maskDatabaseURL(config.DatabaseURL)),
		zap.Int("max_open_conns", config.MaxOpenConns),
		zap.Int("max_idle_conns", config.MaxIdleConns))

	return store, nil
}

// EnsureSchema checks the connection and creates the results table
func (s *ResultStore) EnsureSchema(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// BatchInsert stores rows for a run keyed by input row number, so repeated
// record ids are all kept. Rows already stored for the same (run_id, row_num)
// are skipped, which makes retrying a batch safe.
func (s *ResultStore) BatchInsert(ctx context.Context, runID string, rows []etl.OutputRow) (*BatchInsertResult, error) {
	result := &BatchInsertResult{}
	if len(rows) == 0 {
		return result, nil
	}

	start := time.Now()

	for offset := 0; offset < len(rows); offset += maxRowsPerStatement {
		chunk := rows[offset:min(offset+maxRowsPerStatement, len(rows))]
		query, args := buildInsert(runID, chunk)

		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			s.logger.Error("Batch insert failed", zap.String("run_id", runID), zap.Error(err))
			return result, fmt.Errorf("batch insert failed: %w", err)
		}

		inserted, err := res.RowsAffected()
		if err != nil {
			s.logger.Warn("Could not get rows affected", zap.Error(err))
			inserted = int64(len(chunk))
		}

		result.Inserted += inserted
		result.Duplicates += int64(len(chunk)) - inserted
	}

	result.Duration = time.Since(start)

	s.logger.Debug("Batch insert completed",
		zap.String("run_id", runID),
		zap.Int64("inserted", result.Inserted),
		zap.Int64("duplicates_skipped", result.Duplicates),
		zap.Duration("duration", result.Duration))

	return result, nil
}

// GetRun returns the stored rows of a run in input order
func (s *ResultStore) GetRun(ctx context.Context, runID string, limit int) ([]StoredResult, error) {
	var rows []StoredResult
	query := `
		SELECT run_id, row_num, record_id, redacted_data_json, is_pii, payload_hash, created_at
		FROM redaction_results
		WHERE run_id = $1
		ORDER BY row_num
		LIMIT $2`

	if err := s.db.SelectContext(ctx, &rows, query, runID, limit); err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}
	return rows, nil
}

// GetStats returns row and run counts
func (s *ResultStore) GetStats(ctx context.Context) (*StoreStats, error) {
	stats := &StoreStats{}

	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(CASE WHEN is_pii THEN 1 END) AS pii,
			COUNT(CASE WHEN NOT is_pii THEN 1 END) AS clean,
			COUNT(DISTINCT run_id) AS runs
		FROM redaction_results`

	err := s.db.QueryRowContext(ctx, query).Scan(
		&stats.TotalRows,
		&stats.PIIRows,
		&stats.CleanRows,
		&stats.Runs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get store stats: %w", err)
	}

	return stats, nil
}

// Close closes the database connection
func (s *ResultStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RunSink returns an etl.Sink writing into this store under runID
func (s *ResultStore) RunSink(runID string) *RunSink {
	return &RunSink{inserter: s, runID: runID}
}

type batchInserter interface {
	BatchInsert(ctx context.Context, runID string, rows []etl.OutputRow) (*BatchInsertResult, error)
}

// RunSink adapts the store to the pipeline's Sink interface
type RunSink struct {
	inserter batchInserter
	runID    string
	inserted int64
}

func (rs *RunSink) Write(ctx context.Context, rows []etl.OutputRow) error {
	res, err := rs.inserter.BatchInsert(ctx, rs.runID, rows)
	if err != nil {
		return err
	}
	rs.inserted += res.Inserted
	return nil
}

// Inserted returns the number of rows stored so far
func (rs *RunSink) Inserted() int64 { return rs.inserted }

// Close is a no-op; the store owns the connection
func (rs *RunSink) Close() error { return nil }

func buildInsert(runID string, rows []etl.OutputRow) (string, []interface{}) {
	valueStrings := make([]string, 0, len(rows))
	valueArgs := make([]interface{}, 0, len(rows)*columnsPerRow)

	for i, row := range rows {
		n := i * columnsPerRow
		valueStrings = append(valueStrings, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4, n+5, n+6))
		valueArgs = append(valueArgs,
			runID,
			row.RowNum,
			row.RecordID,
			row.RedactedDataJSON,
			row.IsPII,
			row.PayloadHash,
		)
	}

	query := fmt.Sprintf(`
		INSERT INTO redaction_results (run_id, row_num, record_id, redacted_data_json, is_pii, payload_hash)
		VALUES %s
		ON CONFLICT (run_id, row_num) DO NOTHING`,
		strings.Join(valueStrings, ","))

	return query, valueArgs
}

// maskDatabaseURL masks the password in a database URL for logging
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	return u.Redacted()
}
