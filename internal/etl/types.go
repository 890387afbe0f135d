package etl

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/raaihank/pii-redactor/internal/cache"
	"github.com/raaihank/pii-redactor/internal/privacy"
)

var (
	// ErrUnsupportedFormat is returned for file extensions with no reader or writer
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrMissingColumn is returned when the input lacks the record id column
	ErrMissingColumn = errors.New("missing required column")
)

// InputRow is one row of the input dataset
type InputRow struct {
	RecordID string
	DataJSON string
	Line     int64 // 1-based row number in the input, header excluded
}

// OutputRow is one row of the redacted dataset
type OutputRow struct {
	RecordID         string `json:"record_id" db:"record_id"`
	RedactedDataJSON string `json:"redacted_data_json" db:"redacted_data_json"`
	IsPII            bool   `json:"is_pii" db:"is_pii"`
	PayloadHash      string `json:"-" db:"payload_hash"`
	RowNum           int64  `json:"-" db:"row_num"` // InputRow.Line
}

// Source reads input rows in order
type Source interface {
	// Read returns up to n rows. An empty slice with a nil error marks the end of input.
	Read(ctx context.Context, n int) ([]InputRow, error)
	// Skipped returns the number of unreadable rows dropped so far
	Skipped() int64
	Close() error
}

// Sink receives output rows in input order
type Sink interface {
	Write(ctx context.Context, rows []OutputRow) error
	Close() error
}

// Processor redacts a single record. *privacy.Detector implements it.
type Processor interface {
	Process(rec privacy.Record) privacy.ProcessResult
	Policy() privacy.Policy
}

// ResultCache lets the pipeline skip payloads it has already redacted.
// *cache.ResultCache implements it.
type ResultCache interface {
	GetBatch(ctx context.Context, hashes []string) (map[string]*cache.CachedResult, error)
	StoreBatch(ctx context.Context, results map[string]*cache.CachedResult) error
}

// ProcessingResult represents the result of processing a dataset
type ProcessingResult struct {
	RunID             string           `json:"run_id"`
	TotalRecords      int64            `json:"total_records"`
	PIIRecords        int64            `json:"pii_records"`
	CleanRecords      int64            `json:"clean_records"`
	MalformedPayloads int64            `json:"malformed_payloads"`
	SkippedRows       int64            `json:"skipped_rows"`
	CacheHits         int64            `json:"cache_hits"`
	Categories        map[string]int64 `json:"categories"`
	Duration          time.Duration    `json:"duration"`
	ProcessTime       time.Duration    `json:"process_time"`
	WriteTime         time.Duration    `json:"write_time"`
	CacheTime         time.Duration    `json:"cache_time"`
	Errors            []string         `json:"errors,omitempty"`
}

// Config contains ETL pipeline configuration
type Config struct {
	RunID          string        `yaml:"run_id" mapstructure:"run_id"`
	BatchSize      int           `yaml:"batch_size" mapstructure:"batch_size"`           // 1000
	WorkerCount    int           `yaml:"worker_count" mapstructure:"worker_count"`       // 4
	ProgressReport int           `yaml:"progress_report" mapstructure:"progress_report"` // 10000
	IDColumn       string        `yaml:"id_column" mapstructure:"id_column"`             // record_id
	DataColumn     string        `yaml:"data_column" mapstructure:"data_column"`         // data_json
	Timeout        time.Duration `yaml:"timeout" mapstructure:"timeout"`                 // 0 = none
	DryRun         bool          `yaml:"dry_run" mapstructure:"dry_run"`
}

// ProcessingStats tracks real-time processing statistics
type ProcessingStats struct {
	StartTime      time.Time `json:"start_time"`
	RecordsRead    int64     `json:"records_read"`
	RecordsWritten int64     `json:"records_written"`
	CurrentBatch   int64     `json:"current_batch"`
	ProcessingRate float64   `json:"processing_rate"` // records per second
}

// FileFormat represents supported file formats
type FileFormat string

const (
	FormatCSV     FileFormat = "csv"
	FormatParquet FileFormat = "parquet"
	FormatJSONL   FileFormat = "jsonl"
)

// DetectFileFormat detects file format from extension
func DetectFileFormat(filename string) FileFormat {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".parquet":
		return FormatParquet
	case ".jsonl", ".ndjson", ".json":
		return FormatJSONL
	default:
		return FormatCSV // Default to CSV
	}
}

// DefaultOutputPath names the redacted file after the input, next to it
func DefaultOutputPath(inputPath string, format FileFormat) string {
	dir, base := filepath.Split(inputPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "redacted_"+base+"."+string(format))
}
