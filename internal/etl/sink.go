package etl

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"

	"github.com/segmentio/parquet-go"
)

// NewFileSink creates the output file and a writer for the given format
func NewFileSink(format FileFormat, path string) (Sink, error) {
	switch format {
	case FormatCSV, FormatJSONL, FormatParquet:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	switch format {
	case FormatCSV:
		return newCSVSink(file)
	case FormatJSONL:
		return newJSONLSink(file), nil
	default:
		return newParquetSink(file), nil
	}
}

// csvSink writes record_id,redacted_data_json,is_pii with True/False flags
type csvSink struct {
	file   *os.File
	writer *csv.Writer
}

func newCSVSink(file *os.File) (*csvSink, error) {
	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"record_id", "redacted_data_json", "is_pii"}); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	return &csvSink{file: file, writer: writer}, nil
}

func (s *csvSink) Write(ctx context.Context, rows []OutputRow) error {
	for _, row := range rows {
		if err := s.writer.Write([]string{row.RecordID, row.RedactedDataJSON, formatBool(row.IsPII)}); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	s.writer.Flush()
	return s.writer.Error()
}

func (s *csvSink) Close() error {
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		s.file.Close()
		return fmt.Errorf("failed to flush CSV output: %w", err)
	}
	return s.file.Close()
}

func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// jsonlSink writes one JSON object per row
type jsonlSink struct {
	file    *os.File
	buf     *bufio.Writer
	encoder *json.Encoder
}

func newJSONLSink(file *os.File) *jsonlSink {
	buf := bufio.NewWriter(file)
	encoder := json.NewEncoder(buf)
	encoder.SetEscapeHTML(false)
	return &jsonlSink{file: file, buf: buf, encoder: encoder}
}

func (s *jsonlSink) Write(ctx context.Context, rows []OutputRow) error {
	for i := range rows {
		if err := s.encoder.Encode(&rows[i]); err != nil {
			return fmt.Errorf("failed to write JSON row: %w", err)
		}
	}
	return nil
}

func (s *jsonlSink) Close() error {
	if err := s.buf.Flush(); err != nil {
		s.file.Close()
		return fmt.Errorf("failed to flush JSON output: %w", err)
	}
	return s.file.Close()
}

type parquetOutputRow struct {
	RecordID         string `parquet:"record_id"`
	RedactedDataJSON string `parquet:"redacted_data_json"`
	IsPII            bool   `parquet:"is_pii"`
}

// parquetSink writes the output columns to a Parquet file
type parquetSink struct {
	file   *os.File
	writer *parquet.GenericWriter[parquetOutputRow]
}

func newParquetSink(file *os.File) *parquetSink {
	return &parquetSink{file: file, writer: parquet.NewGenericWriter[parquetOutputRow](file)}
}

func (s *parquetSink) Write(ctx context.Context, rows []OutputRow) error {
	out := make([]parquetOutputRow, len(rows))
	for i, row := range rows {
		out[i] = parquetOutputRow{
			RecordID:         row.RecordID,
			RedactedDataJSON: row.RedactedDataJSON,
			IsPII:            row.IsPII,
		}
	}
	if _, err := s.writer.Write(out); err != nil {
		return fmt.Errorf("failed to write Parquet rows: %w", err)
	}
	return nil
}

func (s *parquetSink) Close() error {
	if err := s.writer.Close(); err != nil {
		s.file.Close()
		return fmt.Errorf("failed to finalize Parquet output: %w", err)
	}
	return s.file.Close()
}
