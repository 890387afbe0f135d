package etl

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/segmentio/parquet-go"
	"go.uber.org/zap"
)

// OpenSource opens the input file with the reader matching its extension
func OpenSource(path string, config *Config, logger *zap.Logger) (Source, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}

	var src Source
	switch format := DetectFileFormat(path); format {
	case FormatCSV:
		src, err = newCSVSource(file, config, logger)
	case FormatJSONL:
		src = newJSONLSource(file, config, logger)
	case FormatParquet:
		src, err = newParquetSource(file, logger)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		file.Close()
		return nil, err
	}
	return src, nil
}

// csvSource reads rows by header name
type csvSource struct {
	file    *os.File
	reader  *csv.Reader
	idIdx   int
	dataIdx int
	line    int64
	skipped int64
	logger  *zap.Logger
}

func newCSVSource(file *os.File, config *Config, logger *zap.Logger) (*csvSource, error) {
	reader := csv.NewReader(bufio.NewReader(file))
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	idIdx, dataIdx := -1, -1
	for i, col := range header {
		switch col {
		case config.IDColumn:
			idIdx = i
		case config.DataColumn:
			dataIdx = i
		}
	}
	if idIdx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, config.IDColumn)
	}
	if dataIdx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, config.DataColumn)
	}

	logger.Info("CSV header detected", zap.Strings("columns", header))

	return &csvSource{
		file:    file,
		reader:  reader,
		idIdx:   idIdx,
		dataIdx: dataIdx,
		logger:  logger,
	}, nil
}

func (s *csvSource) Read(ctx context.Context, n int) ([]InputRow, error) {
	var batch []InputRow

	for len(batch) < n {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := s.reader.Read()
		if err == io.EOF {
			break
		}
		s.line++

		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			s.logger.Warn("Skipping unreadable CSV row", zap.Int64("line", s.line), zap.Error(err))
			s.skipped++
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}

		if s.idIdx >= len(record) {
			s.logger.Warn("Skipping CSV row without record id", zap.Int64("line", s.line))
			s.skipped++
			continue
		}

		row := InputRow{RecordID: record[s.idIdx], Line: s.line}
		if s.dataIdx < len(record) {
			row.DataJSON = record[s.dataIdx]
		}
		batch = append(batch, row)
	}

	return batch, nil
}

func (s *csvSource) Skipped() int64 { return s.skipped }

func (s *csvSource) Close() error { return s.file.Close() }

// jsonlSource reads one JSON object per line
type jsonlSource struct {
	file       *os.File
	reader     *bufio.Reader
	idColumn   string
	dataColumn string
	line       int64
	skipped    int64
	logger     *zap.Logger
}

func newJSONLSource(file *os.File, config *Config, logger *zap.Logger) *jsonlSource {
	return &jsonlSource{
		file:       file,
		reader:     bufio.NewReaderSize(file, 64*1024),
		idColumn:   config.IDColumn,
		dataColumn: config.DataColumn,
		logger:     logger,
	}
}

func (s *jsonlSource) Read(ctx context.Context, n int) ([]InputRow, error) {
	var batch []InputRow

	for len(batch) < n {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		line, err := s.reader.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("failed to read JSON line: %w", err)
		}
		if len(line) == 0 && err == io.EOF {
			break
		}
		s.line++

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			if err == io.EOF {
				break
			}
			continue
		}

		row, ok := s.parseLine(line)
		if ok {
			batch = append(batch, row)
		} else {
			s.skipped++
		}

		if err == io.EOF {
			break
		}
	}

	return batch, nil
}

func (s *jsonlSource) parseLine(line []byte) (InputRow, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(line, &obj); err != nil {
		s.logger.Warn("Skipping unreadable JSON line", zap.Int64("line", s.line), zap.Error(err))
		return InputRow{}, false
	}

	rawID, ok := obj[s.idColumn]
	if !ok {
		s.logger.Warn("Skipping JSON line without record id", zap.Int64("line", s.line))
		return InputRow{}, false
	}

	return InputRow{
		RecordID: rawText(rawID),
		DataJSON: rawText(obj[s.dataColumn]),
		Line:     s.line,
	}, true
}

func (s *jsonlSource) Skipped() int64 { return s.skipped }

func (s *jsonlSource) Close() error { return s.file.Close() }

// rawText unwraps JSON strings and keeps any other value as its literal text.
// A payload may therefore be given either as an embedded JSON string or inline.
func rawText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

type parquetInputRow struct {
	RecordID string `parquet:"record_id"`
	DataJSON string `parquet:"data_json"`
}

// parquetSource reads the record_id and data_json columns
type parquetSource struct {
	file   *os.File
	reader *parquet.Reader
	line   int64
	logger *zap.Logger
}

func newParquetSource(file *os.File, logger *zap.Logger) (*parquetSource, error) {
	reader := parquet.NewReader(file)

	for _, col := range []string{"record_id", "data_json"} {
		if _, ok := reader.Schema().Lookup(col); !ok {
			reader.Close()
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}

	return &parquetSource{file: file, reader: reader, logger: logger}, nil
}

func (s *parquetSource) Read(ctx context.Context, n int) ([]InputRow, error) {
	var batch []InputRow

	for len(batch) < n {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var record parquetInputRow
		err := s.reader.Read(&record)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read Parquet row: %w", err)
		}
		s.line++

		batch = append(batch, InputRow{
			RecordID: record.RecordID,
			DataJSON: record.DataJSON,
			Line:     s.line,
		})
	}

	return batch, nil
}

func (s *parquetSource) Skipped() int64 { return 0 }

func (s *parquetSource) Close() error {
	s.reader.Close()
	return s.file.Close()
}
