package etl

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/raaihank/pii-redactor/internal/cache"
	"github.com/raaihank/pii-redactor/internal/metrics"
	"github.com/raaihank/pii-redactor/internal/payload"
	"github.com/raaihank/pii-redactor/internal/privacy"
)

// Redaction is the outcome for one input row
type Redaction struct {
	Output     OutputRow
	Result     privacy.ProcessResult
	Categories []string
	Malformed  bool
	Cached     bool
}

// Pipeline handles batch redaction of tabular datasets
type Pipeline struct {
	processor   Processor
	resultCache ResultCache
	metrics     *metrics.Metrics
	config      *Config
	logger      *zap.Logger
	stats       *ProcessingStats
	mu          sync.RWMutex
}

// NewPipeline creates a new ETL pipeline. resultCache and m may be nil.
func NewPipeline(
	processor Processor,
	resultCache ResultCache,
	m *metrics.Metrics,
	config *Config,
	logger *zap.Logger,
) *Pipeline {
	if config.BatchSize <= 0 {
		config.BatchSize = 1000
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
	}
	return &Pipeline{
		processor:   processor,
		resultCache: resultCache,
		metrics:     m,
		config:      config,
		logger:      logger,
		stats: &ProcessingStats{
			StartTime: time.Now(),
		},
	}
}

// ProcessFile redacts every row of the input file and writes the results to
// sink in input order. sink may be nil for a dry run.
func (p *Pipeline) ProcessFile(ctx context.Context, inputPath string, sink Sink) (*ProcessingResult, error) {
	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()
	}

	runID := p.config.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	p.logger.Info("Starting redaction pipeline",
		zap.String("run_id", runID),
		zap.String("file", inputPath),
		zap.String("format", string(DetectFileFormat(inputPath))),
		zap.Int("batch_size", p.config.BatchSize),
		zap.Int("workers", p.config.WorkerCount),
		zap.Bool("dry_run", p.config.DryRun))

	src, err := OpenSource(inputPath, p.config, p.logger)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	p.resetStats()

	start := time.Now()
	result := &ProcessingResult{
		RunID:      runID,
		Categories: make(map[string]int64),
	}

	if err := p.processBatches(ctx, src, sink, result); err != nil {
		result.Errors = append(result.Errors, err.Error())
		result.SkippedRows = src.Skipped()
		result.Duration = time.Since(start)
		return result, err
	}

	result.SkippedRows = src.Skipped()
	result.Duration = time.Since(start)

	p.logger.Info("Redaction pipeline completed",
		zap.String("run_id", runID),
		zap.Int64("total_records", result.TotalRecords),
		zap.Int64("pii_records", result.PIIRecords),
		zap.Int64("clean_records", result.CleanRecords),
		zap.Int64("malformed_payloads", result.MalformedPayloads),
		zap.Int64("skipped_rows", result.SkippedRows),
		zap.Int64("cache_hits", result.CacheHits),
		zap.Duration("total_duration", result.Duration),
		zap.Duration("process_time", result.ProcessTime),
		zap.Duration("write_time", result.WriteTime),
		zap.Duration("cache_time", result.CacheTime))

	return result, nil
}

// processBatches reads, redacts and writes until the source is drained
func (p *Pipeline) processBatches(ctx context.Context, src Source, sink Sink, result *ProcessingResult) error {
	nextReport := int64(p.config.ProgressReport)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		rows, err := src.Read(ctx, p.config.BatchSize)
		if err != nil {
			return fmt.Errorf("failed to read batch: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}

		p.updateStats(func(s *ProcessingStats) {
			s.RecordsRead += int64(len(rows))
			s.CurrentBatch++
		})

		processStart := time.Now()
		redactions, cacheTime, err := p.redactRows(ctx, rows)
		if err != nil {
			return fmt.Errorf("failed to redact batch: %w", err)
		}
		result.ProcessTime += time.Since(processStart)
		result.CacheTime += cacheTime
		p.metrics.ObserveBatch(time.Since(processStart))

		out := make([]OutputRow, len(redactions))
		for i, r := range redactions {
			out[i] = r.Output
			accumulate(result, r)
		}

		if !p.config.DryRun && sink != nil {
			writeStart := time.Now()
			if err := sink.Write(ctx, out); err != nil {
				return fmt.Errorf("failed to write batch: %w", err)
			}
			result.WriteTime += time.Since(writeStart)
			p.updateStats(func(s *ProcessingStats) {
				s.RecordsWritten += int64(len(out))
			})
		}

		if nextReport > 0 && result.TotalRecords >= nextReport {
			p.reportProgress(result)
			for nextReport <= result.TotalRecords {
				nextReport += int64(p.config.ProgressReport)
			}
		}
	}
}

// RedactRows redacts a batch on the worker pool. The returned slice is
// aligned with rows. Rows whose payload is in the result cache are not
// handed to the processor; every other row is processed exactly once.
func (p *Pipeline) RedactRows(ctx context.Context, rows []InputRow) ([]Redaction, error) {
	redactions, _, err := p.redactRows(ctx, rows)
	return redactions, err
}

// redactRows also reports the time spent talking to the result cache
func (p *Pipeline) redactRows(ctx context.Context, rows []InputRow) ([]Redaction, time.Duration, error) {
	redactions := make([]Redaction, len(rows))
	hashes := make([]string, len(rows))
	for i, row := range rows {
		hashes[i] = computeTextHash(row.DataJSON)
	}

	cacheStart := time.Now()
	cached := p.lookupCache(ctx, hashes)
	cacheTime := p.sinceCache(cacheStart)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.WorkerCount)

	for i := range rows {
		if hit, ok := cached[p.cacheKey(hashes[i])]; ok {
			redactions[i] = fromCache(rows[i], hashes[i], hit)
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			redactions[i] = p.redactRow(rows[i], hashes[i])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	cacheStart = time.Now()
	p.storeCache(ctx, redactions)
	cacheTime += p.sinceCache(cacheStart)

	for _, r := range redactions {
		p.metrics.ObserveResult(r.Result, r.Malformed)
	}

	return redactions, cacheTime, nil
}

// redactRow decodes, processes and re-encodes one payload. A payload that is
// not a JSON object is processed as an empty record.
func (p *Pipeline) redactRow(row InputRow, hash string) Redaction {
	doc, err := payload.Decode([]byte(row.DataJSON))
	malformed := err != nil
	if malformed {
		p.logger.Debug("Malformed payload treated as empty record",
			zap.String("record_id", row.RecordID),
			zap.Int64("line", row.Line),
			zap.Error(err))
		doc = payload.Empty()
	}

	result := p.processor.Process(doc.Record())

	encoded, err := doc.Encode(result.Record)
	if err != nil {
		// never emit the unmasked payload
		p.logger.Error("Failed to encode redacted payload",
			zap.String("record_id", row.RecordID),
			zap.Error(err))
		encoded = []byte("{}")
	}

	categories := make([]string, 0, len(result.Findings))
	for _, c := range result.Categories() {
		categories = append(categories, string(c))
	}

	return Redaction{
		Output: OutputRow{
			RecordID:         row.RecordID,
			RedactedDataJSON: string(encoded),
			IsPII:            result.ContainsPII,
			PayloadHash:      hash,
			RowNum:           row.Line,
		},
		Result:     result,
		Categories: categories,
		Malformed:  malformed,
	}
}

func fromCache(row InputRow, hash string, hit *cache.CachedResult) Redaction {
	return Redaction{
		Output: OutputRow{
			RecordID:         row.RecordID,
			RedactedDataJSON: hit.RedactedDataJSON,
			IsPII:            hit.IsPII,
			PayloadHash:      hash,
			RowNum:           row.Line,
		},
		Result:     privacy.ProcessResult{ContainsPII: hit.IsPII},
		Categories: hit.Categories,
		Malformed:  hit.Malformed,
		Cached:     true,
	}
}

// cacheKey binds a payload hash to the detection policy so results cached
// under one threshold are never served under another
func (p *Pipeline) cacheKey(hash string) string {
	threshold := strconv.Itoa(p.processor.Policy().CombinationThreshold)
	return computeTextHash("t" + threshold + ":" + hash)
}

// sinceCache is zero when no result cache is configured
func (p *Pipeline) sinceCache(start time.Time) time.Duration {
	if p.resultCache == nil {
		return 0
	}
	return time.Since(start)
}

func (p *Pipeline) lookupCache(ctx context.Context, hashes []string) map[string]*cache.CachedResult {
	if p.resultCache == nil {
		return nil
	}

	keys := make([]string, 0, len(hashes))
	seen := make(map[string]struct{}, len(hashes))
	for _, h := range hashes {
		k := p.cacheKey(h)
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}

	found, err := p.resultCache.GetBatch(ctx, keys)
	if err != nil {
		p.logger.Warn("Result cache lookup failed, processing batch uncached", zap.Error(err))
		return nil
	}

	p.metrics.ObserveCache(len(found), len(keys)-len(found))
	return found
}

func (p *Pipeline) storeCache(ctx context.Context, redactions []Redaction) {
	if p.resultCache == nil {
		return
	}

	fresh := make(map[string]*cache.CachedResult)
	for _, r := range redactions {
		if r.Cached {
			continue
		}
		fresh[p.cacheKey(r.Output.PayloadHash)] = &cache.CachedResult{
			RedactedDataJSON: r.Output.RedactedDataJSON,
			IsPII:            r.Output.IsPII,
			Categories:       r.Categories,
			Malformed:        r.Malformed,
		}
	}

	if err := p.resultCache.StoreBatch(ctx, fresh); err != nil {
		p.logger.Warn("Failed to update result cache", zap.Error(err))
	}
}

func accumulate(result *ProcessingResult, r Redaction) {
	result.TotalRecords++
	if r.Output.IsPII {
		result.PIIRecords++
	} else {
		result.CleanRecords++
	}
	if r.Malformed {
		result.MalformedPayloads++
	}
	if r.Cached {
		result.CacheHits++
	}
	for _, c := range r.Categories {
		result.Categories[c]++
	}
}

// reportProgress reports current processing progress
func (p *Pipeline) reportProgress(result *ProcessingResult) {
	stats := p.GetStats()

	p.logger.Info("Processing progress",
		zap.Int64("records_processed", result.TotalRecords),
		zap.Int64("pii_records", result.PIIRecords),
		zap.Int64("batches", stats.CurrentBatch),
		zap.Float64("rate_per_sec", stats.ProcessingRate),
		zap.Duration("elapsed", time.Since(stats.StartTime)))
}

func (p *Pipeline) updateStats(fn func(*ProcessingStats)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fn(p.stats)
	if elapsed := time.Since(p.stats.StartTime).Seconds(); elapsed > 0 {
		p.stats.ProcessingRate = float64(p.stats.RecordsRead) / elapsed
	}
}

// resetStats resets processing statistics
func (p *Pipeline) resetStats() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats = &ProcessingStats{
		StartTime: time.Now(),
	}
}

// GetStats returns current processing statistics
func (p *Pipeline) GetStats() *ProcessingStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := *p.stats
	return &stats
}

// computeTextHash computes SHA-256 hash of the given text
func computeTextHash(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}
