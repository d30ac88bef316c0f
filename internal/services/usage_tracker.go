package services

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"taxledger/internal/config"
	"taxledger/internal/exporter"
)

// usageLogRelPath routes into the logs directory via the csv writer.
const usageLogRelPath = "logs/usage.csv"

var usageHeader = []string{"timestamp", "filename", "transactions"}

// UsageStats is a point-in-time snapshot of processing counters.
type UsageStats struct {
	FilesProcessed        int64      `json:"files_processed"`
	TransactionsExtracted int64      `json:"transactions_extracted"`
	LastProcessedAt       *time.Time `json:"last_processed_at,omitempty"`
}

// UsageTracker counts processed statements and appends one row per run to
// the usage log. Counters are rebuilt from the log on startup, so they
// survive restarts.
type UsageTracker struct {
	mu                    sync.Mutex
	filesProcessed        int64
	transactionsExtracted int64
	lastProcessedAt       time.Time

	csv      *exporter.CSVWriter
	filePath string
	logger   *slog.Logger
}

// NewUsageTracker creates a usage tracker backed by the usage log under the
// logs directory, restoring counters from any existing log.
func NewUsageTracker(csvWriter *exporter.CSVWriter, paths *config.Paths, logger *slog.Logger) (*UsageTracker, error) {
	if logger == nil {
		logger = slog.Default()
	}

	t := &UsageTracker{
		csv:      csvWriter,
		filePath: paths.GetLogPath("usage.csv"),
		logger:   logger,
	}

	if err := t.load(); err != nil {
		return nil, fmt.Errorf("failed to load usage log: %w", err)
	}

	logger.Info("UsageTracker initialized",
		slog.String("usage_log", t.filePath),
		slog.Int64("files_processed", t.filesProcessed),
		slog.Int64("transactions_extracted", t.transactionsExtracted))

	return t, nil
}

// load rebuilds the counters from the usage log. A missing log is a fresh
// install, not an error.
func (t *UsageTracker) load() error {
	f, err := os.Open(t.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return err
	}

	for i, record := range records {
		// First row is the header; short rows are skipped, not fatal
		if i == 0 || len(record) < 3 {
			continue
		}

		t.filesProcessed++
		if n, err := strconv.ParseInt(record[2], 10, 64); err == nil {
			t.transactionsExtracted += n
		}
		if at, err := time.Parse(time.RFC3339, record[0]); err == nil && at.After(t.lastProcessedAt) {
			t.lastProcessedAt = at
		}
	}

	return nil
}

// Record counts one processed statement and appends it to the usage log.
// Log write failures are reported but never fail the pipeline.
func (t *UsageTracker) Record(filename string, transactions int) {
	now := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.filesProcessed++
	t.transactionsExtracted += int64(transactions)
	t.lastProcessedAt = now

	row := []string{
		now.Format(time.RFC3339),
		filename,
		strconv.Itoa(transactions),
	}

	var err error
	if config.FileExists(t.filePath) {
		err = t.csv.AppendToCSV(usageLogRelPath, [][]string{row})
	} else {
		err = t.csv.WriteSimpleCSV(usageLogRelPath, usageHeader, [][]string{row})
	}
	if err != nil {
		t.logger.Warn("Failed to write usage log",
			slog.String("usage_log", t.filePath),
			slog.String("error", err.Error()))
	}
}

// Snapshot returns the current counters.
func (t *UsageTracker) Snapshot() UsageStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	stats := UsageStats{
		FilesProcessed:        t.filesProcessed,
		TransactionsExtracted: t.transactionsExtracted,
	}
	if !t.lastProcessedAt.IsZero() {
		at := t.lastProcessedAt
		stats.LastProcessedAt = &at
	}
	return stats
}
