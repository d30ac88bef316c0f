package integration

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"taxledger/internal/config"
	"taxledger/internal/exporter"
	"taxledger/internal/files"
	"taxledger/internal/services"
	"taxledger/pkg/contracts/domain"
)

// The tests in this package drive real components against one shared
// directory tree: no mocks, every file written by one component must be
// found and read back by the next.

func testPaths(t *testing.T) *config.Paths {
	t.Helper()
	paths := config.GetPathsWithBase(t.TempDir())
	require.NoError(t, paths.EnsureDirectories())
	return paths
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleLedger() *domain.ExtractionResult {
	return &domain.ExtractionResult{
		Assessee: domain.AssesseeInfo{
			Name:           "RAMESH KUMAR",
			PAN:            "AAAPA1234A",
			FinancialYear:  "2023-24",
			AssessmentYear: "2024-25",
		},
		Transactions: []domain.TransactionRecord{
			{
				SrNo:            1,
				DeductorName:    "STATE BANK OF INDIA",
				DeductorTAN:     "MUMS12345B",
				Section:         "194A",
				TransactionDate: "15-Jun-2023",
				Status:          domain.BookingStatusFinal,
				DateOfBooking:   "30-Jun-2023",
				AmountPaid:      12500,
				TaxDeducted:     1250,
				TDSDeposited:    1250,
				NetAmount:       11250,
				Rate:            10,
				PageNumber:      2,
			},
			{
				SrNo:            2,
				DeductorName:    "HDFC BANK LIMITED",
				DeductorTAN:     "MUMH67890C",
				Section:         "194A",
				TransactionDate: "20-Sep-2023",
				Status:          domain.BookingStatusFinal,
				DateOfBooking:   "30-Sep-2023",
				AmountPaid:      8000,
				TaxDeducted:     800,
				TDSDeposited:    800,
				NetAmount:       7200,
				Rate:            10,
				PageNumber:      3,
			},
		},
		Stats: domain.ExtractionStats{PageCount: 4},
	}
}

// TestPathConsistencyAcrossComponents verifies that every component that
// touches the filesystem resolves through the same directory tree.
func TestPathConsistencyAcrossComponents(t *testing.T) {
	paths := testPaths(t)
	store := files.NewStore(paths)
	csvWriter := exporter.NewCSVWriter(paths)

	t.Run("store writes land under the exports directory", func(t *testing.T) {
		path, err := store.Save("ledger.xlsx", []byte("workbook bytes"))
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(path, paths.ExportsDir),
			"store path %s should be under %s", path, paths.ExportsDir)
	})

	t.Run("csv writer resolves bare names into exports", func(t *testing.T) {
		err := csvWriter.WriteSimpleCSV("plain.csv", []string{"a", "b"}, [][]string{{"1", "2"}})
		require.NoError(t, err)
		assert.True(t, config.FileExists(paths.GetExportPath("plain.csv")))
	})

	t.Run("usage log lives under the logs directory", func(t *testing.T) {
		tracker, err := services.NewUsageTracker(csvWriter, paths, quietLogger())
		require.NoError(t, err)

		tracker.Record("26AS_sample.pdf", 3)
		assert.True(t, config.FileExists(paths.GetLogPath("usage.csv")))
	})
}

// TestExportPipelineFileSharing exports a ledger through the statement
// service and verifies the store, the download path, and a spreadsheet
// reader all see the same artifact.
func TestExportPipelineFileSharing(t *testing.T) {
	paths := testPaths(t)
	store := files.NewStore(paths)
	csvWriter := exporter.NewCSVWriter(paths)
	logger := quietLogger()

	tracker, err := services.NewUsageTracker(csvWriter, paths, logger)
	require.NoError(t, err)

	svc := services.NewStatementService(nil, nil, store, csvWriter, tracker, nil, 0, logger)

	artifact, err := svc.Export(context.Background(), sampleLedger(), services.FormatXLSX)
	require.NoError(t, err)
	require.Equal(t, services.FormatXLSX, artifact.Format)
	require.Equal(t, 2, artifact.TotalRows)

	t.Run("store lists the workbook", func(t *testing.T) {
		listed, err := store.List()
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, artifact.Filename, listed[0].Name)
		assert.Equal(t, artifact.SizeBytes, listed[0].Size)
	})

	t.Run("download serves identical bytes", func(t *testing.T) {
		f, info, err := store.Open(artifact.Filename)
		require.NoError(t, err)
		defer f.Close()

		served, err := io.ReadAll(f)
		require.NoError(t, err)

		written, err := os.ReadFile(artifact.Path)
		require.NoError(t, err)

		assert.Equal(t, written, served)
		assert.Equal(t, artifact.SizeBytes, info.Size())
	})

	t.Run("workbook reopens with the ledger intact", func(t *testing.T) {
		data, err := os.ReadFile(artifact.Path)
		require.NoError(t, err)

		wb, err := excelize.OpenReader(bytes.NewReader(data))
		require.NoError(t, err)
		defer wb.Close()

		rows, err := wb.GetRows("TDS Transactions")
		require.NoError(t, err)
		require.Len(t, rows, 3, "header plus two transactions")
		assert.Equal(t, "Name of Deductor", rows[0][1])
		assert.Equal(t, "STATE BANK OF INDIA", rows[1][1])
		assert.Equal(t, "HDFC BANK LIMITED", rows[2][1])

		pan, err := wb.GetCellValue("Assessee Details", "B3")
		require.NoError(t, err)
		assert.Equal(t, "AAAPA1234A", pan)
	})

	t.Run("csv export lands in the same directory", func(t *testing.T) {
		csvArtifact, err := svc.Export(context.Background(), sampleLedger(), services.FormatCSV)
		require.NoError(t, err)
		assert.True(t, store.Exists(csvArtifact.Filename))
		assert.True(t, strings.HasSuffix(csvArtifact.Filename, ".csv"))

		content, err := os.ReadFile(csvArtifact.Path)
		require.NoError(t, err)
		assert.Contains(t, string(content), "Name of Deductor")
		assert.Contains(t, string(content), "STATE BANK OF INDIA")
	})
}

// TestUsageCountersSurviveRestart verifies that a fresh tracker on the same
// tree rebuilds its counters from the usage log.
func TestUsageCountersSurviveRestart(t *testing.T) {
	paths := testPaths(t)
	csvWriter := exporter.NewCSVWriter(paths)
	logger := quietLogger()

	first, err := services.NewUsageTracker(csvWriter, paths, logger)
	require.NoError(t, err)
	first.Record("26AS_AAAPA1234A_2023_24.pdf", 5)
	first.Record("26AS_empty.pdf", 0)

	second, err := services.NewUsageTracker(csvWriter, paths, logger)
	require.NoError(t, err)

	stats := second.Snapshot()
	assert.Equal(t, int64(2), stats.FilesProcessed)
	assert.Equal(t, int64(5), stats.TransactionsExtracted)
	require.NotNil(t, stats.LastProcessedAt)
	assert.WithinDuration(t, time.Now(), *stats.LastProcessedAt, time.Minute)
}

// TestRetentionSweepSharedView ages one export, sweeps, and verifies the
// store and the health stats agree on what is left.
func TestRetentionSweepSharedView(t *testing.T) {
	paths := testPaths(t)
	store := files.NewStore(paths)
	csvWriter := exporter.NewCSVWriter(paths)
	logger := quietLogger()

	tracker, err := services.NewUsageTracker(csvWriter, paths, logger)
	require.NoError(t, err)
	tracker.Record("26AS_a.pdf", 2)
	tracker.Record("26AS_b.pdf", 0)

	svc := services.NewStatementService(nil, nil, store, csvWriter, tracker, nil, 0, logger)

	stale, err := svc.Export(context.Background(), sampleLedger(), services.FormatXLSX)
	require.NoError(t, err)
	fresh, err := svc.Export(context.Background(), sampleLedger(), services.FormatCSV)
	require.NoError(t, err)

	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(stale.Path, old, old))

	removed, err := store.Sweep(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.False(t, store.Exists(stale.Filename))
	assert.True(t, store.Exists(fresh.Filename))

	health := services.NewHealthService("test", paths, store, tracker, nil, logger)
	stats, err := health.SystemStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ExportCount)
	assert.Equal(t, int64(2), stats.FilesProcessed)
}
