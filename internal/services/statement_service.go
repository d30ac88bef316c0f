package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"taxledger/internal/exporter"
	"taxledger/internal/files"
	"taxledger/internal/infrastructure"
	"taxledger/internal/validation"
	"taxledger/pkg/contracts/domain"
)

// Extractor turns raw statement bytes into an extraction result.
// *extraction.Extractor satisfies it; tests substitute their own.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (*domain.ExtractionResult, error)
}

// UsageRecorder receives one notification per processed statement.
// *UsageTracker satisfies it.
type UsageRecorder interface {
	Record(filename string, transactions int)
}

// Export formats accepted by Export. An empty format means xlsx.
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

// ExportArtifact describes one generated ledger file.
type ExportArtifact struct {
	Filename  string `json:"filename"`
	Path      string `json:"-"`
	Format    string `json:"format"`
	SizeBytes int64  `json:"size_bytes"`
	TotalRows int    `json:"total_rows"`
}

// StatementService runs the statement pipeline: validate the upload, extract
// the transaction table, render ledgers into the export store, serve
// downloads.
type StatementService struct {
	extractor Extractor
	validator *validation.UploadValidator
	store     *files.Store
	csv       *exporter.CSVWriter
	usage     UsageRecorder
	metrics   *infrastructure.PipelineMetrics
	timeout   time.Duration
	logger    *slog.Logger
}

// NewStatementService creates a new statement service with injected
// collaborators. A zero timeout disables the per-extraction deadline.
func NewStatementService(
	extractor Extractor,
	validator *validation.UploadValidator,
	store *files.Store,
	csv *exporter.CSVWriter,
	usage UsageRecorder,
	metrics *infrastructure.PipelineMetrics,
	timeout time.Duration,
	logger *slog.Logger,
) *StatementService {
	// Ensure we have a logger
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("StatementService initialized",
		slog.Duration("extraction_timeout", timeout))

	return &StatementService{
		extractor: extractor,
		validator: validator,
		store:     store,
		csv:       csv,
		usage:     usage,
		metrics:   metrics,
		timeout:   timeout,
		logger:    logger,
	}
}

// Extract validates the uploaded bytes and runs extraction on them. The
// filename is advisory and only used for validation and logging. An empty
// result is a valid outcome, not an error.
func (s *StatementService) Extract(ctx context.Context, filename string, data []byte) (*domain.ExtractionResult, error) {
	if err := s.validator.ValidateUpload(filename, data); err != nil {
		return nil, err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	infrastructure.RecordActiveExtractionChange(ctx, s.metrics, 1)
	defer infrastructure.RecordActiveExtractionChange(ctx, s.metrics, -1)

	start := time.Now()
	result, err := s.extractor.Extract(ctx, data)
	duration := time.Since(start)

	if err != nil {
		infrastructure.RecordExtractionMetrics(ctx, s.metrics, 0, 0, 0, 0, 0, duration, false, err)
		s.logger.ErrorContext(ctx, "Statement extraction failed",
			slog.String("filename", filename),
			slog.Int("size_bytes", len(data)),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return nil, err
	}

	stats := result.Stats
	infrastructure.RecordExtractionMetrics(ctx, s.metrics,
		int64(stats.PageCount), int64(stats.PagesFailed),
		int64(len(result.Transactions)), int64(stats.RowsSkipped),
		int64(stats.CellsDefaulted), duration, true, nil)

	if s.usage != nil {
		s.usage.Record(filename, len(result.Transactions))
	}

	s.logger.InfoContext(ctx, "Statement extracted",
		slog.String("filename", filename),
		slog.Int("transactions", len(result.Transactions)),
		slog.Int("pages", stats.PageCount),
		slog.Int("pages_failed", stats.PagesFailed),
		slog.Bool("empty_result", result.IsEmpty()),
		slog.Duration("duration", duration))

	return result, nil
}

// Export renders the extraction result in the requested format and stores
// it in the exports directory.
func (s *StatementService) Export(ctx context.Context, result *domain.ExtractionResult, format string) (*ExportArtifact, error) {
	if result == nil {
		return nil, fmt.Errorf("%w: nil extraction result", ErrInvalidInput)
	}

	if format == "" {
		format = FormatXLSX
	}

	start := time.Now()

	var artifact *ExportArtifact
	var err error
	switch format {
	case FormatXLSX:
		artifact, err = s.exportWorkbook(result)
	case FormatCSV:
		artifact, err = s.exportCSV(result)
	default:
		err = fmt.Errorf("%w: %q", ErrInvalidFormat, format)
	}

	duration := time.Since(start)
	if err != nil {
		infrastructure.RecordExportMetrics(ctx, s.metrics, format, 0, duration, false)
		s.logger.ErrorContext(ctx, "Ledger export failed",
			slog.String("format", format),
			slog.String("error", err.Error()))
		return nil, err
	}

	infrastructure.RecordExportMetrics(ctx, s.metrics, format, artifact.SizeBytes, duration, true)

	s.logger.InfoContext(ctx, "Ledger exported",
		slog.String("filename", artifact.Filename),
		slog.String("format", format),
		slog.Int64("size_bytes", artifact.SizeBytes),
		slog.Int("total_rows", artifact.TotalRows))

	return artifact, nil
}

func (s *StatementService) exportWorkbook(result *domain.ExtractionResult) (*ExportArtifact, error) {
	data, filename, err := exporter.BuildWorkbook(result)
	if err != nil {
		return nil, fmt.Errorf("failed to build workbook: %w", err)
	}

	path, err := s.store.Save(filename, data)
	if err != nil {
		return nil, fmt.Errorf("failed to store workbook: %w", err)
	}

	return &ExportArtifact{
		Filename:  filename,
		Path:      path,
		Format:    FormatXLSX,
		SizeBytes: int64(len(data)),
		TotalRows: len(result.Transactions),
	}, nil
}

func (s *StatementService) exportCSV(result *domain.ExtractionResult) (*ExportArtifact, error) {
	name := strings.TrimSuffix(exporter.BuildFilename(result.Assessee, time.Now()), ".xlsx") + ".csv"

	// A bare filename routes into the exports directory
	if err := s.csv.WriteTransactionsCSV(name, result); err != nil {
		return nil, fmt.Errorf("failed to write csv ledger: %w", err)
	}

	path, err := s.store.Path(name)
	if err != nil {
		return nil, err
	}
	size, err := s.store.Size(name)
	if err != nil {
		return nil, fmt.Errorf("failed to stat csv ledger: %w", err)
	}

	return &ExportArtifact{
		Filename:  name,
		Path:      path,
		Format:    FormatCSV,
		SizeBytes: size,
		TotalRows: len(result.Transactions),
	}, nil
}

// Download opens a stored export for streaming to the client. The caller
// closes the returned file.
func (s *StatementService) Download(ctx context.Context, filename string) (*os.File, os.FileInfo, error) {
	name, err := files.SanitizeFilename(filename)
	if err != nil {
		// Malformed names are reported the same as missing ones
		return nil, nil, fmt.Errorf("%w: %s", ErrExportNotFound, filename)
	}

	f, info, err := s.store.Open(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %s", ErrExportNotFound, name)
		}
		return nil, nil, fmt.Errorf("failed to open export %s: %w", name, err)
	}

	s.logger.DebugContext(ctx, "Export opened for download",
		slog.String("filename", name),
		slog.Int64("size_bytes", info.Size()))

	return f, info, nil
}

// ListExports returns the stored ledger files, newest first.
func (s *StatementService) ListExports(ctx context.Context) ([]files.FileInfo, error) {
	exports, err := s.store.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list exports: %w", err)
	}

	s.logger.DebugContext(ctx, "Exports listed",
		slog.Int("count", len(exports)))

	return exports, nil
}
