package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"taxledger/internal/config"
	"taxledger/internal/exporter"
	"taxledger/internal/extraction"
	"taxledger/internal/files"
	"taxledger/internal/infrastructure"
	"taxledger/internal/validation"
)

// statementOutcome summarizes one successfully processed statement.
type statementOutcome struct {
	Filename     string
	Path         string
	Transactions int
	Empty        bool
}

func main() {
	inDir := flag.String("in", "", "input directory of Form 26AS PDF statements (defaults to data/uploads relative to executable)")
	outDir := flag.String("out", "", "output directory for generated workbooks (defaults to data/exports relative to executable)")
	singleFile := flag.String("file", "", "process a single PDF statement instead of a directory")
	withCSV := flag.Bool("csv", false, "write a csv ledger alongside each workbook")
	flag.Parse()

	// Initialize paths first to get default directories
	paths, err := config.GetPaths()
	if err != nil {
		slog.Error("Failed to initialize paths", "error", err)
		os.Exit(1)
	}

	// Use centralized directories as defaults if not specified
	if *inDir == "" {
		*inDir = paths.UploadsDir
	}
	if *outDir == "" {
		*outDir = paths.ExportsDir
	} else {
		paths.ExportsDir = *outDir
	}

	if err := paths.EnsureDirectories(); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Warn("Failed to load config, using defaults", "error", err)
		cfg = &config.Config{
			Extraction: config.ExtractionConfig{
				PageWorkers:   4,
				Timeout:       2 * time.Minute,
				MaxUploadSize: config.MaxUploadSize,
			},
			Logging: config.LoggingConfig{
				Level:    "info",
				Format:   "json",
				Output:   "both",
				FilePath: paths.GetLogPath("extract.log"),
			},
		}
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}

	logger.Info("Starting Form 26AS statement extraction",
		slog.String("input_dir", *inDir),
		slog.String("output_dir", *outDir),
		slog.Bool("with_csv", *withCSV),
		slog.String("executable_dir", paths.ExecutableDir))

	extractor := extraction.NewExtractor(logger, cfg.Extraction.PageWorkers)
	workbooks := exporter.NewWorkbookWriter(paths, logger)
	csvWriter := exporter.NewCSVWriter(paths)
	fileValidator := validation.NewFileValidator(logger)

	if *singleFile != "" {
		if err := fileValidator.ValidatePDFFile(*singleFile); err != nil {
			logger.Error("Statement rejected",
				slog.String("path", *singleFile),
				slog.String("error", err.Error()))
			os.Exit(1)
		}

		outcome, err := processStatement(context.Background(), extractor, workbooks, csvWriter,
			*singleFile, cfg.Extraction.Timeout, *withCSV, logger)
		if err != nil {
			logger.Error("Extraction failed",
				slog.String("path", *singleFile),
				slog.String("error", err.Error()))
			os.Exit(1)
		}

		logger.Info("Statement processed",
			slog.String("filename", outcome.Filename),
			slog.Int("transactions", outcome.Transactions),
			slog.Bool("empty_result", outcome.Empty))
		fmt.Printf("Generated %s (%d transactions)\n", outcome.Path, outcome.Transactions)
		return
	}

	if err := fileValidator.ValidateInputDirectory(*inDir, "*.pdf"); err != nil {
		logger.Error("Input directory check failed",
			slog.String("input_dir", *inDir),
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	discovery := files.NewDiscovery(paths.ExecutableDir)
	statements, err := discovery.FindPDFFiles(*inDir)
	if err != nil {
		logger.Error("Failed to read input directory", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("PDF statements discovered", slog.Int("count", len(statements)))
	fmt.Printf("Found %d PDF statements\n", len(statements))

	if len(statements) == 0 {
		logger.Warn("No PDF statements found in input directory",
			slog.String("input_dir", *inDir),
			slog.String("pattern", "*.pdf"))
		fmt.Println("Processing complete: 0 statements")
		return
	}

	var processed, failed, totalTransactions, emptyLedgers int
	for i, statement := range statements {
		logger.Info("Processing statement",
			slog.Int("current", i+1),
			slog.Int("total", len(statements)),
			slog.String("filename", statement.Name))
		fmt.Printf("Processing file %d of %d: %s\n", i+1, len(statements), statement.Name)

		if err := fileValidator.ValidatePDFFile(statement.Path); err != nil {
			logger.Warn("Skipping unreadable statement",
				slog.String("filename", statement.Name),
				slog.String("error", err.Error()))
			failed++
			continue
		}

		outcome, err := processStatement(context.Background(), extractor, workbooks, csvWriter,
			statement.Path, cfg.Extraction.Timeout, *withCSV, logger)
		if err != nil {
			logger.Error("Extraction failed",
				slog.String("filename", statement.Name),
				slog.String("error", err.Error()))
			failed++
			continue
		}

		processed++
		totalTransactions += outcome.Transactions
		if outcome.Empty {
			emptyLedgers++
		}
	}

	logger.Info("Batch extraction finished",
		slog.Int("processed", processed),
		slog.Int("failed", failed),
		slog.Int("transactions", totalTransactions),
		slog.Int("empty_ledgers", emptyLedgers))

	if exports, err := discovery.FindExportFiles(*outDir); err == nil {
		logger.Info("Export directory contents",
			slog.String("output_dir", *outDir),
			slog.Int("files", len(exports)))
	}

	fmt.Printf("Processing complete: %d statements\n", processed)
	if failed > 0 {
		fmt.Printf("Failed: %d statements (see log for details)\n", failed)
		return
	}
	fmt.Println("All statements processed")
}

// processStatement reads one PDF, extracts its ledger under the configured
// deadline, and writes the workbook (plus optional csv) into the exports
// directory.
func processStatement(ctx context.Context, extractor *extraction.Extractor, workbooks *exporter.WorkbookWriter,
	csvWriter *exporter.CSVWriter, path string, timeout time.Duration, withCSV bool, logger *slog.Logger) (*statementOutcome, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read statement: %w", err)
	}

	extractCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := extractor.Extract(extractCtx, data)
	if err != nil {
		return nil, err
	}

	filename, fullPath, err := workbooks.Export(result)
	if err != nil {
		return nil, err
	}

	if withCSV {
		csvName := strings.TrimSuffix(filename, ".xlsx") + ".csv"
		if err := csvWriter.WriteTransactionsCSV(csvName, result); err != nil {
			logger.Warn("Could not write csv ledger",
				slog.String("filename", csvName),
				slog.String("error", err.Error()))
		}
	}

	return &statementOutcome{
		Filename:     filename,
		Path:         fullPath,
		Transactions: len(result.Transactions),
		Empty:        result.IsEmpty(),
	}, nil
}
