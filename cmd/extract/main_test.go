package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxledger/internal/config"
	"taxledger/internal/exporter"
	"taxledger/internal/extraction"
)

func newBatchDeps(t *testing.T) (*extraction.Extractor, *exporter.WorkbookWriter, *exporter.CSVWriter, *slog.Logger) {
	t.Helper()

	paths := config.GetPathsWithBase(t.TempDir())
	require.NoError(t, paths.EnsureDirectories())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return extraction.NewExtractor(logger, 2),
		exporter.NewWorkbookWriter(paths, logger),
		exporter.NewCSVWriter(paths),
		logger
}

func TestProcessStatement_MissingFile(t *testing.T) {
	extractor, workbooks, csvWriter, logger := newBatchDeps(t)

	_, err := processStatement(context.Background(), extractor, workbooks, csvWriter,
		filepath.Join(t.TempDir(), "missing.pdf"), time.Minute, false, logger)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read statement")
}

func TestProcessStatement_RejectsNonPDFBytes(t *testing.T) {
	extractor, workbooks, csvWriter, logger := newBatchDeps(t)

	path := filepath.Join(t.TempDir(), "bogus.pdf")
	require.NoError(t, os.WriteFile(path, []byte("this is not a pdf"), 0644))

	_, err := processStatement(context.Background(), extractor, workbooks, csvWriter,
		path, time.Minute, false, logger)

	assert.ErrorIs(t, err, extraction.ErrInvalidDocument)
}
