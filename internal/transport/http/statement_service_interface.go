package http

import (
	"context"
	"os"

	"taxledger/internal/files"
	"taxledger/internal/services"
	"taxledger/pkg/contracts/domain"
)

// StatementServiceInterface defines the statement pipeline operations the
// handlers depend on
type StatementServiceInterface interface {
	Extract(ctx context.Context, filename string, data []byte) (*domain.ExtractionResult, error)
	Export(ctx context.Context, result *domain.ExtractionResult, format string) (*services.ExportArtifact, error)
	Download(ctx context.Context, filename string) (*os.File, os.FileInfo, error)
	ListExports(ctx context.Context) ([]files.FileInfo, error)
}
