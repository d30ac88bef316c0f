package services

import "errors"

// Statement service errors. Extraction failures carry their own sentinels
// in internal/extraction; these cover the export and lookup paths.
var (
	// Export errors
	ErrExportNotFound = errors.New("export not found")
	ErrInvalidFormat  = errors.New("unsupported export format")

	// General errors
	ErrInvalidInput = errors.New("invalid input")
)
