package validation

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"taxledger/internal/config"
)

// Upload validation errors. Handlers map these to the statement error codes.
var (
	ErrEmptyFile    = errors.New("uploaded file is empty")
	ErrFileTooSmall = errors.New("uploaded file is too small to be a statement")
	ErrFileTooLarge = errors.New("uploaded file exceeds the maximum size")
	ErrNotPDF       = errors.New("uploaded file is not a PDF")
)

// UploadValidator checks statement uploads before extraction runs
type UploadValidator struct {
	maxSize int64
	logger  *slog.Logger
}

// NewUploadValidator creates an upload validator sized from the extraction
// configuration
func NewUploadValidator(cfg config.ExtractionConfig, logger *slog.Logger) *UploadValidator {
	if logger == nil {
		logger = slog.Default()
	}

	maxSize := cfg.MaxUploadSize
	if maxSize <= 0 {
		maxSize = config.MaxUploadSize
	}

	return &UploadValidator{
		maxSize: maxSize,
		logger:  logger,
	}
}

// ValidateUpload checks the uploaded bytes and, when given, the client
// filename. The filename check is advisory; the content sniff decides.
func (v *UploadValidator) ValidateUpload(filename string, data []byte) error {
	if len(data) == 0 {
		v.logger.Warn("Upload rejected: empty file",
			slog.String("filename", filename))
		return ErrEmptyFile
	}

	if int64(len(data)) > v.maxSize {
		v.logger.Warn("Upload rejected: too large",
			slog.String("filename", filename),
			slog.Int("size_bytes", len(data)),
			slog.Int64("max_bytes", v.maxSize))
		return fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, len(data), v.maxSize)
	}

	if len(data) < config.MinUploadSize {
		v.logger.Warn("Upload rejected: too small",
			slog.String("filename", filename),
			slog.Int("size_bytes", len(data)))
		return fmt.Errorf("%w: %d bytes", ErrFileTooSmall, len(data))
	}

	if filename != "" {
		ext := strings.ToLower(filepath.Ext(filename))
		if ext != "" && ext != ".pdf" {
			v.logger.Warn("Upload rejected: wrong extension",
				slog.String("filename", filename),
				slog.String("extension", ext))
			return fmt.Errorf("%w: extension %s", ErrNotPDF, ext)
		}
	}

	if !bytes.HasPrefix(data, []byte(config.PDFHeaderMagic)) {
		v.logger.Warn("Upload rejected: missing PDF header",
			slog.String("filename", filename))
		return fmt.Errorf("%w: missing %s header", ErrNotPDF, config.PDFHeaderMagic)
	}

	v.logger.Debug("Upload validated",
		slog.String("filename", filename),
		slog.Int("size_bytes", len(data)))
	return nil
}
