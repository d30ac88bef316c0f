package http

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "taxledger/internal/errors"
	"taxledger/internal/extraction"
	"taxledger/internal/infrastructure"
	mw "taxledger/internal/middleware"
	"taxledger/internal/services"
	"taxledger/internal/validation"
	api "taxledger/pkg/contracts/api/v1"
	"taxledger/pkg/contracts/domain"
)

// uploadFieldName is the multipart form field carrying the statement PDF.
const uploadFieldName = "file"

// StatementHandler handles statement extraction and export HTTP requests
// with RFC 7807 compliance.
type StatementHandler struct {
	service       StatementServiceInterface
	usage         *services.UsageTracker
	validation    *mw.ValidationMiddleware
	maxUploadSize int64
	logger        *slog.Logger
	errorHandler  *apierrors.ErrorHandler
}

// NewStatementHandler creates a new statement handler with RFC 7807 error handling.
func NewStatementHandler(
	service StatementServiceInterface,
	usage *services.UsageTracker,
	validationMW *mw.ValidationMiddleware,
	maxUploadSize int64,
	logger *slog.Logger,
	errorHandler *apierrors.ErrorHandler,
) *StatementHandler {
	return &StatementHandler{
		service:       service,
		usage:         usage,
		validation:    validationMW,
		maxUploadSize: maxUploadSize,
		logger:        logger.With(slog.String("component", "statement_handler")),
		errorHandler:  errorHandler,
	}
}

// Routes returns the statement routes with proper Chi patterns.
func (h *StatementHandler) Routes() chi.Router {
	r := chi.NewRouter()

	// Use render for consistent JSON responses
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Mount("/statements", h.StatementRoutes())
	r.Mount("/exports", h.ExportRoutes())
	r.Get("/usage", h.GetUsage)

	return r
}

// StatementRoutes returns the extraction and export operation routes.
func (h *StatementHandler) StatementRoutes() chi.Router {
	r := chi.NewRouter()
	r.With(mw.ContentTypeValidator("multipart/form-data")).
		Post("/extract", h.ExtractStatement)
	r.With(mw.ContentTypeValidator("application/json")).
		Post("/export", h.ExportStatement)
	return r
}

// ExportRoutes returns the export listing and download routes.
func (h *StatementHandler) ExportRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListExports)
	// Downloads leave an audit trail
	r.With(mw.AuditLog(h.logger)).Get("/{filename}", h.DownloadExport)
	return r
}

// ExtractStatement handles POST /api/statements/extract. It accepts a
// multipart upload of a Form 26AS PDF and responds with the normalized
// transaction ledger.
func (h *StatementHandler) ExtractStatement(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.InfoContext(r.Context(), "extracting statement",
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	// Cap the request body before the multipart parser touches it. The
	// extra megabyte leaves room for the form framing around the file.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+1<<20)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
				http.StatusRequestEntityTooLarge,
				"PAYLOAD_TOO_LARGE",
				fmt.Sprintf("Upload exceeds the %d byte limit", h.maxUploadSize),
				map[string]interface{}{"limit_bytes": h.maxUploadSize},
			))
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile(uploadFieldName)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation(uploadFieldName, "No file uploaded"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.FileSystemError("upload read", err))
		return
	}

	result, err := h.service.Extract(r.Context(), header.Filename, data)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to extract statement",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
			slog.String("filename", header.Filename),
			slog.Int("size_bytes", len(data)),
		)
		h.renderExtractError(w, r, err, header.Filename, int64(len(data)))
		return
	}

	h.logger.InfoContext(r.Context(), "statement extracted",
		slog.String("request_id", reqID),
		slog.Int("transactions", len(result.Transactions)),
		slog.Bool("empty_result", result.IsEmpty()),
	)

	render.JSON(w, r, api.NewSuccessResponse(newStatementData(result)))
}

// renderExtractError maps upload and extraction failures onto the right
// problem response. Validation failures become APIErrors; extraction
// failures keep the richer statement problem payload.
func (h *StatementHandler) renderExtractError(w http.ResponseWriter, r *http.Request, err error, filename string, size int64) {
	switch {
	case errors.Is(err, validation.ErrEmptyFile), errors.Is(err, validation.ErrFileTooSmall):
		h.errorHandler.HandleError(w, r, apierrors.ErrStatementRejected(err))

	case errors.Is(err, validation.ErrNotPDF):
		h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
			http.StatusBadRequest,
			"WRONG_FILE_TYPE",
			"Only PDF statements are accepted for extraction.",
			err.Error(),
		))

	case errors.Is(err, validation.ErrFileTooLarge):
		h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
			http.StatusRequestEntityTooLarge,
			"PAYLOAD_TOO_LARGE",
			"The uploaded file exceeds the maximum allowed size.",
			err.Error(),
		))

	case errors.Is(err, extraction.ErrInvalidDocument):
		now := time.Now()
		render.Render(w, r, apierrors.NewStatementRejectedError(&apierrors.ExtractionFailureDetails{
			Filename:     filename,
			SizeBytes:    size,
			ReceivedAt:   &now,
			FailureStage: "open",
		}, infrastructure.GetTraceID(r.Context())))

	case errors.Is(err, extraction.ErrNoExtractablePages):
		render.Render(w, r, apierrors.NewEmptyStatementError(&apierrors.ExtractionFailureDetails{
			Filename:     filename,
			SizeBytes:    size,
			FailureStage: "parse",
		}, infrastructure.GetTraceID(r.Context())))

	default:
		render.Render(w, r, apierrors.MapStatementError(err, infrastructure.GetTraceID(r.Context())))
	}
}

// ExportStatement handles POST /api/statements/export. It takes a
// previously extracted ledger and writes it out as a spreadsheet.
func (h *StatementHandler) ExportStatement(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.InfoContext(r.Context(), "exporting statement",
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	var req api.StatementExportRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	if err := h.validation.ValidateStruct(&req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	result := &domain.ExtractionResult{
		Assessee:     req.AssesseeInfo,
		Transactions: req.Transactions,
	}

	artifact, err := h.service.Export(r.Context(), result, req.Format)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to export statement",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
			slog.String("format", req.Format),
		)

		if errors.Is(err, services.ErrInvalidFormat) {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("format", err.Error()))
			return
		}
		if errors.Is(err, services.ErrInvalidInput) {
			h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
			return
		}

		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "statement exported",
		slog.String("request_id", reqID),
		slog.String("filename", artifact.Filename),
		slog.String("format", artifact.Format),
		slog.Int("total_rows", artifact.TotalRows),
	)

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, api.NewSuccessResponse(api.ExportData{
		Filename:    artifact.Filename,
		DownloadURL: "/api/exports/" + artifact.Filename,
		Format:      artifact.Format,
		SizeBytes:   artifact.SizeBytes,
		TotalRows:   artifact.TotalRows,
	}))
}

// DownloadExport handles GET /api/exports/{filename} with RFC 7807 errors.
func (h *StatementHandler) DownloadExport(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())
	filename := chi.URLParam(r, "filename")

	h.logger.InfoContext(r.Context(), "downloading export",
		slog.String("request_id", reqID),
		slog.String("filename", filename),
	)

	f, info, err := h.service.Download(r.Context(), filename)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to download export",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
			slog.String("filename", filename),
		)

		if errors.Is(err, services.ErrExportNotFound) {
			h.errorHandler.HandleError(w, r, apierrors.ExportNotFoundError(err))
			return
		}

		h.errorHandler.HandleError(w, r, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", exportContentType(info.Name()))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", info.Name()))
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// exportContentType resolves the media type for a served export file.
func exportContentType(name string) string {
	switch filepath.Ext(name) {
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".csv":
		return "text/csv; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

// ListExports handles GET /api/exports with RFC 7807 errors.
func (h *StatementHandler) ListExports(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.InfoContext(r.Context(), "listing exports",
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	exports, err := h.service.ListExports(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list exports",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)
		h.errorHandler.HandleError(w, r, err)
		return
	}

	data := make([]api.ExportFileData, 0, len(exports))
	for _, f := range exports {
		data = append(data, api.ExportFileData{
			Filename:    f.Name,
			DownloadURL: "/api/exports/" + f.Name,
			SizeBytes:   f.Size,
			ModifiedAt:  f.ModTime,
		})
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   data,
		"count":  len(data),
	})
}

// GetUsage handles GET /api/usage with RFC 7807 errors.
func (h *StatementHandler) GetUsage(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.InfoContext(r.Context(), "fetching usage stats",
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	if h.usage == nil {
		h.errorHandler.HandleError(w, r, apierrors.New(
			http.StatusServiceUnavailable,
			"USAGE_UNAVAILABLE",
			"Usage tracking is not enabled",
		))
		return
	}

	stats := h.usage.Snapshot()
	render.JSON(w, r, api.NewSuccessResponse(api.UsageData{
		FilesProcessed:        stats.FilesProcessed,
		TransactionsExtracted: stats.TransactionsExtracted,
		LastProcessedAt:       stats.LastProcessedAt,
	}))
}

// newStatementData shapes an extraction result for the response envelope.
// Transactions always serializes as an array, never null.
func newStatementData(result *domain.ExtractionResult) api.StatementData {
	transactions := result.Transactions
	if transactions == nil {
		transactions = []domain.TransactionRecord{}
	}
	return api.StatementData{
		Assessee:          result.Assessee,
		Transactions:      transactions,
		TotalTransactions: len(transactions),
		EmptyResult:       result.IsEmpty(),
		Stats:             result.Stats,
	}
}
