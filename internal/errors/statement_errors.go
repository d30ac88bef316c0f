package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"taxledger/internal/extraction"
)

// ExtractionFailureDetails provides additional context for rejected statements
type ExtractionFailureDetails struct {
	Filename     string     `json:"filename,omitempty"`
	SizeBytes    int64      `json:"size_bytes,omitempty"`
	PageCount    int        `json:"page_count,omitempty"`
	PagesFailed  int        `json:"pages_failed,omitempty"`
	ReceivedAt   *time.Time `json:"received_at,omitempty"`
	FailureStage string     `json:"failure_stage,omitempty"`
}

// ProblemDetails implements RFC 7807 Problem Details for HTTP APIs
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	// Additional fields for extensibility
	Extensions map[string]interface{} `json:"-"`
}

// Render implements the render.Renderer interface
func (pd *ProblemDetails) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, pd.Status)
	return nil
}

// MarshalJSON custom marshaler to include extensions
func (pd *ProblemDetails) MarshalJSON() ([]byte, error) {
	data := make(map[string]interface{})

	// Add standard fields
	data["type"] = pd.Type
	data["title"] = pd.Title
	data["status"] = pd.Status

	if pd.Detail != "" {
		data["detail"] = pd.Detail
	}
	if pd.Instance != "" {
		data["instance"] = pd.Instance
	}

	// Add extensions
	for k, v := range pd.Extensions {
		data[k] = v
	}

	// Use standard JSON marshaling
	return json.Marshal(data)
}

// NewProblemDetails creates a new RFC 7807 compliant error
func NewProblemDetails(status int, problemType, title, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:       problemType,
		Title:      title,
		Status:     status,
		Detail:     detail,
		Instance:   instance,
		Extensions: make(map[string]interface{}),
	}
}

// WithExtension adds an extension field to the problem details
func (pd *ProblemDetails) WithExtension(key string, value interface{}) *ProblemDetails {
	pd.Extensions[key] = value
	return pd
}

// NewStatementRejectedError creates an enhanced error for files that could
// not be opened as a statement at all
func NewStatementRejectedError(details *ExtractionFailureDetails, traceID string) *ProblemDetails {
	problem := NewProblemDetails(
		http.StatusBadRequest,
		TypeStatementInvalid,
		"Statement Not Readable",
		"The uploaded file could not be opened as a PDF document. Please upload the Form 26AS PDF exactly as downloaded from TRACES.",
		fmt.Sprintf("/api/statements#%s", traceID),
	)

	problem.WithExtension("error_code", "INVALID_STATEMENT").
		WithExtension("trace_id", traceID)

	if details != nil {
		if details.Filename != "" {
			problem.WithExtension("filename", details.Filename)
		}
		if details.SizeBytes > 0 {
			problem.WithExtension("size_bytes", details.SizeBytes)
		}
		if details.FailureStage != "" {
			problem.WithExtension("failure_stage", details.FailureStage)
		}
		if details.ReceivedAt != nil {
			problem.WithExtension("received_at", details.ReceivedAt.Format(time.RFC3339))
		}
	}

	return problem
}

// NewEmptyStatementError creates an enhanced error for statements in which
// no page yielded any text
func NewEmptyStatementError(details *ExtractionFailureDetails, traceID string) *ProblemDetails {
	problem := NewProblemDetails(
		http.StatusUnprocessableEntity,
		TypeStatementEmpty,
		"No Extractable Pages",
		"Text extraction failed on every page of the statement. Scanned or image-only statements cannot be processed.",
		fmt.Sprintf("/api/statements#%s", traceID),
	)

	problem.WithExtension("error_code", "NO_EXTRACTABLE_PAGES").
		WithExtension("trace_id", traceID)

	if details != nil {
		if details.PageCount > 0 {
			problem.WithExtension("page_count", details.PageCount)
		}
		if details.PagesFailed > 0 {
			problem.WithExtension("pages_failed", details.PagesFailed)
		}
		if details.Filename != "" {
			problem.WithExtension("filename", details.Filename)
		}
	}

	return problem
}

// MapStatementError maps extraction and export errors to HTTP problem details
func MapStatementError(err error, traceID string) render.Renderer {
	instance := fmt.Sprintf("/api/statements#trace-%s", traceID)

	// Check if it's an APIError from errors.go
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.ErrorCode == "EXPORT_NOT_FOUND" {
			return NewProblemDetails(
				http.StatusNotFound,
				TypeExportNotFound,
				"Export Not Found",
				apiErr.Message,
				instance,
			).WithExtension("trace_id", traceID).
				WithExtension("error_code", "EXPORT_NOT_FOUND")
		}
	}

	switch {
	case errors.Is(err, extraction.ErrInvalidDocument):
		return NewStatementRejectedError(nil, traceID)

	case errors.Is(err, extraction.ErrNoExtractablePages):
		return NewEmptyStatementError(nil, traceID)

	case errors.Is(err, context.DeadlineExceeded):
		return NewProblemDetails(
			http.StatusGatewayTimeout,
			TypeTimeout,
			"Extraction Timeout",
			"The statement took too long to process and was cancelled.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "EXTRACTION_TIMEOUT")

	case errors.Is(err, context.Canceled):
		return NewProblemDetails(
			http.StatusGatewayTimeout,
			TypeTimeout,
			"Request Cancelled",
			"The request was cancelled before extraction completed.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "REQUEST_CANCELLED")

	default:
		// Generic error
		return NewProblemDetails(
			http.StatusInternalServerError,
			TypeInternal,
			"Internal Server Error",
			"An unexpected error occurred while processing your request.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "INTERNAL_ERROR")
	}
}
