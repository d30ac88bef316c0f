package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "taxledger/internal/errors"
	"taxledger/internal/shared/testutil"
)

type exportRequestFixture struct {
	PAN           string `json:"pan" validate:"required,pan"`
	TAN           string `json:"tan" validate:"omitempty,tan"`
	FinancialYear string `json:"financial_year" validate:"required,finyear"`
	Filename      string `json:"filename" validate:"omitempty,filename"`
}

func newValidationStack(t *testing.T) *ValidationMiddleware {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	return NewValidationMiddleware(logger, apierrors.NewErrorHandler(logger, false))
}

func TestValidateStruct(t *testing.T) {
	m := newValidationStack(t)

	t.Run("valid request", func(t *testing.T) {
		err := m.ValidateStruct(exportRequestFixture{
			PAN:           "ABCPD1234E",
			TAN:           "DELA12345B",
			FinancialYear: "2023-24",
			Filename:      "26AS_ABCPD1234E_2023-24.xlsx",
		})
		assert.NoError(t, err)
	})

	t.Run("invalid fields collected", func(t *testing.T) {
		err := m.ValidateStruct(exportRequestFixture{
			PAN:           "NOT-A-PAN",
			FinancialYear: "23-24",
		})
		require.Error(t, err)

		apiErr, ok := err.(*apierrors.APIError)
		require.True(t, ok)
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)

		details, ok := apiErr.Details.(apierrors.ValidationErrors)
		require.True(t, ok)
		fields := make([]string, 0, len(details.Errors))
		for _, ve := range details.Errors {
			fields = append(fields, ve.Field)
		}
		assert.Contains(t, fields, "pan")
		assert.Contains(t, fields, "financial_year")
	})
}

func TestCustomValidators(t *testing.T) {
	m := newValidationStack(t)

	tests := []struct {
		name    string
		fixture exportRequestFixture
		wantOK  bool
	}{
		{"good pan", exportRequestFixture{PAN: "AAAPA1234A", FinancialYear: "2023-24"}, true},
		{"pan lowercase", exportRequestFixture{PAN: "aaapa1234a", FinancialYear: "2023-24"}, false},
		{"pan digits misplaced", exportRequestFixture{PAN: "AAAP11234A", FinancialYear: "2023-24"}, false},
		{"pan too short", exportRequestFixture{PAN: "AAAPA123A", FinancialYear: "2023-24"}, false},
		{"good tan", exportRequestFixture{PAN: "AAAPA1234A", TAN: "MUMR09719B", FinancialYear: "2023-24"}, true},
		{"tan wrong shape", exportRequestFixture{PAN: "AAAPA1234A", TAN: "MU1R09719B", FinancialYear: "2023-24"}, false},
		{"fy century rollover", exportRequestFixture{PAN: "AAAPA1234A", FinancialYear: "2099-00"}, true},
		{"fy not consecutive", exportRequestFixture{PAN: "AAAPA1234A", FinancialYear: "2023-25"}, false},
		{"fy garbage", exportRequestFixture{PAN: "AAAPA1234A", FinancialYear: "FY23-24"}, false},
		{"filename traversal", exportRequestFixture{PAN: "AAAPA1234A", FinancialYear: "2023-24", Filename: "../../etc/passwd"}, false},
		{"filename separator", exportRequestFixture{PAN: "AAAPA1234A", FinancialYear: "2023-24", Filename: "exports/x.xlsx"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.ValidateStruct(tt.fixture)
			if tt.wantOK {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidateRequest_InvalidJSON(t *testing.T) {
	m := newValidationStack(t)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("invalid JSON should not reach the handler")
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/api/exports", strings.NewReader(`{"pan": `))
	r.Header.Set("Content-Type", "application/json")
	m.ValidateRequest(next).ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestValidateRequest_BodyRestored(t *testing.T) {
	m := newValidationStack(t)

	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b := make([]byte, 64)
		n, _ := r.Body.Read(b)
		seen = string(b[:n])
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/api/exports", strings.NewReader(`{"pan":"AAAPA1234A"}`))
	r.Header.Set("Content-Type", "application/json")
	m.ValidateRequest(next).ServeHTTP(w, r)

	assert.Equal(t, `{"pan":"AAAPA1234A"}`, seen)
}

func TestValidateRequest_MultipartPassesThrough(t *testing.T) {
	m := newValidationStack(t)

	reached := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	})

	// A PDF payload is not JSON; multipart bodies must not be json-checked
	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/api/statements", strings.NewReader("%PDF-1.4 binary..."))
	r.Header.Set("Content-Type", "multipart/form-data; boundary=xyz")
	m.ValidateRequest(next).ServeHTTP(w, r)

	assert.True(t, reached)
}

func TestValidateRequest_OversizedBody(t *testing.T) {
	m := newValidationStack(t)
	m.maxBodySize = 16

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("oversized body should not reach the handler")
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/api/exports", strings.NewReader(strings.Repeat("a", 64)))
	r.Header.Set("Content-Type", "application/json")
	m.ValidateRequest(next).ServeHTTP(w, r)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestValidateRequest_SkipsReadMethods(t *testing.T) {
	m := newValidationStack(t)

	reached := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	})

	w := httptest.NewRecorder()
	m.ValidateRequest(next).ServeHTTP(w, httptest.NewRequest("GET", "/api/exports", nil))

	assert.True(t, reached)
}

func TestContentTypeValidator(t *testing.T) {
	allowed := ContentTypeValidator("multipart/form-data")
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("missing content type", func(t *testing.T) {
		w := httptest.NewRecorder()
		allowed(next).ServeHTTP(w, httptest.NewRequest("POST", "/api/statements", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unsupported content type", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest("POST", "/api/statements", nil)
		r.Header.Set("Content-Type", "text/plain")
		allowed(next).ServeHTTP(w, r)
		assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	})

	t.Run("allowed with boundary", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest("POST", "/api/statements", nil)
		r.Header.Set("Content-Type", "multipart/form-data; boundary=abc")
		allowed(next).ServeHTTP(w, r)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("get skipped", func(t *testing.T) {
		w := httptest.NewRecorder()
		allowed(next).ServeHTTP(w, httptest.NewRequest("GET", "/api/exports", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestQueryParamValidator_ValidateInt(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	v := NewQueryParamValidator(logger, apierrors.NewErrorHandler(logger, false))

	t.Run("default when absent", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/exports", nil)
		got, ok := v.ValidateInt(w, r, "limit", 1, 100, 25)
		assert.True(t, ok)
		assert.Equal(t, 25, got)
	})

	t.Run("parses in range", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/exports?limit=50", nil)
		got, ok := v.ValidateInt(w, r, "limit", 1, 100, 25)
		assert.True(t, ok)
		assert.Equal(t, 50, got)
	})

	t.Run("rejects out of range", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/exports?limit=500", nil)
		_, ok := v.ValidateInt(w, r, "limit", 1, 100, 25)
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects non-numeric", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/exports?limit=many", nil)
		_, ok := v.ValidateInt(w, r, "limit", 1, 100, 25)
		assert.False(t, ok)
	})
}

func TestQueryParamValidator_ValidateEnum(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	v := NewQueryParamValidator(logger, apierrors.NewErrorHandler(logger, false))

	t.Run("default when absent", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/exports", nil)
		got, ok := v.ValidateEnum(w, r, "format", []string{"xlsx", "csv"}, "xlsx")
		assert.True(t, ok)
		assert.Equal(t, "xlsx", got)
	})

	t.Run("accepts allowed value", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/exports?format=csv", nil)
		got, ok := v.ValidateEnum(w, r, "format", []string{"xlsx", "csv"}, "xlsx")
		assert.True(t, ok)
		assert.Equal(t, "csv", got)
	})

	t.Run("rejects unknown value", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/exports?format=pdf", nil)
		_, ok := v.ValidateEnum(w, r, "format", []string{"xlsx", "csv"}, "xlsx")
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
