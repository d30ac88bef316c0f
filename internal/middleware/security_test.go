package middleware

import (
	"crypto/tls"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxledger/internal/shared/testutil"
)

func TestDefaultSecureHeaders(t *testing.T) {
	sh := DefaultSecureHeaders()

	assert.Equal(t, 63072000, sh.HSTSMaxAge)
	assert.True(t, sh.HSTSIncludeSubdomains)
	assert.True(t, sh.HSTSPreload)
	assert.Equal(t, "DENY", sh.XFrameOptions)
	assert.Equal(t, "nosniff", sh.XContentTypeOptions)
	assert.False(t, sh.DevMode)
}

func TestSecureHeaders_Handler(t *testing.T) {
	sh := DefaultSecureHeaders()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	w := httptest.NewRecorder()
	sh.Handler(next).ServeHTTP(w, httptest.NewRequest("GET", "/api/health", nil))

	h := w.Header()
	assert.Equal(t, "DENY", h.Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", h.Get("X-Content-Type-Options"))
	assert.Equal(t, "1; mode=block", h.Get("X-XSS-Protection"))
	assert.Equal(t, "strict-origin-when-cross-origin", h.Get("Referrer-Policy"))
	assert.Contains(t, h.Get("Content-Security-Policy"), "default-src 'self'")
	assert.Contains(t, h.Get("Content-Security-Policy"), "frame-ancestors 'none'")
	assert.Contains(t, h.Get("Permissions-Policy"), "camera=()")

	// HSTS only applies to TLS requests
	assert.Empty(t, h.Get("Strict-Transport-Security"))
}

func TestSecureHeaders_HSTSOverTLS(t *testing.T) {
	sh := DefaultSecureHeaders()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "https://statements.example/api/health", nil)
	r.TLS = &tls.ConnectionState{}
	sh.Handler(next).ServeHTTP(w, r)

	hsts := w.Header().Get("Strict-Transport-Security")
	assert.Contains(t, hsts, "max-age=63072000")
	assert.Contains(t, hsts, "includeSubDomains")
	assert.Contains(t, hsts, "preload")
}

func TestSecureHeaders_DevMode(t *testing.T) {
	sh := DefaultSecureHeaders()
	sh.DevMode = true
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	w := httptest.NewRecorder()
	sh.Handler(next).ServeHTTP(w, httptest.NewRequest("GET", "/api/health", nil))

	h := w.Header()
	// Dev mode sends HSTS without TLS but skips the default CSP
	assert.NotEmpty(t, h.Get("Strict-Transport-Security"))
	assert.Empty(t, h.Get("Content-Security-Policy"))
	assert.Empty(t, h.Get("Permissions-Policy"))
}

func TestSecureHeaders_CustomCSP(t *testing.T) {
	sh := DefaultSecureHeaders()
	sh.ContentSecurityPolicy = "default-src 'none'"
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	w := httptest.NewRecorder()
	sh.Handler(next).ServeHTTP(w, httptest.NewRequest("GET", "/api/health", nil))

	assert.Equal(t, "default-src 'none'", w.Header().Get("Content-Security-Policy"))
}

func TestAuditLog(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(strings.Repeat("x", 512)))
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api/exports/26AS_AAAPA1234A_2023-24.xlsx?format=xlsx", nil)
	r.Header.Set("User-Agent", "taxledger-test/1.0")
	AuditLog(logger)(next).ServeHTTP(w, r)

	records := handler.GetRecords()
	require.Len(t, records, 2)

	access := records[0]
	assert.Equal(t, "audit log", access.Message)
	assert.Equal(t, "export_access", access.Attrs["event_type"])
	assert.Equal(t, "GET", access.Attrs["method"])
	assert.Equal(t, "/api/exports/26AS_AAAPA1234A_2023-24.xlsx", access.Attrs["path"])
	assert.Equal(t, "format=xlsx", access.Attrs["query"])
	assert.Equal(t, "taxledger-test/1.0", access.Attrs["user_agent"])

	response := records[1]
	assert.Equal(t, "audit log complete", response.Message)
	assert.Equal(t, "export_response", response.Attrs["event_type"])
	assert.Equal(t, int64(http.StatusOK), response.Attrs["status"])
	assert.Equal(t, int64(512), response.Attrs["bytes"])
	assert.NotEmpty(t, response.Attrs["duration"])
}

func TestAuditLog_CapturesErrorStatus(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	w := httptest.NewRecorder()
	AuditLog(logger)(next).ServeHTTP(w, httptest.NewRequest("GET", "/api/exports/missing.xlsx", nil))

	records := handler.GetRecordsByLevel(slog.LevelInfo)
	require.Len(t, records, 2)
	assert.Equal(t, int64(http.StatusNotFound), records[1].Attrs["status"])
}
