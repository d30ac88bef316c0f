package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"taxledger/internal/infrastructure"
	"taxledger/internal/shared/testutil"
)

// newOTelProviders builds providers on bare SDK tracer and meter providers
// so tests record spans and metrics without exporters or global registries.
func newOTelProviders(t *testing.T) (*infrastructure.OTelProviders, *testutil.BufferedSlogHandler) {
	t.Helper()

	logger, logHandler := testutil.NewTestLogger(t)
	tp := sdktrace.NewTracerProvider()
	mp := sdkmetric.NewMeterProvider()
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})

	return &infrastructure.OTelProviders{
		TracerProvider: tp,
		MeterProvider:  mp,
		Tracer:         tp.Tracer("taxledger-test"),
		Meter:          mp.Meter("taxledger-test"),
		Logger:         logger,
	}, logHandler
}

func TestNewOTelMiddleware(t *testing.T) {
	providers, _ := newOTelProviders(t)

	m, err := NewOTelMiddleware(providers, nil)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.NotNil(t, m.metrics, "nil metrics should be replaced with a fresh set")
}

func TestNewOTelMiddleware_SharedMetrics(t *testing.T) {
	providers, _ := newOTelProviders(t)

	metrics, err := infrastructure.CreatePipelineMetrics(providers.Meter)
	require.NoError(t, err)

	m, err := NewOTelMiddleware(providers, metrics)
	require.NoError(t, err)
	assert.Same(t, metrics, m.metrics)
}

func TestOTelMiddleware_Handler(t *testing.T) {
	providers, logHandler := newOTelProviders(t)

	m, err := NewOTelMiddleware(providers, nil)
	require.NoError(t, err)

	var ctxTraceID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxTraceID = infrastructure.GetTraceID(r.Context())
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"filename":"26AS_AAAPA1234A_2023-24.xlsx"}`))
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/api/statements", nil)
	r.Header.Set("User-Agent", "taxledger-test/1.0")
	m.Handler(next).ServeHTTP(w, r)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.NotEmpty(t, ctxTraceID, "trace ID should be injected into the request context")

	record, found := findCompletionRecord(logHandler)
	require.True(t, found, "expected a completion log record")
	assert.Equal(t, "POST", record.Attrs["method"])
	assert.Equal(t, "/api/statements", record.Attrs["path"])
	assert.Equal(t, int64(http.StatusCreated), record.Attrs["status_code"])
	assert.Equal(t, ctxTraceID, record.Attrs["trace_id"])
	assert.Equal(t, int64(43), record.Attrs["bytes_written"])
}

func TestOTelMiddleware_Handler_ErrorStatus(t *testing.T) {
	providers, logHandler := newOTelProviders(t)

	m, err := NewOTelMiddleware(providers, nil)
	require.NoError(t, err)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	w := httptest.NewRecorder()
	m.Handler(next).ServeHTTP(w, httptest.NewRequest("GET", "/api/exports/missing.xlsx", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	record, found := findCompletionRecord(logHandler)
	require.True(t, found)
	assert.Equal(t, int64(http.StatusInternalServerError), record.Attrs["status_code"])
}

func findCompletionRecord(h *testutil.BufferedSlogHandler) (testutil.LogRecord, bool) {
	for _, record := range h.GetRecords() {
		if record.Message == "HTTP request completed" {
			return record, true
		}
	}
	return testutil.LogRecord{}, false
}

func TestTraceMiddleware(t *testing.T) {
	reached := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	})

	w := httptest.NewRecorder()
	TraceMiddleware("extract_statement")(next).ServeHTTP(w, httptest.NewRequest("POST", "/api/statements", nil))

	assert.True(t, reached)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetRealIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{
			name:    "x-forwarded-for wins",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.7", "X-Real-IP": "198.51.100.9"},
			remote:  "10.0.0.1:5000",
			want:    "203.0.113.7",
		},
		{
			name:    "x-real-ip fallback",
			headers: map[string]string{"X-Real-IP": "198.51.100.9"},
			remote:  "10.0.0.1:5000",
			want:    "198.51.100.9",
		},
		{
			name:   "remote addr fallback",
			remote: "10.0.0.1:5000",
			want:   "10.0.0.1:5000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/health", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, GetRealIP(r))
		})
	}
}

func TestGetRoutePattern(t *testing.T) {
	t.Run("chi route pattern", func(t *testing.T) {
		var pattern string
		router := chi.NewRouter()
		router.Get("/api/exports/{filename}", func(w http.ResponseWriter, r *http.Request) {
			pattern = getRoutePattern(r)
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/api/exports/ledger.xlsx", nil))

		assert.Equal(t, "/api/exports/{filename}", pattern)
	})

	t.Run("falls back to url path", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/health", nil)
		assert.Equal(t, "/api/health", getRoutePattern(r))
	})
}
