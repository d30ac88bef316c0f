package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxledger/internal/config"
	"taxledger/internal/exporter"
	"taxledger/internal/files"
	"taxledger/internal/services"
)

func newTestHealthHandler(t *testing.T) *HealthHandler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	paths := config.GetPathsWithBase(t.TempDir())
	require.NoError(t, paths.EnsureDirectories())
	store := files.NewStore(paths)
	usage, err := services.NewUsageTracker(exporter.NewCSVWriter(paths), paths, logger)
	require.NoError(t, err)
	service := services.NewHealthService("1.2.3", paths, store, usage, nil, logger)
	return NewHealthHandler(service, logger)
}

func TestHealthHandler_Endpoints(t *testing.T) {
	handler := newTestHealthHandler(t)
	router := handler.Routes()

	tests := []struct {
		name          string
		endpoint      string
		expectedCode  int
		checkResponse func(t *testing.T, body []byte)
	}{
		{
			name:         "health check",
			endpoint:     "/",
			expectedCode: http.StatusOK,
			checkResponse: func(t *testing.T, body []byte) {
				var status services.HealthStatus
				require.NoError(t, json.Unmarshal(body, &status))
				assert.Equal(t, "ok", status.Status)
				assert.Equal(t, "1.2.3", status.Version)
			},
		},
		{
			name:         "readiness check",
			endpoint:     "/ready",
			expectedCode: http.StatusOK,
			checkResponse: func(t *testing.T, body []byte) {
				var status services.HealthStatus
				require.NoError(t, json.Unmarshal(body, &status))
				assert.Equal(t, "ready", status.Status)
				assert.Contains(t, status.Services, "data")
				assert.Contains(t, status.Services, "exports")
				assert.Contains(t, status.Services, "usage")
			},
		},
		{
			name:         "liveness check",
			endpoint:     "/live",
			expectedCode: http.StatusOK,
			checkResponse: func(t *testing.T, body []byte) {
				var status services.HealthStatus
				require.NoError(t, json.Unmarshal(body, &status))
				assert.Equal(t, "alive", status.Status)
				assert.Contains(t, status.Runtime, "goroutines")
			},
		},
		{
			name:         "system stats",
			endpoint:     "/stats",
			expectedCode: http.StatusOK,
			checkResponse: func(t *testing.T, body []byte) {
				var stats services.SystemStats
				require.NoError(t, json.Unmarshal(body, &stats))
				assert.Zero(t, stats.ExportCount)
				assert.NotEmpty(t, stats.GoVersion)
			},
		},
		{
			name:         "detailed health",
			endpoint:     "/detailed",
			expectedCode: http.StatusOK,
			checkResponse: func(t *testing.T, body []byte) {
				var detailed map[string]interface{}
				require.NoError(t, json.Unmarshal(body, &detailed))
				assert.Contains(t, detailed, "health")
				assert.Contains(t, detailed, "readiness")
				assert.Contains(t, detailed, "liveness")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.endpoint, nil))

			assert.Equal(t, tt.expectedCode, w.Code)
			if tt.checkResponse != nil {
				tt.checkResponse(t, w.Body.Bytes())
			}
		})
	}
}

func TestHealthHandler_ReadinessNotReady(t *testing.T) {
	// Point the data tree at a base that was never created.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	paths := config.GetPathsWithBase(t.TempDir() + "/ghost")
	service := services.NewHealthService("1.2.3", paths, files.NewStore(paths), nil, nil, logger)
	handler := NewHealthHandler(service, logger)

	w := httptest.NewRecorder()
	handler.ReadinessCheck(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "not_ready")
}

func TestHealthHandler_Version(t *testing.T) {
	handler := newTestHealthHandler(t)
	w := httptest.NewRecorder()
	handler.Version(w, httptest.NewRequest(http.MethodGet, "/version", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var version map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &version))
	assert.Equal(t, "1.2.3", version["version"])
	assert.Contains(t, version, "uptime")
	assert.Contains(t, version, "go_version")
}
