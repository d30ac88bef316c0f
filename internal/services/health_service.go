package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"taxledger/internal/config"
	"taxledger/internal/files"
	"taxledger/internal/infrastructure"
)

// HealthService provides health check functionality
type HealthService struct {
	version   string
	buildTime string
	buildID   string
	paths     *config.Paths
	store     *files.Store
	usage     *UsageTracker
	collector *infrastructure.SystemMetricsCollector
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// SystemStats represents system statistics
type SystemStats struct {
	UptimeSeconds         float64 `json:"uptime_seconds"`
	ExportCount           int     `json:"export_count"`
	ExportSizeBytes       int64   `json:"export_size_bytes"`
	FilesProcessed        int64   `json:"files_processed"`
	TransactionsExtracted int64   `json:"transactions_extracted"`
	Goroutines            int64   `json:"goroutines"`
	MemoryAllocated       int64   `json:"memory_allocated_bytes"`
	GoVersion             string  `json:"go_version"`
	OS                    string  `json:"os"`
	Arch                  string  `json:"arch"`
}

// NewHealthService creates a new health service with injected dependencies and default build info
func NewHealthService(version string, paths *config.Paths, store *files.Store, usage *UsageTracker, collector *infrastructure.SystemMetricsCollector, logger *slog.Logger) *HealthService {
	return NewHealthServiceWithBuildInfo(version, "", "", paths, store, usage, collector, logger)
}

// NewHealthServiceWithBuildInfo creates a new health service with build information
func NewHealthServiceWithBuildInfo(version, buildTime, buildID string, paths *config.Paths, store *files.Store, usage *UsageTracker, collector *infrastructure.SystemMetricsCollector, logger *slog.Logger) *HealthService {
	// Ensure we have a logger
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("HealthService initialized",
		slog.String("version", version),
		slog.String("build_time", buildTime),
		slog.String("build_id", buildID))

	return &HealthService{
		version:   version,
		buildTime: buildTime,
		buildID:   buildID,
		paths:     paths,
		store:     store,
		usage:     usage,
		collector: collector,
		startTime: time.Now(),
		logger:    logger,
	}
}

// NewHealthServiceWithLogger creates a health service without collaborators,
// reporting version and liveness only
func NewHealthServiceWithLogger(version string, logger *slog.Logger) *HealthService {
	// Ensure we have a logger
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("HealthService initialized",
		slog.String("version", version))

	return &HealthService{
		version:   version,
		startTime: time.Now(),
		logger:    logger,
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.Debug("HealthCheck: performing health check",
		slog.String("version", hs.version),
		slog.String("uptime", time.Since(hs.startTime).String()))

	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck returns readiness status
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services:  make(map[string]interface{}),
	}

	// Check individual services
	status.Services["data"] = hs.checkDataHealth()
	status.Services["exports"] = hs.checkExportsHealth()
	status.Services["usage"] = hs.checkUsageHealth()

	// Determine overall readiness
	allReady := true
	for _, service := range status.Services {
		if sh, ok := service.(ServiceHealth); ok && sh.Status != "ready" {
			allReady = false
			break
		}
	}

	if !allReady {
		status.Status = "not_ready"
	}

	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	result := map[string]interface{}{
		"version":      hs.version,
		"go_version":   runtime.Version(),
		"os":           runtime.GOOS,
		"arch":         runtime.GOARCH,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}

	// Include build info if available
	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}
	if hs.buildID != "" {
		result["build_id"] = hs.buildID
	}

	return result
}

// SystemStats returns system statistics
func (hs *HealthService) SystemStats(ctx context.Context) (SystemStats, error) {
	stats := SystemStats{
		UptimeSeconds: time.Since(hs.startTime).Seconds(),
		GoVersion:     runtime.Version(),
		OS:            runtime.GOOS,
		Arch:          runtime.GOARCH,
	}

	if hs.store != nil {
		if exports, err := hs.store.List(); err == nil {
			stats.ExportCount = len(exports)
			for _, f := range exports {
				stats.ExportSizeBytes += f.Size
			}
		}
	}

	if hs.usage != nil {
		usage := hs.usage.Snapshot()
		stats.FilesProcessed = usage.FilesProcessed
		stats.TransactionsExtracted = usage.TransactionsExtracted
	}

	if hs.collector != nil {
		if rt := hs.collector.GetCurrentStats(ctx); rt != nil {
			stats.Goroutines = rt.GoRoutines
			stats.MemoryAllocated = rt.MemoryAllocated
		}
	}

	return stats, nil
}

// checkDataHealth checks that the data directories exist and are writable
func (hs *HealthService) checkDataHealth() ServiceHealth {
	if hs.paths == nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: "paths not configured",
		}
	}

	dataDir := hs.paths.DataDir
	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("Data directory not found: %s", dataDir),
		}
	}

	// Check if we can write to the data tree
	if err := os.MkdirAll(hs.paths.UploadsDir, 0755); err != nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("Cannot write to data directory: %v", err),
		}
	}

	return ServiceHealth{
		Status:  "ready",
		Message: "Data directories are accessible",
	}
}

// checkExportsHealth checks that the export store responds
func (hs *HealthService) checkExportsHealth() ServiceHealth {
	if hs.store == nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: "export store not initialized",
		}
	}

	if _, err := hs.store.List(); err != nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("Export store error: %v", err),
		}
	}

	return ServiceHealth{
		Status:  "ready",
		Message: "Export store is healthy",
		Uptime:  time.Since(hs.startTime).String(),
	}
}

// checkUsageHealth checks that usage tracking is available
func (hs *HealthService) checkUsageHealth() ServiceHealth {
	if hs.usage == nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: "usage tracker not initialized",
		}
	}

	return ServiceHealth{
		Status:  "ready",
		Message: "Usage tracking is healthy",
	}
}

// GetDetailedHealth returns comprehensive health information
func (hs *HealthService) GetDetailedHealth(ctx context.Context) map[string]interface{} {
	stats, _ := hs.SystemStats(ctx)

	detailed := map[string]interface{}{
		"health":    hs.HealthCheck(ctx),
		"readiness": hs.ReadinessCheck(ctx),
		"liveness":  hs.LivenessCheck(ctx),
		"stats":     stats,
	}

	if hs.usage != nil {
		detailed["usage"] = hs.usage.Snapshot()
	}

	return detailed
}
