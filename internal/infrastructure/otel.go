package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"taxledger/internal/config"
)

const (
	ServiceName    = "taxledger"
	ServiceVersion = config.AppVersion
	MeterName      = "taxledger"
)

// OTelConfig holds OpenTelemetry configuration
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	TraceExporter  string // "stdout", "none"
	MetricExporter string // "prometheus", "none"
	EnableMetrics  bool
	EnableTracing  bool
	SampleRatio    float64
}

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// DefaultOTelConfig returns a default OpenTelemetry configuration
func DefaultOTelConfig() *OTelConfig {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	return &OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: ServiceVersion,
		Environment:    env,
		TraceExporter:  "stdout", // Use stdout for development
		MetricExporter: "prometheus",
		EnableMetrics:  true,
		EnableTracing:  true,
		SampleRatio:    1.0, // Sample all traces in development
	}
}

// InitializeOTel initializes OpenTelemetry tracing and metrics
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = DefaultOTelConfig()
	}

	ctx := context.Background()

	logger.InfoContext(ctx, "Initializing OpenTelemetry",
		slog.String("service", cfg.ServiceName),
		slog.String("version", cfg.ServiceVersion),
		slog.String("environment", cfg.Environment),
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	// Create resource
	res, err := createResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	providers := &OTelProviders{
		Logger: logger,
	}

	// Initialize tracing
	if cfg.EnableTracing {
		if err := initializeTracing(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	// Initialize metrics
	if cfg.EnableMetrics {
		if err := initializeMetrics(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	// Set up global propagators for trace context
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.InfoContext(ctx, "OpenTelemetry initialization complete",
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	return providers, nil
}

// createResource creates the OpenTelemetry resource
func createResource(cfg *OTelConfig) (*resource.Resource, error) {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", generateInstanceID()),
	), nil
}

// initializeTracing sets up OpenTelemetry tracing
func initializeTracing(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	var exporter sdktrace.SpanExporter
	var err error

	switch cfg.TraceExporter {
	case "stdout":
		exporter, err = stdouttrace.New(
			stdouttrace.WithPrettyPrint(),
		)
	case "none":
		// No exporter - tracing disabled
		return nil
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}

	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	// Create tracer provider
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
	)

	providers.TracerProvider = tp
	providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))

	// Set global tracer provider
	otel.SetTracerProvider(tp)

	providers.Logger.InfoContext(ctx, "Tracing initialized",
		slog.String("exporter", cfg.TraceExporter),
		slog.Float64("sample_ratio", cfg.SampleRatio))

	return nil
}

// initializeMetrics sets up OpenTelemetry metrics
func initializeMetrics(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	switch cfg.MetricExporter {
	case "prometheus":
		// Create Prometheus exporter
		exporter, err := prometheus.New()
		if err != nil {
			return fmt.Errorf("failed to create prometheus exporter: %w", err)
		}

		// Create Prometheus HTTP handler
		providers.PrometheusHTTP = promhttp.Handler()

		// Create meter provider with Prometheus reader
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)

		providers.MeterProvider = mp
		providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))

		// Set global meter provider
		otel.SetMeterProvider(mp)

	case "none":
		// No exporter - metrics disabled
		return nil
	default:
		return fmt.Errorf("unsupported metric exporter: %s", cfg.MetricExporter)
	}

	providers.Logger.InfoContext(ctx, "Metrics initialized",
		slog.String("exporter", cfg.MetricExporter))

	return nil
}

// CreatePipelineMetrics creates application-specific metrics
func CreatePipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	// HTTP metrics
	httpRequestsTotal, err := meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	httpRequestDuration, err := meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	httpActiveRequests, err := meter.Int64UpDownCounter(
		"http_active_requests",
		metric.WithDescription("Number of active HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	// Extraction metrics
	extractionsTotal, err := meter.Int64Counter(
		"statement_extractions_total",
		metric.WithDescription("Total number of statement extractions"),
	)
	if err != nil {
		return nil, err
	}

	extractionDuration, err := meter.Float64Histogram(
		"statement_extraction_duration_seconds",
		metric.WithDescription("Statement extraction duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	extractionPages, err := meter.Int64Counter(
		"statement_pages_total",
		metric.WithDescription("Total number of statement pages processed"),
	)
	if err != nil {
		return nil, err
	}

	extractionPageFailures, err := meter.Int64Counter(
		"statement_page_failures_total",
		metric.WithDescription("Total number of pages that failed text extraction"),
	)
	if err != nil {
		return nil, err
	}

	extractionRows, err := meter.Int64Counter(
		"transaction_rows_total",
		metric.WithDescription("Total number of transaction rows extracted"),
	)
	if err != nil {
		return nil, err
	}

	extractionRowsSkipped, err := meter.Int64Counter(
		"transaction_rows_skipped_total",
		metric.WithDescription("Total number of malformed rows skipped"),
	)
	if err != nil {
		return nil, err
	}

	extractionCellsDefaulted, err := meter.Int64Counter(
		"transaction_cells_defaulted_total",
		metric.WithDescription("Total number of unparseable cells defaulted to zero"),
	)
	if err != nil {
		return nil, err
	}

	extractionEmptyResults, err := meter.Int64Counter(
		"statement_empty_results_total",
		metric.WithDescription("Total number of extractions that yielded no transactions"),
	)
	if err != nil {
		return nil, err
	}

	extractionErrors, err := meter.Int64Counter(
		"statement_extraction_errors_total",
		metric.WithDescription("Total number of failed extractions"),
	)
	if err != nil {
		return nil, err
	}

	activeExtractions, err := meter.Int64UpDownCounter(
		"statement_active_extractions",
		metric.WithDescription("Number of extractions currently in progress"),
	)
	if err != nil {
		return nil, err
	}

	// Export metrics
	exportsTotal, err := meter.Int64Counter(
		"exports_total",
		metric.WithDescription("Total number of ledger exports"),
	)
	if err != nil {
		return nil, err
	}

	exportDuration, err := meter.Float64Histogram(
		"export_duration_seconds",
		metric.WithDescription("Ledger export duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	exportBytes, err := meter.Int64Counter(
		"export_bytes_total",
		metric.WithDescription("Total bytes written by ledger exports"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	exportSweeps, err := meter.Int64Counter(
		"export_sweeps_total",
		metric.WithDescription("Total number of export retention sweeps"),
	)
	if err != nil {
		return nil, err
	}

	exportFilesRemoved, err := meter.Int64Counter(
		"export_files_removed_total",
		metric.WithDescription("Total number of expired export files removed"),
	)
	if err != nil {
		return nil, err
	}

	// System metrics
	systemErrors, err := meter.Int64Counter(
		"system_errors_total",
		metric.WithDescription("Total number of system errors"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		// HTTP metrics
		HTTPRequestsTotal:   httpRequestsTotal,
		HTTPRequestDuration: httpRequestDuration,
		HTTPActiveRequests:  httpActiveRequests,

		// Extraction metrics
		ExtractionsTotal:         extractionsTotal,
		ExtractionDuration:       extractionDuration,
		ExtractionPages:          extractionPages,
		ExtractionPageFailures:   extractionPageFailures,
		ExtractionRows:           extractionRows,
		ExtractionRowsSkipped:    extractionRowsSkipped,
		ExtractionCellsDefaulted: extractionCellsDefaulted,
		ExtractionEmptyResults:   extractionEmptyResults,
		ExtractionErrors:         extractionErrors,
		ActiveExtractions:        activeExtractions,

		// Export metrics
		ExportsTotal:       exportsTotal,
		ExportDuration:     exportDuration,
		ExportBytes:        exportBytes,
		ExportSweeps:       exportSweeps,
		ExportFilesRemoved: exportFilesRemoved,

		// System metrics
		SystemErrors: systemErrors,
	}, nil
}

// PipelineMetrics holds metrics for the extraction pipeline
type PipelineMetrics struct {
	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	// Extraction metrics
	ExtractionsTotal         metric.Int64Counter
	ExtractionDuration       metric.Float64Histogram
	ExtractionPages          metric.Int64Counter
	ExtractionPageFailures   metric.Int64Counter
	ExtractionRows           metric.Int64Counter
	ExtractionRowsSkipped    metric.Int64Counter
	ExtractionCellsDefaulted metric.Int64Counter
	ExtractionEmptyResults   metric.Int64Counter
	ExtractionErrors         metric.Int64Counter
	ActiveExtractions        metric.Int64UpDownCounter

	// Export metrics
	ExportsTotal       metric.Int64Counter
	ExportDuration     metric.Float64Histogram
	ExportBytes        metric.Int64Counter
	ExportSweeps       metric.Int64Counter
	ExportFilesRemoved metric.Int64Counter

	// System metrics
	SystemErrors metric.Int64Counter
}

// Shutdown gracefully shuts down OpenTelemetry providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}

	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("opentelemetry shutdown errors: %v", errs)
	}

	p.Logger.InfoContext(ctx, "OpenTelemetry shutdown complete")
	return nil
}

// generateInstanceID generates a unique instance identifier
func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().UnixNano())
}

// TraceIDFromContext extracts trace ID from context for logging correlation
func TraceIDFromContext(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		return spanCtx.TraceID().String()
	}
	return ""
}

// SpanFromContext returns the current span from context
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// AddSpanEvent adds an event to the current span with structured attributes
func AddSpanEvent(ctx context.Context, name string, attributes map[string]interface{}) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	attrs := make([]attribute.KeyValue, 0, len(attributes))
	for k, v := range attributes {
		switch val := v.(type) {
		case string:
			attrs = append(attrs, attribute.String(k, val))
		case int:
			attrs = append(attrs, attribute.Int(k, val))
		case int64:
			attrs = append(attrs, attribute.Int64(k, val))
		case float64:
			attrs = append(attrs, attribute.Float64(k, val))
		case bool:
			attrs = append(attrs, attribute.Bool(k, val))
		default:
			attrs = append(attrs, attribute.String(k, fmt.Sprintf("%v", val)))
		}
	}

	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error, options ...trace.EventOption) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.RecordError(err, options...)
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanAttributes sets attributes on the current span
func SetSpanAttributes(ctx context.Context, attributes map[string]interface{}) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	for k, v := range attributes {
		switch val := v.(type) {
		case string:
			span.SetAttributes(attribute.String(k, val))
		case int:
			span.SetAttributes(attribute.Int(k, val))
		case int64:
			span.SetAttributes(attribute.Int64(k, val))
		case float64:
			span.SetAttributes(attribute.Float64(k, val))
		case bool:
			span.SetAttributes(attribute.Bool(k, val))
		default:
			span.SetAttributes(attribute.String(k, fmt.Sprintf("%v", val)))
		}
	}
}

// RecordExtractionMetrics records counters and duration for one extraction run
func RecordExtractionMetrics(ctx context.Context, metrics *PipelineMetrics, pages, pagesFailed, rows, rowsSkipped, cellsDefaulted int64, duration time.Duration, success bool, err error) {
	if metrics == nil {
		return
	}

	statusAttr := attribute.String("status", "success")
	if !success {
		statusAttr = attribute.String("status", "failure")
	}

	metrics.ExtractionsTotal.Add(ctx, 1, metric.WithAttributes(statusAttr))
	metrics.ExtractionDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(statusAttr))

	metrics.ExtractionPages.Add(ctx, pages)
	metrics.ExtractionPageFailures.Add(ctx, pagesFailed)
	metrics.ExtractionRows.Add(ctx, rows)
	metrics.ExtractionRowsSkipped.Add(ctx, rowsSkipped)
	metrics.ExtractionCellsDefaulted.Add(ctx, cellsDefaulted)

	if success && rows == 0 {
		metrics.ExtractionEmptyResults.Add(ctx, 1)
	}

	if err != nil {
		metrics.ExtractionErrors.Add(ctx, 1,
			metric.WithAttributes(attribute.String("error.type", fmt.Sprintf("%T", err))))
	}

	// Add span event
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.AddEvent("extraction.metrics_recorded",
			trace.WithAttributes(
				attribute.Bool("success", success),
				attribute.Int64("pages", pages),
				attribute.Int64("rows", rows),
				attribute.Float64("duration_seconds", duration.Seconds()),
			),
		)
	}
}

// RecordActiveExtractionChange records changes in the in-flight extraction count
func RecordActiveExtractionChange(ctx context.Context, metrics *PipelineMetrics, delta int64) {
	if metrics == nil {
		return
	}

	metrics.ActiveExtractions.Add(ctx, delta)
}

// RecordExportMetrics records metrics for one ledger export
func RecordExportMetrics(ctx context.Context, metrics *PipelineMetrics, format string, sizeBytes int64, duration time.Duration, success bool) {
	if metrics == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("format", format),
	}

	statusAttr := attribute.String("status", "success")
	if !success {
		statusAttr = attribute.String("status", "failure")
	}
	totalAttrs := append(attrs, statusAttr)

	metrics.ExportsTotal.Add(ctx, 1, metric.WithAttributes(totalAttrs...))
	metrics.ExportDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))

	if sizeBytes > 0 {
		metrics.ExportBytes.Add(ctx, sizeBytes, metric.WithAttributes(attrs...))
	}
}

// RecordExportSweep records one retention sweep over the exports directory
func RecordExportSweep(ctx context.Context, metrics *PipelineMetrics, filesRemoved int64) {
	if metrics == nil {
		return
	}

	metrics.ExportSweeps.Add(ctx, 1)
	if filesRemoved > 0 {
		metrics.ExportFilesRemoved.Add(ctx, filesRemoved)
	}
}
