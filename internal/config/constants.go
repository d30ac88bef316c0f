package config

import "time"

// Application constants - all hardcoded values for the taxledger system
const (
	// Application Info
	AppName    = "TaxLedger"
	AppVersion = "1.2.0"

	// Statement Upload Constraints
	UploadFileExt  = ".pdf"
	PDFHeaderMagic = "%PDF-"
	MaxUploadSize  = 50 * 1024 * 1024 // 50MB
	MinUploadSize  = 64               // smaller than any viable PDF

	// Rate Limiting
	DefaultRateLimit = 100 // requests per minute
	DefaultBurstSize = 50

	// Network Timeouts
	DefaultHTTPTimeout = 30 * time.Second

	// File Paths (relative to executable)
	DefaultDataDir    = "data"
	DefaultLogsDir    = "logs"
	DefaultUploadsDir = "data/uploads"
	DefaultExportsDir = "data/exports"
	DefaultCacheDir   = "data/cache"

	// Extraction Settings
	DefaultPageWorkers       = 4
	DefaultExtractionTimeout = 2 * time.Minute

	// Export Retention
	DefaultExportRetention = 30 * 24 * time.Hour
	DefaultRetentionSweep  = 1 * time.Hour

	// Log Settings
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "json"
	MaxLogFileSize    = 100 * 1024 * 1024 // 100MB
	MaxLogFileAge     = 30                // days
	MaxLogFileBackups = 10

	// Export Naming
	ExportFilePrefix = "26AS_"
	UnknownLabel     = "Unknown"

	// API Endpoints (internal)
	APIBasePath        = "/api"
	StatementsEndpoint = "/api/statements"
	ExportsEndpoint    = "/api/exports"
	HealthEndpoint     = "/health"
	MetricsEndpoint    = "/metrics"
)

// Error Messages
const (
	ErrStatementInvalid   = "The uploaded file is not a readable PDF document."
	ErrStatementEmpty     = "No extractable pages were found in the statement."
	ErrStatementTooLarge  = "The uploaded file exceeds the maximum allowed size."
	ErrExportNotFound     = "The requested export file does not exist or has been removed."
	ErrStatementWrongType = "Only PDF statements are accepted for extraction."
)
