// Package config provides centralized configuration management for the taxledger system.
// It handles loading configuration from multiple sources, validation, and provides
// a type-safe API for accessing configuration values throughout the application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. Configuration file (YAML)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern TAXLEDGER_* for namespacing:
//
//	TAXLEDGER_SERVER_PORT=8080
//	TAXLEDGER_LOGGING_LEVEL=info
//	TAXLEDGER_EXTRACTION_PAGE_WORKERS=8
//	TAXLEDGER_EXTRACTION_MAX_UPLOAD_SIZE=52428800
//	TAXLEDGER_EXPORTS_RETENTION_AGE=720h
//
// The config file location itself can be overridden with TAXLEDGER_CONFIG;
// otherwise config.yaml is looked up next to the working directory and under
// configs/.
//
// # Path Management
//
// The package provides centralized path management through the Paths type,
// which handles all file system paths relative to the executable location:
//
//	paths, err := config.GetPaths()
//	uploadPath := paths.GetUploadPath("statement.pdf")
//	exportPath := paths.GetExportPath("26AS_ABCDE1234F_2024_25_20250612_154500.xlsx")
//
// Tests and the command line tool root the same layout at an arbitrary
// directory with GetPathsWithBase.
//
// # Validation
//
// All configuration is validated at load time to ensure:
//
//	- Values are within acceptable ranges
//	- Worker counts and timeouts are sane
//	- Required directories exist or can be created
//
// # Usage
//
// Load configuration at application startup:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
