// Package services implements the business logic layer of the statement
// pipeline. It provides a clean separation between HTTP handlers and the
// extraction/export machinery, ensuring that business rules are centralized
// and testable.
//
// # Architecture
//
// Services follow these architectural principles:
//
//	1. Interface-driven design for testability
//	2. Context propagation for cancellation and tracing
//	3. Dependency injection for loose coupling
//	4. Domain-focused methods that encapsulate business rules
//
// # Service Layer Responsibilities
//
// The service layer is responsible for:
//
//	- Upload validation before extraction runs
//	- Extraction orchestration with deadlines
//	- Ledger export and the export store
//	- Cross-cutting concerns (logging, metrics)
//	- Error handling and transformation
//
// # Common Service Pattern
//
// Services typically follow this structure:
//
//	type ServiceName struct {
//	    dep    Dependency
//	    logger *slog.Logger
//	}
//
//	func NewServiceName(dep Dependency, logger *slog.Logger) *ServiceName {
//	    return &ServiceName{
//	        dep:    dep,
//	        logger: logger,
//	    }
//	}
//
//	func (s *ServiceName) BusinessOperation(ctx context.Context, input Input) (*Output, error) {
//	    // Validate input
//	    if err := input.Validate(); err != nil {
//	        return nil, fmt.Errorf("validation failed: %w", err)
//	    }
//
//	    // Execute business logic
//	    result, err := s.dep.Operation(ctx, input)
//	    if err != nil {
//	        s.logger.ErrorContext(ctx, "operation failed",
//	            "error", err,
//	        )
//	        return nil, fmt.Errorf("operation failed: %w", err)
//	    }
//
//	    return result, nil
//	}
//
// # Available Services
//
// The package provides these core services:
//
//	- StatementService: Validates uploads, runs extraction, exports ledgers
//	- HealthService: Provides system health checks and statistics
//	- UsageTracker: Counts processed statements across restarts
//
// # Error Handling
//
// Services return sentinel errors that handlers transform into HTTP
// problem responses:
//
//	- Validation sentinels from internal/validation for rejected uploads
//	- Extraction sentinels from internal/extraction for unreadable statements
//	- ErrExportNotFound and ErrInvalidFormat from this package
//
// # Testing
//
// Services are tested by substituting the Extractor interface:
//
//	extractor := &stubExtractor{result: canned}
//	service := NewStatementService(extractor, validator, store, csv, nil, nil, 0, logger)
//
//	result, err := service.Extract(ctx, "statement.pdf", payload)
package services
