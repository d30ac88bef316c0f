// Package api contains API contract definitions for the statement service.
// Version v1 represents the current stable API version.
package api

import (
	"taxledger/pkg/contracts/domain"
)

// Statement API Requests

// StatementExportRequest carries an extraction result back for export as a
// ledger file. The payload is the client's copy of a previous extract
// response; an empty transaction list exports a header-only ledger.
type StatementExportRequest struct {
	AssesseeInfo domain.AssesseeInfo        `json:"assessee_info"`
	Transactions []domain.TransactionRecord `json:"transactions" validate:"omitempty,dive"`
	Format       string                     `json:"format,omitempty" validate:"omitempty,oneof=xlsx csv"`
}

// ExportDownloadRequest names a stored export to stream back
type ExportDownloadRequest struct {
	Filename string `json:"filename" param:"filename" validate:"required,filename"`
}
