package api

import (
	"time"

	"taxledger/pkg/contracts/domain"
)

// Response is the standard success envelope
type Response struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data,omitempty"`
}

// NewSuccessResponse wraps a payload in the success envelope
func NewSuccessResponse(data interface{}) Response {
	return Response{
		Status: "success",
		Data:   data,
	}
}

// StatementData is the payload of a successful extraction
type StatementData struct {
	Assessee          domain.AssesseeInfo        `json:"assessee"`
	Transactions      []domain.TransactionRecord `json:"transactions"`
	TotalTransactions int                        `json:"total_transactions"`
	EmptyResult       bool                       `json:"empty_result"`
	Stats             domain.ExtractionStats     `json:"stats"`
}

// ExportData is the payload of a successful export
type ExportData struct {
	Filename    string `json:"filename"`
	DownloadURL string `json:"download_url"`
	Format      string `json:"format"`
	SizeBytes   int64  `json:"size_bytes"`
	TotalRows   int    `json:"total_rows"`
}

// ExportFileData describes one stored export in a listing
type ExportFileData struct {
	Filename    string    `json:"filename"`
	DownloadURL string    `json:"download_url"`
	SizeBytes   int64     `json:"size_bytes"`
	ModifiedAt  time.Time `json:"modified_at"`
}

// UsageData is the usage counter snapshot payload
type UsageData struct {
	FilesProcessed        int64      `json:"files_processed"`
	TransactionsExtracted int64      `json:"transactions_extracted"`
	LastProcessedAt       *time.Time `json:"last_processed_at,omitempty"`
}
