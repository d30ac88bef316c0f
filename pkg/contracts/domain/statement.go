package domain

import (
	"time"
)

// AssesseeInfo is the taxpayer identity block extracted from the front
// matter of a Form 26AS statement. Every field is always present in JSON;
// a value the document did not carry is an empty string, never omitted.
type AssesseeInfo struct {
	Name           string `json:"name"`
	PAN            string `json:"pan" validate:"omitempty,len=10"`
	FinancialYear  string `json:"financial_year"`
	AssessmentYear string `json:"assessment_year"`
	Address        string `json:"address"`
}

// IsEmpty reports whether no identity field at all was recovered.
func (a AssesseeInfo) IsEmpty() bool {
	return a.Name == "" && a.PAN == "" && a.FinancialYear == "" &&
		a.AssessmentYear == "" && a.Address == ""
}

// TransactionRecord is one TDS entry from the statement's transaction
// table. Dates keep the statement's dd-MMM-yyyy text form; a date that
// failed to parse keeps its raw cell text. Amounts are normalized to
// non-negative two-decimal values.
type TransactionRecord struct {
	SrNo            int     `json:"sr_no" validate:"min=1"`
	DeductorName    string  `json:"deductor_name"`
	DeductorTAN     string  `json:"deductor_tan" validate:"omitempty,len=10"`
	Section         string  `json:"section"`
	TransactionDate string  `json:"transaction_date"`
	Status          string  `json:"status" validate:"omitempty,len=1"`
	DateOfBooking   string  `json:"date_of_booking"`
	AmountPaid      float64 `json:"amount_paid" validate:"min=0"`
	TaxDeducted     float64 `json:"tax_deducted" validate:"min=0"`
	TDSDeposited    float64 `json:"tds_deposited" validate:"min=0"`
	NetAmount       float64 `json:"net_amount"`
	Rate            float64 `json:"rate"`
	PageNumber      int     `json:"page_number" validate:"min=1"`
}

// Booking status codes printed in the statement's status column.
const (
	BookingStatusFinal       = "F"
	BookingStatusUnmatched   = "U"
	BookingStatusOverbooked  = "O"
	BookingStatusProvisional = "P"
)

// ExtractionStats records how a run went. Warning counters grow as pages
// or cells degrade; they never turn a run into a failure on their own.
type ExtractionStats struct {
	PageCount      int       `json:"page_count"`
	PagesFailed    int       `json:"pages_failed"`
	RowsSkipped    int       `json:"rows_skipped"`
	CellsDefaulted int       `json:"cells_defaulted"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	ElapsedMS      int64     `json:"elapsed_ms"`
}

// ExtractionResult is the unit of output of one extraction run.
// Transactions keep extraction order (page order, then row order within a
// page) and are never re-sorted.
type ExtractionResult struct {
	Assessee     AssesseeInfo        `json:"assessee"`
	Transactions []TransactionRecord `json:"transactions"`
	Stats        ExtractionStats     `json:"stats"`
}

// IsEmpty reports the zero-transactions state. It is a valid result,
// distinct from an extraction failure, and callers render it differently.
func (r *ExtractionResult) IsEmpty() bool {
	return len(r.Transactions) == 0
}
