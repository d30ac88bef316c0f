package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyRow(t *testing.T) {
	tests := []struct {
		name  string
		cells []string
		want  RowKind
	}{
		{"blank row", []string{"  ", ""}, RowNoise},
		{"document banner", []string{"Form 26AS", "Annual Tax Statement"}, RowNoise},
		{"booking legend", []string{"U - Unmatched", "F - Final"}, RowNoise},
		{"page footer", []string{"Page 2 of 4"}, RowNoise},
		{"part banner", []string{"PART A", "Details of Tax Deducted at Source"}, RowNoise},
		{"identity label", []string{"Permanent Account Number (PAN)", "ABCDE1234F"}, RowNoise},
		{
			name:  "deductor table header",
			cells: []string{"Sr. No.", "Name of Deductor", "TAN of Deductor", "Total Amount Paid / Credited", "Total Tax Deducted", "Total TDS Deposited"},
			want:  RowHeader,
		},
		{
			name:  "transaction table header",
			cells: []string{"Sr. No.", "Section", "Transaction Date", "Status of Booking*", "Date of Booking", "Remarks", "Amount Paid / Credited", "Tax Deducted", "TDS Deposited"},
			want:  RowHeader,
		},
		{"block total", []string{"Total", "1,00,000.00", "10,000.00", "10,000.00"}, RowSummary},
		{"grand total", []string{"Grand Total", "5,00,000.00"}, RowSummary},
		{"amount spill", []string{"8,333.00", "833.00", "833.00"}, RowContinuation},
		{"wrapped name", []string{"SOLUTIONS PRIVATE LIMITED"}, RowContinuation},
		{
			name:  "deductor caption",
			cells: []string{"1", "ACME ENGINEERING LTD", "DELA12345B", "1,00,000.00", "10,000.00", "10,000.00"},
			want:  RowData,
		},
		{
			name:  "transaction row",
			cells: []string{"1", "194A", "03-Apr-2023", "F", "05-Apr-2023", "-", "8,333.00", "833.00", "833.00"},
			want:  RowData,
		},
		{"serial with text", []string{"7", "carried forward"}, RowData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyRow(tt.cells))
		})
	}
}

func TestRowKindString(t *testing.T) {
	assert.Equal(t, "header", RowHeader.String())
	assert.Equal(t, "summary", RowSummary.String())
	assert.Equal(t, "continuation", RowContinuation.String())
	assert.Equal(t, "data", RowData.String())
	assert.Equal(t, "noise", RowNoise.String())
}

func deductorTableHeader() []string {
	return []string{"Sr. No.", "Name of Deductor", "TAN of Deductor", "Total Amount Paid / Credited", "Total Tax Deducted", "Total TDS Deposited"}
}

func transactionTableHeader() []string {
	return []string{"Sr. No.", "Section", "Transaction Date", "Status of Booking*", "Date of Booking", "Remarks", "Amount Paid / Credited", "Tax Deducted", "TDS Deposited"}
}

func TestTableParser_DeductorBlocks(t *testing.T) {
	p := newTableParser()
	rows := [][]string{
		deductorTableHeader(),
		{"1", "ACME ENGINEERING LTD", "DELA12345B", "16,666.00", "1,666.00", "1,666.00"},
		transactionTableHeader(),
		{"1", "194A", "03-Apr-2023", "F", "05-Apr-2023", "-", "8,333.00", "833.00", "833.00"},
		{"2", "194A", "03-Oct-2023", "F", "05-Oct-2023", "-", "8,333.00", "833.00", "833.00"},
		{"Total", "16,666.00", "1,666.00", "1,666.00"},
		{"2", "BHARAT SOFTWARE", "MUMB98765C", "50,000.00", "5,000.00", "5,000.00"},
		{"SOLUTIONS PRIVATE LIMITED"},
		{"1", "194J", "15-Jan-2024", "F", "20-Jan-2024", "-", "50,000.00", "5,000.00", "5,000.00"},
	}
	for _, cells := range rows {
		p.feed(2, cells)
	}

	require.Len(t, p.records, 3)

	first := p.records[0]
	assert.Equal(t, "ACME ENGINEERING LTD", first.deductorName)
	assert.Equal(t, "DELA12345B", first.tan)
	assert.Equal(t, "194A", first.section)
	assert.Equal(t, "03-Apr-2023", first.txnDate)
	assert.Equal(t, "05-Apr-2023", first.bookingDate)
	assert.Equal(t, "F", first.status)
	assert.Equal(t, "8,333.00", first.paid)
	assert.Equal(t, "833.00", first.tax)
	assert.Equal(t, "833.00", first.tds)
	assert.Equal(t, 2, first.page)

	// The caption of the second block wrapped onto a second line; the
	// transaction below it must see the full name.
	third := p.records[2]
	assert.Equal(t, "BHARAT SOFTWARE SOLUTIONS PRIVATE LIMITED", third.deductorName)
	assert.Equal(t, "MUMB98765C", third.tan)
	assert.Equal(t, "194J", third.section)

	// Block captions and the totals row emit no records.
	assert.Equal(t, 1, p.stats.rowsSkipped)
}

func TestTableParser_AmountSpillMerges(t *testing.T) {
	p := newTableParser()
	p.feed(2, []string{"12", "194C", "01-Mar-2024", "F"})
	p.feed(3, []string{"1,667.00", "167.00", "167.00"})

	require.Len(t, p.records, 1)
	rec := p.records[0]
	assert.Equal(t, "12", rec.srNo)
	assert.Equal(t, "194C", rec.section)
	assert.Equal(t, "01-Mar-2024", rec.txnDate)
	assert.Equal(t, "1,667.00", rec.paid)
	assert.Equal(t, "167.00", rec.tax)
	assert.Equal(t, "167.00", rec.tds)
	assert.Equal(t, 2, rec.page, "merged record keeps the page it started on")
}

func TestTableParser_OrphanContinuationSkipped(t *testing.T) {
	p := newTableParser()
	p.feed(1, []string{"5,000.00", "500.00"})

	assert.Empty(t, p.records)
	assert.Equal(t, 1, p.stats.rowsSkipped)
}

func TestTableParser_ContinuationAfterSummarySkipped(t *testing.T) {
	p := newTableParser()
	p.feed(2, []string{"1", "194A", "03-Apr-2023", "F", "8,333.00", "833.00", "833.00"})
	p.feed(2, []string{"Total", "8,333.00", "833.00", "833.00"})
	p.feed(2, []string{"9,999.00", "999.00", "999.00"})

	require.Len(t, p.records, 1)
	assert.Equal(t, "8,333.00", p.records[0].paid)
	assert.Equal(t, 2, p.stats.rowsSkipped)
}

func TestTableParser_ShortRowFallsBackToScan(t *testing.T) {
	p := newTableParser()
	p.feed(1, transactionTableHeader())

	// The splitter drops empty cells, so a row with a dashed booking
	// date arrives one cell short and the mapped amount columns no
	// longer line up.
	p.feed(1, []string{"3", "194A", "07-Nov-2023", "F", "-", "4,000.00", "400.00", "400.00"})

	require.Len(t, p.records, 1)
	rec := p.records[0]
	assert.Equal(t, "07-Nov-2023", rec.txnDate)
	assert.Empty(t, rec.bookingDate)
	assert.Equal(t, "4,000.00", rec.paid)
	assert.Equal(t, "400.00", rec.tax)
	assert.Equal(t, "400.00", rec.tds)
}

func TestTableParser_DashedTDSBecomesZero(t *testing.T) {
	p := newTableParser()
	p.feed(1, transactionTableHeader())
	p.feed(1, []string{"4", "194A", "01-Dec-2023", "F", "02-Dec-2023", "5,000.00", "500.00", "-"})

	require.Len(t, p.records, 1)
	rec := p.records[0]
	assert.Equal(t, "5,000.00", rec.paid)
	assert.Equal(t, "500.00", rec.tax)
	assert.Equal(t, "0.00", rec.tds)
}

func TestTableParser_HeaderRemapsColumns(t *testing.T) {
	p := newTableParser()

	// An older layout without the booking date column.
	p.feed(1, []string{"Sr. No.", "Section", "Transaction Date", "Status of Booking*", "Amount Paid / Credited", "Tax Deducted", "TDS Deposited"})
	p.feed(1, []string{"1", "194A", "03-Apr-2023", "F", "2,000.00", "200.00", "200.00"})

	require.Len(t, p.records, 1)
	assert.Equal(t, "03-Apr-2023", p.records[0].txnDate)
	assert.Empty(t, p.records[0].bookingDate)
	assert.Equal(t, "2,000.00", p.records[0].paid)
}

func TestDeductorNameNear(t *testing.T) {
	tests := []struct {
		name string
		text string
		tan  string
		want string
	}{
		{"plain caption", "ACME ENGINEERING LTD DELA12345B 1,00,000.00", "DELA12345B", "ACME ENGINEERING LTD"},
		{"leading serial", "3 ACME ENGINEERING LTD DELA12345B", "DELA12345B", "ACME ENGINEERING LTD"},
		{"column label", "Name of Deductor ACME LTD DELA12345B", "DELA12345B", "ACME LTD"},
		{"tan first", "DELA12345B 1,00,000.00", "DELA12345B", ""},
		{"table data is not a name", "194A 03-Apr-2023 F DELA12345B", "DELA12345B", ""},
		{"too short", "AB DELA12345B", "DELA12345B", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, deductorNameNear(tt.text, tt.tan))
		})
	}
}
