package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"taxledger/internal/config"
	"taxledger/pkg/contracts/domain"
)

const (
	transactionsSheet = "TDS Transactions"
	assesseeSheet     = "Assessee Details"

	// Column sizing follows the statement viewer's export: content width
	// plus padding, capped so long deductor names and addresses don't blow
	// out the layout.
	columnPadding  = 2.0
	maxColumnWidth = 50.0

	notAvailable = "Not Available"

	generatedOnLayout = "2006-01-02 15:04:05"
)

// transactionColumns is the data sheet header row. Captions and order are
// fixed; downstream consumers import by position.
var transactionColumns = []string{
	"Sr.No",
	"Name of Deductor",
	"TAN of Deductor",
	"Section",
	"Transaction Date",
	"Status of Booking*",
	"Date of Booking",
	"Amount Paid / Credited",
	"Tax Deducted",
	"TDS Deposited",
	"Net Amount",
	"Rate %",
	"PDF Page No",
}

// 1-based positions of the two-decimal numeric columns
// (Amount Paid / Credited through Rate %).
const (
	firstAmountColumn = 8
	lastAmountColumn  = 12
)

// BuildWorkbook renders an extraction result into xlsx bytes and returns the
// suggested download filename alongside. A result with zero transactions
// still produces a valid workbook with the full header row and summary sheet.
func BuildWorkbook(result *domain.ExtractionResult) ([]byte, string, error) {
	return buildWorkbookAt(result, time.Now())
}

func buildWorkbookAt(result *domain.ExtractionResult, generatedAt time.Time) ([]byte, string, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", transactionsSheet); err != nil {
		return nil, "", fmt.Errorf("failed to name data sheet: %w", err)
	}

	if err := writeTransactionsSheet(f, result.Transactions); err != nil {
		return nil, "", err
	}

	if err := writeAssesseeSheet(f, result, generatedAt); err != nil {
		return nil, "", err
	}

	// The data sheet stays in front when the workbook opens
	idx, err := f.GetSheetIndex(transactionsSheet)
	if err != nil {
		return nil, "", fmt.Errorf("failed to locate data sheet: %w", err)
	}
	f.SetActiveSheet(idx)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("failed to serialize workbook: %w", err)
	}

	return buf.Bytes(), BuildFilename(result.Assessee, generatedAt), nil
}

func writeTransactionsSheet(f *excelize.File, transactions []domain.TransactionRecord) error {
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: 2}) // 0.00
	if err != nil {
		return fmt.Errorf("failed to create amount style: %w", err)
	}

	widths := make([]float64, len(transactionColumns))
	for i, caption := range transactionColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("failed to map header cell: %w", err)
		}
		if err := f.SetCellValue(transactionsSheet, cell, caption); err != nil {
			return fmt.Errorf("failed to write header %q: %w", caption, err)
		}
		widths[i] = float64(len(caption))
	}

	lastHeaderCell, err := excelize.CoordinatesToCellName(len(transactionColumns), 1)
	if err != nil {
		return fmt.Errorf("failed to map header range: %w", err)
	}
	if err := f.SetCellStyle(transactionsSheet, "A1", lastHeaderCell, headerStyle); err != nil {
		return fmt.Errorf("failed to style header row: %w", err)
	}

	for rowIdx, txn := range transactions {
		row := rowIdx + 2
		for colIdx, value := range transactionCells(txn) {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, row)
			if err != nil {
				return fmt.Errorf("failed to map cell: %w", err)
			}
			if err := f.SetCellValue(transactionsSheet, cell, value); err != nil {
				return fmt.Errorf("failed to write row %d: %w", row, err)
			}
			if width := float64(len(displayText(value))); width > widths[colIdx] {
				widths[colIdx] = width
			}
		}
	}

	if len(transactions) > 0 {
		first, err := excelize.CoordinatesToCellName(firstAmountColumn, 2)
		if err != nil {
			return fmt.Errorf("failed to map amount range: %w", err)
		}
		last, err := excelize.CoordinatesToCellName(lastAmountColumn, len(transactions)+1)
		if err != nil {
			return fmt.Errorf("failed to map amount range: %w", err)
		}
		if err := f.SetCellStyle(transactionsSheet, first, last, amountStyle); err != nil {
			return fmt.Errorf("failed to style amount columns: %w", err)
		}
	}

	return setColumnWidths(f, transactionsSheet, widths)
}

func writeAssesseeSheet(f *excelize.File, result *domain.ExtractionResult, generatedAt time.Time) error {
	if _, err := f.NewSheet(assesseeSheet); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	rows := [][2]any{
		{"Field", "Value"},
		{"Name of Assessee", orNotAvailable(result.Assessee.Name)},
		{"Permanent Account Number (PAN)", orNotAvailable(result.Assessee.PAN)},
		{"Financial Year", orNotAvailable(result.Assessee.FinancialYear)},
		{"Assessment Year", orNotAvailable(result.Assessee.AssessmentYear)},
		{"Address", orNotAvailable(result.Assessee.Address)},
		{"Total Transactions", len(result.Transactions)},
		{"Generated On", generatedAt.Format(generatedOnLayout)},
	}

	widths := make([]float64, 2)
	for rowIdx, row := range rows {
		for colIdx, value := range row {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
			if err != nil {
				return fmt.Errorf("failed to map summary cell: %w", err)
			}
			if err := f.SetCellValue(assesseeSheet, cell, value); err != nil {
				return fmt.Errorf("failed to write summary row %d: %w", rowIdx+1, err)
			}
			if width := float64(len(displayText(value))); width > widths[colIdx] {
				widths[colIdx] = width
			}
		}
	}

	if err := f.SetCellStyle(assesseeSheet, "A1", "B1", headerStyle); err != nil {
		return fmt.Errorf("failed to style summary header: %w", err)
	}

	return setColumnWidths(f, assesseeSheet, widths)
}

func transactionCells(txn domain.TransactionRecord) []any {
	return []any{
		txn.SrNo,
		txn.DeductorName,
		txn.DeductorTAN,
		txn.Section,
		txn.TransactionDate,
		txn.Status,
		txn.DateOfBooking,
		txn.AmountPaid,
		txn.TaxDeducted,
		txn.TDSDeposited,
		txn.NetAmount,
		txn.Rate,
		txn.PageNumber,
	}
}

// displayText approximates a cell's rendered width for column sizing.
func displayText(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case float64:
		return formatFloat(v)
	default:
		return fmt.Sprint(v)
	}
}

func setColumnWidths(f *excelize.File, sheet string, widths []float64) error {
	for i, width := range widths {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("failed to resolve column name: %w", err)
		}

		w := width + columnPadding
		if w > maxColumnWidth {
			w = maxColumnWidth
		}

		if err := f.SetColWidth(sheet, name, name, w); err != nil {
			return fmt.Errorf("failed to size column %s: %w", name, err)
		}
	}
	return nil
}

func orNotAvailable(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}

// WorkbookWriter persists generated workbooks into the exports directory.
type WorkbookWriter struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewWorkbookWriter creates a workbook writer rooted at the configured paths
func NewWorkbookWriter(paths *config.Paths, logger *slog.Logger) *WorkbookWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookWriter{paths: paths, logger: logger}
}

// Export builds the workbook for the result and writes it into the exports
// directory, returning the generated filename and its full path.
func (w *WorkbookWriter) Export(result *domain.ExtractionResult) (string, string, error) {
	data, filename, err := BuildWorkbook(result)
	if err != nil {
		return "", "", err
	}

	fullPath := w.paths.GetExportPath(filename)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return "", "", fmt.Errorf("failed to write workbook: %w", err)
	}

	w.logger.Info("Workbook exported",
		slog.String("filename", filename),
		slog.String("full_path", fullPath),
		slog.Int("transactions", len(result.Transactions)),
		slog.Int("size_bytes", len(data)))

	return filename, fullPath, nil
}
