// Package exporter renders extraction results into downloadable files.
//
// This package contains three main components:
//
// BuildWorkbook: turns an ExtractionResult into xlsx bytes with a fixed
// 13-column "TDS Transactions" data sheet and an "Assessee Details" summary
// sheet, plus the suggested download filename.
//
// WorkbookWriter: persists built workbooks into the configured exports
// directory.
//
// CSVWriter: CSV writing with headers, streaming, and a UTF-8 BOM for Excel
// compatibility; includes a transaction-ledger export mirroring the
// workbook's data sheet.
//
// Example usage:
//
//	// Build a workbook in memory
//	data, filename, err := exporter.BuildWorkbook(result)
//
//	// Or persist it under the exports directory
//	writer := exporter.NewWorkbookWriter(paths, logger)
//	filename, fullPath, err := writer.Export(result)
//
//	// Ledger as CSV
//	csvWriter := exporter.NewCSVWriter(paths)
//	err = csvWriter.WriteTransactionsCSV("ledger.csv", result)
package exporter
