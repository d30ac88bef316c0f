// Package files provides the export store and file discovery utilities
// for the statement pipeline.
//
// This package contains three main components:
//
// Store: a directory-backed store for generated ledger files. Filenames
// are sanitized before any filesystem access, so names taken from URLs
// cannot escape the exports directory.
//
// Sweeper: a background loop that removes exports older than the
// configured retention age and records each pass on the pipeline metrics.
//
// Discovery: locates statement PDFs for batch extraction and generated
// ledgers in an output directory.
//
// Example usage:
//
//	store := files.NewStore(paths)
//
//	// Persist a generated workbook
//	path, err := store.Save("26AS_AAAPA1234A_2023-24.xlsx", data)
//
//	// Stream it back for download
//	f, info, err := store.Open("26AS_AAAPA1234A_2023-24.xlsx")
//
//	// Find statements for a batch run
//	discovery := files.NewDiscovery(baseDir)
//	pdfs, err := discovery.FindPDFFiles("statements")
package files
