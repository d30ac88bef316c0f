// Package extraction converts Form 26AS statement PDFs into a normalized
// TDS transaction ledger.
//
// This package contains four main components:
//
// Identity parser: reads the assessee block (name, PAN, financial year,
// assessment year, address) from the opening pages using label anchored
// patterns with regex fallbacks.
//
// Row classifier: tags every visual table row as header, summary,
// continuation, data or noise. Classification happens exactly once per
// row; downstream stages switch on the tag and never re-derive it.
//
// Normalizer: converts raw cell strings into typed TransactionRecord
// values, applying documented defaults instead of failing on dirty cells.
//
// Extractor: orchestrates the pipeline. Pages are extracted concurrently,
// then classified and normalized sequentially in page order so output
// stays deterministic. Per page failures degrade to warnings; the only
// terminal failures are an unreadable document and a document where every
// single page failed.
//
// Example usage:
//
//	extractor := extraction.NewExtractor(logger, 4)
//	result, err := extractor.Extract(ctx, pdfBytes)
//	if err != nil {
//	    return err
//	}
//	for _, txn := range result.Transactions {
//	    fmt.Println(txn.DeductorTAN, txn.AmountPaid)
//	}
package extraction
