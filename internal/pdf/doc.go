// Package pdf provides page-level access to Form 26AS statement PDFs.
//
// A statement is opened from raw bytes with Open, which runs a structural
// validation pass (pdfcpu) before handing content access to the text
// extractor (ledongthuc/pdf). Each page yields two views of its content:
//
// Plain text: the page's visual lines joined top to bottom, used by the
// identity block parser to locate labeled front-matter fields.
//
// Rows: best-effort cell arrays approximating the visual table layout,
// built by grouping positioned text runs into lines and splitting lines
// on horizontal gaps.
//
// Page extraction is a pure function of the page content. A page with no
// extractable text produces empty text and no rows rather than an error;
// only a page whose content stream cannot be interpreted at all reports
// an error, which callers treat as a per-page warning.
package pdf
