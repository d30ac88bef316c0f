package extraction

import "errors"

var (
	// ErrInvalidDocument reports input that could not be opened as a PDF
	// at all. Nothing was extracted.
	ErrInvalidDocument = errors.New("extraction: invalid document")

	// ErrNoExtractablePages reports a structurally valid PDF in which
	// text extraction failed on every single page.
	ErrNoExtractablePages = errors.New("extraction: no extractable pages")
)
