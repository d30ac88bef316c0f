package pdf

import (
	"bytes"
	"fmt"

	ledongthuc "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PageContent is everything extracted from a single page.
type PageContent struct {
	Number int
	Text   string
	Rows   [][]string
}

// Document is an opened statement held fully in memory. The zero value is
// not usable; construct with Open.
type Document struct {
	data      []byte
	pageCount int
}

// Open validates raw bytes as a PDF and prepares page access. It returns
// an error when the bytes are not a structurally valid document; it does
// not inspect page content.
func Open(data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("open document: empty input")
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("open document: resolve page count: %w", err)
	}

	// The text extractor is the second gate: pdfcpu accepts some documents
	// (e.g. encrypted ones) whose content this reader cannot walk.
	r, err := ledongthuc.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}

	pages := r.NumPage()
	if pages <= 0 {
		pages = ctx.PageCount
	}
	if pages <= 0 {
		return nil, fmt.Errorf("open document: no pages")
	}

	return &Document{data: data, pageCount: pages}, nil
}

// PageCount returns the number of pages in the document.
func (d *Document) PageCount() int {
	return d.pageCount
}

// Page extracts the content of one page (1-based). Safe for concurrent
// use: each call walks the document through its own reader over the
// shared immutable byte slice.
func (d *Document) Page(number int) (content PageContent, err error) {
	content = PageContent{Number: number}
	if number < 1 || number > d.pageCount {
		return content, fmt.Errorf("page %d: out of range (document has %d pages)", number, d.pageCount)
	}

	// The content-stream interpreter panics on malformed streams.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page %d: %v", number, r)
		}
	}()

	r, err := ledongthuc.NewReader(bytes.NewReader(d.data), int64(len(d.data)))
	if err != nil {
		return content, fmt.Errorf("page %d: %w", number, err)
	}

	p := r.Page(number)
	if p.V.IsNull() {
		return content, nil
	}

	runs := collectRuns(p.Content().Text)
	lines := assembleLines(runs)
	content.Text = linesText(lines)
	content.Rows = linesRows(lines)
	return content, nil
}
