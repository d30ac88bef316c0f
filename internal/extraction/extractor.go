package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"taxledger/internal/pdf"
	"taxledger/pkg/contracts/domain"
)

const (
	defaultConcurrency = 4

	// identityPageSpan is how many leading pages are scanned for the
	// assessee block.
	identityPageSpan = 2
)

// Extractor runs the full statement pipeline over raw PDF bytes: open
// and validate, extract page text concurrently, then classify and
// normalize sequentially in page order.
type Extractor struct {
	logger      *slog.Logger
	concurrency int
}

// NewExtractor creates an extractor. A nil logger falls back to the
// default logger; a concurrency below one falls back to the default
// worker count.
func NewExtractor(logger *slog.Logger, concurrency int) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}
	return &Extractor{logger: logger, concurrency: concurrency}
}

type pageResult struct {
	content pdf.PageContent
	err     error
}

// Extract converts one statement into an extraction result. A document
// with zero transactions is a valid outcome; per page extraction
// failures are logged and tolerated. The errors worth handling are
// ErrInvalidDocument, ErrNoExtractablePages and context cancellation.
func (e *Extractor) Extract(ctx context.Context, data []byte) (*domain.ExtractionResult, error) {
	started := time.Now().UTC()

	doc, err := pdf.Open(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	total := doc.PageCount()
	results := make([]pageResult, total)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for n := 1; n <= total; n++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			content, err := doc.Page(n)
			results[n-1] = pageResult{content: content, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	contents := make([]pdf.PageContent, 0, total)
	failed := 0
	for i, r := range results {
		if r.err != nil {
			failed++
			e.logger.WarnContext(ctx, "page extraction failed",
				slog.Int("page", i+1),
				slog.String("error", r.err.Error()))
			continue
		}
		contents = append(contents, r.content)
	}
	if failed == total {
		return nil, ErrNoExtractablePages
	}

	info, records, stats, err := e.parsePages(ctx, contents)
	if err != nil {
		return nil, err
	}
	if info.IsEmpty() {
		e.logger.WarnContext(ctx, "no assessee identity recovered",
			slog.Int("pages_scanned", min(identityPageSpan, len(contents))))
	}

	finished := time.Now().UTC()
	result := &domain.ExtractionResult{
		Assessee:     info,
		Transactions: records,
		Stats: domain.ExtractionStats{
			PageCount:      total,
			PagesFailed:    failed,
			RowsSkipped:    stats.rowsSkipped,
			CellsDefaulted: stats.cellsDefaulted,
			StartedAt:      started,
			FinishedAt:     finished,
			ElapsedMS:      finished.Sub(started).Milliseconds(),
		},
	}

	e.logger.InfoContext(ctx, "statement extracted",
		slog.Int("pages", total),
		slog.Int("pages_failed", failed),
		slog.Int("transactions", len(records)),
		slog.Bool("identity_found", !info.IsEmpty()),
		slog.Duration("elapsed", finished.Sub(started)))

	return result, nil
}

// parsePages runs the sequential half of the pipeline over the pages
// that extracted successfully, in page order. The table parser state
// deliberately survives page breaks so a row split across pages still
// merges.
func (e *Extractor) parsePages(ctx context.Context, contents []pdf.PageContent) (domain.AssesseeInfo, []domain.TransactionRecord, parseStats, error) {
	var identity []string
	for i, c := range contents {
		if i >= identityPageSpan {
			break
		}
		identity = append(identity, c.Text)
	}
	info := ParseAssesseeInfo(strings.Join(identity, "\n"))

	parser := newTableParser()
	for _, c := range contents {
		if err := ctx.Err(); err != nil {
			return info, nil, parser.stats, err
		}
		for _, row := range c.Rows {
			parser.feed(c.Number, row)
		}
	}

	records := make([]domain.TransactionRecord, 0, len(parser.records))
	lastSr := 0
	for _, raw := range parser.records {
		rec := normalizeRecord(raw, lastSr, &parser.stats)
		lastSr = rec.SrNo
		records = append(records, rec)
	}
	return info, records, parser.stats, nil
}
