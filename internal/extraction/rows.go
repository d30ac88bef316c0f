package extraction

import (
	"regexp"
	"strings"
)

// RowKind tags a visual table row with its structural role. ClassifyRow
// assigns the tag exactly once; the parser switches on it and never
// re-inspects the cells to second-guess the classification.
type RowKind int

const (
	RowNoise RowKind = iota
	RowHeader
	RowSummary
	RowContinuation
	RowData
)

func (k RowKind) String() string {
	switch k {
	case RowHeader:
		return "header"
	case RowSummary:
		return "summary"
	case RowContinuation:
		return "continuation"
	case RowData:
		return "data"
	default:
		return "noise"
	}
}

var (
	tanPattern       = regexp.MustCompile(`\b[A-Z]{4}[0-9]{5}[A-Z]\b`)
	sectionPattern   = regexp.MustCompile(`\b19[0-9]{1,2}[A-Z]{0,2}\b`)
	datePattern      = regexp.MustCompile(`\b\d{2}-[A-Za-z]{3}-\d{4}\b`)
	amountCellRegexp = regexp.MustCompile(`^-?[\d,]+\.\d{2}$`)
	sectionCellRe    = regexp.MustCompile(`^19[0-9]{1,2}[A-Z]{0,2}$`)
	srNoCellRegexp   = regexp.MustCompile(`^\d{1,4}$`)
	statusCellRegexp = regexp.MustCompile(`^[A-Z]$`)
	rateCellRegexp   = regexp.MustCompile(`^\d{1,3}(?:\.\d+)?$`)
	pageFooterRegexp = regexp.MustCompile(`(?i)^page\s+\d+\s+of\s+\d+$`)
	partBannerRegexp = regexp.MustCompile(`(?i)^part\s+[a-h]\b`)

	leadingDigitsRe  = regexp.MustCompile(`^\d+\s*`)
	srPrefixRe       = regexp.MustCompile(`(?i)^sr\.?\s*no\.?\s*`)
	deductorLabelRe  = regexp.MustCompile(`(?i)name of deductor\s*[:.]*\s*`)
)

// furnitureTokens mark page chrome that repeats on every statement:
// the document banner, the identity block labels, and the booking
// status legend. Rows carrying one of these are noise no matter what
// else they contain.
var furnitureTokens = []string{
	"form 26as",
	"annual tax statement",
	"income tax act",
	"permanent account number",
	"name of assessee",
	"address of assessee",
	"date of generation",
	"financial year",
	"assessment year",
	"status of pan",
	"above data",
	"details of tax deducted",
	"details of tax collected",
	"advance tax",
	"self assessment tax",
	"legend",
	"u - unmatched",
	"m - matched",
	"f - final",
	"p - provisional",
	"o - overbooked",
}

// headerLabelGroups are the column captions of the two transaction
// tables. A row matching at least two distinct groups is a header row.
var headerLabelGroups = [][]string{
	{"sr. no", "sr.no", "sr no"},
	{"name of deductor"},
	{"tan of deductor"},
	{"section"},
	{"transaction date"},
	{"status of booking"},
	{"date of booking"},
	{"remarks"},
	{"amount paid"},
	{"tax deducted"},
	{"tds deposited"},
}

// ClassifyRow tags one visual row. Evaluation order is fixed: furniture,
// header, summary, continuation, data; anything left is noise. The first
// matching kind wins.
func ClassifyRow(cells []string) RowKind {
	row := collapseSpaces(strings.Join(cells, " "))
	if row == "" {
		return RowNoise
	}
	lower := strings.ToLower(row)

	if isPageFurniture(lower) {
		return RowNoise
	}
	if isHeaderRow(lower) {
		return RowHeader
	}
	if isSummaryRow(cells) {
		return RowSummary
	}
	if isContinuationRow(cells, row) {
		return RowContinuation
	}
	if isDataRow(cells, row) {
		return RowData
	}
	return RowNoise
}

func isPageFurniture(lower string) bool {
	if pageFooterRegexp.MatchString(lower) || partBannerRegexp.MatchString(lower) {
		return true
	}
	for _, tok := range furnitureTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

func isHeaderRow(lower string) bool {
	hits := 0
	for _, group := range headerLabelGroups {
		for _, label := range group {
			if strings.Contains(lower, label) {
				hits++
				break
			}
		}
		if hits >= 2 {
			return true
		}
	}
	return false
}

func isSummaryRow(cells []string) bool {
	for _, c := range cells {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		return strings.HasPrefix(c, "total") || strings.HasPrefix(c, "grand total")
	}
	return false
}

// A continuation is the spill-over of the previous row: no serial, no
// TAN, and either bare amount cells or bare name text. Which record it
// extends is the parser's business, not the classifier's.
func isContinuationRow(cells []string, row string) bool {
	if srNoCellRegexp.MatchString(strings.TrimSpace(cells[0])) {
		return false
	}
	if tanPattern.MatchString(row) {
		return false
	}
	for _, c := range cells {
		if amountCellRegexp.MatchString(strings.TrimSpace(c)) {
			return true
		}
	}
	return !datePattern.MatchString(row) && !sectionPattern.MatchString(row)
}

func isDataRow(cells []string, row string) bool {
	if tanPattern.MatchString(row) {
		return true
	}
	if sectionPattern.MatchString(row) && datePattern.MatchString(row) {
		return true
	}
	if srNoCellRegexp.MatchString(strings.TrimSpace(cells[0])) {
		return countNonEmpty(cells) >= 2
	}
	return false
}

func countNonEmpty(cells []string) int {
	n := 0
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			n++
		}
	}
	return n
}

// rawRecord carries the still-string fields of one transaction row,
// merged with any continuation rows. All type conversion happens later
// in the normalizer.
type rawRecord struct {
	page         int
	srNo         string
	deductorName string
	tan          string
	section      string
	txnDate      string
	bookingDate  string
	status       string
	paid         string
	tax          string
	tds          string
	rate         string
}

// deductorContext is the block-level deductor that owns subsequent
// transaction rows until a row with a different TAN appears.
type deductorContext struct {
	name string
	tan  string
}

type parseStats struct {
	rowsSkipped    int
	cellsDefaulted int
}

// tableParser folds a stream of classified rows into raw transaction
// records. It is page-agnostic: feeding rows of consecutive pages keeps
// the deductor context and a trailing continuation alive across the
// page break.
type tableParser struct {
	cols        map[string]int
	current     deductorContext
	records     []rawRecord
	lastKind    RowKind
	lastEmitted bool
	stats       parseStats
}

func newTableParser() *tableParser {
	return &tableParser{cols: make(map[string]int)}
}

func (p *tableParser) feed(page int, cells []string) {
	kind := ClassifyRow(cells)
	switch kind {
	case RowHeader:
		p.captureColumns(cells)
	case RowSummary:
		p.stats.rowsSkipped++
	case RowContinuation:
		p.merge(cells)
	case RowData:
		p.openRecord(page, cells)
	}
	p.lastKind = kind
}

// captureColumns maps column captions to cell positions. The latest
// header wins: the deductor table header and the transaction table
// header alternate within a block, and each governs the rows below it.
func (p *tableParser) captureColumns(cells []string) {
	cols := make(map[string]int)
	for i, cell := range cells {
		h := strings.ToLower(strings.TrimSpace(cell))
		switch {
		case strings.Contains(h, "sr") && strings.Contains(h, "no"):
			cols["sr_no"] = i
		case strings.Contains(h, "name") && strings.Contains(h, "deductor"):
			cols["name"] = i
		case strings.Contains(h, "tan"):
			cols["tan"] = i
		case strings.Contains(h, "section"):
			cols["section"] = i
		case strings.Contains(h, "transaction date"):
			cols["transaction_date"] = i
		case strings.Contains(h, "status"):
			cols["status"] = i
		case strings.Contains(h, "date of booking"):
			cols["date_of_booking"] = i
		case strings.Contains(h, "remarks"):
			cols["remarks"] = i
		case strings.Contains(h, "amount paid"):
			cols["amount_paid"] = i
		case strings.Contains(h, "tax deducted"):
			cols["tax_deducted"] = i
		case strings.Contains(h, "tds deposited"):
			cols["tds_deposited"] = i
		case strings.Contains(h, "rate"):
			cols["rate"] = i
		}
	}
	if len(cols) >= 2 {
		p.cols = cols
	}
}

// openRecord handles a data row. A row whose TAN differs from the
// current context starts a new deductor block; if it carries no section
// and transaction date of its own it is the block caption (name, TAN,
// block totals) and emits nothing.
func (p *tableParser) openRecord(page int, cells []string) {
	rec := p.assignFields(page, cells)
	hasTxn := rec.section != "" && rec.txnDate != ""

	if rec.tan != "" {
		name := rec.deductorName
		if rec.tan != p.current.tan {
			p.current = deductorContext{name: name, tan: rec.tan}
		} else if p.current.name == "" && name != "" {
			p.current.name = name
		}
		if !hasTxn {
			p.lastEmitted = false
			return
		}
	}

	if rec.tan == "" {
		rec.tan = p.current.tan
	}
	if rec.deductorName == "" {
		rec.deductorName = p.current.name
	}
	p.records = append(p.records, rec)
	p.lastEmitted = true
}

// merge folds a continuation row into whatever it continues: the open
// block caption when the deductor name wrapped, otherwise the last
// emitted record. A continuation with nothing before it is dropped.
func (p *tableParser) merge(cells []string) {
	if p.lastKind != RowData && p.lastKind != RowContinuation {
		p.stats.rowsSkipped++
		return
	}
	row := collapseSpaces(strings.Join(cells, " "))
	textOnly := !datePattern.MatchString(row) && !hasAmountCell(cells)

	if !p.lastEmitted {
		if textOnly && p.current.tan != "" {
			if p.current.name == "" {
				p.current.name = row
			} else {
				p.current.name += " " + row
			}
		}
		return
	}

	if len(p.records) == 0 {
		p.stats.rowsSkipped++
		return
	}
	last := &p.records[len(p.records)-1]
	frag := p.assignFields(last.page, cells)
	if frag.deductorName == "" && textOnly {
		frag.deductorName = row
	}
	mergeInto(last, frag)
}

func hasAmountCell(cells []string) bool {
	for _, c := range cells {
		if amountCellRegexp.MatchString(strings.TrimSpace(c)) {
			return true
		}
	}
	return false
}

// mergeInto fills the empty fields of dst from the fragment. Name text
// appends, amounts queue into the first open slots in paid, tax, tds
// order, everything else fills only when missing.
func mergeInto(dst *rawRecord, frag rawRecord) {
	if frag.deductorName != "" {
		if dst.deductorName == "" {
			dst.deductorName = frag.deductorName
		} else {
			dst.deductorName += " " + frag.deductorName
		}
	}
	if dst.section == "" {
		dst.section = frag.section
	}
	if dst.txnDate == "" {
		dst.txnDate = frag.txnDate
	} else if dst.bookingDate == "" && frag.txnDate != "" {
		dst.bookingDate = frag.txnDate
	}
	if dst.bookingDate == "" {
		dst.bookingDate = frag.bookingDate
	}
	if dst.status == "" {
		dst.status = frag.status
	}
	if dst.tan == "" {
		dst.tan = frag.tan
	}
	if dst.rate == "" {
		dst.rate = frag.rate
	}

	queue := make([]string, 0, 3)
	for _, v := range []string{frag.paid, frag.tax, frag.tds} {
		if v != "" {
			queue = append(queue, v)
		}
	}
	for _, slot := range []*string{&dst.paid, &dst.tax, &dst.tds} {
		if len(queue) == 0 {
			break
		}
		if *slot == "" {
			*slot = queue[0]
			queue = queue[1:]
		}
	}
}

// assignFields resolves cells into named raw fields. Column positions
// from the last header are tried first, each guarded by a shape check so
// a drifted map cannot push a date into an amount slot. Whatever stays
// empty is filled by pattern scans over the unclaimed cells.
func (p *tableParser) assignFields(page int, cells []string) rawRecord {
	rec := rawRecord{page: page}
	consumed := make(map[int]bool, len(cells))

	take := func(key string, valid func(string) bool) string {
		i, ok := p.cols[key]
		if !ok || i < 0 || i >= len(cells) {
			return ""
		}
		v := strings.TrimSpace(cells[i])
		if v == "" || !valid(v) {
			return ""
		}
		consumed[i] = true
		return v
	}

	rec.srNo = take("sr_no", srNoCellRegexp.MatchString)
	rec.section = take("section", sectionCellRe.MatchString)
	rec.txnDate = take("transaction_date", datePattern.MatchString)
	rec.bookingDate = take("date_of_booking", datePattern.MatchString)
	rec.status = take("status", statusCellRegexp.MatchString)
	rec.tan = take("tan", tanPattern.MatchString)
	rec.rate = take("rate", rateCellRegexp.MatchString)
	rec.deductorName = take("name", isNameCell)

	// Positional amount pulls only make sense when the row is wide
	// enough to reach the mapped columns. The cell splitter drops empty
	// cells, so a short row means the indexes have shifted and the
	// ordered scan below is the safer source.
	maxIdx := -1
	for _, key := range []string{"remarks", "amount_paid", "tax_deducted", "tds_deposited"} {
		if i, ok := p.cols[key]; ok && i > maxIdx {
			maxIdx = i
		}
	}
	if maxIdx >= 0 && maxIdx < len(cells) {
		take("remarks", isRemarkCell)
		rec.paid = take("amount_paid", isAmountCell)
		rec.tax = take("tax_deducted", isAmountCell)
		rec.tds = take("tds_deposited", isAmountCell)
	}

	rest := make([]string, 0, len(cells))
	for i, c := range cells {
		if !consumed[i] {
			rest = append(rest, strings.TrimSpace(c))
		}
	}
	joined := strings.Join(rest, " ")

	if rec.tan == "" {
		rec.tan = tanPattern.FindString(joined)
	}
	if rec.section == "" {
		rec.section = sectionPattern.FindString(joined)
	}

	dates := datePattern.FindAllString(joined, -1)
	if rec.txnDate == "" && len(dates) > 0 {
		rec.txnDate = dates[0]
		dates = dates[1:]
	}
	if rec.bookingDate == "" && len(dates) > 0 {
		rec.bookingDate = dates[0]
	}

	if rec.srNo == "" && len(cells) > 0 && !consumed[0] && srNoCellRegexp.MatchString(strings.TrimSpace(cells[0])) {
		rec.srNo = strings.TrimSpace(cells[0])
	}
	if rec.status == "" {
		for i, c := range cells {
			if !consumed[i] && statusCellRegexp.MatchString(strings.TrimSpace(c)) {
				rec.status = strings.TrimSpace(c)
				break
			}
		}
	}

	amounts := scanAmountCells(cells, consumed)
	for _, slot := range []*string{&rec.paid, &rec.tax, &rec.tds} {
		if len(amounts) == 0 {
			break
		}
		if *slot == "" {
			*slot = amounts[0]
			amounts = amounts[1:]
		}
	}

	if rec.deductorName == "" && rec.tan != "" {
		rec.deductorName = deductorNameNear(joined, rec.tan)
	}
	return rec
}

func isNameCell(v string) bool {
	return !amountCellRegexp.MatchString(v) && !datePattern.MatchString(v) && !tanPattern.MatchString(v)
}

func isAmountCell(v string) bool {
	return v == "-" || amountCellRegexp.MatchString(v)
}

func isRemarkCell(v string) bool {
	return !amountCellRegexp.MatchString(v) && !datePattern.MatchString(v)
}

// scanAmountCells returns the unclaimed amount cells in visual order.
// A bare dash is the printed form of zero, but only once the numeric
// tail of the row has started; a dash in the remarks column sits before
// the first real amount and must not shift the order.
func scanAmountCells(cells []string, consumed map[int]bool) []string {
	firstAmt := -1
	for i, c := range cells {
		if consumed[i] {
			continue
		}
		if amountCellRegexp.MatchString(strings.TrimSpace(c)) {
			firstAmt = i
			break
		}
	}
	if firstAmt == -1 {
		return nil
	}

	var out []string
	for i, c := range cells {
		if consumed[i] || i < firstAmt {
			continue
		}
		c = strings.TrimSpace(c)
		if amountCellRegexp.MatchString(c) {
			out = append(out, c)
		} else if c == "-" {
			out = append(out, "0.00")
		}
	}
	return out
}

// deductorNameNear recovers the deductor name from the text running up
// to the TAN, stripping the serial prefix and the column label. Text
// containing dates or section codes is table data, not a name.
func deductorNameNear(text, tan string) string {
	idx := strings.Index(text, tan)
	if idx <= 0 {
		return ""
	}
	name := text[:idx]
	if datePattern.MatchString(name) || sectionPattern.MatchString(name) {
		return ""
	}
	name = leadingDigitsRe.ReplaceAllString(strings.TrimSpace(name), "")
	name = srPrefixRe.ReplaceAllString(name, "")
	name = deductorLabelRe.ReplaceAllString(name, "")
	name = collapseSpaces(name)
	if len(name) <= 2 {
		return ""
	}
	return name
}
