package extraction

import (
	"math"
	"strconv"
	"strings"
	"time"

	"taxledger/pkg/contracts/domain"
)

const dateLayout = "02-Jan-2006"

// normalizeRecord converts one merged raw row into a typed transaction.
// Dirty cells never fail the record: amounts default to 0.00, the status
// defaults to final, an unparseable date keeps its printed text, and a
// missing serial continues the sequence after the last one seen.
func normalizeRecord(raw rawRecord, lastSr int, stats *parseStats) domain.TransactionRecord {
	rec := domain.TransactionRecord{
		DeductorName: strings.TrimSpace(raw.deductorName),
		DeductorTAN:  raw.tan,
		Section:      raw.section,
		PageNumber:   raw.page,
	}

	rec.SrNo = normalizeSrNo(raw.srNo, lastSr)

	rec.Status = raw.status
	if rec.Status == "" {
		rec.Status = domain.BookingStatusFinal
	}

	rec.TransactionDate = normalizeDate(raw.txnDate, stats)
	rec.DateOfBooking = normalizeDate(raw.bookingDate, stats)
	if rec.DateOfBooking == "" {
		rec.DateOfBooking = rec.TransactionDate
	}

	// Statements that print only two amounts per row deposit the full
	// deducted tax, so a missing TDS cell copies the tax cell. A printed
	// dash is zero and does not trigger the copy.
	tdsCell := raw.tds
	if tdsCell == "" && raw.tax != "" {
		tdsCell = raw.tax
	}
	rec.AmountPaid = parseAmount(raw.paid, stats)
	rec.TaxDeducted = parseAmount(raw.tax, stats)
	rec.TDSDeposited = parseAmount(tdsCell, stats)

	rec.NetAmount = round2(rec.AmountPaid - rec.TDSDeposited)
	if rec.NetAmount < 0 {
		rec.NetAmount = 0
		stats.cellsDefaulted++
	}

	if raw.rate != "" {
		if v, err := strconv.ParseFloat(raw.rate, 64); err == nil && v >= 0 {
			rec.Rate = round2(v)
		}
	}
	if rec.Rate == 0 && rec.AmountPaid > 0 {
		rec.Rate = round2(rec.TaxDeducted / rec.AmountPaid * 100)
	}

	return rec
}

// normalizeSrNo keeps the printed serial while it moves forward. The
// per-deductor tables restart numbering at 1, so a serial at or below
// the last one continues the running sequence instead.
func normalizeSrNo(s string, lastSr int) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v <= lastSr {
		return lastSr + 1
	}
	return v
}

// normalizeDate canonicalizes dd-MMM-yyyy. Anything else keeps its
// printed text so no information is invented, and counts as a default.
func normalizeDate(s string, stats *parseStats) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if m := datePattern.FindString(s); m != "" {
		canon := m[:3] + strings.ToUpper(m[3:4]) + strings.ToLower(m[4:6]) + m[6:]
		if t, err := time.Parse(dateLayout, canon); err == nil {
			return t.Format(dateLayout)
		}
	}
	stats.cellsDefaulted++
	return s
}

// parseAmount reads an Indian-grouped amount cell. Blank and dash cells
// are printed zeros. Garbage and negative values normalize to 0.00 and
// count as defaulted so the caller can see how dirty the page was.
func parseAmount(s string, stats *parseStats) float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return 0
	}
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		stats.cellsDefaulted++
		return 0
	}
	if v < 0 {
		stats.cellsDefaulted++
		return 0
	}
	return round2(v)
}

func round2(v float64) float64 {
	r := math.Round(v*100) / 100
	if r == 0 {
		return 0
	}
	return r
}
