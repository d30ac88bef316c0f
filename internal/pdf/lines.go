package pdf

import (
	"math"
	"sort"
	"strings"

	ledongthuc "github.com/ledongthuc/pdf"
)

// Tolerances, in points, for assembling positioned glyph runs into visual
// structure. Statement PDFs are machine-generated, so vertical jitter
// within a line stays well under a point; column gutters are several
// character widths wide.
const (
	lineTolerance   = 2.0
	minWordGap      = 1.0
	minCellGap      = 6.0
	defaultFontSize = 12.0
)

// textRun is one positioned fragment of text as drawn on the page.
type textRun struct {
	x, y, w, size float64
	s             string
}

func collectRuns(texts []ledongthuc.Text) []textRun {
	runs := make([]textRun, 0, len(texts))
	for _, t := range texts {
		if t.S == "" {
			continue
		}
		size := t.FontSize
		if size <= 0 {
			size = defaultFontSize
		}
		runs = append(runs, textRun{x: t.X, y: t.Y, w: t.W, size: size, s: t.S})
	}
	return runs
}

// visualLine is one horizontal line of text, runs ordered left to right.
type visualLine struct {
	y    float64
	runs []textRun
}

// assembleLines groups runs into visual lines by vertical position within
// lineTolerance. Lines come back top to bottom (PDF Y grows upward).
func assembleLines(runs []textRun) []visualLine {
	if len(runs) == 0 {
		return nil
	}

	sorted := make([]textRun, len(runs))
	copy(sorted, runs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].y > sorted[j].y })

	var lines []visualLine
	current := visualLine{y: sorted[0].y, runs: []textRun{sorted[0]}}
	for _, r := range sorted[1:] {
		if math.Abs(r.y-current.y) <= lineTolerance {
			current.runs = append(current.runs, r)
			continue
		}
		lines = append(lines, orderLine(current))
		current = visualLine{y: r.y, runs: []textRun{r}}
	}
	lines = append(lines, orderLine(current))
	return lines
}

func orderLine(l visualLine) visualLine {
	sort.SliceStable(l.runs, func(i, j int) bool { return l.runs[i].x < l.runs[j].x })
	return l
}

// splitCells coalesces a line's runs into cells. A horizontal gap wider
// than a column gutter starts a new cell; a smaller gap becomes a word
// space. Returns trimmed cells, empties dropped.
func splitCells(l visualLine) []string {
	var cells []string
	var cell strings.Builder
	lastEnd := math.Inf(-1)

	flush := func() {
		if s := strings.TrimSpace(cell.String()); s != "" {
			cells = append(cells, s)
		}
		cell.Reset()
	}

	for _, r := range l.runs {
		cellGap := math.Max(minCellGap, 1.6*r.size)
		wordGap := math.Max(minWordGap, 0.25*r.size)

		gap := r.x - lastEnd
		switch {
		case cell.Len() == 0:
		case gap > cellGap:
			flush()
		case gap > wordGap:
			cell.WriteByte(' ')
		}
		cell.WriteString(r.s)

		end := r.x + r.w
		if end > lastEnd {
			lastEnd = end
		}
	}
	flush()
	return cells
}

// linesText renders lines as plain text, cells separated by single
// spaces, lines by newlines. Blank lines are dropped.
func linesText(lines []visualLine) string {
	var b strings.Builder
	for _, l := range lines {
		cells := splitCells(l)
		if len(cells) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strings.Join(cells, " "))
	}
	return b.String()
}

// linesRows renders lines as cell arrays, skipping lines with no content.
func linesRows(lines []visualLine) [][]string {
	var rows [][]string
	for _, l := range lines {
		if cells := splitCells(l); len(cells) > 0 {
			rows = append(rows, cells)
		}
	}
	return rows
}
