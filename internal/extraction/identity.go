package extraction

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"taxledger/pkg/contracts/domain"
)

// Label anchored patterns for the assessee block. Each list is tried in
// order and the first match wins, so the most specific label takes
// priority over looser fallbacks.
var (
	panLabelPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i:permanent account number\s*(?:\(pan\))?)\s*:?\s*([A-Z]{5}[0-9]{4}[A-Z])`),
		regexp.MustCompile(`(?i:\bpan\b)\s*:?\s*([A-Z]{5}[0-9]{4}[A-Z])`),
		regexp.MustCompile(`([A-Z]{5}[0-9]{4}[A-Z])\s*(?i:\(pan\))`),
		regexp.MustCompile(`\b([A-Z]{5}[0-9]{4}[A-Z])\b`),
	}

	fyLabelPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i:financial year)\s*:?\s*(\d{4}-\d{2,4})`),
		regexp.MustCompile(`(?i:f\.y\.?)\s*:?\s*(\d{4}-\d{2,4})`),
	}

	ayLabelPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i:assessment year)\s*:?\s*(\d{4}-\d{2,4})`),
		regexp.MustCompile(`(?i:a\.y\.?)\s*:?\s*(\d{4}-\d{2,4})`),
	}

	nameLabelPattern = regexp.MustCompile(`(?i)^\s*(?:name of assessee|assessee name)\s*:?\s*`)
	nameStopPattern  = regexp.MustCompile(`(?i)\s*(?:permanent account number|financial year|assessment year|\bpan\b|address of assessee).*$`)
	nameJunkPattern  = regexp.MustCompile(`[^A-Za-z\s&.(),-]+$`)

	addressLabelPattern = regexp.MustCompile(`(?i)^\s*address(?:\s+of\s+assessee)?\s*:?\s*`)
	addressStopPattern  = regexp.MustCompile(`(?i)^\s*(?:part\s+[a-h]\b|details of|above data|name of assessee|permanent account|financial year|assessment year|date of generation)`)
	aboveDataPattern    = regexp.MustCompile(`(?i)above data\s*status of pan.*$`)
	addressCharPattern  = regexp.MustCompile(`[^A-Za-z0-9\s,.()-]`)

	panValuePattern = regexp.MustCompile(`[A-Z]{5}[0-9]{4}[A-Z]`)
)

// addressLineSpan caps how many lines after the label are folded into
// the address before a stop marker is required.
const addressLineSpan = 4

// ParseAssesseeInfo reads the identity block from the opening page text.
// Missing fields stay empty strings; the caller decides whether an empty
// identity matters. When only one of the two year fields is present the
// other is derived from it.
func ParseAssesseeInfo(text string) domain.AssesseeInfo {
	info := domain.AssesseeInfo{}
	if strings.TrimSpace(text) == "" {
		return info
	}

	for _, p := range panLabelPatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			info.PAN = m[1]
			break
		}
	}

	for _, p := range fyLabelPatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			info.FinancialYear = normalizeYearRange(m[1])
			break
		}
	}
	for _, p := range ayLabelPatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			info.AssessmentYear = normalizeYearRange(m[1])
			break
		}
	}
	if info.AssessmentYear == "" && info.FinancialYear != "" {
		info.AssessmentYear = shiftYearRange(info.FinancialYear, 1)
	}
	if info.FinancialYear == "" && info.AssessmentYear != "" {
		info.FinancialYear = shiftYearRange(info.AssessmentYear, -1)
	}

	lines := strings.Split(text, "\n")
	info.Name = parseAssesseeName(lines)
	info.Address = parseAssesseeAddress(lines)

	return info
}

func parseAssesseeName(lines []string) string {
	for _, line := range lines {
		loc := nameLabelPattern.FindStringIndex(line)
		if loc == nil {
			continue
		}
		name := line[loc[1]:]
		name = nameStopPattern.ReplaceAllString(name, "")
		name = panValuePattern.ReplaceAllString(name, "")
		name = collapseSpaces(name)
		name = strings.TrimSpace(nameJunkPattern.ReplaceAllString(name, ""))
		if name != "" {
			return name
		}
	}
	return ""
}

func parseAssesseeAddress(lines []string) string {
	for i, line := range lines {
		loc := addressLabelPattern.FindStringIndex(line)
		if loc == nil {
			continue
		}
		parts := []string{line[loc[1]:]}
		for j := i + 1; j < len(lines) && j <= i+addressLineSpan; j++ {
			next := strings.TrimSpace(lines[j])
			if next == "" || addressStopPattern.MatchString(next) {
				break
			}
			parts = append(parts, next)
		}
		addr := strings.Join(parts, " ")
		addr = aboveDataPattern.ReplaceAllString(addr, "")
		addr = addressCharPattern.ReplaceAllString(addr, "")
		addr = collapseSpaces(addr)
		if addr != "" {
			return addr
		}
	}
	return ""
}

// normalizeYearRange folds both printed forms into YYYY-YY, so
// "2024-2025" and "2024-25" come out identical.
func normalizeYearRange(s string) string {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return s
	}
	if len(parts[1]) == 4 {
		return parts[0] + "-" + parts[1][2:]
	}
	return s
}

// shiftYearRange moves a YYYY-YY range by delta years. The assessment
// year is always the financial year shifted forward by one.
func shiftYearRange(s string, delta int) string {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return ""
	}
	start, err := strconv.Atoi(parts[0])
	if err != nil {
		return ""
	}
	start += delta
	return fmt.Sprintf("%d-%02d", start, (start+1)%100)
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
