package exporter

import (
	"fmt"
	"strings"
	"time"

	"taxledger/internal/config"
	"taxledger/pkg/contracts/domain"
)

const filenameTimestampLayout = "20060102_150405"

// BuildFilename derives the suggested workbook name from the assessee
// identity and the generation timestamp:
//
//	26AS_{PAN}_{financial year with - as _}_{yyyymmdd_hhmmss}.xlsx
//
// Empty identity fields fall back to the Unknown placeholder so the name
// always carries all four segments.
func BuildFilename(assessee domain.AssesseeInfo, generatedAt time.Time) string {
	pan := assessee.PAN
	if pan == "" {
		pan = config.UnknownLabel
	}

	fy := strings.ReplaceAll(assessee.FinancialYear, "-", "_")
	if fy == "" {
		fy = config.UnknownLabel
	}

	return fmt.Sprintf("%s%s_%s_%s.xlsx",
		config.ExportFilePrefix, pan, fy, generatedAt.Format(filenameTimestampLayout))
}
