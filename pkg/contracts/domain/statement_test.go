package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssesseeInfoIsEmpty(t *testing.T) {
	tests := []struct {
		name     string
		assessee AssesseeInfo
		want     bool
	}{
		{
			name:     "zero value is empty",
			assessee: AssesseeInfo{},
			want:     true,
		},
		{
			name:     "name alone is not empty",
			assessee: AssesseeInfo{Name: "RAMESH KUMAR"},
			want:     false,
		},
		{
			name:     "pan alone is not empty",
			assessee: AssesseeInfo{PAN: "AAAPA1234A"},
			want:     false,
		},
		{
			name:     "address alone is not empty",
			assessee: AssesseeInfo{Address: "12 MG Road, Mumbai"},
			want:     false,
		},
		{
			name: "fully populated is not empty",
			assessee: AssesseeInfo{
				Name:           "RAMESH KUMAR",
				PAN:            "AAAPA1234A",
				FinancialYear:  "2023-24",
				AssessmentYear: "2024-25",
				Address:        "12 MG Road, Mumbai",
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.assessee.IsEmpty())
		})
	}
}

func TestAssesseeInfoJSONAlwaysCarriesEveryField(t *testing.T) {
	data, err := json.Marshal(AssesseeInfo{Name: "RAMESH KUMAR"})
	require.NoError(t, err)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(data, &decoded))

	for _, key := range []string{"name", "pan", "financial_year", "assessment_year", "address"} {
		_, ok := decoded[key]
		assert.True(t, ok, "field %q should be present even when empty", key)
	}
}

func TestExtractionResultIsEmpty(t *testing.T) {
	tests := []struct {
		name   string
		result ExtractionResult
		want   bool
	}{
		{
			name:   "no transactions",
			result: ExtractionResult{},
			want:   true,
		},
		{
			name: "identity only statement is still empty",
			result: ExtractionResult{
				Assessee: AssesseeInfo{Name: "RAMESH KUMAR", PAN: "AAAPA1234A"},
				Stats:    ExtractionStats{PageCount: 2},
			},
			want: true,
		},
		{
			name: "one transaction",
			result: ExtractionResult{
				Transactions: []TransactionRecord{{SrNo: 1, DeductorName: "STATE BANK OF INDIA"}},
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.result.IsEmpty())
		})
	}
}

func TestBookingStatusCodes(t *testing.T) {
	assert.Equal(t, "F", BookingStatusFinal)
	assert.Equal(t, "U", BookingStatusUnmatched)
	assert.Equal(t, "O", BookingStatusOverbooked)
	assert.Equal(t, "P", BookingStatusProvisional)
}
