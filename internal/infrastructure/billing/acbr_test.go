package billing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func timePtr(t time.Time) *time.Time { return &t }

func TestAggregateRateLines_MergesSameTypeAndCoverage(t *testing.T) {
	from := timePtr(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	to := timePtr(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))

	lines := []RateLine{
		{Type: "recurring", PeriodFrom: from, PeriodTo: to, Cost: decimal.RequireFromString("12.10"), DutyFree: decimal.RequireFromString("10.00"), TaxRate: "0.21", Currency: "EUR", Reference: "charge-1"},
		{Type: "recurring", PeriodFrom: from, PeriodTo: to, Cost: decimal.RequireFromString("6.05"), DutyFree: decimal.RequireFromString("5.00"), TaxRate: "0.21", Currency: "EUR", Reference: "charge-2"},
	}

	bill := AggregateRateLines(lines)

	require.Len(t, bill, 1)
	assert.True(t, bill[0].Cost.Equal(decimal.RequireFromString("18.15")))
	assert.True(t, bill[0].DutyFree.Equal(decimal.RequireFromString("15.00")))
	assert.Equal(t, []string{"charge-1", "charge-2"}, bill[0].References)
}

func TestAggregateRateLines_KeepsDifferentTypesApart(t *testing.T) {
	from := timePtr(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	to := timePtr(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))

	lines := []RateLine{
		{Type: "recurring", PeriodFrom: from, PeriodTo: to, Cost: decimal.RequireFromString("12.10"), Currency: "EUR", Reference: "charge-1"},
		{Type: "usage", PeriodFrom: from, PeriodTo: to, Cost: decimal.RequireFromString("18.15"), Currency: "EUR", Reference: "charge-2"},
	}

	bill := AggregateRateLines(lines)

	require.Len(t, bill, 2)
	total := bill[0].Cost.Add(bill[1].Cost)
	assert.True(t, total.Equal(decimal.RequireFromString("30.25")))
}

func TestAggregateRateLines_KeepsDifferentCoverageApart(t *testing.T) {
	march := timePtr(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	april := timePtr(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
	may := timePtr(time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC))

	lines := []RateLine{
		{Type: "recurring", PeriodFrom: march, PeriodTo: april, Cost: decimal.RequireFromString("5.00"), Currency: "EUR", Reference: "charge-1"},
		{Type: "recurring", PeriodFrom: april, PeriodTo: may, Cost: decimal.RequireFromString("5.00"), Currency: "EUR", Reference: "charge-2"},
	}

	bill := AggregateRateLines(lines)

	assert.Len(t, bill, 2)
}

func TestAggregateRateLines_Empty(t *testing.T) {
	assert.Empty(t, AggregateRateLines(nil))
}

func TestNormalizeTaxRate(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "21", want: "0.21"},
		{input: "21.0", want: "0.21"},
		{input: "0.21", want: "0.21"},
		{input: "0", want: "0"},
		{input: "1", want: "1"},
		{input: "4.5", want: "0.045"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := NormalizeTaxRate(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeTaxRate_Invalid(t *testing.T) {
	_, err := NormalizeTaxRate("twenty-one")
	assert.Error(t, err)

	_, err = NormalizeTaxRate("-5")
	assert.Error(t, err)
}
