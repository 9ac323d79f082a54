package billing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const coverageTimeLayout = "2006-01-02"

// RateLine is a single committed charge prepared for reporting to the
// billing system
type RateLine struct {
	Type       string          `json:"type"`
	PeriodFrom *time.Time      `json:"period_from,omitempty"`
	PeriodTo   *time.Time      `json:"period_to,omitempty"`
	Cost       decimal.Decimal `json:"cost"`
	DutyFree   decimal.Decimal `json:"duty_free"`
	TaxRate    string          `json:"tax_rate"`
	Currency   string          `json:"currency"`
	ProductID  string          `json:"product_id"`
	Reference  string          `json:"reference"`
}

// BillLine is one aggregated entry of a customer bill. Lines sharing charge
// type and period coverage are merged monetarily while keeping every source
// charge reference.
type BillLine struct {
	Type       string          `json:"type"`
	PeriodFrom *time.Time      `json:"period_from,omitempty"`
	PeriodTo   *time.Time      `json:"period_to,omitempty"`
	Cost       decimal.Decimal `json:"cost"`
	DutyFree   decimal.Decimal `json:"duty_free"`
	TaxRate    string          `json:"tax_rate"`
	Currency   string          `json:"currency"`
	References []string        `json:"references"`
}

// periodCoverage derives the grouping key fragment of a rate line's validity
// window. Lines without a window share the empty coverage.
func periodCoverage(from, to *time.Time) string {
	coverage := ""
	if from != nil {
		coverage = from.UTC().Format(coverageTimeLayout)
	}
	coverage += "/"
	if to != nil {
		coverage += to.UTC().Format(coverageTimeLayout)
	}
	return coverage
}

// AggregateRateLines merges rate lines into bill lines. Two lines merge when
// they share charge type and period coverage; merging adds their amounts and
// concatenates their charge references. The input order of first appearance
// is preserved.
func AggregateRateLines(lines []RateLine) []BillLine {
	type key struct {
		lineType string
		coverage string
	}

	index := make(map[key]int)
	var bill []BillLine

	for _, line := range lines {
		k := key{lineType: line.Type, coverage: periodCoverage(line.PeriodFrom, line.PeriodTo)}
		if i, ok := index[k]; ok {
			bill[i].Cost = bill[i].Cost.Add(line.Cost)
			bill[i].DutyFree = bill[i].DutyFree.Add(line.DutyFree)
			bill[i].References = append(bill[i].References, line.Reference)
			continue
		}

		index[k] = len(bill)
		bill = append(bill, BillLine{
			Type:       line.Type,
			PeriodFrom: line.PeriodFrom,
			PeriodTo:   line.PeriodTo,
			Cost:       line.Cost,
			DutyFree:   line.DutyFree,
			TaxRate:    line.TaxRate,
			Currency:   line.Currency,
			References: []string{line.Reference},
		})
	}
	return bill
}

// NormalizeTaxRate canonicalizes a tax rate expression to its fractional
// form. Rates greater than one are treated as percentages, so "21", "21.0"
// and "0.21" all normalize to "0.21".
func NormalizeTaxRate(rate string) (string, error) {
	value, err := decimal.NewFromString(rate)
	if err != nil {
		return "", fmt.Errorf("billing: invalid tax rate %q: %w", rate, err)
	}
	if value.IsNegative() {
		return "", fmt.Errorf("billing: invalid tax rate %q: negative", rate)
	}
	if value.GreaterThan(decimal.NewFromInt(1)) {
		value = value.Div(decimal.NewFromInt(100))
	}
	return value.String(), nil
}
