package output

import (
	"strconv"

	"github.com/rpgo/retirement-cashflow/internal/domain"
	"github.com/rpgo/retirement-cashflow/pkg/money"
	"github.com/shopspring/decimal"
)

// FormatCurrency formats a decimal as USD currency with 2 decimals.
// Kept here so it can be reused by multiple formatters and unit tested in isolation.
func FormatCurrency(amount decimal.Decimal) string {
	if amount.IsNegative() {
		return "-" + money.FormatCurrency(amount.Neg())
	}
	return money.FormatCurrency(amount)
}

// FormatPercentage formats a decimal as a percentage with 2 decimals.
func FormatPercentage(amount decimal.Decimal) string { return amount.StringFixed(2) + "%" }

func intToString(i int) string { return strconv.Itoa(i) }

func boolToString(b bool) string { return strconv.FormatBool(b) }

// ledgerSet is one labelled run of ledger rows.
type ledgerSet struct {
	Label string
	Rows  []domain.LedgerRow
}

// ledgerSets returns the ledgers a report carries, in render order.
func ledgerSets(report *domain.Report) []ledgerSet {
	var sets []ledgerSet
	if len(report.Rows) > 0 {
		sets = append(sets, ledgerSet{"projection", report.Rows})
	}
	if c := comparisonOf(report); c != nil {
		sets = append(sets,
			ledgerSet{"baseline", c.BaselineRows},
			ledgerSet{"conversion", c.ConversionRows})
	}
	return sets
}

// comparisonOf returns the comparison carried directly or through the optimizer's best schedule.
func comparisonOf(report *domain.Report) *domain.ComparisonResult {
	if report.Comparison != nil {
		return report.Comparison
	}
	if report.Optimization != nil {
		return report.Optimization.Comparison
	}
	return nil
}

// typeKeys is the sorted union of per-type balance keys across rows.
func typeKeys(rows []domain.LedgerRow) []string {
	union := make(map[string]decimal.Decimal)
	for _, r := range rows {
		for k, v := range r.TypeBalances {
			union[k] = v
		}
	}
	return domain.SortedKeys(union)
}
