package output

import (
	"github.com/rpgo/retirement-cashflow/internal/calculation"
	"github.com/rpgo/retirement-cashflow/internal/domain"
	"github.com/shopspring/decimal"
)

// Recommendation encapsulates whether the evaluated conversion schedule pays off.
type Recommendation struct {
	Convert          bool
	Schedule         domain.OptimalSchedule
	TotalSavings     decimal.Decimal
	PercentChange    decimal.Decimal
	FinalRothBalance decimal.Decimal
}

// AnalyzeComparison reads the comparison metrics and recommends the
// conversion when it lowers total expenses.
// Extracted from embedded console logic for testability.
func AnalyzeComparison(c *domain.ComparisonResult) Recommendation {
	if c == nil {
		return Recommendation{}
	}
	savings := c.OptimalSchedule.ScoreBreakdown.TotalSavings
	rec := Recommendation{
		Convert:          savings.IsPositive() && c.OptimalSchedule.TotalAmount.IsPositive(),
		Schedule:         c.OptimalSchedule,
		TotalSavings:     savings,
		FinalRothBalance: c.Metrics.Conversion.FinalRoth,
	}
	if m, ok := c.Metrics.Comparison["total_expenses"]; ok {
		rec.PercentChange = m.PercentChange
	}
	return rec
}

// ProjectionSummary condenses a single ledger for the console header.
type ProjectionSummary struct {
	FirstYear int
	LastYear  int
	Metrics   domain.Metrics
}

// SummarizeProjection computes lifetime totals for a ledger.
func SummarizeProjection(rows []domain.LedgerRow) ProjectionSummary {
	if len(rows) == 0 {
		return ProjectionSummary{}
	}
	return ProjectionSummary{
		FirstYear: rows[0].Year,
		LastYear:  rows[len(rows)-1].Year,
		Metrics:   calculation.ExtractMetrics(rows, domain.DefaultInheritanceTaxRate),
	}
}
