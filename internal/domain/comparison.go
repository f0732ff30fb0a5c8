package domain

import (
	"github.com/shopspring/decimal"
)

// DefaultRothGrowthRate is the growth applied to the synthetic Roth account.
var DefaultRothGrowthRate = decimal.NewFromFloat(0.06)

// DefaultInheritanceTaxRate is the flat proxy applied to final traditional
// balances. It is a modeling convenience, not a statement of estate law.
var DefaultInheritanceTaxRate = decimal.NewFromFloat(0.25)

// ConversionParams drives a baseline-versus-conversion comparison.
type ConversionParams struct {
	ConversionStartYear int             `yaml:"conversion_start_year" json:"conversion_start_year"`
	YearsToConvert      int             `yaml:"years_to_convert" json:"years_to_convert"`
	AnnualAmount        decimal.Decimal `yaml:"annual_amount" json:"annual_amount"`
	// MaxAnnualAmount caps the annual amount derived from per-asset max_to_convert.
	MaxAnnualAmount         decimal.Decimal `yaml:"max_annual_amount,omitempty" json:"max_annual_amount,omitempty"`
	PreRetirementIncome     decimal.Decimal `yaml:"pre_retirement_income" json:"pre_retirement_income"`
	RothGrowthRate          decimal.Decimal `yaml:"roth_growth_rate" json:"roth_growth_rate"`
	RothWithdrawalAmount    decimal.Decimal `yaml:"roth_withdrawal_amount" json:"roth_withdrawal_amount"`
	RothWithdrawalStartYear int             `yaml:"roth_withdrawal_start_year" json:"roth_withdrawal_start_year"`
	// InheritanceTaxRate overrides DefaultInheritanceTaxRate when positive.
	InheritanceTaxRate decimal.Decimal `yaml:"inheritance_tax_rate,omitempty" json:"inheritance_tax_rate,omitempty"`
}

// Validate checks the parameters on their own; scenario-dependent checks
// (derived amounts, max_to_convert caps) happen in the comparator.
func (p ConversionParams) Validate() error {
	if p.ConversionStartYear <= 0 {
		return invalidField("conversion_start_year", "start year is required")
	}
	if p.YearsToConvert <= 0 {
		return invalidField("years_to_convert", "conversion duration must be positive, got %d", p.YearsToConvert)
	}
	if p.AnnualAmount.IsNegative() {
		return invalidField("annual_amount", "cannot be negative")
	}
	if p.MaxAnnualAmount.IsNegative() {
		return invalidField("max_annual_amount", "cannot be negative")
	}
	if p.PreRetirementIncome.IsNegative() {
		return invalidField("pre_retirement_income", "cannot be negative")
	}
	if p.RothWithdrawalAmount.IsNegative() {
		return invalidField("roth_withdrawal_amount", "cannot be negative")
	}
	if p.InheritanceTaxRate.IsNegative() || p.InheritanceTaxRate.GreaterThan(decimal.NewFromInt(1)) {
		return invalidField("inheritance_tax_rate", "must be between 0 and 1")
	}
	return nil
}

// RothConversion projects the parameters onto a scenario conversion block.
func (p ConversionParams) RothConversion() RothConversion {
	return RothConversion{
		StartYear:           p.ConversionStartYear,
		DurationYears:       p.YearsToConvert,
		AnnualAmount:        p.AnnualAmount,
		WithdrawalAmount:    p.RothWithdrawalAmount,
		WithdrawalStartYear: p.RothWithdrawalStartYear,
	}
}

// Metrics summarizes one projection run.
type Metrics struct {
	LifetimeTax         decimal.Decimal `json:"lifetime_tax"`
	LifetimeMedicare    decimal.Decimal `json:"lifetime_medicare"`
	TotalIRMAA          decimal.Decimal `json:"total_irmaa"`
	TotalRMDs           decimal.Decimal `json:"total_rmds"`
	CumulativeNetIncome decimal.Decimal `json:"cumulative_net_income"`
	FinalRoth           decimal.Decimal `json:"final_roth"`
	InheritanceTax      decimal.Decimal `json:"inheritance_tax"`
	TotalExpenses       decimal.Decimal `json:"total_expenses"`
}

// MetricNames lists the metrics in report order.
var MetricNames = []string{
	"lifetime_tax",
	"lifetime_medicare",
	"total_irmaa",
	"total_rmds",
	"cumulative_net_income",
	"final_roth",
	"inheritance_tax",
	"total_expenses",
}

// Value returns a metric by its report name.
func (m Metrics) Value(name string) (decimal.Decimal, bool) {
	switch name {
	case "lifetime_tax":
		return m.LifetimeTax, true
	case "lifetime_medicare":
		return m.LifetimeMedicare, true
	case "total_irmaa":
		return m.TotalIRMAA, true
	case "total_rmds":
		return m.TotalRMDs, true
	case "cumulative_net_income":
		return m.CumulativeNetIncome, true
	case "final_roth":
		return m.FinalRoth, true
	case "inheritance_tax":
		return m.InheritanceTax, true
	case "total_expenses":
		return m.TotalExpenses, true
	}
	return decimal.Zero, false
}

// MetricComparison is one metric side by side.
type MetricComparison struct {
	Baseline      decimal.Decimal `json:"baseline"`
	Conversion    decimal.Decimal `json:"conversion"`
	Difference    decimal.Decimal `json:"difference"`
	PercentChange decimal.Decimal `json:"percent_change"`
}

// MetricsBundle holds both runs' metrics and their comparison.
type MetricsBundle struct {
	Baseline   Metrics                     `json:"baseline"`
	Conversion Metrics                     `json:"conversion"`
	Comparison map[string]MetricComparison `json:"comparison"`
}

// AssetBalanceSeries is the per-type balance history used for charting.
// Assets sharing a type key are summed.
type AssetBalanceSeries struct {
	Years      []int                        `json:"years"`
	Baseline   map[string][]decimal.Decimal `json:"baseline"`
	Conversion map[string][]decimal.Decimal `json:"conversion"`
}

// ScoreBreakdown itemizes the savings of a schedule against the baseline.
type ScoreBreakdown struct {
	TaxSavings         decimal.Decimal `json:"tax_savings"`
	MedicareSavings    decimal.Decimal `json:"medicare_savings"`
	IRMAASavings       decimal.Decimal `json:"irmaa_savings"`
	InheritanceSavings decimal.Decimal `json:"inheritance_savings"`
	TotalSavings       decimal.Decimal `json:"total_savings"`
}

// OptimalSchedule summarizes the schedule that was evaluated.
type OptimalSchedule struct {
	StartYear      int             `json:"start_year"`
	Duration       int             `json:"duration"`
	AnnualAmount   decimal.Decimal `json:"annual_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	ScoreBreakdown ScoreBreakdown  `json:"score_breakdown"`
}

// ComparisonResult is the comparator output.
type ComparisonResult struct {
	BaselineRows     []LedgerRow        `json:"baseline_rows"`
	ConversionRows   []LedgerRow        `json:"conversion_rows"`
	Metrics          MetricsBundle      `json:"metrics"`
	ConversionParams ConversionParams   `json:"conversion_params"`
	AssetBalances    AssetBalanceSeries `json:"asset_balances"`
	OptimalSchedule  OptimalSchedule    `json:"optimal_schedule"`
}

// OptimizationGrid is the candidate space searched by the optimizer.
type OptimizationGrid struct {
	StartYears    []int             `json:"start_years"`
	Durations     []int             `json:"durations"`
	AnnualAmounts []decimal.Decimal `json:"annual_amounts"`
	// Base supplies the non-schedule parameters (pre-retirement income, growth, withdrawals).
	Base ConversionParams `json:"base"`
}

// Size is the number of candidates in the grid.
func (g OptimizationGrid) Size() int {
	return len(g.StartYears) * len(g.Durations) * len(g.AnnualAmounts)
}

// ScheduleScore is one evaluated candidate.
type ScheduleScore struct {
	StartYear    int             `json:"start_year"`
	Duration     int             `json:"duration"`
	AnnualAmount decimal.Decimal `json:"annual_amount"`
	Score        decimal.Decimal `json:"score"`
	Breakdown    ScoreBreakdown  `json:"score_breakdown"`
}

// OptimizationResult is the optimizer output: every candidate, best first.
type OptimizationResult struct {
	Best       ScheduleScore     `json:"best"`
	Candidates []ScheduleScore   `json:"candidates"`
	Comparison *ComparisonResult `json:"comparison,omitempty"`
}

// Report is what the output formatters render.
type Report struct {
	Name         string              `json:"name"`
	RunID        string              `json:"run_id"`
	Assumptions  []string            `json:"assumptions,omitempty"`
	Rows         []LedgerRow         `json:"rows,omitempty"`
	Comparison   *ComparisonResult   `json:"comparison,omitempty"`
	Optimization *OptimizationResult `json:"optimization,omitempty"`
}
