package output

import (
	"fmt"

	"github.com/rpgo/retirement-cashflow/internal/domain"
	"github.com/rpgo/retirement-cashflow/internal/taxrules"
	"github.com/rpgo/retirement-cashflow/pkg/money"
	"github.com/shopspring/decimal"
)

// DefaultAssumptions lists key modeling assumptions rendered when a report
// carries none of its own.
var DefaultAssumptions = []string{
	"Federal tax brackets: reference-year levels held constant (no inflation indexing)",
	"IRMAA thresholds inflate 1.0% annually from the reference year",
	"Social Security COLA: 2.0% annually",
	"Inheritance tax proxy: 25.0% of final traditional balances",
	"Synthetic Roth growth: 6.0% annually",
}

// GenerateAssumptions creates the assumptions list from the rules and inputs actually used.
func GenerateAssumptions(s *domain.Scenario, rules *taxrules.YearRules, ssCOLA decimal.Decimal, params *domain.ConversionParams) []string {
	partB, _ := money.NormalizeRate(s.PartBInflationRate)
	partD, _ := money.NormalizeRate(s.PartDInflationRate)
	out := []string{
		fmt.Sprintf("Federal tax brackets: %d levels held constant (no inflation indexing)", rules.Year),
		fmt.Sprintf("IRMAA thresholds inflate %s annually from %d", pct(rules.Medicare.ThresholdInflation), rules.Year),
		fmt.Sprintf("Medicare premium inflation: Part B %s, Part D %s annually", pct(partB), pct(partD)),
		fmt.Sprintf("Social Security COLA: %s annually", pct(ssCOLA)),
	}
	if s.State != "" {
		out = append(out, fmt.Sprintf("State income tax: %s flat rate table", s.State))
	}
	if params != nil {
		rate := params.InheritanceTaxRate
		if !rate.IsPositive() {
			rate = domain.DefaultInheritanceTaxRate
		}
		out = append(out,
			fmt.Sprintf("Inheritance tax proxy: %s of final traditional balances", pct(rate)),
			fmt.Sprintf("Synthetic Roth growth: %s annually", pct(params.RothGrowthRate)))
	}
	return out
}

func pct(rate decimal.Decimal) string {
	return rate.Mul(decimalHundred).StringFixed(1) + "%"
}

var decimalHundred = decimal.NewFromInt(100)
