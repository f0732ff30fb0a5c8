package calculation

import (
	"context"
	"fmt"
	"sort"

	"github.com/rpgo/retirement-cashflow/internal/domain"
	"github.com/rpgo/retirement-cashflow/internal/logging"
	"github.com/rpgo/retirement-cashflow/pkg/money"
	"github.com/shopspring/decimal"
)

// traditionalKinds are the balance keys taxed by the inheritance proxy.
var traditionalKinds = []domain.AssetKind{
	domain.KindQualified,
	domain.KindInheritedTraditionalSpouse,
	domain.KindInheritedTraditionalNon,
}

// Comparator runs a scenario with and without a Roth conversion schedule
// and reports the difference.
type Comparator struct {
	Engine *CalculationEngine
	Logger logging.Logger
}

// NewComparator creates a comparator over engine.
func NewComparator(engine *CalculationEngine) *Comparator {
	return &Comparator{Engine: engine, Logger: logging.OrNop(engine.Logger)}
}

// ResolveConversionAmount fills in the annual amount when the caller left it
// at zero: the per-asset max_to_convert caps are spread over the requested
// years, and when a max annual amount binds the duration is stretched to fit.
func ResolveConversionAmount(s *domain.Scenario, p domain.ConversionParams) domain.ConversionParams {
	if p.AnnualAmount.IsPositive() {
		return p
	}
	total := s.TotalMaxToConvert()
	if !total.IsPositive() || p.YearsToConvert <= 0 {
		return p
	}
	annual := money.RoundMoney(total.Div(decimal.NewFromInt(int64(p.YearsToConvert))))
	if p.MaxAnnualAmount.IsPositive() && annual.GreaterThan(p.MaxAnnualAmount) {
		annual = p.MaxAnnualAmount
		years := int(total.Div(annual).Round(0).IntPart())
		if years < 1 {
			years = 1
		}
		p.YearsToConvert = years
	}
	p.AnnualAmount = annual
	return p
}

// Compare projects the baseline (no conversions) and the conversion scenario.
func (c *Comparator) Compare(ctx context.Context, scenario *domain.Scenario, params domain.ConversionParams) (*domain.ComparisonResult, error) {
	if scenario == nil {
		return nil, fmt.Errorf("%w: scenario is required", domain.ErrInvalidInput)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	base := scenario.Clone()
	base.ApplyDefaults()
	params = ResolveConversionAmount(base, params)
	if params.PreRetirementIncome.IsPositive() {
		base.PreRetirementIncome = params.PreRetirementIncome
	} else {
		params.PreRetirementIncome = base.PreRetirementIncome
	}

	engine := c.Engine
	if params.RothGrowthRate.IsPositive() {
		engine = engine.WithRothGrowth(params.RothGrowthRate)
	} else {
		params.RothGrowthRate = engine.RothGrowthRate
	}
	inheritanceRate := params.InheritanceTaxRate
	if !inheritanceRate.IsPositive() {
		inheritanceRate = domain.DefaultInheritanceTaxRate
	}

	// Both runs share the first ledger year so every metric covers the same span.
	baseline := base.Clone()
	baseline.RothConversion = domain.RothConversion{}
	conversion := base.Clone()
	conversion.RothConversion = params.RothConversion()
	natural := ProjectionStartYear(baseline)
	span := ProjectionStartYear(conversion)
	if natural < span {
		span = natural
	}
	baseline.StartYear, conversion.StartYear = span, span

	baseRows, err := engine.Calculate(ctx, baseline)
	if err != nil {
		return nil, fmt.Errorf("baseline run: %w", err)
	}
	convRows, err := engine.Calculate(ctx, conversion)
	if err != nil {
		return nil, fmt.Errorf("conversion run: %w", err)
	}
	markExtended(baseRows, natural)
	markExtended(convRows, natural)

	baseMetrics := ExtractMetrics(baseRows, inheritanceRate)
	convMetrics := ExtractMetrics(convRows, inheritanceRate)
	c.Logger.Debugf("compare %s: baseline expenses %s, conversion expenses %s",
		base.Name, baseMetrics.TotalExpenses, convMetrics.TotalExpenses)

	return &domain.ComparisonResult{
		BaselineRows:   baseRows,
		ConversionRows: convRows,
		Metrics: domain.MetricsBundle{
			Baseline:   baseMetrics,
			Conversion: convMetrics,
			Comparison: CompareMetrics(baseMetrics, convMetrics),
		},
		ConversionParams: params,
		AssetBalances:    BalanceSeries(baseRows, convRows),
		OptimalSchedule: domain.OptimalSchedule{
			StartYear:      params.ConversionStartYear,
			Duration:       params.YearsToConvert,
			AnnualAmount:   params.AnnualAmount,
			TotalAmount:    params.AnnualAmount.Mul(decimal.NewFromInt(int64(params.YearsToConvert))),
			ScoreBreakdown: Savings(baseMetrics, convMetrics),
		},
	}, nil
}

// markExtended flags the rows before the baseline's own first year: the
// years a conversion window pulled ahead of retirement.
func markExtended(rows []domain.LedgerRow, natural int) {
	for i := range rows {
		rows[i].IsSynthetic = rows[i].Year < natural
	}
}

// ExtractMetrics summarizes a ledger. The inheritance figure is a flat proxy
// on the final traditional balances.
func ExtractMetrics(rows []domain.LedgerRow, inheritanceRate decimal.Decimal) domain.Metrics {
	m := domain.Metrics{
		LifetimeTax:         decimal.Zero,
		LifetimeMedicare:    decimal.Zero,
		TotalIRMAA:          decimal.Zero,
		TotalRMDs:           decimal.Zero,
		CumulativeNetIncome: decimal.Zero,
		FinalRoth:           decimal.Zero,
		InheritanceTax:      decimal.Zero,
	}
	for _, r := range rows {
		m.LifetimeTax = m.LifetimeTax.Add(r.FederalTax)
		m.LifetimeMedicare = m.LifetimeMedicare.Add(r.MedicareBase)
		m.TotalIRMAA = m.TotalIRMAA.Add(r.IRMAASurcharge)
		m.TotalRMDs = m.TotalRMDs.Add(r.RMDTotal)
		m.CumulativeNetIncome = m.CumulativeNetIncome.Add(r.NetIncome)
	}
	if len(rows) > 0 {
		last := rows[len(rows)-1]
		m.FinalRoth = last.TypeBalance(domain.KindRoth.BalanceKey())
		traditional := decimal.Zero
		for _, k := range traditionalKinds {
			traditional = traditional.Add(last.TypeBalance(k.BalanceKey()))
		}
		m.InheritanceTax = money.RoundMoney(traditional.Mul(inheritanceRate))
	}
	m.TotalExpenses = m.LifetimeTax.Add(m.LifetimeMedicare).Add(m.TotalIRMAA).Add(m.InheritanceTax)
	return m
}

// CompareMetrics reports every metric side by side. Percent change is zero
// when the baseline is zero.
func CompareMetrics(baseline, conversion domain.Metrics) map[string]domain.MetricComparison {
	out := make(map[string]domain.MetricComparison, len(domain.MetricNames))
	for _, name := range domain.MetricNames {
		b, _ := baseline.Value(name)
		c, _ := conversion.Value(name)
		diff := c.Sub(b)
		out[name] = domain.MetricComparison{
			Baseline:      b,
			Conversion:    c,
			Difference:    diff,
			PercentChange: money.RoundMoney(money.Percent(diff, b)),
		}
	}
	return out
}

// Savings is what the conversion saves relative to the baseline, per expense.
func Savings(baseline, conversion domain.Metrics) domain.ScoreBreakdown {
	return domain.ScoreBreakdown{
		TaxSavings:         baseline.LifetimeTax.Sub(conversion.LifetimeTax),
		MedicareSavings:    baseline.LifetimeMedicare.Sub(conversion.LifetimeMedicare),
		IRMAASavings:       baseline.TotalIRMAA.Sub(conversion.TotalIRMAA),
		InheritanceSavings: baseline.InheritanceTax.Sub(conversion.InheritanceTax),
		TotalSavings:       baseline.TotalExpenses.Sub(conversion.TotalExpenses),
	}
}

// BalanceSeries lines up per-type balances of both runs by year for charting.
// Years missing from a run read as zero.
func BalanceSeries(baseline, conversion []domain.LedgerRow) domain.AssetBalanceSeries {
	yearSet := make(map[int]bool)
	keySet := make(map[string]bool)
	index := func(rows []domain.LedgerRow) map[int]domain.LedgerRow {
		byYear := make(map[int]domain.LedgerRow, len(rows))
		for _, r := range rows {
			byYear[r.Year] = r
			yearSet[r.Year] = true
			for k := range r.TypeBalances {
				keySet[k] = true
			}
		}
		return byYear
	}
	baseByYear, convByYear := index(baseline), index(conversion)

	series := domain.AssetBalanceSeries{
		Baseline:   make(map[string][]decimal.Decimal),
		Conversion: make(map[string][]decimal.Decimal),
	}
	for y := range yearSet {
		series.Years = append(series.Years, y)
	}
	sort.Ints(series.Years)

	for k := range keySet {
		b := make([]decimal.Decimal, len(series.Years))
		c := make([]decimal.Decimal, len(series.Years))
		for i, y := range series.Years {
			b[i] = baseByYear[y].TypeBalance(k)
			c[i] = convByYear[y].TypeBalance(k)
		}
		series.Baseline[k] = b
		series.Conversion[k] = c
	}
	return series
}
