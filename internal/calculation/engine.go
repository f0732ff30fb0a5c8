// Package calculation is the annual cash-flow projection engine: the asset
// ledger, income aggregation, Social Security, Roth conversions, tax and
// Medicare, and the comparator and optimizer built on top of them.
package calculation

import (
	"context"
	"fmt"

	"github.com/rpgo/retirement-cashflow/internal/domain"
	"github.com/rpgo/retirement-cashflow/internal/logging"
	"github.com/rpgo/retirement-cashflow/internal/taxrules"
	"github.com/rpgo/retirement-cashflow/pkg/money"
	"github.com/shopspring/decimal"
)

// CalculationEngine orchestrates the annual ledger projection.
// It holds no per-run state and may be shared across goroutines.
type CalculationEngine struct {
	Rules          *taxrules.Store // nil uses the embedded defaults
	RuleYear       int             // 0 uses the latest loaded year
	RothGrowthRate decimal.Decimal
	SSCOLA         decimal.Decimal
	MedicareAge    int
	Logger         logging.Logger
}

// NewCalculationEngine creates an engine over the embedded tax rules.
func NewCalculationEngine() *CalculationEngine {
	return &CalculationEngine{
		RothGrowthRate: domain.DefaultRothGrowthRate,
		SSCOLA:         DefaultSSCOLA,
		MedicareAge:    DefaultMedicareAge,
		Logger:         logging.NopLogger{},
	}
}

// NewCalculationEngineWithRules creates an engine over a caller-supplied rule store.
func NewCalculationEngineWithRules(store *taxrules.Store) *CalculationEngine {
	ce := NewCalculationEngine()
	ce.Rules = store
	return ce
}

// SetLogger sets the logger for the calculation engine. If nil is provided, a no-op logger is used.
func (ce *CalculationEngine) SetLogger(l logging.Logger) {
	ce.Logger = logging.OrNop(l)
}

// WithRothGrowth returns a copy of the engine whose synthetic Roth grows at rate.
func (ce *CalculationEngine) WithRothGrowth(rate decimal.Decimal) *CalculationEngine {
	c := *ce
	c.RothGrowthRate = rate
	return &c
}

// YearRules resolves the reference-year rules the engine runs against.
func (ce *CalculationEngine) YearRules() (*taxrules.YearRules, error) {
	store := ce.Rules
	if store == nil {
		var err error
		if store, err = taxrules.Default(); err != nil {
			return nil, fmt.Errorf("loading tax rules: %w", err)
		}
	}
	year := ce.RuleYear
	if year == 0 {
		year = store.LatestYear()
	}
	r, err := store.ForYear(year)
	if err != nil {
		return nil, err
	}
	return r.WithLogger(logging.OrNop(ce.Logger)), nil
}

// Calculate projects the scenario year by year and returns the ledger. The
// scenario is copied; the caller's value is never modified. Identical inputs
// and rules give identical rows.
func (ce *CalculationEngine) Calculate(ctx context.Context, scenario *domain.Scenario) ([]domain.LedgerRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if scenario == nil {
		return nil, fmt.Errorf("%w: scenario is required", domain.ErrInvalidInput)
	}
	s := scenario.Clone()
	s.ApplyDefaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	rules, err := ce.YearRules()
	if err != nil {
		return nil, err
	}

	p := ce.newProjection(s, rules)
	rows, err := p.run()
	if err != nil {
		return nil, fmt.Errorf("projection %q failed: %w", s.Name, err)
	}
	return rows, nil
}

// projection is the mutable state of one Calculate call.
type projection struct {
	scenario *domain.Scenario
	logger   logging.Logger

	states []*assetState
	roth   *assetState

	rothGrowth decimal.Decimal
	ss         *SocialSecurityCalculator
	tax        *TaxCalculator
	medicare   *MedicareCalculator
	income     *IncomeAggregator

	cumulativeFederal decimal.Decimal
	widowLogged       bool
}

func (ce *CalculationEngine) newProjection(s *domain.Scenario, rules *taxrules.YearRules) *projection {
	logger := logging.OrNop(ce.Logger)
	ss := NewSocialSecurityCalculator()
	if !ce.SSCOLA.IsZero() {
		ss.COLA = ce.SSCOLA
	}
	medicare := NewMedicareCalculator(rules, s.PartBInflationRate, s.PartDInflationRate)
	if ce.MedicareAge > 0 {
		medicare.EligibleAge = ce.MedicareAge
	}
	p := &projection{
		scenario:          s,
		logger:            logger,
		states:            newAssetStates(s, logger),
		rothGrowth:        ce.RothGrowthRate,
		ss:                ss,
		tax:               NewTaxCalculator(rules),
		medicare:          medicare,
		income:            &IncomeAggregator{Logger: logger},
		cumulativeFederal: decimal.Zero,
	}
	for _, a := range p.states {
		if a.ID == SyntheticRothID {
			p.roth = a
		}
	}
	return p
}

// syntheticRoth returns the conversion target, creating it on first use.
func (p *projection) syntheticRoth() *assetState {
	if p.roth == nil {
		p.roth = newSyntheticRoth(&p.scenario.Primary, p.rothGrowth)
		p.states = append(p.states, p.roth)
		p.logger.Debugf("created synthetic Roth growing at %s", p.roth.rate)
	}
	return p.roth
}

func (p *projection) run() ([]domain.LedgerRow, error) {
	s := p.scenario
	start, end := ProjectionStartYear(s), projectionEndYear(s)

	asOf := s.CurrentYear
	if asOf == 0 {
		asOf = systemYear()
	}
	catchUp(p.states, asOf, start, s.RothConversion, p.syntheticRoth, p.logger)

	p.logger.Debugf("projecting %s from %d to %d", s, start, end)
	rows := make([]domain.LedgerRow, 0, end-start+1)
	for year := start; year <= end; year++ {
		h := deriveHousehold(s, year)
		if !h.anyoneAlive() {
			break
		}
		row := p.projectYear(year, h)
		if err := checkMagnitudes(row); err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// projectYear runs the annual sequence: RMDs on last year's balances,
// contributions and growth, income and withdrawals, Social Security,
// conversion planning, tax, Medicare, conversion commit, hold-harmless,
// then settlement.
func (p *projection) projectYear(year int, h household) domain.LedgerRow {
	s := p.scenario
	rc := s.RothConversion
	if h.widowed && !p.widowLogged {
		p.logger.Infof("%d: filing status changes from %s to %s", year, s.FilingStatus, h.filing)
		p.widowLogged = true
	}

	for _, a := range p.states {
		a.rmd = scheduleRMD(a, year, a.age(year), a.ownerAlive(year))
	}

	contributions := decimal.Zero
	for _, a := range p.states {
		if !a.Kind.HoldsBalance() {
			continue
		}
		contributions = contributions.Add(a.contribute(year))
		a.grow()
		if a.rmd.drain {
			a.rmd.amount = money.RoundMoney(a.balance)
		}
	}

	inc := p.income.Aggregate(p.states, year)
	if year < s.Primary.RetirementYear() {
		inc.add(PreRetirementSource, money.RoundMoney(s.PreRetirementIncome), false)
	}
	inc.add(SyntheticRothID, money.RoundMoney(rothPayout(rc, p.roth, year, p.logger)), true)

	ss := p.ss.Calculate(p.states, year, h.filing, s.SSReduction)

	plan := conversionPlan{total: decimal.Zero}
	if rc.InWindow(year) {
		plan = planConversion(p.states, rc.AnnualAmount, year)
	}

	tax := p.tax.Calculate(TaxInput{
		FilingStatus:      h.filing,
		State:             s.State,
		TaxableIncome:     inc.Taxable,
		TaxFreeIncome:     inc.TaxFree,
		SSNet:             ss.Net,
		TaxExemptInterest: s.TaxExemptInterest,
		Conversion:        plan.total,
		ApplyDeduction:    s.ApplyStandardDeduction,
	})

	med := p.medicare.Calculate(p.medicare.CoveredPersons(s, year), year, h.filing, tax.MAGI)

	converted := decimal.Zero
	if plan.total.IsPositive() {
		converted = commitConversion(plan, p.syntheticRoth(), p.logger, year)
	}

	hh := p.medicare.ApplyHoldHarmless(med, ss.Net)

	for _, a := range p.states {
		a.settle(p.logger, year)
	}
	p.medicare.RecordMAGI(year, tax.MAGI)

	return p.buildRow(year, h, inc, ss, tax, med, hh, converted, contributions)
}

func (p *projection) buildRow(year int, h household, inc IncomeResult, ss SSResult, tax TaxResult,
	med MedicareCost, hh HoldHarmless, converted, contributions decimal.Decimal) domain.LedgerRow {
	s := p.scenario
	r := money.RoundMoney

	row := domain.LedgerRow{
		Year:         year,
		PrimaryAge:   s.Primary.AgeIn(year),
		PrimaryAlive: h.primaryAlive,
		SpouseAlive:  h.spouseAlive,
		FilingStatus: h.filing,

		GrossIncome:          r(inc.Gross()),
		TaxFreeIncome:        r(inc.TaxFree),
		SSIncome:             r(ss.Net),
		SSIncomePrimary:      r(ss.PrimaryNet),
		SSIncomeSpouse:       r(ss.SpouseNet),
		SSIncomePrimaryGross: r(ss.PrimaryGross),
		SSIncomeSpouseGross:  r(ss.SpouseGross),
		TaxableSS:            r(tax.TaxableSS),
		IncomeBySource:       roundedMap(inc.BySource),

		AssetBalances: make(map[string]decimal.Decimal),
		RMDRequired:   roundedMap(inc.RMDs),
		Contributions: r(contributions),

		AGI:               r(tax.AGI),
		MAGI:              r(tax.MAGI),
		LookbackMAGI:      r(med.LookbackMAGI),
		LookbackYear:      med.LookbackYear,
		StandardDeduction: r(tax.StandardDeduction),
		TaxableIncome:     r(tax.TaxableIncome),
		FederalTax:        r(tax.FederalTax),
		StateTax:          r(tax.StateTax),
		TaxBracket:        tax.Bracket,
		MarginalRate:      money.RoundRate(tax.MarginalRate),
		EffectiveRate:     money.RoundRate(tax.EffectiveRate),

		MedicareBasePartB:     r(med.PartB),
		PartD:                 r(med.PartD),
		MedicareBase:          r(med.Base()),
		PartBSurcharge:        r(med.PartBSurcharge),
		PartDSurcharge:        r(med.PartDSurcharge),
		IRMAASurcharge:        r(med.Surcharge()),
		IRMAABracketNumber:    med.Tier.Number,
		IRMAAThreshold:        r(med.Tier.Threshold),
		TotalMedicare:         r(med.Total()),
		EffectiveMedicare:     r(hh.Effective),
		HoldHarmlessProtected: hh.Protected,
		HoldHarmlessAmount:    r(hh.Amount),
		RemainingSS:           r(hh.RemainingSS),

		RothConversion:    r(converted),
		SSDecreaseApplied: ss.AdjustmentUsed,
		SSDecreaseAmount:  r(ss.Adjustment),

		TypeBalances: roundedMap(typeBalances(p.states)),
	}
	if s.Spouse != nil {
		age := s.Spouse.AgeIn(year)
		row.SpouseAge = &age
	}

	rmdTotal := decimal.Zero
	for _, v := range row.RMDRequired {
		rmdTotal = rmdTotal.Add(v)
	}
	row.RMDTotal = rmdTotal
	for _, a := range p.states {
		if a.Kind.HoldsBalance() {
			row.AssetBalances[a.ID] = r(a.balance)
		}
	}

	p.cumulativeFederal = p.cumulativeFederal.Add(row.FederalTax)
	row.CumulativeFederalTax = p.cumulativeFederal

	row.GrossIncomeTotal = row.GrossIncome.Add(row.SSIncome)
	row.AfterTaxIncome = row.GrossIncomeTotal.Sub(row.FederalTax).Sub(row.StateTax)
	row.AfterMedicareIncome = row.AfterTaxIncome.Sub(row.EffectiveMedicare)
	row.NetIncome = row.AfterMedicareIncome
	row.RemainingIncome = row.AfterMedicareIncome.Sub(row.Contributions)
	return row
}

func roundedMap(m map[string]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(m))
	for k, v := range m {
		out[k] = money.RoundMoney(v)
	}
	return out
}

// checkMagnitudes rejects rows carrying amounts too large to be meaningful.
func checkMagnitudes(row domain.LedgerRow) error {
	check := func(name string, v decimal.Decimal) error {
		if !money.InRange(v) {
			return fmt.Errorf("%w: %d %s = %s", domain.ErrNumericOverflow, row.Year, name, v.String())
		}
		return nil
	}
	scalars := map[string]decimal.Decimal{
		"gross_income_total": row.GrossIncomeTotal,
		"agi":                row.AGI,
		"magi":               row.MAGI,
		"taxable_income":     row.TaxableIncome,
		"federal_tax":        row.FederalTax,
		"total_medicare":     row.TotalMedicare,
		"roth_conversion":    row.RothConversion,
		"rmd_total":          row.RMDTotal,
		"net_income":         row.NetIncome,
	}
	for _, name := range domain.SortedKeys(scalars) {
		if err := check(name, scalars[name]); err != nil {
			return err
		}
	}
	for _, id := range domain.SortedKeys(row.AssetBalances) {
		if err := check("asset_balances."+id, row.AssetBalances[id]); err != nil {
			return err
		}
	}
	return nil
}
