package config

import (
	"fmt"

	"github.com/rpgo/retirement-cashflow/internal/domain"
	"github.com/rpgo/retirement-cashflow/pkg/dateutil"
	"github.com/rpgo/retirement-cashflow/pkg/money"
	"github.com/shopspring/decimal"
)

// ScenarioFile is the on-disk scenario document. Amounts are plain numbers
// here and become decimals when the file is converted to a domain.Scenario.
type ScenarioFile struct {
	Name                   string  `yaml:"name" json:"name" toml:"name"`
	FilingStatus           string  `yaml:"filing_status" json:"filing_status" toml:"filing_status"`
	State                  string  `yaml:"state,omitempty" json:"state,omitempty" toml:"state,omitempty"`
	CurrentYear            int     `yaml:"current_year,omitempty" json:"current_year,omitempty" toml:"current_year,omitempty"`
	PartBInflationRate     float64 `yaml:"part_b_inflation_rate" json:"part_b_inflation_rate" toml:"part_b_inflation_rate"`
	PartDInflationRate     float64 `yaml:"part_d_inflation_rate" json:"part_d_inflation_rate" toml:"part_d_inflation_rate"`
	ApplyStandardDeduction bool    `yaml:"apply_standard_deduction" json:"apply_standard_deduction" toml:"apply_standard_deduction"`
	TaxExemptInterest      float64 `yaml:"tax_exempt_interest,omitempty" json:"tax_exempt_interest,omitempty" toml:"tax_exempt_interest,omitempty"`
	PreRetirementIncome    float64 `yaml:"pre_retirement_income,omitempty" json:"pre_retirement_income,omitempty" toml:"pre_retirement_income,omitempty"`

	Client         PersonFile          `yaml:"client" json:"client" toml:"client"`
	Spouse         *PersonFile         `yaml:"spouse,omitempty" json:"spouse,omitempty" toml:"spouse,omitempty"`
	SSReduction    *SSReductionFile    `yaml:"ss_reduction,omitempty" json:"ss_reduction,omitempty" toml:"ss_reduction,omitempty"`
	RothConversion *RothConversionFile `yaml:"roth_conversion,omitempty" json:"roth_conversion,omitempty" toml:"roth_conversion,omitempty"`
	Assets         []AssetFile         `yaml:"assets,omitempty" json:"assets,omitempty" toml:"assets,omitempty"`

	// Comparison and Optimization drive the compare and optimize commands.
	Comparison   *ComparisonFile   `yaml:"comparison,omitempty" json:"comparison,omitempty" toml:"comparison,omitempty"`
	Optimization *OptimizationFile `yaml:"optimization,omitempty" json:"optimization,omitempty" toml:"optimization,omitempty"`
}

// PersonFile is a household member.
type PersonFile struct {
	Name          string `yaml:"name,omitempty" json:"name,omitempty" toml:"name,omitempty"`
	BirthDate     string `yaml:"birth_date" json:"birth_date" toml:"birth_date"`
	RetirementAge int    `yaml:"retirement_age,omitempty" json:"retirement_age,omitempty" toml:"retirement_age,omitempty"`
	MortalityAge  int    `yaml:"mortality_age,omitempty" json:"mortality_age,omitempty" toml:"mortality_age,omitempty"`
}

// AssetFile is one income source or account.
type AssetFile struct {
	ID                  string   `yaml:"id" json:"id" toml:"id"`
	Name                string   `yaml:"name,omitempty" json:"name,omitempty" toml:"name,omitempty"`
	Kind                string   `yaml:"kind" json:"kind" toml:"kind"`
	Owner               string   `yaml:"owner,omitempty" json:"owner,omitempty" toml:"owner,omitempty"`
	CurrentBalance      float64  `yaml:"current_balance,omitempty" json:"current_balance,omitempty" toml:"current_balance,omitempty"`
	MonthlyContribution float64  `yaml:"monthly_contribution,omitempty" json:"monthly_contribution,omitempty" toml:"monthly_contribution,omitempty"`
	MonthlyAmount       float64  `yaml:"monthly_amount,omitempty" json:"monthly_amount,omitempty" toml:"monthly_amount,omitempty"`
	RateOfReturn        float64  `yaml:"rate_of_return,omitempty" json:"rate_of_return,omitempty" toml:"rate_of_return,omitempty"`
	COLA                float64  `yaml:"cola,omitempty" json:"cola,omitempty" toml:"cola,omitempty"`
	WithdrawalStartAge  int      `yaml:"withdrawal_start_age,omitempty" json:"withdrawal_start_age,omitempty" toml:"withdrawal_start_age,omitempty"`
	WithdrawalEndAge    int      `yaml:"withdrawal_end_age,omitempty" json:"withdrawal_end_age,omitempty" toml:"withdrawal_end_age,omitempty"`
	MaxToConvert        *float64 `yaml:"max_to_convert,omitempty" json:"max_to_convert,omitempty" toml:"max_to_convert,omitempty"`
	InheritanceYear     int      `yaml:"inheritance_year,omitempty" json:"inheritance_year,omitempty" toml:"inheritance_year,omitempty"`
}

// SSReductionFile is the programmatic Social Security adjustment.
type SSReductionFile struct {
	Enabled     bool    `yaml:"enabled" json:"enabled" toml:"enabled"`
	TriggerYear int     `yaml:"trigger_year" json:"trigger_year" toml:"trigger_year"`
	Direction   string  `yaml:"direction" json:"direction" toml:"direction"`
	AmountType  string  `yaml:"amount_type" json:"amount_type" toml:"amount_type"`
	Amount      float64 `yaml:"amount" json:"amount" toml:"amount"`
}

// RothConversionFile is the conversion window projected by the engine.
type RothConversionFile struct {
	StartYear           int     `yaml:"start_year" json:"start_year" toml:"start_year"`
	DurationYears       int     `yaml:"duration_years" json:"duration_years" toml:"duration_years"`
	AnnualAmount        float64 `yaml:"annual_amount" json:"annual_amount" toml:"annual_amount"`
	WithdrawalAmount    float64 `yaml:"roth_withdrawal_amount,omitempty" json:"roth_withdrawal_amount,omitempty" toml:"roth_withdrawal_amount,omitempty"`
	WithdrawalStartYear int     `yaml:"roth_withdrawal_start_year,omitempty" json:"roth_withdrawal_start_year,omitempty" toml:"roth_withdrawal_start_year,omitempty"`
}

// ComparisonFile holds the comparator parameters.
type ComparisonFile struct {
	ConversionStartYear     int     `yaml:"conversion_start_year" json:"conversion_start_year" toml:"conversion_start_year"`
	YearsToConvert          int     `yaml:"years_to_convert" json:"years_to_convert" toml:"years_to_convert"`
	AnnualAmount            float64 `yaml:"annual_amount,omitempty" json:"annual_amount,omitempty" toml:"annual_amount,omitempty"`
	MaxAnnualAmount         float64 `yaml:"max_annual_amount,omitempty" json:"max_annual_amount,omitempty" toml:"max_annual_amount,omitempty"`
	PreRetirementIncome     float64 `yaml:"pre_retirement_income,omitempty" json:"pre_retirement_income,omitempty" toml:"pre_retirement_income,omitempty"`
	RothGrowthRate          float64 `yaml:"roth_growth_rate,omitempty" json:"roth_growth_rate,omitempty" toml:"roth_growth_rate,omitempty"`
	RothWithdrawalAmount    float64 `yaml:"roth_withdrawal_amount,omitempty" json:"roth_withdrawal_amount,omitempty" toml:"roth_withdrawal_amount,omitempty"`
	RothWithdrawalStartYear int     `yaml:"roth_withdrawal_start_year,omitempty" json:"roth_withdrawal_start_year,omitempty" toml:"roth_withdrawal_start_year,omitempty"`
	InheritanceTaxRate      float64 `yaml:"inheritance_tax_rate,omitempty" json:"inheritance_tax_rate,omitempty" toml:"inheritance_tax_rate,omitempty"`
}

// OptimizationFile is the optimizer search grid.
type OptimizationFile struct {
	StartYears    []int     `yaml:"start_years" json:"start_years" toml:"start_years"`
	Durations     []int     `yaml:"durations" json:"durations" toml:"durations"`
	AnnualAmounts []float64 `yaml:"annual_amounts" json:"annual_amounts" toml:"annual_amounts"`
}

// converter turns file numbers into decimals, remembering the first failure.
type converter struct {
	err error
}

func (c *converter) dec(field string, v float64) decimal.Decimal {
	if c.err != nil {
		return decimal.Zero
	}
	d, err := money.FromFloat(v)
	if err != nil {
		c.err = domain.NewFieldError(domain.ErrNumericOverflow, field, "%v", err)
		return decimal.Zero
	}
	return d
}

func (c *converter) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

func (c *converter) person(field string, p PersonFile) domain.Person {
	birth, err := dateutil.ParseDate(p.BirthDate)
	if err != nil {
		c.fail(domain.NewFieldError(domain.ErrInvalidInput, field+".birth_date", "%v", err))
	}
	return domain.Person{
		Name:          p.Name,
		BirthDate:     birth,
		RetirementAge: p.RetirementAge,
		MortalityAge:  p.MortalityAge,
	}
}

func (c *converter) asset(i int, a AssetFile) domain.Asset {
	field := func(name string) string { return fmt.Sprintf("assets[%d].%s", i, name) }

	kind, err := domain.ParseAssetKind(a.Kind)
	if err != nil {
		c.fail(domain.NewFieldError(domain.ErrInvalidInput, field("kind"), "unknown asset kind %q", a.Kind))
	}
	owner := domain.Owner(a.Owner)
	if owner == "" {
		owner = domain.OwnerPrimary
	}
	out := domain.Asset{
		ID:                  a.ID,
		Name:                a.Name,
		Kind:                kind,
		Owner:               owner,
		CurrentBalance:      c.dec(field("current_balance"), a.CurrentBalance),
		MonthlyContribution: c.dec(field("monthly_contribution"), a.MonthlyContribution),
		MonthlyAmount:       c.dec(field("monthly_amount"), a.MonthlyAmount),
		RateOfReturn:        c.dec(field("rate_of_return"), a.RateOfReturn),
		COLA:                c.dec(field("cola"), a.COLA),
		WithdrawalStartAge:  a.WithdrawalStartAge,
		WithdrawalEndAge:    a.WithdrawalEndAge,
		InheritanceYear:     a.InheritanceYear,
	}
	if a.MaxToConvert != nil {
		out.MaxToConvert = decimal.NewNullDecimal(c.dec(field("max_to_convert"), *a.MaxToConvert))
	}
	return out
}

// Scenario converts the file into the frozen engine input. It does not run
// the scenario validators; see InputParser.ValidateConfiguration.
func (f *ScenarioFile) Scenario() (*domain.Scenario, error) {
	c := &converter{}

	fs, err := domain.ParseFilingStatus(f.FilingStatus)
	if err != nil {
		c.fail(err)
	}
	s := &domain.Scenario{
		Name:                   f.Name,
		Primary:                c.person("client", f.Client),
		FilingStatus:           fs,
		State:                  f.State,
		CurrentYear:            f.CurrentYear,
		PartBInflationRate:     c.dec("part_b_inflation_rate", f.PartBInflationRate),
		PartDInflationRate:     c.dec("part_d_inflation_rate", f.PartDInflationRate),
		ApplyStandardDeduction: f.ApplyStandardDeduction,
		TaxExemptInterest:      c.dec("tax_exempt_interest", f.TaxExemptInterest),
		PreRetirementIncome:    c.dec("pre_retirement_income", f.PreRetirementIncome),
	}
	if f.Spouse != nil {
		sp := c.person("spouse", *f.Spouse)
		s.Spouse = &sp
	}
	if r := f.SSReduction; r != nil {
		s.SSReduction = domain.SSReduction{
			Enabled:     r.Enabled,
			TriggerYear: r.TriggerYear,
			Direction:   domain.SSReductionDirection(r.Direction),
			AmountType:  domain.SSAmountType(r.AmountType),
			Amount:      c.dec("ss_reduction.amount", r.Amount),
		}
	}
	if rc := f.RothConversion; rc != nil {
		s.RothConversion = domain.RothConversion{
			StartYear:           rc.StartYear,
			DurationYears:       rc.DurationYears,
			AnnualAmount:        c.dec("roth_conversion.annual_amount", rc.AnnualAmount),
			WithdrawalAmount:    c.dec("roth_conversion.roth_withdrawal_amount", rc.WithdrawalAmount),
			WithdrawalStartYear: rc.WithdrawalStartYear,
		}
	}
	for i, a := range f.Assets {
		s.Assets = append(s.Assets, c.asset(i, a))
	}
	if c.err != nil {
		return nil, c.err
	}
	return s, nil
}

// ConversionParams converts the comparison block. The second result is false
// when the file has none.
func (f *ScenarioFile) ConversionParams() (domain.ConversionParams, bool, error) {
	p := f.Comparison
	if p == nil {
		return domain.ConversionParams{}, false, nil
	}
	c := &converter{}
	out := domain.ConversionParams{
		ConversionStartYear:     p.ConversionStartYear,
		YearsToConvert:          p.YearsToConvert,
		AnnualAmount:            c.dec("comparison.annual_amount", p.AnnualAmount),
		MaxAnnualAmount:         c.dec("comparison.max_annual_amount", p.MaxAnnualAmount),
		PreRetirementIncome:     c.dec("comparison.pre_retirement_income", p.PreRetirementIncome),
		RothGrowthRate:          c.dec("comparison.roth_growth_rate", p.RothGrowthRate),
		RothWithdrawalAmount:    c.dec("comparison.roth_withdrawal_amount", p.RothWithdrawalAmount),
		RothWithdrawalStartYear: p.RothWithdrawalStartYear,
		InheritanceTaxRate:      c.dec("comparison.inheritance_tax_rate", p.InheritanceTaxRate),
	}
	if c.err != nil {
		return domain.ConversionParams{}, true, c.err
	}
	return out, true, nil
}

// Grid converts the optimization block, taking its non-schedule parameters
// from the comparison block when present.
func (f *ScenarioFile) Grid() (domain.OptimizationGrid, bool, error) {
	o := f.Optimization
	if o == nil {
		return domain.OptimizationGrid{}, false, nil
	}
	base, _, err := f.ConversionParams()
	if err != nil {
		return domain.OptimizationGrid{}, true, err
	}
	c := &converter{}
	grid := domain.OptimizationGrid{
		StartYears: append([]int(nil), o.StartYears...),
		Durations:  append([]int(nil), o.Durations...),
		Base:       base,
	}
	for i, a := range o.AnnualAmounts {
		grid.AnnualAmounts = append(grid.AnnualAmounts, c.dec(fmt.Sprintf("optimization.annual_amounts[%d]", i), a))
	}
	if c.err != nil {
		return domain.OptimizationGrid{}, true, c.err
	}
	return grid, true, nil
}
