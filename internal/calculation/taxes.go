package calculation

import (
	"github.com/rpgo/retirement-cashflow/internal/domain"
	"github.com/rpgo/retirement-cashflow/internal/taxrules"
	"github.com/rpgo/retirement-cashflow/pkg/money"
	"github.com/shopspring/decimal"
)

// TaxInput is everything the tax step needs for one household-year.
type TaxInput struct {
	FilingStatus      domain.FilingStatus
	State             string
	TaxableIncome     decimal.Decimal // ordinary income excluding SS, Roth-family and the conversion
	TaxFreeIncome     decimal.Decimal
	SSNet             decimal.Decimal
	TaxExemptInterest decimal.Decimal
	Conversion        decimal.Decimal
	ApplyDeduction    bool
}

// TaxResult is the outcome of the tax step.
type TaxResult struct {
	TaxableSS         decimal.Decimal
	AGI               decimal.Decimal
	MAGI              decimal.Decimal
	StandardDeduction decimal.Decimal
	TaxableIncome     decimal.Decimal
	FederalTax        decimal.Decimal
	StateTax          decimal.Decimal
	Bracket           string
	MarginalRate      decimal.Decimal
	EffectiveRate     decimal.Decimal
}

// TaxCalculator computes federal and state income tax from the rule store.
type TaxCalculator struct {
	Rules *taxrules.YearRules
	SSTax *SSTaxCalculator
}

// NewTaxCalculator creates a tax calculator over one year's rules.
func NewTaxCalculator(rules *taxrules.YearRules) *TaxCalculator {
	return &TaxCalculator{Rules: rules, SSTax: NewSSTaxCalculator()}
}

// Calculate derives AGI, MAGI, taxable income and both taxes.
//
// MAGI carries the full SS benefit and tax-exempt interest but not the
// conversion. The deduction applies to AGI plus the conversion, so a
// deduction larger than AGI still shelters part of the conversion.
func (tc *TaxCalculator) Calculate(in TaxInput) TaxResult {
	res := TaxResult{StandardDeduction: decimal.Zero}

	thresholds := tc.Rules.SSThresholds(in.FilingStatus)
	provisional := tc.SSTax.CalculateProvisionalIncome(in.TaxableIncome, in.TaxExemptInterest, in.SSNet)
	res.TaxableSS = tc.SSTax.CalculateTaxableSocialSecurity(in.SSNet, provisional, thresholds)

	res.AGI = in.TaxableIncome.Add(res.TaxableSS)
	res.MAGI = res.AGI.Add(in.TaxExemptInterest).Add(in.SSNet.Sub(res.TaxableSS))

	taxable := res.AGI.Add(in.Conversion)
	if in.ApplyDeduction {
		res.StandardDeduction = tc.Rules.StandardDeduction(in.FilingStatus)
		taxable = taxable.Sub(res.StandardDeduction)
	}
	res.TaxableIncome, _ = money.NonNegative(taxable)

	fed := tc.Rules.FederalTax(res.TaxableIncome, in.FilingStatus)
	res.FederalTax = fed.Tax
	res.Bracket = fed.Bracket
	res.MarginalRate = fed.MarginalRate

	totalIncome := in.TaxableIncome.Add(in.TaxFreeIncome).Add(in.SSNet).Add(in.Conversion)
	res.EffectiveRate = money.Percent(res.FederalTax, totalIncome)

	res.StateTax = tc.stateTax(in.State, res.AGI, res.TaxableSS)
	return res
}

// stateTax applies a flat state rate to AGI. Exempt states collect nothing,
// and states that do not tax benefits exclude the taxable SS portion.
func (tc *TaxCalculator) stateTax(code string, agi, taxableSS decimal.Decimal) decimal.Decimal {
	if code == "" {
		return decimal.Zero
	}
	info := tc.Rules.StateTaxInfo(code)
	if info.RetirementIncomeExempt || info.Rate.IsZero() {
		return decimal.Zero
	}
	base := agi
	if !info.SSTaxed {
		base = base.Sub(taxableSS)
	}
	base, _ = money.NonNegative(base)
	return base.Mul(info.Rate)
}
