package calculation

import (
	"github.com/rpgo/retirement-cashflow/internal/domain"
	"github.com/rpgo/retirement-cashflow/internal/taxrules"
	"github.com/rpgo/retirement-cashflow/pkg/dateutil"
	"github.com/rpgo/retirement-cashflow/pkg/money"
	"github.com/shopspring/decimal"
)

// DefaultMedicareAge is the Medicare eligibility age.
const DefaultMedicareAge = 65

// lookbackYears is the IRMAA MAGI lookback.
const lookbackYears = 2

// MedicareCost is one year's household Medicare premium, annualized.
type MedicareCost struct {
	Covered      int
	LookbackMAGI decimal.Decimal
	LookbackYear int

	PartB          decimal.Decimal
	PartD          decimal.Decimal
	PartBSurcharge decimal.Decimal
	PartDSurcharge decimal.Decimal
	Tier           taxrules.IRMAATier
}

// Base is the annual premium before IRMAA.
func (m MedicareCost) Base() decimal.Decimal { return m.PartB.Add(m.PartD) }

// Surcharge is the annual IRMAA surcharge.
func (m MedicareCost) Surcharge() decimal.Decimal { return m.PartBSurcharge.Add(m.PartDSurcharge) }

// Total is the full annual premium.
func (m MedicareCost) Total() decimal.Decimal { return m.Base().Add(m.Surcharge()) }

// MedicareCalculator handles Medicare Part B and D premium calculations including IRMAA
type MedicareCalculator struct {
	Rules        *taxrules.YearRules
	PartBRate    decimal.Decimal
	PartDRate    decimal.Decimal
	EligibleAge  int
	magiByYear   map[int]decimal.Decimal
	holdHarmless holdHarmlessState
}

// NewMedicareCalculator creates a calculator over the reference-year rules.
// Inflation rates accept decimal or percent form.
func NewMedicareCalculator(rules *taxrules.YearRules, partBRate, partDRate decimal.Decimal) *MedicareCalculator {
	b, _ := money.NormalizeRate(partBRate)
	d, _ := money.NormalizeRate(partDRate)
	return &MedicareCalculator{
		Rules:       rules,
		PartBRate:   b,
		PartDRate:   d,
		EligibleAge: DefaultMedicareAge,
		magiByYear:  make(map[int]decimal.Decimal),
	}
}

// RecordMAGI stores a year's MAGI for later lookback.
func (mc *MedicareCalculator) RecordMAGI(year int, magi decimal.Decimal) {
	mc.magiByYear[year] = magi
}

// LookbackMAGI returns MAGI from two years earlier when it is known, otherwise
// the current year's MAGI.
func (mc *MedicareCalculator) LookbackMAGI(year int, current decimal.Decimal) (decimal.Decimal, int) {
	if m, ok := mc.magiByYear[year-lookbackYears]; ok {
		return m, year - lookbackYears
	}
	return current, year
}

// CoveredPersons counts living household members of Medicare age.
func (mc *MedicareCalculator) CoveredPersons(s *domain.Scenario, year int) int {
	n := 0
	if s.Primary.AliveIn(year) && dateutil.IsMedicareEligible(s.Primary.AgeIn(year), mc.EligibleAge) {
		n++
	}
	if s.Spouse != nil && s.Spouse.AliveIn(year) && dateutil.IsMedicareEligible(s.Spouse.AgeIn(year), mc.EligibleAge) {
		n++
	}
	return n
}

// Calculate prices Medicare for year. Base premiums and surcharges are per
// person and are inflated from the rule reference year by the Part B and
// Part D rates.
func (mc *MedicareCalculator) Calculate(covered int, year int, fs domain.FilingStatus, currentMAGI decimal.Decimal) MedicareCost {
	lookback, lbYear := mc.LookbackMAGI(year, currentMAGI)
	cost := MedicareCost{
		Covered:        covered,
		LookbackMAGI:   lookback,
		LookbackYear:   lbYear,
		PartB:          decimal.Zero,
		PartD:          decimal.Zero,
		PartBSurcharge: decimal.Zero,
		PartDSurcharge: decimal.Zero,
		Tier:           taxrules.IRMAATier{Threshold: decimal.Zero, PartB: decimal.Zero, PartD: decimal.Zero},
	}
	if covered == 0 {
		return cost
	}

	elapsed := year - mc.Rules.Year
	bFactor := money.Compound(mc.PartBRate, elapsed)
	dFactor := money.Compound(mc.PartDRate, elapsed)
	persons := decimal.NewFromInt(int64(covered))
	base := mc.Rules.MedicareBaseRates()

	cost.Tier = mc.Rules.CalculateIRMAA(lookback, fs, year)
	cost.PartB = money.Annual(base.PartB.Mul(bFactor).Mul(persons))
	cost.PartD = money.Annual(base.PartD.Mul(dFactor).Mul(persons))
	cost.PartBSurcharge = money.Annual(cost.Tier.PartB.Mul(bFactor).Mul(persons))
	cost.PartDSurcharge = money.Annual(cost.Tier.PartD.Mul(dFactor).Mul(persons))
	return cost
}

// holdHarmlessState remembers the previous row's Medicare and remaining SS.
type holdHarmlessState struct {
	seen          bool
	prevMedicare  decimal.Decimal
	prevRemaining decimal.Decimal
}

// HoldHarmless is the outcome of the Part B hold-harmless check.
type HoldHarmless struct {
	Protected   bool
	Amount      decimal.Decimal
	Effective   decimal.Decimal
	RemainingSS decimal.Decimal
}

// ApplyHoldHarmless reduces the Medicare deduction, never the cost shown, so
// that SS left after Medicare does not drop below last year's. Only
// households in IRMAA tier 0 that paid Medicare last year qualify, and only
// when this year's benefit alone covers last year's remainder.
func (mc *MedicareCalculator) ApplyHoldHarmless(cost MedicareCost, ssNet decimal.Decimal) HoldHarmless {
	total := cost.Total()
	out := HoldHarmless{Amount: decimal.Zero, Effective: total, RemainingSS: ssNet.Sub(total)}

	prev := mc.holdHarmless
	if prev.seen && cost.Tier.Number == 0 && total.IsPositive() && prev.prevMedicare.IsPositive() &&
		ssNet.GreaterThanOrEqual(prev.prevRemaining) && out.RemainingSS.LessThan(prev.prevRemaining) {
		out.Protected = true
		out.Amount = prev.prevRemaining.Sub(out.RemainingSS)
		out.Effective = total.Sub(out.Amount)
		out.RemainingSS = prev.prevRemaining
	}

	mc.holdHarmless = holdHarmlessState{seen: true, prevMedicare: total, prevRemaining: out.RemainingSS}
	return out
}
