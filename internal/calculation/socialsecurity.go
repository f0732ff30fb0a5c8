package calculation

import (
	"github.com/rpgo/retirement-cashflow/internal/domain"
	"github.com/rpgo/retirement-cashflow/internal/taxrules"
	"github.com/rpgo/retirement-cashflow/pkg/money"
	"github.com/shopspring/decimal"
)

// DefaultSSCOLA is the fixed annual Social Security cost-of-living adjustment.
var DefaultSSCOLA = decimal.NewFromFloat(0.02)

var (
	half          = decimal.NewFromFloat(0.5)
	eightyFivePct = decimal.NewFromFloat(0.85)
	two           = decimal.NewFromInt(2)
)

// ssBenefit is one SS asset's payment for the year.
type ssBenefit struct {
	asset *assetState
	gross decimal.Decimal
	net   decimal.Decimal
}

// SSResult is the household Social Security picture for one year.
type SSResult struct {
	Gross          decimal.Decimal
	Net            decimal.Decimal
	PrimaryGross   decimal.Decimal
	SpouseGross    decimal.Decimal
	PrimaryNet     decimal.Decimal
	SpouseNet      decimal.Decimal
	Adjustment     decimal.Decimal // positive reduces, negative increases
	AdjustmentUsed bool

	benefits []*ssBenefit
}

// SocialSecurityCalculator projects SS benefits and applies the programmatic adjustment.
type SocialSecurityCalculator struct {
	COLA decimal.Decimal
}

// NewSocialSecurityCalculator creates a calculator using the fixed 2% COLA.
func NewSocialSecurityCalculator() *SocialSecurityCalculator {
	return &SocialSecurityCalculator{COLA: DefaultSSCOLA}
}

// GrossBenefit is the annual benefit at age for a monthly amount starting at startAge.
func (ssc *SocialSecurityCalculator) GrossBenefit(monthly decimal.Decimal, startAge, age int) decimal.Decimal {
	if age < startAge {
		return decimal.Zero
	}
	return money.Annual(monthly).Mul(money.Compound(ssc.COLA, age-startAge))
}

// Calculate sums each living earner's benefits in year and applies the reduction block.
func (ssc *SocialSecurityCalculator) Calculate(states []*assetState, year int, fs domain.FilingStatus, red domain.SSReduction) SSResult {
	res := SSResult{
		Gross: decimal.Zero, Net: decimal.Zero,
		PrimaryGross: decimal.Zero, SpouseGross: decimal.Zero,
		PrimaryNet: decimal.Zero, SpouseNet: decimal.Zero,
		Adjustment: decimal.Zero,
	}
	for _, a := range states {
		if a.Kind != domain.KindSocialSecurity || !a.ownerAlive(year) {
			continue
		}
		age := a.age(year)
		if !a.inWindow(age) {
			continue
		}
		gross := ssc.GrossBenefit(a.MonthlyAmount, a.WithdrawalStartAge, age)
		if !gross.IsPositive() {
			continue
		}
		res.benefits = append(res.benefits, &ssBenefit{asset: a, gross: gross, net: gross})
		if a.Owner == domain.OwnerSpouse {
			res.SpouseGross = res.SpouseGross.Add(gross)
		} else {
			res.PrimaryGross = res.PrimaryGross.Add(gross)
		}
	}
	res.Gross = res.PrimaryGross.Add(res.SpouseGross)

	if red.Enabled && year >= red.TriggerYear && res.Gross.IsPositive() {
		ssc.applyReduction(&res, fs, red)
	}

	for _, b := range res.benefits {
		if b.asset.Owner == domain.OwnerSpouse {
			res.SpouseNet = res.SpouseNet.Add(b.net)
		} else {
			res.PrimaryNet = res.PrimaryNet.Add(b.net)
		}
	}
	res.Net = res.PrimaryNet.Add(res.SpouseNet)
	return res
}

// applyReduction computes the household adjustment and spreads it over the
// affected benefits in proportion to their gross. When both spouses collect
// and file married, the reduction is doubled; otherwise only one earner is
// affected, the primary when they collect.
func (ssc *SocialSecurityCalculator) applyReduction(res *SSResult, fs domain.FilingStatus, red domain.SSReduction) {
	both := fs.IsMarried() && res.PrimaryGross.IsPositive() && res.SpouseGross.IsPositive()

	target := domain.OwnerPrimary
	if !res.PrimaryGross.IsPositive() {
		target = domain.OwnerSpouse
	}
	affected := make([]*ssBenefit, 0, len(res.benefits))
	base := decimal.Zero
	for _, b := range res.benefits {
		if both || b.asset.Owner == target {
			affected = append(affected, b)
			base = base.Add(b.gross)
		}
	}
	if !base.IsPositive() {
		return
	}

	var amount decimal.Decimal
	switch red.AmountType {
	case domain.SSAmountFlatMonthly:
		amount = money.Annual(red.Amount)
		if both {
			amount = amount.Mul(two)
		}
	default:
		rate, _ := money.NormalizeRate(red.Amount)
		if both {
			amount = rate.Mul(two).Mul(base)
		} else {
			amount = rate.Mul(base)
		}
	}
	amount = decimal.Min(amount.Abs(), base)
	if red.Direction == domain.SSIncrease {
		amount = amount.Neg()
	}

	for _, b := range affected {
		share := amount.Mul(b.gross).Div(base)
		b.net = b.gross.Sub(share)
	}
	res.Adjustment = amount
	res.AdjustmentUsed = !amount.IsZero()
}

// SSTaxCalculator handles Social Security taxation calculations
type SSTaxCalculator struct{}

// NewSSTaxCalculator creates a new Social Security tax calculator
func NewSSTaxCalculator() *SSTaxCalculator {
	return &SSTaxCalculator{}
}

// CalculateProvisionalIncome calculates provisional income for SS taxation
// Provisional Income = AGI excluding SS + tax-exempt interest + 1/2 of SS benefits
func (sstc *SSTaxCalculator) CalculateProvisionalIncome(agiExclSS, taxExemptInterest, ssBenefits decimal.Decimal) decimal.Decimal {
	return agiExclSS.Add(taxExemptInterest).Add(ssBenefits.Mul(half))
}

// CalculateTaxableSocialSecurity determines the federally taxable portion of SS benefits:
// - provisional <= base: nothing is taxable
// - base < provisional <= additional: min(50% of the excess over base, 50% of benefits)
// - above additional: 50% of (additional - base) plus 85% of the excess, capped at 85% of benefits
func (sstc *SSTaxCalculator) CalculateTaxableSocialSecurity(ssBenefits, provisional decimal.Decimal, t taxrules.SSThresholds) decimal.Decimal {
	if !ssBenefits.IsPositive() || provisional.LessThanOrEqual(t.Base) {
		return decimal.Zero
	}
	if provisional.LessThanOrEqual(t.Additional) {
		return decimal.Min(provisional.Sub(t.Base).Mul(half), ssBenefits.Mul(half))
	}
	taxable := t.Additional.Sub(t.Base).Mul(half).Add(provisional.Sub(t.Additional).Mul(eightyFivePct))
	return decimal.Min(taxable, ssBenefits.Mul(eightyFivePct))
}
