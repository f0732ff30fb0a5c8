package calculation

import (
	"github.com/rpgo/retirement-cashflow/pkg/dateutil"
	"github.com/rpgo/retirement-cashflow/pkg/money"
	"github.com/shopspring/decimal"
)

// SECURE Act boundaries for inherited accounts.
const (
	tenYearRuleStart   = 2020
	tenYearRuleYears   = 10
	uniformTableMinAge = 72
	stretchBaseAge     = 83
)

// uniformLifetime is the IRS Uniform Lifetime Table (2022 revision).
var uniformLifetime = map[int]decimal.Decimal{
	72: decimal.NewFromFloat(27.4), 73: decimal.NewFromFloat(26.5), 74: decimal.NewFromFloat(25.5),
	75: decimal.NewFromFloat(24.6), 76: decimal.NewFromFloat(23.7), 77: decimal.NewFromFloat(22.9),
	78: decimal.NewFromFloat(22.0), 79: decimal.NewFromFloat(21.1), 80: decimal.NewFromFloat(20.2),
	81: decimal.NewFromFloat(19.4), 82: decimal.NewFromFloat(18.5), 83: decimal.NewFromFloat(17.7),
	84: decimal.NewFromFloat(16.8), 85: decimal.NewFromFloat(16.0), 86: decimal.NewFromFloat(15.2),
	87: decimal.NewFromFloat(14.4), 88: decimal.NewFromFloat(13.7), 89: decimal.NewFromFloat(12.9),
	90: decimal.NewFromFloat(12.2), 91: decimal.NewFromFloat(11.5), 92: decimal.NewFromFloat(10.8),
	93: decimal.NewFromFloat(10.1), 94: decimal.NewFromFloat(9.5), 95: decimal.NewFromFloat(8.9),
	96: decimal.NewFromFloat(8.4), 97: decimal.NewFromFloat(7.8), 98: decimal.NewFromFloat(7.3),
	99: decimal.NewFromFloat(6.8), 100: decimal.NewFromFloat(6.4), 101: decimal.NewFromFloat(6.0),
	102: decimal.NewFromFloat(5.6), 103: decimal.NewFromFloat(5.2), 104: decimal.NewFromFloat(4.9),
	105: decimal.NewFromFloat(4.6), 106: decimal.NewFromFloat(4.3), 107: decimal.NewFromFloat(4.1),
	108: decimal.NewFromFloat(3.9), 109: decimal.NewFromFloat(3.7), 110: decimal.NewFromFloat(3.5),
	111: decimal.NewFromFloat(3.4), 112: decimal.NewFromFloat(3.3), 113: decimal.NewFromFloat(3.1),
	114: decimal.NewFromFloat(3.0), 115: decimal.NewFromFloat(2.9), 116: decimal.NewFromFloat(2.8),
	117: decimal.NewFromFloat(2.7), 118: decimal.NewFromFloat(2.5), 119: decimal.NewFromFloat(2.3),
	120: decimal.NewFromFloat(2.0),
}

var finalDivisor = decimal.NewFromFloat(2.0)

// DistributionPeriod returns the Uniform Lifetime divisor for age. Ages past
// the table use 2.0; ages below it have no divisor.
func DistributionPeriod(age int) (decimal.Decimal, bool) {
	if age < uniformTableMinAge {
		return decimal.Zero, false
	}
	if p, ok := uniformLifetime[age]; ok {
		return p, true
	}
	return finalDivisor, true
}

// stretchDivisor is the single-life stretch used for inherited accounts before
// the owner reaches the table, floored at one.
func stretchDivisor(age int) decimal.Decimal {
	n := stretchBaseAge - age
	if n < 1 {
		n = 1
	}
	return decimal.NewFromInt(int64(n))
}

// RMDCalculator calculates Required Minimum Distributions
type RMDCalculator struct {
	BirthYear int
}

// NewRMDCalculator creates a new RMD calculator
func NewRMDCalculator(birthYear int) *RMDCalculator {
	return &RMDCalculator{BirthYear: birthYear}
}

// GetRMDAge returns the age when RMDs start for this birth year
func (rmd *RMDCalculator) GetRMDAge() int {
	return dateutil.GetRMDAge(rmd.BirthYear)
}

// CalculateRMD calculates the RMD on an owner's own traditional account.
func (rmd *RMDCalculator) CalculateRMD(priorYearEnd decimal.Decimal, age int) decimal.Decimal {
	if age < rmd.GetRMDAge() || !priorYearEnd.IsPositive() {
		return decimal.Zero
	}
	period, ok := DistributionPeriod(age)
	if !ok {
		return decimal.Zero
	}
	return money.RoundMoney(priorYearEnd.Div(period))
}

// rmdSchedule is the outcome of the RMD pre-computation for one asset-year.
type rmdSchedule struct {
	amount decimal.Decimal
	// drain marks the tenth year of an inherited account: the post-growth
	// balance is the year's distribution.
	drain bool
}

// scheduleRMD computes the single authoritative RMD for an asset in year,
// based only on its previous year-end balance.
func scheduleRMD(a *assetState, year, age int, ownerAlive bool) rmdSchedule {
	none := rmdSchedule{amount: decimal.Zero}
	if !a.Kind.RequiresRMD() || a.fullyConverted || !ownerAlive {
		return none
	}

	switch {
	case a.Kind.IsInheritedNonSpouse() && a.InheritanceYear >= tenYearRuleStart:
		if year-a.InheritanceYear >= tenYearRuleYears {
			return rmdSchedule{amount: decimal.Zero, drain: true}
		}
		return none

	case a.Kind.IsInheritedNonSpouse(), a.Kind.IsInheritedSpouse():
		if !a.prevYearEnd.IsPositive() {
			return none
		}
		if period, ok := DistributionPeriod(age); ok {
			return rmdSchedule{amount: money.RoundMoney(a.prevYearEnd.Div(period))}
		}
		return rmdSchedule{amount: money.RoundMoney(a.prevYearEnd.Div(stretchDivisor(age)))}

	default:
		return rmdSchedule{amount: NewRMDCalculator(a.ownerBirthYear).CalculateRMD(a.prevYearEnd, age)}
	}
}
