package calculation

import (
	"github.com/rpgo/retirement-cashflow/internal/domain"
	"github.com/rpgo/retirement-cashflow/internal/logging"
	"github.com/rpgo/retirement-cashflow/pkg/money"
	"github.com/shopspring/decimal"
)

// SyntheticRothID is the asset id of the Roth account created to receive conversions.
const SyntheticRothID = "synthetic_roth"

// assetState is the engine's mutable view of one asset for a single run.
type assetState struct {
	domain.Asset

	owner          *domain.Person
	ownerBirthYear int
	rate           decimal.Decimal
	cola           decimal.Decimal

	balance        decimal.Decimal
	prevYearEnd    decimal.Decimal
	converted      decimal.Decimal
	fullyConverted bool
	synthetic      bool

	// per-year scratch
	rmd rmdSchedule
}

func newAssetState(a domain.Asset, owner *domain.Person, logger logging.Logger) *assetState {
	rate, pct := money.NormalizeRate(a.RateOfReturn)
	if pct {
		logger.Debugf("asset %s: rate_of_return %s read as percent", a.ID, a.RateOfReturn)
	}
	cola, pct := money.NormalizeRate(a.COLA)
	if pct {
		logger.Debugf("asset %s: cola %s read as percent", a.ID, a.COLA)
	}
	s := &assetState{
		Asset:          a,
		owner:          owner,
		ownerBirthYear: owner.BirthYear(),
		rate:           rate,
		cola:           cola,
		balance:        decimal.Zero,
		prevYearEnd:    decimal.Zero,
		converted:      decimal.Zero,
	}
	if a.Kind.HoldsBalance() {
		s.balance = a.CurrentBalance
		s.prevYearEnd = a.CurrentBalance
	}
	return s
}

// newAssetStates builds the run state for every scenario asset, in input order.
func newAssetStates(s *domain.Scenario, logger logging.Logger) []*assetState {
	states := make([]*assetState, 0, len(s.Assets)+1)
	for _, a := range s.Assets {
		states = append(states, newAssetState(a, s.PersonFor(a.Owner), logger))
	}
	return states
}

func (a *assetState) age(year int) int { return a.owner.AgeIn(year) }

func (a *assetState) ownerAlive(year int) bool { return a.owner.AliveIn(year) }

// inWindow reports whether age is inside [start, end]; an end of zero is open.
func (a *assetState) inWindow(age int) bool {
	if age < a.WithdrawalStartAge {
		return false
	}
	return a.WithdrawalEndAge == 0 || age <= a.WithdrawalEndAge
}

// contribute adds the annual contribution while the owner is alive and has not
// reached the withdrawal start age. It returns the amount added.
func (a *assetState) contribute(year int) decimal.Decimal {
	if !a.Kind.HoldsBalance() || !a.MonthlyContribution.IsPositive() || !a.ownerAlive(year) {
		return decimal.Zero
	}
	if a.age(year) >= a.WithdrawalStartAge {
		return decimal.Zero
	}
	c := money.Annual(a.MonthlyContribution)
	a.balance = a.balance.Add(c)
	return c
}

// grow applies one year of return. Deceased owners' balances keep growing.
func (a *assetState) grow() {
	if !a.Kind.HoldsBalance() || a.rate.IsZero() {
		return
	}
	a.balance = money.RoundMoney(a.balance.Mul(decimal.NewFromInt(1).Add(a.rate)))
}

// withdraw debits up to amount and returns what was actually taken.
func (a *assetState) withdraw(amount decimal.Decimal, logger logging.Logger, year int) decimal.Decimal {
	if !amount.IsPositive() {
		return decimal.Zero
	}
	if amount.GreaterThan(a.balance) {
		logger.Warnf("%d: asset %s withdrawal %s exceeds balance %s, clamped", year, a.ID, amount.StringFixed(2), a.balance.StringFixed(2))
		amount = decimal.Max(a.balance, decimal.Zero)
	}
	a.balance = a.balance.Sub(amount)
	return amount
}

// settle clamps negative balances and rolls the year-end balance forward.
func (a *assetState) settle(logger logging.Logger, year int) {
	if clamped, ok := money.NonNegative(a.balance); ok {
		logger.Warnf("%d: asset %s balance %s clamped to zero", year, a.ID, a.balance.StringFixed(2))
		a.balance = clamped
	}
	a.prevYearEnd = a.balance
}

// catchUp advances balances from the clock year to the projection start when
// the projection begins in the future, using the same contribution and growth
// rules as the main loop.
func catchUp(states []*assetState, from, to int, rc domain.RothConversion, roth func() *assetState, logger logging.Logger) {
	if from >= to {
		return
	}
	logger.Debugf("catch-up growth %d..%d", from, to-1)
	for year := from; year < to; year++ {
		for _, a := range states {
			if !a.Kind.HoldsBalance() {
				continue
			}
			a.contribute(year)
			a.grow()
		}
		if rc.InWindow(year) {
			plan := planConversion(states, rc.AnnualAmount, year)
			if plan.total.IsPositive() {
				commitConversion(plan, roth(), logger, year)
			}
		}
		for _, a := range states {
			a.settle(logger, year)
		}
	}
}

// typeBalances sums balances by balance key. Synthetic Roth balances count as "roth".
func typeBalances(states []*assetState) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, a := range states {
		if !a.Kind.HoldsBalance() {
			continue
		}
		key := a.Kind.BalanceKey()
		out[key] = out[key].Add(a.balance)
	}
	return out
}
