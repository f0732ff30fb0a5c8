package calculation

import (
	"github.com/rpgo/retirement-cashflow/internal/domain"
	"github.com/rpgo/retirement-cashflow/internal/logging"
	"github.com/rpgo/retirement-cashflow/pkg/money"
	"github.com/shopspring/decimal"
)

// conversionPlan is the per-asset split of one year's conversion.
type conversionPlan struct {
	amounts map[*assetState]decimal.Decimal
	order   []*assetState
	total   decimal.Decimal
}

// conversionCapped reports whether any asset limits what may be converted.
// When one does, only capped assets take part.
func conversionCapped(states []*assetState) bool {
	for _, a := range states {
		if a.Kind.IsTraditional() && !a.synthetic && a.MaxToConvert.Valid {
			return true
		}
	}
	return false
}

// eligibleForConversion lists traditional assets that can still be converted in year.
func eligibleForConversion(states []*assetState, year int) []*assetState {
	capped := conversionCapped(states)
	var out []*assetState
	for _, a := range states {
		if !a.Kind.IsTraditional() || a.fullyConverted || !a.balance.IsPositive() || !a.ownerAlive(year) {
			continue
		}
		if capped {
			if !a.MaxToConvert.Valid || !a.MaxToConvert.Decimal.Sub(a.converted).IsPositive() {
				continue
			}
		}
		out = append(out, a)
	}
	return out
}

// planConversion splits annual across eligible assets pro rata to their
// current balances. Each share is capped by the balance and any remaining
// max_to_convert allowance, then truncated to cents so the total never
// exceeds annual.
func planConversion(states []*assetState, annual decimal.Decimal, year int) conversionPlan {
	plan := conversionPlan{amounts: make(map[*assetState]decimal.Decimal), total: decimal.Zero}
	if !annual.IsPositive() {
		return plan
	}
	eligible := eligibleForConversion(states, year)
	pool := decimal.Zero
	for _, a := range eligible {
		pool = pool.Add(a.balance)
	}
	if !pool.IsPositive() {
		return plan
	}
	target := decimal.Min(annual, pool)

	for _, a := range eligible {
		share := target.Mul(a.balance).Div(pool)
		share = decimal.Min(share, a.balance)
		if a.MaxToConvert.Valid {
			share = decimal.Min(share, a.MaxToConvert.Decimal.Sub(a.converted))
		}
		share = money.TruncateMoney(share)
		if !share.IsPositive() {
			continue
		}
		plan.amounts[a] = share
		plan.order = append(plan.order, a)
		plan.total = plan.total.Add(share)
	}
	return plan
}

// commitConversion debits each planned asset and credits the Roth by the
// same total. Assets left with no more than a cent are zeroed and marked
// fully converted; the residual is a clamp, not part of the conversion.
func commitConversion(plan conversionPlan, roth *assetState, logger logging.Logger, year int) decimal.Decimal {
	for _, a := range plan.order {
		amount := plan.amounts[a]
		a.balance = a.balance.Sub(amount)
		a.converted = a.converted.Add(amount)
		if a.balance.LessThanOrEqual(money.Dust) {
			if a.balance.IsPositive() {
				logger.Debugf("%d: asset %s residual %s cleared after conversion", year, a.ID, a.balance)
			}
			a.balance = decimal.Zero
			a.fullyConverted = true
			logger.Infof("%d: asset %s fully converted", year, a.ID)
		}
	}
	roth.balance = roth.balance.Add(plan.total)
	return plan.total
}

// newSyntheticRoth builds the Roth account that receives conversions.
func newSyntheticRoth(primary *domain.Person, growth decimal.Decimal) *assetState {
	rate, _ := money.NormalizeRate(growth)
	return &assetState{
		Asset: domain.Asset{
			ID:             SyntheticRothID,
			Name:           "Converted Roth",
			Kind:           domain.KindRoth,
			Owner:          domain.OwnerPrimary,
			CurrentBalance: decimal.Zero,
			RateOfReturn:   rate,
		},
		owner:          primary,
		ownerBirthYear: primary.BirthYear(),
		rate:           rate,
		cola:           decimal.Zero,
		balance:        decimal.Zero,
		prevYearEnd:    decimal.Zero,
		converted:      decimal.Zero,
		synthetic:      true,
	}
}

// rothPayout pays the configured annual Roth withdrawal from the synthetic
// Roth, limited to its balance.
func rothPayout(rc domain.RothConversion, roth *assetState, year int, logger logging.Logger) decimal.Decimal {
	if roth == nil || !rc.WithdrawalAmount.IsPositive() || rc.WithdrawalStartYear == 0 || year < rc.WithdrawalStartYear || !roth.balance.IsPositive() {
		return decimal.Zero
	}
	return roth.withdraw(money.RoundMoney(rc.WithdrawalAmount), logger, year)
}
