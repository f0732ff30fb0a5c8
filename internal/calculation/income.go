package calculation

import (
	"github.com/rpgo/retirement-cashflow/internal/domain"
	"github.com/rpgo/retirement-cashflow/internal/logging"
	"github.com/rpgo/retirement-cashflow/pkg/money"
	"github.com/shopspring/decimal"
)

// PreRetirementSource is the income_by_source key for pre-retirement income.
const PreRetirementSource = "pre_retirement_income"

// IncomeResult is one year's non-SS income.
type IncomeResult struct {
	Taxable  decimal.Decimal
	TaxFree  decimal.Decimal
	BySource map[string]decimal.Decimal
	RMDs     map[string]decimal.Decimal
}

// Gross is taxable plus tax-free income.
func (r IncomeResult) Gross() decimal.Decimal { return r.Taxable.Add(r.TaxFree) }

func (r *IncomeResult) add(source string, amount decimal.Decimal, taxFree bool) {
	if !amount.IsPositive() {
		return
	}
	r.BySource[source] = r.BySource[source].Add(amount)
	if taxFree {
		r.TaxFree = r.TaxFree.Add(amount)
	} else {
		r.Taxable = r.Taxable.Add(amount)
	}
}

// plannedPayment is monthly × 12 grown by COLA for each year since the start age.
func plannedPayment(a *assetState, age int) decimal.Decimal {
	if !a.MonthlyAmount.IsPositive() {
		return decimal.Zero
	}
	return money.Annual(a.MonthlyAmount).Mul(money.Compound(a.cola, age-a.WithdrawalStartAge))
}

// IncomeAggregator sums non-SS payments and debits account withdrawals.
type IncomeAggregator struct {
	Logger logging.Logger
}

// Aggregate pays every living owner's assets for year. Inside the withdrawal
// window the payment is the larger of the planned amount and the RMD; an RMD
// is still taken outside the window. Account withdrawals are debited here,
// before any conversion, and are limited to the balance.
func (ia *IncomeAggregator) Aggregate(states []*assetState, year int) IncomeResult {
	res := IncomeResult{
		Taxable:  decimal.Zero,
		TaxFree:  decimal.Zero,
		BySource: make(map[string]decimal.Decimal),
		RMDs:     make(map[string]decimal.Decimal),
	}
	for _, a := range states {
		if a.Kind == domain.KindSocialSecurity || a.synthetic {
			continue
		}
		if a.Kind.RequiresRMD() {
			res.RMDs[a.ID] = a.rmd.amount
		}
		if !a.ownerAlive(year) {
			continue
		}
		age := a.age(year)
		payment := decimal.Zero
		if a.inWindow(age) {
			payment = plannedPayment(a, age)
		}
		payment = money.RoundMoney(decimal.Max(payment, a.rmd.amount))
		if !payment.IsPositive() {
			continue
		}
		if a.Kind.HoldsBalance() {
			payment = a.withdraw(payment, ia.Logger, year)
		}
		res.add(a.ID, payment, a.Kind.IsRothFamily())
	}
	return res
}
