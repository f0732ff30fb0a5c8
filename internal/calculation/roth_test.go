package calculation

import (
	"testing"

	"github.com/rpgo/retirement-cashflow/internal/domain"
	"github.com/rpgo/retirement-cashflow/internal/logging"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tradStates(balances ...string) []*assetState {
	owner := person(1960, 60, 90)
	out := make([]*assetState, len(balances))
	for i, b := range balances {
		out[i] = newAssetState(domain.Asset{
			ID: string(rune('a' + i)), Kind: domain.KindQualified, Owner: domain.OwnerPrimary, CurrentBalance: dec(b),
		}, owner, logging.NopLogger{})
	}
	return out
}

func TestPlanConversion(t *testing.T) {
	t.Run("pro rata split", func(t *testing.T) {
		states := tradStates("300000", "100000")
		plan := planConversion(states, dec("40000"), 2025)
		assertDecimal(t, "30000", plan.amounts[states[0]])
		assertDecimal(t, "10000", plan.amounts[states[1]])
		assertDecimal(t, "40000", plan.total)
	})

	t.Run("max_to_convert caps and limits participation", func(t *testing.T) {
		states := tradStates("300000", "100000")
		states[0].MaxToConvert = decimal.NewNullDecimal(dec("15000"))
		plan := planConversion(states, dec("40000"), 2025)
		assertDecimal(t, "15000", plan.total)
		_, ok := plan.amounts[states[1]]
		assert.False(t, ok, "uncapped asset sits out when any asset is capped")
	})

	t.Run("shares truncate to cents", func(t *testing.T) {
		states := tradStates("100", "100", "100")
		plan := planConversion(states, dec("100"), 2025)
		assertDecimal(t, "99.99", plan.total)
		for _, a := range states {
			assertDecimal(t, "33.33", plan.amounts[a])
		}
	})

	t.Run("limited to the pool", func(t *testing.T) {
		states := tradStates("5000")
		plan := planConversion(states, dec("40000"), 2025)
		assertDecimal(t, "5000", plan.total)
	})

	t.Run("non-traditional and converted assets excluded", func(t *testing.T) {
		states := tradStates("50000", "50000")
		states[1].Kind = domain.KindRoth
		states[0].fullyConverted = true
		assert.True(t, planConversion(states, dec("10000"), 2025).total.IsZero())
	})

	t.Run("zero annual", func(t *testing.T) {
		assert.Empty(t, planConversion(tradStates("1000"), decimal.Zero, 2025).order)
	})
}

func TestCommitConversion(t *testing.T) {
	states := tradStates("40000.01")
	roth := newSyntheticRoth(person(1960, 60, 90), domain.DefaultRothGrowthRate)

	plan := planConversion(states, dec("40000"), 2025)
	got := commitConversion(plan, roth, logging.NopLogger{}, 2025)

	assertDecimal(t, "40000", got)
	assertDecimal(t, "0", states[0].balance)
	assert.True(t, states[0].fullyConverted)
	assertDecimal(t, "40000", roth.balance)
	assertDecimal(t, "40000", states[0].converted)
}

func TestConversionConservesValue(t *testing.T) {
	states := tradStates("123456.78", "98765.43", "5000")
	roth := newSyntheticRoth(person(1960, 60, 90), decimal.Zero)
	before := decimal.Zero
	for _, a := range states {
		before = before.Add(a.balance)
	}

	plan := planConversion(states, dec("77777.77"), 2025)
	commitConversion(plan, roth, logging.NopLogger{}, 2025)

	after := roth.balance
	for _, a := range states {
		after = after.Add(a.balance)
	}
	assertDecimal(t, before.String(), after)
	assert.True(t, plan.total.LessThanOrEqual(dec("77777.77")))
}

func TestRothPayout(t *testing.T) {
	roth := newSyntheticRoth(person(1960, 60, 90), decimal.Zero)
	roth.balance = dec("25000")
	rc := domain.RothConversion{StartYear: 2025, DurationYears: 2, AnnualAmount: dec("10000"),
		WithdrawalAmount: dec("20000"), WithdrawalStartYear: 2030}

	assertDecimal(t, "0", rothPayout(rc, roth, 2029, logging.NopLogger{}))
	assertDecimal(t, "20000", rothPayout(rc, roth, 2030, logging.NopLogger{}))
	assertDecimal(t, "5000", rothPayout(rc, roth, 2031, logging.NopLogger{}))
	assertDecimal(t, "0", rothPayout(rc, roth, 2032, logging.NopLogger{}))
	assertDecimal(t, "0", rothPayout(rc, nil, 2032, logging.NopLogger{}))
}

func TestRothPayoutInLedger(t *testing.T) {
	s := fullConversionScenario()
	s.RothConversion.DurationYears = 2
	s.RothConversion.WithdrawalAmount = dec("30000")
	s.RothConversion.WithdrawalStartYear = 2030
	rows := run(t, s)

	y2030 := rowFor(t, rows, 2030)
	assertDecimal(t, "30000", y2030.IncomeBySource[SyntheticRothID])
	assertDecimal(t, "30000", y2030.TaxFreeIncome)
	require.True(t, rowFor(t, rows, 2029).IncomeBySource[SyntheticRothID].IsZero())
}
