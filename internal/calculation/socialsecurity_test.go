package calculation

import (
	"testing"

	"github.com/rpgo/retirement-cashflow/internal/domain"
	"github.com/rpgo/retirement-cashflow/internal/logging"
	"github.com/rpgo/retirement-cashflow/internal/taxrules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateTaxableSocialSecurity(t *testing.T) {
	store, err := taxrules.Default()
	require.NoError(t, err)
	sstc := NewSSTaxCalculator()

	tests := []struct {
		name     string
		fs       domain.FilingStatus
		ss       string
		agi      string
		expected string
	}{
		{"below base", domain.FilingSingle, "20000", "5000", "0"},
		{"between thresholds", domain.FilingSingle, "20000", "20000", "2500"},
		{"above additional", domain.FilingSingle, "30000", "40000", "22350"},
		{"capped at 85 percent", domain.FilingSingle, "20000", "100000", "17000"},
		{"married separately has no base", domain.FilingMarriedSeparately, "10000", "0", "4250"},
		{"married jointly below base", domain.FilingMarriedJointly, "40000", "10000", "0"},
		{"no benefit", domain.FilingSingle, "0", "90000", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provisional := sstc.CalculateProvisionalIncome(dec(tt.agi), dec("0"), dec(tt.ss))
			got := sstc.CalculateTaxableSocialSecurity(dec(tt.ss), provisional, store.SSThresholds(tt.fs))
			assertDecimal(t, tt.expected, got)
		})
	}
}

func TestProvisionalIncome(t *testing.T) {
	got := NewSSTaxCalculator().CalculateProvisionalIncome(dec("40000"), dec("2000"), dec("30000"))
	assertDecimal(t, "57000", got)
}

func TestGrossBenefit(t *testing.T) {
	ssc := NewSocialSecurityCalculator()
	assertDecimal(t, "0", ssc.GrossBenefit(dec("2000"), 67, 66))
	assertDecimal(t, "24000", ssc.GrossBenefit(dec("2000"), 67, 67))
	assertDecimal(t, "24480", ssc.GrossBenefit(dec("2000"), 67, 68))
	assertDecimal(t, "24969.6", ssc.GrossBenefit(dec("2000"), 67, 69))
}

func ssStates(t *testing.T, spouse bool) ([]*assetState, *domain.Scenario) {
	t.Helper()
	s := &domain.Scenario{
		Primary:      *person(1963, 62, 90),
		FilingStatus: domain.FilingSingle,
		Assets: []domain.Asset{
			{ID: "ss_p", Kind: domain.KindSocialSecurity, Owner: domain.OwnerPrimary, MonthlyAmount: dec("2000"), WithdrawalStartAge: 67},
		},
	}
	if spouse {
		s.Spouse = person(1963, 62, 90)
		s.FilingStatus = domain.FilingMarriedJointly
		s.Assets = append(s.Assets, domain.Asset{ID: "ss_s", Kind: domain.KindSocialSecurity, Owner: domain.OwnerSpouse, MonthlyAmount: dec("1500"), WithdrawalStartAge: 67})
	}
	return newAssetStates(s, logging.NopLogger{}), s
}

func TestSSReduction(t *testing.T) {
	ssc := NewSocialSecurityCalculator()

	tests := []struct {
		name      string
		spouse    bool
		reduction domain.SSReduction
		net       string
		adjust    string
	}{
		{
			name:      "disabled",
			spouse:    true,
			reduction: domain.SSReduction{},
			net:       "42000", adjust: "0",
		},
		{
			name:   "percentage doubles for two earners",
			spouse: true,
			reduction: domain.SSReduction{Enabled: true, TriggerYear: 2030, Direction: domain.SSDecrease,
				AmountType: domain.SSAmountPercentage, Amount: dec("0.23")},
			net: "22680", adjust: "19320",
		},
		{
			name:   "percentage single earner",
			spouse: false,
			reduction: domain.SSReduction{Enabled: true, TriggerYear: 2030, Direction: domain.SSDecrease,
				AmountType: domain.SSAmountPercentage, Amount: dec("23")},
			net: "18480", adjust: "5520",
		},
		{
			name:   "flat monthly",
			spouse: false,
			reduction: domain.SSReduction{Enabled: true, TriggerYear: 2030, Direction: domain.SSDecrease,
				AmountType: domain.SSAmountFlatMonthly, Amount: dec("100")},
			net: "22800", adjust: "1200",
		},
		{
			name:   "increase",
			spouse: true,
			reduction: domain.SSReduction{Enabled: true, TriggerYear: 2030, Direction: domain.SSIncrease,
				AmountType: domain.SSAmountFlatMonthly, Amount: dec("50")},
			net: "43200", adjust: "-1200",
		},
		{
			name:   "capped at the benefit",
			spouse: false,
			reduction: domain.SSReduction{Enabled: true, TriggerYear: 2030, Direction: domain.SSDecrease,
				AmountType: domain.SSAmountFlatMonthly, Amount: dec("5000")},
			net: "0", adjust: "24000",
		},
		{
			name:   "not yet triggered",
			spouse: true,
			reduction: domain.SSReduction{Enabled: true, TriggerYear: 2031, Direction: domain.SSDecrease,
				AmountType: domain.SSAmountPercentage, Amount: dec("0.23")},
			net: "42000", adjust: "0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			states, s := ssStates(t, tt.spouse)
			res := ssc.Calculate(states, 2030, s.FilingStatus, tt.reduction)
			assertDecimal(t, tt.net, res.Net)
			assertDecimal(t, tt.adjust, res.Adjustment)
			assert.Equal(t, !res.Adjustment.IsZero(), res.AdjustmentUsed)
			assertDecimal(t, res.Net.String(), res.PrimaryNet.Add(res.SpouseNet))
		})
	}
}

func TestSSSkipsDeceasedEarner(t *testing.T) {
	states, s := ssStates(t, true)
	s.Spouse.MortalityAge = 66
	res := NewSocialSecurityCalculator().Calculate(states, 2030, s.FilingStatus, domain.SSReduction{})
	assertDecimal(t, "24000", res.Gross)
	assertDecimal(t, "0", res.SpouseGross)
}
