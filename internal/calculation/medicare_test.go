package calculation

import (
	"testing"

	"github.com/rpgo/retirement-cashflow/internal/domain"
	"github.com/rpgo/retirement-cashflow/internal/taxrules"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rules2025(t *testing.T) *taxrules.YearRules {
	t.Helper()
	store, err := taxrules.Default()
	require.NoError(t, err)
	r, err := store.ForYear(2025)
	require.NoError(t, err)
	return r
}

func TestMedicareCalculate(t *testing.T) {
	tests := []struct {
		name      string
		covered   int
		fs        domain.FilingStatus
		magi      string
		tier      int
		total     string
		surcharge string
	}{
		{"nobody covered", 0, domain.FilingSingle, "500000", 0, "0", "0"},
		{"single base", 1, domain.FilingSingle, "50000", 0, "3072", "0"},
		{"couple base", 2, domain.FilingMarriedJointly, "150000", 0, "6144", "0"},
		{"single tier one", 1, domain.FilingSingle, "106000", 1, "4099.2", "1027.2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mc := NewMedicareCalculator(rules2025(t), decimal.Zero, decimal.Zero)
			cost := mc.Calculate(tt.covered, 2025, tt.fs, dec(tt.magi))
			assert.Equal(t, tt.tier, cost.Tier.Number)
			assertDecimal(t, tt.total, cost.Total())
			assertDecimal(t, tt.surcharge, cost.Surcharge())
		})
	}
}

func TestMedicareInflation(t *testing.T) {
	mc := NewMedicareCalculator(rules2025(t), dec("5"), dec("0"))
	cost := mc.Calculate(1, 2027, domain.FilingSingle, decimal.Zero)
	// 185 × 1.05² × 12
	assertDecimal(t, "2447.55", cost.PartB.Round(2))
	assertDecimal(t, "852", cost.PartD)
}

func TestLookbackMAGI(t *testing.T) {
	mc := NewMedicareCalculator(rules2025(t), decimal.Zero, decimal.Zero)
	m, y := mc.LookbackMAGI(2030, dec("1"))
	assertDecimal(t, "1", m)
	assert.Equal(t, 2030, y)

	mc.RecordMAGI(2028, dec("250000"))
	m, y = mc.LookbackMAGI(2030, dec("1"))
	assertDecimal(t, "250000", m)
	assert.Equal(t, 2028, y)
}

func TestCoveredPersons(t *testing.T) {
	s := &domain.Scenario{Primary: *person(1960, 65, 90), Spouse: person(1962, 65, 68)}
	mc := NewMedicareCalculator(rules2025(t), decimal.Zero, decimal.Zero)
	assert.Equal(t, 0, mc.CoveredPersons(s, 2024))
	assert.Equal(t, 1, mc.CoveredPersons(s, 2025))
	assert.Equal(t, 2, mc.CoveredPersons(s, 2027))
	assert.Equal(t, 1, mc.CoveredPersons(s, 2031), "spouse deceased")
}

func medicareCost(partB, partD string, tier int) MedicareCost {
	return MedicareCost{
		PartB: dec(partB), PartD: dec(partD),
		PartBSurcharge: decimal.Zero, PartDSurcharge: decimal.Zero,
		Tier: taxrules.IRMAATier{Number: tier},
	}
}

func TestHoldHarmless(t *testing.T) {
	t.Run("protects remaining benefit", func(t *testing.T) {
		mc := NewMedicareCalculator(rules2025(t), decimal.Zero, decimal.Zero)
		first := mc.ApplyHoldHarmless(medicareCost("2220", "852", 0), dec("30000"))
		assert.False(t, first.Protected)
		assertDecimal(t, "26928", first.RemainingSS)

		second := mc.ApplyHoldHarmless(medicareCost("2500", "852", 0), dec("30100"))
		assert.True(t, second.Protected)
		assertDecimal(t, "180", second.Amount)
		assertDecimal(t, "3172", second.Effective)
		assertDecimal(t, "26928", second.RemainingSS)
	})

	t.Run("IRMAA tier disqualifies", func(t *testing.T) {
		mc := NewMedicareCalculator(rules2025(t), decimal.Zero, decimal.Zero)
		mc.ApplyHoldHarmless(medicareCost("2220", "852", 0), dec("30000"))
		hh := mc.ApplyHoldHarmless(medicareCost("2500", "852", 1), dec("30100"))
		assert.False(t, hh.Protected)
		assertDecimal(t, "3352", hh.Effective)
	})

	t.Run("first Medicare year is never protected", func(t *testing.T) {
		mc := NewMedicareCalculator(rules2025(t), decimal.Zero, decimal.Zero)
		mc.ApplyHoldHarmless(medicareCost("0", "0", 0), dec("30000"))
		hh := mc.ApplyHoldHarmless(medicareCost("2220", "852", 0), dec("30000"))
		assert.False(t, hh.Protected)
	})

	t.Run("benefit below last remainder", func(t *testing.T) {
		mc := NewMedicareCalculator(rules2025(t), decimal.Zero, decimal.Zero)
		mc.ApplyHoldHarmless(medicareCost("2220", "852", 0), dec("30000"))
		hh := mc.ApplyHoldHarmless(medicareCost("2500", "852", 0), dec("20000"))
		assert.False(t, hh.Protected)
	})
}

func TestTaxCalculator(t *testing.T) {
	tc := NewTaxCalculator(rules2025(t))

	tests := []struct {
		name      string
		in        TaxInput
		taxable   string
		federal   string
		state     string
		magi      string
		effective string
	}{
		{
			name:    "conversion stacks on income above the deduction",
			in:      TaxInput{FilingStatus: domain.FilingSingle, TaxableIncome: dec("80000"), Conversion: dec("50000"), ApplyDeduction: true},
			taxable: "115000", federal: "20447", state: "0", magi: "80000", effective: "15.7285",
		},
		{
			name:    "deduction larger than AGI shelters part of the conversion",
			in:      TaxInput{FilingStatus: domain.FilingSingle, TaxableIncome: dec("10000"), Conversion: dec("50000"), ApplyDeduction: true},
			taxable: "45000", federal: "5161.5", state: "0", magi: "10000", effective: "8.6025",
		},
		{
			name:    "deduction floors at zero",
			in:      TaxInput{FilingStatus: domain.FilingSingle, TaxableIncome: dec("5000"), ApplyDeduction: true},
			taxable: "0", federal: "0", state: "0", magi: "5000", effective: "0",
		},
		{
			name:    "state tax excludes taxable SS where benefits are exempt",
			in:      TaxInput{FilingStatus: domain.FilingSingle, State: "CA", TaxableIncome: dec("40000"), SSNet: dec("30000")},
			taxable: "62350", federal: "8631", state: "3720", magi: "70000", effective: "12.33",
		},
		{
			name:    "tax-exempt interest lands in MAGI only",
			in:      TaxInput{FilingStatus: domain.FilingSingle, TaxableIncome: dec("10000"), TaxExemptInterest: dec("3000")},
			taxable: "10000", federal: "1000", state: "0", magi: "13000", effective: "10",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := tc.Calculate(tt.in)
			assertDecimal(t, tt.taxable, res.TaxableIncome)
			assertDecimal(t, tt.federal, res.FederalTax)
			assertDecimal(t, tt.state, res.StateTax.Round(2))
			assertDecimal(t, tt.magi, res.MAGI)
			assertDecimal(t, tt.effective, res.EffectiveRate.Round(4))
		})
	}
}
