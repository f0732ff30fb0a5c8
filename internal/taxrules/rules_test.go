package taxrules

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/rpgo/retirement-cashflow/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func rules2025(t *testing.T) *YearRules {
	t.Helper()
	store, err := Default()
	require.NoError(t, err)
	r, err := store.ForYear(2025)
	require.NoError(t, err)
	return r
}

func TestFederalTax(t *testing.T) {
	r := rules2025(t)

	testCases := []struct {
		name    string
		taxable string
		status  domain.FilingStatus
		tax     string
		bracket string
	}{
		{"zero income", "0", domain.FilingSingle, "0", "0%"},
		{"negative income", "-500", domain.FilingSingle, "0", "0%"},
		{"first bracket", "10000", domain.FilingSingle, "1000", "10%"},
		{"bracket edge", "11925", domain.FilingSingle, "1192.5", "10%"},
		{"second bracket", "40000", domain.FilingSingle, "4561.5", "12%"},
		{"mfj 22%", "100000", domain.FilingMarriedJointly, "11828", "22%"},
		{"top bracket", "700000", domain.FilingSingle, "216020.25", "37%"},
		{"qualifying widow uses joint brackets", "100000", domain.FilingQualifyingWidow, "11828", "22%"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res := r.FederalTax(d(tc.taxable), tc.status)
			assert.True(t, res.Tax.Equal(d(tc.tax)), "tax = %s, want %s", res.Tax, tc.tax)
			assert.Equal(t, tc.bracket, res.Bracket)
		})
	}
}

func TestUnknownFilingStatusFallsBackToSingle(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	r := rules2025(t).WithLogger(zap.New(core).Sugar())

	single := r.FederalTax(d("50000"), domain.FilingSingle)
	unknown := r.FederalTax(d("50000"), domain.FilingStatus("Civil Union"))

	assert.True(t, single.Tax.Equal(unknown.Tax))
	assert.True(t, r.StandardDeduction("Civil Union").Equal(d("15000")))
	assert.GreaterOrEqual(t, logs.Len(), 2)
}

func TestStandardDeductionAndThresholds(t *testing.T) {
	r := rules2025(t)
	want := map[domain.FilingStatus]string{
		domain.FilingSingle:            "15000",
		domain.FilingMarriedJointly:    "30000",
		domain.FilingMarriedSeparately: "15000",
		domain.FilingHeadOfHousehold:   "22500",
		domain.FilingQualifyingWidow:   "30000",
	}
	for fs, amount := range want {
		assert.True(t, r.StandardDeduction(fs).Equal(d(amount)), fs)
	}

	mfj := r.SSThresholds(domain.FilingMarriedJointly)
	assert.True(t, mfj.Base.Equal(d("32000")))
	assert.True(t, mfj.Additional.Equal(d("44000")))
	mfs := r.SSThresholds(domain.FilingMarriedSeparately)
	assert.True(t, mfs.Base.IsZero())
	assert.True(t, mfs.Additional.IsZero())

	base := r.MedicareBaseRates()
	assert.True(t, base.PartB.Equal(d("185")))
	assert.True(t, base.PartD.Equal(d("71")))
}

func TestIRMAA(t *testing.T) {
	r := rules2025(t)

	t.Run("below first threshold", func(t *testing.T) {
		tier := r.CalculateIRMAA(d("105999"), domain.FilingSingle, 2025)
		assert.Equal(t, 0, tier.Number)
		assert.True(t, tier.PartB.IsZero())
	})

	t.Run("exactly at threshold", func(t *testing.T) {
		tier := r.CalculateIRMAA(d("106000"), domain.FilingSingle, 2025)
		assert.Equal(t, 1, tier.Number)
		assert.True(t, tier.PartB.Equal(d("71.90")))
		assert.True(t, tier.PartD.Equal(d("13.70")))
	})

	t.Run("joint top tier", func(t *testing.T) {
		tier := r.CalculateIRMAA(d("800000"), domain.FilingMarriedJointly, 2025)
		assert.Equal(t, 5, tier.Number)
		assert.True(t, tier.PartB.Equal(d("431")))
	})

	t.Run("thresholds inflate", func(t *testing.T) {
		tiers := r.IRMAAThresholdsInflated(domain.FilingSingle, 2027)
		assert.True(t, tiers[1].Threshold.Equal(d("108130.6")), "got %s", tiers[1].Threshold)
		assert.True(t, tiers[1].PartB.Equal(d("71.90")))

		// 107000 crosses the 2025 threshold but not the inflated 2027 one.
		tier := r.CalculateIRMAA(d("107000"), domain.FilingSingle, 2027)
		assert.Equal(t, 0, tier.Number)
	})

	t.Run("no deflation before reference year", func(t *testing.T) {
		tiers := r.IRMAAThresholdsInflated(domain.FilingSingle, 2020)
		assert.True(t, tiers[1].Threshold.Equal(d("106000")))
	})
}

func TestStateTaxInfo(t *testing.T) {
	r := rules2025(t)

	pa := r.StateTaxInfo("pa")
	assert.Equal(t, "Pennsylvania", pa.Name)
	assert.True(t, pa.RetirementIncomeExempt)

	mn := r.StateTaxInfo("MN")
	assert.True(t, mn.SSTaxed)
	assert.True(t, mn.Rate.Equal(d("0.0985")))

	unknown := r.StateTaxInfo("ZZ")
	assert.Equal(t, "Unknown", unknown.Name)
	assert.True(t, unknown.Rate.IsZero())
}

func TestForYearMissing(t *testing.T) {
	store, err := Default()
	require.NoError(t, err)

	_, err = store.ForYear(1999)
	assert.True(t, errors.Is(err, domain.ErrMissingRuleData))
	assert.Equal(t, 2025, store.LatestYear())
	assert.Contains(t, store.States(), "PA")
}

func TestLoadFSMissingTable(t *testing.T) {
	fsys := fstest.MapFS{
		BracketsFile: {Data: []byte("year,filing_status,bracket_min,bracket_max,rate\n2025,Single,0,,0.10\n")},
	}
	_, err := LoadFS(fsys)
	assert.True(t, errors.Is(err, domain.ErrMissingRuleData))
}

func TestLoadFSBadRow(t *testing.T) {
	fsys := fstest.MapFS{
		BracketsFile: {Data: []byte("year,filing_status,bracket_min,bracket_max,rate\n2025,Single,zero,,0.10\n")},
	}
	_, err := LoadFS(fsys)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	store, err := Default()
	require.NoError(t, err)
	require.NoError(t, SeedSQLite(ctx, db, store))

	loaded, err := LoadSQLite(ctx, db)
	require.NoError(t, err)

	want, _ := store.ForYear(2025)
	got, err := loaded.ForYear(2025)
	require.NoError(t, err)

	for _, taxable := range []string{"0", "25000", "120000", "900000"} {
		for _, fs := range domain.FilingStatuses {
			assert.True(t, want.FederalTax(d(taxable), fs).Tax.Equal(got.FederalTax(d(taxable), fs).Tax), "%s %s", fs, taxable)
		}
	}
	assert.True(t, got.CalculateIRMAA(d("300000"), domain.FilingMarriedJointly, 2030).PartB.
		Equal(want.CalculateIRMAA(d("300000"), domain.FilingMarriedJointly, 2030).PartB))
	assert.Equal(t, store.StateTaxInfo("VT"), loaded.StateTaxInfo("VT"))
	assert.Equal(t, store.States(), loaded.States())
}

func TestLoadSQLiteEmpty(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()
	_, err = db.Exec(schemaSQL)
	require.NoError(t, err)

	_, err = LoadSQLite(context.Background(), db)
	assert.True(t, errors.Is(err, domain.ErrMissingRuleData))
}
