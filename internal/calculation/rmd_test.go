package calculation

import (
	"testing"
	"time"

	"github.com/rpgo/retirement-cashflow/internal/domain"
	"github.com/rpgo/retirement-cashflow/internal/logging"
	"github.com/stretchr/testify/assert"
)

func person(birthYear, retirementAge, mortalityAge int) *domain.Person {
	return &domain.Person{
		Name:          "test",
		BirthDate:     time.Date(birthYear, 1, 1, 0, 0, 0, 0, time.UTC),
		RetirementAge: retirementAge,
		MortalityAge:  mortalityAge,
	}
}

func TestDistributionPeriod(t *testing.T) {
	tests := []struct {
		age    int
		period string
		ok     bool
	}{
		{71, "0", false},
		{72, "27.4", true},
		{75, "24.6", true},
		{90, "12.2", true},
		{120, "2", true},
		{125, "2", true},
	}
	for _, tt := range tests {
		p, ok := DistributionPeriod(tt.age)
		assert.Equal(t, tt.ok, ok, "age %d", tt.age)
		assert.True(t, p.Equal(dec(tt.period)), "age %d: got %s", tt.age, p)
	}
}

func TestRMDCalculator(t *testing.T) {
	tests := []struct {
		name      string
		birthYear int
		age       int
		balance   string
		expected  string
	}{
		{"before RMD age (1951 cohort)", 1951, 72, "265000", "0"},
		{"first RMD year (1951 cohort)", 1951, 73, "265000", "10000"},
		{"1950 cohort starts at 72", 1950, 72, "274000", "10000"},
		{"1960 cohort waits until 75", 1960, 74, "500000", "0"},
		{"1960 cohort at 75", 1960, 75, "246000", "10000"},
		{"zero balance", 1950, 80, "0", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewRMDCalculator(tt.birthYear).CalculateRMD(dec(tt.balance), tt.age)
			assert.True(t, got.Equal(dec(tt.expected)), "got %s, want %s", got, tt.expected)
		})
	}
}

func TestScheduleRMD(t *testing.T) {
	owner := person(1960, 63, 95)
	newState := func(kind domain.AssetKind, inherited int, prev string) *assetState {
		a := newAssetState(domain.Asset{ID: "a", Kind: kind, Owner: domain.OwnerPrimary, CurrentBalance: dec(prev), InheritanceYear: inherited}, owner, logging.NopLogger{})
		return a
	}

	t.Run("ten-year rule waits nine years", func(t *testing.T) {
		a := newState(domain.KindInheritedTraditionalNon, 2022, "300000")
		for year := 2023; year <= 2031; year++ {
			s := scheduleRMD(a, year, owner.AgeIn(year), true)
			assert.False(t, s.drain, "year %d", year)
			assert.True(t, s.amount.IsZero(), "year %d", year)
		}
		assert.True(t, scheduleRMD(a, 2032, owner.AgeIn(2032), true).drain)
	})

	t.Run("pre-2020 inheritance stretches", func(t *testing.T) {
		a := newState(domain.KindInheritedTraditionalNon, 2018, "230000")
		s := scheduleRMD(a, 2020, 60, true)
		assert.True(t, s.amount.Equal(dec("10000")), "got %s", s.amount)
	})

	t.Run("stretch divisor floors at one", func(t *testing.T) {
		assert.True(t, stretchDivisor(83).Equal(dec("1")))
		assert.True(t, stretchDivisor(90).Equal(dec("1")))
	})

	t.Run("inherited spouse starts immediately", func(t *testing.T) {
		a := newState(domain.KindInheritedRothSpouse, 0, "246000")
		assert.True(t, scheduleRMD(a, 2035, 75, true).amount.Equal(dec("10000")))
		young := scheduleRMD(a, 2020, 60, true)
		assert.True(t, young.amount.Equal(dec("10695.65")), "got %s", young.amount)
	})

	t.Run("own Roth is exempt", func(t *testing.T) {
		a := newState(domain.KindRoth, 0, "500000")
		assert.True(t, scheduleRMD(a, 2040, 80, true).amount.IsZero())
	})

	t.Run("fully converted and deceased owners take nothing", func(t *testing.T) {
		a := newState(domain.KindQualified, 0, "500000")
		a.fullyConverted = true
		assert.True(t, scheduleRMD(a, 2040, 80, true).amount.IsZero())
		a.fullyConverted = false
		assert.True(t, scheduleRMD(a, 2040, 80, false).amount.IsZero())
		assert.True(t, scheduleRMD(a, 2040, 80, true).amount.IsPositive())
	})
}
