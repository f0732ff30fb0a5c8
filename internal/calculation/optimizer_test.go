package calculation

import (
	"context"
	"testing"

	"github.com/rpgo/retirement-cashflow/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptimizerSearch(t *testing.T) {
	grid := domain.OptimizationGrid{
		StartYears:    []int{2025, 2026},
		Durations:     []int{1, 2},
		AnnualAmounts: []decimal.Decimal{dec("25000"), dec("50000")},
		Base:          domain.ConversionParams{PreRetirementIncome: dec("80000")},
	}
	opt := NewOptimizer(NewComparator(NewCalculationEngine()))
	opt.Workers = 3

	res, err := opt.Search(context.Background(), preRetirementScenario(), grid)
	require.NoError(t, err)

	require.Len(t, res.Candidates, 8)
	assert.Equal(t, res.Candidates[0], res.Best)
	require.NotNil(t, res.Comparison)
	assert.Equal(t, res.Best.StartYear, res.Comparison.ConversionParams.ConversionStartYear)
	for i := 1; i < len(res.Candidates); i++ {
		assert.False(t, betterSchedule(res.Candidates[i], res.Candidates[i-1]), "candidate %d out of order", i)
	}
	for _, c := range res.Candidates {
		assertDecimal(t, c.Breakdown.TotalSavings.String(), c.Score)
	}
}

func TestOptimizerMatchesSequentialCompare(t *testing.T) {
	grid := domain.OptimizationGrid{
		StartYears:    []int{2025},
		Durations:     []int{2},
		AnnualAmounts: []decimal.Decimal{dec("50000")},
		Base:          domain.ConversionParams{PreRetirementIncome: dec("80000")},
	}
	c := NewComparator(NewCalculationEngine())
	res, err := NewOptimizer(c).Search(context.Background(), preRetirementScenario(), grid)
	require.NoError(t, err)

	direct, err := c.Compare(context.Background(), preRetirementScenario(), preRetirementParams())
	require.NoError(t, err)
	assertDecimal(t, direct.OptimalSchedule.ScoreBreakdown.TotalSavings.String(), res.Best.Score)
}

func TestOptimizerRejectsBadGrid(t *testing.T) {
	opt := NewOptimizer(NewComparator(NewCalculationEngine()))

	_, err := opt.Search(context.Background(), preRetirementScenario(), domain.OptimizationGrid{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = opt.Search(context.Background(), preRetirementScenario(), domain.OptimizationGrid{
		StartYears: []int{2025}, Durations: []int{1}, AnnualAmounts: []decimal.Decimal{decimal.Zero},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestOptimizerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	grid := domain.OptimizationGrid{StartYears: []int{2025}, Durations: []int{1}, AnnualAmounts: []decimal.Decimal{dec("1000")}}
	_, err := NewOptimizer(NewComparator(NewCalculationEngine())).Search(ctx, preRetirementScenario(), grid)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBetterSchedule(t *testing.T) {
	s := func(score string, start, dur int, amount string) domain.ScheduleScore {
		return domain.ScheduleScore{Score: dec(score), StartYear: start, Duration: dur, AnnualAmount: dec(amount)}
	}
	tests := []struct {
		name string
		a, b domain.ScheduleScore
		want bool
	}{
		{"higher score", s("10", 2030, 5, "100"), s("5", 2025, 1, "1"), true},
		{"earlier start on tie", s("10", 2025, 5, "100"), s("10", 2026, 1, "1"), true},
		{"shorter duration on tie", s("10", 2025, 2, "100"), s("10", 2025, 3, "1"), true},
		{"smaller amount on tie", s("10", 2025, 2, "50"), s("10", 2025, 2, "100"), true},
		{"identical", s("10", 2025, 2, "50"), s("10", 2025, 2, "50"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, betterSchedule(tt.a, tt.b))
			if tt.want {
				assert.False(t, betterSchedule(tt.b, tt.a))
			}
		})
	}
}

func TestDefaultGrid(t *testing.T) {
	s := preRetirementScenario()
	s.CurrentYear = 2025
	grid := DefaultGrid(s, 3, 2, dec("25000"), dec("75000"), domain.ConversionParams{})
	assert.Equal(t, []int{2025, 2026, 2027}, grid.StartYears)
	assert.Equal(t, []int{1, 2}, grid.Durations)
	require.Len(t, grid.AnnualAmounts, 3)
	assertDecimal(t, "75000", grid.AnnualAmounts[2])
	assert.Equal(t, 18, grid.Size())
}
