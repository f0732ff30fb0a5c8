package integration

import (
	"context"
	"testing"

	"github.com/rpgo/retirement-cashflow/internal/calculation"
	"github.com/rpgo/retirement-cashflow/internal/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComparisonMatchesOptimizerCandidate(t *testing.T) {
	parser := config.NewInputParser()
	s, file, err := parser.LoadScenario(coupleScenario)
	require.NoError(t, err)
	s.CurrentYear = 2025

	params, ok, err := file.ConversionParams()
	require.NoError(t, err)
	require.True(t, ok)
	params.AnnualAmount = decimal.NewFromInt(50000)

	comparator := calculation.NewComparator(calculation.NewCalculationEngine())
	res, err := comparator.Compare(context.Background(), s.Clone(), params)
	require.NoError(t, err)

	// Baseline and conversion cover the same years
	require.Equal(t, len(res.BaselineRows), len(res.ConversionRows))
	for i := range res.BaselineRows {
		assert.Equal(t, res.BaselineRows[i].Year, res.ConversionRows[i].Year)
		assert.True(t, res.BaselineRows[i].RothConversion.IsZero())
	}

	grid, ok, err := file.Grid()
	require.NoError(t, err)
	require.True(t, ok)

	opt := calculation.NewOptimizer(comparator)
	opt.Workers = 2
	out, err := opt.Search(context.Background(), s, grid)
	require.NoError(t, err)
	require.Len(t, out.Candidates, grid.Size())

	// The optimizer scores the same schedule exactly as a direct comparison
	var found bool
	for _, c := range out.Candidates {
		if c.StartYear == 2025 && c.Duration == 4 && c.AnnualAmount.Equal(params.AnnualAmount) {
			found = true
			assert.True(t, c.Score.Equal(res.OptimalSchedule.ScoreBreakdown.TotalSavings),
				"score %s vs savings %s", c.Score, res.OptimalSchedule.ScoreBreakdown.TotalSavings)
		}
		assert.True(t, c.Score.LessThanOrEqual(out.Best.Score))
	}
	assert.True(t, found, "schedule 2025/4/50000 missing from candidates")
}
