package calculation

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"github.com/rpgo/retirement-cashflow/internal/domain"
	"github.com/rpgo/retirement-cashflow/internal/logging"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Optimizer grid-searches conversion schedules for the lowest total expenses.
type Optimizer struct {
	Comparator *Comparator
	Workers    int
	Logger     logging.Logger
}

// NewOptimizer creates an optimizer with one worker per CPU.
func NewOptimizer(c *Comparator) *Optimizer {
	return &Optimizer{Comparator: c, Workers: runtime.GOMAXPROCS(0), Logger: logging.OrNop(c.Logger)}
}

type candidate struct {
	params domain.ConversionParams
	score  domain.ScheduleScore
	result *domain.ComparisonResult
}

// Search evaluates every grid point concurrently. Each run gets its own copy
// of the scenario. The score is baseline total expenses minus conversion
// total expenses; ties go to the earliest start, then the shortest
// duration, then the smallest amount.
func (o *Optimizer) Search(ctx context.Context, scenario *domain.Scenario, grid domain.OptimizationGrid) (*domain.OptimizationResult, error) {
	if grid.Size() == 0 {
		return nil, domain.NewFieldError(domain.ErrInvalidInput, "grid", "optimization grid is empty")
	}
	for _, amount := range grid.AnnualAmounts {
		if !amount.IsPositive() {
			return nil, domain.NewFieldError(domain.ErrInvalidInput, "grid.annual_amounts", "amounts must be positive, got %s", amount)
		}
	}

	candidates := make([]*candidate, 0, grid.Size())
	for _, start := range grid.StartYears {
		for _, years := range grid.Durations {
			for _, amount := range grid.AnnualAmounts {
				p := grid.Base
				p.ConversionStartYear = start
				p.YearsToConvert = years
				p.AnnualAmount = amount
				candidates = append(candidates, &candidate{params: p})
			}
		}
	}

	workers := o.Workers
	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, c := range candidates {
		c := c
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := o.Comparator.Compare(gctx, scenario.Clone(), c.params)
			if err != nil {
				return fmt.Errorf("schedule %d/%dy/%s: %w", c.params.ConversionStartYear, c.params.YearsToConvert, c.params.AnnualAmount, err)
			}
			c.result = res
			breakdown := res.OptimalSchedule.ScoreBreakdown
			c.score = domain.ScheduleScore{
				StartYear:    res.ConversionParams.ConversionStartYear,
				Duration:     res.ConversionParams.YearsToConvert,
				AnnualAmount: res.ConversionParams.AnnualAmount,
				Score:        breakdown.TotalSavings,
				Breakdown:    breakdown,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return betterSchedule(candidates[i].score, candidates[j].score)
	})
	best := candidates[0]
	o.Logger.Infof("optimizer evaluated %d schedules, best %d for %d years at %s (savings %s)",
		len(candidates), best.score.StartYear, best.score.Duration, best.score.AnnualAmount.StringFixed(2), best.score.Score.StringFixed(2))

	out := &domain.OptimizationResult{
		Best:       best.score,
		Candidates: make([]domain.ScheduleScore, len(candidates)),
		Comparison: best.result,
	}
	for i, c := range candidates {
		out.Candidates[i] = c.score
	}
	return out, nil
}

func betterSchedule(a, b domain.ScheduleScore) bool {
	if !a.Score.Equal(b.Score) {
		return a.Score.GreaterThan(b.Score)
	}
	if a.StartYear != b.StartYear {
		return a.StartYear < b.StartYear
	}
	if a.Duration != b.Duration {
		return a.Duration < b.Duration
	}
	return a.AnnualAmount.LessThan(b.AnnualAmount)
}

// DefaultGrid builds a search grid around a scenario: start years from the
// first projection year for span years, durations 1..maxYears, and amounts
// from step to maxAmount.
func DefaultGrid(s *domain.Scenario, span, maxYears int, step, maxAmount decimal.Decimal, base domain.ConversionParams) domain.OptimizationGrid {
	grid := domain.OptimizationGrid{Base: base}
	first := s.EarliestRetirementYear()
	if s.CurrentYear > 0 && s.CurrentYear < first {
		first = s.CurrentYear
	}
	for y := 0; y < span; y++ {
		grid.StartYears = append(grid.StartYears, first+y)
	}
	for d := 1; d <= maxYears; d++ {
		grid.Durations = append(grid.Durations, d)
	}
	if step.IsPositive() {
		for a := step; a.LessThanOrEqual(maxAmount); a = a.Add(step) {
			grid.AnnualAmounts = append(grid.AnnualAmounts, a)
		}
	}
	return grid
}
