package main

import (
	"fmt"

	"github.com/rpgo/retirement-cashflow/internal/calculation"
	"github.com/rpgo/retirement-cashflow/internal/domain"
	"github.com/rpgo/retirement-cashflow/internal/output"
	"github.com/rpgo/retirement-cashflow/pkg/money"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

const (
	defaultSpanYears = 5
	defaultMaxYears  = 10
)

var (
	defaultAmountStep = decimal.NewFromInt(25000)
	defaultMaxAmount  = decimal.NewFromInt(100000)
)

func newOptimizeCmd(opts *cliOptions) *cobra.Command {
	var (
		startYears []int
		durations  []int
		amounts    []float64
		workers    int
	)
	cmd := &cobra.Command{
		Use:   "optimize <scenario-file>",
		Short: "Grid-search Roth conversion schedules for the lowest total expenses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, file, err := opts.loadScenario(args[0])
			if err != nil {
				return err
			}
			grid, ok, err := file.Grid()
			if err != nil {
				return err
			}
			if !ok {
				base, _, err := file.ConversionParams()
				if err != nil {
					return err
				}
				grid = calculation.DefaultGrid(s, defaultSpanYears, defaultMaxYears, defaultAmountStep, defaultMaxAmount, base)
			}

			flags := cmd.Flags()
			if flags.Changed("start-years") {
				grid.StartYears = startYears
			}
			if flags.Changed("durations") {
				grid.Durations = durations
			}
			if flags.Changed("amounts") {
				grid.AnnualAmounts = grid.AnnualAmounts[:0]
				for i, a := range amounts {
					d, err := money.FromFloat(a)
					if err != nil {
						return domain.NewFieldError(domain.ErrNumericOverflow, fmt.Sprintf("amounts[%d]", i), "%v", err)
					}
					grid.AnnualAmounts = append(grid.AnnualAmounts, d)
				}
			}

			eng, err := opts.engine(ctx)
			if err != nil {
				return err
			}
			opt := calculation.NewOptimizer(calculation.NewComparator(eng))
			if workers > 0 {
				opt.Workers = workers
			}
			opts.logger.Infow("optimizer starting", "candidates", grid.Size(), "workers", opt.Workers)
			res, err := opt.Search(ctx, s, grid)
			if err != nil {
				return err
			}
			opts.logger.Infow("optimizer complete", "best_start", res.Best.StartYear,
				"best_duration", res.Best.Duration, "best_amount", res.Best.AnnualAmount.String())

			report := output.NewOptimizationReport(s.Name, res)
			var params *domain.ConversionParams
			if res.Comparison != nil {
				params = &res.Comparison.ConversionParams
			}
			report.Assumptions = opts.assumptions(eng, s, params)
			return opts.emit(cmd, report)
		},
	}
	cmd.Flags().IntSliceVar(&startYears, "start-years", nil, "Candidate conversion start years")
	cmd.Flags().IntSliceVar(&durations, "durations", nil, "Candidate conversion durations in years")
	cmd.Flags().Float64SliceVar(&amounts, "amounts", nil, "Candidate annual conversion amounts")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent comparisons (default: GOMAXPROCS)")
	return cmd
}
