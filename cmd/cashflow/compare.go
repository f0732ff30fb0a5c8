package main

import (
	"fmt"

	"github.com/rpgo/retirement-cashflow/internal/calculation"
	"github.com/rpgo/retirement-cashflow/internal/config"
	"github.com/rpgo/retirement-cashflow/internal/domain"
	"github.com/rpgo/retirement-cashflow/internal/output"
	"github.com/rpgo/retirement-cashflow/pkg/money"
	"github.com/spf13/cobra"
)

// compareFlags override the scenario file's comparison block.
type compareFlags struct {
	startYear           int
	years               int
	amount              float64
	preRetirementIncome float64
}

func (f *compareFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.startYear, "start-year", 0, "First conversion year")
	cmd.Flags().IntVar(&f.years, "years", 0, "Number of conversion years")
	cmd.Flags().Float64Var(&f.amount, "amount", 0, "Annual conversion amount (0 derives it from max_to_convert)")
	cmd.Flags().Float64Var(&f.preRetirementIncome, "pre-retirement-income", 0, "Earned income in conversion years before retirement")
}

// params merges the file's comparison block with any flags that were set.
func (f *compareFlags) params(cmd *cobra.Command, file *config.ScenarioFile) (domain.ConversionParams, error) {
	p, ok, err := file.ConversionParams()
	if err != nil {
		return p, err
	}
	flags := cmd.Flags()
	if flags.Changed("start-year") {
		p.ConversionStartYear = f.startYear
	}
	if flags.Changed("years") {
		p.YearsToConvert = f.years
	}
	if flags.Changed("amount") {
		if p.AnnualAmount, err = money.FromFloat(f.amount); err != nil {
			return p, domain.NewFieldError(domain.ErrNumericOverflow, "amount", "%v", err)
		}
	}
	if flags.Changed("pre-retirement-income") {
		if p.PreRetirementIncome, err = money.FromFloat(f.preRetirementIncome); err != nil {
			return p, domain.NewFieldError(domain.ErrNumericOverflow, "pre-retirement-income", "%v", err)
		}
	}
	if !ok && p.ConversionStartYear == 0 {
		return p, fmt.Errorf("%w: scenario has no comparison block; pass --start-year and --years", domain.ErrInvalidInput)
	}
	return p, nil
}

func newCompareCmd(opts *cliOptions) *cobra.Command {
	flags := &compareFlags{}
	cmd := &cobra.Command{
		Use:   "compare <scenario-file>",
		Short: "Compare a Roth conversion schedule against the no-conversion baseline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, file, err := opts.loadScenario(args[0])
			if err != nil {
				return err
			}
			params, err := flags.params(cmd, file)
			if err != nil {
				return err
			}
			eng, err := opts.engine(ctx)
			if err != nil {
				return err
			}
			res, err := calculation.NewComparator(eng).Compare(ctx, s, params)
			if err != nil {
				return err
			}
			opts.logger.Infow("comparison complete", "scenario", s.Name,
				"total_savings", res.OptimalSchedule.ScoreBreakdown.TotalSavings.String())

			report := output.NewComparisonReport(s.Name, res)
			report.Assumptions = opts.assumptions(eng, s, &res.ConversionParams)
			return opts.emit(cmd, report)
		},
	}
	flags.register(cmd)
	return cmd
}
