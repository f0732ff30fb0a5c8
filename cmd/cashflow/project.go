package main

import (
	"github.com/rpgo/retirement-cashflow/internal/output"
	"github.com/spf13/cobra"
)

func newProjectCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "project <scenario-file>",
		Short: "Project the annual ledger for a scenario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, _, err := opts.loadScenario(args[0])
			if err != nil {
				return err
			}
			eng, err := opts.engine(ctx)
			if err != nil {
				return err
			}
			rows, err := eng.Calculate(ctx, s)
			if err != nil {
				return err
			}
			opts.logger.Infow("projection complete", "scenario", s.Name, "years", len(rows))

			report := output.NewProjectionReport(s.Name, rows)
			report.Assumptions = opts.assumptions(eng, s, nil)
			return opts.emit(cmd, report)
		},
	}
}
