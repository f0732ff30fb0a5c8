package main

import (
	"fmt"

	"github.com/rpgo/retirement-cashflow/internal/config"
	"github.com/spf13/cobra"
)

func newExampleCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "example <path>",
		Short: "Write an example scenario file (.yaml, .toml or .json)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parser := config.NewInputParser()
			if err := parser.SaveScenario(parser.CreateExampleScenario(), args[0]); err != nil {
				return err
			}
			opts.logger.Debugw("example written", "path", args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "Example scenario written to %s\n", args[0])
			return nil
		},
	}
}
