package main

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rpgo/retirement-cashflow/internal/calculation"
	"github.com/rpgo/retirement-cashflow/internal/config"
	"github.com/rpgo/retirement-cashflow/internal/domain"
	"github.com/rpgo/retirement-cashflow/internal/logging"
	"github.com/rpgo/retirement-cashflow/internal/output"
	"github.com/rpgo/retirement-cashflow/internal/taxrules"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// cliOptions holds the global flags shared by every subcommand.
type cliOptions struct {
	format      string
	outputDir   string
	verbose     bool
	currentYear int
	rulesDB     string

	logger *zap.SugaredLogger
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}
	root := &cobra.Command{
		Use:           "cashflow",
		Short:         "Retirement cash-flow projections and Roth conversion analysis",
		Long:          "Project year-by-year retirement income, taxes and Medicare costs, and compare Roth conversion schedules.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := logging.New(opts.verbose)
			if err != nil {
				return err
			}
			opts.logger = logger
			if opts.currentYear > 0 {
				year := opts.currentYear
				calculation.SetNowFunc(func() time.Time { return time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC) })
			}
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&opts.format, "format", "f", "console",
		fmt.Sprintf("Output format (%v)", output.AvailableFormatterNames()))
	root.PersistentFlags().StringVarP(&opts.outputDir, "output-dir", "o", "", "Write reports into this directory instead of stdout")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().IntVar(&opts.currentYear, "current-year", 0, "Pin the current year (projection start and catch-up growth)")
	root.PersistentFlags().StringVar(&opts.rulesDB, "rules-db", "", "Load tax rules from a SQLite database instead of the embedded tables")

	root.AddCommand(
		newProjectCmd(opts),
		newCompareCmd(opts),
		newOptimizeCmd(opts),
		newRulesCmd(opts),
		newExampleCmd(opts),
	)
	return root
}

// loadScenario reads and validates a scenario file, applying --current-year.
func (o *cliOptions) loadScenario(path string) (*domain.Scenario, *config.ScenarioFile, error) {
	s, file, err := config.NewInputParser().LoadScenario(path)
	if err != nil {
		return nil, nil, err
	}
	if o.currentYear > 0 {
		s.CurrentYear = o.currentYear
	}
	if s.Name == "" {
		s.Name = path
	}
	o.logger.Debugw("scenario loaded", "path", path, "scenario", s.String(), "assets", len(s.Assets))
	return s, file, nil
}

// ruleStore returns the store selected by --rules-db, or the embedded default.
func (o *cliOptions) ruleStore(ctx context.Context) (*taxrules.Store, error) {
	if o.rulesDB == "" {
		return taxrules.Default()
	}
	db, err := taxrules.OpenSQLite(o.rulesDB)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	store, err := taxrules.LoadSQLite(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("loading rules from %s: %w", o.rulesDB, err)
	}
	return store, nil
}

// engine builds a calculation engine over the selected rules with the CLI logger.
func (o *cliOptions) engine(ctx context.Context) (*calculation.CalculationEngine, error) {
	store, err := o.ruleStore(ctx)
	if err != nil {
		return nil, err
	}
	eng := calculation.NewCalculationEngineWithRules(store)
	eng.SetLogger(o.logger)
	return eng, nil
}

// assumptions lists the modeling assumptions for the report header.
func (o *cliOptions) assumptions(eng *calculation.CalculationEngine, s *domain.Scenario, params *domain.ConversionParams) []string {
	rules, err := eng.YearRules()
	if err != nil {
		o.logger.Warnf("assumptions unavailable: %v", err)
		return nil
	}
	return output.GenerateAssumptions(s, rules, eng.SSCOLA, params)
}

// emit writes the report to --output-dir, or to stdout.
func (o *cliOptions) emit(cmd *cobra.Command, report *domain.Report) error {
	if o.outputDir != "" {
		path, err := output.GenerateReport(report, o.format, o.outputDir)
		if err != nil {
			return err
		}
		o.logger.Infow("report written", "path", path, "run_id", report.RunID)
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	}
	if output.NormalizeFormatName(o.format) == "console" {
		f := output.ConsoleFormatter{Renderer: lipgloss.NewRenderer(cmd.OutOrStdout())}
		data, err := f.Format(report)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	return output.WriteReport(cmd.OutOrStdout(), report, o.format)
}
