package main

import (
	"fmt"
	"io"

	"github.com/rpgo/retirement-cashflow/internal/domain"
	"github.com/rpgo/retirement-cashflow/internal/output"
	"github.com/rpgo/retirement-cashflow/internal/taxrules"
	"github.com/spf13/cobra"
)

func newRulesCmd(opts *cliOptions) *cobra.Command {
	var (
		year   int
		seedDB string
	)
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Show the loaded tax rules, or seed them into a SQLite database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := opts.ruleStore(ctx)
			if err != nil {
				return err
			}

			if seedDB != "" {
				db, err := taxrules.OpenSQLite(seedDB)
				if err != nil {
					return err
				}
				defer db.Close()
				if err := taxrules.SeedSQLite(ctx, db, store); err != nil {
					return err
				}
				opts.logger.Infow("rules seeded", "path", seedDB, "years", store.Years())
				fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d tax years into %s\n", len(store.Years()), seedDB)
				return nil
			}

			if year == 0 {
				year = store.LatestYear()
			}
			rules, err := store.ForYear(year)
			if err != nil {
				return err
			}
			writeRules(cmd.OutOrStdout(), store, rules)
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "Tax year to show (default: latest)")
	cmd.Flags().StringVar(&seedDB, "seed", "", "Write the loaded rules into this SQLite database and exit")
	return cmd
}

func writeRules(w io.Writer, store *taxrules.Store, r *taxrules.YearRules) {
	fmt.Fprintf(w, "TAX RULES %d (loaded years: %v)\n\n", r.Year, store.Years())

	var brackets, deductions, irmaa [][]string
	for _, fs := range domain.FilingStatuses {
		for _, b := range r.Brackets[fs] {
			upper := "∞"
			if b.Max.Valid {
				upper = b.Max.Decimal.StringFixed(0)
			}
			brackets = append(brackets, []string{string(fs), b.Min.StringFixed(0), upper, output.FormatPercentage(b.Rate.Shift(2))})
		}
		if d, ok := r.StandardDeductions[fs]; ok {
			deductions = append(deductions, []string{string(fs), d.StringFixed(0)})
		}
		for _, t := range r.IRMAA[fs] {
			irmaa = append(irmaa, []string{string(fs), fmt.Sprint(t.Number), t.Threshold.StringFixed(0), t.PartB.StringFixed(2), t.PartD.StringFixed(2)})
		}
	}

	fmt.Fprintln(w, "FEDERAL BRACKETS")
	fmt.Fprint(w, output.RenderTable([]string{"Filing status", "Min", "Max", "Rate"}, brackets))
	fmt.Fprintln(w, "\nSTANDARD DEDUCTIONS")
	fmt.Fprint(w, output.RenderTable([]string{"Filing status", "Amount"}, deductions))
	fmt.Fprintln(w, "\nIRMAA TIERS (monthly, per person)")
	fmt.Fprint(w, output.RenderTable([]string{"Filing status", "Tier", "MAGI over", "Part B", "Part D"}, irmaa))

	m := r.MedicareBaseRates()
	fmt.Fprintf(w, "\nMEDICARE BASE PREMIUMS: Part B %s, Part D %s monthly; thresholds inflate %s annually\n",
		m.PartB.StringFixed(2), m.PartD.StringFixed(2), output.FormatPercentage(m.ThresholdInflation.Shift(2)))

	var states [][]string
	for _, code := range store.States() {
		st := store.StateTaxInfo(code)
		states = append(states, []string{st.Code, st.Name, output.FormatPercentage(st.Rate.Shift(2)),
			fmt.Sprint(st.RetirementIncomeExempt), fmt.Sprint(st.SSTaxed)})
	}
	fmt.Fprintln(w, "\nSTATES")
	fmt.Fprint(w, output.RenderTable([]string{"Code", "Name", "Rate", "Retirement exempt", "SS taxed"}, states))
}
