package output

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rpgo/retirement-cashflow/internal/domain"
)

// ConsoleFormatter renders fixed-width tables for a terminal. Without a
// renderer the output is plain text.
type ConsoleFormatter struct {
	Renderer *lipgloss.Renderer
	// MaxCandidates limits the optimizer table; 0 shows ten.
	MaxCandidates int
}

func (c ConsoleFormatter) Name() string      { return "console" }
func (c ConsoleFormatter) Extension() string { return "txt" }

// consoleStyles follows a muted palette: accent headers, dim borders.
type consoleStyles struct {
	title  lipgloss.Style
	header lipgloss.Style
	value  lipgloss.Style
	dim    lipgloss.Style
	good   lipgloss.Style
	warn   lipgloss.Style
}

func newConsoleStyles(r *lipgloss.Renderer) consoleStyles {
	if r == nil {
		r = lipgloss.NewRenderer(io.Discard)
	}
	return consoleStyles{
		title:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFCF0")),
		header: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#3AA99F")),
		value:  r.NewStyle().Foreground(lipgloss.Color("#FFFCF0")),
		dim:    r.NewStyle().Foreground(lipgloss.Color("#575653")),
		good:   r.NewStyle().Foreground(lipgloss.Color("#879A39")),
		warn:   r.NewStyle().Foreground(lipgloss.Color("#DA702C")),
	}
}

func (c ConsoleFormatter) Format(report *domain.Report) ([]byte, error) {
	sets := ledgerSets(report)
	if len(sets) == 0 && report.Optimization == nil {
		return nil, ErrNothingToRender
	}
	st := newConsoleStyles(c.Renderer)
	var buf bytes.Buffer

	title := "RETIREMENT CASH-FLOW REPORT"
	if report.Name != "" {
		title += ": " + report.Name
	}
	fmt.Fprintln(&buf, st.title.Render(title))
	fmt.Fprintln(&buf, st.dim.Render(strings.Repeat("=", lipgloss.Width(title))))
	if report.RunID != "" {
		fmt.Fprintf(&buf, "Run: %s\n", report.RunID)
	}
	fmt.Fprintln(&buf)

	assumptions := report.Assumptions
	if len(assumptions) == 0 {
		assumptions = DefaultAssumptions
	}
	fmt.Fprintln(&buf, st.header.Render("KEY ASSUMPTIONS:"))
	for _, a := range assumptions {
		fmt.Fprintf(&buf, "• %s\n", a)
	}
	fmt.Fprintln(&buf)

	for _, s := range sets {
		writeLedgerSection(&buf, st, s)
	}
	if cmp := comparisonOf(report); cmp != nil {
		writeComparisonSection(&buf, st, cmp)
	}
	if report.Optimization != nil {
		limit := c.MaxCandidates
		if limit <= 0 {
			limit = 10
		}
		writeOptimizationSection(&buf, st, report.Optimization, limit)
	}
	return buf.Bytes(), nil
}

func writeLedgerSection(buf *bytes.Buffer, st consoleStyles, s ledgerSet) {
	sum := SummarizeProjection(s.Rows)
	fmt.Fprintf(buf, "%s (%d-%d)\n", st.header.Render(strings.ToUpper(s.Label)), sum.FirstYear, sum.LastYear)
	fmt.Fprintf(buf, "  Lifetime federal tax:  %s\n", FormatCurrency(sum.Metrics.LifetimeTax))
	fmt.Fprintf(buf, "  Lifetime Medicare:     %s\n", FormatCurrency(sum.Metrics.LifetimeMedicare))
	fmt.Fprintf(buf, "  Total IRMAA:           %s\n", FormatCurrency(sum.Metrics.TotalIRMAA))
	fmt.Fprintf(buf, "  Total RMDs:            %s\n", FormatCurrency(sum.Metrics.TotalRMDs))
	fmt.Fprintf(buf, "  Cumulative net income: %s\n", FormatCurrency(sum.Metrics.CumulativeNetIncome))

	t := table{Headers: []string{"Year", "Age", "Gross", "Conversion", "RMD", "AGI", "Federal", "State", "Medicare", "IRMAA", "Net"}}
	for _, r := range s.Rows {
		age := intToString(r.PrimaryAge)
		if r.SpouseAge != nil {
			age += "/" + intToString(*r.SpouseAge)
		}
		year := intToString(r.Year)
		if r.IsSynthetic {
			year += "*"
		}
		t.Rows = append(t.Rows, []string{
			year,
			age,
			r.GrossIncomeTotal.StringFixed(2),
			r.RothConversion.StringFixed(2),
			r.RMDTotal.StringFixed(2),
			r.AGI.StringFixed(2),
			r.FederalTax.StringFixed(2),
			r.StateTax.StringFixed(2),
			r.EffectiveMedicare.StringFixed(2),
			r.IRMAASurcharge.StringFixed(2),
			r.NetIncome.StringFixed(2),
		})
	}
	buf.WriteString(renderTable(st, t))
	fmt.Fprintln(buf)
}

func writeComparisonSection(buf *bytes.Buffer, st consoleStyles, c *domain.ComparisonResult) {
	fmt.Fprintln(buf, st.header.Render("BASELINE VS CONVERSION"))
	t := table{Headers: []string{"Metric", "Baseline", "Conversion", "Difference", "Change"}}
	for _, name := range domain.MetricNames {
		m, ok := c.Metrics.Comparison[name]
		if !ok {
			continue
		}
		t.Rows = append(t.Rows, []string{
			name,
			m.Baseline.StringFixed(2),
			m.Conversion.StringFixed(2),
			m.Difference.StringFixed(2),
			FormatPercentage(m.PercentChange),
		})
	}
	buf.WriteString(renderTable(st, t))

	rec := AnalyzeComparison(c)
	sched := rec.Schedule
	fmt.Fprintf(buf, "Schedule: %d for %d years at %s (total %s)\n",
		sched.StartYear, sched.Duration, FormatCurrency(sched.AnnualAmount), FormatCurrency(sched.TotalAmount))
	b := sched.ScoreBreakdown
	fmt.Fprintf(buf, "Savings: tax %s, Medicare %s, IRMAA %s, inheritance %s\n",
		FormatCurrency(b.TaxSavings), FormatCurrency(b.MedicareSavings), FormatCurrency(b.IRMAASavings), FormatCurrency(b.InheritanceSavings))
	if rec.Convert {
		fmt.Fprintln(buf, st.good.Render(fmt.Sprintf("Recommended: convert (saves %s, %s total expenses)",
			FormatCurrency(rec.TotalSavings), FormatPercentage(rec.PercentChange))))
	} else {
		fmt.Fprintln(buf, st.warn.Render(fmt.Sprintf("Recommended: do not convert (net %s)", FormatCurrency(rec.TotalSavings))))
	}
	fmt.Fprintln(buf)
}

func writeOptimizationSection(buf *bytes.Buffer, st consoleStyles, o *domain.OptimizationResult, limit int) {
	fmt.Fprintf(buf, "%s (%d candidates)\n", st.header.Render("CONVERSION SCHEDULES"), len(o.Candidates))
	t := table{Headers: []string{"Rank", "Start", "Years", "Annual", "Tax", "Medicare", "Inheritance", "Score"}}
	for i, c := range o.Candidates {
		if i == limit {
			break
		}
		t.Rows = append(t.Rows, []string{
			intToString(i + 1),
			intToString(c.StartYear),
			intToString(c.Duration),
			c.AnnualAmount.StringFixed(2),
			c.Breakdown.TaxSavings.StringFixed(2),
			c.Breakdown.MedicareSavings.StringFixed(2),
			c.Breakdown.InheritanceSavings.StringFixed(2),
			c.Score.StringFixed(2),
		})
	}
	buf.WriteString(renderTable(st, t))
	fmt.Fprintln(buf)
}

// table is a bordered text table; the first column is left aligned, the rest right aligned.
type table struct {
	Headers []string
	Rows    [][]string
}

func renderTable(st consoleStyles, t table) string {
	numCols := len(t.Headers)
	widths := make([]int, numCols)
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < numCols && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	var b strings.Builder
	rule := func(left, mid, right string) {
		b.WriteString(st.dim.Render(left))
		for i, w := range widths {
			b.WriteString(st.dim.Render(strings.Repeat("─", w+2)))
			if i < numCols-1 {
				b.WriteString(st.dim.Render(mid))
			}
		}
		b.WriteString(st.dim.Render(right))
		b.WriteString("\n")
	}
	line := func(cells []string, style lipgloss.Style) {
		b.WriteString(st.dim.Render("│"))
		for i := 0; i < numCols; i++ {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			pad := strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
			if i == 0 {
				b.WriteString(style.Render(" " + cell + pad + " "))
			} else {
				b.WriteString(style.Render(" " + pad + cell + " "))
			}
			if i < numCols-1 {
				b.WriteString(st.dim.Render("│"))
			}
		}
		b.WriteString(st.dim.Render("│"))
		b.WriteString("\n")
	}

	rule("╭", "┬", "╮")
	line(t.Headers, st.header)
	rule("├", "┼", "┤")
	for _, row := range t.Rows {
		line(row, st.value)
	}
	rule("╰", "┴", "╯")
	return b.String()
}

// RenderTable renders a bordered plain-text table.
func RenderTable(headers []string, rows [][]string) string {
	return renderTable(newConsoleStyles(nil), table{Headers: headers, Rows: rows})
}
