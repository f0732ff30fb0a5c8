package output

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rpgo/retirement-cashflow/internal/calculation"
	"github.com/rpgo/retirement-cashflow/internal/domain"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func buildTestRows(conversion bool) []domain.LedgerRow {
	spouseAge := 63
	rows := []domain.LedgerRow{
		{Year: 2025, PrimaryAge: 65, SpouseAge: &spouseAge, FilingStatus: domain.FilingMarriedJointly, IsSynthetic: conversion,
			GrossIncomeTotal: d("60000"), AGI: d("60000"), FederalTax: d("3500"), NetIncome: d("56500"),
			TypeBalances: map[string]decimal.Decimal{"qualified": d("400000")}},
		{Year: 2026, PrimaryAge: 66, FilingStatus: domain.FilingMarriedJointly,
			GrossIncomeTotal: d("62000"), AGI: d("62000"), RMDTotal: d("1000"), FederalTax: d("3700"),
			MedicareBase: d("3072"), EffectiveMedicare: d("3072"), IRMAASurcharge: d("0"), NetIncome: d("55228"),
			TypeBalances: map[string]decimal.Decimal{"qualified": d("390000"), "roth": d("0")}},
	}
	if conversion {
		rows[0].RothConversion = d("50000")
		rows[0].FederalTax = d("14500")
		rows[1].TypeBalances = map[string]decimal.Decimal{"qualified": d("340000"), "roth": d("53000")}
	}
	return rows
}

func buildTestReport() *domain.Report {
	base := calculation.ExtractMetrics(buildTestRows(false), domain.DefaultInheritanceTaxRate)
	conv := calculation.ExtractMetrics(buildTestRows(true), domain.DefaultInheritanceTaxRate)
	savings := calculation.Savings(base, conv)
	return &domain.Report{
		Name:        "Sample",
		RunID:       "00000000-0000-4000-8000-000000000000",
		Assumptions: []string{"Federal tax brackets: 2025 levels held constant (no inflation indexing)"},
		Comparison: &domain.ComparisonResult{
			BaselineRows:   buildTestRows(false),
			ConversionRows: buildTestRows(true),
			Metrics: domain.MetricsBundle{
				Baseline:   base,
				Conversion: conv,
				Comparison: calculation.CompareMetrics(base, conv),
			},
			OptimalSchedule: domain.OptimalSchedule{
				StartYear: 2025, Duration: 1, AnnualAmount: d("50000"), TotalAmount: d("50000"),
				ScoreBreakdown: savings,
			},
		},
	}
}

func TestConsoleFormatter(t *testing.T) {
	out, err := ConsoleFormatter{}.Format(buildTestReport())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	content := string(out)
	for _, want := range []string{
		"RETIREMENT CASH-FLOW REPORT: Sample",
		"KEY ASSUMPTIONS:",
		"BASELINE (2025-2026)",
		"CONVERSION (2025-2026)",
		"2025*",
		"65/63",
		"BASELINE VS CONVERSION",
		"Schedule: 2025 for 1 years at $50000.00",
	} {
		if !strings.Contains(content, want) {
			t.Fatalf("console output missing %q:\n%s", want, content)
		}
	}
	if strings.Contains(content, "\x1b[") {
		t.Fatalf("plain renderer emitted escape sequences")
	}
}

func TestConsoleFormatterOptimization(t *testing.T) {
	report := &domain.Report{
		Name: "Grid",
		Optimization: &domain.OptimizationResult{
			Candidates: []domain.ScheduleScore{
				{StartYear: 2025, Duration: 2, AnnualAmount: d("50000"), Score: d("900")},
				{StartYear: 2026, Duration: 2, AnnualAmount: d("50000"), Score: d("800")},
				{StartYear: 2027, Duration: 2, AnnualAmount: d("50000"), Score: d("700")},
			},
		},
	}
	out, err := ConsoleFormatter{MaxCandidates: 2}.Format(report)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	content := string(out)
	if !strings.Contains(content, "CONVERSION SCHEDULES (3 candidates)") {
		t.Fatalf("missing optimizer heading:\n%s", content)
	}
	if !strings.Contains(content, "900.00") || strings.Contains(content, "700.00") {
		t.Fatalf("candidate limit not applied:\n%s", content)
	}
}

func TestLedgerCSVFormatter(t *testing.T) {
	out, err := LedgerCSVFormatter{}.Format(buildTestReport())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	records, err := csv.NewReader(strings.NewReader(string(out))).ReadAll()
	if err != nil {
		t.Fatalf("csv parse: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("expected header + 4 rows, got %d", len(records))
	}
	header := records[0]
	if header[len(header)-2] != "qualified_balance" || header[len(header)-1] != "roth_balance" {
		t.Fatalf("balance columns not sorted at the end: %v", header)
	}
	if records[1][0] != "baseline" || records[3][0] != "conversion" {
		t.Fatalf("runs out of order: %v / %v", records[1][0], records[3][0])
	}
	if records[1][3] != "63" || records[2][3] != "" {
		t.Fatalf("spouse age column wrong: %q %q", records[1][3], records[2][3])
	}
	if records[1][len(header)-1] != "0.00" {
		t.Fatalf("missing type balance should render as zero, got %q", records[1][len(header)-1])
	}
}

func TestComparisonCSVFormatter(t *testing.T) {
	out, err := ComparisonCSVFormatter{}.Format(buildTestReport())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) != len(domain.MetricNames)+1 {
		t.Fatalf("expected %d lines, got %d", len(domain.MetricNames)+1, len(lines))
	}
	for i, name := range domain.MetricNames {
		if !strings.HasPrefix(lines[i+1], name+",") {
			t.Fatalf("row %d = %q, want metric %s", i+1, lines[i+1], name)
		}
	}
	if lines[1] != "lifetime_tax,7200.00,18200.00,11000.00,152.78" {
		t.Fatalf("lifetime_tax row = %q", lines[1])
	}
}

func TestFormattersRejectEmptyReport(t *testing.T) {
	empty := &domain.Report{Name: "empty"}
	for _, f := range []Formatter{LedgerCSVFormatter{}, ComparisonCSVFormatter{}, ConsoleFormatter{}} {
		if _, err := f.Format(empty); !errors.Is(err, ErrNothingToRender) {
			t.Fatalf("%s: expected ErrNothingToRender, got %v", f.Name(), err)
		}
	}
	if _, err := (JSONFormatter{}).Format(empty); err != nil {
		t.Fatalf("json should render an empty report: %v", err)
	}
}

// Full snapshots refreshed with UPDATE_GOLDEN=1; missing files are written on first run.
func TestGoldenSnapshots(t *testing.T) {
	cases := []struct {
		golden    string
		formatter Formatter
	}{
		{"console.golden", ConsoleFormatter{}},
		{"ledger_csv.golden", LedgerCSVFormatter{}},
		{"comparison_csv.golden", ComparisonCSVFormatter{}},
		{"report_json.golden", JSONFormatter{}},
	}

	report := buildTestReport()
	update := os.Getenv("UPDATE_GOLDEN") == "1"
	for _, tc := range cases {
		t.Run(tc.golden, func(t *testing.T) {
			out, err := tc.formatter.Format(report)
			if err != nil {
				t.Fatalf("format error: %v", err)
			}
			checkGolden(t, filepath.Join("testdata", tc.golden), out, update)
		})
	}
}

func checkGolden(t *testing.T, path string, out []byte, update bool) {
	t.Helper()
	if _, err := os.Stat(path); update || errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, out, 0o644); err != nil {
			t.Fatalf("write golden: %v", err)
		}
		t.Logf("wrote %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	if string(out) != string(data) {
		t.Fatalf("%s changed; run UPDATE_GOLDEN=1 to accept\n--- have ---\n%s\n--- want ---\n%s",
			path, truncate(string(out), 400), truncate(string(data), 400))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func TestFormatterAliasResolution(t *testing.T) {
	tests := map[string]string{
		"table":          "console",
		"JSON-Pretty":    "json",
		"csv-ledger":     "csv",
		"csv-comparison": "comparison-csv",
		" csv ":          "csv",
	}
	for alias, want := range tests {
		f := GetFormatterByName(alias)
		if f == nil {
			t.Fatalf("alias %q did not resolve to a formatter", alias)
		}
		if f.Name() != want {
			t.Fatalf("alias %q resolved to %q, want %q", alias, f.Name(), want)
		}
	}
	if GetFormatterByName("html") != nil {
		t.Fatalf("html should not be registered")
	}
}

func TestUnknownFormatErrorIncludesSuggestions(t *testing.T) {
	err := WriteReport(&strings.Builder{}, &domain.Report{}, "definitely-not-a-format")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "unsupported report format") || !strings.Contains(msg, "Try one of:") {
		t.Fatalf("error message missing suggestions: %s", msg)
	}
}

func TestFormatterFunc(t *testing.T) {
	f := FormatterFunc{ID: "name-only", Ext: "txt", F: func(r *domain.Report) ([]byte, error) {
		return []byte(r.Name), nil
	}}
	out, err := f.Format(&domain.Report{Name: "x"})
	if err != nil || string(out) != "x" || f.Name() != "name-only" || f.Extension() != "txt" {
		t.Fatalf("FormatterFunc adapter broken: %q %v", out, err)
	}
}
