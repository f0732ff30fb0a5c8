package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/rpgo/retirement-cashflow/internal/domain"
)

// newRunID is replaceable in tests.
var newRunID = uuid.NewString

// NewReport creates an empty report stamped with a fresh run id.
func NewReport(name string) *domain.Report {
	return &domain.Report{Name: name, RunID: newRunID()}
}

// NewProjectionReport wraps a single ledger.
func NewProjectionReport(name string, rows []domain.LedgerRow) *domain.Report {
	r := NewReport(name)
	r.Rows = rows
	return r
}

// NewComparisonReport wraps a comparator result.
func NewComparisonReport(name string, c *domain.ComparisonResult) *domain.Report {
	r := NewReport(name)
	r.Comparison = c
	return r
}

// NewOptimizationReport wraps an optimizer result.
func NewOptimizationReport(name string, o *domain.OptimizationResult) *domain.Report {
	r := NewReport(name)
	r.Optimization = o
	return r
}

func resolveFormatter(format string) (Formatter, error) {
	if f := GetFormatterByName(format); f != nil {
		return f, nil
	}
	// enrich error with available formatters and aliases
	return nil, fmt.Errorf("%w: %q. Try one of: %s (aliases: %s)", ErrUnsupportedFormat, format,
		strings.Join(AvailableFormatterNames(), ", "), strings.Join(AvailableFormatAliases(), ", "))
}

// WriteReport renders the report to w.
func WriteReport(w io.Writer, report *domain.Report, format string) error {
	f, err := resolveFormatter(format)
	if err != nil {
		return err
	}
	data, err := f.Format(report)
	if err != nil {
		return fmt.Errorf("%s formatter: %w", f.Name(), err)
	}
	_, err = w.Write(data)
	return err
}

// GenerateReport renders the report into dir and returns the file path. The
// file name carries the report name and the first block of its run id.
func GenerateReport(report *domain.Report, format, dir string) (string, error) {
	f, err := resolveFormatter(format)
	if err != nil {
		return "", err
	}
	data, err := f.Format(report)
	if err != nil {
		return "", fmt.Errorf("%s formatter: %w", f.Name(), err)
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	path := filepath.Join(dir, ReportFilename(report, f))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

var unsafeChars = regexp.MustCompile(`[^a-z0-9]+`)

// ReportFilename builds `<name>_<formatter>_<run>.<ext>`.
func ReportFilename(report *domain.Report, f Formatter) string {
	name := strings.Trim(unsafeChars.ReplaceAllString(strings.ToLower(report.Name), "_"), "_")
	if name == "" {
		name = "cashflow"
	}
	run := report.RunID
	if i := strings.IndexByte(run, '-'); i > 0 {
		run = run[:i]
	}
	if run == "" {
		run = "norun"
	}
	return fmt.Sprintf("%s_%s_%s.%s", name, strings.ReplaceAll(f.Name(), "-", "_"), run, f.Extension())
}
