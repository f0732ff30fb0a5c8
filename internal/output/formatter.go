// Package output renders projection, comparison and optimization reports.
package output

import (
	"errors"
	"sort"
	"strings"

	"github.com/rpgo/retirement-cashflow/internal/domain"
)

var (
	// ErrUnsupportedFormat is returned for unknown formatter names.
	ErrUnsupportedFormat = errors.New("unsupported report format")
	// ErrNothingToRender is returned when a report lacks the section a formatter needs.
	ErrNothingToRender = errors.New("report has nothing to render for this format")
)

// Formatter defines a pluggable output formatter that returns a byte slice.
// Implementations should be pure (no side effects besides deterministic formatting).
type Formatter interface {
	Format(report *domain.Report) ([]byte, error)
	// Name returns a short identifier for logging / debugging.
	Name() string
	// Extension is the file extension used when the output is written to disk.
	Extension() string
}

// FormatterFunc adapter to allow ordinary functions to act as a Formatter.
type FormatterFunc struct {
	ID  string
	Ext string
	F   func(*domain.Report) ([]byte, error)
}

func (ff FormatterFunc) Format(r *domain.Report) ([]byte, error) { return ff.F(r) }
func (ff FormatterFunc) Name() string                            { return ff.ID }
func (ff FormatterFunc) Extension() string                       { return ff.Ext }

// builtInFormatters stores available formatters.
var builtInFormatters = []Formatter{
	JSONFormatter{},
	LedgerCSVFormatter{},
	ComparisonCSVFormatter{},
	ConsoleFormatter{},
}

// GetFormatterByName fetches a registered formatter.
func GetFormatterByName(name string) Formatter {
	n := NormalizeFormatName(name)
	for _, f := range builtInFormatters {
		if f.Name() == n {
			return f
		}
	}
	return nil
}

// aliasMap provides user-friendly synonyms for format names.
var aliasMap = map[string]string{
	"json-pretty":    "json",
	"csv-ledger":     "csv",
	"ledger":         "csv",
	"csv-comparison": "comparison-csv",
	"metrics":        "comparison-csv",
	"table":          "console",
	"console-lite":   "console",
}

// NormalizeFormatName lowers and resolves aliases.
func NormalizeFormatName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if mapped, ok := aliasMap[n]; ok {
		return mapped
	}
	return n
}

// AvailableFormatterNames returns the canonical formatter names.
func AvailableFormatterNames() []string {
	names := make([]string, 0, len(builtInFormatters))
	for _, f := range builtInFormatters {
		names = append(names, f.Name())
	}
	sort.Strings(names)
	return names
}

// AvailableFormatAliases returns the supported alias keys.
func AvailableFormatAliases() []string {
	keys := make([]string, 0, len(aliasMap))
	for k := range aliasMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
