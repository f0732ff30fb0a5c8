package output

import (
	"bytes"
	"encoding/csv"

	"github.com/rpgo/retirement-cashflow/internal/domain"
)

// ComparisonCSVFormatter writes one row per comparison metric.
type ComparisonCSVFormatter struct{}

func (c ComparisonCSVFormatter) Name() string      { return "comparison-csv" }
func (c ComparisonCSVFormatter) Extension() string { return "csv" }

func (c ComparisonCSVFormatter) Format(report *domain.Report) ([]byte, error) {
	cmp := comparisonOf(report)
	if cmp == nil {
		return nil, ErrNothingToRender
	}
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	if err := w.Write([]string{"Metric", "Baseline", "Conversion", "Difference", "PercentChange"}); err != nil {
		return nil, err
	}
	for _, name := range domain.MetricNames {
		m, ok := cmp.Metrics.Comparison[name]
		if !ok {
			continue
		}
		row := []string{
			name,
			m.Baseline.StringFixed(2),
			m.Conversion.StringFixed(2),
			m.Difference.StringFixed(2),
			m.PercentChange.StringFixed(2),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
