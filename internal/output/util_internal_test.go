package output

import (
	"reflect"
	"testing"

	"github.com/rpgo/retirement-cashflow/internal/domain"
	"github.com/shopspring/decimal"
)

func TestIntToString(t *testing.T) {
	if got, want := intToString(42), "42"; got != want {
		t.Errorf("intToString(42) = %q, want %q", got, want)
	}
}

func TestBoolToString(t *testing.T) {
	if got, want := boolToString(true), "true"; got != want {
		t.Errorf("boolToString(true) = %q, want %q", got, want)
	}
	if got, want := boolToString(false), "false"; got != want {
		t.Errorf("boolToString(false) = %q, want %q", got, want)
	}
}

func TestLedgerSets(t *testing.T) {
	rows := buildTestRows(false)
	cmp := &domain.ComparisonResult{BaselineRows: rows, ConversionRows: rows}

	tests := []struct {
		name   string
		report *domain.Report
		want   []string
	}{
		{"empty", &domain.Report{}, nil},
		{"projection", &domain.Report{Rows: rows}, []string{"projection"}},
		{"comparison", &domain.Report{Comparison: cmp}, []string{"baseline", "conversion"}},
		{"optimization", &domain.Report{Optimization: &domain.OptimizationResult{Comparison: cmp}}, []string{"baseline", "conversion"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, s := range ledgerSets(tt.report) {
				got = append(got, s.Label)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ledgerSets = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTypeKeys(t *testing.T) {
	rows := []domain.LedgerRow{
		{TypeBalances: map[string]decimal.Decimal{"roth": decimal.Zero}},
		{TypeBalances: map[string]decimal.Decimal{"qualified": decimal.Zero, "non_qualified": decimal.Zero}},
	}
	want := []string{"non_qualified", "qualified", "roth"}
	if got := typeKeys(rows); !reflect.DeepEqual(got, want) {
		t.Errorf("typeKeys = %v, want %v", got, want)
	}
}
