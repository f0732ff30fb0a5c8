package output

import (
	"bytes"
	"encoding/csv"

	"github.com/rpgo/retirement-cashflow/internal/domain"
	"github.com/shopspring/decimal"
)

// LedgerCSVFormatter writes one row per ledger year. Comparison reports carry
// both runs, distinguished by the Run column.
type LedgerCSVFormatter struct{}

func (c LedgerCSVFormatter) Name() string      { return "csv" }
func (c LedgerCSVFormatter) Extension() string { return "csv" }

var ledgerHeader = []string{
	"Run", "Year", "PrimaryAge", "SpouseAge", "FilingStatus", "Synthetic",
	"GrossIncome", "SSIncome", "TaxableSS", "TaxFreeIncome", "RMDTotal", "RothConversion",
	"AGI", "MAGI", "LookbackMAGI", "TaxableIncome", "FederalTax", "StateTax",
	"TaxBracket", "MarginalRate", "EffectiveRate",
	"MedicareBase", "IRMAASurcharge", "IRMAABracket", "TotalMedicare", "EffectiveMedicare", "HoldHarmlessAmount",
	"SSDecreaseAmount", "AfterTaxIncome", "NetIncome", "RemainingIncome", "CumulativeFederalTax",
}

func (c LedgerCSVFormatter) Format(report *domain.Report) ([]byte, error) {
	sets := ledgerSets(report)
	if len(sets) == 0 {
		return nil, ErrNothingToRender
	}
	var all []domain.LedgerRow
	for _, s := range sets {
		all = append(all, s.Rows...)
	}
	keys := typeKeys(all)

	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	header := append([]string(nil), ledgerHeader...)
	for _, k := range keys {
		header = append(header, k+domain.BalanceSuffix)
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, s := range sets {
		for _, r := range s.Rows {
			if err := w.Write(ledgerRecord(s.Label, r, keys)); err != nil {
				return nil, err
			}
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func ledgerRecord(label string, r domain.LedgerRow, keys []string) []string {
	spouseAge := ""
	if r.SpouseAge != nil {
		spouseAge = intToString(*r.SpouseAge)
	}
	fixed := func(d decimal.Decimal) string { return d.StringFixed(2) }
	row := []string{
		label,
		intToString(r.Year),
		intToString(r.PrimaryAge),
		spouseAge,
		string(r.FilingStatus),
		boolToString(r.IsSynthetic),
		fixed(r.GrossIncome),
		fixed(r.SSIncome),
		fixed(r.TaxableSS),
		fixed(r.TaxFreeIncome),
		fixed(r.RMDTotal),
		fixed(r.RothConversion),
		fixed(r.AGI),
		fixed(r.MAGI),
		fixed(r.LookbackMAGI),
		fixed(r.TaxableIncome),
		fixed(r.FederalTax),
		fixed(r.StateTax),
		r.TaxBracket,
		r.MarginalRate.String(),
		r.EffectiveRate.String(),
		fixed(r.MedicareBase),
		fixed(r.IRMAASurcharge),
		intToString(r.IRMAABracketNumber),
		fixed(r.TotalMedicare),
		fixed(r.EffectiveMedicare),
		fixed(r.HoldHarmlessAmount),
		fixed(r.SSDecreaseAmount),
		fixed(r.AfterTaxIncome),
		fixed(r.NetIncome),
		fixed(r.RemainingIncome),
		fixed(r.CumulativeFederalTax),
	}
	for _, k := range keys {
		row = append(row, fixed(r.TypeBalance(k)))
	}
	return row
}
