package taxrules

import (
	"embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"
	"sync"

	"github.com/rpgo/retirement-cashflow/internal/domain"
	"github.com/shopspring/decimal"
)

// Table file names inside a rule directory.
const (
	BracketsFile    = "federal_brackets.csv"
	DeductionsFile  = "standard_deductions.csv"
	IRMAAFile       = "irmaa.csv"
	MedicareFile    = "medicare_base.csv"
	SSThresholdFile = "ss_thresholds.csv"
	StateTaxFile    = "state_tax.csv"
)

//go:embed data/*.csv
var embedded embed.FS

// Default returns the process-wide store built from the embedded data on
// first use. The store is immutable and safe to share.
var Default = sync.OnceValues(func() (*Store, error) {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, err
	}
	return LoadFS(sub)
})

type record map[string]string

func (r record) decimal(col string) (decimal.Decimal, error) {
	v := strings.TrimSpace(r[col])
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("column %s: %w", col, err)
	}
	return d, nil
}

func (r record) int(col string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(r[col]))
	if err != nil {
		return 0, fmt.Errorf("column %s: %w", col, err)
	}
	return n, nil
}

func (r record) bool(col string) (bool, error) {
	b, err := strconv.ParseBool(strings.TrimSpace(r[col]))
	if err != nil {
		return false, fmt.Errorf("column %s: %w", col, err)
	}
	return b, nil
}

func (r record) status() (domain.FilingStatus, error) {
	return domain.ParseFilingStatus(r["filing_status"])
}

// readTable reads a headed CSV file into records keyed by column name.
func readTable(fsys fs.FS, name string) ([]record, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrMissingRuleData, name, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: reading header: %w", name, err)
	}

	var out []record
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		rec := make(record, len(header))
		for i, col := range header {
			if i < len(row) {
				rec[strings.TrimSpace(col)] = row[i]
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

// LoadFS loads the six rule tables from fsys.
func LoadFS(fsys fs.FS) (*Store, error) {
	s := newStore()
	loaders := []struct {
		file string
		fn   func(record) error
	}{
		{BracketsFile, s.addBracket},
		{DeductionsFile, s.addDeduction},
		{IRMAAFile, s.addIRMAATier},
		{MedicareFile, s.addMedicare},
		{SSThresholdFile, s.addSSThreshold},
		{StateTaxFile, s.addState},
	}
	for _, l := range loaders {
		records, err := readTable(fsys, l.file)
		if err != nil {
			return nil, err
		}
		for i, rec := range records {
			if err := l.fn(rec); err != nil {
				return nil, fmt.Errorf("%s row %d: %w", l.file, i+2, err)
			}
		}
	}
	if err := s.finalize(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) addBracket(r record) error {
	year, err := r.int("year")
	if err != nil {
		return err
	}
	status, err := r.status()
	if err != nil {
		return err
	}
	b := Bracket{}
	if b.Min, err = r.decimal("bracket_min"); err != nil {
		return err
	}
	if b.Rate, err = r.decimal("rate"); err != nil {
		return err
	}
	if strings.TrimSpace(r["bracket_max"]) != "" {
		top, err := r.decimal("bracket_max")
		if err != nil {
			return err
		}
		b.Max = decimal.NewNullDecimal(top)
	}
	y := s.year(year)
	y.Brackets[status] = append(y.Brackets[status], b)
	return nil
}

func (s *Store) addDeduction(r record) error {
	year, err := r.int("year")
	if err != nil {
		return err
	}
	status, err := r.status()
	if err != nil {
		return err
	}
	amount, err := r.decimal("amount")
	if err != nil {
		return err
	}
	s.year(year).StandardDeductions[status] = amount
	return nil
}

func (s *Store) addIRMAATier(r record) error {
	year, err := r.int("year")
	if err != nil {
		return err
	}
	status, err := r.status()
	if err != nil {
		return err
	}
	t := IRMAATier{}
	if t.Number, err = r.int("bracket_number"); err != nil {
		return err
	}
	if t.Threshold, err = r.decimal("magi_threshold"); err != nil {
		return err
	}
	if t.PartB, err = r.decimal("part_b_surcharge_monthly"); err != nil {
		return err
	}
	if t.PartD, err = r.decimal("part_d_surcharge_monthly"); err != nil {
		return err
	}
	y := s.year(year)
	y.IRMAA[status] = append(y.IRMAA[status], t)
	return nil
}

func (s *Store) addMedicare(r record) error {
	year, err := r.int("year")
	if err != nil {
		return err
	}
	m := MedicareRates{}
	if m.PartB, err = r.decimal("part_b_monthly"); err != nil {
		return err
	}
	if m.PartD, err = r.decimal("part_d_monthly"); err != nil {
		return err
	}
	if m.ThresholdInflation, err = r.decimal("threshold_inflation_rate"); err != nil {
		return err
	}
	s.year(year).Medicare = m
	return nil
}

func (s *Store) addSSThreshold(r record) error {
	status, err := r.status()
	if err != nil {
		return err
	}
	t := SSThresholds{}
	if t.Base, err = r.decimal("base"); err != nil {
		return err
	}
	if t.Additional, err = r.decimal("additional"); err != nil {
		return err
	}
	s.ssThresholds[status] = t
	return nil
}

func (s *Store) addState(r record) error {
	st := StateTax{
		Code: strings.ToUpper(strings.TrimSpace(r["state_code"])),
		Name: strings.TrimSpace(r["state_name"]),
	}
	if st.Code == "" {
		return errors.New("state_code is required")
	}
	var err error
	if st.Rate, err = r.decimal("income_tax_rate"); err != nil {
		return err
	}
	if st.RetirementIncomeExempt, err = r.bool("retirement_income_exempt"); err != nil {
		return err
	}
	if st.SSTaxed, err = r.bool("ss_taxed"); err != nil {
		return err
	}
	s.states[st.Code] = st
	return nil
}
