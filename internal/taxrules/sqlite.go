package taxrules

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rpgo/retirement-cashflow/internal/domain"

	_ "modernc.org/sqlite" // register sqlite driver
)

// Amounts are stored as TEXT so decimals survive the round trip exactly.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS federal_brackets (
	year          INTEGER NOT NULL,
	filing_status TEXT NOT NULL,
	bracket_min   TEXT NOT NULL,
	bracket_max   TEXT,
	rate          TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS standard_deductions (
	year          INTEGER NOT NULL,
	filing_status TEXT NOT NULL,
	amount        TEXT NOT NULL,
	PRIMARY KEY (year, filing_status)
);
CREATE TABLE IF NOT EXISTS irmaa (
	year                     INTEGER NOT NULL,
	filing_status            TEXT NOT NULL,
	bracket_number           INTEGER NOT NULL,
	magi_threshold           TEXT NOT NULL,
	part_b_surcharge_monthly TEXT NOT NULL,
	part_d_surcharge_monthly TEXT NOT NULL,
	PRIMARY KEY (year, filing_status, bracket_number)
);
CREATE TABLE IF NOT EXISTS medicare_base (
	year                     INTEGER PRIMARY KEY,
	part_b_monthly           TEXT NOT NULL,
	part_d_monthly           TEXT NOT NULL,
	threshold_inflation_rate TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS ss_thresholds (
	filing_status TEXT PRIMARY KEY,
	base          TEXT NOT NULL,
	additional    TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS state_tax (
	state_code               TEXT PRIMARY KEY,
	state_name               TEXT NOT NULL,
	income_tax_rate          TEXT NOT NULL,
	retirement_income_exempt INTEGER NOT NULL,
	ss_taxed                 INTEGER NOT NULL
);
`

// OpenSQLite opens (or creates) a rule database and ensures the schema exists.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening rule db: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return db, nil
}

// SeedSQLite writes every table of store into db, replacing existing rows.
func SeedSQLite(ctx context.Context, db *sql.DB, store *Store) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"federal_brackets", "standard_deductions", "irmaa", "medicare_base", "ss_thresholds", "state_tax"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	for _, year := range store.Years() {
		r := store.years[year]
		for status, brackets := range r.Brackets {
			for _, b := range brackets {
				var top any
				if b.Max.Valid {
					top = b.Max.Decimal.String()
				}
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO federal_brackets (year, filing_status, bracket_min, bracket_max, rate) VALUES (?, ?, ?, ?, ?)`,
					year, string(status), b.Min.String(), top, b.Rate.String()); err != nil {
					return fmt.Errorf("inserting bracket: %w", err)
				}
			}
		}
		for status, amount := range r.StandardDeductions {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO standard_deductions (year, filing_status, amount) VALUES (?, ?, ?)`,
				year, string(status), amount.String()); err != nil {
				return fmt.Errorf("inserting deduction: %w", err)
			}
		}
		for status, tiers := range r.IRMAA {
			for _, t := range tiers {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO irmaa (year, filing_status, bracket_number, magi_threshold, part_b_surcharge_monthly, part_d_surcharge_monthly)
					 VALUES (?, ?, ?, ?, ?, ?)`,
					year, string(status), t.Number, t.Threshold.String(), t.PartB.String(), t.PartD.String()); err != nil {
					return fmt.Errorf("inserting irmaa tier: %w", err)
				}
			}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO medicare_base (year, part_b_monthly, part_d_monthly, threshold_inflation_rate) VALUES (?, ?, ?, ?)`,
			year, r.Medicare.PartB.String(), r.Medicare.PartD.String(), r.Medicare.ThresholdInflation.String()); err != nil {
			return fmt.Errorf("inserting medicare base: %w", err)
		}
	}

	for status, t := range store.ssThresholds {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ss_thresholds (filing_status, base, additional) VALUES (?, ?, ?)`,
			string(status), t.Base.String(), t.Additional.String()); err != nil {
			return fmt.Errorf("inserting ss thresholds: %w", err)
		}
	}
	for _, st := range store.states {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO state_tax (state_code, state_name, income_tax_rate, retirement_income_exempt, ss_taxed) VALUES (?, ?, ?, ?, ?)`,
			st.Code, st.Name, st.Rate.String(), boolInt(st.RetirementIncomeExempt), boolInt(st.SSTaxed)); err != nil {
			return fmt.Errorf("inserting state: %w", err)
		}
	}
	return tx.Commit()
}

// LoadSQLite builds a store from the rule tables in db.
func LoadSQLite(ctx context.Context, db *sql.DB) (*Store, error) {
	s := newStore()

	queries := []struct {
		name string
		sql  string
		cols []string
		fn   func(record) error
	}{
		{"federal_brackets", `SELECT year, filing_status, bracket_min, COALESCE(bracket_max, ''), rate FROM federal_brackets`,
			[]string{"year", "filing_status", "bracket_min", "bracket_max", "rate"}, s.addBracket},
		{"standard_deductions", `SELECT year, filing_status, amount FROM standard_deductions`,
			[]string{"year", "filing_status", "amount"}, s.addDeduction},
		{"irmaa", `SELECT year, filing_status, bracket_number, magi_threshold, part_b_surcharge_monthly, part_d_surcharge_monthly FROM irmaa`,
			[]string{"year", "filing_status", "bracket_number", "magi_threshold", "part_b_surcharge_monthly", "part_d_surcharge_monthly"}, s.addIRMAATier},
		{"medicare_base", `SELECT year, part_b_monthly, part_d_monthly, threshold_inflation_rate FROM medicare_base`,
			[]string{"year", "part_b_monthly", "part_d_monthly", "threshold_inflation_rate"}, s.addMedicare},
		{"ss_thresholds", `SELECT filing_status, base, additional FROM ss_thresholds`,
			[]string{"filing_status", "base", "additional"}, s.addSSThreshold},
		{"state_tax", `SELECT state_code, state_name, income_tax_rate,
				CASE retirement_income_exempt WHEN 0 THEN 'false' ELSE 'true' END,
				CASE ss_taxed WHEN 0 THEN 'false' ELSE 'true' END FROM state_tax`,
			[]string{"state_code", "state_name", "income_tax_rate", "retirement_income_exempt", "ss_taxed"}, s.addState},
	}

	for _, q := range queries {
		if err := scanTable(ctx, db, q.sql, q.cols, q.fn); err != nil {
			return nil, fmt.Errorf("loading %s: %w", q.name, err)
		}
	}
	if err := s.finalize(); err != nil {
		return nil, err
	}
	return s, nil
}

// scanTable reads every column as text and hands each row to fn as a record.
func scanTable(ctx context.Context, db *sql.DB, query string, cols []string, fn func(record) error) error {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMissingRuleData, err)
	}
	defer func() { _ = rows.Close() }()

	values := make([]sql.NullString, len(cols))
	dest := make([]any, len(cols))
	for i := range values {
		dest[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return err
		}
		rec := make(record, len(cols))
		for i, c := range cols {
			rec[c] = values[i].String
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
