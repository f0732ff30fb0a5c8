// Package taxrules is the immutable tax rule store: federal brackets,
// standard deductions, IRMAA tiers, Medicare base premiums, Social Security
// taxability thresholds and state tax parameters, keyed by tax year.
package taxrules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rpgo/retirement-cashflow/internal/domain"
	"github.com/rpgo/retirement-cashflow/internal/logging"
	"github.com/rpgo/retirement-cashflow/pkg/money"
	"github.com/shopspring/decimal"
)

// Bracket is one federal income tax bracket. An invalid Max means unbounded.
type Bracket struct {
	Min  decimal.Decimal
	Max  decimal.NullDecimal
	Rate decimal.Decimal
}

// IRMAATier is one Medicare income-related surcharge tier. Surcharges are monthly, per person.
type IRMAATier struct {
	Number    int
	Threshold decimal.Decimal
	PartB     decimal.Decimal
	PartD     decimal.Decimal
}

// MedicareRates are the monthly base premiums for a reference year.
type MedicareRates struct {
	PartB              decimal.Decimal
	PartD              decimal.Decimal
	ThresholdInflation decimal.Decimal
}

// SSThresholds are the provisional-income thresholds for benefit taxation.
type SSThresholds struct {
	Base       decimal.Decimal
	Additional decimal.Decimal
}

// StateTax describes a state's treatment of retirement income.
type StateTax struct {
	Code                   string
	Name                   string
	Rate                   decimal.Decimal
	RetirementIncomeExempt bool
	SSTaxed                bool
}

// TaxResult is the outcome of a federal bracket walk.
type TaxResult struct {
	Tax          decimal.Decimal
	Bracket      string
	MarginalRate decimal.Decimal
}

// YearRules are the rules for one tax year.
type YearRules struct {
	Year               int
	Brackets           map[domain.FilingStatus][]Bracket
	StandardDeductions map[domain.FilingStatus]decimal.Decimal
	IRMAA              map[domain.FilingStatus][]IRMAATier
	Medicare           MedicareRates

	store  *Store
	logger logging.Logger
}

// Store holds every loaded tax year. It is never mutated after loading and
// may be shared across goroutines.
type Store struct {
	years        map[int]*YearRules
	ssThresholds map[domain.FilingStatus]SSThresholds
	states       map[string]StateTax
}

func newStore() *Store {
	return &Store{
		years:        make(map[int]*YearRules),
		ssThresholds: make(map[domain.FilingStatus]SSThresholds),
		states:       make(map[string]StateTax),
	}
}

func (s *Store) year(y int) *YearRules {
	r, ok := s.years[y]
	if !ok {
		r = &YearRules{
			Year:               y,
			Brackets:           make(map[domain.FilingStatus][]Bracket),
			StandardDeductions: make(map[domain.FilingStatus]decimal.Decimal),
			IRMAA:              make(map[domain.FilingStatus][]IRMAATier),
			store:              s,
		}
		s.years[y] = r
	}
	return r
}

// finalize sorts tables and checks that every year can serve a Single filer.
func (s *Store) finalize() error {
	if len(s.years) == 0 {
		return fmt.Errorf("%w: no tax years loaded", domain.ErrMissingRuleData)
	}
	for y, r := range s.years {
		for _, b := range r.Brackets {
			sort.Slice(b, func(i, j int) bool { return b[i].Min.LessThan(b[j].Min) })
		}
		for _, t := range r.IRMAA {
			sort.Slice(t, func(i, j int) bool { return t[i].Threshold.LessThan(t[j].Threshold) })
		}
		if len(r.Brackets[domain.FilingSingle]) == 0 {
			return fmt.Errorf("%w: %d has no Single brackets", domain.ErrMissingRuleData, y)
		}
		if _, ok := r.StandardDeductions[domain.FilingSingle]; !ok {
			return fmt.Errorf("%w: %d has no Single standard deduction", domain.ErrMissingRuleData, y)
		}
		if len(r.IRMAA[domain.FilingSingle]) == 0 {
			return fmt.Errorf("%w: %d has no Single IRMAA tiers", domain.ErrMissingRuleData, y)
		}
		if r.Medicare.PartB.IsZero() {
			return fmt.Errorf("%w: %d has no Medicare base rates", domain.ErrMissingRuleData, y)
		}
	}
	return nil
}

// ForYear returns the rules for a tax year.
func (s *Store) ForYear(year int) (*YearRules, error) {
	r, ok := s.years[year]
	if !ok {
		return nil, fmt.Errorf("%w: no rules for tax year %d", domain.ErrMissingRuleData, year)
	}
	return r, nil
}

// Years lists the loaded tax years in ascending order.
func (s *Store) Years() []int {
	years := make([]int, 0, len(s.years))
	for y := range s.years {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// LatestYear is the most recent loaded tax year, the default reference year.
func (s *Store) LatestYear() int {
	years := s.Years()
	return years[len(years)-1]
}

// SSThresholds returns the provisional-income thresholds. MFS is {0, 0};
// an unknown status falls back to Single.
func (s *Store) SSThresholds(fs domain.FilingStatus) SSThresholds {
	if t, ok := s.ssThresholds[fs]; ok {
		return t
	}
	if t, ok := s.ssThresholds[domain.FilingSingle]; ok {
		return t
	}
	return SSThresholds{Base: decimal.NewFromInt(25000), Additional: decimal.NewFromInt(34000)}
}

// StateTaxInfo returns a state's tax parameters. Unknown states have no income tax.
func (s *Store) StateTaxInfo(code string) StateTax {
	code = strings.ToUpper(strings.TrimSpace(code))
	if st, ok := s.states[code]; ok {
		return st
	}
	return StateTax{Code: code, Name: "Unknown", Rate: decimal.Zero, RetirementIncomeExempt: true}
}

// States lists the known state codes.
func (s *Store) States() []string {
	codes := make([]string, 0, len(s.states))
	for c := range s.states {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// WithLogger returns a copy of the year rules that reports fallbacks to l.
func (r *YearRules) WithLogger(l logging.Logger) *YearRules {
	c := *r
	c.logger = l
	return &c
}

func (r *YearRules) warnf(format string, args ...any) {
	logging.OrNop(r.logger).Warnf(format, args...)
}

func (r *YearRules) status(fs domain.FilingStatus, present bool) domain.FilingStatus {
	if present {
		return fs
	}
	r.warnf("unknown filing status %q for %d rules, using Single", fs, r.Year)
	return domain.FilingSingle
}

func (r *YearRules) brackets(fs domain.FilingStatus) []Bracket {
	_, ok := r.Brackets[fs]
	return r.Brackets[r.status(fs, ok)]
}

// FederalTax walks the brackets ascending. The label is the marginal rate of
// the bracket holding the last dollar, "0%" when there is no taxable income.
func (r *YearRules) FederalTax(taxable decimal.Decimal, fs domain.FilingStatus) TaxResult {
	res := TaxResult{Tax: decimal.Zero, Bracket: "0%", MarginalRate: decimal.Zero}
	if !taxable.IsPositive() {
		return res
	}
	for _, b := range r.brackets(fs) {
		if taxable.LessThanOrEqual(b.Min) {
			break
		}
		top := taxable
		if b.Max.Valid && b.Max.Decimal.LessThan(taxable) {
			top = b.Max.Decimal
		}
		res.Tax = res.Tax.Add(top.Sub(b.Min).Mul(b.Rate))
		res.MarginalRate = b.Rate
		if b.Max.Valid && taxable.LessThanOrEqual(b.Max.Decimal) {
			break
		}
	}
	res.Bracket = res.MarginalRate.Mul(decimal.NewFromInt(100)).StringFixed(0) + "%"
	return res
}

// StandardDeduction returns the deduction for a filing status.
func (r *YearRules) StandardDeduction(fs domain.FilingStatus) decimal.Decimal {
	_, ok := r.StandardDeductions[fs]
	return r.StandardDeductions[r.status(fs, ok)]
}

// MedicareBaseRates returns the monthly Part B and Part D base premiums.
func (r *YearRules) MedicareBaseRates() MedicareRates { return r.Medicare }

// SSThresholds delegates to the owning store.
func (r *YearRules) SSThresholds(fs domain.FilingStatus) SSThresholds {
	return r.store.SSThresholds(fs)
}

// StateTaxInfo delegates to the owning store.
func (r *YearRules) StateTaxInfo(code string) StateTax {
	return r.store.StateTaxInfo(code)
}

// IRMAAThresholdsInflated returns the tiers with thresholds inflated from the
// reference year to target. Surcharges are left at reference-year values.
func (r *YearRules) IRMAAThresholdsInflated(fs domain.FilingStatus, target int) []IRMAATier {
	_, ok := r.IRMAA[fs]
	tiers := r.IRMAA[r.status(fs, ok)]
	factor := money.Compound(r.Medicare.ThresholdInflation, target-r.Year)
	out := make([]IRMAATier, len(tiers))
	for i, tier := range tiers {
		tier.Threshold = tier.Threshold.Mul(factor)
		out[i] = tier
	}
	return out
}

// CalculateIRMAA picks the highest tier whose inflated threshold is at or
// below magi. Tier 0 carries no surcharge.
func (r *YearRules) CalculateIRMAA(magi decimal.Decimal, fs domain.FilingStatus, target int) IRMAATier {
	tiers := r.IRMAAThresholdsInflated(fs, target)
	selected := IRMAATier{Threshold: decimal.Zero, PartB: decimal.Zero, PartD: decimal.Zero}
	for _, tier := range tiers {
		if tier.Threshold.GreaterThan(magi) {
			break
		}
		selected = tier
	}
	return selected
}
