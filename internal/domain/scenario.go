package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/rpgo/retirement-cashflow/pkg/dateutil"
	"github.com/shopspring/decimal"
)

// FilingStatus is the federal filing status of the household
type FilingStatus string

const (
	FilingSingle            FilingStatus = "Single"
	FilingMarriedJointly    FilingStatus = "Married Filing Jointly"
	FilingMarriedSeparately FilingStatus = "Married Filing Separately"
	FilingHeadOfHousehold   FilingStatus = "Head of Household"
	FilingQualifyingWidow   FilingStatus = "Qualifying Widow(er)"
)

const (
	defaultRetirementAge = 65
	defaultMortalityAge  = 90
)

// FilingStatuses lists every recognized filing status.
var FilingStatuses = []FilingStatus{
	FilingSingle,
	FilingMarriedJointly,
	FilingMarriedSeparately,
	FilingHeadOfHousehold,
	FilingQualifyingWidow,
}

var filingAliases = map[string]FilingStatus{
	"single":                    FilingSingle,
	"s":                         FilingSingle,
	"married filing jointly":    FilingMarriedJointly,
	"married_filing_jointly":    FilingMarriedJointly,
	"mfj":                       FilingMarriedJointly,
	"married filing separately": FilingMarriedSeparately,
	"married_filing_separately": FilingMarriedSeparately,
	"mfs":                       FilingMarriedSeparately,
	"head of household":         FilingHeadOfHousehold,
	"head_of_household":         FilingHeadOfHousehold,
	"hoh":                       FilingHeadOfHousehold,
	"qualifying widow(er)":      FilingQualifyingWidow,
	"qualifying widow":          FilingQualifyingWidow,
	"qualifying_widow":          FilingQualifyingWidow,
	"qw":                        FilingQualifyingWidow,
}

// ParseFilingStatus resolves canonical names and common aliases.
func ParseFilingStatus(s string) (FilingStatus, error) {
	if fs, ok := filingAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return fs, nil
	}
	return "", invalidField("filing_status", "unknown filing status %q", s)
}

// IsValid reports whether fs is one of the recognized statuses.
func (fs FilingStatus) IsValid() bool {
	for _, known := range FilingStatuses {
		if fs == known {
			return true
		}
	}
	return false
}

// IsMarried reports joint or separate married filing.
func (fs FilingStatus) IsMarried() bool {
	return fs == FilingMarriedJointly || fs == FilingMarriedSeparately
}

// Owner identifies which household member owns an asset
type Owner string

const (
	OwnerPrimary Owner = "primary"
	OwnerSpouse  Owner = "spouse"
)

// AssetKind classifies an income source or account
type AssetKind string

const (
	KindQualified                  AssetKind = "Qualified"
	KindRoth                       AssetKind = "Roth"
	KindInheritedTraditionalSpouse AssetKind = "Inherited Traditional Spouse"
	KindInheritedTraditionalNon    AssetKind = "Inherited Traditional Non-Spouse"
	KindInheritedRothSpouse        AssetKind = "Inherited Roth Spouse"
	KindInheritedRothNon           AssetKind = "Inherited Roth Non-Spouse"
	KindSocialSecurity             AssetKind = "social_security"
	KindPension                    AssetKind = "pension"
	KindRentalIncome               AssetKind = "rental_income"
	KindWages                      AssetKind = "wages"
	KindNonQualified               AssetKind = "Non-Qualified"
	KindSavings                    AssetKind = "savings"
)

var kindAliases = map[string]AssetKind{
	"qualified":                        KindQualified,
	"traditional":                      KindQualified,
	"traditional_401k":                 KindQualified,
	"401k":                             KindQualified,
	"403b":                             KindQualified,
	"ira":                              KindQualified,
	"sep":                              KindQualified,
	"roth":                             KindRoth,
	"roth_ira":                         KindRoth,
	"inherited traditional spouse":     KindInheritedTraditionalSpouse,
	"inherited_traditional_spouse":     KindInheritedTraditionalSpouse,
	"inherited traditional non-spouse": KindInheritedTraditionalNon,
	"inherited_traditional_non_spouse": KindInheritedTraditionalNon,
	"inherited roth spouse":            KindInheritedRothSpouse,
	"inherited_roth_spouse":            KindInheritedRothSpouse,
	"inherited roth non-spouse":        KindInheritedRothNon,
	"inherited_roth_non_spouse":        KindInheritedRothNon,
	"social_security":                  KindSocialSecurity,
	"social security":                  KindSocialSecurity,
	"ss":                               KindSocialSecurity,
	"pension":                          KindPension,
	"rental_income":                    KindRentalIncome,
	"rental income":                    KindRentalIncome,
	"wages":                            KindWages,
	"non-qualified":                    KindNonQualified,
	"non_qualified":                    KindNonQualified,
	"brokerage":                        KindNonQualified,
	"savings":                          KindSavings,
}

// ParseAssetKind resolves an asset kind from its canonical name or an alias.
func ParseAssetKind(s string) (AssetKind, error) {
	if k, ok := kindAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return k, nil
	}
	return "", invalidField("kind", "unknown asset kind %q", s)
}

// IsTraditional reports pre-tax accounts eligible for Roth conversion.
func (k AssetKind) IsTraditional() bool {
	return k == KindQualified || k == KindInheritedTraditionalSpouse || k == KindInheritedTraditionalNon
}

// IsRothFamily reports accounts whose withdrawals are tax free.
func (k AssetKind) IsRothFamily() bool {
	return k == KindRoth || k == KindInheritedRothSpouse || k == KindInheritedRothNon
}

// RequiresRMD reports whether the kind is subject to required minimum distributions.
// An owner's own Roth is exempt for life.
func (k AssetKind) RequiresRMD() bool {
	switch k {
	case KindQualified, KindInheritedTraditionalSpouse, KindInheritedTraditionalNon,
		KindInheritedRothSpouse, KindInheritedRothNon:
		return true
	}
	return false
}

// IsInheritedNonSpouse reports inherited accounts subject to the 10-year or stretch rules.
func (k AssetKind) IsInheritedNonSpouse() bool {
	return k == KindInheritedTraditionalNon || k == KindInheritedRothNon
}

// IsInheritedSpouse reports inherited spousal accounts whose RMDs start immediately.
func (k AssetKind) IsInheritedSpouse() bool {
	return k == KindInheritedTraditionalSpouse || k == KindInheritedRothSpouse
}

// HoldsBalance reports whether the kind is an account with a balance (as opposed to a payment stream).
func (k AssetKind) HoldsBalance() bool {
	switch k {
	case KindSocialSecurity, KindPension, KindRentalIncome, KindWages:
		return false
	}
	return true
}

// BalanceKey is the snake_case type key used for the `<type>_balance` ledger fields.
func (k AssetKind) BalanceKey() string {
	r := strings.NewReplacer(" ", "_", "-", "_")
	return strings.ToLower(r.Replace(string(k)))
}

// Person is a household member.
type Person struct {
	Name          string    `yaml:"name" json:"name"`
	BirthDate     time.Time `yaml:"birth_date" json:"birth_date"`
	RetirementAge int       `yaml:"retirement_age" json:"retirement_age"`
	MortalityAge  int       `yaml:"mortality_age" json:"mortality_age"`
}

// BirthYear returns the calendar year of birth.
func (p Person) BirthYear() int { return p.BirthDate.Year() }

// AgeIn returns the projection age in year (year minus birth year).
func (p Person) AgeIn(year int) int { return dateutil.AgeInYear(p.BirthYear(), year) }

// RetirementYear returns the calendar year of retirement.
func (p Person) RetirementYear() int { return dateutil.YearAtAge(p.BirthYear(), p.RetirementAge) }

// MortalityYear is the last living calendar year.
func (p Person) MortalityYear() int { return dateutil.YearAtAge(p.BirthYear(), p.MortalityAge) }

// AliveIn reports whether the person is alive during year.
func (p Person) AliveIn(year int) bool {
	return dateutil.IsAliveInYear(p.BirthYear(), p.MortalityAge, year)
}

// Asset is one income source or account owned by a household member.
type Asset struct {
	ID                  string              `yaml:"id" json:"id"`
	Name                string              `yaml:"name" json:"name"`
	Kind                AssetKind           `yaml:"kind" json:"kind"`
	Owner               Owner               `yaml:"owner" json:"owner"`
	CurrentBalance      decimal.Decimal     `yaml:"current_balance" json:"current_balance"`
	MonthlyContribution decimal.Decimal     `yaml:"monthly_contribution" json:"monthly_contribution"`
	MonthlyAmount       decimal.Decimal     `yaml:"monthly_amount" json:"monthly_amount"` // withdrawal or benefit
	RateOfReturn        decimal.Decimal     `yaml:"rate_of_return" json:"rate_of_return"` // 0.07 or 7.0
	COLA                decimal.Decimal     `yaml:"cola" json:"cola"`
	WithdrawalStartAge  int                 `yaml:"withdrawal_start_age" json:"withdrawal_start_age"`
	WithdrawalEndAge    int                 `yaml:"withdrawal_end_age" json:"withdrawal_end_age"`
	MaxToConvert        decimal.NullDecimal `yaml:"max_to_convert,omitempty" json:"max_to_convert,omitempty"`
	InheritanceYear     int                 `yaml:"inheritance_year,omitempty" json:"inheritance_year,omitempty"`
}

// SSReductionDirection is the sign of a programmatic SS adjustment
type SSReductionDirection string

const (
	SSDecrease SSReductionDirection = "decrease"
	SSIncrease SSReductionDirection = "increase"
)

// SSAmountType says how the SS adjustment amount is expressed
type SSAmountType string

const (
	SSAmountPercentage  SSAmountType = "percentage"
	SSAmountFlatMonthly SSAmountType = "flat_monthly"
)

// SSReduction is the optional programmatic Social Security adjustment (e.g. a 2030 trust fund shortfall).
type SSReduction struct {
	Enabled     bool                 `yaml:"enabled" json:"enabled"`
	TriggerYear int                  `yaml:"trigger_year" json:"trigger_year"`
	Direction   SSReductionDirection `yaml:"direction" json:"direction"`
	AmountType  SSAmountType         `yaml:"amount_type" json:"amount_type"`
	Amount      decimal.Decimal      `yaml:"amount" json:"amount"`
}

// RothConversion configures the conversion window applied by the engine.
type RothConversion struct {
	StartYear     int             `yaml:"start_year" json:"start_year"`
	DurationYears int             `yaml:"duration_years" json:"duration_years"`
	AnnualAmount  decimal.Decimal `yaml:"annual_amount" json:"annual_amount"`

	// Optional payout from the converted Roth
	WithdrawalAmount    decimal.Decimal `yaml:"roth_withdrawal_amount,omitempty" json:"roth_withdrawal_amount,omitempty"`
	WithdrawalStartYear int             `yaml:"roth_withdrawal_start_year,omitempty" json:"roth_withdrawal_start_year,omitempty"`
}

// Active reports whether the block converts anything.
func (rc RothConversion) Active() bool {
	return rc.StartYear > 0 && rc.DurationYears > 0 && rc.AnnualAmount.IsPositive()
}

// InWindow reports whether year falls within [start, start+duration).
func (rc RothConversion) InWindow(year int) bool {
	return rc.Active() && year >= rc.StartYear && year < rc.StartYear+rc.DurationYears
}

// EndYear is the first year after the window.
func (rc RothConversion) EndYear() int { return rc.StartYear + rc.DurationYears }

// Scenario is the frozen input bundle for one projection run.
type Scenario struct {
	Name                   string          `yaml:"name" json:"name"`
	Primary                Person          `yaml:"primary" json:"primary"`
	Spouse                 *Person         `yaml:"spouse,omitempty" json:"spouse,omitempty"`
	FilingStatus           FilingStatus    `yaml:"filing_status" json:"filing_status"`
	State                  string          `yaml:"state" json:"state"`
	PartBInflationRate     decimal.Decimal `yaml:"part_b_inflation_rate" json:"part_b_inflation_rate"`
	PartDInflationRate     decimal.Decimal `yaml:"part_d_inflation_rate" json:"part_d_inflation_rate"`
	ApplyStandardDeduction bool            `yaml:"apply_standard_deduction" json:"apply_standard_deduction"`
	TaxExemptInterest      decimal.Decimal `yaml:"tax_exempt_interest" json:"tax_exempt_interest"`
	PreRetirementIncome    decimal.Decimal `yaml:"pre_retirement_income" json:"pre_retirement_income"`
	SSReduction            SSReduction     `yaml:"ss_reduction" json:"ss_reduction"`
	RothConversion         RothConversion  `yaml:"roth_conversion" json:"roth_conversion"`
	// CurrentYear pins the as-of year; zero means the engine clock decides.
	CurrentYear int `yaml:"current_year,omitempty" json:"current_year,omitempty"`
	// StartYear pins the first ledger year; zero derives it from retirement,
	// the conversion window and CurrentYear.
	StartYear int     `yaml:"start_year,omitempty" json:"start_year,omitempty"`
	Assets    []Asset `yaml:"assets" json:"assets"`
}

// ApplyDefaults fills retirement and mortality ages left at zero.
func (s *Scenario) ApplyDefaults() {
	if s.Primary.RetirementAge == 0 {
		s.Primary.RetirementAge = defaultRetirementAge
	}
	if s.Primary.MortalityAge == 0 {
		s.Primary.MortalityAge = defaultMortalityAge
	}
	if s.Spouse != nil {
		if s.Spouse.RetirementAge == 0 {
			s.Spouse.RetirementAge = s.Primary.RetirementAge
		}
		if s.Spouse.MortalityAge == 0 {
			s.Spouse.MortalityAge = s.Primary.MortalityAge
		}
	}
}

// Clone returns a deep copy; the assets slice and spouse pointer are not shared.
func (s *Scenario) Clone() *Scenario {
	c := *s
	if s.Spouse != nil {
		sp := *s.Spouse
		c.Spouse = &sp
	}
	c.Assets = append([]Asset(nil), s.Assets...)
	return &c
}

// PersonFor returns the owner's record, or nil when the owner is an absent spouse.
func (s *Scenario) PersonFor(o Owner) *Person {
	if o == OwnerSpouse {
		return s.Spouse
	}
	return &s.Primary
}

// EarliestRetirementYear is the first retirement year in the household.
func (s *Scenario) EarliestRetirementYear() int {
	y := s.Primary.RetirementYear()
	if s.Spouse != nil && s.Spouse.RetirementYear() < y {
		y = s.Spouse.RetirementYear()
	}
	return y
}

// LastMortalityYear is the last year in which anyone in the household is alive.
func (s *Scenario) LastMortalityYear() int {
	y := s.Primary.MortalityYear()
	if s.Spouse != nil && s.Spouse.MortalityYear() > y {
		y = s.Spouse.MortalityYear()
	}
	return y
}

// String identifies the scenario in logs.
func (s *Scenario) String() string {
	return fmt.Sprintf("%s (%s, %d assets)", s.Name, s.FilingStatus, len(s.Assets))
}
