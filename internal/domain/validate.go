package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Validate checks a scenario before a run. Every failure is a *FieldError
// wrapping ErrInvalidInput or ErrInconsistentScenario.
func (s *Scenario) Validate() error {
	if err := validatePerson("primary", &s.Primary); err != nil {
		return err
	}
	if s.Spouse != nil {
		if err := validatePerson("spouse", s.Spouse); err != nil {
			return err
		}
	}
	if !s.FilingStatus.IsValid() {
		return invalidField("filing_status", "unknown filing status %q", s.FilingStatus)
	}
	if s.TaxExemptInterest.IsNegative() {
		return invalidField("tax_exempt_interest", "cannot be negative")
	}
	if s.PreRetirementIncome.IsNegative() {
		return invalidField("pre_retirement_income", "cannot be negative")
	}
	if s.StartYear < 0 {
		return invalidField("start_year", "cannot be negative, got %d", s.StartYear)
	}
	if err := validateSSReduction(&s.SSReduction); err != nil {
		return err
	}
	if err := validateConversion(&s.RothConversion); err != nil {
		return err
	}

	seen := make(map[string]bool, len(s.Assets))
	for i := range s.Assets {
		a := &s.Assets[i]
		if err := s.validateAsset(i, a); err != nil {
			return err
		}
		if seen[a.ID] {
			return invalidField(fmt.Sprintf("assets[%d].id", i), "duplicate id %q", a.ID)
		}
		seen[a.ID] = true
	}
	return nil
}

// validatePerson validates a single household member
func validatePerson(field string, p *Person) error {
	if p.BirthDate.IsZero() {
		return invalidField(field+".birth_date", "birth date is required")
	}
	if p.RetirementAge < 0 || p.RetirementAge > 120 {
		return invalidField(field+".retirement_age", "must be between 0 and 120, got %d", p.RetirementAge)
	}
	if p.MortalityAge <= 0 || p.MortalityAge > 125 {
		return invalidField(field+".mortality_age", "must be between 1 and 125, got %d", p.MortalityAge)
	}
	return nil
}

func (s *Scenario) validateAsset(i int, a *Asset) error {
	field := func(name string) string { return fmt.Sprintf("assets[%d].%s", i, name) }

	if a.ID == "" {
		return invalidField(field("id"), "id is required")
	}
	if _, err := ParseAssetKind(string(a.Kind)); err != nil {
		return invalidField(field("kind"), "unknown asset kind %q", a.Kind)
	}
	switch a.Owner {
	case OwnerPrimary:
	case OwnerSpouse:
		if s.Spouse == nil {
			return invalidField(field("owner"), "spouse-owned asset without a spouse")
		}
	default:
		return invalidField(field("owner"), "unknown owner %q", a.Owner)
	}
	if a.CurrentBalance.IsNegative() {
		return invalidField(field("current_balance"), "balance cannot be negative")
	}
	if a.MonthlyContribution.IsNegative() {
		return invalidField(field("monthly_contribution"), "cannot be negative")
	}
	if a.MonthlyAmount.IsNegative() {
		return invalidField(field("monthly_amount"), "cannot be negative")
	}
	if a.WithdrawalEndAge != 0 && a.WithdrawalEndAge < a.WithdrawalStartAge {
		return invalidField(field("withdrawal_end_age"), "end age %d before start age %d", a.WithdrawalEndAge, a.WithdrawalStartAge)
	}
	if a.Kind.IsInheritedNonSpouse() && a.InheritanceYear == 0 {
		return invalidField(field("inheritance_year"), "required for %s accounts", a.Kind)
	}
	if a.MaxToConvert.Valid {
		if a.MaxToConvert.Decimal.IsNegative() {
			return invalidField(field("max_to_convert"), "cannot be negative")
		}
		if !a.Kind.IsTraditional() {
			return invalidField(field("max_to_convert"), "only traditional accounts can be converted")
		}
		if a.MaxToConvert.Decimal.GreaterThan(a.CurrentBalance) {
			return inconsistentField(field("max_to_convert"), "%s exceeds current balance %s",
				a.MaxToConvert.Decimal.StringFixed(2), a.CurrentBalance.StringFixed(2))
		}
	}
	return nil
}

func validateSSReduction(r *SSReduction) error {
	if !r.Enabled {
		return nil
	}
	if r.TriggerYear <= 0 {
		return invalidField("ss_reduction.trigger_year", "trigger year is required")
	}
	if r.Direction != SSDecrease && r.Direction != SSIncrease {
		return invalidField("ss_reduction.direction", "must be decrease or increase, got %q", r.Direction)
	}
	if r.AmountType != SSAmountPercentage && r.AmountType != SSAmountFlatMonthly {
		return invalidField("ss_reduction.amount_type", "must be percentage or flat_monthly, got %q", r.AmountType)
	}
	if r.Amount.IsNegative() {
		return invalidField("ss_reduction.amount", "cannot be negative")
	}
	return nil
}

func validateConversion(rc *RothConversion) error {
	if rc.StartYear == 0 && rc.AnnualAmount.IsZero() && rc.DurationYears == 0 {
		return nil
	}
	if rc.AnnualAmount.IsNegative() {
		return invalidField("roth_conversion.annual_amount", "cannot be negative")
	}
	if rc.DurationYears <= 0 {
		return invalidField("roth_conversion.duration_years", "conversion duration must be positive, got %d", rc.DurationYears)
	}
	if rc.StartYear <= 0 {
		return invalidField("roth_conversion.start_year", "start year is required")
	}
	if rc.WithdrawalAmount.IsNegative() {
		return invalidField("roth_conversion.roth_withdrawal_amount", "cannot be negative")
	}
	if rc.WithdrawalAmount.IsPositive() && rc.WithdrawalStartYear >= rc.StartYear && rc.WithdrawalStartYear < rc.EndYear() {
		return invalidField("roth_conversion.roth_withdrawal_start_year",
			"withdrawals starting %d overlap the conversion window %d-%d", rc.WithdrawalStartYear, rc.StartYear, rc.EndYear()-1)
	}
	return nil
}

// TotalMaxToConvert sums the per-asset conversion caps.
func (s *Scenario) TotalMaxToConvert() decimal.Decimal {
	total := decimal.Zero
	for _, a := range s.Assets {
		if a.MaxToConvert.Valid {
			total = total.Add(a.MaxToConvert.Decimal)
		}
	}
	return total
}
