package calculation

import (
	"github.com/rpgo/retirement-cashflow/internal/domain"
	"github.com/rpgo/retirement-cashflow/pkg/dateutil"
)

// household is the mortality state for one projection year.
type household struct {
	primaryAlive bool
	spouseAlive  bool
	filing       domain.FilingStatus
	widowed      bool
}

func (h household) anyoneAlive() bool { return h.primaryAlive || h.spouseAlive }

// deriveHousehold resolves who is alive in year and the filing status that
// applies. A joint filer files Single from the first year after either
// spouse's mortality year; other statuses are kept.
func deriveHousehold(s *domain.Scenario, year int) household {
	h := household{
		primaryAlive: s.Primary.AliveIn(year),
		spouseAlive:  s.Spouse != nil && s.Spouse.AliveIn(year),
		filing:       s.FilingStatus,
	}
	if s.Spouse != nil && s.FilingStatus == domain.FilingMarriedJointly && h.anyoneAlive() && !(h.primaryAlive && h.spouseAlive) {
		h.filing = domain.FilingSingle
		h.widowed = true
	}
	return h
}

// ProjectionStartYear is the first ledger year: an explicit StartYear, or the
// earliest retirement year pulled earlier by an active conversion window or
// a pinned current year.
func ProjectionStartYear(s *domain.Scenario) int {
	if s.StartYear > 0 {
		return s.StartYear
	}
	start := s.EarliestRetirementYear()
	if s.RothConversion.Active() && s.RothConversion.StartYear < start {
		start = s.RothConversion.StartYear
	}
	if s.CurrentYear > 0 && s.CurrentYear < start {
		start = s.CurrentYear
	}
	return start
}

// projectionEndYear is the last mortality year, extended to the latest
// withdrawal end age of any asset.
func projectionEndYear(s *domain.Scenario) int {
	end := s.LastMortalityYear()
	for _, a := range s.Assets {
		if a.WithdrawalEndAge == 0 {
			continue
		}
		if p := s.PersonFor(a.Owner); p != nil {
			if y := dateutil.YearAtAge(p.BirthYear(), a.WithdrawalEndAge); y > end {
				end = y
			}
		}
	}
	return end
}
