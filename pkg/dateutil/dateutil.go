package dateutil

import (
	"fmt"
	"time"
)

// Age calculates the age at a given date
func Age(birthDate, atDate time.Time) int {
	age := atDate.Year() - birthDate.Year()
	if atDate.Month() < birthDate.Month() ||
		(atDate.Month() == birthDate.Month() && atDate.Day() < birthDate.Day()) {
		age--
	}
	return age
}

// AgeInYear is the projection age: calendar year minus birth year.
func AgeInYear(birthYear, year int) int {
	return year - birthYear
}

// YearAtAge returns the calendar year in which someone born in birthYear reaches age.
func YearAtAge(birthYear, age int) int {
	return birthYear + age
}

// IsAliveInYear reports whether a person is alive during year given a mortality age.
// The mortality year itself is still a living year.
func IsAliveInYear(birthYear, mortalityAge, year int) bool {
	return year <= birthYear+mortalityAge
}

// IsMedicareEligible checks if a person is eligible for Medicare at the given age
func IsMedicareEligible(age, medicareAge int) bool {
	return age >= medicareAge
}

// GetRMDAge returns the age when RMDs start for a given birth year (SECURE 2.0)
func GetRMDAge(birthYear int) int {
	switch {
	case birthYear <= 1950:
		return 72
	case birthYear >= 1951 && birthYear <= 1959:
		return 73
	default: // 1960 and later
		return 75
	}
}

// IsRMDYear checks if RMDs apply in year for someone born in birthYear
func IsRMDYear(birthYear, year int) bool {
	return AgeInYear(birthYear, year) >= GetRMDAge(birthYear)
}

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006/01/02", "01/02/2006"}

// ParseDate accepts the date spellings used in scenario files.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
