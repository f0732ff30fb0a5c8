package calculation

import "time"

// nowFunc returns the current time (override in tests for determinism).
// It only supplies the system year used for catch-up growth.
var nowFunc = time.Now

// SetNowFunc overrides the time provider (use only in tests).
func SetNowFunc(f func() time.Time) { nowFunc = f }

func systemYear() int { return nowFunc().Year() }
