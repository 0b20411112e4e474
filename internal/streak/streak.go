// Package streak implements the streak accounting used by the learning
// tracker: a pure computation that advances a user's consecutive-day
// counters from the previous stored state and a reference "today".
//
// Dates cross the package boundary as "2006-01-02" strings because that is
// how they are stored on the user row. A stored date that does not parse is
// treated as absent, so corrupted history degrades to first-activity
// semantics instead of blocking new writes.
package streak

import "time"

// DayFormat is the storage layout for activity dates.
const DayFormat = "2006-01-02"

// Clock supplies the current time. Production code uses UTC; tests inject a
// fixed clock to pin day boundaries.
type Clock interface {
	Now() time.Time
}

// UTCClock is the production Clock. Its zero value is ready to use.
type UTCClock struct{}

// Now returns the current time in UTC.
func (UTCClock) Now() time.Time { return time.Now().UTC() }

// ParseDay parses a stored "2006-01-02" date. A blank or malformed value
// returns ok=false, which callers must treat as "no prior activity".
func ParseDay(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	d, err := time.Parse(DayFormat, raw)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// ComputeNewStreak advances the streak counters given the previous state and
// today's date. It never errors and never returns a current streak below 1:
//
//   - no prior activity (or unparsable date) → current = 1
//   - same day as the last activity          → current = max(previous, 1)
//   - exactly one day after the last activity → current = previous + 1
//   - anything else (gap ≥ 2 days, or a future stored date) → current = 1
//
// The longest streak is raised to cover the new current value, and the
// returned activity date is always today.
func ComputeNewStreak(currentStreak, longestStreak int, lastActivity string, today time.Time) (newCurrent, newLongest int, newLastActivity string) {
	if currentStreak < 0 {
		currentStreak = 0
	}
	if longestStreak < 0 {
		longestStreak = 0
	}

	day := today.Truncate(24 * time.Hour)
	yesterday := day.AddDate(0, 0, -1)

	last, ok := ParseDay(lastActivity)
	switch {
	case !ok:
		newCurrent = 1
	case sameDay(last, day):
		newCurrent = currentStreak
		if newCurrent < 1 {
			newCurrent = 1
		}
	case sameDay(last, yesterday):
		newCurrent = currentStreak + 1
	default:
		newCurrent = 1
	}

	newLongest = longestStreak
	if newCurrent > newLongest {
		newLongest = newCurrent
	}
	return newCurrent, newLongest, day.Format(DayFormat)
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
