// Package calendar is the business-day arithmetic used by the dialer.
//
// Every date handled here is a calendar date: the wall-clock Y/M/D of the
// caller's local time, carried as midnight UTC so comparisons never shift a
// day across a timezone boundary. Use Day to normalize before comparing.
package calendar

import "time"

const dbLayout = "2006-01-02"

// Indefinite is the far-future pause sentinel. A pause until this date never expires.
var Indefinite = time.Date(2099, time.December, 31, 0, 0, 0, 0, time.UTC)

// Day truncates t to its wall-clock calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today is Day(now), where now is expected to be local wall-clock time.
func Today(now time.Time) time.Time { return Day(now) }

// IsBusinessDay reports whether t falls on Monday..Friday. No holiday calendar.
func IsBusinessDay(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	default:
		return true
	}
}

// AddBusinessDays advances date by n business days, skipping weekends.
// n <= 0 returns the same calendar date (not the next business day).
func AddBusinessDays(date time.Time, n int) time.Time {
	d := Day(date)
	for added := 0; added < n; {
		d = d.AddDate(0, 0, 1)
		if IsBusinessDay(d) {
			added++
		}
	}
	return d
}

// AddMonths returns date + n calendar months.
func AddMonths(date time.Time, n int) time.Time {
	return Day(date).AddDate(0, n, 0)
}

// FormatDateForDB renders the canonical YYYY-MM-DD form. Timezone-naive.
func FormatDateForDB(date time.Time) string {
	return date.Format(dbLayout)
}

// ParseDBDate is the inverse of FormatDateForDB.
func ParseDBDate(s string) (time.Time, error) {
	return time.ParseInLocation(dbLayout, s, time.UTC)
}

// IsIndefinite reports whether pausedUntil is at or beyond the sentinel.
func IsIndefinite(pausedUntil time.Time) bool {
	return !Day(pausedUntil).Before(Indefinite)
}

// IsPauseExpired is true iff a pause date exists and is strictly before today.
// The indefinite sentinel is never expired.
func IsPauseExpired(pausedUntil *time.Time, today time.Time) bool {
	if pausedUntil == nil {
		return false
	}
	if IsIndefinite(*pausedUntil) {
		return false
	}
	return Day(*pausedUntil).Before(Day(today))
}

// IsDue is the due predicate: never scheduled, or scheduled for today or earlier.
func IsDue(nextCallDate *time.Time, today time.Time) bool {
	if nextCallDate == nil {
		return true
	}
	return !Day(*nextCallDate).After(Day(today))
}
