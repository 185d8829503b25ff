package appdate

import (
	"fmt"
	"time"
)

// Layout is the textual form of a Date.
const Layout = "2006-01-02"

// Date is a civil calendar date formatted as YYYY-MM-DD.
// The zero value is the empty string and is not Valid.
type Date string

// Parse validates s and returns it as a Date.
func Parse(s string) (Date, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date(t.Format(Layout)), nil
}

// MustParse is Parse for constants and tests. It panics on malformed input.
func MustParse(s string) Date {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// FromCivil builds a Date from year, month and day, normalizing overflow
// the way time.Date does (e.g. January 32 becomes February 1).
func FromCivil(year int, month time.Month, day int) Date {
	return Date(time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Format(Layout))
}

func (d Date) midnight() (time.Time, bool) {
	t, err := time.Parse(Layout, string(d))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Valid reports whether d is a well-formed calendar date.
func (d Date) Valid() bool {
	_, ok := d.midnight()
	return ok
}

// String implements fmt.Stringer.
func (d Date) String() string {
	return string(d)
}

// Civil returns the year, month and day of d. Invalid dates return zeros.
func (d Date) Civil() (int, time.Month, int) {
	t, ok := d.midnight()
	if !ok {
		return 0, 0, 0
	}
	return t.Date()
}

// AddDays returns d shifted by n calendar days. Invalid dates are returned unchanged.
func (d Date) AddDays(n int) Date {
	t, ok := d.midnight()
	if !ok {
		return d
	}
	return Date(t.AddDate(0, 0, n).Format(Layout))
}

// Weekday returns the day of the week of d.
func (d Date) Weekday() time.Weekday {
	t, _ := d.midnight()
	return t.Weekday()
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	return d < other
}

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool {
	return d > other
}

// DaysBetween returns the number of whole days from "from" to "to".
// The result is negative when to is earlier than from.
func DaysBetween(from, to Date) int {
	a, okA := from.midnight()
	b, okB := to.midnight()
	if !okA || !okB {
		return 0
	}
	return int(b.Sub(a) / (24 * time.Hour))
}

// Range returns every date from "from" to "to", both inclusive.
// It returns nil when to is before from.
func Range(from, to Date) []Date {
	n := DaysBetween(from, to)
	if n < 0 || !from.Valid() {
		return nil
	}
	out := make([]Date, 0, n+1)
	for i := 0; i <= n; i++ {
		out = append(out, from.AddDays(i))
	}
	return out
}

// WeekStart returns the Monday on or before d.
func (d Date) WeekStart() Date {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDays(-offset)
}

// MonthStart returns the first day of d's month.
func (d Date) MonthStart() Date {
	y, m, _ := d.Civil()
	return FromCivil(y, m, 1)
}

// YearStart returns January 1 of d's year.
func (d Date) YearStart() Date {
	y, _, _ := d.Civil()
	return FromCivil(y, time.January, 1)
}
