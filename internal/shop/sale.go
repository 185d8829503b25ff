package shop

import (
	"fmt"
	"strings"
	"time"

	"github.com/roach88/taskcoin/internal/appdate"
)

// Holiday is a sale date. A Holiday with an empty Date repeats every year
// on Month/Day.
type Holiday struct {
	Date  appdate.Date
	Month time.Month
	Day   int
}

// ParseHoliday accepts "YYYY-MM-DD" for a single date or "MM-DD" for an
// annual date.
func ParseHoliday(s string) (Holiday, error) {
	s = strings.TrimSpace(s)
	if d, err := appdate.Parse(s); err == nil {
		return Holiday{Date: d}, nil
	}
	t, err := time.Parse("01-02", s)
	if err != nil {
		return Holiday{}, fmt.Errorf("invalid holiday %q: want YYYY-MM-DD or MM-DD", s)
	}
	return Holiday{Month: t.Month(), Day: t.Day()}, nil
}

// Matches reports whether h falls on d.
func (h Holiday) Matches(d appdate.Date) bool {
	if h.Date != "" {
		return h.Date == d
	}
	_, m, day := d.Civil()
	return m == h.Month && day == h.Day
}

// String returns the form accepted by ParseHoliday.
func (h Holiday) String() string {
	if h.Date != "" {
		return h.Date.String()
	}
	return fmt.Sprintf("%02d-%02d", int(h.Month), h.Day)
}

// SaleCalendar decides whether a sale window is open at an instant.
//
// Sale windows follow application days: the weekend sale runs from Saturday
// 06:00 through Monday 06:00, and each holiday runs from 06:00 on its date
// through 06:00 the next day. Both ends are inclusive, so the closing reset
// instant still belongs to the window.
type SaleCalendar struct {
	Resolver appdate.Resolver
	Holidays []Holiday
}

// Active reports whether a sale window contains t.
func (c SaleCalendar) Active(t time.Time) bool {
	d := c.Resolver.Of(t)
	if c.ActiveOn(d) {
		return true
	}
	return t.Equal(c.Resolver.Boundary(d)) && c.ActiveOn(d.AddDays(-1))
}

// ActiveOn reports whether the whole application date d is a sale day.
func (c SaleCalendar) ActiveOn(d appdate.Date) bool {
	switch d.Weekday() {
	case time.Saturday, time.Sunday:
		return true
	}
	for _, h := range c.Holidays {
		if h.Matches(d) {
			return true
		}
	}
	return false
}
