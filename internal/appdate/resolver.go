package appdate

import (
	"time"

	"github.com/roach88/taskcoin/internal/clock"
)

// ResetHour is the local hour at which a new application day begins.
const ResetHour = 6

// Resolver maps instants to application dates in a fixed location.
// The zero value resolves in time.Local.
type Resolver struct {
	Location *time.Location
}

// NewResolver returns a Resolver for loc. A nil loc means time.Local.
func NewResolver(loc *time.Location) Resolver {
	return Resolver{Location: loc}
}

func (r Resolver) loc() *time.Location {
	if r.Location == nil {
		return time.Local
	}
	return r.Location
}

// Of returns the application date of t: the local calendar date, shifted back
// one day when the local hour is before ResetHour.
func (r Resolver) Of(t time.Time) Date {
	local := t.In(r.loc())
	y, m, d := local.Date()
	if local.Hour() < ResetHour {
		d--
	}
	return FromCivil(y, m, d)
}

// Today returns the application date of c.Now().
func (r Resolver) Today(c clock.Clock) Date {
	return r.Of(c.Now())
}

// Boundary returns the instant at which application date d begins
// (ResetHour local time on that calendar date).
func (r Resolver) Boundary(d Date) time.Time {
	y, m, day := d.Civil()
	return time.Date(y, m, day, ResetHour, 0, 0, 0, r.loc())
}

// Window returns the half-open interval [start, end) covered by d.
func (r Resolver) Window(d Date) (start, end time.Time) {
	return r.Boundary(d), r.Boundary(d.AddDays(1))
}

// Contains reports whether t falls inside application date d.
func (r Resolver) Contains(d Date, t time.Time) bool {
	return r.Of(t) == d
}
