// Package schedule decides on which application dates a recurring task is due.
//
// Every function here is a pure function of its arguments: nothing reads the
// wall clock. Rendering "today" and analytics over past dates call the same
// IsActiveOn with different dates.
package schedule

import (
	"fmt"

	"github.com/roach88/taskcoin/internal/appdate"
	"github.com/roach88/taskcoin/internal/model"
)

// IsActiveOn reports whether def is scheduled on date.
//
// Daily tasks (and tasks with no type) are active on every date from the
// application date of their creation onwards. Interval tasks cycle through
// ActiveDays active dates followed by BreakDays inactive dates, counted from
// CycleStartDate (or the creation date when no start is set); dates before
// the cycle start are inactive.
func IsActiveOn(def model.RecurringTask, date appdate.Date, r appdate.Resolver) bool {
	switch def.Type {
	case model.RecurrenceInterval:
		return intervalActive(def, date, r)
	default:
		if def.CreatedAt.IsZero() {
			return true
		}
		return !date.Before(r.Of(def.CreatedAt))
	}
}

func intervalActive(def model.RecurringTask, date appdate.Date, r appdate.Resolver) bool {
	if def.ActiveDays <= 0 {
		return false
	}
	breakDays := def.BreakDays
	if breakDays < 0 {
		breakDays = 0
	}

	start := CycleStart(def, r)
	if !start.Valid() {
		return false
	}
	days := appdate.DaysBetween(start, date)
	if days < 0 {
		return false
	}
	return days%(def.ActiveDays+breakDays) < def.ActiveDays
}

// CycleStart returns the first date of def's interval cycle.
func CycleStart(def model.RecurringTask, r appdate.Resolver) appdate.Date {
	if def.CycleStartDate != "" {
		return def.CycleStartDate
	}
	return r.Of(def.CreatedAt)
}

// ActiveOn returns the subset of defs scheduled on date, in input order.
func ActiveOn(defs []model.RecurringTask, date appdate.Date, r appdate.Resolver) []model.RecurringTask {
	var out []model.RecurringTask
	for _, def := range defs {
		if IsActiveOn(def, date, r) {
			out = append(out, def)
		}
	}
	return out
}

// Pattern returns the active flags of def for n consecutive dates starting at from.
func Pattern(def model.RecurringTask, from appdate.Date, n int, r appdate.Resolver) []bool {
	out := make([]bool, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, IsActiveOn(def, from.AddDays(i), r))
	}
	return out
}

// Validate checks that def describes a usable recurrence rule.
func Validate(def model.RecurringTask) error {
	switch def.Type {
	case "", model.RecurrenceDaily:
		return nil
	case model.RecurrenceInterval:
		if def.ActiveDays < 1 {
			return fmt.Errorf("interval task needs at least 1 active day, got %d", def.ActiveDays)
		}
		if def.BreakDays < 0 {
			return fmt.Errorf("break days must not be negative, got %d", def.BreakDays)
		}
		if def.CycleStartDate != "" && !def.CycleStartDate.Valid() {
			return fmt.Errorf("invalid cycle start date %q", def.CycleStartDate)
		}
		return nil
	default:
		return fmt.Errorf("unknown recurrence type %q", def.Type)
	}
}
