package analytics

import (
	"time"

	"github.com/roach88/taskcoin/internal/appdate"
	"github.com/roach88/taskcoin/internal/model"
)

// Streak summarizes runs of consecutive application dates with at least one
// completion, derived from history alone.
type Streak struct {
	Current    int          `json:"current"`
	Best       int          `json:"best"`
	LastActive appdate.Date `json:"lastActive,omitempty"`
	ActiveDays int          `json:"activeDays"`
}

// Streaks recomputes streaks from the completion log. The current streak
// survives until the end of the day after the last active date.
func Streaks(snap model.Snapshot, r appdate.Resolver, now time.Time) Streak {
	active := make(map[appdate.Date]bool)
	var first, last appdate.Date
	for _, h := range snap.CompletedHistory {
		d := r.Of(h.CompletedAt)
		active[d] = true
		if first == "" || d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
	}
	if len(active) == 0 {
		return Streak{}
	}

	s := Streak{LastActive: last, ActiveDays: len(active)}
	run := 0
	for _, d := range appdate.Range(first, last) {
		if active[d] {
			run++
			if run > s.Best {
				s.Best = run
			}
		} else {
			run = 0
		}
	}
	if gap := appdate.DaysBetween(last, r.Of(now)); gap <= 1 {
		s.Current = run
	}
	return s
}
