package analytics

import (
	"fmt"
	"time"

	"github.com/roach88/taskcoin/internal/appdate"
	"github.com/roach88/taskcoin/internal/model"
	"github.com/roach88/taskcoin/internal/schedule"
)

// Period is the bucket granularity of a consistency report.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// ParsePeriod validates s as a Period.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodYear:
		return p, nil
	}
	return "", fmt.Errorf("unknown period %q: want day, week, month or year", s)
}

// Bucket is the consistency of one period.
//
// Rate is a percentage in [0, 100]: for a single day the share of scheduled
// recurring tasks that were completed, for longer periods the unweighted
// mean of the daily rates. Days counts the days that contributed.
type Bucket struct {
	Label string       `json:"label"`
	Start appdate.Date `json:"start"`
	Rate  float64      `json:"rate"`
	Days  int          `json:"days"`
}

// DayRate is the consistency of one application date.
type DayRate struct {
	Date      appdate.Date
	Scheduled int
	Completed int
}

// Rate returns Completed/Scheduled as a percentage.
func (d DayRate) Rate() float64 {
	if d.Scheduled == 0 {
		return 0
	}
	return float64(d.Completed) / float64(d.Scheduled) * 100
}

// Consistency buckets the daily completion rates of recurring tasks from the
// first day the snapshot shows any activity up to the application date of
// now. Days on which no recurring task was scheduled are left out entirely,
// and so are buckets made only of such days.
func Consistency(snap model.Snapshot, r appdate.Resolver, period Period, now time.Time) []Bucket {
	days := DailyRates(snap, r, now)

	var out []Bucket
	var sum float64
	for _, d := range days {
		label, start := bucketOf(d.Date, period)
		if len(out) == 0 || out[len(out)-1].Label != label {
			if len(out) > 0 {
				out[len(out)-1].Rate = sum / float64(out[len(out)-1].Days)
			}
			out = append(out, Bucket{Label: label, Start: start})
			sum = 0
		}
		sum += d.Rate()
		out[len(out)-1].Days++
	}
	if len(out) > 0 {
		out[len(out)-1].Rate = sum / float64(out[len(out)-1].Days)
	}
	return out
}

// DailyRates returns one DayRate per date with at least one scheduled
// recurring task, oldest first.
func DailyRates(snap model.Snapshot, r appdate.Resolver, now time.Time) []DayRate {
	today := r.Of(now)
	first, ok := FirstActivity(snap, r)
	if !ok || first.After(today) {
		return nil
	}

	done := completions(snap, r)
	var out []DayRate
	for _, date := range appdate.Range(first, today) {
		active := schedule.ActiveOn(snap.RecurringTasks, date, r)
		if len(active) == 0 {
			continue
		}
		dr := DayRate{Date: date, Scheduled: len(active)}
		for _, def := range active {
			if done[completionKey{def.ID, date}] {
				dr.Completed++
			}
		}
		out = append(out, dr)
	}
	return out
}

// FirstActivity returns the earliest application date of any completion or
// task creation in snap.
func FirstActivity(snap model.Snapshot, r appdate.Resolver) (appdate.Date, bool) {
	var first appdate.Date
	consider := func(t time.Time) {
		if t.IsZero() {
			return
		}
		if d := r.Of(t); first == "" || d.Before(first) {
			first = d
		}
	}
	for _, h := range snap.CompletedHistory {
		consider(h.CompletedAt)
		if h.CreatedAt != nil {
			consider(*h.CreatedAt)
		}
	}
	for _, t := range snap.Tasks {
		consider(t.CreatedAt)
	}
	for _, def := range snap.RecurringTasks {
		consider(def.CreatedAt)
	}
	return first, first != ""
}

type completionKey struct {
	id   string
	date appdate.Date
}

func completions(snap model.Snapshot, r appdate.Resolver) map[completionKey]bool {
	out := make(map[completionKey]bool)
	for _, h := range snap.CompletedHistory {
		if h.IsRecurring && h.RecurringID != "" {
			out[completionKey{h.RecurringID, r.Of(h.CompletedAt)}] = true
		}
	}
	return out
}

func bucketOf(d appdate.Date, p Period) (string, appdate.Date) {
	switch p {
	case PeriodWeek:
		start := d.WeekStart()
		y, m, day := start.AddDays(3).Civil()
		year, week := time.Date(y, m, day, 0, 0, 0, 0, time.UTC).ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week), start
	case PeriodMonth:
		start := d.MonthStart()
		return string(start)[:7], start
	case PeriodYear:
		start := d.YearStart()
		return string(start)[:4], start
	default:
		return d.String(), d
	}
}
