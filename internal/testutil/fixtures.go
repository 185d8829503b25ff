package testutil

import (
	"time"

	"github.com/roach88/taskcoin/internal/appdate"
	"github.com/roach88/taskcoin/internal/model"
)

// At parses "YYYY-MM-DD HH:MM" in loc. It panics on malformed input.
func At(loc *time.Location, s string) time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04", s, loc)
	if err != nil {
		panic(err)
	}
	return t
}

// Snapshot builds an empty, normalized snapshot and applies each option.
func Snapshot(opts ...func(*model.Snapshot)) model.Snapshot {
	s := model.NewSnapshot()
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithRecurring adds a recurring task definition.
func WithRecurring(def model.RecurringTask) func(*model.Snapshot) {
	return func(s *model.Snapshot) {
		if def.Subtasks == nil {
			def.Subtasks = []model.Subtask{}
		}
		s.RecurringTasks = append(s.RecurringTasks, def)
	}
}

// WithRecurringEntry logs a recurring completion of id at t.
func WithRecurringEntry(id string, d model.Difficulty, t time.Time) func(*model.Snapshot) {
	return func(s *model.Snapshot) {
		s.CompletedHistory = append(s.CompletedHistory, model.HistoryEntry{
			ID:          id + "@" + t.Format(time.RFC3339),
			Title:       id,
			Difficulty:  d,
			IsRecurring: true,
			RecurringID: id,
			CompletedAt: t,
			Coins:       d.Coins(),
		})
	}
}

// WithCompletion records id as done on date in the completion map.
func WithCompletion(id string, date appdate.Date) func(*model.Snapshot) {
	return func(s *model.Snapshot) {
		s.RecurringCompletions[id] = date
	}
}

// WithBalance sets the economy counters.
func WithBalance(earned, balance, spent int) func(*model.Snapshot) {
	return func(s *model.Snapshot) {
		s.Stats.TotalCoinsEarned = earned
		s.Stats.CurrentBalance = balance
		s.Stats.CoinsSpent = spent
	}
}

// WithFlags marks one-time repairs as applied.
func WithFlags(keys ...string) func(*model.Snapshot) {
	return func(s *model.Snapshot) {
		for _, k := range keys {
			s.SetFlag(k)
		}
	}
}
