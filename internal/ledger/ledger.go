package ledger

import (
	"log/slog"
	"time"

	"github.com/roach88/taskcoin/internal/appdate"
	"github.com/roach88/taskcoin/internal/clock"
	"github.com/roach88/taskcoin/internal/model"
	"github.com/roach88/taskcoin/internal/shop"
)

// Ledger owns one snapshot and applies the completion and economy rules to it.
//
// A Ledger is not safe for concurrent use. The engine package serializes all
// calls through its single-writer loop.
type Ledger struct {
	snap     *model.Snapshot
	clock    clock.Clock
	resolver appdate.Resolver
	calendar shop.SaleCalendar
	ids      IDGenerator
	logger   *slog.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock sets the source of "now". Default: clock.System.
func WithClock(c clock.Clock) Option {
	return func(l *Ledger) {
		l.clock = c
	}
}

// WithResolver sets the day boundary resolver. It also becomes the sale
// calendar's resolver. Default: resolver in time.Local.
func WithResolver(r appdate.Resolver) Option {
	return func(l *Ledger) {
		l.resolver = r
	}
}

// WithHolidays adds holiday sale dates to the weekend sale.
func WithHolidays(holidays ...shop.Holiday) Option {
	return func(l *Ledger) {
		l.calendar.Holidays = append(l.calendar.Holidays, holidays...)
	}
}

// WithIDs sets the id generator. Default: UUIDs.
func WithIDs(g IDGenerator) Option {
	return func(l *Ledger) {
		l.ids = g
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// New creates a Ledger owning a copy of snap.
func New(snap model.Snapshot, opts ...Option) *Ledger {
	owned := snap.Clone()
	l := &Ledger{
		snap:   &owned,
		clock:  clock.System{},
		ids:    UUIDs{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.calendar.Resolver = l.resolver
	return l
}

// Snapshot returns a deep copy of the current state.
func (l *Ledger) Snapshot() model.Snapshot {
	return l.snap.Clone()
}

// Replace swaps the owned state for a copy of snap without running any
// maintenance. Use Prepare afterwards for externally supplied state.
func (l *Ledger) Replace(snap model.Snapshot) {
	owned := snap.Clone()
	l.snap = &owned
}

// Stats returns the current counters.
func (l *Ledger) Stats() model.Stats {
	return l.snap.Clone().Stats
}

// Now returns the ledger clock's current instant.
func (l *Ledger) Now() time.Time {
	return l.clock.Now()
}

// Today returns the current application date.
func (l *Ledger) Today() appdate.Date {
	return l.resolver.Today(l.clock)
}

// Resolver returns the day boundary resolver in use.
func (l *Ledger) Resolver() appdate.Resolver {
	return l.resolver
}

// SaleActive reports whether a sale window is open now.
func (l *Ledger) SaleActive() bool {
	return l.calendar.Active(l.clock.Now())
}

// reward returns what a parent transition credits: the tier reward, minus
// coins already credited through checked subtasks when the reward is
// distributed.
func reward(d model.Difficulty, distribute bool, subtasks []model.Subtask) int {
	coins := d.Coins()
	if distribute {
		coins -= model.CompletedSubtaskCoins(subtasks)
	}
	if coins < 0 {
		coins = 0
	}
	return coins
}

// adjustCoins moves TotalCoinsEarned and CurrentBalance together.
func (l *Ledger) adjustCoins(delta int) {
	l.snap.Stats.TotalCoinsEarned += delta
	l.snap.Stats.CurrentBalance += delta
}

func (l *Ledger) adjustCounter(d model.Difficulty, delta int) {
	if l.snap.Stats.CompletedByDifficulty == nil {
		l.snap.Stats.CompletedByDifficulty = map[model.Difficulty]int{}
	}
	n := l.snap.Stats.CompletedByDifficulty[d] + delta
	if n < 0 {
		n = 0
	}
	l.snap.Stats.CompletedByDifficulty[d] = n
}

// spend debits the balance for a claim or purchase.
func (l *Ledger) spend(cost int) {
	l.snap.Stats.CurrentBalance -= cost
	l.snap.Stats.CoinsSpent += cost
	l.snap.Stats.RewardsClaimed++
}

// touchStreak records activity on date.
func (l *Ledger) touchStreak(date appdate.Date) {
	st := &l.snap.Stats
	if date.Before(st.LastStreakDate) {
		return
	}
	switch st.LastStreakDate {
	case date:
		return
	case date.AddDays(-1):
		st.CurrentStreak++
	default:
		st.CurrentStreak = 1
	}
	st.LastStreakDate = date
	if st.CurrentStreak > st.BestStreak {
		st.BestStreak = st.CurrentStreak
	}
}

func (l *Ledger) notFound(kind, id string) {
	l.logger.Debug("ignoring unknown id", "kind", kind, "id", id, "event", "not_found")
}
