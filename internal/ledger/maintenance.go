package ledger

import (
	"slices"

	"github.com/roach88/taskcoin/internal/appdate"
	"github.com/roach88/taskcoin/internal/model"
)

// Reconciliation counts what Reconcile changed.
type Reconciliation struct {
	Purged     int `json:"purged"`
	Dropped    int `json:"dropped"`
	Backfilled int `json:"backfilled"`
	Restored   int `json:"restored"`
	Unpinned   int `json:"unpinned"`
}

// Changed reports whether anything was touched.
func (r Reconciliation) Changed() bool {
	return r.Purged+r.Dropped+r.Backfilled+r.Restored+r.Unpinned > 0
}

// SweepExpired removes active tasks whose expiry has passed. Swept tasks are
// not completed, not logged and cost nothing. It returns the removed ids.
func (l *Ledger) SweepExpired() []string {
	now := l.clock.Now()
	var removed []string
	l.snap.Tasks = slices.DeleteFunc(l.snap.Tasks, func(t model.Task) bool {
		if t.ExpiresAt != nil && !t.ExpiresAt.After(now) {
			removed = append(removed, t.ID)
			return true
		}
		return false
	})
	for _, id := range removed {
		l.unpin(id)
	}
	if len(removed) > 0 {
		l.logger.Debug("expired tasks swept", "count", len(removed), "event", "sweep")
	}
	return removed
}

// PurgeStaleCompletions drops completion-map entries recorded on any day
// other than today. It returns the number of entries dropped.
func (l *Ledger) PurgeStaleCompletions() int {
	today := l.Today()
	n := 0
	for id, date := range l.snap.RecurringCompletions {
		if date != today {
			delete(l.snap.RecurringCompletions, id)
			n++
		}
	}
	return n
}

// Reconcile brings the completion map, the history log and the focus pins
// back into agreement without any coin effect:
//
//   - stale map entries are purged and entries for unknown tasks dropped;
//   - a map entry for today without a history entry gets one backfilled;
//   - a history entry for today without a map entry gets the map entry back;
//   - pins of tasks that no longer exist are dropped.
//
// Running it twice in a row changes nothing the second time.
func (l *Ledger) Reconcile() Reconciliation {
	var rec Reconciliation
	today := l.Today()

	rec.Purged = l.PurgeStaleCompletions()
	for id := range l.snap.RecurringCompletions {
		if l.recurringIndex(id) < 0 {
			delete(l.snap.RecurringCompletions, id)
			rec.Dropped++
		}
	}

	for _, def := range l.snap.RecurringTasks {
		_, marked := l.snap.RecurringCompletions[def.ID]
		logged := l.recurringEntryIndex(def.ID, today) >= 0
		switch {
		case marked && !logged:
			l.backfillEntry(def, today)
			rec.Backfilled++
		case logged && !marked:
			l.snap.RecurringCompletions[def.ID] = today
			rec.Restored++
		}
	}

	before := len(l.snap.FocusPinnedIDs)
	l.snap.FocusPinnedIDs = slices.DeleteFunc(l.snap.FocusPinnedIDs, func(id string) bool {
		return l.taskIndex(id) < 0 && l.recurringIndex(id) < 0
	})
	rec.Unpinned = before - len(l.snap.FocusPinnedIDs)

	if rec.Changed() {
		l.logger.Debug("reconciled",
			"purged", rec.Purged,
			"dropped", rec.Dropped,
			"backfilled", rec.Backfilled,
			"restored", rec.Restored,
			"unpinned", rec.Unpinned,
		)
	}
	return rec
}

// backfillEntry logs a missing history entry for a recurring task marked
// done on date. The entry is stamped at the start of date.
func (l *Ledger) backfillEntry(def model.RecurringTask, date appdate.Date) {
	entry := model.HistoryEntry{
		ID:              l.ids.New(),
		Title:           def.Title,
		Difficulty:      def.Difficulty,
		IsRecurring:     true,
		RecurringID:     def.ID,
		CompletedAt:     l.resolver.Boundary(date),
		Notes:           def.Notes,
		Coins:           reward(def.Difficulty, def.DistributeCoins, l.subtasksOn(def, date)),
		DistributeCoins: def.DistributeCoins,
	}
	l.snap.CompletedHistory = append([]model.HistoryEntry{entry}, l.snap.CompletedHistory...)
}
