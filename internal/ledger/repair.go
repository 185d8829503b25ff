package ledger

import "github.com/roach88/taskcoin/internal/model"

// Repair is a one-time data fix. Apply reports whether it changed anything.
//
// Each repair runs at most once per snapshot: once applied (changed or not)
// its ID is stored as a top-level snapshot flag and the step is skipped on
// every later load.
type Repair struct {
	ID    string
	Apply func(l *Ledger) bool
}

// RepairResult records one repair run.
type RepairResult struct {
	ID      string `json:"id"`
	Changed bool   `json:"changed"`
}

// Repairs is the ordered list of one-time repairs. Append new steps at the
// end with a fresh ID; never rename or reorder existing ones.
var Repairs = []Repair{
	{ID: "repair_dedupe_recurring_history_v1", Apply: dedupeRecurringHistory},
	{ID: "economy_recalc_v1", Apply: recalcEconomy},
	{ID: "backfill_difficulty_counts_v1", Apply: backfillDifficultyCounts},
}

// ApplyRepairs runs every repair whose flag is not yet set.
func (l *Ledger) ApplyRepairs() []RepairResult {
	return l.applyRepairs(Repairs)
}

func (l *Ledger) applyRepairs(steps []Repair) []RepairResult {
	var out []RepairResult
	for _, r := range steps {
		if l.snap.Flag(r.ID) {
			continue
		}
		changed := r.Apply(l)
		l.snap.SetFlag(r.ID)
		l.logger.Info("repair applied", "repair", r.ID, "changed", changed)
		out = append(out, RepairResult{ID: r.ID, Changed: changed})
	}
	return out
}

// dedupeRecurringHistory keeps the newest recurring entry per (task, app
// date) and reverses the coins and counter credited by the others.
func dedupeRecurringHistory(l *Ledger) bool {
	seen := make(map[string]bool)
	kept := make([]model.HistoryEntry, 0, len(l.snap.CompletedHistory))
	changed := false
	for _, h := range l.snap.CompletedHistory {
		if !h.IsRecurring || h.RecurringID == "" {
			kept = append(kept, h)
			continue
		}
		key := l.recurringKey(h.RecurringID, l.resolver.Of(h.CompletedAt))
		if !seen[key] {
			seen[key] = true
			kept = append(kept, h)
			continue
		}
		l.adjustCoins(-entryCoins(h))
		l.adjustCounter(h.Difficulty, -1)
		changed = true
	}
	l.snap.CompletedHistory = kept
	return changed
}

// entryCoins is what a history entry credited. Entries written before
// coins were logged fall back to the tier reward.
func entryCoins(h model.HistoryEntry) int {
	if h.Coins == 0 && !h.DistributeCoins {
		return h.Difficulty.Coins()
	}
	return h.Coins
}

// recalcEconomy rebuilds TotalCoinsEarned from history plus the subtask
// shares still credited to open parents, then rederives the balance by
// subtracting the spend implied by the old totals. The delta between
// earned and balance is preserved.
//
// A recurring parent keeps the shares of its last subtask day even after
// that day has rolled over, unless the day ended in a completion. Shares
// from earlier days are not recorded anywhere and cannot be recovered.
func recalcEconomy(l *Ledger) bool {
	st := &l.snap.Stats
	impliedSpend := st.TotalCoinsEarned - st.CurrentBalance

	earned := 0
	for _, h := range l.snap.CompletedHistory {
		earned += h.Difficulty.Coins()
	}
	for _, t := range l.snap.Tasks {
		if t.DistributeCoins {
			earned += model.CompletedSubtaskCoins(t.Subtasks)
		}
	}
	for _, def := range l.snap.RecurringTasks {
		day := def.SubtaskDay
		if !def.DistributeCoins || day == "" {
			continue
		}
		if l.snap.RecurringCompletions[def.ID] == day || l.recurringEntryIndex(def.ID, day) >= 0 {
			continue
		}
		earned += model.CompletedSubtaskCoins(def.Subtasks)
	}

	changed := earned != st.TotalCoinsEarned || st.CoinsSpent != impliedSpend
	st.TotalCoinsEarned = earned
	st.CurrentBalance = earned - impliedSpend
	st.CoinsSpent = impliedSpend
	return changed
}

// backfillDifficultyCounts rebuilds the per-difficulty counters from history
// when no counter has ever been recorded.
func backfillDifficultyCounts(l *Ledger) bool {
	for _, n := range l.snap.Stats.CompletedByDifficulty {
		if n != 0 {
			return false
		}
	}
	if len(l.snap.CompletedHistory) == 0 {
		return false
	}
	counts := make(map[model.Difficulty]int)
	for _, h := range l.snap.CompletedHistory {
		if h.Difficulty.Valid() {
			counts[h.Difficulty]++
		}
	}
	l.snap.Stats.CompletedByDifficulty = counts
	return len(counts) > 0
}
