package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/taskcoin/internal/appdate"
	"github.com/roach88/taskcoin/internal/model"
	"github.com/roach88/taskcoin/internal/testutil"
)

func daily(id string, d model.Difficulty) model.RecurringTask {
	return model.RecurringTask{
		ID:         id,
		Title:      id,
		Difficulty: d,
		Type:       model.RecurrenceDaily,
		CreatedAt:  testutil.At(time.UTC, "2026-03-01 09:00"),
	}
}

func TestSweepExpired_SilentRemoval(t *testing.T) {
	l, clk := newTestLedger(t, tuesday, testutil.Snapshot(testutil.WithBalance(40, 40, 0)))
	soon := testutil.At(time.UTC, "2026-03-10 10:00")
	expiring, err := l.AddTask(NewTask{Title: "call back", Difficulty: model.DifficultyEasy, ExpiresAt: &soon})
	require.NoError(t, err)
	keep, _ := l.AddTask(NewTask{Title: "keep", Difficulty: model.DifficultyEasy})
	require.NoError(t, l.PinFocus(expiring.ID))

	assert.Empty(t, l.Tick().Expired)

	clk.Set(soon)
	report := l.Tick()

	assert.Equal(t, []string{expiring.ID}, report.Expired)
	tasks := l.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, keep.ID, tasks[0].ID)
	assert.Empty(t, l.History())
	assert.Empty(t, l.FocusPinned())
	assert.Equal(t, 40, l.Stats().CurrentBalance)
}

func TestReconcile_RepairsZombiesAndOrphans(t *testing.T) {
	today := appdate.MustParse("2026-03-10")
	snap := testutil.Snapshot(
		testutil.WithRecurring(daily("zombie", model.DifficultyEasy)),
		testutil.WithRecurring(daily("stale", model.DifficultyEasy)),
		testutil.WithRecurring(daily("orphan", model.DifficultyEasy)),
		testutil.WithCompletion("zombie", today),
		testutil.WithCompletion("stale", appdate.MustParse("2026-03-09")),
		testutil.WithCompletion("ghost", today),
		testutil.WithRecurringEntry("orphan", model.DifficultyEasy, testutil.At(time.UTC, "2026-03-10 07:00")),
		testutil.WithBalance(20, 20, 0),
	)
	snap.FocusPinnedIDs = []string{"zombie", "gone"}
	l, _ := newTestLedger(t, tuesday, snap)

	rec := l.Reconcile()

	assert.Equal(t, Reconciliation{Purged: 1, Dropped: 1, Backfilled: 1, Restored: 1, Unpinned: 1}, rec)
	got := l.Snapshot()
	assert.Equal(t, map[string]appdate.Date{"zombie": today, "orphan": today}, got.RecurringCompletions)
	assert.Equal(t, 1, countRecurringEntries(l, "zombie", today))
	assert.Equal(t, 1, countRecurringEntries(l, "orphan", today))
	assert.Equal(t, testutil.At(time.UTC, "2026-03-10 06:00"), got.CompletedHistory[0].CompletedAt)
	assert.Equal(t, []string{"zombie"}, got.FocusPinnedIDs)
	assert.Equal(t, 20, got.Stats.CurrentBalance, "reconciliation has no coin effect")

	assert.False(t, l.Reconcile().Changed())
	assert.Equal(t, got, l.Snapshot())
}

func TestRepairs_DedupeReversesDuplicateCredit(t *testing.T) {
	snap := testutil.Snapshot(
		testutil.WithRecurring(daily("r1", model.DifficultyEasy)),
		testutil.WithRecurringEntry("r1", model.DifficultyEasy, testutil.At(time.UTC, "2026-03-09 20:00")),
		testutil.WithRecurringEntry("r1", model.DifficultyEasy, testutil.At(time.UTC, "2026-03-09 09:00")),
		// 01:00 on the 10th is still the 9th.
		testutil.WithRecurringEntry("r1", model.DifficultyEasy, testutil.At(time.UTC, "2026-03-10 01:00")),
		testutil.WithRecurringEntry("r1", model.DifficultyEasy, testutil.At(time.UTC, "2026-03-08 09:00")),
		testutil.WithBalance(40, 40, 0),
	)
	snap.Stats.CompletedByDifficulty[model.DifficultyEasy] = 4
	l, _ := newTestLedger(t, tuesday, snap)

	results := l.ApplyRepairs()

	assert.Equal(t, []RepairResult{
		{ID: "repair_dedupe_recurring_history_v1", Changed: true},
		{ID: "economy_recalc_v1", Changed: false},
		{ID: "backfill_difficulty_counts_v1", Changed: false},
	}, results)
	got := l.Snapshot()
	assert.Len(t, got.CompletedHistory, 2)
	assert.Equal(t, 20, got.Stats.TotalCoinsEarned)
	assert.Equal(t, 20, got.Stats.CurrentBalance)
	assert.Equal(t, 2, got.Stats.CompletedByDifficulty[model.DifficultyEasy])
	for _, r := range Repairs {
		assert.True(t, got.Flag(r.ID))
	}

	assert.Empty(t, l.ApplyRepairs(), "repairs never run twice")
	assert.Equal(t, got, l.Snapshot())
}

func TestRepairs_EconomyRecalcPreservesDelta(t *testing.T) {
	snap := testutil.Snapshot(
		testutil.WithRecurring(daily("r1", model.DifficultyHard)),
		testutil.WithRecurringEntry("r1", model.DifficultyHard, testutil.At(time.UTC, "2026-03-09 09:00")),
		testutil.WithBalance(100, 60, 0),
	)
	snap.CompletedHistory = append(snap.CompletedHistory, model.HistoryEntry{
		ID:          "h1",
		Title:       "one-off",
		Difficulty:  model.DifficultyMedium,
		CompletedAt: testutil.At(time.UTC, "2026-03-08 12:00"),
	})
	snap.Tasks = append(snap.Tasks, model.Task{
		ID:              "open",
		Title:           "open",
		Difficulty:      model.DifficultyEasy,
		DistributeCoins: true,
		Subtasks: []model.Subtask{
			{ID: "s1", Title: "a", Coins: 4, Completed: true},
			{ID: "s2", Title: "b", Coins: 6},
		},
		CreatedAt: testutil.At(time.UTC, "2026-03-08 12:00"),
	})
	l, _ := newTestLedger(t, tuesday, snap)

	results := l.ApplyRepairs()
	require.Len(t, results, 3)

	st := l.Stats()
	assert.Equal(t, 50+25+4, st.TotalCoinsEarned)
	assert.Equal(t, 50+25+4-40, st.CurrentBalance)
	assert.Equal(t, 40, st.CoinsSpent)
	assert.True(t, st.Balanced())
	assert.Equal(t, map[model.Difficulty]int{model.DifficultyHard: 1, model.DifficultyMedium: 1}, st.CompletedByDifficulty)
}

func TestRepairs_EconomyRecalcKeepsEarlierDayShares(t *testing.T) {
	// One subtask was checked on Monday and the parent was never finished.
	// Monday's share stays earned after the day rolls over.
	def := daily("r1", model.DifficultyEasy)
	def.DistributeCoins = true
	def.SubtaskDay = appdate.MustParse("2026-03-09")
	def.Subtasks = []model.Subtask{
		{ID: "s1", Title: "water", Coins: 10, Completed: true},
		{ID: "s2", Title: "walk", Coins: 0},
	}
	l, _ := newTestLedger(t, tuesday, testutil.Snapshot(
		testutil.WithRecurring(def),
		testutil.WithBalance(10, 10, 0),
	))

	l.ApplyRepairs()

	st := l.Stats()
	assert.Equal(t, 10, st.TotalCoinsEarned)
	assert.Equal(t, 10, st.CurrentBalance)
	assert.Equal(t, 0, st.CoinsSpent)
	requireBalanced(t, l)
}

func TestRepairs_EconomyRecalcSkipsSharesOfCompletedDay(t *testing.T) {
	// The completion entry pays the full tier, which already covers the shares.
	def := daily("r1", model.DifficultyEasy)
	def.DistributeCoins = true
	def.SubtaskDay = appdate.MustParse("2026-03-09")
	def.Subtasks = []model.Subtask{
		{ID: "s1", Title: "water", Coins: 4, Completed: true},
		{ID: "s2", Title: "walk", Coins: 6, Completed: true},
	}
	l, _ := newTestLedger(t, tuesday, testutil.Snapshot(
		testutil.WithRecurring(def),
		testutil.WithRecurringEntry("r1", model.DifficultyEasy, testutil.At(time.UTC, "2026-03-09 20:00")),
		testutil.WithBalance(10, 10, 0),
	))

	l.ApplyRepairs()

	assert.Equal(t, model.DifficultyEasy.Coins(), l.Stats().TotalCoinsEarned)
	requireBalanced(t, l)
}

func TestApplyRepairs_SkipsFlaggedSteps(t *testing.T) {
	l, _ := newTestLedger(t, tuesday, testutil.Snapshot(testutil.WithFlags("economy_recalc_v1")))
	calls := 0
	steps := []Repair{
		{ID: "economy_recalc_v1", Apply: func(*Ledger) bool { calls++; return true }},
		{ID: "test_step_v1", Apply: func(*Ledger) bool { calls++; return false }},
	}

	results := l.applyRepairs(steps)

	assert.Equal(t, 1, calls)
	assert.Equal(t, []RepairResult{{ID: "test_step_v1", Changed: false}}, results)
	assert.True(t, l.Snapshot().Flag("test_step_v1"))
}

func TestPrepare_IsIdempotent(t *testing.T) {
	snap := testutil.Snapshot(
		testutil.WithRecurring(daily("r1", model.DifficultyEasy)),
		testutil.WithCompletion("r1", appdate.MustParse("2026-03-10")),
		testutil.WithBalance(10, 10, 0),
	)
	l, _ := newTestLedger(t, tuesday, snap)

	first := l.Prepare()
	assert.True(t, first.Seeded)
	assert.Equal(t, 1, first.Reconcile.Backfilled)
	assert.Len(t, first.Repairs, len(Repairs))
	after := l.Snapshot()

	second := l.Prepare()
	assert.False(t, second.Changed())
	assert.Equal(t, after, l.Snapshot())
	assert.True(t, l.Stats().Balanced())
}

func TestTick_NeverRunsRepairs(t *testing.T) {
	l, _ := newTestLedger(t, tuesday, model.NewSnapshot())

	report := l.Tick()

	assert.Empty(t, report.Repairs)
	for _, r := range Repairs {
		assert.False(t, l.Snapshot().Flag(r.ID))
	}
}

func TestIngest_ShallowMergeOverDefaults(t *testing.T) {
	l, _ := newTestLedger(t, tuesday, testutil.Snapshot(testutil.WithBalance(99, 99, 0)))
	doc := []byte(`{
		"stats": {"totalCoinsEarned": 30, "currentBalance": 10, "coinsSpent": 20},
		"presetsInitialized": true,
		"economy_recalc_v1": true,
		"repair_dedupe_recurring_history_v1": true,
		"backfill_difficulty_counts_v1": true
	}`)

	report, err := l.Ingest(doc)
	require.NoError(t, err)
	assert.False(t, report.Seeded)
	assert.Empty(t, report.Repairs)

	got := l.Snapshot()
	assert.Equal(t, 10, got.Stats.CurrentBalance)
	assert.Empty(t, got.Tasks)
	assert.NotNil(t, got.ShopPurchases)
}

func TestIngest_MalformedLeavesStateUntouched(t *testing.T) {
	l, _ := newTestLedger(t, tuesday, testutil.Snapshot(testutil.WithBalance(99, 99, 0)))
	before := l.Snapshot()

	_, err := l.Ingest([]byte(`{"tasks": "nope"`))
	assert.Error(t, err)
	assert.Equal(t, before, l.Snapshot())
}
