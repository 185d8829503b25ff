package ledger

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/taskcoin/internal/appdate"
	"github.com/roach88/taskcoin/internal/model"
	"github.com/roach88/taskcoin/internal/testutil"
)

// Tuesday, 09:00 UTC.
const tuesday = "2026-03-10 09:00"

func newTestLedger(t *testing.T, start string, snap model.Snapshot) (*Ledger, *testutil.ManualClock) {
	t.Helper()
	clk := testutil.NewManualClock(testutil.At(time.UTC, start))
	l := New(snap,
		WithClock(clk),
		WithResolver(appdate.NewResolver(time.UTC)),
		WithIDs(NewSequentialIDs("id")),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	return l, clk
}

func requireBalanced(t *testing.T, l *Ledger) {
	t.Helper()
	st := l.Stats()
	require.True(t, st.Balanced(), "earned=%d balance=%d spent=%d", st.TotalCoinsEarned, st.CurrentBalance, st.CoinsSpent)
}

func TestCompleteTask_CreditsTierAndMovesToHistory(t *testing.T) {
	l, _ := newTestLedger(t, tuesday, model.NewSnapshot())
	task, err := l.AddTask(NewTask{Title: "Write report", Difficulty: model.DifficultyHard})
	require.NoError(t, err)

	require.NoError(t, l.CompleteTask(task.ID))

	st := l.Stats()
	assert.Equal(t, 50, st.TotalCoinsEarned)
	assert.Equal(t, 50, st.CurrentBalance)
	assert.Equal(t, 1, st.CompletedByDifficulty[model.DifficultyHard])
	assert.Empty(t, l.Tasks())

	hist := l.History()
	require.Len(t, hist, 1)
	assert.Equal(t, task.ID, hist[0].ID)
	assert.False(t, hist[0].IsRecurring)
	assert.Equal(t, testutil.At(time.UTC, tuesday), hist[0].CompletedAt)
	requireBalanced(t, l)
}

func TestCompleteTask_HistoryIsNewestFirst(t *testing.T) {
	l, clk := newTestLedger(t, tuesday, model.NewSnapshot())
	a, _ := l.AddTask(NewTask{Title: "a", Difficulty: model.DifficultyQuick})
	b, _ := l.AddTask(NewTask{Title: "b", Difficulty: model.DifficultyQuick})

	require.NoError(t, l.CompleteTask(a.ID))
	clk.Advance(time.Minute)
	require.NoError(t, l.CompleteTask(b.ID))

	hist := l.History()
	require.Len(t, hist, 2)
	assert.Equal(t, b.ID, hist[0].ID)
	assert.Equal(t, a.ID, hist[1].ID)
}

func TestCompleteUncomplete_RoundTripRestoresEconomy(t *testing.T) {
	l, _ := newTestLedger(t, tuesday, testutil.Snapshot(testutil.WithBalance(300, 120, 180)))
	task, err := l.AddTask(NewTask{Title: "Gym", Notes: "legs", Difficulty: model.DifficultyMedium})
	require.NoError(t, err)
	before := l.Stats()

	for i := 0; i < 5; i++ {
		require.NoError(t, l.CompleteTask(task.ID))
		requireBalanced(t, l)
		require.NoError(t, l.UncompleteTask(task.ID))
		requireBalanced(t, l)
	}

	after := l.Stats()
	assert.Equal(t, before.TotalCoinsEarned, after.TotalCoinsEarned)
	assert.Equal(t, before.CurrentBalance, after.CurrentBalance)
	assert.Equal(t, 0, after.CompletedByDifficulty[model.DifficultyMedium])

	tasks := l.Tasks()
	require.Len(t, tasks, 1)
	got := tasks[0]
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, task.Title, got.Title)
	assert.Equal(t, task.Notes, got.Notes)
	assert.Equal(t, task.Difficulty, got.Difficulty)
	assert.Equal(t, task.CreatedAt, got.CreatedAt)
	assert.False(t, got.Completed)
	assert.Nil(t, got.CompletedAt)
	assert.Empty(t, l.History())
}

func TestUncompleteTask_AppendsToActiveList(t *testing.T) {
	l, _ := newTestLedger(t, tuesday, model.NewSnapshot())
	a, _ := l.AddTask(NewTask{Title: "a", Difficulty: model.DifficultyEasy})
	b, _ := l.AddTask(NewTask{Title: "b", Difficulty: model.DifficultyEasy})

	require.NoError(t, l.ToggleTask(a.ID))
	require.NoError(t, l.ToggleTask(a.ID))

	tasks := l.Tasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, b.ID, tasks[0].ID)
	assert.Equal(t, a.ID, tasks[1].ID)
}

func TestUnknownIDs_AreNoOps(t *testing.T) {
	l, _ := newTestLedger(t, tuesday, testutil.Snapshot(testutil.WithBalance(10, 10, 0)))
	before := l.Snapshot()

	assert.NoError(t, l.CompleteTask("missing"))
	assert.NoError(t, l.UncompleteTask("missing"))
	assert.NoError(t, l.DeleteTask("missing"))
	assert.NoError(t, l.CompleteRecurring("missing"))
	assert.NoError(t, l.UncompleteRecurring("missing"))
	assert.NoError(t, l.ToggleSubtask("missing", "missing"))
	assert.NoError(t, l.PinFocus("missing"))
	assert.NoError(t, l.DeleteReward("missing"))
	assert.NoError(t, l.DeleteShopItem("missing"))

	r, err := l.ClaimReward("missing")
	assert.NoError(t, err)
	assert.Nil(t, r)
	r, err = l.Purchase("missing")
	assert.NoError(t, err)
	assert.Nil(t, r)

	assert.Equal(t, before, l.Snapshot())
}

func TestAddTask_Validation(t *testing.T) {
	l, _ := newTestLedger(t, tuesday, model.NewSnapshot())

	_, err := l.AddTask(NewTask{Title: "   ", Difficulty: model.DifficultyEasy})
	assert.Equal(t, ErrCodeValidation, CodeOf(err))

	_, err = l.AddTask(NewTask{Title: "x", Difficulty: "legendary"})
	assert.Equal(t, ErrCodeInvalidDifficulty, CodeOf(err))

	past := testutil.At(time.UTC, "2026-03-10 08:00")
	_, err = l.AddTask(NewTask{Title: "x", Difficulty: model.DifficultyEasy, ExpiresAt: &past})
	assert.Equal(t, ErrCodeValidation, CodeOf(err))

	_, err = l.AddTask(NewTask{
		Title:           "split",
		Difficulty:      model.DifficultyMedium,
		DistributeCoins: true,
		Subtasks:        []NewSubtask{{Title: "a", Coins: 10}, {Title: "b", Coins: 10}},
	})
	assert.Equal(t, ErrCodeCoinSplit, CodeOf(err))
	assert.True(t, IsValidationError(err))

	assert.Empty(t, l.Tasks())
}

func TestAddTask_NormalizesTitle(t *testing.T) {
	l, _ := newTestLedger(t, tuesday, model.NewSnapshot())
	task, err := l.AddTask(NewTask{Title: "  Café run ", Difficulty: model.DifficultyQuick})
	require.NoError(t, err)
	assert.Equal(t, "Café run", task.Title)
}

func TestUpdateTask(t *testing.T) {
	l, _ := newTestLedger(t, tuesday, model.NewSnapshot())
	task, _ := l.AddTask(NewTask{
		Title:           "Split",
		Difficulty:      model.DifficultyEasy,
		DistributeCoins: true,
		Subtasks:        []NewSubtask{{Title: "a", Coins: 4}, {Title: "b", Coins: 6}},
	})

	title := "Renamed"
	require.NoError(t, l.UpdateTask(task.ID, TaskPatch{Title: &title}))
	assert.Equal(t, "Renamed", l.Tasks()[0].Title)

	hard := model.DifficultyHard
	err := l.UpdateTask(task.ID, TaskPatch{Difficulty: &hard})
	assert.Equal(t, ErrCodeCoinSplit, CodeOf(err))
	assert.Equal(t, model.DifficultyEasy, l.Tasks()[0].Difficulty)

	exp := testutil.At(time.UTC, "2026-03-12 09:00")
	require.NoError(t, l.UpdateTask(task.ID, TaskPatch{ExpiresAt: &exp}))
	left, ok := l.Remaining(l.Tasks()[0])
	require.True(t, ok)
	assert.Equal(t, 48*time.Hour, left)

	require.NoError(t, l.UpdateTask(task.ID, TaskPatch{ClearExpiry: true}))
	_, ok = l.Remaining(l.Tasks()[0])
	assert.False(t, ok)
}

func TestDeleteTask_HasNoEconomicEffect(t *testing.T) {
	l, _ := newTestLedger(t, tuesday, testutil.Snapshot(testutil.WithBalance(50, 50, 0)))
	task, _ := l.AddTask(NewTask{Title: "x", Difficulty: model.DifficultyEpic})
	require.NoError(t, l.PinFocus(task.ID))

	require.NoError(t, l.DeleteTask(task.ID))

	assert.Empty(t, l.Tasks())
	assert.Empty(t, l.History())
	assert.Empty(t, l.FocusPinned())
	assert.Equal(t, 50, l.Stats().CurrentBalance)
}

func TestStreak_FollowsApplicationDays(t *testing.T) {
	l, clk := newTestLedger(t, tuesday, model.NewSnapshot())
	add := func() string {
		task, err := l.AddTask(NewTask{Title: "t", Difficulty: model.DifficultyQuick})
		require.NoError(t, err)
		return task.ID
	}

	require.NoError(t, l.CompleteTask(add()))
	// 02:00 the next morning still belongs to Tuesday.
	clk.Set(testutil.At(time.UTC, "2026-03-11 02:00"))
	require.NoError(t, l.CompleteTask(add()))
	st := l.Stats()
	assert.Equal(t, 1, st.CurrentStreak)
	assert.Equal(t, appdate.Date("2026-03-10"), st.LastStreakDate)

	clk.Set(testutil.At(time.UTC, "2026-03-11 06:00"))
	require.NoError(t, l.CompleteTask(add()))
	st = l.Stats()
	assert.Equal(t, 2, st.CurrentStreak)
	assert.Equal(t, 2, st.BestStreak)

	clk.Set(testutil.At(time.UTC, "2026-03-14 10:00"))
	require.NoError(t, l.CompleteTask(add()))
	st = l.Stats()
	assert.Equal(t, 1, st.CurrentStreak)
	assert.Equal(t, 2, st.BestStreak)
}

func TestFocusPins(t *testing.T) {
	l, _ := newTestLedger(t, tuesday, model.NewSnapshot())
	task, _ := l.AddTask(NewTask{Title: "t", Difficulty: model.DifficultyQuick})
	daily, err := l.AddRecurringTask(NewRecurringTask{Title: "d", Difficulty: model.DifficultyQuick})
	require.NoError(t, err)

	require.NoError(t, l.PinFocus(task.ID))
	require.NoError(t, l.PinFocus(daily.ID))
	require.NoError(t, l.PinFocus(task.ID))
	assert.Equal(t, []string{task.ID, daily.ID}, l.FocusPinned())

	require.NoError(t, l.UnpinFocus(task.ID))
	assert.Equal(t, []string{daily.ID}, l.FocusPinned())
}
