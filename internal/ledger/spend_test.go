package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/taskcoin/internal/appdate"
	"github.com/roach88/taskcoin/internal/model"
	"github.com/roach88/taskcoin/internal/shop"
	"github.com/roach88/taskcoin/internal/testutil"
)

func TestClaimReward(t *testing.T) {
	l, _ := newTestLedger(t, tuesday, testutil.Snapshot(testutil.WithBalance(200, 200, 0)))
	r, err := l.AddReward(NewReward{Name: "Movie", Cost: 150})
	require.NoError(t, err)

	receipt, err := l.ClaimReward(r.ID)
	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.Equal(t, 150, receipt.Cost)
	assert.Equal(t, 50, receipt.Balance)

	st := l.Stats()
	assert.Equal(t, 200, st.TotalCoinsEarned)
	assert.Equal(t, 150, st.CoinsSpent)
	assert.Equal(t, 1, st.RewardsClaimed)
	assert.Equal(t, 1, l.Rewards()[0].TimesClaimed)
	requireBalanced(t, l)
}

func TestClaimReward_InsufficientFundsLeavesStateAlone(t *testing.T) {
	l, _ := newTestLedger(t, tuesday, testutil.Snapshot(testutil.WithBalance(100, 100, 0)))
	r, _ := l.AddReward(NewReward{Name: "Trip", Cost: 500})
	before := l.Snapshot()

	receipt, err := l.ClaimReward(r.ID)
	assert.Nil(t, receipt)
	assert.True(t, IsInsufficientFunds(err))
	assert.Equal(t, before, l.Snapshot())
}

func TestAddReward_Validation(t *testing.T) {
	l, _ := newTestLedger(t, tuesday, model.NewSnapshot())

	_, err := l.AddReward(NewReward{Name: "", Cost: 10})
	assert.Equal(t, ErrCodeValidation, CodeOf(err))
	_, err = l.AddReward(NewReward{Name: "x", Cost: 0})
	assert.Equal(t, ErrCodeValidation, CodeOf(err))
}

func TestSeedPresets_OnlyOnce(t *testing.T) {
	l, _ := newTestLedger(t, tuesday, model.NewSnapshot())

	assert.True(t, l.SeedPresets())
	n := len(l.Rewards())
	assert.Positive(t, n)

	require.NoError(t, l.DeleteReward(l.Rewards()[0].ID))
	assert.False(t, l.SeedPresets())
	assert.Len(t, l.Rewards(), n-1)
}

func TestPurchase_AdditiveScalingOutsideSale(t *testing.T) {
	l, clk := newTestLedger(t, tuesday, testutil.Snapshot(testutil.WithBalance(200, 200, 0)))
	require.False(t, l.SaleActive())

	var prices []int
	for i := 0; i < 3; i++ {
		receipt, err := l.Purchase("preset-coffee")
		require.NoError(t, err)
		prices = append(prices, receipt.Cost)
	}
	assert.Equal(t, []int{40, 50, 60}, prices)

	st := l.Stats()
	assert.Equal(t, 50, st.CurrentBalance)
	assert.Equal(t, 150, st.CoinsSpent)
	assert.Equal(t, 3, st.RewardsClaimed)
	requireBalanced(t, l)

	// The count resets lazily with the application day.
	clk.Set(testutil.At(time.UTC, "2026-03-11 05:59"))
	q, ok := l.Quote("preset-coffee")
	require.True(t, ok)
	assert.Equal(t, 70, q.Price)
	clk.Set(testutil.At(time.UTC, "2026-03-11 06:00"))
	q, _ = l.Quote("preset-coffee")
	assert.Equal(t, 40, q.Price)
}

func TestPurchase_AdditiveScalingDuringWeekendSale(t *testing.T) {
	l, _ := newTestLedger(t, "2026-03-14 10:00", testutil.Snapshot(testutil.WithBalance(200, 200, 0)))
	require.True(t, l.SaleActive())

	var prices []int
	for i := 0; i < 3; i++ {
		receipt, err := l.Purchase("preset-coffee")
		require.NoError(t, err)
		assert.True(t, receipt.Sale)
		prices = append(prices, receipt.Cost)
	}
	assert.Equal(t, []int{20, 20, 30}, prices)
	requireBalanced(t, l)
}

func TestPurchase_HolidaySale(t *testing.T) {
	clk := testutil.NewManualClock(testutil.At(time.UTC, "2026-12-25 12:00"))
	xmas, err := shop.ParseHoliday("12-25")
	require.NoError(t, err)
	l := New(testutil.Snapshot(testutil.WithBalance(100, 100, 0)),
		WithClock(clk),
		WithResolver(appdate.NewResolver(time.UTC)),
		WithHolidays(xmas),
	)

	assert.True(t, l.SaleActive())
	clk.Set(testutil.At(time.UTC, "2026-12-26 05:00"))
	// Before 06:00 it is still the 25th.
	assert.True(t, l.SaleActive())
}

func TestPurchase_InsufficientFunds(t *testing.T) {
	l, _ := newTestLedger(t, tuesday, testutil.Snapshot(testutil.WithBalance(50, 30, 20)))
	before := l.Snapshot()

	receipt, err := l.Purchase("preset-coffee")
	assert.Nil(t, receipt)
	assert.True(t, IsInsufficientFunds(err))
	assert.Equal(t, before, l.Snapshot())
}

func TestPurchase_HiddenItemIsNoOp(t *testing.T) {
	l, _ := newTestLedger(t, tuesday, testutil.Snapshot(testutil.WithBalance(100, 100, 0)))
	require.NoError(t, l.HideShopItem("preset-coffee"))

	receipt, err := l.Purchase("preset-coffee")
	assert.NoError(t, err)
	assert.Nil(t, receipt)
	for _, q := range l.Catalog() {
		assert.NotEqual(t, "preset-coffee", q.Item.ID)
	}

	require.NoError(t, l.UnhideShopItem("preset-coffee"))
	receipt, err = l.Purchase("preset-coffee")
	require.NoError(t, err)
	assert.Equal(t, 40, receipt.Cost)
}

func TestCustomShopItems(t *testing.T) {
	l, _ := newTestLedger(t, tuesday, testutil.Snapshot(testutil.WithBalance(100, 100, 0)))

	_, err := l.AddShopItem(NewShopItem{Name: "Book", BaseCost: 0})
	assert.Equal(t, ErrCodeValidation, CodeOf(err))
	_, err = l.AddShopItem(NewShopItem{Name: "Book", BaseCost: 10, Scaling: 2, ScalingType: "exp"})
	assert.Equal(t, ErrCodeValidation, CodeOf(err))

	item, err := l.AddShopItem(NewShopItem{Name: "Book", Emoji: "📚", BaseCost: 30, Scaling: 2, ScalingType: model.ScalingMultiply})
	require.NoError(t, err)
	assert.True(t, item.IsCustom)

	catalog := l.Catalog()
	assert.Equal(t, item.ID, catalog[len(catalog)-1].Item.ID)

	receipt, err := l.Purchase(item.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, receipt.Cost)
	q, _ := l.Quote(item.ID)
	assert.Equal(t, 60, q.Price)

	// Presets can only be hidden.
	require.NoError(t, l.DeleteShopItem("preset-coffee"))
	_, ok := l.Quote("preset-coffee")
	assert.True(t, ok)

	require.NoError(t, l.HideShopItem(item.ID))
	require.NoError(t, l.DeleteShopItem(item.ID))
	snap := l.Snapshot()
	assert.Empty(t, snap.CustomShopItems)
	assert.Empty(t, snap.HiddenShopItems)
	assert.NotContains(t, snap.ShopPurchases, item.ID)
	requireBalanced(t, l)
}

func TestEconomyInvariant_MixedSequence(t *testing.T) {
	l, clk := newTestLedger(t, tuesday, testutil.Snapshot(testutil.WithBalance(1000, 1000, 0)))
	reward, _ := l.AddReward(NewReward{Name: "Treat", Cost: 30})
	daily, _ := l.AddRecurringTask(NewRecurringTask{Title: "d", Difficulty: model.DifficultyMedium})

	for day := 0; day < 6; day++ {
		task, err := l.AddTask(NewTask{Title: "t", Difficulty: model.DifficultyHard})
		require.NoError(t, err)
		require.NoError(t, l.CompleteTask(task.ID))
		requireBalanced(t, l)
		require.NoError(t, l.ToggleRecurring(daily.ID))
		requireBalanced(t, l)
		_, err = l.Purchase("preset-snack")
		require.NoError(t, err)
		requireBalanced(t, l)
		_, err = l.ClaimReward(reward.ID)
		require.NoError(t, err)
		requireBalanced(t, l)
		if day%2 == 0 {
			require.NoError(t, l.UncompleteTask(task.ID))
			requireBalanced(t, l)
		}
		clk.Advance(24 * time.Hour)
		l.Tick()
	}
}
