package ledger

import (
	"math"
	"slices"

	"github.com/roach88/taskcoin/internal/model"
	"github.com/roach88/taskcoin/internal/shop"
)

// Receipt describes a completed claim or purchase.
type Receipt struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Cost    int    `json:"cost"`
	Balance int    `json:"balance"`
	Sale    bool   `json:"sale,omitempty"`
}

// NewReward describes a flat-cost reward at creation time.
type NewReward struct {
	Name        string
	Description string
	Category    string
	Cost        int
}

// NewShopItem describes a custom shop item at creation time.
type NewShopItem struct {
	Name        string
	Emoji       string
	BaseCost    int
	Scaling     float64
	ScalingType model.ScalingType
}

var defaultRewards = []NewReward{
	{Name: "Movie night", Description: "Watch a full movie guilt-free", Category: "leisure", Cost: 150},
	{Name: "Takeout dinner", Description: "Order from your favourite place", Category: "food", Cost: 200},
	{Name: "Chore-free day", Description: "Skip the chores for a day", Category: "rest", Cost: 300},
}

// SeedPresets adds the default rewards once per snapshot.
// It reports whether anything was seeded.
func (l *Ledger) SeedPresets() bool {
	if l.snap.PresetsInitialized {
		return false
	}
	for _, r := range defaultRewards {
		l.snap.Rewards = append(l.snap.Rewards, model.Reward{
			ID:          l.ids.New(),
			Name:        r.Name,
			Description: r.Description,
			Category:    r.Category,
			Cost:        r.Cost,
		})
	}
	l.snap.PresetsInitialized = true
	return true
}

// AddReward validates in and appends a new reward.
func (l *Ledger) AddReward(in NewReward) (model.Reward, error) {
	name := model.NormalizeText(in.Name)
	if name == "" {
		return model.Reward{}, validationError("reward name is required")
	}
	if in.Cost <= 0 {
		return model.Reward{}, validationError("reward cost must be positive, got %d", in.Cost)
	}
	r := model.Reward{
		ID:          l.ids.New(),
		Name:        name,
		Description: model.NormalizeText(in.Description),
		Category:    model.NormalizeText(in.Category),
		Cost:        in.Cost,
	}
	l.snap.Rewards = append(l.snap.Rewards, r)
	return r, nil
}

// DeleteReward removes a reward. Past claims stay counted.
func (l *Ledger) DeleteReward(id string) error {
	i := l.rewardIndex(id)
	if i < 0 {
		l.notFound("reward", id)
		return nil
	}
	l.snap.Rewards = append(l.snap.Rewards[:i], l.snap.Rewards[i+1:]...)
	return nil
}

// ClaimReward spends a reward's flat cost. It returns a nil receipt for an
// unknown id and an insufficient-funds error without mutation when the
// balance is too low.
func (l *Ledger) ClaimReward(id string) (*Receipt, error) {
	i := l.rewardIndex(id)
	if i < 0 {
		l.notFound("reward", id)
		return nil, nil
	}
	r := &l.snap.Rewards[i]
	if l.snap.Stats.CurrentBalance < r.Cost {
		return nil, insufficientFunds(id, r.Cost, l.snap.Stats.CurrentBalance)
	}

	now := l.clock.Now()
	l.spend(r.Cost)
	r.TimesClaimed++
	r.LastClaimedAt = &now

	l.logger.Debug("reward claimed", "reward_id", id, "cost", r.Cost, "balance", l.snap.Stats.CurrentBalance)
	return &Receipt{ID: id, Name: r.Name, Cost: r.Cost, Balance: l.snap.Stats.CurrentBalance}, nil
}

// Rewards returns a copy of the reward list.
func (l *Ledger) Rewards() []model.Reward {
	return l.snap.Clone().Rewards
}

// Catalog prices every visible shop item for the current instant.
func (l *Ledger) Catalog() []shop.Quote {
	items := shop.Catalog(l.snap.CustomShopItems, l.snap.HiddenShopItems)
	return shop.Quotes(items, l.snap.ShopPurchases, l.Today(), l.SaleActive())
}

// Quote prices one shop item, hidden or not.
func (l *Ledger) Quote(id string) (shop.Quote, bool) {
	item, ok := shop.Find(l.snap.CustomShopItems, id)
	if !ok {
		return shop.Quote{}, false
	}
	return shop.Quotes([]model.ShopItem{item}, l.snap.ShopPurchases, l.Today(), l.SaleActive())[0], true
}

// Purchase buys one unit of a visible shop item at its current price.
// Unknown and hidden items are a no-op returning a nil receipt.
func (l *Ledger) Purchase(id string) (*Receipt, error) {
	item, ok := shop.Find(l.snap.CustomShopItems, id)
	if !ok || slices.Contains(l.snap.HiddenShopItems, id) {
		l.notFound("shop item", id)
		return nil, nil
	}

	today := l.Today()
	sale := l.SaleActive()
	rec := l.snap.ShopPurchases[id]
	price := shop.CurrentPrice(item, rec, today, sale)
	if l.snap.Stats.CurrentBalance < price {
		return nil, insufficientFunds(id, price, l.snap.Stats.CurrentBalance)
	}

	l.spend(price)
	l.snap.ShopPurchases[id] = shop.Record(rec, today)

	l.logger.Debug("shop purchase",
		"item_id", id,
		"price", price,
		"sale", sale,
		"balance", l.snap.Stats.CurrentBalance,
	)
	return &Receipt{ID: id, Name: item.Name, Cost: price, Balance: l.snap.Stats.CurrentBalance, Sale: sale}, nil
}

// AddShopItem validates in and appends a custom shop item.
func (l *Ledger) AddShopItem(in NewShopItem) (model.ShopItem, error) {
	name := model.NormalizeText(in.Name)
	if name == "" {
		return model.ShopItem{}, validationError("shop item name is required")
	}
	if in.BaseCost <= 0 {
		return model.ShopItem{}, validationError("base cost must be positive, got %d", in.BaseCost)
	}
	if math.IsNaN(in.Scaling) || math.IsInf(in.Scaling, 0) || in.Scaling < 0 {
		return model.ShopItem{}, validationError("scaling must be a non-negative number")
	}
	st := in.ScalingType
	if st == "" && in.Scaling > 0 {
		st = model.ScalingAdd
	}
	if st != "" && !st.Valid() {
		return model.ShopItem{}, validationError("unknown scaling type %q", st)
	}

	item := model.ShopItem{
		ID:          l.ids.New(),
		Name:        name,
		Emoji:       model.NormalizeText(in.Emoji),
		BaseCost:    in.BaseCost,
		Scaling:     in.Scaling,
		ScalingType: st,
		IsCustom:    true,
	}
	l.snap.CustomShopItems = append(l.snap.CustomShopItems, item)
	return item, nil
}

// DeleteShopItem removes a custom item with its purchase record.
// Presets cannot be deleted, only hidden.
func (l *Ledger) DeleteShopItem(id string) error {
	i := slices.IndexFunc(l.snap.CustomShopItems, func(it model.ShopItem) bool { return it.ID == id })
	if i < 0 {
		l.notFound("custom shop item", id)
		return nil
	}
	l.snap.CustomShopItems = slices.Delete(l.snap.CustomShopItems, i, i+1)
	delete(l.snap.ShopPurchases, id)
	l.snap.HiddenShopItems = slices.DeleteFunc(l.snap.HiddenShopItems, func(h string) bool { return h == id })
	return nil
}

// HideShopItem removes an item from the catalog without deleting it.
func (l *Ledger) HideShopItem(id string) error {
	if _, ok := shop.Find(l.snap.CustomShopItems, id); !ok {
		l.notFound("shop item", id)
		return nil
	}
	if !slices.Contains(l.snap.HiddenShopItems, id) {
		l.snap.HiddenShopItems = append(l.snap.HiddenShopItems, id)
	}
	return nil
}

// UnhideShopItem returns a hidden item to the catalog.
func (l *Ledger) UnhideShopItem(id string) error {
	l.snap.HiddenShopItems = slices.DeleteFunc(l.snap.HiddenShopItems, func(h string) bool { return h == id })
	return nil
}

func (l *Ledger) rewardIndex(id string) int {
	for i := range l.snap.Rewards {
		if l.snap.Rewards[i].ID == id {
			return i
		}
	}
	return -1
}
