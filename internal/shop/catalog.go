package shop

import (
	"github.com/roach88/taskcoin/internal/appdate"
	"github.com/roach88/taskcoin/internal/model"
)

var presets = []model.ShopItem{
	{ID: "preset-coffee", Name: "Fancy coffee", Emoji: "☕", BaseCost: 40, Scaling: 10, ScalingType: model.ScalingAdd},
	{ID: "preset-episode", Name: "One more episode", Emoji: "📺", BaseCost: 60, Scaling: 1.5, ScalingType: model.ScalingMultiply},
	{ID: "preset-gaming", Name: "Hour of gaming", Emoji: "🎮", BaseCost: 100, Scaling: 1.25, ScalingType: model.ScalingMultiply},
	{ID: "preset-snack", Name: "Snack", Emoji: "🍫", BaseCost: 30, Scaling: 5, ScalingType: model.ScalingAdd},
	{ID: "preset-sleep-in", Name: "Sleep in", Emoji: "😴", BaseCost: 150},
}

// Presets returns a copy of the built-in shop items.
func Presets() []model.ShopItem {
	return append([]model.ShopItem(nil), presets...)
}

// Catalog returns presets followed by custom items, skipping hidden ids.
func Catalog(custom []model.ShopItem, hidden []string) []model.ShopItem {
	skip := make(map[string]bool, len(hidden))
	for _, id := range hidden {
		skip[id] = true
	}
	var out []model.ShopItem
	for _, item := range presets {
		if !skip[item.ID] {
			out = append(out, item)
		}
	}
	for _, item := range custom {
		if !skip[item.ID] {
			out = append(out, item)
		}
	}
	return out
}

// Find looks up id among presets and custom items, hidden or not.
func Find(custom []model.ShopItem, id string) (model.ShopItem, bool) {
	for _, item := range presets {
		if item.ID == id {
			return item, true
		}
	}
	for _, item := range custom {
		if item.ID == id {
			return item, true
		}
	}
	return model.ShopItem{}, false
}

// Quote is an item with its price at one instant.
type Quote struct {
	Item      model.ShopItem `json:"item"`
	Price     int            `json:"price"`
	Purchases int            `json:"purchases"`
	Sale      bool           `json:"sale"`
}

// Quotes prices every item for resetDate.
func Quotes(items []model.ShopItem, purchases map[string]model.PurchaseRecord, resetDate appdate.Date, sale bool) []Quote {
	out := make([]Quote, 0, len(items))
	for _, item := range items {
		count := PurchaseCount(purchases[item.ID], resetDate)
		out = append(out, Quote{
			Item:      item,
			Price:     Price(item, count, sale),
			Purchases: count,
			Sale:      sale,
		})
	}
	return out
}
