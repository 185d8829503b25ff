// Package shop derives shop item prices.
//
// A price is never stored. It is computed from the item's base cost, its
// scaling rule, the number of purchases since the last daily reset and
// whether a sale window is active.
package shop

import (
	"math"

	"github.com/roach88/taskcoin/internal/appdate"
	"github.com/roach88/taskcoin/internal/model"
)

// PurchaseCount returns rec.Count when rec was last reset on resetDate, else 0.
// Counts from earlier reset dates are stale and read as zero without being
// cleared.
func PurchaseCount(rec model.PurchaseRecord, resetDate appdate.Date) int {
	if rec.LastResetDate != resetDate {
		return 0
	}
	return rec.Count
}

// Scales reports whether item has a scaling rule above its neutral value
// (1 for multiply, 0 for add).
func Scales(item model.ShopItem) bool {
	if item.ScalingType == model.ScalingMultiply {
		return item.Scaling > 1
	}
	return item.Scaling > 0
}

// Price returns the cost of the next purchase of item after purchaseCount
// purchases today. Prices beyond the int range saturate at math.MaxInt.
//
// During a sale the base cost is halved (rounding up). A multiplicative ramp
// uses the square root of its multiplier; an additive ramp only steps up on
// every second purchase.
func Price(item model.ShopItem, purchaseCount int, sale bool) int {
	if purchaseCount < 0 {
		purchaseCount = 0
	}
	base := item.BaseCost
	if sale {
		base = halfUp(base)
	}
	if !Scales(item) {
		return base
	}

	switch item.ScalingType {
	case model.ScalingMultiply:
		mult := item.Scaling
		if sale {
			mult = math.Sqrt(mult)
		}
		return clampPrice(math.Round(float64(base) * math.Pow(mult, float64(purchaseCount))))
	default:
		steps := purchaseCount
		if sale {
			steps = purchaseCount / 2
		}
		return clampPrice(float64(base) + math.Round(float64(steps)*item.Scaling))
	}
}

// CurrentPrice is Price with the purchase count taken from rec.
func CurrentPrice(item model.ShopItem, rec model.PurchaseRecord, resetDate appdate.Date, sale bool) int {
	return Price(item, PurchaseCount(rec, resetDate), sale)
}

// Schedule lists the prices of the next n purchases starting after
// fromCount purchases.
func Schedule(item model.ShopItem, fromCount, n int, sale bool) []int {
	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Price(item, fromCount+i, sale))
	}
	return out
}

// Record returns rec updated for one more purchase on resetDate.
func Record(rec model.PurchaseRecord, resetDate appdate.Date) model.PurchaseRecord {
	if rec.LastResetDate != resetDate {
		return model.PurchaseRecord{Count: 1, LastResetDate: resetDate}
	}
	return model.PurchaseRecord{Count: rec.Count + 1, LastResetDate: resetDate}
}

// clampPrice converts f to int, saturating at math.MaxInt.
func clampPrice(f float64) int {
	if math.IsNaN(f) || f >= math.MaxInt {
		return math.MaxInt
	}
	return int(f)
}

func halfUp(n int) int {
	return int(math.Ceil(float64(n) * 0.5))
}
