package model

import (
	"time"

	"github.com/roach88/taskcoin/internal/appdate"
)

// Stats holds the aggregate economy and progress counters.
//
// Invariant: TotalCoinsEarned - CurrentBalance == CoinsSpent.
type Stats struct {
	TotalCoinsEarned      int                `json:"totalCoinsEarned"`
	CurrentBalance        int                `json:"currentBalance"`
	CoinsSpent            int                `json:"coinsSpent"`
	CompletedByDifficulty map[Difficulty]int `json:"completedByDifficulty"`
	RewardsClaimed        int                `json:"rewardsClaimed"`
	CurrentStreak         int                `json:"currentStreak"`
	BestStreak            int                `json:"bestStreak"`
	LastStreakDate        appdate.Date       `json:"lastStreakDate,omitempty"`
}

// Balanced reports whether the earned/balance delta equals recorded spend.
func (s Stats) Balanced() bool {
	return s.TotalCoinsEarned-s.CurrentBalance == s.CoinsSpent
}

// ScalingType selects how a shop item's price grows with purchases.
type ScalingType string

const (
	ScalingAdd      ScalingType = "add"
	ScalingMultiply ScalingType = "multiply"
)

// Valid reports whether t is a known scaling type.
func (t ScalingType) Valid() bool {
	return t == ScalingAdd || t == ScalingMultiply
}

// ShopItem is a preset or custom shop entry. Its price is always derived.
type ShopItem struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Emoji       string      `json:"emoji,omitempty"`
	BaseCost    int         `json:"baseCost"`
	Scaling     float64     `json:"scaling,omitempty"`
	ScalingType ScalingType `json:"scalingType,omitempty"`
	IsCustom    bool        `json:"isCustom"`
}

// PurchaseRecord counts purchases of one shop item since LastResetDate.
// Count is meaningful only while LastResetDate is the current reset date.
type PurchaseRecord struct {
	Count         int          `json:"count"`
	LastResetDate appdate.Date `json:"lastResetDate"`
}

// Reward is a flat-cost reward outside the shop.
type Reward struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	Category      string     `json:"category,omitempty"`
	Cost          int        `json:"cost"`
	TimesClaimed  int        `json:"timesClaimed"`
	LastClaimedAt *time.Time `json:"lastClaimedAt,omitempty"`
}
