package model

import (
	"time"

	"github.com/roach88/taskcoin/internal/appdate"
)

// Snapshot is the full persisted user document.
type Snapshot struct {
	Tasks                []Task                    `json:"tasks"`
	RecurringTasks       []RecurringTask           `json:"recurringTasks"`
	RecurringCompletions map[string]appdate.Date   `json:"recurringCompletions"`
	CompletedHistory     []HistoryEntry            `json:"completedHistory"`
	Rewards              []Reward                  `json:"rewards"`
	CustomShopItems      []ShopItem                `json:"customShopItems"`
	HiddenShopItems      []string                  `json:"hiddenShopItems,omitempty"`
	FocusPinnedIDs       []string                  `json:"focusPinnedIds,omitempty"`
	Stats                Stats                     `json:"stats"`
	ShopPurchases        map[string]PurchaseRecord `json:"shopPurchases"`
	PresetsInitialized   bool                      `json:"presetsInitialized"`

	// Flags holds one-time repair markers, encoded as top-level booleans.
	Flags map[string]bool `json:"-"`
}

// NewSnapshot returns an empty snapshot with every collection allocated.
func NewSnapshot() Snapshot {
	s := Snapshot{}
	s.Normalize()
	return s
}

// Normalize replaces nil collections with empty ones so that encoded
// documents never carry null where a list or object is expected.
func (s *Snapshot) Normalize() {
	if s.Tasks == nil {
		s.Tasks = []Task{}
	}
	for i := range s.Tasks {
		if s.Tasks[i].Subtasks == nil {
			s.Tasks[i].Subtasks = []Subtask{}
		}
	}
	if s.RecurringTasks == nil {
		s.RecurringTasks = []RecurringTask{}
	}
	for i := range s.RecurringTasks {
		if s.RecurringTasks[i].Subtasks == nil {
			s.RecurringTasks[i].Subtasks = []Subtask{}
		}
	}
	if s.RecurringCompletions == nil {
		s.RecurringCompletions = map[string]appdate.Date{}
	}
	if s.CompletedHistory == nil {
		s.CompletedHistory = []HistoryEntry{}
	}
	if s.Rewards == nil {
		s.Rewards = []Reward{}
	}
	if s.CustomShopItems == nil {
		s.CustomShopItems = []ShopItem{}
	}
	if s.Stats.CompletedByDifficulty == nil {
		s.Stats.CompletedByDifficulty = map[Difficulty]int{}
	}
	if s.ShopPurchases == nil {
		s.ShopPurchases = map[string]PurchaseRecord{}
	}
	if s.Flags == nil {
		s.Flags = map[string]bool{}
	}
}

// Flag reports whether the one-time marker key is set.
func (s Snapshot) Flag(key string) bool {
	return s.Flags[key]
}

// SetFlag records the one-time marker key.
func (s *Snapshot) SetFlag(key string) {
	if s.Flags == nil {
		s.Flags = map[string]bool{}
	}
	s.Flags[key] = true
}

// Clone returns a deep copy of s. The engine hands clones to the
// persistence collaborator so later mutations never race with a save.
func (s Snapshot) Clone() Snapshot {
	out := s

	out.Tasks = make([]Task, len(s.Tasks))
	for i, t := range s.Tasks {
		out.Tasks[i] = t.Clone()
	}
	out.RecurringTasks = make([]RecurringTask, len(s.RecurringTasks))
	for i, r := range s.RecurringTasks {
		r.Subtasks = cloneSubtasks(r.Subtasks)
		out.RecurringTasks[i] = r
	}
	out.RecurringCompletions = make(map[string]appdate.Date, len(s.RecurringCompletions))
	for k, v := range s.RecurringCompletions {
		out.RecurringCompletions[k] = v
	}
	out.CompletedHistory = make([]HistoryEntry, len(s.CompletedHistory))
	for i, h := range s.CompletedHistory {
		h.Subtasks = cloneSubtasks(h.Subtasks)
		h.CreatedAt = cloneTime(h.CreatedAt)
		h.ExpiresAt = cloneTime(h.ExpiresAt)
		out.CompletedHistory[i] = h
	}
	out.Rewards = make([]Reward, len(s.Rewards))
	for i, r := range s.Rewards {
		r.LastClaimedAt = cloneTime(r.LastClaimedAt)
		out.Rewards[i] = r
	}
	out.CustomShopItems = append([]ShopItem(nil), s.CustomShopItems...)
	if s.HiddenShopItems != nil {
		out.HiddenShopItems = append([]string(nil), s.HiddenShopItems...)
	}
	if s.FocusPinnedIDs != nil {
		out.FocusPinnedIDs = append([]string(nil), s.FocusPinnedIDs...)
	}
	out.Stats.CompletedByDifficulty = make(map[Difficulty]int, len(s.Stats.CompletedByDifficulty))
	for k, v := range s.Stats.CompletedByDifficulty {
		out.Stats.CompletedByDifficulty[k] = v
	}
	out.ShopPurchases = make(map[string]PurchaseRecord, len(s.ShopPurchases))
	for k, v := range s.ShopPurchases {
		out.ShopPurchases[k] = v
	}
	out.Flags = make(map[string]bool, len(s.Flags))
	for k, v := range s.Flags {
		out.Flags[k] = v
	}
	out.Normalize()
	return out
}

// Clone returns a deep copy of t.
func (t Task) Clone() Task {
	t.Subtasks = cloneSubtasks(t.Subtasks)
	t.ExpiresAt = cloneTime(t.ExpiresAt)
	t.CompletedAt = cloneTime(t.CompletedAt)
	return t
}

func cloneSubtasks(in []Subtask) []Subtask {
	if in == nil {
		return nil
	}
	return append([]Subtask(nil), in...)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
