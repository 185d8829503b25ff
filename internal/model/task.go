package model

import (
	"time"

	"github.com/roach88/taskcoin/internal/appdate"
)

// Subtask is a checklist item owned by a Task or RecurringTask.
// Coins is meaningful only when the parent distributes its reward.
type Subtask struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
	Coins     int    `json:"coins"`
}

// Task is a one-off task in the active list.
type Task struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Notes           string     `json:"notes,omitempty"`
	Difficulty      Difficulty `json:"difficulty"`
	Subtasks        []Subtask  `json:"subtasks"`
	DistributeCoins bool       `json:"distributeCoins"`
	CreatedAt       time.Time  `json:"createdAt"`
	ExpiresAt       *time.Time `json:"expiresAt,omitempty"`
	Completed       bool       `json:"completed"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
}

// RecurrenceType selects how a RecurringTask is scheduled.
type RecurrenceType string

const (
	// RecurrenceDaily tasks are active every day since creation.
	RecurrenceDaily RecurrenceType = "daily"
	// RecurrenceInterval tasks cycle through ActiveDays on, BreakDays off.
	RecurrenceInterval RecurrenceType = "interval"
)

// RecurringTask is an immutable recurrence rule. Completion state is kept
// outside of it, in Snapshot.RecurringCompletions and the history log.
//
// SubtaskDay is the application date the subtask flags belong to; flags
// recorded on an earlier day are treated as cleared.
type RecurringTask struct {
	ID              string         `json:"id"`
	Title           string         `json:"title"`
	Notes           string         `json:"notes,omitempty"`
	Difficulty      Difficulty     `json:"difficulty"`
	Subtasks        []Subtask      `json:"subtasks"`
	DistributeCoins bool           `json:"distributeCoins"`
	Type            RecurrenceType `json:"type,omitempty"`
	ActiveDays      int            `json:"activeDays,omitempty"`
	BreakDays       int            `json:"breakDays,omitempty"`
	CycleStartDate  appdate.Date   `json:"cycleStartDate,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	SubtaskDay      appdate.Date   `json:"subtaskDay,omitempty"`
}

// HistoryEntry is an append-only record of a completion.
//
// One-off tasks are moved into history as an entry carrying their full
// payload (Subtasks, DistributeCoins, CreatedAt, ExpiresAt) so they can be
// moved back on un-completion. Recurring completions are synthetic entries
// tagged IsRecurring with RecurringID set.
type HistoryEntry struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Difficulty      Difficulty `json:"difficulty"`
	IsRecurring     bool       `json:"isRecurring"`
	RecurringID     string     `json:"recurringId,omitempty"`
	CompletedAt     time.Time  `json:"completedAt"`
	Notes           string     `json:"notes,omitempty"`
	Coins           int        `json:"coins,omitempty"`
	Subtasks        []Subtask  `json:"subtasks,omitempty"`
	DistributeCoins bool       `json:"distributeCoins,omitempty"`
	CreatedAt       *time.Time `json:"createdAt,omitempty"`
	ExpiresAt       *time.Time `json:"expiresAt,omitempty"`
}

// CompletedSubtaskCoins sums the coins of completed subtasks.
func CompletedSubtaskCoins(subtasks []Subtask) int {
	sum := 0
	for _, st := range subtasks {
		if st.Completed {
			sum += st.Coins
		}
	}
	return sum
}

// SubtaskCoins sums the coins of all subtasks.
func SubtaskCoins(subtasks []Subtask) int {
	sum := 0
	for _, st := range subtasks {
		sum += st.Coins
	}
	return sum
}

// AllSubtasksCompleted reports whether subtasks is non-empty and fully checked.
func AllSubtasksCompleted(subtasks []Subtask) bool {
	if len(subtasks) == 0 {
		return false
	}
	for _, st := range subtasks {
		if !st.Completed {
			return false
		}
	}
	return true
}
