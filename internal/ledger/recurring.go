package ledger

import (
	"fmt"

	"github.com/roach88/taskcoin/internal/appdate"
	"github.com/roach88/taskcoin/internal/model"
	"github.com/roach88/taskcoin/internal/schedule"
)

// NewRecurringTask describes a recurring task at creation time.
type NewRecurringTask struct {
	Title           string
	Notes           string
	Difficulty      model.Difficulty
	Subtasks        []NewSubtask
	DistributeCoins bool
	Type            model.RecurrenceType
	ActiveDays      int
	BreakDays       int
	// CycleStartDate defaults to today for interval tasks.
	CycleStartDate appdate.Date
}

// RecurringStatus is a recurring task as seen on one application date.
type RecurringStatus struct {
	Task   model.RecurringTask `json:"task"`
	Active bool                `json:"active"`
	Done   bool                `json:"done"`
}

// AddRecurringTask validates in and appends a new recurrence rule.
func (l *Ledger) AddRecurringTask(in NewRecurringTask) (model.RecurringTask, error) {
	title := model.NormalizeText(in.Title)
	if title == "" {
		return model.RecurringTask{}, validationError("task title is required")
	}
	subtasks, err := l.buildSubtasks(in.Difficulty, in.DistributeCoins, in.Subtasks)
	if err != nil {
		return model.RecurringTask{}, err
	}

	now := l.clock.Now()
	def := model.RecurringTask{
		ID:              l.ids.New(),
		Title:           title,
		Notes:           model.NormalizeText(in.Notes),
		Difficulty:      in.Difficulty,
		Subtasks:        subtasks,
		DistributeCoins: in.DistributeCoins,
		Type:            in.Type,
		CreatedAt:       now,
	}
	if def.Type == "" {
		def.Type = model.RecurrenceDaily
	}
	if def.Type == model.RecurrenceInterval {
		def.ActiveDays = in.ActiveDays
		def.BreakDays = in.BreakDays
		def.CycleStartDate = in.CycleStartDate
		if def.CycleStartDate == "" {
			def.CycleStartDate = l.resolver.Of(now)
		}
	}
	if err := schedule.Validate(def); err != nil {
		return model.RecurringTask{}, &Error{Code: ErrCodeInvalidRecurrence, Message: err.Error()}
	}

	l.snap.RecurringTasks = append(l.snap.RecurringTasks, def)
	l.logger.Debug("recurring task added", "task_id", def.ID, "type", def.Type)
	return def, nil
}

// DeleteRecurringTask removes a recurrence rule and its completion marker.
// History entries already logged for it are kept.
func (l *Ledger) DeleteRecurringTask(id string) error {
	i := l.recurringIndex(id)
	if i < 0 {
		l.notFound("recurring task", id)
		return nil
	}
	l.snap.RecurringTasks = append(l.snap.RecurringTasks[:i], l.snap.RecurringTasks[i+1:]...)
	delete(l.snap.RecurringCompletions, id)
	l.unpin(id)
	return nil
}

// CompleteRecurring marks a recurring task done for today: credits its
// reward, records today in the completion map and logs one history entry.
// Completing a task that is already done today, or not scheduled today, is
// a no-op.
func (l *Ledger) CompleteRecurring(id string) error {
	i := l.recurringIndex(id)
	if i < 0 {
		l.notFound("recurring task", id)
		return nil
	}
	now := l.clock.Now()
	today := l.resolver.Of(now)
	def := l.snap.RecurringTasks[i]

	if l.snap.RecurringCompletions[id] == today {
		return nil
	}
	if !schedule.IsActiveOn(def, today, l.resolver) {
		l.logger.Debug("recurring task not scheduled today", "task_id", id, "app_date", today)
		return nil
	}

	coins := reward(def.Difficulty, def.DistributeCoins, l.subtasksOn(def, today))
	l.adjustCoins(coins)
	l.adjustCounter(def.Difficulty, 1)
	l.touchStreak(today)
	l.snap.RecurringCompletions[id] = today

	if l.recurringEntryIndex(id, today) < 0 {
		entry := model.HistoryEntry{
			ID:              l.ids.New(),
			Title:           def.Title,
			Difficulty:      def.Difficulty,
			IsRecurring:     true,
			RecurringID:     id,
			CompletedAt:     now,
			Notes:           def.Notes,
			Coins:           coins,
			DistributeCoins: def.DistributeCoins,
		}
		l.snap.CompletedHistory = append([]model.HistoryEntry{entry}, l.snap.CompletedHistory...)
	}

	l.logger.Debug("recurring task completed",
		"task_id", id,
		"coins", coins,
		"balance", l.snap.Stats.CurrentBalance,
		"app_date", today,
	)
	return nil
}

// UncompleteRecurring reverses today's completion of a recurring task.
func (l *Ledger) UncompleteRecurring(id string) error {
	i := l.recurringIndex(id)
	if i < 0 {
		l.notFound("recurring task", id)
		return nil
	}
	today := l.Today()
	if l.snap.RecurringCompletions[id] != today {
		return nil
	}
	def := l.snap.RecurringTasks[i]

	coins := reward(def.Difficulty, def.DistributeCoins, l.subtasksOn(def, today))
	l.adjustCoins(-coins)
	l.adjustCounter(def.Difficulty, -1)
	delete(l.snap.RecurringCompletions, id)
	l.removeRecurringEntries(id, today)

	l.logger.Debug("recurring task uncompleted",
		"task_id", id,
		"coins", -coins,
		"balance", l.snap.Stats.CurrentBalance,
		"app_date", today,
	)
	return nil
}

// ToggleRecurring flips today's completion of a recurring task.
func (l *Ledger) ToggleRecurring(id string) error {
	if l.DoneToday(id) {
		return l.UncompleteRecurring(id)
	}
	return l.CompleteRecurring(id)
}

// DoneToday reports whether the recurring task id is completed today.
func (l *Ledger) DoneToday(id string) bool {
	return l.snap.RecurringCompletions[id] == l.Today()
}

// RecurringOn lists every recurring task with its status on date. Subtask
// flags are shown as of date; Done is only meaningful for today.
func (l *Ledger) RecurringOn(date appdate.Date) []RecurringStatus {
	today := l.Today()
	out := make([]RecurringStatus, 0, len(l.snap.RecurringTasks))
	for _, def := range l.snap.RecurringTasks {
		view := def
		view.Subtasks = l.subtasksOn(def, date)
		out = append(out, RecurringStatus{
			Task:   view,
			Active: schedule.IsActiveOn(def, date, l.resolver),
			Done:   date == today && l.snap.RecurringCompletions[def.ID] == today,
		})
	}
	return out
}

// DueToday lists the recurring tasks scheduled today.
func (l *Ledger) DueToday() []RecurringStatus {
	var out []RecurringStatus
	for _, st := range l.RecurringOn(l.Today()) {
		if st.Active {
			out = append(out, st)
		}
	}
	return out
}

// subtasksOn returns def's subtasks with flags recorded on another day cleared.
func (l *Ledger) subtasksOn(def model.RecurringTask, date appdate.Date) []model.Subtask {
	out := append([]model.Subtask{}, def.Subtasks...)
	if def.SubtaskDay != date {
		for i := range out {
			out[i].Completed = false
		}
	}
	return out
}

func (l *Ledger) recurringIndex(id string) int {
	for i := range l.snap.RecurringTasks {
		if l.snap.RecurringTasks[i].ID == id {
			return i
		}
	}
	return -1
}

// recurringEntryIndex finds the history entry for (id, date).
func (l *Ledger) recurringEntryIndex(id string, date appdate.Date) int {
	for i, h := range l.snap.CompletedHistory {
		if h.IsRecurring && h.RecurringID == id && l.resolver.Of(h.CompletedAt) == date {
			return i
		}
	}
	return -1
}

func (l *Ledger) removeRecurringEntries(id string, date appdate.Date) int {
	kept := l.snap.CompletedHistory[:0]
	removed := 0
	for _, h := range l.snap.CompletedHistory {
		if h.IsRecurring && h.RecurringID == id && l.resolver.Of(h.CompletedAt) == date {
			removed++
			continue
		}
		kept = append(kept, h)
	}
	l.snap.CompletedHistory = kept
	return removed
}

func (l *Ledger) recurringKey(id string, date appdate.Date) string {
	return fmt.Sprintf("%s@%s", id, date)
}
