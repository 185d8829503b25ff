package ledger

import (
	"fmt"
	"time"

	"github.com/roach88/taskcoin/internal/model"
)

// NewSubtask describes a subtask at creation time.
type NewSubtask struct {
	Title string
	Coins int
}

// NewTask describes a one-off task at creation time.
type NewTask struct {
	Title           string
	Notes           string
	Difficulty      model.Difficulty
	Subtasks        []NewSubtask
	DistributeCoins bool
	ExpiresAt       *time.Time
}

// TaskPatch holds optional edits for an active task. Nil fields are left alone.
type TaskPatch struct {
	Title       *string
	Notes       *string
	Difficulty  *model.Difficulty
	ExpiresAt   *time.Time
	ClearExpiry bool
}

// AddTask validates in and appends a new active task.
func (l *Ledger) AddTask(in NewTask) (model.Task, error) {
	title := model.NormalizeText(in.Title)
	if title == "" {
		return model.Task{}, validationError("task title is required")
	}
	subtasks, err := l.buildSubtasks(in.Difficulty, in.DistributeCoins, in.Subtasks)
	if err != nil {
		return model.Task{}, err
	}
	now := l.clock.Now()
	if in.ExpiresAt != nil && !in.ExpiresAt.After(now) {
		return model.Task{}, validationError("expiry %s is not in the future", in.ExpiresAt.Format(time.RFC3339))
	}

	t := model.Task{
		ID:              l.ids.New(),
		Title:           title,
		Notes:           model.NormalizeText(in.Notes),
		Difficulty:      in.Difficulty,
		Subtasks:        subtasks,
		DistributeCoins: in.DistributeCoins,
		CreatedAt:       now,
		ExpiresAt:       in.ExpiresAt,
	}
	l.snap.Tasks = append(l.snap.Tasks, t)
	l.logger.Debug("task added", "task_id", t.ID, "difficulty", t.Difficulty)
	return t.Clone(), nil
}

// buildSubtasks validates the difficulty and coin split and assigns ids.
func (l *Ledger) buildSubtasks(d model.Difficulty, distribute bool, in []NewSubtask) ([]model.Subtask, error) {
	if !d.Valid() {
		return nil, &Error{Code: ErrCodeInvalidDifficulty, Message: fmt.Sprintf("unknown difficulty %q", d)}
	}
	out := make([]model.Subtask, 0, len(in))
	for _, st := range in {
		title := model.NormalizeText(st.Title)
		if title == "" {
			return nil, validationError("subtask title is required")
		}
		coins := 0
		if distribute {
			if st.Coins < 0 {
				return nil, validationError("subtask coins must not be negative")
			}
			coins = st.Coins
		}
		out = append(out, model.Subtask{ID: l.ids.New(), Title: title, Coins: coins})
	}
	if distribute {
		if err := checkSplit(d, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func checkSplit(d model.Difficulty, subtasks []model.Subtask) error {
	if sum := model.SubtaskCoins(subtasks); sum != d.Coins() {
		return &Error{
			Code:    ErrCodeCoinSplit,
			Message: fmt.Sprintf("subtask coins add up to %d, %s tasks pay %d", sum, d, d.Coins()),
		}
	}
	return nil
}

// UpdateTask edits an active task. Changing the difficulty of a task that
// distributes coins is rejected unless the split still matches.
func (l *Ledger) UpdateTask(id string, p TaskPatch) error {
	i := l.taskIndex(id)
	if i < 0 {
		l.notFound("task", id)
		return nil
	}
	t := l.snap.Tasks[i].Clone()

	if p.Title != nil {
		title := model.NormalizeText(*p.Title)
		if title == "" {
			return validationError("task title is required")
		}
		t.Title = title
	}
	if p.Notes != nil {
		t.Notes = model.NormalizeText(*p.Notes)
	}
	if p.Difficulty != nil {
		if !p.Difficulty.Valid() {
			return &Error{Code: ErrCodeInvalidDifficulty, Message: fmt.Sprintf("unknown difficulty %q", *p.Difficulty), ID: id}
		}
		if t.DistributeCoins {
			if err := checkSplit(*p.Difficulty, t.Subtasks); err != nil {
				return err
			}
		}
		t.Difficulty = *p.Difficulty
	}
	switch {
	case p.ClearExpiry:
		t.ExpiresAt = nil
	case p.ExpiresAt != nil:
		if !p.ExpiresAt.After(l.clock.Now()) {
			return validationError("expiry %s is not in the future", p.ExpiresAt.Format(time.RFC3339))
		}
		exp := *p.ExpiresAt
		t.ExpiresAt = &exp
	}

	l.snap.Tasks[i] = t
	return nil
}

// DeleteTask removes an active task without any economic effect.
func (l *Ledger) DeleteTask(id string) error {
	i := l.taskIndex(id)
	if i < 0 {
		l.notFound("task", id)
		return nil
	}
	l.snap.Tasks = append(l.snap.Tasks[:i], l.snap.Tasks[i+1:]...)
	l.unpin(id)
	return nil
}

// CompleteTask moves an active task to the head of history and credits its reward.
func (l *Ledger) CompleteTask(id string) error {
	i := l.taskIndex(id)
	if i < 0 {
		l.notFound("task", id)
		return nil
	}
	t := l.snap.Tasks[i]
	now := l.clock.Now()
	today := l.resolver.Of(now)

	coins := reward(t.Difficulty, t.DistributeCoins, t.Subtasks)
	l.adjustCoins(coins)
	l.adjustCounter(t.Difficulty, 1)
	l.touchStreak(today)

	t.Completed = true
	t.CompletedAt = &now
	entry := historyFromTask(t, coins)

	l.snap.Tasks = append(l.snap.Tasks[:i], l.snap.Tasks[i+1:]...)
	l.snap.CompletedHistory = append([]model.HistoryEntry{entry}, l.snap.CompletedHistory...)

	l.logger.Debug("task completed",
		"task_id", id,
		"coins", coins,
		"balance", l.snap.Stats.CurrentBalance,
		"app_date", today,
	)
	return nil
}

// UncompleteTask is the exact inverse of CompleteTask: it reverses the
// credited coins and counter and moves the task back to the active list.
func (l *Ledger) UncompleteTask(id string) error {
	j := l.completedTaskIndex(id)
	if j < 0 {
		l.notFound("completed task", id)
		return nil
	}
	entry := l.snap.CompletedHistory[j]

	coins := reward(entry.Difficulty, entry.DistributeCoins, entry.Subtasks)
	l.adjustCoins(-coins)
	l.adjustCounter(entry.Difficulty, -1)

	l.snap.CompletedHistory = append(l.snap.CompletedHistory[:j], l.snap.CompletedHistory[j+1:]...)
	l.snap.Tasks = append(l.snap.Tasks, taskFromHistory(entry))

	l.logger.Debug("task uncompleted",
		"task_id", id,
		"coins", -coins,
		"balance", l.snap.Stats.CurrentBalance,
	)
	return nil
}

// ToggleTask completes an active task or un-completes a completed one.
func (l *Ledger) ToggleTask(id string) error {
	if l.taskIndex(id) >= 0 {
		return l.CompleteTask(id)
	}
	return l.UncompleteTask(id)
}

// Tasks returns copies of the active tasks.
func (l *Ledger) Tasks() []model.Task {
	out := make([]model.Task, 0, len(l.snap.Tasks))
	for _, t := range l.snap.Tasks {
		out = append(out, t.Clone())
	}
	return out
}

// History returns a copy of the completion log, newest first.
func (l *Ledger) History() []model.HistoryEntry {
	return l.snap.Clone().CompletedHistory
}

// Remaining returns the time left before t expires.
func (l *Ledger) Remaining(t model.Task) (time.Duration, bool) {
	if t.ExpiresAt == nil {
		return 0, false
	}
	left := t.ExpiresAt.Sub(l.clock.Now())
	if left < 0 {
		left = 0
	}
	return left, true
}

func (l *Ledger) taskIndex(id string) int {
	for i := range l.snap.Tasks {
		if l.snap.Tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func (l *Ledger) completedTaskIndex(id string) int {
	for i := range l.snap.CompletedHistory {
		h := l.snap.CompletedHistory[i]
		if !h.IsRecurring && h.ID == id {
			return i
		}
	}
	return -1
}

func historyFromTask(t model.Task, coins int) model.HistoryEntry {
	t = t.Clone()
	created := t.CreatedAt
	entry := model.HistoryEntry{
		ID:              t.ID,
		Title:           t.Title,
		Difficulty:      t.Difficulty,
		Notes:           t.Notes,
		Coins:           coins,
		Subtasks:        t.Subtasks,
		DistributeCoins: t.DistributeCoins,
		CreatedAt:       &created,
		ExpiresAt:       t.ExpiresAt,
	}
	if t.CompletedAt != nil {
		entry.CompletedAt = *t.CompletedAt
	}
	return entry
}

func taskFromHistory(h model.HistoryEntry) model.Task {
	t := model.Task{
		ID:              h.ID,
		Title:           h.Title,
		Notes:           h.Notes,
		Difficulty:      h.Difficulty,
		Subtasks:        append([]model.Subtask{}, h.Subtasks...),
		DistributeCoins: h.DistributeCoins,
	}
	if h.CreatedAt != nil {
		t.CreatedAt = *h.CreatedAt
	}
	if h.ExpiresAt != nil {
		exp := *h.ExpiresAt
		t.ExpiresAt = &exp
	}
	return t
}
