package ledger

import "github.com/roach88/taskcoin/internal/model"

// ToggleSubtask flips one subtask of a one-off task (active or completed) or
// of a recurring task.
//
// Under a parent that distributes coins, checking a subtask credits its
// share and unchecking debits it, as long as the parent itself is not
// completed. Checking the last open subtask completes the parent through the
// normal transition, which then credits only the (zero) remainder.
// Unchecking a subtask of a completed parent first reverts the parent.
func (l *Ledger) ToggleSubtask(parentID, subtaskID string) error {
	if i := l.taskIndex(parentID); i >= 0 {
		return l.toggleActiveSubtask(i, subtaskID)
	}
	if j := l.completedTaskIndex(parentID); j >= 0 {
		return l.toggleCompletedSubtask(j, subtaskID)
	}
	if k := l.recurringIndex(parentID); k >= 0 {
		return l.toggleRecurringSubtask(k, subtaskID)
	}
	l.notFound("subtask parent", parentID)
	return nil
}

func (l *Ledger) toggleActiveSubtask(i int, subtaskID string) error {
	t := &l.snap.Tasks[i]
	s := subtaskIndex(t.Subtasks, subtaskID)
	if s < 0 {
		l.notFound("subtask", subtaskID)
		return nil
	}
	st := &t.Subtasks[s]
	st.Completed = !st.Completed
	if t.DistributeCoins {
		if st.Completed {
			l.adjustCoins(st.Coins)
		} else {
			l.adjustCoins(-st.Coins)
		}
	}
	if st.Completed && model.AllSubtasksCompleted(t.Subtasks) {
		return l.CompleteTask(t.ID)
	}
	return nil
}

func (l *Ledger) toggleCompletedSubtask(j int, subtaskID string) error {
	entry := &l.snap.CompletedHistory[j]
	s := subtaskIndex(entry.Subtasks, subtaskID)
	if s < 0 {
		l.notFound("subtask", subtaskID)
		return nil
	}
	if !entry.Subtasks[s].Completed {
		// The parent's remainder already covers this share.
		entry.Subtasks[s].Completed = true
		return nil
	}

	id := entry.ID
	if err := l.UncompleteTask(id); err != nil {
		return err
	}
	i := l.taskIndex(id)
	if i < 0 {
		return nil
	}
	return l.toggleActiveSubtask(i, subtaskID)
}

func (l *Ledger) toggleRecurringSubtask(k int, subtaskID string) error {
	today := l.Today()
	def := &l.snap.RecurringTasks[k]
	s := subtaskIndex(def.Subtasks, subtaskID)
	if s < 0 {
		l.notFound("subtask", subtaskID)
		return nil
	}
	if def.SubtaskDay != today {
		for n := range def.Subtasks {
			def.Subtasks[n].Completed = false
		}
		def.SubtaskDay = today
	}

	id := def.ID
	done := l.snap.RecurringCompletions[id] == today
	if !def.Subtasks[s].Completed {
		def.Subtasks[s].Completed = true
		if done {
			return nil
		}
		if def.DistributeCoins {
			l.adjustCoins(def.Subtasks[s].Coins)
		}
		if model.AllSubtasksCompleted(def.Subtasks) {
			return l.CompleteRecurring(id)
		}
		return nil
	}

	if done {
		if err := l.UncompleteRecurring(id); err != nil {
			return err
		}
	}
	// UncompleteRecurring never reorders RecurringTasks, so def is still valid.
	def.Subtasks[s].Completed = false
	if def.DistributeCoins {
		l.adjustCoins(-def.Subtasks[s].Coins)
	}
	return nil
}

func subtaskIndex(subtasks []model.Subtask, id string) int {
	for i := range subtasks {
		if subtasks[i].ID == id {
			return i
		}
	}
	return -1
}
