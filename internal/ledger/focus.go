package ledger

import "slices"

// PinFocus pins an active or recurring task to the focus list.
func (l *Ledger) PinFocus(id string) error {
	if l.taskIndex(id) < 0 && l.recurringIndex(id) < 0 {
		l.notFound("task", id)
		return nil
	}
	if !slices.Contains(l.snap.FocusPinnedIDs, id) {
		l.snap.FocusPinnedIDs = append(l.snap.FocusPinnedIDs, id)
	}
	return nil
}

// UnpinFocus removes id from the focus list.
func (l *Ledger) UnpinFocus(id string) error {
	l.unpin(id)
	return nil
}

// FocusPinned returns the pinned ids in pin order.
func (l *Ledger) FocusPinned() []string {
	return append([]string(nil), l.snap.FocusPinnedIDs...)
}

func (l *Ledger) unpin(id string) {
	if len(l.snap.FocusPinnedIDs) == 0 {
		return
	}
	l.snap.FocusPinnedIDs = slices.DeleteFunc(l.snap.FocusPinnedIDs, func(p string) bool { return p == id })
}
