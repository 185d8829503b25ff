package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/roach88/taskcoin/internal/analytics"
	"github.com/roach88/taskcoin/internal/ledger"
	"github.com/roach88/taskcoin/internal/model"
	"github.com/roach88/taskcoin/internal/shop"
)

const historyLayout = "2006-01-02 15:04"

// taskRow is an active task as listed.
type taskRow struct {
	model.Task
	Pinned bool `json:"pinned"`
	// ExpiresIn is the time left before the task is swept, if it expires.
	ExpiresIn *time.Duration `json:"expiresIn,omitempty"`
}

func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func renderTasks(w io.Writer, rows []taskRow) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No active tasks.")
		return err
	}
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "ID\tTITLE\tDIFFICULTY\tCOINS\tSUBTASKS\tEXPIRES\tPIN")
	for _, r := range rows {
		expires := "-"
		if r.ExpiresIn != nil {
			expires = formatRemaining(*r.ExpiresIn)
		}
		pin := ""
		if r.Pinned {
			pin = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			r.ID, r.Title, r.Difficulty, r.Difficulty.Coins(), subtaskProgress(r.Subtasks), expires, pin)
	}
	return tw.Flush()
}

func renderSubtasks(w io.Writer, subtasks []model.Subtask, distribute bool) error {
	for i, st := range subtasks {
		mark := " "
		if st.Completed {
			mark = "x"
		}
		line := fmt.Sprintf("  %d. [%s] %s", i+1, mark, st.Title)
		if distribute {
			line += fmt.Sprintf(" (%d coins)", st.Coins)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func renderHistory(w io.Writer, entries []model.HistoryEntry, loc *time.Location) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "Nothing completed yet.")
		return err
	}
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "COMPLETED\tTITLE\tDIFFICULTY\tCOINS\tKIND\tID")
	for _, h := range entries {
		kind := "task"
		if h.IsRecurring {
			kind = "daily"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			h.CompletedAt.In(loc).Format(historyLayout), h.Title, h.Difficulty, h.Coins, kind, h.ID)
	}
	return tw.Flush()
}

func renderRecurring(w io.Writer, rows []ledger.RecurringStatus, today bool) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No recurring tasks.")
		return err
	}
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "ID\tTITLE\tDIFFICULTY\tSCHEDULE\tSUBTASKS\tSTATUS")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Task.ID, r.Task.Title, r.Task.Difficulty, scheduleOf(r.Task), subtaskProgress(r.Task.Subtasks), statusOf(r, today))
	}
	return tw.Flush()
}

func scheduleOf(def model.RecurringTask) string {
	if def.Type == model.RecurrenceInterval {
		return fmt.Sprintf("%d on / %d off", def.ActiveDays, def.BreakDays)
	}
	return "daily"
}

func statusOf(r ledger.RecurringStatus, today bool) string {
	switch {
	case !r.Active:
		return "off"
	case !today:
		return "scheduled"
	case r.Done:
		return "done"
	default:
		return "due"
	}
}

func renderCatalog(w io.Writer, quotes []shop.Quote) error {
	if len(quotes) > 0 && quotes[0].Sale {
		fmt.Fprintln(w, "Sale on: base prices are halved today.")
	}
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tBOUGHT\tSCALING\t")
	for _, q := range quotes {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n",
			q.Item.ID, q.Item.Name, q.Price, q.Purchases, scalingOf(q.Item), q.Item.Emoji)
	}
	return tw.Flush()
}

func scalingOf(item model.ShopItem) string {
	if !shop.Scales(item) {
		return "flat"
	}
	if item.ScalingType == model.ScalingMultiply {
		return fmt.Sprintf("x%g", item.Scaling)
	}
	return fmt.Sprintf("+%g", item.Scaling)
}

// priceSchedule is the upcoming prices of one item.
type priceSchedule struct {
	Quote  shop.Quote `json:"quote"`
	Prices []int      `json:"prices"`
}

func renderSchedule(w io.Writer, s priceSchedule) error {
	header := fmt.Sprintf("%s (%s): %d bought today", s.Quote.Item.Name, s.Quote.Item.ID, s.Quote.Purchases)
	if s.Quote.Sale {
		header += ", sale on"
	}
	fmt.Fprintln(w, header)
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "PURCHASE\tPRICE")
	for i, p := range s.Prices {
		fmt.Fprintf(tw, "%d\t%d\n", s.Quote.Purchases+i+1, p)
	}
	return tw.Flush()
}

func renderRewards(w io.Writer, rewards []model.Reward) error {
	if len(rewards) == 0 {
		_, err := fmt.Fprintln(w, "No rewards.")
		return err
	}
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "ID\tNAME\tCOST\tCLAIMED\tCATEGORY")
	for _, r := range rewards {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", r.ID, r.Name, r.Cost, r.TimesClaimed, r.Category)
	}
	return tw.Flush()
}

func renderReceipt(w io.Writer, verb string, r *ledger.Receipt) error {
	sale := ""
	if r.Sale {
		sale = " (sale)"
	}
	_, err := fmt.Fprintf(w, "%s %s for %d coins%s. Balance: %d\n", verb, r.Name, r.Cost, sale, r.Balance)
	return err
}

// statsView is the stats command payload.
type statsView struct {
	Stats   model.Stats      `json:"stats"`
	Streak  analytics.Streak `json:"streak"`
	Pending int              `json:"pendingTasks"`
	DueNow  int              `json:"dueToday"`
}

func renderStats(w io.Writer, v statsView) error {
	tw := newTabWriter(w)
	fmt.Fprintf(tw, "Balance:\t%d\n", v.Stats.CurrentBalance)
	fmt.Fprintf(tw, "Earned:\t%d\n", v.Stats.TotalCoinsEarned)
	fmt.Fprintf(tw, "Spent:\t%d\n", v.Stats.CoinsSpent)
	fmt.Fprintf(tw, "Rewards claimed:\t%d\n", v.Stats.RewardsClaimed)
	fmt.Fprintf(tw, "Streak:\t%d days (best %d)\n", v.Stats.CurrentStreak, v.Stats.BestStreak)
	fmt.Fprintf(tw, "Active days:\t%d\n", v.Streak.ActiveDays)
	parts := make([]string, 0, len(model.Difficulties))
	for _, d := range model.Difficulties {
		parts = append(parts, fmt.Sprintf("%s %d", d, v.Stats.CompletedByDifficulty[d]))
	}
	fmt.Fprintf(tw, "Completed:\t%s\n", strings.Join(parts, ", "))
	fmt.Fprintf(tw, "Open tasks:\t%d\n", v.Pending)
	fmt.Fprintf(tw, "Due today:\t%d\n", v.DueNow)
	return tw.Flush()
}

func renderConsistency(w io.Writer, buckets []analytics.Bucket) error {
	if len(buckets) == 0 {
		_, err := fmt.Fprintln(w, "No scheduled recurring tasks yet.")
		return err
	}
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "PERIOD\tRATE\tDAYS")
	for _, b := range buckets {
		fmt.Fprintf(tw, "%s\t%.1f%%\t%d\n", b.Label, b.Rate, b.Days)
	}
	return tw.Flush()
}

func renderReport(w io.Writer, r ledger.Report) error {
	if !r.Changed() {
		_, err := fmt.Fprintln(w, "Nothing to do.")
		return err
	}
	lines := []struct {
		label string
		n     int
	}{
		{"Expired tasks removed", len(r.Expired)},
		{"Stale completions purged", r.Reconcile.Purged},
		{"Unknown completions dropped", r.Reconcile.Dropped},
		{"Missing history entries restored", r.Reconcile.Backfilled},
		{"Missing completions restored", r.Reconcile.Restored},
		{"Pins dropped", r.Reconcile.Unpinned},
	}
	tw := newTabWriter(w)
	if r.Seeded {
		fmt.Fprintln(tw, "Default rewards added")
	}
	for _, l := range lines {
		if l.n > 0 {
			fmt.Fprintf(tw, "%s:\t%d\n", l.label, l.n)
		}
	}
	for _, rep := range r.Repairs {
		fmt.Fprintf(tw, "Repair %s:\t%s\n", rep.ID, changedWord(rep.Changed))
	}
	return tw.Flush()
}

func changedWord(changed bool) string {
	if changed {
		return "applied"
	}
	return "nothing to fix"
}

func subtaskProgress(subtasks []model.Subtask) string {
	if len(subtasks) == 0 {
		return "-"
	}
	done := 0
	for _, st := range subtasks {
		if st.Completed {
			done++
		}
	}
	return fmt.Sprintf("%d/%d", done, len(subtasks))
}

// formatRemaining renders d as "2h05m" or "45m", rounded up to the minute.
func formatRemaining(d time.Duration) string {
	if d <= 0 {
		return "expired"
	}
	mins := int((d + time.Minute - 1) / time.Minute)
	if mins < 60 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%dh%02dm", mins/60, mins%60)
}
