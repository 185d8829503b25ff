package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/taskcoin/internal/appdate"
	"github.com/roach88/taskcoin/internal/ledger"
	"github.com/roach88/taskcoin/internal/model"
)

// NewDailyCommand creates the recurring task command group.
func NewDailyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "daily",
		Aliases: []string{"recurring"},
		Short:   "Manage recurring tasks",
		Long: `Manage recurring tasks.

A recurring task is due every day, or on the active days of an
"active:break" cycle. It can be completed once per day; a day starts at
06:00 local time.`,
	}
	cmd.AddCommand(newDailyAddCommand(rootOpts))
	cmd.AddCommand(newDailyListCommand(rootOpts))
	cmd.AddCommand(newDailyTransitionCommand(rootOpts, "done <id>", "Complete a recurring task for today",
		"recurring.complete", "Completed", dueIDs, (*ledger.Ledger).CompleteRecurring))
	cmd.AddCommand(newDailyTransitionCommand(rootOpts, "undo <id>", "Undo today's completion",
		"recurring.uncomplete", "Undid", doneIDs, (*ledger.Ledger).UncompleteRecurring))
	cmd.AddCommand(newDailyRemoveCommand(rootOpts))
	cmd.AddCommand(newDailySubCommand(rootOpts))
	return cmd
}

// parseInterval reads "active:break", e.g. "3:1".
func parseInterval(s string) (int, int, error) {
	on, off, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("want active:break, got %q", s)
	}
	active, err := strconv.Atoi(on)
	if err != nil {
		return 0, 0, fmt.Errorf("active days: %w", err)
	}
	rest, err := strconv.Atoi(off)
	if err != nil {
		return 0, 0, fmt.Errorf("break days: %w", err)
	}
	return active, rest, nil
}

func newDailyAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TaskOptions{RootOptions: rootOpts}
	var interval, start string

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a recurring task",
		Long: `Add a recurring task.

Examples:
  taskcoin daily add "Stretch" -d quick
  taskcoin daily add "Gym" -d hard --interval 3:1 --start 2026-03-02`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, subtasks, err := opts.parse()
			if err != nil {
				return err
			}
			in := ledger.NewRecurringTask{
				Title:           args[0],
				Notes:           opts.Notes,
				Difficulty:      d,
				Subtasks:        subtasks,
				DistributeCoins: opts.Distribute,
				Type:            model.RecurrenceDaily,
			}
			if interval != "" {
				in.Type = model.RecurrenceInterval
				if in.ActiveDays, in.BreakDays, err = parseInterval(interval); err != nil {
					return WrapExitError(ExitCommandError, "--interval", err)
				}
			}
			if start != "" {
				if in.CycleStartDate, err = appdate.Parse(start); err != nil {
					return WrapExitError(ExitCommandError, "--start", err)
				}
			}

			var added model.RecurringTask
			err = withLedger(cmd, rootOpts, "recurring.add", func(l *ledger.Ledger) error {
				var err error
				added, err = l.AddRecurringTask(in)
				return err
			})
			if err != nil {
				return err
			}
			return rootOpts.formatter(cmd).Render(added, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Added recurring task %s: %s (%s, %s)\n",
					added.ID, added.Title, added.Difficulty, scheduleOf(added))
				return err
			})
		},
	}
	opts.bind(cmd)
	cmd.Flags().StringVar(&interval, "interval", "", `cycle "active:break" in days instead of every day`)
	cmd.Flags().StringVar(&start, "start", "", "first active day of the cycle, YYYY-MM-DD (default today)")
	return cmd
}

func newDailyListCommand(rootOpts *RootOptions) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recurring tasks with today's status",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			var on appdate.Date
			if date != "" {
				var err error
				if on, err = appdate.Parse(date); err != nil {
					return WrapExitError(ExitCommandError, "--date", err)
				}
			}

			var rows []ledger.RecurringStatus
			today := true
			err := withLedger(cmd, rootOpts, "recurring.list", func(l *ledger.Ledger) error {
				if on == "" {
					on = l.Today()
				}
				today = on == l.Today()
				rows = l.RecurringOn(on)
				return nil
			})
			if err != nil {
				return err
			}
			return rootOpts.formatter(cmd).Render(rows, func(w io.Writer) error {
				if !today {
					fmt.Fprintf(w, "Schedule for %s\n", on)
				}
				return renderRecurring(w, rows, today)
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "show the schedule of another day, YYYY-MM-DD")
	return cmd
}

func recurringIDs(l *ledger.Ledger) []string {
	var ids []string
	for _, st := range l.RecurringOn(l.Today()) {
		ids = append(ids, st.Task.ID)
	}
	return ids
}

func recurringTitle(l *ledger.Ledger) func(string) string {
	return func(id string) string {
		for _, st := range l.RecurringOn(l.Today()) {
			if st.Task.ID == id {
				return st.Task.Title
			}
		}
		return id
	}
}

// dueIDs lists the recurring tasks scheduled and still open today.
func dueIDs(l *ledger.Ledger) []string {
	var ids []string
	for _, st := range l.DueToday() {
		if !st.Done {
			ids = append(ids, st.Task.ID)
		}
	}
	return ids
}

// doneIDs lists the recurring tasks completed today.
func doneIDs(l *ledger.Ledger) []string {
	var ids []string
	for _, st := range l.DueToday() {
		if st.Done {
			ids = append(ids, st.Task.ID)
		}
	}
	return ids
}

func newDailyTransitionCommand(rootOpts *RootOptions, use, short, action, verb string,
	candidates func(*ledger.Ledger) []string, op func(*ledger.Ledger, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var change balanceChange
			err := withLedger(cmd, rootOpts, action, func(l *ledger.Ledger) error {
				var err error
				change, err = transition(l, candidates(l), args[0], op, recurringTitle(l))
				return err
			})
			if err != nil {
				return err
			}
			return rootOpts.formatter(cmd).Render(change, renderBalanceChange(verb, change))
		},
	}
}

func newDailyRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a recurring task; its history is kept",
		Args:    exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id string
			err := withLedger(cmd, rootOpts, "recurring.delete", func(l *ledger.Ledger) error {
				var err error
				if id, err = matchID("recurring task", args[0], recurringIDs(l)); err != nil {
					return err
				}
				return l.DeleteRecurringTask(id)
			})
			if err != nil {
				return err
			}
			return rootOpts.formatter(cmd).Render(map[string]string{"deleted": id}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Deleted recurring task %s\n", id)
				return err
			})
		},
	}
}

func newDailySubCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sub <id> [n]",
		Short: "Show today's subtasks, or toggle subtask n (1-based)",
		Args:  rangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var view subtaskView
			err := withLedger(cmd, rootOpts, "subtask.toggle", func(l *ledger.Ledger) error {
				id, err := matchID("recurring task", args[0], recurringIDs(l))
				if err != nil {
					return err
				}
				if len(args) == 2 {
					st, err := pickSubtask(recurringStatus(l, id).Task.Subtasks, args[1])
					if err != nil {
						return err
					}
					if err := l.ToggleSubtask(id, st.ID); err != nil {
						return err
					}
				}
				status := recurringStatus(l, id)
				view = subtaskView{
					ID:         id,
					Subtasks:   status.Task.Subtasks,
					Distribute: status.Task.DistributeCoins,
					Completed:  status.Done,
					Balance:    l.Stats().CurrentBalance,
				}
				return nil
			})
			if err != nil {
				return err
			}
			return rootOpts.formatter(cmd).Render(view, view.render)
		},
	}
}

// recurringStatus returns today's view of one recurring task.
func recurringStatus(l *ledger.Ledger, id string) ledger.RecurringStatus {
	for _, st := range l.RecurringOn(l.Today()) {
		if st.Task.ID == id {
			return st
		}
	}
	return ledger.RecurringStatus{}
}
