package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/taskcoin/internal/ledger"
	"github.com/roach88/taskcoin/internal/model"
)

// TaskOptions holds the flags shared by task creation commands.
type TaskOptions struct {
	*RootOptions
	Difficulty string
	Notes      string
	Subtasks   []string
	Distribute bool
}

func (o *TaskOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.Difficulty, "difficulty", "d", string(model.DifficultyEasy), "quick|easy|medium|hard|epic")
	cmd.Flags().StringVar(&o.Notes, "notes", "", "free-form notes")
	cmd.Flags().StringArrayVar(&o.Subtasks, "subtask", nil, `subtask "title" or "title=coins" (repeatable)`)
	cmd.Flags().BoolVar(&o.Distribute, "distribute", false, "split the reward across subtasks by their coins")
}

func (o *TaskOptions) parse() (model.Difficulty, []ledger.NewSubtask, error) {
	d, err := model.ParseDifficulty(o.Difficulty)
	if err != nil {
		return "", nil, WrapExitError(ExitCommandError, "--difficulty", err)
	}
	subtasks, err := parseSubtasks(o.Subtasks)
	if err != nil {
		return "", nil, err
	}
	return d, subtasks, nil
}

// parseSubtasks reads "title" or "title=coins" values.
func parseSubtasks(values []string) ([]ledger.NewSubtask, error) {
	out := make([]ledger.NewSubtask, 0, len(values))
	for _, v := range values {
		title, coins := v, 0
		if i := strings.LastIndex(v, "="); i >= 0 {
			n, err := strconv.Atoi(strings.TrimSpace(v[i+1:]))
			if err != nil {
				return nil, NewExitError(ExitCommandError, fmt.Sprintf("--subtask %q: coins must be an integer", v))
			}
			title, coins = v[:i], n
		}
		out = append(out, ledger.NewSubtask{Title: strings.TrimSpace(title), Coins: coins})
	}
	return out, nil
}

// NewTaskCommand creates the task command group.
func NewTaskCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage one-off tasks",
	}
	cmd.AddCommand(newTaskAddCommand(rootOpts))
	cmd.AddCommand(newTaskListCommand(rootOpts))
	cmd.AddCommand(newTaskDoneCommand(rootOpts))
	cmd.AddCommand(newTaskUndoCommand(rootOpts))
	cmd.AddCommand(newTaskRemoveCommand(rootOpts))
	cmd.AddCommand(newTaskSubCommand(rootOpts))
	cmd.AddCommand(newTaskEditCommand(rootOpts))
	cmd.AddCommand(newTaskPinCommand(rootOpts, true))
	cmd.AddCommand(newTaskPinCommand(rootOpts, false))
	return cmd
}

func newTaskAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TaskOptions{RootOptions: rootOpts}
	var expiresIn time.Duration

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task",
		Long: `Add a one-off task.

Completing it pays the difficulty reward: quick 5, easy 10, medium 25,
hard 50, epic 100 coins. With --distribute the subtask coins must add up to
that reward and each checked subtask pays its share.

Examples:
  taskcoin task add "Write report" -d medium
  taskcoin task add "Clean flat" -d hard --distribute \
      --subtask "Kitchen=20" --subtask "Bathroom=20" --subtask "Floors=10"
  taskcoin task add "Call back" --expires-in 3h`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, subtasks, err := opts.parse()
			if err != nil {
				return err
			}
			in := ledger.NewTask{
				Title:           args[0],
				Notes:           opts.Notes,
				Difficulty:      d,
				Subtasks:        subtasks,
				DistributeCoins: opts.Distribute,
			}

			var added model.Task
			err = withLedger(cmd, opts.RootOptions, "task.add", func(l *ledger.Ledger) error {
				if expiresIn > 0 {
					at := l.Now().Add(expiresIn)
					in.ExpiresAt = &at
				}
				var err error
				added, err = l.AddTask(in)
				return err
			})
			if err != nil {
				return err
			}
			return opts.formatter(cmd).Render(added, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Added task %s: %s (%s, %d coins)\n",
					added.ID, added.Title, added.Difficulty, added.Difficulty.Coins())
				return err
			})
		},
	}
	opts.bind(cmd)
	cmd.Flags().DurationVar(&expiresIn, "expires-in", 0, "remove the task if not done within this duration")
	return cmd
}

func newTaskListCommand(rootOpts *RootOptions) *cobra.Command {
	var history bool
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active tasks, or completed ones with --history",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			var rows []taskRow
			var entries []model.HistoryEntry
			loc := time.Local
			err := withLedger(cmd, rootOpts, "task.list", func(l *ledger.Ledger) error {
				if r := l.Resolver(); r.Location != nil {
					loc = r.Location
				}
				if history {
					entries = l.History()
					if limit > 0 && len(entries) > limit {
						entries = entries[:limit]
					}
					return nil
				}
				rows = taskRows(l)
				return nil
			})
			if err != nil {
				return err
			}
			f := rootOpts.formatter(cmd)
			if history {
				return f.Render(entries, func(w io.Writer) error {
					return renderHistory(w, entries, loc)
				})
			}
			return f.Render(rows, func(w io.Writer) error {
				return renderTasks(w, rows)
			})
		},
	}
	cmd.Flags().BoolVar(&history, "history", false, "list completed tasks, newest first")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum history entries (0 for all)")
	return cmd
}

// taskRows lists the active tasks with their pin and expiry state.
func taskRows(l *ledger.Ledger) []taskRow {
	pinned := make(map[string]bool)
	for _, id := range l.FocusPinned() {
		pinned[id] = true
	}
	tasks := l.Tasks()
	rows := make([]taskRow, 0, len(tasks))
	for _, t := range tasks {
		row := taskRow{Task: t, Pinned: pinned[t.ID]}
		if d, ok := l.Remaining(t); ok {
			row.ExpiresIn = &d
		}
		rows = append(rows, row)
	}
	return rows
}

func activeTaskIDs(l *ledger.Ledger) []string {
	var ids []string
	for _, t := range l.Tasks() {
		ids = append(ids, t.ID)
	}
	return ids
}

func completedTaskIDs(l *ledger.Ledger) []string {
	var ids []string
	for _, h := range l.History() {
		if !h.IsRecurring {
			ids = append(ids, h.ID)
		}
	}
	return ids
}

// balanceChange reports a coin transition of one task.
type balanceChange struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Coins   int    `json:"coins"`
	Balance int    `json:"balance"`
}

func renderBalanceChange(verb string, c balanceChange) func(io.Writer) error {
	return func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "%s %s: %+d coins. Balance: %d\n", verb, c.Title, c.Coins, c.Balance)
		return err
	}
}

// transition runs op on the task resolved from ref among candidates and
// reports the balance change.
func transition(l *ledger.Ledger, candidates []string, ref string, op func(*ledger.Ledger, string) error, title func(string) string) (balanceChange, error) {
	id, err := matchID("task", ref, candidates)
	if err != nil {
		return balanceChange{}, err
	}
	name := title(id)
	before := l.Stats().CurrentBalance
	if err := op(l, id); err != nil {
		return balanceChange{}, err
	}
	after := l.Stats().CurrentBalance
	return balanceChange{ID: id, Title: name, Coins: after - before, Balance: after}, nil
}

func taskTitle(l *ledger.Ledger) func(string) string {
	return func(id string) string {
		for _, t := range l.Tasks() {
			if t.ID == id {
				return t.Title
			}
		}
		for _, h := range l.History() {
			if h.ID == id {
				return h.Title
			}
		}
		return id
	}
}

func newTaskDoneCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Complete a task and collect its coins",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var change balanceChange
			err := withLedger(cmd, rootOpts, "task.complete", func(l *ledger.Ledger) error {
				var err error
				change, err = transition(l, activeTaskIDs(l), args[0], (*ledger.Ledger).CompleteTask, taskTitle(l))
				return err
			})
			if err != nil {
				return err
			}
			return rootOpts.formatter(cmd).Render(change, renderBalanceChange("Completed", change))
		},
	}
}

func newTaskUndoCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "undo <id>",
		Short: "Move a completed task back to the active list and return its coins",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var change balanceChange
			err := withLedger(cmd, rootOpts, "task.uncomplete", func(l *ledger.Ledger) error {
				var err error
				change, err = transition(l, completedTaskIDs(l), args[0], (*ledger.Ledger).UncompleteTask, taskTitle(l))
				return err
			})
			if err != nil {
				return err
			}
			return rootOpts.formatter(cmd).Render(change, renderBalanceChange("Reopened", change))
		},
	}
}

func newTaskRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete an active task without paying for it",
		Args:    exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id string
			err := withLedger(cmd, rootOpts, "task.delete", func(l *ledger.Ledger) error {
				var err error
				if id, err = matchID("task", args[0], activeTaskIDs(l)); err != nil {
					return err
				}
				return l.DeleteTask(id)
			})
			if err != nil {
				return err
			}
			return rootOpts.formatter(cmd).Render(map[string]string{"deleted": id}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Deleted task %s\n", id)
				return err
			})
		},
	}
}

func newTaskSubCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sub <task-id> [n]",
		Short: "Show subtasks, or toggle subtask n (1-based)",
		Long: `Show the subtasks of a task, or toggle subtask n.

Checking the last open subtask completes the task. Unchecking a subtask of
a completed task reopens it.`,
		Args: rangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var view subtaskView
			err := withLedger(cmd, rootOpts, "subtask.toggle", func(l *ledger.Ledger) error {
				id, err := matchID("task", args[0], append(activeTaskIDs(l), completedTaskIDs(l)...))
				if err != nil {
					return err
				}
				if len(args) == 2 {
					subtasks, _, _ := taskSubtasks(l, id)
					st, err := pickSubtask(subtasks, args[1])
					if err != nil {
						return err
					}
					if err := l.ToggleSubtask(id, st.ID); err != nil {
						return err
					}
				}
				subtasks, distribute, completed := taskSubtasks(l, id)
				view = subtaskView{ID: id, Subtasks: subtasks, Distribute: distribute, Completed: completed, Balance: l.Stats().CurrentBalance}
				return nil
			})
			if err != nil {
				return err
			}
			return rootOpts.formatter(cmd).Render(view, view.render)
		},
	}
}

// subtaskView is a task's checklist after a sub command.
type subtaskView struct {
	ID         string          `json:"id"`
	Subtasks   []model.Subtask `json:"subtasks"`
	Distribute bool            `json:"distributeCoins"`
	Completed  bool            `json:"completed"`
	Balance    int             `json:"balance"`
}

func (v subtaskView) render(w io.Writer) error {
	state := "open"
	if v.Completed {
		state = "done"
	}
	fmt.Fprintf(w, "%s (%s), balance %d\n", v.ID, state, v.Balance)
	if len(v.Subtasks) == 0 {
		_, err := fmt.Fprintln(w, "  no subtasks")
		return err
	}
	return renderSubtasks(w, v.Subtasks, v.Distribute)
}

// taskSubtasks finds the checklist of an active or completed one-off task.
func taskSubtasks(l *ledger.Ledger, id string) ([]model.Subtask, bool, bool) {
	for _, t := range l.Tasks() {
		if t.ID == id {
			return t.Subtasks, t.DistributeCoins, false
		}
	}
	for _, h := range l.History() {
		if h.ID == id && !h.IsRecurring {
			return h.Subtasks, h.DistributeCoins, true
		}
	}
	return nil, false, false
}

// pickSubtask resolves a 1-based index.
func pickSubtask(subtasks []model.Subtask, arg string) (model.Subtask, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(subtasks) {
		return model.Subtask{}, NewExitError(ExitCommandError,
			fmt.Sprintf("subtask %q out of range: task has %d subtasks", arg, len(subtasks)))
	}
	return subtasks[n-1], nil
}

func newTaskEditCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		title, notes, difficulty string
		expiresIn                time.Duration
		noExpiry                 bool
	)

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change an active task",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch ledger.TaskPatch
			flags := cmd.Flags()
			if flags.Changed("title") {
				patch.Title = &title
			}
			if flags.Changed("notes") {
				patch.Notes = &notes
			}
			if flags.Changed("difficulty") {
				d, err := model.ParseDifficulty(difficulty)
				if err != nil {
					return WrapExitError(ExitCommandError, "--difficulty", err)
				}
				patch.Difficulty = &d
			}
			patch.ClearExpiry = noExpiry

			var updated model.Task
			err := withLedger(cmd, rootOpts, "task.update", func(l *ledger.Ledger) error {
				id, err := matchID("task", args[0], activeTaskIDs(l))
				if err != nil {
					return err
				}
				if flags.Changed("expires-in") {
					at := l.Now().Add(expiresIn)
					patch.ExpiresAt = &at
				}
				if err := l.UpdateTask(id, patch); err != nil {
					return err
				}
				for _, t := range l.Tasks() {
					if t.ID == id {
						updated = t
					}
				}
				return nil
			})
			if err != nil {
				return err
			}
			return rootOpts.formatter(cmd).Render(updated, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Updated task %s: %s (%s)\n", updated.ID, updated.Title, updated.Difficulty)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&notes, "notes", "", "new notes")
	cmd.Flags().StringVarP(&difficulty, "difficulty", "d", "", "new difficulty")
	cmd.Flags().DurationVar(&expiresIn, "expires-in", 0, "new expiry, from now")
	cmd.Flags().BoolVar(&noExpiry, "no-expiry", false, "remove the expiry")
	cmd.MarkFlagsMutuallyExclusive("expires-in", "no-expiry")
	return cmd
}

func newTaskPinCommand(rootOpts *RootOptions, pin bool) *cobra.Command {
	use, short, action := "pin <id>", "Pin a task or recurring task to the focus list", "focus.pin"
	if !pin {
		use, short, action = "unpin <id>", "Remove a task from the focus list", "focus.unpin"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var pinned []string
			err := withLedger(cmd, rootOpts, action, func(l *ledger.Ledger) error {
				candidates := append(activeTaskIDs(l), recurringIDs(l)...)
				if !pin {
					candidates = l.FocusPinned()
				}
				id, err := matchID("task", args[0], candidates)
				if err != nil {
					return err
				}
				if pin {
					err = l.PinFocus(id)
				} else {
					err = l.UnpinFocus(id)
				}
				pinned = l.FocusPinned()
				return err
			})
			if err != nil {
				return err
			}
			return rootOpts.formatter(cmd).Render(map[string][]string{"pinned": pinned}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Focus: %s\n", strings.Join(pinned, ", "))
				return err
			})
		},
	}
}
