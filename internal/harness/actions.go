package harness

import (
	"fmt"
	"time"

	"github.com/roach88/taskcoin/internal/appdate"
	"github.com/roach88/taskcoin/internal/ledger"
	"github.com/roach88/taskcoin/internal/model"
)

// actionFunc applies one scenario step. It returns the id of the entity the
// step created or touched, if any.
type actionFunc func(r *runner, a args) (string, error)

var actions = map[string]actionFunc{
	"task.add":             taskAdd,
	"task.update":          taskUpdate,
	"task.complete":        byRef("task", (*ledger.Ledger).CompleteTask),
	"task.uncomplete":      byRef("task", (*ledger.Ledger).UncompleteTask),
	"task.toggle":          byRef("task", (*ledger.Ledger).ToggleTask),
	"task.delete":          byRef("task", (*ledger.Ledger).DeleteTask),
	"subtask.toggle":       subtaskToggle,
	"recurring.add":        recurringAdd,
	"recurring.complete":   byRef("task", (*ledger.Ledger).CompleteRecurring),
	"recurring.uncomplete": byRef("task", (*ledger.Ledger).UncompleteRecurring),
	"recurring.delete":     byRef("task", (*ledger.Ledger).DeleteRecurringTask),
	"reward.add":           rewardAdd,
	"reward.claim":         rewardClaim,
	"reward.delete":        byRef("reward", (*ledger.Ledger).DeleteReward),
	"shop.add":             shopAdd,
	"shop.buy":             shopBuy,
	"shop.delete":          byRef("item", (*ledger.Ledger).DeleteShopItem),
	"shop.hide":            byRef("item", (*ledger.Ledger).HideShopItem),
	"shop.unhide":          byRef("item", (*ledger.Ledger).UnhideShopItem),
	"focus.pin":            byRef("task", (*ledger.Ledger).PinFocus),
	"focus.unpin":          byRef("task", (*ledger.Ledger).UnpinFocus),
	"tick":                 tick,
	"prepare":              prepare,
}

// byRef adapts a ledger operation taking one id argument.
func byRef(key string, op func(*ledger.Ledger, string) error) actionFunc {
	return func(r *runner, a args) (string, error) {
		id, err := r.ref(a, key)
		if err != nil {
			return "", err
		}
		return id, op(r.ledger, id)
	}
}

func taskAdd(r *runner, a args) (string, error) {
	d, err := a.difficulty()
	if err != nil {
		return "", err
	}
	subtasks, err := a.subtasks()
	if err != nil {
		return "", err
	}
	in := ledger.NewTask{
		Title:           a.str("title"),
		Notes:           a.str("notes"),
		Difficulty:      d,
		Subtasks:        subtasks,
		DistributeCoins: a.boolean("distribute"),
	}
	if s := a.str("expires_in"); s != "" {
		dur, err := time.ParseDuration(s)
		if err != nil {
			return "", fmt.Errorf("expires_in: %w", err)
		}
		at := r.clock.Now().Add(dur)
		in.ExpiresAt = &at
	}
	task, err := r.ledger.AddTask(in)
	if err != nil {
		return "", err
	}
	return task.ID, r.bind(a, task.ID)
}

func taskUpdate(r *runner, a args) (string, error) {
	id, err := r.ref(a, "task")
	if err != nil {
		return "", err
	}
	var patch ledger.TaskPatch
	if _, ok := a["title"]; ok {
		title := a.str("title")
		patch.Title = &title
	}
	if _, ok := a["difficulty"]; ok {
		d, err := a.difficulty()
		if err != nil {
			return "", err
		}
		patch.Difficulty = &d
	}
	return id, r.ledger.UpdateTask(id, patch)
}

func subtaskToggle(r *runner, a args) (string, error) {
	parent, err := r.ref(a, "parent")
	if err != nil {
		return "", err
	}
	idx, err := a.integer("index")
	if err != nil {
		return "", err
	}
	subtasks := subtasksOf(r.ledger.Snapshot(), parent)
	if idx < 0 || idx >= len(subtasks) {
		return "", fmt.Errorf("subtask index %d out of range for %s (%d subtasks)", idx, parent, len(subtasks))
	}
	id := subtasks[idx].ID
	return id, r.ledger.ToggleSubtask(parent, id)
}

// subtasksOf finds the subtasks of an active, completed or recurring task.
func subtasksOf(snap model.Snapshot, id string) []model.Subtask {
	for _, t := range snap.Tasks {
		if t.ID == id {
			return t.Subtasks
		}
	}
	for _, h := range snap.CompletedHistory {
		if h.ID == id && !h.IsRecurring {
			return h.Subtasks
		}
	}
	for _, def := range snap.RecurringTasks {
		if def.ID == id {
			return def.Subtasks
		}
	}
	return nil
}

func recurringAdd(r *runner, a args) (string, error) {
	d, err := a.difficulty()
	if err != nil {
		return "", err
	}
	subtasks, err := a.subtasks()
	if err != nil {
		return "", err
	}
	in := ledger.NewRecurringTask{
		Title:           a.str("title"),
		Notes:           a.str("notes"),
		Difficulty:      d,
		Subtasks:        subtasks,
		DistributeCoins: a.boolean("distribute"),
		Type:            model.RecurrenceType(a.str("type")),
	}
	if in.ActiveDays, err = a.optInt("active_days"); err != nil {
		return "", err
	}
	if in.BreakDays, err = a.optInt("break_days"); err != nil {
		return "", err
	}
	if s := a.str("cycle_start"); s != "" {
		date, err := appdate.Parse(s)
		if err != nil {
			return "", fmt.Errorf("cycle_start: %w", err)
		}
		in.CycleStartDate = date
	}
	def, err := r.ledger.AddRecurringTask(in)
	if err != nil {
		return "", err
	}
	return def.ID, r.bind(a, def.ID)
}

func rewardAdd(r *runner, a args) (string, error) {
	cost, err := a.integer("cost")
	if err != nil {
		return "", err
	}
	rw, err := r.ledger.AddReward(ledger.NewReward{
		Name:     a.str("name"),
		Category: a.str("category"),
		Cost:     cost,
	})
	if err != nil {
		return "", err
	}
	return rw.ID, r.bind(a, rw.ID)
}

func rewardClaim(r *runner, a args) (string, error) {
	id, err := r.ref(a, "reward")
	if err != nil {
		return "", err
	}
	_, err = r.ledger.ClaimReward(id)
	return id, err
}

func shopAdd(r *runner, a args) (string, error) {
	cost, err := a.integer("base_cost")
	if err != nil {
		return "", err
	}
	scaling, err := a.optFloat("scaling")
	if err != nil {
		return "", err
	}
	item, err := r.ledger.AddShopItem(ledger.NewShopItem{
		Name:        a.str("name"),
		BaseCost:    cost,
		Scaling:     scaling,
		ScalingType: model.ScalingType(a.str("scaling_type")),
	})
	if err != nil {
		return "", err
	}
	return item.ID, r.bind(a, item.ID)
}

func shopBuy(r *runner, a args) (string, error) {
	id, err := r.ref(a, "item")
	if err != nil {
		return "", err
	}
	_, err = r.ledger.Purchase(id)
	return id, err
}

func tick(r *runner, _ args) (string, error) {
	r.ledger.Tick()
	return "", nil
}

func prepare(r *runner, _ args) (string, error) {
	r.ledger.Prepare()
	return "", nil
}

// args reads typed values from decoded YAML.
type args map[string]any

func (a args) str(key string) string {
	switch v := a[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func (a args) boolean(key string) bool {
	v, _ := a[key].(bool)
	return v
}

func (a args) integer(key string) (int, error) {
	v, ok := a[key]
	if !ok {
		return 0, fmt.Errorf("%s is required", key)
	}
	return toInt(key, v)
}

func (a args) optInt(key string) (int, error) {
	v, ok := a[key]
	if !ok {
		return 0, nil
	}
	return toInt(key, v)
}

func (a args) optFloat(key string) (float64, error) {
	switch v := a[key].(type) {
	case nil:
		return 0, nil
	case int:
		return float64(v), nil
	case float64:
		return v, nil
	default:
		return 0, fmt.Errorf("%s: want a number, got %T", key, v)
	}
}

func (a args) difficulty() (model.Difficulty, error) {
	return model.ParseDifficulty(a.str("difficulty"))
}

// subtasks reads a list of {title, coins} maps.
func (a args) subtasks() ([]ledger.NewSubtask, error) {
	raw, ok := a["subtasks"]
	if !ok {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("subtasks: want a list, got %T", raw)
	}
	out := make([]ledger.NewSubtask, 0, len(list))
	for i, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("subtasks[%d]: want a map, got %T", i, item)
		}
		sa := args(m)
		coins, err := sa.optInt("coins")
		if err != nil {
			return nil, fmt.Errorf("subtasks[%d]: %w", i, err)
		}
		out = append(out, ledger.NewSubtask{Title: sa.str("title"), Coins: coins})
	}
	return out, nil
}

func toInt(key string, v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("%s: want an integer, got %v", key, n)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("%s: want an integer, got %T", key, v)
	}
}
