package harness

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/roach88/taskcoin/internal/analytics"
	"github.com/roach88/taskcoin/internal/appdate"
	"github.com/roach88/taskcoin/internal/ledger"
	"github.com/roach88/taskcoin/internal/model"
	"github.com/roach88/taskcoin/internal/shop"
	"github.com/roach88/taskcoin/internal/testutil"
)

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq    int64  `json:"seq"`
	At     string `json:"at"`
	Action string `json:"action"`
	// ID is the entity the step created or touched.
	ID string `json:"id,omitempty"`
	// Outcome is "ok" or the ledger error code.
	Outcome string `json:"outcome"`
	Balance int    `json:"balance"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace contains every setup and flow step in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Final is the snapshot after the last step.
	Final model.Snapshot `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

// runner holds the state of one scenario run.
type runner struct {
	ledger *ledger.Ledger
	clock  *testutil.ManualClock
	loc    *time.Location
	refs   map[string]string
	seq    int64
}

// ref resolves the argument key to an id, through bound names first.
func (r *runner) ref(a args, key string) (string, error) {
	v := a.str(key)
	if v == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	if id, ok := r.refs[v]; ok {
		return id, nil
	}
	return v, nil
}

// bind records the "as" name of a created entity.
func (r *runner) bind(a args, id string) error {
	name := a.str("as")
	if name == "" {
		return nil
	}
	if _, dup := r.refs[name]; dup {
		return fmt.Errorf("name %q is already bound", name)
	}
	r.refs[name] = id
	return nil
}

func (r *runner) resolve(name string) string {
	if id, ok := r.refs[name]; ok {
		return id
	}
	return name
}

// Run executes a scenario on a fresh ledger and returns the result.
//
// Execution flow:
//  1. Create a ledger on a manual clock and prepare it like a first load
//  2. Execute setup steps (any failure aborts the run)
//  3. Execute flow steps, checking their expectations
//  4. Evaluate assertions against the final state
func Run(scenario *Scenario) (*Result, error) {
	loc := time.UTC
	if scenario.Timezone != "" {
		var err error
		if loc, err = time.LoadLocation(scenario.Timezone); err != nil {
			return nil, fmt.Errorf("timezone: %w", err)
		}
	}
	start, err := time.ParseInLocation(wallLayout, scenario.Start, loc)
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	var holidays []shop.Holiday
	for _, s := range scenario.Holidays {
		h, err := shop.ParseHoliday(s)
		if err != nil {
			return nil, fmt.Errorf("holidays: %w", err)
		}
		holidays = append(holidays, h)
	}

	clk := testutil.NewManualClock(start)
	r := &runner{
		ledger: ledger.New(model.NewSnapshot(),
			ledger.WithClock(clk),
			ledger.WithResolver(appdate.NewResolver(loc)),
			ledger.WithHolidays(holidays...),
			ledger.WithIDs(ledger.NewSequentialIDs("id")),
			ledger.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), // Suppress logs
		),
		clock: clk,
		loc:   loc,
		refs:  map[string]string{},
	}
	r.ledger.Prepare()

	result := NewResult()
	for i, step := range scenario.Setup {
		ev, err := r.exec(step)
		result.Trace = append(result.Trace, ev)
		if err != nil {
			return nil, fmt.Errorf("setup[%d] %s: %w", i, step.Invoke, err)
		}
	}

	for i, step := range scenario.Flow {
		ev, err := r.exec(step)
		result.Trace = append(result.Trace, ev)
		checkStep(result, i, step, ev, err)
	}

	result.Final = r.ledger.Snapshot()
	for i, a := range scenario.Assertions {
		if err := r.check(a, result); err != nil {
			result.AddError("assertions[%d] %s: %v", i, a.Type, err)
		}
	}
	return result, nil
}

// exec moves the clock and applies one step.
func (r *runner) exec(step Step) (TraceEvent, error) {
	switch {
	case step.At != "":
		at, err := time.ParseInLocation(wallLayout, step.At, r.loc)
		if err != nil {
			return TraceEvent{}, fmt.Errorf("at: %w", err)
		}
		r.clock.Set(at)
	case step.Advance != "":
		d, err := time.ParseDuration(step.Advance)
		if err != nil {
			return TraceEvent{}, fmt.Errorf("advance: %w", err)
		}
		r.clock.Advance(d)
	}

	r.seq++
	ev := TraceEvent{
		Seq:    r.seq,
		At:     r.clock.Now().In(r.loc).Format(wallLayout),
		Action: step.Invoke,
	}

	fn, ok := actions[step.Invoke]
	if !ok {
		return ev, fmt.Errorf("unknown action %q", step.Invoke)
	}
	id, err := fn(r, args(step.Args))
	ev.ID = id
	ev.Outcome = outcome(err)
	ev.Balance = r.ledger.Stats().CurrentBalance
	return ev, err
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if code := ledger.CodeOf(err); code != "" {
		return string(code)
	}
	return "error"
}

func checkStep(result *Result, i int, step Step, ev TraceEvent, err error) {
	want := "ok"
	if step.Expect != nil && step.Expect.Error != "" {
		want = step.Expect.Error
	}
	if ev.Outcome != want {
		msg := fmt.Sprintf("flow[%d] %s: want outcome %s, got %s", i, step.Invoke, want, ev.Outcome)
		if err != nil {
			msg += ": " + err.Error()
		}
		result.AddError("%s", msg)
	}
	if step.Expect != nil && step.Expect.Balance != nil && *step.Expect.Balance != ev.Balance {
		result.AddError("flow[%d] %s: want balance %d, got %d", i, step.Invoke, *step.Expect.Balance, ev.Balance)
	}
}

// check evaluates one assertion against the final state.
func (r *runner) check(a Assertion, result *Result) error {
	snap := result.Final
	switch a.Type {
	case AssertStats:
		return matchStats(snap.Stats, a.Expect)

	case AssertCount:
		got := collectionSize(snap, a.Collection)
		if got != a.Count {
			return fmt.Errorf("want %d %s, got %d", a.Count, a.Collection, got)
		}

	case AssertPrice:
		q, ok := r.ledger.Quote(r.resolve(a.Item))
		if !ok {
			return fmt.Errorf("item %s not in catalog", a.Item)
		}
		if q.Price != a.Price {
			return fmt.Errorf("want price %d for %s, got %d", a.Price, a.Item, q.Price)
		}

	case AssertDue:
		var got []string
		for _, st := range r.ledger.DueToday() {
			if st.Active && !st.Done {
				got = append(got, st.Task.ID)
			}
		}
		want := make([]string, 0, len(a.IDs))
		for _, name := range a.IDs {
			want = append(want, r.resolve(name))
		}
		if got == nil {
			got = []string{}
		}
		if !reflect.DeepEqual(want, got) {
			return fmt.Errorf("want due %v, got %v", want, got)
		}

	case AssertConsistency:
		period, err := analytics.ParsePeriod(a.Period)
		if err != nil {
			return err
		}
		buckets := analytics.Consistency(snap, r.ledger.Resolver(), period, r.clock.Now())
		for _, b := range buckets {
			if b.Label != a.Label {
				continue
			}
			if math.Abs(b.Rate-a.Rate) > 1e-9 {
				return fmt.Errorf("want rate %v for %s, got %v", a.Rate, a.Label, b.Rate)
			}
			return nil
		}
		labels := make([]string, 0, len(buckets))
		for _, b := range buckets {
			labels = append(labels, b.Label)
		}
		return fmt.Errorf("no bucket %s (have %s)", a.Label, strings.Join(labels, ", "))

	case AssertBalanced:
		if !snap.Stats.Balanced() {
			st := snap.Stats
			return fmt.Errorf("earned %d != balance %d + spent %d", st.TotalCoinsEarned, st.CurrentBalance, st.CoinsSpent)
		}

	case AssertTraceCount:
		got := 0
		for _, ev := range result.Trace {
			if ev.Action == a.Action {
				got++
			}
		}
		if got != a.Count {
			return fmt.Errorf("want %d invocations of %s, got %d", a.Count, a.Action, got)
		}

	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

func collectionSize(snap model.Snapshot, name string) int {
	switch name {
	case CollectionTasks:
		return len(snap.Tasks)
	case CollectionRecurring:
		return len(snap.RecurringTasks)
	case CollectionHistory:
		return len(snap.CompletedHistory)
	case CollectionRewards:
		return len(snap.Rewards)
	case CollectionCustomItems:
		return len(snap.CustomShopItems)
	case CollectionPins:
		return len(snap.FocusPinnedIDs)
	default:
		return -1
	}
}

// matchStats compares the expected fields with the encoded stats. Both sides
// go through JSON so that YAML ints and JSON numbers compare equal.
func matchStats(st model.Stats, expect map[string]any) error {
	actual, err := toJSONMap(st)
	if err != nil {
		return err
	}
	want, err := toJSONMap(expect)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(want))
	for key := range want {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var mismatches []string
	for _, key := range keys {
		w := want[key]
		g, ok := actual[key]
		if !ok {
			mismatches = append(mismatches, fmt.Sprintf("%s: missing", key))
			continue
		}
		if !reflect.DeepEqual(w, g) {
			mismatches = append(mismatches, fmt.Sprintf("%s: want %v, got %v", key, w, g))
		}
	}
	if len(mismatches) > 0 {
		return fmt.Errorf("%s", strings.Join(mismatches, "; "))
	}
	return nil
}

func toJSONMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}
