package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario defines a scripted ledger run.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Timezone is the IANA zone of the app day. Default: UTC.
	Timezone string `yaml:"timezone,omitempty"`

	// Start is the clock's initial wall time, "YYYY-MM-DD HH:MM".
	Start string `yaml:"start"`

	// Holidays are extra sale days ("YYYY-MM-DD" or "MM-DD").
	Holidays []string `yaml:"holidays,omitempty"`

	// Setup steps establish initial state. They must succeed.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow contains the steps under test.
	Flow []Step `yaml:"flow"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step moves the clock, then invokes one action.
type Step struct {
	// At sets the clock to an absolute wall time before the action.
	At string `yaml:"at,omitempty"`

	// Advance moves the clock forward by a Go duration before the action.
	Advance string `yaml:"advance,omitempty"`

	// Invoke is the action name, e.g. "task.complete".
	Invoke string `yaml:"invoke"`

	// Args are the action arguments.
	Args map[string]any `yaml:"args,omitempty"`

	// Expect checks the step outcome. Nil means the step must succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies the expected outcome of a step.
type Expect struct {
	// Error is the expected ledger error code. Empty means success.
	Error string `yaml:"error,omitempty"`

	// Balance is the expected balance after the step.
	Balance *int `yaml:"balance,omitempty"`
}

// Assertion validates the final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Expect is the subset of Stats fields to match (stats).
	Expect map[string]any `yaml:"expect,omitempty"`

	// Collection names the counted collection (count).
	Collection string `yaml:"collection,omitempty"`

	// Count is the expected size or number of invocations (count, trace_count).
	Count int `yaml:"count"`

	// Item is a shop item id or bound name (price).
	Item string `yaml:"item,omitempty"`

	// Price is the expected current price (price).
	Price int `yaml:"price,omitempty"`

	// IDs are the expected ids or bound names (due).
	IDs []string `yaml:"ids,omitempty"`

	// Period and Label select a consistency bucket; Rate is its expected value.
	Period string  `yaml:"period,omitempty"`
	Label  string  `yaml:"label,omitempty"`
	Rate   float64 `yaml:"rate,omitempty"`

	// Action is the action name (trace_count).
	Action string `yaml:"action,omitempty"`
}

// Assertion type constants.
const (
	AssertStats       = "stats"
	AssertCount       = "count"
	AssertPrice       = "price"
	AssertDue         = "due"
	AssertConsistency = "consistency"
	AssertBalanced    = "balanced"
	AssertTraceCount  = "trace_count"
)

// Countable collections.
const (
	CollectionTasks       = "tasks"
	CollectionRecurring   = "recurring"
	CollectionHistory     = "history"
	CollectionRewards     = "rewards"
	CollectionCustomItems = "custom_items"
	CollectionPins        = "pins"
)

// wallLayout is the time format of Start and At.
const wallLayout = "2006-01-02 15:04"

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Start == "" {
		return fmt.Errorf("start is required")
	}
	if s.Timezone != "" {
		if _, err := time.LoadLocation(s.Timezone); err != nil {
			return fmt.Errorf("timezone: %w", err)
		}
	}
	if _, err := time.Parse(wallLayout, s.Start); err != nil {
		return fmt.Errorf("start: want %q, got %q", wallLayout, s.Start)
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
		if step.Expect != nil {
			return fmt.Errorf("setup[%d]: setup steps cannot have expect", i)
		}
	}
	for i, step := range s.Flow {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(step Step) error {
	if step.Invoke == "" {
		return fmt.Errorf("invoke is required")
	}
	if _, ok := actions[step.Invoke]; !ok {
		return fmt.Errorf("unknown action %q", step.Invoke)
	}
	if step.At != "" && step.Advance != "" {
		return fmt.Errorf("at and advance are mutually exclusive")
	}
	if step.At != "" {
		if _, err := time.Parse(wallLayout, step.At); err != nil {
			return fmt.Errorf("at: want %q, got %q", wallLayout, step.At)
		}
	}
	if step.Advance != "" {
		d, err := time.ParseDuration(step.Advance)
		if err != nil {
			return fmt.Errorf("advance: %w", err)
		}
		if d < 0 {
			return fmt.Errorf("advance: clock cannot move backwards")
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("type is required")
	case AssertStats:
		if len(a.Expect) == 0 {
			return fmt.Errorf("expect is required for stats")
		}
	case AssertCount:
		switch a.Collection {
		case CollectionTasks, CollectionRecurring, CollectionHistory,
			CollectionRewards, CollectionCustomItems, CollectionPins:
		default:
			return fmt.Errorf("unknown collection %q", a.Collection)
		}
		if a.Count < 0 {
			return fmt.Errorf("count must be non-negative")
		}
	case AssertPrice:
		if a.Item == "" {
			return fmt.Errorf("item is required for price")
		}
	case AssertDue, AssertBalanced:
	case AssertConsistency:
		if a.Period == "" || a.Label == "" {
			return fmt.Errorf("period and label are required for consistency")
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("action is required for trace_count")
		}
		if a.Count < 0 {
			return fmt.Errorf("count must be non-negative for trace_count")
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
