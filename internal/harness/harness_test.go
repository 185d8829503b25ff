package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios_Golden(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, path := range files {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_ReportsFailedExpectations(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: failing
description: expectations that do not hold
start: "2026-03-10 09:00"
flow:
  - invoke: task.add
    args: { title: Dishes, difficulty: quick, as: dishes }
  - invoke: task.complete
    args: { task: dishes }
    expect: { balance: 99 }
  - invoke: shop.buy
    args: { item: preset-sleep-in }
assertions:
  - type: count
    collection: history
    count: 5
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "want balance 99, got 5")
	assert.Contains(t, result.Errors[1], "want outcome ok, got INSUFFICIENT_FUNDS")
	assert.Contains(t, result.Errors[2], "want 5 history, got 1")
}

func TestRun_SetupFailureAborts(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: bad_setup
description: setup must succeed
start: "2026-03-10 09:00"
setup:
  - invoke: reward.add
    args: { name: "", cost: 10 }
flow:
  - invoke: tick
assertions:
  - type: balanced
`))
	require.NoError(t, err)

	_, err = Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "setup[0] reward.add")
}

func TestRun_TickSweepsExpiredTasks(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: expiry
description: expired tasks disappear on tick without coins
start: "2026-03-10 09:00"
setup:
  - invoke: task.add
    args: { title: Call bank, difficulty: easy, expires_in: 1h, as: bank }
  - invoke: focus.pin
    args: { task: bank }
flow:
  - advance: 2h
    invoke: tick
assertions:
  - type: count
    collection: tasks
    count: 0
  - type: count
    collection: pins
    count: 0
  - type: stats
    expect: { totalCoinsEarned: 0 }
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_CustomShopItemAndHolidaySale(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: holiday
description: holidays open a sale on weekdays
start: "2026-12-25 09:00"
holidays: ["12-25"]
setup:
  - invoke: task.add
    args: { title: Wrap presents, difficulty: epic, as: wrap }
  - invoke: task.complete
    args: { task: wrap }
  - invoke: shop.add
    args: { name: Board game, base_cost: 80, scaling: 2, scaling_type: multiply, as: game }
flow:
  - invoke: shop.buy
    args: { item: game }
    expect: { balance: 60 }
assertions:
  - type: price
    item: game
    price: 57
  - type: count
    collection: custom_items
    count: 1
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}
