// Package harness runs scripted scenarios against a ledger.
//
// A scenario drives one ledger on a manual clock through a list of actions
// and checks the final state. Runs are deterministic: the clock only moves
// when a step says so and ids come from a sequential generator.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	timezone: UTC                # optional, default UTC
//	start: "2026-03-10 09:00"    # wall-clock start in timezone
//	holidays: ["12-25"]          # optional sale days
//	setup:
//	  - invoke: task.add
//	    args: { title: Laundry, difficulty: easy, as: laundry }
//	flow:
//	  - advance: 2h
//	    invoke: task.complete
//	    args: { task: laundry }
//	    expect: { balance: 10 }
//	  - at: "2026-03-11 07:00"
//	    invoke: shop.buy
//	    args: { item: preset-coffee }
//	    expect: { error: INSUFFICIENT_FUNDS }
//	assertions:
//	  - type: stats
//	    expect: { currentBalance: 10 }
//	  - type: count
//	    collection: history
//	    count: 1
//
// The "as" argument binds the id of a created entity to a name that later
// steps and assertions may use instead of the id.
//
// # Assertion Types
//
//   - stats: subset match against the encoded Stats object
//   - count: size of tasks, recurring, history, rewards, custom_items or pins
//   - price: current price of a shop item
//   - due: recurring tasks active and not yet done today, in order
//   - consistency: rate of one bucket of the consistency report
//   - balanced: the economy invariant earned = balance + spent holds
//   - trace_count: how many flow and setup steps invoked an action
package harness
