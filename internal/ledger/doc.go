// Package ledger implements the completion and economy rules over one
// in-memory snapshot.
//
// A Ledger exclusively owns its *model.Snapshot. Every mutating method is a
// synchronous transformation of that snapshot; the ledger never performs
// I/O. Callers persist Snapshot() clones themselves.
//
// # State machines
//
// One-off tasks move between two collections:
//
//	Active (Snapshot.Tasks) --CompleteTask--> Completed (Snapshot.CompletedHistory)
//	Completed --UncompleteTask--> Active
//
// Recurring tasks are Due or DoneToday per (task, application date). DoneToday
// is recorded in Snapshot.RecurringCompletions and as one synthetic history
// entry; un-completing removes both.
//
// # Economy
//
// Completing credits the tier reward to both TotalCoinsEarned and
// CurrentBalance and bumps the per-difficulty counter; un-completing reverses
// exactly the same amounts. Spending (rewards, shop) debits only the balance
// and adds to CoinsSpent, so TotalCoinsEarned - CurrentBalance == CoinsSpent
// holds after every operation.
//
// For a parent that distributes its reward over subtasks, each subtask
// credits its own share when checked and the parent transition credits only
// the remainder (tier reward minus coins of checked subtasks). The remainder
// is computed from the live subtask flags both ways, which keeps
// un-completion an exact inverse.
//
// # Failure policy
//
// Unknown ids are a no-op: the method returns nil and logs at debug level.
// Validation failures return *Error before any mutation.
package ledger
