// Package analytics computes consistency rates and streaks from a snapshot.
//
// Everything here is a pure function of the snapshot, a resolver and a
// reference instant. Daily rates use the same schedule.IsActiveOn as the
// ledger, so a past day is judged by exactly the rule that decided whether
// the task was due on it.
package analytics
