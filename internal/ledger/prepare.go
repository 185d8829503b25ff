package ledger

import (
	"fmt"

	"github.com/roach88/taskcoin/internal/model"
)

// Report summarizes the maintenance run by Prepare, Tick and Ingest.
type Report struct {
	Seeded    bool           `json:"seeded,omitempty"`
	Expired   []string       `json:"expired,omitempty"`
	Reconcile Reconciliation `json:"reconcile"`
	Repairs   []RepairResult `json:"repairs,omitempty"`
}

// Changed reports whether the run mutated the snapshot.
func (r Report) Changed() bool {
	if r.Seeded || len(r.Expired) > 0 || r.Reconcile.Changed() {
		return true
	}
	// A repair sets its flag even when nothing else changed.
	return len(r.Repairs) > 0
}

// Prepare runs the load-time maintenance: seeding presets, the expiration
// sweep, reconciliation and any pending one-time repairs. It is safe to run
// on every load and after every ingest.
func (l *Ledger) Prepare() Report {
	l.snap.Normalize()
	var r Report
	r.Seeded = l.SeedPresets()
	r.Expired = l.SweepExpired()
	r.Reconcile = l.Reconcile()
	r.Repairs = l.ApplyRepairs()
	return r
}

// Tick runs the periodic maintenance. It never runs repairs.
func (l *Ledger) Tick() Report {
	var r Report
	r.Expired = l.SweepExpired()
	r.Reconcile.Purged = l.PurgeStaleCompletions()
	return r
}

// Ingest replaces the current state with an externally supplied document,
// shallow-merged over an empty snapshot, and prepares it. A document that
// cannot be decoded leaves the current state untouched.
func (l *Ledger) Ingest(data []byte) (Report, error) {
	snap, err := model.MergeOver(model.NewSnapshot(), data)
	if err != nil {
		return Report{}, fmt.Errorf("ingest: %w", err)
	}
	l.snap = &snap
	return l.Prepare(), nil
}
