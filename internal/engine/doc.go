// Package engine runs a Ledger as a single-writer event loop.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// Every mutation of the snapshot happens in the one goroutine running
// Engine.Run. Three kinds of events reach it:
//   - actions submitted by callers through Do
//   - periodic ticks (expiration sweep, stale completion purge)
//   - inbound documents from the store's change feed
//
// Event Processing Flow:
//  1. Events are enqueued to an unbounded FIFO queue
//  2. Run dequeues them one at a time and applies them to the Ledger
//  3. If the snapshot fingerprint changed, a clone is handed to the persister
//  4. The persister saves in its own goroutine; only the newest pending
//     snapshot is written
//
// Persistence is fire-and-forget. A failed save is logged, reported through
// the OnPersistError hook and otherwise ignored: the in-memory state stays
// the source of truth and the next change saves the whole snapshot again.
// Flush waits until everything submitted so far was attempted.
//
// Echo suppression: the change feed also reports this process's own saves.
// An inbound document whose fingerprint equals the last persisted or
// ingested fingerprint is dropped without touching the ledger.
package engine
