// Package model defines the user-scoped state snapshot and its entities.
//
// The snapshot is the single document handed to the persistence collaborator.
// This package contains type definitions, encoding and small structural
// helpers only; the rules that mutate a snapshot live in internal/ledger.
//
// Key constraints:
//   - Prices are never stored; ShopItem carries only the pricing inputs.
//   - A one-off Task lives either in Snapshot.Tasks (active) or as a
//     non-recurring HistoryEntry in Snapshot.CompletedHistory, never both.
//   - One-time repair flags are stored as top-level boolean keys of the
//     encoded document and surface here as Snapshot.Flags.
//   - JSON keys use camelCase to stay interoperable with existing documents.
package model
