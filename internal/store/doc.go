// Package store persists taskcoin snapshots.
//
// A snapshot is saved and loaded as one opaque JSON document. Two backends
// implement Store:
//
//   - SQLite: the current document plus a bounded revision history in one
//     database file. WAL mode, NORMAL synchronous, 5s busy timeout.
//   - File: a JSON file guarded by an flock lock file, written with
//     temp file + atomic rename, keeping rotating timestamped backups.
//
// Both also implement Feed: Subscribe polls for changes made by any writer,
// including this process, and hands the new document to a handler. Callers
// are expected to drop echoes of their own saves (see engine).
//
// # Failure modes
//
//   - Load returns ErrNotFound when nothing was ever saved.
//   - A document that is not valid JSON is reported as ErrMalformed. The file
//     backend first falls back to the newest backup that still decodes.
package store
