package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/taskcoin/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on snapshot_history.saved_at
const currentSchemaVersion = 1

// Revision describes one saved document.
type Revision struct {
	Revision    int64     `json:"revision"`
	Fingerprint string    `json:"fingerprint"`
	SavedAt     time.Time `json:"savedAt"`
}

// SQLite stores snapshots in a SQLite database.
type SQLite struct {
	db   *sql.DB
	opts options
}

// OpenSQLite creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//
// This function is idempotent - safe to call multiple times.
func OpenSQLite(path string, opts ...Option) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLite{db: db, opts: buildOptions(opts)}, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Load returns the current document.
func (s *SQLite) Load(ctx context.Context) ([]byte, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM snapshots WHERE id = 1`).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if !json.Valid([]byte(doc)) {
		return nil, fmt.Errorf("load snapshot: %w", ErrMalformed)
	}
	return []byte(doc), nil
}

// Save writes snap as a new revision. Saving a document identical to the
// current one is a no-op and does not bump the revision.
func (s *SQLite) Save(ctx context.Context, snap model.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	fp, err := model.Fingerprint(snap)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	savedAt := s.opts.clock.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save snapshot: begin: %w", err)
	}
	defer tx.Rollback()

	var rev int64
	var current string
	err = tx.QueryRowContext(ctx, `SELECT revision, fingerprint FROM snapshots WHERE id = 1`).Scan(&rev, &current)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		rev = 0
	case err != nil:
		return fmt.Errorf("save snapshot: read revision: %w", err)
	case current == fp:
		return nil
	}
	rev++

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots (id, revision, fingerprint, document, saved_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			revision = excluded.revision,
			fingerprint = excluded.fingerprint,
			document = excluded.document,
			saved_at = excluded.saved_at
	`, rev, fp, string(data), savedAt); err != nil {
		return fmt.Errorf("save snapshot: write: %w", err)
	}

	if s.opts.backups > 0 {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO snapshot_history (revision, fingerprint, document, saved_at)
			VALUES (?, ?, ?, ?)
		`, rev, fp, string(data), savedAt); err != nil {
			return fmt.Errorf("save snapshot: history: %w", err)
		}
	}
	// Prune keeps the newest s.opts.backups revisions.
	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshot_history WHERE revision <= ?`, rev-int64(s.opts.backups)); err != nil {
		return fmt.Errorf("save snapshot: prune: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save snapshot: commit: %w", err)
	}
	s.opts.logger.Debug("snapshot saved", "backend", BackendSQLite, "revision", rev)
	return nil
}

// Revision returns the current revision number, 0 when nothing was saved.
func (s *SQLite) Revision(ctx context.Context) (int64, error) {
	var rev int64
	err := s.db.QueryRowContext(ctx, `SELECT revision FROM snapshots WHERE id = 1`).Scan(&rev)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read revision: %w", err)
	}
	return rev, nil
}

// Revisions lists the kept history, newest first.
func (s *SQLite) Revisions(ctx context.Context) ([]Revision, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT revision, fingerprint, saved_at
		FROM snapshot_history
		ORDER BY revision DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	defer rows.Close()

	var out []Revision
	for rows.Next() {
		var r Revision
		var savedAt string
		if err := rows.Scan(&r.Revision, &r.Fingerprint, &savedAt); err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		r.SavedAt, err = time.Parse(time.RFC3339Nano, savedAt)
		if err != nil {
			return nil, fmt.Errorf("parse saved_at %q: %w", savedAt, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LoadRevision returns the document of a kept revision.
func (s *SQLite) LoadRevision(ctx context.Context, rev int64) ([]byte, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM snapshot_history WHERE revision = ?`, rev).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load revision %d: %w", rev, err)
	}
	return []byte(doc), nil
}

// Subscribe polls the revision counter and hands every new document to h.
func (s *SQLite) Subscribe(ctx context.Context, h Handler) error {
	last, err := s.Revision(ctx)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	go poll(ctx, s.opts.pollInterval, func() {
		rev, err := s.Revision(ctx)
		if err != nil || rev == last {
			return
		}
		data, err := s.Load(ctx)
		if err != nil {
			s.opts.logger.Warn("change feed load failed", "backend", BackendSQLite, "error", err)
			return
		}
		last = rev
		h(data)
	})
	return nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 indexes snapshot history by save time.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_snapshot_history_saved_at
		ON snapshot_history(saved_at)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *SQLite) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
