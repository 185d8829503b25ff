package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/taskcoin/internal/clock"
	"github.com/roach88/taskcoin/internal/model"
)

var (
	// ErrNotFound is returned by Load when no snapshot was ever saved.
	ErrNotFound = errors.New("store: no snapshot saved")

	// ErrMalformed is returned when a stored document cannot be decoded.
	ErrMalformed = errors.New("store: malformed snapshot")
)

// Store loads and saves whole snapshots. A save is all-or-nothing.
type Store interface {
	// Load returns the last saved document or ErrNotFound.
	Load(ctx context.Context) ([]byte, error)
	// Save persists snap, replacing the previous document.
	Save(ctx context.Context, snap model.Snapshot) error
	Close() error
}

// Handler receives a changed document.
type Handler func(data []byte)

// Feed notifies about stored snapshot changes.
type Feed interface {
	// Subscribe calls h for every change observed after the call, until ctx
	// is done. It returns once polling has started.
	Subscribe(ctx context.Context, h Handler) error
}

// Backend names a Store implementation.
type Backend string

const (
	BackendSQLite Backend = "sqlite"
	BackendFile   Backend = "file"
)

// DefaultBackups is the number of old revisions or backup files kept.
const DefaultBackups = 10

// DefaultPollInterval is how often Subscribe checks for changes.
const DefaultPollInterval = time.Second

type options struct {
	clock        clock.Clock
	backups      int
	pollInterval time.Duration
	logger       *slog.Logger
}

// Option configures a store.
type Option func(*options)

// WithClock sets the clock used to stamp saves and name backups.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithBackups sets how many old revisions (SQLite) or backup files (File)
// are kept. Zero disables them.
func WithBackups(n int) Option {
	return func(o *options) {
		if n < 0 {
			n = 0
		}
		o.backups = n
	}
}

// WithPollInterval sets how often Subscribe checks for changes.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func buildOptions(opts []Option) options {
	o := options{
		clock:        clock.System{},
		backups:      DefaultBackups,
		pollInterval: DefaultPollInterval,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Persistent is a Store that also offers a change feed.
type Persistent interface {
	Store
	Feed
}

// Open opens the backend at path.
func Open(backend Backend, path string, opts ...Option) (Persistent, error) {
	switch backend {
	case BackendSQLite, "":
		return OpenSQLite(path, opts...)
	case BackendFile:
		return OpenFile(path, opts...)
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

// poll runs check every interval until ctx is done.
func poll(ctx context.Context, interval time.Duration, check func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}
