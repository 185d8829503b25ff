package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/gofrs/flock"

	"github.com/roach88/taskcoin/internal/model"
)

const backupStamp = "20060102-150405.000000000"

// File stores the snapshot as an indented JSON document.
//
// Every load and save holds an exclusive lock on path + ".lock", so several
// processes can share one file. mu serializes callers within this process,
// since one flock handle does not exclude itself.
type File struct {
	path string
	mu   sync.Mutex
	flk  *flock.Flock
	opts options
}

// OpenFile prepares a file store at path, creating its directory.
// The document itself is created on the first Save.
func OpenFile(path string, opts ...Option) (*File, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return &File{
		path: path,
		flk:  flock.New(path + ".lock"),
		opts: buildOptions(opts),
	}, nil
}

// Close releases the lock handle.
func (f *File) Close() error {
	return f.flk.Close()
}

// Path returns the document path.
func (f *File) Path() string {
	return f.path
}

// Load returns the document. When the main file is not valid JSON the newest
// backup that is valid is returned instead.
func (f *File) Load(ctx context.Context) ([]byte, error) {
	if err := f.lock(ctx); err != nil {
		return nil, err
	}
	defer f.unlock()
	return f.loadLocked()
}

func (f *File) loadLocked() ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if json.Valid(data) {
		return data, nil
	}

	for _, candidate := range f.backupsNewestFirst() {
		b, err := os.ReadFile(candidate)
		if err != nil || !json.Valid(b) {
			continue
		}
		f.opts.logger.Warn("snapshot file corrupt, recovered from backup",
			"path", f.path,
			"backup", filepath.Base(candidate),
		)
		return b, nil
	}
	return nil, fmt.Errorf("load snapshot %s: %w", f.path, ErrMalformed)
}

// Save backs up the current document, then replaces it through a temp file
// and an atomic rename. Saving an identical document is a no-op.
func (f *File) Save(ctx context.Context, snap model.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	data = append(data, '\n')

	if err := f.lock(ctx); err != nil {
		return err
	}
	defer f.unlock()

	current, err := os.ReadFile(f.path)
	switch {
	case err == nil && bytes.Equal(current, data):
		return nil
	case err == nil:
		if err := f.backup(current); err != nil {
			return fmt.Errorf("save snapshot: backup: %w", err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("save snapshot: %w", err)
	}

	if err := writeAtomic(f.path, data); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	f.opts.logger.Debug("snapshot saved", "backend", BackendFile, "path", f.path)
	return nil
}

// Subscribe polls the document and hands every changed version to h.
func (f *File) Subscribe(ctx context.Context, h Handler) error {
	last, err := os.ReadFile(f.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("subscribe: %w", err)
	}
	go poll(ctx, f.opts.pollInterval, func() {
		data, err := f.Load(ctx)
		if err != nil || bytes.Equal(data, last) {
			return
		}
		last = data
		h(data)
	})
	return nil
}

// Backups lists the kept backup files, newest first.
func (f *File) Backups() []string {
	return f.backupsNewestFirst()
}

func (f *File) lock(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	f.mu.Lock()
	if err := f.flk.Lock(); err != nil {
		f.mu.Unlock()
		return fmt.Errorf("failed to acquire lock for %s: %w", f.path, err)
	}
	return nil
}

func (f *File) unlock() {
	_ = f.flk.Unlock()
	f.mu.Unlock()
}

func (f *File) backup(data []byte) error {
	if f.opts.backups == 0 {
		return nil
	}
	stamp := f.opts.clock.Now().UTC().Format(backupStamp)
	if err := os.WriteFile(fmt.Sprintf("%s.bak.%s", f.path, stamp), data, 0o644); err != nil {
		return err
	}
	return f.pruneBackups()
}

func (f *File) pruneBackups() error {
	files, err := filepath.Glob(f.path + ".bak.*")
	if err != nil {
		return err
	}
	if len(files) <= f.opts.backups {
		return nil
	}
	// Timestamps sort lexically.
	sort.Strings(files)
	for _, old := range files[:len(files)-f.opts.backups] {
		if err := os.Remove(old); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

func (f *File) backupsNewestFirst() []string {
	files, err := filepath.Glob(f.path + ".bak.*")
	if err != nil {
		return nil
	}
	sort.Sort(sort.Reverse(sort.StringSlice(files)))
	return files
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
