package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/taskcoin/internal/model"
	"github.com/roach88/taskcoin/internal/store"
)

// persister saves snapshots off the Run goroutine. Only the newest pending
// snapshot is written; older ones it replaced are never saved.
type persister struct {
	store   store.Store
	logger  *slog.Logger
	onError func(error)

	mu        sync.Mutex
	pending   *model.Snapshot
	seq       int64
	requested uint64
	completed uint64
	lastErr   error
	progress  chan struct{} // closed and replaced after every attempt

	wake chan struct{} // buffered, size 1
}

func newPersister(s store.Store, logger *slog.Logger, onError func(error)) *persister {
	return &persister{
		store:    s,
		logger:   logger,
		onError:  onError,
		progress: make(chan struct{}),
		wake:     make(chan struct{}, 1),
	}
}

// submit queues snap for saving and returns immediately.
func (p *persister) submit(seq int64, snap model.Snapshot) {
	p.mu.Lock()
	p.pending = &snap
	p.seq = seq
	p.requested++
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// run saves pending snapshots until ctx is done, then makes a last attempt
// for whatever is still pending.
func (p *persister) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.drain(context.WithoutCancel(ctx))
			return
		case <-p.wake:
			p.drain(ctx)
		}
	}
}

func (p *persister) drain(ctx context.Context) {
	for {
		p.mu.Lock()
		snap, seq, target := p.pending, p.seq, p.requested
		p.pending = nil
		p.mu.Unlock()

		if snap == nil {
			return
		}

		var perr error
		if err := p.store.Save(ctx, *snap); err != nil {
			perr = &PersistError{Seq: seq, Err: err}
			p.logger.Error("snapshot save failed",
				"seq", seq,
				"error", err,
				"event", "persist_failed",
			)
			if p.onError != nil {
				p.onError(perr)
			}
		} else {
			p.logger.Debug("snapshot saved", "seq", seq)
		}

		p.mu.Lock()
		p.completed = target
		p.lastErr = perr
		close(p.progress)
		p.progress = make(chan struct{})
		p.mu.Unlock()
	}
}

// flush blocks until every snapshot submitted before the call was attempted.
// It returns the error of the last attempt.
func (p *persister) flush(ctx context.Context) error {
	p.mu.Lock()
	target := p.requested
	p.mu.Unlock()

	for {
		p.mu.Lock()
		if p.completed >= target {
			err := p.lastErr
			p.mu.Unlock()
			return err
		}
		ch := p.progress
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}
