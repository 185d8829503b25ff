package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/taskcoin/internal/ledger"
	"github.com/roach88/taskcoin/internal/model"
	"github.com/roach88/taskcoin/internal/store"
)

// Action mutates or reads the ledger. It runs on the Run goroutine and must
// not retain l after returning.
type Action func(l *ledger.Ledger) error

// Notice describes a processed tick or inbound document.
type Notice struct {
	Seq    int64
	Type   EventType
	Report ledger.Report
	Err    error
}

// Engine is the single-writer event loop around one Ledger.
//
// CRITICAL: All ledger access happens in the Run goroutine. External callers
// use Do to submit work.
//
// Thread-safety model:
//   - Do(), Enqueue(), Flush(), Stop(): safe from any goroutine
//   - Load(): before Run, from the goroutine that will start Run
//   - Run(): must be called from exactly one goroutine
type Engine struct {
	ledger    *ledger.Ledger
	store     store.Store
	feed      store.Feed
	queue     *eventQueue
	seq       *Sequence
	persister *persister
	logger    *slog.Logger

	tickInterval time.Duration
	validate     func([]byte) error
	observe      func(Notice)
	onPersistErr func(error)

	// lastFP is the fingerprint of the last state handed to the persister
	// or ingested from the feed. Run goroutine only.
	lastFP string
}

// Option configures an Engine.
type Option func(*Engine)

// WithTickInterval runs the periodic maintenance every d. Zero disables it.
func WithTickInterval(d time.Duration) Option {
	return func(e *Engine) {
		e.tickInterval = d
	}
}

// WithFeed makes Run ingest documents reported by f. Usually f is the same
// store the engine saves to.
func WithFeed(f store.Feed) Option {
	return func(e *Engine) {
		e.feed = f
	}
}

// WithValidator checks loaded and inbound documents before they replace the
// ledger state. A rejected inbound document is logged and dropped.
func WithValidator(v func(data []byte) error) Option {
	return func(e *Engine) {
		e.validate = v
	}
}

// WithObserver is called on the Run goroutine after every tick and inbound
// document.
func WithObserver(fn func(Notice)) Option {
	return func(e *Engine) {
		e.observe = fn
	}
}

// WithPersistErrorHook is called from the persister goroutine after every
// failed save, with a *PersistError.
func WithPersistErrorHook(fn func(error)) Option {
	return func(e *Engine) {
		e.onPersistErr = fn
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an Engine driving l and saving to s.
func New(l *ledger.Ledger, s store.Store, opts ...Option) *Engine {
	e := &Engine{
		ledger: l,
		store:  s,
		queue:  newEventQueue(),
		seq:    NewSequence(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.persister = newPersister(s, e.logger, e.onPersistErr)
	return e
}

// Load reads the stored document into the ledger and prepares it. With
// nothing stored the current ledger state is prepared instead. The result
// is submitted for saving only if preparation changed it.
//
// Load must run before Run. The save itself happens once Run starts.
func (e *Engine) Load(ctx context.Context) (ledger.Report, error) {
	data, err := e.store.Load(ctx)
	switch {
	case errors.Is(err, store.ErrNotFound):
		e.logger.Info("no stored snapshot, starting fresh")
		report := e.ledger.Prepare()
		e.persistIfChanged(e.seq.Next())
		return report, nil
	case err != nil:
		return ledger.Report{}, fmt.Errorf("load snapshot: %w", err)
	}

	if e.validate != nil {
		if err := e.validate(data); err != nil {
			return ledger.Report{}, fmt.Errorf("load snapshot: %w", err)
		}
	}
	fp, err := fingerprintOf(data)
	if err != nil {
		return ledger.Report{}, fmt.Errorf("load snapshot: %w", err)
	}
	report, err := e.ledger.Ingest(data)
	if err != nil {
		return ledger.Report{}, fmt.Errorf("load snapshot: %w", err)
	}
	e.lastFP = fp
	e.persistIfChanged(e.seq.Next())

	e.logger.Info("snapshot loaded",
		"changed", report.Changed(),
		"repairs", len(report.Repairs),
	)
	return report, nil
}

// Do runs action on the Run goroutine and returns its error. The resulting
// state, if changed, is saved asynchronously; use Flush to wait for it.
func (e *Engine) Do(ctx context.Context, name string, action Action) error {
	reply := make(chan error, 1)
	if !e.queue.Enqueue(Event{Type: EventTypeAction, Name: name, Action: action, reply: reply}) {
		return ErrStopped
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-reply:
		return err
	}
}

// Enqueue submits an event for processing by the Run loop.
// Thread-safe: may be called from any goroutine.
//
// Returns false if the engine has been stopped.
func (e *Engine) Enqueue(ev Event) bool {
	return e.queue.Enqueue(ev)
}

// Flush waits until every change made so far was handed to the store, and
// returns the error of the latest save attempt.
func (e *Engine) Flush(ctx context.Context) error {
	return e.persister.flush(ctx)
}

// Stop stops accepting events. Run processes what is already queued, makes
// a last save attempt and returns.
func (e *Engine) Stop() {
	e.queue.Close()
}

// Run starts the single-writer event loop.
// Blocks until context is cancelled or Stop() is called.
//
// CRITICAL: Must be called from exactly ONE goroutine.
//
// ERROR HANDLING: Action errors go back to the Do caller. Tick and inbound
// failures are logged and processing continues.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine starting", "tick_interval", e.tickInterval)

	persistCtx, stopPersist := context.WithCancel(ctx)
	persistDone := make(chan struct{})
	go func() {
		defer close(persistDone)
		e.persister.run(persistCtx)
	}()
	defer func() {
		stopPersist()
		<-persistDone
	}()

	if e.feed != nil {
		err := e.feed.Subscribe(ctx, func(data []byte) {
			e.queue.Enqueue(Event{Type: EventTypeInbound, Name: "feed", Data: data})
		})
		if err != nil {
			e.queue.Close()
			return fmt.Errorf("subscribe to store changes: %w", err)
		}
	}

	var tickC <-chan time.Time
	if e.tickInterval > 0 {
		ticker := time.NewTicker(e.tickInterval)
		defer ticker.Stop()
		tickC = ticker.C
	}

	for {
		// Try non-blocking dequeue first
		event, ok := e.queue.TryDequeue()
		if ok {
			e.processEvent(event)
			continue
		}

		// No event ready - wait for signal, tick or context cancellation
		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping: context cancelled")
			e.queue.Close()
			e.rejectPending()
			return ctx.Err()

		case <-tickC:
			e.processEvent(Event{Type: EventTypeTick, Name: "tick"})

		case <-e.queue.Wait():
			// The signal channel closes when the queue is closed,
			// which will cause this case to fire immediately
			if e.queue.Len() == 0 && e.queue.isClosed() {
				e.logger.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// rejectPending answers queued actions that will never run.
func (e *Engine) rejectPending() {
	for {
		ev, ok := e.queue.TryDequeue()
		if !ok {
			return
		}
		if ev.reply != nil {
			ev.reply <- ErrStopped
		}
	}
}

// processEvent routes an event to the appropriate handler.
// CRITICAL: Called only from Run() goroutine - single-writer guarantee.
func (e *Engine) processEvent(ev Event) {
	seq := e.seq.Next()
	switch ev.Type {
	case EventTypeAction:
		e.processAction(seq, ev)
	case EventTypeTick:
		e.processTick(seq)
	case EventTypeInbound:
		e.processInbound(seq, ev.Data)
	default:
		e.logger.Error("unknown event type",
			"seq", seq,
			"type", int(ev.Type),
			"name", ev.Name,
		)
		if ev.reply != nil {
			ev.reply <- fmt.Errorf("unknown event type: %d", ev.Type)
		}
	}
}

func (e *Engine) processAction(seq int64, ev Event) {
	var err error
	if ev.Action == nil {
		err = fmt.Errorf("action event %q missing action", ev.Name)
	} else {
		err = ev.Action(e.ledger)
	}
	e.logger.Debug("action processed", "seq", seq, "name", ev.Name, "error", err)

	e.persistIfChanged(seq)
	if ev.reply != nil {
		ev.reply <- err
	}
}

func (e *Engine) processTick(seq int64) {
	report := e.ledger.Tick()
	if report.Changed() {
		e.logger.Info("tick maintenance",
			"seq", seq,
			"expired", len(report.Expired),
			"purged", report.Reconcile.Purged,
		)
		e.persistIfChanged(seq)
	}
	e.notify(Notice{Seq: seq, Type: EventTypeTick, Report: report})
}

// processInbound replaces the ledger state with a document written by
// another process. Documents matching the last known state are echoes of
// this process's own saves and are dropped.
func (e *Engine) processInbound(seq int64, data []byte) {
	fp, err := fingerprintOf(data)
	if err == nil && e.validate != nil {
		err = e.validate(data)
	}
	if err != nil {
		e.logger.Warn("inbound snapshot rejected",
			"seq", seq,
			"error", err,
			"event", "inbound_rejected",
		)
		e.notify(Notice{Seq: seq, Type: EventTypeInbound, Err: err})
		return
	}
	if fp == e.lastFP {
		e.logger.Debug("inbound snapshot is an echo", "seq", seq)
		return
	}

	report, err := e.ledger.Ingest(data)
	if err != nil {
		e.logger.Warn("inbound snapshot rejected",
			"seq", seq,
			"error", err,
			"event", "inbound_rejected",
		)
		e.notify(Notice{Seq: seq, Type: EventTypeInbound, Err: err})
		return
	}
	e.lastFP = fp
	e.logger.Info("inbound snapshot applied", "seq", seq, "changed", report.Changed())

	e.persistIfChanged(seq)
	e.notify(Notice{Seq: seq, Type: EventTypeInbound, Report: report})
}

// persistIfChanged hands the current state to the persister when its
// fingerprint differs from the last known one.
func (e *Engine) persistIfChanged(seq int64) {
	snap := e.ledger.Snapshot()
	fp, err := model.Fingerprint(snap)
	if err != nil {
		e.logger.Error("fingerprint snapshot", "seq", seq, "error", err)
		return
	}
	if fp == e.lastFP {
		return
	}
	e.lastFP = fp
	e.persister.submit(seq, snap)
}

func (e *Engine) notify(n Notice) {
	if e.observe != nil {
		e.observe(n)
	}
}

// fingerprintOf returns the fingerprint data would have once loaded.
func fingerprintOf(data []byte) (string, error) {
	snap, err := model.MergeOver(model.NewSnapshot(), data)
	if err != nil {
		return "", err
	}
	return model.Fingerprint(snap)
}
