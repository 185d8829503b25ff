package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/taskcoin/internal/config"
	"github.com/roach88/taskcoin/internal/engine"
	"github.com/roach88/taskcoin/internal/ledger"
	"github.com/roach88/taskcoin/internal/model"
	"github.com/roach88/taskcoin/internal/store"
	"github.com/roach88/taskcoin/internal/validate"
)

// session is one opened store with a running engine around its ledger.
type session struct {
	cfg    config.Config
	logger *slog.Logger
	store  store.Persistent
	ledger *ledger.Ledger
	engine *engine.Engine

	// loaded is the maintenance report of the initial load.
	loaded ledger.Report

	stop func()
	done chan error
}

// sessionConfig tunes openSession for long-running commands.
type sessionConfig struct {
	// longRunning keeps info logs even without --verbose.
	longRunning bool
	// engineOpts adds engine options once config and store are known.
	engineOpts func(cfg config.Config, st store.Persistent) []engine.Option
}

// openSession loads config, opens the store, loads the snapshot into a
// ledger and starts the engine loop.
func openSession(ctx context.Context, cmd *cobra.Command, opts *RootOptions, sc sessionConfig) (*session, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load config", err)
	}
	logger, err := newLogger(cmd.ErrOrStderr(), opts, cfg, sc.longRunning)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "configure logging", err)
	}
	resolver, err := cfg.Resolver()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "timezone", err)
	}
	holidays, err := cfg.SaleHolidays()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "holidays", err)
	}

	backend, path := opts.storeTarget(cfg)
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, WrapExitError(ExitCommandError, "create data directory", err)
		}
	}
	logger.Debug("opening store", "backend", backend, "path", path)
	st, err := store.Open(backend, path,
		store.WithBackups(cfg.Store.Backups),
		store.WithPollInterval(cfg.Store.PollInterval.Duration),
		store.WithClock(opts.clock()),
		store.WithLogger(logger),
	)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open store", err)
	}

	ledgerOpts := []ledger.Option{
		ledger.WithClock(opts.clock()),
		ledger.WithResolver(resolver),
		ledger.WithHolidays(holidays...),
		ledger.WithLogger(logger),
	}
	if opts.IDs != nil {
		ledgerOpts = append(ledgerOpts, ledger.WithIDs(opts.IDs))
	}
	l := ledger.New(model.NewSnapshot(), ledgerOpts...)

	engineOpts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithValidator(validate.Snapshot),
	}
	if sc.engineOpts != nil {
		engineOpts = append(engineOpts, sc.engineOpts(cfg, st)...)
	}
	eng := engine.New(l, st, engineOpts...)

	report, err := eng.Load(ctx)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "load snapshot", err)
	}

	runCtx, stop := context.WithCancel(ctx)
	s := &session{
		cfg:    cfg,
		logger: logger,
		store:  st,
		ledger: l,
		engine: eng,
		loaded: report,
		stop:   stop,
		done:   make(chan error, 1),
	}
	go func() {
		s.done <- eng.Run(runCtx)
	}()
	return s, nil
}

// close waits for pending saves, stops the engine and closes the store.
func (s *session) close(ctx context.Context) error {
	defer s.stop()

	flushErr := s.engine.Flush(ctx)
	s.engine.Stop()
	runErr := <-s.done
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}
	closeErr := s.store.Close()

	switch {
	case flushErr != nil:
		return WrapExitError(ExitFailure, "save snapshot", flushErr)
	case runErr != nil:
		return WrapExitError(ExitFailure, "engine error", runErr)
	case closeErr != nil:
		return WrapExitError(ExitFailure, "close store", closeErr)
	}
	return nil
}

// withLedger opens a session, runs action on the engine goroutine and waits
// until its result is saved.
func withLedger(cmd *cobra.Command, opts *RootOptions, name string, action engine.Action) error {
	ctx := commandContext(cmd)
	s, err := openSession(ctx, cmd, opts, sessionConfig{})
	if err != nil {
		return err
	}
	actionErr := s.engine.Do(ctx, name, action)
	closeErr := s.close(ctx)
	if actionErr != nil {
		return actionError(name, actionErr)
	}
	return closeErr
}

// actionError attaches an exit code to an action error.
func actionError(name string, err error) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	return WrapExitError(ExitFailure, name, err)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// newLogger builds the slog handler from flags and config. One-shot commands
// only log warnings unless --verbose is set.
func newLogger(w io.Writer, opts *RootOptions, cfg config.Config, longRunning bool) (*slog.Logger, error) {
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	switch {
	case opts.Verbose:
		level = slog.LevelDebug
	case !longRunning && level < slog.LevelWarn:
		level = slog.LevelWarn
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	if opts.LogJSON {
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
}

// matchID resolves ref to one of ids, by full id or unique prefix.
func matchID(kind, ref string, ids []string) (string, error) {
	if ref == "" {
		return "", NewExitError(ExitCommandError, kind+" id is required")
	}
	var matches []string
	for _, id := range ids {
		if id == ref {
			return id, nil
		}
		if strings.HasPrefix(id, ref) {
			matches = append(matches, id)
		}
	}
	switch len(matches) {
	case 0:
		return "", NewExitError(ExitCommandError, fmt.Sprintf("no %s matches %q", kind, ref))
	case 1:
		return matches[0], nil
	default:
		return "", NewExitError(ExitCommandError,
			fmt.Sprintf("%q matches %d %ss: %s", ref, len(matches), kind, strings.Join(matches, ", ")))
	}
}
