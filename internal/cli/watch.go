package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/taskcoin/internal/config"
	"github.com/roach88/taskcoin/internal/engine"
	"github.com/roach88/taskcoin/internal/store"
)

// shutdownTimeout bounds the final save when watch stops.
const shutdownTimeout = 10 * time.Second

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Keep the store maintained and follow changes from other processes",
		Long: `Run until interrupted, sweeping expired tasks and stale completion marks
on every tick (tick_interval in the config) and reloading the snapshot
whenever another process saves it.

Exit codes:
  0 - Stopped by Ctrl-C or SIGTERM
  1 - The engine or the final save failed
  2 - Command error (unreadable config or store)`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, rootOpts)
		},
	}
}

func runWatch(cmd *cobra.Command, opts *RootOptions) error {
	out := cmd.OutOrStdout()
	parentCtx := commandContext(cmd)

	s, err := openSession(parentCtx, cmd, opts, sessionConfig{
		longRunning: true,
		engineOpts: func(cfg config.Config, st store.Persistent) []engine.Option {
			clk := opts.clock()
			loc, err := cfg.Location()
			if err != nil {
				loc = time.Local
			}
			return []engine.Option{
				engine.WithFeed(st),
				engine.WithTickInterval(cfg.TickInterval.Duration),
				engine.WithObserver(func(n engine.Notice) {
					printNotice(out, clk.Now().In(loc), n)
				}),
				engine.WithPersistErrorHook(func(err error) {
					fmt.Fprintf(cmd.ErrOrStderr(), "sync problem: %v\n", err)
				}),
			}
		},
	})
	if err != nil {
		return err
	}
	if s.loaded.Changed() {
		fmt.Fprintln(out, "Startup maintenance:")
		_ = renderReport(out, s.loaded)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	_, path := opts.storeTarget(s.cfg)
	fmt.Fprintf(out, "Watching %s. Press Ctrl-C to stop.\n", path)

	select {
	case sig := <-sigChan:
		s.logger.Info("received signal, shutting down", "signal", sig)
	case <-parentCtx.Done():
		// Parent context cancelled (e.g., from test)
	case err := <-s.done:
		// Run ended on its own; hand the result back for close.
		s.done <- err
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.close(ctx); err != nil {
		return err
	}
	s.logger.Info("watch stopped")
	return nil
}

// printNotice reports ticks and inbound documents that changed something,
// stamped with now.
func printNotice(w io.Writer, now time.Time, n engine.Notice) {
	stamp := now.Format("15:04:05")
	if n.Err != nil {
		fmt.Fprintf(w, "%s %s #%d failed: %v\n", stamp, n.Type, n.Seq, n.Err)
		return
	}
	if !n.Report.Changed() {
		return
	}
	fmt.Fprintf(w, "%s %s #%d:\n", stamp, n.Type, n.Seq)
	_ = renderReport(w, n.Report)
}
