package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/taskcoin/internal/analytics"
	"github.com/roach88/taskcoin/internal/ledger"
)

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show balance, counters and streaks",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			var view statsView
			err := withLedger(cmd, rootOpts, "stats", func(l *ledger.Ledger) error {
				due := 0
				for _, st := range l.DueToday() {
					if !st.Done {
						due++
					}
				}
				view = statsView{
					Stats:   l.Stats(),
					Streak:  analytics.Streaks(l.Snapshot(), l.Resolver(), l.Now()),
					Pending: len(l.Tasks()),
					DueNow:  due,
				}
				return nil
			})
			if err != nil {
				return err
			}
			return rootOpts.formatter(cmd).Render(view, func(w io.Writer) error {
				return renderStats(w, view)
			})
		},
	}
}

// NewConsistencyCommand creates the consistency command.
func NewConsistencyCommand(rootOpts *RootOptions) *cobra.Command {
	var period string

	cmd := &cobra.Command{
		Use:   "consistency",
		Short: "Show how reliably recurring tasks get done",
		Long: `Show the completion rate of recurring tasks per day, week, month or year.

A day's rate is the share of its scheduled recurring tasks that were
completed. Longer periods average their daily rates; days with nothing
scheduled are left out.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := analytics.ParsePeriod(period)
			if err != nil {
				return WrapExitError(ExitCommandError, "--period", err)
			}
			var buckets []analytics.Bucket
			err = withLedger(cmd, rootOpts, "consistency", func(l *ledger.Ledger) error {
				buckets = analytics.Consistency(l.Snapshot(), l.Resolver(), p, l.Now())
				return nil
			})
			if err != nil {
				return err
			}
			return rootOpts.formatter(cmd).Render(buckets, func(w io.Writer) error {
				return renderConsistency(w, buckets)
			})
		},
	}
	cmd.Flags().StringVarP(&period, "period", "p", string(analytics.PeriodWeek), "day|week|month|year")
	return cmd
}
