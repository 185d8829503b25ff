package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/taskcoin/internal/ledger"
	"github.com/roach88/taskcoin/internal/model"
)

// NewRewardCommand creates the reward command group.
func NewRewardCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reward",
		Short: "Manage flat-cost rewards",
	}
	cmd.AddCommand(newRewardAddCommand(rootOpts))
	cmd.AddCommand(newRewardListCommand(rootOpts))
	cmd.AddCommand(newRewardClaimCommand(rootOpts))
	cmd.AddCommand(newRewardRemoveCommand(rootOpts))
	return cmd
}

func rewardIDs(l *ledger.Ledger) []string {
	var ids []string
	for _, r := range l.Rewards() {
		ids = append(ids, r.ID)
	}
	return ids
}

func newRewardAddCommand(rootOpts *RootOptions) *cobra.Command {
	var in ledger.NewReward

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a reward",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Name = args[0]
			var added model.Reward
			err := withLedger(cmd, rootOpts, "reward.add", func(l *ledger.Ledger) error {
				var err error
				added, err = l.AddReward(in)
				return err
			})
			if err != nil {
				return err
			}
			return rootOpts.formatter(cmd).Render(added, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Added reward %s: %s (%d coins)\n", added.ID, added.Name, added.Cost)
				return err
			})
		},
	}
	cmd.Flags().IntVar(&in.Cost, "cost", 0, "cost in coins")
	cmd.Flags().StringVar(&in.Description, "description", "", "what the reward is")
	cmd.Flags().StringVar(&in.Category, "category", "", "free-form category")
	_ = cmd.MarkFlagRequired("cost")
	return cmd
}

func newRewardListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List rewards",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			var rewards []model.Reward
			err := withLedger(cmd, rootOpts, "reward.list", func(l *ledger.Ledger) error {
				rewards = l.Rewards()
				return nil
			})
			if err != nil {
				return err
			}
			return rootOpts.formatter(cmd).Render(rewards, func(w io.Writer) error {
				return renderRewards(w, rewards)
			})
		},
	}
}

func newRewardClaimCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "claim <id>",
		Short: "Spend coins on a reward",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var receipt *ledger.Receipt
			err := withLedger(cmd, rootOpts, "reward.claim", func(l *ledger.Ledger) error {
				id, err := matchID("reward", args[0], rewardIDs(l))
				if err != nil {
					return err
				}
				receipt, err = l.ClaimReward(id)
				return err
			})
			if err != nil {
				return err
			}
			return rootOpts.formatter(cmd).Render(receipt, func(w io.Writer) error {
				return renderReceipt(w, "Claimed", receipt)
			})
		},
	}
}

func newRewardRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a reward",
		Args:    exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id string
			err := withLedger(cmd, rootOpts, "reward.delete", func(l *ledger.Ledger) error {
				var err error
				if id, err = matchID("reward", args[0], rewardIDs(l)); err != nil {
					return err
				}
				return l.DeleteReward(id)
			})
			if err != nil {
				return err
			}
			return rootOpts.formatter(cmd).Render(map[string]string{"deleted": id}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Deleted reward %s\n", id)
				return err
			})
		},
	}
}
