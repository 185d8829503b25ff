package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/taskcoin/internal/ledger"
	"github.com/roach88/taskcoin/internal/model"
	"github.com/roach88/taskcoin/internal/shop"
)

// NewShopCommand creates the shop command group.
func NewShopCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shop",
		Short: "Browse and buy shop items",
		Long: `Browse and buy shop items.

Prices rise with each purchase of the day and reset at 06:00. On weekends
and configured holidays base prices are halved and ramps are gentler.`,
	}
	cmd.AddCommand(newShopListCommand(rootOpts))
	cmd.AddCommand(newShopBuyCommand(rootOpts))
	cmd.AddCommand(newShopAddCommand(rootOpts))
	cmd.AddCommand(newShopPricesCommand(rootOpts))
	cmd.AddCommand(newShopItemCommand(rootOpts, "rm <id>", "Delete a custom item",
		"shop.delete", "Deleted", customIDs, (*ledger.Ledger).DeleteShopItem))
	cmd.AddCommand(newShopItemCommand(rootOpts, "hide <id>", "Hide an item from the catalog",
		"shop.hide", "Hid", catalogIDs, (*ledger.Ledger).HideShopItem))
	cmd.AddCommand(newShopItemCommand(rootOpts, "unhide <id>", "Show a hidden item again",
		"shop.unhide", "Restored", hiddenIDs, (*ledger.Ledger).UnhideShopItem))
	return cmd
}

func newShopListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List items with their current price",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			var quotes []shop.Quote
			err := withLedger(cmd, rootOpts, "shop.list", func(l *ledger.Ledger) error {
				quotes = l.Catalog()
				return nil
			})
			if err != nil {
				return err
			}
			return rootOpts.formatter(cmd).Render(quotes, func(w io.Writer) error {
				return renderCatalog(w, quotes)
			})
		},
	}
}

// itemIDs lists every shop item id, hidden ones included.
func itemIDs(l *ledger.Ledger) []string {
	var ids []string
	for _, item := range shop.Presets() {
		ids = append(ids, item.ID)
	}
	return append(ids, customIDs(l)...)
}

func customIDs(l *ledger.Ledger) []string {
	var ids []string
	for _, item := range l.Snapshot().CustomShopItems {
		ids = append(ids, item.ID)
	}
	return ids
}

func hiddenIDs(l *ledger.Ledger) []string {
	return l.Snapshot().HiddenShopItems
}

// catalogIDs lists the visible shop item ids.
func catalogIDs(l *ledger.Ledger) []string {
	var ids []string
	for _, q := range l.Catalog() {
		ids = append(ids, q.Item.ID)
	}
	return ids
}

func newShopBuyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "buy <id>",
		Short: "Buy an item at its current price",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var receipt *ledger.Receipt
			err := withLedger(cmd, rootOpts, "shop.buy", func(l *ledger.Ledger) error {
				id, err := matchID("shop item", args[0], catalogIDs(l))
				if err != nil {
					return err
				}
				receipt, err = l.Purchase(id)
				return err
			})
			if err != nil {
				return err
			}
			return rootOpts.formatter(cmd).Render(receipt, func(w io.Writer) error {
				return renderReceipt(w, "Bought", receipt)
			})
		},
	}
}

func newShopAddCommand(rootOpts *RootOptions) *cobra.Command {
	var in ledger.NewShopItem
	var scalingType string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a custom item",
		Long: `Add a custom shop item.

Examples:
  taskcoin shop add "Bubble tea" --cost 45 --scaling 5
  taskcoin shop add "Concert ticket" --cost 500 --scaling 1.2 --scaling-type multiply`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Name = args[0]
			in.ScalingType = model.ScalingType(scalingType)
			if in.ScalingType != "" && !in.ScalingType.Valid() {
				return NewExitError(ExitCommandError, fmt.Sprintf("--scaling-type %q: must be add or multiply", scalingType))
			}

			var added model.ShopItem
			err := withLedger(cmd, rootOpts, "shop.add", func(l *ledger.Ledger) error {
				var err error
				added, err = l.AddShopItem(in)
				return err
			})
			if err != nil {
				return err
			}
			return rootOpts.formatter(cmd).Render(added, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Added shop item %s: %s (%d coins, %s)\n",
					added.ID, added.Name, added.BaseCost, scalingOf(added))
				return err
			})
		},
	}
	cmd.Flags().IntVar(&in.BaseCost, "cost", 0, "base cost in coins")
	cmd.Flags().Float64Var(&in.Scaling, "scaling", 0, "price step per purchase (add) or factor (multiply)")
	cmd.Flags().StringVar(&scalingType, "scaling-type", string(model.ScalingAdd), "add|multiply")
	cmd.Flags().StringVar(&in.Emoji, "emoji", "", "icon shown in the catalog")
	_ = cmd.MarkFlagRequired("cost")
	return cmd
}

func newShopPricesCommand(rootOpts *RootOptions) *cobra.Command {
	var n int

	cmd := &cobra.Command{
		Use:   "prices <id>",
		Short: "Show the price of the next purchases",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if n < 1 {
				return NewExitError(ExitCommandError, "-n must be at least 1")
			}
			var sched priceSchedule
			err := withLedger(cmd, rootOpts, "shop.prices", func(l *ledger.Ledger) error {
				id, err := matchID("shop item", args[0], itemIDs(l))
				if err != nil {
					return err
				}
				q, ok := l.Quote(id)
				if !ok {
					return NewExitError(ExitCommandError, fmt.Sprintf("no shop item %s", id))
				}
				sched = priceSchedule{Quote: q, Prices: shop.Schedule(q.Item, q.Purchases, n, q.Sale)}
				return nil
			})
			if err != nil {
				return err
			}
			return rootOpts.formatter(cmd).Render(sched, func(w io.Writer) error {
				return renderSchedule(w, sched)
			})
		},
	}
	cmd.Flags().IntVarP(&n, "count", "n", 5, "number of purchases to price")
	return cmd
}

func newShopItemCommand(rootOpts *RootOptions, use, short, action, verb string,
	candidates func(*ledger.Ledger) []string, op func(*ledger.Ledger, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id string
			err := withLedger(cmd, rootOpts, action, func(l *ledger.Ledger) error {
				var err error
				if id, err = matchID("shop item", args[0], candidates(l)); err != nil {
					return err
				}
				return op(l, id)
			})
			if err != nil {
				return err
			}
			return rootOpts.formatter(cmd).Render(map[string]string{"id": id}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%s %s\n", verb, id)
				return err
			})
		},
	}
}
