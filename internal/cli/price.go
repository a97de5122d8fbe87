package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"token-oracle-kit/internal/currency"
)

func newPriceCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "price",
		Short: "Read or update the oracle price",
	}
	cmd.AddCommand(newPriceGetCmd(opts), newPriceSetCmd(opts))
	return cmd
}

func newPriceGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Print the current oracle price",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			feed, err := app.PriceFeed()
			if err != nil {
				return err
			}
			price, err := feed.GetPrice(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), price)
			return nil
		},
	}
}

func newPriceSetCmd(opts *rootOptions) *cobra.Command {
	var wait bool
	cmd := &cobra.Command{
		Use:   "set VALUE",
		Short: "Poke a new price, scaled to the reference token's decimals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			price, err := currency.ParseDecimal(args[0])
			if err != nil {
				return err
			}

			app, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			feed, err := app.PriceFeed()
			if err != nil {
				return err
			}
			tx, err := feed.SetPrice(cmd.Context(), price)
			if err != nil {
				return err
			}
			return reportTx(cmd, tx, wait)
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "wait until the transaction is mined or failed")
	return cmd
}
