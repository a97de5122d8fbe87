package cli

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"token-oracle-kit/internal/currency"
	"token-oracle-kit/internal/domain"
	"token-oracle-kit/internal/token"
)

// writeFlags are shared by the write commands.
type writeFlags struct {
	unit string
	wait bool
}

func (w *writeFlags) register(cmd *cobra.Command, withUnit bool) {
	if withUnit {
		cmd.Flags().StringVar(&w.unit, "unit", "", "unit the value is expressed in (default: the token's own)")
	}
	cmd.Flags().BoolVar(&w.wait, "wait", false, "wait until the transaction is mined or failed")
}

func (w *writeFlags) options() token.WriteOptions {
	return token.WriteOptions{Unit: currency.Unit(w.unit)}
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

// ownerOrCurrent parses the optional owner argument, defaulting to the
// configured account.
func ownerOrCurrent(app *App, args []string) (common.Address, error) {
	if len(args) == 0 {
		return app.Accounts.CurrentAccount(), nil
	}
	return parseAddress(args[0])
}

func newBalanceCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "balance SYMBOL [OWNER]",
		Short: "Show the token balance of an address (default: the configured account)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			owner, err := ownerOrCurrent(app, args[1:])
			if err != nil {
				return err
			}
			tok, err := app.Tokens.Lookup(cmd.Context(), currency.Unit(args[0]))
			if err != nil {
				return err
			}
			bal, err := tok.BalanceOf(cmd.Context(), owner)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), bal)
			return nil
		},
	}
}

func newBalancesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "balances [OWNER]",
		Short: "Show the balance of every configured token",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			owner, err := ownerOrCurrent(app, args)
			if err != nil {
				return err
			}
			symbols := app.Tokens.Symbols()
			balances, err := token.Balances(cmd.Context(), app.Tokens, owner, symbols)
			if err != nil {
				return err
			}
			for _, s := range symbols {
				fmt.Fprintln(cmd.OutOrStdout(), balances[s])
			}
			return nil
		},
	}
}

func newAllowanceCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "allowance SYMBOL OWNER SPENDER",
		Short: "Show how much SPENDER may transfer on behalf of OWNER",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := parseAddress(args[1])
			if err != nil {
				return err
			}
			spender, err := parseAddress(args[2])
			if err != nil {
				return err
			}

			app, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			tok, err := app.Tokens.Lookup(cmd.Context(), currency.Unit(args[0]))
			if err != nil {
				return err
			}
			allowance, err := tok.Allowance(cmd.Context(), owner, spender)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), allowance)
			return nil
		},
	}
}

func newSupplyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "supply SYMBOL",
		Short: "Show the total supply of a token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			tok, err := app.Tokens.Lookup(cmd.Context(), currency.Unit(args[0]))
			if err != nil {
				return err
			}
			supply, err := tok.TotalSupply(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), supply)
			return nil
		},
	}
}

func newApproveCmd(opts *rootOptions) *cobra.Command {
	var flags writeFlags
	cmd := &cobra.Command{
		Use:   "approve SYMBOL SPENDER VALUE",
		Short: "Set the allowance of SPENDER (a zero VALUE revokes)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			spender, err := parseAddress(args[1])
			if err != nil {
				return err
			}
			value, err := currency.ParseDecimal(args[2])
			if err != nil {
				return err
			}
			return runWrite(cmd, opts, args[0], flags.wait, func(tok *token.Token) (domain.PendingTx, error) {
				return tok.Approve(cmd.Context(), spender, value, flags.options())
			})
		},
	}
	flags.register(cmd, true)
	return cmd
}

func newApproveUnlimitedCmd(opts *rootOptions) *cobra.Command {
	var flags writeFlags
	cmd := &cobra.Command{
		Use:   "approve-unlimited SYMBOL SPENDER",
		Short: "Grant SPENDER the maximum allowance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			spender, err := parseAddress(args[1])
			if err != nil {
				return err
			}
			return runWrite(cmd, opts, args[0], flags.wait, func(tok *token.Token) (domain.PendingTx, error) {
				return tok.ApproveUnlimited(cmd.Context(), spender, flags.options())
			})
		},
	}
	flags.register(cmd, false)
	return cmd
}

func newTransferCmd(opts *rootOptions) *cobra.Command {
	var flags writeFlags
	cmd := &cobra.Command{
		Use:   "transfer SYMBOL TO VALUE",
		Short: "Transfer tokens from the configured account",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			to, err := parseAddress(args[1])
			if err != nil {
				return err
			}
			value, err := currency.ParseDecimal(args[2])
			if err != nil {
				return err
			}
			return runWrite(cmd, opts, args[0], flags.wait, func(tok *token.Token) (domain.PendingTx, error) {
				return tok.Transfer(cmd.Context(), to, value, flags.options())
			})
		},
	}
	flags.register(cmd, true)
	return cmd
}

func newTransferFromCmd(opts *rootOptions) *cobra.Command {
	var flags writeFlags
	cmd := &cobra.Command{
		Use:   "transfer-from SYMBOL FROM TO VALUE",
		Short: "Transfer tokens from FROM using the configured account's allowance",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseAddress(args[1])
			if err != nil {
				return err
			}
			to, err := parseAddress(args[2])
			if err != nil {
				return err
			}
			value, err := currency.ParseDecimal(args[3])
			if err != nil {
				return err
			}
			return runWrite(cmd, opts, args[0], flags.wait, func(tok *token.Token) (domain.PendingTx, error) {
				return tok.TransferFrom(cmd.Context(), from, to, value, flags.options())
			})
		},
	}
	flags.register(cmd, true)
	return cmd
}

// runWrite looks up symbol, performs write and prints the resulting
// transaction, optionally after waiting for it to finish.
func runWrite(cmd *cobra.Command, opts *rootOptions, symbol string, wait bool, write func(*token.Token) (domain.PendingTx, error)) error {
	app, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	tok, err := app.Tokens.Lookup(cmd.Context(), currency.Unit(symbol))
	if err != nil {
		return err
	}
	tx, err := write(tok)
	if err != nil {
		return err
	}
	return reportTx(cmd, tx, wait)
}
