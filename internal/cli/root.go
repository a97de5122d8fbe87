// Package cli implements the tokenctl command line.
package cli

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"token-oracle-kit/internal/config"
	"token-oracle-kit/internal/ethrpc"
)

// rootOptions holds the global flags shared by every subcommand.
type rootOptions struct {
	configFile string
	envFile    string
	logLevel   string

	// rpc replaces the HTTP JSON-RPC client when set.
	rpc ethrpc.Client
}

// Execute runs tokenctl. This is called by main.main().
func Execute() {
	root := NewRootCmd(nil)
	if err := root.Execute(); err != nil {
		log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
		log.Error().Err(err).Msg("tokenctl failed")
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree. rpc, when non-nil, is used instead of an
// HTTP client for the configured endpoint.
func NewRootCmd(rpc ethrpc.Client) *cobra.Command {
	opts := &rootOptions{rpc: rpc}

	root := &cobra.Command{
		Use:   "tokenctl",
		Short: "ERC-20 token operations and oracle price feed",
		Long: `tokenctl reads and writes ERC-20 tokens in human-readable amounts and
reads or updates the price of an oracle contract pair.

Configuration is read from a config file, a .env file and TOKENCTL_-prefixed
environment variables, e.g. TOKENCTL_RPC_ENDPOINT.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "configuration file path (yaml, json or toml)")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "env file to load (default .env if present)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	root.AddCommand(
		newBalanceCmd(opts),
		newBalancesCmd(opts),
		newAllowanceCmd(opts),
		newSupplyCmd(opts),
		newApproveCmd(opts),
		newApproveUnlimitedCmd(opts),
		newTransferCmd(opts),
		newTransferFromCmd(opts),
		newPriceCmd(opts),
		newTxCmd(opts),
	)
	return root
}

// open loads configuration and wires an App for one command run.
func (o *rootOptions) open(cmd *cobra.Command) (*App, error) {
	cfg, err := config.Load(config.Paths{Config: o.configFile, Env: o.envFile})
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.Log, o.logLevel, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	return NewApp(cmd.Context(), cfg, logger, o.rpc)
}

func newLogger(cfg config.LogConfig, override string, out io.Writer) (zerolog.Logger, error) {
	level := cfg.Level
	if override != "" {
		level = override
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}

	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}
