package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"token-oracle-kit/internal/account"
	"token-oracle-kit/internal/config"
	"token-oracle-kit/internal/contract"
	"token-oracle-kit/internal/currency"
	"token-oracle-kit/internal/ethrpc"
	"token-oracle-kit/internal/observability"
	"token-oracle-kit/internal/pricefeed"
	"token-oracle-kit/internal/storage"
	"token-oracle-kit/internal/storage/memory"
	"token-oracle-kit/internal/storage/migrations"
	pgstore "token-oracle-kit/internal/storage/postgres"
	"token-oracle-kit/internal/token"
	"token-oracle-kit/internal/txmanager"
)

// ErrNoOracle is returned by price commands when no oracle pair is configured.
var ErrNoOracle = errors.New("no oracle configured")

// App holds the components wired from one configuration.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Accounts account.Static
	Metrics  *observability.Metrics

	Tx     *txmanager.Manager
	Tokens *token.Registry
	Feed   *pricefeed.Service // nil without an oracle

	closers []func()
}

// NewApp wires every component from cfg. rpc, when nil, is an HTTP client for
// cfg.RPC.Endpoint. The caller must Close the app.
func NewApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger, rpc ethrpc.Client) (_ *App, err error) {
	app := &App{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	registry := prometheus.NewRegistry()
	app.Metrics = observability.NewMetrics(cfg.Metrics.Namespace, registry)
	if cfg.Metrics.Listen != "" {
		app.serveMetrics(registry)
	}

	if rpc == nil {
		rpc = ethrpc.NewHTTPClient(cfg.RPC.Endpoint,
			ethrpc.WithTimeout(cfg.RPC.Timeout),
			ethrpc.WithMaxRetries(cfg.RPC.MaxRetries),
			ethrpc.WithRateLimit(cfg.RPC.RateLimit),
			ethrpc.WithMetrics(app.Metrics),
			ethrpc.WithLogger(logger.With().Str("component", "ethrpc").Logger()),
		)
	}

	store, err := app.openStore(ctx)
	if err != nil {
		return nil, err
	}

	app.Tx = txmanager.New(txmanager.Config{
		RPC:          rpc,
		Store:        store,
		Metrics:      app.Metrics,
		Logger:       logger,
		PollInterval: cfg.Tracker.PollInterval,
		Timeout:      cfg.Tracker.Timeout,
	})
	app.closers = append(app.closers, app.Tx.Close)

	if cfg.Account != "" {
		app.Accounts, _ = account.FromHex(cfg.Account)
	}
	contracts := contract.NewService(rpc, app.Tx, app.Accounts)

	units, err := buildUnits(cfg)
	if err != nil {
		return nil, err
	}

	app.Tokens, err = token.NewRegistry(token.RegistryConfig{
		Entries:  tokenEntries(cfg.Tokens),
		Bind:     func(addr common.Address) token.Contract { return contracts.ERC20(addr) },
		Units:    units,
		Accounts: app.Accounts,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}
	if err := declareConversions(units, cfg.Conversions); err != nil {
		return nil, err
	}

	if cfg.Oracle.Enabled() {
		app.Feed = pricefeed.NewService(pricefeed.Config{
			Read:      contracts.Bind(common.HexToAddress(cfg.Oracle.Read), contract.ReadOracleABI),
			Write:     contracts.Bind(common.HexToAddress(cfg.Oracle.Write), contract.WriteOracleABI),
			Submitter: app.Tx,
			Tokens: func(ctx context.Context, symbol currency.Unit) (pricefeed.Scaler, error) {
				tok, err := app.Tokens.Lookup(ctx, symbol)
				if err != nil {
					return nil, err
				}
				return tok, nil
			},
			Reference: currency.Unit(cfg.Oracle.ReferenceToken),
			Logger:    logger,
		})
	}
	return app, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// PriceFeed returns the oracle service or ErrNoOracle.
func (a *App) PriceFeed() (*pricefeed.Service, error) {
	if a.Feed == nil {
		return nil, ErrNoOracle
	}
	return a.Feed, nil
}

func (a *App) openStore(ctx context.Context) (storage.TransactionStore, error) {
	dsn := a.Config.Storage.PostgresDSN
	if dsn == "" {
		return memory.NewTransactionStore(), nil
	}

	pool, err := pgstore.NewPool(ctx, dsn, a.Config.Storage.MaxConns)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, pool.Close)

	if _, err := migrations.RunPostgresMigrations(ctx, pool, a.Logger); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return pgstore.NewTransactionStore(pool), nil
}

func (a *App) serveMetrics(gatherer prometheus.Gatherer) {
	srv := &http.Server{
		Addr:              a.Config.Metrics.Listen,
		Handler:           observability.Handler(gatherer),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.Error().Err(err).Str("addr", srv.Addr).Msg("metrics server failed")
		}
	}()
	a.closers = append(a.closers, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
}

// buildUnits registers the units conversions refer to. Token symbols are
// registered by the token registry.
func buildUnits(cfg *config.Config) (*currency.Registry, error) {
	units := currency.NewRegistry()
	for _, c := range cfg.Conversions {
		for _, u := range []string{c.From, c.To} {
			if err := units.Register(currency.Unit(u)); err != nil {
				return nil, err
			}
		}
	}
	return units, nil
}

func declareConversions(units *currency.Registry, convs []config.ConversionConfig) error {
	for _, c := range convs {
		rate, err := currency.ParseDecimal(c.Rate)
		if err != nil {
			return fmt.Errorf("conversion %s->%s: %w", c.From, c.To, err)
		}
		if err := units.DeclareConversion(currency.Unit(c.From), currency.Unit(c.To), rate); err != nil {
			return err
		}
	}
	return nil
}

func tokenEntries(tokens []config.TokenConfig) []token.Entry {
	entries := make([]token.Entry, 0, len(tokens))
	for _, t := range tokens {
		e := token.Entry{
			Symbol:  currency.Unit(t.Symbol),
			Address: common.HexToAddress(t.Address),
		}
		if t.Decimals != nil {
			d := uint8(*t.Decimals)
			e.Decimals = &d
		}
		entries = append(entries, e)
	}
	return entries
}
