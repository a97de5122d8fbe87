package token

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"token-oracle-kit/internal/account"
	"token-oracle-kit/internal/currency"
)

// ErrDuplicateSymbol is returned when two entries share a symbol.
var ErrDuplicateSymbol = errors.New("duplicate token symbol")

// Entry configures one token.
type Entry struct {
	Symbol  currency.Unit
	Address common.Address
	// Decimals from static configuration. When nil, the contract's decimals()
	// is read on first lookup and cached.
	Decimals *uint8
}

// RegistryConfig contains configuration for creating a Registry.
type RegistryConfig struct {
	Entries []Entry
	// Bind returns the contract handle for a token address.
	Bind     func(common.Address) Contract
	Units    *currency.Registry // token symbols are registered here; created if nil
	Accounts account.Provider
	Logger   zerolog.Logger

	// CacheTTL for decimals read from contracts. Zero caches forever.
	CacheTTL time.Duration
}

// Registry resolves token symbols to Tokens.
type Registry struct {
	entries  map[currency.Unit]Entry
	bind     func(common.Address) Contract
	units    *currency.Registry
	accounts account.Provider
	logger   zerolog.Logger
	decimals *cache.Cache
	ttl      time.Duration
}

// NewRegistry creates a registry and registers every token symbol as a unit.
func NewRegistry(cfg RegistryConfig) (*Registry, error) {
	if cfg.Bind == nil {
		return nil, errors.New("token registry: bind function is required")
	}

	units := cfg.Units
	if units == nil {
		units = currency.NewRegistry()
	}

	entries := make(map[currency.Unit]Entry, len(cfg.Entries))
	for _, e := range cfg.Entries {
		if _, ok := entries[e.Symbol]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSymbol, e.Symbol)
		}
		if err := units.Register(e.Symbol); err != nil {
			return nil, err
		}
		entries[e.Symbol] = e
	}

	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}

	return &Registry{
		entries:  entries,
		bind:     cfg.Bind,
		units:    units,
		accounts: cfg.Accounts,
		logger:   cfg.Logger.With().Str("component", "token_registry").Logger(),
		decimals: cache.New(ttl, 10*time.Minute),
		ttl:      ttl,
	}, nil
}

// Units returns the unit registry token symbols are registered in.
func (r *Registry) Units() *currency.Registry { return r.units }

// Symbols returns the configured symbols in sorted order.
func (r *Registry) Symbols() []currency.Unit {
	out := make([]currency.Unit, 0, len(r.entries))
	for s := range r.entries {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Lookup returns the token for symbol. Returns currency.ErrUnknownUnit if the
// symbol is not configured.
func (r *Registry) Lookup(ctx context.Context, symbol currency.Unit) (*Token, error) {
	e, ok := r.entries[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: token %s", currency.ErrUnknownUnit, symbol)
	}

	c := r.bind(e.Address)
	decimals, err := r.resolveDecimals(ctx, e, c)
	if err != nil {
		return nil, err
	}
	return NewToken(symbol, decimals, c, r.units, r.accounts), nil
}

func (r *Registry) resolveDecimals(ctx context.Context, e Entry, c Contract) (uint8, error) {
	if e.Decimals != nil {
		return *e.Decimals, nil
	}

	key := string(e.Symbol)
	if v, found := r.decimals.Get(key); found {
		return v.(uint8), nil
	}

	values, err := c.Call(ctx, "decimals")
	if err != nil {
		return 0, fmt.Errorf("%s decimals: %w", e.Symbol, err)
	}
	if len(values) != 1 {
		return 0, fmt.Errorf("%s decimals: expected 1 output, got %d", e.Symbol, len(values))
	}
	d, ok := values[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("%s decimals: unexpected output type %T", e.Symbol, values[0])
	}

	r.decimals.Set(key, d, r.ttl)
	r.logger.Debug().
		Str("symbol", key).
		Uint8("decimals", d).
		Str("address", e.Address.Hex()).
		Msg("resolved token decimals from contract")
	return d, nil
}

// Balances reads the balance of owner for each symbol concurrently.
// The first failure cancels the remaining reads.
func Balances(ctx context.Context, reg *Registry, owner common.Address, symbols []currency.Unit) (map[currency.Unit]currency.Amount, error) {
	var (
		mu  sync.Mutex
		out = make(map[currency.Unit]currency.Amount, len(symbols))
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, symbol := range symbols {
		g.Go(func() error {
			tok, err := reg.Lookup(gctx, symbol)
			if err != nil {
				return err
			}
			bal, err := tok.BalanceOf(gctx, owner)
			if err != nil {
				return err
			}

			mu.Lock()
			out[symbol] = bal
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
