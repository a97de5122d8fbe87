package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"token-oracle-kit/internal/currency"
)

// maxDecimals is the largest precision whose scale 10^d fits in a uint256.
const maxDecimals = 77

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if err := c.validateRPC(); err != nil {
		return fmt.Errorf("rpc validation failed: %w", err)
	}

	if c.Account != "" && !common.IsHexAddress(c.Account) {
		return fmt.Errorf("account %q is not a hex address", c.Account)
	}

	symbols, err := c.validateTokens()
	if err != nil {
		return fmt.Errorf("tokens validation failed: %w", err)
	}

	if err := c.validateConversions(); err != nil {
		return fmt.Errorf("conversions validation failed: %w", err)
	}

	if err := c.validateOracle(symbols); err != nil {
		return fmt.Errorf("oracle validation failed: %w", err)
	}

	if c.Tracker.PollInterval < 0 || c.Tracker.Timeout < 0 {
		return fmt.Errorf("tracker intervals must not be negative")
	}
	if c.Storage.MaxConns < 0 {
		return fmt.Errorf("storage.max_conns must not be negative, got %d", c.Storage.MaxConns)
	}
	return nil
}

func (c *Config) validateRPC() error {
	if c.RPC.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	u, err := url.Parse(c.RPC.Endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint %q: %w", c.RPC.Endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("endpoint scheme must be http or https, got %q", u.Scheme)
	}
	if c.RPC.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative, got %d", c.RPC.MaxRetries)
	}
	if c.RPC.RateLimit < 0 {
		return fmt.Errorf("rate_limit must not be negative, got %v", c.RPC.RateLimit)
	}
	return nil
}

// validateTokens returns the set of configured symbols.
func (c *Config) validateTokens() (map[string]bool, error) {
	symbols := make(map[string]bool, len(c.Tokens))
	for i, t := range c.Tokens {
		if strings.TrimSpace(t.Symbol) == "" {
			return nil, fmt.Errorf("token at index %d has no symbol", i)
		}
		if symbols[t.Symbol] {
			return nil, fmt.Errorf("duplicate token symbol %s", t.Symbol)
		}
		symbols[t.Symbol] = true

		if !common.IsHexAddress(t.Address) {
			return nil, fmt.Errorf("token %s: address %q is not a hex address", t.Symbol, t.Address)
		}
		if t.Decimals != nil && (*t.Decimals < 0 || *t.Decimals > maxDecimals) {
			return nil, fmt.Errorf("token %s: decimals must be between 0 and %d, got %d", t.Symbol, maxDecimals, *t.Decimals)
		}
	}
	return symbols, nil
}

func (c *Config) validateConversions() error {
	for i, conv := range c.Conversions {
		if conv.From == "" || conv.To == "" {
			return fmt.Errorf("conversion at index %d needs from and to units", i)
		}
		rate, err := currency.ParseDecimal(conv.Rate)
		if err != nil {
			return fmt.Errorf("conversion %s->%s: %w", conv.From, conv.To, err)
		}
		if !rate.IsPositive() {
			return fmt.Errorf("conversion %s->%s: rate must be positive, got %s", conv.From, conv.To, rate)
		}
	}
	return nil
}

func (c *Config) validateOracle(symbols map[string]bool) error {
	if !c.Oracle.Enabled() {
		return nil
	}
	for name, addr := range map[string]string{"read": c.Oracle.Read, "write": c.Oracle.Write} {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("%s oracle address %q is not a hex address", name, addr)
		}
	}
	if !symbols[c.Oracle.ReferenceToken] {
		return fmt.Errorf("reference token %q is not a configured token", c.Oracle.ReferenceToken)
	}
	return nil
}
