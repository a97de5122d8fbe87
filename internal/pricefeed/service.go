// Package pricefeed reads and updates the price exposed by an oracle contract
// pair: a read oracle returning the price as ASCII bytes32 and a write oracle
// accepting a new price in the reference token's raw units.
package pricefeed

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"token-oracle-kit/internal/currency"
	"token-oracle-kit/internal/domain"
)

// DefaultReferenceToken is the token whose precision scales new prices.
const DefaultReferenceToken currency.Unit = "WETH"

// Reader is the read oracle.
type Reader interface {
	Call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error)
}

// Writer is the write oracle. Build packs a call without submitting it.
type Writer interface {
	Build(method string, args ...interface{}) (*domain.TransactionRequest, error)
}

// Submitter is the transaction-tracking collaborator.
type Submitter interface {
	Submit(ctx context.Context, req *domain.TransactionRequest, mode domain.TrackingMode) (domain.PendingTx, error)
}

// Scaler converts a decimal amount into a token's raw units.
// *token.Token implements it.
type Scaler interface {
	Decimals() uint8
	Scale(value decimal.Decimal, unit currency.Unit) (currency.RawAmount, error)
}

// TokenLookup resolves a symbol to its token.
type TokenLookup func(ctx context.Context, symbol currency.Unit) (Scaler, error)

// Config contains configuration for creating a Service.
type Config struct {
	Read      Reader
	Write     Writer
	Submitter Submitter
	Tokens    TokenLookup
	// Reference token for SetPrice. Defaults to DefaultReferenceToken.
	Reference currency.Unit
	Logger    zerolog.Logger
}

// Service is the oracle price feed.
type Service struct {
	read      Reader
	write     Writer
	submitter Submitter
	tokens    TokenLookup
	reference currency.Unit
	logger    zerolog.Logger
}

// NewService creates a price feed service.
func NewService(cfg Config) *Service {
	ref := cfg.Reference
	if ref == "" {
		ref = DefaultReferenceToken
	}
	return &Service{
		read:      cfg.Read,
		write:     cfg.Write,
		submitter: cfg.Submitter,
		tokens:    cfg.Tokens,
		reference: ref,
		logger:    cfg.Logger.With().Str("component", "pricefeed").Logger(),
	}
}

// Reference returns the reference token symbol.
func (s *Service) Reference() currency.Unit { return s.reference }

// GetPrice reads the current price and decodes it as text, e.g. "400.00".
func (s *Service) GetPrice(ctx context.Context) (string, error) {
	values, err := s.read.Call(ctx, "pip")
	if err != nil {
		return "", fmt.Errorf("read price: %w", err)
	}
	if len(values) != 1 {
		return "", fmt.Errorf("read price: expected 1 output, got %d", len(values))
	}
	word, ok := values[0].([32]byte)
	if !ok {
		return "", fmt.Errorf("read price: unexpected output type %T", values[0])
	}
	return currency.ToDisplay(word[:]), nil
}

// SetPrice scales price by the reference token's decimals and submits the
// update with hybrid tracking. The returned handle is not yet broadcast.
// No action metadata is attached.
func (s *Service) SetPrice(ctx context.Context, price decimal.Decimal) (domain.PendingTx, error) {
	ref, err := s.tokens(ctx, s.reference)
	if err != nil {
		return nil, fmt.Errorf("reference token: %w", err)
	}
	raw, err := ref.Scale(price, s.reference)
	if err != nil {
		return nil, err
	}

	req, err := s.write.Build("poke", [32]byte(common.BigToHash(raw.Int())))
	if err != nil {
		return nil, err
	}

	tx, err := s.submitter.Submit(ctx, req, domain.TrackingHybrid)
	if err != nil {
		return nil, fmt.Errorf("submit price update: %w", err)
	}
	s.logger.Info().
		Str("price", price.String()).
		Str("raw", raw.String()).
		Str("id", tx.ID()).
		Msg("price update submitted")
	return tx, nil
}
