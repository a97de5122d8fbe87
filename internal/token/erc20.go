// Package token exposes ERC-20 reads and writes in human-readable amounts.
//
// Reads return amounts tagged with the token's own unit. Writes scale the
// caller's amount to the token's raw units and attach action metadata
// describing the write before it is submitted.
package token

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"token-oracle-kit/internal/account"
	"token-oracle-kit/internal/currency"
	"token-oracle-kit/internal/domain"
)

// Contract is the contract-call collaborator a Token is bound to.
// *contract.Contract implements it.
type Contract interface {
	Address() common.Address
	Call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error)
	Transact(ctx context.Context, method string, opts domain.TxOptions, args ...interface{}) (domain.PendingTx, error)
}

// WriteOptions are the optional parameters of a write.
type WriteOptions struct {
	// Unit the value is expressed in. Defaults to the token's own unit. Any
	// other unit needs a conversion to the token's unit declared in the
	// currency registry.
	Unit currency.Unit

	// Promise chains the write onto an existing transaction.
	Promise domain.PendingTx
}

// Token is one deployed ERC-20 contract with a fixed decimal precision.
// It is safe for concurrent use.
type Token struct {
	symbol   currency.Unit
	decimals uint8
	contract Contract
	units    *currency.Registry
	accounts account.Provider
}

// NewToken creates a token. decimals must match the deployed contract.
// units may be nil if writes never use a unit override.
func NewToken(symbol currency.Unit, decimals uint8, c Contract, units *currency.Registry, accounts account.Provider) *Token {
	return &Token{
		symbol:   symbol,
		decimals: decimals,
		contract: c,
		units:    units,
		accounts: accounts,
	}
}

// Address returns the token contract address.
func (t *Token) Address() common.Address { return t.contract.Address() }

// Symbol returns the token's unit.
func (t *Token) Symbol() currency.Unit { return t.symbol }

// Decimals returns the token's decimal precision.
func (t *Token) Decimals() uint8 { return t.decimals }

// Allowance returns how much spender may transfer on behalf of owner.
func (t *Token) Allowance(ctx context.Context, owner, spender common.Address) (currency.Amount, error) {
	return t.read(ctx, "allowance", owner, spender)
}

// BalanceOf returns the balance of owner.
func (t *Token) BalanceOf(ctx context.Context, owner common.Address) (currency.Amount, error) {
	return t.read(ctx, "balanceOf", owner)
}

// TotalSupply returns the token's total supply.
func (t *Token) TotalSupply(ctx context.Context) (currency.Amount, error) {
	return t.read(ctx, "totalSupply")
}

// Approve sets the allowance of spender to value. A zero value revokes.
func (t *Token) Approve(ctx context.Context, spender common.Address, value decimal.Decimal, opts WriteOptions) (domain.PendingTx, error) {
	amount, raw, err := t.scale(value, opts.Unit)
	if err != nil {
		return nil, err
	}

	current := t.accounts.CurrentAccount()
	meta := &domain.ActionMetadata{
		Name:      domain.ActionApprove,
		Spender:   &current,
		Allowance: &amount,
		Allowing:  !amount.IsZero(),
	}
	return t.transact(ctx, "approve", meta, opts, spender, raw.Int())
}

// ApproveUnlimited grants spender the maximum uint256 allowance. The metadata
// reports currency.MaxSafeInteger as the allowance, not the on-chain value.
func (t *Token) ApproveUnlimited(ctx context.Context, spender common.Address, opts WriteOptions) (domain.PendingTx, error) {
	current := t.accounts.CurrentAccount()
	display := currency.NewAmount(decimal.NewFromInt(currency.MaxSafeInteger), t.symbol)
	meta := &domain.ActionMetadata{
		Name:      domain.ActionApprove,
		Spender:   &current,
		Allowance: &display,
		Allowing:  true,
		Unlimited: true,
	}
	return t.transact(ctx, "approve", meta, opts, spender, currency.UnlimitedRaw().Int())
}

// Transfer sends value from the current account to to.
func (t *Token) Transfer(ctx context.Context, to common.Address, value decimal.Decimal, opts WriteOptions) (domain.PendingTx, error) {
	amount, raw, err := t.scale(value, opts.Unit)
	if err != nil {
		return nil, err
	}

	current := t.accounts.CurrentAccount()
	meta := &domain.ActionMetadata{
		Name:   domain.ActionTransfer,
		From:   &current,
		To:     &to,
		Amount: &amount,
	}
	return t.transact(ctx, "transfer", meta, opts, to, raw.Int())
}

// TransferFrom sends value from from to to using the current account's allowance.
func (t *Token) TransferFrom(ctx context.Context, from, to common.Address, value decimal.Decimal, opts WriteOptions) (domain.PendingTx, error) {
	amount, raw, err := t.scale(value, opts.Unit)
	if err != nil {
		return nil, err
	}

	meta := &domain.ActionMetadata{
		Name:   domain.ActionTransfer,
		From:   &from,
		To:     &to,
		Amount: &amount,
	}
	return t.transact(ctx, "transferFrom", meta, opts, from, to, raw.Int())
}

// Scale converts value in unit to the token's raw units. An empty unit is the
// token's own.
func (t *Token) Scale(value decimal.Decimal, unit currency.Unit) (currency.RawAmount, error) {
	_, raw, err := t.scale(value, unit)
	return raw, err
}

func (t *Token) scale(value decimal.Decimal, unit currency.Unit) (currency.Amount, currency.RawAmount, error) {
	if unit == "" {
		unit = t.symbol
	}
	amount := currency.NewAmount(value, unit)

	inToken := amount
	if unit != t.symbol {
		if t.units == nil {
			return currency.Amount{}, currency.RawAmount{}, fmt.Errorf("%w: no conversion from %s to %s", currency.ErrUnitMismatch, unit, t.symbol)
		}
		var err error
		if inToken, err = t.units.Convert(amount, t.symbol); err != nil {
			return currency.Amount{}, currency.RawAmount{}, err
		}
	}

	raw, err := currency.ToRaw(inToken, t.decimals)
	if err != nil {
		return currency.Amount{}, currency.RawAmount{}, err
	}
	return amount, raw, nil
}

func (t *Token) transact(ctx context.Context, method string, meta *domain.ActionMetadata, opts WriteOptions, args ...interface{}) (domain.PendingTx, error) {
	tx, err := t.contract.Transact(ctx, method, domain.TxOptions{Metadata: meta, After: opts.Promise}, args...)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", t.symbol, method, err)
	}
	return tx, nil
}

func (t *Token) read(ctx context.Context, method string, args ...interface{}) (currency.Amount, error) {
	values, err := t.contract.Call(ctx, method, args...)
	if err != nil {
		return currency.Amount{}, fmt.Errorf("%s %s: %w", t.symbol, method, err)
	}
	if len(values) != 1 {
		return currency.Amount{}, fmt.Errorf("%s %s: expected 1 output, got %d", t.symbol, method, len(values))
	}
	v, ok := values[0].(*big.Int)
	if !ok {
		return currency.Amount{}, fmt.Errorf("%s %s: unexpected output type %T", t.symbol, method, values[0])
	}

	raw, err := currency.NewRaw(v)
	if err != nil {
		return currency.Amount{}, fmt.Errorf("%s %s: %w", t.symbol, method, err)
	}
	return currency.FromRaw(raw, t.decimals, t.symbol), nil
}
