// Package contract binds ABIs to deployed addresses and turns method calls
// into eth_call reads or tracked transaction requests.
package contract

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"token-oracle-kit/internal/account"
	"token-oracle-kit/internal/domain"
	"token-oracle-kit/internal/ethrpc"
)

// ErrUnknownMethod is returned when a method is not part of the bound ABI.
var ErrUnknownMethod = errors.New("unknown contract method")

// Submitter hands transaction requests to the transaction manager.
type Submitter interface {
	Submit(ctx context.Context, req *domain.TransactionRequest, mode domain.TrackingMode) (domain.PendingTx, error)
}

// Service binds contracts that share an RPC client, submitter and account.
type Service struct {
	rpc       ethrpc.Client
	submitter Submitter
	accounts  account.Provider
}

// NewService creates a contract service.
func NewService(rpc ethrpc.Client, submitter Submitter, accounts account.Provider) *Service {
	return &Service{rpc: rpc, submitter: submitter, accounts: accounts}
}

// Bind returns a handle for the contract at address with the given ABI.
func (s *Service) Bind(address common.Address, contractABI abi.ABI) *Contract {
	return &Contract{
		address:   address,
		abi:       contractABI,
		rpc:       s.rpc,
		submitter: s.submitter,
		accounts:  s.accounts,
	}
}

// ERC20 binds an ERC-20 token contract.
func (s *Service) ERC20(address common.Address) *Contract {
	return s.Bind(address, ERC20ABI)
}

// Contract is a handle to one deployed contract.
type Contract struct {
	address   common.Address
	abi       abi.ABI
	rpc       ethrpc.Client
	submitter Submitter
	accounts  account.Provider
}

// Address returns the contract address.
func (c *Contract) Address() common.Address {
	return c.address
}

// Call packs method and args, runs eth_call and unpacks the outputs.
func (c *Contract) Call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := c.pack(method, args...)
	if err != nil {
		return nil, err
	}

	out, err := c.rpc.Call(ctx, ethrpc.CallMsg{
		From: c.accounts.CurrentAccount(),
		To:   c.address,
		Data: data,
	})
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	values, err := c.abi.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

// Build packs a write into a request without submitting it. The request has a
// fresh ID and the current account as sender; metadata is left to the caller.
func (c *Contract) Build(method string, args ...interface{}) (*domain.TransactionRequest, error) {
	data, err := c.pack(method, args...)
	if err != nil {
		return nil, err
	}

	return &domain.TransactionRequest{
		ID:     uuid.NewString(),
		From:   c.accounts.CurrentAccount(),
		To:     c.address,
		Method: method,
		Args:   append([]interface{}(nil), args...),
		Data:   data,
	}, nil
}

// Transact builds a write, attaches opts and submits it in plain tracking mode.
func (c *Contract) Transact(ctx context.Context, method string, opts domain.TxOptions, args ...interface{}) (domain.PendingTx, error) {
	req, err := c.Build(method, args...)
	if err != nil {
		return nil, err
	}
	req.Metadata = opts.Metadata
	req.After = opts.After

	return c.submitter.Submit(ctx, req, domain.TrackingPlain)
}

func (c *Contract) pack(method string, args ...interface{}) ([]byte, error) {
	if _, ok := c.abi.Methods[method]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	return data, nil
}
