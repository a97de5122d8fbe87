// Package ethrpc is a minimal Ethereum JSON-RPC client covering contract reads,
// node-signed writes and receipt lookups.
package ethrpc

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Client defines the Ethereum JSON-RPC interface used by contract handles and
// the transaction manager.
type Client interface {
	// Call executes a read-only message call against the latest block.
	Call(ctx context.Context, msg CallMsg) ([]byte, error)

	// SendTransaction asks the node to sign and broadcast a transaction from an
	// account it manages.
	SendTransaction(ctx context.Context, args SendTxArgs) (common.Hash, error)

	// TransactionReceipt retrieves a receipt. Returns nil, nil if not yet mined.
	TransactionReceipt(ctx context.Context, hash common.Hash) (*Receipt, error)

	// ChainID retrieves the chain ID of the connected network.
	ChainID(ctx context.Context) (*big.Int, error)
}

// CallMsg is an eth_call request.
type CallMsg struct {
	From common.Address // zero means unset
	To   common.Address
	Data []byte
}

// SendTxArgs is an eth_sendTransaction request.
type SendTxArgs struct {
	From  common.Address
	To    common.Address
	Data  []byte
	Gas   uint64   // 0 lets the node estimate
	Value *big.Int // nil means zero
}

// Receipt statuses.
const (
	ReceiptStatusFailed     uint64 = 0
	ReceiptStatusSuccessful uint64 = 1
)

// Receipt is the subset of a transaction receipt the tracker needs.
type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	Status      uint64
	GasUsed     uint64
}
