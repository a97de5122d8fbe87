package stub

import (
	"context"
	"encoding/binary"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"token-oracle-kit/internal/ethrpc"
)

// ErrNoResponse is returned by Call when no response is registered for a call.
var ErrNoResponse = errors.New("no stub response registered")

// RPCClient implements ethrpc.Client for testing.
// Call responses are keyed by contract address and 4-byte selector.
type RPCClient struct {
	mu sync.Mutex

	Responses map[common.Address]map[[4]byte][]byte
	Receipts  map[common.Hash]*ethrpc.Receipt
	Calls     []ethrpc.CallMsg
	Sent      []ethrpc.SendTxArgs

	// AutoMine makes SendTransaction register a successful receipt immediately.
	AutoMine bool
	// CallErr and SendErr, when set, are returned by Call and SendTransaction.
	CallErr error
	SendErr error

	Chain *big.Int
	nonce uint64
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Responses: make(map[common.Address]map[[4]byte][]byte),
		Receipts:  make(map[common.Hash]*ethrpc.Receipt),
		Chain:     big.NewInt(1337),
	}
}

// SetResponse registers the return data for calls to selector on contract.
func (c *RPCClient) SetResponse(contract common.Address, selector []byte, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var key [4]byte
	copy(key[:], selector)
	if c.Responses[contract] == nil {
		c.Responses[contract] = make(map[[4]byte][]byte)
	}
	c.Responses[contract][key] = data
}

// Call returns the registered response for the call's contract and selector.
func (c *RPCClient) Call(_ context.Context, msg ethrpc.CallMsg) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Calls = append(c.Calls, msg)
	if c.CallErr != nil {
		return nil, c.CallErr
	}

	var key [4]byte
	copy(key[:], msg.Data)
	data, ok := c.Responses[msg.To][key]
	if !ok {
		return nil, ErrNoResponse
	}
	return data, nil
}

// SendTransaction records the transaction and returns a deterministic hash.
func (c *RPCClient) SendTransaction(_ context.Context, args ethrpc.SendTxArgs) (common.Hash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.SendErr != nil {
		return common.Hash{}, c.SendErr
	}

	c.Sent = append(c.Sent, args)
	c.nonce++

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], c.nonce)
	hash := crypto.Keccak256Hash(args.From.Bytes(), buf[:], args.Data)

	if c.AutoMine {
		c.Receipts[hash] = &ethrpc.Receipt{
			TxHash:      hash,
			BlockNumber: c.nonce,
			Status:      ethrpc.ReceiptStatusSuccessful,
		}
	}
	return hash, nil
}

// TransactionReceipt returns the registered receipt, or nil if none.
func (c *RPCClient) TransactionReceipt(_ context.Context, hash common.Hash) (*ethrpc.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.Receipts[hash]
	if !ok {
		return nil, nil
	}
	copy := *r
	return &copy, nil
}

// ChainID returns the configured chain ID.
func (c *RPCClient) ChainID(_ context.Context) (*big.Int, error) {
	return new(big.Int).Set(c.Chain), nil
}

// Mine registers a receipt for hash with the given status.
func (c *RPCClient) Mine(hash common.Hash, status uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Receipts[hash] = &ethrpc.Receipt{TxHash: hash, Status: status}
}

// SentTransactions returns a copy of the transactions sent so far.
func (c *RPCClient) SentTransactions() []ethrpc.SendTxArgs {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]ethrpc.SendTxArgs(nil), c.Sent...)
}

// CallCount returns the number of eth_call requests received.
func (c *RPCClient) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.Calls)
}

var _ ethrpc.Client = (*RPCClient)(nil)
