package pricefeed

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-oracle-kit/internal/account"
	"token-oracle-kit/internal/contract"
	"token-oracle-kit/internal/currency"
	"token-oracle-kit/internal/domain"
	"token-oracle-kit/internal/ethrpc/stub"
	"token-oracle-kit/internal/token"
)

var (
	readAddr  = common.HexToAddress("0x00000000000000000000000000000000000000f1")
	writeAddr = common.HexToAddress("0x00000000000000000000000000000000000000f2")
	me        = common.HexToAddress("0x00000000000000000000000000000000000000aa")
)

type recordingSubmitter struct {
	reqs  []*domain.TransactionRequest
	modes []domain.TrackingMode
	err   error
}

func (s *recordingSubmitter) Submit(_ context.Context, req *domain.TransactionRequest, mode domain.TrackingMode) (domain.PendingTx, error) {
	s.reqs = append(s.reqs, req)
	s.modes = append(s.modes, mode)
	if s.err != nil {
		return nil, s.err
	}
	return handle{id: req.ID}, nil
}

type handle struct{ id string }

func (h handle) ID() string                     { return h.id }
func (handle) Status() domain.TxStatus          { return domain.TxInitialized }
func (handle) Hash() common.Hash                { return common.Hash{} }
func (handle) Metadata() *domain.ActionMetadata { return nil }
func (handle) Done() <-chan struct{}            { return nil }
func (handle) Wait(context.Context) error       { return nil }

func wethLookup(decimals uint8) TokenLookup {
	return func(_ context.Context, symbol currency.Unit) (Scaler, error) {
		if symbol != "WETH" {
			return nil, currency.ErrUnknownUnit
		}
		return token.NewToken("WETH", decimals, nil, nil, account.Static(me)), nil
	}
}

func newFeed(rpc *stub.RPCClient, sub *recordingSubmitter, lookup TokenLookup) *Service {
	svc := contract.NewService(rpc, sub, account.Static(me))
	return NewService(Config{
		Read:      svc.Bind(readAddr, contract.ReadOracleABI),
		Write:     svc.Bind(writeAddr, contract.WriteOracleABI),
		Submitter: sub,
		Tokens:    lookup,
		Logger:    zerolog.Nop(),
	})
}

func TestGetPrice(t *testing.T) {
	raw, err := hexutil.Decode("0x3430302e3030")
	require.NoError(t, err)
	var word [32]byte
	copy(word[:], raw)

	rpc := stub.NewRPCClient()
	pip := contract.ReadOracleABI.Methods["pip"]
	out, err := pip.Outputs.Pack(word)
	require.NoError(t, err)
	rpc.SetResponse(readAddr, pip.ID, out)

	feed := newFeed(rpc, &recordingSubmitter{}, wethLookup(18))

	price, err := feed.GetPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "400.00", price)
}

func TestGetPrice_ReadError(t *testing.T) {
	rpc := stub.NewRPCClient()
	boom := errors.New("connection refused")
	rpc.CallErr = boom

	_, err := newFeed(rpc, &recordingSubmitter{}, wethLookup(18)).GetPrice(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestSetPrice(t *testing.T) {
	sub := &recordingSubmitter{}
	feed := newFeed(stub.NewRPCClient(), sub, wethLookup(18))

	tx, err := feed.SetPrice(context.Background(), decimal.RequireFromString("400.00"))
	require.NoError(t, err)
	require.NotNil(t, tx)

	require.Len(t, sub.reqs, 1)
	req := sub.reqs[0]
	assert.Equal(t, domain.TrackingHybrid, sub.modes[0])
	assert.Equal(t, writeAddr, req.To)
	assert.Equal(t, me, req.From)
	assert.Equal(t, "poke", req.Method)
	assert.Nil(t, req.Metadata, "price updates carry no action metadata")
	assert.Equal(t, req.ID, tx.ID())

	poke := contract.WriteOracleABI.Methods["poke"]
	assert.Equal(t, poke.ID, req.Data[:4])
	got := new(big.Int).SetBytes(req.Data[4:])
	assert.Equal(t, "400000000000000000000", got.String())
}

func TestSetPrice_ReferenceDecimals(t *testing.T) {
	sub := &recordingSubmitter{}
	feed := newFeed(stub.NewRPCClient(), sub, wethLookup(6))

	_, err := feed.SetPrice(context.Background(), decimal.RequireFromString("1.25"))
	require.NoError(t, err)
	assert.Equal(t, "1250000", new(big.Int).SetBytes(sub.reqs[0].Data[4:]).String())
}

func TestSetPrice_Errors(t *testing.T) {
	t.Run("negative price", func(t *testing.T) {
		sub := &recordingSubmitter{}
		_, err := newFeed(stub.NewRPCClient(), sub, wethLookup(18)).SetPrice(context.Background(), decimal.NewFromInt(-1))
		require.ErrorIs(t, err, currency.ErrInvalidAmount)
		assert.Empty(t, sub.reqs)
	})

	t.Run("unknown reference token", func(t *testing.T) {
		sub := &recordingSubmitter{}
		feed := newFeed(stub.NewRPCClient(), sub, wethLookup(18))
		feed.reference = "DAI"
		_, err := feed.SetPrice(context.Background(), decimal.NewFromInt(1))
		require.ErrorIs(t, err, currency.ErrUnknownUnit)
		assert.Empty(t, sub.reqs)
	})

	t.Run("submit failure", func(t *testing.T) {
		boom := errors.New("manager closed")
		sub := &recordingSubmitter{err: boom}
		_, err := newFeed(stub.NewRPCClient(), sub, wethLookup(18)).SetPrice(context.Background(), decimal.NewFromInt(1))
		require.ErrorIs(t, err, boom)
	})
}

func TestNewService_DefaultReference(t *testing.T) {
	feed := newFeed(stub.NewRPCClient(), &recordingSubmitter{}, wethLookup(18))
	assert.Equal(t, DefaultReferenceToken, feed.Reference())
}
