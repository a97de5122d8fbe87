package token

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-oracle-kit/internal/account"
	"token-oracle-kit/internal/contract"
	"token-oracle-kit/internal/currency"
	"token-oracle-kit/internal/domain"
	"token-oracle-kit/internal/ethrpc"
	"token-oracle-kit/internal/ethrpc/stub"
	"token-oracle-kit/internal/storage/memory"
	"token-oracle-kit/internal/txmanager"
)

var (
	wethAddr = common.HexToAddress("0x00000000000000000000000000000000000000e1")
	daiAddr  = common.HexToAddress("0x00000000000000000000000000000000000000d1")
)

func uint8p(v uint8) *uint8 { return &v }

type harness struct {
	rpc *stub.RPCClient
	mgr *txmanager.Manager
	reg *Registry
}

func newHarness(t *testing.T, entries ...Entry) *harness {
	t.Helper()

	rpc := stub.NewRPCClient()
	rpc.AutoMine = true
	mgr := txmanager.New(txmanager.Config{
		RPC:          rpc,
		Store:        memory.NewTransactionStore(),
		Logger:       zerolog.Nop(),
		PollInterval: 5 * time.Millisecond,
	})
	t.Cleanup(mgr.Close)

	svc := contract.NewService(rpc, mgr, account.Static(me))
	reg, err := NewRegistry(RegistryConfig{
		Entries:  entries,
		Bind:     func(a common.Address) Contract { return svc.ERC20(a) },
		Accounts: account.Static(me),
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)

	return &harness{rpc: rpc, mgr: mgr, reg: reg}
}

func (h *harness) respond(t *testing.T, addr common.Address, method string, values ...interface{}) {
	t.Helper()
	m := contract.ERC20ABI.Methods[method]
	out, err := m.Outputs.Pack(values...)
	require.NoError(t, err)
	h.rpc.SetResponse(addr, m.ID, out)
}

func TestRegistry_Lookup(t *testing.T) {
	h := newHarness(t,
		Entry{Symbol: "WETH", Address: wethAddr, Decimals: uint8p(18)},
		Entry{Symbol: "USDC", Address: daiAddr, Decimals: uint8p(6)},
	)

	tok, err := h.reg.Lookup(context.Background(), "USDC")
	require.NoError(t, err)
	assert.Equal(t, currency.Unit("USDC"), tok.Symbol())
	assert.Equal(t, uint8(6), tok.Decimals())
	assert.Equal(t, daiAddr, tok.Address())
	assert.Zero(t, h.rpc.CallCount(), "configured decimals need no contract read")

	assert.Equal(t, []currency.Unit{"USDC", "WETH"}, h.reg.Symbols())
	require.NoError(t, h.reg.Units().Lookup("WETH"))
}

func TestRegistry_LookupUnknown(t *testing.T) {
	h := newHarness(t, Entry{Symbol: "WETH", Address: wethAddr, Decimals: uint8p(18)})

	_, err := h.reg.Lookup(context.Background(), "DOGE")
	require.ErrorIs(t, err, currency.ErrUnknownUnit)
}

func TestRegistry_DecimalsFromContractCached(t *testing.T) {
	h := newHarness(t, Entry{Symbol: "DAI", Address: daiAddr})
	h.respond(t, daiAddr, "decimals", uint8(18))

	for i := 0; i < 3; i++ {
		tok, err := h.reg.Lookup(context.Background(), "DAI")
		require.NoError(t, err)
		assert.Equal(t, uint8(18), tok.Decimals())
	}
	assert.Equal(t, 1, h.rpc.CallCount(), "decimals() is read once")
}

func TestRegistry_DecimalsReadError(t *testing.T) {
	h := newHarness(t, Entry{Symbol: "DAI", Address: daiAddr})

	_, err := h.reg.Lookup(context.Background(), "DAI")
	require.ErrorIs(t, err, stub.ErrNoResponse)
}

func TestNewRegistry_DuplicateSymbol(t *testing.T) {
	_, err := NewRegistry(RegistryConfig{
		Entries: []Entry{
			{Symbol: "WETH", Address: wethAddr},
			{Symbol: "WETH", Address: daiAddr},
		},
		Bind: func(common.Address) Contract { return &fakeContract{} },
	})
	require.ErrorIs(t, err, ErrDuplicateSymbol)
}

func TestBalances(t *testing.T) {
	h := newHarness(t,
		Entry{Symbol: "WETH", Address: wethAddr, Decimals: uint8p(18)},
		Entry{Symbol: "USDC", Address: daiAddr, Decimals: uint8p(6)},
	)
	h.respond(t, wethAddr, "balanceOf", big.NewInt(1_500_000_000_000_000_000))
	h.respond(t, daiAddr, "balanceOf", big.NewInt(42_000_000))

	got, err := Balances(context.Background(), h.reg, me, h.reg.Symbols())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "1.5 WETH", got["WETH"].String())
	assert.Equal(t, "42 USDC", got["USDC"].String())

	_, err = Balances(context.Background(), h.reg, me, []currency.Unit{"WETH", "DOGE"})
	require.ErrorIs(t, err, currency.ErrUnknownUnit)
}

func TestApprove_EndToEnd(t *testing.T) {
	h := newHarness(t, Entry{Symbol: "WETH", Address: wethAddr, Decimals: uint8p(18)})
	ctx := context.Background()

	weth, err := h.reg.Lookup(ctx, "WETH")
	require.NoError(t, err)

	tx, err := weth.Approve(ctx, spender, dec("1.5"), WriteOptions{Unit: "WETH"})
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, tx.Wait(waitCtx))

	sent := h.rpc.SentTransactions()
	require.Len(t, sent, 1)
	assert.Equal(t, wethAddr, sent[0].To)
	assert.Equal(t, me, sent[0].From)

	args, err := contract.ERC20ABI.Methods["approve"].Inputs.Unpack(sent[0].Data[4:])
	require.NoError(t, err)
	assert.Equal(t, spender, args[0])
	assert.Equal(t, "1500000000000000000", args[1].(*big.Int).String())

	rec, err := h.mgr.Get(ctx, tx.ID())
	require.NoError(t, err)
	assert.Equal(t, domain.TxMined, rec.Status)
	require.NotNil(t, rec.Metadata)
	assert.Equal(t, domain.ActionApprove, rec.Metadata.Name)
	assert.Equal(t, "1.5 WETH", rec.Metadata.Allowance.String())
	assert.True(t, rec.Metadata.Allowing)
	assert.Equal(t, me, *rec.Metadata.Spender)
}

func TestApprove_ChainedTransferFrom(t *testing.T) {
	h := newHarness(t, Entry{Symbol: "WETH", Address: wethAddr, Decimals: uint8p(18)})
	ctx := context.Background()

	weth, err := h.reg.Lookup(ctx, "WETH")
	require.NoError(t, err)

	approval, err := weth.ApproveUnlimited(ctx, spender, WriteOptions{})
	require.NoError(t, err)

	tx, err := weth.TransferFrom(ctx, me, abc, dec("1"), WriteOptions{Promise: approval})
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, tx.Wait(waitCtx))
	assert.Equal(t, domain.TxMined, approval.Status())

	sent := h.rpc.SentTransactions()
	require.Len(t, sent, 2)
	assert.Equal(t, contract.ERC20ABI.Methods["approve"].ID, sent[0].Data[:4])
	assert.Equal(t, contract.ERC20ABI.Methods["transferFrom"].ID, sent[1].Data[:4])
}

func TestTransferFrom_ChainedReturnsBeforeApprovalMined(t *testing.T) {
	h := newHarness(t, Entry{Symbol: "WETH", Address: wethAddr, Decimals: uint8p(18)})
	h.rpc.AutoMine = false
	ctx := context.Background()

	weth, err := h.reg.Lookup(ctx, "WETH")
	require.NoError(t, err)

	approval, err := weth.ApproveUnlimited(ctx, spender, WriteOptions{})
	require.NoError(t, err)
	require.Equal(t, domain.TxPending, approval.Status())

	returned := make(chan domain.PendingTx, 1)
	go func() {
		tx, err := weth.TransferFrom(ctx, me, abc, dec("1"), WriteOptions{Promise: approval})
		assert.NoError(t, err)
		returned <- tx
	}()

	var tx domain.PendingTx
	select {
	case tx = <-returned:
	case <-time.After(time.Second):
		t.Fatalf("TransferFrom did not return while the approval was %s", approval.Status())
	}
	require.NotNil(t, tx)
	assert.Equal(t, domain.TxPending, approval.Status())
	assert.Equal(t, domain.TxInitialized, tx.Status())
	assert.Len(t, h.rpc.SentTransactions(), 1, "transferFrom waits for the approval")

	h.rpc.Mine(approval.Hash(), ethrpc.ReceiptStatusSuccessful)
	require.Eventually(t, func() bool { return tx.Status() == domain.TxPending }, 2*time.Second, time.Millisecond)
	h.rpc.Mine(tx.Hash(), ethrpc.ReceiptStatusSuccessful)

	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, tx.Wait(waitCtx))
	assert.Len(t, h.rpc.SentTransactions(), 2)
}
