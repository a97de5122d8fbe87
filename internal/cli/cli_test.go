package cli

import (
	"bytes"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-oracle-kit/internal/config"
	"token-oracle-kit/internal/contract"
	"token-oracle-kit/internal/ethrpc/stub"
	"token-oracle-kit/internal/storage"
)

var (
	me       = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	spender  = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	wethAddr = common.HexToAddress("0x00000000000000000000000000000000000000e1")
	daiAddr  = common.HexToAddress("0x00000000000000000000000000000000000000d1")
	readAddr = common.HexToAddress("0x00000000000000000000000000000000000000f1")
)

const baseConfig = `
account: "0x00000000000000000000000000000000000000aa"
tokens:
  - symbol: WETH
    address: "0x00000000000000000000000000000000000000e1"
    decimals: 18
  - symbol: DAI
    address: "0x00000000000000000000000000000000000000d1"
    decimals: 18
tracker:
  poll_interval: 5ms
  timeout: 2s
log:
  level: error
  pretty: false
`

const oracleConfig = `
oracle:
  read: "0x00000000000000000000000000000000000000f1"
  write: "0x00000000000000000000000000000000000000f2"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tokenctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func respond(t *testing.T, rpc *stub.RPCClient, parsed abi.ABI, addr common.Address, method string, values ...interface{}) {
	t.Helper()
	m := parsed.Methods[method]
	out, err := m.Outputs.Pack(values...)
	require.NoError(t, err)
	rpc.SetResponse(addr, m.ID, out)
}

func run(t *testing.T, rpc *stub.RPCClient, cfg string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(rpc)
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--config", writeConfig(t, cfg)}, args...))
	err := root.Execute()
	return out.String(), err
}

func eth(v string) *big.Int {
	n, ok := new(big.Int).SetString(v, 10)
	if !ok {
		panic("bad number " + v)
	}
	return n
}

func TestBalance(t *testing.T) {
	rpc := stub.NewRPCClient()
	respond(t, rpc, contract.ERC20ABI, wethAddr, "balanceOf", eth("1500000000000000000"))

	out, err := run(t, rpc, baseConfig, "balance", "WETH")
	require.NoError(t, err)
	assert.Equal(t, "1.5 WETH\n", out)

	calls := rpc.Calls
	require.Len(t, calls, 1)
	args, err := contract.ERC20ABI.Methods["balanceOf"].Inputs.Unpack(calls[0].Data[4:])
	require.NoError(t, err)
	assert.Equal(t, me, args[0], "owner defaults to the configured account")
}

func TestBalances(t *testing.T) {
	rpc := stub.NewRPCClient()
	respond(t, rpc, contract.ERC20ABI, wethAddr, "balanceOf", eth("2000000000000000000"))
	respond(t, rpc, contract.ERC20ABI, daiAddr, "balanceOf", eth("250000000000000000"))

	out, err := run(t, rpc, baseConfig, "balances", spender.Hex())
	require.NoError(t, err)
	assert.Equal(t, "0.25 DAI\n2 WETH\n", out)
}

func TestAllowance_InvalidAddress(t *testing.T) {
	_, err := run(t, stub.NewRPCClient(), baseConfig, "allowance", "WETH", "nope", spender.Hex())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid address")
}

func TestApprove_Wait(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.AutoMine = true

	out, err := run(t, rpc, baseConfig, "approve", "WETH", spender.Hex(), "1.5", "--wait")
	require.NoError(t, err)
	fields := strings.Fields(out)
	require.Len(t, fields, 3)
	assert.Equal(t, "mined", fields[2])

	sent := rpc.SentTransactions()
	require.Len(t, sent, 1)
	assert.Equal(t, me, sent[0].From)
	assert.Equal(t, wethAddr, sent[0].To)
	args, err := contract.ERC20ABI.Methods["approve"].Inputs.Unpack(sent[0].Data[4:])
	require.NoError(t, err)
	assert.Equal(t, spender, args[0])
	assert.Equal(t, "1500000000000000000", args[1].(*big.Int).String())
}

func TestTransfer_BadValue(t *testing.T) {
	_, err := run(t, stub.NewRPCClient(), baseConfig, "transfer", "WETH", spender.Hex(), "lots")
	require.Error(t, err)
}

func TestTransfer_UnknownToken(t *testing.T) {
	rpc := stub.NewRPCClient()
	_, err := run(t, rpc, baseConfig, "transfer", "DOGE", spender.Hex(), "1")
	require.Error(t, err)
	assert.Empty(t, rpc.SentTransactions())
}

func TestPriceGet(t *testing.T) {
	rpc := stub.NewRPCClient()
	var word [32]byte
	copy(word[:], "400.00")
	respond(t, rpc, contract.ReadOracleABI, readAddr, "pip", word)

	out, err := run(t, rpc, baseConfig+oracleConfig, "price", "get")
	require.NoError(t, err)
	assert.Equal(t, "400.00\n", out)
}

func TestPriceSet_Wait(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.AutoMine = true

	out, err := run(t, rpc, baseConfig+oracleConfig, "price", "set", "400", "--wait")
	require.NoError(t, err)
	assert.Contains(t, out, "mined")

	sent := rpc.SentTransactions()
	require.Len(t, sent, 1)
	args, err := contract.WriteOracleABI.Methods["poke"].Inputs.Unpack(sent[0].Data[4:])
	require.NoError(t, err)
	word := args[0].([32]byte)
	assert.Equal(t, "400000000000000000000", new(big.Int).SetBytes(word[:]).String())
}

func TestPrice_NoOracle(t *testing.T) {
	_, err := run(t, stub.NewRPCClient(), baseConfig, "price", "get")
	require.ErrorIs(t, err, ErrNoOracle)
}

func TestTxShow_NotFound(t *testing.T) {
	_, err := run(t, stub.NewRPCClient(), baseConfig, "tx", "show", "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTxList_Empty(t *testing.T) {
	out, err := run(t, stub.NewRPCClient(), baseConfig, "tx", "list")
	require.NoError(t, err)
	assert.Equal(t, "ID  METHOD  STATUS  HASH\n", out)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(config.LogConfig{Level: "info"}, "warn", &buf)
	require.NoError(t, err)
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	_, err = newLogger(config.LogConfig{Level: "loud"}, "", &buf)
	require.Error(t, err)
}
