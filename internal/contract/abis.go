package contract

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const erc20JSON = `[
	{"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
	{"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"transferFrom","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

// The read oracle exposes the current price as an ASCII-encoded bytes32.
const readOracleJSON = `[
	{"type":"function","name":"pip","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bytes32"}]}
]`

// The write oracle accepts a new price scaled to the reference token's decimals.
const writeOracleJSON = `[
	{"type":"function","name":"poke","stateMutability":"nonpayable","inputs":[{"name":"wut","type":"bytes32"}],"outputs":[]}
]`

// Parsed ABIs.
var (
	ERC20ABI       = mustParseABI(erc20JSON)
	ReadOracleABI  = mustParseABI(readOracleJSON)
	WriteOracleABI = mustParseABI(writeOracleJSON)
)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic("contract: invalid built-in ABI: " + err.Error())
	}
	return parsed
}
