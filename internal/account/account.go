// Package account supplies the "current account" used as the sender of writes
// and recorded in action metadata.
package account

import "github.com/ethereum/go-ethereum/common"

// Provider exposes the active account.
type Provider interface {
	CurrentAccount() common.Address
}

// Static is a Provider with a fixed address.
type Static common.Address

// CurrentAccount returns the fixed address.
func (s Static) CurrentAccount() common.Address {
	return common.Address(s)
}

// FromHex parses a hex address into a Static provider.
func FromHex(s string) (Static, bool) {
	if !common.IsHexAddress(s) {
		return Static{}, false
	}
	return Static(common.HexToAddress(s)), true
}
