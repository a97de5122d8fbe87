package domain

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"

	"token-oracle-kit/internal/currency"
)

// ActionName is the business intent of a write.
type ActionName string

const (
	ActionApprove  ActionName = "approve"
	ActionTransfer ActionName = "transfer"
)

// String returns the string representation of ActionName.
func (a ActionName) String() string {
	return string(a)
}

// IsValid checks if the action is a valid value.
func (a ActionName) IsValid() bool {
	return a == ActionApprove || a == ActionTransfer
}

// ActionMetadata describes why a write is made. It is built before the call is
// issued and never mutated afterwards.
//
// Approve uses Spender, Allowance, Allowing and Unlimited.
// Transfer uses From, To and Amount.
type ActionMetadata struct {
	Name ActionName `json:"name"`

	// approve
	Spender   *common.Address  `json:"spender,omitempty"`
	Allowance *currency.Amount `json:"allowance,omitempty"`
	Allowing  bool             `json:"allowing"`
	Unlimited bool             `json:"unlimited,omitempty"`

	// transfer
	From   *common.Address  `json:"from,omitempty"`
	To     *common.Address  `json:"to,omitempty"`
	Amount *currency.Amount `json:"amount,omitempty"`
}

// MarshalJSON always writes allowing for approve metadata, so a revoke carries
// an explicit false. Transfer metadata omits it.
func (m ActionMetadata) MarshalJSON() ([]byte, error) {
	type plain ActionMetadata
	out := struct {
		plain
		Allowing *bool `json:"allowing,omitempty"`
	}{plain: plain(m)}
	if m.Name == ActionApprove {
		out.Allowing = &m.Allowing
	}
	return json.Marshal(out)
}
