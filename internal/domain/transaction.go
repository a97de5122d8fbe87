package domain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// TxStatus is the lifecycle state of a tracked transaction.
// Transitions: initialized -> pending -> mined, and any non-terminal state -> failed.
type TxStatus string

const (
	TxInitialized TxStatus = "initialized"
	TxPending     TxStatus = "pending"
	TxMined       TxStatus = "mined"
	TxFailed      TxStatus = "failed"
)

// String returns the string representation of TxStatus.
func (s TxStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transitions are possible.
func (s TxStatus) IsTerminal() bool {
	return s == TxMined || s == TxFailed
}

// TrackingMode selects how a request is handed to the transaction manager.
type TrackingMode string

const (
	// TrackingPlain returns once the node has accepted the transaction.
	TrackingPlain TrackingMode = "plain"
	// TrackingHybrid returns a handle immediately; broadcast happens in the background.
	TrackingHybrid TrackingMode = "hybrid"
)

// String returns the string representation of TrackingMode.
func (m TrackingMode) String() string {
	return string(m)
}

// IsValid checks if the mode is a valid value.
func (m TrackingMode) IsValid() bool {
	return m == TrackingPlain || m == TrackingHybrid
}

// PendingTx is a handle to a submitted transaction.
type PendingTx interface {
	ID() string
	Status() TxStatus
	Hash() common.Hash
	Metadata() *ActionMetadata
	// Done is closed when the transaction reaches a terminal status.
	Done() <-chan struct{}
	// Wait blocks until the transaction is mined (nil) or failed (its error).
	Wait(ctx context.Context) error
}

// TxOptions is the options bag passed with a contract write.
type TxOptions struct {
	Metadata *ActionMetadata
	// After chains the new request onto an existing transaction: it is not
	// broadcast until After is terminal, and fails if After failed.
	After PendingTx
}

// TransactionRequest is a contract write ready for submission.
type TransactionRequest struct {
	ID       string
	From     common.Address
	To       common.Address
	Method   string
	Args     []interface{} // logical arguments, as packed into Data
	Data     []byte        // ABI-encoded calldata
	Metadata *ActionMetadata
	After    PendingTx
}

// TxRecord is the journaled state of a tracked transaction.
type TxRecord struct {
	ID        string
	From      common.Address
	To        common.Address
	Method    string
	Data      []byte
	Metadata  *ActionMetadata // nil when the write carried none
	Tracking  TrackingMode
	Status    TxStatus
	Hash      *common.Hash // nil until broadcast
	Error     string
	CreatedAt int64 // ms
	UpdatedAt int64 // ms
}

// TxUpdate is a status transition applied to a TxRecord.
type TxUpdate struct {
	Status    TxStatus
	Hash      *common.Hash
	Error     string
	UpdatedAt int64 // ms
}
