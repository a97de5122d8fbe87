package txmanager

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"token-oracle-kit/internal/domain"
)

// Tx is the handle returned by Submit. It is safe for concurrent use.
type Tx struct {
	req       *domain.TransactionRequest
	mode      domain.TrackingMode
	createdAt time.Time

	mu     sync.RWMutex
	status domain.TxStatus
	hash   common.Hash
	err    error
	done   chan struct{}
}

func newTx(req *domain.TransactionRequest, mode domain.TrackingMode, now time.Time) *Tx {
	return &Tx{
		req:       req,
		mode:      mode,
		createdAt: now,
		status:    domain.TxInitialized,
		done:      make(chan struct{}),
	}
}

// ID returns the request ID.
func (t *Tx) ID() string { return t.req.ID }

// Mode returns the tracking mode the transaction was submitted with.
func (t *Tx) Mode() domain.TrackingMode { return t.mode }

// Metadata returns the action metadata, or nil if the write carried none.
func (t *Tx) Metadata() *domain.ActionMetadata { return t.req.Metadata }

// Status returns the current lifecycle status.
func (t *Tx) Status() domain.TxStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// Hash returns the transaction hash, or the zero hash before broadcast.
func (t *Tx) Hash() common.Hash {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.hash
}

// Err returns the failure cause once the transaction has failed.
func (t *Tx) Err() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.err
}

// Done is closed when the transaction is mined or failed.
func (t *Tx) Done() <-chan struct{} { return t.done }

// Wait blocks until the transaction is terminal or ctx is done.
func (t *Tx) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// setPending records the broadcast hash. Returns false if already terminal.
func (t *Tx) setPending(hash common.Hash) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != domain.TxInitialized {
		return false
	}
	t.status = domain.TxPending
	t.hash = hash
	return true
}

// finish moves the transaction to a terminal status. Returns false if it
// already was terminal.
func (t *Tx) finish(status domain.TxStatus, err error) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status.IsTerminal() {
		return false
	}
	t.status = status
	t.err = err
	close(t.done)
	return true
}

var _ domain.PendingTx = (*Tx)(nil)
