// Package txmanager submits contract writes to the node, journals their
// lifecycle and polls for receipts until each transaction is mined or failed.
package txmanager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"token-oracle-kit/internal/domain"
	"token-oracle-kit/internal/ethrpc"
	"token-oracle-kit/internal/observability"
	"token-oracle-kit/internal/storage"
)

var (
	// ErrInvalidRequest is returned when a request cannot be submitted.
	ErrInvalidRequest = errors.New("invalid transaction request")
	// ErrPredecessorFailed fails a chained request whose predecessor failed.
	ErrPredecessorFailed = errors.New("predecessor transaction failed")
	// ErrReverted is the failure cause of a mined transaction with status 0.
	ErrReverted = errors.New("transaction reverted")
	// ErrReceiptTimeout is the failure cause when no receipt arrives in time.
	ErrReceiptTimeout = errors.New("timed out waiting for receipt")
	// ErrClosed is returned by Submit after Close, and fails chained requests
	// still waiting for a predecessor when Close is called.
	ErrClosed = errors.New("transaction manager closed")
)

const (
	defaultPollInterval = 2 * time.Second
	defaultTimeout      = 5 * time.Minute
	journalTimeout      = 5 * time.Second
)

// Config contains configuration for creating a Manager.
type Config struct {
	RPC     ethrpc.Client
	Store   storage.TransactionStore
	Metrics *observability.Metrics // optional
	Logger  zerolog.Logger

	// PollInterval between receipt lookups. Defaults to 2s.
	PollInterval time.Duration
	// Timeout after broadcast before a transaction without receipt is failed.
	// Defaults to 5m.
	Timeout time.Duration

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Manager tracks submitted transactions from request to receipt.
type Manager struct {
	rpc          ethrpc.Client
	store        storage.TransactionStore
	metrics      *observability.Metrics
	logger       zerolog.Logger
	pollInterval time.Duration
	timeout      time.Duration
	now          func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	// mu guards closed and every wg.Add, so no goroutine is added once Close
	// has started waiting.
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// New creates a transaction manager. Call Close to stop background work.
func New(cfg Config) *Manager {
	m := &Manager{
		rpc:          cfg.RPC,
		store:        cfg.Store,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger.With().Str("component", "txmanager").Logger(),
		pollInterval: cfg.PollInterval,
		timeout:      cfg.Timeout,
		now:          cfg.Now,
	}
	if m.pollInterval <= 0 {
		m.pollInterval = defaultPollInterval
	}
	if m.timeout <= 0 {
		m.timeout = defaultTimeout
	}
	if m.now == nil {
		m.now = time.Now
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	return m
}

// Close stops receipt polling and waits for background work to exit. Hybrid
// broadcasts already sending are allowed to finish; those still waiting for a
// predecessor fail with ErrClosed. Transactions still pending stay pending in
// the journal.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()
}

// spawn runs fn on a tracked goroutine. It reports false, without running fn,
// once the manager is closed.
func (m *Manager) spawn(fn func()) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		fn()
	}()
	return true
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Submit journals req and hands it to the node.
//
// In plain mode Submit returns once the node has accepted the transaction and
// its hash is known. In hybrid mode Submit returns immediately and broadcast
// happens in the background. Either way the returned handle becomes terminal
// when a receipt arrives. A request with After set is journaled and returned
// immediately in either mode; it is broadcast in the background once After is
// terminal, and fails with ErrPredecessorFailed unless After was mined.
func (m *Manager) Submit(ctx context.Context, req *domain.TransactionRequest, mode domain.TrackingMode) (domain.PendingTx, error) {
	if err := validate(req, mode); err != nil {
		return nil, err
	}
	if m.isClosed() {
		return nil, ErrClosed
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	now := m.now()
	rec := &domain.TxRecord{
		ID:        req.ID,
		From:      req.From,
		To:        req.To,
		Method:    req.Method,
		Data:      req.Data,
		Metadata:  req.Metadata,
		Tracking:  mode,
		Status:    domain.TxInitialized,
		CreatedAt: now.UnixMilli(),
		UpdatedAt: now.UnixMilli(),
	}
	if err := m.store.Insert(ctx, rec); err != nil {
		return nil, fmt.Errorf("journal %s: %w", req.ID, err)
	}

	tx := newTx(req, mode, now)
	m.metrics.RecordSubmitted(mode.String(), actionLabel(req.Metadata))
	m.logger.Debug().
		Str("id", req.ID).
		Str("method", req.Method).
		Str("mode", mode.String()).
		Msg("transaction submitted")

	if mode == domain.TrackingPlain && req.After == nil {
		if err := m.broadcast(ctx, tx); err != nil {
			return nil, err
		}
		return tx, nil
	}

	started := m.spawn(func() {
		_ = m.broadcast(context.WithoutCancel(m.ctx), tx)
	})
	if !started {
		m.settle(tx, domain.TxFailed, ErrClosed)
		return nil, ErrClosed
	}
	return tx, nil
}

// Get returns the journaled record for id.
func (m *Manager) Get(ctx context.Context, id string) (*domain.TxRecord, error) {
	return m.store.GetByID(ctx, id)
}

// List returns all journaled records, oldest first.
func (m *Manager) List(ctx context.Context) ([]*domain.TxRecord, error) {
	return m.store.List(ctx)
}

func (m *Manager) broadcast(ctx context.Context, tx *Tx) error {
	if after := tx.req.After; after != nil {
		select {
		case <-after.Done():
		case <-ctx.Done():
			m.settle(tx, domain.TxFailed, ctx.Err())
			return ctx.Err()
		case <-m.ctx.Done():
			m.settle(tx, domain.TxFailed, ErrClosed)
			return ErrClosed
		}
		if after.Status() != domain.TxMined {
			err := fmt.Errorf("%w: %s", ErrPredecessorFailed, after.ID())
			m.settle(tx, domain.TxFailed, err)
			return err
		}
	}

	hash, err := m.rpc.SendTransaction(ctx, ethrpc.SendTxArgs{
		From: tx.req.From,
		To:   tx.req.To,
		Data: tx.req.Data,
	})
	if err != nil {
		err = fmt.Errorf("send %s: %w", tx.ID(), err)
		m.settle(tx, domain.TxFailed, err)
		return err
	}

	m.journal(tx.ID(), domain.TxUpdate{Status: domain.TxPending, Hash: &hash})
	tx.setPending(hash)
	m.logger.Info().
		Str("id", tx.ID()).
		Str("hash", hash.Hex()).
		Msg("transaction broadcast")

	m.spawn(func() { m.watch(tx, hash) })
	return nil
}

// watch polls for the receipt of hash until it arrives, the timeout elapses or
// the manager is closed.
func (m *Manager) watch(tx *Tx, hash common.Hash) {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(m.timeout)
	defer deadline.Stop()

	for {
		receipt, err := m.rpc.TransactionReceipt(m.ctx, hash)
		switch {
		case err != nil:
			m.logger.Debug().Err(err).Str("hash", hash.Hex()).Msg("receipt lookup failed")
		case receipt != nil && receipt.Status == ethrpc.ReceiptStatusSuccessful:
			m.settle(tx, domain.TxMined, nil)
			return
		case receipt != nil:
			m.settle(tx, domain.TxFailed, fmt.Errorf("%w: %s", ErrReverted, hash.Hex()))
			return
		}

		select {
		case <-m.ctx.Done():
			return
		case <-deadline.C:
			m.settle(tx, domain.TxFailed, fmt.Errorf("%w: %s after %s", ErrReceiptTimeout, hash.Hex(), m.timeout))
			return
		case <-ticker.C:
		}
	}
}

// settle journals a terminal status, then releases waiters on tx.
// Each transaction is driven by a single goroutine, so settle runs once per tx.
func (m *Manager) settle(tx *Tx, status domain.TxStatus, cause error) {
	u := domain.TxUpdate{Status: status}
	if cause != nil {
		u.Error = cause.Error()
	}
	m.journal(tx.ID(), u)
	m.metrics.RecordFinished(status.String(), actionLabel(tx.Metadata()), m.now().Sub(tx.createdAt).Seconds())

	ev := m.logger.Info()
	if cause != nil {
		ev = m.logger.Warn().Err(cause)
	}
	ev.Str("id", tx.ID()).Str("status", status.String()).Msg("transaction finished")

	tx.finish(status, cause)
}

// journal applies u to the stored record. Journal failures are logged and do
// not affect the in-memory handle.
func (m *Manager) journal(id string, u domain.TxUpdate) {
	ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()

	u.UpdatedAt = m.now().UnixMilli()
	if err := m.store.UpdateStatus(ctx, id, u); err != nil {
		m.logger.Error().Err(err).Str("id", id).Str("status", u.Status.String()).Msg("journal update failed")
	}
}

func validate(req *domain.TransactionRequest, mode domain.TrackingMode) error {
	switch {
	case req == nil:
		return fmt.Errorf("%w: nil request", ErrInvalidRequest)
	case !mode.IsValid():
		return fmt.Errorf("%w: tracking mode %q", ErrInvalidRequest, mode)
	case req.To == (common.Address{}):
		return fmt.Errorf("%w: missing destination", ErrInvalidRequest)
	case len(req.Data) == 0:
		return fmt.Errorf("%w: missing calldata", ErrInvalidRequest)
	}
	return nil
}

func actionLabel(meta *domain.ActionMetadata) string {
	if meta == nil {
		return "none"
	}
	return meta.Name.String()
}
