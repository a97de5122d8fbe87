package storage

import (
	"context"

	"token-oracle-kit/internal/domain"
)

// TransactionStore provides access to the transaction journal.
type TransactionStore interface {
	// Insert adds a new record. Returns ErrDuplicateKey if the ID exists.
	Insert(ctx context.Context, r *domain.TxRecord) error

	// UpdateStatus applies a status transition. Returns ErrNotFound if the ID
	// does not exist and ErrInvalidTransition if the transition is not allowed.
	UpdateStatus(ctx context.Context, id string, u domain.TxUpdate) error

	// GetByID retrieves a record by ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.TxRecord, error)

	// List retrieves all records ordered by created_at ASC, then ID.
	List(ctx context.Context) ([]*domain.TxRecord, error)
}

// CanTransition reports whether a record may move from one status to another.
func CanTransition(from, to domain.TxStatus) bool {
	switch from {
	case domain.TxInitialized:
		return to == domain.TxPending || to == domain.TxFailed
	case domain.TxPending:
		return to == domain.TxMined || to == domain.TxFailed
	default:
		return false
	}
}
