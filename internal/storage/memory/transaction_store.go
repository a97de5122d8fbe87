package memory

import (
	"context"
	"sort"
	"sync"

	"token-oracle-kit/internal/domain"
	"token-oracle-kit/internal/storage"
)

// TransactionStore is an in-memory implementation of storage.TransactionStore.
type TransactionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TxRecord // keyed by id
}

// NewTransactionStore creates a new in-memory transaction store.
func NewTransactionStore() *TransactionStore {
	return &TransactionStore{
		data: make(map[string]*domain.TxRecord),
	}
}

// Insert adds a new record. Returns ErrDuplicateKey if the ID exists.
func (s *TransactionStore) Insert(_ context.Context, r *domain.TxRecord) error {
	if r == nil || r.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.ID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[r.ID] = cloneRecord(r)
	return nil
}

// UpdateStatus applies a status transition.
func (s *TransactionStore) UpdateStatus(_ context.Context, id string, u domain.TxUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.data[id]
	if !exists {
		return storage.ErrNotFound
	}
	if !storage.CanTransition(r.Status, u.Status) {
		return storage.ErrInvalidTransition
	}

	r.Status = u.Status
	if u.Hash != nil {
		h := *u.Hash
		r.Hash = &h
	}
	if u.Error != "" {
		r.Error = u.Error
	}
	r.UpdatedAt = u.UpdatedAt
	return nil
}

// GetByID retrieves a record by ID. Returns ErrNotFound if not exists.
func (s *TransactionStore) GetByID(_ context.Context, id string) (*domain.TxRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneRecord(r), nil
}

// List retrieves all records ordered by created_at ASC, then ID.
func (s *TransactionStore) List(_ context.Context) ([]*domain.TxRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.TxRecord, 0, len(s.data))
	for _, r := range s.data {
		result = append(result, cloneRecord(r))
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// cloneRecord copies the record and its pointer fields.
// Metadata is shared: it is immutable once built.
func cloneRecord(r *domain.TxRecord) *domain.TxRecord {
	c := *r
	if r.Hash != nil {
		h := *r.Hash
		c.Hash = &h
	}
	if r.Data != nil {
		c.Data = append([]byte(nil), r.Data...)
	}
	return &c
}

var _ storage.TransactionStore = (*TransactionStore)(nil)
