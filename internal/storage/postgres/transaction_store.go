package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"

	"token-oracle-kit/internal/domain"
	"token-oracle-kit/internal/storage"
)

// TransactionStore implements storage.TransactionStore using PostgreSQL.
type TransactionStore struct {
	pool *Pool
}

// NewTransactionStore creates a new TransactionStore.
func NewTransactionStore(pool *Pool) *TransactionStore {
	return &TransactionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TransactionStore = (*TransactionStore)(nil)

// Insert adds a new record. Returns ErrDuplicateKey if the ID exists.
func (s *TransactionStore) Insert(ctx context.Context, r *domain.TxRecord) error {
	if r == nil || r.ID == "" {
		return storage.ErrInvalidInput
	}

	metadata, err := encodeMetadata(r.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO tx_journal (
			id, from_address, to_address, method, data, metadata,
			tracking, status, tx_hash, error, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = s.pool.Exec(ctx, query,
		r.ID,
		r.From.Hex(),
		r.To.Hex(),
		r.Method,
		r.Data,
		metadata,
		string(r.Tracking),
		string(r.Status),
		hashString(r.Hash),
		r.Error,
		r.CreatedAt,
		r.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert tx record: %w", err)
	}
	return nil
}

// UpdateStatus applies a status transition inside a row-locking transaction.
func (s *TransactionStore) UpdateStatus(ctx context.Context, id string, u domain.TxUpdate) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var current string
	err = tx.QueryRow(ctx, `SELECT status FROM tx_journal WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if err != nil {
		if isNotFoundError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("lock tx record: %w", err)
	}

	if !storage.CanTransition(domain.TxStatus(current), u.Status) {
		return storage.ErrInvalidTransition
	}

	query := `
		UPDATE tx_journal
		SET status = $2,
			tx_hash = COALESCE($3, tx_hash),
			error = CASE WHEN $4::text = '' THEN error ELSE $4::text END,
			updated_at = $5
		WHERE id = $1
	`
	if _, err := tx.Exec(ctx, query, id, string(u.Status), hashString(u.Hash), u.Error, u.UpdatedAt); err != nil {
		return fmt.Errorf("update tx record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByID retrieves a record by ID. Returns ErrNotFound if not exists.
func (s *TransactionStore) GetByID(ctx context.Context, id string) (*domain.TxRecord, error) {
	query := `
		SELECT id, from_address, to_address, method, data, metadata,
			tracking, status, tx_hash, error, created_at, updated_at
		FROM tx_journal
		WHERE id = $1
	`

	r, err := scanTxRecord(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get tx record by id: %w", err)
	}
	return r, nil
}

// List retrieves all records ordered by created_at ASC, then ID.
func (s *TransactionStore) List(ctx context.Context) ([]*domain.TxRecord, error) {
	query := `
		SELECT id, from_address, to_address, method, data, metadata,
			tracking, status, tx_hash, error, created_at, updated_at
		FROM tx_journal
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tx records: %w", err)
	}
	defer rows.Close()

	var result []*domain.TxRecord
	for rows.Next() {
		r, err := scanTxRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tx record: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tx records: %w", err)
	}
	return result, nil
}

// scanTxRecord scans a single row into TxRecord.
func scanTxRecord(row pgx.Row) (*domain.TxRecord, error) {
	var (
		r                domain.TxRecord
		from, to         string
		metadata         []byte
		tracking, status string
		hash             *string
	)

	err := row.Scan(
		&r.ID,
		&from,
		&to,
		&r.Method,
		&r.Data,
		&metadata,
		&tracking,
		&status,
		&hash,
		&r.Error,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.From = common.HexToAddress(from)
	r.To = common.HexToAddress(to)
	r.Tracking = domain.TrackingMode(tracking)
	r.Status = domain.TxStatus(status)
	if hash != nil {
		h := common.HexToHash(*hash)
		r.Hash = &h
	}
	if len(metadata) > 0 {
		var m domain.ActionMetadata
		if err := json.Unmarshal(metadata, &m); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
		r.Metadata = &m
	}

	return &r, nil
}

func encodeMetadata(m *domain.ActionMetadata) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return data, nil
}

func hashString(h *common.Hash) *string {
	if h == nil {
		return nil
	}
	s := h.Hex()
	return &s
}
