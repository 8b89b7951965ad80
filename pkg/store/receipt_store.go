package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/corridorledger/substrate/pkg/receipts"
)

// ErrReceiptNotFound is returned when a lookup matches no persisted receipt.
var ErrReceiptNotFound = errors.New("store: receipt not found")

// ReceiptStore is a durable mirror of a corridor's in-memory receipts.Chain,
// so a dispatcher can reconstruct chain state after a restart without
// replaying every receipt proposal. Receipts are keyed by (corridor_id,
// sequence); receipts.ReceiptWithRoots carries no corridor identity of its
// own, so the store attaches it.
type ReceiptStore interface {
	Store(ctx context.Context, corridorID string, r *receipts.ReceiptWithRoots) error
	Get(ctx context.Context, corridorID string, sequence uint64) (*receipts.ReceiptWithRoots, error)
	List(ctx context.Context, corridorID string, limit int) ([]*receipts.ReceiptWithRoots, error)
	Last(ctx context.Context, corridorID string) (*receipts.ReceiptWithRoots, error)
}

// PostgresReceiptStore is a durable SQL-based ReceiptStore.
type PostgresReceiptStore struct {
	db *sql.DB
}

func NewPostgresReceiptStore(db *sql.DB) *PostgresReceiptStore {
	return &PostgresReceiptStore{db: db}
}

const pgReceiptSchema = `
CREATE TABLE IF NOT EXISTS corridor_receipts (
	corridor_id TEXT NOT NULL,
	sequence BIGINT NOT NULL,
	prev_root TEXT NOT NULL,
	next_root TEXT NOT NULL,
	mmr_root TEXT NOT NULL,
	mmr_index BIGINT NOT NULL,
	payload JSONB NOT NULL,
	issued_at TIMESTAMP NOT NULL,
	proposer TEXT NOT NULL,
	digest TEXT NOT NULL,
	PRIMARY KEY (corridor_id, sequence)
);
`

func (s *PostgresReceiptStore) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, pgReceiptSchema)
	return err
}

func (s *PostgresReceiptStore) Store(ctx context.Context, corridorID string, r *receipts.ReceiptWithRoots) error {
	query := `
		INSERT INTO corridor_receipts (corridor_id, sequence, prev_root, next_root, mmr_root, mmr_index, payload, issued_at, proposer, digest)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (corridor_id, sequence) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query,
		corridorID, r.Sequence, r.PrevRoot, r.NextRoot, r.MMRRoot, r.MMRIndex,
		[]byte(r.Payload), r.IssuedAt, r.Proposer, r.Digest,
	)
	if err != nil {
		return fmt.Errorf("failed to insert receipt: %w", err)
	}
	return nil
}

func (s *PostgresReceiptStore) Get(ctx context.Context, corridorID string, sequence uint64) (*receipts.ReceiptWithRoots, error) {
	query := `
		SELECT sequence, prev_root, next_root, mmr_root, mmr_index, payload, issued_at, proposer, digest
		FROM corridor_receipts
		WHERE corridor_id = $1 AND sequence = $2
	`
	return s.queryOne(ctx, query, corridorID, sequence)
}

func (s *PostgresReceiptStore) List(ctx context.Context, corridorID string, limit int) ([]*receipts.ReceiptWithRoots, error) {
	query := `
		SELECT sequence, prev_root, next_root, mmr_root, mmr_index, payload, issued_at, proposer, digest
		FROM corridor_receipts
		WHERE corridor_id = $1
		ORDER BY sequence DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, corridorID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*receipts.ReceiptWithRoots
	for rows.Next() {
		r, err := scanReceiptRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Last returns the highest-sequence receipt for a corridor, or
// ErrReceiptNotFound if the corridor has never had a receipt persisted
// (a fresh chain's genesis state).
func (s *PostgresReceiptStore) Last(ctx context.Context, corridorID string) (*receipts.ReceiptWithRoots, error) {
	query := `
		SELECT sequence, prev_root, next_root, mmr_root, mmr_index, payload, issued_at, proposer, digest
		FROM corridor_receipts
		WHERE corridor_id = $1
		ORDER BY sequence DESC
		LIMIT 1
	`
	return s.queryOne(ctx, query, corridorID)
}

func (s *PostgresReceiptStore) queryOne(ctx context.Context, query string, args ...any) (*receipts.ReceiptWithRoots, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrReceiptNotFound
	}
	return scanReceiptRow(rows)
}

type receiptRowScanner interface {
	Scan(dest ...any) error
}

func scanReceiptRow(rows receiptRowScanner) (*receipts.ReceiptWithRoots, error) {
	var r receipts.ReceiptWithRoots
	var payload []byte
	if err := rows.Scan(&r.Sequence, &r.PrevRoot, &r.NextRoot, &r.MMRRoot, &r.MMRIndex, &payload, &r.IssuedAt, &r.Proposer, &r.Digest); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReceiptNotFound
		}
		return nil, err
	}
	r.Payload = json.RawMessage(payload)
	return &r, nil
}
