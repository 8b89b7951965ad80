package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/corridorledger/substrate/pkg/receipts"

	_ "modernc.org/sqlite"
)

// SQLiteReceiptStore is a single-file ReceiptStore for operators who don't
// run Postgres — an airgapped or single-node deployment, or a local
// corridor operator sandbox.
type SQLiteReceiptStore struct {
	db *sql.DB
}

func NewSQLiteReceiptStore(db *sql.DB) (*SQLiteReceiptStore, error) {
	s := &SQLiteReceiptStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteReceiptStore) migrate() error {
	query := `
    CREATE TABLE IF NOT EXISTS corridor_receipts (
        corridor_id TEXT NOT NULL,
        sequence INTEGER NOT NULL,
        prev_root TEXT NOT NULL,
        next_root TEXT NOT NULL,
        mmr_root TEXT NOT NULL,
        mmr_index INTEGER NOT NULL,
        payload JSON NOT NULL,
        issued_at DATETIME NOT NULL,
        proposer TEXT NOT NULL,
        digest TEXT NOT NULL,
        PRIMARY KEY (corridor_id, sequence)
    );`
	_, err := s.db.ExecContext(context.Background(), query)
	return err
}

func (s *SQLiteReceiptStore) Store(ctx context.Context, corridorID string, r *receipts.ReceiptWithRoots) error {
	query := `INSERT OR IGNORE INTO corridor_receipts (
		corridor_id, sequence, prev_root, next_root, mmr_root, mmr_index, payload, issued_at, proposer, digest
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		corridorID, r.Sequence, r.PrevRoot, r.NextRoot, r.MMRRoot, r.MMRIndex,
		[]byte(r.Payload), r.IssuedAt.UTC().Format(time.RFC3339Nano), r.Proposer, r.Digest,
	)
	if err != nil {
		return fmt.Errorf("failed to insert receipt: %w", err)
	}
	return nil
}

func (s *SQLiteReceiptStore) Get(ctx context.Context, corridorID string, sequence uint64) (*receipts.ReceiptWithRoots, error) {
	query := `
        SELECT sequence, prev_root, next_root, mmr_root, mmr_index, payload, issued_at, proposer, digest
        FROM corridor_receipts
        WHERE corridor_id = ? AND sequence = ?
    `
	return s.queryOne(ctx, query, corridorID, sequence)
}

func (s *SQLiteReceiptStore) List(ctx context.Context, corridorID string, limit int) ([]*receipts.ReceiptWithRoots, error) {
	query := `
        SELECT sequence, prev_root, next_root, mmr_root, mmr_index, payload, issued_at, proposer, digest
        FROM corridor_receipts
        WHERE corridor_id = ?
        ORDER BY sequence DESC
        LIMIT ?
    `
	rows, err := s.db.QueryContext(ctx, query, corridorID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*receipts.ReceiptWithRoots
	for rows.Next() {
		r, err := scanSQLiteReceiptRow(rows)
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

func (s *SQLiteReceiptStore) Last(ctx context.Context, corridorID string) (*receipts.ReceiptWithRoots, error) {
	query := `
        SELECT sequence, prev_root, next_root, mmr_root, mmr_index, payload, issued_at, proposer, digest
        FROM corridor_receipts
        WHERE corridor_id = ?
        ORDER BY sequence DESC
        LIMIT 1
    `
	return s.queryOne(ctx, query, corridorID)
}

func (s *SQLiteReceiptStore) queryOne(ctx context.Context, query string, args ...any) (*receipts.ReceiptWithRoots, error) {
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
	return scanSQLiteReceiptRow(rows)
}

func scanSQLiteReceiptRow(rows receiptRowScanner) (*receipts.ReceiptWithRoots, error) {
	var r receipts.ReceiptWithRoots
	var payload []byte
	var issuedAt string
	if err := rows.Scan(&r.Sequence, &r.PrevRoot, &r.NextRoot, &r.MMRRoot, &r.MMRIndex, &payload, &issuedAt, &r.Proposer, &r.Digest); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReceiptNotFound
		}
		return nil, err
	}
	r.Payload = json.RawMessage(payload)
	r.IssuedAt = parseTime(issuedAt)
	return &r, nil
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return time.Time{}
}
