package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/corridorledger/substrate/pkg/receipts"
)

func newMockReceiptStore(t *testing.T) (*PostgresReceiptStore, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	return NewPostgresReceiptStore(db), mock, func() { _ = db.Close() }
}

func TestPostgresReceiptStore_StoreAndGet(t *testing.T) {
	store, mock, closeDB := newMockReceiptStore(t)
	defer closeDB()

	r := &receipts.ReceiptWithRoots{
		Sequence: 1,
		PrevRoot: "sha256:prev",
		NextRoot: "sha256:next",
		MMRRoot:  "sha256:mmr",
		MMRIndex: 0,
		Payload:  json.RawMessage(`{"amount":100}`),
		IssuedAt: time.Unix(1000, 0).UTC(),
		Proposer: "zone-us",
		Digest:   "sha256:digest",
	}

	mock.ExpectExec("INSERT INTO corridor_receipts").
		WithArgs("corridor-1", r.Sequence, r.PrevRoot, r.NextRoot, r.MMRRoot, r.MMRIndex, []byte(r.Payload), r.IssuedAt, r.Proposer, r.Digest).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.Store(context.Background(), "corridor-1", r); err != nil {
		t.Fatalf("Store: %v", err)
	}

	rows := sqlmock.NewRows([]string{"sequence", "prev_root", "next_root", "mmr_root", "mmr_index", "payload", "issued_at", "proposer", "digest"}).
		AddRow(r.Sequence, r.PrevRoot, r.NextRoot, r.MMRRoot, r.MMRIndex, []byte(r.Payload), r.IssuedAt, r.Proposer, r.Digest)
	mock.ExpectQuery("SELECT sequence, prev_root, next_root, mmr_root, mmr_index, payload, issued_at, proposer, digest").
		WillReturnRows(rows)

	got, err := store.Get(context.Background(), "corridor-1", 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Digest != r.Digest || got.Sequence != r.Sequence {
		t.Fatalf("round-tripped receipt mismatch: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresReceiptStore_LastReturnsNotFoundOnEmptyCorridor(t *testing.T) {
	store, mock, closeDB := newMockReceiptStore(t)
	defer closeDB()

	mock.ExpectQuery("SELECT sequence, prev_root, next_root, mmr_root, mmr_index, payload, issued_at, proposer, digest").
		WillReturnRows(sqlmock.NewRows([]string{"sequence", "prev_root", "next_root", "mmr_root", "mmr_index", "payload", "issued_at", "proposer", "digest"}))

	_, err := store.Last(context.Background(), "corridor-new")
	if err != ErrReceiptNotFound {
		t.Fatalf("expected ErrReceiptNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
