package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/corridorledger/substrate/pkg/policy"
)

func newMockScheduledActionStore(t *testing.T) (*PostgresScheduledActionStore, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	return NewPostgresScheduledActionStore(db), mock, func() { _ = db.Close() }
}

func TestPostgresScheduledActionStore_Schedule(t *testing.T) {
	store, mock, closeDB := newMockScheduledActionStore(t)
	defer closeDB()

	mock.ExpectExec("INSERT INTO policy_scheduled_actions").
		WillReturnResult(sqlmock.NewResult(0, 1))

	action := policy.ScheduledAction{
		PolicyID: "pol-1",
		Trigger:  policy.TriggerDisputeFiled,
		Action:   policy.Action{Kind: "notify_regulator", Target: "jurisdiction-us"},
		Status:   policy.ScheduledPending,
	}

	id, err := store.Schedule(context.Background(), action)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if id == "" {
		t.Fatal("expected a non-empty generated ID")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresScheduledActionStore_GetPendingAndMarkDone(t *testing.T) {
	store, mock, closeDB := newMockScheduledActionStore(t)
	defer closeDB()

	action := policy.ScheduledAction{
		PolicyID: "pol-1",
		Trigger:  policy.TriggerEnforcementOrderIssued,
		Action:   policy.Action{Kind: "freeze_corridor", Target: "corridor-1"},
		Status:   policy.ScheduledPending,
	}
	actionJSON, err := json.Marshal(action)
	if err != nil {
		t.Fatalf("marshal action: %v", err)
	}

	rows := sqlmock.NewRows([]string{"id", "action_json", "scheduled_at"}).
		AddRow("rec-1", actionJSON, time.Unix(1000, 0).UTC())
	mock.ExpectQuery("SELECT id, action_json, scheduled_at").WillReturnRows(rows)

	records, err := store.GetPending(context.Background())
	if err != nil {
		t.Fatalf("GetPending: %v", err)
	}
	if len(records) != 1 || records[0].ID != "rec-1" {
		t.Fatalf("unexpected records: %+v", records)
	}
	if records[0].Action.PolicyID != "pol-1" {
		t.Fatalf("expected round-tripped action, got %+v", records[0].Action)
	}

	mock.ExpectExec("UPDATE policy_scheduled_actions SET status").
		WithArgs(string(policy.ScheduledDone), "rec-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.MarkDone(context.Background(), "rec-1"); err != nil {
		t.Fatalf("MarkDone: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
