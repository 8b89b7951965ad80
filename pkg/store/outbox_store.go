package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/corridorledger/substrate/pkg/policy"
)

// ScheduledActionRecord is a persisted policy.ScheduledAction, as handed
// back by a PostgresScheduledActionStore so a dispatcher process can
// resume pending work after a restart.
type ScheduledActionRecord struct {
	ID          string
	Action      policy.ScheduledAction
	ScheduledAt time.Time
}

// ScheduledActionStore persists the outbox of ScheduledActions dispatch
// produces, so an operator process can poll for pending work, mark it
// done, and survive a restart without losing in-flight dispatch state.
type ScheduledActionStore interface {
	Schedule(ctx context.Context, action policy.ScheduledAction) (string, error)
	GetPending(ctx context.Context) ([]*ScheduledActionRecord, error)
	MarkDone(ctx context.Context, id string) error
}

// PostgresScheduledActionStore is a durable SQL-backed ScheduledActionStore.
type PostgresScheduledActionStore struct {
	db *sql.DB
}

func NewPostgresScheduledActionStore(db *sql.DB) *PostgresScheduledActionStore {
	return &PostgresScheduledActionStore{db: db}
}

const pgScheduledActionSchema = `
CREATE TABLE IF NOT EXISTS policy_scheduled_actions (
	id TEXT PRIMARY KEY,
	action_json JSONB NOT NULL,
	scheduled_at TIMESTAMP NOT NULL,
	status TEXT NOT NULL
);
`

func (s *PostgresScheduledActionStore) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, pgScheduledActionSchema)
	return err
}

func (s *PostgresScheduledActionStore) Schedule(ctx context.Context, action policy.ScheduledAction) (string, error) {
	actionJSON, err := json.Marshal(action)
	if err != nil {
		return "", err
	}

	id := uuid.New().String()
	query := `
		INSERT INTO policy_scheduled_actions (id, action_json, scheduled_at, status)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := s.db.ExecContext(ctx, query, id, actionJSON, time.Now().UTC(), string(policy.ScheduledPending)); err != nil {
		return "", fmt.Errorf("failed to schedule action: %w", err)
	}
	return id, nil
}

func (s *PostgresScheduledActionStore) GetPending(ctx context.Context) ([]*ScheduledActionRecord, error) {
	query := `
		SELECT id, action_json, scheduled_at
		FROM policy_scheduled_actions
		WHERE status = $1
		ORDER BY scheduled_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, string(policy.ScheduledPending))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	//nolint:prealloc // result count unknown from SQL query
	var results []*ScheduledActionRecord
	for rows.Next() {
		var id string
		var actionJSON []byte
		var scheduledAt time.Time

		if err := rows.Scan(&id, &actionJSON, &scheduledAt); err != nil {
			return nil, err
		}

		var action policy.ScheduledAction
		if err := json.Unmarshal(actionJSON, &action); err != nil {
			return nil, fmt.Errorf("corrupt scheduled action JSON in outbox record %s: %w", id, err)
		}

		results = append(results, &ScheduledActionRecord{ID: id, Action: action, ScheduledAt: scheduledAt})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *PostgresScheduledActionStore) MarkDone(ctx context.Context, id string) error {
	query := `UPDATE policy_scheduled_actions SET status = $1 WHERE id = $2`
	_, err := s.db.ExecContext(ctx, query, string(policy.ScheduledDone), id)
	return err
}
