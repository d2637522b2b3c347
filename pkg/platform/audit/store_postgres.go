package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"member-vault/pkg/domain"
)

// PostgresStore persists audit events to the audit_events table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the audit_events table when missing. Idempotent.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS audit_events (
			id         UUID PRIMARY KEY,
			occurred   TIMESTAMPTZ NOT NULL,
			action     TEXT NOT NULL,
			user_id    BIGINT NOT NULL,
			kind       TEXT NOT NULL,
			record_id  BIGINT NOT NULL,
			request_id TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS audit_events_user_idx ON audit_events (user_id, occurred);
	`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	const query = `
		INSERT INTO audit_events (id, occurred, action, user_id, kind, record_id, request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.New(), event.Timestamp, string(event.Action),
		event.UserID.Int64(), event.Kind, event.RecordID, event.RequestID)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID domain.UserID) ([]Event, error) {
	const query = `
		SELECT occurred, action, user_id, kind, record_id, request_id
		FROM audit_events WHERE user_id = $1 ORDER BY occurred
	`
	rows, err := s.db.QueryContext(ctx, query, userID.Int64())
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			e      Event
			action string
			user   int64
		)
		if err := rows.Scan(&e.Timestamp, &action, &user, &e.Kind, &e.RecordID, &e.RequestID); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Action = Action(action)
		e.UserID = domain.UserID(user)
		out = append(out, e)
	}
	return out, rows.Err()
}
