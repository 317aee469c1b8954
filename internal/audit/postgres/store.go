// Package postgres persists audit events durably. The audit trail is the only
// state this service keeps outside the ledger; identity facts never land here.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"tourchain/internal/audit"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the audit table if missing. Called once at startup.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS audit_events (
			id          UUID PRIMARY KEY,
			action      TEXT NOT NULL,
			actor       TEXT NOT NULL DEFAULT '',
			origin      TEXT NOT NULL DEFAULT '',
			device      TEXT NOT NULL DEFAULT '',
			occurred_at TIMESTAMPTZ NOT NULL,
			detail      JSONB NOT NULL DEFAULT '{}'::jsonb
		)`)
	if err != nil {
		return fmt.Errorf("create audit_events table: %w", err)
	}
	return nil
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	detail, err := json.Marshal(event.Detail)
	if err != nil {
		return fmt.Errorf("marshal audit detail: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, action, actor, origin, device, occurred_at, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.ID, string(event.Action), event.Actor, event.Origin, event.Device, event.At, detail,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, action, actor, origin, device, occurred_at, detail
		FROM audit_events
		ORDER BY occurred_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			event  audit.Event
			action string
			detail []byte
		)
		if err := rows.Scan(&event.ID, &action, &event.Actor, &event.Origin, &event.Device, &event.At, &detail); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Action = audit.Action(action)
		if len(detail) > 0 {
			if err := json.Unmarshal(detail, &event.Detail); err != nil {
				return nil, fmt.Errorf("unmarshal audit detail: %w", err)
			}
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
