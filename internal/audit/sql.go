package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/systmms/keyproxy/internal/database"
	"github.com/systmms/keyproxy/pkg/provider"
)

// SQLJournal stores events in the audit_logs table.
type SQLJournal struct {
	db *database.DB
}

// NewSQLJournal creates a journal on db. The schema must already be migrated.
func NewSQLJournal(db *database.DB) *SQLJournal {
	return &SQLJournal{db: db}
}

// Record inserts event.
func (j *SQLJournal) Record(ctx context.Context, event Event) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid audit event: %w", err)
	}

	_, err := j.db.ExecContext(ctx, j.db.Rebind(`
		INSERT INTO audit_logs (id, customer_email, action, secret_name, status, provider, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		event.ID,
		event.Identity,
		event.Action,
		nullString(event.SecretName),
		string(event.Status),
		nullString(string(event.Provider)),
		nullString(event.Error),
		event.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}
	return nil
}

// List returns identity's most recent events.
func (j *SQLJournal) List(ctx context.Context, identity string, limit int) ([]Event, error) {
	rows, err := j.db.QueryContext(ctx, j.db.Rebind(`
		SELECT id, customer_email, action, secret_name, status, provider, error, created_at
		FROM audit_logs
		WHERE customer_email = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`), identity, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	events := []Event{}
	for rows.Next() {
		var (
			e                              Event
			secretName, providerKind, errS sql.NullString
			status                         string
		)
		if err := rows.Scan(&e.ID, &e.Identity, &e.Action, &secretName, &status, &providerKind, &errS, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		e.SecretName = secretName.String
		e.Status = Status(status)
		e.Provider = provider.Kind(providerKind.String)
		e.Error = errS.String
		e.Timestamp = e.Timestamp.UTC()
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit events: %w", err)
	}
	return events, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
