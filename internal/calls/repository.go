package calls

import (
	"context"
	"database/sql"
	"time"
)

// Ledger is the append-only call event store.
// No Update/Delete methods are provided.
type Ledger interface {
	Append(ctx context.Context, e Event) error
	// ListSince returns events with created_at >= since in insert order.
	ListSince(ctx context.Context, since time.Time) ([]Event, error)
	// ListByContacts returns every event for the given contacts in insert order.
	ListByContacts(ctx context.Context, contactIDs []string) ([]Event, error)
}

// NOTE: PostgresLedger assumes:
//
//	call_events (id UUID PK, contact_id, session_id NULL, operator_id NULL, outcome, disposition NULL,
//	             duration_seconds INT, phone_used NULL, created_at TIMESTAMPTZ, seq BIGSERIAL)
//
// with an INSERT-only grant for the application role. seq gives insert order.
type PostgresLedger struct {
	db *sql.DB
}

func NewPostgresLedger(db *sql.DB) *PostgresLedger { return &PostgresLedger{db: db} }

func (l *PostgresLedger) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO call_events (id, contact_id, session_id, operator_id, outcome, disposition, duration_seconds, phone_used, created_at)
VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, NULLIF($6, ''), $7, NULLIF($8, ''), $9)
`
	_, err := l.db.ExecContext(ctx, q,
		e.ID,
		e.ContactID,
		e.SessionID,
		e.OperatorID,
		string(e.Outcome),
		string(e.Disposition),
		e.DurationSeconds,
		e.PhoneUsed,
		e.CreatedAt,
	)
	return err
}

const eventColumns = `id, contact_id, COALESCE(session_id::text, ''), COALESCE(operator_id, ''), outcome,
COALESCE(disposition, ''), duration_seconds, COALESCE(phone_used, ''), created_at`

func (l *PostgresLedger) ListSince(ctx context.Context, since time.Time) ([]Event, error) {
	q := "SELECT " + eventColumns + " FROM call_events WHERE created_at >= $1 ORDER BY seq"
	return l.query(ctx, q, since)
}

func (l *PostgresLedger) ListByContacts(ctx context.Context, contactIDs []string) ([]Event, error) {
	if len(contactIDs) == 0 {
		return nil, nil
	}
	q := "SELECT " + eventColumns + " FROM call_events WHERE contact_id = ANY($1) ORDER BY seq"
	return l.query(ctx, q, contactIDs)
}

func (l *PostgresLedger) query(ctx context.Context, q string, args ...any) ([]Event, error) {
	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Event, 0)
	for rows.Next() {
		var e Event
		if err := rows.Scan(
			&e.ID,
			&e.ContactID,
			&e.SessionID,
			&e.OperatorID,
			&e.Outcome,
			&e.Disposition,
			&e.DurationSeconds,
			&e.PhoneUsed,
			&e.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
