package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"outreach-crm/internal/apperr"
	"outreach-crm/pkg/utils"
)

// NOTE: PostgresRepo assumes:
//
//	dialer_sessions (id UUID PK, operator_id TEXT, filter JSONB, started_at, last_activity_at,
//	                 ended_at NULL, queue_size INT, calls, connected, voicemail, no_answer,
//	                 gatekeeper, wrong_number, ai_screener, skipped, meetings, talk_seconds INT,
//	                 first_pickup_at NULL, first_meeting_at NULL)
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

// Create inserts rec and closes any other open record of the same operator at
// its last activity, so an operator never has two open sessions.
func (r *PostgresRepo) Create(ctx context.Context, rec Record) error {
	filter, err := json.Marshal(rec.Filter)
	if err != nil {
		return err
	}
	return utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		const closeOpen = `
UPDATE dialer_sessions
SET ended_at = last_activity_at
WHERE operator_id = $1 AND ended_at IS NULL
`
		if _, err := tx.ExecContext(ctx, closeOpen, rec.OperatorID); err != nil {
			return err
		}
		const q = `
INSERT INTO dialer_sessions (id, operator_id, filter, started_at, last_activity_at, queue_size)
VALUES ($1, $2, $3, $4, $5, $6)
`
		_, err := tx.ExecContext(ctx, q, rec.ID, rec.OperatorID, filter, rec.StartedAt, rec.LastActivityAt, rec.QueueSize)
		return err
	})
}

const recordColumns = `id, operator_id, filter, started_at, last_activity_at, ended_at, queue_size,
calls, connected, voicemail, no_answer, gatekeeper, wrong_number, ai_screener,
skipped, meetings, talk_seconds, first_pickup_at, first_meeting_at`

func (r *PostgresRepo) Get(ctx context.Context, id string) (Record, error) {
	q := "SELECT " + recordColumns + " FROM dialer_sessions WHERE id = $1"
	rec, err := scanRecord(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, apperr.NotFound("session", id)
	}
	return rec, err
}

func (r *PostgresRepo) Update(ctx context.Context, rec Record) error {
	const q = `
UPDATE dialer_sessions
SET last_activity_at = $2,
    ended_at = COALESCE(ended_at, $3),
    queue_size = $4,
    calls = $5, connected = $6, voicemail = $7, no_answer = $8, gatekeeper = $9,
    wrong_number = $10, ai_screener = $11,
    skipped = $12, meetings = $13, talk_seconds = $14,
    first_pickup_at = COALESCE(first_pickup_at, $15),
    first_meeting_at = COALESCE(first_meeting_at, $16)
WHERE id = $1
`
	res, err := r.db.ExecContext(ctx, q,
		rec.ID,
		rec.LastActivityAt,
		rec.EndedAt,
		rec.QueueSize,
		rec.Calls,
		rec.Connected,
		rec.Voicemail,
		rec.NoAnswer,
		rec.Gatekeeper,
		rec.WrongNumber,
		rec.AIScreener,
		rec.Skipped,
		rec.Meetings,
		rec.TalkSeconds,
		rec.FirstPickupAt,
		rec.FirstMeetingAt,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.NotFound("session", rec.ID)
	}
	return nil
}

func (r *PostgresRepo) LatestOpen(ctx context.Context, operatorID string) (Record, bool, error) {
	q := "SELECT " + recordColumns + ` FROM dialer_sessions
WHERE operator_id = $1 AND ended_at IS NULL
ORDER BY last_activity_at DESC
LIMIT 1`
	rec, err := scanRecord(r.db.QueryRowContext(ctx, q, operatorID))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

func scanRecord(row *sql.Row) (Record, error) {
	var (
		rec          Record
		filter       []byte
		endedAt      sql.NullTime
		firstPickup  sql.NullTime
		firstMeeting sql.NullTime
	)
	if err := row.Scan(
		&rec.ID,
		&rec.OperatorID,
		&filter,
		&rec.StartedAt,
		&rec.LastActivityAt,
		&endedAt,
		&rec.QueueSize,
		&rec.Calls,
		&rec.Connected,
		&rec.Voicemail,
		&rec.NoAnswer,
		&rec.Gatekeeper,
		&rec.WrongNumber,
		&rec.AIScreener,
		&rec.Skipped,
		&rec.Meetings,
		&rec.TalkSeconds,
		&firstPickup,
		&firstMeeting,
	); err != nil {
		return Record{}, err
	}
	if len(filter) > 0 {
		if err := json.Unmarshal(filter, &rec.Filter); err != nil {
			return Record{}, err
		}
	}
	rec.EndedAt = nullTime(endedAt)
	rec.FirstPickupAt = nullTime(firstPickup)
	rec.FirstMeetingAt = nullTime(firstMeeting)
	return rec, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
