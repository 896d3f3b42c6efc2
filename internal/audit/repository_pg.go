package audit

import (
	"context"
	"database/sql"
)

// NOTE: PostgresRepo assumes:
//
//	pool_pause_events (id UUID PK, entity_type TEXT, entity_id TEXT, action TEXT,
//	                   paused_until DATE NULL, duration_months INT, indefinite BOOL,
//	                   reason_code TEXT NULL, notes TEXT NULL, actor_id TEXT NULL, created_at TIMESTAMPTZ)
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e PauseEvent) error {
	const q = `
INSERT INTO pool_pause_events
  (id, entity_type, entity_id, action, paused_until, duration_months, indefinite, reason_code, notes, actor_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), NULLIF($9, ''), NULLIF($10, ''), $11)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		string(e.EntityType),
		e.EntityID,
		string(e.Action),
		e.PausedUntil,
		e.DurationMonths,
		e.Indefinite,
		e.ReasonCode,
		e.Notes,
		e.ActorID,
		e.CreatedAt,
	)
	return err
}

func (r *PostgresRepo) ListByEntity(ctx context.Context, t EntityType, id string) ([]PauseEvent, error) {
	const q = `
SELECT id, entity_type, entity_id, action, paused_until, duration_months, indefinite,
       COALESCE(reason_code, ''), COALESCE(notes, ''), COALESCE(actor_id, ''), created_at
FROM pool_pause_events
WHERE entity_type = $1 AND entity_id = $2
ORDER BY created_at, id
`
	rows, err := r.db.QueryContext(ctx, q, string(t), id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]PauseEvent, 0)
	for rows.Next() {
		var e PauseEvent
		var until sql.NullTime
		if err := rows.Scan(
			&e.ID,
			&e.EntityType,
			&e.EntityID,
			&e.Action,
			&until,
			&e.DurationMonths,
			&e.Indefinite,
			&e.ReasonCode,
			&e.Notes,
			&e.ActorID,
			&e.CreatedAt,
		); err != nil {
			return nil, err
		}
		if until.Valid {
			t := until.Time
			e.PausedUntil = &t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
