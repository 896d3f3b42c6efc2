package audit

import "time"

// PauseEvent is an immutable record of a pool pause or unpause.
//
// Invariants:
// - Events are never updated or deleted.
// - EntityType and EntityID are required.
// - Actor capture is best-effort; pausing never blocks on audit failures.
//
// Storage recommendation (Postgres):
// - Table pool_pause_events with an INSERT-only policy.
// - Optional: index on (entity_type, entity_id, created_at) for history reads.
type PauseEvent struct {
	ID string `json:"id" db:"id"`

	EntityType EntityType `json:"entity_type" db:"entity_type"`
	EntityID   string     `json:"entity_id" db:"entity_id"`

	Action Action `json:"action" db:"action"`

	// PausedUntil is nil for unpause events.
	PausedUntil    *time.Time `json:"paused_until,omitempty" db:"paused_until"`
	DurationMonths int        `json:"duration_months,omitempty" db:"duration_months"`
	Indefinite     bool       `json:"indefinite,omitempty" db:"indefinite"`

	ReasonCode string `json:"reason_code,omitempty" db:"reason_code"`
	Notes      string `json:"notes,omitempty" db:"notes"`

	// ActorID is the operator causing the event, empty for scheduled jobs.
	ActorID string `json:"actor_id,omitempty" db:"actor_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EntityType string

const (
	EntityContact EntityType = "contact"
	EntityCompany EntityType = "company"
)

func (t EntityType) Valid() bool { return t == EntityContact || t == EntityCompany }

type Action string

const (
	ActionPaused   Action = "paused"
	ActionUnpaused Action = "unpaused"
)
