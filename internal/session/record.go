package session

import (
	"context"
	"time"

	"outreach-crm/internal/calls"
	"outreach-crm/internal/eligibility"
)

// Record is the persisted session row.
//
// Invariants:
// - EndedAt is set once; a record with EndedAt is never resumed.
// - LastActivityAt drives resume-or-create at start.
type Record struct {
	ID         string             `json:"id" db:"id"`
	OperatorID string             `json:"operator_id" db:"operator_id"`
	Filter     eligibility.Config `json:"filter" db:"filter"`

	StartedAt      time.Time  `json:"started_at" db:"started_at"`
	LastActivityAt time.Time  `json:"last_activity_at" db:"last_activity_at"`
	EndedAt        *time.Time `json:"ended_at,omitempty" db:"ended_at"`

	QueueSize int `json:"queue_size" db:"queue_size"`

	Counters
}

// Counters are per-session totals. Calls excludes skips.
type Counters struct {
	Calls       int `json:"calls" db:"calls"`
	Connected   int `json:"connected" db:"connected"`
	Voicemail   int `json:"voicemail" db:"voicemail"`
	NoAnswer    int `json:"no_answer" db:"no_answer"`
	Gatekeeper  int `json:"gatekeeper" db:"gatekeeper"`
	WrongNumber int `json:"wrong_number" db:"wrong_number"`
	AIScreener  int `json:"ai_screener" db:"ai_screener"`
	Skipped     int `json:"skipped" db:"skipped"`
	Meetings    int `json:"meetings" db:"meetings"`

	TalkSeconds int `json:"talk_seconds" db:"talk_seconds"`

	FirstPickupAt  *time.Time `json:"first_pickup_at,omitempty" db:"first_pickup_at"`
	FirstMeetingAt *time.Time `json:"first_meeting_at,omitempty" db:"first_meeting_at"`
}

// Observe folds one logged event into the counters.
func (c *Counters) Observe(e calls.Event) {
	switch e.Outcome {
	case calls.OutcomeSkipped:
		c.Skipped++
		return
	case calls.OutcomeConnected:
		c.Connected++
		if c.FirstPickupAt == nil {
			at := e.CreatedAt
			c.FirstPickupAt = &at
		}
	case calls.OutcomeVoicemail:
		c.Voicemail++
	case calls.OutcomeNoAnswer:
		c.NoAnswer++
	case calls.OutcomeGatekeeper:
		c.Gatekeeper++
	case calls.OutcomeWrongNumber:
		c.WrongNumber++
	case calls.OutcomeAIScreener:
		c.AIScreener++
	}
	c.Calls++
	c.TalkSeconds += e.DurationSeconds
	if e.Disposition == calls.DispositionMeeting {
		c.Meetings++
		if c.FirstMeetingAt == nil {
			at := e.CreatedAt
			c.FirstMeetingAt = &at
		}
	}
}

// Repository is the session create/patch contract.
type Repository interface {
	Create(ctx context.Context, r Record) error
	Get(ctx context.Context, id string) (Record, error)
	Update(ctx context.Context, r Record) error
	// LatestOpen returns the operator's most recent record without EndedAt.
	LatestOpen(ctx context.Context, operatorID string) (Record, bool, error)
}
