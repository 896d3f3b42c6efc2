package reporting

import (
	"time"

	"outreach-crm/internal/calls"
)

// DailyStats aggregates the call ledger since local midnight.
// Skips are counted separately and never as calls.
type DailyStats struct {
	Date       string `json:"date"`
	OperatorID string `json:"operator_id,omitempty"`

	Calls           int                   `json:"calls"`
	Skipped         int                   `json:"skipped"`
	UniqueContacts  int                   `json:"unique_contacts"`
	ByOutcome       map[calls.Outcome]int `json:"by_outcome"`
	ByDisposition   map[string]int        `json:"by_disposition"`
	Meetings        int                   `json:"meetings"`
	TalkSeconds     int                   `json:"talk_seconds"`
	AverageTalkSecs int                   `json:"average_talk_seconds"`
	ConnectRate     float64               `json:"connect_rate"`
	MeetingRate     float64               `json:"meeting_rate"`

	// Target progress against the configured daily call target.
	DailyTarget    int     `json:"daily_target"`
	TargetProgress float64 `json:"target_progress"`

	FirstCallAt *time.Time `json:"first_call_at,omitempty"`
	LastCallAt  *time.Time `json:"last_call_at,omitempty"`
}
