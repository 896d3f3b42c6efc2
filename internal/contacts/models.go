package contacts

import (
	"time"

	"outreach-crm/internal/calendar"
)

// Contact is the subset of a CRM contact record the dialer reads and writes.
//
// Invariants:
// - TotalCalls only increases; Patch.ApplyTo and the Postgres repo both clamp to the max.
// - DialerStatusConverted is terminal for queue building.
// - The pause group (status, paused_until, pause_reason, paused_at) is always
//   written as one unit, see StatusFields.
type Contact struct {
	ID        string `json:"id" db:"id"`
	FirstName string `json:"first_name" db:"first_name"`
	LastName  string `json:"last_name" db:"last_name"`
	CompanyID string `json:"company_id,omitempty" db:"company_id"`

	Phone  string `json:"phone,omitempty" db:"phone"`
	Mobile string `json:"mobile,omitempty" db:"mobile"`

	Stage Stage `json:"stage" db:"stage"`

	DialerStatus      DialerStatus `json:"dialer_status" db:"dialer_status"`
	DialerPausedUntil *time.Time   `json:"dialer_paused_until,omitempty" db:"dialer_paused_until"`
	DialerPauseReason string       `json:"dialer_pause_reason,omitempty" db:"dialer_pause_reason"`
	DialerPausedAt    *time.Time   `json:"dialer_paused_at,omitempty" db:"dialer_paused_at"`

	// CadenceDays is nil when the default cadence applies.
	CadenceDays *int `json:"cadence_days,omitempty" db:"cadence_days"`
	// NextCallDate is nil for never-called contacts, which are always due.
	NextCallDate *time.Time `json:"next_call_date,omitempty" db:"next_call_date"`
	TotalCalls   int        `json:"total_calls" db:"total_calls"`

	IsAAA bool `json:"is_aaa" db:"is_aaa"`

	City    string `json:"city,omitempty" db:"city"`
	State   string `json:"state,omitempty" db:"state"`
	Country string `json:"country,omitempty" db:"country"`

	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Status returns the dialer status, treating an unset column as active.
func (c Contact) Status() DialerStatus {
	if c.DialerStatus == "" {
		return DialerStatusActive
	}
	return c.DialerStatus
}

func (c Contact) HasNumber() bool { return c.Phone != "" || c.Mobile != "" }

// IsNew reports a contact that has never been scheduled by the dialer.
func (c Contact) IsNew() bool { return c.NextCallDate == nil }

func (c Contact) DisplayName() string {
	switch {
	case c.FirstName != "" && c.LastName != "":
		return c.FirstName + " " + c.LastName
	case c.FirstName != "":
		return c.FirstName
	default:
		return c.LastName
	}
}

type Stage string

const (
	StageFresh     Stage = "fresh"
	StageContacted Stage = "contacted"
	StageQualified Stage = "qualified"
	StageMeeting   Stage = "meeting"
	StageProposal  Stage = "proposal"
	StageWon       Stage = "won"
	StageLost      Stage = "lost"
)

func (s Stage) Valid() bool {
	switch s {
	case StageFresh, StageContacted, StageQualified, StageMeeting, StageProposal, StageWon, StageLost:
		return true
	default:
		return false
	}
}

type DialerStatus string

const (
	DialerStatusActive    DialerStatus = "active"
	DialerStatusPaused    DialerStatus = "paused"
	DialerStatusExhausted DialerStatus = "exhausted"
	DialerStatusConverted DialerStatus = "converted"
)

// Company carries the pause state and timezone fallback shared by its contacts.
type Company struct {
	ID       string `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	Timezone string `json:"timezone,omitempty" db:"timezone"`

	DialerPausedUntil *time.Time `json:"dialer_paused_until,omitempty" db:"dialer_paused_until"`
	DialerPauseReason string     `json:"dialer_pause_reason,omitempty" db:"dialer_pause_reason"`
	DialerPausedAt    *time.Time `json:"dialer_paused_at,omitempty" db:"dialer_paused_at"`
}

// IsPaused reports an unexpired pause on the company.
func (c Company) IsPaused(today time.Time) bool {
	return c.DialerPausedUntil != nil && !calendar.IsPauseExpired(c.DialerPausedUntil, today)
}

// Pause reason codes shared by the cadence resolver and the pause ledger.
const (
	ReasonRetired       = "retired"
	ReasonNotInterested = "not_interested"
	ReasonDoNotContact  = "do_not_contact"
	ReasonUnreachable   = "unreachable"
	ReasonCapacity      = "capacity"
	ReasonManual        = "manual"
)

// PrimaryNumber is the number dialed by default: mobile first, then phone.
func (c Contact) PrimaryNumber() string {
	if c.Mobile != "" {
		return c.Mobile
	}
	return c.Phone
}
