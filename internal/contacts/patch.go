package contacts

import "time"

// Patch is a contact mutation expressed as independent field groups.
// A nil group is left untouched; a non-nil group is written in full, so two
// concurrent writers never merge into a half-cleared pause or schedule.
type Patch struct {
	// TotalCalls is the new attempt count. Stores never lower the stored value.
	TotalCalls *int `json:"total_calls,omitempty"`

	Schedule *Schedule     `json:"schedule,omitempty"`
	Status   *StatusFields `json:"status,omitempty"`

	ClearPhone  bool `json:"clear_phone,omitempty"`
	ClearMobile bool `json:"clear_mobile,omitempty"`

	// Unreachable is a notice, not a column: the patch leaves the contact with no number.
	Unreachable bool `json:"unreachable,omitempty"`
}

// Schedule is the cadence field group.
type Schedule struct {
	NextCallDate *time.Time `json:"next_call_date"`
	CadenceDays  *int       `json:"cadence_days"`
}

// StatusFields is the pause field group. Status is part of the group so that
// returning to active always clears the pause columns with it.
type StatusFields struct {
	Status      DialerStatus `json:"status"`
	PausedUntil *time.Time   `json:"paused_until,omitempty"`
	PauseReason string       `json:"pause_reason,omitempty"`
	PausedAt    *time.Time   `json:"paused_at,omitempty"`
}

// ActiveStatus is the cleared pause group.
func ActiveStatus() StatusFields { return StatusFields{Status: DialerStatusActive} }

// PausedStatus builds a paused group.
func PausedStatus(until time.Time, reason string, at time.Time) StatusFields {
	return StatusFields{Status: DialerStatusPaused, PausedUntil: &until, PauseReason: reason, PausedAt: &at}
}

// TerminalStatus builds exhausted/converted; pause columns are cleared.
func TerminalStatus(s DialerStatus) StatusFields { return StatusFields{Status: s} }

func (p Patch) IsEmpty() bool {
	return p.TotalCalls == nil && p.Schedule == nil && p.Status == nil && !p.ClearPhone && !p.ClearMobile
}

// ApplyTo returns c with the patch applied.
func (p Patch) ApplyTo(c Contact) Contact {
	if p.TotalCalls != nil && *p.TotalCalls > c.TotalCalls {
		c.TotalCalls = *p.TotalCalls
	}
	if p.Schedule != nil {
		c.NextCallDate = copyTime(p.Schedule.NextCallDate)
		c.CadenceDays = copyInt(p.Schedule.CadenceDays)
	}
	if p.Status != nil {
		c.DialerStatus = p.Status.Status
		c.DialerPausedUntil = copyTime(p.Status.PausedUntil)
		c.DialerPauseReason = p.Status.PauseReason
		c.DialerPausedAt = copyTime(p.Status.PausedAt)
	}
	if p.ClearPhone {
		c.Phone = ""
	}
	if p.ClearMobile {
		c.Mobile = ""
	}
	return c
}

// CompanyPause is the pause field group of a company. A nil PausedUntil clears it.
type CompanyPause struct {
	PausedUntil *time.Time
	Reason      string
	PausedAt    *time.Time
}

func (p CompanyPause) ApplyTo(c Company) Company {
	c.DialerPausedUntil = copyTime(p.PausedUntil)
	c.DialerPausedAt = copyTime(p.PausedAt)
	c.DialerPauseReason = p.Reason
	if p.PausedUntil == nil {
		c.DialerPauseReason = ""
		c.DialerPausedAt = nil
	}
	return c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func copyInt(n *int) *int {
	if n == nil {
		return nil
	}
	v := *n
	return &v
}
