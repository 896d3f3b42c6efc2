package calls

import (
	"strings"
	"time"
)

// Event is one logged call outcome. Write-once, append-only.
//
// The ledger of events is the source of truth for "already handled today" and
// for rebuilding contact dialer state; rows are never updated or deleted.
type Event struct {
	ID         string `json:"id" db:"id"`
	ContactID  string `json:"contact_id" db:"contact_id"`
	SessionID  string `json:"session_id,omitempty" db:"session_id"`
	OperatorID string `json:"operator_id,omitempty" db:"operator_id"`

	Outcome     Outcome     `json:"outcome" db:"outcome"`
	Disposition Disposition `json:"disposition,omitempty" db:"disposition"`

	DurationSeconds int    `json:"duration_seconds" db:"duration_seconds"`
	PhoneUsed       string `json:"phone_used,omitempty" db:"phone_used"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Outcome is what happened on the line.
type Outcome string

const (
	OutcomeConnected   Outcome = "connected"
	OutcomeVoicemail   Outcome = "voicemail"
	OutcomeNoAnswer    Outcome = "no_answer"
	OutcomeSkipped     Outcome = "skipped"
	OutcomeGatekeeper  Outcome = "gatekeeper"
	OutcomeWrongNumber Outcome = "wrong_number"
	OutcomeAIScreener  Outcome = "ai_screener"
)

// Outcomes lists every outcome in reporting order.
var Outcomes = []Outcome{
	OutcomeConnected,
	OutcomeVoicemail,
	OutcomeNoAnswer,
	OutcomeSkipped,
	OutcomeGatekeeper,
	OutcomeWrongNumber,
	OutcomeAIScreener,
}

func (o Outcome) Valid() bool {
	for _, v := range Outcomes {
		if o == v {
			return true
		}
	}
	return false
}

// Disposition sub-classifies a connected call. Empty means none.
type Disposition string

const (
	DispositionNone               Disposition = ""
	DispositionMeeting            Disposition = "meeting"
	DispositionInterestedFollowUp Disposition = "interested_follow_up"
	DispositionRetired            Disposition = "retired"
	DispositionHangUp             Disposition = "hang_up"
	DispositionWrongNumber        Disposition = "wrong_number"
	DispositionNotInterested      Disposition = "not_interested"
	DispositionDoNotContact       Disposition = "do_not_contact"
)

func (d Disposition) Valid() bool {
	switch d {
	case DispositionNone,
		DispositionMeeting,
		DispositionInterestedFollowUp,
		DispositionRetired,
		DispositionHangUp,
		DispositionWrongNumber,
		DispositionNotInterested,
		DispositionDoNotContact:
		return true
	default:
		return false
	}
}

// ParseOutcome accepts the wire form case-insensitively.
func ParseOutcome(s string) (Outcome, bool) {
	o := Outcome(strings.ToLower(strings.TrimSpace(s)))
	return o, o.Valid()
}

func ParseDisposition(s string) (Disposition, bool) {
	d := Disposition(strings.ToLower(strings.TrimSpace(s)))
	return d, d.Valid()
}

// CountsAsCall reports whether the event is a real dial attempt. Skips are not.
func (e Event) CountsAsCall() bool { return e.Outcome != OutcomeSkipped }
