// Package cadence turns a logged call into the contact's next dialer state.
//
// Resolve is pure: the patch depends only on the contact before the call and
// the call itself (including its timestamp). Replaying the event ledger against
// the same starting contact therefore reproduces the same state.
package cadence

import (
	"fmt"
	"strings"
	"time"

	"outreach-crm/internal/apperr"
	"outreach-crm/internal/calendar"
	"outreach-crm/internal/calls"
	"outreach-crm/internal/contacts"
)

// Policy holds the cadence knobs. All day counts are business days.
type Policy struct {
	MaxCallAttempts        int
	DefaultCadenceDays     int
	InterestedCadenceDays  int
	NotInterestedPauseDays int
	HangUpCooldownDays     int
}

func DefaultPolicy() Policy {
	return Policy{
		MaxCallAttempts:        10,
		DefaultCadenceDays:     3,
		InterestedCadenceDays:  5,
		NotInterestedPauseDays: 22,
		HangUpCooldownDays:     10,
	}
}

func (p Policy) Validate() error {
	switch {
	case p.MaxCallAttempts <= 0:
		return apperr.Invalid("max_call_attempts", "must be > 0")
	case p.DefaultCadenceDays <= 0:
		return apperr.Invalid("default_cadence_days", "must be > 0")
	case p.InterestedCadenceDays <= 0:
		return apperr.Invalid("interested_cadence_days", "must be > 0")
	case p.NotInterestedPauseDays <= 0:
		return apperr.Invalid("not_interested_pause_days", "must be > 0")
	case p.HangUpCooldownDays <= 0:
		return apperr.Invalid("hang_up_cooldown_days", "must be > 0")
	}
	return nil
}

// Call is the resolver input.
type Call struct {
	Outcome     calls.Outcome
	Disposition calls.Disposition
	// PhoneUsed is the dialed number; empty means the contact's primary number.
	PhoneUsed string
	// At is the local wall-clock time the outcome was logged. Its date is "today".
	At time.Time
}

// FromEvent builds resolver input from a ledger row, reading its timestamp in loc.
func FromEvent(e calls.Event, loc *time.Location) Call {
	at := e.CreatedAt
	if loc != nil {
		at = at.In(loc)
	}
	return Call{Outcome: e.Outcome, Disposition: e.Disposition, PhoneUsed: e.PhoneUsed, At: at}
}

type Resolver struct {
	policy Policy
}

func NewResolver(p Policy) *Resolver { return &Resolver{policy: p} }

func (r *Resolver) Policy() Policy { return r.policy }

// Resolve computes the patch for one logged call.
//
// Order: baseline (attempt count + cadence), then the disposition override,
// then the attempt ceiling. Converted is absorbing: no call moves a converted
// contact back to active or paused, and converted beats exhausted.
func (r *Resolver) Resolve(c contacts.Contact, call Call) (contacts.Patch, error) {
	if !call.Outcome.Valid() {
		return contacts.Patch{}, apperr.Invalid("outcome", fmt.Sprintf("unknown outcome %q", call.Outcome))
	}
	if call.Outcome == calls.OutcomeSkipped {
		return contacts.Patch{}, apperr.Invalid("outcome", "skipped is not a call; nothing to resolve")
	}
	if !call.Disposition.Valid() {
		return contacts.Patch{}, apperr.Invalid("disposition", fmt.Sprintf("unknown disposition %q", call.Disposition))
	}
	if call.At.IsZero() {
		return contacts.Patch{}, apperr.Invalid("at", "required")
	}

	today := calendar.Day(call.At)
	total := c.TotalCalls + 1

	cadenceDays := copyInt(c.CadenceDays)
	effective := r.policy.DefaultCadenceDays
	if cadenceDays != nil && *cadenceDays > 0 {
		effective = *cadenceDays
	}
	next := calendar.AddBusinessDays(today, effective)

	var (
		status *contacts.StatusFields
		p      contacts.Patch
	)

	switch effectiveDisposition(call) {
	case calls.DispositionMeeting:
		status = ptr(contacts.TerminalStatus(contacts.DialerStatusConverted))
		cadenceDays = ptr(r.policy.InterestedCadenceDays)
	case calls.DispositionInterestedFollowUp:
		cadenceDays = ptr(r.policy.InterestedCadenceDays)
	case calls.DispositionRetired:
		status = ptr(contacts.PausedStatus(calendar.Indefinite, contacts.ReasonRetired, call.At))
	case calls.DispositionHangUp:
		next = calendar.AddBusinessDays(today, r.policy.HangUpCooldownDays)
	case calls.DispositionWrongNumber:
		clearDialedNumber(c, call.PhoneUsed, &p)
		after := p.ApplyTo(c)
		// Surfaced for capacity review instead of an automatic pause here.
		p.Unreachable = !after.HasNumber()
	case calls.DispositionNotInterested:
		next = calendar.AddBusinessDays(today, r.policy.NotInterestedPauseDays)
		status = ptr(contacts.PausedStatus(next, contacts.ReasonNotInterested, call.At))
	case calls.DispositionDoNotContact:
		status = ptr(contacts.PausedStatus(calendar.Indefinite, contacts.ReasonDoNotContact, call.At))
	case calls.DispositionNone:
	}

	if c.Status() == contacts.DialerStatusConverted {
		status = nil
	}

	final := c.Status()
	if status != nil {
		final = status.Status
	}
	if total >= r.policy.MaxCallAttempts && final != contacts.DialerStatusConverted {
		status = ptr(contacts.TerminalStatus(contacts.DialerStatusExhausted))
	}

	p.TotalCalls = &total
	p.Schedule = &contacts.Schedule{NextCallDate: &next, CadenceDays: cadenceDays}
	p.Status = status
	return p, nil
}

// Throttle is the cadence-override path used by capacity remediation: a slower
// rhythm, not a pause. The contact leaves today's due set.
func Throttle(days int, now time.Time) (contacts.Patch, error) {
	if days <= 0 {
		return contacts.Patch{}, apperr.Invalid("days", "must be > 0")
	}
	next := calendar.AddBusinessDays(calendar.Day(now), days)
	return contacts.Patch{Schedule: &contacts.Schedule{NextCallDate: &next, CadenceDays: &days}}, nil
}

// Replay folds a contact's ledger over its starting state. Skips are ignored.
// Used to reconcile a contact whose patch write failed after its event was stored.
func (r *Resolver) Replay(start contacts.Contact, evs []calls.Event, loc *time.Location) (contacts.Contact, error) {
	c := start
	for _, e := range evs {
		if e.ContactID != c.ID || !e.CountsAsCall() {
			continue
		}
		p, err := r.Resolve(c, FromEvent(e, loc))
		if err != nil {
			return start, err
		}
		c = p.ApplyTo(c)
	}
	return c, nil
}

// effectiveDisposition maps a wrong_number outcome onto the wrong-number override.
func effectiveDisposition(call Call) calls.Disposition {
	if call.Disposition == calls.DispositionNone && call.Outcome == calls.OutcomeWrongNumber {
		return calls.DispositionWrongNumber
	}
	return call.Disposition
}

func clearDialedNumber(c contacts.Contact, used string, p *contacts.Patch) {
	if used == "" {
		used = c.PrimaryNumber()
	}
	switch u := digits(used); {
	case u != "" && u == digits(c.Mobile):
		p.ClearMobile = true
	case u != "" && u == digits(c.Phone):
		p.ClearPhone = true
	}
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func ptr[T any](v T) *T { return &v }

func copyInt(n *int) *int {
	if n == nil {
		return nil
	}
	v := *n
	return &v
}
