// Package capacity detects queue bloat and relieves it by pausing or
// throttling the least promising due contacts.
package capacity

import (
	"fmt"
	"sort"

	"outreach-crm/internal/apperr"
	"outreach-crm/internal/calls"
	"outreach-crm/internal/contacts"
)

// BloatStatus compares today's due count to the daily target.
type BloatStatus struct {
	DueToday      int  `json:"due_today"`
	Target        int  `json:"target"`
	Overage       int  `json:"overage"`
	NewCount      int  `json:"new_count"`
	FollowUpCount int  `json:"follow_up_count"`
	IsBloated     bool `json:"is_bloated"`
}

// Assess is pure: due is the fresh due-today set.
func Assess(due []contacts.Contact, target int) BloatStatus {
	st := BloatStatus{DueToday: len(due), Target: target}
	for _, c := range due {
		if c.IsNew() {
			st.NewCount++
		} else {
			st.FollowUpCount++
		}
	}
	st.IsBloated = st.DueToday > target
	if st.IsBloated {
		st.Overage = st.DueToday - target
	}
	return st
}

type Tier int

const (
	TierDoNotContact  Tier = 0
	TierNotInterested Tier = 1
	TierUnreachable   Tier = 2
)

func (t Tier) String() string {
	switch t {
	case TierDoNotContact:
		return "do_not_contact"
	case TierNotInterested:
		return "not_interested"
	case TierUnreachable:
		return "unreachable"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

type Action string

const (
	ActionPause12Months Action = "pause_12m"
	ActionPause6Months  Action = "pause_6m"
	ActionThrottle10    Action = "throttle_10d"
	ActionThrottle14    Action = "throttle_14d"
)

func (a Action) Valid() bool {
	switch a {
	case ActionPause12Months, ActionPause6Months, ActionThrottle10, ActionThrottle14:
		return true
	default:
		return false
	}
}

// IsPause separates ledger-audited pauses from cadence throttles.
func (a Action) IsPause() bool { return a == ActionPause12Months || a == ActionPause6Months }

func (a Action) months() int {
	if a == ActionPause12Months {
		return 12
	}
	return 6
}

func (a Action) days() int {
	if a == ActionThrottle14 {
		return 14
	}
	return 10
}

type Candidate struct {
	ContactID string `json:"contact_id"`
	Name      string `json:"name,omitempty"`
	CompanyID string `json:"company_id,omitempty"`
	Tier      Tier   `json:"tier"`
	Action    Action `json:"action"`
	Reason    string `json:"reason"`
	Attempts  int    `json:"attempts"`
	IsAAA     bool   `json:"is_aaa"`
}

func (c Candidate) Validate() error {
	if c.ContactID == "" {
		return apperr.Invalid("contact_id", "required")
	}
	if !c.Action.Valid() {
		return apperr.Invalid("action", fmt.Sprintf("unknown action %q", c.Action))
	}
	return nil
}

// ClassifyOptions tunes tiering. The zero value excludes AAA contacts.
type ClassifyOptions struct {
	IncludeAAA bool `json:"include_aaa"`
	// UnreachableAttempts is the attempt count with no connect that makes a
	// contact unreachable. Two more than this earns the longer throttle.
	UnreachableAttempts int `json:"-"`
}

// Classify sorts due contacts into non-overlapping tiers by call history.
// Tiers are checked in priority order and the first match wins. Candidates
// are returned tier by tier, keeping due-set order within a tier.
func Classify(due []contacts.Contact, history map[string][]calls.Event, opts ClassifyOptions) []Candidate {
	out := make([]Candidate, 0)
	for _, c := range due {
		if c.IsAAA && !opts.IncludeAAA {
			continue
		}
		cand, ok := classifyOne(c, history[c.ID], opts.UnreachableAttempts)
		if ok {
			out = append(out, cand)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Tier < out[j].Tier })
	return out
}

func classifyOne(c contacts.Contact, evs []calls.Event, unreachableAt int) (Candidate, bool) {
	var (
		dnc, declined, connected bool
		attempts                 int
	)
	for _, e := range evs {
		if !e.CountsAsCall() {
			continue
		}
		attempts++
		switch e.Disposition {
		case calls.DispositionDoNotContact:
			dnc = true
		case calls.DispositionNotInterested, calls.DispositionHangUp:
			declined = true
		}
		if e.Outcome == calls.OutcomeConnected {
			connected = true
		}
	}
	if c.TotalCalls > attempts {
		attempts = c.TotalCalls
	}

	cand := Candidate{
		ContactID: c.ID,
		Name:      c.DisplayName(),
		CompanyID: c.CompanyID,
		Attempts:  attempts,
		IsAAA:     c.IsAAA,
	}
	switch {
	case dnc:
		cand.Tier, cand.Action, cand.Reason = TierDoNotContact, ActionPause12Months, contacts.ReasonDoNotContact
	case declined:
		cand.Tier, cand.Action, cand.Reason = TierNotInterested, ActionPause6Months, contacts.ReasonNotInterested
	case !c.HasNumber():
		cand.Tier, cand.Action, cand.Reason = TierUnreachable, ActionThrottle10, "no_number"
	case unreachableAt > 0 && !connected && attempts >= unreachableAt:
		cand.Tier, cand.Action, cand.Reason = TierUnreachable, ActionThrottle10, contacts.ReasonUnreachable
		if attempts >= unreachableAt+2 {
			cand.Action = ActionThrottle14
		}
	default:
		return Candidate{}, false
	}
	return cand, true
}

// SelectOverage takes candidates greedily in tier order, up to n.
func SelectOverage(cands []Candidate, n int) []Candidate {
	if n <= 0 {
		return nil
	}
	if len(cands) <= n {
		return cands
	}
	return cands[:n]
}
