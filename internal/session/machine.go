// Package session runs a calling session over an ordered queue of contacts.
//
// Machine holds the pure, in-memory state transitions. Session wraps it with
// persistence (call ledger, contact patches, session record) performed as a
// separate step by each transition handler.
package session

import (
	"errors"
	"sync/atomic"
	"time"

	"outreach-crm/internal/contacts"
)

type State string

const (
	StateIdle   State = "idle"
	StateActive State = "active"
	StatePaused State = "paused"
	StateEnded  State = "ended"
)

// CallState is the call sub-state inside Active.
type CallState string

const (
	CallReady           CallState = "ready"
	CallInProgress      CallState = "in_call"
	CallAwaitingOutcome CallState = "awaiting_outcome"
)

var (
	ErrEmptyQueue        = errors.New("session: no eligible contacts")
	ErrInvalidTransition = errors.New("session: invalid transition")
	ErrOutcomeRequired   = errors.New("session: call ended without an outcome")
	ErrCallInProgress    = errors.New("session: call in progress")
	ErrAtStart           = errors.New("session: already at first contact")
	ErrContactBusy       = errors.New("session: contact is on a call elsewhere")
	ErrNoCurrentContact  = errors.New("session: no current contact")
)

// PendingCall is a dialed call bound to the contact that was dialed, so
// navigating away never reattributes its outcome.
type PendingCall struct {
	ContactID string     `json:"contact_id"`
	PhoneUsed string     `json:"phone_used"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// DurationSeconds is frozen once the call has ended.
func (p PendingCall) DurationSeconds(now time.Time) int {
	end := now
	if p.EndedAt != nil {
		end = *p.EndedAt
	}
	d := end.Sub(p.StartedAt)
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}

// Machine is the session state machine. It is not safe for concurrent
// mutation; Session serializes calls. Queue reads are lock-free: the queue is
// replaced wholesale on every change and a returned snapshot is never mutated.
type Machine struct {
	state   State
	call    CallState
	cursor  int
	pending *PendingCall

	queue atomic.Pointer[[]contacts.Contact]
}

func NewMachine() *Machine {
	m := &Machine{state: StateIdle, call: CallReady}
	empty := []contacts.Contact{}
	m.queue.Store(&empty)
	return m
}

func (m *Machine) State() State         { return m.state }
func (m *Machine) CallState() CallState { return m.call }
func (m *Machine) Cursor() int          { return m.cursor }

// Pending returns a copy of the pending call, if any.
func (m *Machine) Pending() (PendingCall, bool) {
	if m.pending == nil {
		return PendingCall{}, false
	}
	return *m.pending, true
}

// Queue returns the current queue snapshot.
func (m *Machine) Queue() []contacts.Contact { return *m.queue.Load() }

// Current is the contact under the cursor.
func (m *Machine) Current() (contacts.Contact, bool) {
	q := m.Queue()
	if m.cursor < 0 || m.cursor >= len(q) {
		return contacts.Contact{}, false
	}
	return q[m.cursor], true
}

func (m *Machine) Start(queue []contacts.Contact) error {
	if m.state != StateIdle {
		return ErrInvalidTransition
	}
	if len(queue) == 0 {
		return ErrEmptyQueue
	}
	q := append([]contacts.Contact(nil), queue...)
	m.queue.Store(&q)
	m.cursor = 0
	m.call = CallReady
	m.pending = nil
	m.state = StateActive
	return nil
}

// Advance moves to the next contact. At the last index the session ends.
// It returns true when the session ended.
func (m *Machine) Advance() (bool, error) {
	if m.state != StateActive {
		return false, ErrInvalidTransition
	}
	switch m.call {
	case CallInProgress:
		return false, ErrCallInProgress
	case CallAwaitingOutcome:
		return false, ErrOutcomeRequired
	}
	if m.cursor >= len(m.Queue())-1 {
		m.state = StateEnded
		return true, nil
	}
	m.cursor++
	return false, nil
}

// Previous steps back one contact. A pending call stays bound to its contact.
func (m *Machine) Previous() error {
	if m.state != StateActive {
		return ErrInvalidTransition
	}
	if m.cursor == 0 {
		return ErrAtStart
	}
	m.cursor--
	return nil
}

// BeginCall moves Ready to InCall on the current contact.
func (m *Machine) BeginCall(phoneUsed string, now time.Time) (PendingCall, error) {
	if m.state != StateActive {
		return PendingCall{}, ErrInvalidTransition
	}
	switch m.call {
	case CallInProgress:
		return PendingCall{}, ErrCallInProgress
	case CallAwaitingOutcome:
		return PendingCall{}, ErrOutcomeRequired
	}
	c, ok := m.Current()
	if !ok {
		return PendingCall{}, ErrNoCurrentContact
	}
	if phoneUsed == "" {
		phoneUsed = c.PrimaryNumber()
	}
	m.pending = &PendingCall{ContactID: c.ID, PhoneUsed: phoneUsed, StartedAt: now}
	m.call = CallInProgress
	return *m.pending, nil
}

// AbortCall drops a call that never connected, returning to Ready.
func (m *Machine) AbortCall() {
	if m.call == CallInProgress {
		m.pending = nil
		m.call = CallReady
	}
}

// EndCall freezes the call duration and waits for an outcome.
func (m *Machine) EndCall(now time.Time) (PendingCall, error) {
	if m.call != CallInProgress || m.pending == nil {
		return PendingCall{}, ErrInvalidTransition
	}
	m.endCall(now)
	return *m.pending, nil
}

func (m *Machine) endCall(now time.Time) {
	at := now
	m.pending.EndedAt = &at
	m.call = CallAwaitingOutcome
}

// OutcomeTarget is the contact the next outcome applies to: the pending call's
// contact when one exists, otherwise the current contact.
func (m *Machine) OutcomeTarget() (string, error) {
	if m.state != StateActive && m.state != StatePaused {
		return "", ErrInvalidTransition
	}
	if m.pending != nil {
		return m.pending.ContactID, nil
	}
	if m.state != StateActive {
		return "", ErrInvalidTransition
	}
	c, ok := m.Current()
	if !ok {
		return "", ErrNoCurrentContact
	}
	return c.ID, nil
}

// CompleteOutcome clears the pending call and removes its contact. It returns
// true when no contact is left at or after the cursor and the session ended.
func (m *Machine) CompleteOutcome(contactID string) bool {
	m.pending = nil
	m.call = CallReady
	m.remove(contactID)
	return m.finished()
}

// CanSkip checks that contactID is queued and has no pending call.
func (m *Machine) CanSkip(contactID string) error {
	if m.state != StateActive {
		return ErrInvalidTransition
	}
	if m.pending != nil && m.pending.ContactID == contactID {
		if m.call == CallInProgress {
			return ErrCallInProgress
		}
		return ErrOutcomeRequired
	}
	if m.indexOf(contactID) < 0 {
		return ErrNoCurrentContact
	}
	return nil
}

// Skip removes the contact. Skipping the current contact moves the cursor onto
// the next one; skipping the last one ends the session. Returns true when the
// session ended.
func (m *Machine) Skip(contactID string) bool {
	m.remove(contactID)
	return m.finished()
}

// Pause keeps queue and cursor. An in-progress call is force-ended with its
// duration frozen at now.
func (m *Machine) Pause(now time.Time) error {
	if m.state != StateActive {
		return ErrInvalidTransition
	}
	if m.call == CallInProgress {
		m.endCall(now)
	}
	m.state = StatePaused
	return nil
}

func (m *Machine) Resume() error {
	if m.state != StatePaused {
		return ErrInvalidTransition
	}
	m.state = StateActive
	return nil
}

// Prune removes contacts matching pred from the not-yet-reached portion of the
// queue (the current contact included). The contact with a pending call is
// kept until its outcome is recorded. Returns the number removed.
func (m *Machine) Prune(pred func(contacts.Contact) bool) int {
	if m.state != StateActive && m.state != StatePaused {
		return 0
	}
	old := m.Queue()
	next := make([]contacts.Contact, 0, len(old))
	removed := 0
	for i, c := range old {
		keep := i < m.cursor || !pred(c) || (m.pending != nil && m.pending.ContactID == c.ID)
		if keep {
			next = append(next, c)
			continue
		}
		removed++
	}
	if removed == 0 {
		return 0
	}
	m.queue.Store(&next)
	m.settle()
	return removed
}

// End closes the session from any state.
func (m *Machine) End() {
	m.state = StateEnded
	m.pending = nil
	m.call = CallReady
}

func (m *Machine) Contains(contactID string) bool { return m.indexOf(contactID) >= 0 }

func (m *Machine) indexOf(contactID string) int {
	for i, c := range m.Queue() {
		if c.ID == contactID {
			return i
		}
	}
	return -1
}

// remove drops one contact and keeps the cursor on the same logical contact.
// Removing the current contact leaves the cursor on its successor.
func (m *Machine) remove(contactID string) {
	old := m.Queue()
	idx := m.indexOf(contactID)
	if idx < 0 {
		return
	}
	next := make([]contacts.Contact, 0, len(old)-1)
	next = append(next, old[:idx]...)
	next = append(next, old[idx+1:]...)
	m.queue.Store(&next)
	if idx < m.cursor {
		m.cursor--
	}
	m.settle()
}

// settle ends the session once the cursor has run past the last contact,
// the same way Advance does at the last index. It never steps back onto a
// contact the operator already passed.
func (m *Machine) settle() {
	n := len(m.Queue())
	if m.cursor < n {
		return
	}
	if m.pending != nil {
		// The pending contact is still queued at or after the cursor, so
		// this only happens on an inconsistent queue. Keep the call.
		m.cursor = n - 1
		return
	}
	m.cursor = max(n-1, 0)
	m.state = StateEnded
	m.call = CallReady
}

func (m *Machine) finished() bool { return m.state == StateEnded }
