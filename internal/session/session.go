package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"outreach-crm/internal/apperr"
	"outreach-crm/internal/cadence"
	"outreach-crm/internal/calls"
	"outreach-crm/internal/contacts"
	"outreach-crm/internal/metrics"
)

// env is what a Session needs from its owner.
type env struct {
	calls      *calls.Service
	resolver   *cadence.Resolver
	contacts   contacts.Repository
	records    Repository
	lock       CallLock
	log        *slog.Logger
	clock      func() time.Time
	staleAfter time.Duration
	onEnd      func(id string)
}

// Session is one operator's live calling session. All methods are safe for
// concurrent use; Queue and View read a snapshot.
type Session struct {
	mu  sync.Mutex
	m   *Machine
	rec Record
	env *env
}

func newSession(rec Record, e *env) *Session {
	return &Session{m: NewMachine(), rec: rec, env: e}
}

func (s *Session) ID() string { return s.rec.ID }

func (s *Session) OperatorID() string { return s.rec.OperatorID }

// Queue returns the live queue snapshot without taking the session lock.
func (s *Session) Queue() []contacts.Contact { return s.m.Queue() }

// View is a read-only snapshot for callers.
type View struct {
	ID         string             `json:"id"`
	OperatorID string             `json:"operator_id"`
	State      State              `json:"state"`
	CallState  CallState          `json:"call_state"`
	Cursor     int                `json:"cursor"`
	Current    *contacts.Contact  `json:"current,omitempty"`
	Remaining  int                `json:"remaining"`
	Queue      []contacts.Contact `json:"queue"`
	Pending    *PendingCall       `json:"pending_call,omitempty"`
	StaleCall  bool               `json:"stale_call"`
	Counters   Counters           `json:"counters"`
	StartedAt  time.Time          `json:"started_at"`
	EndedAt    *time.Time         `json:"ended_at,omitempty"`
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view()
}

func (s *Session) view() View {
	q := s.m.Queue()
	v := View{
		ID:         s.rec.ID,
		OperatorID: s.rec.OperatorID,
		State:      s.m.State(),
		CallState:  s.m.CallState(),
		Cursor:     s.m.Cursor(),
		Queue:      q,
		Counters:   s.rec.Counters,
		StartedAt:  s.rec.StartedAt,
		EndedAt:    s.rec.EndedAt,
	}
	if c, ok := s.m.Current(); ok {
		v.Current = &c
		v.Remaining = len(q) - s.m.Cursor()
	}
	if p, ok := s.m.Pending(); ok {
		v.Pending = &p
		v.StaleCall = s.isStale(p, s.env.clock())
	}
	return v
}

// Advance moves to the next contact, ending the session past the last one.
func (s *Session) Advance(ctx context.Context) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ended, err := s.m.Advance()
	if err != nil {
		return View{}, err
	}
	now := s.env.clock()
	if ended {
		s.finish(ctx, now)
	} else {
		s.touch(ctx, now)
	}
	return s.view(), nil
}

func (s *Session) Previous(ctx context.Context) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.m.Previous(); err != nil {
		return View{}, err
	}
	s.touch(ctx, s.env.clock())
	return s.view(), nil
}

// BeginCall starts the call timer on the current contact and takes the
// contact's call lock. A lock held by another session yields ErrContactBusy;
// a lock backend failure is logged and the call proceeds.
func (s *Session) BeginCall(ctx context.Context, phoneUsed string) (PendingCall, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.env.clock()
	pc, err := s.m.BeginCall(phoneUsed, now)
	if err != nil {
		return PendingCall{}, err
	}
	if s.env.lock != nil {
		ok, lerr := s.env.lock.Acquire(ctx, pc.ContactID, s.rec.ID)
		switch {
		case lerr != nil:
			s.env.log.Warn("call lock unavailable", "session_id", s.rec.ID, "contact_id", pc.ContactID, "err", lerr)
		case !ok:
			s.m.AbortCall()
			return PendingCall{}, ErrContactBusy
		}
	}
	s.touch(ctx, now)
	return pc, nil
}

func (s *Session) EndCall(ctx context.Context) (PendingCall, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.env.clock()
	pc, err := s.m.EndCall(now)
	if err != nil {
		return PendingCall{}, err
	}
	s.touch(ctx, now)
	return pc, nil
}

// OutcomeResult is what RecordOutcome wrote.
type OutcomeResult struct {
	Event calls.Event    `json:"event"`
	Patch contacts.Patch `json:"patch"`

	// Contact is the stored row, or the locally applied patch when the write failed.
	Contact      contacts.Contact `json:"contact"`
	PatchApplied bool             `json:"patch_applied"`
	SessionEnded bool             `json:"session_ended"`
}

// RecordOutcome classifies the pending call (or the current contact when no
// call was timed). The ledger write gates the transition: on failure the
// session stays where it was so the operator can retry. A failed contact
// write after that is logged and tolerated; the ledger can rebuild the row.
func (s *Session) RecordOutcome(ctx context.Context, o calls.Outcome, d calls.Disposition) (OutcomeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if o == calls.OutcomeSkipped {
		return OutcomeResult{}, apperr.Invalid("outcome", "use skip for skipped contacts")
	}
	contactID, err := s.m.OutcomeTarget()
	if err != nil {
		return OutcomeResult{}, err
	}
	now := s.env.clock()
	if s.m.CallState() == CallInProgress {
		s.m.endCall(now)
	}
	pending, hasPending := s.m.Pending()

	c, err := s.env.contacts.Get(ctx, contactID)
	if err != nil {
		if apperr.IsNotFound(err) {
			s.dropContact(ctx, contactID, hasPending, now)
			return OutcomeResult{}, err
		}
		return OutcomeResult{}, apperr.Persistence("read contact", err)
	}

	phone := c.PrimaryNumber()
	duration := 0
	if hasPending {
		phone = pending.PhoneUsed
		duration = pending.DurationSeconds(now)
	}

	patch, err := s.env.resolver.Resolve(c, cadence.Call{Outcome: o, Disposition: d, PhoneUsed: phone, At: now})
	if err != nil {
		return OutcomeResult{}, err
	}

	ev, err := s.env.calls.Record(ctx, calls.Event{
		ContactID:       contactID,
		SessionID:       s.rec.ID,
		OperatorID:      s.rec.OperatorID,
		Outcome:         o,
		Disposition:     d,
		DurationSeconds: duration,
		PhoneUsed:       phone,
		CreatedAt:       now,
	})
	if err != nil {
		metrics.PersistenceFailuresTotal.WithLabelValues("call_ledger").Inc()
		return OutcomeResult{}, err
	}
	metrics.CallOutcomesTotal.WithLabelValues(string(o), string(d)).Inc()

	res := OutcomeResult{Event: ev, Patch: patch}
	updated, perr := s.env.contacts.Patch(ctx, contactID, patch)
	if perr != nil {
		metrics.PersistenceFailuresTotal.WithLabelValues("contact_patch").Inc()
		s.env.log.Warn("contact patch failed after outcome; ledger holds the event",
			"session_id", s.rec.ID, "contact_id", contactID, "event_id", ev.ID, "err", perr)
		res.Contact = patch.ApplyTo(c)
	} else {
		res.Contact = updated
		res.PatchApplied = true
	}
	if patch.Unreachable {
		metrics.UnreachableContactsTotal.Inc()
		s.env.log.Info("contact has no reachable number", "contact_id", contactID)
	}

	s.rec.Observe(ev)
	if hasPending {
		s.release(ctx, contactID)
	}
	res.SessionEnded = s.m.CompleteOutcome(contactID)
	if res.SessionEnded {
		s.finish(ctx, now)
	} else {
		s.touch(ctx, now)
	}
	return res, nil
}

// Skip logs a skipped event and drops the contact; empty contactID means the
// current contact. A contact with a pending call cannot be skipped.
func (s *Session) Skip(ctx context.Context, contactID string) (calls.Event, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if contactID == "" {
		c, ok := s.m.Current()
		if !ok {
			return calls.Event{}, false, ErrNoCurrentContact
		}
		contactID = c.ID
	}
	if err := s.m.CanSkip(contactID); err != nil {
		if errors.Is(err, ErrNoCurrentContact) {
			return calls.Event{}, false, apperr.NotFound("queued contact", contactID)
		}
		return calls.Event{}, false, err
	}
	now := s.env.clock()
	ev, err := s.env.calls.Record(ctx, calls.Event{
		ContactID:  contactID,
		SessionID:  s.rec.ID,
		OperatorID: s.rec.OperatorID,
		Outcome:    calls.OutcomeSkipped,
		CreatedAt:  now,
	})
	if err != nil {
		metrics.PersistenceFailuresTotal.WithLabelValues("call_ledger").Inc()
		return calls.Event{}, false, err
	}
	metrics.CallOutcomesTotal.WithLabelValues(string(calls.OutcomeSkipped), "").Inc()
	s.rec.Observe(ev)

	ended := s.m.Skip(contactID)
	if ended {
		s.finish(ctx, now)
	} else {
		s.touch(ctx, now)
	}
	return ev, ended, nil
}

// Pause keeps queue and cursor; a running call is force-ended.
func (s *Session) Pause(ctx context.Context) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.env.clock()
	if err := s.m.Pause(now); err != nil {
		return View{}, err
	}
	s.touch(ctx, now)
	return s.view(), nil
}

func (s *Session) Resume(ctx context.Context) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.m.Resume(); err != nil {
		return View{}, err
	}
	s.touch(ctx, s.env.clock())
	return s.view(), nil
}

// PruneQueue removes matching contacts not yet reached. Safe to call while
// other goroutines read Queue.
func (s *Session) PruneQueue(pred func(contacts.Contact) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.m.Prune(pred)
	if n > 0 && s.m.State() == StateEnded {
		s.finish(context.Background(), s.env.clock())
	}
	return n
}

// End finalizes the record from any state. An unclassified call is logged,
// never discarded from history: its contact simply stays due.
func (s *Session) End(ctx context.Context) Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.m.Pending(); ok {
		s.env.log.Warn("session ended with unclassified call", "session_id", s.rec.ID, "contact_id", p.ContactID)
		s.release(ctx, p.ContactID)
	}
	s.m.End()
	s.finish(ctx, s.env.clock())
	return s.rec
}

// detach retires the in-memory machine without closing the record, for a
// resume that replaces it.
func (s *Session) detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.m.Pending(); ok {
		s.env.log.Warn("resumed session dropped an unclassified call", "session_id", s.rec.ID, "contact_id", p.ContactID)
		s.release(context.Background(), p.ContactID)
	}
	s.m.End()
}

// StaleCall reports a pending call left unclassified longer than the stale
// threshold. It never changes state.
func (s *Session) StaleCall(now time.Time) (PendingCall, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.m.Pending()
	if !ok {
		return PendingCall{}, false
	}
	return p, s.isStale(p, now)
}

func (s *Session) isStale(p PendingCall, now time.Time) bool {
	if s.env.staleAfter <= 0 {
		return false
	}
	ref := p.StartedAt
	if p.EndedAt != nil {
		ref = *p.EndedAt
	}
	return now.Sub(ref) >= s.env.staleAfter
}

func (s *Session) Record() Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec
}

// dropContact handles a contact deleted out-of-band: the session continues
// with the rest of the queue.
func (s *Session) dropContact(ctx context.Context, contactID string, hadPending bool, now time.Time) {
	if hadPending {
		s.release(ctx, contactID)
	}
	if s.m.CompleteOutcome(contactID) {
		s.finish(ctx, now)
		return
	}
	s.touch(ctx, now)
}

func (s *Session) release(ctx context.Context, contactID string) {
	if s.env.lock == nil {
		return
	}
	if err := s.env.lock.Release(ctx, contactID, s.rec.ID); err != nil {
		s.env.log.Warn("call lock release failed", "session_id", s.rec.ID, "contact_id", contactID, "err", err)
	}
}

// touch persists activity and counters. Failures are logged only.
func (s *Session) touch(ctx context.Context, now time.Time) {
	s.rec.LastActivityAt = now
	s.rec.QueueSize = len(s.m.Queue())
	s.save(ctx)
}

func (s *Session) finish(ctx context.Context, now time.Time) {
	if s.rec.EndedAt != nil {
		return
	}
	s.rec.LastActivityAt = now
	s.rec.QueueSize = len(s.m.Queue())
	at := now
	s.rec.EndedAt = &at
	s.save(ctx)
	if s.env.onEnd != nil {
		s.env.onEnd(s.rec.ID)
	}
}

func (s *Session) save(ctx context.Context) {
	if s.env.records == nil {
		return
	}
	if err := s.env.records.Update(ctx, s.rec); err != nil {
		metrics.PersistenceFailuresTotal.WithLabelValues("session_record").Inc()
		s.env.log.Warn("session record update failed", "session_id", s.rec.ID, "err", err)
	}
}
