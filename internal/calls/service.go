package calls

import (
	"context"
	"errors"
	"time"

	"outreach-crm/internal/apperr"

	"github.com/google/uuid"
)

// Service validates and appends call events and answers same-day questions
// from the ledger, so completion tracking never depends on client-held state.
type Service struct {
	ledger Ledger
	// clock returns local wall-clock time; "today" starts at its local midnight.
	clock func() time.Time
}

func NewService(ledger Ledger) *Service {
	return &Service{ledger: ledger, clock: time.Now}
}

// WithClock overrides the clock, for deterministic tests.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

var errNoLedger = errors.New("calls: ledger not configured")

// Record appends e, assigning ID and CreatedAt when empty. A ledger failure is
// returned as a PersistenceError and must be retried by the caller.
func (s *Service) Record(ctx context.Context, e Event) (Event, error) {
	if s.ledger == nil {
		return Event{}, errNoLedger
	}
	if e.ContactID == "" {
		return Event{}, apperr.Invalid("contact_id", "required")
	}
	if !e.Outcome.Valid() {
		return Event{}, apperr.Invalid("outcome", "unknown outcome "+string(e.Outcome))
	}
	if !e.Disposition.Valid() {
		return Event{}, apperr.Invalid("disposition", "unknown disposition "+string(e.Disposition))
	}
	if e.DurationSeconds < 0 {
		return Event{}, apperr.Invalid("duration_seconds", "must be >= 0")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock()
	}
	if err := s.ledger.Append(ctx, e); err != nil {
		return Event{}, apperr.Persistence("append call event", err)
	}
	return e, nil
}

// StartOfDay is local midnight of now.
func StartOfDay(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

// Today returns every event logged since local midnight.
func (s *Service) Today(ctx context.Context) ([]Event, error) {
	if s.ledger == nil {
		return nil, errNoLedger
	}
	return s.ledger.ListSince(ctx, StartOfDay(s.clock()))
}

// CalledToday is the set of contacts with a real call logged today.
func (s *Service) CalledToday(ctx context.Context) (map[string]struct{}, error) {
	evs, err := s.Today(ctx)
	if err != nil {
		return nil, err
	}
	return CalledSet(evs), nil
}

// History returns all events for the given contacts grouped by contact id.
func (s *Service) History(ctx context.Context, contactIDs []string) (map[string][]Event, error) {
	if s.ledger == nil {
		return nil, errNoLedger
	}
	evs, err := s.ledger.ListByContacts(ctx, contactIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]Event, len(contactIDs))
	for _, e := range evs {
		out[e.ContactID] = append(out[e.ContactID], e)
	}
	return out, nil
}

// CalledSet collects contact ids with a real call among evs. Skipped outcomes
// do not count: a contact skipped earlier today may still be served today.
func CalledSet(evs []Event) map[string]struct{} {
	out := make(map[string]struct{})
	for _, e := range evs {
		if e.CountsAsCall() {
			out[e.ContactID] = struct{}{}
		}
	}
	return out
}
