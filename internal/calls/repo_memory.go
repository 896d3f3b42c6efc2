package calls

import (
	"context"
	"sync"
	"time"
)

// MemoryLedger is an in-memory append-only ledger for tests.
type MemoryLedger struct {
	mu     sync.Mutex
	events []Event

	// AppendErr, when set, fails every Append.
	AppendErr error
}

func NewMemoryLedger() *MemoryLedger { return &MemoryLedger{} }

func (l *MemoryLedger) Append(ctx context.Context, e Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.AppendErr != nil {
		return l.AppendErr
	}
	l.events = append(l.events, e)
	return nil
}

func (l *MemoryLedger) ListSince(ctx context.Context, since time.Time) ([]Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, 0)
	for _, e := range l.events {
		if !e.CreatedAt.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (l *MemoryLedger) ListByContacts(ctx context.Context, contactIDs []string) ([]Event, error) {
	want := make(map[string]struct{}, len(contactIDs))
	for _, id := range contactIDs {
		want[id] = struct{}{}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, 0)
	for _, e := range l.events {
		if _, ok := want[e.ContactID]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// Events returns a copy of everything appended so far.
func (l *MemoryLedger) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}
