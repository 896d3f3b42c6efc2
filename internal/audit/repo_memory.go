package audit

import (
	"context"
	"sync"
)

// MemoryRepo is a simple in-memory append-only repository useful for tests.
// It is not intended for production use.
type MemoryRepo struct {
	mu     sync.Mutex
	events []PauseEvent

	// AppendErr, when set, fails every Append.
	AppendErr error
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Append(ctx context.Context, e PauseEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.AppendErr != nil {
		return r.AppendErr
	}
	r.events = append(r.events, e)
	return nil
}

func (r *MemoryRepo) ListByEntity(ctx context.Context, t EntityType, id string) ([]PauseEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []PauseEvent
	for _, e := range r.events {
		if e.EntityType == t && e.EntityID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *MemoryRepo) Events() []PauseEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]PauseEvent, len(r.events))
	copy(out, r.events)
	return out
}
