package session

import (
	"context"
	"sync"

	"outreach-crm/internal/apperr"
)

type MemoryRepo struct {
	mu      sync.Mutex
	records map[string]Record
	order   []string

	// UpdateErr, when set, fails every Update.
	UpdateErr error
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{records: map[string]Record{}} }

// Create stores rec and closes the operator's other open records at their
// last activity.
func (r *MemoryRepo) Create(ctx context.Context, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, other := range r.records {
		if other.OperatorID == rec.OperatorID && other.EndedAt == nil && id != rec.ID {
			at := other.LastActivityAt
			other.EndedAt = &at
			r.records[id] = other
		}
	}
	if _, ok := r.records[rec.ID]; !ok {
		r.order = append(r.order, rec.ID)
	}
	r.records[rec.ID] = rec
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return Record{}, apperr.NotFound("session", id)
	}
	return rec, nil
}

func (r *MemoryRepo) Update(ctx context.Context, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.UpdateErr != nil {
		return r.UpdateErr
	}
	if _, ok := r.records[rec.ID]; !ok {
		return apperr.NotFound("session", rec.ID)
	}
	r.records[rec.ID] = rec
	return nil
}

func (r *MemoryRepo) LatestOpen(ctx context.Context, operatorID string) (Record, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.order) - 1; i >= 0; i-- {
		rec := r.records[r.order[i]]
		if rec.OperatorID == operatorID && rec.EndedAt == nil {
			return rec, true, nil
		}
	}
	return Record{}, false, nil
}
