package contacts

import (
	"context"
	"sync"
	"time"

	"outreach-crm/internal/apperr"
)

// MemoryRepo is an in-memory contact and company store for tests and local runs.
// List preserves insertion order, which the queue builder relies on for stable ordering.
type MemoryRepo struct {
	mu        sync.Mutex
	order     []string
	contacts  map[string]Contact
	companies map[string]Company

	clock func() time.Time

	// PatchErr, when set, fails every Patch call.
	PatchErr error
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		contacts:  map[string]Contact{},
		companies: map[string]Company{},
		clock:     time.Now,
	}
}

// Put inserts or replaces a contact.
func (r *MemoryRepo) Put(cs ...Contact) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range cs {
		if _, ok := r.contacts[c.ID]; !ok {
			r.order = append(r.order, c.ID)
		}
		r.contacts[c.ID] = c
	}
}

func (r *MemoryRepo) PutCompany(cs ...Company) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range cs {
		r.companies[c.ID] = c
	}
}

// Delete removes a contact, simulating an out-of-band delete.
func (r *MemoryRepo) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.contacts, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *MemoryRepo) List(ctx context.Context, f ListFilter) ([]Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Contact, 0, len(r.order))
	for _, id := range r.order {
		c := r.contacts[id]
		if matches(c, f) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contacts[id]
	if !ok {
		return Contact{}, apperr.NotFound("contact", id)
	}
	return c, nil
}

func (r *MemoryRepo) Patch(ctx context.Context, id string, p Patch) (Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.PatchErr != nil {
		return Contact{}, r.PatchErr
	}
	c, ok := r.contacts[id]
	if !ok {
		return Contact{}, apperr.NotFound("contact", id)
	}
	c = p.ApplyTo(c)
	c.UpdatedAt = r.clock().UTC()
	r.contacts[id] = c
	return c, nil
}

func (r *MemoryRepo) GetCompany(ctx context.Context, id string) (Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.companies[id]
	if !ok {
		return Company{}, apperr.NotFound("company", id)
	}
	return c, nil
}

func (r *MemoryRepo) ListCompanies(ctx context.Context) ([]Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Company, 0, len(r.companies))
	for _, c := range r.companies {
		out = append(out, c)
	}
	return out, nil
}

func (r *MemoryRepo) SetCompanyPause(ctx context.Context, id string, p CompanyPause) (Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.companies[id]
	if !ok {
		return Company{}, apperr.NotFound("company", id)
	}
	c = p.ApplyTo(c)
	r.companies[id] = c
	return c, nil
}
