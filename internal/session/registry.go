package session

import (
	"sync"

	"outreach-crm/internal/contacts"
	"outreach-crm/internal/metrics"
)

// Registry tracks the live sessions of this process. It satisfies the pause
// ledger's QueuePruner so a pause reaches every live queue immediately.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry { return &Registry{sessions: map[string]*Session{}} }

func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.ID()]; !ok {
		metrics.ActiveSessions.Inc()
	}
	r.sessions[s.ID()] = s
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; ok {
		delete(r.sessions, id)
		metrics.ActiveSessions.Dec()
	}
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// ByOperator returns the operator's live session, if any.
func (r *Registry) ByOperator(operatorID string) (*Session, bool) {
	for _, s := range r.list() {
		if s.OperatorID() == operatorID {
			return s, true
		}
	}
	return nil, false
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// list copies the sessions so callers never hold the registry lock while
// taking a session lock.
func (r *Registry) list() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// Prune applies pred to every live queue and returns the total removed.
func (r *Registry) Prune(reason string, pred func(contacts.Contact) bool) int {
	total := 0
	for _, s := range r.list() {
		total += s.PruneQueue(pred)
	}
	if total > 0 {
		metrics.QueuePrunedTotal.WithLabelValues(reason).Add(float64(total))
	}
	return total
}

func (r *Registry) PruneCompany(companyID string) int {
	return r.Prune("company_paused", func(c contacts.Contact) bool { return c.CompanyID == companyID })
}

func (r *Registry) PruneContact(contactID string) int {
	return r.Prune("contact_paused", func(c contacts.Contact) bool { return c.ID == contactID })
}
