package eligibility

import (
	"context"
	"time"

	"outreach-crm/internal/apperr"
	"outreach-crm/internal/calls"
	"outreach-crm/internal/contacts"
	"outreach-crm/internal/metrics"
)

// Service builds queues from live reads. Nothing is cached between calls: the
// capacity monitor and concurrent sessions always see a fresh due set.
type Service struct {
	contacts  contacts.Repository
	companies contacts.CompanyRepository
	calls     *calls.Service
	filter    *Filter
	clock     func() time.Time
}

func NewService(cr contacts.Repository, co contacts.CompanyRepository, cs *calls.Service, f *Filter) *Service {
	return &Service{contacts: cr, companies: co, calls: cs, filter: f, clock: time.Now}
}

func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

func (s *Service) Filter() *Filter { return s.filter }

// Build reads contacts, companies and today's ledger and runs the filter.
func (s *Service) Build(ctx context.Context, cfg Config) ([]contacts.Contact, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	in, err := s.input(ctx, cfg.ListFilter())
	if err != nil {
		return nil, err
	}
	q, err := s.filter.BuildQueue(in, cfg)
	if err != nil {
		return nil, err
	}
	metrics.QueueBuildsTotal.Inc()
	metrics.QueueSize.Observe(float64(len(q)))
	return q, nil
}

// DueToday is the pool-wide due set the capacity monitor assesses.
func (s *Service) DueToday(ctx context.Context) ([]contacts.Contact, error) {
	cfg := Config{Scope: ScopeAll, EnableCadence: true}
	in, err := s.input(ctx, cfg.ListFilter())
	if err != nil {
		return nil, err
	}
	return s.filter.BuildQueue(in, cfg)
}

func (s *Service) input(ctx context.Context, lf contacts.ListFilter) (Input, error) {
	now := s.clock()
	cs, err := s.contacts.List(ctx, lf)
	if err != nil {
		return Input{}, apperr.Persistence("list contacts", err)
	}
	companies, err := s.companies.ListCompanies(ctx)
	if err != nil {
		return Input{}, apperr.Persistence("list companies", err)
	}
	called, err := s.calls.CalledToday(ctx)
	if err != nil {
		return Input{}, apperr.Persistence("list today's calls", err)
	}
	return Input{
		Contacts:         cs,
		CalledToday:      called,
		PausedCompanies:  contacts.PausedCompanyIDs(companies, now),
		CompanyTimezones: contacts.CompanyTimezones(companies),
		Today:            now,
	}, nil
}
