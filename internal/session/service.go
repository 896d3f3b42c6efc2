package session

import (
	"context"
	"log/slog"
	"time"

	"outreach-crm/internal/apperr"
	"outreach-crm/internal/cadence"
	"outreach-crm/internal/calls"
	"outreach-crm/internal/contacts"
	"outreach-crm/internal/eligibility"

	"github.com/google/uuid"
)

type Options struct {
	// Gap is the longest idle time after which an open session is resumed
	// rather than closed and replaced.
	Gap time.Duration
	// StaleAfter flags unclassified calls older than this. Zero disables it.
	StaleAfter time.Duration
}

type Deps struct {
	Queues   *eligibility.Service
	Calls    *calls.Service
	Resolver *cadence.Resolver
	Contacts contacts.Repository
	Records  Repository
	Lock     CallLock
	Registry *Registry
	Logger   *slog.Logger
}

// Service starts and looks up sessions.
type Service struct {
	queues   *eligibility.Service
	records  Repository
	registry *Registry
	env      *env
	opts     Options
	log      *slog.Logger
	clock    func() time.Time
}

func NewService(d Deps, opts Options) *Service {
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}
	reg := d.Registry
	if reg == nil {
		reg = NewRegistry()
	}
	s := &Service{
		queues:   d.Queues,
		records:  d.Records,
		registry: reg,
		opts:     opts,
		log:      log,
		clock:    time.Now,
	}
	s.env = &env{
		calls:      d.Calls,
		resolver:   d.Resolver,
		contacts:   d.Contacts,
		records:    d.Records,
		lock:       d.Lock,
		log:        log,
		clock:      func() time.Time { return s.clock() },
		staleAfter: opts.StaleAfter,
		onEnd:      reg.Remove,
	}
	return s
}

func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

func (s *Service) Registry() *Registry { return s.registry }

type StartRequest struct {
	OperatorID string             `json:"-"`
	Filter     eligibility.Config `json:"filter"`
	// SessionID resumes a specific open session. Empty applies resume-or-create.
	SessionID string `json:"session_id,omitempty"`
}

// Start builds a fresh queue and makes the resume-or-create decision once.
// An explicit id resumes that record. Otherwise the operator's latest open
// record is resumed if its last activity is within the gap; an older one is
// closed at its last activity and a new record is created.
func (s *Service) Start(ctx context.Context, req StartRequest) (*Session, bool, error) {
	if req.OperatorID == "" {
		return nil, false, apperr.Invalid("operator_id", "required")
	}
	queue, err := s.queues.Build(ctx, req.Filter)
	if err != nil {
		return nil, false, err
	}
	if len(queue) == 0 {
		return nil, false, ErrEmptyQueue
	}

	now := s.clock()
	rec, resumed, err := s.resolveRecord(ctx, req, now)
	if err != nil {
		return nil, false, err
	}
	rec.Filter = req.Filter
	rec.LastActivityAt = now
	rec.QueueSize = len(queue)

	if resumed {
		if live, ok := s.registry.Get(rec.ID); ok {
			// The old in-memory queue is replaced by the fresh build.
			live.detach()
			s.registry.Remove(rec.ID)
		}
		if err := s.records.Update(ctx, rec); err != nil {
			s.log.Warn("session record update failed", "session_id", rec.ID, "err", err)
		}
	} else if err := s.records.Create(ctx, rec); err != nil {
		return nil, false, apperr.Persistence("create session", err)
	}

	sess := newSession(rec, s.env)
	if err := sess.m.Start(queue); err != nil {
		return nil, false, err
	}
	s.registry.Add(sess)
	s.log.Info("session started", "session_id", rec.ID, "operator_id", rec.OperatorID, "queue_size", len(queue), "resumed", resumed)
	return sess, resumed, nil
}

func (s *Service) resolveRecord(ctx context.Context, req StartRequest, now time.Time) (Record, bool, error) {
	if req.SessionID != "" {
		rec, err := s.records.Get(ctx, req.SessionID)
		if err != nil {
			if apperr.IsNotFound(err) {
				return Record{}, false, err
			}
			return Record{}, false, apperr.Persistence("get session", err)
		}
		if rec.OperatorID != req.OperatorID {
			return Record{}, false, apperr.NotFound("session", req.SessionID)
		}
		if rec.EndedAt != nil {
			return Record{}, false, ErrInvalidTransition
		}
		return rec, true, nil
	}

	latest, ok, err := s.records.LatestOpen(ctx, req.OperatorID)
	if err != nil {
		return Record{}, false, apperr.Persistence("latest session", err)
	}
	if ok {
		if now.Sub(latest.LastActivityAt) <= s.opts.Gap {
			return latest, true, nil
		}
		s.closeStale(ctx, latest)
	}
	return Record{
		ID:             uuid.NewString(),
		OperatorID:     req.OperatorID,
		StartedAt:      now,
		LastActivityAt: now,
	}, false, nil
}

// closeStale ends an abandoned record at its last activity.
func (s *Service) closeStale(ctx context.Context, rec Record) {
	if live, ok := s.registry.Get(rec.ID); ok {
		rec = live.Record()
		live.detach()
		s.registry.Remove(rec.ID)
	}
	at := rec.LastActivityAt
	rec.EndedAt = &at
	if err := s.records.Update(ctx, rec); err != nil {
		s.log.Warn("closing stale session failed", "session_id", rec.ID, "err", err)
	}
}

// Get returns a live session owned by operatorID.
func (s *Service) Get(id, operatorID string) (*Session, error) {
	sess, ok := s.registry.Get(id)
	if !ok || (operatorID != "" && sess.OperatorID() != operatorID) {
		return nil, apperr.NotFound("session", id)
	}
	return sess, nil
}

// End ends a live session and returns its final record.
func (s *Service) End(ctx context.Context, id, operatorID string) (Record, error) {
	sess, err := s.Get(id, operatorID)
	if err != nil {
		return Record{}, err
	}
	return sess.End(ctx), nil
}
