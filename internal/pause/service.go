// Package pause is the pool pause ledger: it pauses and unpauses contacts and
// companies, writes the audit trail and prunes live call queues.
package pause

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"outreach-crm/internal/apperr"
	"outreach-crm/internal/audit"
	"outreach-crm/internal/calendar"
	"outreach-crm/internal/contacts"
	"outreach-crm/internal/metrics"
)

// QueuePruner removes paused entities from live session queues.
type QueuePruner interface {
	PruneCompany(companyID string) int
	PruneContact(contactID string) int
}

// Duration is either a number of months or indefinite.
type Duration struct {
	Months     int  `json:"months,omitempty"`
	Indefinite bool `json:"indefinite,omitempty"`
}

func Months(n int) Duration { return Duration{Months: n} }

var Forever = Duration{Indefinite: true}

func (d Duration) Validate() error {
	if d.Indefinite {
		if d.Months != 0 {
			return apperr.Invalid("duration", "months and indefinite are exclusive")
		}
		return nil
	}
	if d.Months <= 0 {
		return apperr.Invalid("duration", "months must be > 0 or indefinite")
	}
	return nil
}

// Until computes the pause end from today.
func (d Duration) Until(today time.Time) time.Time {
	if d.Indefinite {
		return calendar.Indefinite
	}
	return calendar.AddMonths(today, d.Months)
}

type Request struct {
	EntityType audit.EntityType `json:"entity_type"`
	EntityID   string           `json:"entity_id"`
	Duration   Duration         `json:"duration"`
	ReasonCode string           `json:"reason_code"`
	Notes      string           `json:"notes,omitempty"`
	ActorID    string           `json:"-"`
}

func (r Request) Validate() error {
	if !r.EntityType.Valid() {
		return apperr.Invalid("entity_type", fmt.Sprintf("unknown entity type %q", r.EntityType))
	}
	if r.EntityID == "" {
		return apperr.Invalid("entity_id", "required")
	}
	if r.ReasonCode == "" {
		return apperr.Invalid("reason_code", "required")
	}
	return r.Duration.Validate()
}

type Result struct {
	EntityType  audit.EntityType `json:"entity_type"`
	EntityID    string           `json:"entity_id"`
	PausedUntil *time.Time       `json:"paused_until,omitempty"`
	// Pruned is the number of live queue entries removed.
	Pruned int `json:"pruned"`
}

// BulkResult reports a batch; one failure never aborts the rest.
type BulkResult struct {
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Errors    map[string]string `json:"errors,omitempty"`
	Results   []Result          `json:"results,omitempty"`
}

func (b *BulkResult) fail(id string, err error) {
	b.Failed++
	if b.Errors == nil {
		b.Errors = map[string]string{}
	}
	b.Errors[id] = err.Error()
}

type Service struct {
	contacts  contacts.Repository
	companies contacts.CompanyRepository
	audit     *audit.Service
	pruner    QueuePruner
	log       *slog.Logger
	clock     func() time.Time
}

func NewService(cr contacts.Repository, co contacts.CompanyRepository, a *audit.Service, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{contacts: cr, companies: co, audit: a, log: log, clock: time.Now}
}

func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

// SetPruner wires the live-session registry. It is optional: with no pruner
// pauses take effect on the next queue build only.
func (s *Service) SetPruner(p QueuePruner) { s.pruner = p }

// Pause writes the pause group, appends the audit event and prunes live queues.
func (s *Service) Pause(ctx context.Context, req Request) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	now := s.clock()
	until := req.Duration.Until(now)

	switch req.EntityType {
	case audit.EntityContact:
		st := contacts.PausedStatus(until, req.ReasonCode, now.UTC())
		if _, err := s.contacts.Patch(ctx, req.EntityID, contacts.Patch{Status: &st}); err != nil {
			return Result{}, storeErr("pause contact", err)
		}
	case audit.EntityCompany:
		at := now.UTC()
		if _, err := s.companies.SetCompanyPause(ctx, req.EntityID, contacts.CompanyPause{
			PausedUntil: &until,
			Reason:      req.ReasonCode,
			PausedAt:    &at,
		}); err != nil {
			return Result{}, storeErr("pause company", err)
		}
	}

	s.appendAudit(ctx, audit.PauseEvent{
		EntityType:     req.EntityType,
		EntityID:       req.EntityID,
		Action:         audit.ActionPaused,
		PausedUntil:    &until,
		DurationMonths: req.Duration.Months,
		Indefinite:     req.Duration.Indefinite,
		ReasonCode:     req.ReasonCode,
		Notes:          req.Notes,
		ActorID:        req.ActorID,
	})
	metrics.PauseActionsTotal.WithLabelValues(string(req.EntityType), string(audit.ActionPaused)).Inc()

	res := Result{EntityType: req.EntityType, EntityID: req.EntityID, PausedUntil: &until}
	res.Pruned = s.prune(req.EntityType, req.EntityID)
	return res, nil
}

// Unpause clears the pause group as one write and appends the audit event.
// For a contact it is the operator's explicit release and applies from any
// status: it is the one sanctioned exit from converted or exhausted, and the
// status it replaced goes into the audit notes. Exhausted contacts stay out of
// the pool while they remain over the call cap.
func (s *Service) Unpause(ctx context.Context, t audit.EntityType, id, actorID string) (Result, error) {
	if !t.Valid() {
		return Result{}, apperr.Invalid("entity_type", fmt.Sprintf("unknown entity type %q", t))
	}
	if id == "" {
		return Result{}, apperr.Invalid("entity_id", "required")
	}

	var notes string
	switch t {
	case audit.EntityContact:
		prev, err := s.contacts.Get(ctx, id)
		if err != nil {
			return Result{}, storeErr("load contact", err)
		}
		if st := prev.Status(); st != contacts.DialerStatusPaused {
			notes = "previous status: " + string(st)
		}
		st := contacts.ActiveStatus()
		if _, err := s.contacts.Patch(ctx, id, contacts.Patch{Status: &st}); err != nil {
			return Result{}, storeErr("unpause contact", err)
		}
	case audit.EntityCompany:
		if _, err := s.companies.SetCompanyPause(ctx, id, contacts.CompanyPause{}); err != nil {
			return Result{}, storeErr("unpause company", err)
		}
	}

	s.appendAudit(ctx, audit.PauseEvent{
		EntityType: t,
		EntityID:   id,
		Action:     audit.ActionUnpaused,
		Notes:      notes,
		ActorID:    actorID,
	})
	metrics.PauseActionsTotal.WithLabelValues(string(t), string(audit.ActionUnpaused)).Inc()
	return Result{EntityType: t, EntityID: id}, nil
}

// BulkPause pauses every id with the same duration and reason.
func (s *Service) BulkPause(ctx context.Context, t audit.EntityType, ids []string, d Duration, reason, notes, actorID string) (BulkResult, error) {
	sample := Request{EntityType: t, EntityID: "bulk", Duration: d, ReasonCode: reason}
	if err := sample.Validate(); err != nil {
		return BulkResult{}, err
	}
	var out BulkResult
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		res, err := s.Pause(ctx, Request{EntityType: t, EntityID: id, Duration: d, ReasonCode: reason, Notes: notes, ActorID: actorID})
		if err != nil {
			s.log.Warn("bulk pause failed", "entity_type", t, "entity_id", id, "err", err)
			out.fail(id, err)
			continue
		}
		out.Succeeded++
		out.Results = append(out.Results, res)
	}
	return out, nil
}

func (s *Service) BulkUnpause(ctx context.Context, t audit.EntityType, ids []string, actorID string) (BulkResult, error) {
	if !t.Valid() {
		return BulkResult{}, apperr.Invalid("entity_type", fmt.Sprintf("unknown entity type %q", t))
	}
	var out BulkResult
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		res, err := s.Unpause(ctx, t, id, actorID)
		if err != nil {
			s.log.Warn("bulk unpause failed", "entity_type", t, "entity_id", id, "err", err)
			out.fail(id, err)
			continue
		}
		out.Succeeded++
		out.Results = append(out.Results, res)
	}
	return out, nil
}

func (s *Service) prune(t audit.EntityType, id string) int {
	if s.pruner == nil {
		return 0
	}
	if t == audit.EntityCompany {
		return s.pruner.PruneCompany(id)
	}
	return s.pruner.PruneContact(id)
}

func (s *Service) appendAudit(ctx context.Context, e audit.PauseEvent) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Append(ctx, e); err != nil {
		metrics.PersistenceFailuresTotal.WithLabelValues("pause_audit").Inc()
		s.log.Warn("pause audit append failed", "entity_type", e.EntityType, "entity_id", e.EntityID, "action", e.Action, "err", err)
	}
}

func storeErr(op string, err error) error {
	if apperr.IsNotFound(err) || errors.Is(err, context.Canceled) {
		return err
	}
	return apperr.Persistence(op, err)
}
