package capacity

import (
	"context"
	"log/slog"
	"time"

	"outreach-crm/internal/apperr"
	"outreach-crm/internal/audit"
	"outreach-crm/internal/cadence"
	"outreach-crm/internal/calls"
	"outreach-crm/internal/contacts"
	"outreach-crm/internal/metrics"
	"outreach-crm/internal/pause"
)

// DueSource returns the pool-wide due set, read fresh on each call.
type DueSource interface {
	DueToday(ctx context.Context) ([]contacts.Contact, error)
}

type HistorySource interface {
	History(ctx context.Context, contactIDs []string) (map[string][]calls.Event, error)
}

// Pauser is the pool pause ledger.
type Pauser interface {
	Pause(ctx context.Context, req pause.Request) (pause.Result, error)
}

type Options struct {
	DailyTarget         int
	UnreachableAttempts int
}

// Monitor assesses bloat and applies remediation. It holds no eligibility
// state between calls.
type Monitor struct {
	due      DueSource
	history  HistorySource
	pauses   Pauser
	contacts contacts.Repository
	opts     Options
	log      *slog.Logger
	clock    func() time.Time
}

func NewMonitor(due DueSource, history HistorySource, pauses Pauser, cr contacts.Repository, opts Options, log *slog.Logger) *Monitor {
	if log == nil {
		log = slog.Default()
	}
	return &Monitor{due: due, history: history, pauses: pauses, contacts: cr, opts: opts, log: log, clock: time.Now}
}

func (m *Monitor) WithClock(clock func() time.Time) *Monitor {
	m.clock = clock
	return m
}

// Assess reads the due set fresh and publishes the capacity gauges.
func (m *Monitor) Assess(ctx context.Context) (BloatStatus, error) {
	due, err := m.due.DueToday(ctx)
	if err != nil {
		return BloatStatus{}, err
	}
	st := Assess(due, m.opts.DailyTarget)
	metrics.ObserveAssessment(st.DueToday, st.Target, st.Overage)
	return st, nil
}

// Candidates classifies today's due set.
func (m *Monitor) Candidates(ctx context.Context, opts ClassifyOptions) ([]Candidate, BloatStatus, error) {
	due, err := m.due.DueToday(ctx)
	if err != nil {
		return nil, BloatStatus{}, err
	}
	st := Assess(due, m.opts.DailyTarget)
	metrics.ObserveAssessment(st.DueToday, st.Target, st.Overage)

	ids := make([]string, 0, len(due))
	for _, c := range due {
		ids = append(ids, c.ID)
	}
	hist, err := m.history.History(ctx, ids)
	if err != nil {
		return nil, st, apperr.Persistence("read call history", err)
	}
	opts.UnreachableAttempts = m.opts.UnreachableAttempts
	return Classify(due, hist, opts), st, nil
}

type FixResult struct {
	ContactID string `json:"contact_id"`
	Action    Action `json:"action"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
}

// FixReport counts per-candidate results; one failure never blocks the rest.
type FixReport struct {
	Applied int         `json:"applied"`
	Failed  int         `json:"failed"`
	Results []FixResult `json:"results"`
}

// ApplyFix routes pauses through the pause ledger (audited) and throttles
// through the cadence override (not a pause). Each candidate is one write.
func (m *Monitor) ApplyFix(ctx context.Context, cands []Candidate, actorID string) FixReport {
	rep := FixReport{Results: make([]FixResult, 0, len(cands))}
	for _, cand := range cands {
		res := FixResult{ContactID: cand.ContactID, Action: cand.Action}
		if err := m.applyOne(ctx, cand, actorID); err != nil {
			rep.Failed++
			res.Error = err.Error()
			metrics.FixesAppliedTotal.WithLabelValues(string(cand.Action), "failed").Inc()
			m.log.Warn("capacity fix failed", "contact_id", cand.ContactID, "action", cand.Action, "err", err)
		} else {
			rep.Applied++
			res.OK = true
			metrics.FixesAppliedTotal.WithLabelValues(string(cand.Action), "applied").Inc()
		}
		rep.Results = append(rep.Results, res)
	}
	return rep
}

func (m *Monitor) applyOne(ctx context.Context, cand Candidate, actorID string) error {
	if err := cand.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if cand.Action.IsPause() {
		reason := cand.Reason
		if reason == "" {
			reason = contacts.ReasonCapacity
		}
		_, err := m.pauses.Pause(ctx, pause.Request{
			EntityType: audit.EntityContact,
			EntityID:   cand.ContactID,
			Duration:   pause.Months(cand.Action.months()),
			ReasonCode: reason,
			Notes:      "capacity remediation: " + cand.Tier.String(),
			ActorID:    actorID,
		})
		return err
	}
	p, err := cadence.Throttle(cand.Action.days(), m.clock())
	if err != nil {
		return err
	}
	if _, err := m.contacts.Patch(ctx, cand.ContactID, p); err != nil {
		if apperr.IsNotFound(err) {
			return err
		}
		return apperr.Persistence("throttle contact", err)
	}
	return nil
}

type AutoFixReport struct {
	Status   BloatStatus `json:"status"`
	Selected int         `json:"selected"`
	FixReport
}

// AutoFix selects candidates tier by tier up to the overage and applies them.
// A pool within target is left alone.
func (m *Monitor) AutoFix(ctx context.Context, opts ClassifyOptions, actorID string) (AutoFixReport, error) {
	cands, st, err := m.Candidates(ctx, opts)
	if err != nil {
		return AutoFixReport{}, err
	}
	rep := AutoFixReport{Status: st, FixReport: FixReport{Results: []FixResult{}}}
	if !st.IsBloated {
		return rep, nil
	}
	picked := SelectOverage(cands, st.Overage)
	rep.Selected = len(picked)
	rep.FixReport = m.ApplyFix(ctx, picked, actorID)
	m.log.Info("capacity auto-fix applied",
		"due_today", st.DueToday, "target", st.Target, "overage", st.Overage,
		"selected", rep.Selected, "applied", rep.Applied, "failed", rep.Failed)
	return rep, nil
}
