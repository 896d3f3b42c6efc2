package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"outreach-crm/internal/apperr"
	"outreach-crm/internal/cadence"
	"outreach-crm/internal/calls"
	"outreach-crm/internal/contacts"
	"outreach-crm/internal/eligibility"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	now      time.Time
	contacts *contacts.MemoryRepo
	ledger   *calls.MemoryLedger
	records  *MemoryRepo
	lock     *MemoryCallLock
	queues   *eligibility.Service
	svc      *Service
}

func newHarness(t *testing.T, cs ...contacts.Contact) *harness {
	t.Helper()
	h := &harness{
		now:      t0,
		contacts: contacts.NewMemoryRepo(),
		ledger:   calls.NewMemoryLedger(),
		records:  NewMemoryRepo(),
		lock:     NewMemoryCallLock(),
	}
	clock := func() time.Time { return h.now }
	h.contacts.Put(cs...)

	callSvc := calls.NewService(h.ledger).WithClock(clock)
	h.queues = eligibility.NewService(h.contacts, h.contacts, callSvc, eligibility.NewFilter(10)).WithClock(clock)
	h.svc = NewService(Deps{
		Queues:   h.queues,
		Calls:    callSvc,
		Resolver: cadence.NewResolver(cadence.DefaultPolicy()),
		Contacts: h.contacts,
		Records:  h.records,
		Lock:     h.lock,
	}, Options{Gap: 30 * time.Minute, StaleAfter: 15 * time.Minute}).WithClock(clock)
	return h
}

func (h *harness) tick(d time.Duration) { h.now = h.now.Add(d) }

func freshContact(id string) contacts.Contact {
	return contacts.Contact{ID: id, Phone: "+15550100", Stage: contacts.StageFresh, DialerStatus: contacts.DialerStatusActive}
}

func (h *harness) start(t *testing.T, operator string) *Session {
	t.Helper()
	s, _, err := h.svc.Start(context.Background(), StartRequest{OperatorID: operator, Filter: eligibility.Config{EnableCadence: true}})
	require.NoError(t, err)
	return s
}

func TestStart_EmptyQueue(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.svc.Start(context.Background(), StartRequest{OperatorID: "op-1"})
	assert.ErrorIs(t, err, ErrEmptyQueue)

	_, _, err = h.svc.Start(context.Background(), StartRequest{})
	assert.True(t, apperr.IsValidation(err))
}

func TestRecordOutcome_NotInterested(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, freshContact("c1"), freshContact("c2"))
	s := h.start(t, "op-1")

	_, err := s.BeginCall(ctx, "")
	require.NoError(t, err)
	h.tick(90 * time.Second)
	_, err = s.EndCall(ctx)
	require.NoError(t, err)

	_, err = s.Advance(ctx)
	assert.ErrorIs(t, err, ErrOutcomeRequired)

	res, err := s.RecordOutcome(ctx, calls.OutcomeConnected, calls.DispositionNotInterested)
	require.NoError(t, err)
	assert.True(t, res.PatchApplied)
	assert.Equal(t, 90, res.Event.DurationSeconds)
	assert.False(t, res.SessionEnded)

	c, err := h.contacts.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, contacts.DialerStatusPaused, c.DialerStatus)
	assert.Equal(t, time.Date(2026, 11, 13, 0, 0, 0, 0, time.UTC), *c.DialerPausedUntil)
	assert.Equal(t, 1, c.TotalCalls)

	v := s.View()
	assert.Equal(t, CallReady, v.CallState)
	assert.Equal(t, "c2", v.Current.ID)
	assert.Equal(t, 1, v.Counters.Connected)
	assert.NotNil(t, v.Counters.FirstPickupAt)

	q, err := h.queues.Build(ctx, eligibility.Config{EnableCadence: false})
	require.NoError(t, err)
	assert.Equal(t, []string{"c2"}, queueIDs(q))
}

func TestRecordOutcome_ExhaustsAtCeiling(t *testing.T) {
	ctx := context.Background()
	c := freshContact("c1")
	c.TotalCalls = 9
	h := newHarness(t, c)
	s := h.start(t, "op-1")

	res, err := s.RecordOutcome(ctx, calls.OutcomeNoAnswer, calls.DispositionNone)
	require.NoError(t, err)
	assert.Equal(t, contacts.DialerStatusExhausted, res.Contact.DialerStatus)
	assert.Equal(t, 10, res.Contact.TotalCalls)
	assert.True(t, res.SessionEnded)
	assert.Equal(t, StateEnded, s.View().State)

	h.tick(48 * time.Hour)
	q, err := h.queues.Build(ctx, eligibility.Config{})
	require.NoError(t, err)
	assert.Empty(t, q)
}

func TestRecordOutcome_LedgerFailureKeepsAwaitingOutcome(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, freshContact("c1"), freshContact("c2"))
	s := h.start(t, "op-1")

	_, err := s.BeginCall(ctx, "")
	require.NoError(t, err)
	_, err = s.EndCall(ctx)
	require.NoError(t, err)

	h.ledger.AppendErr = errors.New("ledger down")
	_, err = s.RecordOutcome(ctx, calls.OutcomeVoicemail, calls.DispositionNone)
	require.Error(t, err)
	assert.True(t, apperr.IsPersistence(err))

	v := s.View()
	assert.Equal(t, CallAwaitingOutcome, v.CallState)
	assert.Equal(t, "c1", v.Current.ID)
	untouched, _ := h.contacts.Get(ctx, "c1")
	assert.Equal(t, 0, untouched.TotalCalls)

	h.ledger.AppendErr = nil
	_, err = s.RecordOutcome(ctx, calls.OutcomeVoicemail, calls.DispositionNone)
	require.NoError(t, err)
	assert.Len(t, h.ledger.Events(), 1)
}

func TestRecordOutcome_ContactPatchFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, freshContact("c1"), freshContact("c2"))
	s := h.start(t, "op-1")

	h.contacts.PatchErr = errors.New("contacts down")
	res, err := s.RecordOutcome(ctx, calls.OutcomeNoAnswer, calls.DispositionNone)
	require.NoError(t, err)
	assert.False(t, res.PatchApplied)
	assert.Equal(t, 1, res.Contact.TotalCalls)
	assert.Len(t, h.ledger.Events(), 1)
	assert.Equal(t, "c2", s.View().Current.ID)
}

func TestRecordOutcome_DeletedContact(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, freshContact("c1"), freshContact("c2"))
	s := h.start(t, "op-1")

	h.contacts.Delete("c1")
	_, err := s.RecordOutcome(ctx, calls.OutcomeNoAnswer, calls.DispositionNone)
	assert.True(t, apperr.IsNotFound(err))

	v := s.View()
	assert.Equal(t, StateActive, v.State)
	assert.Equal(t, "c2", v.Current.ID)
}

func TestRecordOutcome_RejectsSkipped(t *testing.T) {
	h := newHarness(t, freshContact("c1"))
	s := h.start(t, "op-1")
	_, err := s.RecordOutcome(context.Background(), calls.OutcomeSkipped, calls.DispositionNone)
	assert.True(t, apperr.IsValidation(err))
}

func TestSkip(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, freshContact("c1"), freshContact("c2"), freshContact("c3"))
	s := h.start(t, "op-1")

	ev, ended, err := s.Skip(ctx, "")
	require.NoError(t, err)
	assert.False(t, ended)
	assert.Equal(t, calls.OutcomeSkipped, ev.Outcome)
	assert.Equal(t, 0, ev.DurationSeconds)
	assert.Equal(t, "c2", s.View().Current.ID)

	// A non-current contact is removed without moving the cursor.
	_, _, err = s.Skip(ctx, "c3")
	require.NoError(t, err)
	assert.Equal(t, []string{"c2"}, queueIDs(s.Queue()))

	_, _, err = s.Skip(ctx, "nope")
	assert.True(t, apperr.IsNotFound(err))

	_, err = s.BeginCall(ctx, "")
	require.NoError(t, err)
	_, _, err = s.Skip(ctx, "c2")
	assert.ErrorIs(t, err, ErrCallInProgress)

	// Skipped contacts do not count as called today.
	q, err := h.queues.Build(ctx, eligibility.Config{})
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2", "c3"}, queueIDs(q))
	assert.Equal(t, 2, s.View().Counters.Skipped)
	assert.Equal(t, 0, s.View().Counters.Calls)
}

func TestRecordOutcome_EndsCallInProgress(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, freshContact("c1"), freshContact("c2"))
	s := h.start(t, "op-1")

	_, err := s.BeginCall(ctx, "")
	require.NoError(t, err)
	h.tick(25 * time.Second)

	res, err := s.RecordOutcome(ctx, calls.OutcomeNoAnswer, calls.DispositionNone)
	require.NoError(t, err)
	assert.Equal(t, 25, res.Event.DurationSeconds)
	assert.Equal(t, CallReady, s.View().CallState)
	assert.Equal(t, "c2", s.View().Current.ID)
}

func TestCallLock_SerializesContactAcrossSessions(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, freshContact("c1"), freshContact("c2"))
	a := h.start(t, "op-a")
	b := h.start(t, "op-b")

	_, err := a.BeginCall(ctx, "")
	require.NoError(t, err)
	_, err = b.BeginCall(ctx, "")
	assert.ErrorIs(t, err, ErrContactBusy)
	assert.Equal(t, CallReady, b.View().CallState)

	_, err = a.RecordOutcome(ctx, calls.OutcomeVoicemail, calls.DispositionNone)
	require.NoError(t, err)
	_, held := h.lock.Holder("c1")
	assert.False(t, held)

	_, err = b.BeginCall(ctx, "")
	require.NoError(t, err)
}

func TestPauseDuringCall(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, freshContact("c1"))
	s := h.start(t, "op-1")

	_, err := s.BeginCall(ctx, "")
	require.NoError(t, err)
	h.tick(40 * time.Second)
	v, err := s.Pause(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatePaused, v.State)
	assert.Equal(t, CallAwaitingOutcome, v.CallState)

	h.tick(10 * time.Minute)
	res, err := s.RecordOutcome(ctx, calls.OutcomeConnected, calls.DispositionInterestedFollowUp)
	require.NoError(t, err)
	assert.Equal(t, 40, res.Event.DurationSeconds)
}

func TestStaleCall(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, freshContact("c1"))
	s := h.start(t, "op-1")

	_, err := s.BeginCall(ctx, "")
	require.NoError(t, err)
	_, err = s.EndCall(ctx)
	require.NoError(t, err)

	_, stale := s.StaleCall(h.now.Add(5 * time.Minute))
	assert.False(t, stale)
	p, stale := s.StaleCall(h.now.Add(20 * time.Minute))
	assert.True(t, stale)
	assert.Equal(t, "c1", p.ContactID)
	// Never auto-discarded.
	assert.Equal(t, CallAwaitingOutcome, s.View().CallState)
}

func TestResumeOrCreate(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, freshContact("c1"), freshContact("c2"))

	first := h.start(t, "op-1")
	_, _, err := first.Skip(ctx, "")
	require.NoError(t, err)

	h.tick(10 * time.Minute)
	again, resumed, err := h.svc.Start(ctx, StartRequest{OperatorID: "op-1"})
	require.NoError(t, err)
	assert.True(t, resumed)
	assert.Equal(t, first.ID(), again.ID())
	assert.Equal(t, 1, again.View().Counters.Skipped)
	assert.Equal(t, 1, h.svc.Registry().Len())

	h.tick(2 * time.Hour)
	fresh, resumed, err := h.svc.Start(ctx, StartRequest{OperatorID: "op-1"})
	require.NoError(t, err)
	assert.False(t, resumed)
	assert.NotEqual(t, first.ID(), fresh.ID())

	old, err := h.records.Get(ctx, first.ID())
	require.NoError(t, err)
	require.NotNil(t, old.EndedAt)
	assert.True(t, old.EndedAt.Before(h.now))

	_, _, err = h.svc.Start(ctx, StartRequest{OperatorID: "op-1", SessionID: first.ID()})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, _, err = h.svc.Start(ctx, StartRequest{OperatorID: "op-2", SessionID: fresh.ID()})
	assert.True(t, apperr.IsNotFound(err))
}

func TestRegistryPruneCompany(t *testing.T) {
	ctx := context.Background()
	var cs []contacts.Contact
	for _, ref := range []string{"x1@co-x", "p1@co-p", "x2@co-x", "p2@co-p", "p3@co-p"} {
		c := queueOf(ref)[0]
		c.Stage = contacts.StageFresh
		cs = append(cs, c)
	}
	h := newHarness(t, cs...)
	s := h.start(t, "op-1")
	require.Equal(t, "x1", s.View().Current.ID)

	n := h.svc.Registry().PruneCompany("co-p")
	assert.Equal(t, 3, n)
	v := s.View()
	assert.Equal(t, "x1", v.Current.ID)
	assert.Equal(t, []string{"x1", "x2"}, queueIDs(v.Queue))

	_, _, err := s.Skip(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, h.svc.Registry().PruneContact("x2"))
	assert.Equal(t, StateEnded, s.View().State)
	assert.Equal(t, 0, h.svc.Registry().Len())
}

func TestEnd(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, freshContact("c1"))
	s := h.start(t, "op-1")
	_, err := s.BeginCall(ctx, "")
	require.NoError(t, err)

	rec, err := h.svc.End(ctx, s.ID(), "op-1")
	require.NoError(t, err)
	require.NotNil(t, rec.EndedAt)
	_, held := h.lock.Holder("c1")
	assert.False(t, held)

	_, err = h.svc.Get(s.ID(), "op-1")
	assert.True(t, apperr.IsNotFound(err))

	stored, err := h.records.Get(ctx, s.ID())
	require.NoError(t, err)
	assert.NotNil(t, stored.EndedAt)
}

func TestMemoryRepo_CreateClosesOtherOpenRecords(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepo()
	older := Record{ID: "s1", OperatorID: "op-1", StartedAt: t0, LastActivityAt: t0.Add(time.Minute)}
	other := Record{ID: "s2", OperatorID: "op-2", StartedAt: t0, LastActivityAt: t0}
	require.NoError(t, r.Create(ctx, older))
	require.NoError(t, r.Create(ctx, other))
	require.NoError(t, r.Create(ctx, Record{ID: "s3", OperatorID: "op-1", StartedAt: t0.Add(time.Hour), LastActivityAt: t0.Add(time.Hour)}))

	got, err := r.Get(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got.EndedAt)
	assert.Equal(t, older.LastActivityAt, *got.EndedAt)

	got, _ = r.Get(ctx, "s2")
	assert.Nil(t, got.EndedAt)

	latest, ok, err := r.LatestOpen(ctx, "op-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "s3", latest.ID)
}
