package cadence

import (
	"testing"
	"time"

	"outreach-crm/internal/apperr"
	"outreach-crm/internal/calendar"
	"outreach-crm/internal/calls"
	"outreach-crm/internal/contacts"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wednesday.
var now = time.Date(2026, 10, 14, 11, 30, 0, 0, time.UTC)

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func freshContact() contacts.Contact {
	return contacts.Contact{
		ID:           "c1",
		Phone:        "+1 (555) 010-0001",
		Mobile:       "+15550100002",
		Stage:        contacts.StageFresh,
		DialerStatus: contacts.DialerStatusActive,
	}
}

func resolve(t *testing.T, c contacts.Contact, o calls.Outcome, d calls.Disposition) (contacts.Patch, contacts.Contact) {
	t.Helper()
	p, err := NewResolver(DefaultPolicy()).Resolve(c, Call{Outcome: o, Disposition: d, At: now})
	require.NoError(t, err)
	return p, p.ApplyTo(c)
}

func TestResolve_BaselineForPlainOutcomes(t *testing.T) {
	for _, o := range []calls.Outcome{calls.OutcomeVoicemail, calls.OutcomeNoAnswer, calls.OutcomeAIScreener, calls.OutcomeGatekeeper, calls.OutcomeConnected} {
		t.Run(string(o), func(t *testing.T) {
			p, got := resolve(t, freshContact(), o, calls.DispositionNone)
			assert.Equal(t, 1, got.TotalCalls)
			assert.Equal(t, day(2026, 10, 19), *got.NextCallDate, "3 business days from wednesday")
			assert.Nil(t, got.CadenceDays)
			assert.Nil(t, p.Status)
			assert.Equal(t, contacts.DialerStatusActive, got.DialerStatus)
		})
	}
}

func TestResolve_UsesContactCadenceOverride(t *testing.T) {
	c := freshContact()
	c.CadenceDays = ptr(14)
	_, got := resolve(t, c, calls.OutcomeNoAnswer, calls.DispositionNone)
	assert.Equal(t, day(2026, 11, 3), *got.NextCallDate)
	assert.Equal(t, 14, *got.CadenceDays)
}

func TestResolve_DispositionTable(t *testing.T) {
	t.Run("meeting converts and goes weekly", func(t *testing.T) {
		_, got := resolve(t, freshContact(), calls.OutcomeConnected, calls.DispositionMeeting)
		assert.Equal(t, contacts.DialerStatusConverted, got.DialerStatus)
		assert.Equal(t, 5, *got.CadenceDays)
	})
	t.Run("interested follow up goes weekly", func(t *testing.T) {
		_, got := resolve(t, freshContact(), calls.OutcomeConnected, calls.DispositionInterestedFollowUp)
		assert.Equal(t, contacts.DialerStatusActive, got.DialerStatus)
		assert.Equal(t, 5, *got.CadenceDays)
	})
	t.Run("retired pauses indefinitely", func(t *testing.T) {
		_, got := resolve(t, freshContact(), calls.OutcomeConnected, calls.DispositionRetired)
		assert.Equal(t, contacts.DialerStatusPaused, got.DialerStatus)
		assert.Equal(t, calendar.Indefinite, *got.DialerPausedUntil)
		assert.Equal(t, contacts.ReasonRetired, got.DialerPauseReason)
		assert.Equal(t, now, *got.DialerPausedAt)
	})
	t.Run("hang up waits ten business days", func(t *testing.T) {
		_, got := resolve(t, freshContact(), calls.OutcomeConnected, calls.DispositionHangUp)
		assert.Equal(t, day(2026, 10, 28), *got.NextCallDate)
		assert.Equal(t, contacts.DialerStatusActive, got.DialerStatus)
	})
	t.Run("not interested pauses for twenty two business days", func(t *testing.T) {
		_, got := resolve(t, freshContact(), calls.OutcomeConnected, calls.DispositionNotInterested)
		want := day(2026, 11, 13)
		assert.Equal(t, contacts.DialerStatusPaused, got.DialerStatus)
		assert.Equal(t, want, *got.DialerPausedUntil)
		assert.Equal(t, want, *got.NextCallDate)
		assert.Equal(t, 1, got.TotalCalls)
	})
	t.Run("do not contact pauses indefinitely", func(t *testing.T) {
		_, got := resolve(t, freshContact(), calls.OutcomeConnected, calls.DispositionDoNotContact)
		assert.Equal(t, contacts.DialerStatusPaused, got.DialerStatus)
		assert.True(t, calendar.IsIndefinite(*got.DialerPausedUntil))
		assert.Equal(t, contacts.ReasonDoNotContact, got.DialerPauseReason)
	})
}

func TestResolve_WrongNumberClearsDialedField(t *testing.T) {
	r := NewResolver(DefaultPolicy())
	c := freshContact()

	p, err := r.Resolve(c, Call{Outcome: calls.OutcomeConnected, Disposition: calls.DispositionWrongNumber, PhoneUsed: "15550100001", At: now})
	require.NoError(t, err)
	assert.True(t, p.ClearPhone)
	assert.False(t, p.ClearMobile)
	assert.False(t, p.Unreachable)

	// Outcome form, no explicit number: the primary (mobile) is assumed.
	p, err = r.Resolve(c, Call{Outcome: calls.OutcomeWrongNumber, At: now})
	require.NoError(t, err)
	assert.True(t, p.ClearMobile)
	assert.False(t, p.Unreachable)
}

func TestResolve_WrongNumberOnLastNumberFlagsUnreachableWithoutPausing(t *testing.T) {
	c := freshContact()
	c.Mobile = ""
	p, got := resolve(t, c, calls.OutcomeWrongNumber, calls.DispositionNone)
	assert.True(t, p.ClearPhone)
	assert.True(t, p.Unreachable, "both numbers are gone")
	assert.Nil(t, p.Status, "surfaced to capacity review, not auto-paused")
	assert.False(t, got.HasNumber())
}

func TestResolve_ExhaustsAtCeiling(t *testing.T) {
	c := freshContact()
	c.TotalCalls = 9
	_, got := resolve(t, c, calls.OutcomeNoAnswer, calls.DispositionNone)
	assert.Equal(t, 10, got.TotalCalls)
	assert.Equal(t, contacts.DialerStatusExhausted, got.DialerStatus)
}

func TestResolve_ExhaustionOverridesPauseButNotConversion(t *testing.T) {
	c := freshContact()
	c.TotalCalls = 9
	_, got := resolve(t, c, calls.OutcomeConnected, calls.DispositionNotInterested)
	assert.Equal(t, contacts.DialerStatusExhausted, got.DialerStatus)
	assert.Nil(t, got.DialerPausedUntil)

	_, got = resolve(t, c, calls.OutcomeConnected, calls.DispositionMeeting)
	assert.Equal(t, contacts.DialerStatusConverted, got.DialerStatus)
}

func TestResolve_ConvertedIsAbsorbing(t *testing.T) {
	c := freshContact()
	c.DialerStatus = contacts.DialerStatusConverted
	c.TotalCalls = 12

	for _, d := range []calls.Disposition{calls.DispositionNotInterested, calls.DispositionDoNotContact, calls.DispositionRetired, calls.DispositionNone} {
		_, got := resolve(t, c, calls.OutcomeConnected, d)
		assert.Equal(t, contacts.DialerStatusConverted, got.DialerStatus, "disposition %q", d)
		assert.Equal(t, 13, got.TotalCalls)
	}
}

func TestResolve_IsPure(t *testing.T) {
	r := NewResolver(DefaultPolicy())
	c := freshContact()
	c.TotalCalls = 4
	c.CadenceDays = ptr(7)
	call := Call{Outcome: calls.OutcomeConnected, Disposition: calls.DispositionNotInterested, At: now}

	a, err := r.Resolve(c, call)
	require.NoError(t, err)
	b, err := r.Resolve(c, call)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, 4, c.TotalCalls, "input contact untouched")
	assert.Equal(t, 7, *c.CadenceDays)
}

func TestResolve_TotalCallsMonotonicOverSequence(t *testing.T) {
	r := NewResolver(DefaultPolicy())
	c := freshContact()
	seq := []calls.Disposition{calls.DispositionNone, calls.DispositionHangUp, calls.DispositionInterestedFollowUp, calls.DispositionWrongNumber, calls.DispositionNone}
	prev := c.TotalCalls
	for i, d := range seq {
		p, err := r.Resolve(c, Call{Outcome: calls.OutcomeConnected, Disposition: d, At: now.AddDate(0, 0, i)})
		require.NoError(t, err)
		c = p.ApplyTo(c)
		assert.Greater(t, c.TotalCalls, prev)
		prev = c.TotalCalls
	}
}

func TestResolve_RejectsBadInput(t *testing.T) {
	r := NewResolver(DefaultPolicy())
	c := freshContact()

	_, err := r.Resolve(c, Call{Outcome: calls.OutcomeSkipped, At: now})
	assert.True(t, apperr.IsValidation(err))
	_, err = r.Resolve(c, Call{Outcome: "busy", At: now})
	assert.True(t, apperr.IsValidation(err))
	_, err = r.Resolve(c, Call{Outcome: calls.OutcomeConnected, Disposition: "later", At: now})
	assert.True(t, apperr.IsValidation(err))
	_, err = r.Resolve(c, Call{Outcome: calls.OutcomeConnected})
	assert.True(t, apperr.IsValidation(err))
}

func TestThrottle(t *testing.T) {
	p, err := Throttle(10, now)
	require.NoError(t, err)
	require.NotNil(t, p.Schedule)
	assert.Equal(t, 10, *p.Schedule.CadenceDays)
	assert.Equal(t, day(2026, 10, 28), *p.Schedule.NextCallDate)
	assert.Nil(t, p.Status, "throttle is not a pause")

	_, err = Throttle(0, now)
	assert.Error(t, err)
}

func TestReplay_RebuildsStateFromLedger(t *testing.T) {
	r := NewResolver(DefaultPolicy())
	start := freshContact()
	evs := []calls.Event{
		{ContactID: "c1", Outcome: calls.OutcomeNoAnswer, CreatedAt: now.AddDate(0, 0, -7)},
		{ContactID: "c1", Outcome: calls.OutcomeSkipped, CreatedAt: now.AddDate(0, 0, -2)},
		{ContactID: "other", Outcome: calls.OutcomeConnected, CreatedAt: now.AddDate(0, 0, -1)},
		{ContactID: "c1", Outcome: calls.OutcomeConnected, Disposition: calls.DispositionNotInterested, CreatedAt: now},
	}

	got, err := r.Replay(start, evs, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalCalls)
	assert.Equal(t, contacts.DialerStatusPaused, got.DialerStatus)
	assert.Equal(t, day(2026, 11, 13), *got.DialerPausedUntil)

	again, err := r.Replay(start, evs, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestPolicyValidate(t *testing.T) {
	assert.NoError(t, DefaultPolicy().Validate())
	p := DefaultPolicy()
	p.MaxCallAttempts = 0
	assert.True(t, apperr.IsValidation(p.Validate()))
}
