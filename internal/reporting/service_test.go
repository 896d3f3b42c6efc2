package reporting

import (
	"context"
	"testing"
	"time"

	"outreach-crm/internal/calls"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDaily_AggregatesTodayOnly(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 14, 16, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	ledger := calls.NewMemoryLedger()
	cs := calls.NewService(ledger).WithClock(clock)

	add := func(contactID, operator string, o calls.Outcome, d calls.Disposition, secs int, at time.Time) {
		require.NoError(t, ledger.Append(ctx, calls.Event{
			ID: contactID + at.String(), ContactID: contactID, OperatorID: operator,
			Outcome: o, Disposition: d, DurationSeconds: secs, CreatedAt: at,
		}))
	}
	add("old", "op-1", calls.OutcomeConnected, calls.DispositionMeeting, 300, now.AddDate(0, 0, -1))
	add("c1", "op-1", calls.OutcomeConnected, calls.DispositionMeeting, 240, now.Add(-3*time.Hour))
	add("c2", "op-1", calls.OutcomeVoicemail, "", 30, now.Add(-2*time.Hour))
	add("c3", "op-1", calls.OutcomeSkipped, "", 0, now.Add(-90*time.Minute))
	add("c4", "op-2", calls.OutcomeConnected, calls.DispositionNotInterested, 90, now.Add(-time.Hour))

	svc := NewService(cs, 600).WithClock(clock)

	all, err := svc.Daily(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "2026-10-14", all.Date)
	assert.Equal(t, 3, all.Calls)
	assert.Equal(t, 1, all.Skipped)
	assert.Equal(t, 3, all.UniqueContacts)
	assert.Equal(t, 2, all.ByOutcome[calls.OutcomeConnected])
	assert.Equal(t, 1, all.ByDisposition["not_interested"])
	assert.Equal(t, 1, all.Meetings)
	assert.Equal(t, 360, all.TalkSeconds)
	assert.Equal(t, 120, all.AverageTalkSecs)
	assert.InDelta(t, 2.0/3.0, all.ConnectRate, 1e-9)
	assert.InDelta(t, 3.0/600.0, all.TargetProgress, 1e-9)
	require.NotNil(t, all.FirstCallAt)
	assert.Equal(t, now.Add(-3*time.Hour), *all.FirstCallAt)

	mine, err := svc.Daily(ctx, "op-2")
	require.NoError(t, err)
	assert.Equal(t, 1, mine.Calls)
	assert.Equal(t, 0, mine.Meetings)
}

func TestSummarize_Empty(t *testing.T) {
	st := Summarize(nil, 0)
	assert.Equal(t, 0, st.Calls)
	assert.Zero(t, st.ConnectRate)
	assert.Zero(t, st.TargetProgress)
	assert.Nil(t, st.FirstCallAt)
}
