package eligibility

import (
	"context"
	"testing"
	"time"

	"outreach-crm/internal/calls"
	"outreach-crm/internal/contacts"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceBuild_ReadsLiveState(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	repo := contacts.NewMemoryRepo()
	until := now.AddDate(0, 1, 0)
	repo.PutCompany(
		contacts.Company{ID: "co-paused", DialerPausedUntil: &until},
		contacts.Company{ID: "co-open", Timezone: "America/Chicago"},
	)
	a := fresh("a")
	a.CompanyID = "co-open"
	b := fresh("b")
	b.CompanyID = "co-paused"
	c := fresh("c")
	repo.Put(a, b, c)

	ledger := calls.NewMemoryLedger()
	cs := calls.NewService(ledger).WithClock(clock)
	svc := NewService(repo, repo, cs, NewFilter(10)).WithClock(clock)

	q, err := svc.Build(ctx, Config{EnableCadence: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, ids(q))

	_, err = cs.Record(ctx, calls.Event{ContactID: "c", Outcome: calls.OutcomeNoAnswer})
	require.NoError(t, err)

	q, err = svc.Build(ctx, Config{EnableCadence: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(q))

	due, err := svc.DueToday(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(due))
}

func TestServiceBuild_SkipDoesNotCountAsCalled(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	repo := contacts.NewMemoryRepo()
	repo.Put(fresh("a"))
	cs := calls.NewService(calls.NewMemoryLedger()).WithClock(clock)
	svc := NewService(repo, repo, cs, NewFilter(10)).WithClock(clock)

	_, err := cs.Record(ctx, calls.Event{ContactID: "a", Outcome: calls.OutcomeSkipped})
	require.NoError(t, err)

	q, err := svc.Build(ctx, Config{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(q))
}

func TestServiceBuild_RejectsInvalidConfig(t *testing.T) {
	repo := contacts.NewMemoryRepo()
	svc := NewService(repo, repo, calls.NewService(calls.NewMemoryLedger()), NewFilter(10))
	_, err := svc.Build(context.Background(), Config{Scope: ScopeStages})
	assert.Error(t, err)
}
