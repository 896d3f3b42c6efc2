package contacts

import (
	"context"
	"testing"
	"time"

	"outreach-crm/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestPatch_TotalCallsNeverDecreases(t *testing.T) {
	c := Contact{ID: "c1", TotalCalls: 5}
	got := Patch{TotalCalls: ptr(3)}.ApplyTo(c)
	assert.Equal(t, 5, got.TotalCalls)

	got = Patch{TotalCalls: ptr(6)}.ApplyTo(c)
	assert.Equal(t, 6, got.TotalCalls)
}

func TestPatch_ActiveClearsWholePauseGroup(t *testing.T) {
	until := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	at := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	c := Contact{
		ID:                "c1",
		DialerStatus:      DialerStatusPaused,
		DialerPausedUntil: &until,
		DialerPauseReason: "not_interested",
		DialerPausedAt:    &at,
	}

	got := Patch{Status: ptr(ActiveStatus())}.ApplyTo(c)
	assert.Equal(t, DialerStatusActive, got.DialerStatus)
	assert.Nil(t, got.DialerPausedUntil)
	assert.Nil(t, got.DialerPausedAt)
	assert.Empty(t, got.DialerPauseReason)
}

func TestPatch_LeavesUntouchedGroupsAlone(t *testing.T) {
	next := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	c := Contact{ID: "c1", Phone: "+1", Mobile: "+2", NextCallDate: &next, CadenceDays: ptr(7), DialerStatus: DialerStatusActive}

	got := Patch{ClearMobile: true}.ApplyTo(c)
	assert.Equal(t, "+1", got.Phone)
	assert.Empty(t, got.Mobile)
	assert.Equal(t, &next, got.NextCallDate)
	assert.Equal(t, 7, *got.CadenceDays)
	assert.Equal(t, DialerStatusActive, got.DialerStatus)
}

func TestPatch_DoesNotAliasInputPointers(t *testing.T) {
	next := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	p := Patch{Schedule: &Schedule{NextCallDate: &next}}
	got := p.ApplyTo(Contact{})
	next = next.AddDate(1, 0, 0)
	assert.Equal(t, 2026, got.NextCallDate.Year())
}

func TestPatch_IsEmpty(t *testing.T) {
	assert.True(t, Patch{}.IsEmpty())
	assert.True(t, Patch{Unreachable: true}.IsEmpty())
	assert.False(t, Patch{ClearPhone: true}.IsEmpty())
}

func TestMemoryRepo_ListFiltersAndKeepsOrder(t *testing.T) {
	r := NewMemoryRepo()
	r.Put(
		Contact{ID: "a", Stage: StageFresh, Phone: "+1"},
		Contact{ID: "b", Stage: StageQualified, CompanyID: "co1"},
		Contact{ID: "c", Stage: StageFresh, CompanyID: "co1", Mobile: "+3"},
	)
	ctx := context.Background()

	all, err := r.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(all))

	fresh, _ := r.List(ctx, ListFilter{Stages: []Stage{StageFresh}})
	assert.Equal(t, []string{"a", "c"}, ids(fresh))

	co, _ := r.List(ctx, ListFilter{CompanyID: "co1", RequirePhone: true})
	assert.Equal(t, []string{"c"}, ids(co))
}

func TestMemoryRepo_NotFound(t *testing.T) {
	r := NewMemoryRepo()
	_, err := r.Get(context.Background(), "missing")
	assert.True(t, apperr.IsNotFound(err))
	_, err = r.Patch(context.Background(), "missing", Patch{ClearPhone: true})
	assert.True(t, apperr.IsNotFound(err))
	_, err = r.SetCompanyPause(context.Background(), "missing", CompanyPause{})
	assert.True(t, apperr.IsNotFound(err))
}

func TestPausedCompanyIDs(t *testing.T) {
	today := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
	past := today.AddDate(0, 0, -1)
	future := today.AddDate(0, 1, 0)
	got := PausedCompanyIDs([]Company{
		{ID: "expired", DialerPausedUntil: &past},
		{ID: "paused", DialerPausedUntil: &future},
		{ID: "never"},
	}, today)
	assert.Equal(t, map[string]struct{}{"paused": {}}, got)
}

func TestCompanyPause_ClearResetsGroup(t *testing.T) {
	until := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	at := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	c := CompanyPause{PausedUntil: &until, Reason: "capacity", PausedAt: &at}.ApplyTo(Company{ID: "co"})
	require.NotNil(t, c.DialerPausedUntil)

	c = CompanyPause{}.ApplyTo(c)
	assert.Nil(t, c.DialerPausedUntil)
	assert.Nil(t, c.DialerPausedAt)
	assert.Empty(t, c.DialerPauseReason)
}

func ids(cs []Contact) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}
