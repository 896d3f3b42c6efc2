package reporting

import (
	"context"
	"errors"
	"time"

	"outreach-crm/internal/calendar"
	"outreach-crm/internal/calls"
)

// EventSource returns today's call events.
type EventSource interface {
	Today(ctx context.Context) ([]calls.Event, error)
}

// Service derives dashboard numbers from the append-only call ledger, so stats
// never drift from what the engine acted on.
type Service struct {
	events EventSource
	target int
	clock  func() time.Time
}

func NewService(events EventSource, dailyTarget int) *Service {
	return &Service{events: events, target: dailyTarget, clock: time.Now}
}

func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

// Daily returns today's stats, for one operator when operatorID is set.
func (s *Service) Daily(ctx context.Context, operatorID string) (DailyStats, error) {
	if s.events == nil {
		return DailyStats{}, errors.New("reporting: event source not configured")
	}
	evs, err := s.events.Today(ctx)
	if err != nil {
		return DailyStats{}, err
	}
	if operatorID != "" {
		filtered := evs[:0:0]
		for _, e := range evs {
			if e.OperatorID == operatorID {
				filtered = append(filtered, e)
			}
		}
		evs = filtered
	}
	out := Summarize(evs, s.target)
	out.Date = calendar.FormatDateForDB(calendar.Day(s.clock()))
	out.OperatorID = operatorID
	return out, nil
}

// Summarize is the pure aggregation behind Daily.
func Summarize(evs []calls.Event, target int) DailyStats {
	out := DailyStats{
		ByOutcome:     map[calls.Outcome]int{},
		ByDisposition: map[string]int{},
		DailyTarget:   target,
	}
	contacts := map[string]struct{}{}
	for _, e := range evs {
		if !e.CountsAsCall() {
			out.Skipped++
			continue
		}
		out.Calls++
		out.ByOutcome[e.Outcome]++
		if e.Disposition != calls.DispositionNone {
			out.ByDisposition[string(e.Disposition)]++
		}
		if e.Disposition == calls.DispositionMeeting {
			out.Meetings++
		}
		out.TalkSeconds += e.DurationSeconds
		contacts[e.ContactID] = struct{}{}

		at := e.CreatedAt
		if out.FirstCallAt == nil || at.Before(*out.FirstCallAt) {
			out.FirstCallAt = &at
		}
		if out.LastCallAt == nil || at.After(*out.LastCallAt) {
			out.LastCallAt = &at
		}
	}
	out.UniqueContacts = len(contacts)
	if out.Calls > 0 {
		out.AverageTalkSecs = out.TalkSeconds / out.Calls
		out.ConnectRate = float64(out.ByOutcome[calls.OutcomeConnected]) / float64(out.Calls)
		out.MeetingRate = float64(out.Meetings) / float64(out.Calls)
	}
	if target > 0 {
		out.TargetProgress = float64(out.Calls) / float64(target)
	}
	return out
}
