package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for pause events.
//
// It MUST be append-only.
type Repository interface {
	Append(ctx context.Context, e PauseEvent) error
	ListByEntity(ctx context.Context, t EntityType, id string) ([]PauseEvent, error)
}

// Service writes the pool pause audit trail.
//
// Callers should treat audit logging as best-effort.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

var (
	ErrInvalidEvent = errors.New("audit: invalid event")
	errNoRepo       = errors.New("audit: repository not configured")
)

func (s *Service) Append(ctx context.Context, e PauseEvent) error {
	if s.repo == nil {
		return errNoRepo
	}
	if !e.EntityType.Valid() || e.EntityID == "" {
		return ErrInvalidEvent
	}
	if e.Action != ActionPaused && e.Action != ActionUnpaused {
		return ErrInvalidEvent
	}
	if e.Action == ActionPaused && e.PausedUntil == nil {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// History returns the pause trail of one entity, oldest first.
func (s *Service) History(ctx context.Context, t EntityType, id string) ([]PauseEvent, error) {
	if s.repo == nil {
		return nil, errNoRepo
	}
	return s.repo.ListByEntity(ctx, t, id)
}
