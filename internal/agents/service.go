package agents

import (
	"context"
	"errors"
	"time"

	"salesops_backend/internal/events"
	"salesops_backend/platform/apperr"
	"salesops_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	opGet                = "agents.service.get"
	opChangeAvailability = "agents.service.change_availability"
	opSetPaused          = "agents.service.set_paused"
	opListAdmins         = "agents.service.list_admins"
)

// Store is the persistence the service needs.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (Agent, error)
	ListByRole(ctx context.Context, role Role) ([]Agent, error)
	SetPaused(ctx context.Context, id uuid.UUID, paused bool) (Agent, error)
	ChangeAvailability(ctx context.Context, id uuid.UUID, status Status, at time.Time) (Agent, Status, error)
}

// Service exposes agent lookups and self-service availability changes.
type Service struct {
	repo     Store
	eventBus events.Bus
	log      *logger.Logger
	now      func() time.Time
}

// NewService creates an agents service.
func NewService(repo Store, eventBus events.Bus, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{repo: repo, eventBus: eventBus, log: log, now: time.Now}
}

// Get loads an agent by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Agent, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Agent{}, mapRepoError(err, opGet)
	}
	return a, nil
}

// ListAdmins returns every admin; the notification fan-out addresses them all.
func (s *Service) ListAdmins(ctx context.Context) ([]Agent, error) {
	admins, err := s.repo.ListByRole(ctx, RoleAdmin)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list admins failed", err).WithOp(opListAdmins)
	}
	return admins, nil
}

// ChangeAvailability records a self-reported status change. The agent row and
// the status log entry are written together.
func (s *Service) ChangeAvailability(ctx context.Context, agentID uuid.UUID, status Status) (Agent, error) {
	if !IsKnownStatus(string(status)) {
		return Agent{}, apperr.Validation("unknown availability status").WithOp(opChangeAvailability)
	}

	updated, previous, err := s.repo.ChangeAvailability(ctx, agentID, status, s.now())
	if err != nil {
		return Agent{}, mapRepoError(err, opChangeAvailability)
	}

	s.log.WithContext(ctx).Transition("agent", agentID.String(), string(previous), string(status))
	if s.eventBus != nil {
		s.eventBus.Publish(ctx, events.AgentStatusChanged{
			BaseEvent: events.NewBaseEvent(),
			AgentID:   agentID,
			OldStatus: string(previous),
			NewStatus: string(status),
		})
	}
	return updated, nil
}

// SetPaused takes an agent out of (or back into) every allocation pool.
// Only admins may do this.
func (s *Service) SetPaused(ctx context.Context, actorIsAdmin bool, agentID uuid.UUID, paused bool) (Agent, error) {
	if !actorIsAdmin {
		return Agent{}, apperr.Forbidden("only admins can pause agents").WithOp(opSetPaused)
	}
	a, err := s.repo.SetPaused(ctx, agentID, paused)
	if err != nil {
		return Agent{}, mapRepoError(err, opSetPaused)
	}
	return a, nil
}

func mapRepoError(err error, op string) error {
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound("agent not found").WithOp(op)
	}
	return apperr.Wrap(apperr.KindInternal, "agent storage failed", err).WithOp(op)
}
