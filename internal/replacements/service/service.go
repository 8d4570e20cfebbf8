// Package service drives the replacement sub-workflow.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"salesops_backend/internal/agents"
	"salesops_backend/internal/events"
	"salesops_backend/internal/replacements/domain"
	"salesops_backend/internal/replacements/repository"
	"salesops_backend/internal/replacements/transport"
	"salesops_backend/internal/shared/actor"
	"salesops_backend/internal/shared/notes"
	"salesops_backend/platform/apperr"
	"salesops_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	opGet            = "replacements.service.get"
	opList           = "replacements.service.list"
	opChangeStatus   = "replacements.service.change_status"
	opSubmitShipping = "replacements.service.submit_shipping"

	msgReplacementNotFound = "replacement not found"
	defaultPageSize        = 20
)

// Repository defines the data access the replacement service needs.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Replacement, error)
	List(ctx context.Context, p repository.ListParams) ([]domain.Replacement, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, expected, next domain.Status, note notes.Note) (domain.Replacement, error)
	SubmitShipping(ctx context.Context, id uuid.UUID, shipping domain.Shipping, note notes.Note) (domain.Replacement, error)
}

// OrderLookup resolves the agents attached to the replaced order.
type OrderLookup interface {
	Participants(ctx context.Context, orderID uuid.UUID) (events.OrderParticipants, string, error)
}

// AgentLookup resolves actor names for audit notes.
type AgentLookup interface {
	Get(ctx context.Context, id uuid.UUID) (agents.Agent, error)
}

// Service provides business logic for replacement orders.
type Service struct {
	repo     Repository
	orders   OrderLookup
	agents   AgentLookup
	eventBus events.Bus
	log      *logger.Logger
	now      func() time.Time
}

// New creates a replacement service.
func New(repo Repository, orders OrderLookup, agentLookup AgentLookup, eventBus events.Bus, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{repo: repo, orders: orders, agents: agentLookup, eventBus: eventBus, log: log, now: time.Now}
}

func (s *Service) Get(ctx context.Context, by actor.Actor, id uuid.UUID) (transport.ReplacementResponse, error) {
	r, _, err := s.loadFor(ctx, by, id, opGet)
	if err != nil {
		return transport.ReplacementResponse{}, err
	}
	return ToReplacementResponse(r), nil
}

// List returns replacements of orders the actor takes part in. Admins and
// procurement see all of them.
func (s *Service) List(ctx context.Context, by actor.Actor, req transport.ListReplacementsRequest) (transport.ReplacementListResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}

	params := repository.ListParams{Limit: pageSize, Offset: (page - 1) * pageSize}
	if !seesAll(by) {
		me := by.ID
		params.ParticipantID = &me
	}
	if req.OrderID != "" {
		orderID, err := uuid.Parse(req.OrderID)
		if err != nil {
			return transport.ReplacementListResponse{}, apperr.Validation("invalid order id").WithOp(opList)
		}
		params.OriginalOrderID = &orderID
	}
	if req.Status != "" {
		status := req.Status
		params.Status = &status
	}

	items, total, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.ReplacementListResponse{}, apperr.Wrap(apperr.KindInternal, "list replacements failed", err).WithOp(opList)
	}
	out := make([]transport.ReplacementResponse, 0, len(items))
	for _, r := range items {
		out = append(out, ToReplacementResponse(r))
	}
	return transport.ReplacementListResponse{Items: out, Total: total, Page: page, PageSize: pageSize}, nil
}

// SubmitShipping records shipping details, which is the only way into
// WaitingShipment.
func (s *Service) SubmitShipping(ctx context.Context, by actor.Actor, id uuid.UUID, req transport.SubmitShippingRequest) (transport.ReplacementResponse, error) {
	current, parts, err := s.loadFor(ctx, by, id, opSubmitShipping)
	if err != nil {
		return transport.ReplacementResponse{}, err
	}
	if err := domain.CheckShippingSubmission(current.Status); err != nil {
		return transport.ReplacementResponse{}, withOp(err, opSubmitShipping)
	}

	shipping := domain.Shipping{
		Method:      domain.ShippingMethod(strings.TrimSpace(req.Method)),
		Carrier:     strings.TrimSpace(req.Carrier),
		TrackingID:  strings.TrimSpace(req.TrackingID),
		AmountCents: req.AmountCents,
	}
	if err := shipping.Validate(); err != nil {
		return transport.ReplacementResponse{}, withOp(err, opSubmitShipping)
	}

	note := domain.TransitionNote(domain.StatusWaitingShipment, s.agentName(ctx, by.ID), s.now())
	updated, err := s.repo.SubmitShipping(ctx, id, shipping, note)
	if err != nil {
		return transport.ReplacementResponse{}, mapRepoError(err, opSubmitShipping)
	}

	s.transitioned(ctx, by, current, updated, parts)
	return ToReplacementResponse(updated), nil
}

// ChangeStatus moves a replacement forward. Every applied change carries a
// system note naming the actor, written together with the status.
func (s *Service) ChangeStatus(ctx context.Context, by actor.Actor, id uuid.UUID, target domain.Status) (transport.ReplacementResponse, error) {
	current, parts, err := s.loadFor(ctx, by, id, opChangeStatus)
	if err != nil {
		return transport.ReplacementResponse{}, err
	}
	if err := domain.CheckTransition(current.Status, target); err != nil {
		return transport.ReplacementResponse{}, withOp(err, opChangeStatus)
	}

	note := domain.TransitionNote(target, s.agentName(ctx, by.ID), s.now())
	updated, err := s.repo.UpdateStatus(ctx, id, current.Status, target, note)
	if err != nil {
		return transport.ReplacementResponse{}, mapRepoError(err, opChangeStatus)
	}

	s.transitioned(ctx, by, current, updated, parts)
	return ToReplacementResponse(updated), nil
}

func (s *Service) transitioned(ctx context.Context, by actor.Actor, before, after domain.Replacement, parts events.OrderParticipants) {
	s.log.WithContext(ctx).Transition("replacement", after.ID.String(), string(before.Status), string(after.Status))
	if s.eventBus == nil {
		return
	}
	s.eventBus.Publish(ctx, events.ReplacementStatusChanged{
		BaseEvent:         events.NewBaseEvent(),
		OrderParticipants: parts,
		ReplacementID:     after.ID,
		OriginalOrderID:   after.OriginalOrderID,
		Identifier:        after.Identifier,
		OldStatus:         string(before.Status),
		NewStatus:         string(after.Status),
		ActorID:           by.ID,
	})
}

func (s *Service) loadFor(ctx context.Context, by actor.Actor, id uuid.UUID, op string) (domain.Replacement, events.OrderParticipants, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Replacement{}, events.OrderParticipants{}, mapRepoError(err, op)
	}
	parts, _, err := s.orders.Participants(ctx, r.OriginalOrderID)
	if err != nil {
		return domain.Replacement{}, events.OrderParticipants{}, err
	}
	if !seesAll(by) && !by.CanAct(parts.SalesAgentID, parts.CustomerRelationsAgentID) {
		return domain.Replacement{}, events.OrderParticipants{}, apperr.Forbidden("replacement belongs to another agent's order").WithOp(op)
	}
	return r, parts, nil
}

func (s *Service) agentName(ctx context.Context, id uuid.UUID) string {
	if s.agents == nil {
		return ""
	}
	a, err := s.agents.Get(ctx, id)
	if err != nil {
		return ""
	}
	return a.Name
}

func seesAll(by actor.Actor) bool {
	return by.IsAdmin() || by.HasRole(string(agents.RoleProcurement))
}

func withOp(err error, op string) error {
	var domainErr *apperr.Error
	if errors.As(err, &domainErr) {
		return domainErr.WithOp(op)
	}
	return err
}

func mapRepoError(err error, op string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound(msgReplacementNotFound).WithOp(op)
	case errors.Is(err, repository.ErrStaleState):
		return apperr.StaleState("replacement changed while you were editing it, reload and retry").WithOp(op)
	default:
		return apperr.Wrap(apperr.KindInternal, "replacement storage failed", err).WithOp(op)
	}
}
