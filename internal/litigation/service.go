package litigation

import (
	"context"
	"errors"
	"time"

	"salesops_backend/internal/agents"
	"salesops_backend/internal/events"
	"salesops_backend/internal/shared/actor"
	"salesops_backend/internal/shared/notes"
	"salesops_backend/platform/apperr"
	"salesops_backend/platform/logger"
	"salesops_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	opOpen    = "litigation.service.open"
	opGet     = "litigation.service.get"
	opList    = "litigation.service.list"
	opUpdate  = "litigation.service.update"
	opAddNote = "litigation.service.add_note"
)

// Store is the persistence the service needs.
type Store interface {
	OpenForOrder(ctx context.Context, orderID uuid.UUID) (Litigation, error)
	GetByID(ctx context.Context, id uuid.UUID) (Litigation, error)
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (Litigation, error)
	List(ctx context.Context, participantID *uuid.UUID) ([]Litigation, error)
	Update(ctx context.Context, id uuid.UUID, expectedUpdatedAt time.Time, details Details, archived Snapshot) (Litigation, error)
	AppendNote(ctx context.Context, id uuid.UUID, note notes.Note) (Litigation, error)
}

// OrderLookup resolves the agents attached to an order.
type OrderLookup interface {
	Participants(ctx context.Context, orderID uuid.UUID) (events.OrderParticipants, string, error)
}

// AgentLookup resolves note authors.
type AgentLookup interface {
	Get(ctx context.Context, id uuid.UUID) (agents.Agent, error)
}

type Service struct {
	store  Store
	orders OrderLookup
	agents AgentLookup
	log    *logger.Logger
	now    func() time.Time
}

func NewService(store Store, orders OrderLookup, agentLookup AgentLookup, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{store: store, orders: orders, agents: agentLookup, log: log, now: time.Now}
}

// OpenForOrder opens the order's litigation. Calling it again for the same
// order returns the existing record.
func (s *Service) OpenForOrder(ctx context.Context, orderID uuid.UUID) (uuid.UUID, error) {
	l, err := s.store.OpenForOrder(ctx, orderID)
	if err != nil {
		return uuid.Nil, mapStoreError(err, opOpen)
	}
	s.log.WithContext(ctx).Info("litigation opened", "litigationId", l.ID, "orderId", orderID)
	return l.ID, nil
}

func (s *Service) Get(ctx context.Context, by actor.Actor, id uuid.UUID) (Response, error) {
	l, err := s.loadFor(ctx, by, opGet, func() (Litigation, error) { return s.store.GetByID(ctx, id) })
	if err != nil {
		return Response{}, err
	}
	return toResponse(l), nil
}

func (s *Service) GetForOrder(ctx context.Context, by actor.Actor, orderID uuid.UUID) (Response, error) {
	l, err := s.loadFor(ctx, by, opGet, func() (Litigation, error) { return s.store.GetByOrderID(ctx, orderID) })
	if err != nil {
		return Response{}, err
	}
	return toResponse(l), nil
}

func (s *Service) List(ctx context.Context, by actor.Actor) ([]Response, error) {
	var participant *uuid.UUID
	if !seesAll(by) {
		me := by.ID
		participant = &me
	}
	items, err := s.store.List(ctx, participant)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list litigations failed", err).WithOp(opList)
	}
	out := make([]Response, 0, len(items))
	for _, l := range items {
		out = append(out, toResponse(l))
	}
	return out, nil
}

// Update writes new details and archives the previous ones. A request that
// changes nothing is a no-op.
func (s *Service) Update(ctx context.Context, by actor.Actor, id uuid.UUID, req UpdateRequest) (Response, error) {
	current, err := s.loadFor(ctx, by, opUpdate, func() (Litigation, error) { return s.store.GetByID(ctx, id) })
	if err != nil {
		return Response{}, err
	}

	next := req.Apply(current.Details)
	next.CustomerComplaint = sanitize.Text(next.CustomerComplaint)
	next.Diagnosis = sanitize.Text(next.Diagnosis)
	next.VendorResponse = sanitize.Text(next.VendorResponse)
	next.Resolution = sanitize.Text(next.Resolution)
	if next.RefundCents < 0 {
		return Response{}, apperr.Validation("refund cannot be negative").WithOp(opUpdate)
	}
	if next == current.Details {
		return toResponse(current), nil
	}

	updated, err := s.store.Update(ctx, id, current.UpdatedAt, next, current.Archive(by.ID, s.now()))
	if err != nil {
		return Response{}, mapStoreError(err, opUpdate)
	}
	return toResponse(updated), nil
}

func (s *Service) AddNote(ctx context.Context, by actor.Actor, id uuid.UUID, req AddNoteRequest) (Response, error) {
	text := sanitize.Text(req.Text)
	if text == "" {
		return Response{}, apperr.Validation("note text is required").WithOp(opAddNote)
	}
	if _, err := s.loadFor(ctx, by, opAddNote, func() (Litigation, error) { return s.store.GetByID(ctx, id) }); err != nil {
		return Response{}, err
	}

	name := ""
	if s.agents != nil {
		if a, err := s.agents.Get(ctx, by.ID); err == nil {
			name = a.Name
		}
	}
	updated, err := s.store.AppendNote(ctx, id, notes.New(text, by.ID, name, s.now()))
	if err != nil {
		return Response{}, mapStoreError(err, opAddNote)
	}
	return toResponse(updated), nil
}

func (s *Service) loadFor(ctx context.Context, by actor.Actor, op string, load func() (Litigation, error)) (Litigation, error) {
	l, err := load()
	if err != nil {
		return Litigation{}, mapStoreError(err, op)
	}
	if seesAll(by) {
		return l, nil
	}
	parts, _, err := s.orders.Participants(ctx, l.OrderID)
	if err != nil {
		return Litigation{}, err
	}
	if !by.CanAct(parts.SalesAgentID, parts.CustomerRelationsAgentID) {
		return Litigation{}, apperr.Forbidden("litigation belongs to another agent's order").WithOp(op)
	}
	return l, nil
}

func seesAll(by actor.Actor) bool {
	return by.IsAdmin() || by.HasRole(string(agents.RoleProcurement))
}

func mapStoreError(err error, op string) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return apperr.NotFound("litigation not found").WithOp(op)
	case errors.Is(err, ErrStaleState):
		return apperr.StaleState("litigation changed while you were editing it, reload and retry").WithOp(op)
	default:
		return apperr.Wrap(apperr.KindInternal, "litigation storage failed", err).WithOp(op)
	}
}
