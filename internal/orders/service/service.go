// Package service implements the order lifecycle: creation from a lead,
// status changes with their branch side effects, notes and vendors.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"salesops_backend/internal/agents"
	"salesops_backend/internal/allocation"
	"salesops_backend/internal/events"
	leadtransport "salesops_backend/internal/leads/transport"
	"salesops_backend/internal/orders/domain"
	"salesops_backend/internal/orders/repository"
	"salesops_backend/internal/orders/transport"
	"salesops_backend/internal/shared/actor"
	"salesops_backend/internal/shared/notes"
	"salesops_backend/platform/apperr"
	"salesops_backend/platform/logger"
	"salesops_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	opCreate         = "orders.service.create"
	opGet            = "orders.service.get"
	opList           = "orders.service.list"
	opChangeStatus   = "orders.service.change_status"
	opSpawn          = "orders.service.spawn_replacement"
	opAddNote        = "orders.service.add_note"
	opAddVendor      = "orders.service.add_vendor"
	opUpdateVendor   = "orders.service.update_vendor"
	opReconcile      = "orders.service.reconcile"
	msgOrderNotFound = "order not found"
	msgNotYourOrder  = "order is assigned to other agents"

	roleProcurement = string(agents.RoleProcurement)

	// maxIdentifierAttempts bounds the replacement identifier search.
	maxIdentifierAttempts = 64
	defaultPageSize       = 20
)

// Repository defines the data access the order service needs.
type Repository interface {
	NextOrderNumber(ctx context.Context) (int64, error)
	Create(ctx context.Context, o domain.Order) (domain.Order, error)
	InsertReplacement(ctx context.Context, clone domain.Order, originalID uuid.UUID) (domain.Order, uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Order, error)
	List(ctx context.Context, p repository.ListParams) ([]domain.Order, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, expected, next domain.Status) (domain.Order, error)
	AppendNote(ctx context.Context, id uuid.UUID, note notes.Note) (domain.Order, error)
	AppendProcurementNote(ctx context.Context, id uuid.UUID, note notes.Note) (domain.Order, error)
	ReplaceVendors(ctx context.Context, id uuid.UUID, expectedUpdatedAt time.Time, vendors []domain.Vendor) (domain.Order, error)
	ListReplacedWithoutClone(ctx context.Context) ([]domain.Order, error)
}

// Allocator assigns work to the next agent of a pool.
type Allocator interface {
	Assign(ctx context.Context, pool allocation.Pool, exclude *uuid.UUID, save func(ctx context.Context, agent agents.Agent) error) (agents.Agent, error)
}

// LeadSource is the leads module as seen by order creation.
type LeadSource interface {
	Lookup(ctx context.Context, id uuid.UUID) (leadtransport.LeadResponse, error)
	MarkOrdered(ctx context.Context, id uuid.UUID) error
}

// AgentLookup resolves agent names for notes and notifications.
type AgentLookup interface {
	Get(ctx context.Context, id uuid.UUID) (agents.Agent, error)
}

// LitigationOpener opens (or returns the existing) litigation for an order.
type LitigationOpener interface {
	OpenForOrder(ctx context.Context, orderID uuid.UUID) (uuid.UUID, error)
}

// Service provides business logic for orders.
type Service struct {
	repo       Repository
	alloc      Allocator
	leads      LeadSource
	agents     AgentLookup
	litigation LitigationOpener
	policy     *domain.Policy
	eventBus   events.Bus
	log        *logger.Logger
	now        func() time.Time
}

// Deps groups the collaborators of New.
type Deps struct {
	Repo       Repository
	Allocator  Allocator
	Leads      LeadSource
	Agents     AgentLookup
	Litigation LitigationOpener
	Policy     *domain.Policy
	EventBus   events.Bus
	Log        *logger.Logger
}

// New creates an order service.
func New(d Deps) *Service {
	policy := d.Policy
	if policy == nil {
		policy = domain.Unrestricted()
	}
	log := d.Log
	if log == nil {
		log = logger.Discard()
	}
	return &Service{
		repo:       d.Repo,
		alloc:      d.Allocator,
		leads:      d.Leads,
		agents:     d.Agents,
		litigation: d.Litigation,
		policy:     policy,
		eventBus:   d.EventBus,
		log:        log,
		now:        time.Now,
	}
}

// SetLitigationOpener injects the litigation service (circular dependency avoidance).
func (s *Service) SetLitigationOpener(l LitigationOpener) {
	s.litigation = l
}

// Create converts a lead into an order. The salesperson is the lead owner;
// the customer-relations agent is allocated round-robin.
func (s *Service) Create(ctx context.Context, by actor.Actor, req transport.CreateOrderRequest) (transport.OrderResponse, error) {
	lead, err := s.leads.Lookup(ctx, req.LeadID)
	if err != nil {
		return transport.OrderResponse{}, err
	}
	if !by.CanAct(lead.AssignedAgentID) {
		return transport.OrderResponse{}, apperr.Forbidden("lead is assigned to another agent").WithOp(opCreate)
	}
	if lead.Status == leadtransport.LeadStatusOrdered {
		return transport.OrderResponse{}, apperr.Conflict("lead already has an order").WithOp(opCreate)
	}

	number, err := s.repo.NextOrderNumber(ctx)
	if err != nil {
		return transport.OrderResponse{}, apperr.Wrap(apperr.KindInternal, "allocate order number failed", err).WithOp(opCreate)
	}

	part := sanitize.Text(req.PartDescription)
	if part == "" {
		part = lead.PartDescription
	}
	order := domain.Order{
		ID:               uuid.New(),
		OrderNumber:      number,
		Identifier:       domain.Identifier(number),
		LeadID:           lead.ID,
		SalesAgentID:     lead.AssignedAgentID,
		Status:           domain.StatusLocatePending,
		CustomerName:     lead.CustomerName,
		CustomerPhone:    lead.CustomerPhone,
		CustomerEmail:    lead.CustomerEmail,
		ShippingAddress:  sanitize.Text(req.ShippingAddress),
		PartDescription:  part,
		SalePriceCents:   req.SalePriceCents,
		Vendors:          []domain.Vendor{},
		Notes:            []notes.Note{},
		ProcurementNotes: []notes.Note{},
	}

	var created domain.Order
	crAgent, err := s.alloc.Assign(ctx, allocation.PoolCustomerRelations, nil, func(ctx context.Context, agent agents.Agent) error {
		order.CustomerRelationsAgentID = agent.ID
		o, err := s.repo.Create(ctx, order)
		if err != nil {
			return mapRepoError(err, opCreate)
		}
		created = o
		return nil
	})
	if err != nil {
		return transport.OrderResponse{}, err
	}

	log := s.log.WithContext(ctx)
	if err := s.leads.MarkOrdered(ctx, lead.ID); err != nil {
		log.Warn("failed to mark lead ordered", "leadId", lead.ID, "orderId", created.ID, "error", err)
	}

	s.publish(ctx, events.OrderCreated{
		BaseEvent:         events.NewBaseEvent(),
		OrderParticipants: participants(created),
		OrderID:           created.ID,
		Identifier:        created.Identifier,
		CustomerName:      created.CustomerName,
		SalesName:         s.agentName(ctx, created.SalesAgentID),
		CRName:            crAgent.Name,
	})

	return ToOrderResponse(created), nil
}

// Get returns an order visible to the actor.
func (s *Service) Get(ctx context.Context, by actor.Actor, id uuid.UUID) (transport.OrderResponse, error) {
	o, err := s.loadFor(ctx, by, id, opGet)
	if err != nil {
		return transport.OrderResponse{}, err
	}
	return ToOrderResponse(o), nil
}

// Participants returns the agents attached to an order; other modules use it
// for permission checks and notification routing.
func (s *Service) Participants(ctx context.Context, id uuid.UUID) (events.OrderParticipants, string, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return events.OrderParticipants{}, "", mapRepoError(err, opGet)
	}
	return participants(o), o.Identifier, nil
}

// List returns the actor's orders. Admins and procurement see every order.
func (s *Service) List(ctx context.Context, by actor.Actor, req transport.ListOrdersRequest) (transport.OrderListResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}

	params := repository.ListParams{Limit: pageSize, Offset: (page - 1) * pageSize}
	if !seesAllOrders(by) {
		me := by.ID
		params.ParticipantID = &me
	}
	if req.Status != "" {
		status := req.Status
		params.Status = &status
	}

	items, total, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.OrderListResponse{}, apperr.Wrap(apperr.KindInternal, "list orders failed", err).WithOp(opList)
	}
	out := make([]transport.OrderResponse, 0, len(items))
	for _, o := range items {
		out = append(out, ToOrderResponse(o))
	}
	return transport.OrderListResponse{Items: out, Total: total, Page: page, PageSize: pageSize}, nil
}

// ChangeStatus applies a lifecycle transition. Requesting the current status
// is a no-op. Entering Replacement spawns the clone order; entering
// Litigation opens the order's litigation record.
func (s *Service) ChangeStatus(ctx context.Context, by actor.Actor, id uuid.UUID, target domain.Status) (transport.ChangeStatusResponse, error) {
	current, err := s.loadFor(ctx, by, id, opChangeStatus)
	if err != nil {
		return transport.ChangeStatusResponse{}, err
	}
	if current.Status == target {
		return transport.ChangeStatusResponse{Order: ToOrderResponse(current)}, nil
	}

	if err := s.policy.Check(current.Status, target); err != nil {
		var domainErr *apperr.Error
		if errors.As(err, &domainErr) {
			return transport.ChangeStatusResponse{}, domainErr.WithOp(opChangeStatus)
		}
		return transport.ChangeStatusResponse{}, err
	}

	updated, err := s.repo.UpdateStatus(ctx, id, current.Status, target)
	if err != nil {
		return transport.ChangeStatusResponse{}, mapRepoError(err, opChangeStatus)
	}

	log := s.log.WithContext(ctx)
	log.Transition("order", updated.ID.String(), string(current.Status), string(target))
	s.publish(ctx, events.OrderStatusChanged{
		BaseEvent:         events.NewBaseEvent(),
		OrderParticipants: participants(updated),
		OrderID:           updated.ID,
		Identifier:        updated.Identifier,
		OldStatus:         string(current.Status),
		NewStatus:         string(target),
		ActorID:           by.ID,
	})

	resp := transport.ChangeStatusResponse{Order: ToOrderResponse(updated)}

	switch target {
	case domain.StatusReplacement:
		clone, replacementID, err := s.spawnReplacement(ctx, updated)
		if err != nil {
			// The status write stands. Retrying could produce a second
			// clone, so the failure is surfaced to operators instead.
			log.Error("replacement spawn failed", "orderId", updated.ID, "identifier", updated.Identifier, "error", err)
			s.publish(ctx, events.ReplacementSpawnFailed{
				BaseEvent:  events.NewBaseEvent(),
				OrderID:    updated.ID,
				Identifier: updated.Identifier,
				Reason:     err.Error(),
			})
			resp.SpawnFailed = true
			break
		}
		s.publish(ctx, events.ReplacementSpawned{
			BaseEvent:         events.NewBaseEvent(),
			OrderParticipants: participants(clone),
			OriginalOrderID:   updated.ID,
			CloneOrderID:      clone.ID,
			ReplacementID:     replacementID,
			Identifier:        clone.Identifier,
		})
		resp.Replacement = &transport.ReplacementSummary{ReplacementID: replacementID, Clone: ToOrderResponse(clone)}

	case domain.StatusLitigation:
		if s.litigation == nil {
			break
		}
		litigationID, err := s.litigation.OpenForOrder(ctx, updated.ID)
		if err != nil {
			log.Error("open litigation failed", "orderId", updated.ID, "error", err)
			break
		}
		resp.LitigationID = &litigationID
	}

	return resp, nil
}

// spawnReplacement writes the clone under the first free identifier.
func (s *Service) spawnReplacement(ctx context.Context, original domain.Order) (domain.Order, uuid.UUID, error) {
	for attempt := 0; attempt < maxIdentifierAttempts; attempt++ {
		identifier := domain.ReplacementIdentifier(original.OrderNumber, attempt)
		clone := original.SpawnReplacement(identifier, s.now())

		created, replacementID, err := s.repo.InsertReplacement(ctx, clone, original.ID)
		if errors.Is(err, repository.ErrDuplicateIdentifier) {
			continue
		}
		if err != nil {
			return domain.Order{}, uuid.Nil, apperr.Wrap(apperr.KindInternal, "write replacement clone failed", err).WithOp(opSpawn)
		}
		return created, replacementID, nil
	}
	return domain.Order{}, uuid.Nil, apperr.DuplicateIdentifier(
		fmt.Sprintf("no free replacement identifier for order %s after %d attempts", original.Identifier, maxIdentifierAttempts),
	).WithOp(opSpawn)
}

// AddNote appends a general note.
func (s *Service) AddNote(ctx context.Context, by actor.Actor, id uuid.UUID, req transport.AddNoteRequest) (transport.OrderResponse, error) {
	return s.appendNote(ctx, by, id, req.Text, s.repo.AppendNote)
}

// AddProcurementNote appends a procurement note.
func (s *Service) AddProcurementNote(ctx context.Context, by actor.Actor, id uuid.UUID, req transport.AddNoteRequest) (transport.OrderResponse, error) {
	return s.appendNote(ctx, by, id, req.Text, s.repo.AppendProcurementNote)
}

func (s *Service) appendNote(ctx context.Context, by actor.Actor, id uuid.UUID, raw string, write func(context.Context, uuid.UUID, notes.Note) (domain.Order, error)) (transport.OrderResponse, error) {
	text := sanitize.Text(raw)
	if text == "" {
		return transport.OrderResponse{}, apperr.Validation("note text is required").WithOp(opAddNote)
	}
	if _, err := s.loadFor(ctx, by, id, opAddNote); err != nil {
		return transport.OrderResponse{}, err
	}

	note := notes.New(text, by.ID, s.agentName(ctx, by.ID), s.now())
	updated, err := write(ctx, id, note)
	if err != nil {
		return transport.OrderResponse{}, mapRepoError(err, opAddNote)
	}
	return ToOrderResponse(updated), nil
}

// AddVendor appends a vendor to the order.
func (s *Service) AddVendor(ctx context.Context, by actor.Actor, id uuid.UUID, req transport.VendorRequest) (transport.OrderResponse, error) {
	o, err := s.loadFor(ctx, by, id, opAddVendor)
	if err != nil {
		return transport.OrderResponse{}, err
	}

	now := s.now().UTC()
	vendor := domain.Vendor{ID: uuid.New(), CreatedAt: now}
	applyVendor(&vendor, req, now)

	vendors := append(domain.CloneVendors(o.Vendors), vendor)
	updated, err := s.repo.ReplaceVendors(ctx, id, o.UpdatedAt, vendors)
	if err != nil {
		return transport.OrderResponse{}, mapRepoError(err, opAddVendor)
	}
	return ToOrderResponse(updated), nil
}

// UpdateVendor overwrites one vendor entry.
func (s *Service) UpdateVendor(ctx context.Context, by actor.Actor, id, vendorID uuid.UUID, req transport.VendorRequest) (transport.OrderResponse, error) {
	o, err := s.loadFor(ctx, by, id, opUpdateVendor)
	if err != nil {
		return transport.OrderResponse{}, err
	}

	vendors := domain.CloneVendors(o.Vendors)
	found := false
	for i := range vendors {
		if vendors[i].ID == vendorID {
			applyVendor(&vendors[i], req, s.now().UTC())
			found = true
			break
		}
	}
	if !found {
		return transport.OrderResponse{}, apperr.NotFound("vendor not found").WithOp(opUpdateVendor)
	}

	updated, err := s.repo.ReplaceVendors(ctx, id, o.UpdatedAt, vendors)
	if err != nil {
		return transport.OrderResponse{}, mapRepoError(err, opUpdateVendor)
	}
	return ToOrderResponse(updated), nil
}

func applyVendor(v *domain.Vendor, req transport.VendorRequest, at time.Time) {
	v.Name = sanitize.Text(req.Name)
	v.Phone = strings.TrimSpace(req.Phone)
	v.Email = strings.ToLower(strings.TrimSpace(req.Email))
	v.ConfirmationNumber = strings.TrimSpace(req.ConfirmationNumber)
	v.CostCents = req.CostCents
	v.POStatus = domain.POStatus(req.POStatus)
	if v.POStatus == "" {
		v.POStatus = domain.POStatusPending
	}
	v.UpdatedAt = at
}

// Reconcile reports every order stuck in Replacement without a clone. Each
// finding is logged and published so admins are notified.
func (s *Service) Reconcile(ctx context.Context) ([]transport.Inconsistency, error) {
	stuck, err := s.repo.ListReplacedWithoutClone(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "reconciliation query failed", err).WithOp(opReconcile)
	}

	log := s.log.WithContext(ctx)
	findings := make([]transport.Inconsistency, 0, len(stuck))
	for _, o := range stuck {
		finding := apperr.Inconsistent(fmt.Sprintf("order %s is in Replacement but has no replacement order", o.Identifier)).WithOp(opReconcile)
		log.Warn("replacement inconsistency", "orderId", o.ID, "identifier", o.Identifier)
		s.publish(ctx, events.ReplacementInconsistencyDetected{
			BaseEvent:  events.NewBaseEvent(),
			OrderID:    o.ID,
			Identifier: o.Identifier,
		})
		findings = append(findings, transport.Inconsistency{
			OrderID:    o.ID,
			Identifier: o.Identifier,
			Code:       string(finding.Code),
			Message:    finding.Message,
		})
	}
	return findings, nil
}

func (s *Service) loadFor(ctx context.Context, by actor.Actor, id uuid.UUID, op string) (domain.Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Order{}, mapRepoError(err, op)
	}
	if !seesAllOrders(by) && !o.IsParticipant(by.ID) {
		return domain.Order{}, apperr.Forbidden(msgNotYourOrder).WithOp(op)
	}
	return o, nil
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

func (s *Service) publish(ctx context.Context, e events.Event) {
	if s.eventBus != nil {
		s.eventBus.Publish(ctx, e)
	}
}

func seesAllOrders(by actor.Actor) bool {
	return by.IsAdmin() || by.HasRole(roleProcurement)
}

func participants(o domain.Order) events.OrderParticipants {
	return events.OrderParticipants{
		SalesAgentID:             o.SalesAgentID,
		CustomerRelationsAgentID: o.CustomerRelationsAgentID,
	}
}

func mapRepoError(err error, op string) error {
	var domainErr *apperr.Error
	switch {
	case errors.As(err, &domainErr):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound(msgOrderNotFound).WithOp(op)
	case errors.Is(err, repository.ErrStaleState):
		return apperr.StaleState("order changed while you were editing it, reload and retry").WithOp(op)
	case errors.Is(err, repository.ErrDuplicateIdentifier):
		return apperr.DuplicateIdentifier("order identifier already exists").WithOp(op)
	default:
		return apperr.Wrap(apperr.KindInternal, "order storage failed", err).WithOp(op)
	}
}
