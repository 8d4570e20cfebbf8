// Package management handles lead intake, ownership and notes.
package management

import (
	"context"
	"errors"
	"strings"
	"time"

	"salesops_backend/internal/agents"
	"salesops_backend/internal/allocation"
	"salesops_backend/internal/events"
	"salesops_backend/internal/leads/repository"
	"salesops_backend/internal/leads/transport"
	"salesops_backend/internal/shared/actor"
	"salesops_backend/internal/shared/notes"
	"salesops_backend/platform/apperr"
	"salesops_backend/platform/logger"
	"salesops_backend/platform/phone"
	"salesops_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	opCreate       = "leads.management.create"
	opGet          = "leads.management.get"
	opList         = "leads.management.list"
	opUpdateStatus = "leads.management.update_status"
	opReassign     = "leads.management.reassign"
	opAddNote      = "leads.management.add_note"

	msgLeadNotFound = "lead not found"
	msgNotYourLead  = "lead is assigned to another agent"

	defaultPageSize = 20
)

// Repository defines the data access interface needed by the management service.
type Repository interface {
	repository.LeadReader
	repository.LeadWriter
}

// Allocator assigns work to the next agent of a pool.
type Allocator interface {
	Assign(ctx context.Context, pool allocation.Pool, exclude *uuid.UUID, save func(ctx context.Context, agent agents.Agent) error) (agents.Agent, error)
}

// AgentLookup resolves agents for explicit reassignment and note authorship.
type AgentLookup interface {
	Get(ctx context.Context, id uuid.UUID) (agents.Agent, error)
}

// Service handles lead management operations.
type Service struct {
	repo     Repository
	alloc    Allocator
	agents   AgentLookup
	eventBus events.Bus
	phones   *phone.Normalizer
	log      *logger.Logger
	now      func() time.Time
}

// New creates a new lead management service.
func New(repo Repository, alloc Allocator, agentLookup AgentLookup, eventBus events.Bus, phones *phone.Normalizer, log *logger.Logger) *Service {
	if phones == nil {
		phones = phone.NewNormalizer(phone.DefaultRegion)
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Service{
		repo:     repo,
		alloc:    alloc,
		agents:   agentLookup,
		eventBus: eventBus,
		phones:   phones,
		log:      log,
		now:      time.Now,
	}
}

// Create saves a new lead assigned round-robin to a salesperson.
func (s *Service) Create(ctx context.Context, by actor.Actor, req transport.CreateLeadRequest) (transport.LeadResponse, error) {
	params := repository.CreateLeadParams{
		CustomerName:    sanitize.Text(req.CustomerName),
		CustomerPhone:   s.phones.NormalizeE164(req.CustomerPhone),
		PartDescription: sanitize.Text(req.PartDescription),
	}
	if email := strings.ToLower(strings.TrimSpace(req.CustomerEmail)); email != "" {
		params.CustomerEmail = &email
	}
	if text := sanitize.Text(req.Note); text != "" {
		note, err := s.authoredNote(ctx, by, text)
		if err != nil {
			return transport.LeadResponse{}, err
		}
		params.Notes = []notes.Note{note}
	}

	var created repository.Lead
	_, err := s.alloc.Assign(ctx, allocation.PoolSales, nil, func(ctx context.Context, agent agents.Agent) error {
		params.AssignedAgentID = agent.ID
		lead, err := s.repo.Create(ctx, params)
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, "create lead failed", err).WithOp(opCreate)
		}
		created = lead
		return nil
	})
	if err != nil {
		return transport.LeadResponse{}, err
	}

	if s.eventBus != nil {
		s.eventBus.Publish(ctx, events.LeadCreated{
			BaseEvent:       events.NewBaseEvent(),
			LeadID:          created.ID,
			AssignedAgentID: created.AssignedAgentID,
			CustomerName:    created.CustomerName,
			PartDescription: created.PartDescription,
		})
	}

	return ToLeadResponse(created), nil
}

// Get returns a lead visible to the actor.
func (s *Service) Get(ctx context.Context, by actor.Actor, id uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.load(ctx, id, opGet)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	if !by.CanAct(lead.AssignedAgentID) {
		return transport.LeadResponse{}, apperr.Forbidden(msgNotYourLead).WithOp(opGet)
	}
	return ToLeadResponse(lead), nil
}

// Lookup returns a lead without an ownership check; other modules use it.
func (s *Service) Lookup(ctx context.Context, id uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.load(ctx, id, opGet)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return ToLeadResponse(lead), nil
}

// List returns the actor's own leads, or every lead for admins.
func (s *Service) List(ctx context.Context, by actor.Actor, req transport.ListLeadsRequest) (transport.LeadListResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}

	params := repository.ListParams{Limit: pageSize, Offset: (page - 1) * pageSize}
	if !by.IsAdmin() {
		owner := by.ID
		params.AssignedAgentID = &owner
	}
	if req.Status != "" {
		status := req.Status
		params.Status = &status
	}

	items, total, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.LeadListResponse{}, apperr.Wrap(apperr.KindInternal, "list leads failed", err).WithOp(opList)
	}

	out := make([]transport.LeadResponse, 0, len(items))
	for _, l := range items {
		out = append(out, ToLeadResponse(l))
	}
	return transport.LeadListResponse{Items: out, Total: total, Page: page, PageSize: pageSize}, nil
}

// UpdateStatus sets the lead outcome. Only the owner or an admin may do it.
func (s *Service) UpdateStatus(ctx context.Context, by actor.Actor, id uuid.UUID, status transport.LeadStatus) (transport.LeadResponse, error) {
	if !transport.IsKnownLeadStatus(string(status)) {
		return transport.LeadResponse{}, apperr.Validation("unknown lead status").WithOp(opUpdateStatus)
	}

	lead, err := s.load(ctx, id, opUpdateStatus)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	if !by.CanAct(lead.AssignedAgentID) {
		return transport.LeadResponse{}, apperr.Forbidden(msgNotYourLead).WithOp(opUpdateStatus)
	}

	updated, err := s.repo.UpdateStatus(ctx, id, string(status))
	if err != nil {
		return transport.LeadResponse{}, mapRepoError(err, opUpdateStatus)
	}
	s.log.WithContext(ctx).Transition("lead", id.String(), lead.Status, string(status))
	return ToLeadResponse(updated), nil
}

// MarkOrdered flags a lead converted into an order.
func (s *Service) MarkOrdered(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.UpdateStatus(ctx, id, string(transport.LeadStatusOrdered)); err != nil {
		return mapRepoError(err, opUpdateStatus)
	}
	return nil
}

// Reassign moves a lead to another salesperson. Admin only. Without an
// explicit target the next salesperson in rotation other than the current
// owner is chosen.
func (s *Service) Reassign(ctx context.Context, by actor.Actor, id uuid.UUID, req transport.ReassignLeadRequest) (transport.LeadResponse, error) {
	if !by.IsAdmin() {
		return transport.LeadResponse{}, apperr.Forbidden("only admins can reassign leads").WithOp(opReassign)
	}

	lead, err := s.load(ctx, id, opReassign)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	previous := lead.AssignedAgentID

	var updated repository.Lead
	if req.AgentID != nil {
		updated, err = s.reassignExplicit(ctx, lead, *req.AgentID)
	} else {
		exclude := previous
		_, err = s.alloc.Assign(ctx, allocation.PoolSales, &exclude, func(ctx context.Context, agent agents.Agent) error {
			l, err := s.repo.Reassign(ctx, id, previous, agent.ID)
			if err != nil {
				return mapRepoError(err, opReassign)
			}
			updated = l
			return nil
		})
	}
	if err != nil {
		return transport.LeadResponse{}, err
	}

	if updated.AssignedAgentID != previous && s.eventBus != nil {
		s.eventBus.Publish(ctx, events.LeadReassigned{
			BaseEvent:       events.NewBaseEvent(),
			LeadID:          updated.ID,
			PreviousAgentID: previous,
			NewAgentID:      updated.AssignedAgentID,
			AssignedByID:    by.ID,
			CustomerName:    updated.CustomerName,
		})
	}
	return ToLeadResponse(updated), nil
}

func (s *Service) reassignExplicit(ctx context.Context, lead repository.Lead, targetID uuid.UUID) (repository.Lead, error) {
	if targetID == lead.AssignedAgentID {
		return lead, nil
	}
	target, err := s.agents.Get(ctx, targetID)
	if err != nil {
		return repository.Lead{}, err
	}
	if target.Role != agents.RoleSales {
		return repository.Lead{}, apperr.Validation("leads can only be assigned to salespeople").WithOp(opReassign)
	}
	updated, err := s.repo.Reassign(ctx, lead.ID, lead.AssignedAgentID, targetID)
	if err != nil {
		return repository.Lead{}, mapRepoError(err, opReassign)
	}
	return updated, nil
}

// AddNote appends a note written by the actor.
func (s *Service) AddNote(ctx context.Context, by actor.Actor, id uuid.UUID, req transport.AddNoteRequest) (transport.LeadResponse, error) {
	text := sanitize.Text(req.Text)
	if text == "" {
		return transport.LeadResponse{}, apperr.Validation("note text is required").WithOp(opAddNote)
	}

	lead, err := s.load(ctx, id, opAddNote)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	if !by.CanAct(lead.AssignedAgentID) {
		return transport.LeadResponse{}, apperr.Forbidden(msgNotYourLead).WithOp(opAddNote)
	}

	note, err := s.authoredNote(ctx, by, text)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	updated, err := s.repo.AppendNote(ctx, id, note)
	if err != nil {
		return transport.LeadResponse{}, mapRepoError(err, opAddNote)
	}
	return ToLeadResponse(updated), nil
}

func (s *Service) authoredNote(ctx context.Context, by actor.Actor, text string) (notes.Note, error) {
	author, err := s.agents.Get(ctx, by.ID)
	if err != nil {
		return notes.Note{}, err
	}
	return notes.New(text, author.ID, author.Name, s.now()), nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID, op string) (repository.Lead, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return repository.Lead{}, mapRepoError(err, op)
	}
	return lead, nil
}

func mapRepoError(err error, op string) error {
	var domainErr *apperr.Error
	switch {
	case errors.As(err, &domainErr):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound(msgLeadNotFound).WithOp(op)
	case errors.Is(err, repository.ErrStaleState):
		return apperr.StaleState("lead was reassigned concurrently, reload and retry").WithOp(op)
	default:
		return apperr.Wrap(apperr.KindInternal, "lead storage failed", err).WithOp(op)
	}
}
