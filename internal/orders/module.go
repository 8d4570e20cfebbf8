// Package orders provides the orders bounded context module.
package orders

import (
	"salesops_backend/internal/events"
	apphttp "salesops_backend/internal/http"
	"salesops_backend/internal/orders/domain"
	"salesops_backend/internal/orders/handler"
	"salesops_backend/internal/orders/repository"
	"salesops_backend/internal/orders/service"
	"salesops_backend/platform/logger"
	"salesops_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the orders bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates the orders module. policy may be nil, which leaves the
// pipeline unrestricted.
func NewModule(
	pool *pgxpool.Pool,
	alloc service.Allocator,
	leads service.LeadSource,
	agentLookup service.AgentLookup,
	policy *domain.Policy,
	eventBus events.Bus,
	val *validator.Validator,
	log *logger.Logger,
) (*Module, error) {
	if err := val.RegisterOneOf("orderstatus", domain.Vocabulary()); err != nil {
		return nil, err
	}
	if err := val.RegisterOneOf("postatus", domain.POStatuses); err != nil {
		return nil, err
	}

	svc := service.New(service.Deps{
		Repo:      repository.New(pool),
		Allocator: alloc,
		Leads:     leads,
		Agents:    agentLookup,
		Policy:    policy,
		EventBus:  eventBus,
		Log:       log,
	})
	return &Module{handler: handler.New(svc, val), service: svc}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "orders"
}

// Service returns the order service for other modules.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts order routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/orders"))
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/orders"))
}

var _ apphttp.Module = (*Module)(nil)
