// Package leads provides the leads bounded context module.
package leads

import (
	"salesops_backend/internal/events"
	apphttp "salesops_backend/internal/http"
	"salesops_backend/internal/leads/handler"
	"salesops_backend/internal/leads/management"
	"salesops_backend/internal/leads/repository"
	"salesops_backend/internal/leads/transport"
	"salesops_backend/platform/logger"
	"salesops_backend/platform/phone"
	"salesops_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler    *handler.Handler
	management *management.Service
}

// NewModule creates and initializes the leads module with all its dependencies.
func NewModule(
	pool *pgxpool.Pool,
	alloc management.Allocator,
	agentLookup management.AgentLookup,
	eventBus events.Bus,
	phones *phone.Normalizer,
	val *validator.Validator,
	log *logger.Logger,
) (*Module, error) {
	if err := val.RegisterOneOf("leadstatus", transport.LeadStatuses); err != nil {
		return nil, err
	}

	repo := repository.New(pool)
	mgmt := management.New(repo, alloc, agentLookup, eventBus, phones, log)
	return &Module{handler: handler.New(mgmt, val), management: mgmt}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// ManagementService returns the management service for other modules.
func (m *Module) ManagementService() *management.Service {
	return m.management
}

// RegisterRoutes mounts lead routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/leads"))
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/leads"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
