package agents

import (
	"salesops_backend/internal/events"
	apphttp "salesops_backend/internal/http"
	"salesops_backend/platform/logger"
	"salesops_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the agents bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	service *Service
	repo    *Repository
}

// NewModule wires the agents repository, service and handler.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, log *logger.Logger) (*Module, error) {
	statuses := make([]string, 0, len(Statuses))
	for _, st := range Statuses {
		statuses = append(statuses, string(st))
	}
	if err := val.RegisterOneOf("agentstatus", statuses); err != nil {
		return nil, err
	}

	repo := NewRepository(pool)
	svc := NewService(repo, eventBus, log)
	return &Module{handler: NewHandler(svc, val), service: svc, repo: repo}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "agents"
}

// Service returns the service layer for other modules.
func (m *Module) Service() *Service {
	return m.service
}

// Repository exposes the pool queries the allocator needs.
func (m *Module) Repository() *Repository {
	return m.repo
}

// RegisterRoutes mounts agent routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/agents"))
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/agents"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
