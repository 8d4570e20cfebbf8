// Package replacements provides the replacement sub-workflow module.
package replacements

import (
	"salesops_backend/internal/events"
	apphttp "salesops_backend/internal/http"
	"salesops_backend/internal/replacements/domain"
	"salesops_backend/internal/replacements/handler"
	"salesops_backend/internal/replacements/repository"
	"salesops_backend/internal/replacements/service"
	"salesops_backend/platform/logger"
	"salesops_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the replacements bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates the replacements module.
func NewModule(
	pool *pgxpool.Pool,
	orders service.OrderLookup,
	agentLookup service.AgentLookup,
	eventBus events.Bus,
	val *validator.Validator,
	log *logger.Logger,
) (*Module, error) {
	if err := val.RegisterOneOf("replacementstatus", domain.Vocabulary()); err != nil {
		return nil, err
	}

	svc := service.New(repository.New(pool), orders, agentLookup, eventBus, log)
	return &Module{handler: handler.New(svc, val), service: svc}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "replacements"
}

// Service returns the replacement service.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts replacement routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/replacements"))
}

var _ apphttp.Module = (*Module)(nil)
