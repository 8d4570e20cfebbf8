package litigation

import (
	apphttp "salesops_backend/internal/http"
	"salesops_backend/platform/logger"
	"salesops_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the litigation bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	service *Service
}

// NewModule creates and initializes the litigation module.
func NewModule(pool *pgxpool.Pool, orders OrderLookup, agentLookup AgentLookup, val *validator.Validator, log *logger.Logger) *Module {
	svc := NewService(NewRepository(pool), orders, agentLookup, log)
	return &Module{handler: NewHandler(svc, val), service: svc}
}

// Service exposes the service; the orders module opens litigations through it.
func (m *Module) Service() *Service {
	return m.service
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "litigation"
}

// RegisterRoutes mounts litigation routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/litigations")
	group.GET("", m.handler.HandleList)
	group.GET("/:id", m.handler.HandleGet)
	group.PUT("/:id", m.handler.HandleUpdate)
	group.POST("/:id/notes", m.handler.HandleAddNote)

	ctx.Protected.GET("/orders/:id/litigation", m.handler.HandleGetForOrder)
}

var _ apphttp.Module = (*Module)(nil)
