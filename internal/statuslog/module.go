package statuslog

import (
	"time"

	apphttp "salesops_backend/internal/http"
	"salesops_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module exposes duration reports over HTTP.
type Module struct {
	handler *Handler
	service *Service
}

func NewModule(pool *pgxpool.Pool, agentLister AgentLister, loc *time.Location, log *logger.Logger) *Module {
	svc := NewService(NewRepository(pool), agentLister, loc, log)
	return &Module{handler: NewHandler(svc), service: svc}
}

func (m *Module) Name() string {
	return "statuslog"
}

func (m *Module) Service() *Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/status-durations"))
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/status-durations"))
}

var _ apphttp.Module = (*Module)(nil)
