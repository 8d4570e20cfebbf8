package statuslog

import (
	"net/http"
	"strings"

	"salesops_backend/internal/agents"
	"salesops_backend/internal/shared/actor"
	"salesops_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const msgInvalidID = "invalid id"

// Handler serves duration reports.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.HandleMine)
	rg.GET("/:id", h.HandleAgent)
}

func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.HandleTeam)
}

func (h *Handler) HandleMine(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	h.respond(c, actor.From(identity), identity.UserID())
}

func (h *Handler) HandleAgent(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	h.respond(c, actor.From(identity), id)
}

func (h *Handler) respond(c *gin.Context, by actor.Actor, agentID uuid.UUID) {
	date, err := h.svc.ParseDate(c.Query("date"))
	if httpkit.HandleError(c, err) {
		return
	}
	report, err := h.svc.Durations(c.Request.Context(), by, agentID, date)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, report)
}

// HandleTeam serves GET /admin/status-durations?date=YYYY-MM-DD&roles=sales,customer_relations.
func (h *Handler) HandleTeam(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	date, err := h.svc.ParseDate(c.Query("date"))
	if httpkit.HandleError(c, err) {
		return
	}

	var roles []agents.Role
	for _, raw := range strings.Split(c.Query("roles"), ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if !agents.IsKnownRole(raw) {
			httpkit.Error(c, http.StatusBadRequest, "unknown role", raw)
			return
		}
		roles = append(roles, agents.Role(raw))
	}

	reports, err := h.svc.TeamDurations(c.Request.Context(), actor.From(identity), date, roles)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": reports})
}
