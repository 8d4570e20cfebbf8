package agents

import (
	"net/http"

	"salesops_backend/platform/httpkit"
	"salesops_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid id"
)

// ChangeStatusRequest is the body of PUT /agents/me/status.
type ChangeStatusRequest struct {
	Status string `json:"status" validate:"required,agentstatus"`
}

// SetPausedRequest is the body of PUT /admin/agents/:id/pause.
type SetPausedRequest struct {
	Paused *bool `json:"paused" validate:"required"`
}

// Handler handles HTTP requests for agents.
type Handler struct {
	svc *Service
	val *validator.Validator
}

// NewHandler creates an agents handler.
func NewHandler(svc *Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the self-service routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.Me)
	rg.PUT("/me/status", h.ChangeStatus)
}

// RegisterAdminRoutes registers the admin-only routes.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.PUT("/:id/pause", h.SetPaused)
}

func (h *Handler) Me(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	agent, err := h.svc.Get(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, agent)
}

func (h *Handler) ChangeStatus(c *gin.Context) {
	var req ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	agent, err := h.svc.ChangeAvailability(c.Request.Context(), identity.UserID(), Status(req.Status))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, agent)
}

func (h *Handler) SetPaused(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var req SetPausedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	agent, err := h.svc.SetPaused(c.Request.Context(), identity.IsAdmin(), id, *req.Paused)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, agent)
}
