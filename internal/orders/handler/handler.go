package handler

import (
	"context"
	"net/http"

	"salesops_backend/internal/orders/domain"
	"salesops_backend/internal/orders/service"
	"salesops_backend/internal/orders/transport"
	"salesops_backend/internal/shared/actor"
	"salesops_backend/platform/httpkit"
	"salesops_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidOrderID   = "invalid order id"
	msgInvalidVendorID  = "invalid vendor id"
)

// Handler handles HTTP requests for orders.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new orders handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers order routes for authenticated agents.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.GetByID)
	rg.PUT("/:id/status", h.ChangeStatus)
	rg.POST("/:id/notes", h.AddNote)
	rg.POST("/:id/procurement-notes", h.AddProcurementNote)
	rg.POST("/:id/vendors", h.AddVendor)
	rg.PUT("/:id/vendors/:vendorId", h.UpdateVendor)
}

// RegisterAdminRoutes registers admin-only order routes.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/inconsistencies", h.Inconsistencies)
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	order, err := h.svc.Create(c.Request.Context(), actor.From(identity), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, order)
}

func (h *Handler) List(c *gin.Context) {
	var req transport.ListOrdersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
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

	result, err := h.svc.List(c.Request.Context(), actor.From(identity), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id", msgInvalidOrderID)
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	order, err := h.svc.Get(c.Request.Context(), actor.From(identity), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, order)
}

func (h *Handler) ChangeStatus(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id", msgInvalidOrderID)
	if !ok {
		return
	}
	var req transport.ChangeStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.ChangeStatus(c.Request.Context(), actor.From(identity), id, domain.Status(req.Status))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) AddNote(c *gin.Context) {
	h.addNote(c, h.svc.AddNote)
}

func (h *Handler) AddProcurementNote(c *gin.Context) {
	h.addNote(c, h.svc.AddProcurementNote)
}

func (h *Handler) addNote(c *gin.Context, write func(context.Context, actor.Actor, uuid.UUID, transport.AddNoteRequest) (transport.OrderResponse, error)) {
	id, ok := parseUUIDParam(c, "id", msgInvalidOrderID)
	if !ok {
		return
	}
	var req transport.AddNoteRequest
	if !h.bindJSON(c, &req) {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	order, err := write(c.Request.Context(), actor.From(identity), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, order)
}

func (h *Handler) AddVendor(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id", msgInvalidOrderID)
	if !ok {
		return
	}
	var req transport.VendorRequest
	if !h.bindJSON(c, &req) {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	order, err := h.svc.AddVendor(c.Request.Context(), actor.From(identity), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, order)
}

func (h *Handler) UpdateVendor(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id", msgInvalidOrderID)
	if !ok {
		return
	}
	vendorID, ok := parseUUIDParam(c, "vendorId", msgInvalidVendorID)
	if !ok {
		return
	}
	var req transport.VendorRequest
	if !h.bindJSON(c, &req) {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	order, err := h.svc.UpdateVendor(c.Request.Context(), actor.From(identity), id, vendorID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, order)
}

// Inconsistencies runs the replacement reconciliation sweep on demand.
func (h *Handler) Inconsistencies(c *gin.Context) {
	findings, err := h.svc.Reconcile(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": findings})
}

func (h *Handler) bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return false
	}
	return true
}

func parseUUIDParam(c *gin.Context, name, msg string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msg, nil)
		return uuid.Nil, false
	}
	return id, true
}
