package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/nadirsultanli/OMS-sub000/internal/core/apperror"
	"github.com/nadirsultanli/OMS-sub000/internal/core/id"
	"github.com/nadirsultanli/OMS-sub000/internal/domain/reservation"
	"github.com/nadirsultanli/OMS-sub000/internal/infrastructure/http/v1/dto"
)

// ReservationHandler handles order reservation endpoints.
type ReservationHandler struct {
	*BaseHandler
	service *reservation.Service
}

// NewReservationHandler creates a new reservation handler.
func NewReservationHandler(base *BaseHandler, service *reservation.Service) *ReservationHandler {
	return &ReservationHandler{BaseHandler: base, service: service}
}

// Reserve handles POST /orders/:orderId/reserve.
func (h *ReservationHandler) Reserve(c *gin.Context) {
	orderID, ok := h.ParseIDParam(c, "orderId")
	if !ok {
		return
	}

	var req dto.ReserveRequest
	if !h.BindJSON(c, &req) {
		return
	}

	warehouseID, err := id.Parse(req.WarehouseID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid warehouseId"))
		return
	}

	lines, err := req.ToLines()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.service.ReserveForOrder(c.Request.Context(), orderID, warehouseID, lines)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.ReserveResponse{
		Items:     result.Reservations,
		Count:     len(result.Reservations),
		Remaining: result.Remaining,
	})
}

// Release handles POST /orders/:orderId/release. Idempotent: releasing an
// order with no active reservations reports zero.
func (h *ReservationHandler) Release(c *gin.Context) {
	orderID, ok := h.ParseIDParam(c, "orderId")
	if !ok {
		return
	}

	count, err := h.service.ReleaseForOrder(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.CountResponse{Count: count})
}

// Fulfill handles POST /orders/:orderId/fulfill. Converts active reservations
// into issued stock.
func (h *ReservationHandler) Fulfill(c *gin.Context) {
	orderID, ok := h.ParseIDParam(c, "orderId")
	if !ok {
		return
	}

	count, err := h.service.FulfillForOrder(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.CountResponse{Count: count})
}

// List handles GET /orders/:orderId/reservations.
func (h *ReservationHandler) List(c *gin.Context) {
	orderID, ok := h.ParseIDParam(c, "orderId")
	if !ok {
		return
	}

	reservations, err := h.service.GetByOrder(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ReservationListResponse{Items: reservations, Count: len(reservations)})
}

// RegisterRoutes registers reservation routes.
func (h *ReservationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/orders/:orderId")
	{
		orders.POST("/reserve", h.Reserve)
		orders.POST("/release", h.Release)
		orders.POST("/fulfill", h.Fulfill)
		orders.GET("/reservations", h.List)
	}
}
