package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/nadirsultanli/OMS-sub000/internal/core/apperror"
	"github.com/nadirsultanli/OMS-sub000/internal/core/id"
	"github.com/nadirsultanli/OMS-sub000/internal/domain/trip"
	"github.com/nadirsultanli/OMS-sub000/internal/infrastructure/http/v1/dto"
)

// TripHandler handles vehicle loading, deliveries, and unload reconciliation.
type TripHandler struct {
	*BaseHandler
	service *trip.Service
}

// NewTripHandler creates a new trip handler.
func NewTripHandler(base *BaseHandler, service *trip.Service) *TripHandler {
	return &TripHandler{BaseHandler: base, service: service}
}

// Load handles POST /trips/:tripId/load.
func (h *TripHandler) Load(c *gin.Context) {
	tripID, ok := h.ParseIDParam(c, "tripId")
	if !ok {
		return
	}

	var req dto.TripLoadRequest
	if !h.BindJSON(c, &req) {
		return
	}

	vehicleID, err := id.Parse(req.VehicleID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid vehicleId"))
		return
	}
	depotID, err := id.Parse(req.DepotID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid depotId"))
		return
	}

	lines, err := req.ToLines()
	if err != nil {
		h.Error(c, err)
		return
	}

	doc, err := h.service.LoadVehicle(c.Request.Context(), tripID, vehicleID, depotID, lines)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, doc)
}

// Delivery handles POST /trips/:tripId/deliveries.
func (h *TripHandler) Delivery(c *gin.Context) {
	tripID, ok := h.ParseIDParam(c, "tripId")
	if !ok {
		return
	}

	var req dto.TripDeliveryRequest
	if !h.BindJSON(c, &req) {
		return
	}

	domainReq, err := req.ToRequest()
	if err != nil {
		h.Error(c, err)
		return
	}

	line, err := h.service.RecordDelivery(c.Request.Context(), tripID, domainReq)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, line)
}

// Unload handles POST /trips/:tripId/unload.
func (h *TripHandler) Unload(c *gin.Context) {
	tripID, ok := h.ParseIDParam(c, "tripId")
	if !ok {
		return
	}

	var req dto.TripUnloadRequest
	if !h.BindJSON(c, &req) {
		return
	}

	depotID, err := id.Parse(req.DepotID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid depotId"))
		return
	}

	lines, err := req.ToLines()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.service.UnloadVehicle(c.Request.Context(), tripID, depotID, lines)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, result)
}

// Inventory handles GET /trips/:tripId/vehicle-inventory.
func (h *TripHandler) Inventory(c *gin.Context) {
	tripID, ok := h.ParseIDParam(c, "tripId")
	if !ok {
		return
	}

	lines, err := h.service.GetVehicleInventory(c.Request.Context(), tripID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.TruckInventoryResponse{Items: lines, Count: len(lines)})
}

// RegisterRoutes registers trip routes.
func (h *TripHandler) RegisterRoutes(rg *gin.RouterGroup) {
	trips := rg.Group("/trips/:tripId")
	{
		trips.POST("/load", h.Load)
		trips.POST("/deliveries", h.Delivery)
		trips.POST("/unload", h.Unload)
		trips.GET("/vehicle-inventory", h.Inventory)
	}
}
