package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nadirsultanli/OMS-sub000/internal/core/tenant"
	"github.com/nadirsultanli/OMS-sub000/internal/domain/stockdoc"
	"github.com/nadirsultanli/OMS-sub000/internal/infrastructure/http/v1/dto"
)

// StockDocHandler handles stock document endpoints.
type StockDocHandler struct {
	*BaseHandler
	service *stockdoc.Service
}

// NewStockDocHandler creates a new stock document handler.
func NewStockDocHandler(base *BaseHandler, service *stockdoc.Service) *StockDocHandler {
	return &StockDocHandler{BaseHandler: base, service: service}
}

// Create handles POST /stock/docs.
func (h *StockDocHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateStockDocRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := req.ToEntity(tenant.MustID(ctx))
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.Create(ctx, doc); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, doc)
}

// Get handles GET /stock/docs/:id.
func (h *StockDocHandler) Get(c *gin.Context) {
	docID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	doc, err := h.service.GetByID(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, doc)
}

// Update handles PUT /stock/docs/:id. Only OPEN documents can change.
func (h *StockDocHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	docID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateStockDocRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := h.service.GetByID(ctx, docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := req.ApplyTo(doc); err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.Update(ctx, doc); err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, doc)
}

// Post handles POST /stock/docs/:id/post.
func (h *StockDocHandler) Post(c *gin.Context) {
	docID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	doc, err := h.service.Post(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, doc)
}

// Cancel handles POST /stock/docs/:id/cancel.
func (h *StockDocHandler) Cancel(c *gin.Context) {
	docID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	doc, err := h.service.Cancel(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, doc)
}

// List handles GET /stock/docs.
func (h *StockDocHandler) List(c *gin.Context) {
	filter := stockdoc.ListFilter{
		Limit:  h.ParseIntQuery(c, "limit", 50),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}

	if docType := c.Query("docType"); docType != "" {
		dt := stockdoc.DocType(docType)
		filter.DocType = &dt
	}
	if status := c.Query("status"); status != "" {
		s := stockdoc.DocStatus(status)
		filter.Status = &s
	}

	whID, ok := h.ParseIDQuery(c, "warehouseId")
	if !ok {
		return
	}
	filter.WarehouseID = whID

	refID, ok := h.ParseIDQuery(c, "refDocId")
	if !ok {
		return
	}
	filter.RefDocID = refID

	if dateFrom := c.Query("dateFrom"); dateFrom != "" {
		if parsed, err := time.Parse(time.RFC3339, dateFrom); err == nil {
			filter.DateFrom = &parsed
		}
	}
	if dateTo := c.Query("dateTo"); dateTo != "" {
		if parsed, err := time.Parse(time.RFC3339, dateTo); err == nil {
			filter.DateTo = &parsed
		}
	}

	docs, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.StockDocListResponse{
		Items:  docs,
		Count:  len(docs),
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// RegisterRoutes registers stock document routes.
func (h *StockDocHandler) RegisterRoutes(rg *gin.RouterGroup) {
	docs := rg.Group("/stock/docs")
	{
		docs.POST("", h.Create)
		docs.GET("", h.List)
		docs.GET("/:id", h.Get)
		docs.PUT("/:id", h.Update)
		docs.POST("/:id/post", h.Post)
		docs.POST("/:id/cancel", h.Cancel)
	}
}
