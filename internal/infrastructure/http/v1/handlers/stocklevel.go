package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/nadirsultanli/OMS-sub000/internal/core/types"
	"github.com/nadirsultanli/OMS-sub000/internal/domain/stockdoc"
	"github.com/nadirsultanli/OMS-sub000/internal/domain/stocklevel"
	"github.com/nadirsultanli/OMS-sub000/internal/infrastructure/http/v1/dto"
)

// StockLevelHandler handles stock level queries and direct adjustments.
// Direct mutations bypass the document ledger; they exist for integrations
// that own their own audit trail. Everything else should post documents.
type StockLevelHandler struct {
	*BaseHandler
	service *stocklevel.Service
	docs    *stockdoc.Service
}

// NewStockLevelHandler creates a new stock level handler.
func NewStockLevelHandler(base *BaseHandler, service *stocklevel.Service, docs *stockdoc.Service) *StockLevelHandler {
	return &StockLevelHandler{BaseHandler: base, service: service, docs: docs}
}

// List handles GET /stock/levels.
func (h *StockLevelHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	filter := stocklevel.Filter{
		Limit:  h.ParseIntQuery(c, "limit", 100),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}

	whID, ok := h.ParseIDQuery(c, "warehouseId")
	if !ok {
		return
	}
	filter.WarehouseID = whID

	variantID, ok := h.ParseIDQuery(c, "variantId")
	if !ok {
		return
	}
	filter.VariantID = variantID

	if gasType := c.Query("gasType"); gasType != "" {
		filter.GasType = &gasType
	}
	if status := c.Query("status"); status != "" {
		s := stocklevel.Status(status)
		filter.Status = &s
	}
	if minQty := c.Query("minQuantity"); minQty != "" {
		var q types.Quantity
		if err := q.UnmarshalJSON([]byte(minQty)); err == nil {
			filter.MinQuantity = &q
		}
	}
	filter.ExcludeZero = c.Query("excludeZero") == "true"

	levels, err := h.service.List(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.StockLevelListResponse{Items: levels, Count: len(levels)})
}

// GetAvailable handles GET /stock/levels/available.
func (h *StockLevelHandler) GetAvailable(c *gin.Context) {
	key, err := dto.StockKeyRequest{
		WarehouseID: c.Query("warehouseId"),
		VariantID:   c.Query("variantId"),
		GasType:     c.Query("gasType"),
		Status:      c.Query("status"),
	}.ToKey()
	if err != nil {
		h.Error(c, err)
		return
	}

	available, err := h.service.GetAvailable(c.Request.Context(), key)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.AvailableResponse{Available: available})
}

// Adjust handles POST /stock/levels/adjust. Positive quantity receives,
// negative issues.
func (h *StockLevelHandler) Adjust(c *gin.Context) {
	var req dto.AdjustStockRequest
	if !h.BindJSON(c, &req) {
		return
	}

	key, err := req.ToKey()
	if err != nil {
		h.Error(c, err)
		return
	}

	ctx := c.Request.Context()
	if req.Quantity.IsNegative() {
		err = h.service.Issue(ctx, key, req.Quantity.Abs(), stocklevel.IssueOptions{
			AllowNegative: req.AllowNegative,
			DocType:       "ADJUSTMENT",
		})
	} else {
		err = h.service.Receive(ctx, key, req.Quantity, req.UnitCost)
	}
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "stock adjusted")
}

// Reserve handles POST /stock/levels/reserve.
func (h *StockLevelHandler) Reserve(c *gin.Context) {
	var req dto.ReserveStockRequest
	if !h.BindJSON(c, &req) {
		return
	}

	key, err := req.ToKey()
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.Reserve(c.Request.Context(), key, req.Quantity); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "stock reserved")
}

// Release handles POST /stock/levels/release.
func (h *StockLevelHandler) Release(c *gin.Context) {
	var req dto.ReserveStockRequest
	if !h.BindJSON(c, &req) {
		return
	}

	key, err := req.ToKey()
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.Release(c.Request.Context(), key, req.Quantity); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "reservation released")
}

// TransferWarehouse handles POST /stock/levels/transfer-warehouse.
func (h *StockLevelHandler) TransferWarehouse(c *gin.Context) {
	var req dto.TransferWarehouseRequest
	if !h.BindJSON(c, &req) {
		return
	}

	fromKey, err := dto.StockKeyRequest{
		WarehouseID: req.FromWarehouseID,
		VariantID:   req.VariantID,
		GasType:     req.GasType,
		Status:      req.Status,
	}.ToKey()
	if err != nil {
		h.Error(c, err)
		return
	}
	toKey, err := dto.StockKeyRequest{
		WarehouseID: req.ToWarehouseID,
		VariantID:   req.VariantID,
		GasType:     req.GasType,
		Status:      req.Status,
	}.ToKey()
	if err != nil {
		h.Error(c, err)
		return
	}

	err = h.service.TransferBetweenWarehouses(
		c.Request.Context(),
		fromKey.WarehouseID, toKey.WarehouseID, fromKey.Item, fromKey.Status,
		req.Quantity,
		stocklevel.IssueOptions{AllowNegative: req.AllowNegative, DocType: "TRANSFER"},
	)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "stock transferred")
}

// TransferStatus handles POST /stock/levels/transfer-status.
func (h *StockLevelHandler) TransferStatus(c *gin.Context) {
	var req dto.TransferStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}

	key, err := dto.StockKeyRequest{
		WarehouseID: req.WarehouseID,
		VariantID:   req.VariantID,
		GasType:     req.GasType,
		Status:      req.FromStatus,
	}.ToKey()
	if err != nil {
		h.Error(c, err)
		return
	}

	err = h.service.TransferBetweenStatuses(
		c.Request.Context(),
		key.WarehouseID, key.Item, req.Quantity,
		stocklevel.Status(req.FromStatus), stocklevel.Status(req.ToStatus),
		stocklevel.IssueOptions{AllowNegative: req.AllowNegative, DocType: "TRANSFER"},
	)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "status transferred")
}

// Reconcile handles POST /stock/levels/reconcile. Any variance between the
// count and the system quantity is written as a posted adjustment document.
func (h *StockLevelHandler) Reconcile(c *gin.Context) {
	var req dto.ReconcileRequest
	if !h.BindJSON(c, &req) {
		return
	}

	key, err := req.ToKey()
	if err != nil {
		h.Error(c, err)
		return
	}

	doc, result, err := h.docs.ReconcileCount(c.Request.Context(), key, req.PhysicalCount)
	if err != nil {
		h.Error(c, err)
		return
	}

	resp := dto.ReconcileResponse{CountResult: result}
	if doc != nil {
		resp.AdjustmentDocID = &doc.ID
		resp.AdjustmentDocNo = doc.DocNo
	}
	h.OK(c, resp)
}

// LowStockAlerts handles GET /stock/alerts/low-stock.
func (h *StockLevelHandler) LowStockAlerts(c *gin.Context) {
	threshold := types.NewQuantityFromInt(int64(h.ParseIntQuery(c, "threshold", 10)))

	whID, ok := h.ParseIDQuery(c, "warehouseId")
	if !ok {
		return
	}

	levels, err := h.service.LowStockAlerts(c.Request.Context(), threshold, whID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.StockLevelListResponse{Items: levels, Count: len(levels)})
}

// NegativeStockAlerts handles GET /stock/alerts/negative.
func (h *StockLevelHandler) NegativeStockAlerts(c *gin.Context) {
	levels, err := h.service.NegativeStockAlerts(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.StockLevelListResponse{Items: levels, Count: len(levels)})
}

// RegisterRoutes registers stock level routes.
func (h *StockLevelHandler) RegisterRoutes(rg *gin.RouterGroup) {
	levels := rg.Group("/stock/levels")
	{
		levels.GET("", h.List)
		levels.GET("/available", h.GetAvailable)
		levels.POST("/adjust", h.Adjust)
		levels.POST("/reserve", h.Reserve)
		levels.POST("/release", h.Release)
		levels.POST("/transfer-warehouse", h.TransferWarehouse)
		levels.POST("/transfer-status", h.TransferStatus)
		levels.POST("/reconcile", h.Reconcile)
	}

	alerts := rg.Group("/stock/alerts")
	{
		alerts.GET("/low-stock", h.LowStockAlerts)
		alerts.GET("/negative", h.NegativeStockAlerts)
	}
}
