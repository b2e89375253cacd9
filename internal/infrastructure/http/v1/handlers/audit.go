package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/nadirsultanli/OMS-sub000/internal/infrastructure/storage/postgres"
)

// AuditHandler serves the posting audit trail of stock documents.
type AuditHandler struct {
	*BaseHandler
	store *postgres.AuditStore
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(base *BaseHandler, store *postgres.AuditStore) *AuditHandler {
	return &AuditHandler{BaseHandler: base, store: store}
}

// History handles GET /stock/docs/:id/audit.
func (h *AuditHandler) History(c *gin.Context) {
	docID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	limit := h.ParseIntQuery(c, "limit", 50)

	entries, err := h.store.History(c.Request.Context(), docID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"items": entries, "count": len(entries)})
}

// RegisterRoutes registers audit routes.
func (h *AuditHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/stock/docs/:id/audit", h.History)
}
