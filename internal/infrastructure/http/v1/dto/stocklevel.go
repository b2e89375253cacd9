package dto

import (
	"github.com/nadirsultanli/OMS-sub000/internal/core/apperror"
	"github.com/nadirsultanli/OMS-sub000/internal/core/id"
	"github.com/nadirsultanli/OMS-sub000/internal/core/types"
	"github.com/nadirsultanli/OMS-sub000/internal/domain/stocklevel"
)

// StockKeyRequest addresses one stock level bucket.
type StockKeyRequest struct {
	WarehouseID string `json:"warehouseId" binding:"required"`
	VariantID   string `json:"variantId,omitempty"`
	GasType     string `json:"gasType,omitempty"`
	Status      string `json:"status,omitempty"`
}

// ToKey converts the request into a domain key. Status defaults to ON_HAND.
func (r StockKeyRequest) ToKey() (stocklevel.Key, error) {
	whID, err := id.Parse(r.WarehouseID)
	if err != nil {
		return stocklevel.Key{}, apperror.NewValidation("invalid warehouseId")
	}

	var variantID id.ID
	if r.VariantID != "" {
		variantID, err = id.Parse(r.VariantID)
		if err != nil {
			return stocklevel.Key{}, apperror.NewValidation("invalid variantId")
		}
	}

	status := stocklevel.StatusOnHand
	if r.Status != "" {
		status = stocklevel.Status(r.Status)
	}

	return stocklevel.Key{
		WarehouseID: whID,
		Item:        stocklevel.Item{VariantID: variantID, GasType: r.GasType},
		Status:      status,
	}, nil
}

// AdjustStockRequest applies a signed direct quantity adjustment.
type AdjustStockRequest struct {
	StockKeyRequest
	Quantity      types.Quantity `json:"quantity"`
	UnitCost      types.Cost     `json:"unitCost"`
	AllowNegative bool           `json:"allowNegative"`
}

// ReserveStockRequest reserves or releases quantity in one bucket.
type ReserveStockRequest struct {
	StockKeyRequest
	Quantity types.Quantity `json:"quantity"`
}

// TransferWarehouseRequest moves stock between two warehouses.
type TransferWarehouseRequest struct {
	FromWarehouseID string         `json:"fromWarehouseId" binding:"required"`
	ToWarehouseID   string         `json:"toWarehouseId" binding:"required"`
	VariantID       string         `json:"variantId,omitempty"`
	GasType         string         `json:"gasType,omitempty"`
	Status          string         `json:"status,omitempty"`
	Quantity        types.Quantity `json:"quantity"`
	AllowNegative   bool           `json:"allowNegative"`
}

// TransferStatusRequest moves stock between statuses inside one warehouse.
type TransferStatusRequest struct {
	WarehouseID   string         `json:"warehouseId" binding:"required"`
	VariantID     string         `json:"variantId,omitempty"`
	GasType       string         `json:"gasType,omitempty"`
	FromStatus    string         `json:"fromStatus" binding:"required"`
	ToStatus      string         `json:"toStatus" binding:"required"`
	Quantity      types.Quantity `json:"quantity"`
	AllowNegative bool           `json:"allowNegative"`
}

// ReconcileRequest snaps one bucket to a physically counted quantity.
type ReconcileRequest struct {
	StockKeyRequest
	PhysicalCount types.Quantity `json:"physicalCount"`
}

// ReconcileResponse reports a count reconciliation and the adjustment
// document written for a nonzero variance.
type ReconcileResponse struct {
	stocklevel.CountResult
	AdjustmentDocID *id.ID `json:"adjustmentDocId,omitempty"`
	AdjustmentDocNo string `json:"adjustmentDocNo,omitempty"`
}

// AvailableResponse reports the available quantity of one bucket.
type AvailableResponse struct {
	Available types.Quantity `json:"available"`
}

// StockLevelListResponse is the response for stock level queries.
type StockLevelListResponse struct {
	Items []stocklevel.StockLevel `json:"items"`
	Count int                     `json:"count"`
}
