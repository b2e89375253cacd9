// Package reservation manages order reservations against warehouse stock.
// A reservation earmarks available quantity without moving it; fulfilment or
// release returns the earmark and, for fulfilment, issues the stock.
package reservation

import (
	"time"

	"github.com/nadirsultanli/OMS-sub000/internal/core/apperror"
	"github.com/nadirsultanli/OMS-sub000/internal/core/id"
	"github.com/nadirsultanli/OMS-sub000/internal/core/types"
)

// Status is the reservation lifecycle state.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusReleased  Status = "RELEASED"
	StatusFulfilled Status = "FULFILLED"
)

// Reservation is one earmarked line of an order.
type Reservation struct {
	ID          id.ID  `db:"id" json:"id"`
	TenantID    id.ID  `db:"tenant_id" json:"tenantId"`
	OrderID     id.ID  `db:"order_id" json:"orderId"`
	WarehouseID id.ID  `db:"warehouse_id" json:"warehouseId"`
	VariantID   id.ID  `db:"variant_id" json:"variantId"`
	GasType     string `db:"gas_type" json:"gasType,omitempty"`

	Quantity types.Quantity `db:"quantity" json:"quantity"`
	Status   Status         `db:"status" json:"status"`

	CreatedAt  time.Time  `db:"created_at" json:"createdAt"`
	ReleasedAt *time.Time `db:"released_at" json:"releasedAt,omitempty"`
}

// Line is one requested reservation line.
type Line struct {
	VariantID id.ID          `json:"variantId"`
	GasType   string         `json:"gasType,omitempty"`
	Quantity  types.Quantity `json:"quantity"`
}

// Validate checks line completeness.
func (l Line) Validate() error {
	hasVariant := !id.IsNil(l.VariantID)
	hasGas := l.GasType != ""
	if hasVariant == hasGas {
		return apperror.NewValidation("exactly one of variantId or gasType must be set")
	}
	if !l.Quantity.IsPositive() {
		return apperror.NewValidation("reservation quantity must be positive")
	}
	return nil
}

// New creates an active reservation for one order line.
func New(tenantID, orderID, warehouseID id.ID, line Line) *Reservation {
	return &Reservation{
		ID:          id.New(),
		TenantID:    tenantID,
		OrderID:     orderID,
		WarehouseID: warehouseID,
		VariantID:   line.VariantID,
		GasType:     line.GasType,
		Quantity:    line.Quantity,
		Status:      StatusActive,
		CreatedAt:   time.Now().UTC(),
	}
}
