// Package stocklevel provides the authoritative stock quantity store.
//
// One row exists per (tenant, warehouse, item, status bucket). Rows are
// created lazily on first movement into a bucket and never deleted, only
// zeroed. Every mutation recomputes available quantity; it is never drifted.
package stocklevel

import (
	"fmt"
	"time"

	"github.com/nadirsultanli/OMS-sub000/internal/core/apperror"
	"github.com/nadirsultanli/OMS-sub000/internal/core/id"
	"github.com/nadirsultanli/OMS-sub000/internal/core/types"
	"github.com/shopspring/decimal"
)

// Status is a named partition of inventory state within a warehouse.
type Status string

const (
	StatusOnHand     Status = "ON_HAND"
	StatusInTransit  Status = "IN_TRANSIT"
	StatusTruckStock Status = "TRUCK_STOCK"
	StatusQuarantine Status = "QUARANTINE"
)

// Valid reports whether s is a member of the closed status set.
func (s Status) Valid() bool {
	switch s {
	case StatusOnHand, StatusInTransit, StatusTruckStock, StatusQuarantine:
		return true
	}
	return false
}

// Item identifies what is being stocked: a product variant (cylinders) or a
// bulk gas type. Exactly one of the two is set.
type Item struct {
	VariantID id.ID  `db:"variant_id" json:"variantId"`
	GasType   string `db:"gas_type" json:"gasType,omitempty"`
}

// VariantItem creates an Item for a product variant.
func VariantItem(variantID id.ID) Item {
	return Item{VariantID: variantID}
}

// BulkGasItem creates an Item for non-variant bulk gas stock.
func BulkGasItem(gasType string) Item {
	return Item{GasType: gasType}
}

// Validate checks the variant XOR gas-type invariant.
func (i Item) Validate() error {
	hasVariant := !id.IsNil(i.VariantID)
	hasGas := i.GasType != ""
	if hasVariant == hasGas {
		return apperror.NewValidation("exactly one of variantId or gasType must be set")
	}
	return nil
}

// IsBulk reports whether the item is bulk gas stock.
func (i Item) IsBulk() bool { return i.GasType != "" }

func (i Item) String() string {
	if i.IsBulk() {
		return "gas:" + i.GasType
	}
	return i.VariantID.String()
}

// Key identifies one stock level row within a tenant.
type Key struct {
	WarehouseID id.ID
	Item        Item
	Status      Status
}

// Validate checks key completeness.
func (k Key) Validate() error {
	if id.IsNil(k.WarehouseID) {
		return apperror.NewValidation("warehouse is required")
	}
	if !k.Status.Valid() {
		return apperror.NewValidation(fmt.Sprintf("unknown stock status %q", k.Status))
	}
	return k.Item.Validate()
}

// LockOrder returns the key's position in the fixed global lock order:
// warehouse, then status, then item. Operations touching two rows acquire
// row locks in this order so concurrent transfers cannot deadlock.
func (k Key) LockOrder() string {
	return k.WarehouseID.String() + "|" + string(k.Status) + "|" + k.Item.String()
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s", k.WarehouseID, k.Item, k.Status)
}

// StockLevel is the authoritative current-quantity row.
// Invariant: 0 <= ReservedQty <= Quantity, except after an explicit
// negative-allowed issue; AvailableQty = Quantity - ReservedQty always.
type StockLevel struct {
	TenantID    id.ID  `db:"tenant_id" json:"tenantId"`
	WarehouseID id.ID  `db:"warehouse_id" json:"warehouseId"`
	VariantID   id.ID  `db:"variant_id" json:"variantId"`
	GasType     string `db:"gas_type" json:"gasType,omitempty"`
	Status      Status `db:"stock_status" json:"stockStatus"`

	Quantity     types.Quantity `db:"quantity" json:"quantity"`
	ReservedQty  types.Quantity `db:"reserved_qty" json:"reservedQty"`
	AvailableQty types.Quantity `db:"available_qty" json:"availableQty"`

	UnitCost  types.Cost `db:"unit_cost" json:"unitCost"`
	TotalCost types.Cost `db:"total_cost" json:"totalCost"`

	LastTransactionAt time.Time `db:"last_transaction_at" json:"lastTransactionAt"`
	CreatedAt         time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time `db:"updated_at" json:"updatedAt"`
}

// New creates a zeroed stock level row for a key (lazy bucket creation).
func New(tenantID id.ID, key Key) *StockLevel {
	now := time.Now().UTC()
	return &StockLevel{
		TenantID:    tenantID,
		WarehouseID: key.WarehouseID,
		VariantID:   key.Item.VariantID,
		GasType:     key.Item.GasType,
		Status:      key.Status,
		UnitCost:    types.ZeroCost(),
		TotalCost:   types.ZeroCost(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Key returns the row's logical key.
func (l *StockLevel) Key() Key {
	return Key{
		WarehouseID: l.WarehouseID,
		Item:        Item{VariantID: l.VariantID, GasType: l.GasType},
		Status:      l.Status,
	}
}

// Receive adds qty at recvCost, updating the weighted-average unit cost.
func (l *StockLevel) Receive(qty types.Quantity, recvCost types.Cost) error {
	if !qty.IsPositive() {
		return apperror.NewValidation("receive quantity must be positive")
	}

	l.UnitCost = types.WeightedAverageCost(l.Quantity, l.UnitCost, qty, recvCost)
	l.Quantity += qty
	l.recalculate()
	return nil
}

// Issue removes qty. Fails with INSUFFICIENT_STOCK when qty exceeds the
// available (unreserved) quantity unless allowNegative is set.
func (l *StockLevel) Issue(qty types.Quantity, allowNegative bool) error {
	if !qty.IsPositive() {
		return apperror.NewValidation("issue quantity must be positive")
	}
	if qty > l.AvailableQty && !allowNegative {
		return apperror.NewInsufficientStock(l.itemRef(), qty.Float64(), l.AvailableQty.Float64())
	}

	l.Quantity -= qty
	l.recalculate()
	return nil
}

// Reserve claims qty of available quantity for later issue.
func (l *StockLevel) Reserve(qty types.Quantity) error {
	if !qty.IsPositive() {
		return apperror.NewValidation("reserve quantity must be positive")
	}
	if qty > l.AvailableQty {
		return apperror.NewInsufficientStock(l.itemRef(), qty.Float64(), l.AvailableQty.Float64())
	}

	l.ReservedQty += qty
	l.recalculate()
	return nil
}

// Release returns a reservation to the available pool. Releasing more than
// is currently reserved is a double-release and fails without mutation.
func (l *StockLevel) Release(qty types.Quantity) error {
	if !qty.IsPositive() {
		return apperror.NewValidation("release quantity must be positive")
	}
	if qty > l.ReservedQty {
		return apperror.NewInvalidStockOperation("release exceeds reserved quantity").
			WithDetail("requested", qty.Float64()).
			WithDetail("reserved", l.ReservedQty.Float64())
	}

	l.ReservedQty -= qty
	l.recalculate()
	return nil
}

// SetQuantity overwrites the on-hand quantity with a physical count and
// returns the signed variance (physical - system).
func (l *StockLevel) SetQuantity(physical types.Quantity) types.Quantity {
	if physical.IsNegative() {
		physical = 0
	}
	variance := physical - l.Quantity
	l.Quantity = physical
	l.recalculate()
	return variance
}

// recalculate re-derives AvailableQty and TotalCost and stamps the mutation.
func (l *StockLevel) recalculate() {
	l.AvailableQty = l.Quantity - l.ReservedQty
	if l.Quantity.IsPositive() {
		l.TotalCost = l.UnitCost.Mul(decimal.NewFromFloat(l.Quantity.Float64()))
	} else {
		l.TotalCost = types.ZeroCost()
	}
	now := time.Now().UTC()
	l.LastTransactionAt = now
	l.UpdatedAt = now
}

func (l *StockLevel) itemRef() string {
	if l.GasType != "" {
		return "gas:" + l.GasType
	}
	return l.VariantID.String()
}
