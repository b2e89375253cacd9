// Package trip adapts delivery vehicles to the warehouse model. A loaded
// truck is tracked as the TRUCK_STOCK bucket of its loading depot plus a
// per-trip inventory that records what was loaded, delivered and returned.
package trip

import (
	"time"

	"github.com/nadirsultanli/OMS-sub000/internal/core/apperror"
	"github.com/nadirsultanli/OMS-sub000/internal/core/id"
	"github.com/nadirsultanli/OMS-sub000/internal/core/types"
)

// Vehicle is a delivery truck.
type Vehicle struct {
	ID       id.ID  `db:"id" json:"id"`
	TenantID id.ID  `db:"tenant_id" json:"tenantId"`
	Plate    string `db:"plate" json:"plate"`

	// CapacityUnits bounds how many cylinder units the truck can carry at
	// once across all variants.
	CapacityUnits types.Quantity `db:"capacity_units" json:"capacityUnits"`

	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// TruckInventory is one item line of a trip's rolling inventory.
type TruckInventory struct {
	TenantID  id.ID `db:"tenant_id" json:"tenantId"`
	TripID    id.ID `db:"trip_id" json:"tripId"`
	VehicleID id.ID `db:"vehicle_id" json:"vehicleId"`

	// WarehouseID is the loading depot; the truck's stock lives in that
	// warehouse's TRUCK_STOCK bucket.
	WarehouseID id.ID `db:"warehouse_id" json:"warehouseId"`

	VariantID id.ID  `db:"variant_id" json:"variantId"`
	GasType   string `db:"gas_type" json:"gasType,omitempty"`

	LoadedQty    types.Quantity `db:"loaded_qty" json:"loadedQty"`
	DeliveredQty types.Quantity `db:"delivered_qty" json:"deliveredQty"`
	ReturnedQty  types.Quantity `db:"returned_qty" json:"returnedQty"`

	// Exchange model: every delivered full cylinder expects one empty back.
	EmptiesExpectedQty  types.Quantity `db:"empties_expected_qty" json:"emptiesExpectedQty"`
	EmptiesCollectedQty types.Quantity `db:"empties_collected_qty" json:"emptiesCollectedQty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewTruckInventory creates an empty inventory line for a trip item.
func NewTruckInventory(tenantID, tripID, vehicleID, warehouseID, variantID id.ID, gasType string) *TruckInventory {
	now := time.Now().UTC()
	return &TruckInventory{
		TenantID:    tenantID,
		TripID:      tripID,
		VehicleID:   vehicleID,
		WarehouseID: warehouseID,
		VariantID:   variantID,
		GasType:     gasType,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Remaining is what is still on the truck.
func (ti *TruckInventory) Remaining() types.Quantity {
	return ti.LoadedQty - ti.DeliveredQty - ti.ReturnedQty
}

// AddLoad accumulates a load onto the line.
func (ti *TruckInventory) AddLoad(qty types.Quantity) error {
	if !qty.IsPositive() {
		return apperror.NewValidation("load quantity must be positive")
	}
	ti.LoadedQty += qty
	ti.UpdatedAt = time.Now().UTC()
	return nil
}

// RecordDelivery records a customer delivery off the truck. Deliveries are
// monotonic and bounded: the running total can never exceed what was loaded,
// and collected empties can never exceed the expected count.
func (ti *TruckInventory) RecordDelivery(qty, emptiesCollected types.Quantity) error {
	if !qty.IsPositive() {
		return apperror.NewValidation("delivery quantity must be positive")
	}
	if emptiesCollected.IsNegative() {
		return apperror.NewValidation("collected empties cannot be negative")
	}
	if qty > ti.Remaining() {
		return apperror.NewInvalidStockOperation("delivery exceeds remaining truck inventory").
			WithDetail("requested", qty.Float64()).
			WithDetail("remaining", ti.Remaining().Float64())
	}

	if ti.EmptiesCollectedQty+emptiesCollected > ti.EmptiesExpectedQty+qty {
		return apperror.NewInvalidStockOperation("collected empties exceed expected count").
			WithDetail("collected", (ti.EmptiesCollectedQty + emptiesCollected).Float64()).
			WithDetail("expected", (ti.EmptiesExpectedQty + qty).Float64())
	}

	ti.DeliveredQty += qty
	ti.EmptiesExpectedQty += qty
	ti.EmptiesCollectedQty += emptiesCollected
	ti.UpdatedAt = time.Now().UTC()
	return nil
}

// RecordReturn records quantity handed back to a depot at unload.
func (ti *TruckInventory) RecordReturn(qty types.Quantity) error {
	if qty.IsNegative() {
		return apperror.NewValidation("returned quantity cannot be negative")
	}
	ti.ReturnedQty += qty
	ti.UpdatedAt = time.Now().UTC()
	return nil
}
