package trip

import (
	"context"

	"github.com/nadirsultanli/OMS-sub000/internal/core/id"
)

// Repository defines persistence for vehicles and per-trip truck inventory,
// tenant-scoped via context.
type Repository interface {
	// GetVehicle returns a vehicle, or NOT_FOUND.
	GetVehicle(ctx context.Context, vehicleID id.ID) (*Vehicle, error)

	// GetLine returns the trip inventory line for one item, or NOT_FOUND.
	GetLine(ctx context.Context, tripID id.ID, variantID id.ID, gasType string) (*TruckInventory, error)

	// GetLineForUpdate is GetLine holding a row lock.
	GetLineForUpdate(ctx context.Context, tripID id.ID, variantID id.ID, gasType string) (*TruckInventory, error)

	// SaveLine upserts one trip inventory line.
	SaveLine(ctx context.Context, line *TruckInventory) error

	// ListByTrip returns every inventory line of a trip.
	ListByTrip(ctx context.Context, tripID id.ID) ([]TruckInventory, error)
}
