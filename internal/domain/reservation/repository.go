package reservation

import (
	"context"

	"github.com/nadirsultanli/OMS-sub000/internal/core/id"
)

// Repository defines persistence for reservations, tenant-scoped via context.
type Repository interface {
	// Create inserts one reservation row.
	Create(ctx context.Context, res *Reservation) error

	// ListByOrder returns all reservations for an order, optionally narrowed
	// to one status.
	ListByOrder(ctx context.Context, orderID id.ID, status *Status) ([]Reservation, error)

	// UpdateStatus transitions one reservation and stamps ReleasedAt for
	// terminal states.
	UpdateStatus(ctx context.Context, resID id.ID, status Status) error
}
