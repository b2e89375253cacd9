package stocklevel

import (
	"context"

	"github.com/nadirsultanli/OMS-sub000/internal/core/id"
	"github.com/nadirsultanli/OMS-sub000/internal/core/types"
)

// Repository defines persistence for stock level rows.
// All implementations scope queries by the tenant in the context.
type Repository interface {
	// Get returns the row for key, or NOT_FOUND.
	Get(ctx context.Context, key Key) (*StockLevel, error)

	// GetForUpdate returns the row for key holding a row lock
	// (SELECT ... FOR UPDATE). Must be called inside a transaction.
	GetForUpdate(ctx context.Context, key Key) (*StockLevel, error)

	// EnsureExists inserts a zeroed row for key if absent (lazy bucket
	// creation). Insert-if-absent before locking keeps the lock order total:
	// both rows of a transfer exist before either is locked.
	EnsureExists(ctx context.Context, key Key) error

	// Save persists a mutated row by key.
	Save(ctx context.Context, level *StockLevel) error

	// List returns rows matching the filter.
	List(ctx context.Context, filter Filter) ([]StockLevel, error)
}

// Filter narrows stock level listings (operational API surface).
type Filter struct {
	WarehouseID *id.ID
	VariantID   *id.ID
	GasType     *string
	Status      *Status

	// MinQuantity keeps rows with quantity >= the bound.
	MinQuantity *types.Quantity
	// MaxQuantity keeps rows with quantity <= the bound; with a negative
	// bound this is the negative-stock alert scan.
	MaxQuantity *types.Quantity

	ExcludeZero bool
	Limit       int
	Offset      int
}
