// Package trip_repo provides the PostgreSQL implementation of the trip
// repository: vehicles plus per-trip truck inventory.
package trip_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/nadirsultanli/OMS-sub000/internal/core/apperror"
	"github.com/nadirsultanli/OMS-sub000/internal/core/id"
	"github.com/nadirsultanli/OMS-sub000/internal/core/tenant"
	"github.com/nadirsultanli/OMS-sub000/internal/domain/trip"
	"github.com/nadirsultanli/OMS-sub000/internal/infrastructure/storage/postgres"
)

const (
	vehiclesTable       = "vehicles"
	truckInventoryTable = "truck_inventory"
)

var vehicleColumns = []string{
	"id", "tenant_id", "plate", "capacity_units", "active", "created_at",
}

var truckInventoryColumns = []string{
	"tenant_id", "trip_id", "vehicle_id", "warehouse_id", "variant_id", "gas_type",
	"loaded_qty", "delivered_qty", "returned_qty",
	"empties_expected_qty", "empties_collected_qty",
	"created_at", "updated_at",
}

// Repo implements trip.Repository.
type Repo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ trip.Repository = (*Repo)(nil)

// New creates a new trip repository.
func New(txManager *postgres.TxManager) *Repo {
	return &Repo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetVehicle returns a vehicle, or NOT_FOUND.
func (r *Repo) GetVehicle(ctx context.Context, vehicleID id.ID) (*trip.Vehicle, error) {
	q := r.builder.Select(vehicleColumns...).
		From(vehiclesTable).
		Where(squirrel.Eq{
			"id":        vehicleID,
			"tenant_id": tenant.MustID(ctx),
		})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var v trip.Vehicle
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &v, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("vehicle", vehicleID)
		}
		return nil, fmt.Errorf("get vehicle: %w", err)
	}

	return &v, nil
}

func (r *Repo) linePredicate(ctx context.Context, tripID, variantID id.ID, gasType string) squirrel.Eq {
	return squirrel.Eq{
		"tenant_id":  tenant.MustID(ctx),
		"trip_id":    tripID,
		"variant_id": variantID,
		"gas_type":   gasType,
	}
}

// GetLine returns the trip inventory line for one item, or NOT_FOUND.
func (r *Repo) GetLine(ctx context.Context, tripID, variantID id.ID, gasType string) (*trip.TruckInventory, error) {
	return r.getLine(ctx, tripID, variantID, gasType, false)
}

// GetLineForUpdate is GetLine holding a row lock.
func (r *Repo) GetLineForUpdate(ctx context.Context, tripID, variantID id.ID, gasType string) (*trip.TruckInventory, error) {
	return r.getLine(ctx, tripID, variantID, gasType, true)
}

func (r *Repo) getLine(ctx context.Context, tripID, variantID id.ID, gasType string, forUpdate bool) (*trip.TruckInventory, error) {
	q := r.builder.Select(truckInventoryColumns...).
		From(truckInventoryTable).
		Where(r.linePredicate(ctx, tripID, variantID, gasType))
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var line trip.TruckInventory
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &line, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("truck inventory line", tripID)
		}
		return nil, fmt.Errorf("get truck inventory line: %w", err)
	}

	return &line, nil
}

// SaveLine upserts one trip inventory line.
func (r *Repo) SaveLine(ctx context.Context, line *trip.TruckInventory) error {
	q := r.builder.Insert(truckInventoryTable).
		Columns(truckInventoryColumns...).
		Values(
			tenant.MustID(ctx), line.TripID, line.VehicleID, line.WarehouseID,
			line.VariantID, line.GasType,
			line.LoadedQty, line.DeliveredQty, line.ReturnedQty,
			line.EmptiesExpectedQty, line.EmptiesCollectedQty,
			line.CreatedAt, line.UpdatedAt,
		).
		Suffix(`ON CONFLICT (tenant_id, trip_id, variant_id, gas_type) DO UPDATE SET
			loaded_qty = EXCLUDED.loaded_qty,
			delivered_qty = EXCLUDED.delivered_qty,
			returned_qty = EXCLUDED.returned_qty,
			empties_expected_qty = EXCLUDED.empties_expected_qty,
			empties_collected_qty = EXCLUDED.empties_collected_qty,
			updated_at = EXCLUDED.updated_at`)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("save truck inventory line: %w", err)
	}
	return nil
}

// ListByTrip returns every inventory line of a trip.
func (r *Repo) ListByTrip(ctx context.Context, tripID id.ID) ([]trip.TruckInventory, error) {
	q := r.builder.Select(truckInventoryColumns...).
		From(truckInventoryTable).
		Where(squirrel.Eq{
			"tenant_id": tenant.MustID(ctx),
			"trip_id":   tripID,
		}).
		OrderBy("variant_id", "gas_type")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []trip.TruckInventory
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("select truck inventory: %w", err)
	}

	return lines, nil
}
