// Package level_repo provides the PostgreSQL implementation of the stock
// level repository.
package level_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/nadirsultanli/OMS-sub000/internal/core/apperror"
	"github.com/nadirsultanli/OMS-sub000/internal/core/tenant"
	"github.com/nadirsultanli/OMS-sub000/internal/domain/stocklevel"
	"github.com/nadirsultanli/OMS-sub000/internal/infrastructure/storage/postgres"
)

const stockLevelsTable = "stock_levels"

var stockLevelColumns = []string{
	"tenant_id", "warehouse_id", "variant_id", "gas_type", "stock_status",
	"quantity", "reserved_qty", "available_qty",
	"unit_cost", "total_cost",
	"last_transaction_at", "created_at", "updated_at",
}

// Repo implements stocklevel.Repository.
type Repo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ stocklevel.Repository = (*Repo)(nil)

// New creates a new stock level repository.
func New(txManager *postgres.TxManager) *Repo {
	return &Repo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func keyPredicate(ctx context.Context, key stocklevel.Key) squirrel.Eq {
	return squirrel.Eq{
		"tenant_id":    tenant.MustID(ctx),
		"warehouse_id": key.WarehouseID,
		"variant_id":   key.Item.VariantID,
		"gas_type":     key.Item.GasType,
		"stock_status": string(key.Status),
	}
}

// Get returns the row for key, or NOT_FOUND.
func (r *Repo) Get(ctx context.Context, key stocklevel.Key) (*stocklevel.StockLevel, error) {
	q := r.builder.Select(stockLevelColumns...).
		From(stockLevelsTable).
		Where(keyPredicate(ctx, key)).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var level stocklevel.StockLevel
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &level, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("stock level", key.String())
		}
		return nil, fmt.Errorf("get stock level: %w", err)
	}

	return &level, nil
}

// GetForUpdate returns the row for key holding a row lock.
func (r *Repo) GetForUpdate(ctx context.Context, key stocklevel.Key) (*stocklevel.StockLevel, error) {
	q := r.builder.Select(stockLevelColumns...).
		From(stockLevelsTable).
		Where(keyPredicate(ctx, key)).
		Suffix("FOR UPDATE")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var level stocklevel.StockLevel
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &level, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("stock level", key.String())
		}
		return nil, fmt.Errorf("get stock level for update: %w", err)
	}

	return &level, nil
}

// EnsureExists inserts a zeroed row for key if absent. ON CONFLICT DO NOTHING
// makes concurrent first movements into the same bucket race-free.
func (r *Repo) EnsureExists(ctx context.Context, key stocklevel.Key) error {
	level := stocklevel.New(tenant.MustID(ctx), key)

	q := r.builder.Insert(stockLevelsTable).
		Columns(stockLevelColumns...).
		Values(
			level.TenantID, level.WarehouseID, level.VariantID, level.GasType, string(level.Status),
			level.Quantity, level.ReservedQty, level.AvailableQty,
			level.UnitCost, level.TotalCost,
			level.LastTransactionAt, level.CreatedAt, level.UpdatedAt,
		).
		Suffix("ON CONFLICT (tenant_id, warehouse_id, variant_id, gas_type, stock_status) DO NOTHING")

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("ensure stock level: %w", err)
	}
	return nil
}

// Save persists a mutated row by key.
func (r *Repo) Save(ctx context.Context, level *stocklevel.StockLevel) error {
	q := r.builder.Update(stockLevelsTable).
		Set("quantity", level.Quantity).
		Set("reserved_qty", level.ReservedQty).
		Set("available_qty", level.AvailableQty).
		Set("unit_cost", level.UnitCost).
		Set("total_cost", level.TotalCost).
		Set("last_transaction_at", level.LastTransactionAt).
		Set("updated_at", level.UpdatedAt).
		Where(keyPredicate(ctx, level.Key()))

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("save stock level: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("stock level", level.Key().String())
	}
	return nil
}

// List returns rows matching the filter.
func (r *Repo) List(ctx context.Context, filter stocklevel.Filter) ([]stocklevel.StockLevel, error) {
	q := r.builder.Select(stockLevelColumns...).
		From(stockLevelsTable).
		Where(squirrel.Eq{"tenant_id": tenant.MustID(ctx)})

	if filter.WarehouseID != nil {
		q = q.Where(squirrel.Eq{"warehouse_id": *filter.WarehouseID})
	}
	if filter.VariantID != nil {
		q = q.Where(squirrel.Eq{"variant_id": *filter.VariantID})
	}
	if filter.GasType != nil {
		q = q.Where(squirrel.Eq{"gas_type": *filter.GasType})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"stock_status": string(*filter.Status)})
	}
	if filter.MinQuantity != nil {
		q = q.Where(squirrel.GtOrEq{"quantity": filter.MinQuantity.Int64Scaled()})
	}
	if filter.MaxQuantity != nil {
		q = q.Where(squirrel.LtOrEq{"quantity": filter.MaxQuantity.Int64Scaled()})
	}
	if filter.ExcludeZero {
		q = q.Where(squirrel.NotEq{"quantity": int64(0)})
	}

	q = q.OrderBy("warehouse_id", "stock_status", "variant_id", "gas_type")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var levels []stocklevel.StockLevel
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &levels, sql, args...); err != nil {
		return nil, fmt.Errorf("select stock levels: %w", err)
	}

	return levels, nil
}
