// Package reservation_repo provides the PostgreSQL implementation of the
// reservation repository.
package reservation_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/nadirsultanli/OMS-sub000/internal/core/apperror"
	"github.com/nadirsultanli/OMS-sub000/internal/core/id"
	"github.com/nadirsultanli/OMS-sub000/internal/core/tenant"
	"github.com/nadirsultanli/OMS-sub000/internal/domain/reservation"
	"github.com/nadirsultanli/OMS-sub000/internal/infrastructure/storage/postgres"
)

const reservationsTable = "stock_reservations"

var reservationColumns = []string{
	"id", "tenant_id", "order_id", "warehouse_id", "variant_id", "gas_type",
	"quantity", "status", "created_at", "released_at",
}

// Repo implements reservation.Repository.
type Repo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ reservation.Repository = (*Repo)(nil)

// New creates a new reservation repository.
func New(txManager *postgres.TxManager) *Repo {
	return &Repo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts one reservation row.
func (r *Repo) Create(ctx context.Context, res *reservation.Reservation) error {
	q := r.builder.Insert(reservationsTable).
		Columns(reservationColumns...).
		Values(
			res.ID, tenant.MustID(ctx), res.OrderID, res.WarehouseID,
			res.VariantID, res.GasType,
			res.Quantity, string(res.Status), res.CreatedAt, res.ReleasedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

// ListByOrder returns reservations for an order, optionally narrowed to one
// status, oldest first.
func (r *Repo) ListByOrder(ctx context.Context, orderID id.ID, status *reservation.Status) ([]reservation.Reservation, error) {
	q := r.builder.Select(reservationColumns...).
		From(reservationsTable).
		Where(squirrel.Eq{
			"tenant_id": tenant.MustID(ctx),
			"order_id":  orderID,
		})
	if status != nil {
		q = q.Where(squirrel.Eq{"status": string(*status)})
	}
	q = q.OrderBy("created_at")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var reservations []reservation.Reservation
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &reservations, sql, args...); err != nil {
		return nil, fmt.Errorf("select reservations: %w", err)
	}

	return reservations, nil
}

// UpdateStatus transitions one reservation, stamping released_at on terminal
// states.
func (r *Repo) UpdateStatus(ctx context.Context, resID id.ID, status reservation.Status) error {
	q := r.builder.Update(reservationsTable).
		Set("status", string(status)).
		Where(squirrel.Eq{
			"id":        resID,
			"tenant_id": tenant.MustID(ctx),
		})
	if status != reservation.StatusActive {
		q = q.Set("released_at", time.Now().UTC())
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update reservation status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("reservation", resID)
	}
	return nil
}
