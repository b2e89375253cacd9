package reservation

import (
	"context"
	"fmt"

	"github.com/nadirsultanli/OMS-sub000/internal/core/apperror"
	"github.com/nadirsultanli/OMS-sub000/internal/core/id"
	"github.com/nadirsultanli/OMS-sub000/internal/core/tenant"
	"github.com/nadirsultanli/OMS-sub000/internal/core/tx"
	"github.com/nadirsultanli/OMS-sub000/internal/core/types"
	"github.com/nadirsultanli/OMS-sub000/internal/domain/stocklevel"
	"github.com/nadirsultanli/OMS-sub000/pkg/logger"
)

// Service provides order reservation operations. Reserving an order is
// all-or-nothing: one unavailable line rolls back every line.
type Service struct {
	repo      Repository
	stock     *stocklevel.Service
	txManager tx.Manager
}

// NewService creates a new reservation service.
func NewService(repo Repository, stock *stocklevel.Service, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		stock:     stock,
		txManager: txManager,
	}
}

// RemainingLine reports what is still available in a bucket right after its
// reservation was taken.
type RemainingLine struct {
	VariantID id.ID          `json:"variantId"`
	GasType   string         `json:"gasType,omitempty"`
	Remaining types.Quantity `json:"remaining"`
}

// ReserveResult is the outcome of reserving an order: the created
// reservations plus the remaining availability per line.
type ReserveResult struct {
	Reservations []Reservation   `json:"reservations"`
	Remaining    []RemainingLine `json:"remaining"`
}

// ReserveForOrder earmarks available ON_HAND stock at the warehouse for every
// line of an order. An order with active reservations cannot reserve again.
func (s *Service) ReserveForOrder(ctx context.Context, orderID, warehouseID id.ID, lines []Line) (*ReserveResult, error) {
	if id.IsNil(orderID) {
		return nil, apperror.NewValidation("order is required")
	}
	if id.IsNil(warehouseID) {
		return nil, apperror.NewValidation("warehouse is required")
	}
	if len(lines) == 0 {
		return nil, apperror.NewValidation("at least one line is required")
	}
	for _, line := range lines {
		if err := line.Validate(); err != nil {
			return nil, err
		}
	}

	tenantID := tenant.MustID(ctx)

	result := &ReserveResult{}
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		active := StatusActive
		existing, err := s.repo.ListByOrder(ctx, orderID, &active)
		if err != nil {
			return fmt.Errorf("check existing reservations: %w", err)
		}
		if len(existing) > 0 {
			return apperror.NewDuplicate("reservation", "orderId", orderID.String())
		}

		for _, line := range lines {
			key := stocklevel.Key{
				WarehouseID: warehouseID,
				Item:        stocklevel.Item{VariantID: line.VariantID, GasType: line.GasType},
				Status:      stocklevel.StatusOnHand,
			}
			if err := s.stock.Reserve(ctx, key, line.Quantity); err != nil {
				return err
			}

			// The row was just written under our lock, so this reads the
			// post-reserve availability.
			remaining, err := s.stock.GetAvailable(ctx, key)
			if err != nil {
				return err
			}

			res := New(tenantID, orderID, warehouseID, line)
			if err := s.repo.Create(ctx, res); err != nil {
				return fmt.Errorf("create reservation: %w", err)
			}
			result.Reservations = append(result.Reservations, *res)
			result.Remaining = append(result.Remaining, RemainingLine{
				VariantID: line.VariantID,
				GasType:   line.GasType,
				Remaining: remaining,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "order reserved",
		"order_id", orderID,
		"warehouse_id", warehouseID,
		"lines", len(result.Reservations))
	return result, nil
}

// ReleaseForOrder returns every active reservation of an order to the
// available pool. Releasing an order with no active reservations is a no-op,
// so cancellation retries are safe.
func (s *Service) ReleaseForOrder(ctx context.Context, orderID id.ID) (int, error) {
	return s.finish(ctx, orderID, StatusReleased, false)
}

// FulfillForOrder consumes every active reservation of an order: the earmark
// is returned and the stock is issued in the same transaction.
func (s *Service) FulfillForOrder(ctx context.Context, orderID id.ID) (int, error) {
	return s.finish(ctx, orderID, StatusFulfilled, true)
}

func (s *Service) finish(ctx context.Context, orderID id.ID, terminal Status, issue bool) (int, error) {
	if id.IsNil(orderID) {
		return 0, apperror.NewValidation("order is required")
	}

	var count int
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		active := StatusActive
		reservations, err := s.repo.ListByOrder(ctx, orderID, &active)
		if err != nil {
			return fmt.Errorf("list reservations: %w", err)
		}

		for _, res := range reservations {
			key := stocklevel.Key{
				WarehouseID: res.WarehouseID,
				Item:        stocklevel.Item{VariantID: res.VariantID, GasType: res.GasType},
				Status:      stocklevel.StatusOnHand,
			}
			if err := s.stock.Release(ctx, key, res.Quantity); err != nil {
				return err
			}
			if issue {
				err := s.stock.Issue(ctx, key, res.Quantity, stocklevel.IssueOptions{DocType: "ISSUE"})
				if err != nil {
					return err
				}
			}
			if err := s.repo.UpdateStatus(ctx, res.ID, terminal); err != nil {
				return fmt.Errorf("update reservation status: %w", err)
			}
		}
		count = len(reservations)
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.Info(ctx, "order reservations finished",
		"order_id", orderID,
		"status", terminal,
		"lines", count)
	return count, nil
}

// GetByOrder returns all reservations of an order regardless of status.
func (s *Service) GetByOrder(ctx context.Context, orderID id.ID) ([]Reservation, error) {
	return s.repo.ListByOrder(ctx, orderID, nil)
}
