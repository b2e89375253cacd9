package stocklevel

import (
	"context"
	"fmt"

	"github.com/nadirsultanli/OMS-sub000/internal/core/apperror"
	"github.com/nadirsultanli/OMS-sub000/internal/core/id"
	"github.com/nadirsultanli/OMS-sub000/internal/core/policy"
	"github.com/nadirsultanli/OMS-sub000/internal/core/tenant"
	"github.com/nadirsultanli/OMS-sub000/internal/core/tx"
	"github.com/nadirsultanli/OMS-sub000/internal/core/types"
	"github.com/nadirsultanli/OMS-sub000/pkg/logger"
)

// Service provides the stock level store operations.
// Every mutating operation runs inside one transaction with row-level locks;
// nested calls from the document poster reuse the caller's transaction.
type Service struct {
	repo      Repository
	txManager tx.Manager
	negPolicy *policy.NegativeStockEvaluator
}

// NewService creates a new stock level service.
func NewService(repo Repository, txManager tx.Manager, negPolicy *policy.NegativeStockEvaluator) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		negPolicy: negPolicy,
	}
}

// IssueOptions tunes issue behavior.
type IssueOptions struct {
	// AllowNegative permits the on-hand quantity to go below zero
	// unconditionally. Without it the tenant's negative-stock rule decides.
	AllowNegative bool

	// DocType is the document type driving the issue, offered to the
	// tenant's negative-stock rule.
	DocType string
}

// CountResult reports a physical count reconciliation.
type CountResult struct {
	SystemQtyBefore types.Quantity `json:"systemQtyBefore"`
	PhysicalCount   types.Quantity `json:"physicalCount"`
	Variance        types.Quantity `json:"variance"`
}

// GetAvailable returns the available (unreserved) quantity for a key.
// A missing row means an untouched bucket: zero, never an error.
func (s *Service) GetAvailable(ctx context.Context, key Key) (types.Quantity, error) {
	if err := key.Validate(); err != nil {
		return 0, err
	}

	level, err := s.repo.Get(ctx, key)
	if err != nil {
		if apperror.IsNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	return level.AvailableQty, nil
}

// Receive adds stock to a bucket, creating the row on first movement.
func (s *Service) Receive(ctx context.Context, key Key, qty types.Quantity, unitCost types.Cost) error {
	return s.mutate(ctx, key, func(level *StockLevel) error {
		return level.Receive(qty, unitCost)
	})
}

// Issue removes stock from a bucket.
func (s *Service) Issue(ctx context.Context, key Key, qty types.Quantity, opts IssueOptions) error {
	return s.mutate(ctx, key, func(level *StockLevel) error {
		allow, err := s.resolveAllowNegative(ctx, level, qty, opts)
		if err != nil {
			return err
		}
		return level.Issue(qty, allow)
	})
}

// Reserve claims available quantity ahead of physical issue.
func (s *Service) Reserve(ctx context.Context, key Key, qty types.Quantity) error {
	return s.mutate(ctx, key, func(level *StockLevel) error {
		return level.Reserve(qty)
	})
}

// Release returns reserved quantity to the available pool.
func (s *Service) Release(ctx context.Context, key Key, qty types.Quantity) error {
	return s.mutate(ctx, key, func(level *StockLevel) error {
		return level.Release(qty)
	})
}

// TransferBetweenWarehouses moves qty of item between two warehouses in the
// same status bucket. Issue and receive happen in one transaction; the
// receive side inherits the source's current unit cost.
func (s *Service) TransferBetweenWarehouses(ctx context.Context, fromWh, toWh id.ID, item Item, status Status, qty types.Quantity, opts IssueOptions) error {
	if fromWh == toWh {
		return apperror.NewInvalidStockOperation("transfer source and destination warehouse are the same")
	}

	from := Key{WarehouseID: fromWh, Item: item, Status: status}
	to := Key{WarehouseID: toWh, Item: item, Status: status}
	return s.transfer(ctx, from, to, qty, opts)
}

// Move transfers qty between two arbitrary keys, possibly crossing both
// warehouse and status (truck returning to a different depot). The two keys
// must differ.
func (s *Service) Move(ctx context.Context, from, to Key, qty types.Quantity, opts IssueOptions) error {
	if from == to {
		return apperror.NewInvalidStockOperation("move source and destination are the same")
	}
	return s.transfer(ctx, from, to, qty, opts)
}

// TransferBetweenStatuses moves qty between two status buckets of one
// warehouse (ON_HAND<->TRUCK_STOCK, ON_HAND<->QUARANTINE).
func (s *Service) TransferBetweenStatuses(ctx context.Context, warehouseID id.ID, item Item, qty types.Quantity, fromStatus, toStatus Status, opts IssueOptions) error {
	if fromStatus == toStatus {
		return apperror.NewInvalidStockOperation("transfer source and destination bucket are the same")
	}

	from := Key{WarehouseID: warehouseID, Item: item, Status: fromStatus}
	to := Key{WarehouseID: warehouseID, Item: item, Status: toStatus}
	return s.transfer(ctx, from, to, qty, opts)
}

// ReconcilePhysicalCount overwrites a bucket with a counted quantity and
// returns the variance for the caller to post as an adjustment document.
func (s *Service) ReconcilePhysicalCount(ctx context.Context, key Key, physical types.Quantity) (CountResult, error) {
	var result CountResult
	err := s.mutate(ctx, key, func(level *StockLevel) error {
		result.SystemQtyBefore = level.Quantity
		result.PhysicalCount = physical
		result.Variance = level.SetQuantity(physical)
		return nil
	})
	if err != nil {
		return CountResult{}, err
	}

	logger.Info(ctx, "physical count reconciled",
		"key", key.String(),
		"system_before", result.SystemQtyBefore,
		"physical", result.PhysicalCount,
		"variance", result.Variance,
	)
	return result, nil
}

// List returns stock levels matching the filter.
func (s *Service) List(ctx context.Context, filter Filter) ([]StockLevel, error) {
	return s.repo.List(ctx, filter)
}

// LowStockAlerts returns rows at or below the threshold quantity.
func (s *Service) LowStockAlerts(ctx context.Context, threshold types.Quantity, warehouseID *id.ID) ([]StockLevel, error) {
	return s.repo.List(ctx, Filter{
		WarehouseID: warehouseID,
		MaxQuantity: &threshold,
	})
}

// NegativeStockAlerts returns rows that have gone below zero.
func (s *Service) NegativeStockAlerts(ctx context.Context) ([]StockLevel, error) {
	bound := types.Quantity(-1)
	return s.repo.List(ctx, Filter{MaxQuantity: &bound})
}

// mutate runs fn against the locked row for key inside one transaction,
// creating the row first when absent.
func (s *Service) mutate(ctx context.Context, key Key, fn func(level *StockLevel) error) error {
	if err := key.Validate(); err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.EnsureExists(ctx, key); err != nil {
			return fmt.Errorf("ensure stock level row: %w", err)
		}

		level, err := s.repo.GetForUpdate(ctx, key)
		if err != nil {
			return fmt.Errorf("lock stock level row: %w", err)
		}

		if err := fn(level); err != nil {
			return err
		}

		if err := s.repo.Save(ctx, level); err != nil {
			return fmt.Errorf("save stock level row: %w", err)
		}
		return nil
	})
}

// transfer issues from one key and receives into another atomically.
// Rows are materialized first, then locked in the fixed global order, so two
// opposite transfers running concurrently cannot deadlock.
func (s *Service) transfer(ctx context.Context, from, to Key, qty types.Quantity, opts IssueOptions) error {
	if err := from.Validate(); err != nil {
		return err
	}
	if err := to.Validate(); err != nil {
		return err
	}
	if !qty.IsPositive() {
		return apperror.NewValidation("transfer quantity must be positive")
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, key := range []Key{from, to} {
			if err := s.repo.EnsureExists(ctx, key); err != nil {
				return fmt.Errorf("ensure stock level row: %w", err)
			}
		}

		ordered := []Key{from, to}
		if ordered[1].LockOrder() < ordered[0].LockOrder() {
			ordered[0], ordered[1] = ordered[1], ordered[0]
		}

		locked := make(map[string]*StockLevel, 2)
		for _, key := range ordered {
			level, err := s.repo.GetForUpdate(ctx, key)
			if err != nil {
				return fmt.Errorf("lock stock level row: %w", err)
			}
			locked[key.LockOrder()] = level
		}

		source := locked[from.LockOrder()]
		dest := locked[to.LockOrder()]

		allow, err := s.resolveAllowNegative(ctx, source, qty, opts)
		if err != nil {
			return err
		}
		if err := source.Issue(qty, allow); err != nil {
			return err
		}
		if err := dest.Receive(qty, source.UnitCost); err != nil {
			return err
		}

		for _, level := range []*StockLevel{source, dest} {
			if err := s.repo.Save(ctx, level); err != nil {
				return fmt.Errorf("save stock level row: %w", err)
			}
		}
		return nil
	})
}

// resolveAllowNegative consults the explicit flag first, then the tenant's
// configured negative-stock rule.
func (s *Service) resolveAllowNegative(ctx context.Context, level *StockLevel, qty types.Quantity, opts IssueOptions) (bool, error) {
	if opts.AllowNegative {
		return true, nil
	}
	if qty <= level.AvailableQty {
		// No shortfall; the rule is irrelevant.
		return false, nil
	}
	if s.negPolicy == nil {
		return false, nil
	}

	t := tenant.GetTenant(ctx)
	if t == nil || t.NegativeStockRule == "" {
		return false, nil
	}

	allowed, err := s.negPolicy.Allow(t.NegativeStockRule, policy.NegativeStockInput{
		WarehouseID: level.WarehouseID.String(),
		VariantID:   level.VariantID.String(),
		Status:      string(level.Status),
		DocType:     opts.DocType,
		Requested:   qty.Float64(),
		Available:   level.AvailableQty.Float64(),
	})
	if err != nil {
		logger.Warn(ctx, "negative-stock rule evaluation failed, denying",
			"tenant_id", t.ID, "error", err)
		return false, nil
	}
	return allowed, nil
}
