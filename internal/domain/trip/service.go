package trip

import (
	"context"
	"fmt"

	"github.com/nadirsultanli/OMS-sub000/internal/core/apperror"
	"github.com/nadirsultanli/OMS-sub000/internal/core/id"
	"github.com/nadirsultanli/OMS-sub000/internal/core/tenant"
	"github.com/nadirsultanli/OMS-sub000/internal/core/tx"
	"github.com/nadirsultanli/OMS-sub000/internal/core/types"
	"github.com/nadirsultanli/OMS-sub000/internal/domain/stockdoc"
	"github.com/nadirsultanli/OMS-sub000/internal/domain/stocklevel"
	"github.com/nadirsultanli/OMS-sub000/pkg/logger"
)

// Service provides trip loading, delivery and unloading operations. Each
// operation that moves stock rides on stock documents so the ledger stays the
// single source of truth.
type Service struct {
	repo      Repository
	docs      *stockdoc.Service
	stock     *stocklevel.Service
	txManager tx.Manager
}

// NewService creates a new trip service.
func NewService(repo Repository, docs *stockdoc.Service, stock *stocklevel.Service, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		docs:      docs,
		stock:     stock,
		txManager: txManager,
	}
}

// LoadLine is one item being loaded onto a truck.
type LoadLine struct {
	VariantID id.ID          `json:"variantId"`
	GasType   string         `json:"gasType,omitempty"`
	Quantity  types.Quantity `json:"quantity"`
}

// UnloadLine is the physically counted quantity coming back off a truck.
type UnloadLine struct {
	VariantID  id.ID          `json:"variantId"`
	GasType    string         `json:"gasType,omitempty"`
	CountedQty types.Quantity `json:"countedQty"`
}

// DeliveryRequest records one customer drop.
type DeliveryRequest struct {
	VariantID        id.ID          `json:"variantId"`
	GasType          string         `json:"gasType,omitempty"`
	Quantity         types.Quantity `json:"quantity"`
	EmptiesCollected types.Quantity `json:"emptiesCollected"`
}

// VarianceLine reports one unload discrepancy. VariancePct is the variance
// relative to the expected quantity, zero when nothing was expected.
type VarianceLine struct {
	VariantID   id.ID          `json:"variantId"`
	GasType     string         `json:"gasType,omitempty"`
	Expected    types.Quantity `json:"expected"`
	Counted     types.Quantity `json:"counted"`
	Variance    types.Quantity `json:"variance"`
	VariancePct float64        `json:"variancePct"`
}

// UnloadResult is the outcome of a trip unload. Every variant whose count
// disagreed with the ledger gets its own adjustment document.
type UnloadResult struct {
	TransferDoc    *stockdoc.StockDoc   `json:"transferDoc,omitempty"`
	AdjustmentDocs []*stockdoc.StockDoc `json:"adjustmentDocs,omitempty"`
	Variances      []VarianceLine       `json:"variances,omitempty"`
}

func variancePct(variance, expected types.Quantity) float64 {
	if expected.IsZero() {
		return 0
	}
	return variance.Float64() / expected.Float64()
}

// LoadVehicle moves stock from the depot shelf onto the truck. The load posts
// a truck transfer document and accumulates the trip's rolling inventory;
// repeated loads onto one trip are allowed as long as capacity holds.
func (s *Service) LoadVehicle(ctx context.Context, tripID, vehicleID, depotID id.ID, lines []LoadLine) (*stockdoc.StockDoc, error) {
	if id.IsNil(tripID) || id.IsNil(vehicleID) || id.IsNil(depotID) {
		return nil, apperror.NewValidation("trip, vehicle and warehouse are required")
	}
	if len(lines) == 0 {
		return nil, apperror.NewValidation("at least one line is required")
	}
	var loadTotal types.Quantity
	for _, line := range lines {
		hasVariant := !id.IsNil(line.VariantID)
		if hasVariant == (line.GasType != "") {
			return nil, apperror.NewValidation("exactly one of variantId or gasType must be set")
		}
		if !line.Quantity.IsPositive() {
			return nil, apperror.NewValidation("load quantity must be positive")
		}
		loadTotal += line.Quantity
	}

	tenantID := tenant.MustID(ctx)

	var doc *stockdoc.StockDoc
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		vehicle, err := s.repo.GetVehicle(ctx, vehicleID)
		if err != nil {
			return err
		}
		if !vehicle.Active {
			return apperror.NewInvalidStockOperation("vehicle is not active").
				WithDetail("vehicle_id", vehicleID.String())
		}

		if vehicle.CapacityUnits.IsPositive() {
			onBoard, err := s.remainingOnTrip(ctx, tripID)
			if err != nil {
				return err
			}
			if onBoard+loadTotal > vehicle.CapacityUnits {
				return apperror.NewCapacityExceeded("load exceeds vehicle capacity").
					WithDetail("capacity", vehicle.CapacityUnits.Float64()).
					WithDetail("on_board", onBoard.Float64()).
					WithDetail("requested", loadTotal.Float64())
			}
		}

		doc = stockdoc.New(tenantID, stockdoc.DocTypeTransferTruck)
		doc.SourceWarehouseID = &depotID
		doc.RefDocType = "trip"
		doc.Notes = fmt.Sprintf("trip %s load onto %s", tripID, vehicle.Plate)
		for _, line := range lines {
			doc.AddLine(line.VariantID, line.GasType, line.Quantity, types.ZeroCost())
		}

		if err := s.docs.Create(ctx, doc); err != nil {
			return err
		}
		if doc, err = s.docs.Post(ctx, doc.ID); err != nil {
			return err
		}

		for _, line := range lines {
			ti, err := s.repo.GetLineForUpdate(ctx, tripID, line.VariantID, line.GasType)
			if err != nil {
				if !apperror.IsNotFound(err) {
					return err
				}
				ti = NewTruckInventory(tenantID, tripID, vehicleID, depotID, line.VariantID, line.GasType)
			}
			if ti.WarehouseID != depotID {
				return apperror.NewInvalidStockOperation("trip already loaded from a different depot").
					WithDetail("loaded_from", ti.WarehouseID.String())
			}
			if err := ti.AddLoad(line.Quantity); err != nil {
				return err
			}
			if err := s.repo.SaveLine(ctx, ti); err != nil {
				return fmt.Errorf("save truck inventory: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "vehicle loaded",
		"trip_id", tripID,
		"vehicle_id", vehicleID,
		"doc_no", doc.DocNo,
		"total_qty", loadTotal)
	return doc, nil
}

// RecordDelivery records a customer drop off the truck: the trip inventory
// advances and the truck's stock bucket is issued.
func (s *Service) RecordDelivery(ctx context.Context, tripID id.ID, req DeliveryRequest) (*TruckInventory, error) {
	if id.IsNil(tripID) {
		return nil, apperror.NewValidation("trip is required")
	}

	var line *TruckInventory
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		line, err = s.repo.GetLineForUpdate(ctx, tripID, req.VariantID, req.GasType)
		if err != nil {
			return err
		}

		if err := line.RecordDelivery(req.Quantity, req.EmptiesCollected); err != nil {
			return err
		}

		key := stocklevel.Key{
			WarehouseID: line.WarehouseID,
			Item:        stocklevel.Item{VariantID: line.VariantID, GasType: line.GasType},
			Status:      stocklevel.StatusTruckStock,
		}
		err = s.stock.Issue(ctx, key, req.Quantity, stocklevel.IssueOptions{DocType: "DELIVERY"})
		if err != nil {
			return err
		}

		return s.repo.SaveLine(ctx, line)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "delivery recorded",
		"trip_id", tripID,
		"quantity", req.Quantity,
		"empties_collected", req.EmptiesCollected)
	return line, nil
}

// UnloadVehicle closes out a trip at a depot. The physically counted
// quantities are what the transfer document moves onto the depot shelf; each
// variant whose count disagrees with the ledger's expectation first gets its
// own variance adjustment against the truck bucket, so the transfer records
// exactly what came off the truck and the adjustments carry the loss or
// excess distinctly.
func (s *Service) UnloadVehicle(ctx context.Context, tripID, depotID id.ID, counted []UnloadLine) (*UnloadResult, error) {
	if id.IsNil(tripID) || id.IsNil(depotID) {
		return nil, apperror.NewValidation("trip and warehouse are required")
	}

	tenantID := tenant.MustID(ctx)

	result := &UnloadResult{}
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		lines, err := s.repo.ListByTrip(ctx, tripID)
		if err != nil {
			return fmt.Errorf("list trip inventory: %w", err)
		}
		if len(lines) == 0 {
			return apperror.NewNotFound("trip inventory", tripID)
		}

		countedByItem := make(map[string]types.Quantity, len(counted))
		for _, c := range counted {
			item := stocklevel.Item{VariantID: c.VariantID, GasType: c.GasType}
			countedByItem[item.String()] = c.CountedQty
		}

		homeWh := lines[0].WarehouseID

		// Adjustments post before the transfer so the truck bucket holds the
		// counted quantities by the time the transfer issues them.
		adjust := func(variantID id.ID, gasType string, variance types.Quantity) error {
			adjustment := stockdoc.New(tenantID, stockdoc.DocTypeAdjustmentVariance)
			adjustment.SourceWarehouseID = &homeWh
			adjustment.StockStatus = string(stocklevel.StatusTruckStock)
			adjustment.RefDocType = "trip"
			adjustment.Notes = fmt.Sprintf("trip %s unload variance", tripID)

			direction := stockdoc.DirectionIncrease
			if variance.IsNegative() {
				direction = stockdoc.DirectionDecrease
			}
			adjustment.AddAdjustmentLine(variantID, gasType, direction, variance.Abs(), types.ZeroCost())

			if err := s.docs.Create(ctx, adjustment); err != nil {
				return err
			}
			posted, err := s.docs.Post(ctx, adjustment.ID)
			if err != nil {
				return err
			}
			result.AdjustmentDocs = append(result.AdjustmentDocs, posted)
			return nil
		}

		// The transfer moves what was physically counted off the truck.
		transfer := stockdoc.New(tenantID, stockdoc.DocTypeTransferTruck)
		transfer.SourceWarehouseID = &homeWh
		transfer.DestWarehouseID = &depotID
		transfer.RefDocType = "trip"
		transfer.RefDocID = &tripID
		transfer.Notes = fmt.Sprintf("trip %s unload", tripID)

		for i := range lines {
			ti := &lines[i]
			item := stocklevel.Item{VariantID: ti.VariantID, GasType: ti.GasType}
			expected := ti.Remaining()
			countedQty := countedByItem[item.String()]
			delete(countedByItem, item.String())

			variance := countedQty - expected
			if !variance.IsZero() {
				if err := adjust(ti.VariantID, ti.GasType, variance); err != nil {
					return err
				}
				result.Variances = append(result.Variances, VarianceLine{
					VariantID:   ti.VariantID,
					GasType:     ti.GasType,
					Expected:    expected,
					Counted:     countedQty,
					Variance:    variance,
					VariancePct: variancePct(variance, expected),
				})
			}

			if countedQty.IsPositive() {
				transfer.AddLine(ti.VariantID, ti.GasType, countedQty, types.ZeroCost())
				if err := ti.RecordReturn(countedQty); err != nil {
					return err
				}
				if err := s.repo.SaveLine(ctx, ti); err != nil {
					return fmt.Errorf("save truck inventory: %w", err)
				}
			}
		}

		// Items counted off the truck that the trip never loaded.
		for _, c := range counted {
			item := stocklevel.Item{VariantID: c.VariantID, GasType: c.GasType}
			if _, pending := countedByItem[item.String()]; !pending || !c.CountedQty.IsPositive() {
				continue
			}
			if err := adjust(c.VariantID, c.GasType, c.CountedQty); err != nil {
				return err
			}
			transfer.AddLine(c.VariantID, c.GasType, c.CountedQty, types.ZeroCost())
			result.Variances = append(result.Variances, VarianceLine{
				VariantID: c.VariantID,
				GasType:   c.GasType,
				Counted:   c.CountedQty,
				Variance:  c.CountedQty,
			})
		}

		if len(transfer.Lines) > 0 {
			if err := s.docs.Create(ctx, transfer); err != nil {
				return err
			}
			if result.TransferDoc, err = s.docs.Post(ctx, transfer.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "vehicle unloaded",
		"trip_id", tripID,
		"depot_id", depotID,
		"variances", len(result.Variances))
	return result, nil
}

// GetVehicleInventory returns the trip's rolling inventory lines.
func (s *Service) GetVehicleInventory(ctx context.Context, tripID id.ID) ([]TruckInventory, error) {
	if id.IsNil(tripID) {
		return nil, apperror.NewValidation("trip is required")
	}
	return s.repo.ListByTrip(ctx, tripID)
}

func (s *Service) remainingOnTrip(ctx context.Context, tripID id.ID) (types.Quantity, error) {
	lines, err := s.repo.ListByTrip(ctx, tripID)
	if err != nil {
		return 0, fmt.Errorf("list trip inventory: %w", err)
	}
	var total types.Quantity
	for _, line := range lines {
		total += line.Remaining()
	}
	return total, nil
}
