package dto

import (
	"github.com/nadirsultanli/OMS-sub000/internal/core/apperror"
	"github.com/nadirsultanli/OMS-sub000/internal/core/id"
	"github.com/nadirsultanli/OMS-sub000/internal/core/types"
	"github.com/nadirsultanli/OMS-sub000/internal/domain/trip"
)

// TripLoadLineRequest is one item being loaded onto a truck.
type TripLoadLineRequest struct {
	VariantID string         `json:"variantId,omitempty"`
	GasType   string         `json:"gasType,omitempty"`
	Quantity  types.Quantity `json:"quantity"`
}

// TripLoadRequest loads stock from a depot onto a vehicle for a trip.
type TripLoadRequest struct {
	VehicleID string                `json:"vehicleId" binding:"required"`
	DepotID   string                `json:"depotId" binding:"required"`
	Lines     []TripLoadLineRequest `json:"lines" binding:"required"`
}

// ToLines converts request lines to domain load lines.
func (r TripLoadRequest) ToLines() ([]trip.LoadLine, error) {
	lines := make([]trip.LoadLine, 0, len(r.Lines))
	for i, line := range r.Lines {
		var variantID id.ID
		if line.VariantID != "" {
			parsed, err := id.Parse(line.VariantID)
			if err != nil {
				return nil, apperror.NewValidation("invalid variantId").WithDetail("line", i+1)
			}
			variantID = parsed
		}
		lines = append(lines, trip.LoadLine{
			VariantID: variantID,
			GasType:   line.GasType,
			Quantity:  line.Quantity,
		})
	}
	return lines, nil
}

// TripUnloadLineRequest is one physically counted item coming back off a truck.
type TripUnloadLineRequest struct {
	VariantID  string         `json:"variantId,omitempty"`
	GasType    string         `json:"gasType,omitempty"`
	CountedQty types.Quantity `json:"countedQty"`
}

// TripUnloadRequest returns a vehicle's remaining stock to a depot.
type TripUnloadRequest struct {
	DepotID string                  `json:"depotId" binding:"required"`
	Lines   []TripUnloadLineRequest `json:"lines"`
}

// ToLines converts request lines to domain unload lines.
func (r TripUnloadRequest) ToLines() ([]trip.UnloadLine, error) {
	lines := make([]trip.UnloadLine, 0, len(r.Lines))
	for i, line := range r.Lines {
		var variantID id.ID
		if line.VariantID != "" {
			parsed, err := id.Parse(line.VariantID)
			if err != nil {
				return nil, apperror.NewValidation("invalid variantId").WithDetail("line", i+1)
			}
			variantID = parsed
		}
		lines = append(lines, trip.UnloadLine{
			VariantID:  variantID,
			GasType:    line.GasType,
			CountedQty: line.CountedQty,
		})
	}
	return lines, nil
}

// TripDeliveryRequest records one customer drop from a truck.
type TripDeliveryRequest struct {
	VariantID        string         `json:"variantId,omitempty"`
	GasType          string         `json:"gasType,omitempty"`
	Quantity         types.Quantity `json:"quantity"`
	EmptiesCollected types.Quantity `json:"emptiesCollected"`
}

// ToRequest converts to the domain delivery request.
func (r TripDeliveryRequest) ToRequest() (trip.DeliveryRequest, error) {
	var variantID id.ID
	if r.VariantID != "" {
		parsed, err := id.Parse(r.VariantID)
		if err != nil {
			return trip.DeliveryRequest{}, apperror.NewValidation("invalid variantId")
		}
		variantID = parsed
	}
	return trip.DeliveryRequest{
		VariantID:        variantID,
		GasType:          r.GasType,
		Quantity:         r.Quantity,
		EmptiesCollected: r.EmptiesCollected,
	}, nil
}

// TruckInventoryResponse lists a trip's rolling truck inventory.
type TruckInventoryResponse struct {
	Items []trip.TruckInventory `json:"items"`
	Count int                   `json:"count"`
}
