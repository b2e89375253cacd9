package dto

import (
	"github.com/nadirsultanli/OMS-sub000/internal/core/apperror"
	"github.com/nadirsultanli/OMS-sub000/internal/core/id"
	"github.com/nadirsultanli/OMS-sub000/internal/core/types"
	"github.com/nadirsultanli/OMS-sub000/internal/domain/reservation"
)

// ReservationLineRequest is one item being reserved.
type ReservationLineRequest struct {
	VariantID string         `json:"variantId,omitempty"`
	GasType   string         `json:"gasType,omitempty"`
	Quantity  types.Quantity `json:"quantity"`
}

// ReserveRequest reserves stock for an order.
type ReserveRequest struct {
	WarehouseID string                   `json:"warehouseId" binding:"required"`
	Lines       []ReservationLineRequest `json:"lines" binding:"required"`
}

// ToLines converts request lines to domain reservation lines.
func (r ReserveRequest) ToLines() ([]reservation.Line, error) {
	lines := make([]reservation.Line, 0, len(r.Lines))
	for i, line := range r.Lines {
		var variantID id.ID
		if line.VariantID != "" {
			parsed, err := id.Parse(line.VariantID)
			if err != nil {
				return nil, apperror.NewValidation("invalid variantId").WithDetail("line", i+1)
			}
			variantID = parsed
		}
		lines = append(lines, reservation.Line{
			VariantID: variantID,
			GasType:   line.GasType,
			Quantity:  line.Quantity,
		})
	}
	return lines, nil
}

// ReserveResponse reports the created reservations and the remaining
// availability per line after the earmark.
type ReserveResponse struct {
	Items     []reservation.Reservation   `json:"items"`
	Count     int                         `json:"count"`
	Remaining []reservation.RemainingLine `json:"remaining"`
}

// ReservationListResponse lists an order's reservations.
type ReservationListResponse struct {
	Items []reservation.Reservation `json:"items"`
	Count int                       `json:"count"`
}
