package dto

import (
	"github.com/nadirsultanli/OMS-sub000/internal/core/apperror"
	"github.com/nadirsultanli/OMS-sub000/internal/core/id"
	"github.com/nadirsultanli/OMS-sub000/internal/core/types"
	"github.com/nadirsultanli/OMS-sub000/internal/domain/stockdoc"
)

// StockDocLineRequest is one line of a document being created.
type StockDocLineRequest struct {
	VariantID string         `json:"variantId,omitempty"`
	GasType   string         `json:"gasType,omitempty"`
	Direction string         `json:"direction,omitempty"`
	Quantity  types.Quantity `json:"quantity"`
	UnitCost  types.Cost     `json:"unitCost"`
}

// CreateStockDocRequest creates a stock document in OPEN state.
type CreateStockDocRequest struct {
	DocType           string                `json:"docType" binding:"required"`
	SourceWarehouseID string                `json:"sourceWarehouseId,omitempty"`
	DestWarehouseID   string                `json:"destWarehouseId,omitempty"`
	RefDocType        string                `json:"refDocType,omitempty"`
	RefDocID          string                `json:"refDocId,omitempty"`
	StockStatus       string                `json:"stockStatus,omitempty"`
	Notes             string                `json:"notes,omitempty"`
	Lines             []StockDocLineRequest `json:"lines" binding:"required"`
}

// ToEntity converts the request into a domain document.
func (r CreateStockDocRequest) ToEntity(tenantID id.ID) (*stockdoc.StockDoc, error) {
	doc := stockdoc.New(tenantID, stockdoc.DocType(r.DocType))
	doc.RefDocType = r.RefDocType
	doc.StockStatus = r.StockStatus
	doc.Notes = r.Notes

	if r.SourceWarehouseID != "" {
		whID, err := id.Parse(r.SourceWarehouseID)
		if err != nil {
			return nil, apperror.NewValidation("invalid sourceWarehouseId")
		}
		doc.SourceWarehouseID = &whID
	}
	if r.DestWarehouseID != "" {
		whID, err := id.Parse(r.DestWarehouseID)
		if err != nil {
			return nil, apperror.NewValidation("invalid destWarehouseId")
		}
		doc.DestWarehouseID = &whID
	}
	if r.RefDocID != "" {
		refID, err := id.Parse(r.RefDocID)
		if err != nil {
			return nil, apperror.NewValidation("invalid refDocId")
		}
		doc.RefDocID = &refID
	}

	for i, line := range r.Lines {
		var variantID id.ID
		if line.VariantID != "" {
			parsed, err := id.Parse(line.VariantID)
			if err != nil {
				return nil, apperror.NewValidation("invalid variantId").WithDetail("line", i+1)
			}
			variantID = parsed
		}

		if line.Direction != "" {
			doc.AddAdjustmentLine(variantID, line.GasType, stockdoc.Direction(line.Direction), line.Quantity, line.UnitCost)
		} else {
			doc.AddLine(variantID, line.GasType, line.Quantity, line.UnitCost)
		}
	}

	return doc, nil
}

// UpdateStockDocRequest replaces the mutable parts of an OPEN document.
type UpdateStockDocRequest struct {
	Notes *string               `json:"notes,omitempty"`
	Lines []StockDocLineRequest `json:"lines,omitempty"`
}

// ApplyTo mutates an existing document with the requested changes.
func (r UpdateStockDocRequest) ApplyTo(doc *stockdoc.StockDoc) error {
	if r.Notes != nil {
		doc.Notes = *r.Notes
	}
	if r.Lines != nil {
		doc.Lines = doc.Lines[:0]
		for i, line := range r.Lines {
			var variantID id.ID
			if line.VariantID != "" {
				parsed, err := id.Parse(line.VariantID)
				if err != nil {
					return apperror.NewValidation("invalid variantId").WithDetail("line", i+1)
				}
				variantID = parsed
			}
			if line.Direction != "" {
				doc.AddAdjustmentLine(variantID, line.GasType, stockdoc.Direction(line.Direction), line.Quantity, line.UnitCost)
			} else {
				doc.AddLine(variantID, line.GasType, line.Quantity, line.UnitCost)
			}
		}
	}
	return nil
}

// StockDocListResponse is a paginated document list.
type StockDocListResponse struct {
	Items  []stockdoc.StockDoc `json:"items"`
	Count  int                 `json:"count"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
}
