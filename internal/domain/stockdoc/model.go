// Package stockdoc provides the stock document ledger: the append-only record
// of every inventory movement. Documents are created OPEN and post all their
// lines atomically. POSTED and CANCELLED are both terminal; a posted document
// is corrected by posting a compensating document, never by mutation.
package stockdoc

import (
	"fmt"
	"time"

	"github.com/nadirsultanli/OMS-sub000/internal/core/apperror"
	"github.com/nadirsultanli/OMS-sub000/internal/core/id"
	"github.com/nadirsultanli/OMS-sub000/internal/core/types"
	"github.com/nadirsultanli/OMS-sub000/internal/domain/stocklevel"
)

// DocType classifies the movement a document records.
type DocType string

const (
	DocTypeReceipt            DocType = "RECEIPT"
	DocTypeIssue              DocType = "ISSUE"
	DocTypeTransferWarehouse  DocType = "TRANSFER_WAREHOUSE"
	DocTypeTransferTruck      DocType = "TRANSFER_TRUCK"
	DocTypeAdjustmentVariance DocType = "ADJUSTMENT_VARIANCE"
	DocTypePhysicalCount      DocType = "PHYSICAL_COUNT"
)

// Valid reports whether t is a member of the closed doc type set.
func (t DocType) Valid() bool {
	switch t {
	case DocTypeReceipt, DocTypeIssue, DocTypeTransferWarehouse,
		DocTypeTransferTruck, DocTypeAdjustmentVariance, DocTypePhysicalCount:
		return true
	}
	return false
}

// DocStatus is the document lifecycle state.
type DocStatus string

const (
	StatusOpen      DocStatus = "OPEN"
	StatusPosted    DocStatus = "POSTED"
	StatusCancelled DocStatus = "CANCELLED"
)

// Direction disambiguates adjustment lines: quantities are always positive,
// the direction carries the sign.
type Direction string

const (
	DirectionIncrease Direction = "INCREASE"
	DirectionDecrease Direction = "DECREASE"
)

// StockDoc is a stock document header.
type StockDoc struct {
	ID       id.ID     `db:"id" json:"id"`
	TenantID id.ID     `db:"tenant_id" json:"tenantId"`
	DocNo    string    `db:"doc_no" json:"docNo"`
	DocType  DocType   `db:"doc_type" json:"docType"`
	Status   DocStatus `db:"status" json:"status"`

	// SourceWarehouseID is where stock leaves; DestWarehouseID is where it
	// arrives. Which of the two a doc type requires is checked in Validate.
	SourceWarehouseID *id.ID `db:"source_warehouse_id" json:"sourceWarehouseId,omitempty"`
	DestWarehouseID   *id.ID `db:"dest_warehouse_id" json:"destWarehouseId,omitempty"`

	// RefDocType/RefDocID link back to the business event that caused the
	// movement (order, trip, count sheet).
	RefDocType string `db:"ref_doc_type" json:"refDocType,omitempty"`
	RefDocID   *id.ID `db:"ref_doc_id" json:"refDocId,omitempty"`

	// StockStatus selects the bucket ADJUSTMENT_VARIANCE and PHYSICAL_COUNT
	// lines apply to. Empty means ON_HAND; other doc types fix their buckets.
	StockStatus string `db:"stock_status" json:"stockStatus,omitempty"`

	TotalQty types.Quantity `db:"total_qty" json:"totalQty"`
	Notes    string         `db:"notes" json:"notes,omitempty"`

	PostedAt *time.Time `db:"posted_at" json:"postedAt,omitempty"`
	PostedBy string     `db:"posted_by" json:"postedBy,omitempty"`

	// Version guards against concurrent updates (optimistic locking).
	Version   int       `db:"version" json:"version"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`

	// Table part
	Lines []StockDocLine `db:"-" json:"lines"`
}

// StockDocLine is one movement line of a stock document.
type StockDocLine struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	// Exactly one of VariantID / GasType is set.
	VariantID id.ID  `db:"variant_id" json:"variantId"`
	GasType   string `db:"gas_type" json:"gasType,omitempty"`

	// Direction is set on ADJUSTMENT_VARIANCE lines only.
	Direction Direction `db:"direction" json:"direction,omitempty"`

	// Quantity is strictly positive, except PHYSICAL_COUNT where it is the
	// counted quantity and zero is a legal count.
	Quantity types.Quantity `db:"quantity" json:"quantity"`
	UnitCost types.Cost     `db:"unit_cost" json:"unitCost"`
}

// New creates an OPEN stock document of the given type.
func New(tenantID id.ID, docType DocType) *StockDoc {
	now := time.Now().UTC()
	return &StockDoc{
		ID:        id.New(),
		TenantID:  tenantID,
		DocType:   docType,
		Status:    StatusOpen,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
		Lines:     make([]StockDocLine, 0),
	}
}

// AddLine appends a movement line and recalculates the document total.
func (d *StockDoc) AddLine(variantID id.ID, gasType string, qty types.Quantity, unitCost types.Cost) {
	d.Lines = append(d.Lines, StockDocLine{
		LineID:    id.New(),
		LineNo:    len(d.Lines) + 1,
		VariantID: variantID,
		GasType:   gasType,
		Quantity:  qty,
		UnitCost:  unitCost,
	})
	d.recalculateTotals()
}

// AddAdjustmentLine appends a signed adjustment line.
func (d *StockDoc) AddAdjustmentLine(variantID id.ID, gasType string, direction Direction, qty types.Quantity, unitCost types.Cost) {
	d.Lines = append(d.Lines, StockDocLine{
		LineID:    id.New(),
		LineNo:    len(d.Lines) + 1,
		VariantID: variantID,
		GasType:   gasType,
		Direction: direction,
		Quantity:  qty,
		UnitCost:  unitCost,
	})
	d.recalculateTotals()
}

func (d *StockDoc) recalculateTotals() {
	d.TotalQty = 0
	for _, line := range d.Lines {
		d.TotalQty += line.Quantity
	}
}

// Validate checks structural correctness: warehouse endpoints per doc type,
// line completeness, the variant XOR gas-type rule.
func (d *StockDoc) Validate() error {
	if !d.DocType.Valid() {
		return apperror.NewValidation(fmt.Sprintf("unknown document type %q", d.DocType))
	}

	switch d.DocType {
	case DocTypeReceipt:
		if d.DestWarehouseID == nil || id.IsNil(*d.DestWarehouseID) {
			return apperror.NewValidation("receipt requires a destination warehouse").
				WithDetail("field", "destWarehouseId")
		}
	case DocTypeIssue, DocTypeAdjustmentVariance, DocTypePhysicalCount:
		if d.SourceWarehouseID == nil || id.IsNil(*d.SourceWarehouseID) {
			return apperror.NewValidation("source warehouse is required").
				WithDetail("field", "sourceWarehouseId")
		}
	case DocTypeTransferWarehouse:
		if d.SourceWarehouseID == nil || d.DestWarehouseID == nil ||
			id.IsNil(*d.SourceWarehouseID) || id.IsNil(*d.DestWarehouseID) {
			return apperror.NewValidation("transfer requires source and destination warehouses")
		}
		if *d.SourceWarehouseID == *d.DestWarehouseID {
			return apperror.NewInvalidStockOperation("transfer source and destination warehouse are the same")
		}
	case DocTypeTransferTruck:
		// Outbound load: source only. Return unload: source truck stock to
		// an explicit destination depot.
		if d.SourceWarehouseID == nil || id.IsNil(*d.SourceWarehouseID) {
			return apperror.NewValidation("truck transfer requires a source warehouse").
				WithDetail("field", "sourceWarehouseId")
		}
	}

	if d.StockStatus != "" {
		if d.DocType != DocTypeAdjustmentVariance && d.DocType != DocTypePhysicalCount {
			return apperror.NewValidation("stock status is only valid on adjustment and count documents").
				WithDetail("field", "stockStatus")
		}
		if !stocklevel.Status(d.StockStatus).Valid() {
			return apperror.NewValidation(fmt.Sprintf("unknown stock status %q", d.StockStatus)).
				WithDetail("field", "stockStatus")
		}
	}

	if len(d.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}

	for i, line := range d.Lines {
		hasVariant := !id.IsNil(line.VariantID)
		hasGas := line.GasType != ""
		if hasVariant == hasGas {
			return apperror.NewValidation("exactly one of variantId or gasType must be set").
				WithDetail("lineNo", i+1)
		}

		switch d.DocType {
		case DocTypePhysicalCount:
			if line.Quantity.IsNegative() {
				return apperror.NewValidation("counted quantity cannot be negative").
					WithDetail("lineNo", i+1)
			}
			if line.Direction != "" {
				return apperror.NewValidation("direction is not allowed on count lines").
					WithDetail("lineNo", i+1)
			}
		case DocTypeAdjustmentVariance:
			if !line.Quantity.IsPositive() {
				return apperror.NewValidation("quantity must be positive").
					WithDetail("lineNo", i+1)
			}
			if line.Direction != DirectionIncrease && line.Direction != DirectionDecrease {
				return apperror.NewValidation("adjustment lines require a direction").
					WithDetail("lineNo", i+1)
			}
		default:
			if !line.Quantity.IsPositive() {
				return apperror.NewValidation("quantity must be positive").
					WithDetail("lineNo", i+1)
			}
			if line.Direction != "" {
				return apperror.NewValidation("direction is only valid on adjustment lines").
					WithDetail("lineNo", i+1)
			}
		}

		if line.UnitCost.IsNegative() {
			return apperror.NewValidation("unit cost cannot be negative").
				WithDetail("lineNo", i+1)
		}
	}

	return nil
}

// CanModify reports whether the document is still editable.
func (d *StockDoc) CanModify() error {
	if d.Status != StatusOpen {
		return apperror.NewStatusTransition(string(d.Status), string(StatusOpen)).
			WithDetail("doc_no", d.DocNo)
	}
	return nil
}

// CanPost reports whether the document may be posted.
func (d *StockDoc) CanPost() error {
	if d.Status != StatusOpen {
		return apperror.NewStatusTransition(string(d.Status), string(StatusPosted)).
			WithDetail("doc_no", d.DocNo)
	}
	return nil
}

// CanCancel reports whether the document may be cancelled. Only OPEN
// documents can: POSTED is terminal, its movements are undone by posting a
// compensating document.
func (d *StockDoc) CanCancel() error {
	if d.Status != StatusOpen {
		return apperror.NewStatusTransition(string(d.Status), string(StatusCancelled)).
			WithDetail("doc_no", d.DocNo)
	}
	return nil
}

// Bucket returns the stock status bucket adjustment and count lines target.
func (d *StockDoc) Bucket() stocklevel.Status {
	if d.StockStatus != "" {
		return stocklevel.Status(d.StockStatus)
	}
	return stocklevel.StatusOnHand
}

// MarkPosted transitions the document to POSTED.
func (d *StockDoc) MarkPosted(postedBy string) {
	now := time.Now().UTC()
	d.Status = StatusPosted
	d.PostedAt = &now
	d.PostedBy = postedBy
	d.UpdatedAt = now
}

// MarkCancelled transitions the document to CANCELLED.
func (d *StockDoc) MarkCancelled() {
	d.Status = StatusCancelled
	d.UpdatedAt = time.Now().UTC()
}
