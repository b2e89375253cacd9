package stockdoc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadirsultanli/OMS-sub000/internal/core/apperror"
	"github.com/nadirsultanli/OMS-sub000/internal/core/id"
	"github.com/nadirsultanli/OMS-sub000/internal/core/types"
	"github.com/nadirsultanli/OMS-sub000/internal/domain/stocklevel"
)

func qty(v int64) types.Quantity { return types.NewQuantityFromInt(v) }

func idPtr(v id.ID) *id.ID { return &v }

func validReceipt() *StockDoc {
	doc := New(id.New(), DocTypeReceipt)
	doc.DestWarehouseID = idPtr(id.New())
	doc.AddLine(id.New(), "", qty(10), types.MustCost("9.50"))
	return doc
}

func TestValidateWarehouseEndpoints(t *testing.T) {
	t.Run("receipt needs destination", func(t *testing.T) {
		doc := New(id.New(), DocTypeReceipt)
		doc.AddLine(id.New(), "", qty(1), types.ZeroCost())
		assert.True(t, apperror.HasCode(doc.Validate(), apperror.CodeValidation))
	})

	t.Run("issue needs source", func(t *testing.T) {
		doc := New(id.New(), DocTypeIssue)
		doc.AddLine(id.New(), "", qty(1), types.ZeroCost())
		assert.True(t, apperror.HasCode(doc.Validate(), apperror.CodeValidation))
	})

	t.Run("warehouse transfer needs distinct endpoints", func(t *testing.T) {
		wh := id.New()
		doc := New(id.New(), DocTypeTransferWarehouse)
		doc.SourceWarehouseID = idPtr(wh)
		doc.DestWarehouseID = idPtr(wh)
		doc.AddLine(id.New(), "", qty(1), types.ZeroCost())
		assert.True(t, apperror.HasCode(doc.Validate(), apperror.CodeInvalidStockOperation))
	})

	t.Run("truck transfer destination is optional", func(t *testing.T) {
		doc := New(id.New(), DocTypeTransferTruck)
		doc.SourceWarehouseID = idPtr(id.New())
		doc.AddLine(id.New(), "", qty(1), types.ZeroCost())
		assert.NoError(t, doc.Validate())
	})
}

func TestValidateLines(t *testing.T) {
	t.Run("no lines", func(t *testing.T) {
		doc := New(id.New(), DocTypeReceipt)
		doc.DestWarehouseID = idPtr(id.New())
		assert.Error(t, doc.Validate())
	})

	t.Run("variant and gas type are exclusive", func(t *testing.T) {
		doc := validReceipt()
		doc.Lines[0].GasType = "LPG"
		assert.Error(t, doc.Validate())
	})

	t.Run("bulk gas line is valid", func(t *testing.T) {
		doc := New(id.New(), DocTypeReceipt)
		doc.DestWarehouseID = idPtr(id.New())
		doc.AddLine(id.Nil(), "LPG", qty(500), types.MustCost("1.20"))
		assert.NoError(t, doc.Validate())
	})

	t.Run("zero quantity rejected", func(t *testing.T) {
		doc := validReceipt()
		doc.Lines[0].Quantity = 0
		assert.Error(t, doc.Validate())
	})

	t.Run("adjustment requires direction", func(t *testing.T) {
		doc := New(id.New(), DocTypeAdjustmentVariance)
		doc.SourceWarehouseID = idPtr(id.New())
		doc.AddLine(id.New(), "", qty(2), types.ZeroCost())
		assert.Error(t, doc.Validate())

		doc.Lines[0].Direction = DirectionDecrease
		assert.NoError(t, doc.Validate())
	})

	t.Run("direction forbidden outside adjustments", func(t *testing.T) {
		doc := validReceipt()
		doc.Lines[0].Direction = DirectionIncrease
		assert.Error(t, doc.Validate())
	})

	t.Run("count line may be zero", func(t *testing.T) {
		doc := New(id.New(), DocTypePhysicalCount)
		doc.SourceWarehouseID = idPtr(id.New())
		doc.AddLine(id.New(), "", qty(0), types.ZeroCost())
		assert.NoError(t, doc.Validate())
	})
}

func TestValidateStockStatus(t *testing.T) {
	t.Run("adjustment may target a bucket", func(t *testing.T) {
		doc := New(id.New(), DocTypeAdjustmentVariance)
		doc.SourceWarehouseID = idPtr(id.New())
		doc.StockStatus = string(stocklevel.StatusTruckStock)
		doc.AddAdjustmentLine(id.New(), "", DirectionDecrease, qty(2), types.ZeroCost())
		assert.NoError(t, doc.Validate())
	})

	t.Run("unknown bucket rejected", func(t *testing.T) {
		doc := New(id.New(), DocTypeAdjustmentVariance)
		doc.SourceWarehouseID = idPtr(id.New())
		doc.StockStatus = "IN_ORBIT"
		doc.AddAdjustmentLine(id.New(), "", DirectionDecrease, qty(2), types.ZeroCost())
		assert.True(t, apperror.HasCode(doc.Validate(), apperror.CodeValidation))
	})

	t.Run("bucket forbidden on receipts", func(t *testing.T) {
		doc := validReceipt()
		doc.StockStatus = string(stocklevel.StatusOnHand)
		assert.True(t, apperror.HasCode(doc.Validate(), apperror.CodeValidation))
	})
}

func TestTotalsFollowLines(t *testing.T) {
	doc := validReceipt()
	doc.AddLine(id.New(), "", qty(5), types.MustCost("2"))
	assert.Equal(t, qty(15), doc.TotalQty)
}

func TestStatusMachine(t *testing.T) {
	doc := validReceipt()
	require.NoError(t, doc.CanPost())
	require.NoError(t, doc.CanModify())
	require.NoError(t, doc.CanCancel())

	doc.MarkPosted("user-1")
	assert.Equal(t, StatusPosted, doc.Status)
	require.NotNil(t, doc.PostedAt)

	t.Run("posted is immutable", func(t *testing.T) {
		assert.True(t, apperror.HasCode(doc.CanModify(), apperror.CodeStatusTransition))
		assert.True(t, apperror.HasCode(doc.CanPost(), apperror.CodeStatusTransition))
	})

	t.Run("posted cannot cancel", func(t *testing.T) {
		assert.True(t, apperror.HasCode(doc.CanCancel(), apperror.CodeStatusTransition))
	})

	t.Run("cancelled is terminal", func(t *testing.T) {
		open := validReceipt()
		open.MarkCancelled()
		assert.True(t, apperror.HasCode(open.CanPost(), apperror.CodeStatusTransition))
		assert.True(t, apperror.HasCode(open.CanCancel(), apperror.CodeStatusTransition))
	})
}
