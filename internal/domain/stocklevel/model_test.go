package stocklevel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadirsultanli/OMS-sub000/internal/core/apperror"
	"github.com/nadirsultanli/OMS-sub000/internal/core/id"
	"github.com/nadirsultanli/OMS-sub000/internal/core/types"
)

func qty(v int64) types.Quantity { return types.NewQuantityFromInt(v) }

func testKey(t *testing.T) Key {
	t.Helper()
	return Key{
		WarehouseID: id.New(),
		Item:        VariantItem(id.New()),
		Status:      StatusOnHand,
	}
}

func TestItemValidate(t *testing.T) {
	t.Run("variant only is valid", func(t *testing.T) {
		assert.NoError(t, VariantItem(id.New()).Validate())
	})

	t.Run("gas type only is valid", func(t *testing.T) {
		assert.NoError(t, BulkGasItem("LPG").Validate())
	})

	t.Run("neither is invalid", func(t *testing.T) {
		err := Item{}.Validate()
		require.Error(t, err)
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	})

	t.Run("both is invalid", func(t *testing.T) {
		err := Item{VariantID: id.New(), GasType: "LPG"}.Validate()
		require.Error(t, err)
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	})
}

func TestKeyValidate(t *testing.T) {
	key := testKey(t)
	assert.NoError(t, key.Validate())

	t.Run("missing warehouse", func(t *testing.T) {
		k := key
		k.WarehouseID = id.Nil()
		assert.Error(t, k.Validate())
	})

	t.Run("unknown status", func(t *testing.T) {
		k := key
		k.Status = Status("LOST")
		assert.Error(t, k.Validate())
	})
}

func TestReceiveWeightedAverageCost(t *testing.T) {
	lvl := New(id.New(), testKey(t))

	require.NoError(t, lvl.Receive(qty(100), types.MustCost("10")))
	assert.Equal(t, qty(100), lvl.Quantity)
	assert.True(t, lvl.UnitCost.Equal(types.MustCost("10")), "got %s", lvl.UnitCost)

	// 100 @ 10 + 50 @ 16 -> 150 @ 12
	require.NoError(t, lvl.Receive(qty(50), types.MustCost("16")))
	assert.Equal(t, qty(150), lvl.Quantity)
	assert.True(t, lvl.UnitCost.Equal(types.MustCost("12")), "got %s", lvl.UnitCost)
	assert.True(t, lvl.TotalCost.Equal(types.MustCost("1800")), "got %s", lvl.TotalCost)
}

func TestReceiveIntoNegativeResetsCostBasis(t *testing.T) {
	lvl := New(id.New(), testKey(t))
	require.NoError(t, lvl.Receive(qty(10), types.MustCost("10")))
	require.NoError(t, lvl.Issue(qty(15), true))
	require.Equal(t, qty(-5), lvl.Quantity)

	require.NoError(t, lvl.Receive(qty(20), types.MustCost("7")))
	assert.Equal(t, qty(15), lvl.Quantity)
	assert.True(t, lvl.UnitCost.Equal(types.MustCost("7")), "got %s", lvl.UnitCost)
}

func TestIssue(t *testing.T) {
	t.Run("insufficient stock", func(t *testing.T) {
		lvl := New(id.New(), testKey(t))
		require.NoError(t, lvl.Receive(qty(5), types.MustCost("10")))

		err := lvl.Issue(qty(8), false)
		require.Error(t, err)
		assert.True(t, apperror.IsInsufficientStock(err))
		assert.Equal(t, qty(5), lvl.Quantity, "failed issue must not mutate")
	})

	t.Run("reserved quantity is not issuable", func(t *testing.T) {
		lvl := New(id.New(), testKey(t))
		require.NoError(t, lvl.Receive(qty(10), types.MustCost("10")))
		require.NoError(t, lvl.Reserve(qty(7)))

		err := lvl.Issue(qty(5), false)
		assert.True(t, apperror.IsInsufficientStock(err))

		require.NoError(t, lvl.Issue(qty(3), false))
		assert.Equal(t, qty(7), lvl.Quantity)
		assert.Equal(t, qty(0), lvl.AvailableQty)
	})

	t.Run("negative allowed", func(t *testing.T) {
		lvl := New(id.New(), testKey(t))
		require.NoError(t, lvl.Issue(qty(3), true))
		assert.Equal(t, qty(-3), lvl.Quantity)
		assert.True(t, lvl.TotalCost.IsZero())
	})

	t.Run("non-positive quantity rejected", func(t *testing.T) {
		lvl := New(id.New(), testKey(t))
		assert.Error(t, lvl.Issue(qty(0), true))
		assert.Error(t, lvl.Issue(qty(-1), true))
	})
}

func TestReserveRelease(t *testing.T) {
	lvl := New(id.New(), testKey(t))
	require.NoError(t, lvl.Receive(qty(10), types.MustCost("10")))

	require.NoError(t, lvl.Reserve(qty(6)))
	assert.Equal(t, qty(6), lvl.ReservedQty)
	assert.Equal(t, qty(4), lvl.AvailableQty)

	t.Run("reserve beyond available fails", func(t *testing.T) {
		err := lvl.Reserve(qty(5))
		assert.True(t, apperror.IsInsufficientStock(err))
	})

	require.NoError(t, lvl.Release(qty(6)))
	assert.Equal(t, qty(0), lvl.ReservedQty)
	assert.Equal(t, qty(10), lvl.AvailableQty)

	t.Run("double release fails without mutation", func(t *testing.T) {
		err := lvl.Release(qty(1))
		require.Error(t, err)
		assert.True(t, apperror.HasCode(err, apperror.CodeInvalidStockOperation))
		assert.Equal(t, qty(0), lvl.ReservedQty)
	})
}

func TestSetQuantity(t *testing.T) {
	lvl := New(id.New(), testKey(t))
	require.NoError(t, lvl.Receive(qty(100), types.MustCost("10")))

	variance := lvl.SetQuantity(qty(97))
	assert.Equal(t, qty(-3), variance)
	assert.Equal(t, qty(97), lvl.Quantity)

	t.Run("negative count clamps to zero", func(t *testing.T) {
		variance := lvl.SetQuantity(qty(-4))
		assert.Equal(t, qty(-97), variance)
		assert.Equal(t, qty(0), lvl.Quantity)
	})
}

func TestLockOrderIsTotal(t *testing.T) {
	wh := id.New()
	variant := id.New()

	a := Key{WarehouseID: wh, Item: VariantItem(variant), Status: StatusOnHand}
	b := Key{WarehouseID: wh, Item: VariantItem(variant), Status: StatusTruckStock}

	assert.NotEqual(t, a.LockOrder(), b.LockOrder())
	// Order must agree regardless of which side asks.
	assert.Equal(t, a.LockOrder() < b.LockOrder(), !(b.LockOrder() < a.LockOrder()))
}
