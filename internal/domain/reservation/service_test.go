package reservation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadirsultanli/OMS-sub000/internal/core/apperror"
	"github.com/nadirsultanli/OMS-sub000/internal/core/id"
	"github.com/nadirsultanli/OMS-sub000/internal/core/tenant"
	"github.com/nadirsultanli/OMS-sub000/internal/core/types"
	"github.com/nadirsultanli/OMS-sub000/internal/domain/stocklevel"
)

func qty(v int64) types.Quantity { return types.NewQuantityFromInt(v) }

type fakeLevels struct {
	rows map[string]*stocklevel.StockLevel
}

func newFakeLevels() *fakeLevels {
	return &fakeLevels{rows: make(map[string]*stocklevel.StockLevel)}
}

func (r *fakeLevels) snapshot() map[string]*stocklevel.StockLevel {
	cp := make(map[string]*stocklevel.StockLevel, len(r.rows))
	for k, v := range r.rows {
		row := *v
		cp[k] = &row
	}
	return cp
}

func (r *fakeLevels) Get(ctx context.Context, key stocklevel.Key) (*stocklevel.StockLevel, error) {
	row, ok := r.rows[key.LockOrder()]
	if !ok {
		return nil, apperror.NewNotFound("stock level", key.String())
	}
	cp := *row
	return &cp, nil
}

func (r *fakeLevels) GetForUpdate(ctx context.Context, key stocklevel.Key) (*stocklevel.StockLevel, error) {
	return r.Get(ctx, key)
}

func (r *fakeLevels) EnsureExists(ctx context.Context, key stocklevel.Key) error {
	if _, ok := r.rows[key.LockOrder()]; !ok {
		r.rows[key.LockOrder()] = stocklevel.New(tenant.MustID(ctx), key)
	}
	return nil
}

func (r *fakeLevels) Save(ctx context.Context, level *stocklevel.StockLevel) error {
	cp := *level
	r.rows[level.Key().LockOrder()] = &cp
	return nil
}

func (r *fakeLevels) List(ctx context.Context, filter stocklevel.Filter) ([]stocklevel.StockLevel, error) {
	return nil, nil
}

type fakeResRepo struct {
	rows map[id.ID]*Reservation
}

func newFakeResRepo() *fakeResRepo {
	return &fakeResRepo{rows: make(map[id.ID]*Reservation)}
}

func (r *fakeResRepo) snapshot() map[id.ID]*Reservation {
	cp := make(map[id.ID]*Reservation, len(r.rows))
	for k, v := range r.rows {
		row := *v
		cp[k] = &row
	}
	return cp
}

func (r *fakeResRepo) Create(ctx context.Context, res *Reservation) error {
	cp := *res
	r.rows[res.ID] = &cp
	return nil
}

func (r *fakeResRepo) ListByOrder(ctx context.Context, orderID id.ID, status *Status) ([]Reservation, error) {
	var out []Reservation
	for _, row := range r.rows {
		if row.OrderID != orderID {
			continue
		}
		if status != nil && row.Status != *status {
			continue
		}
		out = append(out, *row)
	}
	return out, nil
}

func (r *fakeResRepo) UpdateStatus(ctx context.Context, resID id.ID, status Status) error {
	row, ok := r.rows[resID]
	if !ok {
		return apperror.NewNotFound("reservation", resID)
	}
	row.Status = status
	now := time.Now().UTC()
	row.ReleasedAt = &now
	return nil
}

type snapshotTx struct {
	levels *fakeLevels
	res    *fakeResRepo
}

func (t snapshotTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	levelSnap := t.levels.snapshot()
	resSnap := t.res.snapshot()
	if err := fn(ctx); err != nil {
		t.levels.rows = levelSnap
		t.res.rows = resSnap
		return err
	}
	return nil
}

type harness struct {
	svc    *Service
	stock  *stocklevel.Service
	levels *fakeLevels
	ctx    context.Context
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	levels := newFakeLevels()
	resRepo := newFakeResRepo()
	txm := snapshotTx{levels: levels, res: resRepo}

	stock := stocklevel.NewService(levels, txm, nil)
	ctx := tenant.WithTenant(context.Background(), &tenant.Tenant{ID: id.New(), Code: "acme"})

	return &harness{
		svc:    NewService(resRepo, stock, txm),
		stock:  stock,
		levels: levels,
		ctx:    ctx,
	}
}

func (h *harness) seed(t *testing.T, wh, variant id.ID, q types.Quantity) {
	t.Helper()
	key := stocklevel.Key{WarehouseID: wh, Item: stocklevel.VariantItem(variant), Status: stocklevel.StatusOnHand}
	require.NoError(t, h.stock.Receive(h.ctx, key, q, types.MustCost("5")))
}

func (h *harness) available(t *testing.T, wh, variant id.ID) types.Quantity {
	t.Helper()
	key := stocklevel.Key{WarehouseID: wh, Item: stocklevel.VariantItem(variant), Status: stocklevel.StatusOnHand}
	avail, err := h.stock.GetAvailable(h.ctx, key)
	require.NoError(t, err)
	return avail
}

func TestReserveForOrder(t *testing.T) {
	h := newHarness(t)
	wh := id.New()
	a := id.New()
	b := id.New()
	h.seed(t, wh, a, qty(10))
	h.seed(t, wh, b, qty(4))

	result, err := h.svc.ReserveForOrder(h.ctx, id.New(), wh, []Line{
		{VariantID: a, Quantity: qty(6)},
		{VariantID: b, Quantity: qty(4)},
	})
	require.NoError(t, err)
	assert.Len(t, result.Reservations, 2)

	// Each line reports what was still available right after its earmark.
	require.Len(t, result.Remaining, 2)
	assert.Equal(t, a, result.Remaining[0].VariantID)
	assert.Equal(t, qty(4), result.Remaining[0].Remaining)
	assert.Equal(t, b, result.Remaining[1].VariantID)
	assert.Equal(t, qty(0), result.Remaining[1].Remaining)

	assert.Equal(t, qty(4), h.available(t, wh, a))
	assert.Equal(t, qty(0), h.available(t, wh, b))
}

func TestReserveIsAllOrNothing(t *testing.T) {
	h := newHarness(t)
	wh := id.New()
	a := id.New()
	b := id.New()
	h.seed(t, wh, a, qty(10))
	h.seed(t, wh, b, qty(1))

	orderID := id.New()
	_, err := h.svc.ReserveForOrder(h.ctx, orderID, wh, []Line{
		{VariantID: a, Quantity: qty(6)},
		{VariantID: b, Quantity: qty(3)},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	assert.Equal(t, qty(10), h.available(t, wh, a), "first line must be rolled back")

	all, err := h.svc.GetByOrder(h.ctx, orderID)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestReserveTwiceRejected(t *testing.T) {
	h := newHarness(t)
	wh := id.New()
	variant := id.New()
	h.seed(t, wh, variant, qty(10))

	orderID := id.New()
	lines := []Line{{VariantID: variant, Quantity: qty(2)}}
	_, err := h.svc.ReserveForOrder(h.ctx, orderID, wh, lines)
	require.NoError(t, err)

	_, err = h.svc.ReserveForOrder(h.ctx, orderID, wh, lines)
	assert.True(t, apperror.IsDuplicate(err))
}

func TestReleaseForOrder(t *testing.T) {
	h := newHarness(t)
	wh := id.New()
	variant := id.New()
	h.seed(t, wh, variant, qty(10))

	orderID := id.New()
	_, err := h.svc.ReserveForOrder(h.ctx, orderID, wh, []Line{{VariantID: variant, Quantity: qty(7)}})
	require.NoError(t, err)
	require.Equal(t, qty(3), h.available(t, wh, variant))

	released, err := h.svc.ReleaseForOrder(h.ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, 1, released)
	assert.Equal(t, qty(10), h.available(t, wh, variant))

	t.Run("release is idempotent", func(t *testing.T) {
		released, err := h.svc.ReleaseForOrder(h.ctx, orderID)
		require.NoError(t, err)
		assert.Equal(t, 0, released)
		assert.Equal(t, qty(10), h.available(t, wh, variant))
	})
}

func TestFulfillForOrder(t *testing.T) {
	h := newHarness(t)
	wh := id.New()
	variant := id.New()
	h.seed(t, wh, variant, qty(10))

	orderID := id.New()
	_, err := h.svc.ReserveForOrder(h.ctx, orderID, wh, []Line{{VariantID: variant, Quantity: qty(7)}})
	require.NoError(t, err)

	fulfilled, err := h.svc.FulfillForOrder(h.ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, 1, fulfilled)
	// 10 on hand - 7 issued, nothing still reserved.
	assert.Equal(t, qty(3), h.available(t, wh, variant))

	all, err := h.svc.GetByOrder(h.ctx, orderID)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, StatusFulfilled, all[0].Status)
}

func TestReserveValidation(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.ReserveForOrder(h.ctx, id.Nil(), id.New(), []Line{{VariantID: id.New(), Quantity: qty(1)}})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = h.svc.ReserveForOrder(h.ctx, id.New(), id.New(), nil)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = h.svc.ReserveForOrder(h.ctx, id.New(), id.New(), []Line{{Quantity: qty(1)}})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}
