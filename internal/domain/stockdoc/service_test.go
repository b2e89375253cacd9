package stockdoc

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadirsultanli/OMS-sub000/internal/core/apperror"
	"github.com/nadirsultanli/OMS-sub000/internal/core/id"
	"github.com/nadirsultanli/OMS-sub000/internal/core/policy"
	"github.com/nadirsultanli/OMS-sub000/internal/core/tenant"
	"github.com/nadirsultanli/OMS-sub000/internal/core/types"
	"github.com/nadirsultanli/OMS-sub000/internal/domain/audit"
	"github.com/nadirsultanli/OMS-sub000/internal/domain/stocklevel"
)

// --- fakes ---

// fakeLevels is an in-memory stocklevel.Repository that supports snapshot
// restore, so the fake transaction manager can emulate rollback.
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

func (r *fakeLevels) restore(snap map[string]*stocklevel.StockLevel) { r.rows = snap }

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
	var out []stocklevel.StockLevel
	for _, row := range r.rows {
		out = append(out, *row)
	}
	return out, nil
}

// fakeDocs is an in-memory Repository with optimistic version checks.
type fakeDocs struct {
	docs  map[id.ID]*StockDoc
	lines map[id.ID][]StockDocLine
}

func newFakeDocs() *fakeDocs {
	return &fakeDocs{
		docs:  make(map[id.ID]*StockDoc),
		lines: make(map[id.ID][]StockDocLine),
	}
}

func (r *fakeDocs) snapshot() (map[id.ID]*StockDoc, map[id.ID][]StockDocLine) {
	docs := make(map[id.ID]*StockDoc, len(r.docs))
	for k, v := range r.docs {
		doc := *v
		docs[k] = &doc
	}
	lines := make(map[id.ID][]StockDocLine, len(r.lines))
	for k, v := range r.lines {
		lines[k] = append([]StockDocLine(nil), v...)
	}
	return docs, lines
}

func (r *fakeDocs) restore(docs map[id.ID]*StockDoc, lines map[id.ID][]StockDocLine) {
	r.docs = docs
	r.lines = lines
}

func (r *fakeDocs) Create(ctx context.Context, doc *StockDoc) error {
	cp := *doc
	cp.Lines = nil
	r.docs[doc.ID] = &cp
	return nil
}

func (r *fakeDocs) Update(ctx context.Context, doc *StockDoc) error {
	stored, ok := r.docs[doc.ID]
	if !ok {
		return apperror.NewNotFound("stock document", doc.ID)
	}
	if stored.Version != doc.Version {
		return apperror.NewConcurrentModification("stock document", doc.ID)
	}
	cp := *doc
	cp.Version++
	cp.Lines = nil
	r.docs[doc.ID] = &cp
	doc.Version = cp.Version
	return nil
}

func (r *fakeDocs) GetByID(ctx context.Context, docID id.ID) (*StockDoc, error) {
	doc, ok := r.docs[docID]
	if !ok {
		return nil, apperror.NewNotFound("stock document", docID)
	}
	cp := *doc
	return &cp, nil
}

func (r *fakeDocs) GetByIDForUpdate(ctx context.Context, docID id.ID) (*StockDoc, error) {
	return r.GetByID(ctx, docID)
}

func (r *fakeDocs) GetLines(ctx context.Context, docID id.ID) ([]StockDocLine, error) {
	return append([]StockDocLine(nil), r.lines[docID]...), nil
}

func (r *fakeDocs) SaveLines(ctx context.Context, docID id.ID, lines []StockDocLine) error {
	r.lines[docID] = append([]StockDocLine(nil), lines...)
	return nil
}

func (r *fakeDocs) FindByRef(ctx context.Context, refDocType string, refDocID id.ID, docType DocType) ([]StockDoc, error) {
	var out []StockDoc
	for _, doc := range r.docs {
		if doc.Status == StatusCancelled || doc.DocType != docType {
			continue
		}
		if doc.RefDocID != nil && *doc.RefDocID == refDocID && doc.RefDocType == refDocType {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (r *fakeDocs) List(ctx context.Context, filter ListFilter) ([]StockDoc, error) {
	var out []StockDoc
	for _, doc := range r.docs {
		if filter.DocType != nil && doc.DocType != *filter.DocType {
			continue
		}
		if filter.Status != nil && doc.Status != *filter.Status {
			continue
		}
		out = append(out, *doc)
	}
	return out, nil
}

// snapshotTx emulates transactional rollback over the two fake stores.
type snapshotTx struct {
	levels *fakeLevels
	docs   *fakeDocs
}

func (t snapshotTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	levelSnap := t.levels.snapshot()
	docSnap, lineSnap := t.docs.snapshot()
	if err := fn(ctx); err != nil {
		t.levels.restore(levelSnap)
		t.docs.restore(docSnap, lineSnap)
		return err
	}
	return nil
}

type fakeNumbers struct{ n int64 }

func (g *fakeNumbers) Next(ctx context.Context, docType string) (string, error) {
	g.n++
	return fmt.Sprintf("%s-%06d", docType, g.n), nil
}

// markKey tags contexts handed to transaction callbacks so collaborators can
// prove they ran inside one.
type markKey struct{}

// markingTx wraps snapshotTx and stamps the callback context.
type markingTx struct{ snapshotTx }

func (t markingTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return t.snapshotTx.RunInTransaction(context.WithValue(ctx, markKey{}, true), fn)
}

// txBoundNumbers refuses to hand out a number unless the context carries the
// transaction mark.
type txBoundNumbers struct{ fakeNumbers }

func (g *txBoundNumbers) Next(ctx context.Context, docType string) (string, error) {
	if ctx.Value(markKey{}) == nil {
		return "", fmt.Errorf("number requested outside a transaction")
	}
	return g.fakeNumbers.Next(ctx, docType)
}

type captureTrail struct{ entries []audit.Entry }

func (c *captureTrail) Record(ctx context.Context, entry audit.Entry) error {
	c.entries = append(c.entries, entry)
	return nil
}

// --- harness ---

type harness struct {
	svc    *Service
	stock  *stocklevel.Service
	levels *fakeLevels
	docs   *fakeDocs
	trail  *captureTrail
	ctx    context.Context
	tenant id.ID
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	levels := newFakeLevels()
	docs := newFakeDocs()
	trail := &captureTrail{}
	txm := snapshotTx{levels: levels, docs: docs}

	eval, err := policy.NewNegativeStockEvaluator()
	require.NoError(t, err)
	stock := stocklevel.NewService(levels, txm, eval)

	tenantID := id.New()
	ctx := tenant.WithTenant(context.Background(), &tenant.Tenant{ID: tenantID, Code: "acme"})

	return &harness{
		svc:    NewService(docs, stock, &fakeNumbers{}, txm, trail),
		stock:  stock,
		levels: levels,
		docs:   docs,
		trail:  trail,
		ctx:    ctx,
		tenant: tenantID,
	}
}

func (h *harness) onHand(t *testing.T, wh id.ID, variant id.ID) types.Quantity {
	t.Helper()
	key := stocklevel.Key{WarehouseID: wh, Item: stocklevel.VariantItem(variant), Status: stocklevel.StatusOnHand}
	avail, err := h.stock.GetAvailable(h.ctx, key)
	require.NoError(t, err)
	return avail
}

func (h *harness) seed(t *testing.T, wh id.ID, variant id.ID, q types.Quantity, cost string) {
	t.Helper()
	key := stocklevel.Key{WarehouseID: wh, Item: stocklevel.VariantItem(variant), Status: stocklevel.StatusOnHand}
	require.NoError(t, h.stock.Receive(h.ctx, key, q, types.MustCost(cost)))
}

// --- tests ---

func TestCreateAssignsNumber(t *testing.T) {
	h := newHarness(t)

	doc := New(h.tenant, DocTypeReceipt)
	doc.DestWarehouseID = idPtr(id.New())
	doc.AddLine(id.New(), "", qty(10), types.MustCost("9"))

	require.NoError(t, h.svc.Create(h.ctx, doc))
	assert.Equal(t, "RECEIPT-000001", doc.DocNo)

	stored, err := h.svc.GetByID(h.ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, stored.Status)
	assert.Len(t, stored.Lines, 1)
}

func TestCreateAllocatesNumberInTransaction(t *testing.T) {
	h := newHarness(t)
	txm := markingTx{snapshotTx{levels: h.levels, docs: h.docs}}
	svc := NewService(h.docs, h.stock, &txBoundNumbers{}, txm, h.trail)

	doc := New(h.tenant, DocTypeReceipt)
	doc.DestWarehouseID = idPtr(id.New())
	doc.AddLine(id.New(), "", qty(5), types.MustCost("3"))

	require.NoError(t, svc.Create(h.ctx, doc))
	assert.Equal(t, "RECEIPT-000001", doc.DocNo)
}

func TestCreateRejectsDuplicateRef(t *testing.T) {
	h := newHarness(t)
	orderID := id.New()

	mkDoc := func() *StockDoc {
		doc := New(h.tenant, DocTypeIssue)
		doc.SourceWarehouseID = idPtr(id.New())
		doc.RefDocType = "order"
		doc.RefDocID = idPtr(orderID)
		doc.AddLine(id.New(), "", qty(1), types.ZeroCost())
		return doc
	}

	require.NoError(t, h.svc.Create(h.ctx, mkDoc()))

	err := h.svc.Create(h.ctx, mkDoc())
	assert.True(t, apperror.IsDuplicate(err))
}

func TestPostReceipt(t *testing.T) {
	h := newHarness(t)
	wh := id.New()
	variant := id.New()

	doc := New(h.tenant, DocTypeReceipt)
	doc.DestWarehouseID = idPtr(wh)
	doc.AddLine(variant, "", qty(40), types.MustCost("8.25"))
	require.NoError(t, h.svc.Create(h.ctx, doc))

	posted, err := h.svc.Post(h.ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPosted, posted.Status)
	assert.NotNil(t, posted.PostedAt)
	assert.Equal(t, qty(40), h.onHand(t, wh, variant))

	require.Len(t, h.trail.entries, 1)
	assert.Equal(t, audit.ActionPost, h.trail.entries[0].Action)
	assert.Equal(t, posted.DocNo, h.trail.entries[0].DocNo)

	t.Run("double post rejected", func(t *testing.T) {
		_, err := h.svc.Post(h.ctx, doc.ID)
		assert.True(t, apperror.HasCode(err, apperror.CodeStatusTransition))
	})
}

func TestPostIsAllOrNothing(t *testing.T) {
	h := newHarness(t)
	wh := id.New()
	plenty := id.New()
	scarce := id.New()
	h.seed(t, wh, plenty, qty(100), "5")
	h.seed(t, wh, scarce, qty(1), "5")

	doc := New(h.tenant, DocTypeIssue)
	doc.SourceWarehouseID = idPtr(wh)
	doc.AddLine(plenty, "", qty(10), types.ZeroCost())
	doc.AddLine(scarce, "", qty(5), types.ZeroCost())
	require.NoError(t, h.svc.Create(h.ctx, doc))

	_, err := h.svc.Post(h.ctx, doc.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	assert.Equal(t, qty(100), h.onHand(t, wh, plenty), "first line must be rolled back")
	assert.Equal(t, qty(1), h.onHand(t, wh, scarce))

	stored, err := h.svc.GetByID(h.ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, stored.Status)
}

func TestCancelPostedReceiptRejected(t *testing.T) {
	h := newHarness(t)
	wh := id.New()
	variant := id.New()

	doc := New(h.tenant, DocTypeReceipt)
	doc.DestWarehouseID = idPtr(wh)
	doc.AddLine(variant, "", qty(20), types.MustCost("4"))
	require.NoError(t, h.svc.Create(h.ctx, doc))
	_, err := h.svc.Post(h.ctx, doc.ID)
	require.NoError(t, err)

	_, err = h.svc.Cancel(h.ctx, doc.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeStatusTransition))

	stored, err := h.svc.GetByID(h.ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPosted, stored.Status)
	assert.Equal(t, qty(20), h.onHand(t, wh, variant), "posted movements must stand")

	require.Len(t, h.trail.entries, 1)
	assert.Equal(t, audit.ActionPost, h.trail.entries[0].Action)
}

func TestPostTransferWarehouse(t *testing.T) {
	h := newHarness(t)
	src := id.New()
	dst := id.New()
	variant := id.New()
	h.seed(t, src, variant, qty(30), "6")

	doc := New(h.tenant, DocTypeTransferWarehouse)
	doc.SourceWarehouseID = idPtr(src)
	doc.DestWarehouseID = idPtr(dst)
	doc.AddLine(variant, "", qty(12), types.ZeroCost())
	require.NoError(t, h.svc.Create(h.ctx, doc))

	_, err := h.svc.Post(h.ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, qty(18), h.onHand(t, src, variant))
	assert.Equal(t, qty(12), h.onHand(t, dst, variant))
}

func TestPostTruckTransfer(t *testing.T) {
	h := newHarness(t)
	depot := id.New()
	variant := id.New()
	h.seed(t, depot, variant, qty(50), "5")

	truckKey := stocklevel.Key{
		WarehouseID: depot,
		Item:        stocklevel.VariantItem(variant),
		Status:      stocklevel.StatusTruckStock,
	}

	t.Run("outbound load moves to truck stock", func(t *testing.T) {
		doc := New(h.tenant, DocTypeTransferTruck)
		doc.SourceWarehouseID = idPtr(depot)
		doc.AddLine(variant, "", qty(15), types.ZeroCost())
		require.NoError(t, h.svc.Create(h.ctx, doc))

		_, err := h.svc.Post(h.ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, qty(35), h.onHand(t, depot, variant))

		truck, err := h.stock.GetAvailable(h.ctx, truckKey)
		require.NoError(t, err)
		assert.Equal(t, qty(15), truck)
	})

	t.Run("return unload lands on the destination shelf", func(t *testing.T) {
		other := id.New()

		doc := New(h.tenant, DocTypeTransferTruck)
		doc.SourceWarehouseID = idPtr(depot)
		doc.DestWarehouseID = idPtr(other)
		doc.AddLine(variant, "", qty(15), types.ZeroCost())
		require.NoError(t, h.svc.Create(h.ctx, doc))

		_, err := h.svc.Post(h.ctx, doc.ID)
		require.NoError(t, err)

		truck, err := h.stock.GetAvailable(h.ctx, truckKey)
		require.NoError(t, err)
		assert.Equal(t, qty(0), truck)
		assert.Equal(t, qty(15), h.onHand(t, other, variant))
	})
}

func TestPostAdjustmentVariance(t *testing.T) {
	h := newHarness(t)
	wh := id.New()
	found := id.New()
	lost := id.New()
	h.seed(t, wh, lost, qty(2), "5")

	doc := New(h.tenant, DocTypeAdjustmentVariance)
	doc.SourceWarehouseID = idPtr(wh)
	doc.AddAdjustmentLine(found, "", DirectionIncrease, qty(3), types.MustCost("5"))
	doc.AddAdjustmentLine(lost, "", DirectionDecrease, qty(4), types.ZeroCost())
	require.NoError(t, h.svc.Create(h.ctx, doc))

	_, err := h.svc.Post(h.ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, qty(3), h.onHand(t, wh, found))
	// Write-downs record reality even past zero.
	assert.Equal(t, qty(-2), h.onHand(t, wh, lost))
}

func TestPostPhysicalCount(t *testing.T) {
	h := newHarness(t)
	wh := id.New()
	variant := id.New()
	h.seed(t, wh, variant, qty(100), "5")

	doc := New(h.tenant, DocTypePhysicalCount)
	doc.SourceWarehouseID = idPtr(wh)
	doc.AddLine(variant, "", qty(93), types.ZeroCost())
	require.NoError(t, h.svc.Create(h.ctx, doc))

	_, err := h.svc.Post(h.ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, qty(93), h.onHand(t, wh, variant))

	t.Run("posted count cannot be cancelled", func(t *testing.T) {
		_, err := h.svc.Cancel(h.ctx, doc.ID)
		assert.True(t, apperror.HasCode(err, apperror.CodeStatusTransition))
	})
}

func TestReconcileCountWritesAdjustmentDoc(t *testing.T) {
	h := newHarness(t)
	wh := id.New()
	variant := id.New()
	h.seed(t, wh, variant, qty(60), "5")

	key := stocklevel.Key{
		WarehouseID: wh,
		Item:        stocklevel.VariantItem(variant),
		Status:      stocklevel.StatusOnHand,
	}

	doc, result, err := h.svc.ReconcileCount(h.ctx, key, qty(57))
	require.NoError(t, err)
	assert.Equal(t, qty(60), result.SystemQtyBefore)
	assert.Equal(t, qty(-3), result.Variance)
	assert.Equal(t, qty(57), h.onHand(t, wh, variant))

	require.NotNil(t, doc)
	assert.Equal(t, DocTypeAdjustmentVariance, doc.DocType)
	assert.Equal(t, StatusPosted, doc.Status)
	require.Len(t, doc.Lines, 1)
	assert.Equal(t, DirectionDecrease, doc.Lines[0].Direction)
	assert.Equal(t, qty(3), doc.Lines[0].Quantity)

	require.Len(t, h.trail.entries, 1)
	assert.Equal(t, audit.ActionPost, h.trail.entries[0].Action)

	t.Run("clean count writes no document", func(t *testing.T) {
		doc, result, err := h.svc.ReconcileCount(h.ctx, key, qty(57))
		require.NoError(t, err)
		assert.Nil(t, doc)
		assert.Equal(t, qty(0), result.Variance)
	})
}

func TestCancelOpenDocLeavesStockAlone(t *testing.T) {
	h := newHarness(t)
	wh := id.New()
	variant := id.New()
	h.seed(t, wh, variant, qty(10), "5")

	doc := New(h.tenant, DocTypeIssue)
	doc.SourceWarehouseID = idPtr(wh)
	doc.AddLine(variant, "", qty(5), types.ZeroCost())
	require.NoError(t, h.svc.Create(h.ctx, doc))

	cancelled, err := h.svc.Cancel(h.ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Equal(t, qty(10), h.onHand(t, wh, variant))
}
