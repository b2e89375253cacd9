package docnumber

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadirsultanli/OMS-sub000/internal/core/id"
	"github.com/nadirsultanli/OMS-sub000/internal/core/tenant"
)

// fakeQuerier emulates the doc_sequences UPSERT: args are
// (tenant_id, doc_type [, increment]).
type fakeQuerier struct {
	counters map[string]int64
	queries  int
}

func newFakeQuerier() *fakeQuerier {
	return &fakeQuerier{counters: make(map[string]int64)}
}

type fakeRow struct {
	val int64
}

func (r fakeRow) Scan(dest ...any) error {
	*dest[0].(*int64) = r.val
	return nil
}

func (q *fakeQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	q.queries++
	key := args[0].(string) + ":" + args[1].(string)
	inc := int64(1)
	if len(args) > 2 {
		inc = args[2].(int64)
	}
	q.counters[key] += inc
	return fakeRow{val: q.counters[key]}
}

func testCtx() context.Context {
	return tenant.WithTenant(context.Background(), &tenant.Tenant{ID: id.New(), Code: "acme"})
}

func TestStrictNumbersAreSequential(t *testing.T) {
	svc := New(newFakeQuerier(), nil)
	ctx := testCtx()

	first, err := svc.Next(ctx, "RECEIPT")
	require.NoError(t, err)
	assert.Equal(t, "RECEIPT-000001", first)

	second, err := svc.Next(ctx, "RECEIPT")
	require.NoError(t, err)
	assert.Equal(t, "RECEIPT-000002", second)
}

func TestCountersArePerDocType(t *testing.T) {
	svc := New(newFakeQuerier(), nil)
	ctx := testCtx()

	_, err := svc.Next(ctx, "RECEIPT")
	require.NoError(t, err)

	issue, err := svc.Next(ctx, "ISSUE")
	require.NoError(t, err)
	assert.Equal(t, "ISSUE-000001", issue)
}

func TestCountersArePerTenant(t *testing.T) {
	svc := New(newFakeQuerier(), nil)

	_, err := svc.Next(testCtx(), "RECEIPT")
	require.NoError(t, err)

	other, err := svc.Next(testCtx(), "RECEIPT")
	require.NoError(t, err)
	assert.Equal(t, "RECEIPT-000001", other, "fresh tenant starts at 1")
}

func TestCachedReservesRanges(t *testing.T) {
	q := newFakeQuerier()
	svc := New(q, &Options{Strategy: StrategyCached, RangeSize: 10})
	ctx := testCtx()

	for i := int64(1); i <= 10; i++ {
		num, err := svc.Next(ctx, "ISSUE")
		require.NoError(t, err)
		assert.Equal(t, Format("ISSUE", i), num)
	}
	assert.Equal(t, 1, q.queries, "one round trip covers the whole range")

	num, err := svc.Next(ctx, "ISSUE")
	require.NoError(t, err)
	assert.Equal(t, "ISSUE-000011", num)
	assert.Equal(t, 2, q.queries)
}

func TestParse(t *testing.T) {
	assert.Equal(t, int64(42), Parse("RECEIPT-000042"))
	assert.Equal(t, int64(7), Parse("TRANSFER_TRUCK-000007"))
	assert.Equal(t, int64(-1), Parse("garbage"))
	assert.Equal(t, int64(-1), Parse("RECEIPT-"))
}
