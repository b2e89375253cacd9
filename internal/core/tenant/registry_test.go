package tenant

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadirsultanli/OMS-sub000/internal/core/apperror"
	"github.com/nadirsultanli/OMS-sub000/internal/core/id"
)

type fakeRegistry struct {
	tenants map[id.ID]*Tenant
	calls   int
}

func (f *fakeRegistry) Get(_ context.Context, tenantID id.ID) (*Tenant, error) {
	f.calls++
	if t, ok := f.tenants[tenantID]; ok {
		return t, nil
	}
	return nil, apperror.NewNotFound("tenant", tenantID)
}

func TestCachedRegistryServesFromCache(t *testing.T) {
	tenantID := id.New()
	inner := &fakeRegistry{tenants: map[id.ID]*Tenant{
		tenantID: {ID: tenantID, Code: "acme", Active: true},
	}}
	reg := NewCachedRegistry(inner, time.Minute)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		got, err := reg.Get(ctx, tenantID)
		require.NoError(t, err)
		assert.Equal(t, "acme", got.Code)
	}

	assert.Equal(t, 1, inner.calls)
}

func TestCachedRegistryInvalidate(t *testing.T) {
	tenantID := id.New()
	inner := &fakeRegistry{tenants: map[id.ID]*Tenant{
		tenantID: {ID: tenantID, Code: "acme", Active: true},
	}}
	reg := NewCachedRegistry(inner, time.Minute)

	ctx := context.Background()
	_, err := reg.Get(ctx, tenantID)
	require.NoError(t, err)

	inner.tenants[tenantID].NegativeStockRule = "doc_type == 'ISSUE'"
	reg.Invalidate(tenantID)

	got, err := reg.Get(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, "doc_type == 'ISSUE'", got.NegativeStockRule)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedRegistryMissIsNotCached(t *testing.T) {
	inner := &fakeRegistry{tenants: map[id.ID]*Tenant{}}
	reg := NewCachedRegistry(inner, time.Minute)

	ctx := context.Background()
	unknown := id.New()

	_, err := reg.Get(ctx, unknown)
	assert.True(t, apperror.IsNotFound(err))

	_, err = reg.Get(ctx, unknown)
	assert.True(t, apperror.IsNotFound(err))
	assert.Equal(t, 2, inner.calls)
}

func TestTenantContextRoundTrip(t *testing.T) {
	tn := &Tenant{ID: id.New(), Code: "acme", Active: true}
	ctx := WithTenant(context.Background(), tn)

	assert.Equal(t, tn, GetTenant(ctx))

	got, err := GetID(ctx)
	require.NoError(t, err)
	assert.Equal(t, tn.ID, got)

	_, err = GetID(context.Background())
	assert.ErrorIs(t, err, ErrNoTenantInContext)
}

func TestMustIDPanicsWithoutTenant(t *testing.T) {
	assert.Panics(t, func() {
		MustID(context.Background())
	})
}
