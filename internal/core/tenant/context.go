// Package tenant provides explicit tenant scoping for ledger operations.
// Every ledger call runs on behalf of exactly one tenant; the tenant travels
// in the context and repositories scope all queries by it. There is no
// implicit session state.
package tenant

import (
	"context"
	"errors"

	"github.com/nadirsultanli/OMS-sub000/internal/core/id"
)

// Tenant describes one tenant of the distribution platform together with the
// ledger settings that vary per tenant.
type Tenant struct {
	ID   id.ID  `db:"id" json:"id"`
	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`

	// NegativeStockRule is a CEL expression deciding when issuing stock below
	// zero is permitted (backorder modeling). Empty means never.
	NegativeStockRule string `db:"negative_stock_rule" json:"negativeStockRule,omitempty"`

	Active bool `db:"active" json:"active"`
}

type ctxKey int

const tenantKey ctxKey = iota

// ErrNoTenantInContext is returned when a ledger call is made without tenant scope.
var ErrNoTenantInContext = errors.New("tenant not found in context")

// WithTenant stores tenant info in context.
func WithTenant(ctx context.Context, t *Tenant) context.Context {
	return context.WithValue(ctx, tenantKey, t)
}

// GetTenant retrieves tenant from context.
func GetTenant(ctx context.Context) *Tenant {
	t, _ := ctx.Value(tenantKey).(*Tenant)
	return t
}

// GetID returns the tenant ID from context, or an error when absent.
func GetID(ctx context.Context) (id.ID, error) {
	if t := GetTenant(ctx); t != nil {
		return t.ID, nil
	}
	return id.Nil(), ErrNoTenantInContext
}

// MustID returns the tenant ID or panics. Repositories use this: reaching a
// repository without tenant scope is a programming error, not a user error.
func MustID(ctx context.Context) id.ID {
	tid, err := GetID(ctx)
	if err != nil {
		panic("tenant not in context: " + err.Error())
	}
	return tid
}
