// Package tenant_repo provides the PostgreSQL backing store for the tenant
// registry.
package tenant_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/nadirsultanli/OMS-sub000/internal/core/apperror"
	"github.com/nadirsultanli/OMS-sub000/internal/core/id"
	"github.com/nadirsultanli/OMS-sub000/internal/core/tenant"
	"github.com/nadirsultanli/OMS-sub000/internal/infrastructure/storage/postgres"
)

const tenantsTable = "tenants"

var tenantColumns = []string{
	"id", "code", "name", "negative_stock_rule", "active",
}

// Repo implements tenant.Registry.
type Repo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ tenant.Registry = (*Repo)(nil)

// New creates a new tenant registry store.
func New(txManager *postgres.TxManager) *Repo {
	return &Repo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Get returns the tenant by ID, or NOT_FOUND. Inactive tenants resolve too;
// rejecting them is the transport layer's call.
func (r *Repo) Get(ctx context.Context, tenantID id.ID) (*tenant.Tenant, error) {
	q := r.builder.Select(tenantColumns...).
		From(tenantsTable).
		Where(squirrel.Eq{"id": tenantID})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var t tenant.Tenant
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &t, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("tenant", tenantID)
		}
		return nil, fmt.Errorf("get tenant: %w", err)
	}

	return &t, nil
}
