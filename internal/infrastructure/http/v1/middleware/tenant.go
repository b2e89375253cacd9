package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/nadirsultanli/OMS-sub000/internal/core/apperror"
	"github.com/nadirsultanli/OMS-sub000/internal/core/id"
	"github.com/nadirsultanli/OMS-sub000/internal/core/tenant"
	"github.com/nadirsultanli/OMS-sub000/pkg/logger"
)

// TenantHeader is the HTTP header for tenant identification.
const TenantHeader = "X-Tenant-ID"

// Tenant middleware resolves the tenant from the X-Tenant-ID header and
// stores it in the request context. This middleware MUST run before any
// repository access: repos panic without tenant scope.
func Tenant(registry tenant.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		rawTenantID := c.GetHeader(TenantHeader)
		if rawTenantID == "" {
			_ = c.Error(
				apperror.NewValidation("tenant is required").
					WithDetail("header", TenantHeader),
			)
			c.Abort()
			return
		}

		tenantID, err := id.Parse(rawTenantID)
		if err != nil {
			_ = c.Error(
				apperror.NewValidation("invalid tenant id").
					WithDetail("header", TenantHeader).
					WithDetail("value", rawTenantID),
			)
			c.Abort()
			return
		}

		t, err := registry.Get(ctx, tenantID)
		if err != nil {
			if apperror.IsNotFound(err) {
				_ = c.Error(apperror.NewNotFound("tenant", rawTenantID))
			} else {
				logger.Warn(ctx, "tenant lookup error", "tenant_id", rawTenantID, "error", err)
				_ = c.Error(apperror.NewInternal(err).WithDetail("tenant_id", rawTenantID))
			}
			c.Abort()
			return
		}

		if !t.Active {
			_ = c.Error(apperror.NewForbidden("tenant is not active").WithDetail("tenant_id", rawTenantID))
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(tenant.WithTenant(ctx, t))
		c.Set("tenant_id", t.ID.String())

		c.Next()
	}
}
