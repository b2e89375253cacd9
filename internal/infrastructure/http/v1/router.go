// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/nadirsultanli/OMS-sub000/internal/core/policy"
	"github.com/nadirsultanli/OMS-sub000/internal/core/tenant"
	"github.com/nadirsultanli/OMS-sub000/internal/domain/audit"
	"github.com/nadirsultanli/OMS-sub000/internal/domain/reservation"
	"github.com/nadirsultanli/OMS-sub000/internal/domain/stockdoc"
	"github.com/nadirsultanli/OMS-sub000/internal/domain/stocklevel"
	"github.com/nadirsultanli/OMS-sub000/internal/domain/trip"
	"github.com/nadirsultanli/OMS-sub000/internal/infrastructure/http/v1/handlers"
	"github.com/nadirsultanli/OMS-sub000/internal/infrastructure/http/v1/middleware"
	"github.com/nadirsultanli/OMS-sub000/internal/infrastructure/storage/postgres"
	"github.com/nadirsultanli/OMS-sub000/internal/infrastructure/storage/postgres/document_repo"
	"github.com/nadirsultanli/OMS-sub000/internal/infrastructure/storage/postgres/level_repo"
	"github.com/nadirsultanli/OMS-sub000/internal/infrastructure/storage/postgres/reservation_repo"
	"github.com/nadirsultanli/OMS-sub000/internal/infrastructure/storage/postgres/trip_repo"
	"github.com/nadirsultanli/OMS-sub000/pkg/docnumber"
	"github.com/nadirsultanli/OMS-sub000/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Pool is the shared database connection pool.
	Pool *postgres.Pool

	// TxManager coordinates transactions for all repositories.
	TxManager *postgres.TxManager

	// TenantRegistry resolves tenants from the X-Tenant-ID header.
	TenantRegistry tenant.Registry

	// Logger for request logging.
	Logger *logger.Logger

	// JWTValidator for token validation.
	JWTValidator middleware.JWTValidator

	// Numbers generates document numbers.
	Numbers docnumber.Generator

	// NegPolicy evaluates tenant negative-stock rules.
	NegPolicy *policy.NegativeStockEvaluator

	// Trail records document posting history.
	Trail *postgres.AuditStore
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth, no tenant required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	// Wire repositories and services once; tenant scope travels in the
	// request context, not in the constructors.
	levelRepo := level_repo.New(cfg.TxManager)
	docRepo := document_repo.New(cfg.TxManager)
	resRepo := reservation_repo.New(cfg.TxManager)
	tripRepo := trip_repo.New(cfg.TxManager)

	var trail audit.Recorder
	if cfg.Trail != nil {
		trail = cfg.Trail
	}

	stockService := stocklevel.NewService(levelRepo, cfg.TxManager, cfg.NegPolicy)
	docService := stockdoc.NewService(docRepo, stockService, cfg.Numbers, cfg.TxManager, trail)
	resService := reservation.NewService(resRepo, stockService, cfg.TxManager)
	tripService := trip.NewService(tripRepo, docService, stockService, cfg.TxManager)

	baseHandler := handlers.NewBaseHandler()

	// API v1
	apiV1 := router.Group("/api/v1")
	apiV1.Use(middleware.Tenant(cfg.TenantRegistry)) // 1. Resolve tenant
	apiV1.Use(middleware.Auth(cfg.JWTValidator))     // 2. Validate JWT
	{
		handlers.NewStockLevelHandler(baseHandler, stockService, docService).RegisterRoutes(apiV1)
		handlers.NewStockDocHandler(baseHandler, docService).RegisterRoutes(apiV1)
		handlers.NewReservationHandler(baseHandler, resService).RegisterRoutes(apiV1)
		handlers.NewTripHandler(baseHandler, tripService).RegisterRoutes(apiV1)

		if cfg.Trail != nil {
			handlers.NewAuditHandler(baseHandler, cfg.Trail).RegisterRoutes(apiV1)
		}
	}

	return router
}
