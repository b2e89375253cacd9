// Package main is the entry point for the inventory ledger API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nadirsultanli/OMS-sub000/internal/core/policy"
	"github.com/nadirsultanli/OMS-sub000/internal/core/tenant"
	"github.com/nadirsultanli/OMS-sub000/internal/domain/auth"
	v1 "github.com/nadirsultanli/OMS-sub000/internal/infrastructure/http/v1"
	"github.com/nadirsultanli/OMS-sub000/internal/infrastructure/storage/postgres"
	"github.com/nadirsultanli/OMS-sub000/internal/infrastructure/storage/postgres/tenant_repo"
	"github.com/nadirsultanli/OMS-sub000/pkg/docnumber"
	"github.com/nadirsultanli/OMS-sub000/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting inventory ledger server")

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(mustEnv("DATABASE_URL"))
	if maxConns := getEnvInt("DB_MAX_CONNS", 0); maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)

	// --- Tenant registry ---
	registryTTL := getEnvDuration("TENANT_CACHE_TTL", 5*time.Minute)
	registry := tenant.NewCachedRegistry(tenant_repo.New(txManager), registryTTL)

	// --- JWT ---
	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(mustEnv("JWT_SECRET")))

	// --- Document numbering ---
	numberOpts := docnumber.DefaultOptions()
	if getEnv("DOC_NUMBER_STRATEGY", "strict") == "cached" {
		numberOpts.Strategy = docnumber.StrategyCached
		if size := getEnvInt("DOC_NUMBER_RANGE_SIZE", 0); size > 0 {
			numberOpts.RangeSize = int64(size)
		}
	}
	// Route the generator through the transaction manager so numbers
	// allocate inside the creating transaction and roll back with it.
	numbers := docnumber.New(txManager, numberOpts)

	// --- Negative stock policy ---
	negPolicy, err := policy.NewNegativeStockEvaluator()
	if err != nil {
		log.Fatalw("failed to initialize negative stock policy", "error", err)
	}

	// --- Audit trail ---
	trail, err := postgres.NewAuditStore(txManager)
	if err != nil {
		log.Fatalw("failed to initialize audit store", "error", err)
	}

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:           pool,
		TxManager:      txManager,
		TenantRegistry: registry,
		Logger:         log,
		JWTValidator:   jwtService,
		Numbers:        numbers,
		NegPolicy:      negPolicy,
		Trail:          trail,
	})

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
