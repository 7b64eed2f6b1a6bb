// Package main is the entry point for the tannery API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tannery/internal/domain/auth"
	"tannery/internal/domain/catalogs/product"
	"tannery/internal/domain/catalogs/shelf"
	"tannery/internal/domain/invoicing"
	"tannery/internal/domain/ledger"
	"tannery/internal/infrastructure/cache"
	v1 "tannery/internal/infrastructure/http/v1"
	"tannery/internal/infrastructure/storage/postgres"
	"tannery/internal/infrastructure/storage/postgres/auth_repo"
	"tannery/internal/infrastructure/storage/postgres/catalog_repo"
	"tannery/internal/infrastructure/storage/postgres/ledger_repo"
	"tannery/pkg/logger"
	"tannery/pkg/numerator"
)

func main() {
	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting tannery server")

	// --- Database connection ---
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

	// --- Repositories ---
	movementRepo := ledger_repo.NewRepo(txManager)
	productRepo := catalog_repo.NewProductRepo(txManager)
	shelfRepo := catalog_repo.NewShelfRepo(txManager)
	userRepo := auth_repo.NewUserRepo(txManager)
	tokenRepo := auth_repo.NewTokenRepo(txManager)

	movementAudit, err := postgres.NewMovementAudit(txManager)
	if err != nil {
		log.Fatalw("failed to initialize movement audit", "error", err)
	}

	// --- JWT Service ---
	jwtSecret := getEnv("JWT_SECRET", "your-secret-key-change-in-production")
	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(jwtSecret))

	// --- Services ---
	// Voucher numbers are allocated outside business transactions; gaps
	// from aborted requests are acceptable.
	numbers := numerator.New(pool)

	// Unit lookups for conversion are cached; catalog updates push
	// invalidations over LISTEN/NOTIFY.
	unitsCache := cache.NewProductUnitsCache(productRepo, pool.Unwrap())
	if err := unitsCache.Start(ctx); err != nil {
		log.Fatalw("failed to start product units cache", "error", err)
	}
	defer unitsCache.Stop()

	// Periodic pool stats for operators tailing the logs.
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				postgres.LogPoolStats(ctx, pool.Unwrap())
			}
		}
	}()

	authService := auth.NewService(userRepo, tokenRepo, txManager, jwtService, auth.DefaultServiceConfig())
	ledgerService := ledger.NewService(movementRepo, unitsCache, txManager, movementAudit, numbers)
	trigger := invoicing.NewTrigger(ledgerService, movementRepo, txManager)
	productService := product.NewService(productRepo, txManager)
	shelfService := shelf.NewService(shelfRepo, txManager)

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:           pool,
		Logger:         log,
		JWTValidator:   jwtService,
		AuthService:    authService,
		LedgerService:  ledgerService,
		MovementAudit:  movementAudit,
		Trigger:        trigger,
		ProductService: productService,
		ShelfService:   shelfService,
		UnitsCache:     unitsCache,
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

	// Start server in goroutine
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
