// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"tannery/internal/domain/auth"
	"tannery/internal/domain/catalogs/product"
	"tannery/internal/domain/catalogs/shelf"
	"tannery/internal/domain/invoicing"
	"tannery/internal/domain/ledger"
	"tannery/internal/infrastructure/cache"
	"tannery/internal/infrastructure/http/v1/handlers"
	"tannery/internal/infrastructure/http/v1/middleware"
	"tannery/internal/infrastructure/storage/postgres"
	"tannery/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Pool is the database connection pool (for health checks)
	Pool *postgres.Pool

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// AuthService for authentication endpoints
	AuthService *auth.Service

	// LedgerService records and queries stock movements
	LedgerService *ledger.Service

	// MovementAudit serves movement change history
	MovementAudit *postgres.MovementAudit

	// Trigger converts finalized documents into movements
	Trigger *invoicing.Trigger

	// ProductService manages the product catalog
	ProductService *product.Service

	// ShelfService manages the shelf catalog
	ShelfService *shelf.Service

	// UnitsCache reports product unit cache statistics (optional)
	UnitsCache *cache.ProductUnitsCache
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

	base := handlers.NewBaseHandler()

	// Health endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool, cfg.UnitsCache)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// API v1
	v1 := router.Group("/api/v1")
	{
		authHandler := handlers.NewAuthHandler(base, cfg.AuthService)

		// Public auth endpoints
		authPublic := v1.Group("/auth")
		{
			authPublic.POST("/register", authHandler.Register)
			authPublic.POST("/login", authHandler.Login)
			authPublic.POST("/refresh", authHandler.Refresh)
		}

		// Protected endpoints
		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTValidator))
		{
			authProtected := protected.Group("/auth")
			{
				authProtected.POST("/logout", authHandler.Logout)
				authProtected.GET("/me", authHandler.Me)
			}

			catalog := protected.Group("/catalog")
			{
				productHandler := handlers.NewProductHandler(base, cfg.ProductService, cfg.LedgerService)
				products := catalog.Group("/products")
				{
					products.POST("", productHandler.Create)
					products.GET("", productHandler.List)
					products.GET("/:id", productHandler.Get)
					products.PUT("/:id", productHandler.Update)
					products.DELETE("/:id", productHandler.Delete)
				}

				shelfHandler := handlers.NewShelfHandler(base, cfg.ShelfService)
				shelves := catalog.Group("/shelves")
				{
					shelves.POST("", shelfHandler.Create)
					shelves.GET("", shelfHandler.List)
					shelves.GET("/:id", shelfHandler.Get)
					shelves.PUT("/:id", shelfHandler.Update)
					shelves.DELETE("/:id", shelfHandler.Delete)
				}
			}

			ledgerGroup := protected.Group("/ledger")
			{
				movementHandler := handlers.NewMovementHandler(base, cfg.LedgerService, cfg.MovementAudit)
				movements := ledgerGroup.Group("/movements")
				{
					movements.POST("", movementHandler.Create)
					movements.GET("", movementHandler.List)
					movements.GET("/:id", movementHandler.Get)
					movements.PUT("/:id", movementHandler.Update)
					movements.DELETE("/:id", movementHandler.Delete)
					movements.GET("/:id/history", movementHandler.History)
				}

				stockHandler := handlers.NewStockHandler(base, cfg.LedgerService)
				stock := ledgerGroup.Group("/stock")
				{
					stock.GET("/products/:id", stockHandler.ByProduct)
					stock.POST("/products/:id/resync", stockHandler.Resync)
					stock.GET("/shelves/:id", stockHandler.ByShelf)
				}
			}

			triggerHandler := handlers.NewTriggerHandler(base, cfg.Trigger)
			triggers := protected.Group("/triggers")
			{
				triggers.POST("/invoices/:id/finalize", triggerHandler.FinalizeInvoice)
				triggers.POST("/production-orders/:id/finalize", triggerHandler.FinalizeProductionOrder)
			}
		}
	}

	return router
}
