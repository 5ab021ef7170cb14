package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/variantcart/internal/api/handlers"
	"github.com/jafarshop/variantcart/internal/api/middleware"
	"github.com/jafarshop/variantcart/internal/cart"
	"github.com/jafarshop/variantcart/internal/config"
	"github.com/jafarshop/variantcart/internal/repository"
)

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, repos *repository.Repositories, logger *zap.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(customRecovery(logger))
	router.Use(loggingMiddleware(logger))

	normalizer := cart.NewNormalizer(repos.Product, logger)
	guestCarts := cart.NewGuestCarts(GuestDocuments(cfg, repos), normalizer, logger)
	cartService := cart.NewService(repos.Product, logger)

	// Root: friendly response so GET / returns 200 instead of 404
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "Variant Cart API",
			"endpoints": []string{
				"GET /health",
				"GET /v1/products",
				"GET /v1/products/:id",
				"GET /v1/products/:id/selection",
				"GET|POST|PATCH|DELETE /v1/guest-cart",
				"GET|POST|PATCH|DELETE /v1/cart",
				"POST /v1/cart/merge",
				"PUT /v1/admin/catalog",
			},
		})
	})

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes
	v1 := router.Group("/v1")
	{
		v1.GET("/products", handlers.HandleListProducts(repos, logger))
		v1.GET("/products/:id", handlers.HandleGetProduct(repos, logger))
		v1.GET("/products/:id/selection", handlers.HandleGetSelection(repos, logger))

		// Guest cart, keyed by X-Guest-Session
		guest := handlers.GuestCartResolver(guestCarts)
		guestRoutes := v1.Group("/guest-cart")
		guestRoutes.Use(middleware.GuestSessionMiddleware(logger))
		guestRoutes.Use(middleware.IdempotencyMiddleware(repos, logger))
		{
			guestRoutes.GET("", handlers.HandleGetCart(guest, logger))
			guestRoutes.DELETE("", handlers.HandleClearCart(guest, logger))
			guestRoutes.POST("/lines", handlers.HandleAddLine(cartService, guest, logger))
			guestRoutes.PATCH("/lines/:lineId", handlers.HandleUpdateLine(guest, logger))
			guestRoutes.DELETE("/lines/:lineId", handlers.HandleRemoveLine(guest, logger))
		}

		// Customer cart (require service key + X-Customer-ID)
		user := handlers.UserCartResolver(repos, logger)
		cartRoutes := v1.Group("/cart")
		cartRoutes.Use(middleware.ServiceKeyMiddleware(cfg, logger))
		cartRoutes.Use(middleware.CustomerMiddleware())
		cartRoutes.Use(middleware.IdempotencyMiddleware(repos, logger))
		{
			cartRoutes.GET("", handlers.HandleGetCart(user, logger))
			cartRoutes.DELETE("", handlers.HandleClearCart(user, logger))
			cartRoutes.POST("/lines", handlers.HandleAddLine(cartService, user, logger))
			cartRoutes.PATCH("/lines/:lineId", handlers.HandleUpdateLine(user, logger))
			cartRoutes.DELETE("/lines/:lineId", handlers.HandleRemoveLine(user, logger))
			cartRoutes.POST("/merge", handlers.HandleMergeGuestCart(cfg, guestCarts, repos, logger))
		}

		// Admin routes (service key only)
		admin := v1.Group("/admin")
		admin.Use(middleware.ServiceKeyMiddleware(cfg, logger))
		{
			admin.PUT("/catalog", handlers.HandleImportCatalog(repos, logger))
		}
	}

	return router
}

// GuestDocuments selects the guest cart document backend configured by GUEST_STORE
func GuestDocuments(cfg *config.Config, repos *repository.Repositories) cart.Documents {
	switch cfg.GuestStore.Backend {
	case config.GuestStoreFile:
		return cart.NewFileDocuments(cfg.GuestStore.Dir)
	case config.GuestStoreMemory:
		return cart.NewMemoryDocuments()
	default:
		return repos.GuestCart
	}
}

// customRecovery is a custom recovery middleware that logs panics
func customRecovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error("Panic recovered",
			zap.Any("error", recovered),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal server error",
			"details": fmt.Sprintf("%v", recovered),
		})
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		status := c.Writer.Status()
		logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
		)
	}
}
