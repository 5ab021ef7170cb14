package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/variantcart/internal/api/middleware"
	"github.com/jafarshop/variantcart/internal/cart"
	"github.com/jafarshop/variantcart/internal/domain"
	"github.com/jafarshop/variantcart/internal/repository"
	"github.com/jafarshop/variantcart/internal/service"
)

// CartResolver returns the cart a request operates on
type CartResolver func(c *gin.Context) (cart.Transport, bool)

// GuestCartResolver resolves the guest cart of the request's guest session
func GuestCartResolver(carts *cart.GuestCarts) CartResolver {
	return func(c *gin.Context) (cart.Transport, bool) {
		sessionID, ok := middleware.GetGuestSessionFromContext(c)
		if !ok {
			return nil, false
		}
		return carts.Get(sessionID), true
	}
}

// UserCartResolver resolves the authenticated customer's cart
func UserCartResolver(repos *repository.Repositories, logger *zap.Logger) CartResolver {
	return func(c *gin.Context) (cart.Transport, bool) {
		customerID, ok := middleware.GetCustomerFromContext(c)
		if !ok {
			return nil, false
		}
		return service.NewUserCart(repos, customerID, logger), true
	}
}

// AddLineRequest is the add-to-cart payload. SKU is omitted for products without variants.
type AddLineRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
	SKU       string `json:"sku"`
}

// UpdateLineRequest sets a line's quantity; 0 removes the line
type UpdateLineRequest struct {
	Quantity *int `json:"quantity" binding:"required,min=0"`
}

// CartResponse is the body of every cart endpoint
type CartResponse struct {
	Cart   *domain.CartSnapshot `json:"cart"`
	Totals cart.Totals          `json:"totals"`
}

func newCartResponse(snap *domain.CartSnapshot) CartResponse {
	if snap == nil {
		snap = &domain.CartSnapshot{}
	}
	if snap.Lines == nil {
		snap.Lines = []domain.CartLine{}
	}
	return CartResponse{Cart: snap, Totals: cart.ComputeTotals(snap.Lines)}
}

func HandleGetCart(resolve CartResolver, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, ok := resolve(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": "unauthorized"})
			return
		}
		snap, err := t.GetCart(c.Request.Context())
		if err != nil {
			respondError(c, err, logger)
			return
		}
		c.JSON(http.StatusOK, newCartResponse(snap))
	}
}

// HandleAddLine runs the SKU precondition before touching the cart. A replayed
// Idempotency-Key answers with the current cart.
func HandleAddLine(svc *cart.Service, resolve CartResolver, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, ok := resolve(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": "unauthorized"})
			return
		}

		if middleware.IsIdempotentReplay(c) {
			snap, err := t.GetCart(c.Request.Context())
			if err != nil {
				respondError(c, err, logger)
				return
			}
			c.JSON(http.StatusOK, newCartResponse(snap))
			return
		}

		var req AddLineRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "validation failed",
				"code":    "validation_failed",
				"details": err.Error(),
			})
			return
		}

		snap, err := svc.AddToCart(c.Request.Context(), t, req.ProductID, req.Quantity, req.SKU)
		if err != nil {
			respondError(c, err, logger)
			return
		}
		c.JSON(http.StatusOK, newCartResponse(snap))
	}
}

func HandleUpdateLine(resolve CartResolver, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, ok := resolve(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": "unauthorized"})
			return
		}

		var req UpdateLineRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "validation failed",
				"code":    "validation_failed",
				"details": err.Error(),
			})
			return
		}

		snap, err := t.UpdateLineQuantity(c.Request.Context(), c.Param("lineId"), *req.Quantity)
		if err != nil {
			respondError(c, err, logger)
			return
		}
		c.JSON(http.StatusOK, newCartResponse(snap))
	}
}

func HandleRemoveLine(resolve CartResolver, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, ok := resolve(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": "unauthorized"})
			return
		}
		snap, err := t.RemoveLine(c.Request.Context(), c.Param("lineId"))
		if err != nil {
			respondError(c, err, logger)
			return
		}
		c.JSON(http.StatusOK, newCartResponse(snap))
	}
}

func HandleClearCart(resolve CartResolver, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, ok := resolve(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": "unauthorized"})
			return
		}
		if err := t.ClearCart(c.Request.Context()); err != nil {
			respondError(c, err, logger)
			return
		}
		c.JSON(http.StatusOK, newCartResponse(nil))
	}
}
