package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/variantcart/internal/api/middleware"
	"github.com/jafarshop/variantcart/internal/cart"
	"github.com/jafarshop/variantcart/internal/config"
	"github.com/jafarshop/variantcart/internal/repository"
	"github.com/jafarshop/variantcart/internal/service"
)

// FailedLine describes a guest line left in the guest cart after a merge
type FailedLine struct {
	ProductID string `json:"productId"`
	SKU       string `json:"sku,omitempty"`
	Quantity  int    `json:"quantity"`
	Error     string `json:"error"`
}

// MergeResponse reports a guest cart merge
type MergeResponse struct {
	CartResponse
	Merged int          `json:"merged"`
	Failed []FailedLine `json:"failed"`
}

// HandleMergeGuestCart moves the X-Guest-Session cart into the authenticated customer's cart.
// 200 when every line merged, 207 when some lines stay in the guest cart for a retry.
func HandleMergeGuestCart(cfg *config.Config, carts *cart.GuestCarts, repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customerID, ok := middleware.GetCustomerFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": "unauthorized"})
			return
		}
		sessionID := strings.TrimSpace(c.GetHeader(middleware.GuestSessionHeader))
		if !middleware.ValidGuestSession(sessionID) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "missing or invalid " + middleware.GuestSessionHeader + " header",
				"code":  "validation_failed",
			})
			return
		}

		userCart := service.NewUserCart(repos, customerID, logger)

		resp := MergeResponse{Failed: []FailedLine{}}
		if !middleware.IsIdempotentReplay(c) {
			merger := cart.NewMerger(carts.Get(sessionID), userCart, cfg.MergeConcurrency, logger)
			result, err := merger.Merge(c.Request.Context())
			if err != nil {
				respondError(c, err, logger)
				return
			}
			resp.Merged = len(result.Merged)
			for _, f := range result.Failed {
				resp.Failed = append(resp.Failed, FailedLine{
					ProductID: f.Line.Product.ID,
					SKU:       f.Line.SKU,
					Quantity:  f.Line.Quantity,
					Error:     f.Err.Error(),
				})
			}
		}

		snap, err := userCart.GetCart(c.Request.Context())
		if err != nil {
			respondError(c, err, logger)
			return
		}
		resp.CartResponse = newCartResponse(snap)

		status := http.StatusOK
		if len(resp.Failed) > 0 {
			status = http.StatusMultiStatus
		}
		c.JSON(status, resp)
	}
}
