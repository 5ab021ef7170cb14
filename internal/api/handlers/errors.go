package handlers

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/variantcart/pkg/errors"
)

// respondError maps domain errors to HTTP status codes. Unknown errors are logged and
// reported as 500 without details.
func respondError(c *gin.Context, err error, logger *zap.Logger) {
	var (
		skuRequired  *errors.ErrSkuRequired
		invalidSku   *errors.ErrInvalidSku
		ambiguous    *errors.ErrAmbiguousVariantData
		notFound     *errors.ErrNotFound
		validation   *errors.ErrValidation
		conflict     *errors.ErrConflict
		unauthorized *errors.ErrUnauthorized
	)

	switch {
	case stderrors.As(err, &skuRequired):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "code": "sku_required", "productId": skuRequired.ProductID})
	case stderrors.As(err, &invalidSku):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "code": "invalid_sku", "productId": invalidSku.ProductID, "sku": invalidSku.SKU})
	case stderrors.As(err, &ambiguous):
		logger.Error("Ambiguous variant data", zap.Error(err), zap.String("product_id", ambiguous.ProductID))
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "ambiguous_variant_data", "productId": ambiguous.ProductID})
	case stderrors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "code": "not_found"})
	case stderrors.As(err, &validation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "code": "validation_failed", "details": validation.Fields})
	case stderrors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "conflict"})
	case stderrors.As(err, &unauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "code": "unauthorized"})
	default:
		logger.Error("Request failed", zap.Error(err), zap.String("path", c.Request.URL.Path))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "internal"})
	}
}
