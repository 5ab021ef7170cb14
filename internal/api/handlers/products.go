package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/variantcart/internal/repository"
	"github.com/jafarshop/variantcart/internal/service"
)

// HandleGetProduct returns one product with its variants
func HandleGetProduct(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		product, err := repos.Product.GetProduct(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err, logger)
			return
		}
		c.JSON(http.StatusOK, gin.H{"product": product})
	}
}

// HandleListProducts returns a page of products (?limit=&offset=)
func HandleListProducts(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		if limit <= 0 || limit > 200 {
			limit = 50
		}
		if offset < 0 {
			offset = 0
		}

		products, err := repos.Product.List(c.Request.Context(), limit, offset)
		if err != nil {
			respondError(c, err, logger)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"data": products,
			"pagination": gin.H{
				"limit":  limit,
				"offset": offset,
				"count":  len(products),
			},
		})
	}
}

// HandleGetSelection resolves the variant picker for a product. Every query parameter is an
// attribute pick (?Color=Red&Size=M); no parameters seeds the default variant.
func HandleGetSelection(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		product, err := repos.Product.GetProduct(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err, logger)
			return
		}

		selection := make(map[string]string)
		for key, values := range c.Request.URL.Query() {
			if len(values) > 0 && values[0] != "" {
				selection[key] = values[0]
			}
		}

		view, err := service.BuildSelectionView(product, selection)
		if err != nil {
			respondError(c, err, logger)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}
