package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/variantcart/internal/repository"
	"github.com/jafarshop/variantcart/internal/service"
)

// HandleImportCatalog handles PUT /v1/admin/catalog. Products with ambiguous variant data are
// reported and skipped; 207 when anything was rejected.
func HandleImportCatalog(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		catalog, err := service.DecodeCatalog(c.Request.Body)
		if err != nil {
			respondError(c, err, logger)
			return
		}

		report, err := service.ImportCatalog(c.Request.Context(), repos.Product, catalog, logger)
		if err != nil {
			respondError(c, err, logger)
			return
		}

		status := http.StatusOK
		if len(report.Rejected) > 0 {
			status = http.StatusMultiStatus
		}
		c.JSON(status, report)
	}
}
