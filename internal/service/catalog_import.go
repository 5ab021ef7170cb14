package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/jafarshop/variantcart/internal/domain"
	"github.com/jafarshop/variantcart/internal/repository"
	"github.com/jafarshop/variantcart/pkg/errors"
)

var catalogImportMu sync.Mutex

// CatalogFile is the import payload: {"products": [...]}
type CatalogFile struct {
	Products []*domain.Product `json:"products"`
}

// RejectedProduct is a product the import refused to store
type RejectedProduct struct {
	ProductID string `json:"productId"`
	Reason    string `json:"reason"`
}

// ImportReport summarizes one catalog import
type ImportReport struct {
	Imported int               `json:"imported"`
	Rejected []RejectedProduct `json:"rejected"`
}

// DecodeCatalog parses a catalog payload. Unknown fields are rejected so a payload in some
// other shape fails instead of importing empty products.
func DecodeCatalog(r io.Reader) (*CatalogFile, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var f CatalogFile
	if err := dec.Decode(&f); err != nil {
		return nil, &errors.ErrValidation{Message: fmt.Sprintf("invalid catalog payload: %v", err)}
	}
	return &f, nil
}

// ImportCatalog upserts every product. Products with ambiguous variant data (duplicate SKUs or
// identical attribute sets), an unknown variant status, a variant without SKU next to other
// variants, or a missing ID are skipped and reported; the rest are stored.
// Imports are serialized. A non-validation repository error aborts the import.
func ImportCatalog(ctx context.Context, products repository.ProductRepository, catalog *CatalogFile, logger *zap.Logger) (*ImportReport, error) {
	catalogImportMu.Lock()
	defer catalogImportMu.Unlock()

	report := &ImportReport{Rejected: []RejectedProduct{}}
	for _, p := range catalog.Products {
		if p == nil || p.ID == "" {
			report.Rejected = append(report.Rejected, RejectedProduct{Reason: "missing product id"})
			continue
		}
		for i := range p.Variants {
			p.Variants[i].SKU = domain.NormalizeSKU(p.Variants[i].SKU)
			if p.Variants[i].Status == "" {
				p.Variants[i].Status = domain.VariantStatusActive
			}
		}

		err := products.Upsert(ctx, p)
		switch {
		case err == nil:
			report.Imported++
		case errors.IsAmbiguousVariantData(err) || isValidation(err):
			logger.Warn("Catalog import: rejected product",
				zap.String("product_id", p.ID),
				zap.Error(err))
			report.Rejected = append(report.Rejected, RejectedProduct{ProductID: p.ID, Reason: err.Error()})
		default:
			logger.Error("Catalog import: upsert failed", zap.String("product_id", p.ID), zap.Error(err))
			return report, err
		}
	}

	logger.Info("Catalog import finished",
		zap.Int("imported", report.Imported),
		zap.Int("rejected", len(report.Rejected)))
	return report, nil
}

func isValidation(err error) bool {
	_, ok := err.(*errors.ErrValidation)
	return ok
}
