package variant

import "github.com/jafarshop/variantcart/internal/domain"

// PickDefault returns the variant to pre-select when a product loads.
// Priority: catalog-flagged default, first active in stock, first active, first in list.
func PickDefault(variants []domain.Variant) *domain.Variant {
	if len(variants) == 0 {
		return nil
	}
	if v := firstWhere(variants, func(v *domain.Variant) bool { return v.IsDefault }); v != nil {
		return v
	}
	if v := PickPurchasable(variants); v != nil {
		return v
	}
	if v := firstWhere(variants, (*domain.Variant).IsActive); v != nil {
		return v
	}
	return &variants[0]
}

// PickPurchasable returns the flagged default if it exists, else the first active
// variant with stock. It never falls back to an inactive or out-of-stock variant.
func PickPurchasable(variants []domain.Variant) *domain.Variant {
	if v := firstWhere(variants, func(v *domain.Variant) bool { return v.IsDefault }); v != nil {
		return v
	}
	return firstWhere(variants, (*domain.Variant).InStock)
}

func firstWhere(variants []domain.Variant, pred func(*domain.Variant) bool) *domain.Variant {
	for i := range variants {
		if pred(&variants[i]) {
			return &variants[i]
		}
	}
	return nil
}
