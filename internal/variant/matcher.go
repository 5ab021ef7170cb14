package variant

import (
	"github.com/jafarshop/variantcart/internal/domain"
	"github.com/jafarshop/variantcart/pkg/errors"
)

// MatchVariant returns the first variant whose attribute set equals selection: every selected
// pair is present and the variant carries no keys beyond the selected ones.
// Returns nil for an empty selection or when no variant matches.
func MatchVariant(selection map[string]string, variants []domain.Variant) *domain.Variant {
	if len(selection) == 0 {
		return nil
	}
	for i := range variants {
		if matchesExactly(&variants[i], selection) {
			return &variants[i]
		}
	}
	return nil
}

// MatchVariantStrict behaves like MatchVariant but fails when more than one variant matches
func MatchVariantStrict(productID string, selection map[string]string, variants []domain.Variant) (*domain.Variant, error) {
	if len(selection) == 0 {
		return nil, nil
	}
	var found *domain.Variant
	for i := range variants {
		if !matchesExactly(&variants[i], selection) {
			continue
		}
		if found != nil {
			return nil, &errors.ErrAmbiguousVariantData{
				ProductID:  productID,
				VariantIDs: []string{found.ID, variants[i].ID},
				Reason:     "selection matches more than one variant",
			}
		}
		found = &variants[i]
	}
	return found, nil
}

// FindMatchingVariants returns every variant whose attributes are a superset of selection.
// The variant may carry keys the selection does not mention.
func FindMatchingVariants(selection map[string]string, variants []domain.Variant) []domain.Variant {
	if len(selection) == 0 {
		return nil
	}
	var out []domain.Variant
	for i := range variants {
		if matchesAll(&variants[i], selection) {
			out = append(out, variants[i])
		}
	}
	return out
}

func matchesAll(v *domain.Variant, selection map[string]string) bool {
	for key, want := range selection {
		got, ok := v.Attribute(key)
		if !ok || got != want {
			return false
		}
	}
	return true
}

func matchesExactly(v *domain.Variant, selection map[string]string) bool {
	if !matchesAll(v, selection) {
		return false
	}
	keys := make(map[string]struct{}, len(v.Attributes))
	for _, a := range v.Attributes {
		keys[a.Key] = struct{}{}
	}
	return len(keys) == len(selection)
}
