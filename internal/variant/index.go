package variant

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jafarshop/variantcart/internal/domain"
	"github.com/jafarshop/variantcart/pkg/errors"
)

// Index holds the distinct attribute keys and values observed across a variant list.
// Keys and values keep first-seen order so option lists render stably.
type Index struct {
	keys   []string
	values map[string][]string
}

// NewIndex builds the attribute index of a variant list
func NewIndex(variants []domain.Variant) *Index {
	idx := &Index{values: make(map[string][]string)}
	seen := make(map[string]map[string]struct{})

	for _, v := range variants {
		for _, a := range v.Attributes {
			if a.Key == "" {
				continue
			}
			vals, ok := seen[a.Key]
			if !ok {
				vals = make(map[string]struct{})
				seen[a.Key] = vals
				idx.keys = append(idx.keys, a.Key)
			}
			if a.Value == "" {
				continue
			}
			if _, dup := vals[a.Value]; dup {
				continue
			}
			vals[a.Value] = struct{}{}
			idx.values[a.Key] = append(idx.values[a.Key], a.Value)
		}
	}
	return idx
}

// Keys returns the distinct attribute keys
func (i *Index) Keys() []string {
	return append([]string(nil), i.keys...)
}

// ValuesFor returns the distinct values seen for key, regardless of selection
func (i *Index) ValuesFor(key string) []string {
	return append([]string(nil), i.values[key]...)
}

// Covers reports whether selection has a value for every indexed key
func (i *Index) Covers(selection map[string]string) bool {
	if len(i.keys) == 0 {
		return false
	}
	for _, k := range i.keys {
		if selection[k] == "" {
			return false
		}
	}
	return true
}

// Missing returns the indexed keys with no value in selection, in index order
func (i *Index) Missing(selection map[string]string) []string {
	var out []string
	for _, k := range i.keys {
		if selection[k] == "" {
			out = append(out, k)
		}
	}
	return out
}

// Validate rejects variant lists that cannot be sold consistently. An unknown status or a
// missing SKU on a product with more than one variant is *errors.ErrValidation; two variants
// with identical attribute sets, or two variants sharing a normalized SKU, is
// *errors.ErrAmbiguousVariantData.
func Validate(productID string, variants []domain.Variant) error {
	bySignature := make(map[string]string, len(variants))
	bySKU := make(map[string]string, len(variants))

	for _, v := range variants {
		if !v.Status.IsValid() {
			return &errors.ErrValidation{
				Message: fmt.Sprintf("product %s: variant %s has unknown status %q", productID, v.ID, v.Status),
				Fields:  map[string]string{"status": "oneof=active inactive"},
			}
		}
		if len(variants) > 1 && domain.NormalizeSKU(v.SKU) == "" {
			return &errors.ErrValidation{
				Message: fmt.Sprintf("product %s: variant %s has no sku", productID, v.ID),
				Fields:  map[string]string{"sku": "required"},
			}
		}
	}

	for _, v := range variants {
		sig := signature(v.Attributes)
		if first, dup := bySignature[sig]; dup && len(v.Attributes) > 0 {
			return &errors.ErrAmbiguousVariantData{
				ProductID:  productID,
				VariantIDs: []string{first, v.ID},
				Reason:     "identical attribute sets",
			}
		}
		bySignature[sig] = v.ID

		sku := domain.NormalizeSKU(v.SKU)
		if sku == "" {
			continue
		}
		if first, dup := bySKU[sku]; dup {
			return &errors.ErrAmbiguousVariantData{
				ProductID:  productID,
				VariantIDs: []string{first, v.ID},
				Reason:     "duplicate sku " + sku,
			}
		}
		bySKU[sku] = v.ID
	}
	return nil
}

func signature(attrs []domain.Attribute) string {
	parts := make([]string, 0, len(attrs))
	for _, a := range attrs {
		parts = append(parts, a.Key+"\x00"+a.Value)
	}
	sort.Strings(parts)
	return strings.Join(parts, "\x01")
}
