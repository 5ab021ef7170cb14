package service

import (
	"sort"

	"github.com/jafarshop/variantcart/internal/domain"
	"github.com/jafarshop/variantcart/internal/variant"
)

// SelectionView is everything a product page needs to render the variant picker
type SelectionView struct {
	ProductID          string                     `json:"productId"`
	State              variant.State              `json:"state"`
	Attributes         []variant.AttributeOptions `json:"attributes"`
	Summary            string                     `json:"summary"`
	Gallery            []string                   `json:"gallery"`
	AllSelected        bool                       `json:"allSelected"`
	MissingAttributes  []string                   `json:"missingAttributes"`
	CanAddToCart       bool                       `json:"canAddToCart"`
	DiscountPercentage int                        `json:"discountPercentage"`
}

// BuildSelectionView seeds the default selection when selection is empty, otherwise applies
// selection on top of an empty initialized state (keys in attribute order, unknown keys last).
// A complete selection that matches more than one variant is *errors.ErrAmbiguousVariantData.
func BuildSelectionView(p *domain.Product, selection map[string]string) (*SelectionView, error) {
	sel := variant.NewSelector(p)

	var st variant.State
	if len(selection) == 0 {
		st = sel.Initialize(variant.State{})
	} else {
		st = variant.State{SelectedAttributes: map[string]string{}, Initialized: true}
		for _, k := range orderedKeys(sel.Keys(), selection) {
			st = sel.SelectAttribute(st, k, selection[k])
		}
	}

	if st.SelectedVariant != nil {
		if _, err := variant.MatchVariantStrict(p.ID, st.SelectedAttributes, p.Variants); err != nil {
			return nil, err
		}
	}

	view := &SelectionView{
		ProductID:         p.ID,
		State:             st,
		Attributes:        sel.AllOptions(st),
		Summary:           sel.Summary(st),
		Gallery:           variant.GalleryImages(st.SelectedVariant, p.Images),
		AllSelected:       sel.AllAttributesSelected(st),
		MissingAttributes: sel.MissingAttributes(st),
	}
	if view.MissingAttributes == nil {
		view.MissingAttributes = []string{}
	}

	switch {
	case len(p.Variants) == 0:
		view.CanAddToCart = true
	case st.SelectedVariant != nil:
		view.CanAddToCart = st.SelectedVariant.InStock()
		view.DiscountPercentage = st.SelectedVariant.DiscountPercentage()
	}
	return view, nil
}

func orderedKeys(indexKeys []string, selection map[string]string) []string {
	out := make([]string, 0, len(selection))
	seen := make(map[string]struct{}, len(selection))
	for _, k := range indexKeys {
		if _, ok := selection[k]; ok {
			out = append(out, k)
			seen[k] = struct{}{}
		}
	}
	var extra []string
	for k := range selection {
		if _, ok := seen[k]; !ok {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}
