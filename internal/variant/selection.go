package variant

import (
	"sort"
	"strings"

	"github.com/jafarshop/variantcart/internal/domain"
)

// State is the transient selection of one product view.
// Treat it as a value: every transition returns a new State and never mutates its input.
type State struct {
	SelectedAttributes map[string]string `json:"selectedAttributes"`
	SelectedVariant    *domain.Variant   `json:"selectedVariant,omitempty"`
	Initialized        bool              `json:"initialized"`
}

// AttributeOptions groups the options of one attribute key
type AttributeOptions struct {
	Key     string   `json:"key"`
	IsColor bool     `json:"isColor"`
	Options []Option `json:"options"`
}

// Selector drives State transitions for one product's variant list
type Selector struct {
	productID string
	variants  []domain.Variant
	index     *Index
}

// NewSelector creates a selector over the product's variants
func NewSelector(p *domain.Product) *Selector {
	return &Selector{
		productID: p.ID,
		variants:  p.Variants,
		index:     NewIndex(p.Variants),
	}
}

// Keys returns the product's attribute keys
func (s *Selector) Keys() []string {
	return s.index.Keys()
}

// Initialize seeds the selection from the default variant.
// It is a no-op once the state is initialized or when the product has no variants.
func (s *Selector) Initialize(st State) State {
	if st.Initialized || len(s.variants) == 0 {
		return st
	}
	def := PickDefault(s.variants)
	if def == nil {
		return st
	}
	return State{
		SelectedAttributes: def.AttributeMap(),
		SelectedVariant:    def,
		Initialized:        true,
	}
}

// SelectAttribute sets key to value and re-resolves the selected variant.
// A partial selection leaves no selected variant.
func (s *Selector) SelectAttribute(st State, key, value string) State {
	attrs := copyAttrs(st.SelectedAttributes)
	if value == "" {
		delete(attrs, key)
	} else {
		attrs[key] = value
	}
	return State{
		SelectedAttributes: attrs,
		SelectedVariant:    s.resolve(attrs),
		Initialized:        st.Initialized,
	}
}

// SelectVariant replaces the selection with the attributes of v (e.g. a variant image click).
// A variant without attributes leaves the state unchanged.
func (s *Selector) SelectVariant(st State, v *domain.Variant) State {
	if v == nil || len(v.Attributes) == 0 {
		return st
	}
	attrs := v.AttributeMap()
	return State{
		SelectedAttributes: attrs,
		SelectedVariant:    s.resolve(attrs),
		Initialized:        st.Initialized,
	}
}

// ClearSelection resets the state and seeds it again from the default variant
func (s *Selector) ClearSelection(State) State {
	return s.Initialize(State{})
}

// Options computes the options of key against the current selection
func (s *Selector) Options(st State, key string) []Option {
	return computeOptions(s.index, key, st.SelectedAttributes, s.variants)
}

// AllOptions computes options for every attribute key in index order
func (s *Selector) AllOptions(st State) []AttributeOptions {
	keys := s.index.Keys()
	out := make([]AttributeOptions, 0, len(keys))
	for _, k := range keys {
		out = append(out, AttributeOptions{
			Key:     k,
			IsColor: IsColorAttribute(k),
			Options: s.Options(st, k),
		})
	}
	return out
}

// AllAttributesSelected reports whether every attribute key has a value
func (s *Selector) AllAttributesSelected(st State) bool {
	return s.index.Covers(st.SelectedAttributes)
}

// MissingAttributes returns the keys still lacking a value
func (s *Selector) MissingAttributes(st State) []string {
	return s.index.Missing(st.SelectedAttributes)
}

// Summary renders the selection as "Color: Red / Size: M", or "" without a selected variant
func (s *Selector) Summary(st State) string {
	if st.SelectedVariant == nil || len(st.SelectedAttributes) == 0 {
		return ""
	}
	var parts []string
	seen := make(map[string]struct{}, len(st.SelectedAttributes))
	for _, k := range s.index.Keys() {
		if v := st.SelectedAttributes[k]; v != "" {
			parts = append(parts, k+": "+v)
			seen[k] = struct{}{}
		}
	}
	var extra []string
	for k := range st.SelectedAttributes {
		if _, ok := seen[k]; !ok {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		parts = append(parts, k+": "+st.SelectedAttributes[k])
	}
	return strings.Join(parts, " / ")
}

func (s *Selector) resolve(attrs map[string]string) *domain.Variant {
	if !s.index.Covers(attrs) {
		return nil
	}
	return MatchVariant(attrs, s.variants)
}

func copyAttrs(src map[string]string) map[string]string {
	out := make(map[string]string, len(src)+1)
	for k, v := range src {
		out[k] = v
	}
	return out
}
