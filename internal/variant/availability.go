package variant

import (
	"github.com/jafarshop/variantcart/internal/domain"
)

// Option is one selectable value of an attribute, annotated for rendering
type Option struct {
	Value              string                    `json:"value"`
	AvailabilityStatus domain.AvailabilityStatus `json:"availabilityStatus"`
	Stock              int                       `json:"stock"`
	IsDisabled         bool                      `json:"isDisabled"`
	IsSelected         bool                      `json:"isSelected"`
	IsColor            bool                      `json:"isColor"`
	// Variant is set when picking this value completes the selection
	Variant *domain.Variant `json:"variant,omitempty"`
}

// ComputeOptions annotates every known value of key with the availability it would have
// if picked on top of selection. Out-of-stock values stay visible but disabled.
func ComputeOptions(key string, selection map[string]string, variants []domain.Variant) []Option {
	return computeOptions(NewIndex(variants), key, selection, variants)
}

func computeOptions(idx *Index, key string, selection map[string]string, variants []domain.Variant) []Option {
	values := idx.ValuesFor(key)
	if len(values) == 0 {
		return nil
	}

	out := make([]Option, 0, len(values))
	for _, value := range values {
		candidate := withValue(selection, key, value)
		matching := FindMatchingVariants(candidate, variants)

		opt := Option{
			Value:      value,
			IsSelected: selection[key] == value,
			IsColor:    IsColorValue(value),
		}

		switch {
		case len(matching) == 0:
			opt.AvailabilityStatus = domain.AvailabilityUnavailable
		case idx.Covers(candidate):
			opt.AvailabilityStatus, opt.Stock, opt.Variant = completeStatus(candidate, matching)
		default:
			opt.AvailabilityStatus, opt.Stock = partialStatus(matching)
		}

		opt.IsDisabled = !opt.AvailabilityStatus.Selectable()
		out = append(out, opt)
	}
	return out
}

// IsOptionDisabled reports whether picking value for key on top of selection leads to a dead end
func IsOptionDisabled(key, value string, selection map[string]string, variants []domain.Variant) bool {
	for _, opt := range ComputeOptions(key, selection, variants) {
		if opt.Value == value {
			return opt.IsDisabled
		}
	}
	return true
}

func completeStatus(candidate map[string]string, matching []domain.Variant) (domain.AvailabilityStatus, int, *domain.Variant) {
	v := MatchVariant(candidate, matching)
	if v == nil {
		return domain.AvailabilityUnavailable, 0, nil
	}
	if v.InStock() {
		return domain.AvailabilityAvailable, v.Stock, v
	}
	return domain.AvailabilityOutOfStock, v.Stock, v
}

func partialStatus(matching []domain.Variant) (domain.AvailabilityStatus, int) {
	anyActive := false
	for i := range matching {
		if matching[i].InStock() {
			return domain.AvailabilityAvailable, matching[i].Stock
		}
		if matching[i].IsActive() {
			anyActive = true
		}
	}
	if anyActive {
		return domain.AvailabilityOutOfStock, 0
	}
	return domain.AvailabilityUnavailable, 0
}

func withValue(selection map[string]string, key, value string) map[string]string {
	out := make(map[string]string, len(selection)+1)
	for k, v := range selection {
		if v == "" {
			continue
		}
		out[k] = v
	}
	out[key] = value
	return out
}
