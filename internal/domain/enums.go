package domain

// VariantStatus represents whether a variant can be sold
type VariantStatus string

const (
	// VariantStatusActive - variant is listed and purchasable when in stock
	VariantStatusActive VariantStatus = "active"
	// VariantStatusInactive - variant is hidden from purchase (still resolvable)
	VariantStatusInactive VariantStatus = "inactive"
)

// IsValid checks if the variant status is valid
func (s VariantStatus) IsValid() bool {
	switch s {
	case VariantStatusActive, VariantStatusInactive:
		return true
	default:
		return false
	}
}

// AvailabilityStatus is the aggregated availability of one attribute option
type AvailabilityStatus string

const (
	// AvailabilityAvailable - at least one reachable variant is active with stock
	AvailabilityAvailable AvailabilityStatus = "available"
	// AvailabilityOutOfStock - reachable variants exist and are active, but none has stock
	AvailabilityOutOfStock AvailabilityStatus = "outOfStock"
	// AvailabilityUnavailable - no variant exists for the combination, or all are inactive
	AvailabilityUnavailable AvailabilityStatus = "unavailable"
)

// IsValid checks if the availability status is valid
func (s AvailabilityStatus) IsValid() bool {
	switch s {
	case AvailabilityAvailable, AvailabilityOutOfStock, AvailabilityUnavailable:
		return true
	default:
		return false
	}
}

// Selectable reports whether an option with this status may be picked
func (s AvailabilityStatus) Selectable() bool {
	return s == AvailabilityAvailable
}
