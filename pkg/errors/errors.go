package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a resource is not found
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrUnauthorized is returned when authentication fails
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrConflict is returned when there's a conflict (e.g., idempotency)
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "conflict"
}

// ErrValidation is returned when validation fails
type ErrValidation struct {
	Message string
	Fields  map[string]string
}

func (e *ErrValidation) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "validation failed"
}

// ErrSkuRequired is returned when a multi-variant product line has no resolvable SKU.
// The caller must block the add and ask the shopper to pick a variant.
type ErrSkuRequired struct {
	ProductID string
}

func (e *ErrSkuRequired) Error() string {
	return fmt.Sprintf("sku required: product %s has multiple variants", e.ProductID)
}

// ErrInvalidSku is returned when a SKU matches none of the product's variants.
// The caller must re-fetch the product before retrying.
type ErrInvalidSku struct {
	ProductID string
	SKU       string
}

func (e *ErrInvalidSku) Error() string {
	return fmt.Sprintf("invalid sku %q for product %s", e.SKU, e.ProductID)
}

// ErrAmbiguousVariantData is returned when catalog data holds two variants that
// cannot be told apart (identical attribute sets or duplicate SKUs)
type ErrAmbiguousVariantData struct {
	ProductID  string
	VariantIDs []string
	Reason     string
}

func (e *ErrAmbiguousVariantData) Error() string {
	return fmt.Sprintf("ambiguous variant data for product %s (%s): %s",
		e.ProductID, e.Reason, strings.Join(e.VariantIDs, ", "))
}

// ErrMergeLinePartialFailure reports guest lines that could not be persisted during a merge.
// It is non-fatal: succeeded lines are committed, failed lines stay in the guest store.
type ErrMergeLinePartialFailure struct {
	Failed    int
	Succeeded int
	Causes    []error
}

func (e *ErrMergeLinePartialFailure) Error() string {
	return fmt.Sprintf("merge partially failed: %d of %d lines not persisted", e.Failed, e.Failed+e.Succeeded)
}

func (e *ErrMergeLinePartialFailure) Unwrap() []error {
	return e.Causes
}

// IsNotFound reports whether err is (or wraps) an ErrNotFound
func IsNotFound(err error) bool {
	var target *ErrNotFound
	return stderrors.As(err, &target)
}

// IsSkuRequired reports whether err is (or wraps) an ErrSkuRequired
func IsSkuRequired(err error) bool {
	var target *ErrSkuRequired
	return stderrors.As(err, &target)
}

// IsInvalidSku reports whether err is (or wraps) an ErrInvalidSku
func IsInvalidSku(err error) bool {
	var target *ErrInvalidSku
	return stderrors.As(err, &target)
}

// IsAmbiguousVariantData reports whether err is (or wraps) an ErrAmbiguousVariantData
func IsAmbiguousVariantData(err error) bool {
	var target *ErrAmbiguousVariantData
	return stderrors.As(err, &target)
}
