package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/jafarshop/variantcart/internal/domain"
	"github.com/jafarshop/variantcart/internal/repository"
	"github.com/jafarshop/variantcart/pkg/errors"
)

// PendingKeyTimeout is how long a reservation may stay incomplete before it is treated as
// abandoned by a crashed request and taken over
const PendingKeyTimeout = time.Minute

// ReserveIdempotencyKey creates the reservation for key. When the key is already taken it
// returns the stored key instead, and the caller decides between replay and conflict. A
// reservation left pending past PendingKeyTimeout is released and taken over.
func ReserveIdempotencyKey(ctx context.Context, keys repository.IdempotencyKeyRepository, key *domain.IdempotencyKey) (reserved bool, existing *domain.IdempotencyKey, err error) {
	for attempt := 0; attempt < 2; attempt++ {
		err := keys.Create(ctx, key)
		if err == nil {
			return true, nil, nil
		}
		var conflict *errors.ErrConflict
		if !stderrors.As(err, &conflict) {
			return false, nil, err
		}

		existing, err := keys.GetByKey(ctx, key.Key)
		if err != nil {
			return false, nil, err
		}
		if existing == nil {
			// Released between Create and GetByKey
			continue
		}
		if existing.Completed || time.Since(existing.CreatedAt) < PendingKeyTimeout {
			return false, existing, nil
		}
		if err := keys.Delete(ctx, key.Key); err != nil {
			return false, nil, err
		}
		key.CreatedAt = time.Time{}
	}
	return false, nil, fmt.Errorf("idempotency key %q: reservation contended", key.Key)
}
