package cart

import (
	"context"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jafarshop/variantcart/internal/domain"
	"github.com/jafarshop/variantcart/pkg/errors"
)

// DefaultMergeConcurrency bounds the number of in-flight AddLine calls of one merge
const DefaultMergeConcurrency = 4

// MergeLines folds guest lines into auth lines by identity (product ID, normalized SKU).
// Quantities of lines sharing an identity are summed; the first line seen keeps its ID and
// snapshot. Auth lines come first in the result, then guest-only lines in guest order.
func MergeLines(guest, auth []domain.CartLine) []domain.CartLine {
	out := make([]domain.CartLine, 0, len(auth)+len(guest))
	pos := make(map[domain.LineKey]int, len(auth)+len(guest))

	fold := func(lines []domain.CartLine) {
		for _, l := range lines {
			l.SKU = domain.NormalizeSKU(l.SKU)
			key := l.Key()
			if i, ok := pos[key]; ok {
				out[i].Quantity += l.Quantity
				continue
			}
			pos[key] = len(out)
			out = append(out, l)
		}
	}
	fold(auth)
	fold(guest)
	return out
}

// MergeLineKey is the idempotency key a guest line is merged under. It changes when the line's
// quantity changes, so a line topped up after a failed merge is submitted again as a whole.
func MergeLineKey(line domain.CartLine) string {
	return "merge:" + line.ID + ":" + strconv.Itoa(line.Quantity)
}

// LineResult is the outcome of submitting one guest line
type LineResult struct {
	Line domain.CartLine
	Err  error
}

// MergeResult reports a merge. Err is non-nil when some lines failed to persist; those lines
// remain in the guest cart for a later retry.
type MergeResult struct {
	Merged []domain.CartLine
	Failed []LineResult
	Err    *errors.ErrMergeLinePartialFailure
}

// Partial reports whether any line failed
func (r *MergeResult) Partial() bool {
	return r != nil && r.Err != nil
}

// Merger moves a guest cart into an authenticated cart
type Merger struct {
	guest       *GuestCart
	transport   Transport
	concurrency int
	logger      *zap.Logger
}

// NewMerger creates a merger from guest into transport.
// concurrency < 1 uses DefaultMergeConcurrency.
func NewMerger(guest *GuestCart, transport Transport, concurrency int, logger *zap.Logger) *Merger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if concurrency < 1 {
		concurrency = DefaultMergeConcurrency
	}
	return &Merger{
		guest:       guest,
		transport:   transport,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Merge submits every guest line to the authenticated cart independently and waits for all of
// them to settle. Succeeded lines are removed from the guest cart and failed lines are kept, so
// running Merge again only retries what failed. The guest cart stays locked for the whole merge.
//
// Every line is submitted under MergeLineKey. A line the transport applied but whose answer was
// lost, or a line that merged before the guest cart failed to be rewritten, stays in the guest
// cart; the retry reuses the key and the transport replays it instead of adding it again.
// A returned error means the guest cart could not be read or rewritten.
func (m *Merger) Merge(ctx context.Context) (*MergeResult, error) {
	m.guest.mu.Lock()
	defer m.guest.mu.Unlock()

	lines, err := m.guest.loadLocked(ctx)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return &MergeResult{Merged: []domain.CartLine{}}, nil
	}

	errs := make([]error, len(lines))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for i, line := range lines {
		g.Go(func() error {
			lineCtx := WithIdempotencyKey(gctx, MergeLineKey(line))
			_, errs[i] = m.transport.AddLine(lineCtx, line.Product.ID, line.Quantity, line.SKU)
			return nil
		})
	}
	_ = g.Wait()

	result := &MergeResult{Merged: []domain.CartLine{}}
	var keep []domain.CartLine
	var causes []error
	for i, line := range lines {
		if errs[i] == nil {
			result.Merged = append(result.Merged, line)
			continue
		}
		m.logger.Warn("Failed to merge guest cart line",
			zap.String("product_id", line.Product.ID),
			zap.String("sku", line.SKU),
			zap.Int("quantity", line.Quantity),
			zap.Error(errs[i]))
		result.Failed = append(result.Failed, LineResult{Line: line, Err: errs[i]})
		keep = append(keep, line)
		causes = append(causes, errs[i])
	}

	if err := m.guest.saveLocked(ctx, keep); err != nil {
		m.logger.Error("Failed to rewrite guest cart after merge",
			zap.Int("merged", len(result.Merged)),
			zap.Int("failed", len(result.Failed)),
			zap.Error(err))
		return result, err
	}

	if len(result.Failed) > 0 {
		result.Err = &errors.ErrMergeLinePartialFailure{
			Failed:    len(result.Failed),
			Succeeded: len(result.Merged),
			Causes:    causes,
		}
	}
	m.logger.Info("Merged guest cart",
		zap.Int("merged", len(result.Merged)),
		zap.Int("failed", len(result.Failed)))
	return result, nil
}
