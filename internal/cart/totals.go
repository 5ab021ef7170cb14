package cart

import (
	"github.com/shopspring/decimal"

	"github.com/jafarshop/variantcart/internal/domain"
)

// Totals summarizes a cart
type Totals struct {
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"` // sum of quantities
}

// ComputeTotals sums line price times quantity across lines
func ComputeTotals(lines []domain.CartLine) Totals {
	t := Totals{Total: decimal.Zero}
	for _, l := range lines {
		t.Total = t.Total.Add(l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
		t.Count += l.Quantity
	}
	return t
}
