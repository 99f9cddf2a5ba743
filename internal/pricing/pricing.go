// Package pricing computes order totals in decimal arithmetic.
package pricing

import (
	"github.com/shopspring/decimal"
)

// Tolerance is how far a client-supplied amount may drift from the computed one.
var Tolerance = decimal.NewFromFloat(0.01)

// Policy holds the checkout price rules. Shipping is free once the items subtotal exceeds
// FreeShippingOver, otherwise FlatShipping is charged.
type Policy struct {
	TaxRate          decimal.Decimal
	FlatShipping     decimal.Decimal
	FreeShippingOver decimal.Decimal
}

// DefaultPolicy is 18% GST with a flat 50 shipping fee waived on any non-empty order.
func DefaultPolicy() Policy {
	return Policy{
		TaxRate:          decimal.NewFromFloat(0.18),
		FlatShipping:     decimal.NewFromInt(50),
		FreeShippingOver: decimal.Zero,
	}
}

type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

type Breakdown struct {
	Items    decimal.Decimal `json:"itemsPrice"`
	Tax      decimal.Decimal `json:"taxPrice"`
	Shipping decimal.Decimal `json:"shippingPrice"`
	Total    decimal.Decimal `json:"totalPrice"`
}

// Quote prices the lines. Every component is rounded to paise.
func (p Policy) Quote(lines []Line) Breakdown {
	items := decimal.Zero
	for _, line := range lines {
		items = items.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return p.QuoteSubtotal(items)
}

func (p Policy) QuoteSubtotal(items decimal.Decimal) Breakdown {
	items = items.Round(2)
	tax := items.Mul(p.TaxRate).Round(2)

	shipping := p.FlatShipping
	if items.GreaterThan(p.FreeShippingOver) {
		shipping = decimal.Zero
	}
	shipping = shipping.Round(2)

	return Breakdown{
		Items:    items,
		Tax:      tax,
		Shipping: shipping,
		Total:    items.Add(tax).Add(shipping),
	}
}

// Matches reports whether claimed is within Tolerance of want.
func Matches(claimed float64, want decimal.Decimal) bool {
	return decimal.NewFromFloat(claimed).Sub(want).Abs().LessThanOrEqual(Tolerance)
}

// Sum adds amounts without float drift.
func Sum(amounts ...float64) decimal.Decimal {
	total := decimal.Zero
	for _, amount := range amounts {
		total = total.Add(decimal.NewFromFloat(amount))
	}
	return total
}
