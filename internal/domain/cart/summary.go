package cart

import "github.com/shopspring/decimal"

// DefaultShipping is the flat shipping fee charged at checkout.
var DefaultShipping = decimal.NewFromInt(200)

// Summary is the checkout breakdown of a cart.
type Summary struct {
	ItemCount int             `json:"itemCount"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Shipping  decimal.Decimal `json:"shipping"`
	Total     decimal.Decimal `json:"total"`
}

// Summarize totals items and adds the flat shipping fee.
//
// An empty cart is quoted with zero shipping, not the flat fee, so an empty
// quote totals 0. Checkout rejects an empty cart before this matters for an order.
func Summarize(items []Item, shipping decimal.Decimal) Summary {
	s := Summary{Subtotal: decimal.Zero, Shipping: decimal.Zero}
	for _, it := range items {
		s.ItemCount += it.Quantity
		s.Subtotal = s.Subtotal.Add(it.LineTotal())
	}
	if len(items) > 0 {
		s.Shipping = shipping
	}
	s.Total = s.Subtotal.Add(s.Shipping)
	return s
}
