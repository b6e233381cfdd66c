package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	fee := decimal.NewFromInt(350)

	empty := Summarize(nil, fee)
	assert.True(t, empty.Shipping.IsZero(), "empty cart shipping %s", empty.Shipping)
	assert.True(t, empty.Total.IsZero(), "empty cart total %s", empty.Total)
	assert.Zero(t, empty.ItemCount)

	s := Summarize([]Item{
		{ProductPrice: decimal.RequireFromString("1200"), Quantity: 1},
		{ProductPrice: decimal.RequireFromString("10.5"), Quantity: 2},
	}, fee)
	assert.Equal(t, 3, s.ItemCount)
	assert.True(t, decimal.RequireFromString("1221").Equal(s.Subtotal), s.Subtotal.String())
	assert.True(t, fee.Equal(s.Shipping), s.Shipping.String())
	assert.True(t, decimal.RequireFromString("1571").Equal(s.Total), s.Total.String())
}
