package shipping

import "github.com/shopspring/decimal"

var (
	FreeShippingThreshold = decimal.NewFromInt(50)

	baseFee    = decimal.NewFromInt(8)
	perItemFee = decimal.NewFromInt(3)
	maxFee     = decimal.NewFromInt(15)
)

// Cost returns the shipping fee of a single seller's cart. itemCount is
// the total number of bottles across all lines.
func Cost(subtotal decimal.Decimal, itemCount int) decimal.Decimal {
	if itemCount <= 0 || subtotal.GreaterThanOrEqual(FreeShippingThreshold) {
		return decimal.Zero
	}
	if itemCount == 1 {
		return baseFee
	}

	fee := baseFee.Add(perItemFee.Mul(decimal.NewFromInt(int64(itemCount - 1))))
	return decimal.Min(fee, maxFee)
}
