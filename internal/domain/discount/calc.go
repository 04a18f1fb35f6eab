package discount

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// ComputeAmount calculates the discount amount for an order subtotal.
// Subtotal and the returned amount are integers in the currency's minor
// unit; percentage math rounds half-up to the nearest minor unit.
//
// Percentage discounts are clamped by maxDiscountAmount when it is set
// (non-zero). Fixed discounts never exceed the subtotal, so the order total
// cannot go negative. Free-shipping codes contribute nothing here: the
// shipping cost is unknown at validation time and is waived later by the
// checkout pipeline.
func ComputeAmount(t Type, value decimal.Decimal, orderSubtotal int64, maxDiscountAmount int64) int64 {
	switch t {
	case TypePercentage:
		amount := decimal.NewFromInt(orderSubtotal).
			Mul(value).
			Div(hundred).
			Round(0).
			IntPart()
		if amount < 0 {
			amount = 0
		}
		if maxDiscountAmount > 0 && amount > maxDiscountAmount {
			amount = maxDiscountAmount
		}
		return amount

	case TypeFixed:
		amount := value.Round(0).IntPart()
		if amount < 0 {
			amount = 0
		}
		if amount > orderSubtotal {
			amount = orderSubtotal
		}
		return amount

	case TypeFreeShipping:
		return 0

	default:
		return 0
	}
}

// FormatAmount renders a minor-unit amount as a dollar string, e.g. 2550
// becomes "$25.50". Used in customer-facing validation reasons.
func FormatAmount(minorUnits int64) string {
	return "$" + decimal.NewFromInt(minorUnits).Div(hundred).StringFixed(2)
}
