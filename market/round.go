package market

import "github.com/shopspring/decimal"

const (
	// PricePlaces is the pip grade: five fractional digits.
	PricePlaces int32 = 5
	// MoneyPlaces is the grade for realized cash amounts.
	MoneyPlaces int32 = 2
)

// RoundHalfDown rounds d to places fractional digits. Ties go toward
// zero, so 1.000005 becomes 1.00000 and -1.000005 becomes -1.00000.
func RoundHalfDown(d decimal.Decimal, places int32) decimal.Decimal {
	t := d.Truncate(places)
	rem := d.Sub(t).Abs()
	half := decimal.New(5, -(places + 1))
	if rem.GreaterThan(half) {
		unit := decimal.New(1, -places)
		if d.IsNegative() {
			return t.Sub(unit)
		}
		return t.Add(unit)
	}
	return t
}

// RoundPrice rounds to the price grade.
func RoundPrice(d decimal.Decimal) decimal.Decimal { return RoundHalfDown(d, PricePlaces) }

// RoundMoney rounds to the cash grade.
func RoundMoney(d decimal.Decimal) decimal.Decimal { return RoundHalfDown(d, MoneyPlaces) }
