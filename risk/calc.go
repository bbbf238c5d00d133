// Package risk sizes trades. Sizing is a fixed fraction of starting
// equity; leverage is reported but never enforced.
package risk

import "github.com/shopspring/decimal"

// TradeUnits is equity * riskPerTrade, computed once per account.
func TradeUnits(equity, riskPerTrade decimal.Decimal) decimal.Decimal {
	return equity.Mul(riskPerTrade)
}

// OrderUnits truncates the trade size to whole units.
func OrderUnits(tradeUnits decimal.Decimal) int64 {
	return tradeUnits.IntPart()
}

// MarginPerTrade is the base-currency margin one order of units would tie
// up at leverage. Zero leverage yields the full notional.
func MarginPerTrade(units, leverage decimal.Decimal) decimal.Decimal {
	if leverage.Sign() <= 0 {
		return units
	}
	return units.Div(leverage)
}
