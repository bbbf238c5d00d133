// Package indicators provides streaming price statistics for strategies.
package indicators

import "github.com/shopspring/decimal"

// Indicator computes a single streaming value from prices.
// It is deterministic and safe to use live and in backtests.
type Indicator interface {
	// Name returns a stable identifier like "RMA(500)".
	Name() string

	// Warmup returns how many updates are needed before Ready() is true.
	Warmup() int

	// Reset clears all internal state.
	Reset()

	// Update consumes the next price.
	Update(p decimal.Decimal)

	// Ready reports whether Value() is meaningful.
	Ready() bool

	// Value returns the current value, zero before the first update.
	Value() decimal.Decimal
}
