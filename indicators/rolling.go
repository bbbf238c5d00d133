package indicators

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RollingMA is the recursive moving average
//
//	ma' = (ma*(window-1) + price) / window
//
// seeded with the first price. It keeps no history, so it is not a true
// bounded-window SMA: old prices decay geometrically instead of dropping
// out. Values stay at full division precision and are never rounded to
// the price grade.
type RollingMA struct {
	window  int64
	w       decimal.Decimal
	wMinus1 decimal.Decimal
	value   decimal.Decimal
	count   int
}

var _ Indicator = (*RollingMA)(nil)

// NewRollingMA panics on a non-positive window.
func NewRollingMA(window int) *RollingMA {
	if window <= 0 {
		panic(fmt.Sprintf("indicators: window must be positive, got %d", window))
	}
	return &RollingMA{
		window:  int64(window),
		w:       decimal.NewFromInt(int64(window)),
		wMinus1: decimal.NewFromInt(int64(window - 1)),
	}
}

func (m *RollingMA) Name() string { return fmt.Sprintf("RMA(%d)", m.window) }

// Warmup is one: the first price seeds the average.
func (m *RollingMA) Warmup() int { return 1 }

func (m *RollingMA) Reset() {
	m.value = decimal.Zero
	m.count = 0
}

func (m *RollingMA) Update(p decimal.Decimal) {
	if m.count == 0 {
		m.value = p
	} else {
		m.value = m.value.Mul(m.wMinus1).Add(p).Div(m.w)
	}
	m.count++
}

func (m *RollingMA) Ready() bool { return m.count > 0 }

func (m *RollingMA) Value() decimal.Decimal { return m.value }

// Count is the number of prices consumed.
func (m *RollingMA) Count() int { return m.count }
