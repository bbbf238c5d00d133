package market

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// QuoteToHomeRate is the factor that turns an amount in the pair's quote
// currency into the home currency.
//
// When the quote currency is the home currency the rate is 1. Otherwise
// the <quote><home> entry of the snapshot is used, taking its bid for a
// long position and its ask for a short one. For EURUSD traded from a EUR
// account that entry is the synthetic USDEUR inverse.
func QuoteToHomeRate(s *Snapshot, pair, home string, long bool) (decimal.Decimal, error) {
	quote := QuoteCurrency(pair)
	if quote == home {
		return one, nil
	}

	conv := quote + home
	q, err := s.Get(conv)
	if err != nil {
		return decimal.Zero, fmt.Errorf("convert %s to %s: %w", quote, home, err)
	}
	if long {
		return q.Bid, nil
	}
	return q.Ask, nil
}

// ConversionPair names the snapshot entry QuoteToHomeRate reads for pair,
// or "" when no conversion is needed.
func ConversionPair(pair, home string) string {
	if QuoteCurrency(pair) == home {
		return ""
	}
	return QuoteCurrency(pair) + home
}
