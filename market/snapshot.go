package market

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNoQuote is returned when a pair has not been priced yet or is not
// tracked at all.
var ErrNoQuote = errors.New("no quote")

var one = decimal.NewFromInt(1)

// Quote is the latest bid/ask for a pair. The zero value is an unpriced
// quote.
type Quote struct {
	Bid  decimal.Decimal
	Ask  decimal.Decimal
	Time time.Time

	priced bool
}

// Ready reports whether both sides have been observed.
func (q Quote) Ready() bool { return q.priced }

// Spread is ask minus bid.
func (q Quote) Spread() decimal.Decimal { return q.Ask.Sub(q.Bid) }

// Snapshot holds the latest quote per tracked pair and its synthetic
// inverse. Writers and readers may run on different goroutines.
type Snapshot struct {
	mu     sync.RWMutex
	quotes map[string]Quote
	direct map[string]bool
}

// NewSnapshot tracks pairs and their inverses, all unpriced.
func NewSnapshot(pairs ...string) *Snapshot {
	s := &Snapshot{
		quotes: make(map[string]Quote, len(pairs)*2),
		direct: make(map[string]bool, len(pairs)),
	}
	for _, p := range pairs {
		s.direct[p] = true
		s.quotes[p] = Quote{}
		s.quotes[Invert(p)] = Quote{}
	}
	return s
}

// Update stores a direct quote and recomputes its inverse:
// inverse bid = 1/ask, inverse ask = 1/bid, both at the price grade.
func (s *Snapshot) Update(pair string, bid, ask decimal.Decimal, t time.Time) (Quote, error) {
	if bid.Sign() <= 0 || ask.Sign() <= 0 {
		return Quote{}, fmt.Errorf("update %s: non-positive price bid=%s ask=%s", pair, bid, ask)
	}

	q := Quote{Bid: RoundPrice(bid), Ask: RoundPrice(ask), Time: t, priced: true}
	inv := Quote{
		Bid:    RoundPrice(one.Div(q.Ask)),
		Ask:    RoundPrice(one.Div(q.Bid)),
		Time:   t,
		priced: true,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.direct[pair] {
		return Quote{}, fmt.Errorf("update %s: %w", pair, ErrNoQuote)
	}
	s.quotes[pair] = q
	s.quotes[Invert(pair)] = inv
	return q, nil
}

// Get returns the quote for pair, direct or inverted.
func (s *Snapshot) Get(pair string) (Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quotes[pair]
	if !ok || !q.priced {
		return Quote{}, fmt.Errorf("%s: %w", pair, ErrNoQuote)
	}
	return q, nil
}

// Tracks reports whether pair is a key of the snapshot.
func (s *Snapshot) Tracks(pair string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.quotes[pair]
	return ok
}

// IsDirect reports whether pair is one of the configured pairs rather
// than a derived inverse.
func (s *Snapshot) IsDirect(pair string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.direct[pair]
}

// Ready is true once every tracked entry, inverses included, has a bid and
// an ask.
func (s *Snapshot) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, q := range s.quotes {
		if !q.priced {
			return false
		}
	}
	return true
}

// Pairs lists every key in sorted order.
func (s *Snapshot) Pairs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.quotes))
	for p := range s.quotes {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
