package portfolio

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/fxtrader/event"
	"github.com/rustyeddy/fxtrader/market"
)

// Side is the direction of an open position.
type Side string

const (
	Long  Side = "long"
	Short Side = "short"
)

// SideFor maps a signal side to the position it opens.
func SideFor(s event.Side) Side {
	if s == event.Buy {
		return Long
	}
	return Short
}

var hundred = decimal.NewFromInt(100)

// Position is one open exposure to a pair. Units are always positive; the
// direction lives in Side. ProfitBase and ProfitPct are derived from the
// snapshot on every mark and never set directly.
//
// AvgPrice is the execution-side entry price (ask for long, bid for short).
// CurPrice marks at the side the position would be closed on (bid for
// long, ask for short), so a fresh position shows the spread as a loss.
type Position struct {
	Side       Side
	Pair       string
	Units      int64
	AvgPrice   decimal.Decimal
	CurPrice   decimal.Decimal
	ProfitBase decimal.Decimal
	ProfitPct  decimal.Decimal
	OpenTime   time.Time

	home string
	snap *market.Snapshot
}

func newPosition(side Side, pair string, units int64, home string, snap *market.Snapshot, at time.Time) (*Position, error) {
	if units <= 0 {
		return nil, fmt.Errorf("open %s %s: units must be positive, got %d", side, pair, units)
	}
	p := &Position{Side: side, Pair: pair, Units: units, OpenTime: at, home: home, snap: snap}
	entry, err := p.entryPrice()
	if err != nil {
		return nil, fmt.Errorf("open %s %s: %w", side, pair, err)
	}
	p.AvgPrice = entry
	if err := p.Update(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Position) long() bool { return p.Side == Long }

func (p *Position) entryPrice() (decimal.Decimal, error) {
	q, err := p.snap.Get(p.Pair)
	if err != nil {
		return decimal.Zero, err
	}
	if p.long() {
		return q.Ask, nil
	}
	return q.Bid, nil
}

func (p *Position) exitPrice() (decimal.Decimal, error) {
	q, err := p.snap.Get(p.Pair)
	if err != nil {
		return decimal.Zero, err
	}
	if p.long() {
		return q.Bid, nil
	}
	return q.Ask, nil
}

// Pips is the signed price distance in the position's favour at the
// price grade.
func (p *Position) Pips() decimal.Decimal {
	diff := p.CurPrice.Sub(p.AvgPrice)
	if !p.long() {
		diff = diff.Neg()
	}
	return market.RoundPrice(diff)
}

// Update re-marks CurPrice from the snapshot and re-derives the profit
// fields.
func (p *Position) Update() error {
	cur, err := p.exitPrice()
	if err != nil {
		return fmt.Errorf("mark %s: %w", p.Pair, err)
	}
	p.CurPrice = cur
	return p.derive()
}

func (p *Position) derive() error {
	if p.Units == 0 {
		p.ProfitBase = decimal.Zero
		p.ProfitPct = decimal.Zero
		return nil
	}
	rate, err := market.QuoteToHomeRate(p.snap, p.Pair, p.home, p.long())
	if err != nil {
		return fmt.Errorf("mark %s: %w", p.Pair, err)
	}
	units := decimal.NewFromInt(p.Units)
	p.ProfitBase = market.RoundPrice(p.Pips().Mul(units).Mul(rate))
	p.ProfitPct = market.RoundPrice(p.ProfitBase.Div(units).Mul(hundred))
	return nil
}

// AddUnits grows the position at the current entry price and re-averages.
func (p *Position) AddUnits(units int64) error {
	if units <= 0 {
		return fmt.Errorf("add to %s: units must be positive, got %d", p.Pair, units)
	}
	entry, err := p.entryPrice()
	if err != nil {
		return fmt.Errorf("add to %s: %w", p.Pair, err)
	}
	oldU := decimal.NewFromInt(p.Units)
	addU := decimal.NewFromInt(units)
	cost := p.AvgPrice.Mul(oldU).Add(entry.Mul(addU))
	p.AvgPrice = market.RoundPrice(cost.Div(oldU.Add(addU)))
	p.Units += units
	return p.Update()
}

// RemoveUnits shrinks the position and returns the realized PnL of the
// removed units in the home currency at the cash grade. units must be
// less than Units; use Close for the rest.
func (p *Position) RemoveUnits(units int64) (decimal.Decimal, error) {
	if units <= 0 || units >= p.Units {
		return decimal.Zero, fmt.Errorf("remove %d from %s: position holds %d", units, p.Pair, p.Units)
	}
	pnl, err := p.realize(units)
	if err != nil {
		return decimal.Zero, err
	}
	p.Units -= units
	if err := p.derive(); err != nil {
		return decimal.Zero, err
	}
	return pnl, nil
}

// Close realizes the whole position and leaves it with zero units.
func (p *Position) Close() (decimal.Decimal, error) {
	pnl, err := p.realize(p.Units)
	if err != nil {
		return decimal.Zero, err
	}
	p.Units = 0
	p.ProfitBase = decimal.Zero
	p.ProfitPct = decimal.Zero
	return pnl, nil
}

func (p *Position) realize(units int64) (decimal.Decimal, error) {
	if err := p.Update(); err != nil {
		return decimal.Zero, err
	}
	rate, err := market.QuoteToHomeRate(p.snap, p.Pair, p.home, p.long())
	if err != nil {
		return decimal.Zero, fmt.Errorf("realize %s: %w", p.Pair, err)
	}
	return market.RoundMoney(p.Pips().Mul(rate).Mul(decimal.NewFromInt(units))), nil
}
