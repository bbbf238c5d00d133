// Package portfolio turns signals into sized orders and tracks open
// positions, realized balance and the equity log.
package portfolio

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/fxtrader/event"
	"github.com/rustyeddy/fxtrader/internal/id"
	"github.com/rustyeddy/fxtrader/internal/metrics"
	"github.com/rustyeddy/fxtrader/journal"
	"github.com/rustyeddy/fxtrader/market"
	"github.com/rustyeddy/fxtrader/risk"
)

// ErrNoPosition is returned for lookups on a flat pair.
var ErrNoPosition = errors.New("no open position")

// Config is the account the portfolio trades.
type Config struct {
	HomeCurrency string
	Equity       decimal.Decimal
	RiskPerTrade decimal.Decimal
	Leverage     decimal.Decimal
	Pairs        []string
}

// Portfolio owns every Position. It is not safe for concurrent use: only
// the trading goroutine touches it.
type Portfolio struct {
	home       string
	equity     decimal.Decimal
	balance    decimal.Decimal
	risk       decimal.Decimal
	leverage   decimal.Decimal
	tradeUnits decimal.Decimal
	pairs      []string

	positions map[string]*Position

	snap    *market.Snapshot
	sink    event.Sink
	journal journal.Journal
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// Option configures a Portfolio.
type Option func(*Portfolio)

// WithJournal turns on recording: one equity row per tick and one trade
// row per realized close.
func WithJournal(j journal.Journal) Option {
	return func(p *Portfolio) { p.journal = j }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Portfolio) { p.metrics = m }
}

func WithLogger(l zerolog.Logger) Option {
	return func(p *Portfolio) { p.log = l }
}

// New sizes every trade once as equity * risk per trade.
func New(cfg Config, snap *market.Snapshot, sink event.Sink, opts ...Option) *Portfolio {
	p := &Portfolio{
		home:       cfg.HomeCurrency,
		equity:     cfg.Equity,
		balance:    cfg.Equity,
		risk:       cfg.RiskPerTrade,
		leverage:   cfg.Leverage,
		tradeUnits: risk.TradeUnits(cfg.Equity, cfg.RiskPerTrade),
		pairs:      append([]string(nil), cfg.Pairs...),
		positions:  make(map[string]*Position),
		snap:       snap,
		sink:       sink,
		metrics:    metrics.Nop(),
		log:        zerolog.Nop(),
	}
	for _, o := range opts {
		o(p)
	}
	p.log = p.log.With().Str("component", "portfolio").Logger()
	p.metrics.Balance.Set(p.balance.InexactFloat64())
	return p
}

// Balance is the initial equity plus all realized PnL.
func (p *Portfolio) Balance() decimal.Decimal { return p.balance }

// TradeUnits is the fixed size of every order.
func (p *Portfolio) TradeUnits() decimal.Decimal { return p.tradeUnits }

// Leverage is recorded for reporting only.
func (p *Portfolio) Leverage() decimal.Decimal { return p.leverage }

// Position returns a copy of the open position for pair.
func (p *Portfolio) Position(pair string) (Position, error) {
	pos, ok := p.positions[pair]
	if !ok {
		return Position{}, fmt.Errorf("%s: %w", pair, ErrNoPosition)
	}
	return *pos, nil
}

// OpenPositions is the number of pairs with exposure.
func (p *Portfolio) OpenPositions() int { return len(p.positions) }

// Total is the balance plus every open position's unrealized profit.
func (p *Portfolio) Total() decimal.Decimal {
	t := p.balance
	for _, pos := range p.positions {
		t = t.Add(pos.ProfitBase)
	}
	return t
}

// UpdatePortfolio re-marks the tick's pair and, when recording, appends
// one equity row.
func (p *Portfolio) UpdatePortfolio(tick event.Tick) error {
	if pos, ok := p.positions[tick.Pair]; ok {
		if err := pos.Update(); err != nil {
			return err
		}
	}
	if p.journal == nil {
		return nil
	}

	snap := journal.EquitySnapshot{
		Time:    tick.Time,
		Balance: p.balance,
		Profits: make(map[string]decimal.Decimal, len(p.positions)),
	}
	for _, pair := range p.pairs {
		if pos, ok := p.positions[pair]; ok {
			snap.Profits[pair] = pos.ProfitBase
		}
	}
	return p.journal.RecordEquity(snap)
}

// ExecuteSignal applies a signal at the fixed trade size. It does nothing
// until every snapshot entry, inverses included, has been priced.
func (p *Portfolio) ExecuteSignal(sig event.Signal) error {
	if !p.snap.Ready() {
		p.log.Info().Str("pair", sig.Pair).Str("side", string(sig.Side)).Msg("prices incomplete, signal dropped")
		p.metrics.SignalsDropped.WithLabelValues(sig.Pair).Inc()
		return nil
	}
	return p.executeUnits(sig, risk.OrderUnits(p.tradeUnits))
}

// executeUnits is the position state machine:
//
//	flat                 -> open on the signal side
//	same side            -> add units at a weighted average price
//	opposite, equal      -> close and realize
//	opposite, fewer      -> partial close, realize the removed units
//	opposite, more       -> close, then open the remainder on the signal side
//
// Every branch emits one Order for units on the signal side. Realized
// trades are journaled first; a journal error leaves the position and
// balance as they were.
func (p *Portfolio) executeUnits(sig event.Signal, units int64) error {
	if units <= 0 {
		return fmt.Errorf("execute %s %s: units must be positive, got %d", sig.Side, sig.Pair, units)
	}
	side := SideFor(sig.Side)
	pos, open := p.positions[sig.Pair]

	switch {
	case !open:
		np, err := newPosition(side, sig.Pair, units, p.home, p.snap, sig.Time)
		if err != nil {
			return err
		}
		p.positions[sig.Pair] = np

	case pos.Side == side:
		if err := pos.AddUnits(units); err != nil {
			return err
		}

	case units == pos.Units:
		if err := p.closePosition(pos, sig.Time, "close"); err != nil {
			return err
		}

	case units < pos.Units:
		after := *pos
		pnl, err := after.RemoveUnits(units)
		if err != nil {
			return err
		}
		if err := p.recordTrade(*pos, units, pnl, sig.Time, "partial"); err != nil {
			return err
		}
		*pos = after
		p.realize(pnl)

	default:
		rest := units - pos.Units
		if err := p.closePosition(pos, sig.Time, "flip"); err != nil {
			return err
		}
		np, err := newPosition(side, sig.Pair, rest, p.home, p.snap, sig.Time)
		if err != nil {
			return err
		}
		p.positions[sig.Pair] = np
	}

	order := event.Order{
		ID:        id.New(),
		Pair:      sig.Pair,
		Units:     units,
		OrderType: event.Market,
		Side:      sig.Side,
		Time:      sig.Time,
	}
	if err := p.sink.Put(order); err != nil {
		return fmt.Errorf("enqueue order %s: %w", order, err)
	}
	p.metrics.Orders.WithLabelValues(order.Pair, string(order.Side)).Inc()
	p.log.Info().Str("order", order.String()).Stringer("balance", p.balance).Msg("portfolio balance")
	return nil
}

// closePosition journals the trade before touching any state, so a
// failed write leaves the position open and the balance unchanged.
func (p *Portfolio) closePosition(pos *Position, at time.Time, reason string) error {
	after := *pos
	pnl, err := after.Close()
	if err != nil {
		return err
	}
	if err := p.recordTrade(*pos, pos.Units, pnl, at, reason); err != nil {
		return err
	}
	delete(p.positions, pos.Pair)
	p.realize(pnl)
	return nil
}

func (p *Portfolio) realize(pnl decimal.Decimal) {
	p.balance = p.balance.Add(pnl)
	p.metrics.Balance.Set(p.balance.InexactFloat64())
}

func (p *Portfolio) recordTrade(pos Position, units int64, pnl decimal.Decimal, at time.Time, reason string) error {
	if p.journal == nil {
		return nil
	}
	exit, err := pos.exitPrice()
	if err != nil {
		return err
	}
	return p.journal.RecordTrade(journal.TradeRecord{
		TradeID:    id.New(),
		Pair:       pos.Pair,
		Side:       string(pos.Side),
		Units:      units,
		EntryPrice: pos.AvgPrice,
		ExitPrice:  exit,
		OpenTime:   pos.OpenTime,
		CloseTime:  at,
		RealizedPL: pnl,
		Reason:     reason,
	})
}
