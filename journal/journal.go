// Package journal persists the append-only equity log and closed trades.
package journal

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeRecord is one realized reduction of a position: a full close, a
// partial close or the closing leg of a flip.
type TradeRecord struct {
	TradeID    string
	Pair       string
	Side       string
	Units      int64
	EntryPrice decimal.Decimal
	ExitPrice  decimal.Decimal
	OpenTime   time.Time
	CloseTime  time.Time
	RealizedPL decimal.Decimal
	Reason     string
}

// EquitySnapshot is one row of the equity log, written per processed
// tick. Profits holds the unrealized profit of each open position keyed
// by pair; flat pairs are absent.
type EquitySnapshot struct {
	Time    time.Time
	Balance decimal.Decimal
	Profits map[string]decimal.Decimal
}

// Total is balance plus every open position's profit.
func (e EquitySnapshot) Total() decimal.Decimal {
	t := e.Balance
	for _, p := range e.Profits {
		t = t.Add(p)
	}
	return t
}

// Journal is implemented by CSV and SQLite.
type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}
