// Package event defines the messages that move through the dispatch loop
// and the queue that carries them.
package event

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Kind tags an event for dispatch.
type Kind int

const (
	KindTick Kind = iota + 1
	KindSignal
	KindOrder
)

func (k Kind) String() string {
	switch k {
	case KindTick:
		return "tick"
	case KindSignal:
		return "signal"
	case KindOrder:
		return "order"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Side is the direction of a signal or order.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// OrderType is always Market; the field exists for the broker wire format.
type OrderType string

const Market OrderType = "market"

// Event is implemented by Tick, Signal and Order.
type Event interface {
	Kind() Kind
}

// Tick is one bid/ask observation for a direct pair.
type Tick struct {
	Pair string
	Time time.Time
	Bid  decimal.Decimal
	Ask  decimal.Decimal
}

func (Tick) Kind() Kind { return KindTick }

// Signal is a strategy's request to trade.
type Signal struct {
	Pair      string
	OrderType OrderType
	Side      Side
	Time      time.Time
}

func (Signal) Kind() Kind { return KindSignal }

// Order is a sized instruction for the execution handler.
type Order struct {
	ID        string
	Pair      string
	Units     int64
	OrderType OrderType
	Side      Side
	Time      time.Time
}

func (Order) Kind() Kind { return KindOrder }

func (o Order) String() string {
	return fmt.Sprintf("%s %s %d %s", o.OrderType, o.Side, o.Units, o.Pair)
}
