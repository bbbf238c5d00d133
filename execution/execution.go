// Package execution places orders produced by the portfolio.
package execution

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/fxtrader/event"
)

// Handler places one order. A failed order is not retried.
type Handler interface {
	ExecuteOrder(ctx context.Context, o event.Order) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, o event.Order) error

func (f HandlerFunc) ExecuteOrder(ctx context.Context, o event.Order) error { return f(ctx, o) }

// Simulated fills nothing. It logs the order and reports success, which is
// all a backtest needs since the portfolio already booked the position.
type Simulated struct {
	log zerolog.Logger
}

func NewSimulated(log zerolog.Logger) *Simulated {
	return &Simulated{log: log.With().Str("component", "execution").Logger()}
}

func (s *Simulated) ExecuteOrder(ctx context.Context, o event.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.log.Debug().
		Str("id", o.ID).
		Str("pair", o.Pair).
		Str("side", string(o.Side)).
		Int64("units", o.Units).
		Msg("order executed")
	return nil
}
