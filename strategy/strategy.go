// Package strategy turns ticks into buy and sell signals.
package strategy

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/fxtrader/event"
)

// Strategy consumes ticks and may put Signal events on the sink it was
// built with. Ticks for untracked pairs are ignored.
type Strategy interface {
	CalculateSignals(tick event.Tick) error
}

// Params carries everything a named strategy may need.
type Params struct {
	Pairs       []string
	ShortWindow int
	LongWindow  int
	Interval    int
}

// Gate reports whether signals can be acted on. *market.Snapshot
// satisfies it.
type Gate interface {
	Ready() bool
}

type options struct {
	gate Gate
}

type Option func(*options)

// WithGate holds position transitions while g is not ready. Indicators
// keep updating; the invested state does not flip and nothing is emitted.
func WithGate(g Gate) Option {
	return func(o *options) { o.gate = g }
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) held() bool {
	return o.gate != nil && !o.gate.Ready()
}

// ByName builds one of the registered strategies: "mac" (moving average
// crossover) or "alternating".
func ByName(name string, p Params, sink event.Sink, log zerolog.Logger, opts ...Option) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mac", "ma-cross", "moving-average-cross":
		return NewMovingAverageCross(p.Pairs, p.ShortWindow, p.LongWindow, sink, log, opts...), nil
	case "alternating", "test":
		return NewAlternating(p.Pairs, p.Interval, sink, log, opts...), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q (supported: mac, alternating)", name)
	}
}

func emit(sink event.Sink, tick event.Tick, side event.Side) error {
	sig := event.Signal{
		Pair:      tick.Pair,
		OrderType: event.Market,
		Side:      side,
		Time:      tick.Time,
	}
	if err := sink.Put(sig); err != nil {
		return fmt.Errorf("emit %s %s: %w", side, tick.Pair, err)
	}
	return nil
}
