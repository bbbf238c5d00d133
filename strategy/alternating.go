package strategy

import (
	"github.com/rs/zerolog"

	"github.com/rustyeddy/fxtrader/event"
)

// Alternating buys on every interval-th tick of a pair and sells on the
// next one. It exists for smoke runs of the whole pipeline.
type Alternating struct {
	interval int
	ticks    map[string]int
	invested map[string]bool
	sink     event.Sink
	log      zerolog.Logger
	opts     options
}

func NewAlternating(pairs []string, interval int, sink event.Sink, log zerolog.Logger, opts ...Option) *Alternating {
	if interval <= 0 {
		interval = 5
	}
	a := &Alternating{
		interval: interval,
		ticks:    make(map[string]int, len(pairs)),
		invested: make(map[string]bool, len(pairs)),
		sink:     sink,
		log:      log.With().Str("strategy", "alternating").Logger(),
		opts:     buildOptions(opts),
	}
	for _, p := range pairs {
		a.ticks[p] = 0
	}
	return a
}

func (a *Alternating) CalculateSignals(tick event.Tick) error {
	n, ok := a.ticks[tick.Pair]
	if !ok {
		return nil
	}
	n++
	a.ticks[tick.Pair] = n
	if n%a.interval != 0 {
		return nil
	}
	if a.opts.held() {
		a.log.Debug().Str("pair", tick.Pair).Int("tick", n).Msg("alternate held until every pair is priced")
		return nil
	}

	side := event.Buy
	if a.invested[tick.Pair] {
		side = event.Sell
	}
	a.invested[tick.Pair] = !a.invested[tick.Pair]
	a.log.Debug().Str("pair", tick.Pair).Int("tick", n).Str("side", string(side)).Msg("alternate")
	return emit(a.sink, tick, side)
}
