package strategy

import (
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/fxtrader/event"
	"github.com/rustyeddy/fxtrader/indicators"
)

// MovingAverageCross is a long-only crossover: it buys when the short
// average rises above the long one and sells when it falls back below.
// Signals are suppressed until a pair has seen more than ShortWindow
// ticks. Equal averages hold the current state.
type MovingAverageCross struct {
	shortWindow int
	longWindow  int
	pairs       map[string]*crossState
	sink        event.Sink
	log         zerolog.Logger
	opts        options
}

type crossState struct {
	ticks    int
	short    *indicators.RollingMA
	long     *indicators.RollingMA
	invested bool
}

// CrossState is a read-only view of one pair's state.
type CrossState struct {
	Ticks    int
	Short    decimal.Decimal
	Long     decimal.Decimal
	Invested bool
}

func NewMovingAverageCross(pairs []string, shortWindow, longWindow int, sink event.Sink, log zerolog.Logger, opts ...Option) *MovingAverageCross {
	m := &MovingAverageCross{
		opts:        buildOptions(opts),
		shortWindow: shortWindow,
		longWindow:  longWindow,
		pairs:       make(map[string]*crossState, len(pairs)),
		sink:        sink,
		log:         log.With().Str("strategy", "mac").Logger(),
	}
	for _, p := range pairs {
		m.pairs[p] = &crossState{
			short: indicators.NewRollingMA(shortWindow),
			long:  indicators.NewRollingMA(longWindow),
		}
	}
	return m
}

// CalculateSignals updates both averages with the bid and checks for a
// crossover.
func (m *MovingAverageCross) CalculateSignals(tick event.Tick) error {
	st, ok := m.pairs[tick.Pair]
	if !ok {
		return nil
	}
	defer func() { st.ticks++ }()

	st.short.Update(tick.Bid)
	st.long.Update(tick.Bid)

	if st.ticks <= m.shortWindow {
		return nil
	}

	short, long := st.short.Value(), st.long.Value()
	crossed := (!st.invested && short.GreaterThan(long)) || (st.invested && short.LessThan(long))
	if crossed && m.opts.held() {
		m.log.Debug().Str("pair", tick.Pair).Msg("crossover held until every pair is priced")
		return nil
	}
	switch {
	case !st.invested && short.GreaterThan(long):
		st.invested = true
		m.log.Debug().Str("pair", tick.Pair).Stringer("short", short).Stringer("long", long).Msg("short crossed above long")
		return emit(m.sink, tick, event.Buy)
	case st.invested && short.LessThan(long):
		st.invested = false
		m.log.Debug().Str("pair", tick.Pair).Stringer("short", short).Stringer("long", long).Msg("short crossed below long")
		return emit(m.sink, tick, event.Sell)
	}
	return nil
}

// State returns the current state of pair.
func (m *MovingAverageCross) State(pair string) (CrossState, bool) {
	st, ok := m.pairs[pair]
	if !ok {
		return CrossState{}, false
	}
	return CrossState{
		Ticks:    st.ticks,
		Short:    st.short.Value(),
		Long:     st.long.Value(),
		Invested: st.invested,
	}, true
}
