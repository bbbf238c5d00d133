package strategy

import (
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/fxtrader/event"
)

var t0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func ticks(pair string, prices ...string) []event.Tick {
	out := make([]event.Tick, len(prices))
	for i, p := range prices {
		bid := decimal.RequireFromString(p)
		out[i] = event.Tick{Pair: pair, Time: t0.Add(time.Duration(i) * time.Second), Bid: bid, Ask: bid.Add(decimal.New(2, -4))}
	}
	return out
}

func series(start float64, step float64, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%.5f", start+step*float64(i+1))
	}
	return out
}

func repeat(p string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = p
	}
	return out
}

type signalAt struct {
	index int
	side  event.Side
}

func run(t *testing.T, s Strategy, q *event.Queue, in []event.Tick) []signalAt {
	t.Helper()
	var got []signalAt
	for i, tk := range in {
		require.NoError(t, s.CalculateSignals(tk))
		for {
			e, ok := q.TryGet()
			if !ok {
				break
			}
			sig := e.(event.Signal)
			assert.Equal(t, event.Market, sig.OrderType)
			assert.Equal(t, tk.Time, sig.Time)
			got = append(got, signalAt{i, sig.Side})
		}
	}
	return got
}

func TestMovingAverageCrossConstantStream(t *testing.T) {
	t.Parallel()

	q := event.NewQueue()
	m := NewMovingAverageCross([]string{"EURUSD"}, 3, 6, q, zerolog.Nop())
	got := run(t, m, q, ticks("EURUSD", repeat("1.20000", 20)...))
	assert.Empty(t, got, "equal averages hold")

	st, ok := m.State("EURUSD")
	require.True(t, ok)
	assert.Equal(t, 20, st.Ticks)
	assert.True(t, decimal.RequireFromString("1.2").Equal(st.Short))
	assert.True(t, decimal.RequireFromString("1.2").Equal(st.Long))
	assert.False(t, st.Invested)
}

func TestMovingAverageCrossBuyThenSell(t *testing.T) {
	t.Parallel()

	prices := repeat("1.10000", 10)
	prices = append(prices, series(1.10000, 0.0001, 10)...)
	prices = append(prices, series(1.10100, -0.0001, 20)...)

	q := event.NewQueue()
	m := NewMovingAverageCross([]string{"EURUSD"}, 3, 6, q, zerolog.Nop())
	got := run(t, m, q, ticks("EURUSD", prices...))

	assert.Equal(t, []signalAt{{10, event.Buy}, {25, event.Sell}}, got)
	st, _ := m.State("EURUSD")
	assert.False(t, st.Invested)
	assert.True(t, st.Short.LessThan(st.Long))
}

func TestMovingAverageCrossWarmupGate(t *testing.T) {
	t.Parallel()

	// short > long from the second tick, but nothing fires until the
	// pair has seen more than three ticks
	q := event.NewQueue()
	m := NewMovingAverageCross([]string{"EURUSD"}, 3, 6, q, zerolog.Nop())
	prices := append([]string{"1.10000"}, series(1.10000, 0.0001, 9)...)
	got := run(t, m, q, ticks("EURUSD", prices...))

	assert.Equal(t, []signalAt{{4, event.Buy}}, got)
}

func TestMovingAverageCrossIgnoresUntrackedPairs(t *testing.T) {
	t.Parallel()

	q := event.NewQueue()
	m := NewMovingAverageCross([]string{"EURUSD"}, 3, 6, q, zerolog.Nop())
	require.NoError(t, m.CalculateSignals(event.Tick{Pair: "USDJPY", Bid: decimal.NewFromInt(150)}))
	assert.Equal(t, 0, q.Len())
	_, ok := m.State("USDJPY")
	assert.False(t, ok)
}

func TestMovingAverageCrossPairsAreIndependent(t *testing.T) {
	t.Parallel()

	q := event.NewQueue()
	m := NewMovingAverageCross([]string{"EURUSD", "GBPUSD"}, 3, 6, q, zerolog.Nop())

	up := append([]string{"1.10000"}, series(1.10000, 0.0001, 9)...)
	eur := ticks("EURUSD", up...)
	gbp := ticks("GBPUSD", repeat("1.27000", 10)...)
	var merged []event.Tick
	for i := range eur {
		merged = append(merged, eur[i], gbp[i])
	}
	for _, tk := range merged {
		require.NoError(t, m.CalculateSignals(tk))
	}

	require.Equal(t, 1, q.Len())
	e, _ := q.TryGet()
	assert.Equal(t, "EURUSD", e.(event.Signal).Pair)
	st, _ := m.State("GBPUSD")
	assert.Equal(t, 10, st.Ticks)
}

func TestAlternating(t *testing.T) {
	t.Parallel()

	q := event.NewQueue()
	a := NewAlternating([]string{"EURUSD"}, 5, q, zerolog.Nop())
	got := run(t, a, q, ticks("EURUSD", repeat("1.10000", 22)...))

	assert.Equal(t, []signalAt{
		{4, event.Buy}, {9, event.Sell}, {14, event.Buy}, {19, event.Sell},
	}, got)
}

type stubGate struct{ ready bool }

func (g *stubGate) Ready() bool { return g.ready }

func TestMovingAverageCrossHeldByGate(t *testing.T) {
	t.Parallel()

	gate := &stubGate{}
	q := event.NewQueue()
	m := NewMovingAverageCross([]string{"EURUSD"}, 3, 6, q, zerolog.Nop(), WithGate(gate))
	prices := append([]string{"1.10000"}, series(1.10000, 0.0001, 11)...)
	in := ticks("EURUSD", prices...)

	// the crossover is live from tick 4 but the gate is closed
	got := run(t, m, q, in[:7])
	assert.Empty(t, got)
	st, _ := m.State("EURUSD")
	assert.Equal(t, 7, st.Ticks)
	assert.True(t, st.Short.GreaterThan(st.Long))
	assert.False(t, st.Invested)

	gate.ready = true
	got = run(t, m, q, in[7:])
	assert.Equal(t, []signalAt{{0, event.Buy}}, got)
	st, _ = m.State("EURUSD")
	assert.True(t, st.Invested)
}

func TestMovingAverageCrossGateHoldsSell(t *testing.T) {
	t.Parallel()

	gate := &stubGate{ready: true}
	q := event.NewQueue()
	m := NewMovingAverageCross([]string{"EURUSD"}, 3, 6, q, zerolog.Nop(), WithGate(gate))
	up := append([]string{"1.10000"}, series(1.10000, 0.0001, 5)...)
	assert.Equal(t, []signalAt{{4, event.Buy}}, run(t, m, q, ticks("EURUSD", up...)))

	gate.ready = false
	down := ticks("EURUSD", repeat("1.09000", 3)...)
	assert.Empty(t, run(t, m, q, down))
	st, _ := m.State("EURUSD")
	assert.True(t, st.Invested, "a held sell keeps the long")

	gate.ready = true
	assert.Equal(t, []signalAt{{0, event.Sell}}, run(t, m, q, down[:1]))
}

func TestAlternatingHeldByGate(t *testing.T) {
	t.Parallel()

	gate := &stubGate{}
	q := event.NewQueue()
	a := NewAlternating([]string{"EURUSD"}, 2, q, zerolog.Nop(), WithGate(gate))
	in := ticks("EURUSD", repeat("1.10000", 6)...)

	assert.Empty(t, run(t, a, q, in[:2]))
	assert.False(t, a.invested["EURUSD"])

	gate.ready = true
	assert.Equal(t, []signalAt{{1, event.Buy}, {3, event.Sell}}, run(t, a, q, in[2:]))
}

func TestByName(t *testing.T) {
	t.Parallel()

	q := event.NewQueue()
	p := Params{Pairs: []string{"EURUSD"}, ShortWindow: 3, LongWindow: 6, Interval: 2}

	s, err := ByName("mac", p, q, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &MovingAverageCross{}, s)

	s, err = ByName(" Alternating ", p, q, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &Alternating{}, s)

	s, err = ByName("mac", p, q, zerolog.Nop(), WithGate(&stubGate{}))
	require.NoError(t, err)
	require.NoError(t, s.CalculateSignals(ticks("EURUSD", "1.1")[0]))
	assert.True(t, s.(*MovingAverageCross).opts.held())

	_, err = ByName("ema-cross", p, q, zerolog.Nop())
	assert.Error(t, err)
}

func TestEmitOnClosedQueue(t *testing.T) {
	t.Parallel()

	q := event.NewQueue()
	q.Close()
	a := NewAlternating([]string{"EURUSD"}, 1, q, zerolog.Nop())
	err := a.CalculateSignals(ticks("EURUSD", "1.1")[0])
	assert.ErrorIs(t, err, event.ErrQueueClosed)
}
