package feed

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/fxtrader/event"
	"github.com/rustyeddy/fxtrader/market"
)

func slowSim(pair string) SimOptions {
	o := DefaultSimOptions(pair)
	o.MeanDt = 10 * time.Minute
	o.StdDt = 0
	return o
}

func TestSimulatorWriteDay(t *testing.T) {
	t.Parallel()

	s, err := NewSimulator(slowSim("EURUSD"))
	require.NoError(t, err)

	dir := t.TempDir()
	var buf bytes.Buffer
	n, err := s.WriteDay(&buf, time.Date(2017, 1, 2, 15, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 143, n)
	writeFile(t, dir, "EURUSD_20170102.csv", buf.String())

	q := event.NewQueue()
	h, err := NewHistoricCSV(dir, []string{"EURUSD"}, market.NewSnapshot("EURUSD"), q)
	require.NoError(t, err)
	require.Equal(t, 143, h.Remaining())
	for h.Continue() {
		require.NoError(t, h.StreamNextTick())
	}
	ticks := drain(q)
	require.Len(t, ticks, 143)

	assert.Equal(t, time.Date(2017, 1, 2, 0, 10, 0, 0, time.UTC), ticks[0].Time)
	assert.Equal(t, time.Date(2017, 1, 2, 23, 50, 0, 0, time.UTC), ticks[142].Time)
	for _, tk := range ticks {
		spread, _ := tk.Ask.Sub(tk.Bid).Float64()
		assert.InDelta(t, 0.002, spread, 0.0000101)
	}
	assert.InDelta(t, 1.5, ticks[0].Bid.Add(ticks[0].Ask).Div(decimal.NewFromInt(2)).InexactFloat64(), 0.001)
}

func TestSimulatorDeterministic(t *testing.T) {
	t.Parallel()

	day := time.Date(2017, 1, 3, 0, 0, 0, 0, time.UTC)
	run := func(seed uint64) string {
		o := slowSim("GBPUSD")
		o.Seed = seed
		s, err := NewSimulator(o)
		require.NoError(t, err)
		var buf bytes.Buffer
		_, err = s.WriteDay(&buf, day)
		require.NoError(t, err)
		return buf.String()
	}
	assert.Equal(t, run(7), run(7))
	assert.NotEqual(t, run(7), run(8))
}

func TestSimulatorWriteMonth(t *testing.T) {
	t.Parallel()

	s, err := NewSimulator(slowSim("EURUSD"))
	require.NoError(t, err)

	dir := t.TempDir()
	paths, err := s.WriteMonth(dir, 2017, time.January)
	require.NoError(t, err)
	require.Len(t, paths, 22)
	assert.Equal(t, filepath.Join(dir, "EURUSD_20170102.csv"), paths[0])
	assert.Equal(t, filepath.Join(dir, "EURUSD_20170131.csv"), paths[21])
}

func TestNewSimulatorValidation(t *testing.T) {
	t.Parallel()

	_, err := NewSimulator(DefaultSimOptions("EUR"))
	require.Error(t, err)

	o := DefaultSimOptions("EURUSD")
	o.MeanDt = 0
	_, err = NewSimulator(o)
	require.Error(t, err)
}

func TestWriteTicksCSVRoundTrip(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	in := []event.Tick{
		{Pair: "EURUSD", Time: t0, Bid: decimal.RequireFromString("1.1"), Ask: decimal.RequireFromString("1.10020")},
		{Pair: "EURUSD", Time: t0.Add(time.Second), Bid: decimal.RequireFromString("1.10010"), Ask: decimal.RequireFromString("1.10030")},
	}

	dir := t.TempDir()
	require.NoError(t, WriteTicksFile(filepath.Join(dir, "EURUSD.csv"), in))

	var buf bytes.Buffer
	require.NoError(t, WriteTicksCSV(&buf, in[:1]))
	assert.Equal(t, "time,instrument,bid,ask\n2024-01-02T09:00:00Z,EUR_USD,1.10000,1.10020\n", buf.String())

	q := event.NewQueue()
	h, err := NewHistoricCSV(dir, []string{"EURUSD"}, market.NewSnapshot("EURUSD"), q)
	require.NoError(t, err)
	for h.Continue() {
		require.NoError(t, h.StreamNextTick())
	}
	out := drain(q)
	require.Len(t, out, 2)
	for i := range in {
		assert.Equal(t, in[i].Time, out[i].Time)
		assert.True(t, in[i].Bid.Equal(out[i].Bid))
		assert.True(t, in[i].Ask.Equal(out[i].Ask))
	}
}
