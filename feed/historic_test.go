package feed

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/fxtrader/event"
	"github.com/rustyeddy/fxtrader/market"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func drain(q *event.Queue) []event.Tick {
	var out []event.Tick
	for {
		e, ok := q.TryGet()
		if !ok {
			return out
		}
		out = append(out, e.(event.Tick))
	}
}

func TestHistoricCSVMergesPairs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "EURUSD_20240102.csv", `Time,Ask,Bid,AskVolume,BidVolume
02.01.2024 00:00:00.100,1.10020,1.10000,1.5000,1.2000
02.01.2024 00:00:00.300,1.10030,1.10010,1.5000,1.2000
`)
	writeFile(t, dir, "GBPUSD.csv", `time,instrument,bid,ask
2024-01-02T00:00:00.200Z,GBP_USD,1.27000,1.27020
2024-01-02T00:00:00.300Z,GBP_USD,1.27010,1.27030
`)

	snap := market.NewSnapshot("EURUSD", "GBPUSD")
	q := event.NewQueue()
	h, err := NewHistoricCSV(dir, []string{"EURUSD", "GBPUSD"}, snap, q)
	require.NoError(t, err)
	assert.Equal(t, 4, h.Remaining())
	assert.Same(t, snap, h.Prices())

	for h.Continue() {
		require.NoError(t, h.StreamNextTick())
	}
	ticks := drain(q)
	require.Len(t, ticks, 4)

	pairs := []string{ticks[0].Pair, ticks[1].Pair, ticks[2].Pair, ticks[3].Pair}
	assert.Equal(t, []string{"EURUSD", "GBPUSD", "EURUSD", "GBPUSD"}, pairs)
	for i := 1; i < len(ticks); i++ {
		assert.False(t, ticks[i].Time.Before(ticks[i-1].Time))
	}
	assert.True(t, decimal.RequireFromString("1.10000").Equal(ticks[0].Bid))
	assert.True(t, decimal.RequireFromString("1.10020").Equal(ticks[0].Ask))

	assert.True(t, snap.Ready())
	q4, err := snap.Get("USDGBP")
	require.NoError(t, err)
	assert.Equal(t, ticks[3].Time, q4.Time)
}

func TestHistoricCSVExhaustion(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "EURUSD.csv", "2024-01-02T00:00:00Z,EURUSD,1.1,1.1002\n")

	q := event.NewQueue()
	h, err := NewHistoricCSV(dir, []string{"EURUSD"}, market.NewSnapshot("EURUSD"), q)
	require.NoError(t, err)

	require.NoError(t, h.StreamNextTick())
	assert.True(t, h.Continue())
	assert.Equal(t, 1, q.Len())

	require.NoError(t, h.StreamNextTick())
	assert.False(t, h.Continue())
	assert.Equal(t, 1, q.Len(), "end of data enqueues nothing")
}

func TestHistoricCSVRange(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "EURUSD.csv", `time,instrument,bid,ask
2024-01-02T00:00:00Z,EUR_USD,1.1,1.1002
2024-01-02T00:01:00Z,EUR_USD,1.1,1.1002
2024-01-02T00:02:00Z,EUR_USD,1.1,1.1002
2024-01-02T00:02:00Z,GBP_USD,1.2,1.2002
`)
	from := time.Date(2024, 1, 2, 0, 1, 0, 0, time.UTC)
	to := time.Date(2024, 1, 2, 0, 2, 0, 0, time.UTC)

	h, err := NewHistoricCSV(dir, []string{"EURUSD"}, market.NewSnapshot("EURUSD"), event.NewQueue(), WithRange(from, to))
	require.NoError(t, err)
	assert.Equal(t, 1, h.Remaining())
}

func TestHistoricCSVErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := NewHistoricCSV(dir, []string{"EURUSD"}, market.NewSnapshot("EURUSD"), event.NewQueue())
	assert.ErrorIs(t, err, ErrNoData)

	writeFile(t, dir, "EURUSD.csv", "time,instrument,bid,ask\nyesterday,EUR_USD,1.1,1.1002\n")
	_, err = NewHistoricCSV(dir, []string{"EURUSD"}, market.NewSnapshot("EURUSD"), event.NewQueue())
	assert.Error(t, err)
}

func TestParseRow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		row     []string
		lay     layout
		wantOk  bool
		wantErr bool
		bid     string
	}{
		{"canonical", []string{"2026-01-24T09:30:00Z", "EUR_USD", "1.1000", "1.1002"}, layoutCanonical, true, false, "1.1"},
		{"canonical nano", []string{"2026-01-24T09:30:00.123456789Z", "EURUSD", "1.100004", "1.1002"}, layoutCanonical, true, false, "1.1"},
		{"other pair", []string{"2026-01-24T09:30:00Z", "GBP_USD", "1.25", "1.2502"}, layoutCanonical, false, false, ""},
		{"short", []string{"2026-01-24T09:30:00Z", "EUR_USD", "1.1"}, layoutCanonical, false, false, ""},
		{"empty time", []string{"", "EUR_USD", "1.1", "1.1002"}, layoutCanonical, false, false, ""},
		{"bad bid", []string{"2026-01-24T09:30:00Z", "EUR_USD", "x", "1.1002"}, layoutCanonical, false, true, ""},
		{"dukascopy", []string{"24.01.2026 09:30:00.000", "1.10020", "1.100016"}, layoutDukascopy, true, false, "1.10002"},
		{"dukascopy bad time", []string{"2026-01-24", "1.1002", "1.1"}, layoutDukascopy, false, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tick, ok, err := parseRow(tt.row, tt.lay, "EURUSD")
			assert.Equal(t, tt.wantOk, ok)
			assert.Equal(t, tt.wantErr, err != nil, "err = %v", err)
			if ok {
				assert.True(t, decimal.RequireFromString(tt.bid).Equal(tick.Bid), "bid %s", tick.Bid)
			}
		})
	}
}
