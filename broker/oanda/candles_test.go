package oanda

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandleTicksMissingInputs(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL)
	}))
	defer srv.Close()
	c := newTestClient(t, srv)

	tests := []struct {
		name string
		opts CandlesOptions
		want string
	}{
		{name: "missing pair", opts: CandlesOptions{Granularity: "M1"}, want: "pair"},
		{name: "missing granularity", opts: CandlesOptions{Pair: "EURUSD"}, want: "missing granularity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.CandleTicks(context.Background(), tt.opts)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCandleTicks(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/instruments/EUR_USD/candles", r.URL.Path)
		assert.Equal(t, "M1", r.URL.Query().Get("granularity"))
		assert.Equal(t, "BA", r.URL.Query().Get("price"))
		assert.Equal(t, "3", r.URL.Query().Get("count"))
		assert.Empty(t, r.URL.Query().Get("from"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"instrument":  "EUR_USD",
			"granularity": "M1",
			"candles": []map[string]any{
				{
					"complete": true,
					"time":     "2024-01-02T09:00:00.000000000Z",
					"volume":   10,
					"bid":      map[string]string{"o": "1.09990", "h": "1.10010", "l": "1.09980", "c": "1.100005"},
					"ask":      map[string]string{"o": "1.10010", "h": "1.10030", "l": "1.10000", "c": "1.10020"},
				},
				{
					"complete": true,
					"time":     "2024-01-02T09:01:00.000000000Z",
					"volume":   4,
					"bid":      map[string]string{"o": "1.10000", "h": "1.10050", "l": "1.10000", "c": "1.10040"},
					"ask":      map[string]string{"o": "1.10020", "h": "1.10070", "l": "1.10020", "c": "1.10060"},
				},
				{
					"complete": false,
					"time":     "2024-01-02T09:02:00.000000000Z",
					"volume":   1,
					"bid":      map[string]string{"o": "1.10040", "h": "1.10040", "l": "1.10040", "c": "1.10040"},
					"ask":      map[string]string{"o": "1.10060", "h": "1.10060", "l": "1.10060", "c": "1.10060"},
				},
			},
		})
	}))
	defer srv.Close()

	ticks, err := newTestClient(t, srv).CandleTicks(context.Background(), CandlesOptions{
		Pair:        "EURUSD",
		Granularity: "M1",
		Count:       3,
		From:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, ticks, 2)

	assert.Equal(t, "EURUSD", ticks[0].Pair)
	assert.Equal(t, time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC), ticks[0].Time)
	// 1.100005 ties toward zero
	assert.True(t, decimal.RequireFromString("1.10000").Equal(ticks[0].Bid), ticks[0].Bid.String())
	assert.True(t, decimal.RequireFromString("1.10020").Equal(ticks[0].Ask))
	assert.True(t, decimal.RequireFromString("1.10040").Equal(ticks[1].Bid))
	assert.True(t, decimal.RequireFromString("1.10060").Equal(ticks[1].Ask))
}

func TestCandleTicksRange(t *testing.T) {
	t.Parallel()

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(time.Hour)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, from.Format(time.RFC3339Nano), r.URL.Query().Get("from"))
		assert.Equal(t, to.Format(time.RFC3339Nano), r.URL.Query().Get("to"))
		assert.Empty(t, r.URL.Query().Get("count"))
		_, _ = w.Write([]byte(`{"instrument":"GBP_USD","granularity":"H1","candles":[]}`))
	}))
	defer srv.Close()

	ticks, err := newTestClient(t, srv).CandleTicks(context.Background(), CandlesOptions{
		Pair: "GBPUSD", Granularity: "H1", From: from, To: to,
	})
	require.NoError(t, err)
	assert.Empty(t, ticks)
}

func TestCandleTicksErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{name: "http error", status: http.StatusBadRequest, body: `{"errorMessage":"Invalid value specified for 'granularity'"}`, want: "http 400"},
		{name: "bad json", status: http.StatusOK, body: `{`, want: "decode candles"},
		{name: "missing ask", status: http.StatusOK, body: `{"candles":[{"complete":true,"time":"2024-01-02T09:00:00Z","bid":{"c":"1.1"}}]}`, want: "missing bid or ask"},
		{name: "bad price", status: http.StatusOK, body: `{"candles":[{"complete":true,"time":"2024-01-02T09:00:00Z","bid":{"c":"x"},"ask":{"c":"1.1"}}]}`, want: "bid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestClient(t, srv).CandleTicks(context.Background(), CandlesOptions{Pair: "EURUSD", Granularity: "M1"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
