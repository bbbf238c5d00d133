package oanda

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/fxtrader/event"
	"github.com/rustyeddy/fxtrader/market"
)

// CandlesOptions selects a range of bid/ask candles for one pair.
type CandlesOptions struct {
	Pair        string
	Granularity string // e.g. S5, M1, H1, D

	From  time.Time // optional
	To    time.Time // optional
	Count int       // used instead of From/To when > 0
}

type ohlc struct {
	O string `json:"o"`
	H string `json:"h"`
	L string `json:"l"`
	C string `json:"c"`
}

type candlesResp struct {
	Instrument  string `json:"instrument"`
	Granularity string `json:"granularity"`
	Candles     []struct {
		Complete bool   `json:"complete"`
		Time     string `json:"time"`
		Volume   int    `json:"volume"`
		Bid      *ohlc  `json:"bid,omitempty"`
		Ask      *ohlc  `json:"ask,omitempty"`
	} `json:"candles"`
}

// CandleTicks downloads bid/ask candles and turns each complete candle
// into one tick priced at its closing bid and ask. Incomplete candles are
// skipped.
func (c *Client) CandleTicks(ctx context.Context, opts CandlesOptions) ([]event.Tick, error) {
	if err := market.ValidatePair(opts.Pair); err != nil {
		return nil, err
	}
	if opts.Granularity == "" {
		return nil, errors.New("oanda: missing granularity")
	}

	q := url.Values{}
	q.Set("granularity", opts.Granularity)
	q.Set("price", "BA")
	if opts.Count > 0 {
		q.Set("count", strconv.Itoa(opts.Count))
	} else {
		if !opts.From.IsZero() {
			q.Set("from", opts.From.UTC().Format(time.RFC3339Nano))
		}
		if !opts.To.IsZero() {
			q.Set("to", opts.To.UTC().Format(time.RFC3339Nano))
		}
	}

	path := fmt.Sprintf("/v3/instruments/%s/candles", market.ToInstrument(opts.Pair))
	resp, err := c.do(ctx, http.MethodGet, c.apiURL, path, q, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var cr candlesResp
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("decode candles: %w", err)
	}

	ticks := make([]event.Tick, 0, len(cr.Candles))
	for _, cd := range cr.Candles {
		if !cd.Complete {
			continue
		}
		if cd.Bid == nil || cd.Ask == nil {
			return nil, fmt.Errorf("candle %s: missing bid or ask", cd.Time)
		}
		ts, err := time.Parse(time.RFC3339Nano, cd.Time)
		if err != nil {
			return nil, fmt.Errorf("candle time %q: %w", cd.Time, err)
		}
		bid, err := decimal.NewFromString(cd.Bid.C)
		if err != nil {
			return nil, fmt.Errorf("candle %s bid: %w", cd.Time, err)
		}
		ask, err := decimal.NewFromString(cd.Ask.C)
		if err != nil {
			return nil, fmt.Errorf("candle %s ask: %w", cd.Time, err)
		}
		ticks = append(ticks, event.Tick{
			Pair: opts.Pair,
			Time: ts.UTC(),
			Bid:  market.RoundPrice(bid),
			Ask:  market.RoundPrice(ask),
		})
	}
	c.log.Info().Str("pair", opts.Pair).Str("granularity", opts.Granularity).Int("ticks", len(ticks)).Msg("candles downloaded")
	return ticks, nil
}
