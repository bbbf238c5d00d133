package oanda

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/fxtrader/event"
	"github.com/rustyeddy/fxtrader/internal/metrics"
	"github.com/rustyeddy/fxtrader/market"
)

type pricingStreamMsg struct {
	Type       string `json:"type"`
	Time       string `json:"time"`
	Instrument string `json:"instrument"`

	Bids []struct {
		Price string `json:"price"`
	} `json:"bids"`

	Asks []struct {
		Price string `json:"price"`
	} `json:"asks"`
}

// Stream is the live price feed: one pricing stream connection for all
// configured pairs.
type Stream struct {
	c       *Client
	pairs   []string
	snap    *market.Snapshot
	sink    event.Sink
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// NewStream prepares a stream for pairs. Nothing is opened until Stream.
func (c *Client) NewStream(pairs []string, snap *market.Snapshot, sink event.Sink, m *metrics.Metrics) *Stream {
	if m == nil {
		m = metrics.Nop()
	}
	return &Stream{
		c:       c,
		pairs:   append([]string(nil), pairs...),
		snap:    snap,
		sink:    sink,
		metrics: m,
		log:     c.log.With().Str("task", "stream").Logger(),
	}
}

func (s *Stream) Prices() *market.Snapshot { return s.snap }

// Stream reads price messages until ctx is done or the server closes the
// connection. Heartbeats are skipped. A message that cannot be parsed is
// logged and ends the stream with a nil error so the trading side keeps
// running on the prices it already has.
func (s *Stream) Stream(ctx context.Context) error {
	instruments := make([]string, len(s.pairs))
	for i, p := range s.pairs {
		instruments[i] = market.ToInstrument(p)
	}
	q := url.Values{}
	q.Set("instruments", strings.Join(instruments, ","))
	path := fmt.Sprintf("/v3/accounts/%s/pricing/stream", s.c.accountID)

	resp, err := s.c.do(ctx, http.MethodGet, s.c.streamURL, path, q, nil)
	if err != nil {
		s.metrics.FeedErrors.Inc()
		return err
	}
	defer resp.Body.Close()
	s.log.Info().Strs("instruments", instruments).Msg("pricing stream connected")

	sc := bufio.NewScanner(resp.Body)
	// stream messages can be long
	sc.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)

	for sc.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		tick, ok, err := s.parse(line)
		if err != nil {
			s.metrics.FeedErrors.Inc()
			s.log.Error().Err(err).Str("line", trimForErr(line)).Msg("malformed price message, stream stopped")
			return nil
		}
		if !ok {
			continue
		}
		if _, err := s.snap.Update(tick.Pair, tick.Bid, tick.Ask, tick.Time); err != nil {
			s.metrics.FeedErrors.Inc()
			s.log.Error().Err(err).Str("pair", tick.Pair).Msg("price rejected, stream stopped")
			return nil
		}
		if err := s.sink.Put(tick); err != nil {
			if errors.Is(err, event.ErrQueueClosed) {
				return nil
			}
			return err
		}
	}

	if err := sc.Err(); err != nil && ctx.Err() == nil {
		s.metrics.FeedErrors.Inc()
		return fmt.Errorf("pricing stream: %w", err)
	}
	s.log.Info().Msg("pricing stream closed")
	return nil
}

// parse returns ok=false for messages that carry no tradable price.
func (s *Stream) parse(line string) (event.Tick, bool, error) {
	var msg pricingStreamMsg
	if err := json.Unmarshal([]byte(line), &msg); err != nil {
		return event.Tick{}, false, fmt.Errorf("bad json: %w", err)
	}
	switch strings.ToUpper(msg.Type) {
	case "HEARTBEAT":
		return event.Tick{}, false, nil
	case "PRICE":
	default:
		return event.Tick{}, false, nil
	}
	if msg.Instrument == "" || len(msg.Bids) == 0 || len(msg.Asks) == 0 {
		return event.Tick{}, false, fmt.Errorf("price message without instrument or book")
	}

	pair := market.FromInstrument(msg.Instrument)
	if !s.snap.IsDirect(pair) {
		return event.Tick{}, false, nil
	}
	bid, err := decimal.NewFromString(msg.Bids[0].Price)
	if err != nil {
		return event.Tick{}, false, fmt.Errorf("bid %q: %w", msg.Bids[0].Price, err)
	}
	ask, err := decimal.NewFromString(msg.Asks[0].Price)
	if err != nil {
		return event.Tick{}, false, fmt.Errorf("ask %q: %w", msg.Asks[0].Price, err)
	}
	ts := time.Now().UTC()
	if msg.Time != "" {
		if ts, err = time.Parse(time.RFC3339Nano, msg.Time); err != nil {
			return event.Tick{}, false, fmt.Errorf("time %q: %w", msg.Time, err)
		}
	}
	return event.Tick{
		Pair: pair,
		Time: ts.UTC(),
		Bid:  market.RoundPrice(bid),
		Ask:  market.RoundPrice(ask),
	}, true, nil
}

func trimForErr(s string) string {
	const n = 200
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
