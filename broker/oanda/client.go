// Package oanda talks to the OANDA v3 REST API: the pricing stream for
// live ticks and market orders for execution.
package oanda

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/fxtrader/event"
	"github.com/rustyeddy/fxtrader/market"
)

const (
	PracticeURL       = "https://api-fxpractice.oanda.com"
	PracticeStreamURL = "https://stream-fxpractice.oanda.com"
	LiveURL           = "https://api-fxtrade.oanda.com"
	LiveStreamURL     = "https://stream-fxtrade.oanda.com"

	// TokenEnv holds the API token. It is never read from config files.
	TokenEnv = "OANDA_TOKEN"
)

var ErrMissingToken = errors.New("oanda: missing token")

// URLs returns the REST and streaming hosts for an environment.
func URLs(env string) (api, stream string, err error) {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "practice", "demo":
		return PracticeURL, PracticeStreamURL, nil
	case "live":
		return LiveURL, LiveStreamURL, nil
	default:
		return "", "", fmt.Errorf("unknown OANDA env %q (want practice|live)", env)
	}
}

// TokenFromEnv reads the API token from OANDA_TOKEN.
func TokenFromEnv() (string, error) {
	tok := strings.TrimSpace(os.Getenv(TokenEnv))
	if tok == "" {
		return "", fmt.Errorf("%w: set %s", ErrMissingToken, TokenEnv)
	}
	return tok, nil
}

// Client is bound to one account.
type Client struct {
	apiURL    string
	streamURL string
	token     string
	accountID string
	http      *http.Client
	log       zerolog.Logger
}

type Option func(*Client)

// WithURLs overrides the hosts, for tests and proxies. Empty values keep
// the current setting.
func WithURLs(api, stream string) Option {
	return func(c *Client) {
		if api != "" {
			c.apiURL = strings.TrimRight(api, "/")
		}
		if stream != "" {
			c.streamURL = strings.TrimRight(stream, "/")
		}
	}
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient builds a client for env ("practice" or "live").
func NewClient(env, accountID, token string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	if accountID == "" {
		return nil, errors.New("oanda: missing account id")
	}
	api, stream, err := URLs(env)
	if err != nil {
		return nil, err
	}
	c := &Client{
		apiURL:    api,
		streamURL: stream,
		token:     token,
		accountID: accountID,
		// no client timeout: the pricing stream is a long-lived response
		http: &http.Client{},
		log:  zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	c.log = c.log.With().Str("component", "oanda").Logger()
	return c, nil
}

func (c *Client) do(ctx context.Context, method, base, path string, query url.Values, body io.Reader) (*http.Response, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, err
	}
	u.Path = path
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept-Datetime-Format", "RFC3339")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return nil, fmt.Errorf("oanda %s %s http %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return resp, nil
}

type orderRequest struct {
	Order marketOrder `json:"order"`
}

type marketOrder struct {
	Instrument   string `json:"instrument"`
	Units        string `json:"units"`
	Type         string `json:"type"`
	TimeInForce  string `json:"timeInForce"`
	PositionFill string `json:"positionFill"`
}

type orderResponse struct {
	OrderFillTransaction *struct {
		ID    string `json:"id"`
		Price string `json:"price"`
		Units string `json:"units"`
		Time  string `json:"time"`
	} `json:"orderFillTransaction"`
	OrderCancelTransaction *struct {
		Reason string `json:"reason"`
	} `json:"orderCancelTransaction"`
}

// ExecuteOrder submits o as a fill-or-kill market order. Sell orders are
// sent with negative units.
func (c *Client) ExecuteOrder(ctx context.Context, o event.Order) error {
	if o.Units <= 0 {
		return fmt.Errorf("order %s: units must be positive", o)
	}
	units := o.Units
	if o.Side == event.Sell {
		units = -units
	}
	payload, err := json.Marshal(orderRequest{Order: marketOrder{
		Instrument:   market.ToInstrument(o.Pair),
		Units:        fmt.Sprintf("%d", units),
		Type:         "MARKET",
		TimeInForce:  "FOK",
		PositionFill: "DEFAULT",
	}})
	if err != nil {
		return err
	}

	path := fmt.Sprintf("/v3/accounts/%s/orders", c.accountID)
	start := time.Now()
	resp, err := c.do(ctx, http.MethodPost, c.apiURL, path, nil, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var out orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decode order response: %w", err)
	}
	if out.OrderCancelTransaction != nil {
		return fmt.Errorf("order %s cancelled: %s", o, out.OrderCancelTransaction.Reason)
	}

	ev := c.log.Info().Str("order", o.String()).Dur("latency", time.Since(start))
	if f := out.OrderFillTransaction; f != nil {
		ev = ev.Str("fill_id", f.ID).Str("price", f.Price)
	}
	ev.Msg("order filled")
	return nil
}
