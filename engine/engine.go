// Package engine runs the event dispatch loop that ties the feed,
// strategy, portfolio and execution handler together.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/fxtrader/event"
	"github.com/rustyeddy/fxtrader/execution"
	"github.com/rustyeddy/fxtrader/feed"
	"github.com/rustyeddy/fxtrader/internal/metrics"
	"github.com/rustyeddy/fxtrader/strategy"
)

// DefaultLiveHeartbeat is the idle poll interval in live mode when none
// is configured.
const DefaultLiveHeartbeat = 500 * time.Millisecond

// Portfolio is the part of portfolio.Portfolio the loop drives.
type Portfolio interface {
	UpdatePortfolio(tick event.Tick) error
	ExecuteSignal(sig event.Signal) error
}

// Config wires an Engine. Queue, Strategy, Portfolio and Execution are
// required.
type Config struct {
	Queue     *event.Queue
	Strategy  strategy.Strategy
	Portfolio Portfolio
	Execution execution.Handler

	// Heartbeat is slept after every backtest iteration and between empty
	// polls in live mode.
	Heartbeat time.Duration

	Metrics *metrics.Metrics
	Logger  zerolog.Logger
}

// Result counts what a backtest run dispatched.
type Result struct {
	Iterations int
	Ticks      int
	Signals    int
	Orders     int
	Failed     int
}

type Engine struct {
	q         *event.Queue
	strategy  strategy.Strategy
	portfolio Portfolio
	exec      execution.Handler
	heartbeat time.Duration
	metrics   *metrics.Metrics
	log       zerolog.Logger

	res Result
}

func New(cfg Config) (*Engine, error) {
	switch {
	case cfg.Queue == nil:
		return nil, errors.New("engine: Queue is required")
	case cfg.Strategy == nil:
		return nil, errors.New("engine: Strategy is required")
	case cfg.Portfolio == nil:
		return nil, errors.New("engine: Portfolio is required")
	case cfg.Execution == nil:
		return nil, errors.New("engine: Execution is required")
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.Nop()
	}
	return &Engine{
		q:         cfg.Queue,
		strategy:  cfg.Strategy,
		portfolio: cfg.Portfolio,
		exec:      cfg.Execution,
		heartbeat: cfg.Heartbeat,
		metrics:   m,
		log:       cfg.Logger.With().Str("component", "engine").Logger(),
	}, nil
}

// Backtest drains the queue, pulling one tick from f whenever it runs
// dry, until f is exhausted or maxIters loop passes have run (0 means no
// cap). Every pass counts, including the ones that only pull a tick.
func (e *Engine) Backtest(ctx context.Context, f feed.PriceFeed, maxIters int) (Result, error) {
	e.res = Result{}
	e.log.Info().Int("max_iters", maxIters).Dur("heartbeat", e.heartbeat).Msg("backtest started")

	for maxIters <= 0 || e.res.Iterations < maxIters {
		if err := ctx.Err(); err != nil {
			return e.res, err
		}
		e.res.Iterations++

		ev, ok := e.q.TryGet()
		if !ok {
			if !f.Continue() {
				break
			}
			if err := f.StreamNextTick(); err != nil {
				return e.res, fmt.Errorf("feed: %w", err)
			}
		} else if err := e.dispatch(ctx, ev); err != nil {
			return e.res, err
		}

		if !sleep(ctx, e.heartbeat) {
			return e.res, ctx.Err()
		}
	}

	e.log.Info().
		Int("iterations", e.res.Iterations).
		Int("ticks", e.res.Ticks).
		Int("signals", e.res.Signals).
		Int("orders", e.res.Orders).
		Msg("backtest finished")
	return e.res, nil
}

// Live runs the streaming task and the trading task until ctx is
// cancelled. The stream ending on its own, cleanly or on bad input, does
// not stop trading; a stream error does.
func (e *Engine) Live(ctx context.Context, s feed.Streamer) error {
	hb := e.heartbeat
	if hb <= 0 {
		hb = DefaultLiveHeartbeat
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.Stream(gctx); err != nil {
			return fmt.Errorf("stream: %w", err)
		}
		e.log.Info().Msg("stream task ended")
		return nil
	})
	g.Go(func() error {
		return e.trade(gctx, hb)
	})

	err := g.Wait()
	e.q.Close()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	e.log.Info().Int("ticks", e.res.Ticks).Int("orders", e.res.Orders).Msg("live trading stopped")
	return nil
}

func (e *Engine) trade(ctx context.Context, hb time.Duration) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		e.metrics.QueueDepth.Set(float64(e.q.Len()))
		ev, ok := e.q.TryGet()
		if !ok {
			if !sleep(ctx, hb) {
				return nil
			}
			continue
		}
		if err := e.dispatch(ctx, ev); err != nil {
			return err
		}
	}
}

// dispatch routes one event to its single handler.
func (e *Engine) dispatch(ctx context.Context, ev event.Event) error {
	switch v := ev.(type) {
	case event.Tick:
		e.res.Ticks++
		e.metrics.Ticks.WithLabelValues(v.Pair).Inc()
		if err := e.strategy.CalculateSignals(v); err != nil {
			return fmt.Errorf("strategy %s: %w", v.Pair, err)
		}
		if err := e.portfolio.UpdatePortfolio(v); err != nil {
			return fmt.Errorf("update portfolio %s: %w", v.Pair, err)
		}

	case event.Signal:
		e.res.Signals++
		e.metrics.Signals.WithLabelValues(v.Pair, string(v.Side)).Inc()
		e.log.Debug().Str("pair", v.Pair).Str("side", string(v.Side)).Time("time", v.Time).Msg("signal")
		if err := e.portfolio.ExecuteSignal(v); err != nil {
			return fmt.Errorf("execute signal %s %s: %w", v.Side, v.Pair, err)
		}

	case event.Order:
		if err := e.exec.ExecuteOrder(ctx, v); err != nil {
			e.res.Failed++
			e.metrics.ExecutionErrors.WithLabelValues(v.Pair).Inc()
			e.log.Error().Err(err).Str("order", v.String()).Msg("order failed, dropped")
			return nil
		}
		e.res.Orders++

	default:
		return fmt.Errorf("unknown event %T", ev)
	}
	return nil
}

// sleep waits d or until ctx is done, reporting false for the latter.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
