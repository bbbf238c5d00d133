// Package feed produces Tick events from historical files or a live
// stream and keeps the shared price snapshot current.
package feed

import (
	"context"

	"github.com/rustyeddy/fxtrader/market"
)

// PriceFeed is what the backtest loop pulls ticks from.
//
// StreamNextTick advances to the next tick across all tracked pairs,
// updates the snapshot (direct and inverse entries) and enqueues exactly
// one Tick. Once the data is exhausted it flips Continue to false and
// enqueues nothing.
type PriceFeed interface {
	StreamNextTick() error
	Continue() bool
	Prices() *market.Snapshot
}

// Streamer is a live source. Stream pushes ticks onto its sink until ctx
// is cancelled or the source ends; a clean end returns nil.
type Streamer interface {
	Stream(ctx context.Context) error
	Prices() *market.Snapshot
}
