package feed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/fxtrader/event"
	"github.com/rustyeddy/fxtrader/market"
)

// Tick file layouts. Canonical rows are
//
//	time,instrument,bid,ask
//
// with RFC3339 times. Dukascopy exports are
//
//	Time,Ask,Bid,AskVolume,BidVolume
//
// with "02.01.2006 15:04:05.000" UTC times; the pair comes from the file
// name (EURUSD.csv or EURUSD_20240102.csv).
const dukascopyLayout = "02.01.2006 15:04:05.000"

type layout int

const (
	layoutCanonical layout = iota
	layoutDukascopy
)

// ErrNoData is returned when no tick file matched any configured pair.
var ErrNoData = errors.New("no tick data")

// HistoricCSV replays tick files from a directory in timestamp order.
type HistoricCSV struct {
	dir   string
	pairs []string
	snap  *market.Snapshot
	sink  event.Sink
	log   zerolog.Logger

	from, to time.Time

	ticks []event.Tick
	next  int
	cont  bool
}

// Option configures a HistoricCSV.
type Option func(*HistoricCSV)

// WithRange keeps ticks in [from, to). Zero bounds are open.
func WithRange(from, to time.Time) Option {
	return func(h *HistoricCSV) {
		h.from = from
		h.to = to
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(h *HistoricCSV) { h.log = l }
}

// NewHistoricCSV loads every <PAIR>*.csv file under dir for the given
// pairs and merges them into one chronological stream. Rows with equal
// timestamps keep the pair order given.
func NewHistoricCSV(dir string, pairs []string, snap *market.Snapshot, sink event.Sink, opts ...Option) (*HistoricCSV, error) {
	h := &HistoricCSV{
		dir:   dir,
		pairs: pairs,
		snap:  snap,
		sink:  sink,
		log:   zerolog.Nop(),
		cont:  true,
	}
	for _, o := range opts {
		o(h)
	}
	if err := h.load(); err != nil {
		return nil, err
	}
	h.log.Info().Str("dir", dir).Int("ticks", len(h.ticks)).Strs("pairs", pairs).Msg("historic ticks loaded")
	return h, nil
}

func (h *HistoricCSV) load() error {
	for _, pair := range h.pairs {
		files, err := filepath.Glob(filepath.Join(h.dir, pair+"*.csv"))
		if err != nil {
			return fmt.Errorf("glob %s: %w", pair, err)
		}
		sort.Strings(files)
		for _, path := range files {
			ticks, err := readTickFile(path, pair)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			for _, t := range ticks {
				if inRange(t.Time, h.from, h.to) {
					h.ticks = append(h.ticks, t)
				}
			}
		}
	}
	if len(h.ticks) == 0 {
		return fmt.Errorf("%w in %s for %v", ErrNoData, h.dir, h.pairs)
	}
	sort.SliceStable(h.ticks, func(i, j int) bool {
		return h.ticks[i].Time.Before(h.ticks[j].Time)
	})
	return nil
}

// StreamNextTick publishes the next tick.
func (h *HistoricCSV) StreamNextTick() error {
	if h.next >= len(h.ticks) {
		h.cont = false
		return nil
	}
	t := h.ticks[h.next]
	h.next++

	if _, err := h.snap.Update(t.Pair, t.Bid, t.Ask, t.Time); err != nil {
		return fmt.Errorf("stream %s: %w", t.Pair, err)
	}
	if err := h.sink.Put(t); err != nil {
		return fmt.Errorf("stream %s: %w", t.Pair, err)
	}
	return nil
}

// Continue is false once every tick has been streamed.
func (h *HistoricCSV) Continue() bool { return h.cont }

// Prices returns the snapshot the feed writes.
func (h *HistoricCSV) Prices() *market.Snapshot { return h.snap }

// Remaining is the number of ticks not yet streamed.
func (h *HistoricCSV) Remaining() int { return len(h.ticks) - h.next }

func readTickFile(path, pair string) ([]event.Tick, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var (
		out     []event.Tick
		lay     = layoutCanonical
		sawHead bool
		line    int
	)
	for {
		row, err := r.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		line++
		if len(row) == 0 {
			continue
		}

		if !sawHead {
			sawHead = true
			if l, ok := headerLayout(row); ok {
				lay = l
				continue
			}
			lay = sniffLayout(row)
		}

		t, ok, err := parseRow(row, lay, pair)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if ok {
			out = append(out, t)
		}
	}
}

func headerLayout(row []string) (layout, bool) {
	if !strings.EqualFold(strings.TrimSpace(row[0]), "time") || len(row) < 3 {
		return layoutCanonical, false
	}
	if strings.EqualFold(strings.TrimSpace(row[1]), "ask") {
		return layoutDukascopy, true
	}
	return layoutCanonical, true
}

// sniffLayout handles header-less files by looking at the time column.
func sniffLayout(row []string) layout {
	if _, err := time.Parse(dukascopyLayout, strings.TrimSpace(row[0])); err == nil {
		return layoutDukascopy
	}
	return layoutCanonical
}

// parseRow returns ok=false for short rows and canonical rows belonging to
// another pair.
func parseRow(row []string, lay layout, pair string) (event.Tick, bool, error) {
	if lay == layoutDukascopy {
		if len(row) < 3 {
			return event.Tick{}, false, nil
		}
		ts, err := time.ParseInLocation(dukascopyLayout, strings.TrimSpace(row[0]), time.UTC)
		if err != nil {
			return event.Tick{}, false, fmt.Errorf("bad time %q: %w", row[0], err)
		}
		ask, err := parsePrice(row[1])
		if err != nil {
			return event.Tick{}, false, fmt.Errorf("bad ask %q: %w", row[1], err)
		}
		bid, err := parsePrice(row[2])
		if err != nil {
			return event.Tick{}, false, fmt.Errorf("bad bid %q: %w", row[2], err)
		}
		return event.Tick{Pair: pair, Time: ts, Bid: bid, Ask: ask}, true, nil
	}

	if len(row) < 4 {
		return event.Tick{}, false, nil
	}
	raw := strings.TrimSpace(row[0])
	if raw == "" {
		return event.Tick{}, false, nil
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return event.Tick{}, false, fmt.Errorf("bad time %q: %w", raw, err)
	}
	if market.FromInstrument(row[1]) != pair {
		return event.Tick{}, false, nil
	}
	bid, err := parsePrice(row[2])
	if err != nil {
		return event.Tick{}, false, fmt.Errorf("bad bid %q: %w", row[2], err)
	}
	ask, err := parsePrice(row[3])
	if err != nil {
		return event.Tick{}, false, fmt.Errorf("bad ask %q: %w", row[3], err)
	}
	return event.Tick{Pair: pair, Time: ts.UTC(), Bid: bid, Ask: ask}, true, nil
}

func parsePrice(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, err
	}
	return market.RoundPrice(d), nil
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && !t.Before(to) {
		return false
	}
	return true
}
