package feed

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/rustyeddy/fxtrader/market"
)

// SimOptions parameterizes a simulated random-walk pair.
type SimOptions struct {
	Pair   string
	Start  float64       // mid price at the first tick
	Spread float64       // fixed ask - bid
	MeanDt time.Duration // mean gap between ticks
	StdDt  time.Duration
	Seed   uint64
}

// DefaultSimOptions returns a 1.5000 mid, 20 pip spread and ticks about
// 1.4s apart.
func DefaultSimOptions(pair string) SimOptions {
	return SimOptions{
		Pair:   pair,
		Start:  1.5,
		Spread: 0.002,
		MeanDt: 1400 * time.Millisecond,
		StdDt:  100 * time.Millisecond,
		Seed:   42,
	}
}

// Simulator generates Dukascopy-layout tick files from a Gaussian random
// walk whose variance scales with the gap between ticks. Bid and ask move
// together, so the spread never changes.
type Simulator struct {
	opts     SimOptions
	rng      *rand.Rand
	bid, ask float64
}

func NewSimulator(opts SimOptions) (*Simulator, error) {
	if err := market.ValidatePair(opts.Pair); err != nil {
		return nil, err
	}
	if opts.Start <= 0 || opts.Spread < 0 || opts.MeanDt <= 0 {
		return nil, fmt.Errorf("simulate %s: start and mean gap must be positive", opts.Pair)
	}
	return &Simulator{
		opts: opts,
		rng:  rand.New(rand.NewPCG(opts.Seed, opts.Seed)),
		bid:  opts.Start - opts.Spread/2,
		ask:  opts.Start + opts.Spread/2,
	}, nil
}

// WriteDay writes every tick of the UTC day containing day and returns
// how many were written. Prices carry over from the previous call.
func (s *Simulator) WriteDay(w io.Writer, day time.Time) (int, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString("Time,Ask,Bid,AskVolume,BidVolume\n"); err != nil {
		return 0, err
	}
	n := 0
	for t := start; ; {
		dt := math.Abs(s.rng.NormFloat64()*float64(s.opts.StdDt) + float64(s.opts.MeanDt))
		t = t.Add(time.Duration(dt))
		if !t.Before(end) {
			break
		}
		step := s.rng.NormFloat64() * dt / float64(time.Second) / 86400
		s.ask += step
		s.bid += step
		askVol := 1 + 2*s.rng.Float64()
		bidVol := 1 + 2*s.rng.Float64()
		if _, err := fmt.Fprintf(bw, "%s,%.5f,%.5f,%.2f00,%.2f00\n",
			t.Format(dukascopyLayout), s.ask, s.bid, askVol, bidVol); err != nil {
			return n, err
		}
		n++
	}
	return n, bw.Flush()
}

// WriteMonth writes one <PAIR>_YYYYMMDD.csv file per weekday of the month
// into dir and returns the file paths.
func (s *Simulator) WriteMonth(dir string, year int, month time.Month) ([]string, error) {
	var paths []string
	for d := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC); d.Month() == month; d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		path := filepath.Join(dir, fmt.Sprintf("%s_%s.csv", s.opts.Pair, d.Format("20060102")))
		if err := s.writeFile(path, d); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (s *Simulator) writeFile(path string, day time.Time) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := s.WriteDay(f, day); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
