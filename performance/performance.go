// Package performance derives the equity curve and drawdown statistics
// from a recorded equity log.
//
// Statistics are float64. Balances and profits stay decimal up to the
// per-row total; returns and the compounded curve are ratios that would
// only grow unbounded precision under decimal division.
package performance

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/fxtrader/journal"
)

// Row is one line of the derived summary.
type Row struct {
	Time     time.Time
	Balance  decimal.Decimal
	Profits  []decimal.Decimal // in Summary.Pairs order, zero when flat
	Total    decimal.Decimal
	Returns  float64
	Equity   float64
	Drawdown float64
}

// Summary is the full derived table plus its headline numbers.
type Summary struct {
	Pairs []string
	Rows  []Row

	MaxDrawdown float64
	// MaxDuration is the longest run of consecutive rows below the
	// high-water mark.
	MaxDuration int
}

// Returns is the percentage change of each value over the previous one.
// The first value has no predecessor and gets 0, as does any value
// following a zero.
func Returns(totals []float64) []float64 {
	out := make([]float64, len(totals))
	for i := 1; i < len(totals); i++ {
		if totals[i-1] == 0 {
			continue
		}
		out[i] = totals[i]/totals[i-1] - 1
	}
	return out
}

// EquityCurve compounds returns from 1.
func EquityCurve(returns []float64) []float64 {
	out := make([]float64, len(returns))
	acc := 1.0
	for i, r := range returns {
		acc *= 1 + r
		out[i] = acc
	}
	return out
}

// Drawdowns returns the high-water mark minus equity at each point, the
// largest such value and the longest stretch spent under water. The mark
// starts at the first value.
func Drawdowns(equity []float64) (dd []float64, maxDD float64, maxDuration int) {
	dd = make([]float64, len(equity))
	if len(equity) == 0 {
		return dd, 0, 0
	}
	hwm := equity[0]
	duration := 0
	for i, e := range equity {
		if e > hwm {
			hwm = e
		}
		dd[i] = hwm - e
		if dd[i] == 0 {
			duration = 0
		} else {
			duration++
		}
		if dd[i] > maxDD {
			maxDD = dd[i]
		}
		if duration > maxDuration {
			maxDuration = duration
		}
	}
	return dd, maxDD, maxDuration
}

// Summarize builds the derived table for snaps, columns in pairs order.
func Summarize(pairs []string, snaps []journal.EquitySnapshot) Summary {
	s := Summary{Pairs: append([]string(nil), pairs...), Rows: make([]Row, len(snaps))}
	totals := make([]float64, len(snaps))
	for i, snap := range snaps {
		row := Row{
			Time:    snap.Time,
			Balance: snap.Balance,
			Profits: make([]decimal.Decimal, len(pairs)),
			Total:   snap.Total(),
		}
		for j, p := range pairs {
			row.Profits[j] = snap.Profits[p]
		}
		s.Rows[i] = row
		totals[i] = row.Total.InexactFloat64()
	}

	returns := Returns(totals)
	equity := EquityCurve(returns)
	dd, maxDD, maxDur := Drawdowns(equity)
	for i := range s.Rows {
		s.Rows[i].Returns = returns[i]
		s.Rows[i].Equity = equity[i]
		s.Rows[i].Drawdown = dd[i]
	}
	s.MaxDrawdown = maxDD
	s.MaxDuration = maxDur
	return s
}

// Start and End are the first and last totals, zero for an empty log.
func (s Summary) Start() decimal.Decimal {
	if len(s.Rows) == 0 {
		return decimal.Zero
	}
	return s.Rows[0].Total
}

func (s Summary) End() decimal.Decimal {
	if len(s.Rows) == 0 {
		return decimal.Zero
	}
	return s.Rows[len(s.Rows)-1].Total
}

// Header is the equity.csv header for s.
func (s Summary) Header() []string {
	h := append([]string{"Timestamp", "Balance"}, s.Pairs...)
	return append(h, "Total", "Returns", "Equity", "Drawdown")
}

// WriteCSV writes the derived table in the equity.csv layout.
func (s Summary) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(s.Header()); err != nil {
		return err
	}
	for _, r := range s.Rows {
		rec := []string{r.Time.UTC().Format(time.RFC3339Nano), r.Balance.StringFixed(2)}
		for _, p := range r.Profits {
			rec = append(rec, p.StringFixed(5))
		}
		rec = append(rec,
			r.Total.StringFixed(5),
			strconv.FormatFloat(r.Returns, 'g', -1, 64),
			strconv.FormatFloat(r.Equity, 'g', -1, 64),
			strconv.FormatFloat(r.Drawdown, 'g', -1, 64),
		)
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the table to path, replacing any existing file.
func (s Summary) WriteCSVFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := s.WriteCSV(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
