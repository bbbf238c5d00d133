package journal

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// flatProfit is written for pairs without an open position.
const flatProfit = "0.00"

// CSV writes the equity log as
//
//	Timestamp,Balance,<pair>...
//
// and closed trades to a second file. Both are flushed per row so a
// crashed run still leaves a readable log.
type CSV struct {
	pairs  []string
	trades *csv.Writer
	equity *csv.Writer
	tf, ef *os.File
}

func NewCSV(tradesPath, equityPath string, pairs []string) (*CSV, error) {
	tf, err := os.Create(tradesPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		tf.Close()
		return nil, err
	}

	j := &CSV{
		pairs:  append([]string(nil), pairs...),
		trades: csv.NewWriter(tf),
		equity: csv.NewWriter(ef),
		tf:     tf,
		ef:     ef,
	}

	if err := j.write(j.trades, TradeHeader); err != nil {
		j.Close()
		return nil, err
	}
	if err := j.write(j.equity, EquityHeader(pairs)); err != nil {
		j.Close()
		return nil, err
	}
	return j, nil
}

// TradeHeader is the first row of the trades file.
var TradeHeader = []string{"trade_id", "pair", "side", "units", "entry_price", "exit_price", "open_time", "close_time", "realized_pl", "reason"}

// EquityHeader is the first row of the equity log.
func EquityHeader(pairs []string) []string {
	return append([]string{"Timestamp", "Balance"}, pairs...)
}

func (j *CSV) write(w *csv.Writer, row []string) error {
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (j *CSV) RecordTrade(t TradeRecord) error {
	err := j.write(j.trades, []string{
		t.TradeID,
		t.Pair,
		t.Side,
		strconv.FormatInt(t.Units, 10),
		t.EntryPrice.StringFixed(5),
		t.ExitPrice.StringFixed(5),
		t.OpenTime.Format(time.RFC3339Nano),
		t.CloseTime.Format(time.RFC3339Nano),
		t.RealizedPL.StringFixed(2),
		t.Reason,
	})
	if err != nil {
		return fmt.Errorf("record trade %s: %w", t.TradeID, err)
	}
	return nil
}

func (j *CSV) RecordEquity(e EquitySnapshot) error {
	if err := j.write(j.equity, EquityRow(e, j.pairs)); err != nil {
		return fmt.Errorf("record equity: %w", err)
	}
	return nil
}

// EquityRow formats e in column order.
func EquityRow(e EquitySnapshot, pairs []string) []string {
	row := make([]string, 0, len(pairs)+2)
	row = append(row, e.Time.Format(time.RFC3339Nano), e.Balance.StringFixed(2))
	for _, p := range pairs {
		row = append(row, formatProfit(e.Profits, p))
	}
	return row
}

func formatProfit(profits map[string]decimal.Decimal, pair string) string {
	v, ok := profits[pair]
	if !ok {
		return flatProfit
	}
	return v.StringFixed(5)
}

func (j *CSV) Close() error {
	var first error
	for _, w := range []*csv.Writer{j.trades, j.equity} {
		w.Flush()
		if err := w.Error(); err != nil && first == nil {
			first = err
		}
	}
	for _, f := range []*os.File{j.tf, j.ef} {
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
