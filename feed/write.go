package feed

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rustyeddy/fxtrader/event"
	"github.com/rustyeddy/fxtrader/market"
)

// WriteTicksCSV writes ticks in the canonical layout HistoricCSV reads.
func WriteTicksCSV(w io.Writer, ticks []event.Tick) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "instrument", "bid", "ask"}); err != nil {
		return err
	}
	for _, t := range ticks {
		row := []string{
			t.Time.UTC().Format(time.RFC3339Nano),
			market.ToInstrument(t.Pair),
			t.Bid.StringFixed(market.PricePlaces),
			t.Ask.StringFixed(market.PricePlaces),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTicksFile creates path and writes ticks to it.
func WriteTicksFile(path string, ticks []event.Tick) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteTicksCSV(f, ticks); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
