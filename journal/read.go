package journal

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrBadHeader is returned when an equity log does not start with
// Timestamp,Balance.
var ErrBadHeader = errors.New("equity log header must start with Timestamp,Balance")

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999", "2006-01-02 15:04:05"}

// ReadEquityCSV loads an equity log written by CSV. Flat columns come
// back as zero profits. Rows with an empty cell are skipped.
func ReadEquityCSV(path string) ([]string, []EquitySnapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return ParseEquityCSV(f)
}

// ParseEquityCSV is ReadEquityCSV over a reader.
func ParseEquityCSV(r io.Reader) ([]string, []EquitySnapshot, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	head, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	if len(head) < 2 || !strings.EqualFold(head[0], "Timestamp") || !strings.EqualFold(head[1], "Balance") {
		return nil, nil, ErrBadHeader
	}
	pairs := append([]string(nil), head[2:]...)

	var out []EquitySnapshot
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return pairs, out, nil
		}
		if err != nil {
			return nil, nil, err
		}
		line++
		if len(row) != len(head) || hasEmpty(row) {
			continue
		}

		ts, err := parseTime(row[0])
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", line, err)
		}
		bal, err := decimal.NewFromString(strings.TrimSpace(row[1]))
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: bad balance %q: %w", line, row[1], err)
		}
		snap := EquitySnapshot{Time: ts, Balance: bal, Profits: make(map[string]decimal.Decimal, len(pairs))}
		for i, p := range pairs {
			v, err := decimal.NewFromString(strings.TrimSpace(row[i+2]))
			if err != nil {
				return nil, nil, fmt.Errorf("line %d: bad %s profit %q: %w", line, p, row[i+2], err)
			}
			snap.Profits[p] = v
		}
		out = append(out, snap)
	}
}

func hasEmpty(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) == "" {
			return true
		}
	}
	return false
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var err error
	for _, l := range timeLayouts {
		var t time.Time
		if t, err = time.Parse(l, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("bad time %q: %w", s, err)
}

// ReadTradesCSV loads a trades file written by CSV.
func ReadTradesCSV(path string) ([]TradeRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = len(TradeHeader)
	if _, err := cr.Read(); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	var out []TradeRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		rec, err := parseTrade(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, rec)
	}
}

func parseTrade(row []string) (TradeRecord, error) {
	rec := TradeRecord{TradeID: row[0], Pair: row[1], Side: row[2], Reason: row[9]}
	var err error
	if rec.Units, err = strconv.ParseInt(row[3], 10, 64); err != nil {
		return rec, fmt.Errorf("units: %w", err)
	}
	if rec.EntryPrice, err = decimal.NewFromString(row[4]); err != nil {
		return rec, fmt.Errorf("entry_price: %w", err)
	}
	if rec.ExitPrice, err = decimal.NewFromString(row[5]); err != nil {
		return rec, fmt.Errorf("exit_price: %w", err)
	}
	if rec.OpenTime, err = parseTime(row[6]); err != nil {
		return rec, err
	}
	if rec.CloseTime, err = parseTime(row[7]); err != nil {
		return rec, err
	}
	if rec.RealizedPL, err = decimal.NewFromString(row[8]); err != nil {
		return rec, fmt.Errorf("realized_pl: %w", err)
	}
	return rec, nil
}
