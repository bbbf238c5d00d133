package performance

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/fxtrader/journal"
)

// TradeStats summarizes closed trades.
type TradeStats struct {
	Trades   int
	Wins     int
	Losses   int
	Realized decimal.Decimal
}

func (t TradeStats) WinRate() float64 {
	if t.Trades == 0 {
		return 0
	}
	return float64(t.Wins) / float64(t.Trades) * 100
}

// Stats counts wins and losses. Breakeven trades count as neither.
func Stats(trades []journal.TradeRecord) TradeStats {
	s := TradeStats{Trades: len(trades)}
	for _, tr := range trades {
		s.Realized = s.Realized.Add(tr.RealizedPL)
		switch tr.RealizedPL.Sign() {
		case 1:
			s.Wins++
		case -1:
			s.Losses++
		}
	}
	return s
}

// Meta describes the run a report is about. Empty fields are omitted.
type Meta struct {
	RunID        string
	Mode         string
	Strategy     string
	HomeCurrency string
	RiskPerTrade decimal.Decimal
	Leverage     decimal.Decimal
}

const rule = "--------------------------------------------------"

// PrintReport writes a human readable run summary.
func PrintReport(w io.Writer, m Meta, s Summary, trades []journal.TradeRecord) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Simulation Result")
	fmt.Fprintln(w, "==================================================")

	if m.RunID != "" {
		fmt.Fprintf(w, "Run ID:        %s\n", m.RunID)
	}
	if m.Mode != "" {
		fmt.Fprintf(w, "Mode:          %s\n", m.Mode)
	}
	if m.Strategy != "" {
		fmt.Fprintf(w, "Strategy:      %s\n", m.Strategy)
	}
	fmt.Fprintf(w, "Pairs:         %s\n", strings.Join(s.Pairs, ", "))

	if len(s.Rows) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Period")
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "Start:         %s\n", s.Rows[0].Time.Format(time.RFC3339))
		fmt.Fprintf(w, "End:           %s\n", s.Rows[len(s.Rows)-1].Time.Format(time.RFC3339))
		fmt.Fprintf(w, "Ticks:         %d\n", len(s.Rows))
	}

	if !m.RiskPerTrade.IsZero() || !m.Leverage.IsZero() {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Account")
		fmt.Fprintln(w, rule)
		if m.HomeCurrency != "" {
			fmt.Fprintf(w, "Currency:      %s\n", m.HomeCurrency)
		}
		fmt.Fprintf(w, "Risk per Trade: %s%%\n", m.RiskPerTrade.Mul(decimal.NewFromInt(100)).StringFixed(2))
		fmt.Fprintf(w, "Leverage:      %s\n", m.Leverage.String())
	}

	if trades != nil {
		st := Stats(trades)
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Trade Statistics")
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "Trades:        %d\n", st.Trades)
		fmt.Fprintf(w, "Wins:          %d\n", st.Wins)
		fmt.Fprintf(w, "Losses:        %d\n", st.Losses)
		fmt.Fprintf(w, "Win Rate:      %.2f%%\n", st.WinRate())
		fmt.Fprintf(w, "Realized P/L:  %s\n", st.Realized.StringFixed(2))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Account Performance")
	fmt.Fprintln(w, rule)
	start, end := s.Start(), s.End()
	fmt.Fprintf(w, "Start Total:   %s\n", start.StringFixed(2))
	fmt.Fprintf(w, "End Total:     %s\n", end.StringFixed(2))
	fmt.Fprintf(w, "Net P/L:       %s\n", end.Sub(start).StringFixed(2))
	if !start.IsZero() {
		ret := end.Sub(start).Div(start).Mul(decimal.NewFromInt(100))
		fmt.Fprintf(w, "Return:        %s%%\n", ret.StringFixed(2))
	}
	fmt.Fprintf(w, "Max Drawdown:  %.2f%%\n", s.MaxDrawdown*100)
	fmt.Fprintf(w, "DD Duration:   %d ticks\n", s.MaxDuration)

	fmt.Fprintln(w)
}
