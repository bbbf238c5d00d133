package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/fxtrader/config"
	"github.com/rustyeddy/fxtrader/event"
	"github.com/rustyeddy/fxtrader/internal/logging"
	"github.com/rustyeddy/fxtrader/journal"
	"github.com/rustyeddy/fxtrader/market"
	"github.com/rustyeddy/fxtrader/performance"
	"github.com/rustyeddy/fxtrader/portfolio"
	"github.com/rustyeddy/fxtrader/strategy"
)

// loadConfig reads path, or returns the validated defaults when path is
// empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg := config.Default()
		return cfg, cfg.Validate()
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	return logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
}

func strategyName(cfg *config.Config) string {
	if cfg.Strategy.Name == "" {
		return "mac"
	}
	return cfg.Strategy.Name
}

func newStrategy(cfg *config.Config, snap *market.Snapshot, sink event.Sink, log zerolog.Logger) (strategy.Strategy, error) {
	return strategy.ByName(strategyName(cfg), strategy.Params{
		Pairs:       cfg.Pairs,
		ShortWindow: cfg.Strategy.ShortWindow,
		LongWindow:  cfg.Strategy.LongWindow,
		Interval:    cfg.Strategy.Interval,
	}, sink, log, strategy.WithGate(snap))
}

func portfolioConfig(cfg *config.Config) portfolio.Config {
	return portfolio.Config{
		HomeCurrency: cfg.Account.HomeCurrency,
		Equity:       cfg.Account.EquityDecimal(),
		RiskPerTrade: cfg.Account.RiskDecimal(),
		Leverage:     cfg.Account.LeverageDecimal(),
		Pairs:        cfg.Pairs,
	}
}

// recorder is the journal a run writes to plus what is needed to read it
// back for the summary.
type recorder struct {
	cfg    *config.Config
	mode   string
	j      journal.Journal
	sqlite *journal.SQLite
	closed bool
}

func openRecorder(ctx context.Context, cfg *config.Config, mode string) (*recorder, error) {
	r := &recorder{cfg: cfg, mode: mode}
	switch cfg.Journal.Type {
	case "sqlite":
		if err := mkdirFor(cfg.Journal.DBPath); err != nil {
			return nil, err
		}
		sq, err := journal.NewSQLite(cfg.Journal.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		err = sq.StartRun(ctx, &journal.Run{
			Mode:         mode,
			Strategy:     strategyName(cfg),
			Pairs:        cfg.Pairs,
			HomeCurrency: cfg.Account.HomeCurrency,
			Equity:       cfg.Account.EquityDecimal(),
			RiskPerTrade: cfg.Account.RiskDecimal(),
			Leverage:     cfg.Account.LeverageDecimal(),
		})
		if err != nil {
			sq.Close()
			return nil, err
		}
		r.j, r.sqlite = sq, sq
	default:
		if err := os.MkdirAll(cfg.Journal.OutputDir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
		j, err := journal.NewCSV(cfg.Journal.TradesPath(), cfg.Journal.EquityPath(), cfg.Pairs)
		if err != nil {
			return nil, fmt.Errorf("create journal: %w", err)
		}
		r.j = j
	}
	return r, nil
}

func (r *recorder) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.j.Close()
}

// Finish closes the journal, derives the equity summary, writes it next
// to the log and prints the report to w.
func (r *recorder) Finish(ctx context.Context, w io.Writer) error {
	var (
		rows   []journal.EquitySnapshot
		trades []journal.TradeRecord
		meta   = performance.Meta{
			Mode:         r.mode,
			Strategy:     strategyName(r.cfg),
			HomeCurrency: r.cfg.Account.HomeCurrency,
			RiskPerTrade: r.cfg.Account.RiskDecimal(),
			Leverage:     r.cfg.Account.LeverageDecimal(),
		}
		err error
	)

	if r.sqlite != nil {
		meta.RunID = r.sqlite.RunID()
		if rows, err = r.sqlite.ListEquity(ctx, meta.RunID); err != nil {
			return fmt.Errorf("read equity: %w", err)
		}
		if trades, err = r.sqlite.ListTrades(ctx, meta.RunID); err != nil {
			return fmt.Errorf("read trades: %w", err)
		}
		if err := r.Close(); err != nil {
			return err
		}
	} else {
		if err := r.Close(); err != nil {
			return err
		}
		if _, rows, err = journal.ReadEquityCSV(r.cfg.Journal.EquityPath()); err != nil {
			return fmt.Errorf("read equity: %w", err)
		}
		if trades, err = journal.ReadTradesCSV(r.cfg.Journal.TradesPath()); err != nil {
			return fmt.Errorf("read trades: %w", err)
		}
	}

	s := performance.Summarize(r.cfg.Pairs, rows)
	out := r.cfg.Journal.SummaryPath()
	if err := mkdirFor(out); err != nil {
		return err
	}
	if err := s.WriteCSVFile(out); err != nil {
		return err
	}
	if trades == nil {
		trades = []journal.TradeRecord{}
	}
	performance.PrintReport(w, meta, s, trades)
	fmt.Fprintf(w, "Simulation complete and results exported to %s\n", out)
	return nil
}

func mkdirFor(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	return nil
}
