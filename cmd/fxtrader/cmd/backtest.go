package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/fxtrader/config"
	"github.com/rustyeddy/fxtrader/engine"
	"github.com/rustyeddy/fxtrader/event"
	"github.com/rustyeddy/fxtrader/execution"
	"github.com/rustyeddy/fxtrader/feed"
	"github.com/rustyeddy/fxtrader/internal/metrics"
	"github.com/rustyeddy/fxtrader/market"
	"github.com/rustyeddy/fxtrader/portfolio"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay historical ticks through the configured strategy",
	Long: `Backtest replays every <PAIR>*.csv file in the data directory in
timestamp order, writes the per-tick equity log and finishes with the
equity curve and drawdown summary.

Tick files are either time,instrument,bid,ask with RFC3339 times or the
Time,Ask,Bid,AskVolume,BidVolume export layout.

Example:
  fxtrader backtest -f fxtrader.yaml --data ./data --max-iters 100000`,
	RunE: runBacktest,
}

var (
	btConfigPath string
	btDataDir    string
	btMaxIters   int
	btStrategy   string
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVarP(&btConfigPath, "config", "f", "", "path to config file (YAML or JSON); defaults when empty")
	backtestCmd.Flags().StringVar(&btDataDir, "data", "", "tick file directory (overrides backtest.data_dir)")
	backtestCmd.Flags().IntVar(&btMaxIters, "max-iters", 0, "loop iteration cap, 0 runs to the end of data (overrides backtest.max_iters)")
	backtestCmd.Flags().StringVarP(&btStrategy, "strategy", "s", "", "strategy name: mac or alternating (overrides strategy.name)")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(btConfigPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("data") {
		cfg.Backtest.DataDir = btDataDir
	}
	if cmd.Flags().Changed("max-iters") {
		cfg.Backtest.MaxIters = btMaxIters
	}
	if cmd.Flags().Changed("strategy") {
		cfg.Strategy.Name = btStrategy
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	heartbeat, err := config.ParseDuration(cfg.Backtest.Heartbeat)
	if err != nil {
		return err
	}

	log := newLogger(cfg)
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	q := event.NewQueue()
	snap := market.NewSnapshot(cfg.Pairs...)
	hist, err := feed.NewHistoricCSV(cfg.Backtest.DataDir, cfg.Pairs, snap, q, feed.WithLogger(log))
	if err != nil {
		return fmt.Errorf("load ticks: %w", err)
	}

	rec, err := openRecorder(ctx, cfg, "backtest")
	if err != nil {
		return err
	}
	defer rec.Close()

	m := metrics.Nop()
	pf := portfolio.New(portfolioConfig(cfg), snap, q,
		portfolio.WithJournal(rec.j),
		portfolio.WithMetrics(m),
		portfolio.WithLogger(log),
	)
	strat, err := newStrategy(cfg, snap, q, log)
	if err != nil {
		return fmt.Errorf("strategy: %w", err)
	}

	eng, err := engine.New(engine.Config{
		Queue:     q,
		Strategy:  strat,
		Portfolio: pf,
		Execution: execution.NewSimulated(log),
		Heartbeat: heartbeat,
		Metrics:   m,
		Logger:    log,
	})
	if err != nil {
		return err
	}

	if _, err := eng.Backtest(ctx, hist, cfg.Backtest.MaxIters); err != nil {
		return fmt.Errorf("backtest: %w", err)
	}
	return rec.Finish(ctx, cmd.OutOrStdout())
}
