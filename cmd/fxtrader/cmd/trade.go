package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/fxtrader/broker/oanda"
	"github.com/rustyeddy/fxtrader/config"
	"github.com/rustyeddy/fxtrader/engine"
	"github.com/rustyeddy/fxtrader/event"
	"github.com/rustyeddy/fxtrader/execution"
	"github.com/rustyeddy/fxtrader/internal/metrics"
	"github.com/rustyeddy/fxtrader/market"
	"github.com/rustyeddy/fxtrader/portfolio"
)

var tradeCmd = &cobra.Command{
	Use:   "trade",
	Short: "Trade live prices from the OANDA streaming API",
	Long: `Trade streams prices for the configured pairs from OANDA and places
market orders for every signal the strategy raises. It runs until
interrupted.

The API token is read from OANDA_TOKEN.

Example:
  OANDA_TOKEN=... fxtrader trade -f fxtrader.yaml --record`,
	RunE: runTrade,
}

var (
	tradeConfigPath string
	tradeRecord     bool
	tradeDryRun     bool
)

func init() {
	rootCmd.AddCommand(tradeCmd)

	tradeCmd.Flags().StringVarP(&tradeConfigPath, "config", "f", "", "path to config file (YAML or JSON); defaults when empty")
	tradeCmd.Flags().BoolVar(&tradeRecord, "record", false, "write the equity log and trades to the configured journal")
	tradeCmd.Flags().BoolVar(&tradeDryRun, "dry-run", false, "log orders instead of sending them to the broker")
}

func runTrade(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(tradeConfigPath)
	if err != nil {
		return err
	}
	heartbeat, err := config.ParseDuration(cfg.Live.Heartbeat)
	if err != nil {
		return err
	}

	log := newLogger(cfg)
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	token, err := oanda.TokenFromEnv()
	if err != nil {
		return err
	}
	accountID := cfg.Live.AccountID
	if accountID == "" {
		accountID = cfg.Account.ID
	}
	env := cfg.Live.Environment
	if env == "" {
		env = "practice"
	}
	client, err := oanda.NewClient(env, accountID, token,
		oanda.WithURLs(cfg.Live.APIURL, cfg.Live.StreamURL),
		oanda.WithLogger(log),
	)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	if cfg.Metrics.Addr != "" {
		srv := metrics.Serve(cfg.Metrics.Addr, reg)
		log.Info().Str("addr", cfg.Metrics.Addr).Msg("serving /metrics")
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	q := event.NewQueue()
	snap := market.NewSnapshot(cfg.Pairs...)
	stream := client.NewStream(cfg.Pairs, snap, q, m)

	opts := []portfolio.Option{portfolio.WithMetrics(m), portfolio.WithLogger(log)}
	var rec *recorder
	if tradeRecord {
		if rec, err = openRecorder(ctx, cfg, "live"); err != nil {
			return err
		}
		defer rec.Close()
		opts = append(opts, portfolio.WithJournal(rec.j))
	}
	pf := portfolio.New(portfolioConfig(cfg), snap, q, opts...)

	strat, err := newStrategy(cfg, snap, q, log)
	if err != nil {
		return fmt.Errorf("strategy: %w", err)
	}

	var exec execution.Handler = client
	if tradeDryRun {
		exec = execution.NewSimulated(log)
	}
	eng, err := engine.New(engine.Config{
		Queue:     q,
		Strategy:  strat,
		Portfolio: pf,
		Execution: exec,
		Heartbeat: heartbeat,
		Metrics:   m,
		Logger:    log,
	})
	if err != nil {
		return err
	}

	log.Info().Str("env", env).Str("account", accountID).Strs("pairs", cfg.Pairs).Msg("live trading started")
	if err := eng.Live(ctx, stream); err != nil {
		return fmt.Errorf("live: %w", err)
	}
	if rec == nil {
		return nil
	}
	// ctx is done by now; the summary reads still need one.
	return rec.Finish(context.Background(), cmd.OutOrStdout())
}
