package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/fxtrader/journal"
	"github.com/rustyeddy/fxtrader/performance"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Compute the equity curve and drawdowns of a finished run",
	Long: `Summary rereads an equity log and prints the drawdown report. The
log is either a backtest.csv file or a run stored in a SQLite journal.

Examples:
  fxtrader summary --equity output/backtest.csv --out output/equity.csv
  fxtrader summary --db output/fxtrader.db --run 01J9...`,
	Args: cobra.NoArgs,
	RunE: runSummary,
}

var (
	summaryEquity string
	summaryOut    string
	summaryDB     string
	summaryRun    string
	summaryTrades string
)

func init() {
	rootCmd.AddCommand(summaryCmd)

	summaryCmd.Flags().StringVar(&summaryEquity, "equity", "", "path to a per-tick equity log (backtest.csv)")
	summaryCmd.Flags().StringVar(&summaryTrades, "trades", "", "path to the trades CSV written alongside --equity")
	summaryCmd.Flags().StringVar(&summaryDB, "db", "", "path to a SQLite journal")
	summaryCmd.Flags().StringVar(&summaryRun, "run", "", "run ID inside --db (defaults to the latest run)")
	summaryCmd.Flags().StringVarP(&summaryOut, "out", "o", "", "write the equity curve CSV here")
	summaryCmd.MarkFlagsMutuallyExclusive("equity", "db")
}

func runSummary(cmd *cobra.Command, args []string) error {
	var (
		pairs  []string
		rows   []journal.EquitySnapshot
		trades []journal.TradeRecord
		meta   performance.Meta
		err    error
	)

	switch {
	case summaryEquity != "":
		if pairs, rows, err = journal.ReadEquityCSV(summaryEquity); err != nil {
			return err
		}
		if summaryTrades != "" {
			if trades, err = journal.ReadTradesCSV(summaryTrades); err != nil {
				return err
			}
		}

	case summaryDB != "":
		j, err := journal.NewSQLite(summaryDB)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer j.Close()

		ctx := cmd.Context()
		runID := summaryRun
		if runID == "" {
			if runID, err = j.LatestRunID(ctx); err != nil {
				return err
			}
		}
		run, err := j.GetRun(ctx, runID)
		if err != nil {
			return err
		}
		meta = performance.Meta{
			RunID:        run.RunID,
			Mode:         run.Mode,
			Strategy:     run.Strategy,
			HomeCurrency: run.HomeCurrency,
			RiskPerTrade: run.RiskPerTrade,
			Leverage:     run.Leverage,
		}
		pairs = run.Pairs
		if rows, err = j.ListEquity(ctx, runID); err != nil {
			return err
		}
		if trades, err = j.ListTrades(ctx, runID); err != nil {
			return err
		}

	default:
		return errors.New("one of --equity or --db is required")
	}

	s := performance.Summarize(pairs, rows)
	if summaryOut != "" {
		if err := s.WriteCSVFile(summaryOut); err != nil {
			return err
		}
	}
	performance.PrintReport(cmd.OutOrStdout(), meta, s, trades)
	return nil
}
