package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/fxtrader/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query trade journal data",
	Long: `Query and display trade records from a SQLite journal.

Subcommands:
  trade  - Get details of a specific trade by ID
  trades - List the trades of a run

Examples:
  fxtrader journal trade <trade-id>
  fxtrader journal trades --run <run-id>`,
}

var journalTradeCmd = &cobra.Command{
	Use:   "trade <trade-id>",
	Short: "Get details of a specific trade",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalTrade,
}

var journalTradesCmd = &cobra.Command{
	Use:   "trades",
	Short: "List the trades of a run",
	Args:  cobra.NoArgs,
	RunE:  runJournalTrades,
}

var (
	journalDBPath string
	journalRunID  string
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalTradeCmd)
	journalCmd.AddCommand(journalTradesCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./output/fxtrader.db", "path to SQLite journal DB")
	journalTradesCmd.Flags().StringVar(&journalRunID, "run", "", "run ID (defaults to the latest run)")
}

func runJournalTrade(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	rec, err := j.GetTrade(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("get trade: %w", err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Trade:    %s\n", rec.TradeID)
	fmt.Fprintf(w, "Pair:     %s\n", rec.Pair)
	fmt.Fprintf(w, "Side:     %s\n", rec.Side)
	fmt.Fprintf(w, "Units:    %d\n", rec.Units)
	fmt.Fprintf(w, "Entry:    %s\n", rec.EntryPrice.StringFixed(5))
	fmt.Fprintf(w, "Exit:     %s\n", rec.ExitPrice.StringFixed(5))
	fmt.Fprintf(w, "Opened:   %s\n", rec.OpenTime.Format(time.RFC3339))
	fmt.Fprintf(w, "Closed:   %s\n", rec.CloseTime.Format(time.RFC3339))
	fmt.Fprintf(w, "Realized: %s\n", rec.RealizedPL.StringFixed(2))
	fmt.Fprintf(w, "Reason:   %s\n", rec.Reason)
	return nil
}

func runJournalTrades(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	ctx := cmd.Context()
	runID := journalRunID
	if runID == "" {
		if runID, err = j.LatestRunID(ctx); err != nil {
			return err
		}
	}
	recs, err := j.ListTrades(ctx, runID)
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}
	return writeTrades(cmd.OutOrStdout(), recs)
}

func writeTrades(out io.Writer, recs []journal.TradeRecord) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TRADE\tPAIR\tSIDE\tUNITS\tENTRY\tEXIT\tCLOSED\tREALIZED\tREASON")
	for _, r := range recs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			r.TradeID, r.Pair, r.Side, r.Units,
			r.EntryPrice.StringFixed(5), r.ExitPrice.StringFixed(5),
			r.CloseTime.Format(time.RFC3339), r.RealizedPL.StringFixed(2), r.Reason)
	}
	return w.Flush()
}
