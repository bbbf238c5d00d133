package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "fxtrader",
	Short: "An event-driven FX trading simulator",
	Long: `fxtrader replays historical or live bid/ask ticks through a strategy,
turns its signals into sized orders and tracks positions and profit in the
account's home currency.

It provides tools for:
  - Backtesting strategies against tick files
  - Live trading on an OANDA practice account
  - Equity curve and drawdown summaries
  - Querying the SQLite trade journal`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
