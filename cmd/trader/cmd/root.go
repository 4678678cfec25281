package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "trader",
	Short: "A trade-economics and backtesting engine for exchange-constrained markets",
	Long: `Trader backtests strategies against historical daily bars under
exchange microstructure rules: T+1 settlement, daily price-limit bands,
tiered commission, stamp duty and contract multipliers.

It provides tools for:
  - Running deterministic, replayable backtests
  - Importing end-of-day bar archives into canonical CSV
  - Journaling fills and equity curves to SQLite or CSV`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
