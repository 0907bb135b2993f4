package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "perpterm",
	Short: "A simulated perpetual-futures trading terminal",
	Long: `Perpterm is a simulated perpetual-futures trading terminal core.

It fabricates live prices, candlestick history and order-book depth for a
small set of perpetual contracts, and lets a front end place simulated
orders against that synthetic liquidity via a JSON/websocket API:
  - Bounded random-walk price and candle generation
  - Synthetic depth ladders around the current mid
  - Market, limit and stop orders with position and PnL tracking
  - Optional CSV or SQLite session journal`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
