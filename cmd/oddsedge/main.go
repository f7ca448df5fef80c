// Package main provides the oddsedge command line.
package main

import (
	"log"

	"github.com/spf13/cobra"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	configFile string
	inputFile  string
	balance    float64
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "oddsedge",
	Short: "Find value bets and size stakes",
	Long: `oddsedge blends Dixon-Coles, Elo and de-margined market probabilities,
flags prices with confirmed positive expected value, builds correlation
discounted accumulators and sizes stakes with adaptive fractional Kelly.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")

	for _, cmd := range []*cobra.Command{scanCmd, serveCmd} {
		cmd.Flags().StringVarP(&inputFile, "input", "i", "./snapshot.json", "Path to the JSON snapshot feed")
		cmd.Flags().Float64VarP(&balance, "balance", "b", 1000, "Starting bankroll balance")
	}
	scanCmd.Flags().BoolVar(&fitStrengths, "fit-strengths", false, "Re-estimate team strengths from the feed's results before scanning")
	scanCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write the recommendation to a file instead of stdout")

	rootCmd.AddCommand(scanCmd, serveCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}
