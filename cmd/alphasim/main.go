package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	appName = "alphasim"
	version = "v1.2.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Risk-managed portfolio simulation for cross-sectional strategies",
		Version: version,
		Long: `alphasim turns a cross-sectional alpha score into risk-managed portfolio
weights and simulates their realized performance: signal conditioning and
regime gating, volatility-scaled allocation under hard exposure caps, a
sequential turnover governor, cost-aware backtesting with volatility
targeting and a drawdown governor, and walk-forward out-of-sample
evaluation.`,
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full simulation pipeline",
		Long:  "Loads prices, builds and conditions signals, constructs weights, and simulates net performance with full diagnostics",
		RunE:  runSimulation,
	}
	runCmd.Flags().String("config", "", "Path to YAML configuration (defaults apply when empty)")
	runCmd.Flags().String("data-dir", "", "Override the CSV price directory")
	runCmd.Flags().String("output", "", "Override the artifact output directory")
	runCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address")
	runCmd.Flags().Bool("walkforward", false, "Also run walk-forward evaluation on the simulated series")

	wfCmd := &cobra.Command{
		Use:   "walkforward",
		Short: "Run walk-forward evaluation on an existing results file",
		Long:  "Tiles a previously simulated return series into train/test windows and reports out-of-sample performance per window",
		RunE:  runWalkForward,
	}
	wfCmd.Flags().String("config", "", "Path to YAML configuration (defaults apply when empty)")
	wfCmd.Flags().String("results", "", "Path to a results.csv from a prior run (required)")
	wfCmd.Flags().String("output", "", "Override the artifact output directory")
	_ = wfCmd.MarkFlagRequired("results")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(wfCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}
