package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/quantfall/alphasim/internal/report"
	"github.com/quantfall/alphasim/internal/walkforward"
)

// runWalkForward re-evaluates an existing results.csv against the
// walk-forward tiling without re-running the simulation.
func runWalkForward(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	resultsPath, _ := cmd.Flags().GetString("results")
	results, err := report.ReadDayResults(resultsPath)
	if err != nil {
		return err
	}
	log.Info().Str("results", resultsPath).Int("days", len(results)).
		Msg("Loaded simulated returns")

	windows, err := walkforward.Evaluate(results, cfg.WalkForward)
	if err != nil {
		return err
	}
	if len(windows) == 0 {
		log.Warn().Msg("No walk-forward windows met the minimum observation count")
		return nil
	}

	writer := report.NewWriter(cfg.Output.Dir)
	path, err := writer.WriteWindows(windows)
	if err != nil {
		return err
	}

	for _, w := range windows {
		log.Info().
			Str("test_start", w.TestStart.Format("2006-01-02")).
			Str("test_end", w.TestEnd.Format("2006-01-02")).
			Int("days", w.Days).
			Float64("cum_return", w.CumReturn).
			Float64("sharpe", w.Sharpe).
			Float64("max_drawdown", w.MaxDrawdown).
			Msg("Window")
	}
	log.Info().Str("windows", path).Int("count", len(windows)).
		Msg("Walk-forward evaluation complete")
	return nil
}
