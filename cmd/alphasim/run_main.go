package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/quantfall/alphasim/internal/alpha"
	"github.com/quantfall/alphasim/internal/backtest"
	"github.com/quantfall/alphasim/internal/config"
	"github.com/quantfall/alphasim/internal/data"
	"github.com/quantfall/alphasim/internal/execution"
	"github.com/quantfall/alphasim/internal/factors"
	"github.com/quantfall/alphasim/internal/market"
	"github.com/quantfall/alphasim/internal/metrics"
	"github.com/quantfall/alphasim/internal/persistence/postgres"
	"github.com/quantfall/alphasim/internal/portfolio"
	"github.com/quantfall/alphasim/internal/report"
	"github.com/quantfall/alphasim/internal/report/perf"
	"github.com/quantfall/alphasim/internal/signal"
	"github.com/quantfall/alphasim/internal/walkforward"
)

// loadConfig resolves configuration from the optional file plus flag
// overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")

	var cfg config.Config
	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
		if err != nil {
			return cfg, err
		}
	} else {
		cfg = config.Default()
	}

	if dataDir, _ := cmd.Flags().GetString("data-dir"); dataDir != "" {
		cfg.Data.Source = "csv"
		cfg.Data.CSVDir = dataDir
	}
	if output, _ := cmd.Flags().GetString("output"); output != "" {
		cfg.Output.Dir = output
	}
	if cmd.Flags().Lookup("metrics-addr") != nil {
		if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
			cfg.Metrics.Enabled = true
			cfg.Metrics.Addr = addr
		}
	}
	return cfg, nil
}

// runSimulation executes the full pipeline: ingest, features, alpha,
// conditioning, risk model, turnover governor, execution lag, simulation,
// and artifact writing.
func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var reg *metrics.Registry
	if cfg.Metrics.Enabled {
		reg = metrics.NewRegistry()
		go func() {
			if err := reg.Serve(cfg.Metrics.Addr); err != nil {
				log.Error().Err(err).Msg("Metrics server stopped")
			}
		}()
	}
	observe := func(stage string, start time.Time, rows int) {
		log.Debug().Str("stage", stage).Int("rows", rows).
			Dur("elapsed", time.Since(start)).Msg("Stage complete")
		if reg != nil {
			reg.ObserveStage(stage, start, rows)
		}
	}
	fail := func(err error) error {
		if reg != nil {
			reg.RunsTotal.WithLabelValues("error").Inc()
		}
		return err
	}

	ctx := context.Background()

	bars, err := loadBars(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	log.Info().Int("rows", len(bars)).Int("assets", len(market.Assets(bars))).
		Str("source", cfg.Data.Source).Msg("Loaded price panel")

	start := time.Now()
	feats, err := factors.Compute(bars, cfg.Factors)
	if err != nil {
		return fail(err)
	}
	observe("factors", start, len(feats))

	start = time.Now()
	scores, err := alpha.Compute(feats, cfg.Alpha)
	if err != nil {
		return fail(err)
	}
	observe("alpha", start, len(scores))

	start = time.Now()
	conditioned, err := signal.Condition(scores, cfg.Signal)
	if err != nil {
		return fail(err)
	}
	observe("signal", start, len(conditioned))

	start = time.Now()
	targets, err := portfolio.BuildTargets(conditioned, cfg.Portfolio)
	if err != nil {
		return fail(err)
	}
	observe("portfolio", start, len(targets))

	start = time.Now()
	executed, err := execution.NewGovernor(cfg.Execution).Run(targets)
	if err != nil {
		return fail(err)
	}
	lagged := execution.Lag(executed, cfg.Execution.LagDays)
	observe("execution", start, len(lagged))

	start = time.Now()
	sim, err := backtest.NewSimulator(cfg.Backtest)
	if err != nil {
		return fail(err)
	}
	results, err := sim.Run(backtest.PositionsFromWeights(lagged))
	if err != nil {
		return fail(err)
	}
	observe("backtest", start, len(results))
	if reg != nil {
		reg.DatesSimulated.Set(float64(len(results)))
	}

	summary, err := perf.NewCalculator(cfg.Performance).Summarize(results)
	if err != nil {
		return fail(err)
	}

	var windows []walkforward.Window
	if wf, _ := cmd.Flags().GetBool("walkforward"); wf {
		windows, err = walkforward.Evaluate(results, cfg.WalkForward)
		if err != nil {
			return fail(err)
		}
	}

	writer := report.NewWriter(cfg.Output.Dir)
	resultsPath, err := writer.WriteDayResults(results)
	if err != nil {
		return fail(err)
	}
	if _, err := writer.WriteSummary(summary); err != nil {
		return fail(err)
	}
	if len(windows) > 0 {
		if _, err := writer.WriteWindows(windows); err != nil {
			return fail(err)
		}
	}
	if _, err := writer.WriteReport(summary, windows); err != nil {
		return fail(err)
	}

	if cfg.Output.PersistPostgres {
		if err := persistResults(ctx, cfg, writer.RunID(), results, windows); err != nil {
			return fail(err)
		}
	}

	if reg != nil {
		reg.RunsTotal.WithLabelValues("ok").Inc()
	}

	log.Info().
		Str("run_id", writer.RunID()).
		Str("results", resultsPath).
		Int("days", summary.Days).
		Float64("final_return", summary.FinalReturn).
		Float64("cagr", summary.CAGR).
		Float64("sharpe", summary.Sharpe).
		Float64("max_drawdown", summary.MaxDrawdown).
		Msg("Simulation complete")
	return nil
}

// loadBars materializes the full price panel from the configured source
// before the sequential pass begins.
func loadBars(ctx context.Context, cfg config.Config) ([]market.Bar, error) {
	if cfg.Data.Source == "postgres" {
		db, err := postgres.Connect(ctx, cfg.Data.PostgresDSN)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		repo := postgres.NewPricesRepo(db, time.Duration(cfg.Data.TimeoutSecs)*time.Second)
		return repo.LoadBars(ctx)
	}
	return data.LoadDir(cfg.Data.CSVDir)
}

// persistResults writes the completed run to PostgreSQL.
func persistResults(ctx context.Context, cfg config.Config, runID string,
	results []backtest.DayResult, windows []walkforward.Window) error {

	db, err := postgres.Connect(ctx, cfg.Data.PostgresDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := postgres.NewResultsRepo(db, time.Duration(cfg.Data.TimeoutSecs)*time.Second)
	if err := repo.InsertDayResults(ctx, runID, results); err != nil {
		return err
	}
	if err := repo.InsertWindows(ctx, runID, windows); err != nil {
		return err
	}
	log.Info().Str("run_id", runID).Msg("Persisted results to postgres")
	return nil
}
