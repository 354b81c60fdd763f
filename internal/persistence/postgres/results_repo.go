package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/quantfall/alphasim/internal/backtest"
	"github.com/quantfall/alphasim/internal/walkforward"
)

// ResultsRepo persists completed runs: per-date simulator rows and
// walk-forward windows, keyed by run ID.
type ResultsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewResultsRepo creates a PostgreSQL results repository.
func NewResultsRepo(db *sqlx.DB, timeout time.Duration) *ResultsRepo {
	return &ResultsRepo{db: db, timeout: timeout}
}

// InsertDayResults persists the simulator output atomically. A duplicate
// run ID fails the whole batch so partial, possibly-inconsistent results
// never land.
func (r *ResultsRepo) InsertDayResults(ctx context.Context, runID string, results []backtest.DayResult) error {
	if len(results) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO backtest_results (
			run_id, date, gross_ret, net_ret, turnover, cost,
			rolling_vol, leverage, dd_mult, drawdown, daily_ret, cumret
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range results {
		_, err := stmt.ExecContext(ctx,
			runID, row.Date, row.GrossRet, row.NetRet, row.Turnover, row.Cost,
			row.RollingVol, row.Leverage, row.DDMult, row.Drawdown, row.DailyRet, row.CumRet)
		if err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
				return fmt.Errorf("duplicate result for run %s on %s: %w",
					runID, row.Date.Format("2006-01-02"), err)
			}
			return fmt.Errorf("failed to insert result for %s: %w",
				row.Date.Format("2006-01-02"), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit results: %w", err)
	}
	return nil
}

// InsertWindows persists the walk-forward windows for a run.
func (r *ResultsRepo) InsertWindows(ctx context.Context, runID string, windows []walkforward.Window) error {
	if len(windows) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO walkforward_windows (
			run_id, train_start, train_end, test_start, test_end,
			n_days_test, cum_return, sharpe, max_drawdown
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, w := range windows {
		_, err := stmt.ExecContext(ctx,
			runID, w.TrainStart, w.TrainEnd, w.TestStart, w.TestEnd,
			w.Days, w.CumReturn, w.Sharpe, w.MaxDrawdown)
		if err != nil {
			return fmt.Errorf("failed to insert window starting %s: %w",
				w.TestStart.Format("2006-01-02"), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit windows: %w", err)
	}
	return nil
}
