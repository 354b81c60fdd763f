// Package postgres provides the PostgreSQL price source and results sink.
// The pipeline itself never touches the database mid-run: prices are fully
// materialized before the sequential pass, and results are persisted after
// it completes.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/quantfall/alphasim/internal/market"
)

// Connect opens and pings a PostgreSQL connection.
func Connect(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return db, nil
}

// PricesRepo loads daily price panels from the daily_prices table.
type PricesRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewPricesRepo creates a PostgreSQL price repository.
func NewPricesRepo(db *sqlx.DB, timeout time.Duration) *PricesRepo {
	return &PricesRepo{db: db, timeout: timeout}
}

// LoadBars loads the full price panel ordered by (asset, date). An empty
// table is an empty-input error: the run aborts rather than simulating
// nothing.
func (r *PricesRepo) LoadBars(ctx context.Context) ([]market.Bar, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var bars []market.Bar
	query := `SELECT date, asset, price FROM daily_prices ORDER BY asset, date`
	if err := r.db.SelectContext(ctx, &bars, query); err != nil {
		return nil, fmt.Errorf("failed to load daily prices: %w", err)
	}
	if len(bars) == 0 {
		return nil, market.NewEmptyInputError("daily_prices", "select")
	}
	return bars, nil
}
