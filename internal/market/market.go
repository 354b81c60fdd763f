// Package market defines the shared data model for the simulation pipeline:
// daily price observations keyed by (date, asset) and the fatal error types
// raised when an input table fails structural validation.
package market

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Bar is one daily price observation for a single asset.
type Bar struct {
	Date  time.Time `json:"date" db:"date"`
	Asset string    `json:"asset" db:"asset"`
	Price float64   `json:"price" db:"price"`
}

// SchemaError reports a required column or field absent from an input table.
// It is always fatal: the run aborts rather than defaulting missing data.
type SchemaError struct {
	Table   string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: missing required columns: %s", e.Table, strings.Join(e.Missing, ", "))
}

// NewSchemaError creates a SchemaError for the named table.
func NewSchemaError(table string, missing ...string) *SchemaError {
	return &SchemaError{Table: table, Missing: missing}
}

// EmptyInputError reports that no rows remain after date or universe
// filtering. The boundary that emptied the table is named in the message.
type EmptyInputError struct {
	Table    string
	Boundary string
}

func (e *EmptyInputError) Error() string {
	return fmt.Sprintf("%s: no rows remain after %s", e.Table, e.Boundary)
}

// NewEmptyInputError creates an EmptyInputError for the named table.
func NewEmptyInputError(table, boundary string) *EmptyInputError {
	return &EmptyInputError{Table: table, Boundary: boundary}
}

// SortBars orders a panel by (asset, date) in place. Every per-asset
// sequential computation in the pipeline assumes this ordering.
func SortBars(bars []Bar) {
	sort.Slice(bars, func(i, j int) bool {
		if bars[i].Asset != bars[j].Asset {
			return bars[i].Asset < bars[j].Asset
		}
		return bars[i].Date.Before(bars[j].Date)
	})
}

// Assets returns the sorted distinct asset identifiers in the panel.
func Assets(bars []Bar) []string {
	seen := make(map[string]bool)
	var assets []string
	for _, b := range bars {
		if !seen[b.Asset] {
			seen[b.Asset] = true
			assets = append(assets, b.Asset)
		}
	}
	sort.Strings(assets)
	return assets
}

// Dates returns the sorted distinct trading dates in the panel.
func Dates(bars []Bar) []time.Time {
	seen := make(map[time.Time]bool)
	var dates []time.Time
	for _, b := range bars {
		if !seen[b.Date] {
			seen[b.Date] = true
			dates = append(dates, b.Date)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// Validate checks the panel for structural problems: zero rows, missing
// asset identifiers, or non-positive prices.
func Validate(bars []Bar) error {
	if len(bars) == 0 {
		return NewEmptyInputError("price panel", "ingest")
	}
	for _, b := range bars {
		if b.Asset == "" {
			return NewSchemaError("price panel", "asset")
		}
		if b.Date.IsZero() {
			return NewSchemaError("price panel", "date")
		}
		if b.Price <= 0 {
			return fmt.Errorf("price panel: non-positive price %.4f for %s on %s",
				b.Price, b.Asset, b.Date.Format("2006-01-02"))
		}
	}
	return nil
}
