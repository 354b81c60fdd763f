// Package data loads daily price panels from disk: one CSV file per asset,
// with the asset identifier taken from the file name.
package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/quantfall/alphasim/internal/market"
)

// dateLayouts are the accepted date formats, tried in order.
var dateLayouts = []string{"2006-01-02", "2006-01-02 15:04:05", "01/02/2006"}

// LoadDir loads every .csv file in dir into one price panel. Each file must
// carry a date column and a usable price column: "adj close" variants are
// preferred, then "close", then "price". A file without one is a schema
// error; an empty directory is an empty-input error.
func LoadDir(dir string) ([]market.Bar, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, market.NewEmptyInputError("data directory "+dir, "csv discovery")
	}

	var bars []market.Bar
	for _, path := range files {
		fileBars, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		bars = append(bars, fileBars...)
	}

	market.SortBars(bars)
	if err := market.Validate(bars); err != nil {
		return nil, err
	}
	return bars, nil
}

// loadFile loads a single asset's CSV; the asset identifier is the
// uppercased file name without extension.
func loadFile(path string) ([]market.Bar, error) {
	asset := strings.ToUpper(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	dateIdx, priceIdx := findColumns(header)
	if dateIdx < 0 || priceIdx < 0 {
		missing := []string{}
		if dateIdx < 0 {
			missing = append(missing, "date")
		}
		if priceIdx < 0 {
			missing = append(missing, "price (or close / adj close)")
		}
		return nil, market.NewSchemaError("csv file "+path, missing...)
	}

	var bars []market.Bar
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row of %s: %w", path, err)
		}

		date, ok := parseDate(record[dateIdx])
		if !ok {
			return nil, fmt.Errorf("%s: unparseable date %q", path, record[dateIdx])
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(record[priceIdx]), 64)
		if err != nil {
			return nil, fmt.Errorf("%s: unparseable price %q on %s", path, record[priceIdx], record[dateIdx])
		}

		bars = append(bars, market.Bar{Date: date, Asset: asset, Price: price})
	}
	return bars, nil
}

// findColumns locates the date and price columns in a header. Date prefers
// an explicit "date" column and falls back to the first column; price
// prefers adjusted close, then close, then an already-normalized "price".
func findColumns(header []string) (dateIdx, priceIdx int) {
	dateIdx, priceIdx = -1, -1
	closeIdx, namedIdx := -1, -1
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		switch {
		case key == "date":
			dateIdx = i
		case strings.Contains(key, "adj") && strings.Contains(key, "close"):
			if priceIdx < 0 {
				priceIdx = i
			}
		case strings.Contains(key, "close"):
			if closeIdx < 0 {
				closeIdx = i
			}
		case key == "price":
			namedIdx = i
		}
	}
	if dateIdx < 0 && len(header) > 0 {
		dateIdx = 0
	}
	if priceIdx < 0 {
		priceIdx = closeIdx
	}
	if priceIdx < 0 {
		priceIdx = namedIdx
	}
	return dateIdx, priceIdx
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
