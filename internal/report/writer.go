// Package report writes run artifacts: the per-date results table, the
// walk-forward window table, and a performance summary. All outputs are
// tabular or JSON files under a run-scoped directory so downstream
// plotting and reporting stay external.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/quantfall/alphasim/internal/backtest"
	"github.com/quantfall/alphasim/internal/market"
	"github.com/quantfall/alphasim/internal/report/perf"
	"github.com/quantfall/alphasim/internal/walkforward"
)

const dateLayout = "2006-01-02"

var dayResultHeader = []string{
	"date", "gross_ret", "net_ret", "turnover", "cost",
	"rolling_vol", "leverage", "dd_mult", "drawdown", "daily_ret", "cumret",
}

// Writer handles writing run artifacts to disk. Each writer owns one
// run-scoped output directory tagged with the run date and a short run ID.
type Writer struct {
	outputDir string
	runID     string
}

// NewWriter creates an artifact writer rooted at outputDir.
func NewWriter(outputDir string) *Writer {
	runID := uuid.NewString()[:8]
	dateDir := time.Now().Format(dateLayout)
	return &Writer{
		outputDir: filepath.Join(outputDir, dateDir+"-"+runID),
		runID:     runID,
	}
}

// RunID returns the short identifier tagging this run's artifacts.
func (w *Writer) RunID() string { return w.runID }

// OutputDir returns the run-scoped output directory.
func (w *Writer) OutputDir() string { return w.outputDir }

// WriteDayResults writes the simulator output to results.csv.
func (w *Writer) WriteDayResults(results []backtest.DayResult) (string, error) {
	path := filepath.Join(w.outputDir, "results.csv")
	err := w.writeCSV(path, dayResultHeader, len(results), func(i int) []string {
		r := results[i]
		return []string{
			r.Date.Format(dateLayout),
			formatFloat(r.GrossRet), formatFloat(r.NetRet),
			formatFloat(r.Turnover), formatFloat(r.Cost),
			formatFloat(r.RollingVol), formatFloat(r.Leverage),
			formatFloat(r.DDMult), formatFloat(r.Drawdown),
			formatFloat(r.DailyRet), formatFloat(r.CumRet),
		}
	})
	return path, err
}

// WriteWindows writes the walk-forward windows to walkforward.csv.
func (w *Writer) WriteWindows(windows []walkforward.Window) (string, error) {
	header := []string{
		"train_start", "train_end", "test_start", "test_end",
		"n_days_test", "cum_return", "sharpe", "max_drawdown",
	}
	path := filepath.Join(w.outputDir, "walkforward.csv")
	err := w.writeCSV(path, header, len(windows), func(i int) []string {
		win := windows[i]
		return []string{
			win.TrainStart.Format(dateLayout), win.TrainEnd.Format(dateLayout),
			win.TestStart.Format(dateLayout), win.TestEnd.Format(dateLayout),
			strconv.Itoa(win.Days),
			formatFloat(win.CumReturn), formatFloat(win.Sharpe), formatFloat(win.MaxDrawdown),
		}
	})
	return path, err
}

// WriteSummary writes the performance summary to summary.json.
func (w *Writer) WriteSummary(summary *perf.Summary) (string, error) {
	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(w.outputDir, "summary.json")
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write summary: %w", err)
	}
	return path, nil
}

// WriteReport writes a short markdown report alongside the tables.
func (w *Writer) WriteReport(summary *perf.Summary, windows []walkforward.Window) (string, error) {
	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(w.outputDir, "report.md")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	fmt.Fprintf(f, "# Simulation Report (run %s)\n\n", w.runID)
	fmt.Fprintf(f, "Period: %s to %s (%d trading days)\n\n",
		summary.StartDate.Format(dateLayout), summary.EndDate.Format(dateLayout), summary.Days)
	fmt.Fprintf(f, "| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(f, "| Final return | %.2f%% |\n", summary.FinalReturn*100)
	fmt.Fprintf(f, "| CAGR | %.2f%% |\n", summary.CAGR*100)
	fmt.Fprintf(f, "| Volatility | %.2f%% |\n", summary.Volatility*100)
	fmt.Fprintf(f, "| Sharpe | %.2f |\n", summary.Sharpe)
	fmt.Fprintf(f, "| Max drawdown | %.2f%% |\n", summary.MaxDrawdown*100)
	fmt.Fprintf(f, "| Calmar | %.2f |\n", summary.Calmar)

	if len(windows) > 0 {
		fmt.Fprintf(f, "\n## Walk-forward windows\n\n")
		fmt.Fprintf(f, "| Test window | Days | Cum return | Sharpe | Max DD |\n|---|---|---|---|---|\n")
		for _, win := range windows {
			fmt.Fprintf(f, "| %s to %s | %d | %.2f%% | %.2f | %.2f%% |\n",
				win.TestStart.Format(dateLayout), win.TestEnd.Format(dateLayout),
				win.Days, win.CumReturn*100, win.Sharpe, win.MaxDrawdown*100)
		}
	}
	return path, nil
}

// writeCSV writes a header plus n rows produced by row.
func (w *Writer) writeCSV(path string, header []string, n int, row func(i int) []string) error {
	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i := 0; i < n; i++ {
		if err := cw.Write(row(i)); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadDayResults loads a results.csv written by WriteDayResults, so the
// walk-forward evaluator can run against a previously simulated series.
func ReadDayResults(path string) ([]backtest.DayResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open results file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read results header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	var missing []string
	for _, name := range dayResultHeader {
		if _, ok := col[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, market.NewSchemaError("results file "+path, missing...)
	}

	var results []backtest.DayResult
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read results row: %w", err)
		}
		date, err := time.Parse(dateLayout, record[col["date"]])
		if err != nil {
			return nil, fmt.Errorf("invalid date %q in results file: %w", record[col["date"]], err)
		}
		row := backtest.DayResult{Date: date}
		for name, dst := range map[string]*float64{
			"gross_ret": &row.GrossRet, "net_ret": &row.NetRet,
			"turnover": &row.Turnover, "cost": &row.Cost,
			"rolling_vol": &row.RollingVol, "leverage": &row.Leverage,
			"dd_mult": &row.DDMult, "drawdown": &row.Drawdown,
			"daily_ret": &row.DailyRet, "cumret": &row.CumRet,
		} {
			v, err := strconv.ParseFloat(record[col[name]], 64)
			if err != nil {
				return nil, fmt.Errorf("invalid %s %q in results file: %w", name, record[col[name]], err)
			}
			*dst = v
		}
		results = append(results, row)
	}
	if len(results) == 0 {
		return nil, market.NewEmptyInputError("results file "+path, "read")
	}
	return results, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
