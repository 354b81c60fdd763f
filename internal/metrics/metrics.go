// Package metrics exposes pipeline instrumentation over HTTP for long
// simulations: per-stage durations, processed row counts, and run totals.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog/log"
)

// Registry holds the Prometheus metrics for a simulation process.
type Registry struct {
	StageDuration  *prometheus.HistogramVec
	RowsProcessed  *prometheus.CounterVec
	RunsTotal      *prometheus.CounterVec
	DatesSimulated prometheus.Gauge

	registry *prometheus.Registry
}

// NewRegistry creates a registry with all simulation metrics registered.
func NewRegistry() *Registry {
	r := &Registry{
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "alphasim_stage_duration_seconds",
				Help:    "Duration of each pipeline stage in seconds",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 30.0, 120.0},
			},
			[]string{"stage"},
		),
		RowsProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alphasim_rows_processed_total",
				Help: "Rows emitted by each pipeline stage",
			},
			[]string{"stage"},
		),
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alphasim_runs_total",
				Help: "Completed simulation runs by outcome",
			},
			[]string{"outcome"},
		),
		DatesSimulated: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "alphasim_dates_simulated",
				Help: "Trading dates covered by the most recent run",
			},
		),
		registry: prometheus.NewRegistry(),
	}

	r.registry.MustRegister(r.StageDuration, r.RowsProcessed, r.RunsTotal, r.DatesSimulated)
	return r
}

// ObserveStage records one stage invocation: its duration since start and
// the number of rows it emitted.
func (r *Registry) ObserveStage(stage string, start time.Time, rows int) {
	r.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	r.RowsProcessed.WithLabelValues(stage).Add(float64(rows))
}

// Gather collects the current metric families.
func (r *Registry) Gather() ([]*dto.MetricFamily, error) {
	return r.registry.Gather()
}

// Serve exposes /metrics and /health on addr. It blocks; callers run it in
// a goroutine alongside the pipeline.
func (r *Registry) Serve(addr string) error {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))
	router.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, `{"status":"ok"}`)
	}).Methods(http.MethodGet)

	log.Info().Str("addr", addr).Msg("Serving metrics endpoint")
	return http.ListenAndServe(addr, router)
}
