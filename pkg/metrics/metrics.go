// Package metrics exposes a parsed run as Prometheus metrics, for scraping
// or for the node exporter textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ccollicutt/gcscan/pkg/event"
	"github.com/ccollicutt/gcscan/pkg/preprocess"
	"github.com/ccollicutt/gcscan/pkg/run"
)

// Metrics bundles the collectors recorded for each analyzed capture.
type Metrics struct {
	LinesTotal        *prometheus.CounterVec
	EventsTotal       *prometheus.CounterVec
	UnidentifiedTotal prometheus.Counter
	FindingsTotal     *prometheus.CounterVec
	PauseSeconds      *prometheus.HistogramVec
	Throughput        prometheus.Gauge
	AnalysisSeconds   prometheus.Histogram

	registry *prometheus.Registry
}

// New creates the collectors and registers them on registry. A nil
// registry gets a fresh one.
func New(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	m := &Metrics{
		LinesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gcscan_lines_total",
			Help: "Raw log lines read, by what the preprocessor did with them.",
		}, []string{"outcome"}),
		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gcscan_events_total",
			Help: "Identified log events, by kind.",
		}, []string{"kind"}),
		UnidentifiedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gcscan_unidentified_lines_total",
			Help: "Normalized lines no matcher recognized.",
		}),
		FindingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gcscan_findings_total",
			Help: "Analysis findings, by code and severity.",
		}, []string{"code", "severity"}),
		PauseSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gcscan_pause_seconds",
			Help:    "Blocking collection pause durations, by kind.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"kind"}),
		Throughput: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gcscan_throughput_ratio",
			Help: "Share of the last analyzed capture's span spent outside collection pauses.",
		}),
		AnalysisSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gcscan_analysis_duration_seconds",
			Help:    "Wall clock time spent analyzing a capture.",
			Buckets: prometheus.DefBuckets,
		}),
		registry: registry,
	}

	registry.MustRegister(
		m.LinesTotal,
		m.EventsTotal,
		m.UnidentifiedTotal,
		m.FindingsTotal,
		m.PauseSeconds,
		m.Throughput,
		m.AnalysisSeconds,
	)

	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveEvent records one parsed event.
func (m *Metrics) ObserveEvent(e event.Event) {
	if e.Kind == event.KindUnknown {
		m.UnidentifiedTotal.Inc()
		return
	}
	m.EventsTotal.WithLabelValues(string(e.Kind)).Inc()
	if e.Kind.Collection() && e.Duration.Valid {
		m.PauseSeconds.WithLabelValues(string(e.Kind)).Observe(e.Duration.Std().Seconds())
	}
}

// ObserveRun records the outcome of a finished capture.
func (m *Metrics) ObserveRun(r *run.Run, stats preprocess.Stats, elapsed time.Duration) {
	m.LinesTotal.WithLabelValues("collected").Add(float64(stats.Collected))
	m.LinesTotal.WithLabelValues("passed").Add(float64(stats.Passed))
	m.LinesTotal.WithLabelValues("dropped").Add(float64(stats.Dropped))

	for _, c := range r.Findings() {
		m.FindingsTotal.WithLabelValues(string(c), string(c.Severity())).Inc()
	}
	m.Throughput.Set(r.Summary().Throughput)
	m.AnalysisSeconds.Observe(elapsed.Seconds())
}

// WriteTextfile writes every registered metric to path in the text
// exposition format, atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
