package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the process-wide Prometheus metrics container for the routing
// subsystem.
type Metrics struct {
	RequestsTotal     *prometheus.CounterVec
	EpisodeDuration   *prometheus.HistogramVec
	EpisodeSteps      prometheus.Histogram
	PlannerDuration    prometheus.Histogram
	PlannerEmptyTotal  prometheus.Counter
	AgentWinsTotal     prometheus.Counter
	PlannerWinsTotal   prometheus.Counter
	DrawsTotal         prometheus.Counter
	RetirementsTotal   prometheus.Counter
	SpatialRebuildsTotal prometheus.Counter
	ActiveRequests     prometheus.Gauge
	ServiceInfo        *prometheus.GaugeVec
}

var defaultMetrics *Metrics

// InitMetrics registers and returns the metrics container under the given
// namespace/subsystem.
func InitMetrics(namespace, subsystem string) *Metrics {
	m := &Metrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "requests_total",
				Help:      "Total number of requests processed by the pipeline",
			},
			[]string{"result"},
		),
		EpisodeDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "episode_duration_seconds",
				Help:      "Wall time spent routing a single request episode",
				Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"result"},
		),
		EpisodeSteps: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "episode_steps",
				Help:      "Number of hops taken per episode",
				Buckets:   []float64{1, 2, 3, 5, 8, 10, 12, 15},
			},
		),
		PlannerDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "planner_duration_seconds",
				Help:      "Wall time spent in the deterministic planner",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1},
			},
		),
		PlannerEmptyTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "planner_empty_total",
				Help:      "Planner runs that found no connectable seed",
			},
		),
		AgentWinsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace, Subsystem: subsystem,
				Name: "agent_wins_total", Help: "Requests the agent's path won the comparison",
			},
		),
		PlannerWinsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace, Subsystem: subsystem,
				Name: "planner_wins_total", Help: "Requests the planner's reference path won the comparison",
			},
		),
		DrawsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace, Subsystem: subsystem,
				Name: "draws_total", Help: "Requests where agent and planner tied",
			},
		),
		RetirementsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace, Subsystem: subsystem,
				Name: "retirements_total", Help: "Requests retired on timeout expiry",
			},
		),
		SpatialRebuildsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace, Subsystem: subsystem,
				Name: "spatial_rebuilds_total", Help: "GroundSpace KD-tree rebuilds performed",
			},
		),
		ActiveRequests: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace, Subsystem: subsystem,
				Name: "active_requests", Help: "Requests currently committed and held in the spatial index",
			},
		),
		ServiceInfo: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace, Subsystem: subsystem,
				Name: "service_info", Help: "Service build information",
			},
			[]string{"version", "environment"},
		),
	}

	defaultMetrics = m
	return m
}

// Get returns the process-wide metrics, lazily initialising a default set
// if none has been registered yet.
func Get() *Metrics {
	if defaultMetrics == nil {
		return InitMetrics("sagin", "")
	}
	return defaultMetrics
}

// RecordEpisode records the outcome of one routed request.
func (m *Metrics) RecordEpisode(result string, duration time.Duration, steps int) {
	m.RequestsTotal.WithLabelValues(result).Inc()
	m.EpisodeDuration.WithLabelValues(result).Observe(duration.Seconds())
	m.EpisodeSteps.Observe(float64(steps))
}

// RecordPlanner records one planner invocation.
func (m *Metrics) RecordPlanner(duration time.Duration, empty bool) {
	m.PlannerDuration.Observe(duration.Seconds())
	if empty {
		m.PlannerEmptyTotal.Inc()
	}
}

// RecordWinner increments the appropriate win/draw counter.
func (m *Metrics) RecordWinner(winner string) {
	switch winner {
	case "agent":
		m.AgentWinsTotal.Inc()
	case "planner":
		m.PlannerWinsTotal.Inc()
	default:
		m.DrawsTotal.Inc()
	}
}

// SetServiceInfo publishes a constant gauge carrying build metadata.
func (m *Metrics) SetServiceInfo(version, environment string) {
	m.ServiceInfo.WithLabelValues(version, environment).Set(1)
}

// Handler returns the HTTP handler serving /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// StartMetricsServer runs a dedicated HTTP server exposing /metrics and
// /health on the given port; it blocks until the server stops.
func StartMetricsServer(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return server.ListenAndServe()
}
